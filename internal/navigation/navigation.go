// Package navigation builds the dashboard navigation shell.
//
// Everything here is a pure function of the session's role flag, the static
// route list and the current request path, so callers can test it without a
// running server.
package navigation

import (
	"strings"

	"github.com/tradejournal/backend/internal/models"
)

// Dashboard routes
const (
	RouteDashboard  = "/dashboard"
	RoutePortfolios = "/dashboard/portfolios"
	RouteAnalytics  = "/dashboard/analytics"
	RouteUsers      = "/dashboard/users"
	RouteLogin      = "/login"
	RouteLogout     = "/logout"
)

// Item is a single navigation entry
type Item struct {
	Label  string `json:"label"`
	Route  string `json:"route"`
	Icon   string `json:"icon"`
	Active bool   `json:"active"`
}

// UserLabel is the identity shown in the shell header
type UserLabel struct {
	Label    string `json:"label"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsAdmin  bool   `json:"is_admin"`
}

// Shell is everything the dashboard frame needs to render
type Shell struct {
	User        *UserLabel `json:"user"`
	Items       []Item     `json:"items"`
	CurrentPath string     `json:"current_path"`
	LogoutRoute string     `json:"logout_route"`
	CSRFToken   string     `json:"-"`
}

var baseItems = [...]Item{
	{Label: "Dashboard", Route: RouteDashboard, Icon: "layout-dashboard"},
	{Label: "Portfolios", Route: RoutePortfolios, Icon: "briefcase"},
	{Label: "Analytics", Route: RouteAnalytics, Icon: "bar-chart"},
}

var adminItem = Item{Label: "Users", Route: RouteUsers, Icon: "users"}

// Items returns a fresh copy of the navigation list for the given role flag.
// The administrator entry is appended exactly once, after the base entries.
func Items(isAdmin bool) []Item {
	items := make([]Item, 0, len(baseItems)+1)
	items = append(items, baseItems[:]...)
	if isAdmin {
		items = append(items, adminItem)
	}
	return items
}

// MarkActive flags the items whose route equals currentPath exactly.
// Nested paths do not highlight their parent entry.
func MarkActive(items []Item, currentPath string) []Item {
	marked := make([]Item, len(items))
	for i, item := range items {
		item.Active = item.Route == currentPath
		marked[i] = item
	}
	return marked
}

// DisplayName picks the label for the identity area:
// full name, then username, then e-mail, then a generic fallback.
func DisplayName(sess *models.Session) string {
	if sess == nil {
		return ""
	}
	if sess.FullName != nil {
		if name := strings.TrimSpace(*sess.FullName); name != "" {
			return name
		}
	}
	if sess.Username != "" {
		return sess.Username
	}
	if sess.Email != "" {
		return sess.Email
	}
	return "Account"
}

// Build composes the shell for a request. A nil session yields the base list with no user.
func Build(sess *models.Session, currentPath, csrfToken string) Shell {
	shell := Shell{
		CurrentPath: currentPath,
		LogoutRoute: RouteLogout,
		CSRFToken:   csrfToken,
	}

	isAdmin := false
	if sess != nil {
		isAdmin = sess.IsAdmin
		shell.User = &UserLabel{
			Label:    DisplayName(sess),
			Username: sess.Username,
			Email:    sess.Email,
			IsAdmin:  sess.IsAdmin,
		}
	}

	shell.Items = MarkActive(Items(isAdmin), currentPath)
	return shell
}

// CanAccess reports whether a session may open the dashboard route
func CanAccess(sess *models.Session, route string) bool {
	if sess == nil {
		return false
	}
	if route == RouteUsers {
		return sess.IsAdmin
	}
	return true
}
