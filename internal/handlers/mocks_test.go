package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"github.com/tradejournal/backend/internal/models"
	"github.com/tradejournal/backend/libs/auth/middleware"
)

var errDatabase = errors.New("database connection failed")

var (
	traderSession = &models.Session{ID: "sess-trader", UserID: 10, Username: "trader", Email: "trader@example.com"}
	adminSession  = &models.Session{ID: "sess-admin", UserID: 1, Username: "admin", Email: "admin@example.com", IsAdmin: true}
)

// injectSession places sess into every request context, standing in for SessionMiddleware
func injectSession(sess *models.Session) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if sess != nil {
				r = r.WithContext(middleware.WithSession(r.Context(), sess))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// registrar is implemented by every handler in this package
type registrar interface {
	RegisterRoutes(r chi.Router)
}

// newAPIRouter mounts h under /api/v1 with the given session
func newAPIRouter(h registrar, sess *models.Session, requireSession bool) chi.Router {
	r := chi.NewRouter()
	r.Use(injectSession(sess))
	r.Route("/api/v1", func(r chi.Router) {
		if requireSession {
			r.Use(middleware.RequireSession)
		}
		h.RegisterRoutes(r)
	})
	return r
}

func doRequest(router http.Handler, method, target string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func jsonBody(s string) io.Reader {
	return strings.NewReader(s)
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"]
}

func cookieByName(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// mockAuthService is a mock implementation of AuthService and SessionService
type mockAuthService struct {
	registerUser  *models.User
	registerErr   error
	loginSession  *models.Session
	loginToken    string
	loginErr      error
	lastLogin     *models.LoginRequest
	logoutErr     error
	loggedOut     []string
	profile       *models.User
	profileErr    error
	lastProfileID int
}

func (m *mockAuthService) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	if m.registerErr != nil {
		return nil, m.registerErr
	}
	return m.registerUser, nil
}

func (m *mockAuthService) Login(ctx context.Context, req *models.LoginRequest) (*models.Session, string, error) {
	m.lastLogin = req
	if m.loginErr != nil {
		return nil, "", m.loginErr
	}
	return m.loginSession, m.loginToken, nil
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutErr != nil {
		return m.logoutErr
	}
	m.loggedOut = append(m.loggedOut, sessionID)
	return nil
}

func (m *mockAuthService) Profile(ctx context.Context, userID int) (*models.User, error) {
	m.lastProfileID = userID
	if m.profileErr != nil {
		return nil, m.profileErr
	}
	return m.profile, nil
}

// mockPortfolioService is a mock implementation of PortfolioService
type mockPortfolioService struct {
	portfolios []models.Portfolio
	portfolio  *models.Portfolio
	err        error
	lastUserID int
	lastID     int
	created    *models.CreatePortfolioRequest
	updated    *models.UpdatePortfolioRequest
	deleted    bool
}

func (m *mockPortfolioService) List(ctx context.Context, userID int) ([]models.Portfolio, error) {
	m.lastUserID = userID
	return m.portfolios, m.err
}

func (m *mockPortfolioService) Create(ctx context.Context, userID int, req *models.CreatePortfolioRequest) (*models.Portfolio, error) {
	m.lastUserID, m.created = userID, req
	if m.err != nil {
		return nil, m.err
	}
	return m.portfolio, nil
}

func (m *mockPortfolioService) Get(ctx context.Context, userID, portfolioID int) (*models.Portfolio, error) {
	m.lastUserID, m.lastID = userID, portfolioID
	if m.err != nil {
		return nil, m.err
	}
	return m.portfolio, nil
}

func (m *mockPortfolioService) Update(ctx context.Context, userID, portfolioID int, req *models.UpdatePortfolioRequest) (*models.Portfolio, error) {
	m.lastUserID, m.lastID, m.updated = userID, portfolioID, req
	if m.err != nil {
		return nil, m.err
	}
	return m.portfolio, nil
}

func (m *mockPortfolioService) Delete(ctx context.Context, userID, portfolioID int) error {
	m.lastUserID, m.lastID = userID, portfolioID
	if m.err != nil {
		return m.err
	}
	m.deleted = true
	return nil
}

// mockTradeService is a mock implementation of TradeService
type mockTradeService struct {
	trades         []models.Trade
	trade          *models.Trade
	err            error
	lastUserID     int
	lastID         int
	lastStatus     *models.TradeStatus
	closeReq       *models.CloseTradeRequest
	upload         []byte
	uploadName     string
	uploadType     string
	screenshotResp *models.ScreenshotResponse
}

func (m *mockTradeService) ListByPortfolio(ctx context.Context, userID, portfolioID int, status *models.TradeStatus) ([]models.Trade, error) {
	m.lastUserID, m.lastID, m.lastStatus = userID, portfolioID, status
	return m.trades, m.err
}

func (m *mockTradeService) Create(ctx context.Context, userID int, req *models.CreateTradeRequest) (*models.Trade, error) {
	m.lastUserID = userID
	if m.err != nil {
		return nil, m.err
	}
	return m.trade, nil
}

func (m *mockTradeService) Get(ctx context.Context, userID, tradeID int) (*models.Trade, error) {
	m.lastUserID, m.lastID = userID, tradeID
	if m.err != nil {
		return nil, m.err
	}
	return m.trade, nil
}

func (m *mockTradeService) Update(ctx context.Context, userID, tradeID int, req *models.UpdateTradeRequest) (*models.Trade, error) {
	m.lastUserID, m.lastID = userID, tradeID
	if m.err != nil {
		return nil, m.err
	}
	return m.trade, nil
}

func (m *mockTradeService) Close(ctx context.Context, userID, tradeID int, req *models.CloseTradeRequest) (*models.Trade, error) {
	m.lastUserID, m.lastID, m.closeReq = userID, tradeID, req
	if m.err != nil {
		return nil, m.err
	}
	return m.trade, nil
}

func (m *mockTradeService) Delete(ctx context.Context, userID, tradeID int) error {
	m.lastUserID, m.lastID = userID, tradeID
	return m.err
}

func (m *mockTradeService) UploadScreenshot(ctx context.Context, userID, tradeID int, file io.Reader, filename, contentType string) (*models.ScreenshotResponse, error) {
	m.lastUserID, m.lastID = userID, tradeID
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	m.upload, m.uploadName, m.uploadType = data, filename, contentType
	if m.err != nil {
		return nil, m.err
	}
	return m.screenshotResp, nil
}

// mockAnalyticsService is a mock implementation of AnalyticsService
type mockAnalyticsService struct {
	analytics  *models.PortfolioAnalytics
	breakdown  *models.SymbolBreakdown
	overview   *models.AnalyticsOverview
	err        error
	lastUserID int
	lastID     int
}

func (m *mockAnalyticsService) Portfolio(ctx context.Context, userID, portfolioID int) (*models.PortfolioAnalytics, error) {
	m.lastUserID, m.lastID = userID, portfolioID
	if m.err != nil {
		return nil, m.err
	}
	return m.analytics, nil
}

func (m *mockAnalyticsService) BySymbol(ctx context.Context, userID, portfolioID int) (*models.SymbolBreakdown, error) {
	m.lastUserID, m.lastID = userID, portfolioID
	if m.err != nil {
		return nil, m.err
	}
	return m.breakdown, nil
}

func (m *mockAnalyticsService) Overview(ctx context.Context, userID int) (*models.AnalyticsOverview, error) {
	m.lastUserID = userID
	if m.err != nil {
		return nil, m.err
	}
	return m.overview, nil
}

// mockUserService is a mock implementation of UserService
type mockUserService struct {
	users     []models.User
	user      *models.User
	err       error
	lastSkip  int
	lastLimit int
	lastID    int
	actorID   int
	updated   *models.UpdateUserRequest
}

func (m *mockUserService) List(ctx context.Context, skip, limit int) ([]models.User, error) {
	m.lastSkip, m.lastLimit = skip, limit
	return m.users, m.err
}

func (m *mockUserService) Get(ctx context.Context, userID int) (*models.User, error) {
	m.lastID = userID
	if m.err != nil {
		return nil, m.err
	}
	return m.user, nil
}

func (m *mockUserService) Update(ctx context.Context, userID int, req *models.UpdateUserRequest) (*models.User, error) {
	m.lastID, m.updated = userID, req
	if m.err != nil {
		return nil, m.err
	}
	return m.user, nil
}

func (m *mockUserService) Delete(ctx context.Context, actorID, userID int) error {
	m.actorID, m.lastID = actorID, userID
	return m.err
}

// mockPruner is a mock implementation of SessionIndexPruner
type mockPruner struct {
	pruned int
	err    error
}

func (m *mockPruner) PruneIndexes(ctx context.Context) (int, error) {
	return m.pruned, m.err
}

func newRequestWithHeader(method, target, header, value string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	req.Header.Set(header, value)
	return req
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}
