package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tradejournal/backend/internal/models"
	"github.com/tradejournal/backend/libs/auth/service"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// UserRepository is the interface that wraps methods for User table data access used by authentication
type UserRepository interface {
	// Method Create inserts a new user into the database.
	//
	// "user" parameter is used to create a new user. Its ID is set on success.
	//
	// If some error occurs during user creation, the error will be returned.
	Create(ctx context.Context, user *models.User) error
	// Method Count returns the number of registered users.
	//
	// If some error occurs during counting, the error will be returned together with zero.
	Count(ctx context.Context) (int, error)
	// Method GetByEmailOrUsername retrieves a user by email or username.
	//
	// "login" parameter is matched against username first and e-mail second.
	//
	// If user with such email or username does not exist, models.ErrNotFound will be returned together with "nil" value.
	GetByEmailOrUsername(ctx context.Context, login string) (*models.User, error)
	// Method GetByID retrieves a user by ID.
	//
	// "userID" parameter is used to retrieve a user by ID.
	//
	// If user with such ID does not exist, models.ErrNotFound will be returned together with "nil" value.
	GetByID(ctx context.Context, userID int) (*models.User, error)
	// Method ExistsByEmail checks if a user with such email exists.
	//
	// If some error occurs during check, the error will be returned together with "false" value.
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// Method ExistsByUsername checks if a user with such username exists.
	//
	// If some error occurs during check, the error will be returned together with "false" value.
	ExistsByUsername(ctx context.Context, username string) (bool, error)
}

// SessionStore is the interface that wraps methods for session persistence
type SessionStore interface {
	// Method Save persists a session until its expiry.
	Save(ctx context.Context, sess *models.Session) error
	// Method Get loads a live session by ID.
	//
	// If the session does not exist or has expired, models.ErrNotFound will be returned.
	Get(ctx context.Context, id string) (*models.Session, error)
	// Method Delete removes a session. Deleting an unknown ID is not an error.
	Delete(ctx context.Context, id string) error
	// Method DeleteByUser removes every session of a user and returns how many were removed.
	DeleteByUser(ctx context.Context, userID int) (int, error)
}

// WelcomeNotifier schedules the welcome e-mail for a newly registered user
type WelcomeNotifier interface {
	EnqueueWelcome(ctx context.Context, user *models.User) error
}

// authService implements AuthService
type authService struct {
	userRepo       UserRepository
	sessions       SessionStore
	tokenGenerator *service.TokenGenerator
	notifier       WelcomeNotifier
	logger         *zap.Logger
	now            func() time.Time
	passwordCost   int
}

// NewAuthService creates a new auth service. notifier may be nil.
func NewAuthService(
	userRepo UserRepository,
	sessions SessionStore,
	tokenGenerator *service.TokenGenerator,
	notifier WelcomeNotifier,
	logger *zap.Logger,
) *authService {
	return &authService{
		userRepo:       userRepo,
		sessions:       sessions,
		tokenGenerator: tokenGenerator,
		notifier:       notifier,
		logger:         logger,
		now:            time.Now,
		passwordCost:   bcrypt.DefaultCost,
	}
}

// emailRegex validates email format
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

const minPasswordLength = 8

// Register creates a new user account. The first registered user becomes an administrator.
func (s *authService) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	normalizedEmail, normalizedUsername, err := checkRegisterCredentials(ctx, s.userRepo, req.Email, req.Username, req.Password)
	if err != nil {
		return nil, err
	}

	count, err := s.userRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.passwordCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        normalizedEmail,
		Username:     normalizedUsername,
		PasswordHash: string(passwordHash),
		FullName:     normalizeOptional(req.FullName),
		IsActive:     true,
		IsAdmin:      count == 0,
		CreatedAt:    s.now(),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	// a failed enqueue does not undo the registration
	if s.notifier != nil {
		if err := s.notifier.EnqueueWelcome(ctx, user); err != nil {
			s.logger.Warn("failed to enqueue welcome email", zap.Int("userId", user.ID), zap.Error(err))
		}
	}

	return user, nil
}

// Login authenticates a user and opens a new session
func (s *authService) Login(ctx context.Context, req *models.LoginRequest) (*models.Session, string, error) {
	login := strings.TrimSpace(req.Identifier())
	if login == "" {
		return nil, "", invalid("login cannot be empty")
	}
	if req.Password == "" {
		return nil, "", invalid("password cannot be empty")
	}

	user, err := s.userRepo.GetByEmailOrUsername(ctx, login)
	if errors.Is(err, models.ErrNotFound) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, "", ErrInactiveUser
	}

	now := s.now()
	sess := &models.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Username:  user.Username,
		FullName:  user.FullName,
		Email:     user.Email,
		IsAdmin:   user.IsAdmin,
		CreatedAt: now,
		ExpiresAt: now.Add(s.tokenGenerator.AccessTokenExpiry()),
	}

	token, err := s.tokenGenerator.GenerateAccessToken(service.AccessClaims{
		SessionID: sess.ID,
		UserID:    sess.UserID,
		IsAdmin:   sess.IsAdmin,
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate access token: %w", err)
	}

	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, "", fmt.Errorf("failed to save session: %w", err)
	}

	s.logger.Info("user logged in", zap.Int("userId", user.ID), zap.String("sessionId", sess.ID))
	return sess, token, nil
}

// Logout ends a session. Ending a session that is already gone is not an error.
func (s *authService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Current resolves an access token to its live session
func (s *authService) Current(ctx context.Context, token string) (*models.Session, error) {
	claims, err := s.tokenGenerator.ValidateAccessToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionNotFound, err)
	}

	sess, err := s.sessions.Get(ctx, claims.SessionID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	// a token is only good for the session it was issued with
	if sess.UserID != claims.UserID {
		return nil, ErrSessionNotFound
	}

	return sess, nil
}

// Profile returns the stored account of the signed-in user
func (s *authService) Profile(ctx context.Context, userID int) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

// RevokeUser ends every session of a user
func (s *authService) RevokeUser(ctx context.Context, userID int) error {
	removed, err := s.sessions.DeleteByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}

	s.logger.Info("revoked user sessions", zap.Int("userId", userID), zap.Int("removed", removed))
	return nil
}

// checkRegisterCredentials validates and normalizes registration input.
//
// The uniqueness checks do not depend on each other, so they run in parallel.
// Errors are reported in a fixed order: e-mail, username, password.
func checkRegisterCredentials(ctx context.Context, userRepo UserRepository, email, username, password string) (string, string, error) {
	normalizedEmail := strings.TrimSpace(strings.ToLower(email))
	normalizedUsername := strings.TrimSpace(username)

	var results [3]error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		if !emailRegex.MatchString(normalizedEmail) {
			results[0] = invalid("invalid email format")
			return
		}
		exists, err := userRepo.ExistsByEmail(ctx, normalizedEmail)
		if err != nil {
			results[0] = fmt.Errorf("failed to check email: %w", err)
			return
		}
		if exists {
			results[0] = ErrEmailTaken
		}
	}()

	go func() {
		defer wg.Done()
		if normalizedUsername == "" {
			results[1] = invalid("username cannot be empty")
			return
		}
		exists, err := userRepo.ExistsByUsername(ctx, normalizedUsername)
		if err != nil {
			results[1] = fmt.Errorf("failed to check username: %w", err)
			return
		}
		if exists {
			results[1] = ErrUsernameTaken
		}
	}()

	if len(password) < minPasswordLength {
		results[2] = invalid(fmt.Sprintf("password must be at least %d characters long", minPasswordLength))
	}

	wg.Wait()

	for _, err := range results {
		if err != nil {
			return "", "", err
		}
	}

	return normalizedEmail, normalizedUsername, nil
}

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
