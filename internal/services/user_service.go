package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tradejournal/backend/internal/models"
	"go.uber.org/zap"
)

// UserAdminRepository is the interface that wraps methods for User table data access used by administration
type UserAdminRepository interface {
	// Method List retrieves users ordered by ID.
	//
	// "skip" and "limit" parameters page through the result.
	List(ctx context.Context, skip, limit int) ([]models.User, error)
	GetByID(ctx context.Context, userID int) (*models.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	// Method Update stores every mutable field of the user.
	Update(ctx context.Context, user *models.User) error
	// Method Delete removes the user together with their portfolios and trades.
	//
	// If user with such ID does not exist, models.ErrNotFound will be returned.
	Delete(ctx context.Context, userID int) error
}

// SessionRevoker is the interface that wraps the session revocation of the auth service
type SessionRevoker interface {
	// Method RevokeUser ends every session of a user.
	//
	// If the session store cannot be reached, the error will be returned and the sessions stay valid.
	RevokeUser(ctx context.Context, userID int) error
}

// MaxUserPageSize bounds the limit of one user listing
const MaxUserPageSize = 1000

// userService implements UserService
type userService struct {
	userRepo UserAdminRepository
	sessions SessionRevoker
	logger   *zap.Logger
}

// NewUserService creates a new user administration service
func NewUserService(userRepo UserAdminRepository, sessions SessionRevoker, logger *zap.Logger) *userService {
	return &userService{
		userRepo: userRepo,
		sessions: sessions,
		logger:   logger,
	}
}

// List returns a page of users
func (s *userService) List(ctx context.Context, skip, limit int) ([]models.User, error) {
	if skip < 0 {
		return nil, invalid("skip must not be negative")
	}
	if limit < 1 || limit > MaxUserPageSize {
		return nil, invalid(fmt.Sprintf("limit must be between 1 and %d", MaxUserPageSize))
	}

	return s.userRepo.List(ctx, skip, limit)
}

// Get returns a single user
func (s *userService) Get(ctx context.Context, userID int) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

// Update applies the provided fields to a user.
// Changing the active or administrator flag ends the user's sessions, the new flags apply at the next login.
func (s *userService) Update(ctx context.Context, userID int, req *models.UpdateUserRequest) (*models.User, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*req.Email))
		if !emailRegex.MatchString(email) {
			return nil, invalid("invalid email format")
		}
		if email != user.Email {
			exists, err := s.userRepo.ExistsByEmail(ctx, email)
			if err != nil {
				return nil, fmt.Errorf("failed to check email: %w", err)
			}
			if exists {
				return nil, ErrEmailTaken
			}
		}
		user.Email = email
	}

	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		if username == "" {
			return nil, invalid("username cannot be empty")
		}
		if username != user.Username {
			exists, err := s.userRepo.ExistsByUsername(ctx, username)
			if err != nil {
				return nil, fmt.Errorf("failed to check username: %w", err)
			}
			if exists {
				return nil, ErrUsernameTaken
			}
		}
		user.Username = username
	}

	if req.FullName != nil {
		user.FullName = normalizeOptional(req.FullName)
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	if req.IsAdmin != nil {
		user.IsAdmin = *req.IsAdmin
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	// live sessions carry the old flags until they are revoked
	if req.TouchesAccess() {
		if err := s.sessions.RevokeUser(ctx, userID); err != nil {
			s.logger.Error("failed to revoke user sessions after update", zap.Int("userId", userID), zap.Error(err))
			return nil, err
		}
	}

	return user, nil
}

// Delete removes a user. Administrators cannot delete their own account.
func (s *userService) Delete(ctx context.Context, actorID, userID int) error {
	if actorID == userID {
		return ErrCannotDeleteSelf
	}

	if _, err := s.Get(ctx, userID); err != nil {
		return err
	}

	// sessions go first so a failed revocation leaves the account in place for a retry
	if err := s.sessions.RevokeUser(ctx, userID); err != nil {
		s.logger.Error("failed to revoke user sessions before delete", zap.Int("userId", userID), zap.Error(err))
		return err
	}

	err := s.userRepo.Delete(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}
