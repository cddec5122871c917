package services

import (
	"context"
	"errors"
	"strings"

	"github.com/tradejournal/backend/internal/models"
	"go.uber.org/zap"
)

// PortfolioRepository is the interface that wraps methods for Portfolio table data access
type PortfolioRepository interface {
	// Method Create inserts a new portfolio. Its ID is set on success.
	Create(ctx context.Context, portfolio *models.Portfolio) error
	// Method GetByID retrieves a portfolio by ID.
	//
	// If portfolio with such ID does not exist, models.ErrNotFound will be returned together with "nil" value.
	GetByID(ctx context.Context, id int) (*models.Portfolio, error)
	// Method ListByUser retrieves every portfolio owned by the user.
	ListByUser(ctx context.Context, userID int) ([]models.Portfolio, error)
	Update(ctx context.Context, portfolio *models.Portfolio) error
	// Method Delete removes the portfolio together with its trades.
	Delete(ctx context.Context, id int) error
}

// portfolioService implements PortfolioService
type portfolioService struct {
	repo   PortfolioRepository
	logger *zap.Logger
}

// NewPortfolioService creates a new portfolio service
func NewPortfolioService(repo PortfolioRepository, logger *zap.Logger) *portfolioService {
	return &portfolioService{
		repo:   repo,
		logger: logger,
	}
}

// List returns the portfolios of a user
func (s *portfolioService) List(ctx context.Context, userID int) ([]models.Portfolio, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Create creates a portfolio owned by userID
func (s *portfolioService) Create(ctx context.Context, userID int, req *models.CreatePortfolioRequest) (*models.Portfolio, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid("name cannot be empty")
	}

	portfolio := &models.Portfolio{
		Name:           name,
		Description:    normalizeOptional(req.Description),
		InitialBalance: req.InitialBalance,
		UserID:         userID,
	}
	if err := s.repo.Create(ctx, portfolio); err != nil {
		return nil, err
	}

	return s.repo.GetByID(ctx, portfolio.ID)
}

// Get returns a portfolio owned by userID
func (s *portfolioService) Get(ctx context.Context, userID, portfolioID int) (*models.Portfolio, error) {
	return ownedPortfolio(ctx, s.repo, userID, portfolioID)
}

// Update applies the provided fields to a portfolio owned by userID
func (s *portfolioService) Update(ctx context.Context, userID, portfolioID int, req *models.UpdatePortfolioRequest) (*models.Portfolio, error) {
	portfolio, err := ownedPortfolio(ctx, s.repo, userID, portfolioID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, invalid("name cannot be empty")
		}
		portfolio.Name = name
	}
	if req.Description != nil {
		portfolio.Description = normalizeOptional(req.Description)
	}
	if req.InitialBalance != nil {
		portfolio.InitialBalance = *req.InitialBalance
	}

	if err := s.repo.Update(ctx, portfolio); err != nil {
		return nil, err
	}

	return s.repo.GetByID(ctx, portfolio.ID)
}

// Delete removes a portfolio owned by userID
func (s *portfolioService) Delete(ctx context.Context, userID, portfolioID int) error {
	if _, err := ownedPortfolio(ctx, s.repo, userID, portfolioID); err != nil {
		return err
	}

	err := s.repo.Delete(ctx, portfolioID)
	if errors.Is(err, models.ErrNotFound) {
		return ErrPortfolioNotFound
	}
	return err
}

// ownedPortfolio loads a portfolio and checks it belongs to userID
func ownedPortfolio(ctx context.Context, repo PortfolioRepository, userID, portfolioID int) (*models.Portfolio, error) {
	portfolio, err := repo.GetByID(ctx, portfolioID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrPortfolioNotFound
	}
	if err != nil {
		return nil, err
	}

	if portfolio.UserID != userID {
		return nil, ErrForbidden
	}

	return portfolio, nil
}
