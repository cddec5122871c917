package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tradejournal/backend/internal/models"
	"go.uber.org/zap"
)

const portfolioColumns = `id, name, description, initial_balance, user_id, created_at, updated_at`

// portfolioRepository implements PortfolioRepository
type portfolioRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPortfolioRepository creates a new portfolio repository
func NewPortfolioRepository(db *sql.DB, logger *zap.Logger) *portfolioRepository {
	return &portfolioRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new portfolio
func (r *portfolioRepository) Create(ctx context.Context, portfolio *models.Portfolio) error {
	query := `
		INSERT INTO portfolios (name, description, initial_balance, user_id)
		VALUES (?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query, portfolio.Name, portfolio.Description, portfolio.InitialBalance, portfolio.UserID)
	if err != nil {
		r.logger.Error("failed to create portfolio", zap.Error(err))
		return fmt.Errorf("failed to create portfolio: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		r.logger.Error("failed to get last insert id", zap.Error(err))
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	portfolio.ID = int(id)
	return nil
}

// GetByID retrieves a portfolio by ID
func (r *portfolioRepository) GetByID(ctx context.Context, id int) (*models.Portfolio, error) {
	query := `SELECT ` + portfolioColumns + ` FROM portfolios WHERE id = ?`

	portfolio, err := scanPortfolio(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		r.logger.Error("failed to get portfolio", zap.Error(err), zap.Int("portfolioID", id))
		return nil, fmt.Errorf("failed to get portfolio: %w", err)
	}

	return portfolio, nil
}

// ListByUser returns every portfolio owned by a user, oldest first
func (r *portfolioRepository) ListByUser(ctx context.Context, userID int) ([]models.Portfolio, error) {
	query := `SELECT ` + portfolioColumns + ` FROM portfolios WHERE user_id = ? ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		r.logger.Error("failed to list portfolios", zap.Error(err), zap.Int("userID", userID))
		return nil, fmt.Errorf("failed to list portfolios: %w", err)
	}
	defer rows.Close()

	portfolios := make([]models.Portfolio, 0)
	for rows.Next() {
		portfolio, err := scanPortfolio(rows)
		if err != nil {
			r.logger.Error("failed to scan portfolio", zap.Error(err))
			return nil, fmt.Errorf("failed to scan portfolio: %w", err)
		}
		portfolios = append(portfolios, *portfolio)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating portfolios", zap.Error(err))
		return nil, fmt.Errorf("error iterating portfolios: %w", err)
	}

	return portfolios, nil
}

// Update overwrites the editable fields of a portfolio
func (r *portfolioRepository) Update(ctx context.Context, portfolio *models.Portfolio) error {
	query := `
		UPDATE portfolios
		SET name = ?, description = ?, initial_balance = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	if _, err := r.db.ExecContext(ctx, query, portfolio.Name, portfolio.Description, portfolio.InitialBalance, portfolio.ID); err != nil {
		r.logger.Error("failed to update portfolio", zap.Error(err), zap.Int("portfolioID", portfolio.ID))
		return fmt.Errorf("failed to update portfolio: %w", err)
	}

	return nil
}

// Delete removes a portfolio; its trades cascade
func (r *portfolioRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM portfolios WHERE id = ?`, id)
	if err != nil {
		r.logger.Error("failed to delete portfolio", zap.Error(err), zap.Int("portfolioID", id))
		return fmt.Errorf("failed to delete portfolio: %w", err)
	}

	return requireAffected(result, "portfolio")
}

func scanPortfolio(row rowScanner) (*models.Portfolio, error) {
	portfolio := &models.Portfolio{}
	var description sql.NullString
	var updatedAt sql.NullTime

	err := row.Scan(
		&portfolio.ID,
		&portfolio.Name,
		&description,
		&portfolio.InitialBalance,
		&portfolio.UserID,
		&portfolio.CreatedAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if description.Valid {
		portfolio.Description = &description.String
	}
	if updatedAt.Valid {
		portfolio.UpdatedAt = &updatedAt.Time
	}

	return portfolio, nil
}
