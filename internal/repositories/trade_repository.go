package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tradejournal/backend/internal/models"
	"go.uber.org/zap"
)

const tradeColumns = `id, portfolio_id, symbol, trade_type, status, entry_price, entry_date, quantity,
	exit_price, exit_date, profit_loss, profit_loss_percentage, notes, tags, screenshot_path, created_at, updated_at`

// tradeRepository implements TradeRepository
type tradeRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTradeRepository creates a new trade repository
func NewTradeRepository(db *sql.DB, logger *zap.Logger) *tradeRepository {
	return &tradeRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new trade
func (r *tradeRepository) Create(ctx context.Context, trade *models.Trade) error {
	query := `
		INSERT INTO trades (portfolio_id, symbol, trade_type, status, entry_price, entry_date, quantity, notes, tags)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		trade.PortfolioID,
		trade.Symbol,
		trade.TradeType,
		trade.Status,
		trade.EntryPrice,
		trade.EntryDate,
		trade.Quantity,
		trade.Notes,
		trade.Tags,
	)
	if err != nil {
		r.logger.Error("failed to create trade", zap.Error(err))
		return fmt.Errorf("failed to create trade: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		r.logger.Error("failed to get last insert id", zap.Error(err))
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	trade.ID = int(id)
	return nil
}

// GetByID retrieves a trade by ID
func (r *tradeRepository) GetByID(ctx context.Context, id int) (*models.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE id = ?`

	trade, err := scanTrade(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		r.logger.Error("failed to get trade", zap.Error(err), zap.Int("tradeID", id))
		return nil, fmt.Errorf("failed to get trade: %w", err)
	}

	return trade, nil
}

// ListByPortfolio returns the trades of a portfolio, newest entry first.
// A nil status returns trades in every state.
func (r *tradeRepository) ListByPortfolio(ctx context.Context, portfolioID int, status *models.TradeStatus) ([]models.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE portfolio_id = ?`
	args := []any{portfolioID}
	if status != nil {
		query += ` AND status = ?`
		args = append(args, *status)
	}
	query += ` ORDER BY entry_date DESC, id DESC`

	return r.list(ctx, query, args...)
}

// ListClosedByPortfolio returns the closed trades of a portfolio in insertion order
func (r *tradeRepository) ListClosedByPortfolio(ctx context.Context, portfolioID int) ([]models.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE portfolio_id = ? AND status = ? ORDER BY id`
	return r.list(ctx, query, portfolioID, models.TradeStatusClosed)
}

// Update overwrites every editable column of a trade
func (r *tradeRepository) Update(ctx context.Context, trade *models.Trade) error {
	query := `
		UPDATE trades
		SET symbol = ?, trade_type = ?, status = ?, entry_price = ?, entry_date = ?, quantity = ?,
			exit_price = ?, exit_date = ?, profit_loss = ?, profit_loss_percentage = ?,
			notes = ?, tags = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	_, err := r.db.ExecContext(ctx, query,
		trade.Symbol,
		trade.TradeType,
		trade.Status,
		trade.EntryPrice,
		trade.EntryDate,
		trade.Quantity,
		trade.ExitPrice,
		trade.ExitDate,
		trade.ProfitLoss,
		trade.ProfitLossPercentage,
		trade.Notes,
		trade.Tags,
		trade.ID,
	)
	if err != nil {
		r.logger.Error("failed to update trade", zap.Error(err), zap.Int("tradeID", trade.ID))
		return fmt.Errorf("failed to update trade: %w", err)
	}

	return nil
}

// UpdateScreenshot stores the screenshot location of a trade
func (r *tradeRepository) UpdateScreenshot(ctx context.Context, id int, path string) error {
	query := `UPDATE trades SET screenshot_path = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`

	if _, err := r.db.ExecContext(ctx, query, path, id); err != nil {
		r.logger.Error("failed to update trade screenshot", zap.Error(err), zap.Int("tradeID", id))
		return fmt.Errorf("failed to update trade screenshot: %w", err)
	}

	return nil
}

// Delete removes a trade
func (r *tradeRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM trades WHERE id = ?`, id)
	if err != nil {
		r.logger.Error("failed to delete trade", zap.Error(err), zap.Int("tradeID", id))
		return fmt.Errorf("failed to delete trade: %w", err)
	}

	return requireAffected(result, "trade")
}

func (r *tradeRepository) list(ctx context.Context, query string, args ...any) ([]models.Trade, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list trades", zap.Error(err))
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	defer rows.Close()

	trades := make([]models.Trade, 0)
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			r.logger.Error("failed to scan trade", zap.Error(err))
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, *trade)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating trades", zap.Error(err))
		return nil, fmt.Errorf("error iterating trades: %w", err)
	}

	return trades, nil
}

func scanTrade(row rowScanner) (*models.Trade, error) {
	trade := &models.Trade{}
	var (
		exitPrice, profitLoss, profitLossPct sql.NullFloat64
		exitDate, updatedAt                  sql.NullTime
		notes, tags, screenshot              sql.NullString
	)

	err := row.Scan(
		&trade.ID,
		&trade.PortfolioID,
		&trade.Symbol,
		&trade.TradeType,
		&trade.Status,
		&trade.EntryPrice,
		&trade.EntryDate,
		&trade.Quantity,
		&exitPrice,
		&exitDate,
		&profitLoss,
		&profitLossPct,
		&notes,
		&tags,
		&screenshot,
		&trade.CreatedAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if exitPrice.Valid {
		trade.ExitPrice = &exitPrice.Float64
	}
	if exitDate.Valid {
		trade.ExitDate = &exitDate.Time
	}
	if profitLoss.Valid {
		trade.ProfitLoss = &profitLoss.Float64
	}
	if profitLossPct.Valid {
		trade.ProfitLossPercentage = &profitLossPct.Float64
	}
	if notes.Valid {
		trade.Notes = &notes.String
	}
	if tags.Valid {
		trade.Tags = &tags.String
	}
	if screenshot.Valid {
		trade.ScreenshotPath = &screenshot.String
	}
	if updatedAt.Valid {
		trade.UpdatedAt = &updatedAt.Time
	}

	return trade, nil
}
