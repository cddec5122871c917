package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tradejournal/backend/internal/models"
	"go.uber.org/zap"
)

var tradeRowColumns = []string{
	"id", "portfolio_id", "symbol", "trade_type", "status", "entry_price", "entry_date", "quantity",
	"exit_price", "exit_date", "profit_loss", "profit_loss_percentage", "notes", "tags", "screenshot_path",
	"created_at", "updated_at",
}

func setupTradeTestRepository(t *testing.T) (*tradeRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	return NewTradeRepository(db, zap.NewNop()), mock, func() { db.Close() }
}

func TestTradeRepository_Create(t *testing.T) {
	entry := time.Date(2024, 3, 1, 9, 15, 0, 0, time.UTC)
	notes := "breakout"

	t.Run("success", func(t *testing.T) {
		repo, mock, cleanup := setupTradeTestRepository(t)
		defer cleanup()

		mock.ExpectExec(`INSERT INTO trades`).
			WithArgs(2, "INFY", "long", "open", 1500.0, entry, 10.0, "breakout", nil).
			WillReturnResult(sqlmock.NewResult(21, 1))

		trade := &models.Trade{
			PortfolioID: 2,
			Symbol:      "INFY",
			TradeType:   models.TradeTypeLong,
			Status:      models.TradeStatusOpen,
			EntryPrice:  1500,
			EntryDate:   entry,
			Quantity:    10,
			Notes:       &notes,
		}
		err := repo.Create(context.Background(), trade)
		require.NoError(t, err)
		assert.Equal(t, 21, trade.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database error", func(t *testing.T) {
		repo, mock, cleanup := setupTradeTestRepository(t)
		defer cleanup()

		mock.ExpectExec(`INSERT INTO trades`).WillReturnError(errors.New("database error"))

		err := repo.Create(context.Background(), &models.Trade{EntryDate: entry})
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTradeRepository_GetByID(t *testing.T) {
	now := time.Now()

	t.Run("closed trade with optional fields", func(t *testing.T) {
		repo, mock, cleanup := setupTradeTestRepository(t)
		defer cleanup()

		mock.ExpectQuery(`SELECT (.+) FROM trades WHERE id = \?`).
			WithArgs(5).
			WillReturnRows(sqlmock.NewRows(tradeRowColumns).AddRow(
				5, 2, "TCS", "short", "closed", 3500.0, now, 4.0,
				3400.0, now, 400.0, 2.86, nil, "momentum,fno", "trade_5_20240301_101500.png",
				now, nil,
			))

		trade, err := repo.GetByID(context.Background(), 5)
		require.NoError(t, err)
		assert.Equal(t, models.TradeTypeShort, trade.TradeType)
		assert.Equal(t, models.TradeStatusClosed, trade.Status)
		require.NotNil(t, trade.ExitPrice)
		assert.Equal(t, 3400.0, *trade.ExitPrice)
		require.NotNil(t, trade.ProfitLoss)
		assert.Equal(t, 400.0, *trade.ProfitLoss)
		assert.Nil(t, trade.Notes)
		require.NotNil(t, trade.Tags)
		assert.Equal(t, "momentum,fno", *trade.Tags)
		require.NotNil(t, trade.ScreenshotPath)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock, cleanup := setupTradeTestRepository(t)
		defer cleanup()

		mock.ExpectQuery(`SELECT (.+) FROM trades WHERE id = \?`).
			WithArgs(5).
			WillReturnError(sql.ErrNoRows)

		trade, err := repo.GetByID(context.Background(), 5)
		assert.ErrorIs(t, err, models.ErrNotFound)
		assert.Nil(t, trade)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTradeRepository_ListByPortfolio(t *testing.T) {
	now := time.Now()
	openStatus := models.TradeStatusOpen

	tests := []struct {
		name      string
		status    *models.TradeStatus
		setupMock func(sqlmock.Sqlmock)
		expected  int
	}{
		{
			name: "all statuses",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT (.+) FROM trades WHERE portfolio_id = \? ORDER BY entry_date DESC`).
					WithArgs(2).
					WillReturnRows(sqlmock.NewRows(tradeRowColumns).
						AddRow(1, 2, "INFY", "long", "open", 10.0, now, 1.0, nil, nil, nil, nil, nil, nil, nil, now, nil).
						AddRow(2, 2, "TCS", "long", "closed", 10.0, now, 1.0, 12.0, now, 2.0, 20.0, nil, nil, nil, now, nil))
			},
			expected: 2,
		},
		{
			name:   "status filter",
			status: &openStatus,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT (.+) FROM trades WHERE portfolio_id = \? AND status = \? ORDER BY entry_date DESC`).
					WithArgs(2, "open").
					WillReturnRows(sqlmock.NewRows(tradeRowColumns).
						AddRow(1, 2, "INFY", "long", "open", 10.0, now, 1.0, nil, nil, nil, nil, nil, nil, nil, now, nil))
			},
			expected: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := setupTradeTestRepository(t)
			defer cleanup()

			tt.setupMock(mock)

			trades, err := repo.ListByPortfolio(context.Background(), 2, tt.status)
			require.NoError(t, err)
			assert.Len(t, trades, tt.expected)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestTradeRepository_ListClosedByPortfolio(t *testing.T) {
	repo, mock, cleanup := setupTradeTestRepository(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT (.+) FROM trades WHERE portfolio_id = \? AND status = \? ORDER BY id`).
		WithArgs(2, "closed").
		WillReturnError(errors.New("database error"))

	trades, err := repo.ListClosedByPortfolio(context.Background(), 2)
	assert.Error(t, err)
	assert.Nil(t, trades)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTradeRepository_Update(t *testing.T) {
	repo, mock, cleanup := setupTradeTestRepository(t)
	defer cleanup()

	entry := time.Date(2024, 3, 1, 9, 15, 0, 0, time.UTC)
	exit := entry.Add(48 * time.Hour)
	exitPrice, pl, pct := 110.0, 100.0, 10.0

	mock.ExpectExec(`UPDATE trades`).
		WithArgs("INFY", "long", "closed", 100.0, entry, 10.0, 110.0, exit, 100.0, 10.0, nil, nil, 3).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), &models.Trade{
		ID:                   3,
		Symbol:               "INFY",
		TradeType:            models.TradeTypeLong,
		Status:               models.TradeStatusClosed,
		EntryPrice:           100,
		EntryDate:            entry,
		Quantity:             10,
		ExitPrice:            &exitPrice,
		ExitDate:             &exit,
		ProfitLoss:           &pl,
		ProfitLossPercentage: &pct,
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTradeRepository_UpdateScreenshot(t *testing.T) {
	repo, mock, cleanup := setupTradeTestRepository(t)
	defer cleanup()

	mock.ExpectExec(`UPDATE trades SET screenshot_path = \?`).
		WithArgs("/uploads/screenshots/trade_3.png", 3).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.UpdateScreenshot(context.Background(), 3, "/uploads/screenshots/trade_3.png"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTradeRepository_Delete(t *testing.T) {
	repo, mock, cleanup := setupTradeTestRepository(t)
	defer cleanup()

	mock.ExpectExec(`DELETE FROM trades WHERE id = \?`).WithArgs(3).WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), 3), models.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
