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

var portfolioRowColumns = []string{"id", "name", "description", "initial_balance", "user_id", "created_at", "updated_at"}

func setupPortfolioTestRepository(t *testing.T) (*portfolioRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	return NewPortfolioRepository(db, zap.NewNop()), mock, func() { db.Close() }
}

func TestPortfolioRepository_Create(t *testing.T) {
	tests := []struct {
		name          string
		setupMock     func(sqlmock.Sqlmock)
		expectedError bool
		expectedID    int
	}{
		{
			name: "success",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO portfolios`).
					WithArgs("Swing", nil, 100000.0, 2).
					WillReturnResult(sqlmock.NewResult(11, 1))
			},
			expectedID: 11,
		},
		{
			name: "database error",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO portfolios`).
					WillReturnError(errors.New("database error"))
			},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := setupPortfolioTestRepository(t)
			defer cleanup()

			tt.setupMock(mock)

			portfolio := &models.Portfolio{Name: "Swing", InitialBalance: 100000, UserID: 2}
			err := repo.Create(context.Background(), portfolio)

			if tt.expectedError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedID, portfolio.ID)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPortfolioRepository_GetByID(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		repo, mock, cleanup := setupPortfolioTestRepository(t)
		defer cleanup()

		mock.ExpectQuery(`SELECT (.+) FROM portfolios WHERE id = \?`).
			WithArgs(3).
			WillReturnRows(sqlmock.NewRows(portfolioRowColumns).AddRow(3, "Swing", "Momentum names", 5000.5, 2, time.Now(), nil))

		portfolio, err := repo.GetByID(context.Background(), 3)
		require.NoError(t, err)
		assert.Equal(t, "Swing", portfolio.Name)
		require.NotNil(t, portfolio.Description)
		assert.Equal(t, "Momentum names", *portfolio.Description)
		assert.Equal(t, 5000.5, portfolio.InitialBalance)
		assert.Equal(t, 2, portfolio.UserID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock, cleanup := setupPortfolioTestRepository(t)
		defer cleanup()

		mock.ExpectQuery(`SELECT (.+) FROM portfolios WHERE id = \?`).
			WithArgs(3).
			WillReturnError(sql.ErrNoRows)

		portfolio, err := repo.GetByID(context.Background(), 3)
		assert.ErrorIs(t, err, models.ErrNotFound)
		assert.Nil(t, portfolio)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPortfolioRepository_ListByUser(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		repo, mock, cleanup := setupPortfolioTestRepository(t)
		defer cleanup()

		now := time.Now()
		mock.ExpectQuery(`SELECT (.+) FROM portfolios WHERE user_id = \? ORDER BY id`).
			WithArgs(2).
			WillReturnRows(sqlmock.NewRows(portfolioRowColumns).
				AddRow(1, "Swing", nil, 0.0, 2, now, nil).
				AddRow(4, "Intraday", nil, 2500.0, 2, now, now))

		portfolios, err := repo.ListByUser(context.Background(), 2)
		require.NoError(t, err)
		require.Len(t, portfolios, 2)
		assert.Equal(t, 4, portfolios[1].ID)
		assert.NotNil(t, portfolios[1].UpdatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty", func(t *testing.T) {
		repo, mock, cleanup := setupPortfolioTestRepository(t)
		defer cleanup()

		mock.ExpectQuery(`SELECT (.+) FROM portfolios`).
			WithArgs(2).
			WillReturnRows(sqlmock.NewRows(portfolioRowColumns))

		portfolios, err := repo.ListByUser(context.Background(), 2)
		require.NoError(t, err)
		assert.NotNil(t, portfolios)
		assert.Empty(t, portfolios)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query error", func(t *testing.T) {
		repo, mock, cleanup := setupPortfolioTestRepository(t)
		defer cleanup()

		mock.ExpectQuery(`SELECT (.+) FROM portfolios`).
			WillReturnError(errors.New("database error"))

		_, err := repo.ListByUser(context.Background(), 2)
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPortfolioRepository_Update(t *testing.T) {
	repo, mock, cleanup := setupPortfolioTestRepository(t)
	defer cleanup()

	description := "Long-term"
	mock.ExpectExec(`UPDATE portfolios`).
		WithArgs("Core", "Long-term", 750.0, 8).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), &models.Portfolio{ID: 8, Name: "Core", Description: &description, InitialBalance: 750})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPortfolioRepository_Delete(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		repo, mock, cleanup := setupPortfolioTestRepository(t)
		defer cleanup()

		mock.ExpectExec(`DELETE FROM portfolios WHERE id = \?`).WithArgs(8).WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Delete(context.Background(), 8))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock, cleanup := setupPortfolioTestRepository(t)
		defer cleanup()

		mock.ExpectExec(`DELETE FROM portfolios WHERE id = \?`).WithArgs(8).WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.Delete(context.Background(), 8), models.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
