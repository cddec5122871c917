package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tradejournal/backend/internal/models"
	"go.uber.org/zap"
)

func closedTrade(id, portfolioID int, symbol string, pl float64) *models.Trade {
	return &models.Trade{
		ID: id, PortfolioID: portfolioID, Symbol: symbol, TradeType: models.TradeTypeLong,
		Status: models.TradeStatusClosed, EntryDate: tradeEntry, ProfitLoss: &pl,
	}
}

func tradesOf(ts ...*models.Trade) []models.Trade {
	result := make([]models.Trade, 0, len(ts))
	for _, t := range ts {
		result = append(result, *t)
	}
	return result
}

func TestComputeAnalytics_Empty(t *testing.T) {
	a := ComputeAnalytics(3, nil, "INR")

	assert.Equal(t, 3, a.PortfolioID)
	assert.Zero(t, a.TotalTrades)
	assert.Zero(t, a.WinRate)
	assert.Zero(t, a.ProfitFactor)
	assert.Nil(t, a.BestTrade)
	assert.Nil(t, a.WorstTrade)
	assert.Equal(t, "₹0.00", a.TotalProfitLossFormatted)
}

func TestComputeAnalytics_Mixed(t *testing.T) {
	trades := tradesOf(
		closedTrade(1, 1, "INFY", 300),
		closedTrade(2, 1, "TCS", -100),
		closedTrade(3, 1, "INFY", 100),
		closedTrade(4, 1, "TCS", 0),
		openTrade(5, 1),
	)

	a := ComputeAnalytics(1, trades, "INR")

	assert.Equal(t, 4, a.TotalTrades)
	assert.Equal(t, 300.0, a.TotalProfitLoss)
	assert.Equal(t, "₹300.00", a.TotalProfitLossFormatted)
	assert.Equal(t, 2, a.TotalWins)
	assert.Equal(t, 2, a.TotalLosses)
	assert.Equal(t, 50.0, a.WinRate)
	assert.Equal(t, 75.0, a.AverageProfitLoss)
	assert.Equal(t, 200.0, a.AverageWin)
	assert.Equal(t, -50.0, a.AverageLoss)
	assert.Equal(t, 4.0, a.ProfitFactor)
	assert.Equal(t, 4.0, a.RiskRewardRatio)
	require.NotNil(t, a.BestTrade)
	assert.Equal(t, 1, a.BestTrade.ID)
	require.NotNil(t, a.WorstTrade)
	assert.Equal(t, 2, a.WorstTrade.ID)
}

func TestComputeAnalytics_NoLosses(t *testing.T) {
	a := ComputeAnalytics(1, tradesOf(closedTrade(1, 1, "INFY", 10), closedTrade(2, 1, "INFY", 20)), "INR")

	assert.Equal(t, 100.0, a.WinRate)
	assert.Zero(t, a.ProfitFactor)
	assert.Zero(t, a.RiskRewardRatio)
	assert.Zero(t, a.AverageLoss)
}

func TestComputeAnalytics_TiesKeepFirst(t *testing.T) {
	a := ComputeAnalytics(1, tradesOf(
		closedTrade(7, 1, "A", 50),
		closedTrade(8, 1, "B", 50),
		closedTrade(9, 1, "C", -20),
		closedTrade(10, 1, "D", -20),
	), "INR")

	assert.Equal(t, 7, a.BestTrade.ID)
	assert.Equal(t, 9, a.WorstTrade.ID)
}

func TestComputeAnalytics_Rounding(t *testing.T) {
	a := ComputeAnalytics(1, tradesOf(
		closedTrade(1, 1, "A", 10),
		closedTrade(2, 1, "A", 10),
		closedTrade(3, 1, "A", -10.005),
	), "INR")

	assert.Equal(t, 66.67, a.WinRate)
	assert.Equal(t, 3.33, a.AverageProfitLoss)
	assert.Equal(t, -10.01, a.AverageLoss)
	assert.Equal(t, -10.01, a.WorstTrade.ProfitLoss)
}

func TestComputeSymbolStats(t *testing.T) {
	stats := ComputeSymbolStats(tradesOf(
		closedTrade(1, 1, "TCS", 100),
		closedTrade(2, 1, "INFY", -40),
		closedTrade(3, 1, "TCS", -20),
		closedTrade(4, 1, "TCS", 30.333),
		openTrade(5, 1),
	))

	require.Len(t, stats, 2)
	assert.Equal(t, models.SymbolStats{Symbol: "TCS", TotalTrades: 3, TotalProfitLoss: 110.33, Wins: 2, Losses: 1, WinRate: 66.67}, stats[0])
	assert.Equal(t, models.SymbolStats{Symbol: "INFY", TotalTrades: 1, TotalProfitLoss: -40, Wins: 0, Losses: 1, WinRate: 0}, stats[1])
	assert.Empty(t, ComputeSymbolStats(nil))
}

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		amount   string
		currency string
		expected string
	}{
		{amount: "1234.5", currency: "INR", expected: "₹1,234.50"},
		{amount: "-12", currency: "INR", expected: "-₹12.00"},
		{amount: "99.995", currency: "USD", expected: "$100.00"},
		{amount: "5", currency: "XXX-not-real", expected: "5.00"},
	}

	for _, tt := range tests {
		t.Run(tt.currency+" "+tt.amount, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatMoney(decimal.RequireFromString(tt.amount), tt.currency))
		})
	}
}

func TestAnalyticsService_Portfolio(t *testing.T) {
	trades := newMockTradeRepository(closedTrade(1, 1, "INFY", 250), closedTrade(2, 2, "TCS", 10))
	svc := NewAnalyticsService(trades, newTestPortfolios(), "INR", zap.NewNop())

	a, err := svc.Portfolio(context.Background(), 10, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, a.PortfolioID)
	assert.Equal(t, "Swing", a.PortfolioName)
	assert.Equal(t, 1, a.TotalTrades)
	assert.Equal(t, 250.0, a.TotalProfitLoss)

	_, err = svc.Portfolio(context.Background(), 10, 2)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.BySymbol(context.Background(), 10, 9)
	assert.ErrorIs(t, err, ErrPortfolioNotFound)
}

func TestAnalyticsService_BySymbol(t *testing.T) {
	trades := newMockTradeRepository(closedTrade(1, 1, "INFY", 250), closedTrade(2, 1, "TCS", -10))
	svc := NewAnalyticsService(trades, newTestPortfolios(), "INR", zap.NewNop())

	breakdown, err := svc.BySymbol(context.Background(), 10, 1)
	require.NoError(t, err)
	require.Len(t, breakdown.Symbols, 2)
	assert.Equal(t, "INFY", breakdown.Symbols[0].Symbol)
}

func TestAnalyticsService_Overview(t *testing.T) {
	portfolios := newMockPortfolioRepository(
		&models.Portfolio{ID: 1, Name: "Swing", UserID: 10},
		&models.Portfolio{ID: 2, Name: "Intraday", UserID: 10},
		&models.Portfolio{ID: 3, Name: "Someone else", UserID: 20},
	)
	trades := newMockTradeRepository(
		closedTrade(1, 1, "INFY", 100),
		closedTrade(2, 2, "TCS", -30.5),
		closedTrade(3, 2, "TCS", 10),
		closedTrade(4, 3, "HDFC", 999),
	)
	svc := NewAnalyticsService(trades, portfolios, "INR", zap.NewNop())

	overview, err := svc.Overview(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, overview.Portfolios, 2)
	assert.Equal(t, "Swing", overview.Portfolios[0].PortfolioName)
	assert.Equal(t, "Intraday", overview.Portfolios[1].PortfolioName)
	assert.Equal(t, "Intraday", overview.Portfolios[1].Analytics.PortfolioName)
	assert.Equal(t, 2, overview.Portfolios[1].Analytics.TotalTrades)
	assert.Equal(t, 3, overview.TotalTrades)
	assert.Equal(t, 79.5, overview.TotalProfitLoss)
	assert.Equal(t, "₹79.50", overview.TotalProfitLossFormatted)
}

func TestAnalyticsService_Overview_Error(t *testing.T) {
	trades := newMockTradeRepository()
	trades.listErr = errDatabase
	svc := NewAnalyticsService(trades, newTestPortfolios(), "INR", zap.NewNop())

	_, err := svc.Overview(context.Background(), 10)
	assert.ErrorIs(t, err, errDatabase)
}

func TestAnalyticsService_Overview_NoPortfolios(t *testing.T) {
	svc := NewAnalyticsService(newMockTradeRepository(), newTestPortfolios(), "INR", zap.NewNop())

	overview, err := svc.Overview(context.Background(), 99)
	require.NoError(t, err)
	assert.Empty(t, overview.Portfolios)
	assert.Zero(t, overview.TotalTrades)
}
