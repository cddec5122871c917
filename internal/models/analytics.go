package models

// TradeSummary identifies a trade inside analytics results
type TradeSummary struct {
	ID         int     `json:"id"`
	Symbol     string  `json:"symbol"`
	ProfitLoss float64 `json:"profit_loss"`
}

// PortfolioAnalytics holds closed-trade statistics for one portfolio
type PortfolioAnalytics struct {
	PortfolioID              int           `json:"portfolio_id"`
	PortfolioName            string        `json:"portfolio_name"`
	TotalTrades              int           `json:"total_trades"`
	TotalProfitLoss          float64       `json:"total_profit_loss"`
	TotalProfitLossFormatted string        `json:"total_profit_loss_formatted"`
	WinRate                  float64       `json:"win_rate"`
	AverageProfitLoss        float64       `json:"average_profit_loss"`
	TotalWins                int           `json:"total_wins"`
	TotalLosses              int           `json:"total_losses"`
	AverageWin               float64       `json:"average_win"`
	AverageLoss              float64       `json:"average_loss"`
	ProfitFactor             float64       `json:"profit_factor"`
	RiskRewardRatio          float64       `json:"risk_reward_ratio"`
	BestTrade                *TradeSummary `json:"best_trade"`
	WorstTrade               *TradeSummary `json:"worst_trade"`
}

// SymbolStats holds closed-trade statistics for one symbol
type SymbolStats struct {
	Symbol          string  `json:"symbol"`
	TotalTrades     int     `json:"total_trades"`
	TotalProfitLoss float64 `json:"total_profit_loss"`
	Wins            int     `json:"wins"`
	Losses          int     `json:"losses"`
	WinRate         float64 `json:"win_rate"`
}

// SymbolBreakdown wraps per-symbol statistics
type SymbolBreakdown struct {
	Symbols []SymbolStats `json:"symbols"`
}

// PortfolioOverview pairs a portfolio with its statistics
type PortfolioOverview struct {
	PortfolioID   int                `json:"portfolio_id"`
	PortfolioName string             `json:"portfolio_name"`
	Analytics     PortfolioAnalytics `json:"analytics"`
}

// AnalyticsOverview aggregates every portfolio a user owns
type AnalyticsOverview struct {
	Portfolios               []PortfolioOverview `json:"portfolios"`
	TotalTrades              int                 `json:"total_trades"`
	TotalProfitLoss          float64             `json:"total_profit_loss"`
	TotalProfitLossFormatted string              `json:"total_profit_loss_formatted"`
}
