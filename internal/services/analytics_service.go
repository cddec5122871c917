package services

import (
	"context"
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
	"github.com/tradejournal/backend/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ClosedTradeRepository is the interface that wraps read access to closed trades
type ClosedTradeRepository interface {
	// Method ListClosedByPortfolio retrieves the closed trades of a portfolio ordered by ID.
	ListClosedByPortfolio(ctx context.Context, portfolioID int) ([]models.Trade, error)
}

// overviewConcurrency bounds how many portfolios are analysed at once
const overviewConcurrency = 4

// analyticsService implements AnalyticsService
type analyticsService struct {
	trades     ClosedTradeRepository
	portfolios PortfolioRepository
	currency   string
	logger     *zap.Logger
}

// NewAnalyticsService creates a new analytics service.
// currency is the ISO 4217 code used for formatted totals.
func NewAnalyticsService(trades ClosedTradeRepository, portfolios PortfolioRepository, currency string, logger *zap.Logger) *analyticsService {
	return &analyticsService{
		trades:     trades,
		portfolios: portfolios,
		currency:   currency,
		logger:     logger,
	}
}

// Portfolio returns closed-trade statistics of a portfolio owned by userID
func (s *analyticsService) Portfolio(ctx context.Context, userID, portfolioID int) (*models.PortfolioAnalytics, error) {
	portfolio, err := ownedPortfolio(ctx, s.portfolios, userID, portfolioID)
	if err != nil {
		return nil, err
	}

	trades, err := s.trades.ListClosedByPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	analytics := ComputeAnalytics(portfolioID, trades, s.currency)
	analytics.PortfolioName = portfolio.Name
	return &analytics, nil
}

// BySymbol returns per-symbol statistics of a portfolio owned by userID
func (s *analyticsService) BySymbol(ctx context.Context, userID, portfolioID int) (*models.SymbolBreakdown, error) {
	if _, err := ownedPortfolio(ctx, s.portfolios, userID, portfolioID); err != nil {
		return nil, err
	}

	trades, err := s.trades.ListClosedByPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	return &models.SymbolBreakdown{Symbols: ComputeSymbolStats(trades)}, nil
}

// Overview returns statistics of every portfolio owned by userID.
// Portfolios are analysed concurrently; the first failure cancels the rest.
func (s *analyticsService) Overview(ctx context.Context, userID int) (*models.AnalyticsOverview, error) {
	portfolios, err := s.portfolios.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	results := make([]models.PortfolioOverview, len(portfolios))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(overviewConcurrency)

	for i, p := range portfolios {
		g.Go(func() error {
			trades, err := s.trades.ListClosedByPortfolio(gctx, p.ID)
			if err != nil {
				return fmt.Errorf("portfolio %d: %w", p.ID, err)
			}
			analytics := ComputeAnalytics(p.ID, trades, s.currency)
			analytics.PortfolioName = p.Name
			results[i] = models.PortfolioOverview{
				PortfolioID:   p.ID,
				PortfolioName: p.Name,
				Analytics:     analytics,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.logger.Error("failed to build analytics overview", zap.Int("userId", userID), zap.Error(err))
		return nil, err
	}

	total := decimal.Zero
	totalTrades := 0
	for _, r := range results {
		total = total.Add(decimal.NewFromFloat(r.Analytics.TotalProfitLoss))
		totalTrades += r.Analytics.TotalTrades
	}

	return &models.AnalyticsOverview{
		Portfolios:               results,
		TotalTrades:              totalTrades,
		TotalProfitLoss:          round2(total),
		TotalProfitLossFormatted: FormatMoney(total, s.currency),
	}, nil
}

// ComputeAnalytics summarises the closed trades among trades.
//
// A trade with positive P&L is a win, anything else is a loss. Ratios whose denominator
// is zero are reported as zero. Best and worst trade keep the first trade on ties.
func ComputeAnalytics(portfolioID int, trades []models.Trade, currency string) models.PortfolioAnalytics {
	result := models.PortfolioAnalytics{PortfolioID: portfolioID}

	var (
		total, winSum, lossSum decimal.Decimal
		best, worst            *models.Trade
		bestPL, worstPL        decimal.Decimal
	)

	for i := range trades {
		t := &trades[i]
		if t.Status != models.TradeStatusClosed {
			continue
		}

		pl := profitLossOf(t)
		result.TotalTrades++
		total = total.Add(pl)

		if pl.IsPositive() {
			result.TotalWins++
			winSum = winSum.Add(pl)
		} else {
			result.TotalLosses++
			lossSum = lossSum.Add(pl)
		}

		if best == nil || pl.GreaterThan(bestPL) {
			best, bestPL = t, pl
		}
		if worst == nil || pl.LessThan(worstPL) {
			worst, worstPL = t, pl
		}
	}

	result.TotalProfitLossFormatted = FormatMoney(total, currency)
	if result.TotalTrades == 0 {
		return result
	}

	totalTrades := decimal.NewFromInt(int64(result.TotalTrades))
	result.TotalProfitLoss = round2(total)
	result.WinRate = round2(decimal.NewFromInt(int64(result.TotalWins)).Div(totalTrades).Mul(hundred))
	result.AverageProfitLoss = round2(total.Div(totalTrades))

	avgWin, avgLoss := decimal.Zero, decimal.Zero
	if result.TotalWins > 0 {
		avgWin = winSum.Div(decimal.NewFromInt(int64(result.TotalWins)))
	}
	if result.TotalLosses > 0 {
		avgLoss = lossSum.Div(decimal.NewFromInt(int64(result.TotalLosses)))
	}
	result.AverageWin = round2(avgWin)
	result.AverageLoss = round2(avgLoss)

	if !lossSum.IsZero() {
		result.ProfitFactor = round2(winSum.Div(lossSum.Abs()))
	}
	if !avgLoss.IsZero() {
		result.RiskRewardRatio = round2(avgWin.Div(avgLoss.Abs()))
	}

	result.BestTrade = &models.TradeSummary{ID: best.ID, Symbol: best.Symbol, ProfitLoss: round2(bestPL)}
	result.WorstTrade = &models.TradeSummary{ID: worst.ID, Symbol: worst.Symbol, ProfitLoss: round2(worstPL)}

	return result
}

// ComputeSymbolStats groups closed trades by symbol, keeping the order in which symbols first appear
func ComputeSymbolStats(trades []models.Trade) []models.SymbolStats {
	type acc struct {
		total  decimal.Decimal
		trades int
		wins   int
		losses int
	}

	order := make([]string, 0)
	bySymbol := make(map[string]*acc)

	for i := range trades {
		t := &trades[i]
		if t.Status != models.TradeStatusClosed {
			continue
		}

		a, ok := bySymbol[t.Symbol]
		if !ok {
			a = &acc{}
			bySymbol[t.Symbol] = a
			order = append(order, t.Symbol)
		}

		pl := profitLossOf(t)
		a.trades++
		a.total = a.total.Add(pl)
		if pl.IsPositive() {
			a.wins++
		} else {
			a.losses++
		}
	}

	stats := make([]models.SymbolStats, 0, len(order))
	for _, symbol := range order {
		a := bySymbol[symbol]
		stats = append(stats, models.SymbolStats{
			Symbol:          symbol,
			TotalTrades:     a.trades,
			TotalProfitLoss: round2(a.total),
			Wins:            a.wins,
			Losses:          a.losses,
			WinRate:         round2(decimal.NewFromInt(int64(a.wins)).Div(decimal.NewFromInt(int64(a.trades))).Mul(hundred)),
		})
	}

	return stats
}

// FormatMoney renders an amount in the given currency, e.g. "₹1,234.50".
// Unknown currency codes fall back to the plain amount with two decimals.
func FormatMoney(amount decimal.Decimal, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return amount.StringFixed(2)
	}

	factor := decimal.New(1, int32(cur.Fraction))
	minor := amount.Mul(factor).Round(0).IntPart()
	return money.New(minor, cur.Code).Display()
}

func profitLossOf(t *models.Trade) decimal.Decimal {
	if t.ProfitLoss == nil {
		return decimal.Zero
	}
	return decimal.NewFromFloat(*t.ProfitLoss)
}

// round2 rounds half away from zero to two decimal places
func round2(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
