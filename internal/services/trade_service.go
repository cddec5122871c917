package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tradejournal/backend/internal/models"
	"github.com/tradejournal/backend/internal/storage"
	"go.uber.org/zap"
)

// TradeRepository is the interface that wraps methods for Trade table data access
type TradeRepository interface {
	// Method Create inserts a new trade. Its ID is set on success.
	Create(ctx context.Context, trade *models.Trade) error
	// Method GetByID retrieves a trade by ID.
	//
	// If trade with such ID does not exist, models.ErrNotFound will be returned together with "nil" value.
	GetByID(ctx context.Context, id int) (*models.Trade, error)
	// Method ListByPortfolio retrieves the trades of a portfolio, newest entry first.
	//
	// "status" parameter filters by status when it is not nil.
	ListByPortfolio(ctx context.Context, portfolioID int, status *models.TradeStatus) ([]models.Trade, error)
	Update(ctx context.Context, trade *models.Trade) error
	UpdateScreenshot(ctx context.Context, id int, screenshotPath string) error
	Delete(ctx context.Context, id int) error
}

// ScreenshotStorage is the interface that wraps file storage for trade screenshots
type ScreenshotStorage interface {
	Create(name, mediaType string) (io.WriteCloser, error)
	Delete(name, mediaType string) error
	URL(name, mediaType string) string
}

// tradeService implements TradeService
type tradeService struct {
	trades     TradeRepository
	portfolios PortfolioRepository
	storage    ScreenshotStorage
	logger     *zap.Logger
	now        func() time.Time
}

// NewTradeService creates a new trade service
func NewTradeService(trades TradeRepository, portfolios PortfolioRepository, storage ScreenshotStorage, logger *zap.Logger) *tradeService {
	return &tradeService{
		trades:     trades,
		portfolios: portfolios,
		storage:    storage,
		logger:     logger,
		now:        time.Now,
	}
}

var hundred = decimal.NewFromInt(100)

// CalculateProfitLoss returns the profit or loss of a position and its percentage of the cost basis.
//
// Long positions earn (exit - entry) * quantity, short positions earn (entry - exit) * quantity.
// The percentage is zero when the cost basis is zero.
func CalculateProfitLoss(tradeType models.TradeType, entryPrice, exitPrice, quantity float64) (float64, float64) {
	entry := decimal.NewFromFloat(entryPrice)
	exit := decimal.NewFromFloat(exitPrice)
	qty := decimal.NewFromFloat(quantity)

	var pl decimal.Decimal
	if tradeType == models.TradeTypeShort {
		pl = entry.Sub(exit).Mul(qty)
	} else {
		pl = exit.Sub(entry).Mul(qty)
	}

	costBasis := entry.Mul(qty)
	if costBasis.IsZero() {
		return pl.InexactFloat64(), 0
	}

	return pl.InexactFloat64(), pl.Div(costBasis).Mul(hundred).InexactFloat64()
}

// applyProfitLoss recomputes the P&L fields whenever the trade has an exit price
func applyProfitLoss(trade *models.Trade) {
	if trade.ExitPrice == nil {
		return
	}

	pl, pct := CalculateProfitLoss(trade.TradeType, trade.EntryPrice, *trade.ExitPrice, trade.Quantity)
	trade.ProfitLoss = &pl
	trade.ProfitLossPercentage = &pct
}

// ListByPortfolio returns the trades of a portfolio owned by userID
func (s *tradeService) ListByPortfolio(ctx context.Context, userID, portfolioID int, status *models.TradeStatus) ([]models.Trade, error) {
	if status != nil && !status.Valid() {
		return nil, invalid("status must be open or closed")
	}

	if _, err := ownedPortfolio(ctx, s.portfolios, userID, portfolioID); err != nil {
		return nil, err
	}

	return s.trades.ListByPortfolio(ctx, portfolioID, status)
}

// Create opens a trade in a portfolio owned by userID
func (s *tradeService) Create(ctx context.Context, userID int, req *models.CreateTradeRequest) (*models.Trade, error) {
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	switch {
	case symbol == "":
		return nil, invalid("symbol cannot be empty")
	case !req.TradeType.Valid():
		return nil, invalid("trade_type must be long or short")
	case req.EntryPrice <= 0:
		return nil, invalid("entry_price must be positive")
	case req.Quantity <= 0:
		return nil, invalid("quantity must be positive")
	case req.EntryDate.IsZero():
		return nil, invalid("entry_date is required")
	}

	if _, err := ownedPortfolio(ctx, s.portfolios, userID, req.PortfolioID); err != nil {
		return nil, err
	}

	trade := &models.Trade{
		PortfolioID: req.PortfolioID,
		Symbol:      symbol,
		TradeType:   req.TradeType,
		Status:      models.TradeStatusOpen,
		EntryPrice:  req.EntryPrice,
		EntryDate:   req.EntryDate,
		Quantity:    req.Quantity,
		Notes:       normalizeOptional(req.Notes),
		Tags:        normalizeOptional(req.Tags),
	}
	if err := s.trades.Create(ctx, trade); err != nil {
		return nil, err
	}

	return s.trades.GetByID(ctx, trade.ID)
}

// Get returns a trade whose portfolio is owned by userID
func (s *tradeService) Get(ctx context.Context, userID, tradeID int) (*models.Trade, error) {
	trade, err := s.trades.GetByID(ctx, tradeID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrTradeNotFound
	}
	if err != nil {
		return nil, err
	}

	if _, err := ownedPortfolio(ctx, s.portfolios, userID, trade.PortfolioID); err != nil {
		return nil, err
	}

	return trade, nil
}

// Update applies the provided fields to a trade and recomputes P&L when an exit price is set
func (s *tradeService) Update(ctx context.Context, userID, tradeID int, req *models.UpdateTradeRequest) (*models.Trade, error) {
	trade, err := s.Get(ctx, userID, tradeID)
	if err != nil {
		return nil, err
	}

	if req.Symbol != nil {
		symbol := strings.ToUpper(strings.TrimSpace(*req.Symbol))
		if symbol == "" {
			return nil, invalid("symbol cannot be empty")
		}
		trade.Symbol = symbol
	}
	if req.TradeType != nil {
		if !req.TradeType.Valid() {
			return nil, invalid("trade_type must be long or short")
		}
		trade.TradeType = *req.TradeType
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, invalid("status must be open or closed")
		}
		trade.Status = *req.Status
	}
	if req.EntryPrice != nil {
		if *req.EntryPrice <= 0 {
			return nil, invalid("entry_price must be positive")
		}
		trade.EntryPrice = *req.EntryPrice
	}
	if req.EntryDate != nil {
		trade.EntryDate = *req.EntryDate
	}
	if req.Quantity != nil {
		if *req.Quantity <= 0 {
			return nil, invalid("quantity must be positive")
		}
		trade.Quantity = *req.Quantity
	}
	if req.ExitPrice != nil {
		if *req.ExitPrice <= 0 {
			return nil, invalid("exit_price must be positive")
		}
		trade.ExitPrice = req.ExitPrice
	}
	if req.ExitDate != nil {
		trade.ExitDate = req.ExitDate
	}
	if req.Notes != nil {
		trade.Notes = normalizeOptional(req.Notes)
	}
	if req.Tags != nil {
		trade.Tags = normalizeOptional(req.Tags)
	}

	applyProfitLoss(trade)

	if err := s.trades.Update(ctx, trade); err != nil {
		return nil, err
	}

	return s.trades.GetByID(ctx, trade.ID)
}

// Close records the exit of an open trade and computes its P&L
func (s *tradeService) Close(ctx context.Context, userID, tradeID int, req *models.CloseTradeRequest) (*models.Trade, error) {
	trade, err := s.Get(ctx, userID, tradeID)
	if err != nil {
		return nil, err
	}

	if trade.Status == models.TradeStatusClosed {
		return nil, ErrTradeClosed
	}
	if req.ExitPrice <= 0 {
		return nil, invalid("exit_price must be positive")
	}

	exitDate := req.ExitDate
	if exitDate.IsZero() {
		exitDate = s.now()
	}
	exitPrice := req.ExitPrice

	trade.ExitPrice = &exitPrice
	trade.ExitDate = &exitDate
	trade.Status = models.TradeStatusClosed
	applyProfitLoss(trade)

	if err := s.trades.Update(ctx, trade); err != nil {
		return nil, err
	}

	s.logger.Info("trade closed",
		zap.Int("tradeId", trade.ID),
		zap.Float64("profitLoss", *trade.ProfitLoss),
	)
	return s.trades.GetByID(ctx, trade.ID)
}

// Delete removes a trade whose portfolio is owned by userID
func (s *tradeService) Delete(ctx context.Context, userID, tradeID int) error {
	trade, err := s.Get(ctx, userID, tradeID)
	if err != nil {
		return err
	}

	err = s.trades.Delete(ctx, tradeID)
	if errors.Is(err, models.ErrNotFound) {
		return ErrTradeNotFound
	}
	if err != nil {
		return err
	}

	if trade.ScreenshotPath != nil {
		s.removeScreenshot(*trade.ScreenshotPath)
	}
	return nil
}

// UploadScreenshot stores an image for a trade and records its public path
func (s *tradeService) UploadScreenshot(ctx context.Context, userID, tradeID int, file io.Reader, filename, contentType string) (*models.ScreenshotResponse, error) {
	trade, err := s.Get(ctx, userID, tradeID)
	if err != nil {
		return nil, err
	}

	if !storage.IsAllowedScreenshot(contentType) {
		return nil, ErrUnsupportedImage
	}

	detected, file, err := storage.DetectScreenshot(file)
	if errors.Is(err, storage.ErrUnsupportedType) {
		s.logger.Warn("rejected screenshot content",
			zap.Int("tradeId", trade.ID),
			zap.String("filename", filename),
			zap.String("declaredType", contentType),
		)
		return nil, ErrUnsupportedImage
	}
	if err != nil {
		return nil, err
	}

	name := storage.ScreenshotFileName(trade.ID, s.now(), detected)
	dst, err := s.storage.Create(name, storage.MediaTypeScreenshots)
	if err != nil {
		return nil, fmt.Errorf("failed to create screenshot file: %w", err)
	}

	sw := storage.NewSizeWriter()
	if _, err := io.Copy(io.MultiWriter(dst, sw), file); err != nil {
		dst.Close()
		s.removeScreenshot(name)
		return nil, fmt.Errorf("failed to write screenshot: %w", err)
	}
	if err := dst.Close(); err != nil {
		s.removeScreenshot(name)
		return nil, fmt.Errorf("failed to write screenshot: %w", err)
	}

	publicPath := s.storage.URL(name, storage.MediaTypeScreenshots)
	if err := s.trades.UpdateScreenshot(ctx, trade.ID, publicPath); err != nil {
		s.removeScreenshot(name)
		return nil, err
	}

	if trade.ScreenshotPath != nil && path.Base(*trade.ScreenshotPath) != name {
		s.removeScreenshot(*trade.ScreenshotPath)
	}

	s.logger.Info("screenshot uploaded",
		zap.Int("tradeId", trade.ID),
		zap.String("filename", name),
		zap.Int64("size", sw.Size()),
	)
	return &models.ScreenshotResponse{Filename: name, Path: publicPath}, nil
}

func (s *tradeService) removeScreenshot(stored string) {
	if err := s.storage.Delete(path.Base(stored), storage.MediaTypeScreenshots); err != nil {
		s.logger.Warn("failed to remove screenshot", zap.String("filename", stored), zap.Error(err))
	}
}
