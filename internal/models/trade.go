package models

import "time"

// TradeType is the direction of a trade
type TradeType string

// TradeType constants
const (
	TradeTypeLong  TradeType = "long"
	TradeTypeShort TradeType = "short"
)

// Valid reports whether t is a known trade direction
func (t TradeType) Valid() bool {
	return t == TradeTypeLong || t == TradeTypeShort
}

// TradeStatus is the lifecycle state of a trade
type TradeStatus string

// TradeStatus constants
const (
	TradeStatusOpen   TradeStatus = "open"
	TradeStatusClosed TradeStatus = "closed"
)

// Valid reports whether s is a known trade status
func (s TradeStatus) Valid() bool {
	return s == TradeStatusOpen || s == TradeStatusClosed
}

// Trade represents a single journal entry
type Trade struct {
	ID                   int         `json:"id"`
	PortfolioID          int         `json:"portfolio_id"`
	Symbol               string      `json:"symbol"`
	TradeType            TradeType   `json:"trade_type"`
	Status               TradeStatus `json:"status"`
	EntryPrice           float64     `json:"entry_price"`
	EntryDate            time.Time   `json:"entry_date"`
	Quantity             float64     `json:"quantity"`
	ExitPrice            *float64    `json:"exit_price"`
	ExitDate             *time.Time  `json:"exit_date"`
	ProfitLoss           *float64    `json:"profit_loss"`
	ProfitLossPercentage *float64    `json:"profit_loss_percentage"`
	Notes                *string     `json:"notes"`
	Tags                 *string     `json:"tags"`
	ScreenshotPath       *string     `json:"screenshot_path"`
	CreatedAt            time.Time   `json:"created_at"`
	UpdatedAt            *time.Time  `json:"updated_at"`
}

// CreateTradeRequest represents a request to open a trade
type CreateTradeRequest struct {
	PortfolioID int       `json:"portfolio_id"`
	Symbol      string    `json:"symbol"`
	TradeType   TradeType `json:"trade_type"`
	EntryPrice  float64   `json:"entry_price"`
	EntryDate   time.Time `json:"entry_date"`
	Quantity    float64   `json:"quantity"`
	Notes       *string   `json:"notes,omitempty"`
	Tags        *string   `json:"tags,omitempty"`
}

// UpdateTradeRequest represents a partial trade update
type UpdateTradeRequest struct {
	Symbol     *string      `json:"symbol,omitempty"`
	TradeType  *TradeType   `json:"trade_type,omitempty"`
	EntryPrice *float64     `json:"entry_price,omitempty"`
	EntryDate  *time.Time   `json:"entry_date,omitempty"`
	Quantity   *float64     `json:"quantity,omitempty"`
	ExitPrice  *float64     `json:"exit_price,omitempty"`
	ExitDate   *time.Time   `json:"exit_date,omitempty"`
	Status     *TradeStatus `json:"status,omitempty"`
	Notes      *string      `json:"notes,omitempty"`
	Tags       *string      `json:"tags,omitempty"`
}

// CloseTradeRequest represents a request to close an open trade
type CloseTradeRequest struct {
	ExitPrice float64   `json:"exit_price"`
	ExitDate  time.Time `json:"exit_date"`
}

// ScreenshotResponse is returned after a screenshot upload
type ScreenshotResponse struct {
	Filename string `json:"filename"`
	Path     string `json:"path"`
}
