package models

import "time"

// Portfolio groups trades belonging to one user
type Portfolio struct {
	ID             int        `json:"id"`
	Name           string     `json:"name"`
	Description    *string    `json:"description"`
	InitialBalance float64    `json:"initial_balance"`
	UserID         int        `json:"user_id"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at"`
}

// CreatePortfolioRequest represents a request to create a portfolio
type CreatePortfolioRequest struct {
	Name           string  `json:"name"`
	Description    *string `json:"description,omitempty"`
	InitialBalance float64 `json:"initial_balance"`
}

// UpdatePortfolioRequest represents a partial portfolio update
type UpdatePortfolioRequest struct {
	Name           *string  `json:"name,omitempty"`
	Description    *string  `json:"description,omitempty"`
	InitialBalance *float64 `json:"initial_balance,omitempty"`
}
