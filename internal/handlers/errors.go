package handlers

import (
	"errors"
	"net/http"

	"github.com/tradejournal/backend/internal/services"
)

// statusErrors maps service sentinels to HTTP statuses
var statusErrors = []struct {
	err    error
	status int
}{
	{services.ErrInvalidCredentials, http.StatusUnauthorized},
	{services.ErrSessionNotFound, http.StatusUnauthorized},
	{services.ErrInactiveUser, http.StatusBadRequest},
	{services.ErrEmailTaken, http.StatusBadRequest},
	{services.ErrUsernameTaken, http.StatusBadRequest},
	{services.ErrCannotDeleteSelf, http.StatusBadRequest},
	{services.ErrTradeClosed, http.StatusBadRequest},
	{services.ErrUnsupportedImage, http.StatusBadRequest},
	{services.ErrForbidden, http.StatusForbidden},
	{services.ErrUserNotFound, http.StatusNotFound},
	{services.ErrPortfolioNotFound, http.StatusNotFound},
	{services.ErrTradeNotFound, http.StatusNotFound},
}

// errorStatus returns the status and client message for a service error.
// Unknown errors become 500 with a generic message so driver details never leak.
func errorStatus(err error, fallback string) (int, string) {
	if services.IsValidationError(err) {
		return http.StatusBadRequest, err.Error()
	}
	for _, se := range statusErrors {
		if errors.Is(err, se.err) {
			return se.status, se.err.Error()
		}
	}
	return http.StatusInternalServerError, fallback
}
