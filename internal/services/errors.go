package services

import "errors"

// Sentinel errors returned by services. Handlers map them to HTTP statuses with errors.Is.
var (
	ErrInvalidCredentials = errors.New("incorrect username or password")
	ErrInactiveUser       = errors.New("inactive user")
	ErrSessionNotFound    = errors.New("session not found or expired")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrUserNotFound       = errors.New("user not found")
	ErrCannotDeleteSelf   = errors.New("cannot delete your own account")
	ErrPortfolioNotFound  = errors.New("portfolio not found")
	ErrTradeNotFound      = errors.New("trade not found")
	ErrForbidden          = errors.New("not authorized to access this portfolio")
	ErrTradeClosed        = errors.New("trade is already closed")
	ErrUnsupportedImage   = errors.New("only image files (JPEG, PNG, WebP) are allowed")
)

// ValidationError describes input that failed validation
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(message string) error {
	return &ValidationError{Message: message}
}

// IsValidationError reports whether err wraps a ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
