package service

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims is the identity carried by an access token
type AccessClaims struct {
	SessionID string
	UserID    int
	IsAdmin   bool
}

// TokenGenerator handles JWT token generation and validation
type TokenGenerator struct {
	secret            string
	accessTokenExpiry time.Duration
	csrfTokenExpiry   time.Duration
}

// NewTokenGenerator creates a new token generator
func NewTokenGenerator(secret string, accessExpiry, csrfExpiry time.Duration) *TokenGenerator {
	return &TokenGenerator{
		secret:            secret,
		accessTokenExpiry: accessExpiry,
		csrfTokenExpiry:   csrfExpiry,
	}
}

// AccessTokenExpiry returns the lifetime of access tokens and their sessions
func (tg *TokenGenerator) AccessTokenExpiry() time.Duration {
	return tg.accessTokenExpiry
}

// CSRFTokenExpiry returns the lifetime of CSRF tokens
func (tg *TokenGenerator) CSRFTokenExpiry() time.Duration {
	return tg.csrfTokenExpiry
}

// GenerateAccessToken creates an access token bound to a stored session.
// The token carries the session id, the user id and the role flag captured at login.
func (tg *TokenGenerator) GenerateAccessToken(claims AccessClaims) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      fmt.Sprint(claims.UserID),
		"sid":      claims.SessionID,
		"user_id":  claims.UserID,
		"is_admin": claims.IsAdmin,
		"exp":      now.Add(tg.accessTokenExpiry).Unix(),
		"iat":      now.Unix(),
		"type":     "access",
	})

	tokenString, err := token.SignedString([]byte(tg.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return tokenString, nil
}

// ValidateAccessToken validates an access token and returns its claims
func (tg *TokenGenerator) ValidateAccessToken(tokenString string) (*AccessClaims, error) {
	claims, err := tg.parse(tokenString, "access")
	if err != nil {
		return nil, err
	}

	sessionID, ok := claims["sid"].(string)
	if !ok || sessionID == "" {
		return nil, fmt.Errorf("sid not found in token")
	}

	// JWT claims decode numbers as float64
	userID, ok := claims["user_id"].(float64)
	if !ok {
		return nil, fmt.Errorf("user_id not found in token")
	}

	isAdmin, _ := claims["is_admin"].(bool)

	return &AccessClaims{
		SessionID: sessionID,
		UserID:    int(userID),
		IsAdmin:   isAdmin,
	}, nil
}

// GenerateCSRFToken creates a signed, expiring token for double-submit CSRF checks
func (tg *TokenGenerator) GenerateCSRFToken() (string, error) {
	nonce := make([]byte, 32)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate csrf nonce: %w", err)
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"nonce": base64.RawURLEncoding.EncodeToString(nonce),
		"exp":   now.Add(tg.csrfTokenExpiry).Unix(),
		"iat":   now.Unix(),
		"type":  "csrf",
	})

	tokenString, err := token.SignedString([]byte(tg.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign csrf token: %w", err)
	}

	return tokenString, nil
}

// ValidateCSRFToken checks the signature and expiry of a CSRF token
func (tg *TokenGenerator) ValidateCSRFToken(tokenString string) error {
	_, err := tg.parse(tokenString, "csrf")
	return err
}

func (tg *TokenGenerator) parse(tokenString, expectedType string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		// Validate the signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(tg.secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("token is invalid")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	tokenType, ok := claims["type"].(string)
	if !ok || tokenType != expectedType {
		return nil, fmt.Errorf("token is not an %s token", expectedType)
	}

	return claims, nil
}
