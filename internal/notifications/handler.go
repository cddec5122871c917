package notifications

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

var welcomeTemplate = template.Must(template.ParseFS(templateFS, "templates/welcome.html"))

const welcomeSubject = "Welcome to your trading journal"

// Handler processes notification tasks on the worker
type Handler struct {
	sender Sender
	logger *zap.Logger
}

// NewHandler creates a new notification task handler
func NewHandler(sender Sender, logger *zap.Logger) *Handler {
	return &Handler{
		sender: sender,
		logger: logger,
	}
}

// Register adds the handler's task types to mux
func (h *Handler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeWelcomeEmail, h.HandleWelcomeEmail)
}

// HandleWelcomeEmail renders and sends the welcome e-mail.
// Malformed payloads are not retried.
func (h *Handler) HandleWelcomeEmail(ctx context.Context, t *asynq.Task) error {
	payload, err := ParseWelcomePayload(t)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	body, err := RenderWelcome(payload)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	if err := h.sender.Send(payload.Email, welcomeSubject, body); err != nil {
		h.logger.Warn("failed to send welcome email", zap.Int("user_id", payload.UserID), zap.Error(err))
		return err
	}

	h.logger.Info("welcome email sent", zap.Int("user_id", payload.UserID))
	return nil
}

// RenderWelcome renders the HTML body of the welcome e-mail
func RenderWelcome(p *WelcomePayload) (string, error) {
	name := p.Username
	if p.FullName != nil && *p.FullName != "" {
		name = *p.FullName
	}

	var buf bytes.Buffer
	err := welcomeTemplate.Execute(&buf, struct {
		Name     string
		Username string
		IsAdmin  bool
	}{
		Name:     name,
		Username: p.Username,
		IsAdmin:  p.IsAdmin,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render welcome email: %w", err)
	}

	return buf.String(), nil
}
