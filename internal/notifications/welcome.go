package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/tradejournal/backend/internal/models"
	"go.uber.org/zap"
)

// TypeWelcomeEmail is the asynq task type of the welcome e-mail
const TypeWelcomeEmail = "email:welcome"

// QueueDefault is the queue notification tasks are enqueued to
const QueueDefault = "default"

const welcomeMaxRetry = 5

// WelcomePayload is the body of a welcome e-mail task
type WelcomePayload struct {
	UserID   int     `json:"user_id"`
	Email    string  `json:"email"`
	Username string  `json:"username"`
	FullName *string `json:"full_name,omitempty"`
	IsAdmin  bool    `json:"is_admin"`
}

// Enqueuer wraps the asynq client method used to schedule tasks
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// welcomeNotifier schedules welcome e-mails on the task queue
type welcomeNotifier struct {
	client Enqueuer
	logger *zap.Logger
}

// NewWelcomeNotifier creates a notifier that enqueues welcome e-mails through client
func NewWelcomeNotifier(client Enqueuer, logger *zap.Logger) *welcomeNotifier {
	return &welcomeNotifier{
		client: client,
		logger: logger,
	}
}

// EnqueueWelcome schedules the welcome e-mail of a newly registered user
func (n *welcomeNotifier) EnqueueWelcome(ctx context.Context, user *models.User) error {
	payload, err := json.Marshal(WelcomePayload{
		UserID:   user.ID,
		Email:    user.Email,
		Username: user.Username,
		FullName: user.FullName,
		IsAdmin:  user.IsAdmin,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal welcome payload: %w", err)
	}

	task := asynq.NewTask(TypeWelcomeEmail, payload, asynq.MaxRetry(welcomeMaxRetry))
	info, err := n.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault))
	if err != nil {
		return fmt.Errorf("failed to enqueue welcome email: %w", err)
	}

	n.logger.Debug("welcome email enqueued", zap.Int("userId", user.ID), zap.String("taskId", info.ID))
	return nil
}

// ParseWelcomePayload decodes the payload of a welcome e-mail task
func ParseWelcomePayload(t *asynq.Task) (*WelcomePayload, error) {
	var p WelcomePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return nil, fmt.Errorf("failed to parse welcome payload: %w", err)
	}
	if p.Email == "" {
		return nil, fmt.Errorf("welcome payload has no recipient")
	}
	return &p, nil
}
