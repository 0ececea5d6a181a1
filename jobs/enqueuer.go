package jobs

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/lunchmates/lunchmates/internal/mailer"
)

// MailEnqueuer queues account mail for asynchronous delivery. Handlers
// never wait on SMTP; they hand the message to the queue and move on.
type MailEnqueuer struct {
	client  *asynq.Client
	baseURL string
}

// NewMailEnqueuer constructs a MailEnqueuer.
func NewMailEnqueuer(client *asynq.Client, baseURL string) *MailEnqueuer {
	return &MailEnqueuer{client: client, baseURL: baseURL}
}

// SendRegistrationLink queues the pre-registration confirmation mail.
func (e *MailEnqueuer) SendRegistrationLink(ctx context.Context, email, token string) error {
	return e.enqueue(ctx, mailer.RegistrationMessage(e.baseURL, email, token))
}

// SendPasswordResetLink queues the password reset mail.
func (e *MailEnqueuer) SendPasswordResetLink(ctx context.Context, email, token string) error {
	return e.enqueue(ctx, mailer.PasswordResetMessage(e.baseURL, email, token))
}

func (e *MailEnqueuer) enqueue(ctx context.Context, msg mailer.Message) error {
	task, err := NewSendEmailTask(SendEmailPayload{To: msg.To, Subject: msg.Subject, Body: msg.Body})
	if err != nil {
		return err
	}
	if _, err := e.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("jobs: enqueue %s: %w", TaskTypeSendEmail, err)
	}
	return nil
}
