package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"

	"github.com/lunchmates/lunchmates/internal/mailer"
)

type fakeSender struct {
	sent []mailer.Message
	err  error
}

func (s *fakeSender) Send(ctx context.Context, msg mailer.Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func TestSendEmailTaskRoundTrip(t *testing.T) {
	payload := SendEmailPayload{To: "a@example.com", Subject: "hi", Body: "hello"}
	task, err := NewSendEmailTask(payload)
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	if task.Type() != TaskTypeSendEmail {
		t.Fatalf("wrong task type: %q", task.Type())
	}

	sender := &fakeSender{}
	handler := NewSendEmailHandler(sender, nil)
	if err := handler(context.Background(), task); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected one delivery, got %d", len(sender.sent))
	}
	if sender.sent[0].To != "a@example.com" || sender.sent[0].Body != "hello" {
		t.Fatalf("payload mangled: %+v", sender.sent[0])
	}
}

func TestSendEmailHandlerSkipsMalformedPayload(t *testing.T) {
	handler := NewSendEmailHandler(&fakeSender{}, nil)
	task := asynq.NewTask(TaskTypeSendEmail, []byte("{not json"))

	err := handler(context.Background(), task)
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
}

func TestSendEmailHandlerPropagatesSendFailure(t *testing.T) {
	sendErr := errors.New("smtp down")
	handler := NewSendEmailHandler(&fakeSender{err: sendErr}, nil)

	payload, _ := json.Marshal(SendEmailPayload{To: "a@example.com"})
	task := asynq.NewTask(TaskTypeSendEmail, payload)

	if err := handler(context.Background(), task); !errors.Is(err, sendErr) {
		t.Fatalf("expected send error to propagate for retry, got %v", err)
	}
}
