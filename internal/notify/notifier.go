package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/farellandr/userevents/internal/metrics"
	"github.com/farellandr/userevents/internal/models"
	"github.com/google/uuid"
)

// StatusLog persists the outcome of one delivery attempt.
type StatusLog interface {
	LogEmailStatus(ctx context.Context, emailID, recipient, status string) error
}

type Notifier struct {
	sender Sender
	logs   StatusLog
	wg     sync.WaitGroup
}

func NewNotifier(sender Sender, logs StatusLog) *Notifier {
	return &Notifier{sender: sender, logs: logs}
}

// Dispatch schedules delivery and returns the email id at once. The attempt
// is not bound to the caller's context and has no deadline of its own.
func (n *Notifier) Dispatch(to, subject, body string) string {
	id := uuid.New().String()
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.deliver(context.Background(), id, to, subject, body)
	}()
	return id
}

func (n *Notifier) deliver(ctx context.Context, id, to, subject, body string) {
	status := models.EmailStatusSent
	if err := n.sender.Send(ctx, to, subject, body); err != nil {
		status = models.EmailStatusFailed(err)
		slog.Warn("email delivery failed", "email_id", id, "to", to, "error", err)
	} else {
		slog.Debug("email delivered", "email_id", id, "to", to)
	}
	metrics.EmailDelivered(status == models.EmailStatusSent)

	if err := n.logs.LogEmailStatus(ctx, id, to, status); err != nil {
		slog.Error("failed to record email status", "email_id", id, "status", status, "error", err)
	}
}

// Wait blocks until every dispatched delivery has finished.
func (n *Notifier) Wait() {
	n.wg.Wait()
}
