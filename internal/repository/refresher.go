package repository

import (
	"context"
	"log/slog"

	"github.com/farellandr/userevents/internal/models"
)

// Refresher re-copies user or event display fields into the relations that
// carry them.
type Refresher interface {
	RefreshUser(ctx context.Context, user models.User) error
	RefreshEvent(ctx context.Context, event models.Event) error
}

// StaleRefresher leaves relation copies as they were written.
type StaleRefresher struct{}

func (StaleRefresher) RefreshUser(ctx context.Context, user models.User) error {
	slog.Debug("relation copies of user left stale", "user_id", user.UserID)
	return nil
}

func (StaleRefresher) RefreshEvent(ctx context.Context, event models.Event) error {
	slog.Debug("relation copies of event left stale", "event_id", event.EventID)
	return nil
}
