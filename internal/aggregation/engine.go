// Package aggregation answers "which users hold role R on at least N events".
package aggregation

import (
	"context"
	"log/slog"

	"github.com/farellandr/userevents/internal/apperrors"
	"github.com/farellandr/userevents/internal/metrics"
	"github.com/farellandr/userevents/internal/models"
)

// RelationSource returns the complete set of relations for a role.
type RelationSource interface {
	RelationsByRole(ctx context.Context, role models.Role) ([]models.Relation, error)
}

type Engine struct {
	source RelationSource
}

func NewEngine(source RelationSource) *Engine {
	return &Engine{source: source}
}

// UsersByRoleWithMinEvents tallies every relation of role per user and
// returns one summary per user whose tally is at least minEvents, in order of
// each user's first relation. minEvents <= 0 admits every user that has the
// role at all. The result is empty, not nil, when nobody qualifies.
func (e *Engine) UsersByRoleWithMinEvents(ctx context.Context, role models.Role, minEvents int) ([]models.RoleUserSummary, error) {
	rels, err := e.source.RelationsByRole(ctx, role)
	if err != nil {
		return nil, apperrors.Aggregation("users by role", err)
	}
	metrics.AggregationScanned(string(role), len(rels))

	tally := make(map[string]int)
	for _, rel := range rels {
		if rel.UserID == "" {
			continue
		}
		tally[rel.UserID]++
	}

	summaries := make([]models.RoleUserSummary, 0)
	emitted := make(map[string]bool)
	for _, rel := range rels {
		if rel.UserID == "" || emitted[rel.UserID] || tally[rel.UserID] < minEvents {
			continue
		}
		emitted[rel.UserID] = true
		summaries = append(summaries, rel.Summary(tally[rel.UserID]))
	}

	slog.Debug("role aggregation",
		"role", role,
		"min_events", minEvents,
		"relations", len(rels),
		"users", len(tally),
		"qualified", len(summaries))
	return summaries, nil
}
