package middleware

import (
	"github.com/farellandr/userevents/internal/aggregation"
	"github.com/farellandr/userevents/internal/notify"
	"github.com/farellandr/userevents/internal/repository"
	"github.com/gin-gonic/gin"
)

const dependenciesKey = "deps"

// Dependencies are the per-process collaborators handlers read from the
// request context.
type Dependencies struct {
	Users      *repository.UserRepository
	Events     *repository.EventRepository
	Relations  *repository.RelationRepository
	EmailLogs  *repository.EmailLogRepository
	Aggregator *aggregation.Engine
	Notifier   *notify.Notifier
	Refresher  repository.Refresher
}

func DependenciesMiddleware(deps *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(dependenciesKey, deps)
		c.Next()
	}
}

func GetDependencies(c *gin.Context) *Dependencies {
	deps, exists := c.Get(dependenciesKey)
	if !exists {
		return nil
	}
	return deps.(*Dependencies)
}
