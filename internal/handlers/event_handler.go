package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/farellandr/userevents/internal/apperrors"
	"github.com/farellandr/userevents/internal/helpers"
	"github.com/farellandr/userevents/internal/middleware"
	"github.com/farellandr/userevents/internal/models"
	"github.com/gin-gonic/gin"
)

func CreateEvent(c *gin.Context) {
	var req models.EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	deps, ok := dependencies(c)
	if !ok {
		return
	}

	event := models.NewEvent(req)
	if err := deps.Events.Create(c.Request.Context(), event); err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	linked, unlinked := linkMembers(c.Request.Context(), deps, event)

	c.JSON(http.StatusCreated, gin.H{
		"message":  "Event created successfully.",
		"event":    event,
		"linked":   linked,
		"unlinked": unlinked,
	})
}

// linkMembers writes the owner and host relations of a new event one by one.
// A failure leaves the event and any relations already written in place.
func linkMembers(ctx context.Context, deps *middleware.Dependencies, event models.Event) ([]models.EventUserListItem, []models.Member) {
	linked := make([]models.EventUserListItem, 0)
	unlinked := make([]models.Member, 0)
	for _, member := range event.Members() {
		user, found, err := deps.Users.Get(ctx, member.UserID)
		if err != nil || !found {
			slog.Warn("event member not linked", "event_id", event.EventID, "user_id", member.UserID, "role", member.Role, "found", found, "error", err)
			unlinked = append(unlinked, member)
			continue
		}
		rel, err := deps.Relations.Link(ctx, user, event, member.Role)
		if errors.Is(err, apperrors.ErrConflict) {
			continue
		}
		if err != nil {
			slog.Warn("event member not linked", "event_id", event.EventID, "user_id", member.UserID, "role", member.Role, "error", err)
			unlinked = append(unlinked, member)
			continue
		}
		linked = append(linked, rel.UserListItem())
	}
	return linked, unlinked
}

func GetEvent(c *gin.Context) {
	deps, ok := dependencies(c)
	if !ok {
		return
	}
	eventID := c.Param("id")

	event, found, err := deps.Events.Get(c.Request.Context(), eventID)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}
	if !found {
		helpers.RespondWithError(c, http.StatusNotFound, fmt.Sprintf("Event with ID '%s' not found.", eventID))
		return
	}

	c.JSON(http.StatusOK, event)
}

func UpdateEvent(c *gin.Context) {
	var req models.EventUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	deps, ok := dependencies(c)
	if !ok {
		return
	}
	eventID := c.Param("id")

	event, found, err := deps.Events.Update(c.Request.Context(), eventID, req)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}
	if !found {
		helpers.RespondWithError(c, http.StatusNotFound, fmt.Sprintf("Event with ID '%s' not found.", eventID))
		return
	}

	if err := deps.Refresher.RefreshEvent(c.Request.Context(), event); err != nil {
		slog.Warn("refresh relation copies", "event_id", eventID, "error", err)
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Event updated successfully.",
		"event":   event,
	})
}

func DeleteEvent(c *gin.Context) {
	deps, ok := dependencies(c)
	if !ok {
		return
	}
	eventID := c.Param("id")

	existed, err := deps.Events.Delete(c.Request.Context(), eventID)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}
	if !existed {
		helpers.RespondWithError(c, http.StatusNotFound, fmt.Sprintf("Event with ID '%s' not found.", eventID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Event deleted successfully.",
	})
}

func GetEventUsers(c *gin.Context) {
	deps, ok := dependencies(c)
	if !ok {
		return
	}

	rels, err := deps.Relations.UsersForEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	items := make([]models.EventUserListItem, 0, len(rels))
	for _, rel := range rels {
		items = append(items, rel.UserListItem())
	}
	c.JSON(http.StatusOK, items)
}

func AddEventUser(c *gin.Context) {
	var req models.Member
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	role, err := models.ParseRole(string(req.Role))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Role must be a lower-case role tag.")
		return
	}

	deps, ok := dependencies(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	eventID := c.Param("id")

	event, found, err := deps.Events.Get(ctx, eventID)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}
	if !found {
		helpers.RespondWithError(c, http.StatusNotFound, fmt.Sprintf("Event with ID '%s' not found.", eventID))
		return
	}

	user, found, err := deps.Users.Get(ctx, req.UserID)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}
	if !found {
		helpers.RespondWithError(c, http.StatusNotFound, fmt.Sprintf("User with ID '%s' not found.", req.UserID))
		return
	}

	rel, err := deps.Relations.Link(ctx, user, event, role)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, rel.UserListItem())
}
