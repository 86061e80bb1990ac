package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/farellandr/userevents/internal/helpers"
	"github.com/farellandr/userevents/internal/middleware"
	"github.com/farellandr/userevents/internal/models"
	"github.com/gin-gonic/gin"
)

func dependencies(c *gin.Context) (*middleware.Dependencies, bool) {
	deps := middleware.GetDependencies(c)
	if deps == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Service dependencies not configured.")
		return nil, false
	}
	return deps, true
}

func GetUser(c *gin.Context) {
	deps, ok := dependencies(c)
	if !ok {
		return
	}
	userID := c.Param("id")

	user, found, err := deps.Users.Get(c.Request.Context(), userID)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}
	if !found {
		helpers.RespondWithError(c, http.StatusNotFound, fmt.Sprintf("User with ID '%s' not found.", userID))
		return
	}

	c.JSON(http.StatusOK, user)
}

func CreateUser(c *gin.Context) {
	var req models.UserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	deps, ok := dependencies(c)
	if !ok {
		return
	}

	user := models.NewUser(req)
	if err := deps.Users.Create(c.Request.Context(), user); err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User created successfully.",
		"user":    user,
	})
}

func UpdateUser(c *gin.Context) {
	var req models.UserUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	deps, ok := dependencies(c)
	if !ok {
		return
	}
	userID := c.Param("id")

	user, found, err := deps.Users.Update(c.Request.Context(), userID, req)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}
	if !found {
		helpers.RespondWithError(c, http.StatusNotFound, fmt.Sprintf("User with ID '%s' not found.", userID))
		return
	}

	if err := deps.Refresher.RefreshUser(c.Request.Context(), user); err != nil {
		slog.Warn("refresh relation copies", "user_id", userID, "error", err)
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User updated successfully.",
		"user":    user,
	})
}

func DeleteUser(c *gin.Context) {
	deps, ok := dependencies(c)
	if !ok {
		return
	}
	userID := c.Param("id")

	existed, err := deps.Users.Delete(c.Request.Context(), userID)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}
	if !existed {
		helpers.RespondWithError(c, http.StatusNotFound, fmt.Sprintf("User with ID '%s' not found.", userID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User deleted successfully.",
	})
}

func GetUserEvents(c *gin.Context) {
	deps, ok := dependencies(c)
	if !ok {
		return
	}

	rels, err := deps.Relations.EventsForUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	items := make([]models.UserEventListItem, 0, len(rels))
	for _, rel := range rels {
		items = append(items, rel.EventListItem())
	}
	c.JSON(http.StatusOK, items)
}

func GetUsersByRole(c *gin.Context) {
	role, err := models.ParseRole(c.Query("role"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Query parameter 'role' must be a lower-case role tag.")
		return
	}
	minEvents, err := helpers.QueryInt(c, "min_events", 1)
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid min_events.")
		return
	}

	deps, ok := dependencies(c)
	if !ok {
		return
	}

	users, err := deps.Aggregator.UsersByRoleWithMinEvents(c.Request.Context(), role, minEvents)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, users)
}

func FilterUsers(c *gin.Context) {
	var req models.FilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	deps, ok := dependencies(c)
	if !ok {
		return
	}

	page, err := deps.Users.Scan(c.Request.Context(), req)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

type scheduledEmail struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	EmailID string `json:"email_id"`
}

func SendEmail(c *gin.Context) {
	var req models.SendEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	deps, ok := dependencies(c)
	if !ok {
		return
	}

	users, err := deps.Users.GetMany(c.Request.Context(), req.UserIDs)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	resolved := make(map[string]bool, len(users))
	scheduled := make([]scheduledEmail, 0, len(users))
	for _, user := range users {
		if user.Email == "" {
			continue
		}
		resolved[user.UserID] = true
		emailID := deps.Notifier.Dispatch(user.Email, req.Subject, req.Body)
		scheduled = append(scheduled, scheduledEmail{UserID: user.UserID, Email: user.Email, EmailID: emailID})
	}
	if len(scheduled) == 0 {
		helpers.RespondWithError(c, http.StatusNotFound, "None of the given users have an email address on record.")
		return
	}

	notFound := make([]string, 0)
	for _, userID := range req.UserIDs {
		if !resolved[userID] {
			notFound = append(notFound, userID)
		}
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message":   "Emails scheduled for delivery.",
		"scheduled": scheduled,
		"not_found": notFound,
	})
}
