package handlers

import (
	"fmt"
	"net/http"

	"github.com/farellandr/userevents/internal/helpers"
	"github.com/farellandr/userevents/internal/models"
	"github.com/gin-gonic/gin"
)

func ListEmailLogs(c *gin.Context) {
	limit, err := helpers.QueryInt(c, "limit", models.DefaultPageLimit)
	if err != nil || limit < 1 || limit > models.MaxPageLimit {
		helpers.RespondWithError(c, http.StatusBadRequest, fmt.Sprintf("Limit must be between 1 and %d.", models.MaxPageLimit))
		return
	}

	deps, ok := dependencies(c)
	if !ok {
		return
	}

	page, err := deps.EmailLogs.List(c.Request.Context(), limit, c.Query("exclusive_start_key"))
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}
