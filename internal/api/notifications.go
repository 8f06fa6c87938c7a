// notifications.go: read-side endpoints for the in-app notification feed.
package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// ListNotifications handles GET /api/v1/notifications. The recipient query
// parameter is required; limit defaults to the store's page size.
func (c *Controller) ListNotifications(ctx echo.Context) error {
	recipient := ctx.QueryParam("recipient")
	if recipient == "" {
		return c.HandleError(ctx, nil, "recipient query parameter is required", http.StatusBadRequest)
	}

	limit := 0
	if raw := ctx.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return c.HandleError(ctx, err, "invalid limit", http.StatusBadRequest)
		}
		limit = parsed
	}

	records, err := c.store.GetNotifications(ctx.Request().Context(), recipient, limit)
	if err != nil {
		return c.HandleError(ctx, err, "failed to load notifications", statusForError(err))
	}

	unread, err := c.store.UnreadNotificationCount(ctx.Request().Context(), recipient)
	if err != nil {
		return c.HandleError(ctx, err, "failed to count unread notifications", statusForError(err))
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"notifications": records,
		"unread":        unread,
	})
}

// MarkNotificationRead handles POST /api/v1/notifications/:id/read.
func (c *Controller) MarkNotificationRead(ctx echo.Context) error {
	id := ctx.Param("id")
	if err := c.store.MarkNotificationRead(ctx.Request().Context(), id); err != nil {
		return c.HandleError(ctx, err, "failed to mark notification read", statusForError(err))
	}
	return ctx.NoContent(http.StatusNoContent)
}
