package notify

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handler serves the notification endpoints consumed by badge UI.
type Handler struct {
	dispatcher *Dispatcher
}

func NewHandler(dispatcher *Dispatcher) *Handler {
	return &Handler{dispatcher: dispatcher}
}

// List returns the current user's notifications, newest first.
// ?unread=true restricts to unread items.
func (h *Handler) List(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	unreadOnly := c.QueryParam("unread") == "true"
	items, err := h.dispatcher.ListFor(c.Request().Context(), userID, unreadOnly)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load notifications"})
	}
	if items == nil {
		items = []Notification{}
	}
	return c.JSON(http.StatusOK, echo.Map{"notifications": items})
}

// MarkRead flips one notification's read flag for the current user.
func (h *Handler) MarkRead(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	nid := c.Param("id")
	if nid == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing notification id"})
	}

	applied, err := h.dispatcher.MarkRead(c.Request().Context(), nid, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update"})
	}
	if !applied {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found or already read"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "ok"})
}

// MarkAllRead flips every unread notification for the current user.
func (h *Handler) MarkAllRead(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	updated, err := h.dispatcher.MarkAllRead(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update"})
	}
	return c.JSON(http.StatusOK, echo.Map{"updated": updated})
}

// UnreadCount serves the badge counter.
func (h *Handler) UnreadCount(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	count, err := h.dispatcher.UnreadCount(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to compute unread count"})
	}
	return c.JSON(http.StatusOK, echo.Map{"unread": count})
}
