package chat

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handler serves the conversation and message endpoints.
type Handler struct {
	registry *Registry
}

func NewHandler(registry *Registry) *Handler {
	return &Handler{registry: registry}
}

// Open gets or creates a direct thread with a vendor or support agent.
// Booking threads are created by the booking engine, not through here.
func (h *Handler) Open(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req struct {
		PeerID   string `json:"peer_id"`
		PeerRole string `json:"peer_role"`
	}
	if err := c.Bind(&req); err != nil || req.PeerID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload"})
	}
	if req.PeerRole == "" {
		req.PeerRole = PeerRoleVendor
	}

	conv, err := h.registry.GetOrCreate(c.Request().Context(), userID, req.PeerID, req.PeerRole, "")
	if err != nil {
		switch {
		case errors.Is(err, ErrSelfConversation), errors.Is(err, ErrInvalidPeerRole):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to open conversation"})
		}
	}
	return c.JSON(http.StatusOK, conv)
}

// List returns the current user's conversations.
func (h *Handler) List(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	convs, err := h.registry.ListFor(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list conversations"})
	}
	if convs == nil {
		convs = []Conversation{}
	}
	return c.JSON(http.StatusOK, echo.Map{"conversations": convs})
}

// ListMessages returns a thread in append order.
func (h *Handler) ListMessages(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	convID := c.Param("id")
	if convID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing conversation id"})
	}

	msgs, err := h.registry.ListMessages(c.Request().Context(), convID, userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "conversation not found"})
		case errors.Is(err, ErrNotParticipant):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "not a participant in this conversation"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list messages"})
		}
	}
	if msgs == nil {
		msgs = []Message{}
	}
	return c.JSON(http.StatusOK, echo.Map{"messages": msgs})
}

// SendMessage appends to a thread.
func (h *Handler) SendMessage(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	convID := c.Param("id")
	if convID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing conversation id"})
	}

	var req struct {
		Body string `json:"body"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload"})
	}

	msg, err := h.registry.Append(c.Request().Context(), convID, userID, req.Body)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyBody):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		case errors.Is(err, ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "conversation not found"})
		case errors.Is(err, ErrNotParticipant):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "not a participant in this conversation"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to send message"})
		}
	}
	return c.JSON(http.StatusCreated, msg)
}

// MarkRead flips the reader's unread incoming messages in a thread.
func (h *Handler) MarkRead(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	convID := c.Param("id")
	if convID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing conversation id"})
	}

	updated, err := h.registry.MarkRead(c.Request().Context(), convID, userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "conversation not found"})
		case errors.Is(err, ErrNotParticipant):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "not a participant in this conversation"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to mark read"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"updated": updated})
}

// UnreadCount serves the message badge counter.
func (h *Handler) UnreadCount(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	count, err := h.registry.UnreadCount(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to compute unread count"})
	}
	return c.JSON(http.StatusOK, echo.Map{"unread": count})
}
