package booking

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// Handler exposes the booking request transition commands and queries.
type Handler struct {
	svc API
}

func NewHandler(svc API) *Handler {
	return &Handler{svc: svc}
}

type createRequest struct {
	VendorID   string   `json:"vendor_id"`
	EventName  string   `json:"event_name"`
	EventType  string   `json:"event_type"`
	EventDate  string   `json:"event_date"`
	StartTime  string   `json:"start_time"`
	EndTime    string   `json:"end_time"`
	Location   string   `json:"location"`
	GuestCount int      `json:"guest_count"`
	Notes      string   `json:"notes"`
	ServiceIDs []string `json:"service_ids"`
}

// Create - client submits a booking request
func (h *Handler) Create(c echo.Context) error {
	clientID, ok := c.Get("user_id").(string)
	if !ok || clientID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req createRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload"})
	}
	if req.VendorID == "" || req.EventName == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "vendor_id and event_name are required"})
	}
	eventDate, err := time.Parse("2006-01-02", req.EventDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event_date, use YYYY-MM-DD"})
	}

	booking, err := h.svc.Create(c.Request().Context(), clientID, CreateInput{
		VendorID:   req.VendorID,
		EventName:  req.EventName,
		EventType:  req.EventType,
		EventDate:  eventDate,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		Location:   req.Location,
		GuestCount: req.GuestCount,
		Notes:      req.Notes,
		ServiceIDs: req.ServiceIDs,
	})
	if err != nil {
		return h.mapError(c, err)
	}

	return c.JSON(http.StatusCreated, booking)
}

// Accept - vendor accepts a pending request
func (h *Handler) Accept(c echo.Context) error {
	return h.transition(c, h.svc.Accept)
}

// Decline - vendor declines a pending request
func (h *Handler) Decline(c echo.Context) error {
	return h.transition(c, h.svc.Decline)
}

// Cancel - either participant cancels
func (h *Handler) Cancel(c echo.Context) error {
	return h.transition(c, h.svc.Cancel)
}

// Complete - vendor marks an accepted request fulfilled
func (h *Handler) Complete(c echo.Context) error {
	return h.transition(c, h.svc.Complete)
}

func (h *Handler) transition(c echo.Context, fn func(ctx context.Context, actorID, id string) (*Request, error)) error {
	actorID, ok := c.Get("user_id").(string)
	if !ok || actorID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing booking id in URL"})
	}

	booking, err := fn(c.Request().Context(), actorID, id)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, booking)
}

// Get - fetch one booking request visible to the actor
func (h *Handler) Get(c echo.Context) error {
	actorID, ok := c.Get("user_id").(string)
	if !ok || actorID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing booking id in URL"})
	}

	booking, err := h.svc.Get(c.Request().Context(), actorID, id)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, booking)
}

// List - page through the actor's requests with an optional status filter
func (h *Handler) List(c echo.Context) error {
	actorID, ok := c.Get("user_id").(string)
	if !ok || actorID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var status *Status
	if raw := c.QueryParam("status"); raw != "" {
		st, ok := ParseStatus(raw)
		if !ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status filter"})
		}
		status = &st
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	perPage, _ := strconv.Atoi(c.QueryParam("per_page"))

	bookings, err := h.svc.ListForActor(c.Request().Context(), actorID, status, page, perPage)
	if err != nil {
		return h.mapError(c, err)
	}
	if bookings == nil {
		bookings = []Request{}
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": bookings})
}

func (h *Handler) mapError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrVendorNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, ErrNotParticipant):
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
	case errors.Is(err, ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, ErrVendorSetupIncomplete),
		errors.Is(err, ErrEventDateInPast),
		errors.Is(err, ErrEventNotOver),
		errors.Is(err, ErrNoServicesSelected),
		errors.Is(err, ErrServiceNotOffered),
		errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrRequestExpired):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
