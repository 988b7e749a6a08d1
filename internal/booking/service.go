package booking

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/planora-app/planora/internal/notify"
)

// SetupChecker gates request creation on the vendor's onboarding state.
type SetupChecker interface {
	IsComplete(ctx context.Context, vendorID string) (bool, error)
}

// Notifier delivers in-app notifications. Every call from this package is
// best-effort: a failed emit never rolls back or blocks the transition.
type Notifier interface {
	Emit(ctx context.Context, recipientID, ntype, title, body, reference string) error
}

// Conversations creates the client-vendor thread on first contact.
type Conversations interface {
	EnsureBookingThread(ctx context.Context, clientID, vendorID, bookingID string) error
}

// EventPublisher mirrors lifecycle transitions onto the integration bus.
type EventPublisher interface {
	Publish(routingKey string, payload any) error
}

// LifecycleEvent is the integration-event payload for a status transition.
type LifecycleEvent struct {
	BookingID string    `json:"booking_id"`
	ClientID  string    `json:"client_id"`
	VendorID  string    `json:"vendor_id"`
	Status    Status    `json:"status"`
	At        time.Time `json:"at"`
}

// API is the surface consumed by HTTP handlers and admin tooling.
type API interface {
	Create(ctx context.Context, clientID string, in CreateInput) (*Request, error)
	Accept(ctx context.Context, vendorID, id string) (*Request, error)
	Decline(ctx context.Context, vendorID, id string) (*Request, error)
	Cancel(ctx context.Context, actorID, id string) (*Request, error)
	Complete(ctx context.Context, vendorID, id string) (*Request, error)
	Get(ctx context.Context, actorID, id string) (*Request, error)
	ListForActor(ctx context.Context, actorID string, status *Status, page, perPage int) ([]Request, error)
}

type Service struct {
	repo     Repository
	setup    SetupChecker
	notifier Notifier
	chats    Conversations
	events   EventPublisher
	expiry   time.Duration
	now      func() time.Time
}

func NewService(repo Repository, setup SetupChecker, notifier Notifier, chats Conversations, events EventPublisher, expiry time.Duration) *Service {
	return &Service{
		repo:     repo,
		setup:    setup,
		notifier: notifier,
		chats:    chats,
		events:   events,
		expiry:   expiry,
		now:      time.Now,
	}
}

// Create validates the client's submission and persists a pending request
// with a by-value snapshot of the selected services. The request is never
// created when a precondition fails.
func (s *Service) Create(ctx context.Context, clientID string, in CreateInput) (*Request, error) {
	exists, err := s.repo.VendorExists(ctx, in.VendorID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrVendorNotFound
	}

	complete, err := s.setup.IsComplete(ctx, in.VendorID)
	if err != nil {
		return nil, err
	}
	if !complete {
		return nil, ErrVendorSetupIncomplete
	}

	now := s.now()
	if !in.EventDate.After(now) {
		return nil, ErrEventDateInPast
	}
	if len(in.ServiceIDs) == 0 {
		return nil, ErrNoServicesSelected
	}

	services, err := s.repo.VendorServices(ctx, in.VendorID, in.ServiceIDs)
	if err != nil {
		return nil, err
	}

	req := &Request{
		ID:              uuid.New().String(),
		ClientID:        clientID,
		VendorID:        in.VendorID,
		EventName:       in.EventName,
		EventType:       in.EventType,
		EventDate:       in.EventDate,
		StartTime:       in.StartTime,
		EndTime:         in.EndTime,
		Location:        in.Location,
		GuestCount:      in.GuestCount,
		Notes:           in.Notes,
		Services:        services,
		Status:          StatusPending,
		CreatedAt:       now,
		StatusChangedAt: now,
		ExpiresAt:       now.Add(s.expiry),
	}
	if err := s.repo.Insert(ctx, req); err != nil {
		return nil, err
	}

	s.emit(ctx, req.VendorID, notify.TypeBookingRequest, "New booking request",
		fmt.Sprintf("You have a new request for %s", req.EventName), req.ID)
	s.publish("booking.requested", req)

	return req, nil
}

// Accept moves a pending request to accepted and opens the client-vendor
// conversation. A past-deadline request is flipped to expired instead and
// the caller gets a stale-state error.
func (s *Service) Accept(ctx context.Context, vendorID, id string) (*Request, error) {
	req, err := s.vendorTransition(ctx, vendorID, id, StatusAccepted)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, req.ClientID, notify.TypeBookingAccepted, "Booking request accepted",
		fmt.Sprintf("Your request for %s was accepted", req.EventName), req.ID)
	if err := s.chats.EnsureBookingThread(ctx, req.ClientID, req.VendorID, req.ID); err != nil {
		log.Printf("[booking] ensure conversation failed for %s: %v", req.ID, err)
	}
	s.publish("booking.accepted", req)

	return req, nil
}

// Decline moves a pending request to declined.
func (s *Service) Decline(ctx context.Context, vendorID, id string) (*Request, error) {
	req, err := s.vendorTransition(ctx, vendorID, id, StatusDeclined)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, req.ClientID, notify.TypeBookingDeclined, "Booking request declined",
		fmt.Sprintf("Your request for %s was declined", req.EventName), req.ID)
	s.publish("booking.declined", req)

	return req, nil
}

// vendorTransition applies pending -> to for the owning vendor with the
// optimistic status check, handling lazy expiry first.
func (s *Service) vendorTransition(ctx context.Context, vendorID, id string, to Status) (*Request, error) {
	req, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.VendorID != vendorID {
		return nil, ErrNotParticipant
	}

	now := s.now()
	if req.Status == StatusPending && !now.Before(req.ExpiresAt) {
		if s.expireOne(ctx, req, now) {
			return nil, ErrRequestExpired
		}
		// A concurrent transition won; act on the current stored row.
		if req, err = s.repo.Get(ctx, id); err != nil {
			return nil, err
		}
	}
	if req.Status != StatusPending {
		return nil, ErrInvalidTransition
	}

	applied, err := s.repo.UpdateStatusIf(ctx, id, StatusPending, to, now)
	if err != nil {
		return nil, err
	}
	if !applied {
		// Read saw pending; a concurrent transition won the write.
		return nil, ErrConflict
	}

	req.Status = to
	req.StatusChangedAt = now
	return req, nil
}

// Cancel is legal for either participant from pending or accepted, up
// until completion.
func (s *Service) Cancel(ctx context.Context, actorID, id string) (*Request, error) {
	req, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if actorID != req.ClientID && actorID != req.VendorID {
		return nil, ErrNotParticipant
	}

	now := s.now()
	if req.Status == StatusPending && !now.Before(req.ExpiresAt) {
		if s.expireOne(ctx, req, now) {
			return nil, ErrInvalidTransition
		}
		// A concurrent transition won; act on the current stored row.
		if req, err = s.repo.Get(ctx, id); err != nil {
			return nil, err
		}
	}
	if req.Status != StatusPending && req.Status != StatusAccepted {
		return nil, ErrInvalidTransition
	}

	applied, err := s.repo.UpdateStatusIf(ctx, id, req.Status, StatusCancelled, now)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, ErrConflict
	}

	req.Status = StatusCancelled
	req.StatusChangedAt = now

	other := req.VendorID
	if actorID == req.VendorID {
		other = req.ClientID
	}
	s.emit(ctx, other, notify.TypeBookingCancelled, "Booking request cancelled",
		fmt.Sprintf("The request for %s was cancelled", req.EventName), req.ID)
	s.publish("booking.cancelled", req)

	return req, nil
}

// Complete marks an accepted request fulfilled once the event date has
// passed. Review eligibility downstream keys off this status.
func (s *Service) Complete(ctx context.Context, vendorID, id string) (*Request, error) {
	req, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.VendorID != vendorID {
		return nil, ErrNotParticipant
	}
	if req.Status != StatusAccepted {
		return nil, ErrInvalidTransition
	}

	now := s.now()
	if now.Before(req.EventDate) {
		return nil, ErrEventNotOver
	}

	applied, err := s.repo.UpdateStatusIf(ctx, id, StatusAccepted, StatusCompleted, now)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, ErrConflict
	}

	req.Status = StatusCompleted
	req.StatusChangedAt = now
	s.publish("booking.completed", req)

	return req, nil
}

// Get returns a single request visible to the actor, applying lazy expiry
// before the status is surfaced.
func (s *Service) Get(ctx context.Context, actorID, id string) (*Request, error) {
	req, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if actorID != req.ClientID && actorID != req.VendorID {
		return nil, ErrNotParticipant
	}

	now := s.now()
	if req.Status == StatusPending && !now.Before(req.ExpiresAt) {
		if s.expireOne(ctx, req, now) {
			req.Status = StatusExpired
			req.StatusChangedAt = now
			return req, nil
		}
		// A concurrent transition won; surface the stored row, never a
		// status that was never written.
		return s.repo.Get(ctx, id)
	}
	return req, nil
}

// ListForActor pages through the actor's requests. Overdue pending rows
// are flipped to expired first so a status filter never reports a stale
// pending state.
func (s *Service) ListForActor(ctx context.Context, actorID string, status *Status, page, perPage int) ([]Request, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}

	flipped, err := s.repo.ExpireOverdue(ctx, actorID, s.now())
	if err != nil {
		return nil, err
	}
	for _, e := range flipped {
		s.emit(ctx, e.ClientID, notify.TypeBookingExpired, "Booking request expired",
			"A pending booking request expired before the vendor responded", e.ID)
	}

	return s.repo.ListForActor(ctx, actorID, status, perPage, (page-1)*perPage)
}

// expireOne applies the query-time correction for a single overdue pending
// request and reports whether the flip took effect. The conditional write
// guarantees the expiry notification fires at most once even under
// concurrent readers; a false return means a concurrent transition won and
// the stored row is no longer pending.
func (s *Service) expireOne(ctx context.Context, req *Request, now time.Time) bool {
	applied, err := s.repo.UpdateStatusIf(ctx, req.ID, StatusPending, StatusExpired, now)
	if err != nil {
		log.Printf("[booking] lazy expiry failed for %s: %v", req.ID, err)
		return false
	}
	if applied {
		s.emit(ctx, req.ClientID, notify.TypeBookingExpired, "Booking request expired",
			fmt.Sprintf("Your request for %s expired before the vendor responded", req.EventName), req.ID)
		s.publish("booking.expired", &Request{ID: req.ID, ClientID: req.ClientID, VendorID: req.VendorID, Status: StatusExpired})
	}
	return applied
}

func (s *Service) emit(ctx context.Context, recipientID, ntype, title, body, reference string) {
	if err := s.notifier.Emit(ctx, recipientID, ntype, title, body, reference); err != nil {
		log.Printf("[booking] notification emit failed (type=%s ref=%s): %v", ntype, reference, err)
	}
}

func (s *Service) publish(routingKey string, req *Request) {
	if s.events == nil {
		return
	}
	evt := LifecycleEvent{
		BookingID: req.ID,
		ClientID:  req.ClientID,
		VendorID:  req.VendorID,
		Status:    req.Status,
		At:        s.now(),
	}
	if err := s.events.Publish(routingKey, evt); err != nil {
		log.Printf("[booking] event publish failed (%s): %v", routingKey, err)
	}
}
