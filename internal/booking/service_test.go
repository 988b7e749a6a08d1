package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/planora-app/planora/internal/notify"
)

var baseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// memRepo is an in-memory Repository with the same conditional-write
// semantics as the postgres implementation.
type memRepo struct {
	requests map[string]*Request
	vendors  map[string]bool
	catalog  map[string][]SelectedService
}

func newMemRepo() *memRepo {
	return &memRepo{
		requests: map[string]*Request{},
		vendors:  map[string]bool{},
		catalog:  map[string][]SelectedService{},
	}
}

func (r *memRepo) Insert(_ context.Context, req *Request) error {
	cp := *req
	r.requests[req.ID] = &cp
	return nil
}

func (r *memRepo) Get(_ context.Context, id string) (*Request, error) {
	req, ok := r.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *req
	return &cp, nil
}

func (r *memRepo) ListForActor(_ context.Context, actorID string, status *Status, limit, offset int) ([]Request, error) {
	out := []Request{}
	for _, req := range r.requests {
		if req.ClientID != actorID && req.VendorID != actorID {
			continue
		}
		if status != nil && req.Status != *status {
			continue
		}
		out = append(out, *req)
	}
	return out, nil
}

func (r *memRepo) UpdateStatusIf(_ context.Context, id string, from, to Status, at time.Time) (bool, error) {
	req, ok := r.requests[id]
	if !ok || req.Status != from {
		return false, nil
	}
	req.Status = to
	req.StatusChangedAt = at
	return true, nil
}

func (r *memRepo) ExpireOverdue(_ context.Context, actorID string, now time.Time) ([]Expired, error) {
	flipped := []Expired{}
	for _, req := range r.requests {
		if req.ClientID != actorID && req.VendorID != actorID {
			continue
		}
		if req.Status == StatusPending && !now.Before(req.ExpiresAt) {
			req.Status = StatusExpired
			req.StatusChangedAt = now
			flipped = append(flipped, Expired{ID: req.ID, ClientID: req.ClientID})
		}
	}
	return flipped, nil
}

func (r *memRepo) VendorExists(_ context.Context, vendorID string) (bool, error) {
	return r.vendors[vendorID], nil
}

func (r *memRepo) VendorServices(_ context.Context, vendorID string, serviceIDs []string) ([]SelectedService, error) {
	byID := map[string]SelectedService{}
	for _, s := range r.catalog[vendorID] {
		byID[s.ServiceID] = s
	}
	out := make([]SelectedService, 0, len(serviceIDs))
	for _, id := range serviceIDs {
		s, ok := byID[id]
		if !ok {
			return nil, ErrServiceNotOffered
		}
		out = append(out, s)
	}
	return out, nil
}

type recordedEmit struct {
	recipientID string
	ntype       string
	reference   string
}

type fakeNotifier struct {
	emits []recordedEmit
	err   error
}

func (n *fakeNotifier) Emit(_ context.Context, recipientID, ntype, _, _, reference string) error {
	if n.err != nil {
		return n.err
	}
	n.emits = append(n.emits, recordedEmit{recipientID, ntype, reference})
	return nil
}

type fakeChats struct {
	ensured []string
	err     error
}

func (c *fakeChats) EnsureBookingThread(_ context.Context, _, _, bookingID string) error {
	if c.err != nil {
		return c.err
	}
	c.ensured = append(c.ensured, bookingID)
	return nil
}

type fakePublisher struct {
	keys []string
}

func (p *fakePublisher) Publish(routingKey string, _ any) error {
	p.keys = append(p.keys, routingKey)
	return nil
}

type completeSetup struct{ complete bool }

func (s completeSetup) IsComplete(context.Context, string) (bool, error) {
	return s.complete, nil
}

type fixture struct {
	repo     *memRepo
	notifier *fakeNotifier
	chats    *fakeChats
	pub      *fakePublisher
	svc      *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:     newMemRepo(),
		notifier: &fakeNotifier{},
		chats:    &fakeChats{},
		pub:      &fakePublisher{},
	}
	f.repo.vendors["vendor-1"] = true
	f.repo.catalog["vendor-1"] = []SelectedService{
		{ServiceID: "svc-1", Name: "Catering", PriceCents: 250000},
		{ServiceID: "svc-2", Name: "Photography", PriceCents: 120000},
	}
	f.svc = NewService(f.repo, completeSetup{complete: true}, f.notifier, f.chats, f.pub, 48*time.Hour)
	f.svc.now = func() time.Time { return baseTime }
	return f
}

func (f *fixture) at(t time.Time) { f.svc.now = func() time.Time { return t } }

func (f *fixture) create(t *testing.T) *Request {
	t.Helper()
	req, err := f.svc.Create(context.Background(), "client-1", CreateInput{
		VendorID:   "vendor-1",
		EventName:  "Garden Wedding",
		EventDate:  baseTime.Add(30 * 24 * time.Hour),
		ServiceIDs: []string{"svc-1", "svc-2"},
	})
	assert.NoError(t, err)
	return req
}

func TestCreatePendingWithSnapshot(t *testing.T) {
	f := newFixture(t)

	req := f.create(t)

	assert.Equal(t, StatusPending, req.Status)
	assert.Equal(t, baseTime.Add(48*time.Hour), req.ExpiresAt)
	assert.Equal(t, []SelectedService{
		{ServiceID: "svc-1", Name: "Catering", PriceCents: 250000},
		{ServiceID: "svc-2", Name: "Photography", PriceCents: 120000},
	}, req.Services)

	// vendor is notified, client is not
	assert.Len(t, f.notifier.emits, 1)
	assert.Equal(t, "vendor-1", f.notifier.emits[0].recipientID)
	assert.Equal(t, notify.TypeBookingRequest, f.notifier.emits[0].ntype)
	assert.Equal(t, []string{"booking.requested"}, f.pub.keys)
}

func TestCreateBlockedWhenSetupIncomplete(t *testing.T) {
	f := newFixture(t)
	f.svc.setup = completeSetup{complete: false}

	_, err := f.svc.Create(context.Background(), "client-1", CreateInput{
		VendorID:   "vendor-1",
		EventName:  "Garden Wedding",
		EventDate:  baseTime.Add(24 * time.Hour),
		ServiceIDs: []string{"svc-1"},
	})

	assert.ErrorIs(t, err, ErrVendorSetupIncomplete)
	assert.Empty(t, f.repo.requests, "no request row may exist after a failed precondition")
	assert.Empty(t, f.notifier.emits)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name string
		in   CreateInput
		want error
	}{
		{"unknown vendor", CreateInput{VendorID: "ghost", EventDate: baseTime.Add(time.Hour), ServiceIDs: []string{"svc-1"}}, ErrVendorNotFound},
		{"past event date", CreateInput{VendorID: "vendor-1", EventDate: baseTime.Add(-time.Hour), ServiceIDs: []string{"svc-1"}}, ErrEventDateInPast},
		{"no services", CreateInput{VendorID: "vendor-1", EventDate: baseTime.Add(time.Hour)}, ErrNoServicesSelected},
		{"foreign service", CreateInput{VendorID: "vendor-1", EventDate: baseTime.Add(time.Hour), ServiceIDs: []string{"other"}}, ErrServiceNotOffered},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), "client-1", tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestSnapshotSurvivesCatalogEdits(t *testing.T) {
	f := newFixture(t)
	req := f.create(t)

	// vendor doubles the live price afterwards
	f.repo.catalog["vendor-1"][0].PriceCents = 500000

	got, err := f.svc.Get(context.Background(), "client-1", req.ID)
	assert.NoError(t, err)
	assert.Equal(t, int64(250000), got.Services[0].PriceCents)
}

func TestAcceptOpensConversation(t *testing.T) {
	f := newFixture(t)
	req := f.create(t)
	f.notifier.emits = nil

	got, err := f.svc.Accept(context.Background(), "vendor-1", req.ID)

	assert.NoError(t, err)
	assert.Equal(t, StatusAccepted, got.Status)
	assert.Equal(t, []string{req.ID}, f.chats.ensured)
	assert.Len(t, f.notifier.emits, 1)
	assert.Equal(t, "client-1", f.notifier.emits[0].recipientID)
	assert.Equal(t, notify.TypeBookingAccepted, f.notifier.emits[0].ntype)
}

func TestVendorTransitionGuards(t *testing.T) {
	f := newFixture(t)
	req := f.create(t)

	_, err := f.svc.Accept(context.Background(), "client-1", req.ID)
	assert.ErrorIs(t, err, ErrNotParticipant)

	_, err = f.svc.Accept(context.Background(), "vendor-1", "no-such-id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTerminalStatesRejectTransitions(t *testing.T) {
	terminalVia := map[string]func(f *fixture, id string){
		"declined":  func(f *fixture, id string) { _, _ = f.svc.Decline(context.Background(), "vendor-1", id) },
		"cancelled": func(f *fixture, id string) { _, _ = f.svc.Cancel(context.Background(), "client-1", id) },
	}
	for name, reach := range terminalVia {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			req := f.create(t)
			reach(f, req.ID)

			_, err := f.svc.Accept(context.Background(), "vendor-1", req.ID)
			assert.ErrorIs(t, err, ErrInvalidTransition)
			_, err = f.svc.Cancel(context.Background(), "client-1", req.ID)
			assert.ErrorIs(t, err, ErrInvalidTransition)
		})
	}
}

// staleReadRepo returns pending from Get regardless of the stored status,
// reproducing what a request racing against a concurrent decision sees.
type staleReadRepo struct{ *memRepo }

func (r staleReadRepo) Get(ctx context.Context, id string) (*Request, error) {
	req, err := r.memRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	req.Status = StatusPending
	return req, nil
}

func TestConcurrentDecisionSingleWinner(t *testing.T) {
	f := newFixture(t)
	req := f.create(t)

	// First decision wins the conditional write.
	_, err := f.svc.Accept(context.Background(), "vendor-1", req.ID)
	assert.NoError(t, err)

	// The racing decline read pending before the accept committed.
	f.svc.repo = staleReadRepo{f.repo}
	_, err = f.svc.Decline(context.Background(), "vendor-1", req.ID)

	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, StatusAccepted, f.repo.requests[req.ID].Status)
}

func TestExpiredRequestCannotBeAccepted(t *testing.T) {
	f := newFixture(t)
	req := f.create(t)
	f.notifier.emits = nil

	f.at(baseTime.Add(49 * time.Hour))
	_, err := f.svc.Accept(context.Background(), "vendor-1", req.ID)

	assert.ErrorIs(t, err, ErrRequestExpired)
	assert.Equal(t, StatusExpired, f.repo.requests[req.ID].Status)
	// client is told exactly once
	assert.Len(t, f.notifier.emits, 1)
	assert.Equal(t, "client-1", f.notifier.emits[0].recipientID)
	assert.Equal(t, notify.TypeBookingExpired, f.notifier.emits[0].ntype)
}

func TestGetAppliesLazyExpiry(t *testing.T) {
	f := newFixture(t)
	req := f.create(t)
	f.notifier.emits = nil

	f.at(baseTime.Add(49 * time.Hour))
	got, err := f.svc.Get(context.Background(), "client-1", req.ID)

	assert.NoError(t, err)
	assert.Equal(t, StatusExpired, got.Status)
	assert.Equal(t, StatusExpired, f.repo.requests[req.ID].Status)
	assert.Len(t, f.notifier.emits, 1)

	// a second read does not re-notify
	_, err = f.svc.Get(context.Background(), "client-1", req.ID)
	assert.NoError(t, err)
	assert.Len(t, f.notifier.emits, 1)
}

// stalePendingRepo serves a bounded number of stale pending reads before
// falling through to the stored rows, reproducing a reader that loses the
// expiry flip to a concurrent transition.
type stalePendingRepo struct {
	*memRepo
	stale int
}

func (r *stalePendingRepo) Get(ctx context.Context, id string) (*Request, error) {
	req, err := r.memRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.stale > 0 {
		r.stale--
		req.Status = StatusPending
	}
	return req, nil
}

func TestGetReportsStoredStatusWhenExpiryLosesRace(t *testing.T) {
	f := newFixture(t)
	req := f.create(t)
	_, err := f.svc.Accept(context.Background(), "vendor-1", req.ID)
	assert.NoError(t, err)
	f.notifier.emits = nil

	// Reader saw pending past the deadline, but the accept already won.
	f.svc.repo = &stalePendingRepo{memRepo: f.repo, stale: 1}
	f.at(baseTime.Add(49 * time.Hour))

	got, err := f.svc.Get(context.Background(), "client-1", req.ID)

	assert.NoError(t, err)
	assert.Equal(t, StatusAccepted, got.Status, "reader must never observe a status that was never stored")
	assert.Empty(t, f.notifier.emits, "a lost flip must not notify")
}

func TestCancelActsOnStoredRowWhenExpiryLosesRace(t *testing.T) {
	f := newFixture(t)
	req := f.create(t)
	_, err := f.svc.Accept(context.Background(), "vendor-1", req.ID)
	assert.NoError(t, err)
	f.notifier.emits = nil

	f.svc.repo = &stalePendingRepo{memRepo: f.repo, stale: 1}
	f.at(baseTime.Add(49 * time.Hour))

	got, err := f.svc.Cancel(context.Background(), "client-1", req.ID)

	assert.NoError(t, err, "cancel from accepted stays legal after a lost expiry flip")
	assert.Equal(t, StatusCancelled, got.Status)
}

func TestAcceptAfterLostExpiryFlipReportsStoredState(t *testing.T) {
	f := newFixture(t)
	req := f.create(t)
	_, err := f.svc.Decline(context.Background(), "vendor-1", req.ID)
	assert.NoError(t, err)
	f.notifier.emits = nil

	f.svc.repo = &stalePendingRepo{memRepo: f.repo, stale: 1}
	f.at(baseTime.Add(49 * time.Hour))

	_, err = f.svc.Accept(context.Background(), "vendor-1", req.ID)

	assert.ErrorIs(t, err, ErrInvalidTransition, "declined, not expired, is the stored truth")
	assert.Equal(t, StatusDeclined, f.repo.requests[req.ID].Status)
	assert.Empty(t, f.notifier.emits)
}

func TestGetDeniedForStranger(t *testing.T) {
	f := newFixture(t)
	req := f.create(t)

	_, err := f.svc.Get(context.Background(), "someone-else", req.ID)
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestCancelFromAcceptedNotifiesOtherParty(t *testing.T) {
	f := newFixture(t)
	req := f.create(t)
	_, err := f.svc.Accept(context.Background(), "vendor-1", req.ID)
	assert.NoError(t, err)
	f.notifier.emits = nil

	got, err := f.svc.Cancel(context.Background(), "vendor-1", req.ID)

	assert.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)
	assert.Len(t, f.notifier.emits, 1)
	assert.Equal(t, "client-1", f.notifier.emits[0].recipientID)
	assert.Equal(t, notify.TypeBookingCancelled, f.notifier.emits[0].ntype)
}

func TestCancelOverduePendingExpiresInstead(t *testing.T) {
	f := newFixture(t)
	req := f.create(t)

	f.at(baseTime.Add(72 * time.Hour))
	_, err := f.svc.Cancel(context.Background(), "client-1", req.ID)

	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StatusExpired, f.repo.requests[req.ID].Status)
}

func TestCompleteRequiresEventOver(t *testing.T) {
	f := newFixture(t)
	req := f.create(t)
	_, err := f.svc.Accept(context.Background(), "vendor-1", req.ID)
	assert.NoError(t, err)

	_, err = f.svc.Complete(context.Background(), "vendor-1", req.ID)
	assert.ErrorIs(t, err, ErrEventNotOver)

	f.at(req.EventDate.Add(24 * time.Hour))
	got, err := f.svc.Complete(context.Background(), "vendor-1", req.ID)
	assert.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
}

func TestCompleteOnlyFromAccepted(t *testing.T) {
	f := newFixture(t)
	req := f.create(t)

	_, err := f.svc.Complete(context.Background(), "vendor-1", req.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestListExpiresBeforeFiltering(t *testing.T) {
	f := newFixture(t)
	req := f.create(t)
	f.notifier.emits = nil

	f.at(baseTime.Add(72 * time.Hour))
	pending := StatusPending
	got, err := f.svc.ListForActor(context.Background(), "client-1", &pending, 1, 20)

	assert.NoError(t, err)
	assert.Empty(t, got, "an overdue request must not appear under a pending filter")
	assert.Equal(t, StatusExpired, f.repo.requests[req.ID].Status)
	assert.Len(t, f.notifier.emits, 1)

	expired := StatusExpired
	got, err = f.svc.ListForActor(context.Background(), "client-1", &expired, 1, 20)
	assert.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestNotifierFailureDoesNotBlockTransition(t *testing.T) {
	f := newFixture(t)
	req := f.create(t)
	f.notifier.err = errors.New("smtp down")

	got, err := f.svc.Accept(context.Background(), "vendor-1", req.ID)

	assert.NoError(t, err)
	assert.Equal(t, StatusAccepted, got.Status)
}

func TestConversationFailureDoesNotBlockAccept(t *testing.T) {
	f := newFixture(t)
	req := f.create(t)
	f.chats.err = errors.New("store unavailable")

	got, err := f.svc.Accept(context.Background(), "vendor-1", req.ID)

	assert.NoError(t, err)
	assert.Equal(t, StatusAccepted, got.Status)
}
