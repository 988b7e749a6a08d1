package notify

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
)

// Emailer mirrors a notification onto the email queue. Optional: a nil
// emailer disables email fan-out entirely.
type Emailer interface {
	EnqueueNotificationEmail(recipientID, ntype, title, body, reference string) error
}

// Dispatcher creates notification records and answers badge queries.
// Unread counts are computed per call; there is no cached counter to drift.
type Dispatcher struct {
	store Store
	email Emailer
	now   func() time.Time
}

func NewDispatcher(store Store, email Emailer) *Dispatcher {
	return &Dispatcher{store: store, email: email, now: time.Now}
}

// Emit records a notification for the recipient. Callers treat the whole
// thing as best-effort; the email mirror additionally never fails Emit.
func (d *Dispatcher) Emit(ctx context.Context, recipientID, ntype, title, body, reference string) error {
	n := &Notification{
		ID:          uuid.New().String(),
		RecipientID: recipientID,
		Type:        ntype,
		Title:       title,
		Body:        body,
		Reference:   reference,
		CreatedAt:   d.now(),
	}
	if err := d.store.Insert(ctx, n); err != nil {
		return err
	}

	if d.email != nil {
		if err := d.email.EnqueueNotificationEmail(recipientID, ntype, title, body, reference); err != nil {
			log.Printf("[notify] email enqueue failed (type=%s): %v", ntype, err)
		}
	}
	return nil
}

func (d *Dispatcher) ListFor(ctx context.Context, recipientID string, unreadOnly bool) ([]Notification, error) {
	return d.store.ListFor(ctx, recipientID, unreadOnly)
}

func (d *Dispatcher) MarkRead(ctx context.Context, id, recipientID string) (bool, error) {
	return d.store.MarkRead(ctx, id, recipientID, d.now())
}

func (d *Dispatcher) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	return d.store.MarkAllRead(ctx, recipientID, d.now())
}

func (d *Dispatcher) UnreadCount(ctx context.Context, recipientID string) (int64, error) {
	return d.store.UnreadCount(ctx, recipientID)
}
