package chat

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/planora-app/planora/internal/notify"
)

var (
	ErrNotFound         = errors.New("conversation not found")
	ErrNotParticipant   = errors.New("not a participant in this conversation")
	ErrEmptyBody        = errors.New("message body must not be empty")
	ErrSelfConversation = errors.New("cannot open a conversation with yourself")
	ErrInvalidPeerRole  = errors.New("peer role must be vendor or support")
)

// Notifier delivers the new-message notification; best-effort from the
// registry's point of view.
type Notifier interface {
	Emit(ctx context.Context, recipientID, ntype, title, body, reference string) error
}

// Registry maps participant pairs to persistent threads and owns message
// append/read bookkeeping.
type Registry struct {
	store    Store
	notifier Notifier
	now      func() time.Time
}

func NewRegistry(store Store, notifier Notifier) *Registry {
	return &Registry{store: store, notifier: notifier, now: time.Now}
}

// GetOrCreate is idempotent: identical participants and context always
// resolve to the same conversation.
func (r *Registry) GetOrCreate(ctx context.Context, clientID, peerID, peerRole, contextID string) (*Conversation, error) {
	if clientID == peerID {
		return nil, ErrSelfConversation
	}
	if peerRole != PeerRoleVendor && peerRole != PeerRoleSupport {
		return nil, ErrInvalidPeerRole
	}

	conv := &Conversation{
		ID:        uuid.New().String(),
		PairKey:   PairKey(clientID, peerID),
		ContextID: contextID,
		ClientID:  clientID,
		PeerID:    peerID,
		PeerRole:  peerRole,
		CreatedAt: r.now(),
	}
	return r.store.GetOrCreate(ctx, conv)
}

// EnsureBookingThread opens the client-vendor thread keyed by booking id.
// Called by the booking engine on first contact (acceptance).
func (r *Registry) EnsureBookingThread(ctx context.Context, clientID, vendorID, bookingID string) error {
	_, err := r.GetOrCreate(ctx, clientID, vendorID, PeerRoleVendor, bookingID)
	return err
}

// Append adds a message to the thread and notifies the other participant.
func (r *Registry) Append(ctx context.Context, conversationID, senderID, body string) (*Message, error) {
	if body == "" {
		return nil, ErrEmptyBody
	}

	conv, err := r.store.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(senderID) {
		return nil, ErrNotParticipant
	}

	msg := &Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Body:           body,
		CreatedAt:      r.now(),
	}
	if err := r.store.InsertMessage(ctx, msg); err != nil {
		return nil, err
	}

	recipient := conv.OtherParticipant(senderID)
	if err := r.notifier.Emit(ctx, recipient, notify.TypeNewMessage, "New message", body, conversationID); err != nil {
		log.Printf("[chat] notification emit failed for %s: %v", conversationID, err)
	}

	return msg, nil
}

// ListMessages returns the thread in append order.
func (r *Registry) ListMessages(ctx context.Context, conversationID, requesterID string) ([]Message, error) {
	conv, err := r.store.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(requesterID) {
		return nil, ErrNotParticipant
	}
	return r.store.ListMessages(ctx, conversationID)
}

// MarkRead flips the reader's unread incoming messages in the thread.
func (r *Registry) MarkRead(ctx context.Context, conversationID, readerID string) (int64, error) {
	conv, err := r.store.Get(ctx, conversationID)
	if err != nil {
		return 0, err
	}
	if !conv.HasParticipant(readerID) {
		return 0, ErrNotParticipant
	}
	return r.store.MarkRead(ctx, conversationID, readerID, r.now())
}

// ListFor returns the user's conversations, newest first.
func (r *Registry) ListFor(ctx context.Context, userID string) ([]Conversation, error) {
	return r.store.ListFor(ctx, userID)
}

// UnreadCount answers the badge query across all of the user's threads.
func (r *Registry) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return r.store.UnreadCount(ctx, userID)
}
