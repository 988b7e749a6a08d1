package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/planora-app/planora/internal/notify"
)

// memStore reproduces the postgres store's semantics in memory, including
// the (pair_key, context_id) uniqueness that makes GetOrCreate idempotent.
type memStore struct {
	convs    map[string]*Conversation // by id
	unique   map[string]string        // pair_key+"|"+context_id -> id
	messages map[string][]Message
	seq      int64
}

func newMemStore() *memStore {
	return &memStore{
		convs:    map[string]*Conversation{},
		unique:   map[string]string{},
		messages: map[string][]Message{},
	}
}

func (s *memStore) GetOrCreate(_ context.Context, conv *Conversation) (*Conversation, error) {
	key := conv.PairKey + "|" + conv.ContextID
	if id, ok := s.unique[key]; ok {
		cp := *s.convs[id]
		return &cp, nil
	}
	cp := *conv
	s.convs[conv.ID] = &cp
	s.unique[key] = conv.ID
	out := cp
	return &out, nil
}

func (s *memStore) Get(_ context.Context, id string) (*Conversation, error) {
	conv, ok := s.convs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *conv
	return &cp, nil
}

func (s *memStore) ListFor(_ context.Context, userID string) ([]Conversation, error) {
	out := []Conversation{}
	for _, conv := range s.convs {
		if conv.HasParticipant(userID) {
			out = append(out, *conv)
		}
	}
	return out, nil
}

func (s *memStore) InsertMessage(_ context.Context, m *Message) error {
	s.seq++
	m.Seq = s.seq
	s.messages[m.ConversationID] = append(s.messages[m.ConversationID], *m)
	return nil
}

func (s *memStore) ListMessages(_ context.Context, conversationID string) ([]Message, error) {
	return s.messages[conversationID], nil
}

func (s *memStore) MarkRead(_ context.Context, conversationID, readerID string, at time.Time) (int64, error) {
	var n int64
	msgs := s.messages[conversationID]
	for i := range msgs {
		if msgs[i].SenderID != readerID && msgs[i].ReadAt == nil {
			t := at
			msgs[i].ReadAt = &t
			n++
		}
	}
	return n, nil
}

func (s *memStore) UnreadCount(_ context.Context, userID string) (int64, error) {
	var n int64
	for id, conv := range s.convs {
		if !conv.HasParticipant(userID) {
			continue
		}
		for _, m := range s.messages[id] {
			if m.SenderID != userID && m.ReadAt == nil {
				n++
			}
		}
	}
	return n, nil
}

type chatEmit struct {
	recipientID string
	ntype       string
	reference   string
}

type chatNotifier struct {
	emits []chatEmit
	err   error
}

func (n *chatNotifier) Emit(_ context.Context, recipientID, ntype, _, _, reference string) error {
	if n.err != nil {
		return n.err
	}
	n.emits = append(n.emits, chatEmit{recipientID, ntype, reference})
	return nil
}

func newTestRegistry() (*Registry, *memStore, *chatNotifier) {
	store := newMemStore()
	notifier := &chatNotifier{}
	return NewRegistry(store, notifier), store, notifier
}

func TestGetOrCreateIsIdempotent(t *testing.T) {
	r, store, _ := newTestRegistry()
	ctx := context.Background()

	first, err := r.GetOrCreate(ctx, "client-1", "vendor-1", PeerRoleVendor, "")
	assert.NoError(t, err)
	second, err := r.GetOrCreate(ctx, "client-1", "vendor-1", PeerRoleVendor, "")
	assert.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, store.convs, 1)
}

func TestBookingThreadDistinctFromDirectThread(t *testing.T) {
	r, store, _ := newTestRegistry()
	ctx := context.Background()

	direct, err := r.GetOrCreate(ctx, "client-1", "vendor-1", PeerRoleVendor, "")
	assert.NoError(t, err)

	assert.NoError(t, r.EnsureBookingThread(ctx, "client-1", "vendor-1", "bk-1"))
	assert.NoError(t, r.EnsureBookingThread(ctx, "client-1", "vendor-1", "bk-1"))

	assert.Len(t, store.convs, 2, "booking context opens its own thread, once")
	for _, conv := range store.convs {
		if conv.ID != direct.ID {
			assert.Equal(t, "bk-1", conv.ContextID)
		}
	}
}

func TestGetOrCreateValidation(t *testing.T) {
	r, _, _ := newTestRegistry()
	ctx := context.Background()

	_, err := r.GetOrCreate(ctx, "u1", "u1", PeerRoleVendor, "")
	assert.ErrorIs(t, err, ErrSelfConversation)

	_, err = r.GetOrCreate(ctx, "u1", "u2", "admin", "")
	assert.ErrorIs(t, err, ErrInvalidPeerRole)
}

func TestAppendNotifiesOtherParticipant(t *testing.T) {
	r, _, notifier := newTestRegistry()
	ctx := context.Background()

	conv, err := r.GetOrCreate(ctx, "client-1", "vendor-1", PeerRoleVendor, "")
	assert.NoError(t, err)

	msg, err := r.Append(ctx, conv.ID, "client-1", "Are you free on the 12th?")
	assert.NoError(t, err)
	assert.Equal(t, int64(1), msg.Seq)

	assert.Len(t, notifier.emits, 1)
	assert.Equal(t, "vendor-1", notifier.emits[0].recipientID)
	assert.Equal(t, notify.TypeNewMessage, notifier.emits[0].ntype)
	assert.Equal(t, conv.ID, notifier.emits[0].reference)
}

func TestAppendGuards(t *testing.T) {
	r, _, _ := newTestRegistry()
	ctx := context.Background()

	conv, err := r.GetOrCreate(ctx, "client-1", "vendor-1", PeerRoleVendor, "")
	assert.NoError(t, err)

	_, err = r.Append(ctx, conv.ID, "client-1", "")
	assert.ErrorIs(t, err, ErrEmptyBody)

	_, err = r.Append(ctx, conv.ID, "stranger", "hello")
	assert.ErrorIs(t, err, ErrNotParticipant)

	_, err = r.Append(ctx, "no-such-thread", "client-1", "hello")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAppendSurvivesNotifierFailure(t *testing.T) {
	r, store, notifier := newTestRegistry()
	ctx := context.Background()
	notifier.err = errors.New("queue down")

	conv, err := r.GetOrCreate(ctx, "client-1", "vendor-1", PeerRoleVendor, "")
	assert.NoError(t, err)

	_, err = r.Append(ctx, conv.ID, "client-1", "still delivered")
	assert.NoError(t, err)
	assert.Len(t, store.messages[conv.ID], 1)
}

func TestMessagesKeepAppendOrder(t *testing.T) {
	r, _, _ := newTestRegistry()
	ctx := context.Background()

	conv, err := r.GetOrCreate(ctx, "client-1", "vendor-1", PeerRoleVendor, "")
	assert.NoError(t, err)

	for _, body := range []string{"first", "second", "third"} {
		_, err := r.Append(ctx, conv.ID, "client-1", body)
		assert.NoError(t, err)
	}

	msgs, err := r.ListMessages(ctx, conv.ID, "vendor-1")
	assert.NoError(t, err)
	assert.Len(t, msgs, 3)
	assert.Equal(t, "first", msgs[0].Body)
	assert.Equal(t, "third", msgs[2].Body)
	assert.Less(t, msgs[0].Seq, msgs[2].Seq)
}

func TestListMessagesDeniedForStranger(t *testing.T) {
	r, _, _ := newTestRegistry()
	ctx := context.Background()

	conv, err := r.GetOrCreate(ctx, "client-1", "vendor-1", PeerRoleVendor, "")
	assert.NoError(t, err)

	_, err = r.ListMessages(ctx, conv.ID, "stranger")
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestUnreadCountAndMarkRead(t *testing.T) {
	r, _, _ := newTestRegistry()
	ctx := context.Background()

	conv, err := r.GetOrCreate(ctx, "client-1", "vendor-1", PeerRoleVendor, "")
	assert.NoError(t, err)

	for _, body := range []string{"one", "two"} {
		_, err := r.Append(ctx, conv.ID, "client-1", body)
		assert.NoError(t, err)
	}
	_, err = r.Append(ctx, conv.ID, "vendor-1", "reply")
	assert.NoError(t, err)

	// own messages never count as unread
	n, err := r.UnreadCount(ctx, "vendor-1")
	assert.NoError(t, err)
	assert.Equal(t, int64(2), n)

	updated, err := r.MarkRead(ctx, conv.ID, "vendor-1")
	assert.NoError(t, err)
	assert.Equal(t, int64(2), updated)

	n, err = r.UnreadCount(ctx, "vendor-1")
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)

	// the client still has the vendor's reply unread
	n, err = r.UnreadCount(ctx, "client-1")
	assert.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestPairKeyIsOrderIndependent(t *testing.T) {
	assert.Equal(t, PairKey("b", "a"), PairKey("a", "b"))
}
