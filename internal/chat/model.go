package chat

import (
	"strings"
	"time"
)

const (
	PeerRoleVendor  = "vendor"
	PeerRoleSupport = "support"
)

// Conversation is a persistent thread between a client and a peer
// (vendor or support agent). A booking-derived thread is additionally
// keyed by the booking id so unrelated threads between the same two
// users never merge.
type Conversation struct {
	ID        string    `json:"id"`
	PairKey   string    `json:"-"`
	ContextID string    `json:"context_id,omitempty"`
	ClientID  string    `json:"client_id"`
	PeerID    string    `json:"peer_id"`
	PeerRole  string    `json:"peer_role"`
	CreatedAt time.Time `json:"created_at"`
}

func (c *Conversation) HasParticipant(userID string) bool {
	return userID == c.ClientID || userID == c.PeerID
}

// OtherParticipant returns the counterpart of userID in the thread.
func (c *Conversation) OtherParticipant(userID string) string {
	if userID == c.ClientID {
		return c.PeerID
	}
	return c.ClientID
}

// Messages are append-only; correction is by sending a new message.
type Message struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversation_id"`
	SenderID       string     `json:"sender_id"`
	Body           string     `json:"body"`
	Seq            int64      `json:"seq"`
	CreatedAt      time.Time  `json:"created_at"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
}

// PairKey normalizes a participant pair into an order-independent key.
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return strings.Join([]string{a, b}, ":")
}
