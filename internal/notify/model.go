package notify

import "time"

// Notification type constants
const (
	TypeBookingRequest   = "booking-request"
	TypeBookingAccepted  = "booking-accepted"
	TypeBookingDeclined  = "booking-declined"
	TypeBookingExpired   = "booking-expired"
	TypeBookingCancelled = "booking-cancelled"
	TypeNewMessage       = "new-message"
	TypePayment          = "payment"
	TypeSystem           = "system"
)

// Notification is immutable once created except for the read timestamp.
type Notification struct {
	ID          string     `json:"id"`
	RecipientID string     `json:"recipient_id"`
	Type        string     `json:"type"`
	Title       string     `json:"title"`
	Body        string     `json:"body"`
	Reference   string     `json:"reference,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
}

func (n *Notification) Read() bool { return n.ReadAt != nil }
