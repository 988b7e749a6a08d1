package booking

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusDeclined  Status = "declined"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// Terminal reports whether no further transition is permitted from s.
func (s Status) Terminal() bool {
	switch s {
	case StatusDeclined, StatusExpired, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

func ParseStatus(raw string) (Status, bool) {
	switch Status(raw) {
	case StatusPending, StatusAccepted, StatusDeclined, StatusExpired, StatusCancelled, StatusCompleted:
		return Status(raw), true
	}
	return "", false
}

// SelectedService is a by-value price snapshot captured at request time.
// It never tracks later edits to the vendor's live pricing.
type SelectedService struct {
	ServiceID  string `json:"service_id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
}

type Request struct {
	ID              string            `json:"id"`
	ClientID        string            `json:"client_id"`
	VendorID        string            `json:"vendor_id"`
	EventName       string            `json:"event_name"`
	EventType       string            `json:"event_type"`
	EventDate       time.Time         `json:"event_date"`
	StartTime       string            `json:"start_time"`
	EndTime         string            `json:"end_time"`
	Location        string            `json:"location"`
	GuestCount      int               `json:"guest_count"`
	Notes           string            `json:"notes"`
	Services        []SelectedService `json:"services"`
	Status          Status            `json:"status"`
	CreatedAt       time.Time         `json:"created_at"`
	StatusChangedAt time.Time         `json:"status_changed_at"`
	ExpiresAt       time.Time         `json:"expires_at"`
}

// CreateInput carries the client's submission; service ids are resolved
// against the vendor's live catalog at creation time.
type CreateInput struct {
	VendorID   string    `json:"vendor_id"`
	EventName  string    `json:"event_name"`
	EventType  string    `json:"event_type"`
	EventDate  time.Time `json:"event_date"`
	StartTime  string    `json:"start_time"`
	EndTime    string    `json:"end_time"`
	Location   string    `json:"location"`
	GuestCount int       `json:"guest_count"`
	Notes      string    `json:"notes"`
	ServiceIDs []string  `json:"service_ids"`
}
