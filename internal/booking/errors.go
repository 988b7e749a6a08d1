package booking

import "errors"

var (
	ErrNotFound              = errors.New("booking request not found")
	ErrVendorNotFound        = errors.New("vendor not found")
	ErrVendorSetupIncomplete = errors.New("vendor has not completed setup")
	ErrEventDateInPast       = errors.New("event date must be in the future")
	ErrEventNotOver          = errors.New("event date has not passed yet")
	ErrNoServicesSelected    = errors.New("at least one service must be selected")
	ErrServiceNotOffered     = errors.New("selected service is not offered by this vendor")
	ErrInvalidTransition     = errors.New("booking request does not allow this transition")
	ErrRequestExpired        = errors.New("booking request has expired")
	ErrConflict              = errors.New("booking request was modified concurrently")
	ErrNotParticipant        = errors.New("not a participant in this booking request")
)
