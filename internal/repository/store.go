package repository

import (
	"context"
	"errors"

	"github.com/Shivanand-hulikatti/premierdelan/internal/model"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrEventFull is returned when an event has not enough seats left for a party.
var ErrEventFull = errors.New("not enough seats left for this event")

// ErrAlreadyRegistered is returned when the same email registers twice.
var ErrAlreadyRegistered = errors.New("email already registered for this event")

// ErrEventClosed is returned when an event no longer accepts registrations.
var ErrEventClosed = errors.New("registrations are closed for this event")

// EventStore persists events.
type EventStore interface {
	Create(ctx context.Context, req model.CreateEventRequest) (*model.Event, error)
	List(ctx context.Context) ([]model.Event, error)
	GetByID(ctx context.Context, id string) (*model.Event, error)
	// SetStatus opens or closes an event. Existing registrations are kept.
	SetStatus(ctx context.Context, id, status string) error
}

// RegistrationStore persists registrations and keeps each event's
// booked_count equal to the sum of its registrations' head counts.
type RegistrationStore interface {
	Book(ctx context.Context, eventID string, req model.RegisterRequest) (*model.Registration, error)
	// Amend replaces the party of a registration. The registration's own
	// previous head count does not count against the capacity check.
	Amend(ctx context.Context, eventID, regID string, req model.RegisterRequest) (*model.Registration, error)
	Cancel(ctx context.Context, eventID, regID string) error
	GetByID(ctx context.Context, eventID, regID string) (*model.Registration, error)
	ListByEvent(ctx context.Context, eventID string) ([]model.Registration, error)
}

// SeatsAvailable reports whether a party of headCount fits, given the
// event's totals and the seats the same registration already holds.
func SeatsAvailable(capacity, booked, held, headCount int) bool {
	return booked-held+headCount <= capacity
}
