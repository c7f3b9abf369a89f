// Package model defines the core domain types for the event registration system.
package model

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/Shivanand-hulikatti/premierdelan/internal/party"
)

// Event status values. Only open events accept new registrations.
const (
	EventStatusOpen   = "open"
	EventStatusClosed = "closed"
)

// Event represents an event created by an administrator.
type Event struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Capacity    int       `json:"capacity"`
	BookedCount int       `json:"booked_count"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// Remaining returns the number of available seats.
func (e *Event) Remaining() int {
	return e.Capacity - e.BookedCount
}

// IsFull returns true when no seats remain.
func (e *Event) IsFull() bool {
	return e.BookedCount >= e.Capacity
}

// IsOpen reports whether the event accepts new registrations.
func (e *Event) IsOpen() bool {
	return e.Status == "" || e.Status == EventStatusOpen
}

// Window returns the capacity window a registration form is bounded by.
func (e *Event) Window() party.Window {
	return party.Window{Capacity: e.Capacity, Registered: e.BookedCount}
}

// MarshalJSON adds the derived remaining count for clients.
func (e Event) MarshalJSON() ([]byte, error) {
	type plain Event
	return json.Marshal(struct {
		plain
		Remaining int `json:"remaining"`
	}{plain(e), e.Remaining()})
}

// Registration is one party's reservation for an event.
type Registration struct {
	ID         string            `json:"id"`
	EventID    string            `json:"event_id"`
	UserEmail  string            `json:"user_email"`
	HeadCount  int               `json:"head_count"`
	Companions []party.Companion `json:"companions"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// UnmarshalJSON accepts the legacy nombre_personnes/accompagnants keys.
func (r *Registration) UnmarshalJSON(data []byte) error {
	type plain Registration
	var aux struct {
		plain
		legacyParty
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = Registration(aux.plain)
	r.HeadCount, r.Companions = aux.legacyParty.resolve(r.HeadCount, r.Companions)
	return nil
}

// Composition seeds an editable party from the registration.
func (r *Registration) Composition() *party.Composition {
	return party.ForEdit(r.HeadCount, r.Companions)
}

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=5000"`
	Capacity    int    `json:"capacity" validate:"gt=0,lte=100000"`
}

// EventStatusRequest is the payload for opening or closing an event.
type EventStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=open closed"`
}

// RegisterRequest is the payload for creating or updating a registration.
type RegisterRequest struct {
	UserEmail  string            `json:"user_email" validate:"required,email"`
	HeadCount  int               `json:"head_count" validate:"gte=1"`
	Companions []party.Companion `json:"companions"`
}

// UnmarshalJSON accepts the legacy nombre_personnes/accompagnants keys and
// normalizes them onto HeadCount and Companions.
func (r *RegisterRequest) UnmarshalJSON(data []byte) error {
	type plain RegisterRequest
	var aux struct {
		plain
		legacyParty
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&aux); err != nil {
		return err
	}
	*r = RegisterRequest(aux.plain)
	r.HeadCount, r.Companions = aux.legacyParty.resolve(r.HeadCount, r.Companions)
	return nil
}

// FromComposition builds a request body from an edited party.
func FromComposition(email string, c *party.Composition) RegisterRequest {
	return RegisterRequest{
		UserEmail:  email,
		HeadCount:  c.HeadCount(),
		Companions: c.Companions(),
	}
}

// CancelRequest is the payload for deleting a registration.
type CancelRequest struct {
	UserEmail string `json:"user_email" validate:"required,email"`
}

// legacyParty holds the key names older clients send.
type legacyParty struct {
	NombrePersonnes *int              `json:"nombre_personnes,omitempty"`
	Accompagnants   []party.Companion `json:"accompagnants,omitempty"`
}

// resolve prefers canonical values and falls back to the legacy ones.
func (l legacyParty) resolve(headCount int, companions []party.Companion) (int, []party.Companion) {
	if headCount == 0 && l.NombrePersonnes != nil {
		headCount = *l.NombrePersonnes
	}
	if companions == nil && l.Accompagnants != nil {
		companions = l.Accompagnants
	}
	return headCount, companions
}

// Summary aggregates the registrations of one event for administrators.
type Summary struct {
	Registrations   int `json:"registrations"`
	People          int `json:"people"`
	AdultCompanions int `json:"adult_companions"`
	MinorCompanions int `json:"minor_companions"`
}

// RegistrationList is the admin view of an event's registrations.
type RegistrationList struct {
	Event         *Event         `json:"event"`
	Registrations []Registration `json:"registrations"`
	Summary       Summary        `json:"summary"`
}

// Summarize counts people and companions across regs.
func Summarize(regs []Registration) Summary {
	s := Summary{Registrations: len(regs)}
	for _, r := range regs {
		s.People += r.HeadCount
		for _, c := range r.Companions {
			if c.IsAdult {
				s.AdultCompanions++
			} else {
				s.MinorCompanions++
			}
		}
	}
	return s
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
