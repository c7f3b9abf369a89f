// Package session drives the registration forms of a client: the
// new-registration form and the view/edit/delete manager of an existing
// registration.
package session

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned when an action is not allowed in the
	// current mode.
	ErrInvalidTransition = errors.New("invalid mode transition")
	// ErrBusy is returned while a request of the same form is in flight.
	ErrBusy = errors.New("a request is already in progress")
)

// Mode is the state of a registration manager.
type Mode int

const (
	ModeView Mode = iota
	ModeEdit
	ModeDelete
	ModeClosed
)

func (m Mode) String() string {
	switch m {
	case ModeView:
		return "view"
	case ModeEdit:
		return "edit"
	case ModeDelete:
		return "delete"
	case ModeClosed:
		return "closed"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// transitions lists the modes reachable from each mode. Closed is reachable
// from everywhere and is handled separately.
var transitions = map[Mode][]Mode{
	ModeView:   {ModeEdit, ModeDelete},
	ModeEdit:   {ModeView},
	ModeDelete: {ModeView},
}

// CanTransition reports whether the manager may move from m to next.
func (m Mode) CanTransition(next Mode) bool {
	if next == ModeClosed {
		return true
	}
	for _, to := range transitions[m] {
		if to == next {
			return true
		}
	}
	return false
}

func transition(from, to Mode) error {
	if !from.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

func wrongMode(action string, m Mode) error {
	return fmt.Errorf("%w: cannot %s in %s mode", ErrInvalidTransition, action, m)
}
