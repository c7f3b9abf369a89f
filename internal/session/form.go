package session

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/premierdelan/internal/client"
	"github.com/Shivanand-hulikatti/premierdelan/internal/model"
	"github.com/Shivanand-hulikatti/premierdelan/internal/party"
)

// ErrSubmitted is returned by Submit once the form was accepted.
var ErrSubmitted = errors.New("registration already submitted")

// Creator creates registrations. *client.Client implements it.
type Creator interface {
	CreateRegistration(ctx context.Context, eventID string, req model.RegisterRequest) (*model.Registration, error)
}

// Form is a new registration for one event. The stepper is bounded by the
// seats the event had left when the form was opened.
type Form struct {
	api     Creator
	eventID string
	email   string
	logger  *zap.Logger

	mu     sync.Mutex
	comp   *party.Composition
	saving bool
	done   string
	errMsg string
}

// NewForm opens a form for event on behalf of email.
func NewForm(api Creator, event model.Event, email string, logger *zap.Logger) *Form {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Form{
		api:     api,
		eventID: event.ID,
		email:   email,
		logger:  logger.With(zap.String("event_id", event.ID)),
		comp:    party.ForCreate(event.Window()),
	}
}

// Composition returns the party being edited.
func (f *Form) Composition() *party.Composition {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.comp
}

// Err returns the message of the last failed submission, or "".
func (f *Form) Err() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errMsg
}

// Submit validates the party and creates the registration, returning its id.
// On any failure the composition is kept so the user can retry.
func (f *Form) Submit(ctx context.Context) (string, error) {
	f.mu.Lock()
	if f.done != "" {
		f.mu.Unlock()
		return f.done, ErrSubmitted
	}
	if f.saving {
		f.mu.Unlock()
		return "", ErrBusy
	}
	if err := f.comp.Validate(); err != nil {
		f.errMsg = err.Error()
		f.mu.Unlock()
		return "", err
	}
	req := model.FromComposition(f.email, f.comp)
	f.saving = true
	f.errMsg = ""
	f.mu.Unlock()

	reg, err := f.api.CreateRegistration(ctx, f.eventID, req)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.saving = false
	if err != nil {
		f.errMsg = client.Message(err)
		f.logger.Info("registration rejected", zap.Error(err))
		return "", err
	}
	f.done = reg.ID
	f.logger.Debug("registered", zap.String("registration_id", reg.ID), zap.Int("head_count", reg.HeadCount))
	return reg.ID, nil
}
