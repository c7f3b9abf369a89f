package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/premierdelan/internal/client"
	"github.com/Shivanand-hulikatti/premierdelan/internal/model"
	"github.com/Shivanand-hulikatti/premierdelan/internal/party"
)

// Registrar is the part of the API an existing registration needs.
// *client.Client implements it.
type Registrar interface {
	GetRegistration(ctx context.Context, eventID, regID string) (*model.Registration, error)
	UpdateRegistration(ctx context.Context, eventID, regID string, req model.RegisterRequest) (*model.Registration, error)
	DeleteRegistration(ctx context.Context, eventID, regID, email string) error
}

// Manager is the self-service view of one registration. It starts in
// ModeView; edits happen on a working copy that only replaces the known-good
// registration once the server accepted it.
//
// Working copies are not safe for concurrent mutation; the Manager itself is.
type Manager struct {
	api     Registrar
	eventID string
	logger  *zap.Logger

	mu        sync.Mutex
	mode      Mode
	current   model.Registration
	working   *party.Composition
	saving    bool
	errMsg    string
	onClosed  func()
	onUpdated func(model.Registration)
}

// NewManager returns a Manager in ModeView for reg. A nil logger disables
// logging.
func NewManager(api Registrar, eventID string, reg model.Registration, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		api:     api,
		eventID: eventID,
		current: reg,
		logger:  logger.With(zap.String("event_id", eventID), zap.String("registration_id", reg.ID)),
	}
}

// OnClosed registers fn to run after the registration was deleted, so the
// caller can refresh its list.
func (m *Manager) OnClosed(fn func()) {
	m.mu.Lock()
	m.onClosed = fn
	m.mu.Unlock()
}

// OnUpdated registers fn to run with the server's copy after a successful edit.
func (m *Manager) OnUpdated(fn func(model.Registration)) {
	m.mu.Lock()
	m.onUpdated = fn
	m.mu.Unlock()
}

// Mode returns the current mode.
func (m *Manager) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// Registration returns the last registration confirmed by the server.
func (m *Manager) Registration() model.Registration {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg := m.current
	reg.Companions = append([]party.Companion(nil), m.current.Companions...)
	return reg
}

// Err returns the message of the last failure, or "".
func (m *Manager) Err() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errMsg
}

// Saving reports whether a request is in flight.
func (m *Manager) Saving() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saving
}

// BeginEdit enters ModeEdit with a working copy of the registration's party.
func (m *Manager) BeginEdit() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.setMode(ModeEdit); err != nil {
		return err
	}
	m.working = party.ForEdit(m.current.HeadCount, m.current.Companions)
	return nil
}

// Working returns the working copy while in ModeEdit, nil otherwise.
func (m *Manager) Working() *party.Composition {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mode != ModeEdit {
		return nil
	}
	return m.working
}

// Commit validates the working copy and sends it to the server. A local
// validation error makes no request. On success the registration is re-read
// and the manager returns to ModeView; on failure it stays in ModeEdit with
// the working copy untouched.
func (m *Manager) Commit(ctx context.Context) error {
	m.mu.Lock()
	if m.mode != ModeEdit {
		defer m.mu.Unlock()
		return wrongMode("commit", m.mode)
	}
	if m.saving {
		m.mu.Unlock()
		return ErrBusy
	}
	if err := m.working.Validate(); err != nil {
		m.errMsg = err.Error()
		m.mu.Unlock()
		return err
	}
	req := model.FromComposition(m.current.UserEmail, m.working)
	regID := m.current.ID
	m.saving = true
	m.errMsg = ""
	m.mu.Unlock()

	updated, err := m.api.UpdateRegistration(ctx, m.eventID, regID, req)
	if err == nil {
		fresh, gerr := m.api.GetRegistration(ctx, m.eventID, regID)
		if gerr != nil {
			m.logger.Warn("re-read after update failed", zap.Error(gerr))
		} else {
			updated = fresh
		}
	}

	m.mu.Lock()
	m.saving = false
	if err != nil {
		if m.mode != ModeClosed {
			m.errMsg = client.Message(err)
		}
		m.mu.Unlock()
		m.logger.Info("update rejected", zap.Error(err))
		return err
	}
	if m.mode == ModeClosed {
		m.mu.Unlock()
		return nil
	}
	m.current = *updated
	m.working = nil
	m.mode = ModeView
	notify := m.onUpdated
	m.mu.Unlock()

	m.logger.Debug("registration updated", zap.Int("head_count", updated.HeadCount))
	if notify != nil {
		notify(*updated)
	}
	return nil
}

// BeginDelete enters the delete confirmation.
func (m *Manager) BeginDelete() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setMode(ModeDelete)
}

// ConfirmDelete deletes the registration. Success closes the manager and
// runs the OnClosed callback; failure stays in ModeDelete.
func (m *Manager) ConfirmDelete(ctx context.Context) error {
	m.mu.Lock()
	if m.mode != ModeDelete {
		defer m.mu.Unlock()
		return wrongMode("confirm delete", m.mode)
	}
	if m.saving {
		m.mu.Unlock()
		return ErrBusy
	}
	regID, email := m.current.ID, m.current.UserEmail
	m.saving = true
	m.errMsg = ""
	m.mu.Unlock()

	err := m.api.DeleteRegistration(ctx, m.eventID, regID, email)

	m.mu.Lock()
	m.saving = false
	if m.mode == ModeClosed {
		// Closed by the host while the request was in flight.
		m.mu.Unlock()
		return err
	}
	if err != nil {
		m.errMsg = client.Message(err)
		m.mu.Unlock()
		m.logger.Info("delete rejected", zap.Error(err))
		return err
	}
	m.mode = ModeClosed
	m.working = nil
	notify := m.onClosed
	m.mu.Unlock()

	m.logger.Debug("registration deleted")
	if notify != nil {
		notify()
	}
	return nil
}

// Cancel leaves ModeEdit or ModeDelete for ModeView, dropping the working copy.
func (m *Manager) Cancel() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saving {
		return ErrBusy
	}
	if m.mode == ModeView {
		return wrongMode("cancel", m.mode)
	}
	if err := m.setMode(ModeView); err != nil {
		return err
	}
	m.working = nil
	return nil
}

// Close tears the manager down. A request still in flight completes but its
// result is no longer applied.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mode = ModeClosed
	m.working = nil
	m.errMsg = ""
}

// setMode must be called with mu held.
func (m *Manager) setMode(next Mode) error {
	if err := transition(m.mode, next); err != nil {
		return err
	}
	m.logger.Debug("mode", zap.Stringer("from", m.mode), zap.Stringer("to", next))
	m.mode = next
	m.errMsg = ""
	return nil
}
