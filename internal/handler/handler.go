// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/premierdelan/internal/auth"
	"github.com/Shivanand-hulikatti/premierdelan/internal/model"
	"github.com/Shivanand-hulikatti/premierdelan/internal/repository"
	"github.com/Shivanand-hulikatti/premierdelan/internal/service"
)

// EventHandler holds all HTTP handlers for the registration API.
type EventHandler struct {
	svc    *service.EventService
	logger *zap.Logger
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(svc *service.EventService, logger *zap.Logger) *EventHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventHandler{svc: svc, logger: logger.Named("http")}
}

// Routes mounts the API under r.
func (h *EventHandler) Routes(r chi.Router) {
	r.Get("/health", HealthCheck)
	r.Route("/events", func(r chi.Router) {
		r.With(RequireAdmin).Post("/", h.CreateEvent)
		r.Get("/", h.ListEvents)
		r.Get("/{id}", h.GetEvent)
		r.With(RequireAdmin).Put("/{id}/status", h.SetEventStatus)
		r.Post("/{id}/register", h.Register)
		r.With(RequireAdmin).Get("/{id}/registrations", h.ListRegistrations)
		r.Get("/{id}/registrations/{regID}", h.GetRegistration)
		r.Put("/{id}/registrations/{regID}", h.UpdateRegistration)
		r.Delete("/{id}/registrations/{regID}", h.CancelRegistration)
	})
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// callerFrom returns the authenticated caller, nil when auth is disabled.
func callerFrom(r *http.Request) *service.Caller {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		return nil
	}
	return &service.Caller{Email: claims.Email, Admin: claims.Admin}
}

// fail maps service and repository errors to a status and message.
func (h *EventHandler) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Msg)
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, repository.ErrEventFull):
		writeError(w, http.StatusConflict, "not enough seats left for this event")
	case errors.Is(err, repository.ErrAlreadyRegistered):
		writeError(w, http.StatusConflict, "you are already registered for this event")
	case errors.Is(err, repository.ErrEventClosed):
		writeError(w, http.StatusForbidden, "registrations are closed for this event")
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "this registration belongs to another account")
	default:
		h.logger.Error(fallback, zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

// ─── Handlers ─────────────────────────────────────────────────────────────────

// CreateEvent handles POST /events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.svc.CreateEvent(r.Context(), req)
	if err != nil {
		h.fail(w, r, err, "failed to create event")
		return
	}

	writeJSON(w, http.StatusCreated, event)
}

// ListEvents handles GET /events
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.ListEvents(r.Context())
	if err != nil {
		h.fail(w, r, err, "failed to list events")
		return
	}

	// Return an empty array rather than null for better client compatibility.
	if events == nil {
		events = []model.Event{}
	}

	writeJSON(w, http.StatusOK, events)
}

// GetEvent handles GET /events/{id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.svc.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		h.fail(w, r, err, "failed to get event")
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// SetEventStatus handles PUT /events/{id}/status
// Closing an event stops new registrations; existing ones stay editable.
func (h *EventHandler) SetEventStatus(w http.ResponseWriter, r *http.Request) {
	var req model.EventStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.svc.SetEventStatus(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		h.fail(w, r, err, "failed to change event status")
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// Register handles POST /events/{id}/register
// Books the whole party against the event's remaining seats.
func (h *EventHandler) Register(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req model.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	reg, err := h.svc.Register(r.Context(), callerFrom(r), id, req)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		h.fail(w, r, err, "failed to register")
		return
	}

	writeJSON(w, http.StatusCreated, reg)
}

// GetRegistration handles GET /events/{id}/registrations/{regID}
func (h *EventHandler) GetRegistration(w http.ResponseWriter, r *http.Request) {
	reg, err := h.svc.GetRegistration(r.Context(), callerFrom(r), chi.URLParam(r, "id"), chi.URLParam(r, "regID"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "registration not found")
			return
		}
		h.fail(w, r, err, "failed to get registration")
		return
	}

	writeJSON(w, http.StatusOK, reg)
}

// UpdateRegistration handles PUT /events/{id}/registrations/{regID}
func (h *EventHandler) UpdateRegistration(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	reg, err := h.svc.UpdateRegistration(r.Context(), callerFrom(r), chi.URLParam(r, "id"), chi.URLParam(r, "regID"), req)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "registration not found")
			return
		}
		h.fail(w, r, err, "failed to update registration")
		return
	}

	writeJSON(w, http.StatusOK, reg)
}

// CancelRegistration handles DELETE /events/{id}/registrations/{regID}
func (h *EventHandler) CancelRegistration(w http.ResponseWriter, r *http.Request) {
	var req model.CancelRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	err := h.svc.CancelRegistration(r.Context(), callerFrom(r), chi.URLParam(r, "id"), chi.URLParam(r, "regID"), req)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "registration not found")
			return
		}
		h.fail(w, r, err, "failed to cancel registration")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListRegistrations handles GET /events/{id}/registrations
// Returns all registrations for a given event with head count totals.
func (h *EventHandler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListRegistrations(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		h.fail(w, r, err, "failed to list registrations")
		return
	}

	writeJSON(w, http.StatusOK, list)
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
