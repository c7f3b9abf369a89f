// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/premierdelan/internal/model"
	"github.com/Shivanand-hulikatti/premierdelan/internal/party"
	"github.com/Shivanand-hulikatti/premierdelan/internal/repository"
)

var tracer = otel.GetTracerProvider().Tracer("github.com/Shivanand-hulikatti/premierdelan/internal/service")

// ErrForbidden is returned when the caller does not own the registration.
var ErrForbidden = errors.New("registration belongs to another account")

// ValidationError is a request the service refused before touching storage.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func invalid(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// Caller identifies who issues a request. A nil Caller means authentication
// is disabled and ownership is not enforced.
type Caller struct {
	Email string
	Admin bool
}

func (c *Caller) owns(email string) bool {
	return c == nil || c.Admin || strings.EqualFold(c.Email, email)
}

// EventService orchestrates event and registration operations.
type EventService struct {
	events        repository.EventStore
	registrations repository.RegistrationStore
	validate      *validator.Validate
	logger        *zap.Logger
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(
	events repository.EventStore,
	registrations repository.RegistrationStore,
	logger *zap.Logger,
) *EventService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventService{
		events:        events,
		registrations: registrations,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		logger:        logger.Named("service"),
	}
}

// CreateEvent validates the request and delegates to the repository.
func (s *EventService) CreateEvent(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validate.Struct(req); err != nil {
		return nil, describe(err)
	}
	event, err := s.events.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	s.logger.Info("event created", zap.String("event_id", event.ID), zap.Int("capacity", event.Capacity))
	return event, nil
}

// ListEvents returns all events.
func (s *EventService) ListEvents(ctx context.Context) ([]model.Event, error) {
	return s.events.List(ctx)
}

// GetEvent returns a single event by ID.
func (s *EventService) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	if id == "" {
		return nil, invalid("event id is required")
	}
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

// SetEventStatus opens or closes an event for new registrations and returns
// the updated event.
func (s *EventService) SetEventStatus(ctx context.Context, id string, req model.EventStatusRequest) (*model.Event, error) {
	ctx, span := tracer.Start(ctx, "SetEventStatus")
	defer span.End()
	span.SetAttributes(attribute.String("event.id", id), attribute.String("event.status", req.Status))

	req.Status = strings.ToLower(strings.TrimSpace(req.Status))
	if err := s.validate.Struct(req); err != nil {
		return nil, describe(err)
	}
	if err := s.events.SetStatus(ctx, id, req.Status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("set event status: %w", err)
	}
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("event status changed", zap.String("event_id", id), zap.String("status", event.Status))
	return event, nil
}

// Register validates the party and books it against the event's capacity.
func (s *EventService) Register(ctx context.Context, caller *Caller, eventID string, req model.RegisterRequest) (*model.Registration, error) {
	ctx, span := tracer.Start(ctx, "Register")
	defer span.End()
	span.SetAttributes(attribute.String("event.id", eventID), attribute.Int("party.head_count", req.HeadCount))

	if eventID == "" {
		return nil, invalid("event id is required")
	}
	if err := s.checkParty(&req); err != nil {
		return nil, err
	}
	if !caller.owns(req.UserEmail) {
		return nil, ErrForbidden
	}

	reg, err := s.registrations.Book(ctx, eventID, req)
	if err != nil {
		span.RecordError(err)
		if isDomainErr(err) {
			s.logger.Info("registration refused", zap.String("event_id", eventID), zap.Int("head_count", req.HeadCount), zap.Error(err))
			return nil, err
		}
		span.SetStatus(codes.Error, "book failed")
		return nil, fmt.Errorf("register for event: %w", err)
	}
	s.logger.Info("registration created",
		zap.String("event_id", eventID), zap.String("registration_id", reg.ID), zap.Int("head_count", reg.HeadCount))
	return reg, nil
}

// GetRegistration returns one registration if the caller may see it.
func (s *EventService) GetRegistration(ctx context.Context, caller *Caller, eventID, regID string) (*model.Registration, error) {
	reg, err := s.registrations.GetByID(ctx, eventID, regID)
	if err != nil {
		return nil, err
	}
	if !caller.owns(reg.UserEmail) {
		return nil, ErrForbidden
	}
	return reg, nil
}

// UpdateRegistration replaces the party of an existing registration. The
// registration's previous head count is released before the capacity check.
func (s *EventService) UpdateRegistration(ctx context.Context, caller *Caller, eventID, regID string, req model.RegisterRequest) (*model.Registration, error) {
	ctx, span := tracer.Start(ctx, "UpdateRegistration")
	defer span.End()
	span.SetAttributes(
		attribute.String("event.id", eventID),
		attribute.String("registration.id", regID),
		attribute.Int("party.head_count", req.HeadCount),
	)

	if err := s.checkParty(&req); err != nil {
		return nil, err
	}
	current, err := s.registrations.GetByID(ctx, eventID, regID)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(current.UserEmail, req.UserEmail) || !caller.owns(current.UserEmail) {
		return nil, ErrForbidden
	}

	reg, err := s.registrations.Amend(ctx, eventID, regID, req)
	if err != nil {
		span.RecordError(err)
		if isDomainErr(err) {
			return nil, err
		}
		span.SetStatus(codes.Error, "amend failed")
		return nil, fmt.Errorf("update registration: %w", err)
	}
	s.logger.Info("registration updated",
		zap.String("registration_id", regID), zap.Int("from", current.HeadCount), zap.Int("to", reg.HeadCount))
	return reg, nil
}

// CancelRegistration deletes a registration owned by email.
func (s *EventService) CancelRegistration(ctx context.Context, caller *Caller, eventID, regID string, req model.CancelRequest) error {
	req.UserEmail = normalizeEmail(req.UserEmail)
	if err := s.validate.Struct(req); err != nil {
		return describe(err)
	}
	current, err := s.registrations.GetByID(ctx, eventID, regID)
	if err != nil {
		return err
	}
	if !strings.EqualFold(current.UserEmail, req.UserEmail) || !caller.owns(current.UserEmail) {
		return ErrForbidden
	}
	if err := s.registrations.Cancel(ctx, eventID, regID); err != nil {
		if isDomainErr(err) {
			return err
		}
		return fmt.Errorf("cancel registration: %w", err)
	}
	s.logger.Info("registration cancelled", zap.String("registration_id", regID), zap.Int("released", current.HeadCount))
	return nil
}

// ListRegistrations returns all registrations for an event with totals.
func (s *EventService) ListRegistrations(ctx context.Context, eventID string) (*model.RegistrationList, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, repository.ErrNotFound
	}
	regs, err := s.registrations.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if regs == nil {
		regs = []model.Registration{}
	}
	return &model.RegistrationList{
		Event:         event,
		Registrations: regs,
		Summary:       model.Summarize(regs),
	}, nil
}

// checkParty normalizes the email and applies the party composition rules
// the registration forms enforce client-side.
func (s *EventService) checkParty(req *model.RegisterRequest) error {
	req.UserEmail = normalizeEmail(req.UserEmail)
	if err := s.validate.Struct(req); err != nil {
		return describe(err)
	}
	if err := party.CheckConsistency(req.HeadCount, req.Companions); err != nil {
		return invalid("%s", err.Error())
	}
	for i := range req.Companions {
		req.Companions[i].FirstName = strings.TrimSpace(req.Companions[i].FirstName)
		req.Companions[i].LastName = strings.TrimSpace(req.Companions[i].LastName)
	}
	if err := party.ValidateCompanions(req.Companions); err != nil {
		return invalid("%s", err.Error())
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

// isDomainErr reports errors handlers map to a specific status.
func isDomainErr(err error) bool {
	return errors.Is(err, repository.ErrNotFound) ||
		errors.Is(err, repository.ErrEventFull) ||
		errors.Is(err, repository.ErrAlreadyRegistered) ||
		errors.Is(err, repository.ErrEventClosed)
}

// describe turns validator errors into a single readable message.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return invalid("%s", err.Error())
	}
	fe := verrs[0]
	field := jsonName(fe.Field())
	switch fe.Tag() {
	case "required":
		return invalid("%s is required", field)
	case "email":
		return invalid("%s is not a valid email address", field)
	case "gte", "gt":
		return invalid("%s must be at least %s", field, minOf(fe))
	case "lte", "max":
		return invalid("%s cannot exceed %s", field, fe.Param())
	case "oneof":
		return invalid("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return invalid("%s is invalid", field)
	}
}

func minOf(fe validator.FieldError) string {
	if fe.Tag() == "gt" {
		if n, err := strconv.Atoi(fe.Param()); err == nil {
			return strconv.Itoa(n + 1)
		}
	}
	return fe.Param()
}

var jsonNames = map[string]string{
	"UserEmail":   "user_email",
	"HeadCount":   "head_count",
	"Name":        "event name",
	"Description": "description",
	"Capacity":    "capacity",
	"Status":      "status",
}

func jsonName(field string) string {
	if n, ok := jsonNames[field]; ok {
		return n
	}
	return field
}
