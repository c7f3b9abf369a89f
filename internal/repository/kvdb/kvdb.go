// Package kvdb stores events and registrations in a bbolt file.
//
// Every booking mutation runs inside one bolt write transaction. bbolt allows
// a single writer at a time, which gives the same serialisation the postgres
// repository gets from SELECT … FOR UPDATE.
package kvdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Shivanand-hulikatti/premierdelan/internal/model"
	"github.com/Shivanand-hulikatti/premierdelan/internal/party"
	"github.com/Shivanand-hulikatti/premierdelan/internal/repository"
)

var tracer = otel.GetTracerProvider().Tracer("github.com/Shivanand-hulikatti/premierdelan/internal/repository/kvdb")

const (
	bucketEvents = "events"
	// bucketRegistrations holds one nested bucket per event id.
	bucketRegistrations = "registrations"
)

// Open opens (or creates) the bolt file at path and ensures the buckets exist.
func Open(path string) (*bolt.DB, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{bucketEvents, bucketRegistrations} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}
	return db, nil
}

// EventStore is the bolt implementation of repository.EventStore.
type EventStore struct {
	db *bolt.DB
}

// NewEventStore returns an EventStore over a database opened with Open.
func NewEventStore(db *bolt.DB) *EventStore {
	return &EventStore{db: db}
}

// Create stores a new open event under a generated UUID.
func (s *EventStore) Create(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	_, span := tracer.Start(ctx, "CreateEvent")
	defer span.End()

	event := &model.Event{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
		Capacity:    req.Capacity,
		Status:      model.EventStatusOpen,
		CreatedAt:   time.Now().UTC(),
	}
	span.SetAttributes(attribute.String("event.id", event.ID))

	err := s.db.Update(func(tx *bolt.Tx) error {
		return putEvent(tx, event)
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return event, nil
}

// List returns all events, newest first.
func (s *EventStore) List(ctx context.Context) ([]model.Event, error) {
	_, span := tracer.Start(ctx, "ListEvents")
	defer span.End()

	var events []model.Event
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketEvents)).ForEach(func(_, v []byte) error {
			var e model.Event
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			events = append(events, e)
			return nil
		})
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list events: %w", err)
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].CreatedAt.After(events[j].CreatedAt)
	})
	return events, nil
}

// GetByID returns a single event or repository.ErrNotFound.
func (s *EventStore) GetByID(ctx context.Context, id string) (*model.Event, error) {
	_, span := tracer.Start(ctx, "GetEvent", trace.WithAttributes(attribute.String("event.id", id)))
	defer span.End()

	var event *model.Event
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		event, err = getEvent(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

// SetStatus opens or closes an event for new registrations.
func (s *EventStore) SetStatus(ctx context.Context, id, status string) error {
	_, span := tracer.Start(ctx, "SetEventStatus")
	defer span.End()

	return s.db.Update(func(tx *bolt.Tx) error {
		event, err := getEvent(tx, id)
		if err != nil {
			return err
		}
		event.Status = status
		return putEvent(tx, event)
	})
}

// RegistrationStore is the bolt implementation of repository.RegistrationStore.
type RegistrationStore struct {
	db *bolt.DB
}

// NewRegistrationStore returns a RegistrationStore over a database opened with Open.
func NewRegistrationStore(db *bolt.DB) *RegistrationStore {
	return &RegistrationStore{db: db}
}

// Book stores a new registration and adds its head count to the event.
func (s *RegistrationStore) Book(ctx context.Context, eventID string, req model.RegisterRequest) (*model.Registration, error) {
	_, span := tracer.Start(ctx, "BookRegistration", trace.WithAttributes(
		attribute.String("event.id", eventID),
		attribute.Int("party.head_count", req.HeadCount),
	))
	defer span.End()

	now := time.Now().UTC()
	reg := &model.Registration{
		ID:         uuid.New().String(),
		EventID:    eventID,
		UserEmail:  req.UserEmail,
		HeadCount:  req.HeadCount,
		Companions: companionsOrEmpty(req.Companions),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		event, err := getEvent(tx, eventID)
		if err != nil {
			return err
		}
		if !event.IsOpen() {
			return repository.ErrEventClosed
		}
		regs, err := registrationBucket(tx, eventID, true)
		if err != nil {
			return err
		}
		dup := false
		err = regs.ForEach(func(_, v []byte) error {
			var r model.Registration
			if err := json.Unmarshal(v, &r); err != nil {
				return err
			}
			if r.UserEmail == req.UserEmail {
				dup = true
			}
			return nil
		})
		if err != nil {
			return err
		}
		if dup {
			return repository.ErrAlreadyRegistered
		}
		if !repository.SeatsAvailable(event.Capacity, event.BookedCount, 0, req.HeadCount) {
			return repository.ErrEventFull
		}

		event.BookedCount += req.HeadCount
		if err := putEvent(tx, event); err != nil {
			return err
		}
		return putRegistration(regs, reg)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return reg, nil
}

// Amend replaces the party of a registration; its previous seats are
// released before the capacity check.
func (s *RegistrationStore) Amend(ctx context.Context, eventID, regID string, req model.RegisterRequest) (*model.Registration, error) {
	_, span := tracer.Start(ctx, "AmendRegistration", trace.WithAttributes(
		attribute.String("event.id", eventID),
		attribute.String("registration.id", regID),
		attribute.Int("party.head_count", req.HeadCount),
	))
	defer span.End()

	var reg *model.Registration
	err := s.db.Update(func(tx *bolt.Tx) error {
		event, err := getEvent(tx, eventID)
		if err != nil {
			return err
		}
		regs, err := registrationBucket(tx, eventID, false)
		if err != nil {
			return err
		}
		reg, err = getRegistration(regs, regID)
		if err != nil {
			return err
		}
		if !repository.SeatsAvailable(event.Capacity, event.BookedCount, reg.HeadCount, req.HeadCount) {
			return repository.ErrEventFull
		}

		event.BookedCount += req.HeadCount - reg.HeadCount
		if err := putEvent(tx, event); err != nil {
			return err
		}
		reg.HeadCount = req.HeadCount
		reg.Companions = companionsOrEmpty(req.Companions)
		reg.UpdatedAt = time.Now().UTC()
		return putRegistration(regs, reg)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return reg, nil
}

// Cancel deletes a registration and releases its seats.
func (s *RegistrationStore) Cancel(ctx context.Context, eventID, regID string) error {
	_, span := tracer.Start(ctx, "CancelRegistration", trace.WithAttributes(
		attribute.String("event.id", eventID),
		attribute.String("registration.id", regID),
	))
	defer span.End()

	err := s.db.Update(func(tx *bolt.Tx) error {
		event, err := getEvent(tx, eventID)
		if err != nil {
			return err
		}
		regs, err := registrationBucket(tx, eventID, false)
		if err != nil {
			return err
		}
		reg, err := getRegistration(regs, regID)
		if err != nil {
			return err
		}
		event.BookedCount -= reg.HeadCount
		if err := putEvent(tx, event); err != nil {
			return err
		}
		return regs.Delete([]byte(regID))
	})
	if err != nil {
		span.RecordError(err)
	}
	return err
}

// GetByID returns one registration of an event or repository.ErrNotFound.
func (s *RegistrationStore) GetByID(ctx context.Context, eventID, regID string) (*model.Registration, error) {
	_, span := tracer.Start(ctx, "GetRegistration")
	defer span.End()

	var reg *model.Registration
	err := s.db.View(func(tx *bolt.Tx) error {
		regs, err := registrationBucket(tx, eventID, false)
		if err != nil {
			return err
		}
		reg, err = getRegistration(regs, regID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// ListByEvent returns the registrations of an event, oldest first.
func (s *RegistrationStore) ListByEvent(ctx context.Context, eventID string) ([]model.Registration, error) {
	_, span := tracer.Start(ctx, "ListRegistrations")
	defer span.End()

	var list []model.Registration
	err := s.db.View(func(tx *bolt.Tx) error {
		regs, err := registrationBucket(tx, eventID, false)
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return regs.ForEach(func(_, v []byte) error {
			var r model.Registration
			if err := json.Unmarshal(v, &r); err != nil {
				return err
			}
			list = append(list, r)
			return nil
		})
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list, nil
}

func getEvent(tx *bolt.Tx, id string) (*model.Event, error) {
	v := tx.Bucket([]byte(bucketEvents)).Get([]byte(id))
	if v == nil {
		return nil, repository.ErrNotFound
	}
	event := &model.Event{}
	if err := json.Unmarshal(v, event); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return event, nil
}

func putEvent(tx *bolt.Tx, event *model.Event) error {
	// Stored without the derived remaining field.
	type stored model.Event
	j, err := json.Marshal(stored(*event))
	if err != nil {
		return err
	}
	return tx.Bucket([]byte(bucketEvents)).Put([]byte(event.ID), j)
}

// registrationBucket returns the nested bucket of eventID, creating it when
// create is set. A missing bucket without create is ErrNotFound.
func registrationBucket(tx *bolt.Tx, eventID string, create bool) (*bolt.Bucket, error) {
	root := tx.Bucket([]byte(bucketRegistrations))
	if create {
		return root.CreateBucketIfNotExists([]byte(eventID))
	}
	b := root.Bucket([]byte(eventID))
	if b == nil {
		return nil, repository.ErrNotFound
	}
	return b, nil
}

func getRegistration(b *bolt.Bucket, id string) (*model.Registration, error) {
	v := b.Get([]byte(id))
	if v == nil {
		return nil, repository.ErrNotFound
	}
	reg := &model.Registration{}
	if err := json.Unmarshal(v, reg); err != nil {
		return nil, fmt.Errorf("decode registration: %w", err)
	}
	return reg, nil
}

func putRegistration(b *bolt.Bucket, reg *model.Registration) error {
	j, err := json.Marshal(reg)
	if err != nil {
		return err
	}
	return b.Put([]byte(reg.ID), j)
}

func companionsOrEmpty(c []party.Companion) []party.Companion {
	if c == nil {
		return []party.Companion{}
	}
	return c
}

var (
	_ repository.EventStore        = (*EventStore)(nil)
	_ repository.RegistrationStore = (*RegistrationStore)(nil)
)
