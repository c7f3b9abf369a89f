// Package repository implements all database queries for the event registration system.
// It uses pgx directly (no ORM) for transparency and performance.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/premierdelan/internal/model"
	"github.com/Shivanand-hulikatti/premierdelan/internal/party"
)

// uniqueViolation is the SQLSTATE of a unique constraint failure.
const uniqueViolation = "23505"

// checkIDs returns ErrNotFound for any id that is not a UUID. The id columns
// are UUIDs and Postgres rejects comparing them with other text.
func checkIDs(ids ...string) error {
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return ErrNotFound
		}
	}
	return nil
}

// EventRepository handles persistence for events.
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts a new open event and returns it with a generated UUID.
func (r *EventRepository) Create(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	event := &model.Event{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
		Capacity:    req.Capacity,
		BookedCount: 0,
		Status:      model.EventStatusOpen,
		CreatedAt:   time.Now().UTC(),
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO events (id, name, description, capacity, booked_count, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.ID, event.Name, event.Description, event.Capacity, event.BookedCount, event.Status, event.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return event, nil
}

// List returns all events ordered by creation time descending.
func (r *EventRepository) List(ctx context.Context) ([]model.Event, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, description, capacity, booked_count, status, created_at
		 FROM events
		 ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Name, &e.Description, &e.Capacity, &e.BookedCount, &e.Status, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// GetByID returns a single event or ErrNotFound.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	if err := checkIDs(id); err != nil {
		return nil, err
	}
	var e model.Event
	err := r.db.QueryRow(ctx,
		`SELECT id, name, description, capacity, booked_count, status, created_at
		 FROM events WHERE id = $1`,
		id,
	).Scan(&e.ID, &e.Name, &e.Description, &e.Capacity, &e.BookedCount, &e.Status, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &e, nil
}

// SetStatus opens or closes an event.
func (r *EventRepository) SetStatus(ctx context.Context, id, status string) error {
	if err := checkIDs(id); err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, `UPDATE events SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("set event status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RegistrationRepository handles persistence for registrations.
type RegistrationRepository struct {
	db *pgxpool.Pool
}

// NewRegistrationRepository constructs a RegistrationRepository.
func NewRegistrationRepository(db *pgxpool.Pool) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// lockEvent takes a row-level lock on the event for the rest of tx.
//
// SELECT … FOR UPDATE serialises every booking mutation on the same event,
// so two parties reading the same booked_count can never both squeeze into
// the last seats.
func lockEvent(ctx context.Context, tx pgx.Tx, eventID string) (capacity, booked int, status string, err error) {
	err = tx.QueryRow(ctx,
		`SELECT capacity, booked_count, status
		 FROM events
		 WHERE id = $1
		 FOR UPDATE`,
		eventID,
	).Scan(&capacity, &booked, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, 0, "", ErrNotFound
	}
	if err != nil {
		return 0, 0, "", fmt.Errorf("lock event row: %w", err)
	}
	return capacity, booked, status, nil
}

// Book creates a registration for a whole party inside a serialised transaction.
func (r *RegistrationRepository) Book(ctx context.Context, eventID string, req model.RegisterRequest) (*model.Registration, error) {
	if err := checkIDs(eventID); err != nil {
		return nil, err
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	capacity, booked, status, err := lockEvent(ctx, tx, eventID)
	if err != nil {
		return nil, err
	}
	if status != model.EventStatusOpen {
		err = ErrEventClosed
		return nil, err
	}

	var dupCount int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM registrations WHERE event_id = $1 AND user_email = $2`,
		eventID, req.UserEmail,
	).Scan(&dupCount)
	if err != nil {
		return nil, fmt.Errorf("check duplicate: %w", err)
	}
	if dupCount > 0 {
		err = ErrAlreadyRegistered
		return nil, err
	}

	if !SeatsAvailable(capacity, booked, 0, req.HeadCount) {
		err = ErrEventFull
		return nil, err
	}

	_, err = tx.Exec(ctx,
		`UPDATE events SET booked_count = booked_count + $2 WHERE id = $1`,
		eventID, req.HeadCount,
	)
	if err != nil {
		return nil, fmt.Errorf("increment booked_count: %w", err)
	}

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
	_, err = tx.Exec(ctx,
		`INSERT INTO registrations (id, event_id, user_email, head_count, companions, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		reg.ID, reg.EventID, reg.UserEmail, reg.HeadCount, reg.Companions, reg.CreatedAt, reg.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrAlreadyRegistered
		}
		return nil, fmt.Errorf("insert registration: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return reg, nil
}

// Amend replaces the party of an existing registration and moves the
// difference in head count onto the event's booked_count.
func (r *RegistrationRepository) Amend(ctx context.Context, eventID, regID string, req model.RegisterRequest) (*model.Registration, error) {
	if err := checkIDs(eventID, regID); err != nil {
		return nil, err
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	capacity, booked, _, err := lockEvent(ctx, tx, eventID)
	if err != nil {
		return nil, err
	}

	var reg model.Registration
	err = tx.QueryRow(ctx,
		`SELECT id, event_id, user_email, head_count, companions, created_at, updated_at
		 FROM registrations
		 WHERE id = $1 AND event_id = $2
		 FOR UPDATE`,
		regID, eventID,
	).Scan(&reg.ID, &reg.EventID, &reg.UserEmail, &reg.HeadCount, &reg.Companions, &reg.CreatedAt, &reg.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		err = ErrNotFound
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("lock registration row: %w", err)
	}

	if !SeatsAvailable(capacity, booked, reg.HeadCount, req.HeadCount) {
		err = ErrEventFull
		return nil, err
	}

	_, err = tx.Exec(ctx,
		`UPDATE events SET booked_count = booked_count + $2 WHERE id = $1`,
		eventID, req.HeadCount-reg.HeadCount,
	)
	if err != nil {
		return nil, fmt.Errorf("adjust booked_count: %w", err)
	}

	reg.HeadCount = req.HeadCount
	reg.Companions = companionsOrEmpty(req.Companions)
	reg.UpdatedAt = time.Now().UTC()
	_, err = tx.Exec(ctx,
		`UPDATE registrations SET head_count = $2, companions = $3, updated_at = $4 WHERE id = $1`,
		reg.ID, reg.HeadCount, reg.Companions, reg.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update registration: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return &reg, nil
}

// Cancel deletes a registration and releases its seats.
func (r *RegistrationRepository) Cancel(ctx context.Context, eventID, regID string) error {
	if err := checkIDs(eventID, regID); err != nil {
		return err
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, _, _, err = lockEvent(ctx, tx, eventID); err != nil {
		return err
	}

	var headCount int
	err = tx.QueryRow(ctx,
		`DELETE FROM registrations WHERE id = $1 AND event_id = $2 RETURNING head_count`,
		regID, eventID,
	).Scan(&headCount)
	if errors.Is(err, pgx.ErrNoRows) {
		err = ErrNotFound
		return err
	}
	if err != nil {
		return fmt.Errorf("delete registration: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE events SET booked_count = booked_count - $2 WHERE id = $1`,
		eventID, headCount,
	)
	if err != nil {
		return fmt.Errorf("release seats: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetByID returns one registration of an event or ErrNotFound.
func (r *RegistrationRepository) GetByID(ctx context.Context, eventID, regID string) (*model.Registration, error) {
	if err := checkIDs(eventID, regID); err != nil {
		return nil, err
	}
	var reg model.Registration
	err := r.db.QueryRow(ctx,
		`SELECT id, event_id, user_email, head_count, companions, created_at, updated_at
		 FROM registrations
		 WHERE id = $1 AND event_id = $2`,
		regID, eventID,
	).Scan(&reg.ID, &reg.EventID, &reg.UserEmail, &reg.HeadCount, &reg.Companions, &reg.CreatedAt, &reg.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return &reg, nil
}

// ListByEvent returns all registrations for a given event.
func (r *RegistrationRepository) ListByEvent(ctx context.Context, eventID string) ([]model.Registration, error) {
	if err := checkIDs(eventID); err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, event_id, user_email, head_count, companions, created_at, updated_at
		 FROM registrations
		 WHERE event_id = $1
		 ORDER BY created_at ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var regs []model.Registration
	for rows.Next() {
		var reg model.Registration
		if err := rows.Scan(&reg.ID, &reg.EventID, &reg.UserEmail, &reg.HeadCount, &reg.Companions, &reg.CreatedAt, &reg.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}

func companionsOrEmpty(c []party.Companion) []party.Companion {
	if c == nil {
		return []party.Companion{}
	}
	return c
}

var (
	_ EventStore        = (*EventRepository)(nil)
	_ RegistrationStore = (*RegistrationRepository)(nil)
)
