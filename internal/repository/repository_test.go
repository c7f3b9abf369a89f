package repository

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/premierdelan/internal/database"
	"github.com/Shivanand-hulikatti/premierdelan/internal/model"
	"github.com/Shivanand-hulikatti/premierdelan/internal/party"
)

// newPostgres connects to the database named by DATABASE_URL. The tests
// create their own events, so they can share a database with other data.
func newPostgres(t *testing.T) (*EventRepository, *RegistrationRepository) {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if !strings.HasPrefix(dsn, "postgres") {
		t.Skip("DATABASE_URL does not point at postgres")
	}
	ctx := context.Background()
	pool, err := database.NewPool(ctx, dsn, zap.NewNop())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	if err := database.EnsureSchema(ctx, pool); err != nil {
		t.Fatalf("schema: %v", err)
	}
	return NewEventRepository(pool), NewRegistrationRepository(pool)
}

func partyOf(email string, names ...string) model.RegisterRequest {
	req := model.RegisterRequest{UserEmail: email, HeadCount: len(names) + 1, Companions: []party.Companion{}}
	for i, n := range names {
		req.Companions = append(req.Companions, party.Companion{FirstName: n, LastName: "Martin", IsAdult: i%2 == 0})
	}
	return req
}

func TestCheckIDs(t *testing.T) {
	tt := []struct {
		name string
		ids  []string
		ok   bool
	}{
		{"uuid", []string{uuid.NewString()}, true},
		{"two uuids", []string{uuid.NewString(), uuid.NewString()}, true},
		{"word", []string{"abc"}, false},
		{"empty", []string{""}, false},
		{"second bad", []string{uuid.NewString(), "x"}, false},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			err := checkIDs(tc.ids...)
			if tc.ok && err != nil {
				t.Fatalf("unexpected error %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrNotFound) {
				t.Fatalf("err = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestPostgresMalformedIDsAreNotFound(t *testing.T) {
	ctx := context.Background()
	events, regs := newPostgres(t)
	ev, err := events.Create(ctx, model.CreateEventRequest{Name: "Gala", Capacity: 4})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	checks := map[string]error{
		"get event":        func() error { _, err := events.GetByID(ctx, "abc"); return err }(),
		"set status":       events.SetStatus(ctx, "abc", model.EventStatusClosed),
		"book":             func() error { _, err := regs.Book(ctx, "abc", partyOf("a@example.com")); return err }(),
		"amend":            func() error { _, err := regs.Amend(ctx, ev.ID, "y", partyOf("a@example.com")); return err }(),
		"cancel":           regs.Cancel(ctx, "x", "y"),
		"get registration": func() error { _, err := regs.GetByID(ctx, ev.ID, "y"); return err }(),
		"unknown status":   events.SetStatus(ctx, uuid.NewString(), model.EventStatusClosed),
	}
	for name, err := range checks {
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("%s: err = %v, want ErrNotFound", name, err)
		}
	}
}

func TestPostgresBookDuplicateAndClosed(t *testing.T) {
	ctx := context.Background()
	events, regs := newPostgres(t)

	ev, err := events.Create(ctx, model.CreateEventRequest{Name: "Gala", Capacity: 4})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	reg, err := regs.Book(ctx, ev.ID, partyOf("a@example.com", "Jean", "Lou"))
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	got, err := regs.GetByID(ctx, ev.ID, reg.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.HeadCount != 3 || len(got.Companions) != 2 || got.Companions[1].FirstName != "Lou" || got.Companions[1].IsAdult {
		t.Fatalf("companions did not round-trip: %+v", got)
	}

	if _, err := regs.Book(ctx, ev.ID, partyOf("a@example.com")); !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("duplicate: %v", err)
	}
	if _, err := regs.Book(ctx, ev.ID, partyOf("b@example.com", "X", "Y")); !errors.Is(err, ErrEventFull) {
		t.Fatalf("full: %v", err)
	}

	if err := events.SetStatus(ctx, ev.ID, model.EventStatusClosed); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := regs.Book(ctx, ev.ID, partyOf("c@example.com")); !errors.Is(err, ErrEventClosed) {
		t.Fatalf("closed: %v", err)
	}
}

func TestPostgresAmendExcludesOwnSeats(t *testing.T) {
	ctx := context.Background()
	events, regs := newPostgres(t)

	ev, err := events.Create(ctx, model.CreateEventRequest{Name: "Gala", Capacity: 6})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	mine, err := regs.Book(ctx, ev.ID, partyOf("a@example.com", "Jean", "Lou"))
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if _, err := regs.Book(ctx, ev.ID, partyOf("b@example.com", "X")); err != nil {
		t.Fatalf("book other: %v", err)
	}

	// 5 of 6 used, 3 of them mine: growing to 4 fits, growing to 5 does not.
	updated, err := regs.Amend(ctx, ev.ID, mine.ID, partyOf("a@example.com", "Jean", "Lou", "Eve"))
	if err != nil {
		t.Fatalf("amend: %v", err)
	}
	if updated.HeadCount != 4 || len(updated.Companions) != 3 {
		t.Fatalf("unexpected update %+v", updated)
	}
	if _, err := regs.Amend(ctx, ev.ID, mine.ID, partyOf("a@example.com", "Jean", "Lou", "Eve", "Max")); !errors.Is(err, ErrEventFull) {
		t.Fatalf("expected ErrEventFull, got %v", err)
	}

	got, err := events.GetByID(ctx, ev.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.BookedCount != 6 {
		t.Fatalf("booked = %d, want 6", got.BookedCount)
	}
}

func TestPostgresCancelReleasesSeats(t *testing.T) {
	ctx := context.Background()
	events, regs := newPostgres(t)

	ev, err := events.Create(ctx, model.CreateEventRequest{Name: "Gala", Capacity: 6})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	reg, err := regs.Book(ctx, ev.ID, partyOf("a@example.com", "Jean", "Lou"))
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	if err := regs.Cancel(ctx, ev.ID, reg.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	got, _ := events.GetByID(ctx, ev.ID)
	if got.BookedCount != 0 {
		t.Fatalf("booked = %d, want 0", got.BookedCount)
	}
	if _, err := regs.GetByID(ctx, ev.ID, reg.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := regs.Cancel(ctx, ev.ID, reg.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second cancel: expected ErrNotFound, got %v", err)
	}
}
