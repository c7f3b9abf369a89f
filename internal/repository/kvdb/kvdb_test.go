package kvdb

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/Shivanand-hulikatti/premierdelan/internal/model"
	"github.com/Shivanand-hulikatti/premierdelan/internal/party"
	"github.com/Shivanand-hulikatti/premierdelan/internal/repository"
)

func newStores(t *testing.T) (*EventStore, *RegistrationStore) {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewEventStore(db), NewRegistrationStore(db)
}

func party3(email string) model.RegisterRequest {
	return model.RegisterRequest{
		UserEmail: email,
		HeadCount: 3,
		Companions: []party.Companion{
			{FirstName: "Jean", LastName: "Martin", IsAdult: true},
			{FirstName: "Lou", LastName: "Martin", IsAdult: false},
		},
	}
}

func TestBookAccountsWholeParty(t *testing.T) {
	ctx := context.Background()
	events, regs := newStores(t)

	ev, err := events.Create(ctx, model.CreateEventRequest{Name: "Nouvel an", Capacity: 5})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}

	reg, err := regs.Book(ctx, ev.ID, party3("a@example.com"))
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if reg.HeadCount != 3 || len(reg.Companions) != 2 {
		t.Fatalf("unexpected registration %+v", reg)
	}

	got, err := events.GetByID(ctx, ev.ID)
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	if got.BookedCount != 3 {
		t.Fatalf("booked = %d, want 3", got.BookedCount)
	}

	if _, err := regs.Book(ctx, ev.ID, party3("b@example.com")); !errors.Is(err, repository.ErrEventFull) {
		t.Fatalf("expected ErrEventFull, got %v", err)
	}
	if _, err := regs.Book(ctx, ev.ID, model.RegisterRequest{UserEmail: "a@example.com", HeadCount: 1}); !errors.Is(err, repository.ErrAlreadyRegistered) {
		t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
	}
}

func TestBookUnknownOrClosedEvent(t *testing.T) {
	ctx := context.Background()
	events, regs := newStores(t)

	if _, err := regs.Book(ctx, "missing", party3("a@example.com")); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	ev, _ := events.Create(ctx, model.CreateEventRequest{Name: "Closed", Capacity: 10})
	if err := events.SetStatus(ctx, ev.ID, model.EventStatusClosed); err != nil {
		t.Fatalf("set status: %v", err)
	}
	if _, err := regs.Book(ctx, ev.ID, party3("a@example.com")); !errors.Is(err, repository.ErrEventClosed) {
		t.Fatalf("expected ErrEventClosed, got %v", err)
	}
}

func TestAmendExcludesOwnSeats(t *testing.T) {
	ctx := context.Background()
	events, regs := newStores(t)

	ev, _ := events.Create(ctx, model.CreateEventRequest{Name: "Gala", Capacity: 6})
	mine, err := regs.Book(ctx, ev.ID, party3("a@example.com"))
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if _, err := regs.Book(ctx, ev.ID, model.RegisterRequest{UserEmail: "b@example.com", HeadCount: 2, Companions: []party.Companion{{FirstName: "X", LastName: "Y"}}}); err != nil {
		t.Fatalf("book other: %v", err)
	}

	// 5 of 6 used, 3 of them mine: growing to 4 fits, growing to 5 does not.
	grow := model.RegisterRequest{
		UserEmail: "a@example.com",
		HeadCount: 4,
		Companions: []party.Companion{
			{FirstName: "Jean", LastName: "Martin", IsAdult: true},
			{FirstName: "Lou", LastName: "Martin"},
			{FirstName: "Eve", LastName: "Martin"},
		},
	}
	updated, err := regs.Amend(ctx, ev.ID, mine.ID, grow)
	if err != nil {
		t.Fatalf("amend: %v", err)
	}
	if updated.HeadCount != 4 || len(updated.Companions) != 3 {
		t.Fatalf("unexpected update %+v", updated)
	}

	grow.HeadCount = 5
	grow.Companions = append(grow.Companions, party.Companion{FirstName: "Max", LastName: "Martin"})
	if _, err := regs.Amend(ctx, ev.ID, mine.ID, grow); !errors.Is(err, repository.ErrEventFull) {
		t.Fatalf("expected ErrEventFull, got %v", err)
	}

	got, _ := events.GetByID(ctx, ev.ID)
	if got.BookedCount != 6 {
		t.Fatalf("booked = %d, want 6", got.BookedCount)
	}
}

func TestCancelReleasesSeats(t *testing.T) {
	ctx := context.Background()
	events, regs := newStores(t)

	ev, _ := events.Create(ctx, model.CreateEventRequest{Name: "Gala", Capacity: 6})
	reg, _ := regs.Book(ctx, ev.ID, party3("a@example.com"))

	if err := regs.Cancel(ctx, ev.ID, reg.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	got, _ := events.GetByID(ctx, ev.ID)
	if got.BookedCount != 0 {
		t.Fatalf("booked = %d, want 0", got.BookedCount)
	}
	if _, err := regs.GetByID(ctx, ev.ID, reg.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := regs.Cancel(ctx, ev.ID, reg.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("second cancel: expected ErrNotFound, got %v", err)
	}
}

func TestListByEvent(t *testing.T) {
	ctx := context.Background()
	events, regs := newStores(t)

	ev, _ := events.Create(ctx, model.CreateEventRequest{Name: "Gala", Capacity: 20})
	empty, err := regs.ListByEvent(ctx, ev.ID)
	if err != nil || len(empty) != 0 {
		t.Fatalf("empty list = %v, %v", empty, err)
	}

	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		if _, err := regs.Book(ctx, ev.ID, party3(email)); err != nil {
			t.Fatalf("book %s: %v", email, err)
		}
	}
	list, err := regs.ListByEvent(ctx, ev.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len = %d, want 3", len(list))
	}
}
