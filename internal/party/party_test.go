package party

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestStepperKeepsCompanionsInLockstep(t *testing.T) {
	c := New(0)
	steps := []struct {
		up   bool
		want int
	}{
		{true, 2}, {true, 3}, {false, 2}, {true, 3}, {true, 4}, {false, 3}, {false, 2}, {false, 1}, {false, 1},
	}
	for i, s := range steps {
		if s.up {
			c.Increment()
		} else {
			c.Decrement()
		}
		if c.HeadCount() != s.want {
			t.Fatalf("step %d: head count = %d, want %d", i, c.HeadCount(), s.want)
		}
		if got := len(c.Companions()); got != c.HeadCount()-1 {
			t.Fatalf("step %d: %d companions for head count %d", i, got, c.HeadCount())
		}
	}
}

func TestDecrementAtOneIsNoop(t *testing.T) {
	c := New(0)
	if c.Decrement() {
		t.Fatal("decrement at 1 reported a change")
	}
	if c.HeadCount() != 1 || len(c.Companions()) != 0 {
		t.Fatalf("state changed: head=%d companions=%d", c.HeadCount(), len(c.Companions()))
	}
}

func TestIncrementAtRemainingIsNoop(t *testing.T) {
	c := ForCreate(Window{Capacity: 10, Registered: 7})
	for c.Increment() {
	}
	if c.HeadCount() != 3 {
		t.Fatalf("head count = %d, want 3", c.HeadCount())
	}
	before := c.Companions()
	if c.Increment() {
		t.Fatal("increment past remaining reported a change")
	}
	if c.HeadCount() != 3 || !reflect.DeepEqual(before, c.Companions()) {
		t.Fatal("state changed at the bound")
	}
}

func TestForCreateFullEvent(t *testing.T) {
	c := ForCreate(Window{Capacity: 5, Registered: 5})
	if c.Increment() {
		t.Fatal("increment allowed on a full event")
	}
	if c.HeadCount() != 1 {
		t.Fatalf("head count = %d, want 1", c.HeadCount())
	}
}

func TestForEditIsUnbounded(t *testing.T) {
	c := ForEdit(2, []Companion{{"A", "B", true}})
	for i := 0; i < 20; i++ {
		if !c.Increment() {
			t.Fatalf("increment %d refused in edit mode", i)
		}
	}
	if c.HeadCount() != 22 {
		t.Fatalf("head count = %d, want 22", c.HeadCount())
	}
}

func TestForEditReconcilesCompanions(t *testing.T) {
	tt := []struct {
		name       string
		headCount  int
		companions []Companion
		want       []Companion
	}{
		{
			name:      "pads missing slots",
			headCount: 3,
			companions: []Companion{
				{"Jean", "Martin", false},
			},
			want: []Companion{{"Jean", "Martin", false}, NewCompanion()},
		},
		{
			name:      "truncates extra slots",
			headCount: 2,
			companions: []Companion{
				{"Jean", "Martin", false},
				{"Ana", "Lee", true},
			},
			want: []Companion{{"Jean", "Martin", false}},
		},
		{
			name:      "zero head count becomes one",
			headCount: 0,
			want:      []Companion{},
		},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			c := ForEdit(tc.headCount, tc.companions)
			if got := c.Companions(); !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("companions = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestIncrementAddsDefaultCompanion(t *testing.T) {
	c := New(0)
	c.Increment()
	got, ok := c.Companion(0)
	if !ok {
		t.Fatal("no companion after increment")
	}
	if got != (Companion{IsAdult: true}) {
		t.Fatalf("new companion = %+v", got)
	}
}

func TestDecrementRemovesLast(t *testing.T) {
	c := ForEdit(4, []Companion{{"A", "A", true}, {"B", "B", true}, {"C", "C", false}})
	c.Decrement()
	want := []Companion{{"A", "A", true}, {"B", "B", true}}
	if got := c.Companions(); !reflect.DeepEqual(got, want) {
		t.Fatalf("companions = %+v, want %+v", got, want)
	}
}

func TestSetFieldOnlyTouchesTarget(t *testing.T) {
	c := ForEdit(3, []Companion{{"A", "B", true}, {"C", "D", false}})
	first, _ := c.Companion(0)

	if !c.SetField(1, FieldLastName, "Durand") {
		t.Fatal("SetField reported no change")
	}
	want := []Companion{{"A", "B", true}, {"C", "Durand", false}}
	if got := c.Companions(); !reflect.DeepEqual(got, want) {
		t.Fatalf("companions = %+v, want %+v", got, want)
	}
	if after, _ := c.Companion(0); after != first {
		t.Fatalf("untouched companion changed: %+v", after)
	}
}

func TestSetFieldOutOfRangeIsNoop(t *testing.T) {
	c := ForEdit(2, []Companion{{"A", "B", true}})
	before := c.Companions()
	for _, idx := range []int{-1, 1, 5} {
		if c.SetField(idx, FieldFirstName, "X") {
			t.Fatalf("SetField(%d) reported a change", idx)
		}
	}
	if !reflect.DeepEqual(before, c.Companions()) {
		t.Fatal("out of range write changed state")
	}
}

func TestSetFieldAdult(t *testing.T) {
	tt := []struct {
		value string
		want  bool
		ok    bool
	}{
		{"minor", false, true},
		{"adult", true, true},
		{"false", false, true},
		{"maybe", true, false},
	}
	for _, tc := range tt {
		t.Run(tc.value, func(t *testing.T) {
			c := New(0)
			c.Increment()
			if ok := c.SetField(0, FieldIsAdult, tc.value); ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			got, _ := c.Companion(0)
			if got.IsAdult != tc.want {
				t.Fatalf("IsAdult = %v, want %v", got.IsAdult, tc.want)
			}
		})
	}
}

func TestToggleAdult(t *testing.T) {
	c := ForEdit(2, []Companion{{"A", "B", true}})
	c.ToggleAdult(0)
	if got, _ := c.Companion(0); got.IsAdult {
		t.Fatal("toggle did not flip to minor")
	}
	c.ToggleAdult(0)
	if got, _ := c.Companion(0); !got.IsAdult {
		t.Fatal("toggle did not flip back")
	}
}

func TestCloneDoesNotAlias(t *testing.T) {
	orig := ForEdit(2, []Companion{{"A", "B", true}})
	work := orig.Clone()
	work.SetFirstName(0, "Z")
	work.Increment()

	if got, _ := orig.Companion(0); got.FirstName != "A" {
		t.Fatalf("original mutated through clone: %+v", got)
	}
	if orig.HeadCount() != 2 {
		t.Fatalf("original head count = %d", orig.HeadCount())
	}
}

func TestSetHeadCount(t *testing.T) {
	c := ForCreate(Window{Capacity: 4})
	if got := c.SetHeadCount(10); got != 4 {
		t.Fatalf("SetHeadCount(10) = %d, want 4", got)
	}
	if got := c.SetHeadCount(0); got != 1 {
		t.Fatalf("SetHeadCount(0) = %d, want 1", got)
	}
}

func TestValidateCompanions(t *testing.T) {
	tt := []struct {
		name       string
		companions []Companion
		position   int
	}{
		{
			name:       "first companion missing first name",
			companions: []Companion{{"", "Dupont", true}, {"Jean", "Martin", false}},
			position:   2,
		},
		{
			name:       "all filled",
			companions: []Companion{{"Ana", "Lee", true}, {"Bo", "Chen", false}},
		},
		{
			name:       "second companion missing last name",
			companions: []Companion{{"Ana", "Lee", true}, {"Bo", "", false}, {"", "", true}},
			position:   3,
		},
		{
			name:       "whitespace only",
			companions: []Companion{{"  ", "Lee", true}},
			position:   2,
		},
		{
			name: "no companions",
		},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateCompanions(tc.companions)
			if tc.position == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Position != tc.position {
				t.Fatalf("position = %d, want %d", verr.Position, tc.position)
			}
			if !strings.HasSuffix(err.Error(), "person "+string(rune('0'+tc.position))) {
				t.Fatalf("message %q does not name the position", err.Error())
			}
		})
	}
}

func TestCheckConsistency(t *testing.T) {
	if err := CheckConsistency(2, []Companion{{"A", "B", true}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := CheckConsistency(0, nil); !errors.Is(err, ErrHeadCount) {
		t.Fatalf("expected ErrHeadCount, got %v", err)
	}
	if err := CheckConsistency(3, []Companion{{"A", "B", true}}); !errors.Is(err, ErrHeadCount) {
		t.Fatalf("expected ErrHeadCount, got %v", err)
	}
}
