// Package party models the people covered by a single event registration:
// the account holder plus an ordered list of companions.
//
// The account holder is never stored as a Companion; they are implicitly
// party member #1, so a Composition with headCount N always carries exactly
// N-1 companions.
package party

import (
	"fmt"
	"strconv"
)

// Companion is a named guest attached to a registration.
type Companion struct {
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	IsAdult   bool   `json:"is_adult"`
}

// NewCompanion returns the value a freshly added companion slot starts with.
func NewCompanion() Companion {
	return Companion{IsAdult: true}
}

// Window is the capacity of an event as seen when a form is opened.
type Window struct {
	Capacity   int `json:"capacity"`
	Registered int `json:"registered"`
}

// Remaining returns the number of seats still free.
func (w Window) Remaining() int {
	return w.Capacity - w.Registered
}

// Field names one editable attribute of a Companion.
type Field int

// Editable companion fields, named after their JSON keys by String.
const (
	FieldFirstName Field = iota
	FieldLastName
	FieldIsAdult
)

func (f Field) String() string {
	switch f {
	case FieldFirstName:
		return "firstname"
	case FieldLastName:
		return "lastname"
	case FieldIsAdult:
		return "is_adult"
	default:
		return fmt.Sprintf("Field(%d)", int(f))
	}
}

// Composition is the head count and companion list of one registration.
// The zero value is not usable; build one with New, ForCreate or ForEdit.
type Composition struct {
	headCount  int
	companions []Companion
	// limit caps headCount; 0 means no client-side bound.
	limit int
}

// New returns a single-person composition capped at limit people.
// A limit of 0 disables the upper bound.
func New(limit int) *Composition {
	if limit < 0 {
		limit = 0
	}
	return &Composition{headCount: 1, limit: limit}
}

// ForCreate returns the composition a new-registration form starts with,
// bounded by the seats left in w.
func ForCreate(w Window) *Composition {
	c := New(0)
	c.limit = w.Remaining()
	if c.limit < 1 {
		// Nothing left: keep the holder alone and refuse every increment.
		c.limit = 1
	}
	return c
}

// ForEdit seeds an unbounded composition from an existing registration.
// Companions beyond headCount-1 are dropped from the tail and missing slots
// are filled with NewCompanion.
func ForEdit(headCount int, companions []Companion) *Composition {
	if headCount < 1 {
		headCount = 1
	}
	want := headCount - 1
	list := make([]Companion, want)
	n := copy(list, companions)
	for i := n; i < want; i++ {
		list[i] = NewCompanion()
	}
	return &Composition{headCount: headCount, companions: list}
}

// HeadCount returns the total number of people, account holder included.
func (c *Composition) HeadCount() int {
	return c.headCount
}

// Limit returns the upper bound on HeadCount, 0 when unbounded.
func (c *Composition) Limit() int {
	return c.limit
}

// Companions returns a copy of the companion list.
func (c *Composition) Companions() []Companion {
	out := make([]Companion, len(c.companions))
	copy(out, c.companions)
	return out
}

// Companion returns the companion at index.
func (c *Composition) Companion(index int) (Companion, bool) {
	if index < 0 || index >= len(c.companions) {
		return Companion{}, false
	}
	return c.companions[index], true
}

// Clone returns a working copy that shares no state with c.
func (c *Composition) Clone() *Composition {
	return &Composition{
		headCount:  c.headCount,
		companions: c.Companions(),
		limit:      c.limit,
	}
}

// Increment adds one person and a default companion slot.
// It reports false and leaves c unchanged when the bound would be exceeded.
func (c *Composition) Increment() bool {
	if c.limit > 0 && c.headCount+1 > c.limit {
		return false
	}
	c.headCount++
	list := make([]Companion, len(c.companions), len(c.companions)+1)
	copy(list, c.companions)
	c.companions = append(list, NewCompanion())
	return true
}

// Decrement removes the most recently added companion slot.
// It reports false at a head count of 1.
func (c *Composition) Decrement() bool {
	if c.headCount-1 < 1 {
		return false
	}
	c.headCount--
	c.companions = c.companions[:len(c.companions)-1:len(c.companions)-1]
	return true
}

// SetHeadCount steps towards n one person at a time and returns the head
// count actually reached.
func (c *Composition) SetHeadCount(n int) int {
	for c.headCount < n && c.Increment() {
	}
	for c.headCount > n && c.Decrement() {
	}
	return c.headCount
}

// SetField sets one field of the companion at index from its form value.
// IsAdult accepts anything strconv.ParseBool does, plus "adult" and "minor".
func (c *Composition) SetField(index int, field Field, value string) bool {
	switch field {
	case FieldFirstName:
		return c.SetFirstName(index, value)
	case FieldLastName:
		return c.SetLastName(index, value)
	case FieldIsAdult:
		adult, err := parseAdult(value)
		if err != nil {
			return false
		}
		return c.SetAdult(index, adult)
	default:
		return false
	}
}

// SetFirstName replaces the first name of the companion at index.
// It reports false when index is out of range.
func (c *Composition) SetFirstName(index int, v string) bool {
	return c.replace(index, func(p Companion) Companion {
		p.FirstName = v
		return p
	})
}

// SetLastName is SetFirstName for the last name.
func (c *Composition) SetLastName(index int, v string) bool {
	return c.replace(index, func(p Companion) Companion {
		p.LastName = v
		return p
	})
}

// SetAdult marks the companion at index as adult or minor.
func (c *Composition) SetAdult(index int, v bool) bool {
	return c.replace(index, func(p Companion) Companion {
		p.IsAdult = v
		return p
	})
}

// ToggleAdult flips IsAdult on the companion at index.
func (c *Composition) ToggleAdult(index int) bool {
	return c.replace(index, func(p Companion) Companion {
		p.IsAdult = !p.IsAdult
		return p
	})
}

// replace swaps the companion at index for fn's result in a fresh slice, so
// clones and earlier Companions() results never observe the write.
// Out-of-range indexes are ignored.
func (c *Composition) replace(index int, fn func(Companion) Companion) bool {
	if index < 0 || index >= len(c.companions) {
		return false
	}
	list := make([]Companion, len(c.companions))
	copy(list, c.companions)
	list[index] = fn(list[index])
	c.companions = list
	return true
}

// Validate runs ValidateCompanions on c.
func (c *Composition) Validate() error {
	return ValidateCompanions(c.companions)
}

func parseAdult(v string) (bool, error) {
	switch v {
	case "adult":
		return true, nil
	case "minor", "child":
		return false, nil
	}
	return strconv.ParseBool(v)
}
