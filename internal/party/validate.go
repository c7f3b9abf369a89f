package party

import (
	"errors"
	"fmt"
	"strings"
)

// ErrHeadCount is returned by CheckConsistency when the head count and the
// companion list disagree.
var ErrHeadCount = errors.New("head count does not match companions")

// ValidationError points at the first companion whose names are missing.
// Position is 1-based over the whole party; the account holder is position 1.
type ValidationError struct {
	Position int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("Please fill in the name and first name of person %d", e.Position)
}

// ValidateCompanions rejects the first companion, in list order, with an
// empty first or last name. Later companions are not inspected.
func ValidateCompanions(companions []Companion) error {
	for i, c := range companions {
		if strings.TrimSpace(c.FirstName) == "" || strings.TrimSpace(c.LastName) == "" {
			return &ValidationError{Position: i + 2}
		}
	}
	return nil
}

// CheckConsistency verifies headCount >= 1 and len(companions) == headCount-1.
func CheckConsistency(headCount int, companions []Companion) error {
	if headCount < 1 {
		return fmt.Errorf("%w: head count must be at least 1, got %d", ErrHeadCount, headCount)
	}
	if len(companions) != headCount-1 {
		return fmt.Errorf("%w: %d people need %d companions, got %d",
			ErrHeadCount, headCount, headCount-1, len(companions))
	}
	return nil
}
