package repository

import "testing"

func TestSeatsAvailable(t *testing.T) {
	tt := []struct {
		name                            string
		capacity, booked, held, parties int
		want                            bool
	}{
		{"fits exactly", 10, 7, 0, 3, true},
		{"one too many", 10, 7, 0, 4, false},
		{"edit reuses own seats", 10, 10, 3, 3, true},
		{"edit grows into free seats", 10, 8, 3, 5, true},
		{"edit grows past capacity", 10, 8, 3, 6, false},
		{"edit shrinks on overbooked event", 10, 12, 4, 2, true},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			if got := SeatsAvailable(tc.capacity, tc.booked, tc.held, tc.parties); got != tc.want {
				t.Fatalf("SeatsAvailable = %v, want %v", got, tc.want)
			}
		})
	}
}
