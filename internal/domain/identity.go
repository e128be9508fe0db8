package domain

import (
	"slices"
	"time"
)

// DescriptorLength is the dimensionality of every face descriptor.
// Descriptors come from the extraction provider (dlib-compatible, 128 floats).
const DescriptorLength = 128

// DateFormat is the calendar-date layout used by the attendance ledger.
const DateFormat = "2006-01-02"

// Descriptor é um vetor de características de uma face (128 componentes).
type Descriptor []float64

// Valid reports whether the descriptor has exactly DescriptorLength components.
func (d Descriptor) Valid() bool {
	return len(d) == DescriptorLength
}

// Identity represents a person enrolled in the registry.
type Identity struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Descriptors  []Descriptor `json:"descriptors"`
	RegisteredAt time.Time    `json:"registered_at"`
}

// Attendance maps an identity id to the insertion-ordered set of calendar
// dates (DateFormat strings) on which that identity was marked present.
// A date appears at most once per identity; no sort order is imposed on
// the list.
type Attendance map[string][]string

// Snapshot is the full durable state: every enrolled identity plus the
// attendance ledger, persisted as a single atomic unit.
type Snapshot struct {
	Users      []Identity `json:"users"`
	Attendance Attendance `json:"attendance"`
}

// NewSnapshot returns an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Users:      []Identity{},
		Attendance: Attendance{},
	}
}

// FindUser returns the identity with the given id, or nil.
func (s *Snapshot) FindUser(id string) *Identity {
	for i := range s.Users {
		if s.Users[i].ID == id {
			return &s.Users[i]
		}
	}
	return nil
}

// Dates returns a copy of the attendance dates for an identity.
// Missing ledger entries read as an empty date set, never an error.
func (a Attendance) Dates(id string) []string {
	dates := a[id]
	out := make([]string, len(dates))
	copy(out, dates)
	return out
}

// Has reports whether the identity was marked present on the given date.
func (a Attendance) Has(id, date string) bool {
	return slices.Contains(a[id], date)
}

// Mark records the date for the identity. It returns false without
// modifying the ledger when the date is already present.
func (a Attendance) Mark(id, date string) bool {
	if a.Has(id, date) {
		return false
	}
	a[id] = append(a[id], date)
	return true
}

// ResetDate removes the date from every identity that has it and returns
// the number of identities affected.
func (a Attendance) ResetDate(date string) int {
	cleared := 0
	for id, dates := range a {
		idx := slices.Index(dates, date)
		if idx < 0 {
			continue
		}
		a[id] = slices.Delete(dates, idx, idx+1)
		cleared++
	}
	return cleared
}

// ValidDate reports whether the string is a well-formed DateFormat date.
func ValidDate(date string) bool {
	_, err := time.Parse(DateFormat, date)
	return err == nil
}

// Today returns the current calendar date in DateFormat.
func Today() string {
	return time.Now().Format(DateFormat)
}
