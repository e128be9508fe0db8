package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescriptor_Valid(t *testing.T) {
	assert.True(t, Descriptor(make([]float64, DescriptorLength)).Valid())
	assert.False(t, Descriptor(make([]float64, DescriptorLength-1)).Valid())
	assert.False(t, Descriptor(nil).Valid())
}

func TestSnapshot_FindUser(t *testing.T) {
	snap := NewSnapshot()
	snap.Users = append(snap.Users, Identity{ID: "S1", Name: "Alice"}, Identity{ID: "S2", Name: "Bob"})

	found := snap.FindUser("S2")
	assert.NotNil(t, found)
	assert.Equal(t, "Bob", found.Name)

	assert.Nil(t, snap.FindUser("S3"))
}

func TestAttendance_Mark(t *testing.T) {
	a := Attendance{}

	assert.True(t, a.Mark("S1", "2026-09-01"), "first mark records")
	assert.False(t, a.Mark("S1", "2026-09-01"), "second mark on the same date is a no-op")
	assert.True(t, a.Mark("S1", "2026-09-02"), "a different date records again")

	assert.Equal(t, []string{"2026-09-01", "2026-09-02"}, a.Dates("S1"))
}

func TestAttendance_Mark_InsertionOrder(t *testing.T) {
	a := Attendance{}

	a.Mark("S1", "2026-09-02")
	a.Mark("S1", "2026-08-30")
	a.Mark("S1", "2026-09-01")

	assert.Equal(t, []string{"2026-09-02", "2026-08-30", "2026-09-01"}, a.Dates("S1"),
		"dates keep insertion order, not calendar order")
}

func TestAttendance_Has(t *testing.T) {
	a := Attendance{"S1": {"2026-09-01"}}

	assert.True(t, a.Has("S1", "2026-09-01"))
	assert.False(t, a.Has("S1", "2026-09-02"))
	assert.False(t, a.Has("S2", "2026-09-01"), "unknown id reads as absent")
}

func TestAttendance_Dates_ReturnsCopy(t *testing.T) {
	a := Attendance{"S1": {"2026-09-01"}}

	dates := a.Dates("S1")
	dates[0] = "mutated"

	assert.Equal(t, []string{"2026-09-01"}, a["S1"], "ledger must not observe caller mutations")
	assert.Empty(t, a.Dates("S2"), "missing entry reads as empty, never an error")
}

func TestAttendance_ResetDate(t *testing.T) {
	a := Attendance{
		"S1": {"2026-08-31", "2026-09-01"},
		"S2": {"2026-09-01"},
		"S3": {"2026-08-30"},
	}

	cleared := a.ResetDate("2026-09-01")

	assert.Equal(t, 2, cleared)
	assert.Equal(t, []string{"2026-08-31"}, a["S1"])
	assert.Empty(t, a["S2"])
	assert.Equal(t, []string{"2026-08-30"}, a["S3"])

	assert.Zero(t, a.ResetDate("2026-09-01"), "resetting twice clears nothing")
}

func TestValidDate(t *testing.T) {
	tests := []struct {
		name string
		date string
		want bool
	}{
		{"valid", "2026-09-01", true},
		{"invalid month", "2026-13-01", false},
		{"wrong layout", "01/09/2026", false},
		{"empty", "", false},
		{"not a date", "tomorrow", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidDate(tt.date))
		})
	}
}
