package oncall

import (
	"time"

	"github.com/google/uuid"
)

// Cycle unit types. Consultant rotations advance weekly, registrar rotations
// daily via an explicit day-of-cycle pattern.
const (
	UnitWeek = "week"
	UnitDay  = "day"
)

// Config holds the rotation epoch for one role. The cycle length is always
// derived from the current slot count, never stored.
type Config struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Role      string    `db:"role" json:"role"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	UnitType  string    `db:"unit_type" json:"unit_type"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Slot is a named rotation position (1..N) for one role, independent of who
// currently holds it.
type Slot struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Role      string    `db:"role" json:"role"`
	Position  int       `db:"position" json:"position"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SlotAssignment binds a clinician to a slot over an inclusive date interval.
// A nil EffectiveTo means open-ended. Intervals for one slot never overlap.
type SlotAssignment struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	SlotID        uuid.UUID  `db:"slot_id" json:"slot_id"`
	ClinicianID   uuid.UUID  `db:"clinician_id" json:"clinician_id"`
	EffectiveFrom time.Time  `db:"effective_from" json:"effective_from"`
	EffectiveTo   *time.Time `db:"effective_to" json:"effective_to,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// Covers reports whether the assignment interval contains date.
func (a *SlotAssignment) Covers(date time.Time) bool {
	d := DateOnly(date)
	if d.Before(DateOnly(a.EffectiveFrom)) {
		return false
	}
	if a.EffectiveTo == nil {
		return true
	}
	return !d.After(DateOnly(*a.EffectiveTo))
}

// PatternEntry maps a day of the registrar cycle (1..cycleLength) to a slot
// position, so weekday and weekend coverage can follow different policies.
type PatternEntry struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Role         string    `db:"role" json:"role"`
	DayOfCycle   int       `db:"day_of_cycle" json:"day_of_cycle"`
	SlotPosition int       `db:"slot_position" json:"slot_position"`
}

// DateOnly truncates t to a calendar date in UTC. All rota math works on
// whole days.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
