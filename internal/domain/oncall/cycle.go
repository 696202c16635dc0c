package oncall

import (
	"errors"
	"fmt"
	"time"
)

// Configuration errors are surfaced to administrators, never silently
// defaulted. The schedule compositor catches them and renders no on-call for
// the affected cell instead of failing the whole range.
var (
	ErrBeforeCycleStart = errors.New("date precedes cycle start")
	ErrPatternGap       = errors.New("no pattern entry for day of cycle")
	ErrNoSlots          = errors.New("rotation has no slots")
)

// CycleDefinition groups the config, slot list, and registrar pattern for one
// role into a single value validated as a unit. Treating the three record
// types together prevents the pattern length drifting out of sync with the
// slot count.
type CycleDefinition struct {
	Config  *Config
	Slots   []*Slot
	Pattern []*PatternEntry
}

// CycleLength derives the period from the current slot count: week-unit
// cycles run one slot per week, day-unit cycles run slot count x 7 days.
func (d *CycleDefinition) CycleLength() int {
	if d.Config.UnitType == UnitWeek {
		return len(d.Slots)
	}
	return len(d.Slots) * 7
}

// Validate checks the definition as a whole: at least one slot, positions
// forming exactly 1..N, and for day-unit cycles a pattern whose length and
// slot references agree with the derived cycle length.
func (d *CycleDefinition) Validate() error {
	if len(d.Slots) == 0 {
		return ErrNoSlots
	}

	seen := make(map[int]bool, len(d.Slots))
	for _, sl := range d.Slots {
		if sl.Position < 1 || sl.Position > len(d.Slots) {
			return fmt.Errorf("slot position %d out of range 1..%d", sl.Position, len(d.Slots))
		}
		if seen[sl.Position] {
			return fmt.Errorf("duplicate slot position %d", sl.Position)
		}
		seen[sl.Position] = true
	}

	if d.Config.UnitType == UnitWeek {
		return nil
	}

	cl := d.CycleLength()
	if len(d.Pattern) != cl {
		return fmt.Errorf("pattern length %d does not match cycle length %d", len(d.Pattern), cl)
	}
	days := make(map[int]bool, len(d.Pattern))
	for _, p := range d.Pattern {
		if p.DayOfCycle < 1 || p.DayOfCycle > cl {
			return fmt.Errorf("pattern day %d out of range 1..%d", p.DayOfCycle, cl)
		}
		if days[p.DayOfCycle] {
			return fmt.Errorf("duplicate pattern day %d", p.DayOfCycle)
		}
		days[p.DayOfCycle] = true
		if !seen[p.SlotPosition] {
			return fmt.Errorf("pattern day %d references unknown slot position %d", p.DayOfCycle, p.SlotPosition)
		}
	}
	return nil
}

// SlotPositionOn resolves the rotation slot position on-call for date.
// Week-unit cycles round-robin over slot positions by week index; day-unit
// cycles look the day of cycle up in the pattern table.
func (d *CycleDefinition) SlotPositionOn(date time.Time) (int, error) {
	if len(d.Slots) == 0 {
		return 0, ErrNoSlots
	}

	days := daysBetween(d.Config.StartDate, date)
	if days < 0 {
		return 0, ErrBeforeCycleStart
	}

	if d.Config.UnitType == UnitWeek {
		weekIndex := (days / 7) % len(d.Slots)
		return weekIndex + 1, nil
	}

	dayOfCycle := days%d.CycleLength() + 1
	for _, p := range d.Pattern {
		if p.DayOfCycle == dayOfCycle {
			return p.SlotPosition, nil
		}
	}
	return 0, fmt.Errorf("day %d of cycle: %w", dayOfCycle, ErrPatternGap)
}

// SlotForPosition returns the slot holding position, or nil when none exists.
func (d *CycleDefinition) SlotForPosition(position int) *Slot {
	for _, sl := range d.Slots {
		if sl.Position == position {
			return sl
		}
	}
	return nil
}

func daysBetween(start, date time.Time) int {
	return int(DateOnly(date).Sub(DateOnly(start)).Hours() / 24)
}
