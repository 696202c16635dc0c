package oncall

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func weekDefinition(slotCount int, start time.Time) *CycleDefinition {
	def := &CycleDefinition{
		Config: &Config{Role: "consultant", StartDate: start, UnitType: UnitWeek},
	}
	for i := 1; i <= slotCount; i++ {
		def.Slots = append(def.Slots, &Slot{ID: uuid.New(), Role: "consultant", Position: i})
	}
	return def
}

func dayDefinition(slotCount int, start time.Time) *CycleDefinition {
	def := &CycleDefinition{
		Config: &Config{Role: "registrar", StartDate: start, UnitType: UnitDay},
	}
	for i := 1; i <= slotCount; i++ {
		def.Slots = append(def.Slots, &Slot{ID: uuid.New(), Role: "registrar", Position: i})
	}
	// Alternate positions day by day across the full cycle.
	for d := 1; d <= slotCount*7; d++ {
		def.Pattern = append(def.Pattern, &PatternEntry{
			DayOfCycle:   d,
			SlotPosition: (d-1)%slotCount + 1,
		})
	}
	return def
}

func TestWeekCycleRoundRobin(t *testing.T) {
	start := date(2024, time.January, 1)
	def := weekDefinition(3, start)

	cases := []struct {
		date time.Time
		want int
	}{
		{date(2024, time.January, 1), 1},  // week 0
		{date(2024, time.January, 8), 2},  // week 1
		{date(2024, time.January, 15), 3}, // week 2
		{date(2024, time.January, 22), 1}, // week 3 wraps to slot 1
		{date(2024, time.January, 4), 1},  // mid-week stays in week 0
		{date(2024, time.January, 7), 1},  // last day of week 0
	}
	for _, tc := range cases {
		got, err := def.SlotPositionOn(tc.date)
		if err != nil {
			t.Fatalf("SlotPositionOn(%s): unexpected error: %v", tc.date.Format("2006-01-02"), err)
		}
		if got != tc.want {
			t.Errorf("SlotPositionOn(%s) = %d, want %d", tc.date.Format("2006-01-02"), got, tc.want)
		}
	}
}

func TestDayCyclePatternLookupAndWrap(t *testing.T) {
	start := date(2024, time.January, 1)
	def := dayDefinition(2, start) // cycle length 14

	if def.CycleLength() != 14 {
		t.Fatalf("expected cycle length 14, got %d", def.CycleLength())
	}

	// Day 15 of the calendar is day 1 of the second cycle.
	got, err := def.SlotPositionOn(date(2024, time.January, 15))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want, err := def.SlotPositionOn(start)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Errorf("day 15 resolved to position %d, want wrap to day-1 position %d", got, want)
	}
}

func TestBeforeCycleStart(t *testing.T) {
	start := date(2024, time.January, 1)
	def := weekDefinition(3, start)

	_, err := def.SlotPositionOn(date(2023, time.December, 31))
	if !errors.Is(err, ErrBeforeCycleStart) {
		t.Errorf("expected ErrBeforeCycleStart, got %v", err)
	}
}

func TestPatternGapIsReported(t *testing.T) {
	start := date(2024, time.January, 1)
	def := dayDefinition(2, start)
	def.Pattern = def.Pattern[:10] // truncated table, days 11..14 missing

	_, err := def.SlotPositionOn(date(2024, time.January, 12)) // day 12 of cycle
	if !errors.Is(err, ErrPatternGap) {
		t.Errorf("expected ErrPatternGap, got %v", err)
	}
}

func TestValidateRejectsMismatchedPattern(t *testing.T) {
	start := date(2024, time.January, 1)

	def := dayDefinition(2, start)
	if err := def.Validate(); err != nil {
		t.Fatalf("valid definition rejected: %v", err)
	}

	def.Pattern = def.Pattern[:13]
	if err := def.Validate(); err == nil {
		t.Error("expected error for pattern length mismatch")
	}

	def = dayDefinition(2, start)
	def.Pattern[0].SlotPosition = 9
	if err := def.Validate(); err == nil {
		t.Error("expected error for pattern referencing unknown slot position")
	}

	def = weekDefinition(2, start)
	def.Slots[1].Position = 1
	if err := def.Validate(); err == nil {
		t.Error("expected error for duplicate slot position")
	}

	def = &CycleDefinition{Config: &Config{UnitType: UnitWeek}}
	if !errors.Is(def.Validate(), ErrNoSlots) {
		t.Error("expected ErrNoSlots for empty slot list")
	}
}

func TestAssignmentCovers(t *testing.T) {
	from := date(2024, time.March, 1)
	to := date(2024, time.March, 31)
	closed := &SlotAssignment{EffectiveFrom: from, EffectiveTo: &to}
	open := &SlotAssignment{EffectiveFrom: from}

	if !closed.Covers(from) || !closed.Covers(to) {
		t.Error("closed interval should include both endpoints")
	}
	if closed.Covers(date(2024, time.April, 1)) {
		t.Error("closed interval should exclude dates after effective_to")
	}
	if closed.Covers(date(2024, time.February, 29)) {
		t.Error("interval should exclude dates before effective_from")
	}
	if !open.Covers(date(2030, time.January, 1)) {
		t.Error("open-ended interval should include all future dates")
	}
}
