package oncall

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/shadynafie/rotato-sub000/internal/domain/staff"
)

// ErrOverlappingAssignment is a write-boundary constraint violation: two
// assignments for one slot may never cover the same date.
var ErrOverlappingAssignment = errors.New("assignment interval overlaps an existing assignment for this slot")

// ConflictSink receives on-call placement changes so coverage conflicts can
// be re-detected over the affected dates. Implemented by the coverage
// service and wired at startup.
type ConflictSink interface {
	OncallChanged(ctx context.Context, role string, from, to time.Time) error
}

// changeHorizonDays bounds re-detection after an open-ended change: a new
// epoch or pattern affects every future date, so the walk stops at a
// planning horizon instead of running forever.
const changeHorizonDays = 60

type Service struct {
	configs     ConfigRepository
	slots       SlotRepository
	assignments AssignmentRepository
	patterns    PatternRepository
	sink        ConflictSink
}

func NewService(configs ConfigRepository, slots SlotRepository, assignments AssignmentRepository, patterns PatternRepository) *Service {
	return &Service{configs: configs, slots: slots, assignments: assignments, patterns: patterns}
}

// SetConflictSink wires conflict re-detection after construction; the
// coverage service depends on this service, so the hookup happens in main.
func (s *Service) SetConflictSink(sink ConflictSink) { s.sink = sink }

// notifyChange tells the sink which dates an on-call mutation touched. Past
// dates are skipped; a rotation change cannot create cover needs
// retroactively.
func (s *Service) notifyChange(ctx context.Context, role string, from time.Time, to *time.Time) error {
	if s.sink == nil {
		return nil
	}
	from = DateOnly(from)
	if today := DateOnly(time.Now()); from.Before(today) {
		from = today
	}
	end := from.AddDate(0, 0, changeHorizonDays)
	if to != nil {
		if t := DateOnly(*to); t.Before(end) {
			end = t
		}
	}
	if end.Before(from) {
		return nil // interval ended before today
	}
	return s.sink.OncallChanged(ctx, role, from, end)
}

// notifyAssignment maps an assignment to its role and affected interval.
func (s *Service) notifyAssignment(ctx context.Context, a *SlotAssignment) error {
	if s.sink == nil {
		return nil
	}
	slot, err := s.slots.GetByID(ctx, a.SlotID)
	if err != nil {
		return fmt.Errorf("slot for assignment: %w", err)
	}
	return s.notifyChange(ctx, slot.Role, a.EffectiveFrom, a.EffectiveTo)
}

// Definition loads the full cycle definition for a role. A role with no
// config yet yields (nil, nil) so callers can treat the rotation as absent.
func (s *Service) Definition(ctx context.Context, role string) (*CycleDefinition, error) {
	cfg, err := s.configs.GetByRole(ctx, role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	slots, err := s.slots.ListByRole(ctx, role)
	if err != nil {
		return nil, err
	}
	pattern, err := s.patterns.ListByRole(ctx, role)
	if err != nil {
		return nil, err
	}
	return &CycleDefinition{Config: cfg, Slots: slots, Pattern: pattern}, nil
}

// SaveConfig sets the rotation epoch for a role. The unit type follows the
// role: consultants rotate weekly, registrars daily.
func (s *Service) SaveConfig(ctx context.Context, c *Config) error {
	switch c.Role {
	case staff.RoleConsultant:
		c.UnitType = UnitWeek
	case staff.RoleRegistrar:
		c.UnitType = UnitDay
	default:
		return fmt.Errorf("invalid role: %s", c.Role)
	}
	if c.StartDate.IsZero() {
		return fmt.Errorf("start_date is required")
	}
	c.StartDate = DateOnly(c.StartDate)
	if err := s.configs.Upsert(ctx, c); err != nil {
		return err
	}
	return s.notifyChange(ctx, c.Role, c.StartDate, nil)
}

func (s *Service) CreateSlot(ctx context.Context, sl *Slot) error {
	if sl.Role != staff.RoleConsultant && sl.Role != staff.RoleRegistrar {
		return fmt.Errorf("invalid role: %s", sl.Role)
	}
	if sl.Position < 1 {
		return fmt.Errorf("position must be >= 1")
	}
	return s.slots.Create(ctx, sl)
}

func (s *Service) DeleteSlot(ctx context.Context, id uuid.UUID) error {
	var role string
	if s.sink != nil {
		sl, err := s.slots.GetByID(ctx, id)
		if err != nil {
			return err
		}
		role = sl.Role
	}
	if err := s.slots.Delete(ctx, id); err != nil {
		return err
	}
	if role == "" {
		return nil
	}
	return s.notifyChange(ctx, role, time.Now(), nil)
}

func (s *Service) ListSlots(ctx context.Context, role string) ([]*Slot, error) {
	return s.slots.ListByRole(ctx, role)
}

// SetPattern replaces the registrar day-of-cycle table. The new table is
// validated against the current slot set as one unit so a mismatched length
// is rejected rather than left to surface as resolution failures later.
func (s *Service) SetPattern(ctx context.Context, role string, entries []*PatternEntry) error {
	if role != staff.RoleRegistrar {
		return fmt.Errorf("patterns only apply to registrar rotations")
	}
	cfg, err := s.configs.GetByRole(ctx, role)
	if err != nil {
		return fmt.Errorf("rotation config missing: %w", err)
	}
	slots, err := s.slots.ListByRole(ctx, role)
	if err != nil {
		return err
	}
	def := &CycleDefinition{Config: cfg, Slots: slots, Pattern: entries}
	if err := def.Validate(); err != nil {
		return err
	}
	if err := s.patterns.ReplaceForRole(ctx, role, entries); err != nil {
		return err
	}
	return s.notifyChange(ctx, role, cfg.StartDate, nil)
}

// CreateAssignment records slot ownership over a date interval, rejecting
// any overlap with existing assignments for the same slot.
func (s *Service) CreateAssignment(ctx context.Context, a *SlotAssignment) error {
	if a.SlotID == uuid.Nil {
		return fmt.Errorf("slot_id is required")
	}
	if a.ClinicianID == uuid.Nil {
		return fmt.Errorf("clinician_id is required")
	}
	if a.EffectiveFrom.IsZero() {
		return fmt.Errorf("effective_from is required")
	}
	a.EffectiveFrom = DateOnly(a.EffectiveFrom)
	if a.EffectiveTo != nil {
		to := DateOnly(*a.EffectiveTo)
		if to.Before(a.EffectiveFrom) {
			return fmt.Errorf("effective_to precedes effective_from")
		}
		a.EffectiveTo = &to
	}

	existing, err := s.assignments.ListBySlot(ctx, a.SlotID)
	if err != nil {
		return err
	}
	for _, e := range existing {
		if intervalsOverlap(a, e) {
			return ErrOverlappingAssignment
		}
	}
	if err := s.assignments.Create(ctx, a); err != nil {
		return err
	}
	return s.notifyAssignment(ctx, a)
}

// EndAssignment closes an open-ended assignment on endDate (inclusive).
func (s *Service) EndAssignment(ctx context.Context, id uuid.UUID, endDate time.Time) error {
	a, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("assignment not found: %w", err)
	}
	end := DateOnly(endDate)
	if end.Before(DateOnly(a.EffectiveFrom)) {
		return fmt.Errorf("end date precedes effective_from")
	}
	a.EffectiveTo = &end
	if err := s.assignments.Update(ctx, a); err != nil {
		return err
	}
	return s.notifyAssignment(ctx, a)
}

func (s *Service) DeleteAssignment(ctx context.Context, id uuid.UUID) error {
	var a *SlotAssignment
	if s.sink != nil {
		var err error
		if a, err = s.assignments.GetByID(ctx, id); err != nil {
			return err
		}
	}
	if err := s.assignments.Delete(ctx, id); err != nil {
		return err
	}
	if a == nil {
		return nil
	}
	return s.notifyAssignment(ctx, a)
}

func (s *Service) ListAssignments(ctx context.Context, slotID uuid.UUID) ([]*SlotAssignment, error) {
	return s.assignments.ListBySlot(ctx, slotID)
}

// ClinicianForSlot returns who holds the slot on date, or nil when the slot
// is vacant that day. Vacancy is not an error.
func (s *Service) ClinicianForSlot(ctx context.Context, slotID uuid.UUID, date time.Time) (*uuid.UUID, error) {
	assignments, err := s.assignments.ListBySlot(ctx, slotID)
	if err != nil {
		return nil, err
	}
	for _, a := range assignments {
		if a.Covers(date) {
			id := a.ClinicianID
			return &id, nil
		}
	}
	return nil, nil
}

// OncallClinicianOn resolves which clinician of the role is on call on date.
// Returns (nil, nil) when the role has no rotation or the resolved slot is
// vacant. Configuration errors (date before cycle start, pattern gap)
// propagate so callers can degrade or report them.
func (s *Service) OncallClinicianOn(ctx context.Context, role string, date time.Time) (*uuid.UUID, error) {
	def, err := s.Definition(ctx, role)
	if err != nil {
		return nil, err
	}
	if def == nil || len(def.Slots) == 0 {
		return nil, nil
	}
	position, err := def.SlotPositionOn(date)
	if err != nil {
		return nil, err
	}
	slot := def.SlotForPosition(position)
	if slot == nil {
		return nil, nil
	}
	return s.ClinicianForSlot(ctx, slot.ID, date)
}

// TodayOncall resolves the current on-call clinician for both roles.
// Configuration errors degrade to no on-call here since this is a display
// convenience, not an admin surface.
func (s *Service) TodayOncall(ctx context.Context) (map[string]*uuid.UUID, error) {
	today := DateOnly(time.Now())
	result := make(map[string]*uuid.UUID, 2)
	for _, role := range []string{staff.RoleConsultant, staff.RoleRegistrar} {
		id, err := s.OncallClinicianOn(ctx, role, today)
		if err != nil {
			if errors.Is(err, ErrBeforeCycleStart) || errors.Is(err, ErrPatternGap) {
				result[role] = nil
				continue
			}
			return nil, err
		}
		result[role] = id
	}
	return result, nil
}

func intervalsOverlap(a, b *SlotAssignment) bool {
	if b.EffectiveTo != nil && DateOnly(a.EffectiveFrom).After(DateOnly(*b.EffectiveTo)) {
		return false
	}
	if a.EffectiveTo != nil && DateOnly(b.EffectiveFrom).After(DateOnly(*a.EffectiveTo)) {
		return false
	}
	return true
}
