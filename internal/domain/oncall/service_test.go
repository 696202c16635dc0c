package oncall

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/shadynafie/rotato-sub000/internal/domain/staff"
)

type mockConfigRepo struct {
	byRole map[string]*Config
}

func (m *mockConfigRepo) GetByRole(_ context.Context, role string) (*Config, error) {
	c, ok := m.byRole[role]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return c, nil
}

func (m *mockConfigRepo) Upsert(_ context.Context, c *Config) error {
	m.byRole[c.Role] = c
	return nil
}

type mockSlotRepo struct {
	items map[uuid.UUID]*Slot
}

func (m *mockSlotRepo) Create(_ context.Context, sl *Slot) error {
	sl.ID = uuid.New()
	m.items[sl.ID] = sl
	return nil
}

func (m *mockSlotRepo) GetByID(_ context.Context, id uuid.UUID) (*Slot, error) {
	sl, ok := m.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return sl, nil
}

func (m *mockSlotRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.items, id)
	return nil
}

func (m *mockSlotRepo) ListByRole(_ context.Context, role string) ([]*Slot, error) {
	var out []*Slot
	for pos := 1; pos <= len(m.items); pos++ {
		for _, sl := range m.items {
			if sl.Role == role && sl.Position == pos {
				out = append(out, sl)
			}
		}
	}
	return out, nil
}

type mockAssignmentRepo struct {
	items map[uuid.UUID]*SlotAssignment
}

func (m *mockAssignmentRepo) Create(_ context.Context, a *SlotAssignment) error {
	a.ID = uuid.New()
	m.items[a.ID] = a
	return nil
}

func (m *mockAssignmentRepo) GetByID(_ context.Context, id uuid.UUID) (*SlotAssignment, error) {
	a, ok := m.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return a, nil
}

func (m *mockAssignmentRepo) Update(_ context.Context, a *SlotAssignment) error {
	m.items[a.ID] = a
	return nil
}

func (m *mockAssignmentRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.items, id)
	return nil
}

func (m *mockAssignmentRepo) ListBySlot(_ context.Context, slotID uuid.UUID) ([]*SlotAssignment, error) {
	var out []*SlotAssignment
	for _, a := range m.items {
		if a.SlotID == slotID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockAssignmentRepo) ListCoveringDate(_ context.Context, role string, d time.Time) ([]*SlotAssignment, error) {
	var out []*SlotAssignment
	for _, a := range m.items {
		if a.Covers(d) {
			out = append(out, a)
		}
	}
	return out, nil
}

type mockPatternRepo struct {
	byRole map[string][]*PatternEntry
}

func (m *mockPatternRepo) ListByRole(_ context.Context, role string) ([]*PatternEntry, error) {
	return m.byRole[role], nil
}

func (m *mockPatternRepo) ReplaceForRole(_ context.Context, role string, entries []*PatternEntry) error {
	m.byRole[role] = entries
	return nil
}

type fixture struct {
	svc         *Service
	configs     *mockConfigRepo
	slots       *mockSlotRepo
	assignments *mockAssignmentRepo
	patterns    *mockPatternRepo
}

func newFixture() *fixture {
	f := &fixture{
		configs:     &mockConfigRepo{byRole: make(map[string]*Config)},
		slots:       &mockSlotRepo{items: make(map[uuid.UUID]*Slot)},
		assignments: &mockAssignmentRepo{items: make(map[uuid.UUID]*SlotAssignment)},
		patterns:    &mockPatternRepo{byRole: make(map[string][]*PatternEntry)},
	}
	f.svc = NewService(f.configs, f.slots, f.assignments, f.patterns)
	return f
}

// consultantRotation seeds a 3-slot weekly rotation starting 2024-01-01 with
// one clinician per slot. Returns the clinician ids in slot order.
func (f *fixture) consultantRotation(t *testing.T) []uuid.UUID {
	t.Helper()
	ctx := context.Background()
	if err := f.svc.SaveConfig(ctx, &Config{Role: staff.RoleConsultant, StartDate: date(2024, time.January, 1)}); err != nil {
		t.Fatalf("save config: %v", err)
	}
	var holders []uuid.UUID
	for i := 1; i <= 3; i++ {
		sl := &Slot{Role: staff.RoleConsultant, Position: i, Name: "slot"}
		if err := f.svc.CreateSlot(ctx, sl); err != nil {
			t.Fatalf("create slot: %v", err)
		}
		clinician := uuid.New()
		holders = append(holders, clinician)
		if err := f.svc.CreateAssignment(ctx, &SlotAssignment{
			SlotID: sl.ID, ClinicianID: clinician, EffectiveFrom: date(2024, time.January, 1),
		}); err != nil {
			t.Fatalf("create assignment: %v", err)
		}
	}
	return holders
}

func TestOncallClinicianOnWeeklyRotation(t *testing.T) {
	f := newFixture()
	holders := f.consultantRotation(t)
	ctx := context.Background()

	got, err := f.svc.OncallClinicianOn(ctx, staff.RoleConsultant, date(2024, time.January, 10)) // week 1 -> slot 2
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || *got != holders[1] {
		t.Errorf("expected slot 2 holder on call, got %v", got)
	}

	got, err = f.svc.OncallClinicianOn(ctx, staff.RoleConsultant, date(2024, time.January, 22)) // week 3 wraps -> slot 1
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || *got != holders[0] {
		t.Errorf("expected wrap to slot 1 holder, got %v", got)
	}
}

func TestOncallNoConfigIsNotAnError(t *testing.T) {
	f := newFixture()
	got, err := f.svc.OncallClinicianOn(context.Background(), staff.RoleRegistrar, date(2024, time.June, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected no on-call without a rotation, got %v", got)
	}
}

func TestOncallVacantSlot(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.svc.SaveConfig(ctx, &Config{Role: staff.RoleConsultant, StartDate: date(2024, time.January, 1)})
	sl := &Slot{Role: staff.RoleConsultant, Position: 1, Name: "slot"}
	f.svc.CreateSlot(ctx, sl)

	got, err := f.svc.OncallClinicianOn(ctx, staff.RoleConsultant, date(2024, time.January, 3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("vacant slot should resolve to no clinician, got %v", got)
	}
}

func TestCreateAssignmentRejectsOverlap(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	slotID := uuid.New()
	f.slots.items[slotID] = &Slot{ID: slotID, Role: staff.RoleConsultant, Position: 1}

	to := date(2024, time.March, 31)
	if err := f.svc.CreateAssignment(ctx, &SlotAssignment{
		SlotID: slotID, ClinicianID: uuid.New(),
		EffectiveFrom: date(2024, time.March, 1), EffectiveTo: &to,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := f.svc.CreateAssignment(ctx, &SlotAssignment{
		SlotID: slotID, ClinicianID: uuid.New(),
		EffectiveFrom: date(2024, time.March, 15),
	})
	if !errors.Is(err, ErrOverlappingAssignment) {
		t.Errorf("expected ErrOverlappingAssignment, got %v", err)
	}

	// Adjacent interval starting the day after is fine.
	if err := f.svc.CreateAssignment(ctx, &SlotAssignment{
		SlotID: slotID, ClinicianID: uuid.New(),
		EffectiveFrom: date(2024, time.April, 1),
	}); err != nil {
		t.Fatalf("adjacent interval rejected: %v", err)
	}
}

func TestEndAssignment(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	slotID := uuid.New()
	a := &SlotAssignment{SlotID: slotID, ClinicianID: uuid.New(), EffectiveFrom: date(2024, time.January, 1)}
	f.assignments.Create(ctx, a)

	if err := f.svc.EndAssignment(ctx, a.ID, date(2024, time.June, 30)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.EffectiveTo == nil || !a.EffectiveTo.Equal(date(2024, time.June, 30)) {
		t.Errorf("expected effective_to set to 2024-06-30, got %v", a.EffectiveTo)
	}

	if err := f.svc.EndAssignment(ctx, uuid.New(), date(2024, time.June, 30)); err == nil {
		t.Error("expected error ending a non-existent assignment")
	}
}

func TestSetPatternValidatesAsUnit(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.svc.SaveConfig(ctx, &Config{Role: staff.RoleRegistrar, StartDate: date(2024, time.January, 1)})
	for i := 1; i <= 2; i++ {
		f.svc.CreateSlot(ctx, &Slot{Role: staff.RoleRegistrar, Position: i, Name: "slot"})
	}

	short := []*PatternEntry{{DayOfCycle: 1, SlotPosition: 1}}
	if err := f.svc.SetPattern(ctx, staff.RoleRegistrar, short); err == nil {
		t.Error("expected error for pattern shorter than cycle length")
	}

	var full []*PatternEntry
	for d := 1; d <= 14; d++ {
		full = append(full, &PatternEntry{DayOfCycle: d, SlotPosition: (d-1)%2 + 1})
	}
	if err := f.svc.SetPattern(ctx, staff.RoleRegistrar, full); err != nil {
		t.Fatalf("valid pattern rejected: %v", err)
	}

	if err := f.svc.SetPattern(ctx, staff.RoleConsultant, full); err == nil {
		t.Error("expected error setting a pattern for consultants")
	}
}

type sinkCall struct {
	role     string
	from, to time.Time
}

type recordingSink struct {
	calls []sinkCall
}

func (r *recordingSink) OncallChanged(_ context.Context, role string, from, to time.Time) error {
	r.calls = append(r.calls, sinkCall{role, from, to})
	return nil
}

func TestMutationsNotifyConflictSink(t *testing.T) {
	f := newFixture()
	sink := &recordingSink{}
	f.svc.SetConflictSink(sink)
	ctx := context.Background()
	today := DateOnly(time.Now())

	if err := f.svc.SaveConfig(ctx, &Config{Role: staff.RoleConsultant, StartDate: date(2024, time.January, 1)}); err != nil {
		t.Fatalf("save config: %v", err)
	}
	if len(sink.calls) != 1 {
		t.Fatalf("config change must notify, got %d calls", len(sink.calls))
	}
	c := sink.calls[0]
	if c.role != staff.RoleConsultant {
		t.Errorf("wrong role: %q", c.role)
	}
	// An epoch in the past cannot create needs retroactively; the notified
	// interval starts today and stops at the planning horizon.
	if !c.from.Equal(today) || !c.to.Equal(today.AddDate(0, 0, changeHorizonDays)) {
		t.Errorf("unexpected interval: %v..%v", c.from, c.to)
	}

	sl := &Slot{Role: staff.RoleConsultant, Position: 1, Name: "slot"}
	if err := f.svc.CreateSlot(ctx, sl); err != nil {
		t.Fatalf("create slot: %v", err)
	}
	a := &SlotAssignment{SlotID: sl.ID, ClinicianID: uuid.New(), EffectiveFrom: today.AddDate(0, 0, 1)}
	if err := f.svc.CreateAssignment(ctx, a); err != nil {
		t.Fatalf("create assignment: %v", err)
	}
	if len(sink.calls) != 2 {
		t.Fatalf("new assignment must notify, got %d calls", len(sink.calls))
	}

	if err := f.svc.EndAssignment(ctx, a.ID, today.AddDate(0, 0, 5)); err != nil {
		t.Fatalf("end assignment: %v", err)
	}
	if len(sink.calls) != 3 {
		t.Fatalf("ended assignment must notify, got %d calls", len(sink.calls))
	}
	if c := sink.calls[2]; !c.to.Equal(today.AddDate(0, 0, 5)) {
		t.Errorf("interval must stop at the assignment end, got %v", c.to)
	}

	// A change wholly in the past affects no upcoming date.
	sl2 := &Slot{Role: staff.RoleConsultant, Position: 2, Name: "slot"}
	if err := f.svc.CreateSlot(ctx, sl2); err != nil {
		t.Fatalf("create slot: %v", err)
	}
	past := date(2020, time.June, 30)
	if err := f.svc.CreateAssignment(ctx, &SlotAssignment{
		SlotID: sl2.ID, ClinicianID: uuid.New(),
		EffectiveFrom: date(2020, time.January, 1), EffectiveTo: &past,
	}); err != nil {
		t.Fatalf("past assignment: %v", err)
	}
	if len(sink.calls) != 3 {
		t.Errorf("wholly past assignment must not notify, got %d calls", len(sink.calls))
	}
}
