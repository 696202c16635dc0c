package coverage

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/shadynafie/rotato-sub000/internal/domain/rota"
	"github.com/shadynafie/rotato-sub000/internal/domain/staff"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// -- staff mocks --

type memClinicians struct {
	items map[uuid.UUID]*staff.Clinician
}

func newMemClinicians() *memClinicians {
	return &memClinicians{items: map[uuid.UUID]*staff.Clinician{}}
}

func (m *memClinicians) Create(_ context.Context, c *staff.Clinician) error {
	m.items[c.ID] = c
	return nil
}

func (m *memClinicians) GetByID(_ context.Context, id uuid.UUID) (*staff.Clinician, error) {
	c, ok := m.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return c, nil
}

func (m *memClinicians) Update(_ context.Context, c *staff.Clinician) error {
	m.items[c.ID] = c
	return nil
}

func (m *memClinicians) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.items, id)
	return nil
}

func (m *memClinicians) List(_ context.Context, _, _ int) ([]*staff.Clinician, int, error) {
	var out []*staff.Clinician
	for _, c := range m.items {
		out = append(out, c)
	}
	return out, len(out), nil
}

func (m *memClinicians) ListActiveByRole(_ context.Context, role string) ([]*staff.Clinician, error) {
	var out []*staff.Clinician
	for _, c := range m.items {
		if c.Active && c.Role == role {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

type memDuties struct {
	items map[uuid.UUID]*staff.Duty
}

func newMemDuties() *memDuties { return &memDuties{items: map[uuid.UUID]*staff.Duty{}} }

func (m *memDuties) Create(_ context.Context, d *staff.Duty) error {
	m.items[d.ID] = d
	return nil
}

func (m *memDuties) GetByID(_ context.Context, id uuid.UUID) (*staff.Duty, error) {
	d, ok := m.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return d, nil
}

func (m *memDuties) Update(_ context.Context, d *staff.Duty) error {
	m.items[d.ID] = d
	return nil
}

func (m *memDuties) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.items, id)
	return nil
}

func (m *memDuties) List(_ context.Context, _, _ int) ([]*staff.Duty, int, error) {
	var out []*staff.Duty
	for _, d := range m.items {
		out = append(out, d)
	}
	return out, len(out), nil
}

// -- rota mocks --

type memJobPlan struct {
	entries []*rota.JobPlanEntry
}

func (m *memJobPlan) Upsert(_ context.Context, e *rota.JobPlanEntry) error {
	e.ID = uuid.New()
	m.entries = append(m.entries, e)
	return nil
}

func (m *memJobPlan) Delete(_ context.Context, id uuid.UUID) error {
	for i, e := range m.entries {
		if e.ID == id {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (m *memJobPlan) ListByClinician(_ context.Context, clinicianID uuid.UUID) ([]*rota.JobPlanEntry, error) {
	var out []*rota.JobPlanEntry
	for _, e := range m.entries {
		if e.ClinicianID == clinicianID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memJobPlan) ListAll(_ context.Context) ([]*rota.JobPlanEntry, error) {
	return m.entries, nil
}

func (m *memJobPlan) FindCell(_ context.Context, clinicianID uuid.UUID, weekNo, dayOfWeek int, session string) (*rota.JobPlanEntry, error) {
	for _, e := range m.entries {
		if e.ClinicianID == clinicianID && e.WeekNo == weekNo && e.DayOfWeek == dayOfWeek && e.Session == session {
			return e, nil
		}
	}
	return nil, nil
}

func (m *memJobPlan) ListSupporting(_ context.Context, consultantID uuid.UUID, weekNo, dayOfWeek int, session string) ([]*rota.JobPlanEntry, error) {
	var out []*rota.JobPlanEntry
	for _, e := range m.entries {
		if e.SupportingConsultantID != nil && *e.SupportingConsultantID == consultantID &&
			e.WeekNo == weekNo && e.DayOfWeek == dayOfWeek && e.Session == session {
			out = append(out, e)
		}
	}
	return out, nil
}

type memLeaves struct {
	items []*rota.Leave
}

func (m *memLeaves) Create(_ context.Context, l *rota.Leave) error {
	for _, x := range m.items {
		if x.ClinicianID == l.ClinicianID && x.Date.Equal(l.Date) && x.Session == l.Session {
			return rota.ErrDuplicateLeave
		}
	}
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	m.items = append(m.items, l)
	return nil
}

func (m *memLeaves) GetByID(_ context.Context, id uuid.UUID) (*rota.Leave, error) {
	for _, l := range m.items {
		if l.ID == id {
			return l, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memLeaves) Delete(_ context.Context, id uuid.UUID) error {
	for i, l := range m.items {
		if l.ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (m *memLeaves) ListRange(_ context.Context, from, to time.Time) ([]*rota.Leave, error) {
	var out []*rota.Leave
	for _, l := range m.items {
		if !l.Date.Before(from) && !l.Date.After(to) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memLeaves) ListForClinicianRange(_ context.Context, clinicianID uuid.UUID, from, to time.Time) ([]*rota.Leave, error) {
	var out []*rota.Leave
	for _, l := range m.items {
		if l.ClinicianID == clinicianID && !l.Date.Before(from) && !l.Date.After(to) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memLeaves) CoveringSession(_ context.Context, clinicianID uuid.UUID, d time.Time, session string) (bool, error) {
	for _, l := range m.items {
		if l.ClinicianID == clinicianID && l.Date.Equal(d) && l.CoversSession(session) {
			return true, nil
		}
	}
	return false, nil
}

type memDerived struct {
	items []*rota.DerivedOverride
}

func (m *memDerived) CreateIfAbsent(_ context.Context, o *rota.DerivedOverride) error {
	for _, x := range m.items {
		if x.ClinicianID == o.ClinicianID && x.Date.Equal(o.Date) && x.Session == o.Session &&
			x.OriginLeaveID == o.OriginLeaveID {
			return nil
		}
	}
	o.ID = uuid.New()
	m.items = append(m.items, o)
	return nil
}

func (m *memDerived) DeleteByOrigin(_ context.Context, originLeaveID uuid.UUID) error {
	kept := m.items[:0]
	for _, x := range m.items {
		if x.OriginLeaveID != originLeaveID {
			kept = append(kept, x)
		}
	}
	m.items = kept
	return nil
}

func (m *memDerived) ListByOrigin(_ context.Context, originLeaveID uuid.UUID) ([]*rota.DerivedOverride, error) {
	var out []*rota.DerivedOverride
	for _, x := range m.items {
		if x.OriginLeaveID == originLeaveID {
			out = append(out, x)
		}
	}
	return out, nil
}

func (m *memDerived) ListRange(_ context.Context, from, to time.Time) ([]*rota.DerivedOverride, error) {
	var out []*rota.DerivedOverride
	for _, x := range m.items {
		if !x.Date.Before(from) && !x.Date.After(to) {
			out = append(out, x)
		}
	}
	return out, nil
}

// -- request repo mock --

type memRequests struct {
	items []*Request
	seq   int
}

func (m *memRequests) Create(_ context.Context, r *Request) error {
	for _, x := range m.items {
		if x.Status != StatusCancelled && x.AbsentClinicianID == r.AbsentClinicianID &&
			x.Date.Equal(r.Date) && x.Session == r.Session && x.DutyID == r.DutyID {
			return ErrDuplicateRequest
		}
	}
	r.ID = uuid.New()
	m.seq++
	r.CreatedAt = time.Date(2024, time.January, 1, 0, 0, m.seq, 0, time.UTC)
	m.items = append(m.items, r)
	return nil
}

func (m *memRequests) GetByID(_ context.Context, id uuid.UUID) (*Request, error) {
	for _, x := range m.items {
		if x.ID == id {
			return x, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memRequests) Update(_ context.Context, r *Request) error {
	for i, x := range m.items {
		if x.ID == r.ID {
			m.items[i] = r
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (m *memRequests) Delete(_ context.Context, id uuid.UUID) error {
	for i, x := range m.items {
		if x.ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (m *memRequests) List(_ context.Context, status string, _, _ int) ([]*Request, int, error) {
	var out []*Request
	for _, x := range m.items {
		if status == "" || x.Status == status {
			out = append(out, x)
		}
	}
	return out, len(out), nil
}

func (m *memRequests) ListPendingOldestFirst(_ context.Context) ([]*Request, error) {
	var out []*Request
	for _, x := range m.items {
		if x.Status == StatusPending {
			out = append(out, x)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		if out[i].Session != out[j].Session {
			return out[i].Session < out[j].Session
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *memRequests) CancelForLeave(_ context.Context, absentClinicianID uuid.UUID, d time.Time, sessions []string, reason string) (int, error) {
	inSessions := func(s string) bool {
		for _, x := range sessions {
			if x == s {
				return true
			}
		}
		return false
	}
	n := 0
	for _, x := range m.items {
		if x.AbsentClinicianID == absentClinicianID && x.Date.Equal(d) &&
			inSessions(x.Session) && x.Reason == reason && x.Status != StatusCancelled {
			x.Status = StatusCancelled
			n++
		}
	}
	return n, nil
}

func (m *memRequests) HasAssignment(_ context.Context, clinicianID uuid.UUID, d time.Time, session string) (bool, error) {
	for _, x := range m.items {
		if x.Status != StatusCancelled && x.AssignedClinicianID != nil && *x.AssignedClinicianID == clinicianID &&
			x.Date.Equal(d) && x.Session == session {
			return true, nil
		}
	}
	return false, nil
}

func (m *memRequests) LastAssignmentBefore(_ context.Context, clinicianID uuid.UUID, before time.Time) (*time.Time, error) {
	var last *time.Time
	for _, x := range m.items {
		if x.Status == StatusCancelled || x.AssignedClinicianID == nil || *x.AssignedClinicianID != clinicianID {
			continue
		}
		if !x.Date.Before(before) {
			continue
		}
		if last == nil || x.Date.After(*last) {
			d := x.Date
			last = &d
		}
	}
	return last, nil
}

func (m *memRequests) CountAssignedInWindow(_ context.Context, clinicianID uuid.UUID, from, to time.Time) (int, error) {
	n := 0
	for _, x := range m.items {
		if x.Status == StatusCancelled || x.AssignedClinicianID == nil || *x.AssignedClinicianID != clinicianID {
			continue
		}
		if !x.Date.Before(from) && !x.Date.After(to) {
			n++
		}
	}
	return n, nil
}

// -- on-call stub --

type staticOncall struct {
	holders map[string]map[string]uuid.UUID // role -> date -> clinician
}

func newStaticOncall() *staticOncall {
	return &staticOncall{holders: map[string]map[string]uuid.UUID{}}
}

func (s *staticOncall) set(role string, d time.Time, id uuid.UUID) {
	if s.holders[role] == nil {
		s.holders[role] = map[string]uuid.UUID{}
	}
	s.holders[role][d.Format("2006-01-02")] = id
}

func (s *staticOncall) OncallClinicianOn(_ context.Context, role string, d time.Time) (*uuid.UUID, error) {
	if id, ok := s.holders[role][d.Format("2006-01-02")]; ok {
		return &id, nil
	}
	return nil, nil
}

// -- fixture --

type coverageFixture struct {
	clinicians *memClinicians
	duties     *memDuties
	jobplan    *memJobPlan
	leaves     *memLeaves
	derived    *memDerived
	requests   *memRequests
	oncall     *staticOncall
	detector   *Detector
	scorer     *Scorer
	svc        *Service
}

func newCoverageFixture(restDays, windowDays int) *coverageFixture {
	f := &coverageFixture{
		clinicians: newMemClinicians(),
		duties:     newMemDuties(),
		jobplan:    &memJobPlan{},
		leaves:     &memLeaves{},
		derived:    &memDerived{},
		requests:   &memRequests{},
		oncall:     newStaticOncall(),
	}
	f.detector = NewDetector(f.jobplan, f.leaves, f.clinicians, f.duties, f.oncall)
	f.scorer = NewScorer(f.clinicians, f.duties, f.jobplan, f.leaves, f.requests, f.oncall, restDays, windowDays)
	f.svc = NewService(f.requests, f.detector, f.scorer, f.derived, zerolog.Nop())
	return f
}

func (f *coverageFixture) addClinician(role string, grade *string) *staff.Clinician {
	c := &staff.Clinician{ID: uuid.New(), Name: "Dr " + uuid.NewString()[:8], Role: role, Grade: grade, Active: true}
	f.clinicians.items[c.ID] = c
	return c
}

func (f *coverageFixture) addDuty(requiresRegistrar bool) *staff.Duty {
	d := &staff.Duty{ID: uuid.New(), Name: "Duty", Color: "#3366cc", RequiresRegistrar: requiresRegistrar}
	f.duties.items[d.ID] = d
	return d
}

// addJobPlanCell places a recurring entry at the cell a concrete date falls
// into, so tests can think in dates.
func (f *coverageFixture) addJobPlanCell(clinicianID uuid.UUID, on time.Time, session string, dutyID *uuid.UUID, supporting *uuid.UUID) {
	f.jobplan.entries = append(f.jobplan.entries, &rota.JobPlanEntry{
		ID:                     uuid.New(),
		ClinicianID:            clinicianID,
		WeekNo:                 rota.WeekOfMonth(on),
		DayOfWeek:              rota.JobPlanDay(on),
		Session:                session,
		DutyID:                 dutyID,
		SupportingConsultantID: supporting,
	})
}

func strptr(s string) *string { return &s }
