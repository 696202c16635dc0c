package rota

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/shadynafie/rotato-sub000/internal/domain/oncall"
	"github.com/shadynafie/rotato-sub000/internal/domain/staff"
)

// OncallSource resolves who is on call for a role on a date. Implemented by
// the oncall service; abstracted here so the compositor stays testable.
type OncallSource interface {
	OncallClinicianOn(ctx context.Context, role string, date time.Time) (*uuid.UUID, error)
}

// Compositor merges the four schedule layers into resolved cells. Resolution
// is first-match-wins down the precedence order, never a field merge:
// manual override > leave > derived override > on-call > job plan.
type Compositor struct {
	clinicians staff.ClinicianRepository
	jobplan    JobPlanRepository
	leaves     LeaveRepository
	overrides  OverrideRepository
	derived    DerivedOverrideRepository
	oncall     OncallSource
	restDays   int
}

func NewCompositor(
	clinicians staff.ClinicianRepository,
	jobplan JobPlanRepository,
	leaves LeaveRepository,
	overrides OverrideRepository,
	derived DerivedOverrideRepository,
	oncallSrc OncallSource,
	restDays int,
) *Compositor {
	return &Compositor{
		clinicians: clinicians,
		jobplan:    jobplan,
		leaves:     leaves,
		overrides:  overrides,
		derived:    derived,
		oncall:     oncallSrc,
		restDays:   restDays,
	}
}

type cellKey struct {
	clinician uuid.UUID
	date      time.Time
	session   string
}

// Compute resolves every (active clinician, date, AM/PM) cell in the
// inclusive range. The output is a pure function of persisted state and the
// range: cells are ordered by clinician id, then date, then session, so
// repeated calls without intervening writes are identical.
func (c *Compositor) Compute(ctx context.Context, from, to time.Time) ([]*ScheduleEntry, error) {
	from, to = DateOnly(from), DateOnly(to)
	if to.Before(from) {
		return nil, fmt.Errorf("range end precedes start")
	}

	clinicians, err := c.activeClinicians(ctx)
	if err != nil {
		return nil, err
	}

	overrideIdx, err := c.indexOverrides(ctx, from, to)
	if err != nil {
		return nil, err
	}
	leaveIdx, err := c.indexLeaves(ctx, from, to)
	if err != nil {
		return nil, err
	}
	derivedIdx, err := c.indexDerived(ctx, from, to)
	if err != nil {
		return nil, err
	}
	jobplanIdx, err := c.indexJobPlan(ctx)
	if err != nil {
		return nil, err
	}
	// On-call resolution extends back restDays so the rest pass can see
	// on-call duty immediately before the requested range.
	oncallIdx, err := c.indexOncall(ctx, from.AddDate(0, 0, -c.restDays), to)
	if err != nil {
		return nil, err
	}

	var entries []*ScheduleEntry
	for _, cl := range clinicians {
		for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
			for _, session := range []string{SessionAM, SessionPM} {
				entries = append(entries, c.resolveCell(cl, d, session,
					overrideIdx, leaveIdx, derivedIdx, jobplanIdx, oncallIdx))
			}
		}
	}

	c.applyRestPass(entries, clinicians, oncallIdx)
	return entries, nil
}

func (c *Compositor) resolveCell(
	cl *staff.Clinician,
	d time.Time,
	session string,
	overrideIdx map[cellKey]*RotaEntry,
	leaveIdx map[cellKey]*Leave,
	derivedIdx map[cellKey]*DerivedOverride,
	jobplanIdx map[jobPlanKey]*JobPlanEntry,
	oncallIdx map[oncallKey]uuid.UUID,
) *ScheduleEntry {
	entry := &ScheduleEntry{ClinicianID: cl.ID, Date: d, Session: session}

	if ov, ok := overrideIdx[cellKey{cl.ID, d, session}]; ok {
		entry.DutyID = ov.DutyID
		entry.IsOncall = ov.IsOncall
		entry.Note = ov.Note
		entry.Source = SourceManual
		return entry
	}

	if lv, ok := leaveIdx[cellKey{cl.ID, d, session}]; ok {
		entry.IsLeave = true
		lt := lv.Type
		entry.LeaveType = &lt
		entry.Note = lv.Note
		entry.Source = SourceLeave
		return entry
	}

	if _, ok := derivedIdx[cellKey{cl.ID, d, session}]; ok {
		// Freed registrar: the supported consultant is absent, so the cell
		// renders blank rather than a duty no one is running.
		entry.Source = SourceDerived
		return entry
	}

	if holder, ok := oncallIdx[oncallKey{cl.Role, d}]; ok && holder == cl.ID {
		entry.IsOncall = true
		entry.Source = SourceOncall
		return entry
	}

	if jp, ok := jobplanIdx[jobPlanKey{cl.ID, WeekOfMonth(d), JobPlanDay(d), session}]; ok {
		entry.DutyID = jp.DutyID
		entry.SupportingConsultantID = jp.SupportingConsultantID
		entry.Source = SourceJobPlan
		return entry
	}

	return entry
}

// applyRestPass marks registrars who came off on-call within the configured
// window. Purely additive display metadata; it never changes which layer won.
func (c *Compositor) applyRestPass(entries []*ScheduleEntry, clinicians []*staff.Clinician, oncallIdx map[oncallKey]uuid.UUID) {
	if c.restDays <= 0 {
		return
	}
	registrar := make(map[uuid.UUID]bool)
	for _, cl := range clinicians {
		if cl.Role == staff.RoleRegistrar {
			registrar[cl.ID] = true
		}
	}
	for _, e := range entries {
		if !registrar[e.ClinicianID] || e.IsOncall {
			continue
		}
		for back := 1; back <= c.restDays; back++ {
			prev := e.Date.AddDate(0, 0, -back)
			if holder, ok := oncallIdx[oncallKey{staff.RoleRegistrar, prev}]; ok && holder == e.ClinicianID {
				e.IsRest = true
				break
			}
		}
	}
}

func (c *Compositor) activeClinicians(ctx context.Context) ([]*staff.Clinician, error) {
	var all []*staff.Clinician
	for _, role := range []string{staff.RoleConsultant, staff.RoleRegistrar} {
		items, err := c.clinicians.ListActiveByRole(ctx, role)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID.String() < all[j].ID.String() })
	return all, nil
}

func (c *Compositor) indexOverrides(ctx context.Context, from, to time.Time) (map[cellKey]*RotaEntry, error) {
	items, err := c.overrides.ListRange(ctx, from, to)
	if err != nil {
		return nil, err
	}
	idx := make(map[cellKey]*RotaEntry, len(items))
	for _, e := range items {
		idx[cellKey{e.ClinicianID, DateOnly(e.Date), e.Session}] = e
	}
	return idx, nil
}

func (c *Compositor) indexLeaves(ctx context.Context, from, to time.Time) (map[cellKey]*Leave, error) {
	items, err := c.leaves.ListRange(ctx, from, to)
	if err != nil {
		return nil, err
	}
	idx := make(map[cellKey]*Leave, len(items))
	for _, l := range items {
		d := DateOnly(l.Date)
		if l.Session == SessionFull {
			idx[cellKey{l.ClinicianID, d, SessionAM}] = l
			idx[cellKey{l.ClinicianID, d, SessionPM}] = l
			continue
		}
		idx[cellKey{l.ClinicianID, d, l.Session}] = l
	}
	return idx, nil
}

func (c *Compositor) indexDerived(ctx context.Context, from, to time.Time) (map[cellKey]*DerivedOverride, error) {
	items, err := c.derived.ListRange(ctx, from, to)
	if err != nil {
		return nil, err
	}
	idx := make(map[cellKey]*DerivedOverride, len(items))
	for _, o := range items {
		idx[cellKey{o.ClinicianID, DateOnly(o.Date), o.Session}] = o
	}
	return idx, nil
}

type jobPlanKey struct {
	clinician uuid.UUID
	weekNo    int
	dayOfWeek int
	session   string
}

func (c *Compositor) indexJobPlan(ctx context.Context) (map[jobPlanKey]*JobPlanEntry, error) {
	items, err := c.jobplan.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	idx := make(map[jobPlanKey]*JobPlanEntry, len(items))
	for _, e := range items {
		idx[jobPlanKey{e.ClinicianID, e.WeekNo, e.DayOfWeek, e.Session}] = e
	}
	return idx, nil
}

type oncallKey struct {
	role string
	date time.Time
}

// indexOncall resolves the on-call holder per role per date. Configuration
// errors degrade to "no on-call" for the affected date rather than failing
// the whole range.
func (c *Compositor) indexOncall(ctx context.Context, from, to time.Time) (map[oncallKey]uuid.UUID, error) {
	idx := make(map[oncallKey]uuid.UUID)
	for _, role := range []string{staff.RoleConsultant, staff.RoleRegistrar} {
		for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
			holder, err := c.oncall.OncallClinicianOn(ctx, role, d)
			if err != nil {
				if errors.Is(err, oncall.ErrBeforeCycleStart) || errors.Is(err, oncall.ErrPatternGap) {
					continue
				}
				return nil, err
			}
			if holder != nil {
				idx[oncallKey{role, d}] = *holder
			}
		}
	}
	return idx, nil
}
