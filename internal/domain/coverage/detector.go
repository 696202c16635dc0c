package coverage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shadynafie/rotato-sub000/internal/domain/rota"
	"github.com/shadynafie/rotato-sub000/internal/domain/staff"
)

// Detector inspects recorded leave and on-call placement and works out which
// job-planned duties are left uncovered. Consultant absences cascade:
// registrars supporting the absent consultant are reported as freed. The
// detector is pure; persisting requests and derived overrides is the
// service's job.
type Detector struct {
	jobplan    rota.JobPlanRepository
	leaves     rota.LeaveRepository
	clinicians staff.ClinicianRepository
	duties     staff.DutyRepository
	oncall     OncallSource
}

func NewDetector(
	jobplan rota.JobPlanRepository,
	leaves rota.LeaveRepository,
	clinicians staff.ClinicianRepository,
	duties staff.DutyRepository,
	oncallSrc OncallSource,
) *Detector {
	return &Detector{jobplan: jobplan, leaves: leaves, clinicians: clinicians, duties: duties, oncall: oncallSrc}
}

// sessionsFor expands a leave session into the schedule sessions it blocks.
func sessionsFor(leaveSession string) []string {
	if leaveSession == rota.SessionFull {
		return []string{rota.SessionAM, rota.SessionPM}
	}
	return []string{leaveSession}
}

// DetectForLeave reports the coverage needs a single leave record creates.
// Consultant leave also yields the freed-registrar list: one entry per
// registrar whose job plan names the absent consultant for a blocked
// session. Nothing is persisted here.
func (d *Detector) DetectForLeave(ctx context.Context, l *rota.Leave) (*Detection, error) {
	clinician, err := d.clinicians.GetByID(ctx, l.ClinicianID)
	if err != nil {
		return nil, fmt.Errorf("load clinician for leave: %w", err)
	}
	if clinician.Role == staff.RoleConsultant {
		return d.detectConsultantImpact(ctx, l)
	}
	needs, err := d.needsForBlockedSessions(ctx, l.ClinicianID, clinician.Role, rota.DateOnly(l.Date), sessionsFor(l.Session), ReasonLeave)
	if err != nil {
		return nil, err
	}
	return &Detection{Needs: needs}, nil
}

// DetectCoverageNeedsForClinician re-runs detection over every leave the
// clinician holds in the inclusive range and aggregates the outcome. Dates
// are independent; a day with no job-planned duty simply contributes
// nothing. Read-only: safe to serve from a query endpoint.
func (d *Detector) DetectCoverageNeedsForClinician(ctx context.Context, clinicianID uuid.UUID, from, to time.Time) (*Detection, error) {
	leaves, err := d.leaves.ListForClinicianRange(ctx, clinicianID, rota.DateOnly(from), rota.DateOnly(to))
	if err != nil {
		return nil, err
	}
	out := &Detection{}
	for _, l := range leaves {
		det, err := d.DetectForLeave(ctx, l)
		if err != nil {
			return nil, err
		}
		out.Needs = append(out.Needs, det.Needs...)
		out.Freed = append(out.Freed, det.Freed...)
	}
	return out, nil
}

// DetectOncallConflicts walks the inclusive date range and emits a need for
// every session where the role's on-call holder also has a job-planned duty
// that cannot be left uncovered. On-call blocks the whole day, so both
// sessions are checked. Rotation configuration errors degrade to "nobody on
// call" for the date.
func (d *Detector) DetectOncallConflicts(ctx context.Context, role string, from, to time.Time) ([]*Need, error) {
	from, to = rota.DateOnly(from), rota.DateOnly(to)
	var needs []*Need
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		holderID, err := d.oncall.OncallClinicianOn(ctx, role, day)
		if err != nil || holderID == nil {
			continue
		}
		found, err := d.needsForBlockedSessions(ctx, *holderID, role, day,
			[]string{rota.SessionAM, rota.SessionPM}, ReasonOncallConflict)
		if err != nil {
			return nil, err
		}
		needs = append(needs, found...)
	}
	return needs, nil
}

// needsForBlockedSessions emits one need per session where the clinician has
// a job-planned duty that cannot run without them: any duty for a
// consultant, and for a registrar a duty that requires a registrar or a
// session supporting a consultant's clinic.
func (d *Detector) needsForBlockedSessions(ctx context.Context, clinicianID uuid.UUID, role string, date time.Time, sessions []string, reason string) ([]*Need, error) {
	week, day := rota.WeekOfMonth(date), rota.JobPlanDay(date)

	var needs []*Need
	for _, session := range sessions {
		cell, err := d.jobplan.FindCell(ctx, clinicianID, week, day, session)
		if err != nil {
			return nil, err
		}
		if cell == nil || cell.DutyID == nil {
			continue // nothing scheduled, nothing to cover
		}
		need := &Need{
			Date:              date,
			Session:           session,
			DutyID:            *cell.DutyID,
			Type:              TypeConsultant,
			Reason:            reason,
			AbsentClinicianID: clinicianID,
		}
		if role == staff.RoleRegistrar {
			duty, err := d.duties.GetByID(ctx, *cell.DutyID)
			if err != nil {
				return nil, fmt.Errorf("load duty %s: %w", *cell.DutyID, err)
			}
			if !duty.RequiresRegistrar && cell.SupportingConsultantID == nil {
				continue
			}
			need.Type = TypeRegistrar
			need.ConsultantID = cell.SupportingConsultantID
		}
		needs = append(needs, need)
	}
	return needs, nil
}

// detectConsultantImpact handles the two-step consultant cascade: a need for
// the consultant's own clinic, then the freed-registrar list naming every
// registrar whose job plan supports this consultant for a blocked session.
func (d *Detector) detectConsultantImpact(ctx context.Context, l *rota.Leave) (*Detection, error) {
	date := rota.DateOnly(l.Date)
	week, day := rota.WeekOfMonth(date), rota.JobPlanDay(date)

	needs, err := d.needsForBlockedSessions(ctx, l.ClinicianID, staff.RoleConsultant, date, sessionsFor(l.Session), ReasonLeave)
	if err != nil {
		return nil, err
	}
	det := &Detection{Needs: needs}

	for _, session := range sessionsFor(l.Session) {
		supporting, err := d.jobplan.ListSupporting(ctx, l.ClinicianID, week, day, session)
		if err != nil {
			return nil, err
		}
		for _, reg := range supporting {
			det.Freed = append(det.Freed, &rota.DerivedOverride{
				ClinicianID:   reg.ClinicianID,
				Date:          date,
				Session:       session,
				OriginLeaveID: l.ID,
			})
		}
	}
	return det, nil
}
