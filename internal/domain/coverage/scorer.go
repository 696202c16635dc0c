package coverage

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/shadynafie/rotato-sub000/internal/domain/rota"
	"github.com/shadynafie/rotato-sub000/internal/domain/staff"
)

// OncallSource resolves who is on call for a role on a date. Satisfied by the
// oncall service.
type OncallSource interface {
	OncallClinicianOn(ctx context.Context, role string, date time.Time) (*uuid.UUID, error)
}

// Scoring weights. The score is advisory; every factor contributes a reason
// string so staff can audit the ranking.
const (
	weightRecency  = 50
	weightWorkload = 40
	weightGrade    = 10
	restPenalty    = 10

	// workloadCap is the windowed session count at which the workload
	// factor bottoms out, roughly two thirds of a fully booked month.
	workloadCap = 40
)

// Scorer ranks substitute candidates for a coverage request by fairness:
// longer since last coverage scores higher, heavier recent workload scores
// lower. Workload counts everything that occupied the clinician in the
// trailing window: job-planned duty sessions, on-call days and coverage
// assignments.
type Scorer struct {
	clinicians staff.ClinicianRepository
	duties     staff.DutyRepository
	jobplan    rota.JobPlanRepository
	leaves     rota.LeaveRepository
	requests   RequestRepository
	oncall     OncallSource
	restDays   int
	windowDays int
}

func NewScorer(
	clinicians staff.ClinicianRepository,
	duties staff.DutyRepository,
	jobplan rota.JobPlanRepository,
	leaves rota.LeaveRepository,
	requests RequestRepository,
	oncallSrc OncallSource,
	restDays, windowDays int,
) *Scorer {
	if windowDays <= 0 {
		windowDays = 30
	}
	return &Scorer{
		clinicians: clinicians, duties: duties, jobplan: jobplan,
		leaves: leaves, requests: requests, oncall: oncallSrc,
		restDays: restDays, windowDays: windowDays,
	}
}

// Suggest builds the ranked candidate list for a request. An empty Available
// slice with Unavailable populated is a valid answer, not an error.
func (sc *Scorer) Suggest(ctx context.Context, req *Request) (*Suggestion, error) {
	pool, err := sc.clinicians.ListActiveByRole(ctx, req.Type)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}

	var requiresRegistrar bool
	if req.Type == TypeRegistrar {
		duty, err := sc.duties.GetByID(ctx, req.DutyID)
		if err != nil {
			return nil, fmt.Errorf("load duty: %w", err)
		}
		requiresRegistrar = duty.RequiresRegistrar
	}

	date := rota.DateOnly(req.Date)
	onCallID := sc.oncallFor(ctx, req.Type, date)
	holders := sc.oncallWindow(ctx, req.Type, date)

	out := &Suggestion{Available: []*RankedCandidate{}, Unavailable: []*UnavailableCandidate{}}
	for _, c := range pool {
		if c.ID == req.AbsentClinicianID {
			continue
		}
		if label, err := sc.exclusion(ctx, c, date, req.Session, onCallID); err != nil {
			return nil, err
		} else if label != "" {
			out.Unavailable = append(out.Unavailable, &UnavailableCandidate{ClinicianID: c.ID, Name: c.Name, Reason: label})
			continue
		}
		ranked, err := sc.score(ctx, c, date, requiresRegistrar, holders)
		if err != nil {
			return nil, err
		}
		out.Available = append(out.Available, ranked)
	}

	sort.Slice(out.Available, func(i, j int) bool {
		a, b := out.Available[i], out.Available[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.ClinicianID.String() < b.ClinicianID.String()
	})
	sort.Slice(out.Unavailable, func(i, j int) bool {
		return out.Unavailable[i].ClinicianID.String() < out.Unavailable[j].ClinicianID.String()
	})
	return out, nil
}

// oncallFor resolves the role's on-call holder. Rotation configuration
// errors degrade to "nobody on call"; exclusion is advisory here.
func (sc *Scorer) oncallFor(ctx context.Context, role string, date time.Time) *uuid.UUID {
	id, err := sc.oncall.OncallClinicianOn(ctx, role, date)
	if err != nil {
		return nil
	}
	return id
}

// oncallWindow resolves the role's on-call holder for every date in the
// trailing workload window, once for the whole candidate pool.
func (sc *Scorer) oncallWindow(ctx context.Context, role string, date time.Time) map[time.Time]uuid.UUID {
	holders := make(map[time.Time]uuid.UUID, sc.windowDays)
	for i := 0; i <= sc.windowDays; i++ {
		d := date.AddDate(0, 0, -i)
		if id := sc.oncallFor(ctx, role, d); id != nil {
			holders[d] = *id
		}
	}
	return holders
}

func (sc *Scorer) exclusion(ctx context.Context, c *staff.Clinician, date time.Time, session string, onCallID *uuid.UUID) (string, error) {
	onLeave, err := sc.leaves.CoveringSession(ctx, c.ID, date, session)
	if err != nil {
		return "", err
	}
	if onLeave {
		return UnavailableOnLeave, nil
	}
	if onCallID != nil && *onCallID == c.ID {
		return UnavailableOnCall, nil
	}
	assigned, err := sc.requests.HasAssignment(ctx, c.ID, date, session)
	if err != nil {
		return "", err
	}
	if assigned {
		return UnavailableAlreadyAssigned, nil
	}
	return "", nil
}

func (sc *Scorer) score(ctx context.Context, c *staff.Clinician, date time.Time, requiresRegistrar bool, holders map[time.Time]uuid.UUID) (*RankedCandidate, error) {
	ranked := &RankedCandidate{ClinicianID: c.ID, Name: c.Name, Grade: c.Grade}

	last, err := sc.requests.LastAssignmentBefore(ctx, c.ID, date)
	if err != nil {
		return nil, err
	}
	if last == nil {
		ranked.Score += weightRecency
		ranked.Reasons = append(ranked.Reasons, "No coverage on record")
	} else {
		idle := int(date.Sub(rota.DateOnly(*last)).Hours() / 24)
		if idle > sc.windowDays {
			idle = sc.windowDays
		}
		ranked.Score += weightRecency * idle / sc.windowDays
		ranked.Reasons = append(ranked.Reasons, fmt.Sprintf("No coverage in %d days", idle))
	}

	load, err := sc.workload(ctx, c.ID, date, holders)
	if err != nil {
		return nil, err
	}
	capped := load
	if capped > workloadCap {
		capped = workloadCap
	}
	ranked.Score += weightWorkload * (workloadCap - capped) / workloadCap
	ranked.Reasons = append(ranked.Reasons, fmt.Sprintf("%d sessions worked in last %d days", load, sc.windowDays))

	if requiresRegistrar && c.Grade != nil && *c.Grade == staff.GradeSenior {
		ranked.Score += weightGrade
		ranked.Reasons = append(ranked.Reasons, "Senior grade")
	}

	// Resting registrars stay eligible but are marked down so the ranking
	// prefers rested candidates.
	if c.Role == staff.RoleRegistrar && sc.restDays > 0 {
		resting, err := sc.isResting(ctx, c.ID, date)
		if err != nil {
			return nil, err
		}
		if resting {
			ranked.Score -= restPenalty
			ranked.Reasons = append(ranked.Reasons, "Post on-call rest day")
		}
	}

	if ranked.Score < 0 {
		ranked.Score = 0
	}
	if ranked.Score > 100 {
		ranked.Score = 100
	}
	return ranked, nil
}

// workload counts the sessions that occupied the clinician over the trailing
// window: job-planned duty sessions, days on call and coverage assignments.
func (sc *Scorer) workload(ctx context.Context, clinicianID uuid.UUID, date time.Time, holders map[time.Time]uuid.UUID) (int, error) {
	from := date.AddDate(0, 0, -sc.windowDays)

	load, err := sc.requests.CountAssignedInWindow(ctx, clinicianID, from, date)
	if err != nil {
		return 0, err
	}

	entries, err := sc.jobplan.ListByClinician(ctx, clinicianID)
	if err != nil {
		return 0, err
	}
	type cell struct {
		week, day int
		session   string
	}
	planned := make(map[cell]bool, len(entries))
	for _, e := range entries {
		if e.DutyID != nil {
			planned[cell{e.WeekNo, e.DayOfWeek, e.Session}] = true
		}
	}

	for d := from; !d.After(date); d = d.AddDate(0, 0, 1) {
		if holders[d] == clinicianID {
			load++
		}
		week, day := rota.WeekOfMonth(d), rota.JobPlanDay(d)
		for _, session := range []string{rota.SessionAM, rota.SessionPM} {
			if planned[cell{week, day, session}] {
				load++
			}
		}
	}
	return load, nil
}

// isResting reports whether the registrar was on call in the trailing rest
// window, excluding the date itself.
func (sc *Scorer) isResting(ctx context.Context, clinicianID uuid.UUID, date time.Time) (bool, error) {
	for i := 1; i <= sc.restDays; i++ {
		id := sc.oncallFor(ctx, staff.RoleRegistrar, date.AddDate(0, 0, -i))
		if id != nil && *id == clinicianID {
			return true, nil
		}
	}
	return false, nil
}
