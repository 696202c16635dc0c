package rota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CoverageSink receives leave mutations so coverage needs can be detected
// and reversed inside the same transaction. Implemented by the coverage
// service and wired at startup.
type CoverageSink interface {
	LeaveRecorded(ctx context.Context, l *Leave) error
	LeaveDeleted(ctx context.Context, l *Leave) error
}

// TxRunner runs fn inside a storage transaction that rides the context.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// PassthroughTx is a TxRunner for wiring without transactional storage
// (tests, in-memory repos).
func PassthroughTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

var validSessions = map[string]bool{
	SessionAM: true, SessionPM: true, SessionFull: true,
}

type Service struct {
	jobplan    JobPlanRepository
	leaves     LeaveRepository
	overrides  OverrideRepository
	derived    DerivedOverrideRepository
	compositor *Compositor
	sink       CoverageSink
	runTx      TxRunner
	log        zerolog.Logger
}

func NewService(
	jobplan JobPlanRepository,
	leaves LeaveRepository,
	overrides OverrideRepository,
	derived DerivedOverrideRepository,
	compositor *Compositor,
	runTx TxRunner,
	log zerolog.Logger,
) *Service {
	return &Service{
		jobplan:    jobplan,
		leaves:     leaves,
		overrides:  overrides,
		derived:    derived,
		compositor: compositor,
		runTx:      runTx,
		log:        log,
	}
}

// SetCoverageSink wires the coverage detector after construction; the
// coverage service itself depends on rota repositories, so the hookup
// happens in main.
func (s *Service) SetCoverageSink(sink CoverageSink) { s.sink = sink }

// ComputeSchedule resolves the rota over the inclusive range.
func (s *Service) ComputeSchedule(ctx context.Context, from, to time.Time) ([]*ScheduleEntry, error) {
	return s.compositor.Compute(ctx, from, to)
}

// -- Leave --

// CreateLeave records one leave row and runs coverage-need detection in the
// same transaction, so a request row never points at a leave that failed to
// commit.
func (s *Service) CreateLeave(ctx context.Context, l *Leave) error {
	if err := s.validateLeave(l); err != nil {
		return err
	}
	return s.runTx(ctx, func(ctx context.Context) error {
		if err := s.leaves.Create(ctx, l); err != nil {
			return err
		}
		if s.sink != nil {
			if err := s.sink.LeaveRecorded(ctx, l); err != nil {
				return fmt.Errorf("coverage detection: %w", err)
			}
		}
		return nil
	})
}

// CreateLeaveRange records leave for every date in the inclusive range.
// Dates are processed independently: a duplicate on one date is skipped, not
// fatal to the batch. Returns the number of rows actually created.
func (s *Service) CreateLeaveRange(ctx context.Context, clinicianID uuid.UUID, from, to time.Time, session, leaveType string, note *string) (int, error) {
	from, to = DateOnly(from), DateOnly(to)
	if to.Before(from) {
		return 0, fmt.Errorf("range end precedes start")
	}

	created, skipped := 0, 0
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		l := &Leave{ClinicianID: clinicianID, Date: d, Session: session, Type: leaveType, Note: note}
		err := s.CreateLeave(ctx, l)
		if errors.Is(err, ErrDuplicateLeave) {
			skipped++
			continue
		}
		if err != nil {
			return created, err
		}
		created++
	}

	s.log.Info().
		Str("clinician_id", clinicianID.String()).
		Str("from", from.Format("2006-01-02")).
		Str("to", to.Format("2006-01-02")).
		Int("created", created).
		Int("skipped", skipped).
		Msg("bulk leave recorded")
	return created, nil
}

// DeleteLeave removes a leave row and reverses its coverage side effects
// (cancelling spawned requests, restoring cascaded registrar entries) in one
// transaction.
func (s *Service) DeleteLeave(ctx context.Context, id uuid.UUID) error {
	l, err := s.leaves.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("leave not found: %w", err)
	}
	return s.runTx(ctx, func(ctx context.Context) error {
		if err := s.leaves.Delete(ctx, id); err != nil {
			return err
		}
		if s.sink != nil {
			if err := s.sink.LeaveDeleted(ctx, l); err != nil {
				return fmt.Errorf("coverage reversal: %w", err)
			}
		}
		return nil
	})
}

func (s *Service) ListLeave(ctx context.Context, from, to time.Time) ([]*Leave, error) {
	return s.leaves.ListRange(ctx, from, to)
}

func (s *Service) validateLeave(l *Leave) error {
	if l.ClinicianID == uuid.Nil {
		return fmt.Errorf("clinician_id is required")
	}
	if l.Date.IsZero() {
		return fmt.Errorf("date is required")
	}
	if !validSessions[l.Session] {
		return fmt.Errorf("invalid session: %s", l.Session)
	}
	if l.Type == "" {
		return fmt.Errorf("type is required")
	}
	l.Date = DateOnly(l.Date)
	return nil
}

// -- Manual overrides --

func (s *Service) SaveOverride(ctx context.Context, e *RotaEntry) error {
	if e.ClinicianID == uuid.Nil {
		return fmt.Errorf("clinician_id is required")
	}
	if e.Session != SessionAM && e.Session != SessionPM {
		return fmt.Errorf("invalid session: %s", e.Session)
	}
	if e.Date.IsZero() {
		return fmt.Errorf("date is required")
	}
	e.Date = DateOnly(e.Date)
	return s.overrides.Upsert(ctx, e)
}

func (s *Service) DeleteOverride(ctx context.Context, id uuid.UUID) error {
	if _, err := s.overrides.GetByID(ctx, id); err != nil {
		return fmt.Errorf("override not found: %w", err)
	}
	return s.overrides.Delete(ctx, id)
}

func (s *Service) ListOverrides(ctx context.Context, from, to time.Time) ([]*RotaEntry, error) {
	return s.overrides.ListRange(ctx, from, to)
}

// -- Job plan --

func (s *Service) SaveJobPlanEntry(ctx context.Context, e *JobPlanEntry) error {
	if e.ClinicianID == uuid.Nil {
		return fmt.Errorf("clinician_id is required")
	}
	if e.WeekNo < 1 || e.WeekNo > 5 {
		return fmt.Errorf("week_no must be 1..5")
	}
	if e.DayOfWeek < 1 || e.DayOfWeek > 5 {
		return fmt.Errorf("day_of_week must be 1..5")
	}
	if e.Session != SessionAM && e.Session != SessionPM {
		return fmt.Errorf("invalid session: %s", e.Session)
	}
	return s.jobplan.Upsert(ctx, e)
}

func (s *Service) DeleteJobPlanEntry(ctx context.Context, id uuid.UUID) error {
	return s.jobplan.Delete(ctx, id)
}

func (s *Service) ListJobPlan(ctx context.Context, clinicianID uuid.UUID) ([]*JobPlanEntry, error) {
	return s.jobplan.ListByClinician(ctx, clinicianID)
}
