package coverage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shadynafie/rotato-sub000/internal/domain/rota"
)

// Service owns the coverage request lifecycle and reacts to leave changes via
// the rota service's sink hooks. Requests move pending -> assigned -> pending
// (unassign) -> cancelled (soft, terminal) -> deleted (hard, cancelled only).
type Service struct {
	requests RequestRepository
	detector *Detector
	scorer   *Scorer
	derived  rota.DerivedOverrideRepository
	log      zerolog.Logger
}

func NewService(requests RequestRepository, detector *Detector, scorer *Scorer, derived rota.DerivedOverrideRepository, log zerolog.Logger) *Service {
	return &Service{requests: requests, detector: detector, scorer: scorer, derived: derived, log: log}
}

// LeaveRecorded runs need detection for a freshly created leave, persists
// the resulting requests and records the freed-registrar overrides the
// cascade reported. Called inside the leave-creation transaction so a
// failed detection rolls the leave back too.
func (s *Service) LeaveRecorded(ctx context.Context, l *rota.Leave) error {
	det, err := s.detector.DetectForLeave(ctx, l)
	if err != nil {
		return err
	}
	for _, o := range det.Freed {
		if err := s.derived.CreateIfAbsent(ctx, o); err != nil {
			return fmt.Errorf("free supporting registrar %s: %w", o.ClinicianID, err)
		}
	}
	created, err := s.CreateRequests(ctx, det.Needs)
	if err != nil {
		return err
	}
	s.log.Info().
		Str("clinician_id", l.ClinicianID.String()).
		Time("date", l.Date).
		Str("session", l.Session).
		Int("requests_created", created).
		Int("registrars_freed", len(det.Freed)).
		Msg("coverage needs detected for leave")
	return nil
}

// OncallChanged re-detects conflicts between on-call placement and
// job-planned duties over the affected dates, raising a request wherever
// the holder's duty would otherwise run uncovered. Satisfies the on-call
// service's change sink; already-raised cells are skipped.
func (s *Service) OncallChanged(ctx context.Context, role string, from, to time.Time) error {
	needs, err := s.detector.DetectOncallConflicts(ctx, role, from, to)
	if err != nil {
		return err
	}
	created, err := s.CreateRequests(ctx, needs)
	if err != nil {
		return err
	}
	s.log.Info().
		Str("role", role).
		Time("from", from).
		Time("to", to).
		Int("requests_created", created).
		Msg("on-call conflicts re-detected")
	return nil
}

// LeaveDeleted reverses the side effects of a leave: cancels the requests it
// spawned and restores any registrars freed by the consultant cascade. Both
// steps are idempotent.
func (s *Service) LeaveDeleted(ctx context.Context, l *rota.Leave) error {
	cancelled, err := s.requests.CancelForLeave(ctx, l.ClinicianID, l.Date, sessionsFor(l.Session), ReasonLeave)
	if err != nil {
		return err
	}
	if err := s.derived.DeleteByOrigin(ctx, l.ID); err != nil {
		return err
	}
	s.log.Info().
		Str("clinician_id", l.ClinicianID.String()).
		Time("date", l.Date).
		Int("requests_cancelled", cancelled).
		Msg("coverage requests reversed for deleted leave")
	return nil
}

// CreateRequests persists detected needs as pending requests, skipping cells
// that already hold a live request. Returns the number created.
func (s *Service) CreateRequests(ctx context.Context, needs []*Need) (int, error) {
	created := 0
	for _, n := range needs {
		req := &Request{
			Date:              n.Date,
			Session:           n.Session,
			DutyID:            n.DutyID,
			Type:              n.Type,
			Reason:            n.Reason,
			Status:            StatusPending,
			AbsentClinicianID: n.AbsentClinicianID,
			ConsultantID:      n.ConsultantID,
			Note:              n.Note,
		}
		if err := s.requests.Create(ctx, req); err != nil {
			if errors.Is(err, ErrDuplicateRequest) {
				continue
			}
			return created, err
		}
		created++
	}
	return created, nil
}

// CreateManualRequest records a coordinator-raised request outside the
// detection path.
func (s *Service) CreateManualRequest(ctx context.Context, req *Request) error {
	if req.AbsentClinicianID == uuid.Nil {
		return fmt.Errorf("absent_clinician_id is required")
	}
	if req.DutyID == uuid.Nil {
		return fmt.Errorf("duty_id is required")
	}
	if req.Session != rota.SessionAM && req.Session != rota.SessionPM {
		return fmt.Errorf("session must be AM or PM")
	}
	if req.Type != TypeRegistrar && req.Type != TypeConsultant {
		return fmt.Errorf("invalid request type: %s", req.Type)
	}
	req.Reason = ReasonManual
	req.Status = StatusPending
	return s.requests.Create(ctx, req)
}

func (s *Service) GetRequest(ctx context.Context, id uuid.UUID) (*Request, error) {
	return s.requests.GetByID(ctx, id)
}

func (s *Service) ListRequests(ctx context.Context, status string, limit, offset int) ([]*Request, int, error) {
	if status != "" && status != StatusPending && status != StatusAssigned && status != StatusCancelled {
		return nil, 0, fmt.Errorf("invalid status filter: %s", status)
	}
	return s.requests.List(ctx, status, limit, offset)
}

// Suggest ranks substitutes for a pending request.
func (s *Service) Suggest(ctx context.Context, requestID uuid.UUID) (*Suggestion, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	return s.scorer.Suggest(ctx, req)
}

// Assign moves a pending request to assigned, stamping the assignee and time.
func (s *Service) Assign(ctx context.Context, requestID, clinicianID uuid.UUID) (*Request, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != StatusPending {
		return nil, ErrNotPending
	}
	now := time.Now().UTC()
	req.Status = StatusAssigned
	req.AssignedClinicianID = &clinicianID
	req.AssignedAt = &now
	if err := s.requests.Update(ctx, req); err != nil {
		return nil, err
	}
	s.log.Info().
		Str("request_id", req.ID.String()).
		Str("assigned_to", clinicianID.String()).
		Msg("coverage request assigned")
	return req, nil
}

// Unassign returns an assigned request to pending, clearing the assignee.
func (s *Service) Unassign(ctx context.Context, requestID uuid.UUID) (*Request, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != StatusAssigned {
		return nil, ErrNotAssigned
	}
	req.Status = StatusPending
	req.AssignedClinicianID = nil
	req.AssignedAt = nil
	if err := s.requests.Update(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// Cancel soft-cancels a request. The row stays for audit. Cancelling an
// already-cancelled request is a no-op.
func (s *Service) Cancel(ctx context.Context, requestID uuid.UUID) (*Request, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status == StatusCancelled {
		return req, nil
	}
	req.Status = StatusCancelled
	req.AssignedClinicianID = nil
	req.AssignedAt = nil
	if err := s.requests.Update(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// DeleteRequest hard-deletes a request; only permitted once cancelled.
func (s *Service) DeleteRequest(ctx context.Context, requestID uuid.UUID) error {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return err
	}
	if req.Status != StatusCancelled {
		return ErrNotCancelled
	}
	return s.requests.Delete(ctx, requestID)
}

// AutoAssignReport summarises one bulk auto-assign run.
type AutoAssignReport struct {
	Assigned int `json:"assigned"`
	Failed   int `json:"failed"`
}

// BulkAutoAssign walks pending requests oldest date first and assigns the
// top-ranked available candidate to each. Sequential so each assignment is
// visible to the scoring of the next. Requests with nobody available stay
// pending and count as failed.
func (s *Service) BulkAutoAssign(ctx context.Context) (*AutoAssignReport, error) {
	pending, err := s.requests.ListPendingOldestFirst(ctx)
	if err != nil {
		return nil, err
	}
	report := &AutoAssignReport{}
	for _, req := range pending {
		suggestion, err := s.scorer.Suggest(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("score request %s: %w", req.ID, err)
		}
		if len(suggestion.Available) == 0 {
			report.Failed++
			continue
		}
		if _, err := s.Assign(ctx, req.ID, suggestion.Available[0].ClinicianID); err != nil {
			return nil, fmt.Errorf("auto-assign request %s: %w", req.ID, err)
		}
		report.Assigned++
	}
	s.log.Info().Int("assigned", report.Assigned).Int("failed", report.Failed).Msg("bulk auto-assign complete")
	return report, nil
}

// DetectForClinician re-runs need detection over a clinician's leave in the
// inclusive range without persisting anything, reporting both the needs and
// any registrars the consultant cascade would free.
func (s *Service) DetectForClinician(ctx context.Context, clinicianID uuid.UUID, from, to time.Time) (*Detection, error) {
	return s.detector.DetectCoverageNeedsForClinician(ctx, clinicianID, from, to)
}

// RestoreRegistrarEntries removes the derived overrides recorded for a leave,
// putting freed registrars back on their job-planned duties. Idempotent.
func (s *Service) RestoreRegistrarEntries(ctx context.Context, originLeaveID uuid.UUID) error {
	return s.derived.DeleteByOrigin(ctx, originLeaveID)
}
