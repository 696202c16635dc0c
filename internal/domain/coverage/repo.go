package coverage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrDuplicateRequest marks a second non-cancelled request for the same
	// (date, session, duty, absent clinician) cell.
	ErrDuplicateRequest = errors.New("a live coverage request already exists for this cell")
	// ErrNotPending guards transitions that require a pending request.
	ErrNotPending = errors.New("coverage request is not pending")
	// ErrNotAssigned guards unassignment of a request with no assignee.
	ErrNotAssigned = errors.New("coverage request is not assigned")
	// ErrNotCancelled guards hard deletion, which is only permitted on
	// already-cancelled requests.
	ErrNotCancelled = errors.New("coverage request must be cancelled before deletion")
)

type RequestRepository interface {
	Create(ctx context.Context, r *Request) error
	GetByID(ctx context.Context, id uuid.UUID) (*Request, error)
	Update(ctx context.Context, r *Request) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, status string, limit, offset int) ([]*Request, int, error)
	// ListPendingOldestFirst orders by date then session then creation time
	// so bulk auto-assign works through the backlog deterministically.
	ListPendingOldestFirst(ctx context.Context) ([]*Request, error)
	// CancelForLeave soft-cancels live requests spawned by a specific leave,
	// matched by absent clinician, date, covered sessions and reason.
	CancelForLeave(ctx context.Context, absentClinicianID uuid.UUID, date time.Time, sessions []string, reason string) (int, error)
	// HasAssignment reports whether the clinician already holds a live
	// assignment for the date and session.
	HasAssignment(ctx context.Context, clinicianID uuid.UUID, date time.Time, session string) (bool, error)
	// LastAssignmentBefore returns the most recent date (strictly before
	// the given date) on which the clinician covered a request, or nil.
	LastAssignmentBefore(ctx context.Context, clinicianID uuid.UUID, before time.Time) (*time.Time, error)
	// CountAssignedInWindow counts coverage assignments held by the
	// clinician over the inclusive date window.
	CountAssignedInWindow(ctx context.Context, clinicianID uuid.UUID, from, to time.Time) (int, error)
}
