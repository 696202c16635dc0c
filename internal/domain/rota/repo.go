package rota

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrDuplicateLeave is returned when a leave row already exists for the same
// (clinician, date, session). Bulk range creation skips these per date.
var ErrDuplicateLeave = errors.New("leave already recorded for this clinician, date and session")

type JobPlanRepository interface {
	Upsert(ctx context.Context, e *JobPlanEntry) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByClinician(ctx context.Context, clinicianID uuid.UUID) ([]*JobPlanEntry, error)
	ListAll(ctx context.Context) ([]*JobPlanEntry, error)
	// FindCell returns (nil, nil) when the cell is empty.
	FindCell(ctx context.Context, clinicianID uuid.UUID, weekNo, dayOfWeek int, session string) (*JobPlanEntry, error)
	// ListSupporting returns registrar entries naming consultantID as the
	// supported consultant for the given recurring cell.
	ListSupporting(ctx context.Context, consultantID uuid.UUID, weekNo, dayOfWeek int, session string) ([]*JobPlanEntry, error)
}

type LeaveRepository interface {
	Create(ctx context.Context, l *Leave) error
	GetByID(ctx context.Context, id uuid.UUID) (*Leave, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListRange(ctx context.Context, from, to time.Time) ([]*Leave, error)
	ListForClinicianRange(ctx context.Context, clinicianID uuid.UUID, from, to time.Time) ([]*Leave, error)
	// CoveringSession reports whether any leave (session-specific or FULL)
	// blocks the clinician on that date and session.
	CoveringSession(ctx context.Context, clinicianID uuid.UUID, date time.Time, session string) (bool, error)
}

type OverrideRepository interface {
	Upsert(ctx context.Context, e *RotaEntry) error
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*RotaEntry, error)
	ListRange(ctx context.Context, from, to time.Time) ([]*RotaEntry, error)
}

type DerivedOverrideRepository interface {
	// CreateIfAbsent inserts the override unless the same cell is already
	// derived from the same origin leave; re-running a cascade is a no-op.
	// Distinct leaves each hold their own row for a cell, so reversing one
	// leave keeps the cell suppressed while another still stands.
	CreateIfAbsent(ctx context.Context, o *DerivedOverride) error
	DeleteByOrigin(ctx context.Context, originLeaveID uuid.UUID) error
	ListByOrigin(ctx context.Context, originLeaveID uuid.UUID) ([]*DerivedOverride, error)
	ListRange(ctx context.Context, from, to time.Time) ([]*DerivedOverride, error)
}
