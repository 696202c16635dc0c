package staff

import (
	"context"

	"github.com/google/uuid"
)

type ClinicianRepository interface {
	Create(ctx context.Context, c *Clinician) error
	GetByID(ctx context.Context, id uuid.UUID) (*Clinician, error)
	Update(ctx context.Context, c *Clinician) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Clinician, int, error)
	ListActiveByRole(ctx context.Context, role string) ([]*Clinician, error)
}

type DutyRepository interface {
	Create(ctx context.Context, d *Duty) error
	GetByID(ctx context.Context, id uuid.UUID) (*Duty, error)
	Update(ctx context.Context, d *Duty) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Duty, int, error)
}
