package oncall

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ConfigRepository interface {
	GetByRole(ctx context.Context, role string) (*Config, error)
	Upsert(ctx context.Context, c *Config) error
}

type SlotRepository interface {
	Create(ctx context.Context, sl *Slot) error
	GetByID(ctx context.Context, id uuid.UUID) (*Slot, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListByRole(ctx context.Context, role string) ([]*Slot, error)
}

type AssignmentRepository interface {
	Create(ctx context.Context, a *SlotAssignment) error
	GetByID(ctx context.Context, id uuid.UUID) (*SlotAssignment, error)
	Update(ctx context.Context, a *SlotAssignment) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListBySlot(ctx context.Context, slotID uuid.UUID) ([]*SlotAssignment, error)
	// ListCoveringDate returns, for every slot of the role, the assignment
	// whose interval contains date (vacant slots are simply absent).
	ListCoveringDate(ctx context.Context, role string, date time.Time) ([]*SlotAssignment, error)
}

type PatternRepository interface {
	ListByRole(ctx context.Context, role string) ([]*PatternEntry, error)
	ReplaceForRole(ctx context.Context, role string, entries []*PatternEntry) error
}
