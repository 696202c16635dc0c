package oncall

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shadynafie/rotato-sub000/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// =========== Config Repository ===========

type configRepoPG struct{ pool *pgxpool.Pool }

func NewConfigRepoPG(pool *pgxpool.Pool) ConfigRepository { return &configRepoPG{pool: pool} }

func (r *configRepoPG) conn(ctx context.Context) queryable {
	if q := db.QuerierFromContext(ctx); q != nil {
		return q
	}
	return r.pool
}

func (r *configRepoPG) GetByRole(ctx context.Context, role string) (*Config, error) {
	var c Config
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, role, start_date, unit_type, created_at, updated_at
		FROM oncall_config WHERE role = $1`, role).
		Scan(&c.ID, &c.Role, &c.StartDate, &c.UnitType, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *configRepoPG) Upsert(ctx context.Context, c *Config) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO oncall_config (id, role, start_date, unit_type)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (role) DO UPDATE
		SET start_date = EXCLUDED.start_date, unit_type = EXCLUDED.unit_type, updated_at = NOW()`,
		c.ID, c.Role, c.StartDate, c.UnitType)
	return err
}

// =========== Slot Repository ===========

type slotRepoPG struct{ pool *pgxpool.Pool }

func NewSlotRepoPG(pool *pgxpool.Pool) SlotRepository { return &slotRepoPG{pool: pool} }

func (r *slotRepoPG) conn(ctx context.Context) queryable {
	if q := db.QuerierFromContext(ctx); q != nil {
		return q
	}
	return r.pool
}

const slotCols = `id, role, position, name, created_at`

func (r *slotRepoPG) scanSlot(row pgx.Row) (*Slot, error) {
	var sl Slot
	err := row.Scan(&sl.ID, &sl.Role, &sl.Position, &sl.Name, &sl.CreatedAt)
	return &sl, err
}

func (r *slotRepoPG) Create(ctx context.Context, sl *Slot) error {
	sl.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO oncall_slot (id, role, position, name)
		VALUES ($1,$2,$3,$4)`,
		sl.ID, sl.Role, sl.Position, sl.Name)
	return err
}

func (r *slotRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Slot, error) {
	return r.scanSlot(r.conn(ctx).QueryRow(ctx, `SELECT `+slotCols+` FROM oncall_slot WHERE id = $1`, id))
}

func (r *slotRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM oncall_slot WHERE id = $1`, id)
	return err
}

func (r *slotRepoPG) ListByRole(ctx context.Context, role string) ([]*Slot, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+slotCols+` FROM oncall_slot WHERE role = $1 ORDER BY position ASC`, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Slot
	for rows.Next() {
		sl, err := r.scanSlot(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, sl)
	}
	return items, nil
}

// =========== Assignment Repository ===========

type assignmentRepoPG struct{ pool *pgxpool.Pool }

func NewAssignmentRepoPG(pool *pgxpool.Pool) AssignmentRepository {
	return &assignmentRepoPG{pool: pool}
}

func (r *assignmentRepoPG) conn(ctx context.Context) queryable {
	if q := db.QuerierFromContext(ctx); q != nil {
		return q
	}
	return r.pool
}

const assignmentCols = `id, slot_id, clinician_id, effective_from, effective_to, created_at`

func (r *assignmentRepoPG) scanAssignment(row pgx.Row) (*SlotAssignment, error) {
	var a SlotAssignment
	err := row.Scan(&a.ID, &a.SlotID, &a.ClinicianID, &a.EffectiveFrom, &a.EffectiveTo, &a.CreatedAt)
	return &a, err
}

func (r *assignmentRepoPG) Create(ctx context.Context, a *SlotAssignment) error {
	a.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO slot_assignment (id, slot_id, clinician_id, effective_from, effective_to)
		VALUES ($1,$2,$3,$4,$5)`,
		a.ID, a.SlotID, a.ClinicianID, a.EffectiveFrom, a.EffectiveTo)
	return err
}

func (r *assignmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*SlotAssignment, error) {
	return r.scanAssignment(r.conn(ctx).QueryRow(ctx, `SELECT `+assignmentCols+` FROM slot_assignment WHERE id = $1`, id))
}

func (r *assignmentRepoPG) Update(ctx context.Context, a *SlotAssignment) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE slot_assignment SET clinician_id=$2, effective_from=$3, effective_to=$4
		WHERE id = $1`,
		a.ID, a.ClinicianID, a.EffectiveFrom, a.EffectiveTo)
	return err
}

func (r *assignmentRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM slot_assignment WHERE id = $1`, id)
	return err
}

func (r *assignmentRepoPG) ListBySlot(ctx context.Context, slotID uuid.UUID) ([]*SlotAssignment, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+assignmentCols+` FROM slot_assignment WHERE slot_id = $1 ORDER BY effective_from ASC`, slotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*SlotAssignment
	for rows.Next() {
		a, err := r.scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, nil
}

func (r *assignmentRepoPG) ListCoveringDate(ctx context.Context, role string, date time.Time) ([]*SlotAssignment, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT a.id, a.slot_id, a.clinician_id, a.effective_from, a.effective_to, a.created_at
		FROM slot_assignment a
		JOIN oncall_slot s ON s.id = a.slot_id
		WHERE s.role = $1
		  AND a.effective_from <= $2
		  AND (a.effective_to IS NULL OR a.effective_to >= $2)
		ORDER BY s.position ASC`, role, DateOnly(date))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*SlotAssignment
	for rows.Next() {
		a, err := r.scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, nil
}

// =========== Pattern Repository ===========

type patternRepoPG struct{ pool *pgxpool.Pool }

func NewPatternRepoPG(pool *pgxpool.Pool) PatternRepository { return &patternRepoPG{pool: pool} }

func (r *patternRepoPG) conn(ctx context.Context) queryable {
	if q := db.QuerierFromContext(ctx); q != nil {
		return q
	}
	return r.pool
}

func (r *patternRepoPG) ListByRole(ctx context.Context, role string) ([]*PatternEntry, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, role, day_of_cycle, slot_position
		FROM oncall_pattern WHERE role = $1 ORDER BY day_of_cycle ASC`, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*PatternEntry
	for rows.Next() {
		var p PatternEntry
		if err := rows.Scan(&p.ID, &p.Role, &p.DayOfCycle, &p.SlotPosition); err != nil {
			return nil, err
		}
		items = append(items, &p)
	}
	return items, nil
}

func (r *patternRepoPG) ReplaceForRole(ctx context.Context, role string, entries []*PatternEntry) error {
	if _, err := r.conn(ctx).Exec(ctx, `DELETE FROM oncall_pattern WHERE role = $1`, role); err != nil {
		return err
	}
	for _, p := range entries {
		p.ID = uuid.New()
		p.Role = role
		if _, err := r.conn(ctx).Exec(ctx, `
			INSERT INTO oncall_pattern (id, role, day_of_cycle, slot_position)
			VALUES ($1,$2,$3,$4)`,
			p.ID, p.Role, p.DayOfCycle, p.SlotPosition); err != nil {
			return err
		}
	}
	return nil
}
