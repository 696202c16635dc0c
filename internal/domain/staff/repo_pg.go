package staff

import (
	"context"

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

// =========== Clinician Repository ===========

type clinicianRepoPG struct{ pool *pgxpool.Pool }

func NewClinicianRepoPG(pool *pgxpool.Pool) ClinicianRepository { return &clinicianRepoPG{pool: pool} }

func (r *clinicianRepoPG) conn(ctx context.Context) queryable {
	if q := db.QuerierFromContext(ctx); q != nil {
		return q
	}
	return r.pool
}

const clinicianCols = `id, name, role, grade, active, created_at, updated_at`

func (r *clinicianRepoPG) scanClinician(row pgx.Row) (*Clinician, error) {
	var c Clinician
	err := row.Scan(&c.ID, &c.Name, &c.Role, &c.Grade, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	return &c, err
}

func (r *clinicianRepoPG) Create(ctx context.Context, c *Clinician) error {
	c.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO clinician (id, name, role, grade, active)
		VALUES ($1,$2,$3,$4,$5)`,
		c.ID, c.Name, c.Role, c.Grade, c.Active)
	return err
}

func (r *clinicianRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Clinician, error) {
	return r.scanClinician(r.conn(ctx).QueryRow(ctx, `SELECT `+clinicianCols+` FROM clinician WHERE id = $1`, id))
}

func (r *clinicianRepoPG) Update(ctx context.Context, c *Clinician) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE clinician SET name=$2, role=$3, grade=$4, active=$5, updated_at=NOW()
		WHERE id = $1`,
		c.ID, c.Name, c.Role, c.Grade, c.Active)
	return err
}

func (r *clinicianRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM clinician WHERE id = $1`, id)
	return err
}

func (r *clinicianRepoPG) List(ctx context.Context, limit, offset int) ([]*Clinician, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM clinician`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+clinicianCols+` FROM clinician ORDER BY name ASC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Clinician
	for rows.Next() {
		c, err := r.scanClinician(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, nil
}

func (r *clinicianRepoPG) ListActiveByRole(ctx context.Context, role string) ([]*Clinician, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+clinicianCols+` FROM clinician WHERE role = $1 AND active ORDER BY id ASC`, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Clinician
	for rows.Next() {
		c, err := r.scanClinician(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, nil
}

// =========== Duty Repository ===========

type dutyRepoPG struct{ pool *pgxpool.Pool }

func NewDutyRepoPG(pool *pgxpool.Pool) DutyRepository { return &dutyRepoPG{pool: pool} }

func (r *dutyRepoPG) conn(ctx context.Context) queryable {
	if q := db.QuerierFromContext(ctx); q != nil {
		return q
	}
	return r.pool
}

const dutyCols = `id, name, color, requires_registrar, created_at, updated_at`

func (r *dutyRepoPG) scanDuty(row pgx.Row) (*Duty, error) {
	var d Duty
	err := row.Scan(&d.ID, &d.Name, &d.Color, &d.RequiresRegistrar, &d.CreatedAt, &d.UpdatedAt)
	return &d, err
}

func (r *dutyRepoPG) Create(ctx context.Context, d *Duty) error {
	d.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO duty (id, name, color, requires_registrar)
		VALUES ($1,$2,$3,$4)`,
		d.ID, d.Name, d.Color, d.RequiresRegistrar)
	return err
}

func (r *dutyRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Duty, error) {
	return r.scanDuty(r.conn(ctx).QueryRow(ctx, `SELECT `+dutyCols+` FROM duty WHERE id = $1`, id))
}

func (r *dutyRepoPG) Update(ctx context.Context, d *Duty) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE duty SET name=$2, color=$3, requires_registrar=$4, updated_at=NOW()
		WHERE id = $1`,
		d.ID, d.Name, d.Color, d.RequiresRegistrar)
	return err
}

func (r *dutyRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM duty WHERE id = $1`, id)
	return err
}

func (r *dutyRepoPG) List(ctx context.Context, limit, offset int) ([]*Duty, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM duty`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+dutyCols+` FROM duty ORDER BY name ASC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Duty
	for rows.Next() {
		d, err := r.scanDuty(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, nil
}
