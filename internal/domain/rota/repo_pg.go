package rota

import (
	"context"
	"errors"
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

const uniqueViolation = "23505"

// =========== Job Plan Repository ===========

type jobPlanRepoPG struct{ pool *pgxpool.Pool }

func NewJobPlanRepoPG(pool *pgxpool.Pool) JobPlanRepository { return &jobPlanRepoPG{pool: pool} }

func (r *jobPlanRepoPG) conn(ctx context.Context) queryable {
	if q := db.QuerierFromContext(ctx); q != nil {
		return q
	}
	return r.pool
}

const jobPlanCols = `id, clinician_id, week_no, day_of_week, session, duty_id, supporting_consultant_id, created_at, updated_at`

func (r *jobPlanRepoPG) scanEntry(row pgx.Row) (*JobPlanEntry, error) {
	var e JobPlanEntry
	err := row.Scan(&e.ID, &e.ClinicianID, &e.WeekNo, &e.DayOfWeek, &e.Session,
		&e.DutyID, &e.SupportingConsultantID, &e.CreatedAt, &e.UpdatedAt)
	return &e, err
}

func (r *jobPlanRepoPG) Upsert(ctx context.Context, e *JobPlanEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO job_plan_entry (id, clinician_id, week_no, day_of_week, session, duty_id, supporting_consultant_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (clinician_id, week_no, day_of_week, session) DO UPDATE
		SET duty_id = EXCLUDED.duty_id, supporting_consultant_id = EXCLUDED.supporting_consultant_id, updated_at = NOW()`,
		e.ID, e.ClinicianID, e.WeekNo, e.DayOfWeek, e.Session, e.DutyID, e.SupportingConsultantID)
	return err
}

func (r *jobPlanRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM job_plan_entry WHERE id = $1`, id)
	return err
}

func (r *jobPlanRepoPG) ListByClinician(ctx context.Context, clinicianID uuid.UUID) ([]*JobPlanEntry, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+jobPlanCols+` FROM job_plan_entry
		WHERE clinician_id = $1
		ORDER BY week_no, day_of_week, session`, clinicianID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *jobPlanRepoPG) ListAll(ctx context.Context) ([]*JobPlanEntry, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+jobPlanCols+` FROM job_plan_entry
		ORDER BY clinician_id, week_no, day_of_week, session`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *jobPlanRepoPG) collect(rows pgx.Rows) ([]*JobPlanEntry, error) {
	var items []*JobPlanEntry
	for rows.Next() {
		e, err := r.scanEntry(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

func (r *jobPlanRepoPG) FindCell(ctx context.Context, clinicianID uuid.UUID, weekNo, dayOfWeek int, session string) (*JobPlanEntry, error) {
	e, err := r.scanEntry(r.conn(ctx).QueryRow(ctx, `
		SELECT `+jobPlanCols+` FROM job_plan_entry
		WHERE clinician_id = $1 AND week_no = $2 AND day_of_week = $3 AND session = $4`,
		clinicianID, weekNo, dayOfWeek, session))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return e, nil
}

func (r *jobPlanRepoPG) ListSupporting(ctx context.Context, consultantID uuid.UUID, weekNo, dayOfWeek int, session string) ([]*JobPlanEntry, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+jobPlanCols+` FROM job_plan_entry
		WHERE supporting_consultant_id = $1 AND week_no = $2 AND day_of_week = $3 AND session = $4
		ORDER BY clinician_id`, consultantID, weekNo, dayOfWeek, session)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collect(rows)
}

// =========== Leave Repository ===========

type leaveRepoPG struct{ pool *pgxpool.Pool }

func NewLeaveRepoPG(pool *pgxpool.Pool) LeaveRepository { return &leaveRepoPG{pool: pool} }

func (r *leaveRepoPG) conn(ctx context.Context) queryable {
	if q := db.QuerierFromContext(ctx); q != nil {
		return q
	}
	return r.pool
}

const leaveCols = `id, clinician_id, date, session, type, note, created_at`

func (r *leaveRepoPG) scanLeave(row pgx.Row) (*Leave, error) {
	var l Leave
	err := row.Scan(&l.ID, &l.ClinicianID, &l.Date, &l.Session, &l.Type, &l.Note, &l.CreatedAt)
	return &l, err
}

func (r *leaveRepoPG) Create(ctx context.Context, l *Leave) error {
	l.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO leave (id, clinician_id, date, session, type, note)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		l.ID, l.ClinicianID, DateOnly(l.Date), l.Session, l.Type, l.Note)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicateLeave
	}
	return err
}

func (r *leaveRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Leave, error) {
	return r.scanLeave(r.conn(ctx).QueryRow(ctx, `SELECT `+leaveCols+` FROM leave WHERE id = $1`, id))
}

func (r *leaveRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM leave WHERE id = $1`, id)
	return err
}

func (r *leaveRepoPG) ListRange(ctx context.Context, from, to time.Time) ([]*Leave, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+leaveCols+` FROM leave
		WHERE date >= $1 AND date <= $2
		ORDER BY clinician_id, date, session`, DateOnly(from), DateOnly(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *leaveRepoPG) ListForClinicianRange(ctx context.Context, clinicianID uuid.UUID, from, to time.Time) ([]*Leave, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+leaveCols+` FROM leave
		WHERE clinician_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date, session`, clinicianID, DateOnly(from), DateOnly(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *leaveRepoPG) collect(rows pgx.Rows) ([]*Leave, error) {
	var items []*Leave
	for rows.Next() {
		l, err := r.scanLeave(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, l)
	}
	return items, rows.Err()
}

func (r *leaveRepoPG) CoveringSession(ctx context.Context, clinicianID uuid.UUID, date time.Time, session string) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM leave
			WHERE clinician_id = $1 AND date = $2 AND (session = $3 OR session = 'FULL')
		)`, clinicianID, DateOnly(date), session).Scan(&exists)
	return exists, err
}

// =========== Manual Override Repository ===========

type overrideRepoPG struct{ pool *pgxpool.Pool }

func NewOverrideRepoPG(pool *pgxpool.Pool) OverrideRepository { return &overrideRepoPG{pool: pool} }

func (r *overrideRepoPG) conn(ctx context.Context) queryable {
	if q := db.QuerierFromContext(ctx); q != nil {
		return q
	}
	return r.pool
}

const overrideCols = `id, clinician_id, date, session, duty_id, is_oncall, note, created_at, updated_at`

func (r *overrideRepoPG) scanEntry(row pgx.Row) (*RotaEntry, error) {
	var e RotaEntry
	err := row.Scan(&e.ID, &e.ClinicianID, &e.Date, &e.Session, &e.DutyID, &e.IsOncall, &e.Note, &e.CreatedAt, &e.UpdatedAt)
	return &e, err
}

func (r *overrideRepoPG) Upsert(ctx context.Context, e *RotaEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO rota_entry (id, clinician_id, date, session, duty_id, is_oncall, note)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (clinician_id, date, session) DO UPDATE
		SET duty_id = EXCLUDED.duty_id, is_oncall = EXCLUDED.is_oncall, note = EXCLUDED.note, updated_at = NOW()`,
		e.ID, e.ClinicianID, DateOnly(e.Date), e.Session, e.DutyID, e.IsOncall, e.Note)
	return err
}

func (r *overrideRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM rota_entry WHERE id = $1`, id)
	return err
}

func (r *overrideRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*RotaEntry, error) {
	return r.scanEntry(r.conn(ctx).QueryRow(ctx, `SELECT `+overrideCols+` FROM rota_entry WHERE id = $1`, id))
}

func (r *overrideRepoPG) ListRange(ctx context.Context, from, to time.Time) ([]*RotaEntry, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+overrideCols+` FROM rota_entry
		WHERE date >= $1 AND date <= $2
		ORDER BY clinician_id, date, session`, DateOnly(from), DateOnly(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*RotaEntry
	for rows.Next() {
		e, err := r.scanEntry(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

// =========== Derived Override Repository ===========

type derivedRepoPG struct{ pool *pgxpool.Pool }

func NewDerivedOverrideRepoPG(pool *pgxpool.Pool) DerivedOverrideRepository {
	return &derivedRepoPG{pool: pool}
}

func (r *derivedRepoPG) conn(ctx context.Context) queryable {
	if q := db.QuerierFromContext(ctx); q != nil {
		return q
	}
	return r.pool
}

const derivedCols = `id, clinician_id, date, session, origin_leave_id, created_at`

func (r *derivedRepoPG) CreateIfAbsent(ctx context.Context, o *DerivedOverride) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO derived_override (id, clinician_id, date, session, origin_leave_id)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (clinician_id, date, session, origin_leave_id) DO NOTHING`,
		o.ID, o.ClinicianID, DateOnly(o.Date), o.Session, o.OriginLeaveID)
	return err
}

func (r *derivedRepoPG) DeleteByOrigin(ctx context.Context, originLeaveID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM derived_override WHERE origin_leave_id = $1`, originLeaveID)
	return err
}

func (r *derivedRepoPG) ListByOrigin(ctx context.Context, originLeaveID uuid.UUID) ([]*DerivedOverride, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+derivedCols+` FROM derived_override
		WHERE origin_leave_id = $1 ORDER BY clinician_id, date, session`, originLeaveID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *derivedRepoPG) ListRange(ctx context.Context, from, to time.Time) ([]*DerivedOverride, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+derivedCols+` FROM derived_override
		WHERE date >= $1 AND date <= $2
		ORDER BY clinician_id, date, session`, DateOnly(from), DateOnly(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *derivedRepoPG) collect(rows pgx.Rows) ([]*DerivedOverride, error) {
	var items []*DerivedOverride
	for rows.Next() {
		var o DerivedOverride
		if err := rows.Scan(&o.ID, &o.ClinicianID, &o.Date, &o.Session, &o.OriginLeaveID, &o.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &o)
	}
	return items, rows.Err()
}
