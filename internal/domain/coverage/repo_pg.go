package coverage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shadynafie/rotato-sub000/internal/domain/oncall"
	"github.com/shadynafie/rotato-sub000/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

const uniqueViolation = "23505"

type requestRepoPG struct{ pool *pgxpool.Pool }

func NewRequestRepoPG(pool *pgxpool.Pool) RequestRepository { return &requestRepoPG{pool: pool} }

func (r *requestRepoPG) conn(ctx context.Context) queryable {
	if q := db.QuerierFromContext(ctx); q != nil {
		return q
	}
	return r.pool
}

const requestCols = `id, date, session, duty_id, type, reason, status,
	absent_clinician_id, consultant_id, assigned_clinician_id, assigned_at,
	note, created_at, updated_at`

func (r *requestRepoPG) scanRequest(row pgx.Row) (*Request, error) {
	var req Request
	err := row.Scan(&req.ID, &req.Date, &req.Session, &req.DutyID, &req.Type, &req.Reason, &req.Status,
		&req.AbsentClinicianID, &req.ConsultantID, &req.AssignedClinicianID, &req.AssignedAt,
		&req.Note, &req.CreatedAt, &req.UpdatedAt)
	return &req, err
}

func (r *requestRepoPG) Create(ctx context.Context, req *Request) error {
	req.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO coverage_request (id, date, session, duty_id, type, reason, status,
			absent_clinician_id, consultant_id, note)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		req.ID, oncall.DateOnly(req.Date), req.Session, req.DutyID, req.Type, req.Reason, req.Status,
		req.AbsentClinicianID, req.ConsultantID, req.Note)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicateRequest
	}
	return err
}

func (r *requestRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Request, error) {
	return r.scanRequest(r.conn(ctx).QueryRow(ctx, `SELECT `+requestCols+` FROM coverage_request WHERE id = $1`, id))
}

func (r *requestRepoPG) Update(ctx context.Context, req *Request) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE coverage_request SET status=$2, assigned_clinician_id=$3, assigned_at=$4, note=$5, updated_at=NOW()
		WHERE id = $1`,
		req.ID, req.Status, req.AssignedClinicianID, req.AssignedAt, req.Note)
	return err
}

func (r *requestRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM coverage_request WHERE id = $1`, id)
	return err
}

func (r *requestRepoPG) List(ctx context.Context, status string, limit, offset int) ([]*Request, int, error) {
	where := ``
	args := []interface{}{}
	if status != "" {
		where = ` WHERE status = $1`
		args = append(args, status)
	}
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM coverage_request`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `SELECT ` + requestCols + ` FROM coverage_request` + where +
		` ORDER BY date DESC, session, created_at DESC`
	if status != "" {
		query += ` LIMIT $2 OFFSET $3`
	} else {
		query += ` LIMIT $1 OFFSET $2`
	}
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items, err := r.collect(rows)
	return items, total, err
}

func (r *requestRepoPG) ListPendingOldestFirst(ctx context.Context) ([]*Request, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+requestCols+` FROM coverage_request
		WHERE status = 'pending'
		ORDER BY date ASC, session ASC, created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *requestRepoPG) collect(rows pgx.Rows) ([]*Request, error) {
	var items []*Request
	for rows.Next() {
		req, err := r.scanRequest(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, req)
	}
	return items, rows.Err()
}

func (r *requestRepoPG) CancelForLeave(ctx context.Context, absentClinicianID uuid.UUID, date time.Time, sessions []string, reason string) (int, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE coverage_request
		SET status = 'cancelled', updated_at = NOW()
		WHERE absent_clinician_id = $1 AND date = $2 AND session = ANY($3)
		  AND reason = $4 AND status <> 'cancelled'`,
		absentClinicianID, oncall.DateOnly(date), sessions, reason)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *requestRepoPG) HasAssignment(ctx context.Context, clinicianID uuid.UUID, date time.Time, session string) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM coverage_request
			WHERE assigned_clinician_id = $1 AND date = $2 AND session = $3 AND status <> 'cancelled'
		)`, clinicianID, oncall.DateOnly(date), session).Scan(&exists)
	return exists, err
}

func (r *requestRepoPG) LastAssignmentBefore(ctx context.Context, clinicianID uuid.UUID, before time.Time) (*time.Time, error) {
	var last *time.Time
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT MAX(date) FROM coverage_request
		WHERE assigned_clinician_id = $1 AND date < $2 AND status <> 'cancelled'`,
		clinicianID, oncall.DateOnly(before)).Scan(&last)
	if err != nil {
		return nil, err
	}
	return last, nil
}

func (r *requestRepoPG) CountAssignedInWindow(ctx context.Context, clinicianID uuid.UUID, from, to time.Time) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM coverage_request
		WHERE assigned_clinician_id = $1 AND date >= $2 AND date <= $3 AND status <> 'cancelled'`,
		clinicianID, oncall.DateOnly(from), oncall.DateOnly(to)).Scan(&n)
	return n, err
}
