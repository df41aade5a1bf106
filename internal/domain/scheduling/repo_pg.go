package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicd/clinicd/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// Postgres error codes the repository translates into scheduling errors.
const (
	pgForeignKeyViolation = "23503"
	pgExclusionViolation  = "23P01"
)

type appointmentRepoPG struct{ pool *pgxpool.Pool }

func NewAppointmentRepoPG(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

func (r *appointmentRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const apptCols = `a.id, a.doctor_id, a.client_id, a.start_time, a.duration_minutes,
	a.status, a.note, a.created_at, a.updated_at, d.name, c.name`

const apptFrom = ` FROM appointments a
	JOIN doctors d ON d.id = a.doctor_id
	LEFT JOIN clients c ON c.id = a.client_id`

func (r *appointmentRepoPG) scanAppt(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.DoctorID, &a.ClientID, &a.StartTime, &a.DurationMinutes,
		&a.Status, &a.Note, &a.CreatedAt, &a.UpdatedAt, &a.DoctorName, &a.ClientName)
	return &a, err
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO appointments (id, doctor_id, client_id, start_time, end_time, duration_minutes, status, note)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		a.ID, a.DoctorID, a.ClientID, a.StartTime, a.EndTime(), a.DurationMinutes, a.Status, a.Note)
	return mapWriteError(err)
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := r.scanAppt(r.conn(ctx).QueryRow(ctx, `SELECT `+apptCols+apptFrom+` WHERE a.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, NotFoundError("appointment not found")
		}
		return nil, err
	}
	return a, nil
}

func (r *appointmentRepoPG) Update(ctx context.Context, a *Appointment) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointments SET doctor_id=$2, client_id=$3, start_time=$4, end_time=$5,
			duration_minutes=$6, status=$7, note=$8, updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.DoctorID, a.ClientID, a.StartTime, a.EndTime(), a.DurationMinutes, a.Status, a.Note)
	if err != nil {
		return mapWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return NotFoundError("appointment not found")
	}
	return nil
}

func (r *appointmentRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return NotFoundError("appointment not found")
	}
	return nil
}

func (r *appointmentRepoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Appointment, int, error) {
	query := `SELECT ` + apptCols + apptFrom + ` WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM appointments a WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.DoctorID != nil {
		query += fmt.Sprintf(` AND a.doctor_id = $%d`, idx)
		countQuery += fmt.Sprintf(` AND a.doctor_id = $%d`, idx)
		args = append(args, *f.DoctorID)
		idx++
	}
	if f.ClientID != nil {
		query += fmt.Sprintf(` AND a.client_id = $%d`, idx)
		countQuery += fmt.Sprintf(` AND a.client_id = $%d`, idx)
		args = append(args, *f.ClientID)
		idx++
	}
	if f.Status != "" {
		query += fmt.Sprintf(` AND a.status = $%d`, idx)
		countQuery += fmt.Sprintf(` AND a.status = $%d`, idx)
		args = append(args, f.Status)
		idx++
	}
	if f.From != nil {
		query += fmt.Sprintf(` AND a.start_time >= $%d`, idx)
		countQuery += fmt.Sprintf(` AND a.start_time >= $%d`, idx)
		args = append(args, *f.From)
		idx++
	}
	if f.To != nil {
		query += fmt.Sprintf(` AND a.start_time < $%d`, idx)
		countQuery += fmt.Sprintf(` AND a.start_time < $%d`, idx)
		args = append(args, *f.To)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY a.start_time ASC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := r.scanAppt(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, nil
}

func (r *appointmentRepoPG) ListOverlapping(ctx context.Context, doctorID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) ([]uuid.UUID, error) {
	query := `SELECT id FROM appointments
		WHERE doctor_id = $1 AND status <> $2 AND start_time < $3 AND end_time > $4`
	args := []interface{}{doctorID, StatusCancelled, end, start}
	if excludeID != nil {
		query += ` AND id <> $5`
		args = append(args, *excludeID)
	}
	query += ` ORDER BY start_time ASC`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	// A partially-read result must not pass for a clear calendar.
	return ids, rows.Err()
}

// mapWriteError translates constraint violations on appointment writes. An
// exclusion violation means a concurrent booking won the interval between our
// conflict check and this write.
func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgExclusionViolation:
			return &Error{kind: ErrScheduleConflict, Message: "the requested interval conflicts with an existing appointment"}
		case pgForeignKeyViolation:
			switch pgErr.ConstraintName {
			case "appointments_doctor_id_fkey":
				return NotFoundError("doctor not found")
			case "appointments_client_id_fkey":
				return NotFoundError("client not found")
			}
			return NotFoundError("referenced record not found")
		}
	}
	return err
}
