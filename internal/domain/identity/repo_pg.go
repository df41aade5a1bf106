package identity

import (
	"context"
	"errors"
	"fmt"

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

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

func isPgError(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

// -- Doctor repository --

type doctorRepoPG struct{ pool *pgxpool.Pool }

func NewDoctorRepoPG(pool *pgxpool.Pool) DoctorRepository {
	return &doctorRepoPG{pool: pool}
}

func (r *doctorRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const doctorCols = `id, name, specialty, work_start, work_end, active, created_at, updated_at`

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.Name, &d.Specialty, &d.WorkStart, &d.WorkEnd,
		&d.Active, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *doctorRepoPG) Create(ctx context.Context, d *Doctor) error {
	d.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO doctors (id, name, specialty, work_start, work_end, active)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at, updated_at`,
		d.ID, d.Name, d.Specialty, d.WorkStart, d.WorkEnd, d.Active,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
}

func (r *doctorRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	d, err := scanDoctor(r.conn(ctx).QueryRow(ctx, `SELECT `+doctorCols+` FROM doctors WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return d, nil
}

func (r *doctorRepoPG) Update(ctx context.Context, d *Doctor) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE doctors SET name=$2, specialty=$3, work_start=$4, work_end=$5, active=$6, updated_at=NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		d.ID, d.Name, d.Specialty, d.WorkStart, d.WorkEnd, d.Active,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *doctorRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM doctors WHERE id = $1`, id)
	if err != nil {
		// Appointments keep a hard reference to their doctor.
		if isPgError(err, pgForeignKeyViolation) {
			return ErrDoctorInUse
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *doctorRepoPG) List(ctx context.Context, f DoctorFilter, limit, offset int) ([]*Doctor, int, error) {
	query := `SELECT ` + doctorCols + ` FROM doctors WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM doctors WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.Active != nil {
		clause := fmt.Sprintf(` AND active = $%d`, idx)
		query += clause
		countQuery += clause
		args = append(args, *f.Active)
		idx++
	}
	if f.Specialty != "" {
		clause := fmt.Sprintf(` AND specialty ILIKE $%d`, idx)
		query += clause
		countQuery += clause
		args = append(args, "%"+f.Specialty+"%")
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY name LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var docs []*Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, 0, err
		}
		docs = append(docs, d)
	}
	return docs, total, nil
}

// -- Client repository --

type clientRepoPG struct{ pool *pgxpool.Pool }

func NewClientRepoPG(pool *pgxpool.Pool) ClientRepository {
	return &clientRepoPG{pool: pool}
}

func (r *clientRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const clientCols = `id, name, phone, national_id, active, needs_attention, created_at, updated_at`

func scanClient(row pgx.Row) (*Client, error) {
	var cl Client
	err := row.Scan(&cl.ID, &cl.Name, &cl.Phone, &cl.NationalID,
		&cl.Active, &cl.NeedsAttention, &cl.CreatedAt, &cl.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &cl, nil
}

func (r *clientRepoPG) Create(ctx context.Context, cl *Client) error {
	cl.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO clients (id, name, phone, national_id, active, needs_attention)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at, updated_at`,
		cl.ID, cl.Name, cl.Phone, cl.NationalID, cl.Active, cl.NeedsAttention,
	).Scan(&cl.CreatedAt, &cl.UpdatedAt)
	if isPgError(err, pgUniqueViolation) {
		return ErrDuplicateNationalID
	}
	return err
}

func (r *clientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Client, error) {
	cl, err := scanClient(r.conn(ctx).QueryRow(ctx, `SELECT `+clientCols+` FROM clients WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return cl, nil
}

func (r *clientRepoPG) Update(ctx context.Context, cl *Client) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE clients SET name=$2, phone=$3, national_id=$4, active=$5, needs_attention=$6, updated_at=NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		cl.ID, cl.Name, cl.Phone, cl.NationalID, cl.Active, cl.NeedsAttention,
	).Scan(&cl.CreatedAt, &cl.UpdatedAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return ErrNotFound
	case isPgError(err, pgUniqueViolation):
		return ErrDuplicateNationalID
	}
	return err
}

func (r *clientRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *clientRepoPG) List(ctx context.Context, limit, offset int) ([]*Client, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM clients`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+clientCols+` FROM clients ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var clients []*Client
	for rows.Next() {
		cl, err := scanClient(rows)
		if err != nil {
			return nil, 0, err
		}
		clients = append(clients, cl)
	}
	return clients, total, nil
}

func (r *clientRepoPG) Search(ctx context.Context, q string, limit, offset int) ([]*Client, int, error) {
	where := ` WHERE name ILIKE $1 OR national_id = $2`

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM clients`+where, "%"+q+"%", q).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+clientCols+` FROM clients`+where+` ORDER BY name LIMIT $3 OFFSET $4`,
		"%"+q+"%", q, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var clients []*Client
	for rows.Next() {
		cl, err := scanClient(rows)
		if err != nil {
			return nil, 0, err
		}
		clients = append(clients, cl)
	}
	return clients, total, nil
}

func (r *clientRepoPG) SetNeedsAttention(ctx context.Context, id uuid.UUID, flag bool) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE clients SET needs_attention = $2, updated_at = NOW() WHERE id = $1`, id, flag)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
