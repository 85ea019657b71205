package scheduling

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathanprocter/practice-intelligently-sub006/internal/apperr"
	"github.com/jonathanprocter/practice-intelligently-sub006/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const apptCols = `id, client_id, therapist_id, start_time, end_time, type, status, event_id, location, notes, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO appointment (id, client_id, therapist_id, start_time, end_time, type, status, event_id, location, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		a.ID, a.ClientID, a.TherapistID, a.StartTime, a.EndTime, a.Type, a.Status, a.EventID, a.Location, a.Notes,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppt(r.conn(ctx).QueryRow(ctx, `SELECT `+apptCols+` FROM appointment WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, a *Appointment) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointment SET
			start_time=$2, end_time=$3, type=$4, status=$5, event_id=$6, location=$7, notes=$8, updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.StartTime, a.EndTime, a.Type, a.Status, a.EventID, a.Location, a.Notes,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("appointment %s: %w", a.ID, apperr.ErrNotFound)
	}
	return nil
}

func (r *repoPG) ListByClient(ctx context.Context, clientID uuid.UUID) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+apptCols+` FROM appointment WHERE client_id = $1 ORDER BY start_time`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []*Appointment
	for rows.Next() {
		a, err := scanApptRows(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, a)
	}
	return appts, rows.Err()
}

func (r *repoPG) ListByPractice(ctx context.Context, practiceID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM appointment a
		JOIN client c ON c.id = a.client_id
		WHERE c.practice_id = $1`, practiceID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+prefixedApptCols+` FROM appointment a
		JOIN client c ON c.id = a.client_id
		WHERE c.practice_id = $1
		ORDER BY a.start_time DESC LIMIT $2 OFFSET $3`, practiceID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var appts []*Appointment
	for rows.Next() {
		a, err := scanApptRows(rows)
		if err != nil {
			return nil, 0, err
		}
		appts = append(appts, a)
	}
	return appts, total, rows.Err()
}

const prefixedApptCols = `a.id, a.client_id, a.therapist_id, a.start_time, a.end_time, a.type, a.status, a.event_id, a.location, a.notes, a.created_at, a.updated_at`

func scanAppt(row pgx.Row) (*Appointment, error) {
	a := &Appointment{}
	err := row.Scan(&a.ID, &a.ClientID, &a.TherapistID, &a.StartTime, &a.EndTime,
		&a.Type, &a.Status, &a.EventID, &a.Location, &a.Notes, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("appointment: %w", apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func scanApptRows(rows pgx.Rows) (*Appointment, error) {
	a := &Appointment{}
	err := rows.Scan(&a.ID, &a.ClientID, &a.TherapistID, &a.StartTime, &a.EndTime,
		&a.Type, &a.Status, &a.EventID, &a.Location, &a.Notes, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}
