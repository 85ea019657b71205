package identity

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

const clientCols = `id, practice_id, therapist_id, first_name, last_name, email, phone, status, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, c *Client) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO client (id, practice_id, therapist_id, first_name, last_name, email, phone, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		c.ID, c.PracticeID, c.TherapistID, c.FirstName, c.LastName, c.Email, c.Phone, c.Status,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Client, error) {
	return scanClient(r.conn(ctx).QueryRow(ctx, `SELECT `+clientCols+` FROM client WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, c *Client) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE client SET
			therapist_id=$2, first_name=$3, last_name=$4, email=$5, phone=$6, status=$7, updated_at=NOW()
		WHERE id = $1`,
		c.ID, c.TherapistID, c.FirstName, c.LastName, c.Email, c.Phone, c.Status,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("client %s: %w", c.ID, apperr.ErrNotFound)
	}
	return nil
}

func (r *repoPG) ListByPractice(ctx context.Context, practiceID uuid.UUID, limit, offset int) ([]*Client, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM client WHERE practice_id = $1`, practiceID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+clientCols+` FROM client WHERE practice_id = $1 ORDER BY last_name, first_name LIMIT $2 OFFSET $3`,
		practiceID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var clients []*Client
	for rows.Next() {
		c, err := scanClientRows(rows)
		if err != nil {
			return nil, 0, err
		}
		clients = append(clients, c)
	}
	return clients, total, rows.Err()
}

func (r *repoPG) ListActiveByPractice(ctx context.Context, practiceID uuid.UUID) ([]*Client, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+clientCols+` FROM client WHERE practice_id = $1 AND status = 'active' ORDER BY last_name, first_name`,
		practiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []*Client
	for rows.Next() {
		c, err := scanClientRows(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

func scanClient(row pgx.Row) (*Client, error) {
	c := &Client{}
	err := row.Scan(&c.ID, &c.PracticeID, &c.TherapistID, &c.FirstName, &c.LastName,
		&c.Email, &c.Phone, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("client: %w", apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func scanClientRows(rows pgx.Rows) (*Client, error) {
	c := &Client{}
	err := rows.Scan(&c.ID, &c.PracticeID, &c.TherapistID, &c.FirstName, &c.LastName,
		&c.Email, &c.Phone, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}
