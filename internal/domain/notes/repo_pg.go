package notes

import (
	"context"
	"errors"
	"fmt"
	"time"

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

const noteCols = `id, client_id, therapist_id, title, content, appointment_id, event_id, source, word_count, tags, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, n *Note) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	// Promoted documents carry their inferred session date as created_at.
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO session_note (id, client_id, therapist_id, title, content, appointment_id, event_id, source, word_count, tags, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		n.ID, n.ClientID, n.TherapistID, n.Title, n.Content, n.AppointmentID, n.EventID, n.Source, n.WordCount, n.Tags, n.CreatedAt,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Note, error) {
	return scanNote(r.conn(ctx).QueryRow(ctx, `SELECT `+noteCols+` FROM session_note WHERE id = $1`, id))
}

func (r *repoPG) ListByClient(ctx context.Context, clientID uuid.UUID) ([]*Note, error) {
	return r.listNotes(ctx, `SELECT `+noteCols+` FROM session_note WHERE client_id = $1 ORDER BY created_at`, clientID)
}

func (r *repoPG) ListUnlinkedByClient(ctx context.Context, clientID uuid.UUID) ([]*Note, error) {
	return r.listNotes(ctx,
		`SELECT `+noteCols+` FROM session_note WHERE client_id = $1 AND appointment_id IS NULL ORDER BY created_at`,
		clientID)
}

func (r *repoPG) listNotes(ctx context.Context, sql string, args ...interface{}) ([]*Note, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*Note
	for rows.Next() {
		n, err := scanNoteRows(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

func (r *repoPG) SetAppointment(ctx context.Context, id uuid.UUID, appointmentID *uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE session_note SET appointment_id = $2, updated_at = NOW() WHERE id = $1`,
		id, appointmentID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("note %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

func (r *repoPG) FindByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Note, error) {
	return scanNote(r.conn(ctx).QueryRow(ctx,
		`SELECT `+noteCols+` FROM session_note WHERE appointment_id = $1`, appointmentID))
}

func (r *repoPG) CountUnlinkedOlderThan(ctx context.Context, practiceID uuid.UUID, cutoff time.Time) (int, error) {
	var count int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM session_note n
		JOIN client c ON c.id = n.client_id
		WHERE c.practice_id = $1 AND n.appointment_id IS NULL AND n.created_at < $2`,
		practiceID, cutoff).Scan(&count)
	return count, err
}

const docCols = `id, practice_id, client_id, therapist_id, file_name, raw_text, extracted_client_name, inferred_date, status, needs_processing, note_id, created_at, updated_at`

func (r *repoPG) CreateDocument(ctx context.Context, d *DocumentItem) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO document_item (id, practice_id, client_id, therapist_id, file_name, raw_text, extracted_client_name, inferred_date, status, needs_processing)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		d.ID, d.PracticeID, d.ClientID, d.TherapistID, d.FileName, d.RawText,
		d.ExtractedClientName, d.InferredDate, d.Status, d.NeedsProcessing,
	)
	return err
}

func (r *repoPG) GetDocument(ctx context.Context, id uuid.UUID) (*DocumentItem, error) {
	return scanDoc(r.conn(ctx).QueryRow(ctx, `SELECT `+docCols+` FROM document_item WHERE id = $1`, id))
}

func (r *repoPG) ListPendingDocuments(ctx context.Context, practiceID uuid.UUID) ([]*DocumentItem, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+docCols+` FROM document_item
		WHERE practice_id = $1 AND needs_processing = TRUE AND status = 'pending'
		ORDER BY created_at`, practiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*DocumentItem
	for rows.Next() {
		d, err := scanDocRows(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

func (r *repoPG) UpdateDocument(ctx context.Context, d *DocumentItem) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE document_item SET
			client_id=$2, extracted_client_name=$3, inferred_date=$4, status=$5,
			needs_processing=$6, note_id=$7, updated_at=NOW()
		WHERE id = $1`,
		d.ID, d.ClientID, d.ExtractedClientName, d.InferredDate, d.Status, d.NeedsProcessing, d.NoteID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", d.ID, apperr.ErrNotFound)
	}
	return nil
}

func (r *repoPG) Promote(ctx context.Context, d *DocumentItem, n *Note) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		if err := r.Create(ctx, n); err != nil {
			return fmt.Errorf("create promoted note: %w", err)
		}
		d.NoteID = &n.ID
		d.Status = DocStatusMatched
		d.NeedsProcessing = false
		if err := r.UpdateDocument(ctx, d); err != nil {
			return fmt.Errorf("mark document matched: %w", err)
		}
		return nil
	})
}

func scanNote(row pgx.Row) (*Note, error) {
	n := &Note{}
	err := row.Scan(&n.ID, &n.ClientID, &n.TherapistID, &n.Title, &n.Content,
		&n.AppointmentID, &n.EventID, &n.Source, &n.WordCount, &n.Tags, &n.CreatedAt, &n.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("note: %w", apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}

func scanNoteRows(rows pgx.Rows) (*Note, error) {
	n := &Note{}
	err := rows.Scan(&n.ID, &n.ClientID, &n.TherapistID, &n.Title, &n.Content,
		&n.AppointmentID, &n.EventID, &n.Source, &n.WordCount, &n.Tags, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return n, nil
}

func scanDoc(row pgx.Row) (*DocumentItem, error) {
	d := &DocumentItem{}
	err := row.Scan(&d.ID, &d.PracticeID, &d.ClientID, &d.TherapistID, &d.FileName, &d.RawText,
		&d.ExtractedClientName, &d.InferredDate, &d.Status, &d.NeedsProcessing, &d.NoteID, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("document: %w", apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func scanDocRows(rows pgx.Rows) (*DocumentItem, error) {
	d := &DocumentItem{}
	err := rows.Scan(&d.ID, &d.PracticeID, &d.ClientID, &d.TherapistID, &d.FileName, &d.RawText,
		&d.ExtractedClientName, &d.InferredDate, &d.Status, &d.NeedsProcessing, &d.NoteID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return d, nil
}
