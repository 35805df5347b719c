// Package audit records every rollup job submission in Postgres.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrEntryNotFound = errors.New("audit entry not found")

// Entry is one submission attempt.
type Entry struct {
	ID          string          `json:"id"`
	SessionID   string          `json:"session_id"`
	JobID       string          `json:"job_id"`
	Action      string          `json:"action"`
	Succeeded   bool            `json:"succeeded"`
	Status      int             `json:"status,omitempty"`
	Reason      string          `json:"reason,omitempty"`
	SeqNo       *int64          `json:"seq_no,omitempty"`
	PrimaryTerm *int64          `json:"primary_term,omitempty"`
	Document    json.RawMessage `json:"document"`
	DurationMs  int64           `json:"duration_ms"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Recorder stores entries.
type Recorder interface {
	Record(ctx context.Context, e *Entry) error
}

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(ctx context.Context, connString string) (*PostgresRepository, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 1
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

func (r *PostgresRepository) Close() {
	r.pool.Close()
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Record inserts e, assigning an id and timestamp when missing.
func (r *PostgresRepository) Record(ctx context.Context, e *Entry) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if e.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate id: %w", err)
		}
		e.ID = id.String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if len(e.Document) == 0 {
		e.Document = json.RawMessage(`{}`)
	}

	query := `
		INSERT INTO rollup_submissions
		(id, session_id, job_id, action, succeeded, status, reason, seq_no, primary_term, document, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.pool.Exec(ctx, query,
		e.ID,
		e.SessionID,
		e.JobID,
		e.Action,
		e.Succeeded,
		e.Status,
		e.Reason,
		e.SeqNo,
		e.PrimaryTerm,
		[]byte(e.Document),
		e.DurationMs,
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record submission: %w", err)
	}
	return nil
}

const selectColumns = `id, session_id, job_id, action, succeeded, status, reason, seq_no, primary_term, document, duration_ms, created_at`

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	var doc []byte
	err := row.Scan(&e.ID, &e.SessionID, &e.JobID, &e.Action, &e.Succeeded, &e.Status,
		&e.Reason, &e.SeqNo, &e.PrimaryTerm, &doc, &e.DurationMs, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.Document = json.RawMessage(doc)
	return &e, nil
}

// Get returns one entry by id.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	row := r.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM rollup_submissions WHERE id = $1`, id)
	e, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return e, nil
}

// ListByJob returns the most recent entries for a job, newest first.
func (r *PostgresRepository) ListByJob(ctx context.Context, jobID string, limit int) ([]*Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if limit <= 0 || limit > 500 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+selectColumns+` FROM rollup_submissions WHERE job_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`,
		jobID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	entries := []*Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate submissions: %w", err)
	}
	return entries, nil
}
