package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Fixed-width timestamps keep ORDER BY on the text columns chronological.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type Repository struct {
	db *sql.DB
}

func NewRepository(path string) (*Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	repo := &Repository{db: db}
	if err := repo.init(); err != nil {
		db.Close()
		return nil, err
	}

	return repo, nil
}

func (r *Repository) init() error {
	query := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		requested INTEGER NOT NULL,
		elapsed INTEGER NOT NULL,
		started_at TEXT NOT NULL,
		stopped_at TEXT NOT NULL,
		outcome TEXT NOT NULL
	)
	`
	_, err := r.db.Exec(query)
	return err
}

// Record stores a finished run, assigning an ID when it has none.
func (r *Repository) Record(ctx context.Context, run *Run) error {
	if run == nil {
		return errors.New("nil run")
	}
	if run.Outcome != Completed && run.Outcome != Cancelled {
		return fmt.Errorf("unknown outcome %q", run.Outcome)
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO runs (id, requested, elapsed, started_at, stopped_at, outcome) VALUES (?, ?, ?, ?, ?, ?)",
		run.ID,
		int64(run.Requested),
		int64(run.Elapsed),
		run.StartedAt.UTC().Format(timeLayout),
		run.StoppedAt.UTC().Format(timeLayout),
		string(run.Outcome),
	)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", run.ID, err)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (r *Repository) Recent(ctx context.Context, limit int) ([]Run, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, requested, elapsed, started_at, stopped_at, outcome FROM runs ORDER BY stopped_at DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var requested, elapsed int64
		var startedAt, stoppedAt, outcome string
		if err := rows.Scan(&run.ID, &requested, &elapsed, &startedAt, &stoppedAt, &outcome); err != nil {
			return nil, err
		}
		run.Requested = time.Duration(requested)
		run.Elapsed = time.Duration(elapsed)
		run.StartedAt, _ = time.Parse(timeLayout, startedAt)
		run.StoppedAt, _ = time.Parse(timeLayout, stoppedAt)
		run.Outcome = Outcome(outcome)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (r *Repository) Totals(ctx context.Context) (Totals, error) {
	var t Totals
	var spent int64
	err := r.db.QueryRowContext(ctx,
		`SELECT
			COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(elapsed), 0)
		 FROM runs`,
		string(Completed), string(Cancelled),
	).Scan(&t.Completed, &t.Cancelled, &spent)
	if err != nil {
		return Totals{}, err
	}
	t.TimeSpent = time.Duration(spent)
	return t, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", id)
	return err
}

func (r *Repository) Close() error {
	return r.db.Close()
}
