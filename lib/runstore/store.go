package runstore

import (
	"context"
	"database/sql"
	"time"

	"formfiller-backend/lib/runstore/db"
	"formfiller-backend/lib/timezone"

	_ "modernc.org/sqlite"
)

// Store journals per-record outcomes of batch runs so an operator can
// reconstruct what happened to any family after the fact.
type Store struct {
	db *sql.DB
}

func NewStore(database *sql.DB) Store {
	return Store{db: database}
}

// Open opens (creating if necessary) the journal database at path.
func Open(path string) (Store, error) {
	database, err := sql.Open("sqlite", path)
	if err != nil {
		return Store{}, err
	}
	s := NewStore(database)
	err = s.init()
	if err != nil {
		database.Close()
		return Store{}, err
	}
	return s, nil
}

func (s Store) init() error {
	_, err := s.db.Exec(db.Schema)
	return err
}

func (s Store) Close() error {
	return s.db.Close()
}

// BeginRun creates a batch run row and returns its id.
func (s Store) BeginRun(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO batch_run (started_at) VALUES (?)`,
		timezone.Now().Unix(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s Store) FinishRun(ctx context.Context, runID int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE batch_run SET finished_at = ? WHERE id = ?`,
		timezone.Now().Unix(), runID,
	)
	return err
}

type Outcome struct {
	RecordKey      string
	Status         string
	Attempt        int
	ScreenshotPath string
	ErrorText      string
	Time           time.Time
}

func (s Store) RecordOutcome(ctx context.Context, runID int64, o Outcome) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO record_outcome
			(run_id, record_key, status, attempt, screenshot_path, error_text, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, o.RecordKey, o.Status, o.Attempt,
		o.ScreenshotPath, o.ErrorText, timezone.Now().Unix(),
	)
	return err
}

// Outcomes returns every outcome journaled for a run, oldest first.
func (s Store) Outcomes(ctx context.Context, runID int64) ([]Outcome, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record_key, status, attempt, screenshot_path, error_text, created_at
		FROM record_outcome WHERE run_id = ? ORDER BY id ASC`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Outcome
	for rows.Next() {
		var o Outcome
		var createdAt int64
		err := rows.Scan(
			&o.RecordKey, &o.Status, &o.Attempt,
			&o.ScreenshotPath, &o.ErrorText, &createdAt,
		)
		if err != nil {
			return nil, err
		}
		o.Time = time.Unix(createdAt, 0).In(timezone.Location)
		out = append(out, o)
	}
	return out, rows.Err()
}
