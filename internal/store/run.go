package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// StartRun records the beginning of a pipeline run and returns it.
func (db *DB) StartRun(source string) (*Run, error) {
	r := &Run{ID: uuid.NewString(), Source: source, StartedAt: time.Now().UnixMilli()}
	if _, err := db.Exec(`INSERT INTO runs (id, source, started_at) VALUES (?, ?, ?)`,
		r.ID, r.Source, r.StartedAt); err != nil {
		return nil, fmt.Errorf("start run: %w", err)
	}
	return r, nil
}

// FinishRun stores the run outcome.
func (db *DB) FinishRun(id, outcome string) error {
	res, err := db.Exec(`UPDATE runs SET finished_at = ?, outcome = ? WHERE id = ?`,
		time.Now().UnixMilli(), outcome, id)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run: %s: %w", id, sql.ErrNoRows)
	}
	return nil
}

// ListRuns returns runs oldest first.
func (db *DB) ListRuns() ([]Run, error) {
	rows, err := db.Query(`SELECT id, source, started_at, finished_at, outcome FROM runs ORDER BY started_at, id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Source, &r.StartedAt, &r.FinishedAt, &r.Outcome); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
