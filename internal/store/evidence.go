package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RecordEvidence stores e keyed by path and appends a "recorded" custody
// event. A path recorded earlier keeps its id and gets the new digests.
func (db *DB) RecordEvidence(e *Evidence, actor string) error {
	return db.WithTx(func(tx *Tx) error {
		now := time.Now().UnixMilli()
		var id string
		err := tx.QueryRow(`SELECT id FROM evidence WHERE path = ?`, e.Path).Scan(&id)
		switch {
		case err == sql.ErrNoRows:
			e.ID = uuid.NewString()
			e.RecordedAt = now
			if _, err := tx.Exec(`
				INSERT INTO evidence (id, run_id, kind, path, size, md5, sha256, sha512, recorded_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				e.ID, e.RunID, e.Kind, e.Path, e.Size, e.MD5, e.SHA256, e.SHA512, e.RecordedAt); err != nil {
				return fmt.Errorf("insert evidence %s: %w", e.Path, err)
			}
		case err != nil:
			return fmt.Errorf("lookup evidence %s: %w", e.Path, err)
		default:
			e.ID = id
			e.RecordedAt = now
			if _, err := tx.Exec(`
				UPDATE evidence SET run_id = ?, kind = ?, size = ?, md5 = ?, sha256 = ?, sha512 = ?, recorded_at = ?
				WHERE id = ?`,
				e.RunID, e.Kind, e.Size, e.MD5, e.SHA256, e.SHA512, e.RecordedAt, e.ID); err != nil {
				return fmt.Errorf("update evidence %s: %w", e.Path, err)
			}
		}
		return addCustodyEvent(tx, &CustodyEvent{
			EvidenceID: e.ID,
			Action:     ActionRecorded,
			Actor:      actor,
			Detail:     e.Kind + " sha256=" + e.SHA256,
			At:         now,
		})
	})
}

// ListEvidence returns every evidence item in recording order.
func (db *DB) ListEvidence() ([]Evidence, error) {
	rows, err := db.Query(`
		SELECT id, run_id, kind, path, size, md5, sha256, sha512, recorded_at
		FROM evidence
		ORDER BY recorded_at, path`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Evidence
	for rows.Next() {
		var e Evidence
		if err := rows.Scan(&e.ID, &e.RunID, &e.Kind, &e.Path, &e.Size, &e.MD5, &e.SHA256, &e.SHA512, &e.RecordedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func addCustodyEvent(e execer, ev *CustodyEvent) error {
	if ev.At == 0 {
		ev.At = time.Now().UnixMilli()
	}
	if _, err := e.Exec(`
		INSERT INTO custody_events (evidence_id, action, actor, detail, at)
		VALUES (?, ?, ?, ?, ?)`,
		ev.EvidenceID, ev.Action, ev.Actor, ev.Detail, ev.At); err != nil {
		return fmt.Errorf("custody event %s: %w", ev.EvidenceID, err)
	}
	return nil
}

// AddCustodyEvent appends an event to an evidence item's chain of custody.
func (db *DB) AddCustodyEvent(ev *CustodyEvent) error { return addCustodyEvent(db, ev) }

// CustodyEvents returns the chain of custody of one evidence item, oldest
// first.
func (db *DB) CustodyEvents(evidenceID string) ([]CustodyEvent, error) {
	rows, err := db.Query(`
		SELECT id, evidence_id, action, actor, detail, at
		FROM custody_events
		WHERE evidence_id = ?
		ORDER BY id`, evidenceID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []CustodyEvent
	for rows.Next() {
		var ev CustodyEvent
		if err := rows.Scan(&ev.ID, &ev.EvidenceID, &ev.Action, &ev.Actor, &ev.Detail, &ev.At); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
