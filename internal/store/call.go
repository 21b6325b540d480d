package store

import "fmt"

func upsertCallLog(e execer, c *CallLog) error {
	_, err := e.Exec(`
		INSERT INTO call_logs (call_id, jid, timestamp, from_me, duration, video_call, call_result)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(call_id) DO UPDATE SET
			duration = excluded.duration,
			call_result = excluded.call_result`,
		c.CallID, c.JID, c.Timestamp, c.FromMe, c.Duration, c.VideoCall, c.CallResult)
	if err != nil {
		return fmt.Errorf("upsert call %d: %w", c.CallID, err)
	}
	return nil
}

// UpsertCallLog inserts or updates a call keyed by its source call id.
func (db *DB) UpsertCallLog(c *CallLog) error { return upsertCallLog(db, c) }

// UpsertCallLog is UpsertCallLog inside the transaction.
func (tx *Tx) UpsertCallLog(c *CallLog) error { return upsertCallLog(tx, c) }

// ListCallLogs returns calls newest first.
func (db *DB) ListCallLogs() ([]CallLog, error) {
	rows, err := db.Query(`
		SELECT call_id, jid, timestamp, from_me, duration, video_call, call_result
		FROM call_logs
		ORDER BY timestamp DESC, call_id DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []CallLog
	for rows.Next() {
		var c CallLog
		if err := rows.Scan(&c.CallID, &c.JID, &c.Timestamp, &c.FromMe, &c.Duration, &c.VideoCall, &c.CallResult); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
