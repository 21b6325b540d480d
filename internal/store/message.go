package store

import (
	"fmt"
	"time"
)

const upsertMessageSQL = `
	INSERT INTO messages (chat_jid, msg_id, sender_jid, body, media_type, media_path, media_caption,
		quoted_msg_id, from_me, status, timestamp, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(chat_jid, msg_id) DO UPDATE SET
		sender_jid = excluded.sender_jid,
		body = excluded.body,
		media_type = excluded.media_type,
		media_path = excluded.media_path,
		media_caption = excluded.media_caption,
		quoted_msg_id = excluded.quoted_msg_id,
		status = excluded.status`

func upsertMessage(e execer, m *Message) error {
	_, err := e.Exec(upsertMessageSQL,
		m.ChatJID, m.MsgID, m.SenderJID, m.Body, m.MediaType, m.MediaPath, m.MediaCaption,
		m.QuotedMsgID, m.FromMe, m.Status, m.Timestamp, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("upsert message %s/%d: %w", m.ChatJID, m.MsgID, err)
	}
	return nil
}

// UpsertMessage inserts or updates a message (idempotent on chat_jid + msg_id).
func (db *DB) UpsertMessage(m *Message) error { return upsertMessage(db, m) }

// UpsertMessage is UpsertMessage inside the transaction.
func (tx *Tx) UpsertMessage(m *Message) error { return upsertMessage(tx, m) }

const messageColumns = `id, chat_jid, msg_id, sender_jid, body, media_type, media_path, media_caption,
	quoted_msg_id, from_me, status, timestamp`

func scanMessage(r interface{ Scan(...any) error }, m *Message, extra ...any) error {
	dest := []any{&m.ID, &m.ChatJID, &m.MsgID, &m.SenderJID, &m.Body, &m.MediaType, &m.MediaPath,
		&m.MediaCaption, &m.QuotedMsgID, &m.FromMe, &m.Status, &m.Timestamp}
	return r.Scan(append(dest, extra...)...)
}

// ListMessages returns a chat's messages oldest first, starting at sinceTs.
// A non-positive limit returns everything.
func (db *DB) ListMessages(chatJID string, sinceTs int64, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.Query(`
		SELECT `+messageColumns+`
		FROM messages
		WHERE chat_jid = ? AND timestamp >= ?
		ORDER BY timestamp ASC, msg_id ASC
		LIMIT ?`, chatJID, sinceTs, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := scanMessage(rows, &m); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// CountMessages returns the number of archived messages.
func (db *DB) CountMessages() (int64, error) {
	var n int64
	err := db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&n)
	return n, err
}
