package store

import (
	"database/sql"
	"fmt"
	"time"
)

const upsertChatSQL = `
	INSERT INTO chats (jid, name, is_group, last_message_at, message_count, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(jid) DO UPDATE SET
		name = CASE WHEN excluded.name != '' THEN excluded.name ELSE chats.name END,
		is_group = excluded.is_group,
		last_message_at = MAX(chats.last_message_at, excluded.last_message_at),
		message_count = MAX(chats.message_count, excluded.message_count),
		updated_at = excluded.updated_at`

func upsertChat(e execer, c *Chat) error {
	if _, err := e.Exec(upsertChatSQL,
		c.JID, c.Name, c.IsGroup, c.LastMessageAt, c.MessageCount, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("upsert chat %s: %w", c.JID, err)
	}
	if len(c.Participants) == 0 {
		return nil
	}
	if _, err := e.Exec(`DELETE FROM chat_participants WHERE chat_jid = ?`, c.JID); err != nil {
		return fmt.Errorf("clear participants %s: %w", c.JID, err)
	}
	for i, member := range c.Participants {
		if _, err := e.Exec(`INSERT OR IGNORE INTO chat_participants (chat_jid, member_jid, position) VALUES (?, ?, ?)`,
			c.JID, member, i); err != nil {
			return fmt.Errorf("insert participant %s: %w", member, err)
		}
	}
	return nil
}

// UpsertChat inserts or updates a chat and replaces its participant list
// when one is given.
func (db *DB) UpsertChat(c *Chat) error { return upsertChat(db, c) }

// UpsertChat is UpsertChat inside the transaction.
func (tx *Tx) UpsertChat(c *Chat) error { return upsertChat(tx, c) }

// ListChats returns chats sorted by last message timestamp descending.
// Names fall back to the contact name, then to the jid.
func (db *DB) ListChats(limit, offset int) ([]Chat, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.Query(`
		SELECT c.jid,
			COALESCE(NULLIF(c.name,''), NULLIF(ct.name,''), c.jid) AS display_name,
			c.is_group, c.last_message_at, c.message_count
		FROM chats c
		LEFT JOIN contacts ct ON c.jid = ct.jid
		ORDER BY c.last_message_at DESC, c.jid
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var chats []Chat
	for rows.Next() {
		var c Chat
		if err := rows.Scan(&c.JID, &c.Name, &c.IsGroup, &c.LastMessageAt, &c.MessageCount); err != nil {
			return nil, err
		}
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

// GetChat returns a single chat with its participants.
func (db *DB) GetChat(jid string) (*Chat, error) {
	var c Chat
	err := db.QueryRow(`
		SELECT jid, name, is_group, last_message_at, message_count
		FROM chats WHERE jid = ?`, jid).
		Scan(&c.JID, &c.Name, &c.IsGroup, &c.LastMessageAt, &c.MessageCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.Participants, err = db.Participants(jid)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Participants returns the members of a group chat in source order.
func (db *DB) Participants(chatJID string) ([]string, error) {
	rows, err := db.Query(`SELECT member_jid FROM chat_participants WHERE chat_jid = ? ORDER BY position`, chatJID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var jid string
		if err := rows.Scan(&jid); err != nil {
			return nil, err
		}
		out = append(out, jid)
	}
	return out, rows.Err()
}
