package store

import (
	"fmt"
	"time"
)

const upsertContactSQL = `
	INSERT INTO contacts (jid, name, phone, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(jid) DO UPDATE SET
		name = CASE WHEN excluded.name != '' THEN excluded.name ELSE contacts.name END,
		phone = CASE WHEN excluded.phone != '' THEN excluded.phone ELSE contacts.phone END,
		updated_at = excluded.updated_at`

func upsertContact(e execer, c *Contact) error {
	if _, err := e.Exec(upsertContactSQL, c.JID, c.Name, c.Phone, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("upsert contact %s: %w", c.JID, err)
	}
	return nil
}

// UpsertContact inserts or updates a contact. Empty fields never overwrite
// known values.
func (db *DB) UpsertContact(c *Contact) error { return upsertContact(db, c) }

// UpsertContact is UpsertContact inside the transaction.
func (tx *Tx) UpsertContact(c *Contact) error { return upsertContact(tx, c) }

// ListContacts returns all contacts ordered by jid.
func (db *DB) ListContacts() ([]Contact, error) {
	rows, err := db.Query(`SELECT jid, name, phone FROM contacts ORDER BY jid`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Contact
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.JID, &c.Name, &c.Phone); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
