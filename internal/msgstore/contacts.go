package msgstore

import (
	"database/sql"
	"sort"
)

// Every jid the message database refers to, either as a chat or as the
// sender inside a group.
var referencedJIDStrategies = []strategy{
	{name: "modern_senders", query: `
SELECT chat_jid.raw_string FROM message
JOIN chat ON chat._id = message.chat_row_id
JOIN jid AS chat_jid ON chat_jid._id = chat.jid_row_id
UNION
SELECT sender.raw_string FROM message
JOIN jid AS sender ON sender._id = message.sender_jid_row_id
ORDER BY 1`},
	{name: "modern", query: `
SELECT DISTINCT chat_jid.raw_string FROM message
JOIN chat ON chat._id = message.chat_row_id
JOIN jid AS chat_jid ON chat_jid._id = chat.jid_row_id
ORDER BY 1`},
	{name: "jid_table_senders", query: `
SELECT key_remote_jid FROM message UNION SELECT remote_resource FROM message ORDER BY 1`},
	{name: "jid_table", query: `SELECT DISTINCT key_remote_jid FROM message ORDER BY 1`},
	{name: "legacy_senders", query: `
SELECT key_remote_jid FROM messages UNION SELECT remote_resource FROM messages ORDER BY 1`},
	{name: "legacy", query: `SELECT DISTINCT key_remote_jid FROM messages ORDER BY 1`},
}

// Contacts returns the contacts database entries followed by every jid
// referenced by a message that the contacts database does not know, the
// latter without a display name.
func (p *Parser) Contacts() ([]Contact, error) {
	out := make([]Contact, 0, len(p.nameJIDs))
	known := make(map[string]bool, len(p.nameJIDs))
	for _, jid := range p.nameJIDs {
		known[jid] = true
		c := Contact{JID: jid}
		if name := p.names[jid]; name != "" {
			c.DisplayName = &name
		}
		out = append(out, c)
	}

	var referenced []string
	err := p.withDB("contacts", p.path, func(db *sql.DB) error {
		var err error
		referenced, _, err = probe(p, db, "referenced_jids", referencedJIDStrategies, func(r rowScanner) (string, error) {
			var jid sql.NullString
			err := r.Scan(&jid)
			return jid.String, err
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	var inferred []Contact
	for _, jid := range referenced {
		if jid == "" || known[jid] {
			continue
		}
		known[jid] = true
		inferred = append(inferred, Contact{JID: jid})
	}
	sort.Slice(inferred, func(i, j int) bool { return inferred[i].JID < inferred[j].JID })
	return append(out, inferred...), nil
}
