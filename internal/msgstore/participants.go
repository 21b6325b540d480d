package msgstore

import (
	"database/sql"
)

func participantStrategies(groupJID string) []strategy {
	return []strategy{
		{name: "group_participant_user", args: []any{groupJID}, query: `
SELECT member.raw_string
FROM group_participant_user
JOIN jid AS grp ON grp._id = group_participant_user.group_jid_row_id
JOIN jid AS member ON member._id = group_participant_user.user_jid_row_id
WHERE grp.raw_string = ?
ORDER BY group_participant_user.rowid`},
		{name: "group_participants", args: []any{groupJID}, query: `
SELECT jid FROM group_participants WHERE gjid = ? ORDER BY rowid`},
	}
}

// Participants returns the member jids of a group chat. Non-group jids
// have no participants.
func (p *Parser) Participants(groupJID string) ([]string, error) {
	if !IsGroupJID(groupJID) {
		return nil, nil
	}
	var out []string
	err := p.withDB("participants", p.path, func(db *sql.DB) error {
		var err error
		out, err = p.participants(db, groupJID)
		return err
	})
	return out, err
}

func (p *Parser) participants(db *sql.DB, groupJID string) ([]string, error) {
	rows, _, err := probe(p, db, "participants", participantStrategies(groupJID), func(r rowScanner) (string, error) {
		var jid sql.NullString
		err := r.Scan(&jid)
		return jid.String, err
	})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, jid := range rows {
		if jid != "" {
			out = append(out, jid)
		}
	}
	return out, nil
}
