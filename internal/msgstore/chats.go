package msgstore

import (
	"database/sql"
)

// Chats are ordered newest activity first.
var chatStrategies = []strategy{
	{name: "modern", query: `
SELECT jid.raw_string, chat.subject,
	(SELECT MAX(message.timestamp) FROM message WHERE message.chat_row_id = chat._id),
	(SELECT COUNT(*) FROM message WHERE message.chat_row_id = chat._id)
FROM chat
JOIN jid ON jid._id = chat.jid_row_id
ORDER BY 3 DESC, 1`},
	{name: "jid_table", query: `
SELECT jid.raw_string, chat.subject,
	(SELECT MAX(message.timestamp) FROM message WHERE message.key_remote_jid = jid.raw_string),
	(SELECT COUNT(*) FROM message WHERE message.key_remote_jid = jid.raw_string)
FROM chat
JOIN jid ON jid._id = chat.jid_row_id
ORDER BY 3 DESC, 1`},
	{name: "legacy", query: `
SELECT chat_list.key_remote_jid, chat_list.subject,
	(SELECT MAX(messages.timestamp) FROM messages WHERE messages.key_remote_jid = chat_list.key_remote_jid),
	(SELECT COUNT(*) FROM messages WHERE messages.key_remote_jid = chat_list.key_remote_jid)
FROM chat_list
ORDER BY 3 DESC, 1`},
	{name: "legacy_jid", query: `
SELECT chat_list.jid, chat_list.subject,
	(SELECT MAX(messages.timestamp) FROM messages WHERE messages.key_remote_jid = chat_list.jid),
	(SELECT COUNT(*) FROM messages WHERE messages.key_remote_jid = chat_list.jid)
FROM chat_list
ORDER BY 3 DESC, 1`},
}

func scanChat(r rowScanner) (Chat, error) {
	var (
		jid, subject sql.NullString
		last         sql.NullInt64
		count        int64
	)
	if err := r.Scan(&jid, &subject, &last, &count); err != nil {
		return Chat{}, err
	}
	c := Chat{
		JID:                  jid.String,
		DisplayName:          nullString(subject),
		LastMessageTimestamp: nullInt(last),
		MessageCount:         count,
		IsGroup:              IsGroupJID(jid.String),
	}
	return c, nil
}

// Chats lists every chat with its group participants. Messages are not
// loaded; see ChatWithMessages and Extract.
func (p *Parser) Chats() ([]Chat, error) {
	var chats []Chat
	err := p.withDB("chats", p.path, func(db *sql.DB) error {
		var err error
		chats, err = p.chats(db)
		return err
	})
	return chats, err
}

func (p *Parser) chats(db *sql.DB) ([]Chat, error) {
	rows, _, err := probe(p, db, "chats", chatStrategies, scanChat)
	if err != nil {
		return nil, err
	}
	chats := make([]Chat, 0, len(rows))
	for _, c := range rows {
		if c.JID == "" {
			continue
		}
		if c.DisplayName == nil || *c.DisplayName == "" {
			c.DisplayName = nil
			if name, ok := p.DisplayName(c.JID); ok {
				c.DisplayName = &name
			}
		}
		if c.IsGroup {
			c.Participants, err = p.participants(db, c.JID)
			if err != nil {
				return nil, err
			}
		}
		chats = append(chats, c)
	}
	return chats, nil
}
