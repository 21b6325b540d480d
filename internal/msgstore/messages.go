package msgstore

import (
	"database/sql"
	"strings"
)

// messageShape describes one schema generation of the message table. The
// select list yields, in order: id, chat jid, timestamp, from_me, text,
// media type, media path, media caption, quoted id, remote resource, status.
type messageShape struct {
	name    string
	columns string
	from    string
	jidCol  string
	orderBy string
}

const (
	modernFrom = `message
JOIN chat ON chat._id = message.chat_row_id
JOIN jid AS chat_jid ON chat_jid._id = chat.jid_row_id`
	modernOrder = `message.timestamp ASC, message._id ASC`
)

var messageShapes = []messageShape{
	{
		name: "modern_full",
		columns: `message._id, chat_jid.raw_string, message.timestamp, message.from_me, message.text_data,
	message.message_type, message_media.file_path, message_media.media_caption, quoted._id,
	sender.raw_string, message.status`,
		from: modernFrom + `
LEFT JOIN jid AS sender ON sender._id = message.sender_jid_row_id
LEFT JOIN message_media ON message_media.message_row_id = message._id
LEFT JOIN message_quoted ON message_quoted.message_row_id = message._id
LEFT JOIN message AS quoted ON quoted.key_id = message_quoted.key_id AND quoted.chat_row_id = message.chat_row_id`,
		jidCol:  "chat_jid.raw_string",
		orderBy: modernOrder,
	},
	{
		name: "modern_basic",
		columns: `message._id, chat_jid.raw_string, message.timestamp, message.from_me, message.text_data,
	message.message_type, NULL, NULL, NULL, NULL, message.status`,
		from:    modernFrom,
		jidCol:  "chat_jid.raw_string",
		orderBy: modernOrder,
	},
	{
		name: "modern_minimal",
		columns: `message._id, chat_jid.raw_string, message.timestamp, message.from_me, message.text_data,
	NULL, NULL, NULL, NULL, NULL, NULL`,
		from:    modernFrom,
		jidCol:  "chat_jid.raw_string",
		orderBy: modernOrder,
	},
	{
		name: "jid_table_full",
		columns: `_id, key_remote_jid, timestamp, key_from_me, data,
	media_wa_type, media_path, media_caption, quoted_row_id, remote_resource, status`,
		from:    "message",
		jidCol:  "key_remote_jid",
		orderBy: "timestamp ASC, _id ASC",
	},
	{
		name: "jid_table_media",
		columns: `_id, key_remote_jid, timestamp, key_from_me, data,
	media_wa_type, NULL, NULL, NULL, NULL, NULL`,
		from:    "message",
		jidCol:  "key_remote_jid",
		orderBy: "timestamp ASC, _id ASC",
	},
	{
		name: "jid_table_minimal",
		columns: `_id, key_remote_jid, timestamp, key_from_me, data,
	NULL, NULL, NULL, NULL, NULL, NULL`,
		from:    "message",
		jidCol:  "key_remote_jid",
		orderBy: "timestamp ASC, _id ASC",
	},
	{
		name: "legacy_full",
		columns: `_id, key_remote_jid, timestamp, key_from_me, data,
	media_wa_type, media_name, media_caption, quoted_row_id, remote_resource, status`,
		from:    "messages",
		jidCol:  "key_remote_jid",
		orderBy: "timestamp ASC, _id ASC",
	},
	{
		name: "legacy_basic",
		columns: `_id, key_remote_jid, timestamp, key_from_me, data,
	media_wa_type, media_name, NULL, NULL, NULL, NULL`,
		from:    "messages",
		jidCol:  "key_remote_jid",
		orderBy: "timestamp ASC, _id ASC",
	},
	{
		name: "legacy_minimal",
		columns: `_id, key_remote_jid, timestamp, key_from_me, data,
	NULL, NULL, NULL, NULL, NULL, NULL`,
		from:    "messages",
		jidCol:  "key_remote_jid",
		orderBy: "timestamp ASC, _id ASC",
	},
}

func (s messageShape) strategy(chatJID string, limit int) strategy {
	var b strings.Builder
	var args []any
	b.WriteString("SELECT ")
	b.WriteString(s.columns)
	b.WriteString("\nFROM ")
	b.WriteString(s.from)
	if chatJID != "" {
		b.WriteString("\nWHERE ")
		b.WriteString(s.jidCol)
		b.WriteString(" = ?")
		args = append(args, chatJID)
	}
	b.WriteString("\nORDER BY ")
	b.WriteString(s.orderBy)
	if limit > 0 {
		b.WriteString("\nLIMIT ?")
		args = append(args, limit)
	}
	return strategy{name: s.name, query: b.String(), args: args}
}

func messageStrategies(chatJID string, limit int) []strategy {
	out := make([]strategy, 0, len(messageShapes))
	for _, s := range messageShapes {
		out = append(out, s.strategy(chatJID, limit))
	}
	return out
}

func scanMessage(r rowScanner) (Message, error) {
	var (
		id                          int64
		ts, fromMe                  sql.NullInt64
		jid                         sql.NullString
		text, path, caption, remote sql.NullString
		mediaType, quoted, status   sql.NullInt64
	)
	if err := r.Scan(&id, &jid, &ts, &fromMe, &text, &mediaType, &path, &caption, &quoted, &remote, &status); err != nil {
		return Message{}, err
	}
	return Message{
		MessageID:       id,
		ChatJID:         jid.String,
		Timestamp:       ts.Int64,
		FromMe:          fromMe.Int64 != 0,
		MessageText:     nullString(text),
		MediaType:       nullInt(mediaType),
		MediaPath:       nullString(path),
		MediaCaption:    nullString(caption),
		QuotedMessageID: nullInt(quoted),
		RemoteResource:  nullString(remote),
		Status:          nullInt(status),
	}, nil
}

// Messages lists messages in ascending timestamp order. An empty chatJID
// selects every chat; a non-positive limit means no limit.
func (p *Parser) Messages(chatJID string, limit int) ([]Message, error) {
	var out []Message
	err := p.withDB("messages", p.path, func(db *sql.DB) error {
		var err error
		out, err = p.messages(db, chatJID, limit)
		return err
	})
	return out, err
}

func (p *Parser) messages(db *sql.DB, chatJID string, limit int) ([]Message, error) {
	msgs, _, err := probe(p, db, "messages", messageStrategies(chatJID, limit), scanMessage)
	return msgs, err
}
