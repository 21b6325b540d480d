package msgstore

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// Entity names used when reporting empty results.
const (
	EntityChats    = "chats"
	EntityMessages = "messages"
	EntityContacts = "contacts"
	EntityCalls    = "call_logs"
)

// ChatWithMessages returns one chat with its messages loaded, oldest first.
func (p *Parser) ChatWithMessages(jid string, limit int) (*Chat, error) {
	var chat *Chat
	err := p.withDB("chat", p.path, func(db *sql.DB) error {
		chats, err := p.chats(db)
		if err != nil {
			return err
		}
		for i := range chats {
			if chats[i].JID != jid {
				continue
			}
			chats[i].Messages, err = p.messages(db, jid, limit)
			if err != nil {
				return err
			}
			chat = &chats[i]
			return nil
		}
		return fmt.Errorf("%w: %s", ErrChatNotFound, jid)
	})
	return chat, err
}

// ExtractOptions bounds an extraction. Non-positive limits mean no limit.
type ExtractOptions struct {
	ChatLimit    int
	MessageLimit int
}

// Snapshot is the full entity model read from one database.
type Snapshot struct {
	Source   string
	Chats    []Chat
	Contacts []Contact
	CallLogs []CallLog
	// Empty names every entity type that produced no rows.
	Empty []string
}

// MessageCount returns the number of messages loaded across all chats.
func (s *Snapshot) MessageCount() int {
	n := 0
	for _, c := range s.Chats {
		n += len(c.Messages)
	}
	return n
}

// Extract reads every entity type. Messages are loaded per chat after the
// chat list, newest chats first.
func (p *Parser) Extract(opts ExtractOptions) (*Snapshot, error) {
	snap := &Snapshot{Source: p.path}

	chats, err := p.Chats()
	if err != nil {
		return nil, err
	}
	if opts.ChatLimit > 0 && len(chats) > opts.ChatLimit {
		chats = chats[:opts.ChatLimit]
	}
	err = p.withDB("messages", p.path, func(db *sql.DB) error {
		for i := range chats {
			msgs, err := p.messages(db, chats[i].JID, opts.MessageLimit)
			if err != nil {
				return err
			}
			chats[i].Messages = msgs
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	snap.Chats = chats

	if snap.Contacts, err = p.Contacts(); err != nil {
		return nil, err
	}
	if snap.CallLogs, err = p.CallLogs(); err != nil {
		return nil, err
	}

	if len(snap.Chats) == 0 {
		snap.Empty = append(snap.Empty, EntityChats)
	}
	if snap.MessageCount() == 0 {
		snap.Empty = append(snap.Empty, EntityMessages)
	}
	if len(snap.Contacts) == 0 {
		snap.Empty = append(snap.Empty, EntityContacts)
	}
	if len(snap.CallLogs) == 0 {
		snap.Empty = append(snap.Empty, EntityCalls)
	}

	p.logger.Info("extraction complete",
		zap.Int("chats", len(snap.Chats)),
		zap.Int("messages", snap.MessageCount()),
		zap.Int("contacts", len(snap.Contacts)),
		zap.Int("call_logs", len(snap.CallLogs)),
		zap.Strings("empty", snap.Empty))
	return snap, nil
}
