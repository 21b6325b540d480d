// Package ingest copies an extracted message database snapshot into the
// case archive.
package ingest

import (
	"context"
	"fmt"

	"github.com/matheus3301/waforensic/internal/bus"
	"github.com/matheus3301/waforensic/internal/msgstore"
	"github.com/matheus3301/waforensic/internal/store"
	"go.uber.org/zap"
)

// DefaultBatchSize is the number of messages written per transaction.
const DefaultBatchSize = 500

// Engine handles idempotent ingestion of snapshots into the archive.
type Engine struct {
	db        *store.DB
	bus       *bus.Bus
	logger    *zap.Logger
	batchSize int
}

// NewEngine creates a new ingestion engine.
func NewEngine(db *store.DB, b *bus.Bus, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		db:        db,
		bus:       b,
		logger:    logger,
		batchSize: DefaultBatchSize,
	}
}

// Result counts the rows written by one ingestion.
type Result struct {
	Chats    int
	Messages int
	Contacts int
	CallLogs int
}

// BatchProgress is the payload of ingest.batch events.
type BatchProgress struct {
	Messages int
	Total    int
}

// IngestSnapshot writes chats, contacts and calls in one transaction, then
// messages in batches. Re-ingesting the same snapshot changes nothing.
func (e *Engine) IngestSnapshot(ctx context.Context, snap *msgstore.Snapshot) (*Result, error) {
	res := &Result{}
	err := e.db.WithTx(func(tx *store.Tx) error {
		for i := range snap.Chats {
			if err := tx.UpsertChat(chatRecord(&snap.Chats[i])); err != nil {
				return err
			}
			res.Chats++
		}
		for i := range snap.Contacts {
			if err := tx.UpsertContact(contactRecord(&snap.Contacts[i])); err != nil {
				return err
			}
			res.Contacts++
		}
		for i := range snap.CallLogs {
			if err := tx.UpsertCallLog(callRecord(&snap.CallLogs[i])); err != nil {
				return err
			}
			res.CallLogs++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ingest entities: %w", err)
	}

	var msgs []*store.Message
	for _, c := range snap.Chats {
		for i := range c.Messages {
			msgs = append(msgs, messageRecord(&c.Messages[i]))
		}
	}
	for start := 0; start < len(msgs); start += e.batchSize {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		end := min(start+e.batchSize, len(msgs))
		if err := e.ingestBatch(msgs[start:end]); err != nil {
			return res, err
		}
		res.Messages = end
		e.bus.Emit(bus.KindIngestBatch, BatchProgress{Messages: end, Total: len(msgs)})
	}

	e.bus.Emit(bus.KindIngestDone, *res)
	e.logger.Info("snapshot ingested",
		zap.String("source", snap.Source),
		zap.Int("chats", res.Chats),
		zap.Int("messages", res.Messages),
		zap.Int("contacts", res.Contacts),
		zap.Int("call_logs", res.CallLogs))
	return res, nil
}

func (e *Engine) ingestBatch(msgs []*store.Message) error {
	err := e.db.WithTx(func(tx *store.Tx) error {
		for _, m := range msgs {
			if err := tx.UpsertMessage(m); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("ingest message batch: %w", err)
	}
	return nil
}

func chatRecord(c *msgstore.Chat) *store.Chat {
	r := &store.Chat{
		JID:          c.JID,
		Name:         deref(c.DisplayName),
		IsGroup:      c.IsGroup,
		MessageCount: c.MessageCount,
		Participants: c.Participants,
	}
	if c.LastMessageTimestamp != nil {
		r.LastMessageAt = *c.LastMessageTimestamp
	}
	return r
}

func contactRecord(c *msgstore.Contact) *store.Contact {
	return &store.Contact{JID: c.JID, Name: deref(c.DisplayName), Phone: c.PhoneNumber()}
}

func callRecord(c *msgstore.CallLog) *store.CallLog {
	return &store.CallLog{
		CallID:     c.CallID,
		JID:        c.JID,
		Timestamp:  c.Timestamp,
		FromMe:     c.FromMe,
		Duration:   c.Duration,
		VideoCall:  c.VideoCall,
		CallResult: c.CallResult,
	}
}

func messageRecord(m *msgstore.Message) *store.Message {
	r := &store.Message{
		ChatJID:      m.ChatJID,
		MsgID:        m.MessageID,
		SenderJID:    deref(m.RemoteResource),
		Body:         deref(m.MessageText),
		MediaPath:    deref(m.MediaPath),
		MediaCaption: deref(m.MediaCaption),
		QuotedMsgID:  m.QuotedMessageID,
		FromMe:       m.FromMe,
		Timestamp:    m.Timestamp,
	}
	if m.MediaType != nil {
		r.MediaType = *m.MediaType
	}
	if m.Status != nil {
		r.Status = *m.Status
	}
	return r
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
