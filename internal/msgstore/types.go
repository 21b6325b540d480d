// Package msgstore extracts chats, messages, contacts and call logs from
// plaintext WhatsApp message databases of any known schema generation.
package msgstore

import (
	"encoding/json"
	"time"
)

// Contact is a person or group known to the device.
type Contact struct {
	JID         string
	DisplayName *string
	// Phone overrides the number derived from the JID when set.
	Phone string
}

// PhoneNumber returns the explicit phone number or the local part of the JID.
func (c Contact) PhoneNumber() string {
	if c.Phone != "" {
		return c.Phone
	}
	return LocalPart(c.JID)
}

func (c Contact) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		JID         string  `json:"jid"`
		DisplayName *string `json:"display_name"`
		PhoneNumber string  `json:"phone_number"`
	}{c.JID, c.DisplayName, c.PhoneNumber()})
}

// Message is a single row of the message table. MessageID is unique within
// its chat only.
type Message struct {
	MessageID       int64   `json:"message_id"`
	ChatJID         string  `json:"chat_jid"`
	Timestamp       int64   `json:"timestamp"`
	FromMe          bool    `json:"from_me"`
	MessageText     *string `json:"message_text"`
	MediaType       *int64  `json:"media_type"`
	MediaPath       *string `json:"media_path"`
	MediaCaption    *string `json:"media_caption"`
	QuotedMessageID *int64  `json:"quoted_message_id"`
	RemoteResource  *string `json:"remote_resource"`
	Status          *int64  `json:"status"`
}

// Time returns the message timestamp.
func (m Message) Time() time.Time {
	return time.UnixMilli(m.Timestamp)
}

// Chat is a conversation. Messages is filled in a separate pass.
type Chat struct {
	JID                  string    `json:"jid"`
	DisplayName          *string   `json:"display_name"`
	LastMessageTimestamp *int64    `json:"last_message_timestamp"`
	MessageCount         int64     `json:"message_count"`
	Participants         []string  `json:"participants"`
	IsGroup              bool      `json:"is_group"`
	Messages             []Message `json:"messages"`
}

// LastMessageTime returns the time of the newest message, if any.
func (c Chat) LastMessageTime() (time.Time, bool) {
	if c.LastMessageTimestamp == nil || *c.LastMessageTimestamp == 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(*c.LastMessageTimestamp), true
}

// CallLog is one voice or video call.
type CallLog struct {
	CallID     int64  `json:"call_id"`
	JID        string `json:"jid"`
	Timestamp  int64  `json:"timestamp"`
	FromMe     bool   `json:"from_me"`
	Duration   int64  `json:"duration"`
	VideoCall  bool   `json:"video_call"`
	CallResult *int64 `json:"call_result"`
}

// Time returns the call timestamp.
func (c CallLog) Time() time.Time {
	return time.UnixMilli(c.Timestamp)
}
