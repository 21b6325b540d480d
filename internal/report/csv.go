package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

func optString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optInt(n *int64) string {
	if n == nil {
		return ""
	}
	return strconv.FormatInt(*n, 10)
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

// CSV writes one file per entity type and returns their paths.
func (g *Generator) CSV(d *Data) ([]string, error) {
	tables := []struct {
		prefix string
		header []string
		rows   func(w *csv.Writer) error
	}{
		{"chats", []string{"JID", "Display Name", "Group", "Participants", "Message Count", "Last Message Timestamp", "Last Message Time (UTC)"}, func(w *csv.Writer) error {
			for _, c := range d.Chats {
				var last int64
				if c.LastMessageTimestamp != nil {
					last = *c.LastMessageTimestamp
				}
				if err := w.Write([]string{
					c.JID, optString(c.DisplayName), strconv.FormatBool(c.IsGroup),
					strings.Join(c.Participants, ";"), itoa(c.MessageCount),
					optInt(c.LastMessageTimestamp), formatTime(last),
				}); err != nil {
					return err
				}
			}
			return nil
		}},
		{"messages", []string{"Message ID", "Chat JID", "Timestamp", "Time (UTC)", "From Me", "Sender", "Message Text", "Media Type", "Media Path", "Media Caption", "Quoted Message ID", "Status"}, func(w *csv.Writer) error {
			for _, c := range d.Chats {
				for _, m := range c.Messages {
					if err := w.Write([]string{
						itoa(m.MessageID), m.ChatJID, itoa(m.Timestamp), formatTime(m.Timestamp),
						strconv.FormatBool(m.FromMe), optString(m.RemoteResource),
						optString(m.MessageText), optInt(m.MediaType), optString(m.MediaPath),
						optString(m.MediaCaption), optInt(m.QuotedMessageID), optInt(m.Status),
					}); err != nil {
						return err
					}
				}
			}
			return nil
		}},
		{"contacts", []string{"JID", "Display Name", "Phone Number"}, func(w *csv.Writer) error {
			for _, c := range d.Contacts {
				if err := w.Write([]string{c.JID, optString(c.DisplayName), c.PhoneNumber()}); err != nil {
					return err
				}
			}
			return nil
		}},
		{"call_logs", []string{"Call ID", "JID", "Timestamp", "Time (UTC)", "From Me", "Duration", "Video Call", "Call Result"}, func(w *csv.Writer) error {
			for _, c := range d.CallLogs {
				if err := w.Write([]string{
					itoa(c.CallID), c.JID, itoa(c.Timestamp), formatTime(c.Timestamp),
					strconv.FormatBool(c.FromMe), itoa(c.Duration),
					strconv.FormatBool(c.VideoCall), optInt(c.CallResult),
				}); err != nil {
					return err
				}
			}
			return nil
		}},
	}

	var out []string
	for _, t := range tables {
		p := g.path(t.prefix, "csv")
		if err := writeCSV(p, t.header, t.rows); err != nil {
			return out, fmt.Errorf("write %s csv: %w", t.prefix, err)
		}
		out = append(out, p)
	}
	g.logger.Debug("csv reports written", zap.Strings("files", out))
	return out, nil
}

func writeCSV(path string, header []string, rows func(*csv.Writer) error) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		_ = f.Close()
		return err
	}
	if err := rows(w); err != nil {
		_ = f.Close()
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
