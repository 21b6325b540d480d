package report

import (
	"embed"
	"fmt"
	"html/template"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/matheus3301/waforensic/internal/msgstore"
	"go.uber.org/zap"
)

// HTML reports show at most this many rows per section.
const (
	htmlMaxContacts     = 100
	htmlMaxChats        = 20
	htmlMaxChatMessages = 10
	htmlMaxCalls        = 100
	htmlMaxParticipants = 10
)

//go:embed templates/report.html.tmpl
var templateFS embed.FS

var htmlTemplate = template.Must(template.New("report.html.tmpl").Funcs(template.FuncMap{
	"ts":    formatTime,
	"bytes": func(n int64) string { return humanize.Bytes(uint64(n)) },
	"comma": humanize.Comma,
	"deref": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
	"join":        strings.Join,
	"messageText": messageText,
	"chatName": func(c msgstore.Chat) string {
		if c.DisplayName != nil && *c.DisplayName != "" {
			return *c.DisplayName
		}
		return c.JID
	},
	"short": func(s string) string {
		if len(s) > 16 {
			return s[:16] + "..."
		}
		return s
	},
}).ParseFS(templateFS, "templates/report.html.tmpl"))

type htmlView struct {
	*Data
	Date      string
	Totals    Summary
	Contacts  []msgstore.Contact
	Chats     []htmlChat
	CallLogs  []msgstore.CallLog
	Truncated []string
}

type htmlChat struct {
	msgstore.Chat
	Participants []string
	Recent       []msgstore.Message
}

func messageText(m msgstore.Message) string {
	if m.MessageText != nil && *m.MessageText != "" {
		return *m.MessageText
	}
	if m.MediaType != nil && *m.MediaType != 0 {
		if m.MediaCaption != nil && *m.MediaCaption != "" {
			return "[Media] " + *m.MediaCaption
		}
		return "[Media]"
	}
	return "[No content]"
}

func headN[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func tailN[T any](s []T, n int) []T {
	if len(s) > n {
		return s[len(s)-n:]
	}
	return s
}

func (g *Generator) htmlView(d *Data) *htmlView {
	v := &htmlView{
		Data:     d,
		Date:     g.now().UTC().Format(time.DateOnly),
		Totals:   d.Summary(),
		Contacts: headN(d.Contacts, htmlMaxContacts),
		CallLogs: headN(d.CallLogs, htmlMaxCalls),
	}
	for _, c := range headN(d.Chats, htmlMaxChats) {
		v.Chats = append(v.Chats, htmlChat{
			Chat:         c,
			Participants: headN(c.Participants, htmlMaxParticipants),
			Recent:       tailN(c.Messages, htmlMaxChatMessages),
		})
	}
	if n := len(d.Contacts); n > htmlMaxContacts {
		v.Truncated = append(v.Truncated, fmt.Sprintf("contacts: showing %d of %d", htmlMaxContacts, n))
	}
	if n := len(d.Chats); n > htmlMaxChats {
		v.Truncated = append(v.Truncated, fmt.Sprintf("chats: showing %d of %d", htmlMaxChats, n))
	}
	if n := len(d.CallLogs); n > htmlMaxCalls {
		v.Truncated = append(v.Truncated, fmt.Sprintf("call logs: showing %d of %d", htmlMaxCalls, n))
	}
	return v
}

// HTML writes the human-readable report.
func (g *Generator) HTML(d *Data) (string, error) {
	p := g.path("whatsapp_report", "html")
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return "", fmt.Errorf("create html report: %w", err)
	}
	if err := htmlTemplate.Execute(f, g.htmlView(d)); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("render html report: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	g.logger.Debug("html report written", zap.String("path", p))
	return p, nil
}
