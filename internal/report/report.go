// Package report renders an extracted snapshot as HTML, JSON and CSV.
package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/matheus3301/waforensic/internal/config"
	"github.com/matheus3301/waforensic/internal/msgstore"
	"github.com/matheus3301/waforensic/internal/store"
	"go.uber.org/zap"
)

// Metadata identifies the examination in every report.
type Metadata struct {
	CaseID   string `json:"case_id"`
	Company  string `json:"company"`
	Examiner string `json:"examiner"`
	Unit     string `json:"unit"`
	Record   string `json:"record"`
	Notes    string `json:"notes"`
}

// Data is everything a report shows.
type Data struct {
	Meta     Metadata
	Chats    []msgstore.Chat
	Contacts []msgstore.Contact
	CallLogs []msgstore.CallLog
	// Degraded lists problems that left parts of the report empty.
	Degraded []string
	Evidence []store.Evidence
}

// FromSnapshot builds report data from an extraction.
func FromSnapshot(meta Metadata, snap *msgstore.Snapshot) *Data {
	d := &Data{Meta: meta}
	if snap == nil {
		return d
	}
	d.Chats = snap.Chats
	d.Contacts = snap.Contacts
	d.CallLogs = snap.CallLogs
	for _, e := range snap.Empty {
		d.Degraded = append(d.Degraded, "no "+e+" found")
	}
	return d
}

// Summary holds the entity totals.
type Summary struct {
	TotalChats    int64 `json:"total_chats"`
	TotalContacts int64 `json:"total_contacts"`
	TotalCallLogs int64 `json:"total_call_logs"`
	TotalMessages int64 `json:"total_messages"`
}

// Summary computes the entity totals.
func (d *Data) Summary() Summary {
	s := Summary{
		TotalChats:    int64(len(d.Chats)),
		TotalContacts: int64(len(d.Contacts)),
		TotalCallLogs: int64(len(d.CallLogs)),
	}
	for _, c := range d.Chats {
		s.TotalMessages += int64(len(c.Messages))
	}
	return s
}

// Generator writes reports into one directory.
type Generator struct {
	dir    string
	logger *zap.Logger
	now    func() time.Time
}

// NewGenerator creates a generator writing into dir.
func NewGenerator(dir string, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{dir: dir, logger: logger, now: time.Now}
}

func (g *Generator) path(prefix, ext string) string {
	return filepath.Join(g.dir, fmt.Sprintf("%s_%s.%s", prefix, g.now().UTC().Format("20060102_150405"), ext))
}

// Generate writes every requested format and returns the created files.
// JSON reports are validated after writing.
func (g *Generator) Generate(ctx context.Context, formats []string, d *Data) ([]string, error) {
	if err := os.MkdirAll(g.dir, 0700); err != nil {
		return nil, fmt.Errorf("report dir: %w", err)
	}
	var out []string
	for _, f := range formats {
		switch f {
		case config.FormatHTML:
			p, err := g.HTML(d)
			if err != nil {
				return out, err
			}
			out = append(out, p)
		case config.FormatJSON:
			p, err := g.JSON(d)
			if err != nil {
				return out, err
			}
			if err := CheckJSONFile(ctx, p, d.Summary()); err != nil {
				return out, err
			}
			out = append(out, p)
		case config.FormatCSV:
			ps, err := g.CSV(d)
			if err != nil {
				return out, err
			}
			out = append(out, ps...)
		default:
			return out, fmt.Errorf("unknown report format %q", f)
		}
	}
	g.logger.Info("reports generated", zap.Strings("files", out))
	return out, nil
}

func formatTime(ms int64) string {
	if ms == 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04:05")
}
