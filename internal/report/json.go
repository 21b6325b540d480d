package report

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/matheus3301/waforensic/internal/msgstore"
	"github.com/qri-io/jsonschema"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// ErrInvalidReport is returned when a JSON report fails validation.
var ErrInvalidReport = errors.New("invalid report")

//go:embed report.schema.json
var schemaJSON []byte

var reportSchema = func() *jsonschema.Schema {
	s := &jsonschema.Schema{}
	if err := json.Unmarshal(schemaJSON, s); err != nil {
		panic(err)
	}
	return s
}()

type evidenceItem struct {
	Kind   string `json:"kind"`
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	MD5    string `json:"md5"`
	SHA256 string `json:"sha256"`
	SHA512 string `json:"sha512"`
}

type document struct {
	Metadata    Metadata           `json:"metadata"`
	GeneratedAt string             `json:"generated_at"`
	Summary     Summary            `json:"summary"`
	Degraded    []string           `json:"degraded"`
	Contacts    []msgstore.Contact `json:"contacts"`
	Chats       []msgstore.Chat    `json:"chats"`
	CallLogs    []msgstore.CallLog `json:"call_logs"`
	Evidence    []evidenceItem     `json:"evidence,omitempty"`
}

func (g *Generator) document(d *Data) document {
	doc := document{
		Metadata:    d.Meta,
		GeneratedAt: g.now().UTC().Format(time.RFC3339),
		Summary:     d.Summary(),
		Degraded:    nonNil(d.Degraded),
		Contacts:    nonNil(d.Contacts),
		Chats:       nonNil(d.Chats),
		CallLogs:    nonNil(d.CallLogs),
	}
	for _, e := range d.Evidence {
		doc.Evidence = append(doc.Evidence, evidenceItem{
			Kind: e.Kind, Path: e.Path, Size: e.Size,
			MD5: e.MD5, SHA256: e.SHA256, SHA512: e.SHA512,
		})
	}
	return doc
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// JSON writes the machine-readable report.
func (g *Generator) JSON(d *Data) (string, error) {
	data, err := json.MarshalIndent(g.document(d), "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode json report: %w", err)
	}
	p := g.path("whatsapp_report", "json")
	if err := os.WriteFile(p, data, 0600); err != nil {
		return "", fmt.Errorf("write json report: %w", err)
	}
	g.logger.Debug("json report written", zap.String("path", p), zap.Int("bytes", len(data)))
	return p, nil
}

// ValidateJSON checks a JSON report against the report schema.
func ValidateJSON(ctx context.Context, data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("%w: malformed json", ErrInvalidReport)
	}
	errs, err := reportSchema.ValidateBytes(ctx, data)
	if err != nil {
		return fmt.Errorf("validate report: %w", err)
	}
	if len(errs) == 0 {
		return nil
	}
	flaws := make([]string, 0, len(errs))
	for _, verr := range errs {
		flaws = append(flaws, fmt.Sprintf("%s", verr))
	}
	return fmt.Errorf("%w: %s", ErrInvalidReport, strings.Join(flaws, "; "))
}

// ReadSummary extracts the entity totals from a JSON report.
func ReadSummary(data []byte) (Summary, error) {
	sum := gjson.GetBytes(data, "summary")
	if !sum.Exists() {
		return Summary{}, fmt.Errorf("%w: no summary", ErrInvalidReport)
	}
	return Summary{
		TotalChats:    sum.Get("total_chats").Int(),
		TotalContacts: sum.Get("total_contacts").Int(),
		TotalCallLogs: sum.Get("total_call_logs").Int(),
		TotalMessages: sum.Get("total_messages").Int(),
	}, nil
}

// CheckJSON validates a report and confirms its summary matches the
// entity arrays it carries and the expected totals.
func CheckJSON(ctx context.Context, data []byte, want Summary) error {
	if err := ValidateJSON(ctx, data); err != nil {
		return err
	}
	got, err := ReadSummary(data)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("%w: summary %+v, want %+v", ErrInvalidReport, got, want)
	}
	counted := Summary{
		TotalChats:    gjson.GetBytes(data, "chats.#").Int(),
		TotalContacts: gjson.GetBytes(data, "contacts.#").Int(),
		TotalCallLogs: gjson.GetBytes(data, "call_logs.#").Int(),
	}
	for _, n := range gjson.GetBytes(data, "chats.#.messages.#").Array() {
		counted.TotalMessages += n.Int()
	}
	if counted != got {
		return fmt.Errorf("%w: summary %+v, content %+v", ErrInvalidReport, got, counted)
	}
	return nil
}

// CheckJSONFile runs CheckJSON on a report file.
func CheckJSONFile(ctx context.Context, path string, want Summary) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return CheckJSON(ctx, data, want)
}
