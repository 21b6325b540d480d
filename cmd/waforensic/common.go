package main

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/matheus3301/waforensic/internal/app"
	"github.com/matheus3301/waforensic/internal/config"
	"github.com/matheus3301/waforensic/internal/logging"
	"github.com/matheus3301/waforensic/internal/pipeline"
	"github.com/matheus3301/waforensic/internal/report"
	"github.com/matheus3301/waforensic/internal/store"
	"github.com/matheus3301/waforensic/internal/workspace"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// globalFlags are the persistent flags of every command.
type globalFlags struct {
	configPath string
	caseID     string
	logLevel   string
}

func (g *globalFlags) register(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVar(&g.configPath, "config", "", "config file (default ~/.waforensic/config.toml)")
	f.StringVar(&g.caseID, "case", "", "case id (default from config or a new id)")
	f.StringVar(&g.logLevel, "log-level", "", "log level: debug, info, warn, error")
}

func (g *globalFlags) path() string {
	if g.configPath != "" {
		return g.configPath
	}
	return workspace.ConfigPath()
}

// loadConfig reads the config file and applies the global overrides.
func (g *globalFlags) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(g.path())
	if err != nil {
		return nil, err
	}
	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
	}
	return cfg, cfg.Validate()
}

// consoleLogger is used by commands that do not open a case.
func (g *globalFlags) consoleLogger() (*zap.Logger, error) {
	level := g.logLevel
	if level == "" {
		level = "info"
	}
	return logging.NewConsole(level)
}

// caseEnv is what a case-bound command works with.
type caseEnv struct {
	cfg    *config.Config
	cas    *workspace.Case
	db     *store.DB
	runner *pipeline.Runner
	logger *zap.Logger
}

// withCase opens the case, runs fn and closes the case again.
func withCase(ctx context.Context, g *globalFlags, cfg *config.Config, fn func(*caseEnv) error) error {
	env := &caseEnv{}
	fxApp := fx.New(
		app.Module(app.Params{Config: cfg, CaseID: g.caseID}),
		fx.Populate(&env.cfg, &env.cas, &env.db, &env.runner, &env.logger),
		fx.NopLogger,
	)
	if err := fxApp.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = fxApp.Stop(stopCtx)
	}()
	return fn(env)
}

// formatFlag expands "all" and falls back to the configured formats.
func formatFlag(flag []string, configured []string) []string {
	if len(flag) == 0 {
		return configured
	}
	if slices.Contains(flag, "all") {
		return []string{config.FormatHTML, config.FormatJSON, config.FormatCSV}
	}
	return flag
}

// metadataFlags are the report header flags.
type metadataFlags struct {
	company  string
	examiner string
	unit     string
	record   string
	notes    string
}

func (m *metadataFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&m.company, "company", "", "company shown in reports")
	f.StringVar(&m.examiner, "examiner", "", "examiner name")
	f.StringVar(&m.unit, "unit", "", "forensics unit")
	f.StringVar(&m.record, "record", "", "record or case number")
	f.StringVar(&m.notes, "notes", "", "free-form notes")
}

func (m *metadataFlags) metadata(cfg *config.Config, caseID string) report.Metadata {
	pick := func(flag, configured string) string {
		if flag != "" {
			return flag
		}
		return configured
	}
	return report.Metadata{
		CaseID:   caseID,
		Company:  pick(m.company, cfg.Case.Company),
		Examiner: pick(m.examiner, cfg.Case.Examiner),
		Unit:     pick(m.unit, cfg.Case.Unit),
		Record:   m.record,
		Notes:    m.notes,
	}
}

func printResult(w io.Writer, c *workspace.Case, res *pipeline.Result) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Case:\t%s (%s)\n", c.ID, c.Root)
	fmt.Fprintf(tw, "Run:\t%s\n", res.RunID)
	fmt.Fprintf(tw, "Outcome:\t%s\n", res.Outcome)
	if res.Acquired != nil {
		fmt.Fprintf(tw, "Acquired:\t%d artifacts, %s\n", len(res.Acquired.Artifacts), humanize.Bytes(uint64(res.Acquired.TotalSize)))
	}
	if res.Decryption != nil {
		fmt.Fprintf(tw, "Decrypted:\t%s (%s)\n", res.Decryption.OutputPath, res.Decryption.Type)
	}
	if snap := res.Snapshot; snap != nil {
		fmt.Fprintf(tw, "Chats:\t%s\n", humanize.Comma(int64(len(snap.Chats))))
		fmt.Fprintf(tw, "Messages:\t%s\n", humanize.Comma(int64(snap.MessageCount())))
		fmt.Fprintf(tw, "Contacts:\t%s\n", humanize.Comma(int64(len(snap.Contacts))))
		fmt.Fprintf(tw, "Call logs:\t%s\n", humanize.Comma(int64(len(snap.CallLogs))))
	}
	if res.Skipped {
		fmt.Fprintf(tw, "Archive:\talready archived by run %s\n", res.SkippedBy)
	}
	for _, d := range res.Degraded {
		fmt.Fprintf(tw, "Degraded:\t%s\n", d)
	}
	for _, r := range res.Reports {
		fmt.Fprintf(tw, "Report:\t%s\n", r)
	}
	_ = tw.Flush()
}

func shortHash(s string) string {
	if len(s) > 16 {
		return s[:16]
	}
	return s
}

func clip(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
