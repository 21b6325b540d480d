// Package pipeline runs a case end to end: acquisition, hashing,
// decryption, parsing, archiving and reporting.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/matheus3301/waforensic/internal/acquire"
	"github.com/matheus3301/waforensic/internal/bus"
	"github.com/matheus3301/waforensic/internal/crypt"
	"github.com/matheus3301/waforensic/internal/ingest"
	"github.com/matheus3301/waforensic/internal/keyfile"
	"github.com/matheus3301/waforensic/internal/msgstore"
	"github.com/matheus3301/waforensic/internal/report"
	"github.com/matheus3301/waforensic/internal/status"
	"github.com/matheus3301/waforensic/internal/store"
	"github.com/matheus3301/waforensic/internal/workspace"
	"go.uber.org/zap"
)

// Degraded reasons.
const (
	ReasonNoDatabase    = "no message database acquired"
	ReasonNoKey         = "no key file for encrypted backup"
	ReasonDecryptFailed = "decryption produced no database"
)

// Run outcomes stored in the archive.
const (
	OutcomeComplete = "complete"
	OutcomeDegraded = "degraded"
	OutcomeFailed   = "failed"
)

// Options configures a full run.
type Options struct {
	// Source is acquire.SourceFile or acquire.SourceADB.
	Source string
	// Input is a backup file or a directory for file sources and an optional
	// device serial for adb.
	Input string
	// Key is a key file path. When empty an acquired key is used.
	Key string
	// Contacts is an optional wa.db path. When empty an acquired wa.db is used.
	Contacts string
	Formats  []string
	Meta     report.Metadata
	Extract  msgstore.ExtractOptions
	// Actor is recorded in custody events.
	Actor string
}

// Result describes a finished run.
type Result struct {
	RunID    string
	Acquired *acquire.Summary
	// Database is the plaintext message database that was parsed.
	Database   string
	Decryption *crypt.Result
	Snapshot   *msgstore.Snapshot
	Ingest     *ingest.Result
	// Skipped is set when the database was already archived by RunID.
	Skipped   bool
	SkippedBy string
	Reports   []string
	Degraded  []string
	Outcome   string
}

// DegradedEvent is the payload of pipeline.degraded events.
type DegradedEvent struct {
	Reason string
	Err    error
}

// ArtifactEvent is the payload of pipeline.artifact events.
type ArtifactEvent struct {
	Kind string
	Path string
}

// Runner executes runs against one case.
type Runner struct {
	cas         *workspace.Case
	db          *store.DB
	bus         *bus.Bus
	machine     *status.Machine
	acq         *acquire.Acquirer
	engine      *ingest.Engine
	checkpoints *ingest.Checkpoints
	logger      *zap.Logger
}

// NewRunner creates a runner.
func NewRunner(c *workspace.Case, db *store.DB, b *bus.Bus, m *status.Machine, acq *acquire.Acquirer, engine *ingest.Engine, cp *ingest.Checkpoints, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cas:         c,
		db:          db,
		bus:         b,
		machine:     m,
		acq:         acq,
		engine:      engine,
		checkpoints: cp,
		logger:      logger,
	}
}

// run carries the state of one execution.
type run struct {
	*Runner
	res   *Result
	actor string
	// digests caches the sha256 of every path recorded in this run.
	digests map[string]string
}

func (r *run) stage(s status.Stage) error {
	if r.machine.Current() == s {
		return nil
	}
	return r.machine.Transition(s)
}

func (r *run) degrade(reason string, err error) {
	msg := reason
	if err != nil {
		msg = fmt.Sprintf("%s: %v", reason, err)
	}
	r.res.Degraded = append(r.res.Degraded, msg)
	r.logger.Warn("run degraded", zap.String("reason", reason), zap.Error(err))
	r.bus.Emit(bus.KindDegraded, DegradedEvent{Reason: reason, Err: err})
}

func (r *Runner) begin(source, actor string) (*run, error) {
	if r.machine.Terminal() {
		if err := r.machine.Transition(status.Idle); err != nil {
			return nil, err
		}
	}
	if r.machine.Current() != status.Idle {
		return nil, fmt.Errorf("pipeline busy in stage %s", r.machine.Current())
	}
	rec, err := r.db.StartRun(source)
	if err != nil {
		return nil, err
	}
	if actor == "" {
		actor = "waforensic"
	}
	r.logger.Info("run started", zap.String("run", rec.ID), zap.String("source", source))
	return &run{Runner: r, res: &Result{RunID: rec.ID}, actor: actor, digests: make(map[string]string)}, nil
}

// finish stores the outcome. A non-nil err marks the run failed.
func (r *run) finish(err error) (*Result, error) {
	switch {
	case err != nil:
		r.res.Outcome = OutcomeFailed
		_ = r.machine.Transition(status.Failed)
	case len(r.res.Degraded) > 0:
		r.res.Outcome = OutcomeDegraded
	default:
		r.res.Outcome = OutcomeComplete
	}
	if err == nil {
		err = r.stage(status.Done)
	}
	if ferr := r.db.FinishRun(r.res.RunID, r.res.Outcome); ferr != nil {
		r.logger.Error("could not store run outcome", zap.Error(ferr))
		err = errors.Join(err, ferr)
	}
	fields := []zap.Field{zap.String("run", r.res.RunID), zap.String("outcome", r.res.Outcome)}
	if err != nil {
		r.logger.Error("run failed", append(fields, zap.Error(err))...)
		return r.res, err
	}
	r.logger.Info("run finished", append(fields, zap.Strings("degraded", r.res.Degraded))...)
	return r.res, nil
}

// Run acquires, decrypts, parses, archives and reports. Decryption failures
// and empty entity types do not fail the run; they are listed in
// Result.Degraded and reported.
func (r *Runner) Run(ctx context.Context, opts Options) (*Result, error) {
	x, err := r.begin(opts.Source, opts.Actor)
	if err != nil {
		return nil, err
	}
	return x.finish(x.full(ctx, opts))
}

func (r *run) full(ctx context.Context, opts Options) error {
	if err := r.stage(status.Acquiring); err != nil {
		return err
	}
	files, err := r.acquire(ctx, opts)
	if err != nil {
		return fmt.Errorf("acquire: %w", err)
	}
	sum, err := r.acq.Summarize(files)
	if err != nil {
		return err
	}
	r.res.Acquired = sum
	r.logger.Info("acquisition summary", zap.Int("artifacts", len(sum.Artifacts)), zap.Int64("bytes", sum.TotalSize))

	if err := r.stage(status.Hashing); err != nil {
		return err
	}
	for _, a := range sum.Artifacts {
		if a.Kind == acquire.KindMedia {
			continue
		}
		kind := store.KindAcquired
		if a.Kind == acquire.KindKey {
			kind = store.KindKey
		}
		if _, err := r.record(kind, a.Path); err != nil {
			return err
		}
	}

	sel := selectArtifacts(sum, files, opts)
	if sel.database == "" {
		r.degrade(ReasonNoDatabase, nil)
		if err := r.stage(status.Degraded); err != nil {
			return err
		}
		return r.reportOnly(ctx, opts)
	}

	plain, err := r.decrypt(sel)
	if err != nil {
		return err
	}
	if plain == "" {
		return r.reportOnly(ctx, opts)
	}
	return r.analyze(ctx, plain, sel.contacts, opts.Formats, opts.Meta, opts.Extract)
}

func (r *run) acquire(ctx context.Context, opts Options) (acquire.Files, error) {
	dst := filepath.Join(r.cas.AcquiredDir(), r.res.RunID)
	var (
		files acquire.Files
		err   error
	)
	switch opts.Source {
	case acquire.SourceADB:
		files, err = r.acq.FromDevice(ctx, opts.Input, dst)
	case acquire.SourceFile:
		if opts.Input == "" {
			return nil, errors.New("no input given")
		}
		info, serr := r.acq.Fs().Stat(opts.Input)
		if serr != nil {
			return nil, serr
		}
		if info.IsDir() {
			files, err = r.acq.FromDirectory(opts.Input, dst)
		} else {
			files, err = r.acq.FromFile(opts.Input, dst)
		}
	default:
		return nil, fmt.Errorf("unknown source %q", opts.Source)
	}
	if err != nil {
		return nil, err
	}
	for _, extra := range []string{opts.Key, opts.Contacts} {
		if extra == "" {
			continue
		}
		if _, ok := files[extra]; ok {
			continue
		}
		more, err := r.acq.FromFile(extra, dst)
		if err != nil {
			return nil, err
		}
		for k, v := range more {
			files[k] = v
		}
	}
	return files, nil
}

// decrypt returns the plaintext database path, or "" after degrading the
// run when no database could be recovered.
func (r *run) decrypt(sel selection) (string, error) {
	if err := r.stage(status.Decrypting); err != nil {
		return "", err
	}
	t := crypt.Detect(sel.database)
	var key keyfile.Key
	if t != crypt.Unencrypted {
		if sel.key == "" {
			r.degrade(ReasonNoKey, nil)
			r.degrade(ReasonDecryptFailed, nil)
			return "", r.stage(status.Degraded)
		}
		k, err := keyfile.Load(sel.key)
		if err != nil {
			r.degrade(ReasonDecryptFailed, err)
			return "", r.stage(status.Degraded)
		}
		key = k
	}

	out := filepath.Join(r.cas.DecryptedDir(), r.res.RunID, filepath.Base(crypt.DefaultOutputPath(sel.database)))
	res, err := crypt.New(key, r.logger).Decrypt(sel.database, out)
	if err != nil {
		r.degrade(ReasonDecryptFailed, err)
		return "", r.stage(status.Degraded)
	}
	r.res.Decryption = res
	r.bus.Emit(bus.KindArtifact, ArtifactEvent{Kind: store.KindDecrypted, Path: res.OutputPath})

	if err := r.stage(status.Hashing); err != nil {
		return "", err
	}
	if _, err := r.record(store.KindDecrypted, res.OutputPath); err != nil {
		return "", err
	}
	return res.OutputPath, nil
}

// analyze parses the plaintext database, archives it and writes reports.
func (r *run) analyze(ctx context.Context, db, contacts string, formats []string, meta report.Metadata, eo msgstore.ExtractOptions) error {
	r.res.Database = db
	if err := r.stage(status.Parsing); err != nil {
		return err
	}
	p, err := msgstore.Open(db, contacts, r.logger)
	if err != nil {
		return err
	}
	snap, err := p.Extract(eo)
	if err != nil {
		return err
	}
	r.res.Snapshot = snap
	if len(snap.Empty) > 0 {
		for _, e := range snap.Empty {
			r.degrade("no "+e+" found", nil)
		}
		if err := r.stage(status.Degraded); err != nil {
			return err
		}
	}

	if err := r.stage(status.Archiving); err != nil {
		return err
	}
	if err := r.archive(ctx, db, snap); err != nil {
		return err
	}
	return r.report(ctx, formats, meta, snap)
}

func (r *run) archive(ctx context.Context, db string, snap *msgstore.Snapshot) error {
	digest, err := r.evidenceDigest(db)
	if err != nil {
		return err
	}
	if by, ok, err := r.checkpoints.AlreadyIngested(digest); err != nil {
		return err
	} else if ok {
		r.res.Skipped, r.res.SkippedBy = true, by
		r.logger.Info("database already archived", zap.String("by_run", by))
		return nil
	}
	res, err := r.engine.IngestSnapshot(ctx, snap)
	if err != nil {
		return err
	}
	r.res.Ingest = res
	return r.checkpoints.MarkIngested(digest, r.res.RunID)
}

func (r *run) reportOnly(ctx context.Context, opts Options) error {
	return r.report(ctx, opts.Formats, opts.Meta, nil)
}

func (r *run) report(ctx context.Context, formats []string, meta report.Metadata, snap *msgstore.Snapshot) error {
	if err := r.stage(status.Reporting); err != nil {
		return err
	}
	if meta.CaseID == "" {
		meta.CaseID = r.cas.ID
	}
	d := report.FromSnapshot(meta, snap)
	d.Degraded = r.res.Degraded
	ev, err := r.db.ListEvidence()
	if err != nil {
		return err
	}
	d.Evidence = ev

	files, err := report.NewGenerator(r.cas.ReportDir(), r.logger).Generate(ctx, formats, d)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	r.res.Reports = files

	if err := r.stage(status.Hashing); err != nil {
		return err
	}
	for _, f := range files {
		if _, err := r.record(store.KindReport, f); err != nil {
			return err
		}
		r.bus.Emit(bus.KindArtifact, ArtifactEvent{Kind: store.KindReport, Path: f})
	}
	return nil
}

// ParseOptions configures a parse of an already plaintext database.
type ParseOptions struct {
	Database string
	Contacts string
	Formats  []string
	Meta     report.Metadata
	Extract  msgstore.ExtractOptions
	Actor    string
}

// Parse hashes, parses, archives and reports a plaintext database without
// acquisition or decryption.
func (r *Runner) Parse(ctx context.Context, opts ParseOptions) (*Result, error) {
	x, err := r.begin("parse", opts.Actor)
	if err != nil {
		return nil, err
	}
	return x.finish(x.parse(ctx, opts))
}

func (r *run) parse(ctx context.Context, opts ParseOptions) error {
	if _, err := os.Stat(opts.Database); err != nil {
		return &msgstore.ParseError{Op: "open", Path: opts.Database, Err: err}
	}
	if err := r.stage(status.Hashing); err != nil {
		return err
	}
	if _, err := r.record(store.KindAcquired, opts.Database); err != nil {
		return err
	}
	if opts.Contacts != "" {
		if _, err := r.record(store.KindAcquired, opts.Contacts); err != nil {
			return err
		}
	}
	return r.analyze(ctx, opts.Database, opts.Contacts, opts.Formats, opts.Meta, opts.Extract)
}
