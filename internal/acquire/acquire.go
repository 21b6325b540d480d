// Package acquire collects WhatsApp artifacts from a local directory or an
// Android device into a case directory.
package acquire

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Sources.
const (
	SourceFile = "file"
	SourceADB  = "adb"
)

// Files maps each source path to its copy in the case directory.
type Files map[string]string

// Acquirer copies artifacts into the case. Source and destination share one
// filesystem.
type Acquirer struct {
	fs      afero.Fs
	runner  Runner
	adbPath string
	timeout time.Duration
	logger  *zap.Logger
}

// Option configures an Acquirer.
type Option func(*Acquirer)

// WithFs replaces the OS filesystem.
func WithFs(fs afero.Fs) Option { return func(a *Acquirer) { a.fs = fs } }

// WithRunner replaces the command runner used for adb.
func WithRunner(r Runner) Option { return func(a *Acquirer) { a.runner = r } }

// WithADB sets the adb binary and the per-pull timeout.
func WithADB(path string, timeout time.Duration) Option {
	return func(a *Acquirer) {
		if path != "" {
			a.adbPath = path
		}
		if timeout > 0 {
			a.timeout = timeout
		}
	}
}

// New creates an Acquirer backed by the OS filesystem and real commands.
func New(logger *zap.Logger, opts ...Option) *Acquirer {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Acquirer{
		fs:      afero.NewOsFs(),
		runner:  ExecRunner{},
		adbPath: "adb",
		timeout: 5 * time.Minute,
		logger:  logger,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Fs returns the filesystem the acquirer works on.
func (a *Acquirer) Fs() afero.Fs { return a.fs }

// FromFile copies a single file into dstDir.
func (a *Acquirer) FromFile(src, dstDir string) (Files, error) {
	info, err := a.fs.Stat(src)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("source %s is a directory", src)
	}
	if err := a.fs.MkdirAll(dstDir, 0700); err != nil {
		return nil, err
	}
	dst := filepath.Join(dstDir, filepath.Base(src))
	if err := a.copyFile(src, dst, info); err != nil {
		return nil, err
	}
	a.logger.Info("acquired", zap.String("source", src), zap.String("dest", dst))
	return Files{src: dst}, nil
}

// copyFile copies src to dst keeping the modification time.
func (a *Acquirer) copyFile(src, dst string, info os.FileInfo) error {
	in, err := a.fs.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := a.fs.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return err
	}
	return a.fs.Chtimes(dst, info.ModTime(), info.ModTime())
}

// uniquePath returns p, or p with a numeric suffix before the extensions
// when p already exists.
func (a *Acquirer) uniquePath(p string) string {
	if _, err := a.fs.Stat(p); err != nil {
		return p
	}
	dir, name := filepath.Split(p)
	stem, ext, _ := strings.Cut(name, ".")
	if ext != "" {
		ext = "." + ext
	}
	for i := 1; ; i++ {
		candidate := filepath.Join(dir, stem+"-"+strconv.Itoa(i)+ext)
		if _, err := a.fs.Stat(candidate); err != nil {
			return candidate
		}
	}
}
