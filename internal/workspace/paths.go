// Package workspace lays out the on-disk directory of a forensic case.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

// BaseDir returns ~/.waforensic.
func BaseDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".waforensic")
}

// ConfigPath returns the global config file path.
func ConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

var idRegexp = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,63}$`)

// ValidateID checks that id is usable as a case directory name.
func ValidateID(id string) error {
	if !idRegexp.MatchString(id) {
		return fmt.Errorf("invalid case id %q: must match %s", id, idRegexp)
	}
	return nil
}

// NewID returns a case id derived from t.
func NewID(t time.Time) string {
	return "case-" + t.UTC().Format("20060102-150405")
}

// Resolve determines the case id using precedence: flagOverride, then the
// configured default, then a fresh id.
func Resolve(flagOverride, configured string, now time.Time) string {
	if flagOverride != "" {
		return flagOverride
	}
	if configured != "" {
		return configured
	}
	return NewID(now)
}

// Case is the directory of one case under the output directory.
type Case struct {
	ID   string
	Root string
}

// Open returns the case layout for id below outputDir.
func Open(outputDir, id string) (*Case, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	root, err := filepath.Abs(filepath.Join(outputDir, id))
	if err != nil {
		return nil, fmt.Errorf("case dir: %w", err)
	}
	return &Case{ID: id, Root: root}, nil
}

// AcquiredDir holds files copied from the source.
func (c *Case) AcquiredDir() string { return filepath.Join(c.Root, "acquired") }

// DecryptedDir holds recovered plaintext databases.
func (c *Case) DecryptedDir() string { return filepath.Join(c.Root, "decrypted") }

// ReportDir holds generated reports.
func (c *Case) ReportDir() string { return filepath.Join(c.Root, "reports") }

// LogDir returns the log directory of the case.
func (c *Case) LogDir() string { return filepath.Join(c.Root, "logs") }

// LogPath returns the case log file.
func (c *Case) LogPath() string { return filepath.Join(c.LogDir(), "waforensic.log") }

// ArchivePath returns the case archive database.
func (c *Case) ArchivePath() string { return filepath.Join(c.Root, "archive.db") }

// LockPath returns the lock file path of the case.
func (c *Case) LockPath() string { return filepath.Join(c.Root, "LOCK") }

// EnsureDirs creates the case directory tree with proper permissions.
func (c *Case) EnsureDirs() error {
	for _, d := range []string{c.Root, c.AcquiredDir(), c.DecryptedDir(), c.ReportDir(), c.LogDir()} {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}
