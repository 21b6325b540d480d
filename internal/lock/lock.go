package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// LockHeldError is returned when another process holds the case lock.
type LockHeldError struct {
	PID  int
	Case string
	Path string
}

func (e *LockHeldError) Error() string {
	if e.Case != "" {
		return fmt.Sprintf("case %s is locked by PID %d (%s)", e.Case, e.PID, e.Path)
	}
	return fmt.Sprintf("case lock held by PID %d (%s)", e.PID, e.Path)
}

// Lock represents an acquired case lock file. Only one process may work on
// a case directory at a time.
type Lock struct {
	file *os.File
	path string
}

// Acquire attempts to acquire an exclusive lock on the case directory.
// Returns LockHeldError if another process already holds it.
func Acquire(caseDir string) (*Lock, error) {
	lockPath := filepath.Join(caseDir, "LOCK")

	if err := os.MkdirAll(caseDir, 0700); err != nil {
		return nil, fmt.Errorf("create case dir: %w", err)
	}

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	err = syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	if err != nil {
		data, _ := os.ReadFile(lockPath)
		_ = f.Close()
		return nil, &LockHeldError{
			PID:  atoiField(string(data), "pid"),
			Case: field(string(data), "case"),
			Path: lockPath,
		}
	}

	// Write PID + timestamp.
	if err := f.Truncate(0); err != nil {
		_ = f.Close()
		return nil, err
	}
	if _, err := f.Seek(0, 0); err != nil {
		_ = f.Close()
		return nil, err
	}
	content := fmt.Sprintf("pid=%d\ncase=%s\ntime=%s\n",
		os.Getpid(), filepath.Base(caseDir), time.Now().UTC().Format(time.RFC3339))
	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		return nil, err
	}

	return &Lock{file: f, path: lockPath}, nil
}

// Release releases the lock. Safe to call on nil receiver.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	// Remove lock file before closing to avoid stale files.
	_ = os.Remove(l.path)
	err := l.file.Close()
	l.file = nil
	return err
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// field returns the value of a key=value line of the lock file.
func field(content, key string) string {
	for _, line := range strings.Split(content, "\n") {
		if after, ok := strings.CutPrefix(line, key+"="); ok {
			return after
		}
	}
	return ""
}

func atoiField(content, key string) int {
	v, _ := strconv.Atoi(field(content, key))
	return v
}
