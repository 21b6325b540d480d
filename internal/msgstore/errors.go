package msgstore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"
)

var (
	// ErrParse marks database failures other than an expected schema mismatch.
	ErrParse = errors.New("parse error")
	// ErrChatNotFound is returned when a requested chat does not exist.
	ErrChatNotFound = errors.New("chat not found")
)

// ParseError wraps a database-level failure of one parser operation.
type ParseError struct {
	Op   string
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s %s: %v", ErrParse, e.Op, e.Path, e.Err)
}

func (e *ParseError) Unwrap() []error {
	return []error{ErrParse, e.Err}
}

// isSchemaMismatch reports whether err means the query does not fit the
// database's tables or columns.
func isSchemaMismatch(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) || se.Code != sqlite3.ErrError {
		return false
	}
	msg := se.Error()
	return strings.Contains(msg, "no such table") || strings.Contains(msg, "no such column")
}
