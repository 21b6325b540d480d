package msgstore

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Parser reads one plaintext message database and an optional contacts
// database. The contacts database is loaded once at construction into a
// jid to display name cache owned by the parser.
type Parser struct {
	path         string
	contactsPath string
	logger       *zap.Logger

	names    map[string]string
	nameJIDs []string
}

// Open validates msgstorePath and loads contacts from contactsPath when it
// is non-empty. A contacts database that cannot be read is logged and
// skipped.
func Open(msgstorePath, contactsPath string, logger *zap.Logger) (*Parser, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := os.Stat(msgstorePath); err != nil {
		return nil, &ParseError{Op: "open", Path: msgstorePath, Err: err}
	}
	p := &Parser{
		path:         msgstorePath,
		contactsPath: contactsPath,
		logger:       logger,
		names:        make(map[string]string),
	}
	if contactsPath != "" {
		if err := p.loadContacts(); err != nil {
			logger.Warn("contacts database not loaded", zap.String("path", contactsPath), zap.Error(err))
		}
	}
	return p, nil
}

// Path returns the message database path.
func (p *Parser) Path() string { return p.path }

// connect opens a read-only connection. Each query-bearing operation opens
// and closes its own.
func connect(path string) (*sql.DB, error) {
	dsn, err := readOnlyDSN(path)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// readOnlyDSN builds a read-only SQLite URI for path with '?', '#' and '%'
// escaped.
func readOnlyDSN(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs), RawQuery: "mode=ro"}
	return u.String(), nil
}

func (p *Parser) withDB(op, path string, fn func(*sql.DB) error) error {
	if _, err := os.Stat(path); err != nil {
		return &ParseError{Op: op, Path: path, Err: err}
	}
	db, err := connect(path)
	if err != nil {
		return &ParseError{Op: op, Path: path, Err: err}
	}
	defer func() { _ = db.Close() }()
	return fn(db)
}

var contactStrategies = []strategy{
	{name: "wa_contacts", query: `SELECT jid, display_name FROM wa_contacts ORDER BY rowid`},
	{name: "contacts", query: `SELECT jid, display_name FROM contacts ORDER BY rowid`},
	{name: "user", query: `SELECT jid, display_name FROM user ORDER BY rowid`},
}

type namedJID struct {
	jid  string
	name string
}

func (p *Parser) loadContacts() error {
	cp := &Parser{path: p.contactsPath, logger: p.logger}
	return p.withDB("contacts", p.contactsPath, func(db *sql.DB) error {
		rows, _, err := probe(cp, db, "contacts", contactStrategies, func(r rowScanner) (namedJID, error) {
			var jid, name sql.NullString
			if err := r.Scan(&jid, &name); err != nil {
				return namedJID{}, err
			}
			return namedJID{jid: jid.String, name: name.String}, nil
		})
		if err != nil {
			return err
		}
		for _, row := range rows {
			if row.jid == "" {
				continue
			}
			if _, seen := p.names[row.jid]; !seen {
				p.nameJIDs = append(p.nameJIDs, row.jid)
			}
			if row.name != "" || p.names[row.jid] == "" {
				p.names[row.jid] = row.name
			}
		}
		p.logger.Debug("contacts loaded", zap.Int("count", len(p.nameJIDs)))
		return nil
	})
}

// DisplayName returns the cached contact name for jid.
func (p *Parser) DisplayName(jid string) (string, bool) {
	name, ok := p.names[jid]
	if !ok || name == "" {
		return "", false
	}
	return name, true
}
