package msgstore

import (
	"database/sql"

	"go.uber.org/zap"
)

// strategy is one schema variant of an entity query. Every variant of an
// entity selects the same columns in the same order.
type strategy struct {
	name  string
	query string
	args  []any
}

type rowScanner interface {
	Scan(dest ...any) error
}

// probe runs strategies in order. The first one the database accepts wins
// and its rows are scanned; results are never merged across variants.
// A nil slice with an empty name means no variant matched.
func probe[T any](p *Parser, db *sql.DB, entity string, strategies []strategy, scan func(rowScanner) (T, error)) ([]T, string, error) {
	for _, s := range strategies {
		rows, err := db.Query(s.query, s.args...)
		if err != nil {
			if isSchemaMismatch(err) {
				p.logger.Debug("schema variant not applicable",
					zap.String("entity", entity), zap.String("variant", s.name), zap.Error(err))
				continue
			}
			return nil, "", &ParseError{Op: entity, Path: p.path, Err: err}
		}
		out, err := scanAll(rows, scan)
		if err != nil {
			return nil, "", &ParseError{Op: entity, Path: p.path, Err: err}
		}
		p.logger.Debug("schema variant matched",
			zap.String("entity", entity), zap.String("variant", s.name), zap.Int("rows", len(out)))
		return out, s.name, nil
	}
	p.logger.Warn("no known schema variant", zap.String("entity", entity), zap.String("path", p.path))
	return nil, "", nil
}

func scanAll[T any](rows *sql.Rows, scan func(rowScanner) (T, error)) ([]T, error) {
	defer func() { _ = rows.Close() }()
	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullInt(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	v := ni.Int64
	return &v
}
