package ingest

import (
	"database/sql"
	"errors"
	"time"

	"github.com/matheus3301/waforensic/internal/store"
	"go.uber.org/zap"
)

// Checkpoints remembers which source databases were already ingested,
// keyed by content digest.
type Checkpoints struct {
	db     *store.DB
	logger *zap.Logger
}

// NewCheckpoints creates a checkpoint tracker.
func NewCheckpoints(db *store.DB, logger *zap.Logger) *Checkpoints {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checkpoints{db: db, logger: logger}
}

// Update sets a checkpoint value.
func (c *Checkpoints) Update(key, value string) error {
	now := time.Now().UnixMilli()
	_, err := c.db.Exec(`
		INSERT INTO checkpoints (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, now)
	return err
}

// Get retrieves a checkpoint value. ok is false when the key is unset.
func (c *Checkpoints) Get(key string) (value string, ok bool, err error) {
	err = c.db.QueryRow(`SELECT value FROM checkpoints WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// SourceKey is the checkpoint key of a source database digest.
func SourceKey(sha256 string) string {
	return "ingested:" + sha256
}

// AlreadyIngested reports whether a database with this digest was ingested
// and by which run.
func (c *Checkpoints) AlreadyIngested(sha256 string) (runID string, ok bool, err error) {
	runID, ok, err = c.Get(SourceKey(sha256))
	if ok {
		c.logger.Debug("source already ingested", zap.String("sha256", sha256), zap.String("run", runID))
	}
	return runID, ok, err
}

// MarkIngested records that runID ingested the database with this digest.
func (c *Checkpoints) MarkIngested(sha256, runID string) error {
	return c.Update(SourceKey(sha256), runID)
}
