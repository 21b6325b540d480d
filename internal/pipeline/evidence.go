package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/matheus3301/waforensic/internal/bus"
	"github.com/matheus3301/waforensic/internal/integrity"
	"github.com/matheus3301/waforensic/internal/store"
	"go.uber.org/zap"
)

// record hashes path and stores it in the evidence ledger.
func (r *run) record(kind, path string) (*store.Evidence, error) {
	d, err := integrity.HashFile(path)
	if err != nil {
		return nil, fmt.Errorf("hash %s: %w", path, err)
	}
	e := &store.Evidence{
		RunID:  r.res.RunID,
		Kind:   kind,
		Path:   path,
		Size:   d.Size,
		MD5:    d.MD5,
		SHA256: d.SHA256,
		SHA512: d.SHA512,
	}
	if err := r.db.RecordEvidence(e, r.actor); err != nil {
		return nil, err
	}
	r.digests[path] = d.SHA256
	r.logger.Info("evidence recorded",
		zap.String("kind", kind),
		zap.String("path", path),
		zap.Int64("size", d.Size),
		zap.String("sha256", d.SHA256))
	r.bus.Emit(bus.KindEvidence, *e)
	return e, nil
}

func (r *run) evidenceDigest(path string) (string, error) {
	if d, ok := r.digests[path]; ok {
		return d, nil
	}
	d, err := integrity.HashFile(path)
	if err != nil {
		return "", err
	}
	return d.SHA256, nil
}

// Check is the outcome of re-hashing one evidence item.
type Check struct {
	Evidence store.Evidence
	// Action is store.ActionVerified, store.ActionMismatch or store.ActionMissing.
	Action string
	// SHA256 is the digest computed now; empty when the file is missing.
	SHA256 string
}

// Verification summarizes VerifyEvidence.
type Verification struct {
	Checks []Check
}

// OK reports whether every item verified.
func (v *Verification) OK() bool {
	for _, c := range v.Checks {
		if c.Action != store.ActionVerified {
			return false
		}
	}
	return true
}

// Count returns the number of checks with the given action.
func (v *Verification) Count(action string) int {
	n := 0
	for _, c := range v.Checks {
		if c.Action == action {
			n++
		}
	}
	return n
}

// VerifyEvidence re-hashes every ledger item and appends the result to its
// chain of custody.
func (r *Runner) VerifyEvidence(ctx context.Context, actor string) (*Verification, error) {
	if actor == "" {
		actor = "waforensic"
	}
	items, err := r.db.ListEvidence()
	if err != nil {
		return nil, err
	}
	v := &Verification{}
	for _, e := range items {
		if err := ctx.Err(); err != nil {
			return v, err
		}
		c := Check{Evidence: e}
		ok, err := integrity.Verify(e.Path, e.SHA256, integrity.SHA256)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			c.Action = store.ActionMissing
		case err != nil:
			return v, fmt.Errorf("verify %s: %w", e.Path, err)
		case ok:
			c.Action = store.ActionVerified
			c.SHA256 = e.SHA256
		default:
			c.Action = store.ActionMismatch
			if d, herr := integrity.HashFile(e.Path); herr == nil {
				c.SHA256 = d.SHA256
			}
		}

		detail := "sha256=" + e.SHA256
		if c.Action == store.ActionMismatch {
			detail = fmt.Sprintf("sha256=%s expected=%s", c.SHA256, e.SHA256)
		}
		if err := r.db.AddCustodyEvent(&store.CustodyEvent{
			EvidenceID: e.ID,
			Action:     c.Action,
			Actor:      actor,
			Detail:     detail,
		}); err != nil {
			return v, err
		}

		log := r.logger.With(zap.String("path", e.Path), zap.String("action", c.Action))
		if c.Action == store.ActionVerified {
			log.Debug("evidence verified")
		} else {
			log.Warn("evidence check failed", zap.String("expected", e.SHA256), zap.String("actual", c.SHA256))
		}
		r.bus.Emit(bus.KindEvidenceCheck, c)
		v.Checks = append(v.Checks, c)
	}
	r.logger.Info("evidence verification complete",
		zap.Int("verified", v.Count(store.ActionVerified)),
		zap.Int("mismatch", v.Count(store.ActionMismatch)),
		zap.Int("missing", v.Count(store.ActionMissing)))
	return v, nil
}
