package crypt

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zlib"
	"github.com/matheus3301/waforensic/internal/keyfile"
	"go.uber.org/zap"
	"golang.org/x/crypto/hkdf"
)

// crypt15KeyInfo is the HKDF info string of the crypt15 backup-encryption key.
const crypt15KeyInfo = "backup encryption"

// Result describes a successful decryption.
type Result struct {
	Type       Type
	OutputPath string
	// BodyStart is the ciphertext offset that decrypted; zero for unencrypted input.
	BodyStart int
	// DerivedKey is set when the crypt15 derived key was used instead of the raw key.
	DerivedKey bool
	// Authenticated is set when a GCM tag was found and verified. Untagged
	// bodies are accepted on valid decompression alone.
	Authenticated bool
}

// Decryptor decrypts backup containers with a single key.
type Decryptor struct {
	key    keyfile.Key
	logger *zap.Logger
}

// New creates a decryptor for key.
func New(key keyfile.Key, logger *zap.Logger) *Decryptor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Decryptor{key: key, logger: logger}
}

// DefaultOutputPath returns the plaintext path for a container: the crypt
// extension is stripped and ".db" ensured.
func DefaultOutputPath(input string) string {
	base := filepath.Base(input)
	if ext := filepath.Ext(base); strings.HasPrefix(ext, ".crypt") {
		base = strings.TrimSuffix(base, ext)
	}
	if filepath.Ext(base) != ".db" {
		base += ".db"
	}
	return filepath.Join(filepath.Dir(input), base)
}

// Decrypt detects the format of input and writes the plaintext database to
// output (DefaultOutputPath when empty). On failure no output file is left
// behind.
func (d *Decryptor) Decrypt(input, output string) (*Result, error) {
	if output == "" {
		output = DefaultOutputPath(input)
	}
	if err := os.MkdirAll(filepath.Dir(output), 0700); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	t := Detect(input)
	log := d.logger.With(zap.String("input", input), zap.String("type", string(t)))

	if t == Unencrypted {
		log.Info("database is not encrypted, copying as-is")
		if err := copyFile(input, output); err != nil {
			log.Error("copy failed", zap.Error(err))
			return nil, err
		}
		return &Result{Type: t, OutputPath: output}, nil
	}

	data, err := os.ReadFile(input)
	if err != nil {
		log.Error("read container failed", zap.Error(err))
		return nil, fmt.Errorf("read container: %w", err)
	}

	log.Info("decrypting container", zap.Int("size", len(data)))
	if t == Crypt15 {
		log.Warn("crypt15 support is approximate; production crypt15 framing may differ")
	}

	plain, res, err := d.open(t, data)
	if err != nil {
		log.Error("decryption failed", zap.Error(err))
		return nil, err
	}
	if !bytes.HasPrefix(plain, SQLiteHeader) {
		log.Warn("plaintext does not start with a SQLite signature")
	}
	if err := writeFileAtomic(output, plain); err != nil {
		log.Error("write plaintext failed", zap.Error(err))
		return nil, err
	}

	res.OutputPath = output
	log.Info("decrypted", zap.String("output", output), zap.Int("body_start", res.BodyStart), zap.Bool("derived_key", res.DerivedKey), zap.Bool("authenticated", res.Authenticated))
	return res, nil
}

// DecryptBytes decrypts an in-memory container of type t.
func (d *Decryptor) DecryptBytes(t Type, data []byte) ([]byte, *Result, error) {
	return d.open(t, data)
}

type keyHypothesis struct {
	key     []byte
	derived bool
}

func (d *Decryptor) keys(t Type) []keyHypothesis {
	hyps := []keyHypothesis{{key: d.key.Bytes()}}
	if t == Crypt15 {
		if derived, err := DeriveCrypt15Key(d.key); err == nil {
			hyps = append(hyps, keyHypothesis{key: derived[:], derived: true})
		}
	}
	return hyps
}

// open tries every key hypothesis against every candidate body start in
// ascending order and returns the first plaintext that inflates.
func (d *Decryptor) open(t Type, data []byte) ([]byte, *Result, error) {
	layout, ok := LayoutFor(t)
	if !ok {
		return nil, nil, fmt.Errorf("%w: no layout for %s", ErrDecryption, t)
	}
	if len(data) < layout.MinSize {
		return nil, nil, fmt.Errorf("%w: %s needs at least %d bytes, got %d", ErrMalformedContainer, t, layout.MinSize, len(data))
	}

	iv := layout.IV(data)
	var lastErr error
	attempts := 0
	for _, kh := range d.keys(t) {
		for _, start := range layout.BodyStarts {
			attempts++
			plain, authed, err := openBody(kh.key, iv, layout.Body(data, start), layout.Footer(data, start))
			if err != nil {
				d.logger.Debug("hypothesis rejected",
					zap.String("type", string(t)), zap.Int("body_start", start),
					zap.Bool("derived_key", kh.derived), zap.Error(err))
				lastErr = err
				continue
			}
			return plain, &Result{Type: t, BodyStart: start, DerivedKey: kh.derived, Authenticated: authed}, nil
		}
	}
	return nil, nil, &DecryptionError{Type: t, Attempts: attempts, Err: lastErr}
}

// openBody decrypts one candidate body. A tag appended to the body or held in
// the first 16 footer bytes is verified when present; otherwise the body is
// treated as bare GCM ciphertext and decrypted with the CTR keystream.
func openBody(key, iv, body, footer []byte) ([]byte, bool, error) {
	if len(body) == 0 {
		return nil, false, errors.New("empty body")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, false, fmt.Errorf("aes: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return nil, false, fmt.Errorf("gcm: %w", err)
	}

	for _, sealed := range taggedBodies(body, footer, gcm.Overhead()) {
		compressed, err := gcm.Open(nil, iv, sealed, nil)
		if err != nil {
			continue
		}
		if plain, err := inflate(compressed); err == nil {
			return plain, true, nil
		}
	}

	compressed := make([]byte, len(body))
	subtle.XORBytes(compressed, body, keystream(gcm, iv, len(body)))
	plain, err := inflate(compressed)
	if err != nil {
		return nil, false, err
	}
	return plain, false, nil
}

// taggedBodies lists the ways body may carry a GCM tag: appended to the
// ciphertext, or stored at the start of the footer.
func taggedBodies(body, footer []byte, tagSize int) [][]byte {
	var out [][]byte
	if len(body) > tagSize {
		out = append(out, body)
	}
	if len(footer) >= tagSize {
		out = append(out, append(body[:len(body):len(body)], footer[:tagSize]...))
	}
	return out
}

// keystream returns the first n bytes GCM XORs into a plaintext under iv.
func keystream(gcm cipher.AEAD, iv []byte, n int) []byte {
	return gcm.Seal(nil, iv, make([]byte, n), nil)[:n]
}

func inflate(compressed []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("inflate: %w", err)
	}
	defer func() { _ = zr.Close() }()
	plain, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("inflate: %w", err)
	}
	return plain, nil
}

// DeriveCrypt15Key derives the backup-encryption key from a crypt15 root key
// with HKDF-SHA256 (zero salt, info "backup encryption").
func DeriveCrypt15Key(root keyfile.Key) (keyfile.Key, error) {
	var out keyfile.Key
	r := hkdf.New(sha256.New, root[:], make([]byte, sha256.Size), []byte(crypt15KeyInfo))
	if _, err := io.ReadFull(r, out[:]); err != nil {
		return out, fmt.Errorf("derive crypt15 key: %w", err)
	}
	return out, nil
}

// writeFileAtomic writes data next to path and renames it into place so a
// failed write never leaves a partial database.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".decrypt-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write plaintext: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod plaintext: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close plaintext: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename plaintext: %w", err)
	}
	return nil
}

// copyFile copies src to dst byte for byte, keeping the source modification time.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read source: %w", err)
	}
	if err := writeFileAtomic(dst, data); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
