// Package integrity computes and verifies whole-file digests for evidence.
package integrity

import (
	"crypto/md5"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
)

// Algorithm names a supported digest.
type Algorithm string

const (
	MD5    Algorithm = "md5"
	SHA256 Algorithm = "sha256"
	SHA512 Algorithm = "sha512"
)

// Digests holds the hex digests of one file.
type Digests struct {
	MD5    string `json:"md5"`
	SHA256 string `json:"sha256"`
	SHA512 string `json:"sha512"`
	Size   int64  `json:"size"`
}

// Get returns the digest for algo.
func (d Digests) Get(algo Algorithm) (string, error) {
	switch Algorithm(strings.ToLower(string(algo))) {
	case MD5:
		return d.MD5, nil
	case SHA256:
		return d.SHA256, nil
	case SHA512:
		return d.SHA512, nil
	}
	return "", fmt.Errorf("unsupported algorithm %q", algo)
}

// HashFile computes MD5, SHA-256 and SHA-512 of the file at path in one pass.
func HashFile(path string) (Digests, error) {
	f, err := os.Open(path)
	if err != nil {
		return Digests{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return HashReader(f)
}

// HashReader computes all digests of r.
func HashReader(r io.Reader) (Digests, error) {
	m, s256, s512 := md5.New(), sha256.New(), sha512.New()
	n, err := io.Copy(io.MultiWriter(m, s256, s512), r)
	if err != nil {
		return Digests{}, fmt.Errorf("hash: %w", err)
	}
	return Digests{
		MD5:    sum(m),
		SHA256: sum(s256),
		SHA512: sum(s512),
		Size:   n,
	}, nil
}

func sum(h hash.Hash) string {
	return hex.EncodeToString(h.Sum(nil))
}

// Verify reports whether the file at path has the expected digest.
func Verify(path, expected string, algo Algorithm) (bool, error) {
	d, err := HashFile(path)
	if err != nil {
		return false, err
	}
	got, err := d.Get(algo)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(got, strings.TrimSpace(expected)), nil
}

// Compare reports whether two files have the same digest.
func Compare(a, b string, algo Algorithm) (bool, error) {
	da, err := HashFile(a)
	if err != nil {
		return false, err
	}
	db, err := HashFile(b)
	if err != nil {
		return false, err
	}
	ha, err := da.Get(algo)
	if err != nil {
		return false, err
	}
	hb, _ := db.Get(algo)
	return ha == hb, nil
}
