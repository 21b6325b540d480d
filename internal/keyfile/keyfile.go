package keyfile

import (
	"errors"
	"fmt"
	"os"
)

const (
	// Size is the length of the symmetric backup key.
	Size = 32
	// CanonicalFileSize is the length of the key file written by the app.
	CanonicalFileSize = 158
	// KeyOffset is where the key starts inside a canonical key file.
	KeyOffset = 126
)

// ErrInvalidKeyFile is returned when the key file is missing or too short.
var ErrInvalidKeyFile = errors.New("invalid key file")

// Key is the raw AES-256 key extracted from a key file.
type Key [Size]byte

// Bytes returns a copy of the key as a slice.
func (k Key) Bytes() []byte {
	b := make([]byte, Size)
	copy(b, k[:])
	return b
}

// Load reads the key file at path and extracts the key.
func Load(path string) (Key, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Key{}, fmt.Errorf("%w: %s: %w", ErrInvalidKeyFile, path, err)
	}
	return Parse(data)
}

// Parse extracts the key from a key-file blob. A canonical 158-byte (or longer)
// blob carries the key at offset 126; shorter blobs of at least 32 bytes are
// treated as holding the raw key in their trailing 32 bytes.
func Parse(data []byte) (Key, error) {
	var k Key
	var raw []byte
	switch {
	case len(data) >= CanonicalFileSize:
		raw = data[KeyOffset:]
	case len(data) >= Size:
		raw = data[len(data)-Size:]
	default:
		return k, fmt.Errorf("%w: %d bytes, need at least %d", ErrInvalidKeyFile, len(data), Size)
	}
	if len(raw) != Size {
		return k, fmt.Errorf("%w: key region is %d bytes, want %d", ErrInvalidKeyFile, len(raw), Size)
	}
	copy(k[:], raw)
	return k, nil
}
