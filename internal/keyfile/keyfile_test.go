package keyfile

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeKeyFile(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "key")
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadCanonical(t *testing.T) {
	data := make([]byte, CanonicalFileSize)
	for i := range data {
		data[i] = byte(i)
	}
	k, err := Load(writeKeyFile(t, data))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !bytes.Equal(k[:], data[KeyOffset:]) {
		t.Errorf("key = %x, want %x", k[:], data[KeyOffset:])
	}
}

func TestLoadAllZero(t *testing.T) {
	k, err := Load(writeKeyFile(t, make([]byte, CanonicalFileSize)))
	if err != nil {
		t.Fatal(err)
	}
	if len(k.Bytes()) != Size {
		t.Errorf("key length = %d, want %d", len(k.Bytes()), Size)
	}
	if k != (Key{}) {
		t.Errorf("key = %x, want all zero", k[:])
	}
}

func TestParseTrailingKey(t *testing.T) {
	for n := Size; n < CanonicalFileSize; n++ {
		data := make([]byte, n)
		for i := range data {
			data[i] = byte(i * 7)
		}
		k, err := Parse(data)
		if err != nil {
			t.Fatalf("Parse(%d bytes) error = %v", n, err)
		}
		if !bytes.Equal(k[:], data[n-Size:]) {
			t.Errorf("Parse(%d bytes) = %x, want trailing 32 bytes", n, k[:])
		}
	}
}

func TestParseTooShort(t *testing.T) {
	for _, n := range []int{0, 1, 16, Size - 1} {
		_, err := Parse(make([]byte, n))
		if !errors.Is(err, ErrInvalidKeyFile) {
			t.Errorf("Parse(%d bytes) error = %v, want ErrInvalidKeyFile", n, err)
		}
	}
}

func TestParseOversized(t *testing.T) {
	_, err := Parse(make([]byte, CanonicalFileSize+1))
	if !errors.Is(err, ErrInvalidKeyFile) {
		t.Errorf("error = %v, want ErrInvalidKeyFile", err)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope"))
	if !errors.Is(err, ErrInvalidKeyFile) {
		t.Errorf("error = %v, want ErrInvalidKeyFile", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error = %v, want wrapped os.ErrNotExist", err)
	}
}

func TestBytesIsCopy(t *testing.T) {
	var k Key
	b := k.Bytes()
	b[0] = 0xff
	if k[0] != 0 {
		t.Error("Bytes() must not alias the key")
	}
}
