package crypt

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
)

// SQLiteHeader is the 16-byte signature at the start of every SQLite database.
var SQLiteHeader = []byte("SQLite format 3\x00")

// Detect classifies the file at path. It never fails: unreadable or
// unrecognized input is reported as Unencrypted and left for the decryption
// stage to reject.
func Detect(path string) Type {
	header := make([]byte, len(SQLiteHeader))
	f, err := os.Open(path)
	if err == nil {
		n, _ := io.ReadFull(f, header)
		header = header[:n]
		_ = f.Close()
	} else {
		header = nil
	}
	return DetectBytes(filepath.Base(path), header)
}

// DetectBytes classifies a file from its name and its first bytes. A SQLite
// signature always wins over the extension.
func DetectBytes(name string, header []byte) Type {
	if bytes.HasPrefix(header, SQLiteHeader) {
		return Unencrypted
	}
	if t, ok := typeFromExt(name); ok {
		return t
	}
	if len(header) >= 3 && header[0] == 0 && header[1] == 0 && header[2] == 0 {
		return Crypt14
	}
	return Unencrypted
}
