package integrity

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestHashFileKnownVectors(t *testing.T) {
	path := writeFile(t, "abc", "abc")
	d, err := HashFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if d.MD5 != "900150983cd24fb0d6963f7d28e17f72" {
		t.Errorf("md5 = %s", d.MD5)
	}
	if d.SHA256 != "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad" {
		t.Errorf("sha256 = %s", d.SHA256)
	}
	if !strings.HasPrefix(d.SHA512, "ddaf35a193617aba") {
		t.Errorf("sha512 = %s", d.SHA512)
	}
	if d.Size != 3 {
		t.Errorf("size = %d, want 3", d.Size)
	}
}

func TestHashFileLargerThanChunk(t *testing.T) {
	content := strings.Repeat("0123456789", 10000)
	a, err := HashFile(writeFile(t, "big", content))
	if err != nil {
		t.Fatal(err)
	}
	b, err := HashReader(strings.NewReader(content))
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("file digest %+v != reader digest %+v", a, b)
	}
}

func TestVerify(t *testing.T) {
	path := writeFile(t, "abc", "abc")
	tests := []struct {
		name     string
		expected string
		algo     Algorithm
		want     bool
		wantErr  bool
	}{
		{"md5 match", "900150983cd24fb0d6963f7d28e17f72", MD5, true, false},
		{"upper case match", "900150983CD24FB0D6963F7D28E17F72", MD5, true, false},
		{"sha256 mismatch", "00", SHA256, false, false},
		{"algo case insensitive", "900150983cd24fb0d6963f7d28e17f72", "MD5", true, false},
		{"unsupported", "x", "crc32", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Verify(path, tt.expected, tt.algo)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Verify() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Verify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVerifyMissingFile(t *testing.T) {
	if _, err := Verify(filepath.Join(t.TempDir(), "nope"), "x", SHA256); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestCompare(t *testing.T) {
	a := writeFile(t, "a", "same")
	b := writeFile(t, "b", "same")
	c := writeFile(t, "c", "different")

	same, err := Compare(a, b, SHA512)
	if err != nil {
		t.Fatal(err)
	}
	if !same {
		t.Error("identical files compared unequal")
	}
	same, err = Compare(a, c, SHA256)
	if err != nil {
		t.Fatal(err)
	}
	if same {
		t.Error("different files compared equal")
	}
}
