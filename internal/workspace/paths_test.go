package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestValidateID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "case1", false},
		{"case number", "2024-001", false},
		{"mixed case", "Smith.Investigation_2", false},
		{"max length", strings.Repeat("a", 64), false},
		{"empty", "", true},
		{"leading dot", ".hidden", true},
		{"space", "my case", true},
		{"too long", strings.Repeat("a", 65), true},
		{"slash", "a/b", true},
		{"parent", "..", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		flag, configured, want string
	}{
		{"flag", "cfg", "flag"},
		{"", "cfg", "cfg"},
		{"", "", "case-20240102-030405"},
	}
	for _, tt := range tests {
		if got := Resolve(tt.flag, tt.configured, now); got != tt.want {
			t.Errorf("Resolve(%q, %q) = %q, want %q", tt.flag, tt.configured, got, tt.want)
		}
	}
	if err := ValidateID(NewID(now)); err != nil {
		t.Errorf("generated id invalid: %v", err)
	}
}

func TestCaseLayout(t *testing.T) {
	out := t.TempDir()
	c, err := Open(out, "case1")
	if err != nil {
		t.Fatal(err)
	}
	if c.Root != filepath.Join(out, "case1") {
		t.Errorf("Root = %q", c.Root)
	}
	if !strings.HasSuffix(c.LogPath(), filepath.Join("case1", "logs", "waforensic.log")) {
		t.Errorf("LogPath = %q", c.LogPath())
	}
	if err := c.EnsureDirs(); err != nil {
		t.Fatal(err)
	}
	for _, d := range []string{c.AcquiredDir(), c.DecryptedDir(), c.ReportDir(), c.LogDir()} {
		info, err := os.Stat(d)
		if err != nil {
			t.Fatalf("%s not created: %v", d, err)
		}
		if info.Mode().Perm() != 0700 {
			t.Errorf("%s permission = %o, want 0700", d, info.Mode().Perm())
		}
	}

	if _, err := Open(out, "../escape"); err == nil {
		t.Error("Open accepted an invalid id")
	}
}
