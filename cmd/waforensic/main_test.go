package main

import (
	"bytes"
	"context"
	"database/sql"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/matheus3301/waforensic/internal/config"
	"github.com/matheus3301/waforensic/internal/integrity"
	_ "github.com/mattn/go-sqlite3"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func testDatabase(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "msgstore.db")
	db, err := sql.Open("sqlite3", p)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()
	for _, stmt := range []string{
		`CREATE TABLE chat_list (_id INTEGER PRIMARY KEY, key_remote_jid TEXT, subject TEXT)`,
		`CREATE TABLE messages (_id INTEGER PRIMARY KEY, key_remote_jid TEXT, key_from_me INTEGER, timestamp INTEGER, data TEXT)`,
		`INSERT INTO chat_list VALUES (1, '111@s.whatsapp.net', NULL)`,
		`INSERT INTO messages VALUES (1, '111@s.whatsapp.net', 0, 1000, 'hi there'), (2, '111@s.whatsapp.net', 1, 2000, 'bye')`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatal(err)
		}
	}
	return p
}

func testConfigFile(t *testing.T) string {
	t.Helper()
	cfg := config.Default()
	cfg.OutputDir = t.TempDir()
	cfg.LogLevel = "error"
	p := filepath.Join(t.TempDir(), "config.toml")
	if err := config.Save(p, cfg); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestDetectAndHash(t *testing.T) {
	db := testDatabase(t)

	out, err := run(t, "detect", db)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "unencrypted") {
		t.Errorf("detect: got %q", out)
	}

	d, err := integrity.HashFile(db)
	if err != nil {
		t.Fatal(err)
	}
	out, err = run(t, "hash", db)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{d.MD5, d.SHA256, d.SHA512} {
		if !strings.Contains(out, want) {
			t.Errorf("hash output missing %s", want)
		}
	}

	if _, err := run(t, "hash", "--expect", d.SHA256, db); err != nil {
		t.Errorf("expect matching digest: %v", err)
	}
	if _, err := run(t, "hash", "--expect", d.MD5, db); err == nil {
		t.Error("expect wrong digest: no error")
	}
	if _, err := run(t, "hash", "--algo", "md5", "--expect", d.MD5, db); err != nil {
		t.Errorf("expect md5: %v", err)
	}
}

func TestParseSearchVerify(t *testing.T) {
	cfgPath := testConfigFile(t)
	db := testDatabase(t)
	global := []string{"--config", cfgPath, "--case", "case-cli"}

	out, err := run(t, append(global, "parse", "--msgstore", db, "--format", "json", "--record", "R-1")...)
	if err != nil {
		t.Fatalf("parse: %v\n%s", err, out)
	}
	for _, want := range []string{"case-cli", "Messages:", "Report:"} {
		if !strings.Contains(out, want) {
			t.Errorf("parse output missing %q:\n%s", want, out)
		}
	}

	out, err = run(t, append(global, "search", "hi")...)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !strings.Contains(out, "<<hi>>") {
		t.Errorf("search output: %q", out)
	}

	out, err = run(t, append(global, "verify")...)
	if err != nil {
		t.Fatalf("verify: %v\n%s", err, out)
	}
	if got := strings.Count(out, "verified"); got != 2 {
		t.Errorf("verified rows: got %d, want 2\n%s", got, out)
	}
}

func TestCaseCommandsRequireExistingCase(t *testing.T) {
	cfgPath := testConfigFile(t)
	for _, args := range [][]string{
		{"--config", cfgPath, "search", "x"},
		{"--config", cfgPath, "--case", "missing", "verify"},
	} {
		if _, err := run(t, args...); err == nil {
			t.Errorf("%v: expected error", args)
		}
	}
}

func TestFullRejectsBadSource(t *testing.T) {
	if _, err := run(t, "--config", testConfigFile(t), "full", "--source", "ftp"); err == nil {
		t.Fatal("expected error")
	}
	if _, err := run(t, "--config", testConfigFile(t), "full", "--source", "file"); err == nil {
		t.Fatal("expected error for missing input")
	}
}

func TestFormatFlag(t *testing.T) {
	configured := []string{config.FormatHTML}
	tests := []struct {
		flag []string
		want []string
	}{
		{nil, configured},
		{[]string{"csv"}, []string{"csv"}},
		{[]string{"json", "all"}, []string{config.FormatHTML, config.FormatJSON, config.FormatCSV}},
	}
	for _, tt := range tests {
		if got := formatFlag(tt.flag, configured); !slices.Equal(got, tt.want) {
			t.Errorf("formatFlag(%v): got %v, want %v", tt.flag, got, tt.want)
		}
	}
}

func TestExtractFlagsApply(t *testing.T) {
	cfg := config.Default()
	ef := extractFlags{chatLimit: -1, messageLimit: 5}
	ef.apply(cfg)
	if cfg.Parse.ChatLimit != config.Default().Parse.ChatLimit || cfg.Parse.MessageLimit != 5 {
		t.Errorf("got %+v", cfg.Parse)
	}
}
