package acquire

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
)

var sqliteBytes = []byte("SQLite format 3\x00rest of the page")

func memFs(t *testing.T, files map[string][]byte) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for p, data := range files {
		if err := afero.WriteFile(fs, p, data, 0600); err != nil {
			t.Fatal(err)
		}
	}
	return fs
}

func TestIsArtifact(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"msgstore.db", true},
		{"msgstore-2024-01-01.1.db.crypt14", true},
		{"wa.db", true},
		{"key", true},
		{"chatsettings.db", true},
		{"notes.txt", false},
		{"other.db", false},
	}
	for _, tt := range tests {
		if got := IsArtifact(tt.name); got != tt.want {
			t.Errorf("IsArtifact(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestFromDirectory(t *testing.T) {
	fs := memFs(t, map[string][]byte{
		"/src/WhatsApp/Databases/msgstore.db.crypt14":              {0, 0, 0, 1},
		"/src/WhatsApp/Databases/msgstore-2024-01-01.1.db.crypt14": {0, 0, 0, 2},
		"/src/WhatsApp/Media/WhatsApp Images/IMG-1.jpg":            []byte("jpeg"),
		"/src/WhatsApp/Media/WhatsApp Images/IMG-2.jpg":            []byte("jpeg2"),
		"/src/data/databases/msgstore.db":                          sqliteBytes,
		"/src/data/databases/wa.db":                                []byte("garbage"),
		"/src/data/files/key":                                      make([]byte, 158),
		"/src/backup/msgstore.db":                                  sqliteBytes,
		"/src/unrelated.txt":                                       []byte("x"),
	})
	a := New(nil, WithFs(fs))

	files, err := a.FromDirectory("/src", "/case/acquired")
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{
		"/src/WhatsApp/Databases/msgstore.db.crypt14":              "/case/acquired/msgstore.db.crypt14",
		"/src/WhatsApp/Databases/msgstore-2024-01-01.1.db.crypt14": "/case/acquired/msgstore-2024-01-01.1.db.crypt14",
		"/src/WhatsApp/Media":                                      "/case/acquired/Media",
		"/src/backup/msgstore.db":                                  "/case/acquired/msgstore.db",
		"/src/data/databases/msgstore.db":                          "/case/acquired/msgstore-1.db",
		"/src/data/databases/wa.db":                                "/case/acquired/wa.db",
		"/src/data/files/key":                                      "/case/acquired/key",
	}
	if len(files) != len(want) {
		t.Fatalf("got %d files, want %d: %v", len(files), len(want), files)
	}
	for src, dst := range want {
		if files[src] != filepath.FromSlash(dst) {
			t.Errorf("files[%s] = %q, want %q", src, files[src], dst)
		}
	}
	if ok, _ := afero.Exists(fs, "/case/acquired/Media/WhatsApp Images/IMG-2.jpg"); !ok {
		t.Error("media file not copied")
	}

	s, err := a.Summarize(files)
	if err != nil {
		t.Fatal(err)
	}
	counts := map[Kind]int{}
	for _, art := range s.Artifacts {
		counts[art.Kind]++
	}
	if counts[KindDatabase] != 3 || counts[KindEncrypted] != 2 || counts[KindKey] != 1 || counts[KindMedia] != 1 {
		t.Errorf("counts = %v", counts)
	}
	if _, ok := s.Find(KindDatabase, func(n string) bool { return n == "wa.db" }); ok {
		t.Error("garbage wa.db reported as a valid database")
	}
	if s.TotalSize != int64(4+4+4+5+len(sqliteBytes)*2+7+158) {
		t.Errorf("total size = %d", s.TotalSize)
	}
	if !strings.Contains(s.String(), "not a valid SQLite database") {
		t.Errorf("summary does not flag invalid database:\n%s", s)
	}
}

func TestFromDirectoryMissing(t *testing.T) {
	a := New(nil, WithFs(afero.NewMemMapFs()))
	if _, err := a.FromDirectory("/nope", "/case"); err == nil {
		t.Error("expected error for missing source")
	}
}

func TestFromFile(t *testing.T) {
	fs := memFs(t, map[string][]byte{"/in/msgstore.db.crypt12": {1, 2, 3}})
	a := New(nil, WithFs(fs))
	files, err := a.FromFile("/in/msgstore.db.crypt12", "/case/acquired")
	if err != nil {
		t.Fatal(err)
	}
	got, _ := afero.ReadFile(fs, files["/in/msgstore.db.crypt12"])
	if string(got) != "\x01\x02\x03" {
		t.Errorf("copied bytes = %v", got)
	}
}

type fakeADB struct {
	fs      afero.Fs
	devices string
	pulled  map[string][]byte
	hang    string
	calls   [][]string
}

func (f *fakeADB) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	if len(args) >= 2 && args[0] == "-s" {
		args = args[2:]
	}
	switch args[0] {
	case "devices":
		return []byte(f.devices), nil
	case "pull":
		remote, local := args[1], args[2]
		if remote == f.hang {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		data, ok := f.pulled[remote]
		if !ok {
			return []byte("remote object does not exist"), errors.New("exit status 1")
		}
		return nil, afero.WriteFile(f.fs, local, data, 0600)
	}
	return nil, errors.New("unexpected command")
}

func TestFromDevice(t *testing.T) {
	fs := afero.NewMemMapFs()
	runner := &fakeADB{
		fs:      fs,
		devices: "List of devices attached\nSER1\tdevice\n\n",
		pulled: map[string][]byte{
			"/data/data/com.whatsapp/files/key":               make([]byte, 158),
			"/sdcard/WhatsApp/Databases/msgstore.db.crypt14": {0, 0, 0},
		},
		hang: "/data/data/com.whatsapp/databases/msgstore.db",
	}
	a := New(nil, WithFs(fs), WithRunner(runner), WithADB("/opt/adb", 20*time.Millisecond))

	files, err := a.FromDevice(context.Background(), "SER1", "/case/acquired")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Fatalf("got %v, want key and crypt14", files)
	}
	if files["/data/data/com.whatsapp/files/key"] != filepath.Join("/case/acquired", "key") {
		t.Errorf("key dest = %q", files["/data/data/com.whatsapp/files/key"])
	}
	if runner.calls[0][0] != "/opt/adb" || runner.calls[0][1] != "-s" || runner.calls[0][2] != "SER1" {
		t.Errorf("first call = %v", runner.calls[0])
	}
	if len(runner.calls) != 1+len(DevicePaths) {
		t.Errorf("got %d adb calls, want %d", len(runner.calls), 1+len(DevicePaths))
	}
}

func TestFromDeviceWithoutDevice(t *testing.T) {
	tests := []struct {
		name    string
		devices string
		serial  string
	}{
		{"empty", "List of devices attached\n\n", ""},
		{"unauthorized", "List of devices attached\nSER1\tunauthorized\n", ""},
		{"other serial", "List of devices attached\nSER2\tdevice\n", "SER1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(nil, WithFs(afero.NewMemMapFs()), WithRunner(&fakeADB{devices: tt.devices}))
			_, err := a.FromDevice(context.Background(), tt.serial, "/case")
			if !errors.Is(err, ErrNoDevice) {
				t.Errorf("err = %v, want ErrNoDevice", err)
			}
		})
	}
}
