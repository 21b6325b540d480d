package acquire

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/matheus3301/waforensic/internal/crypt"
	"github.com/spf13/afero"
)

// Kind classifies an acquired artifact.
type Kind string

const (
	KindDatabase  Kind = "database"
	KindEncrypted Kind = "encrypted"
	KindKey       Kind = "key"
	KindMedia     Kind = "media"
	KindOther     Kind = "other"
)

// Artifact is one acquired file or media directory.
type Artifact struct {
	Source string
	Path   string
	Kind   Kind
	Size   int64
	// Valid is false for a .db file without an SQLite header.
	Valid bool
}

// Summary groups the acquired artifacts by kind.
type Summary struct {
	Artifacts []Artifact
	TotalSize int64
}

// ByKind returns the artifacts of one kind in path order.
func (s *Summary) ByKind(k Kind) []Artifact {
	var out []Artifact
	for _, a := range s.Artifacts {
		if a.Kind == k {
			out = append(out, a)
		}
	}
	return out
}

// Find returns the first valid artifact of kind k whose base name satisfies
// match.
func (s *Summary) Find(k Kind, match func(name string) bool) (Artifact, bool) {
	for _, a := range s.ByKind(k) {
		if a.Valid && match(filepath.Base(a.Path)) {
			return a, true
		}
	}
	return Artifact{}, false
}

func (s *Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d artifacts, %s\n", len(s.Artifacts), humanize.Bytes(uint64(s.TotalSize)))
	for _, k := range []Kind{KindDatabase, KindEncrypted, KindKey, KindMedia, KindOther} {
		arts := s.ByKind(k)
		if len(arts) == 0 {
			continue
		}
		fmt.Fprintf(&b, "  %s (%d)\n", k, len(arts))
		for _, a := range arts {
			note := ""
			if !a.Valid {
				note = " [not a valid SQLite database]"
			}
			fmt.Fprintf(&b, "    %s  %s%s\n", a.Path, humanize.Bytes(uint64(a.Size)), note)
		}
	}
	return b.String()
}

// Summarize classifies acquired files. Databases are checked for the SQLite
// header.
func (a *Acquirer) Summarize(files Files) (*Summary, error) {
	s := &Summary{}
	for src, dst := range files {
		info, err := a.fs.Stat(dst)
		if err != nil {
			return nil, fmt.Errorf("summarize %s: %w", dst, err)
		}
		art := Artifact{Source: src, Path: dst, Kind: classify(dst, info), Valid: true}
		if info.IsDir() {
			art.Size, err = dirSize(a.fs, dst)
			if err != nil {
				return nil, err
			}
		} else {
			art.Size = info.Size()
		}
		if art.Kind == KindDatabase {
			art.Valid, err = a.isSQLite(dst)
			if err != nil {
				return nil, err
			}
		}
		s.TotalSize += art.Size
		s.Artifacts = append(s.Artifacts, art)
	}
	sort.Slice(s.Artifacts, func(i, j int) bool { return s.Artifacts[i].Path < s.Artifacts[j].Path })
	return s, nil
}

func classify(p string, info os.FileInfo) Kind {
	name := filepath.Base(p)
	switch {
	case info.IsDir() || strings.Contains(p, string(filepath.Separator)+"Media"+string(filepath.Separator)) || name == "Media":
		return KindMedia
	case strings.HasSuffix(name, ".db"):
		return KindDatabase
	case strings.HasSuffix(name, ".crypt12"), strings.HasSuffix(name, ".crypt14"), strings.HasSuffix(name, ".crypt15"):
		return KindEncrypted
	case name == "key":
		return KindKey
	default:
		return KindOther
	}
}

func (a *Acquirer) isSQLite(p string) (bool, error) {
	f, err := a.fs.Open(p)
	if err != nil {
		return false, err
	}
	defer func() { _ = f.Close() }()
	header := make([]byte, len(crypt.SQLiteHeader))
	if _, err := io.ReadFull(f, header); err != nil {
		return false, nil
	}
	return bytes.Equal(header, crypt.SQLiteHeader), nil
}

func dirSize(fs afero.Fs, dir string) (int64, error) {
	var total int64
	err := afero.Walk(fs, dir, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return total, err
}
