package acquire

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// artifactNames are the fixed file names collected from a directory tree.
var artifactNames = map[string]bool{
	"msgstore.db":         true,
	"msgstore.db.crypt12": true,
	"msgstore.db.crypt14": true,
	"msgstore.db.crypt15": true,
	"wa.db":               true,
	"axolotl.db":          true,
	"chatsettings.db":     true,
	"key":                 true,
}

// IsArtifact reports whether a file name is collected by FromDirectory.
func IsArtifact(name string) bool {
	if artifactNames[name] {
		return true
	}
	for _, ext := range []string{".crypt12", ".crypt14", ".crypt15"} {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// FromDirectory walks srcDir and copies every WhatsApp artifact into
// dstDir. A Media directory below a WhatsApp directory is copied whole.
// Files that cannot be copied are logged and skipped.
func (a *Acquirer) FromDirectory(srcDir, dstDir string) (Files, error) {
	info, err := a.fs.Stat(srcDir)
	if err != nil {
		return nil, fmt.Errorf("source directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source %s is not a directory", srcDir)
	}
	if err := a.fs.MkdirAll(dstDir, 0700); err != nil {
		return nil, err
	}

	files := make(Files)
	err = afero.Walk(a.fs, srcDir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			a.logger.Warn("skipping unreadable path", zap.String("path", p), zap.Error(err))
			return nil
		}
		if info.IsDir() {
			if info.Name() == "Media" && strings.Contains(filepath.Dir(p), "WhatsApp") {
				dst := filepath.Join(dstDir, "Media")
				if err := a.copyTree(p, dst); err != nil {
					a.logger.Warn("could not copy media directory", zap.String("path", p), zap.Error(err))
				} else {
					files[p] = dst
				}
				return filepath.SkipDir
			}
			return nil
		}
		if !IsArtifact(info.Name()) {
			return nil
		}
		dst := a.uniquePath(filepath.Join(dstDir, info.Name()))
		if err := a.copyFile(p, dst, info); err != nil {
			a.logger.Warn("could not copy artifact", zap.String("path", p), zap.Error(err))
			return nil
		}
		files[p] = dst
		a.logger.Info("acquired", zap.String("source", p), zap.String("dest", dst))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", srcDir, err)
	}
	a.logger.Info("directory acquisition complete", zap.Int("files", len(files)))
	return files, nil
}

func (a *Acquirer) copyTree(src, dst string) error {
	if err := a.fs.RemoveAll(dst); err != nil {
		return err
	}
	return afero.Walk(a.fs, src, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return a.fs.MkdirAll(target, 0700)
		}
		return a.copyFile(p, target, info)
	})
}
