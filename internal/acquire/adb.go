package acquire

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// DevicePaths are pulled from the device, in order.
var DevicePaths = []string{
	"/data/data/com.whatsapp/databases/msgstore.db",
	"/data/data/com.whatsapp/databases/wa.db",
	"/data/data/com.whatsapp/databases/axolotl.db",
	"/data/data/com.whatsapp/files/key",
	"/sdcard/WhatsApp/Databases/msgstore.db.crypt12",
	"/sdcard/WhatsApp/Databases/msgstore.db.crypt14",
	"/sdcard/WhatsApp/Databases/msgstore.db.crypt15",
	"/sdcard/WhatsApp/Media",
}

// ErrNoDevice is returned when adb lists no attached device.
var ErrNoDevice = errors.New("no android device connected via adb")

// Runner executes external commands.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

func (a *Acquirer) adbArgs(serial string, args ...string) []string {
	if serial == "" {
		return args
	}
	return append([]string{"-s", serial}, args...)
}

// FromDevice pulls the known WhatsApp paths from an attached device into
// dstDir. serial selects a device when several are attached. Each pull is
// bounded by the configured timeout; failed pulls are logged and skipped.
func (a *Acquirer) FromDevice(ctx context.Context, serial, dstDir string) (Files, error) {
	out, err := a.runner.Run(ctx, a.adbPath, a.adbArgs(serial, "devices")...)
	if err != nil {
		return nil, fmt.Errorf("adb devices: %w", err)
	}
	if !hasDevice(out, serial) {
		return nil, ErrNoDevice
	}
	if err := a.fs.MkdirAll(dstDir, 0700); err != nil {
		return nil, err
	}

	files := make(Files)
	for _, remote := range DevicePaths {
		if err := ctx.Err(); err != nil {
			return files, err
		}
		dst := filepath.Join(dstDir, path.Base(remote))
		pullCtx, cancel := context.WithTimeout(ctx, a.timeout)
		out, err := a.runner.Run(pullCtx, a.adbPath, a.adbArgs(serial, "pull", remote, dst)...)
		timedOut := errors.Is(pullCtx.Err(), context.DeadlineExceeded)
		cancel()
		switch {
		case timedOut:
			a.logger.Warn("adb pull timed out", zap.String("path", remote), zap.Duration("timeout", a.timeout))
			continue
		case err != nil:
			a.logger.Warn("could not acquire", zap.String("path", remote),
				zap.String("output", strings.TrimSpace(string(out))), zap.Error(err))
			continue
		}
		if _, err := a.fs.Stat(dst); err != nil {
			a.logger.Warn("adb pull produced no file", zap.String("path", remote))
			continue
		}
		files[remote] = dst
		a.logger.Info("acquired", zap.String("source", remote), zap.String("dest", dst))
	}
	a.logger.Info("adb acquisition complete", zap.Int("files", len(files)))
	return files, nil
}

// hasDevice reports whether `adb devices` output lists a ready device, the
// given serial when one is set.
func hasDevice(out []byte, serial string) bool {
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) != 2 || fields[1] != "device" {
			continue
		}
		if serial == "" || fields[0] == serial {
			return true
		}
	}
	return false
}
