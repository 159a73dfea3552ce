package rum

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/shirou/gopsutil/v3/host"

	"rumbridge/internal/logging"
)

const deviceIDFile = "device_id"

// loadDeviceID returns the id stored in dir, creating it on first use. An
// empty dir yields a fresh id that lives only as long as the process.
func loadDeviceID(dir string) (string, error) {
	if dir == "" {
		return newDeviceID()
	}
	path := filepath.Join(dir, deviceIDFile)
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if id := strings.TrimSpace(string(raw)); id != "" {
			return id, nil
		}
	case !errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("read device id: %w", err)
	}

	id, err := newDeviceID()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("write device id: %w", err)
	}
	return id, nil
}

func newDeviceID() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("device id entropy: %w", err)
	}
	return base58.Encode(b[:]), nil
}

func collectDeviceContext() map[string]string {
	info, err := host.Info()
	if err != nil {
		logging.For("rum").Warn("host info unavailable", "err", err)
		return map[string]string{"os": runtime.GOOS, "arch": runtime.GOARCH}
	}
	return map[string]string{
		"os":               info.OS,
		"platform":         info.Platform,
		"platform_version": info.PlatformVersion,
		"kernel_arch":      info.KernelArch,
		"hostname":         info.Hostname,
	}
}
