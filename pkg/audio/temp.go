package audio

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// TempPath returns a unique path in dir (os.TempDir() when empty) with the
// given extension. The file is not created.
func TempPath(dir, ext string) string {
	if dir == "" {
		dir = os.TempDir()
	}
	ext = strings.TrimPrefix(ext, ".")
	name := "lingvox_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if ext != "" {
		name += "." + ext
	}
	return filepath.Join(dir, name)
}

// Remove deletes path and ignores a missing file. It is meant for deferred
// cleanup of temp files.
func Remove(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("audio: remove temp file", "path", path, "err", err)
	}
}
