package download

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/snagd/snagd/pkg/logger"
)

const workDirPrefix = "job-"

var workDirLog = logger.Get("WorkDir")

// WorkDir is a process-local directory owned exclusively by a single
// job for its lifetime. It is created before extraction begins and
// released (recursively deleted, best-effort) when the job ends,
// success or failure. A WorkDir is never reused across jobs.
type WorkDir struct {
	Path     string
	released bool
}

// AcquireWorkDir creates a fresh directory under root for the given job.
func AcquireWorkDir(root string, jobID uuid.UUID) (*WorkDir, error) {
	path := filepath.Join(root, fmt.Sprintf("%s%s", workDirPrefix, jobID))
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create working directory %s: %w", path, err)
	}

	return &WorkDir{Path: path}, nil
}

// Release recursively removes the directory. Failure to remove is
// logged, not surfaced; the startup sweep will catch leftovers.
func (wd *WorkDir) Release() {
	if wd.released {
		return
	}
	wd.released = true

	if err := os.RemoveAll(wd.Path); err != nil {
		workDirLog.Warnf("Failed to remove working directory %s: %v\n", wd.Path, err)
		return
	}
	workDirLog.Emit(logger.REMOVE, "Released working directory %s\n", wd.Path)
}

// List returns the names of the regular files currently in the
// directory. Subdirectories are ignored; the extraction engine is
// configured to write flat.
func (wd *WorkDir) List() ([]string, error) {
	entries, err := os.ReadDir(wd.Path)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}

	return names, nil
}

// SweepOrphans removes job directories left behind by a previous
// process crash. Called once at startup before any job is admitted.
func SweepOrphans(root string) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if !os.IsNotExist(err) {
			workDirLog.Warnf("Orphan sweep of %s failed: %v\n", root, err)
		}
		return
	}

	swept := 0
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), workDirPrefix) {
			continue
		}

		path := filepath.Join(root, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			workDirLog.Warnf("Failed to sweep orphaned directory %s: %v\n", path, err)
			continue
		}
		swept++
	}

	if swept > 0 {
		workDirLog.Emit(logger.REMOVE, "Swept %d orphaned working directories from %s\n", swept, root)
	}
}
