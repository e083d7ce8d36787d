package outputs

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"hlspack/internal/fileutil"
	"hlspack/internal/logging"
	"hlspack/internal/workflow"
)

// Tree describes one job output directory under the output base.
type Tree struct {
	Name     string    `json:"name"`
	Path     string    `json:"path"`
	ModTime  time.Time `json:"mod_time"`
	Size     int64     `json:"size"`
	Complete bool      `json:"complete"`
	Active   bool      `json:"active"`
}

// CleanResult contains the outcome of a cleanup pass.
type CleanResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// List returns the job trees directly under baseDir, newest first. A missing
// base directory yields no trees.
func List(baseDir string) ([]Tree, error) {
	baseDir = strings.TrimSpace(baseDir)
	if baseDir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var trees []Tree
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(baseDir, entry.Name())
		size, _ := fileutil.DirSize(path)
		trees = append(trees, Tree{
			Name:     entry.Name(),
			Path:     path,
			ModTime:  info.ModTime(),
			Size:     size,
			Complete: fileExists(filepath.Join(path, workflow.MasterPlaylistName)),
			Active:   isLocked(path),
		})
	}
	sort.SliceStable(trees, func(i, j int) bool {
		return trees[i].ModTime.After(trees[j].ModTime)
	})
	return trees, nil
}

// CleanIncomplete removes trees without a master playlist that are older
// than maxAge. Trees locked by a running job are never touched.
func CleanIncomplete(ctx context.Context, baseDir string, maxAge time.Duration, logger *slog.Logger) (CleanResult, error) {
	result := CleanResult{}
	trees, err := List(baseDir)
	if err != nil {
		return result, err
	}
	cutoff := time.Now().Add(-maxAge)

	for _, tree := range trees {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if tree.Complete || tree.Active || !tree.ModTime.Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(tree.Path); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: tree.Path, Error: err})
			if logger != nil {
				logging.WarnWithContext(logger, "failed to remove incomplete output tree", "output_cleanup_failed",
					logging.String("path", tree.Path),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check output_dir permissions"),
					logging.String(logging.FieldImpact, "disk space not reclaimed"),
				)
			}
			continue
		}
		result.Removed = append(result.Removed, tree.Path)
		if logger != nil {
			logger.Info("removed incomplete output tree",
				logging.String("path", tree.Path),
				logging.Duration("age", time.Since(tree.ModTime)),
				logging.String(logging.FieldEventType, "output_cleanup"),
			)
		}
	}
	return result, nil
}

// isLocked reports whether another process holds the tree's output lock.
func isLocked(dir string) bool {
	lockPath := filepath.Join(dir, workflow.LockFileName)
	if !fileExists(lockPath) {
		return false
	}
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return false
	}
	if ok {
		_ = lock.Unlock()
		return false
	}
	return true
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
