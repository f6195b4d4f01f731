package staging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cardkeep/internal/logging"
)

// CleanStaleResult contains the outcome of a stale session cleanup.
type CleanStaleResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a file path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanStale removes staging session files untouched for longer than
// maxAge, along with their undo snapshots and leftover temp files.
// Abandoned sessions otherwise accumulate staged stock that a later
// commit would merge by surprise.
func CleanStale(ctx context.Context, stagingDir string, maxAge time.Duration, logger *slog.Logger) CleanStaleResult {
	result := CleanStaleResult{}
	if logger == nil {
		logger = logging.NewNop()
	}

	stagingDir = strings.TrimSpace(stagingDir)
	if stagingDir == "" {
		return result
	}

	entries, err := os.ReadDir(stagingDir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: stagingDir, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)

	for _, entry := range entries {
		if ctx.Err() != nil {
			return result
		}
		if entry.IsDir() || !staleCandidate(entry.Name()) {
			continue
		}

		path := filepath.Join(stagingDir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		if err := os.Remove(path); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			logger.Warn("failed to remove stale staging file",
				logging.String("path", path),
				logging.Error(err))
			continue
		}
		result.Removed = append(result.Removed, path)
		logger.Info("removed stale staging file",
			logging.String("path", path),
			logging.Duration("age", time.Since(info.ModTime())))
	}

	return result
}

func staleCandidate(name string) bool {
	switch {
	case strings.HasSuffix(name, ".json"),
		strings.HasSuffix(name, ".tmp"),
		strings.HasSuffix(name, ".lock"):
		return true
	}
	return false
}
