// ABOUTME: Orphaned image garbage collection for the conversation store
// ABOUTME: Best-effort sweep that reports failures instead of swallowing them

package store

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// CleanupOrphanedImages walks imagesDir (including per-conversation
// subdirectories) and removes every file whose path is not referenced by any
// message. A missing or unreadable directory is treated as having no files
// to clean. Individual delete failures are counted in the report and logged,
// but never abort the sweep.
//
// The database lock is held only while collecting referenced paths, never
// during the filesystem walk.
func (s *SQLiteStore) CleanupOrphanedImages(ctx context.Context, imagesDir string) (*CleanupReport, error) {
	referenced, err := s.referencedImagePaths(ctx)
	if err != nil {
		return nil, fmt.Errorf("collecting referenced images: %w", err)
	}

	report := &CleanupReport{}

	if _, err := os.Stat(imagesDir); err != nil {
		// Missing or unreadable directory: nothing to clean
		return report, nil
	}

	err = filepath.WalkDir(imagesDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries count as nothing to clean
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := referenced[path]; ok {
			return nil
		}

		if err := os.Remove(path); err != nil {
			report.Failed++
			s.logger.Warn("failed to remove orphaned image", "path", path, "error", err)
			return nil
		}
		report.Removed++
		s.logger.Debug("removed orphaned image", "path", path)
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("walking images directory: %w", err)
	}

	if report.Removed > 0 || report.Failed > 0 {
		s.logger.Info("image cleanup complete", "removed", report.Removed, "failed", report.Failed)
	}
	return report, nil
}
