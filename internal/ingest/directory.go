package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// ScanDirectory walks root and returns every allowed document, in walk
// order. Files whose contents match an earlier file are returned with
// Deduplicated set. Unreadable entries are reported, not fatal.
func ScanDirectory(ctx context.Context, root string, skipHidden bool, dedup *Deduper) ([]Document, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root_path is required")
	}
	if dedup == nil {
		dedup = NewDeduper()
	}

	var results []Document
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, Document{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil // continue walking
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		hex, err := HashFile(path)
		if err != nil {
			results = append(results, Document{Path: path, Err: err.Error()})
			stats.Failed++
			return nil
		}
		_, dup := dedup.Seen(hex, path)
		results = append(results, Document{Path: path, HashHex: hex, Deduplicated: dup})
		if dup {
			stats.Deduplicated++
		} else {
			stats.Accepted++
		}
		return nil
	})

	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	return results, stats, nil
}
