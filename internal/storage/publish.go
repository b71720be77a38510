/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package storage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// PublishResult summarizes an upload of a build directory.
type PublishResult struct {
	Objects int
	Bytes   int64
}

// PublishDir uploads every regular file under dir to store, keyed by its
// slash separated path relative to dir.
func PublishDir(ctx context.Context, store ObjectStore, dir string, logger zerolog.Logger) (PublishResult, error) {
	var result PublishResult

	info, err := os.Stat(dir)
	if err != nil {
		return result, fmt.Errorf("stat build dir: %w", err)
	}
	if !info.IsDir() {
		return result, fmt.Errorf("build dir %s is not a directory", dir)
	}

	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)

		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read %s: %w", rel, err)
		}
		if err := store.Put(ctx, key, data, ContentTypeFor(key)); err != nil {
			return err
		}

		result.Objects++
		result.Bytes += int64(len(data))
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("publish %s: %w", dir, err)
	}

	logger.Info().
		Str("dir", dir).
		Int("objects", result.Objects).
		Int64("bytes", result.Bytes).
		Msg("directory published")
	return result, nil
}
