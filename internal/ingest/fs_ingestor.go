package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/pallet-scanner/constants"
)

// FSIngestor expands local files and directories into an ordered scan list.
type FSIngestor struct {
	opts   Options
	logger *slog.Logger
}

func NewFSIngestor(opts Options, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{opts: opts, logger: logger}
}

// Collect walks each root in order. Files given explicitly and files found
// under directories are filtered the same way. The returned paths are the
// accepted, non-duplicate files; results carry one entry per matched file.
func (i *FSIngestor) Collect(roots []string) ([]string, []IngestionResult, DirStats) {
	var (
		paths   []string
		results []IngestionResult
		stats   DirStats
	)
	seenPath := map[string]struct{}{}
	seenHash := map[string]string{}

	accept := func(path string) {
		stats.Matched++
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		if _, ok := seenPath[abs]; ok {
			stats.Deduplicated++
			results = append(results, IngestionResult{SourcePath: path, Deduplicated: true})
			return
		}
		seenPath[abs] = struct{}{}

		r := IngestionResult{SourcePath: path, FileExt: constants.NormalizeExt(filepath.Ext(path))}
		if i.opts.SkipDuplicates {
			sum, err := hashFile(path)
			if err != nil {
				i.logger.Error("hash failed", "path", path, "error", err)
				r.Err = err.Error()
				stats.Failed++
				results = append(results, r)
				return
			}
			r.HashHex = sum
			if first, ok := seenHash[sum]; ok {
				i.logger.Info("skipping duplicate content", "path", path, "same_as", first)
				r.Deduplicated = true
				stats.Deduplicated++
				results = append(results, r)
				return
			}
			seenHash[sum] = path
		}
		stats.Succeeded++
		results = append(results, r)
		paths = append(paths, path)
	}

	for _, root := range roots {
		root = strings.TrimSpace(root)
		if root == "" {
			continue
		}
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			stats.Scanned++
			if walkErr != nil {
				results = append(results, IngestionResult{SourcePath: path, Err: walkErr.Error()})
				stats.Failed++
				return nil
			}
			if i.opts.SkipHidden && path != root && IsHidden(path) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			if !AllowedExt(i.opts.AllowedExts, filepath.Ext(path)) {
				i.logger.Debug("skipping unsupported extension", "path", path)
				return nil
			}
			accept(path)
			return nil
		})
		if err != nil {
			results = append(results, IngestionResult{SourcePath: root, Err: fmt.Sprintf("walk: %v", err)})
			stats.Failed++
		}
	}

	i.logger.Info("collected inputs",
		"roots", len(roots),
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"accepted", stats.Succeeded,
		"deduplicated", stats.Deduplicated,
		"failed", stats.Failed,
	)
	return paths, results, stats
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
