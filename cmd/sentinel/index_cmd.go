package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sergiogswv/sentinel/internal/bootstrap"
	"github.com/sergiogswv/sentinel/internal/index"
	"github.com/sergiogswv/sentinel/internal/model"
	"github.com/sergiogswv/sentinel/internal/ui"
)

func newIndexCmd() *cobra.Command {
	var check, rebuild bool

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Inspect or rebuild the structural index",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			switch {
			case rebuild:
				return runIndexRebuild(cmd.Context(), app)
			case check:
				return runIndexCheck(cmd.Context(), app)
			default:
				return runIndexCheck(cmd.Context(), app)
			}
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "report whether the index is stale relative to disk")
	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "truncate and fully re-parse the project")
	return cmd
}

func runIndexCheck(ctx context.Context, app *bootstrap.App) error {
	diskFiles, err := walkIndexable(app)
	if err != nil {
		return fmt.Errorf("walk project: %w", err)
	}

	indexed, err := app.Index.IndexedFileCount(ctx)
	if err != nil {
		return fmt.Errorf("indexed file count: %w", err)
	}

	if index.IsStale(indexed, len(diskFiles)) {
		ui.Warn(fmt.Sprintf("index is stale: %d file(s) on disk, %d indexed (run `sentinel index --rebuild`)", len(diskFiles), indexed))
		return nil
	}
	ui.Success(fmt.Sprintf("index is current: %d file(s) on disk, %d indexed", len(diskFiles), indexed))
	return nil
}

func runIndexRebuild(ctx context.Context, app *bootstrap.App) error {
	diskFiles, err := walkIndexable(app)
	if err != nil {
		return fmt.Errorf("walk project: %w", err)
	}

	if err := app.Index.Truncate(ctx); err != nil {
		return fmt.Errorf("truncate index: %w", err)
	}

	total := len(diskFiles)
	for i, path := range diskFiles {
		content, err := os.ReadFile(path)
		if err != nil {
			app.Log.Warn("index.rebuild.read_error", zap.Error(err))
			continue
		}
		relPath, err := filepath.Rel(app.ProjectRoot, path)
		if err != nil {
			relPath = path
		}
		res, err := app.Parser.ParseFile(ctx, path, content)
		if err != nil {
			app.Log.Warn("index.rebuild.parse_error", zap.Error(err))
			continue
		}
		hash := sha256.Sum256(content)
		rec := model.FileRecord{
			Path:          relPath,
			LastIndexedAt: time.Now(),
			ContentHash:   hex.EncodeToString(hash[:]),
		}
		if err := app.Index.WriteFile(ctx, rec, res); err != nil {
			app.Log.Warn("index.rebuild.write_error", zap.Error(err))
			continue
		}
		ui.Progress("indexing", i+1, total)
	}
	fmt.Println()
	ui.Success(fmt.Sprintf("rebuilt index over %d file(s)", total))
	return nil
}

// walkIndexable returns every file under the project root matching a
// configured extension and not excluded by an ignore pattern.
func walkIndexable(app *bootstrap.App) ([]string, error) {
	var out []string
	err := filepath.WalkDir(app.ProjectRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(app.ProjectRoot, path)
		if relErr != nil {
			rel = path
		}
		if d.IsDir() {
			if rel != "." && matchesIgnorePattern(app.Config.Ignore, rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if matchesIgnorePattern(app.Config.Ignore, rel) {
			return nil
		}
		if !app.Config.HasExtension(strings.ToLower(filepath.Ext(path))) {
			return nil
		}
		out = append(out, path)
		return nil
	})
	return out, err
}

func matchesIgnorePattern(patterns []string, rel string) bool {
	for _, p := range patterns {
		if strings.Contains(rel, p) {
			return true
		}
	}
	return false
}
