package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/FjamZoo/clothing-tool/internal/catalog"
	"github.com/FjamZoo/clothing-tool/internal/logger"
	"github.com/FjamZoo/clothing-tool/internal/renderpool"
)

func renderCmd() *cli.Command {
	var (
		outputDir   string
		blenderPath string
		scriptPath  string
		workers     int
		jobTimeout  time.Duration
		renderSize  int
		taaSamples  int
		outputSize  int
		noGreenFix  bool
	)

	return &cli.Command{
		Name:      "render",
		Usage:     "Render 3D previews for all .ytd/.ydd pairs under a directory",
		ArgsUsage: "<dir>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "output directory for previews and catalog.json",
				Value:       "./output",
				Destination: &outputDir,
			},
			&cli.StringFlag{
				Name:        "blender-path",
				Usage:       "path to the Blender executable (default: auto-detect)",
				Destination: &blenderPath,
			},
			&cli.StringFlag{
				Name:        "blender-script",
				Usage:       "worker-mode render script passed to Blender",
				Destination: &scriptPath,
			},
			&cli.IntFlag{
				Name:        "workers",
				Usage:       "number of persistent render workers",
				Value:       renderpool.DefaultConfig().Workers,
				Destination: &workers,
			},
			&cli.DurationFlag{
				Name:        "job-timeout",
				Usage:       "per-job render timeout",
				Value:       renderpool.DefaultConfig().JobTimeout,
				Destination: &jobTimeout,
			},
			&cli.IntFlag{
				Name:        "render-size",
				Usage:       "Blender render resolution in px (0 = worker default)",
				Destination: &renderSize,
			},
			&cli.IntFlag{
				Name:        "taa-samples",
				Usage:       "TAA render samples (0 = worker default)",
				Destination: &taaSamples,
			},
			&cli.IntFlag{
				Name:        "output-size",
				Usage:       "final preview size in px",
				Value:       renderpool.DefaultConfig().OutputSize,
				Destination: &outputSize,
			},
			&cli.BoolFlag{
				Name:        "no-green-fix",
				Usage:       "disable green hair tint replacement",
				Destination: &noGreenFix,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return fmt.Errorf("expected exactly one directory argument")
			}
			root := cmd.Args().First()
			log := logger.FromContext(ctx)

			fileCfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			outputDir = orFile(cmd, "output", outputDir, fileCfg.OutputDir)

			// Defaults, then config file, then explicitly set flags.
			var flagOverrides renderpool.Overrides
			if cmd.IsSet("blender-path") {
				flagOverrides.BlenderPath = &blenderPath
			}
			if cmd.IsSet("blender-script") {
				flagOverrides.ScriptPath = &scriptPath
			}
			if cmd.IsSet("workers") {
				flagOverrides.Workers = &workers
			}
			if cmd.IsSet("job-timeout") {
				flagOverrides.JobTimeout = &jobTimeout
			}
			if cmd.IsSet("render-size") {
				flagOverrides.RenderSize = &renderSize
			}
			if cmd.IsSet("taa-samples") {
				flagOverrides.TAASamples = &taaSamples
			}
			if cmd.IsSet("output-size") {
				flagOverrides.OutputSize = &outputSize
			}
			if cmd.IsSet("no-green-fix") {
				greenFix := !noGreenFix
				flagOverrides.GreenHairFix = &greenFix
			}
			cfg := renderpool.DefaultConfig().
				With(fileCfg.renderOverrides(cmd)).
				With(flagOverrides)
			if cfg.BlenderPath == "" {
				cfg.BlenderPath = renderpool.FindBlender()
			}
			if cfg.BlenderPath == "" && len(cfg.Command) == 0 {
				return fmt.Errorf("blender executable not found; pass --blender-path")
			}

			items, err := discoverItems(root, outputDir)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				log.Warn("no .ytd/.ydd pairs found", "dir", root)
				return nil
			}
			log.Info("discovered render items", "count", len(items))

			results := renderpool.RenderBatch(items, cfg, log)

			entries := make([]catalog.Entry, 0, len(results))
			succeeded := 0
			for _, r := range results {
				if r.Success {
					succeeded++
				}
				entries = append(entries, catalog.Entry{
					Key:     r.Key,
					Name:    r.Texture.Name,
					Width:   r.Texture.Width,
					Height:  r.Texture.Height,
					Format:  r.Texture.Format,
					Preview: r.OutputPath,
					Error:   r.Err,
				})
			}
			catalogPath := filepath.Join(outputDir, "catalog.json")
			if err := catalog.Write(catalogPath, entries); err != nil {
				return fmt.Errorf("write catalog: %w", err)
			}

			fmt.Printf("rendered %d/%d previews, catalog at %s\n",
				succeeded, len(results), catalogPath)
			return nil
		},
	}
}

// discoverItems walks root for .ytd files with a same-stem .ydd sibling.
// Keys come from the root-relative path so same-named files in different
// subdirectories stay distinct.
func discoverItems(root, outputDir string) ([]renderpool.BatchItem, error) {
	var items []renderpool.BatchItem
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".ytd") {
			return nil
		}
		stem := strings.TrimSuffix(path, filepath.Ext(path))
		model := stem + ".ydd"
		if _, err := os.Stat(model); err != nil {
			return nil
		}
		key := itemKey(root, stem)
		items = append(items, renderpool.BatchItem{
			Key:         key,
			TexturePath: path,
			ModelPath:   model,
			OutputPath:  filepath.Join(outputDir, "previews", key+".png"),
		})
		return nil
	})
	return items, err
}

// itemKey flattens the root-relative stem into a filesystem-safe key.
func itemKey(root, stem string) string {
	rel, err := filepath.Rel(root, stem)
	if err != nil {
		rel = filepath.Base(stem)
	}
	return strings.ReplaceAll(filepath.ToSlash(rel), "/", "_")
}
