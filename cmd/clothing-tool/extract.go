package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/FjamZoo/clothing-tool/internal/dds"
	"github.com/FjamZoo/clothing-tool/internal/logger"
	"github.com/FjamZoo/clothing-tool/internal/renderpool"
	"github.com/FjamZoo/clothing-tool/internal/rsc7"
	"github.com/FjamZoo/clothing-tool/internal/ytd"
)

func extractCmd() *cli.Command {
	var (
		outputDir   string
		diffuseOnly bool
		variants    bool
	)

	return &cli.Command{
		Name:      "extract",
		Usage:     "Extract textures from a .ytd resource as DDS files",
		ArgsUsage: "<file.ytd>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "output directory",
				Value:       ".",
				Destination: &outputDir,
			},
			&cli.BoolFlag{
				Name:        "diffuse",
				Usage:       "extract only the diffuse texture",
				Destination: &diffuseOnly,
			},
			&cli.BoolFlag{
				Name:        "variants",
				Usage:       "also extract sibling variant .ytd files",
				Destination: &variants,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return fmt.Errorf("expected exactly one .ytd file argument")
			}
			path := cmd.Args().First()
			log := logger.FromContext(ctx)

			if variants {
				paths, err := renderpool.ExtractTextures(path, outputDir, log)
				if err != nil {
					return err
				}
				for _, p := range paths {
					fmt.Println(p)
				}
				return nil
			}

			res, err := rsc7.ParseFile(path, log)
			if err != nil {
				return err
			}
			textures, err := ytd.Parse(res.Virtual, res.Physical, log)
			if err != nil {
				return err
			}

			if diffuseOnly {
				diffuse := ytd.SelectDiffuse(textures)
				if diffuse == nil {
					return fmt.Errorf("no diffuse texture in %s", path)
				}
				textures = []ytd.Texture{*diffuse}
			}

			if err := os.MkdirAll(outputDir, 0o755); err != nil {
				return err
			}
			for i := range textures {
				t := &textures[i]
				if len(t.RawData) == 0 {
					log.Warn("skipping texture with no data", "name", t.Name)
					continue
				}
				blob, err := dds.Build(t)
				if err != nil {
					log.Warn("skipping texture", "name", t.Name, "err", err)
					continue
				}
				name := t.Name
				if name == "" {
					name = fmt.Sprintf("texture_%d", i)
				}
				name = strings.ReplaceAll(strings.ReplaceAll(name, "/", "_"), "\\", "_")
				out := filepath.Join(outputDir, name+".dds")
				if err := os.WriteFile(out, blob, 0o644); err != nil {
					return err
				}
				fmt.Println(out)
			}
			return nil
		},
	}
}
