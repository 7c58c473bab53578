package main

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/FjamZoo/clothing-tool/internal/logger"
	"github.com/FjamZoo/clothing-tool/internal/rsc7"
	"github.com/FjamZoo/clothing-tool/internal/ytd"
)

type inspectTexture struct {
	Name      string `json:"name"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Format    string `json:"format"`
	MipLevels int    `json:"mip_levels"`
	Stride    int    `json:"stride"`
	DataBytes int    `json:"data_bytes"`
	Diffuse   bool   `json:"diffuse"`
}

func inspectCmd() *cli.Command {
	var asJSON bool

	return &cli.Command{
		Name:      "inspect",
		Usage:     "List the textures inside a .ytd resource",
		ArgsUsage: "<file.ytd>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "machine-readable output", Destination: &asJSON},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return fmt.Errorf("expected exactly one .ytd file argument")
			}
			path := cmd.Args().First()
			log := logger.FromContext(ctx)

			res, err := rsc7.ParseFile(path, log)
			if err != nil {
				return err
			}
			textures, err := ytd.Parse(res.Virtual, res.Physical, log)
			if err != nil {
				return err
			}
			diffuse := ytd.SelectDiffuse(textures)

			if asJSON {
				out := make([]inspectTexture, 0, len(textures))
				for i := range textures {
					t := &textures[i]
					out = append(out, inspectTexture{
						Name:      t.Name,
						Width:     int(t.Width),
						Height:    int(t.Height),
						Format:    t.Format.Name,
						MipLevels: int(t.MipLevels),
						Stride:    int(t.Stride),
						DataBytes: len(t.RawData),
						Diffuse:   diffuse == &textures[i],
					})
				}
				data, err := json.MarshalIndent(out, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			fmt.Printf("%s: version %d, %d texture(s)\n", path, res.Version, len(textures))
			for i := range textures {
				t := &textures[i]
				marker := " "
				if diffuse == &textures[i] {
					marker = "*"
				}
				fmt.Printf("%s %-40s %5dx%-5d %-10s mips=%-2d %d bytes\n",
					marker, t.Name, t.Width, t.Height, t.Format.Name, t.MipLevels, len(t.RawData))
			}
			return nil
		},
	}
}
