package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/FjamZoo/clothing-tool/internal/logger"
)

var (
	logLevel  string
	logFormat string
)

func main() {
	app := &cli.Command{
		Name:  "clothing-tool",
		Usage: "Extract and preview clothing textures from .ytd resources",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error)",
				Value:       "info",
				Destination: &logLevel,
			},
			&cli.StringFlag{
				Name:        "log-format",
				Usage:       "log format (pretty, text, json)",
				Value:       "pretty",
				Destination: &logFormat,
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			fileCfg, err := loadConfig()
			if err != nil {
				return ctx, err
			}
			logLevel = orFile(cmd, "log-level", logLevel, fileCfg.LogLevel)
			logFormat = orFile(cmd, "log-format", logFormat, fileCfg.LogFormat)
			return logger.WithContext(ctx, buildLogger()), nil
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			inspectCmd(),
			extractCmd(),
			renderCmd(),
			serveCmd(),
			versionCmd(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildLogger() logger.Logger {
	level := slog.LevelInfo
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	switch logFormat {
	case "json":
		return logger.JSON(os.Stderr, level)
	case "text":
		return logger.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	default:
		return logger.Pretty(os.Stderr, level)
	}
}
