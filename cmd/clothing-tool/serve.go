package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/FjamZoo/clothing-tool/internal/catalog"
	"github.com/FjamZoo/clothing-tool/internal/logger"
)

func serveCmd() *cli.Command {
	var (
		addr        string
		outputDir   string
		readTimeout time.Duration
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve rendered previews and the catalog over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8080",
				Destination: &addr,
			},
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "directory holding previews/ and catalog.json",
				Value:       "./output",
				Destination: &outputDir,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)

			fileCfg, err := loadConfig()
			if err != nil {
				return err
			}
			addr = orFile(cmd, "addr", addr, fileCfg.ServerAddress)
			outputDir = orFile(cmd, "output", outputDir, fileCfg.OutputDir)

			catalogPath := filepath.Join(outputDir, "catalog.json")
			if _, err := os.Stat(catalogPath); err != nil {
				log.Warn("catalog not found, run render first", "path", catalogPath)
			}

			e := newPreviewServer(outputDir)
			e.Use(middleware.RequestLogger())

			log.Info("starting preview server", "address", addr, "output", outputDir)
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}

// newPreviewServer builds the echo instance with all preview routes.
func newPreviewServer(outputDir string) *echo.Echo {
	catalogPath := filepath.Join(outputDir, "catalog.json")
	previewDir := filepath.Join(outputDir, "previews")

	e := echo.New()
	e.Use(middleware.Recover())

	e.GET("/healthz", func(c *echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/api/catalog", func(c *echo.Context) error {
		doc, err := catalog.Load(catalogPath)
		if err != nil {
			return echo.NewHTTPError(http.StatusNotFound, "catalog not available")
		}
		return c.JSON(http.StatusOK, doc)
	})
	e.GET("/previews/:name", func(c *echo.Context) error {
		// Base strips any traversal components from the parameter.
		name := filepath.Base(c.Param("name"))
		data, err := os.ReadFile(filepath.Join(previewDir, name))
		if err != nil {
			return echo.NewHTTPError(http.StatusNotFound, "preview not found")
		}
		res := c.Response()
		res.Header().Set(echo.HeaderContentType, "image/png")
		_, err = res.Write(data)
		return err
	})

	return e
}
