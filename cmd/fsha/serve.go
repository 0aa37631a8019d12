package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/samcharles93/fsha/internal/api"
	"github.com/samcharles93/fsha/internal/archive"
	"github.com/samcharles93/fsha/internal/logger"
	"github.com/urfave/cli/v3"
)

func serveCmd() *cli.Command {
	var (
		addr        string
		readTimeout time.Duration
		maxUpload   int64
	)

	return &cli.Command{
		Name:      "serve",
		Usage:     "Browse archives over HTTP",
		ArgsUsage: "[file.bfsha...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8080",
				Destination: &addr,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
			&cli.Int64Flag{
				Name:        "max-upload",
				Usage:       "largest accepted upload in bytes",
				Value:       api.DefaultMaxUploadSize,
				Destination: &maxUpload,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyServeConfig(cmd, LoadConfig(), &addr)

			store := api.NewArchiveStore()
			defer func() { _ = store.Close() }()
			opts := archiveOptions(ctx)
			for _, path := range cmd.Args().Slice() {
				a, err := archive.Open(path, opts)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: open archive: %v", err), 1)
				}
				store.Add(a)
			}

			server := api.NewServer(store, opts)
			server.SetMaxUploadSize(maxUpload)
			e := echo.New()
			e.Logger = logger.Slog(log)
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.Register(e)
			log.Info("starting server", "address", addr, "archives", cmd.Args().Len())
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
