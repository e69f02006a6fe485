package main

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/quantkit/internal/api"
	"github.com/samcharles93/quantkit/internal/kernels"
)

func serveCmd() *cli.Command {
	var (
		addr        string
		readTimeout time.Duration
		scalar      bool
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the kernel REST API",
		Flags: append(loggingFlags(),
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
			&cli.BoolFlag{
				Name:        "scalar",
				Usage:       "force the scalar kernel path",
				Destination: &scalar,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyServeConfig(cmd, LoadConfig(), &addr)
			log := newLogger()

			var ops kernels.Ops = kernels.DefaultOps{}
			if scalar {
				ops = kernels.ScalarOps{}
			}
			server := api.NewServer(ops, log)
			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.Register(e)

			log.Info("starting server",
				"address", addr,
				"avx2", kernels.Features().HasAVX2,
				"scalar", scalar,
			)
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
