package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/quantkit/internal/tensor"
	"github.com/samcharles93/quantkit/pkg/qdesc"
)

func packCmd() *cli.Command {
	var (
		dtypeName string
		dimsFlag  string
		seed      int64
		outPath   string
	)

	return &cli.Command{
		Name:  "pack",
		Usage: "Generate a seeded tensor fixture file",
		Flags: append(loggingFlags(),
			&cli.StringFlag{
				Name:        "dtype",
				Aliases:     []string{"t"},
				Usage:       "element type (u8, i8, u16, i16)",
				Value:       "u8",
				Destination: &dtypeName,
			},
			&cli.StringFlag{
				Name:        "dims",
				Aliases:     []string{"d"},
				Usage:       "tensor dims, e.g. 64x256",
				Value:       "64x256",
				Destination: &dimsFlag,
			},
			&cli.Int64Flag{
				Name:        "seed",
				Usage:       "value generation seed",
				Value:       42,
				Destination: &seed,
			},
			&cli.StringFlag{
				Name:        "out",
				Aliases:     []string{"o"},
				Usage:       "output path",
				Required:    true,
				Destination: &outPath,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyCommonConfig(cmd, LoadConfig())
			log := newLogger()

			dt, err := qdesc.ParseDType(dtypeName)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			if !dt.IsQuantized() {
				return cli.Exit(fmt.Sprintf("error: dtype %s is not a quantized element type", dt), 1)
			}
			dims, err := parseDims(dimsFlag)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			t := tensor.New(dt, dims...)
			fillRandom(t, seed)
			if err := qdesc.WriteFile(outPath, dt, dims, t.Raw()); err != nil {
				return cli.Exit(fmt.Sprintf("error: write fixture: %v", err), 1)
			}
			log.Info("fixture written",
				"path", outPath,
				"dtype", dt.String(),
				"dims", dims,
				"bytes", len(t.Raw()),
			)
			return nil
		},
	}
}
