package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/quantkit/internal/tensor"
	"github.com/samcharles93/quantkit/pkg/qdesc"
)

func inspectCmd() *cli.Command {
	var preview int64

	return &cli.Command{
		Name:      "inspect",
		Usage:     "Print header and sample values of a fixture file",
		ArgsUsage: "<fixture.qtf>",
		Flags: append(loggingFlags(),
			&cli.Int64Flag{
				Name:        "preview",
				Usage:       "number of leading values to print (0 disables)",
				Value:       8,
				Destination: &preview,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyCommonConfig(cmd, LoadConfig())

			if cmd.Args().Len() != 1 {
				return cli.Exit("error: expected exactly one fixture path", 1)
			}
			path := cmd.Args().First()

			fx, err := qdesc.Open(path)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			defer func() { _ = fx.Close() }()

			fmt.Printf("path:   %s\n", path)
			fmt.Printf("dtype:  %s\n", fx.DType)
			fmt.Printf("dims:   %v\n", fx.Dims)
			fmt.Printf("elems:  %d\n", fx.NumElems())
			fmt.Printf("bytes:  %d\n", len(fx.Payload))

			if preview > 0 && fx.DType.IsQuantized() {
				payload := make([]byte, len(fx.Payload))
				copy(payload, fx.Payload)
				t, err := tensor.FromRaw(fx.DType, fx.Dims, payload)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				vals := tensor.Int64Values(t)
				if int64(len(vals)) > preview {
					vals = vals[:preview]
				}
				fmt.Printf("values: %v ...\n", vals)
			}
			return nil
		},
	}
}
