package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/quantkit/internal/conformance"
	"github.com/samcharles93/quantkit/internal/kernels"
	"github.com/samcharles93/quantkit/internal/metrics"
)

func verifyCmd() *cli.Command {
	var (
		suitePath  string
		scalarOnly bool
	)

	return &cli.Command{
		Name:  "verify",
		Usage: "Run conformance suites against the kernels",
		Flags: append(loggingFlags(),
			&cli.StringFlag{
				Name:        "suite",
				Aliases:     []string{"s"},
				Usage:       "path to a YAML suite file (default: built-in suite)",
				Destination: &suitePath,
			},
			&cli.BoolFlag{
				Name:        "scalar-only",
				Usage:       "skip the vectorized kernel path",
				Destination: &scalarOnly,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyVerifyConfig(cmd, LoadConfig(), &suitePath)
			log := newLogger()

			suite := conformance.DefaultSuite()
			if suitePath != "" {
				loaded, err := conformance.Load(suitePath)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				suite = loaded
			}
			log.Info("running suite", "name", suite.Name, "cases", len(suite.Cases))

			paths := []struct {
				name string
				ops  kernels.Ops
			}{
				{"scalar", kernels.ScalarOps{}},
			}
			if !scalarOnly {
				paths = append(paths, struct {
					name string
					ops  kernels.Ops
				}{"default", kernels.DefaultOps{}})
			}

			failed := 0
			for _, p := range paths {
				res := suite.Run(p.ops)
				metrics.RecordConformance(res.Passed, len(res.Failures))
				for _, f := range res.Failures {
					fmt.Printf("FAIL [%s] %s\n", p.name, f)
				}
				fmt.Printf("%s path: %d/%d cases passed\n", p.name, res.Passed, res.Passed+len(res.Failures))
				failed += len(res.Failures)
			}

			if failed > 0 {
				return cli.Exit(fmt.Sprintf("error: %d case(s) failed", failed), 1)
			}
			return nil
		},
	}
}
