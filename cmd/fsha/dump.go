package main

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"
)

func dumpCmd() *cli.Command {
	var (
		modelName string
		compact   bool
	)

	return &cli.Command{
		Name:      "dump",
		Usage:     "Print the decoded archive as JSON",
		ArgsUsage: "<file.bfsha>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "model",
				Aliases:     []string{"m"},
				Usage:       "dump only this shader model",
				Destination: &modelName,
			},
			&cli.BoolFlag{Name: "compact", Usage: "single-line output", Destination: &compact},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			a, err := openArg(ctx, c)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			var v any = a.Container
			if modelName != "" {
				m, err := pickModel(a.Container, modelName)
				if err != nil {
					return err
				}
				v = m
			}
			enc := json.NewEncoder(outWriter(c))
			if !compact {
				enc.SetIndent("", "  ")
			}
			if err := enc.Encode(v); err != nil {
				return cli.Exit(fmt.Sprintf("error: encode json: %v", err), 1)
			}
			return nil
		},
	}
}
