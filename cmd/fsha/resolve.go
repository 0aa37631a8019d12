package main

import (
	"context"
	"fmt"

	"github.com/samcharles93/fsha/internal/material"
	"github.com/urfave/cli/v3"
)

func resolveCmd() *cli.Command {
	var (
		modelName  string
		presetPath string
		pairs      []string
	)

	return &cli.Command{
		Name:      "resolve",
		Usage:     "Find the program compiled for a set of option choices",
		ArgsUsage: "<file.bfsha>",
		Flags: []cli.Flag{
			modelFlag(&modelName, false),
			&cli.StringFlag{
				Name:        "preset",
				Aliases:     []string{"p"},
				Usage:       "option preset file (.yaml, .yml, .json)",
				Destination: &presetPath,
			},
			&cli.StringSliceFlag{
				Name:        "option",
				Aliases:     []string{"o"},
				Usage:       "option choice as name=choice (repeatable, overrides the preset)",
				Destination: &pairs,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			var preset *material.Preset
			if presetPath != "" {
				p, err := material.Load(presetPath)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: load preset: %v", err), 1)
				}
				preset = p
			}
			overrides, err := material.ParsePairs(pairs)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			preset = material.Merge(preset, overrides)
			if modelName == "" {
				modelName = preset.Model
			}

			a, err := openArg(ctx, c)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			m, err := pickModel(a.Container, modelName)
			if err != nil {
				return err
			}
			index, found, err := m.ProgramIndex(preset.Options)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: resolve: %v", err), 1)
			}
			if !found {
				return cli.Exit(fmt.Sprintf("no program of %s matches %v", m.Name, preset.Options), 2)
			}
			_, _ = fmt.Fprintln(outWriter(c), index)
			return nil
		},
	}
}
