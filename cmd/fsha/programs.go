package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/samcharles93/fsha/pkg/fsha"
	"github.com/urfave/cli/v3"
)

func programsCmd() *cli.Command {
	var (
		modelName string
		index     int64
		dynamic   bool
	)

	return &cli.Command{
		Name:      "programs",
		Usage:     "List the option choices each program was compiled for",
		ArgsUsage: "<file.bfsha>",
		Flags: []cli.Flag{
			modelFlag(&modelName, false),
			&cli.Int64Flag{
				Name:        "index",
				Aliases:     []string{"i"},
				Usage:       "only this program (-1 = all)",
				Value:       -1,
				Destination: &index,
			},
			&cli.BoolFlag{Name: "dynamic", Usage: "include dynamic options", Value: true, Destination: &dynamic},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			a, err := openArg(ctx, c)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			m, err := pickModel(a.Container, modelName)
			if err != nil {
				return err
			}
			first, last := 0, len(m.Programs)-1
			if index >= 0 {
				if _, err := m.Program(int(index)); err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				first, last = int(index), int(index)
			}
			w := outWriter(c)
			for p := first; p <= last; p++ {
				if err := printProgram(w, m, p, dynamic); err != nil {
					return cli.Exit(fmt.Sprintf("error: program %d: %v", p, err), 1)
				}
			}
			return nil
		},
	}
}

func printProgram(w io.Writer, m *fsha.ShaderModel, p int, dynamic bool) error {
	key, err := m.ProgramKey(p)
	if err != nil {
		return err
	}
	choices, err := m.ProgramChoices(p)
	if err != nil {
		return err
	}
	words := make([]string, len(key))
	for i, k := range key {
		words[i] = fmt.Sprintf("%08x", uint32(k))
	}
	marker := ""
	if int32(p) == m.DefaultProgramIndex {
		marker = " (default)"
	}
	_, _ = fmt.Fprintf(w, "program %d%s key [%s]\n", p, marker, strings.Join(words, " "))
	for _, ch := range choices {
		if ch.Dynamic && !dynamic {
			continue
		}
		kind := "static"
		if ch.Dynamic {
			kind = "dynamic"
		}
		_, _ = fmt.Fprintf(w, "  %-7s %s = %s\n", kind, ch.Option, ch.Choice)
	}
	return nil
}
