package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/samcharles93/fsha/internal/archive"
	"github.com/samcharles93/fsha/pkg/fsha"
	"github.com/urfave/cli/v3"
)

func inspectCmd() *cli.Command {
	var (
		showOptions  bool
		showBindings bool
	)

	return &cli.Command{
		Name:      "inspect",
		Usage:     "Print the header and shader models of an archive",
		ArgsUsage: "<file.bfsha>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "options", Usage: "list option choices per model", Destination: &showOptions},
			&cli.BoolFlag{Name: "bindings", Usage: "list attributes, samplers and uniform blocks", Destination: &showBindings},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			a, err := openArg(ctx, c)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			w := outWriter(c)
			printArchiveHeader(w, a)
			for _, m := range a.Container.Models.All() {
				printModelSummary(w, m)
				if showOptions {
					printOptions(w, m)
				}
				if showBindings {
					printBindings(w, m)
				}
			}
			return nil
		},
	}
}

func printArchiveHeader(w io.Writer, a *archive.Archive) {
	ct := a.Container
	_, _ = fmt.Fprintf(w, "FSHA Inspect: %s\n", a.Name)
	_, _ = fmt.Fprintf(w, "Size:       %s\n", formatBytes(uint64(a.Size)))
	_, _ = fmt.Fprintf(w, "Platform:   %s\n", ct.Platform)
	_, _ = fmt.Fprintf(w, "Version:    %s\n", ct.Version)
	order := "little"
	if ct.BigEndian {
		order = "big"
	}
	_, _ = fmt.Fprintf(w, "Byte order: %s endian\n", order)
	_, _ = fmt.Fprintf(w, "Alignment:  %d\n", ct.DataAlignment())
	_, _ = fmt.Fprintf(w, "Name:       %s\n", ct.Name)
	if ct.Path != "" {
		_, _ = fmt.Fprintf(w, "Path:       %s\n", ct.Path)
	}
	_, _ = fmt.Fprintf(w, "Models:     %d\n", ct.Models.Len())
}

func printModelSummary(w io.Writer, m *fsha.ShaderModel) {
	_, _ = fmt.Fprintf(w, "\nModel %s\n", m.Name)
	_, _ = fmt.Fprintf(w, "  options:        %d static, %d dynamic\n", m.StaticOptions.Len(), m.DynamicOptions.Len())
	_, _ = fmt.Fprintf(w, "  programs:       %d (default %d)\n", len(m.Programs), m.DefaultProgramIndex)
	_, _ = fmt.Fprintf(w, "  key length:     %d static + %d dynamic words\n", m.StaticKeyLength, m.DynamicKeyLength)
	_, _ = fmt.Fprintf(w, "  attributes:     %d\n", m.Attributes.Len())
	_, _ = fmt.Fprintf(w, "  samplers:       %d\n", m.Samplers.Len())
	_, _ = fmt.Fprintf(w, "  uniform blocks: %d\n", m.UniformBlocks.Len())
	if data := m.EmbeddedBytes(); data != nil {
		_, _ = fmt.Fprintf(w, "  embedded BNSH:  %s\n", formatBytes(uint64(len(data))))
	}
}

func printOptions(w io.Writer, m *fsha.ShaderModel) {
	for _, dynamic := range []bool{false, true} {
		opts, kind := m.StaticOptions, "static"
		if dynamic {
			opts, kind = m.DynamicOptions, "dynamic"
		}
		for name, o := range opts.All() {
			_, _ = fmt.Fprintf(w, "  %-7s %s = {%s} default %s\n", kind, name, strings.Join(o.ChoiceNames(), ", "), o.DefaultChoice())
		}
	}
}

func printBindings(w io.Writer, m *fsha.ShaderModel) {
	for name, at := range m.Attributes.All() {
		_, _ = fmt.Fprintf(w, "  attribute %s (index %d)\n", name, at.Index)
	}
	for name, s := range m.Samplers.All() {
		if s.Annotation != "" {
			_, _ = fmt.Fprintf(w, "  sampler   %s (index %d, %s)\n", name, s.Index, s.Annotation)
			continue
		}
		_, _ = fmt.Fprintf(w, "  sampler   %s (index %d)\n", name, s.Index)
	}
	for name, b := range m.UniformBlocks.All() {
		_, _ = fmt.Fprintf(w, "  block     %s (%s, %d bytes, %d uniforms)\n", name, b.Type, b.Size, b.Uniforms.Len())
	}
}
