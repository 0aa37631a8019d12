package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/samcharles93/fsha/internal/archive"
	"github.com/samcharles93/fsha/internal/logger"
	"github.com/samcharles93/fsha/pkg/fsha"
	"github.com/urfave/cli/v3"
)

func archiveOptions(ctx context.Context) archive.Options {
	return archive.Options{
		TextEncoding: textEncoding,
		Logger:       logger.FromContext(ctx),
	}
}

// openArg opens the archive named by the command's first argument.
func openArg(ctx context.Context, c *cli.Command) (*archive.Archive, error) {
	path := strings.TrimSpace(c.Args().First())
	if path == "" {
		return nil, cli.Exit(fmt.Sprintf("error: %s needs an archive path", c.Name), 1)
	}
	a, err := archive.Open(path, archiveOptions(ctx))
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("error: open archive: %v", err), 1)
	}
	return a, nil
}

// pickModel returns the named model, or the only model when name is empty.
func pickModel(c *fsha.Container, name string) (*fsha.ShaderModel, error) {
	if name == "" {
		if c.Models.Len() == 1 {
			m, _ := c.Models.At(0)
			return m, nil
		}
		return nil, cli.Exit(fmt.Sprintf("error: archive has %d shader models, choose one with --model (%s)",
			c.Models.Len(), strings.Join(c.Models.Keys(), ", ")), 1)
	}
	m, ok := c.Model(name)
	if !ok {
		return nil, cli.Exit(fmt.Sprintf("error: no shader model %q (have %s)", name, strings.Join(c.Models.Keys(), ", ")), 1)
	}
	return m, nil
}

func formatBytes(b uint64) string {
	const (
		kb = 1024
		mb = 1024 * kb
		gb = 1024 * mb
	)
	switch {
	case b >= gb:
		return fmt.Sprintf("%.2f GiB", float64(b)/float64(gb))
	case b >= mb:
		return fmt.Sprintf("%.2f MiB", float64(b)/float64(mb))
	case b >= kb:
		return fmt.Sprintf("%.2f KiB", float64(b)/float64(kb))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
