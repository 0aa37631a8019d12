package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "fsha",
		Usage: "Inspect Wii U and Switch shader archives (.bfsha)",
		Flags: append(loggingFlags(), archiveFlags()...),
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			return setup(ctx, cmd, LoadConfig())
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			inspectCmd(),
			programsCmd(),
			resolveCmd(),
			extractCmd(),
			dumpCmd(),
			serveCmd(),
			versionCmd(),
		},
	}
}
