package main

import "github.com/urfave/cli/v3"

var (
	textEncoding string
	logLevel     string
	logFormat    string
	debug        bool
)

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (auto, pretty, json, text)",
			Value:       "auto",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}

func archiveFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "encoding",
			Usage:       "character encoding of archive strings (utf-8, shift_jis, windows-1252, ...)",
			Destination: &textEncoding,
		},
	}
}

func modelFlag(dst *string, required bool) cli.Flag {
	return &cli.StringFlag{
		Name:        "model",
		Aliases:     []string{"m"},
		Usage:       "shader model name",
		Destination: dst,
		Required:    required,
	}
}
