package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/samcharles93/fsha/internal/logger"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the fsha configuration file (~/.config/fsha/config.yaml).
// Empty fields leave the flag defaults alone.
type Config struct {
	TextEncoding string `yaml:"text_encoding"`

	// Output
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Commands
	ServerAddress string `yaml:"server_address"`
	ExtractDir    string `yaml:"extract_dir"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "fsha", "config.yaml")
}

// LoadConfig reads the config file. Returns a zero Config if the file doesn't exist.
func LoadConfig() Config {
	return loadConfigFile(configPath())
}

func loadConfigFile(path string) Config {
	if path == "" {
		return Config{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}
	}
	return cfg
}

// applyRootConfig applies config file defaults to the global flags when the
// corresponding CLI flag was not explicitly set.
func applyRootConfig(c *cli.Command, cfg Config) {
	if cfg.TextEncoding != "" && !c.IsSet("encoding") {
		textEncoding = cfg.TextEncoding
	}
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// applyServeConfig applies config file defaults to serve command variables.
func applyServeConfig(c *cli.Command, cfg Config, addr *string) {
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
}

// applyExtractConfig applies config file defaults to extract command variables.
func applyExtractConfig(c *cli.Command, cfg Config, out *string) {
	if cfg.ExtractDir != "" && !c.IsSet("out") {
		*out = cfg.ExtractDir
	}
}

// setup applies cfg and installs the process logger in ctx.
func setup(ctx context.Context, c *cli.Command, cfg Config) (context.Context, error) {
	applyRootConfig(c, cfg)
	level := logger.ParseLevel(logLevel)
	if debug {
		level = slog.LevelDebug
	}
	log, err := logger.ForTerminal(errWriter(c), level, logFormat)
	if err != nil {
		return ctx, cli.Exit("error: "+err.Error(), 1)
	}
	return logger.WithContext(ctx, log), nil
}

func outWriter(c *cli.Command) io.Writer {
	if w := c.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func errWriter(c *cli.Command) io.Writer {
	if w := c.Root().ErrWriter; w != nil {
		return w
	}
	return os.Stderr
}
