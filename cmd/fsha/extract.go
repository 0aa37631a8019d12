package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/samcharles93/fsha/internal/logger"
	"github.com/samcharles93/fsha/pkg/bnsh"
	"github.com/samcharles93/fsha/pkg/fsha"
	"github.com/urfave/cli/v3"
)

func extractCmd() *cli.Command {
	var (
		modelName string
		outDir    string
		program   int64
	)

	return &cli.Command{
		Name:      "extract",
		Usage:     "Write embedded shader containers and program code to disk",
		ArgsUsage: "<file.bfsha>",
		Flags: []cli.Flag{
			modelFlag(&modelName, false),
			&cli.StringFlag{
				Name:        "out",
				Aliases:     []string{"o"},
				Usage:       "output directory (default $FSHA_EXTRACT_DIR/<archive> or ./out/<archive>)",
				Destination: &outDir,
			},
			&cli.Int64Flag{
				Name:        "program",
				Usage:       "only this program (-1 = all)",
				Value:       -1,
				Destination: &program,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			log := logger.FromContext(ctx)
			applyExtractConfig(c, LoadConfig(), &outDir)

			a, err := openArg(ctx, c)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			models := a.Container.Models.Values()
			if modelName != "" {
				m, err := pickModel(a.Container, modelName)
				if err != nil {
					return err
				}
				models = []*fsha.ShaderModel{m}
			}

			dir, _, err := resolveExtractOut(c.Args().First(), outDir)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: output directory: %v", err), 1)
			}
			x := extractor{dir: dir, log: log}
			for _, m := range models {
				if err := x.model(m, int(program)); err != nil {
					return cli.Exit(fmt.Sprintf("error: extract %s: %v", m.Name, err), 1)
				}
			}
			log.Info("extracted shader archive", "files", x.files, "out", dir)
			_, _ = fmt.Fprintf(outWriter(c), "wrote %d files to %s\n", x.files, dir)
			return nil
		},
	}
}

type extractor struct {
	dir   string
	log   logger.Logger
	files int
}

func (x *extractor) write(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	x.files++
	x.log.Debug("wrote file", "path", path, "bytes", len(data))
	return nil
}

// model writes the model's BNSH image and the code of program p, or of every
// program when p is negative.
func (x *extractor) model(m *fsha.ShaderModel, p int) error {
	if data := m.EmbeddedBytes(); data != nil {
		if err := x.write(filepath.Join(x.dir, m.Name+".bnsh"), data); err != nil {
			return err
		}
	}
	first, last := 0, len(m.Programs)-1
	if p >= 0 {
		if _, err := m.Program(p); err != nil {
			return err
		}
		first, last = p, p
	}
	for i := first; i <= last; i++ {
		dir := filepath.Join(x.dir, m.Name, fmt.Sprintf("program_%d", i))
		if err := x.program(dir, m, m.Programs[i]); err != nil {
			return fmt.Errorf("program %d: %w", i, err)
		}
	}
	return nil
}

func (x *extractor) program(dir string, m *fsha.ShaderModel, p *fsha.ShaderProgram) error {
	for stage, sh := range map[string]*fsha.GX2Shader{"vertex": p.VertexShader, "pixel": p.PixelShader} {
		if sh == nil {
			continue
		}
		if err := x.write(filepath.Join(dir, "gx2_"+stage+".bin"), sh.Data); err != nil {
			return err
		}
	}
	if m.EmbeddedBytes() == nil || p.VariationOffset == 0 {
		return nil
	}
	v, err := m.Variation(p)
	if err != nil {
		return err
	}
	for _, code := range v.Programs() {
		for st, blob := range code.Stages {
			if blob == nil {
				continue
			}
			name := fmt.Sprintf("%s_%s", code.Format, bnsh.Stage(st))
			if err := x.write(filepath.Join(dir, name+".bin"), blob.Data); err != nil {
				return err
			}
			if len(blob.Control) > 0 {
				if err := x.write(filepath.Join(dir, name+"_control.bin"), blob.Control); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
