package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"mdl2obj/internal/config"
	"mdl2obj/internal/convert"
	"mdl2obj/internal/logger"
	"mdl2obj/internal/mdl"
	"mdl2obj/internal/preview"
)

var (
	configPath string
	outputDir  string
	lodList    string
	skipBinary bool
	verbose    bool
	logFormat  string
	workers    int
	precision  int
	withImage  bool
	imageFmt   string
	imageSize  int
)

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "path to config.yaml (default: user config dir)",
			Destination: &configPath,
		},
		&cli.StringFlag{
			Name:        "output-dir",
			Aliases:     []string{"o"},
			Usage:       "directory for exported files",
			Destination: &outputDir,
		},
		&cli.StringFlag{
			Name:        "lod",
			Aliases:     []string{"l"},
			Usage:       "LODs to export, e.g. 0 or 0,2 or 1-3 (default: all)",
			Destination: &lodList,
		},
		&cli.BoolFlag{
			Name:        "verbose",
			Aliases:     []string{"v"},
			Usage:       "enable debug logging",
			Destination: &verbose,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (text, json)",
			Destination: &logFormat,
		},
	}
}

func exportFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:        "skip-binary",
			Usage:       "do not write lod_<n>_decompressed.bin",
			Destination: &skipBinary,
		},
		&cli.IntFlag{
			Name:        "precision",
			Usage:       "decimal places for OBJ coordinates, 0 for whole numbers, -1 for shortest (default: 6)",
			Destination: &precision,
		},
		&cli.BoolFlag{
			Name:        "preview",
			Usage:       "also render a thumbnail per exported LOD",
			Destination: &withImage,
		},
	}
}

func imageFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "format",
			Usage:       "thumbnail format (webp, tga)",
			Destination: &imageFmt,
		},
		&cli.IntFlag{
			Name:        "size",
			Usage:       "thumbnail edge length in pixels",
			Destination: &imageSize,
		},
	}
}

// loadConfig reads the config file, applies flag overrides and validates.
// A missing default config file is not an error; a missing --config is.
func loadConfig(cmd *cli.Command) (config.Config, error) {
	var cfg config.Config

	path := configPath
	explicit := cmd.IsSet("config")
	if !explicit {
		path = config.DefaultPath()
	}
	if path != "" {
		loaded, err := config.Load(path)
		switch {
		case err == nil:
			cfg = loaded
		case explicit || !errors.Is(err, fs.ErrNotExist):
			return cfg, err
		}
	}

	maxLODs := cfg.Limits.MaxLODs
	if maxLODs <= 0 {
		maxLODs = mdl.DefaultLimits.MaxLODs
	}
	lods, err := config.ParseLODs(lodList, maxLODs)
	if err != nil {
		return cfg, err
	}

	var prec *int
	if cmd.IsSet("precision") {
		prec = &precision
	}

	cfg.Resolve(config.Flags{
		OutputDir:  outputDir,
		LODs:       lods,
		SkipBinary: skipBinary,
		Verbose:    verbose,
		LogFormat:  logFormat,
		Workers:    workers,
		Precision:  prec,
		Preview:    withImage,
		Format:     imageFmt,
		Size:       imageSize,
	})
	return cfg, cfg.Validate()
}

// withLogger stores a logger built from cfg in ctx.
func withLogger(ctx context.Context, cfg config.Config) context.Context {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	return logger.WithContext(ctx, logger.ForFormat(cfg.LogFormat, os.Stderr, level))
}

// setup is the common prologue of every subcommand.
func setup(ctx context.Context, cmd *cli.Command) (context.Context, config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return ctx, cfg, cli.Exit(fmt.Sprintf("error: %v", err), 1)
	}
	return withLogger(ctx, cfg), cfg, nil
}

func convertOptions(cfg config.Config) (convert.Options, error) {
	format, err := preview.ParseFormat(cfg.Preview.Format)
	if err != nil {
		return convert.Options{}, err
	}
	return convert.Options{
		OutputDir:     cfg.OutputDir,
		LODs:          cfg.LODs,
		SkipBinary:    cfg.SkipBinary,
		Precision:     *cfg.Precision,
		Limits:        cfg.Limits.Decoder(),
		Preview:       cfg.Preview.Enabled,
		PreviewFormat: format,
		PreviewSize:   cfg.Preview.Size,
		Supersample:   cfg.Preview.Supersample,
	}, nil
}
