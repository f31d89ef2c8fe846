package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"mdl2obj/internal/batch"
	"mdl2obj/internal/logger"
)

func batchCmd() *cli.Command {
	var manifest string

	flags := append(commonFlags(), exportFlags()...)
	flags = append(flags, imageFlags()...)
	flags = append(flags,
		&cli.IntFlag{
			Name:        "workers",
			Aliases:     []string{"j"},
			Usage:       "files converted in parallel (default: CPU count)",
			Destination: &workers,
		},
		&cli.StringFlag{
			Name:        "manifest",
			Usage:       "manifest path (default: <output-dir>/manifest.json)",
			Destination: &manifest,
		},
	)

	return &cli.Command{
		Name:      "batch",
		Usage:     "Convert every .mdl file in a directory",
		ArgsUsage: "<dir>",
		Flags:     flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return cli.Exit("error: expected exactly one input directory", 1)
			}
			ctx, cfg, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			opts, err := convertOptions(cfg)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			paths, err := batch.Discover(cmd.Args().First())
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: scan input: %v", err), 1)
			}
			if len(paths) == 0 {
				return cli.Exit("error: no .mdl files found", 1)
			}
			logger.FromContext(ctx).Info("starting batch", "files", len(paths), "workers", cfg.Workers)

			results := batch.Run(ctx, batch.Config{
				OutputDir: cfg.OutputDir,
				Workers:   cfg.Workers,
				Options:   opts,
			}, paths)

			if manifest == "" {
				manifest = filepath.Join(cfg.OutputDir, "manifest.json")
			}
			if err := os.MkdirAll(filepath.Dir(manifest), 0755); err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			if err := batch.WriteManifest(manifest, results); err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			var failed int
			for _, r := range results {
				if !r.Success {
					failed++
					fmt.Printf("FAIL %s: %s\n", r.Input, r.Error)
				}
			}
			fmt.Printf("%d/%d converted, manifest: %s\n", len(results)-failed, len(results), manifest)
			if failed > 0 {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}
