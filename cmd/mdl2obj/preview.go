package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"mdl2obj/internal/mdl"
	"mdl2obj/internal/obj"
	"mdl2obj/internal/preview"
)

func previewCmd() *cli.Command {
	flags := append(commonFlags(), imageFlags()...)

	return &cli.Command{
		Name:      "preview",
		Usage:     "Render thumbnails of the selected LODs without exporting OBJ",
		ArgsUsage: "<file.mdl>",
		Flags:     flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return cli.Exit("error: expected exactly one input file", 1)
			}
			_, cfg, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			format, err := preview.ParseFormat(cfg.Preview.Format)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			path := cmd.Args().First()
			data, err := os.ReadFile(path)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			f, err := mdl.NewDecoder(cfg.Limits.Decoder()).Decode(data)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			meshes, err := obj.Select(f, cfg.LODs)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			opts := preview.Options{Size: cfg.Preview.Size, Supersample: cfg.Preview.Supersample, Format: format}
			for i, m := range meshes {
				idx := i
				if len(cfg.LODs) > 0 {
					idx = cfg.LODs[i]
				}
				out := filepath.Join(cfg.OutputDir, fmt.Sprintf("lod_%d%s", idx, format.Ext()))
				if err := preview.Write(out, m, opts); err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				fmt.Printf("  LOD %d -> %s\n", idx, out)
			}
			return nil
		},
	}
}
