package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"mdl2obj/internal/batch"
	"mdl2obj/internal/convert"
)

func convertCmd() *cli.Command {
	flags := append(commonFlags(), exportFlags()...)
	flags = append(flags, imageFlags()...)

	return &cli.Command{
		Name:      "convert",
		Usage:     "Export the LODs of one or more MDL files as OBJ",
		ArgsUsage: "<file.mdl> [file.mdl...]",
		Flags:     flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() == 0 {
				return cli.Exit("error: at least one input file is required", 1)
			}
			ctx, cfg, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			opts, err := convertOptions(cfg)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			inputs := cmd.Args().Slice()
			for _, path := range inputs {
				o := opts
				// Several inputs would overwrite each other's lod_<n> files.
				if len(inputs) > 1 {
					o.OutputDir = batch.OutputFor(cfg.OutputDir, path)
				}
				res, err := convert.File(ctx, path, o)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %s: %v", path, err), 1)
				}
				printResult(res)
			}
			return nil
		},
	}
}

func printResult(res convert.Result) {
	fmt.Printf("%s: %d LOD(s) exported\n", res.Input, len(res.LODs))
	for _, l := range res.LODs {
		fmt.Printf("  LOD %d: %d vertices, %d faces -> %s\n", l.Index, l.Vertices, l.Faces, l.OBJ)
	}
}
