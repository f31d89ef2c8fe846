package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"mdl2obj/internal/logger"
	"mdl2obj/internal/mdl"
	"mdl2obj/internal/obj"
)

func packCmd() *cli.Command {
	var (
		outPath  string
		oneBased bool
		index32  bool
	)

	return &cli.Command{
		Name:      "pack",
		Usage:     "Build an MDL file from OBJ files, one per LOD in order",
		ArgsUsage: "<lod0.obj> [lod1.obj...]",
		Flags: append(commonFlags(),
			&cli.StringFlag{
				Name:        "out",
				Usage:       "output .mdl path",
				Destination: &outPath,
				Required:    true,
			},
			&cli.BoolFlag{Name: "one-based", Usage: "store 1-based face indices", Destination: &oneBased},
			&cli.BoolFlag{Name: "index32", Usage: "store 32-bit face indices", Destination: &index32},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() == 0 {
				return cli.Exit("error: at least one OBJ file is required", 1)
			}
			ctx, _, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			log := logger.FromContext(ctx)

			var lods []mdl.Source
			for _, path := range cmd.Args().Slice() {
				m, err := readOBJ(path)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				if oneBased {
					m.Layout |= mdl.LayoutOneBased
				}
				if index32 || uint64(len(m.Vertices)) > math.MaxUint16 {
					m.Layout |= mdl.LayoutIndex32
				}
				name := stem(path)
				log.Debug("parsed OBJ", "path", path, "vertices", len(m.Vertices), "faces", len(m.Faces))
				lods = append(lods, mdl.Source{Name: name, Mesh: m})
			}

			if err := writeMDL(outPath, lods); err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			fmt.Printf("Wrote %s (%d LODs)\n", outPath, len(lods))
			return nil
		},
	}
}

func readOBJ(path string) (*mdl.Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	m, err := obj.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	// Faces wider than the decoder accepts would produce an unreadable file.
	if m.Arity > mdl.DefaultLimits.MaxArity {
		return nil, fmt.Errorf("%s: faces have %d corners, at most %d are supported", path, m.Arity, mdl.DefaultLimits.MaxArity)
	}
	return m, nil
}

func writeMDL(path string, lods []mdl.Source) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return mdl.Encode(f, lods)
}

func stem(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}
