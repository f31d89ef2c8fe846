package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"mdl2obj/internal/mdl"
)

func inspectCmd() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Print the LOD table of an MDL file",
		ArgsUsage: "<file.mdl>",
		Flags:     commonFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return cli.Exit("error: expected exactly one input file", 1)
			}
			_, cfg, err := setup(ctx, cmd)
			if err != nil {
				return err
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

			fmt.Printf("File: %s (%d bytes)\n", path, len(data))
			fmt.Printf("Version: %d, LODs: %d\n", f.Version, f.LODCount())
			for i := range f.LODs {
				printLOD(&f.LODs[i])
			}
			return nil
		},
	}
}

func printLOD(l *mdl.LOD) {
	m := l.Mesh()
	h := l.Header
	name := l.Name
	if name == "" {
		name = "-"
	}
	fmt.Printf("  LOD[%d] %q: verts=%d, faces=%d, arity=%d, layout=%s\n",
		l.Index, name, len(m.Vertices), len(m.Faces), h.Arity, layoutString(h.Layout))
	fmt.Printf("    Streams: vertex %d -> %d bytes, face %d -> %d bytes\n",
		h.VertexStream.Compressed, h.VertexStream.Uncompressed,
		h.FaceStream.Compressed, h.FaceStream.Uncompressed)
	if len(m.Vertices) == 0 {
		return
	}
	lo, hi := m.Bounds()
	fmt.Printf("    BBox: X[%.3f, %.3f] Y[%.3f, %.3f] Z[%.3f, %.3f]\n", lo[0], hi[0], lo[1], hi[1], lo[2], hi[2])
	fmt.Printf("    Size: %.3f x %.3f x %.3f\n", hi[0]-lo[0], hi[1]-lo[1], hi[2]-lo[2])
}

func layoutString(l mdl.Layout) string {
	parts := []string{"position"}
	if l.HasNormals() {
		parts = append(parts, "normal")
	}
	if l.HasUVs() {
		parts = append(parts, "uv")
	}
	if l.OneBased() {
		parts = append(parts, "one-based")
	}
	if l.Index32() {
		parts = append(parts, "index32")
	} else {
		parts = append(parts, "index16")
	}
	return strings.Join(parts, "+")
}
