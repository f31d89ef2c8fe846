// Package convert runs the single-file pipeline: read, decode, select,
// export each LOD and optionally dump raw streams and a preview image.
package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"mdl2obj/internal/logger"
	"mdl2obj/internal/mdl"
	"mdl2obj/internal/obj"
	"mdl2obj/internal/preview"
)

// Options controls one conversion.
type Options struct {
	OutputDir  string
	LODs       []int // empty = all
	SkipBinary bool
	Precision  int // decimals per OBJ coordinate, see obj.Options
	Limits     mdl.Limits

	Preview       bool
	PreviewFormat preview.Format
	PreviewSize   int
	Supersample   int
}

// LODResult describes one exported LOD.
type LODResult struct {
	Index    int    `json:"index"`
	Name     string `json:"name,omitempty"`
	Vertices int    `json:"vertices"`
	Faces    int    `json:"faces"`
	OBJ      string `json:"obj"`
	Binary   string `json:"binary,omitempty"`
	Preview  string `json:"preview,omitempty"`
}

// Result lists everything written for one input file.
type Result struct {
	Input string      `json:"input"`
	LODs  []LODResult `json:"lods"`
}

// File converts the MDL file at path into opts.OutputDir.
// Decoding completes before anything is written, so a malformed file
// leaves no partial output behind.
func File(ctx context.Context, path string, opts Options) (Result, error) {
	log := logger.FromContext(ctx).With("input", path)
	res := Result{Input: path}

	data, err := os.ReadFile(path)
	if err != nil {
		return res, fmt.Errorf("convert: read %s: %w", path, err)
	}

	f, err := mdl.NewDecoder(opts.Limits).Decode(data)
	if err != nil {
		return res, err
	}
	log.Debug("decoded", "lods", f.LODCount(), "bytes", len(data))

	meshes, err := obj.Select(f, opts.LODs)
	if err != nil {
		return res, err
	}
	indices := opts.LODs
	if len(indices) == 0 {
		indices = make([]int, f.LODCount())
		for i := range indices {
			indices[i] = i
		}
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return res, fmt.Errorf("convert: create %s: %w", opts.OutputDir, err)
	}

	for i, m := range meshes {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		lod := &f.LODs[indices[i]]
		lr, err := writeLOD(lod, m, opts)
		res.LODs = append(res.LODs, lr)
		if err != nil {
			return res, err
		}
		log.Info("exported LOD", "lod", lod.Index, "vertices", lr.Vertices, "faces", lr.Faces, "path", lr.OBJ)
	}
	return res, nil
}

func writeLOD(lod *mdl.LOD, m *mdl.Mesh, opts Options) (LODResult, error) {
	base := filepath.Join(opts.OutputDir, fmt.Sprintf("lod_%d", lod.Index))
	lr := LODResult{
		Index:    lod.Index,
		Name:     lod.Name,
		Vertices: len(m.Vertices),
		Faces:    len(m.Faces),
		OBJ:      base + ".obj",
	}

	objOpts := obj.Options{LOD: lod.Index, Name: lod.Name, Precision: opts.Precision}
	if err := obj.Export(lr.OBJ, m, objOpts); err != nil {
		return lr, err
	}

	if !opts.SkipBinary {
		lr.Binary = base + "_decompressed.bin"
		if err := writeStreams(lr.Binary, lod); err != nil {
			return lr, err
		}
	}

	if opts.Preview {
		lr.Preview = base + opts.PreviewFormat.Ext()
		popts := preview.Options{
			Size:        opts.PreviewSize,
			Supersample: opts.Supersample,
			Format:      opts.PreviewFormat,
		}
		if err := preview.Write(lr.Preview, m, popts); err != nil {
			return lr, err
		}
	}
	return lr, nil
}

// writeStreams dumps the decompressed vertex stream followed by the face stream.
func writeStreams(path string, lod *mdl.LOD) error {
	buf := make([]byte, 0, len(lod.VertexData)+len(lod.FaceData))
	buf = append(buf, lod.VertexData...)
	buf = append(buf, lod.FaceData...)
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return &obj.ExportError{Kind: obj.WriteFailure, LOD: lod.Index, Path: path, Err: err}
	}
	return nil
}
