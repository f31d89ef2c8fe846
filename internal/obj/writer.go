package obj

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"mdl2obj/internal/mdl"
)

// DefaultPrecision is the number of decimals written per coordinate.
const DefaultPrecision = 6

// Options controls OBJ text output.
type Options struct {
	LOD  int    // written in the header comment
	Name string // emitted as an "o" statement when non-empty

	// Precision is the number of decimals per coordinate; zero writes
	// whole numbers. Negative values use the shortest representation
	// that round-trips a float32.
	Precision int
}

// DefaultOptions returns options for LOD lod with six-decimal coordinates.
func DefaultOptions(lod int) Options {
	return Options{LOD: lod, Precision: DefaultPrecision}
}

// Write serializes m as OBJ text. Face indices are written 1-based.
// Normals and texture coordinates are written only when the mesh carries them.
func Write(w io.Writer, m *mdl.Mesh, opts Options) error {
	bw := bufio.NewWriter(w)
	ow := &objWriter{w: bw, prec: opts.Precision}

	ow.printf("# OBJ file - LOD %d\n", opts.LOD)
	ow.printf("# Vertices: %d\n", len(m.Vertices))
	ow.printf("# Faces: %d\n\n", len(m.Faces))
	if opts.Name != "" {
		ow.printf("o %s\n", opts.Name)
	}

	for i := range m.Vertices {
		ow.vector("v", m.Vertices[i].Position[:])
	}
	if m.HasUVs() {
		for i := range m.Vertices {
			ow.vector("vt", m.Vertices[i].UV[:])
		}
	}
	if m.HasNormals() {
		for i := range m.Vertices {
			ow.vector("vn", m.Vertices[i].Normal[:])
		}
	}

	for _, face := range m.Faces {
		ow.face(face, m.HasUVs(), m.HasNormals())
	}

	if ow.err != nil {
		return ow.err
	}
	return bw.Flush()
}

// objWriter keeps the first write error and turns later writes into no-ops.
type objWriter struct {
	w    *bufio.Writer
	prec int
	buf  []byte
	err  error
}

func (o *objWriter) printf(format string, args ...any) {
	if o.err != nil {
		return
	}
	_, o.err = fmt.Fprintf(o.w, format, args...)
}

func (o *objWriter) vector(tag string, vals []float32) {
	if o.err != nil {
		return
	}
	b := append(o.buf[:0], tag...)
	for _, v := range vals {
		b = append(b, ' ')
		b = strconv.AppendFloat(b, float64(v), 'f', o.prec, 32)
	}
	b = append(b, '\n')
	o.buf = b
	_, o.err = o.w.Write(b)
}

func (o *objWriter) face(face mdl.Face, uv, normal bool) {
	if o.err != nil {
		return
	}
	b := append(o.buf[:0], 'f')
	for _, vi := range face {
		// OBJ indices are 1-based.
		n := uint64(vi) + 1
		b = append(b, ' ')
		b = strconv.AppendUint(b, n, 10)
		switch {
		case uv && normal:
			b = append(b, '/')
			b = strconv.AppendUint(b, n, 10)
			b = append(b, '/')
			b = strconv.AppendUint(b, n, 10)
		case uv:
			b = append(b, '/')
			b = strconv.AppendUint(b, n, 10)
		case normal:
			b = append(b, '/', '/')
			b = strconv.AppendUint(b, n, 10)
		}
	}
	b = append(b, '\n')
	o.buf = b
	_, o.err = o.w.Write(b)
}
