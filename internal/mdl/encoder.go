package mdl

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Source is one LOD to be written by Encode. Mesh faces hold 0-based
// indices; Mesh.Layout decides how they are stored.
type Source struct {
	Name string
	Mesh *Mesh
}

// Encode writes lods as an MDL container in the layout Decode accepts.
func Encode(w io.Writer, lods []Source) error {
	if len(lods) == 0 || uint64(len(lods)) > math.MaxUint32 {
		return fmt.Errorf("mdl: encode: invalid LOD count %d", len(lods))
	}

	var hdr [fileHeaderSize]byte
	copy(hdr[:4], Signature)
	binary.LittleEndian.PutUint16(hdr[4:6], Version)
	binary.LittleEndian.PutUint32(hdr[8:12], uint32(len(lods)))
	if _, err := w.Write(hdr[:]); err != nil {
		return fmt.Errorf("mdl: encode header: %w", err)
	}

	for i, src := range lods {
		if err := encodeLOD(w, src); err != nil {
			return fmt.Errorf("mdl: encode LOD %d: %w", i, err)
		}
	}
	return nil
}

func encodeLOD(w io.Writer, src Source) error {
	m := src.Mesh
	if m == nil {
		return fmt.Errorf("nil mesh")
	}
	if m.Layout&^layoutKnown != 0 {
		return fmt.Errorf("unknown layout flags 0x%04x", uint16(m.Layout))
	}
	if m.Arity < 3 || m.Arity > math.MaxUint16 {
		return fmt.Errorf("invalid face arity %d", m.Arity)
	}
	if len(src.Name) > math.MaxUint16 {
		return fmt.Errorf("name is %d bytes, max %d", len(src.Name), math.MaxUint16)
	}

	vraw := encodeVertices(m)
	fraw, err := encodeFaces(m)
	if err != nil {
		return err
	}
	vcomp, err := deflate(vraw)
	if err != nil {
		return err
	}
	fcomp, err := deflate(fraw)
	if err != nil {
		return err
	}

	var hdr [lodHeaderSize]byte
	binary.LittleEndian.PutUint16(hdr[0:2], uint16(m.Layout))
	binary.LittleEndian.PutUint16(hdr[2:4], uint16(m.Arity))
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(len(vcomp)))
	binary.LittleEndian.PutUint32(hdr[8:12], uint32(len(vraw)))
	binary.LittleEndian.PutUint32(hdr[12:16], uint32(len(fcomp)))
	binary.LittleEndian.PutUint32(hdr[16:20], uint32(len(fraw)))
	binary.LittleEndian.PutUint16(hdr[20:22], uint16(len(src.Name)))

	for _, chunk := range [][]byte{hdr[:], []byte(src.Name), vcomp, fcomp} {
		if _, err := w.Write(chunk); err != nil {
			return err
		}
	}
	return nil
}

func encodeVertices(m *Mesh) []byte {
	stride := m.Layout.VertexStride()
	buf := make([]byte, len(m.Vertices)*stride)
	put := func(off int, v float32) {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
	}
	for i, v := range m.Vertices {
		off := i * stride
		for k := 0; k < 3; k++ {
			put(off+k*4, v.Position[k])
		}
		off += 12
		if m.HasNormals() {
			for k := 0; k < 3; k++ {
				put(off+k*4, v.Normal[k])
			}
			off += 12
		}
		if m.HasUVs() {
			put(off, v.UV[0])
			put(off+4, v.UV[1])
		}
	}
	return buf
}

func encodeFaces(m *Mesh) ([]byte, error) {
	isz := m.Layout.IndexSize()
	limit := uint64(math.MaxUint16)
	if isz == 4 {
		limit = math.MaxUint32
	}
	var base uint64
	if m.Layout.OneBased() {
		base = 1
	}

	buf := make([]byte, len(m.Faces)*m.Arity*isz)
	off := 0
	for i, face := range m.Faces {
		if len(face) != m.Arity {
			return nil, fmt.Errorf("face %d has %d indices, arity is %d", i, len(face), m.Arity)
		}
		for _, vi := range face {
			stored := uint64(vi) + base
			if stored > limit {
				return nil, fmt.Errorf("face %d index %d does not fit in %d-byte index", i, vi, isz)
			}
			if isz == 4 {
				binary.LittleEndian.PutUint32(buf[off:], uint32(stored))
			} else {
				binary.LittleEndian.PutUint16(buf[off:], uint16(stored))
			}
			off += isz
		}
	}
	return buf, nil
}

func deflate(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(raw); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
