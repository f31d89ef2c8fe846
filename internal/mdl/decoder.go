package mdl

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"io"
)

const (
	// Signature identifies an MDL container.
	Signature = "MDLX"
	// Version is the only container version this decoder accepts.
	Version uint16 = 1

	fileHeaderSize = 12
	lodHeaderSize  = 22
)

// Limits bounds what a decoder will allocate for a single file.
type Limits struct {
	MaxLODs       int
	MaxArity      int
	MaxStreamSize int
}

// DefaultLimits is used by Decode. Treat it as read-only; pass a modified
// copy to NewDecoder instead.
var DefaultLimits = Limits{
	MaxLODs:       64,
	MaxArity:      16,
	MaxStreamSize: 256 << 20,
}

// Decoder decodes MDL containers under a fixed set of limits.
// A Decoder holds no per-call state and is safe for concurrent use.
type Decoder struct {
	limits Limits
}

// NewDecoder returns a decoder using lim. Zero fields fall back to DefaultLimits.
func NewDecoder(lim Limits) *Decoder {
	if lim.MaxLODs <= 0 {
		lim.MaxLODs = DefaultLimits.MaxLODs
	}
	if lim.MaxArity < 3 {
		lim.MaxArity = DefaultLimits.MaxArity
	}
	if lim.MaxStreamSize <= 0 {
		lim.MaxStreamSize = DefaultLimits.MaxStreamSize
	}
	return &Decoder{limits: lim}
}

// Limits returns the limits this decoder enforces.
func (d *Decoder) Limits() Limits {
	return d.limits
}

// Decode parses data with DefaultLimits.
func Decode(data []byte) (*File, error) {
	return NewDecoder(DefaultLimits).Decode(data)
}

// Decode parses and validates a complete MDL container. On error no
// partial File is returned.
func (d *Decoder) Decode(data []byte) (*File, error) {
	r := &reader{data: data}

	if len(data) < len(Signature) {
		return nil, newError(TruncatedInput, -1, 0, "need %d signature bytes, have %d", len(Signature), len(data))
	}
	sig, _ := r.bytes(len(Signature))
	if !bytes.Equal(sig, []byte(Signature)) {
		return nil, newError(BadSignature, -1, 0, "got %q, want %q", sig, Signature)
	}

	if r.remaining() < fileHeaderSize-len(Signature) {
		return nil, newError(TruncatedInput, -1, int64(r.off), "file header needs %d bytes, %d remain", fileHeaderSize-len(Signature), r.remaining())
	}
	version, _ := r.readU16()
	if version != Version {
		return nil, newError(BadSignature, -1, 4, "unsupported version %d", version)
	}
	reserved, _ := r.readU16()
	if reserved != 0 {
		return nil, newError(BadSignature, -1, 6, "reserved header field is 0x%04x", reserved)
	}
	count, _ := r.readU32()
	if count == 0 || int64(count) > int64(d.limits.MaxLODs) {
		return nil, newError(InvalidLodCount, -1, 8, "count %d outside 1..%d", count, d.limits.MaxLODs)
	}

	f := &File{
		Version: version,
		LODs:    make([]LOD, 0, count),
	}
	for i := 0; i < int(count); i++ {
		lod, err := d.decodeLOD(r, i)
		if err != nil {
			return nil, err
		}
		f.LODs = append(f.LODs, lod)
	}

	if r.remaining() != 0 {
		return nil, newError(SizeMismatch, -1, int64(r.off), "%d trailing bytes after last LOD", r.remaining())
	}
	return f, nil
}

func (d *Decoder) decodeLOD(r *reader, idx int) (LOD, error) {
	hdrOff := int64(r.off)
	hdr, name, err := d.readLODHeader(r, idx)
	if err != nil {
		return LOD{}, err
	}

	stride := hdr.Layout.VertexStride()
	if err := d.checkStream(hdr.VertexStream, stride, idx, hdrOff+4, "vertex"); err != nil {
		return LOD{}, err
	}
	faceStride := hdr.Arity * hdr.Layout.IndexSize()
	if err := d.checkStream(hdr.FaceStream, faceStride, idx, hdrOff+12, "face"); err != nil {
		return LOD{}, err
	}

	vdata, err := readStream(r, hdr.VertexStream, idx, "vertex")
	if err != nil {
		return LOD{}, err
	}
	fdata, err := readStream(r, hdr.FaceStream, idx, "face")
	if err != nil {
		return LOD{}, err
	}

	mesh := &Mesh{
		Layout:   hdr.Layout,
		Arity:    hdr.Arity,
		Vertices: decodeVertices(vdata, hdr.Layout),
	}
	mesh.Faces, err = decodeFaces(fdata, hdr, len(mesh.Vertices), idx)
	if err != nil {
		return LOD{}, err
	}

	return LOD{
		Index:      idx,
		Header:     hdr,
		Name:       name,
		VertexData: vdata,
		FaceData:   fdata,
		mesh:       mesh,
	}, nil
}

func (d *Decoder) readLODHeader(r *reader, idx int) (LODHeader, string, error) {
	off := int64(r.off)
	raw, ok := r.bytes(lodHeaderSize)
	if !ok {
		return LODHeader{}, "", newError(TruncatedInput, idx, off, "LOD header needs %d bytes, %d remain", lodHeaderSize, r.remaining())
	}

	layout := Layout(binary.LittleEndian.Uint16(raw[0:2]))
	if layout&^layoutKnown != 0 {
		return LODHeader{}, "", newError(BadSignature, idx, off, "unknown layout flags 0x%04x", uint16(layout&^layoutKnown))
	}
	arity := int(binary.LittleEndian.Uint16(raw[2:4]))
	if arity < 3 || arity > d.limits.MaxArity {
		return LODHeader{}, "", newError(BadSignature, idx, off+2, "face arity %d outside 3..%d", arity, d.limits.MaxArity)
	}

	hdr := LODHeader{
		Layout: layout,
		Arity:  arity,
		VertexStream: StreamHeader{
			Compressed:   binary.LittleEndian.Uint32(raw[4:8]),
			Uncompressed: binary.LittleEndian.Uint32(raw[8:12]),
		},
		FaceStream: StreamHeader{
			Compressed:   binary.LittleEndian.Uint32(raw[12:16]),
			Uncompressed: binary.LittleEndian.Uint32(raw[16:20]),
		},
	}

	nameLen := int(binary.LittleEndian.Uint16(raw[20:22]))
	nameOff := int64(r.off)
	name, ok := r.bytes(nameLen)
	if !ok {
		return LODHeader{}, "", newError(TruncatedInput, idx, nameOff, "name declares %d bytes, %d remain", nameLen, r.remaining())
	}
	return hdr, string(name), nil
}

// checkStream validates declared sizes before any buffer is allocated.
func (d *Decoder) checkStream(s StreamHeader, stride, idx int, off int64, what string) error {
	if int64(s.Uncompressed) > int64(d.limits.MaxStreamSize) {
		return newError(SizeMismatch, idx, off, "%s stream declares %d bytes, limit is %d", what, s.Uncompressed, d.limits.MaxStreamSize)
	}
	if int(s.Uncompressed)%stride != 0 {
		return newError(SizeMismatch, idx, off, "%s stream size %d is not a multiple of record size %d", what, s.Uncompressed, stride)
	}
	return nil
}

func readStream(r *reader, s StreamHeader, idx int, what string) ([]byte, error) {
	off := int64(r.off)
	if int64(s.Compressed) > int64(r.remaining()) {
		return nil, newError(TruncatedInput, idx, off, "%s stream declares %d compressed bytes, %d remain", what, s.Compressed, r.remaining())
	}
	comp, _ := r.bytes(int(s.Compressed))

	out, err := inflate(comp, int(s.Uncompressed))
	if err != nil {
		fe := newError(DecompressionFailure, idx, off, "%s stream", what)
		fe.Err = err
		return nil, fe
	}
	if len(out) != int(s.Uncompressed) {
		return nil, newError(SizeMismatch, idx, off, "%s stream inflated to %d bytes, header declares %d", what, len(out), s.Uncompressed)
	}
	return out, nil
}

// maxDeflateRatio is the largest expansion a deflate stream can encode.
const maxDeflateRatio = 1032

// inflate decompresses a zlib stream, reading at most want+1 bytes so an
// oversized stream is detected without inflating all of it. The declared
// size only sizes the buffer up to what comp could possibly expand to.
func inflate(comp []byte, want int) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(comp))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	capacity := min(int64(want), int64(len(comp))*maxDeflateRatio)
	buf := bytes.NewBuffer(make([]byte, 0, capacity))
	if _, err := io.Copy(buf, io.LimitReader(zr, int64(want)+1)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeVertices(data []byte, layout Layout) []Vertex {
	stride := layout.VertexStride()
	n := len(data) / stride
	verts := make([]Vertex, n)
	for i := 0; i < n; i++ {
		base := i * stride
		v := &verts[i]
		v.Position = [3]float32{f32At(data, base), f32At(data, base+4), f32At(data, base+8)}
		off := base + 12
		if layout.HasNormals() {
			v.Normal = [3]float32{f32At(data, off), f32At(data, off+4), f32At(data, off+8)}
			off += 12
		}
		if layout.HasUVs() {
			v.UV = [2]float32{f32At(data, off), f32At(data, off+4)}
		}
	}
	return verts
}

func decodeFaces(data []byte, hdr LODHeader, nverts, idx int) ([]Face, error) {
	isz := hdr.Layout.IndexSize()
	stride := hdr.Arity * isz
	n := len(data) / stride
	faces := make([]Face, n)
	for i := 0; i < n; i++ {
		face := make(Face, hdr.Arity)
		for k := 0; k < hdr.Arity; k++ {
			off := i*stride + k*isz
			var raw uint32
			if isz == 4 {
				raw = binary.LittleEndian.Uint32(data[off:])
			} else {
				raw = uint32(binary.LittleEndian.Uint16(data[off:]))
			}

			vi := int64(raw)
			if hdr.Layout.OneBased() {
				vi--
			}
			if vi < 0 || vi >= int64(nverts) {
				fe := newError(IndexOutOfRange, idx, -1, "face %d references vertex %d, mesh has %d vertices", i, raw, nverts)
				fe.Index = int64(raw)
				return nil, fe
			}
			face[k] = uint32(vi)
		}
		faces[i] = face
	}
	return faces, nil
}
