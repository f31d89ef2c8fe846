package mdl

import (
	"bytes"
	"encoding/binary"
	"errors"
	"runtime"
	"testing"
)

func quadMesh() *Mesh {
	return &Mesh{
		Arity: 3,
		Vertices: []Vertex{
			{Position: [3]float32{0, 0, 0}},
			{Position: [3]float32{1, 0, 0}},
			{Position: [3]float32{1, 1, 0}},
			{Position: [3]float32{0, 1, 0}},
		},
		Faces: []Face{{0, 1, 2}, {0, 2, 3}},
	}
}

func boxMesh() *Mesh {
	m := &Mesh{Arity: 3}
	for i := 0; i < 8; i++ {
		m.Vertices = append(m.Vertices, Vertex{Position: [3]float32{
			float32(i & 1), float32((i >> 1) & 1), float32((i >> 2) & 1),
		}})
	}
	m.Faces = []Face{{0, 1, 3}, {0, 3, 2}, {4, 6, 7}, {4, 7, 5}}
	return m
}

func encode(t *testing.T, lods ...Source) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := Encode(&buf, lods); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func wantKind(t *testing.T, err error, kind Kind) *FormatError {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", kind)
	}
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FormatError, got %T: %v", err, err)
	}
	if fe.Kind != kind {
		t.Fatalf("kind mismatch: got %v want %v (%v)", fe.Kind, kind, err)
	}
	if !errors.Is(err, kind) {
		t.Fatalf("errors.Is(%v, %v) = false", err, kind)
	}
	return fe
}

func TestDecodeTwoLODScenario(t *testing.T) {
	t.Parallel()

	data := encode(t, Source{Name: "hi", Mesh: quadMesh()}, Source{Name: "lo", Mesh: boxMesh()})
	if string(data[:4]) != "MDLX" {
		t.Fatalf("signature mismatch: %q", data[:4])
	}

	f, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if f.LODCount() != 2 {
		t.Fatalf("LOD count: got %d want 2", f.LODCount())
	}

	want := []struct {
		name  string
		verts int
		faces int
	}{
		{"hi", 4, 2},
		{"lo", 8, 4},
	}
	for i, w := range want {
		lod := f.LODs[i]
		if lod.Index != i {
			t.Fatalf("LOD %d has index %d", i, lod.Index)
		}
		if lod.Name != w.name {
			t.Fatalf("LOD %d name: got %q want %q", i, lod.Name, w.name)
		}
		m := lod.Mesh()
		if len(m.Vertices) != w.verts || len(m.Faces) != w.faces {
			t.Fatalf("LOD %d: got %d verts / %d faces, want %d / %d", i, len(m.Vertices), len(m.Faces), w.verts, w.faces)
		}
	}

	src := quadMesh()
	got := f.LODs[0].Mesh()
	for i := range src.Vertices {
		if got.Vertices[i].Position != src.Vertices[i].Position {
			t.Fatalf("vertex %d: got %v want %v", i, got.Vertices[i].Position, src.Vertices[i].Position)
		}
	}
	for i := range src.Faces {
		for k := range src.Faces[i] {
			if got.Faces[i][k] != src.Faces[i][k] {
				t.Fatalf("face %d: got %v want %v", i, got.Faces[i], src.Faces[i])
			}
		}
	}
}

func TestDecodePreservesLODOrder(t *testing.T) {
	t.Parallel()

	for n := 1; n <= 12; n++ {
		lods := make([]Source, n)
		for i := range lods {
			m := boxMesh()
			// Distinguish LODs by a marker coordinate.
			m.Vertices[0].Position[0] = float32(i) * 10
			lods[i] = Source{Mesh: m}
		}
		f, err := Decode(encode(t, lods...))
		if err != nil {
			t.Fatalf("n=%d: decode: %v", n, err)
		}
		if len(f.LODs) != n {
			t.Fatalf("n=%d: got %d LODs", n, len(f.LODs))
		}
		for i, lod := range f.LODs {
			if got := lod.Mesh().Vertices[0].Position[0]; got != float32(i)*10 {
				t.Fatalf("n=%d: LOD %d marker %v, want %v", n, i, got, float32(i)*10)
			}
		}
	}
}

func TestDecodeLayouts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		layout Layout
	}{
		{"position only", 0},
		{"normals", LayoutNormals},
		{"uvs", LayoutUVs},
		{"normals and uvs", LayoutNormals | LayoutUVs},
		{"one based", LayoutOneBased},
		{"index32", LayoutIndex32 | LayoutNormals},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			src := quadMesh()
			src.Layout = tt.layout
			for i := range src.Vertices {
				src.Vertices[i].Normal = [3]float32{0, 0, 1}
				src.Vertices[i].UV = [2]float32{float32(i) / 4, 0.5}
			}

			f, err := Decode(encode(t, Source{Mesh: src}))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			m := f.LODs[0].Mesh()
			if m.Layout != tt.layout {
				t.Fatalf("layout: got %v want %v", m.Layout, tt.layout)
			}
			if got := len(f.LODs[0].VertexData); got != 4*tt.layout.VertexStride() {
				t.Fatalf("vertex stream size: got %d want %d", got, 4*tt.layout.VertexStride())
			}
			for i, v := range m.Vertices {
				if tt.layout.HasNormals() && v.Normal != src.Vertices[i].Normal {
					t.Fatalf("vertex %d normal: got %v", i, v.Normal)
				}
				if !tt.layout.HasNormals() && v.Normal != ([3]float32{}) {
					t.Fatalf("vertex %d has normal without layout flag", i)
				}
				if tt.layout.HasUVs() && v.UV != src.Vertices[i].UV {
					t.Fatalf("vertex %d uv: got %v", i, v.UV)
				}
			}
			// Indices are normalized to 0-based whatever the stored base.
			if m.Faces[1][0] != 0 || m.Faces[1][2] != 3 {
				t.Fatalf("faces not normalized: %v", m.Faces)
			}
		})
	}
}

func TestDecodeBadSignature(t *testing.T) {
	t.Parallel()

	data := encode(t, Source{Mesh: quadMesh()})
	data[0] = 'X'
	fe := wantKind(t, mustFail(Decode(data)), BadSignature)
	if fe.Offset != 0 {
		t.Fatalf("offset: got %d want 0", fe.Offset)
	}
}

func TestDecodeHeaderMismatch(t *testing.T) {
	t.Parallel()

	base := encode(t, Source{Mesh: quadMesh()})
	tests := []struct {
		name   string
		mutate func([]byte)
	}{
		{"version", func(b []byte) { binary.LittleEndian.PutUint16(b[4:], 2) }},
		{"reserved", func(b []byte) { binary.LittleEndian.PutUint16(b[6:], 1) }},
		{"layout flags", func(b []byte) { binary.LittleEndian.PutUint16(b[fileHeaderSize:], 0x80) }},
		{"arity", func(b []byte) { binary.LittleEndian.PutUint16(b[fileHeaderSize+2:], 2) }},
	}
	for _, tt := range tests {
		data := append([]byte(nil), base...)
		tt.mutate(data)
		_, err := Decode(data)
		if !errors.Is(err, ErrBadSignature) {
			t.Errorf("%s: got %v, want bad signature", tt.name, err)
		}
	}
}

func TestDecodeInvalidLODCount(t *testing.T) {
	t.Parallel()

	base := encode(t, Source{Mesh: quadMesh()})
	for _, count := range []uint32{0, 65, 0xFFFFFFFF} {
		data := append([]byte(nil), base...)
		binary.LittleEndian.PutUint32(data[8:], count)
		wantKind(t, mustFail(Decode(data)), InvalidLodCount)
	}

	// A tighter ceiling is honoured.
	lods := []Source{{Mesh: quadMesh()}, {Mesh: quadMesh()}, {Mesh: quadMesh()}}
	_, err := NewDecoder(Limits{MaxLODs: 2}).Decode(encode(t, lods...))
	wantKind(t, err, InvalidLodCount)
}

func TestDecodeTruncated(t *testing.T) {
	t.Parallel()

	data := encode(t, Source{Mesh: quadMesh()}, Source{Mesh: boxMesh()})
	for n := 0; n < len(data); n++ {
		_, err := Decode(data[:n])
		if err == nil {
			t.Fatalf("truncated to %d bytes: decode succeeded", n)
		}
		if !errors.Is(err, ErrTruncatedInput) {
			t.Fatalf("truncated to %d bytes: got %v, want truncated input", n, err)
		}
	}
}

func TestDecodeTruncatedStreamReportsLOD(t *testing.T) {
	t.Parallel()

	data := encode(t, Source{Mesh: quadMesh()}, Source{Mesh: boxMesh()})
	fe := wantKind(t, mustFail(Decode(data[:len(data)-3])), TruncatedInput)
	if fe.LOD != 1 {
		t.Fatalf("LOD: got %d want 1", fe.LOD)
	}
	if fe.Offset <= fileHeaderSize {
		t.Fatalf("offset %d should point into LOD 1", fe.Offset)
	}
}

func TestDecodeIndexOutOfRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		layout Layout
		face   Face
		index  int64
	}{
		{"zero based past end", 0, Face{0, 1, 4}, 4},
		{"one based past end", LayoutOneBased, Face{0, 1, 4}, 5},
	}
	for _, tt := range tests {
		m := quadMesh()
		m.Layout = tt.layout
		m.Faces = append(m.Faces, tt.face)
		data := encode(t, Source{Mesh: boxMesh()}, Source{Mesh: m})

		f, err := Decode(data)
		if f != nil {
			t.Fatalf("%s: partial file returned", tt.name)
		}
		fe := wantKind(t, err, IndexOutOfRange)
		if fe.LOD != 1 || fe.Index != tt.index {
			t.Fatalf("%s: got LOD %d index %d, want LOD 1 index %d", tt.name, fe.LOD, fe.Index, tt.index)
		}
	}
}

func TestDecodeOneBasedZeroIndex(t *testing.T) {
	t.Parallel()

	// Hand-build a one-based face stream containing a literal 0.
	m := quadMesh()
	m.Layout = LayoutOneBased
	data := encode(t, Source{Mesh: m})
	faces, _ := deflate([]byte{0, 0, 1, 0, 2, 0})
	data = replaceFaceStream(t, data, faces, 6)
	wantKind(t, mustFail(Decode(data)), IndexOutOfRange)
}

func TestDecodeCorruptedStream(t *testing.T) {
	t.Parallel()

	m := boxMesh()
	m.Layout = LayoutNormals | LayoutUVs
	data := encode(t, Source{Mesh: m})

	start := fileHeaderSize + lodHeaderSize
	vcomp := int(binary.LittleEndian.Uint32(data[fileHeaderSize+4:]))
	fcomp := int(binary.LittleEndian.Uint32(data[fileHeaderSize+12:]))
	if start+vcomp+fcomp != len(data) {
		t.Fatalf("streams cover %d..%d, file is %d bytes", start, start+vcomp+fcomp, len(data))
	}
	// Both compressed streams, vertex then face.
	for off := start; off < len(data); off++ {
		for _, flip := range []byte{0x01, 0x80, 0xFF} {
			bad := append([]byte(nil), data...)
			bad[off] ^= flip
			f, err := Decode(bad)
			if err == nil {
				t.Fatalf("corrupted byte %d (^%#x): decode succeeded", off, flip)
			}
			if f != nil {
				t.Fatalf("corrupted byte %d: partial file returned", off)
			}
			if !errors.Is(err, ErrDecompressionFailure) && !errors.Is(err, ErrSizeMismatch) {
				t.Fatalf("corrupted byte %d (^%#x): got %v", off, flip, err)
			}
		}
	}
}

func TestDecodeSizeMismatch(t *testing.T) {
	t.Parallel()

	base := encode(t, Source{Mesh: quadMesh()})
	tests := []struct {
		name string
		size uint32
	}{
		{"larger than stream", 4*12 + 12},
		{"smaller than stream", 2 * 12},
		{"not a record multiple", 4*12 + 1},
		{"above limit", 1 << 30},
	}
	for _, tt := range tests {
		data := append([]byte(nil), base...)
		binary.LittleEndian.PutUint32(data[fileHeaderSize+8:], tt.size)
		fe := wantKind(t, mustFail(Decode(data)), SizeMismatch)
		if fe.LOD != 0 {
			t.Fatalf("%s: LOD %d", tt.name, fe.LOD)
		}
	}

	trailing := append(append([]byte(nil), base...), 0)
	wantKind(t, mustFail(Decode(trailing)), SizeMismatch)
}

func TestDecodeIsIndependentPerCall(t *testing.T) {
	t.Parallel()

	a := encode(t, Source{Mesh: quadMesh()})
	b := encode(t, Source{Mesh: boxMesh()})
	dec := NewDecoder(Limits{})

	done := make(chan error, 8)
	for i := 0; i < 8; i++ {
		in, want := a, 4
		if i%2 == 1 {
			in, want = b, 8
		}
		go func() {
			f, err := dec.Decode(in)
			if err == nil && len(f.LODs[0].Mesh().Vertices) != want {
				err = errors.New("vertex count mismatch")
			}
			done <- err
		}()
	}
	for i := 0; i < 8; i++ {
		if err := <-done; err != nil {
			t.Fatal(err)
		}
	}
}

func TestNewDecoderDefaults(t *testing.T) {
	t.Parallel()

	got := NewDecoder(Limits{MaxLODs: 4}).Limits()
	if got.MaxLODs != 4 {
		t.Fatalf("MaxLODs: got %d want 4", got.MaxLODs)
	}
	if got.MaxArity != DefaultLimits.MaxArity || got.MaxStreamSize != DefaultLimits.MaxStreamSize {
		t.Fatalf("defaults not applied: %+v", got)
	}
}

func TestFormatErrorMessage(t *testing.T) {
	t.Parallel()

	err := &FormatError{Kind: TruncatedInput, LOD: 2, Offset: 120, Index: -1, Msg: "vertex stream"}
	want := "mdl: truncated input in LOD 2 at offset 120: vertex stream"
	if err.Error() != want {
		t.Fatalf("got %q want %q", err.Error(), want)
	}
}

func mustFail(_ *File, err error) error {
	return err
}

// replaceFaceStream swaps the face stream of a single-LOD file.
func replaceFaceStream(t *testing.T, data, comp []byte, raw uint32) []byte {
	t.Helper()
	hdr := data[fileHeaderSize : fileHeaderSize+lodHeaderSize]
	nameLen := int(binary.LittleEndian.Uint16(hdr[20:]))
	vcomp := int(binary.LittleEndian.Uint32(hdr[4:]))
	faceStart := fileHeaderSize + lodHeaderSize + nameLen + vcomp

	out := append([]byte(nil), data[:faceStart]...)
	binary.LittleEndian.PutUint32(out[fileHeaderSize+12:], uint32(len(comp)))
	binary.LittleEndian.PutUint32(out[fileHeaderSize+16:], raw)
	return append(out, comp...)
}

// Not parallel: measures process-wide allocation.
func TestDecodeDeclaredSizeDoesNotDriveAllocation(t *testing.T) {
	data := encode(t, Source{Mesh: &Mesh{Arity: 3}})
	const declared = 255 << 20 // multiple of the 12-byte stride, below MaxStreamSize
	binary.LittleEndian.PutUint32(data[fileHeaderSize+8:], declared)

	var before, after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	_, err := Decode(data)
	runtime.ReadMemStats(&after)

	wantKind(t, err, SizeMismatch)
	if got := after.TotalAlloc - before.TotalAlloc; got > 1<<20 {
		t.Fatalf("decoding %d bytes allocated %d bytes", len(data), got)
	}
}
