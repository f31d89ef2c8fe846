package mdl

// Layout holds the per-LOD attribute flags stored in the LOD header.
type Layout uint16

const (
	LayoutNormals  Layout = 1 << 0 // vertex records carry nx, ny, nz
	LayoutUVs      Layout = 1 << 1 // vertex records carry u, v
	LayoutOneBased Layout = 1 << 2 // face indices start at 1
	LayoutIndex32  Layout = 1 << 3 // face indices are uint32 instead of uint16

	layoutKnown = LayoutNormals | LayoutUVs | LayoutOneBased | LayoutIndex32
)

func (l Layout) HasNormals() bool { return l&LayoutNormals != 0 }
func (l Layout) HasUVs() bool     { return l&LayoutUVs != 0 }
func (l Layout) OneBased() bool   { return l&LayoutOneBased != 0 }
func (l Layout) Index32() bool    { return l&LayoutIndex32 != 0 }

// VertexStride returns the byte size of one decompressed vertex record.
func (l Layout) VertexStride() int {
	n := 12
	if l.HasNormals() {
		n += 12
	}
	if l.HasUVs() {
		n += 8
	}
	return n
}

// IndexSize returns the byte width of one face index.
func (l Layout) IndexSize() int {
	if l.Index32() {
		return 4
	}
	return 2
}

// StreamHeader holds the declared sizes of one compressed stream.
type StreamHeader struct {
	Compressed   uint32
	Uncompressed uint32
}

// LODHeader is the fixed metadata block that precedes each LOD's streams.
type LODHeader struct {
	Layout       Layout
	Arity        int
	VertexStream StreamHeader
	FaceStream   StreamHeader
}

// Vertex is one decoded vertex. Normal and UV are zero unless the owning
// mesh layout declares them.
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
	UV       [2]float32
}

// Face holds 0-based vertex indices, len == Mesh.Arity.
type Face []uint32

// Mesh is the decoded geometry of one LOD.
// It is built once by the decoder and must be treated as read-only.
type Mesh struct {
	Layout   Layout
	Arity    int
	Vertices []Vertex
	Faces    []Face
}

func (m *Mesh) HasNormals() bool { return m.Layout.HasNormals() }
func (m *Mesh) HasUVs() bool     { return m.Layout.HasUVs() }

// Bounds returns the axis-aligned bounding box of all vertex positions.
// Both corners are zero for an empty mesh.
func (m *Mesh) Bounds() (min, max [3]float32) {
	if len(m.Vertices) == 0 {
		return min, max
	}
	min = m.Vertices[0].Position
	max = m.Vertices[0].Position
	for _, v := range m.Vertices[1:] {
		for k := 0; k < 3; k++ {
			if v.Position[k] < min[k] {
				min[k] = v.Position[k]
			}
			if v.Position[k] > max[k] {
				max[k] = v.Position[k]
			}
		}
	}
	return min, max
}

// LOD is one level-of-detail record. Index 0 is the most detailed.
type LOD struct {
	Index  int
	Header LODHeader
	Name   string

	// Decompressed streams as stored in the file.
	VertexData []byte
	FaceData   []byte

	mesh *Mesh
}

// Mesh returns the decoded geometry for this LOD.
func (l *LOD) Mesh() *Mesh {
	return l.mesh
}

// File is a fully decoded and validated MDL container.
type File struct {
	Version uint16
	LODs    []LOD
}

// LODCount returns the number of LOD records.
func (f *File) LODCount() int {
	return len(f.LODs)
}
