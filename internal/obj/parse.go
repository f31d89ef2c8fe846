package obj

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"mdl2obj/internal/mdl"
)

type faceRef struct {
	v, vt, vn int // 0-based, -1 when absent
}

// Parse reads OBJ text into a single mesh. Only v, vt, vn and f statements
// are interpreted; everything else is ignored. All faces must have the same
// number of corners. When faces reference texture coordinates or normals,
// each distinct v/vt/vn combination becomes one output vertex.
func Parse(r io.Reader) (*mdl.Mesh, error) {
	var (
		positions [][3]float32
		uvs       [][2]float32
		normals   [][3]float32
		faces     [][]faceRef
		arity     int
		useUV     bool
		useNormal bool
	)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || text[0] == '#' {
			continue
		}
		fields := strings.Fields(text)
		switch fields[0] {
		case "v":
			v, err := parseFloats(fields[1:], 3)
			if err != nil {
				return nil, fmt.Errorf("obj: line %d: %w", line, err)
			}
			positions = append(positions, [3]float32{v[0], v[1], v[2]})
		case "vt":
			v, err := parseFloats(fields[1:], 2)
			if err != nil {
				return nil, fmt.Errorf("obj: line %d: %w", line, err)
			}
			uvs = append(uvs, [2]float32{v[0], v[1]})
		case "vn":
			v, err := parseFloats(fields[1:], 3)
			if err != nil {
				return nil, fmt.Errorf("obj: line %d: %w", line, err)
			}
			normals = append(normals, [3]float32{v[0], v[1], v[2]})
		case "f":
			refs := make([]faceRef, 0, len(fields)-1)
			for _, tok := range fields[1:] {
				ref, err := parseRef(tok, len(positions), len(uvs), len(normals))
				if err != nil {
					return nil, fmt.Errorf("obj: line %d: %w", line, err)
				}
				refs = append(refs, ref)
			}
			if len(refs) < 3 {
				return nil, fmt.Errorf("obj: line %d: face has %d corners", line, len(refs))
			}
			if arity == 0 {
				arity = len(refs)
				useUV = refs[0].vt >= 0
				useNormal = refs[0].vn >= 0
			}
			if len(refs) != arity {
				return nil, fmt.Errorf("obj: line %d: face has %d corners, earlier faces have %d", line, len(refs), arity)
			}
			for _, ref := range refs {
				if (ref.vt >= 0) != useUV || (ref.vn >= 0) != useNormal {
					return nil, fmt.Errorf("obj: line %d: faces mix vertex attribute sets", line)
				}
			}
			faces = append(faces, refs)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("obj: read: %w", err)
	}
	if arity == 0 {
		arity = 3
	}

	m := &mdl.Mesh{Arity: arity}
	if useNormal {
		m.Layout |= mdl.LayoutNormals
	}
	if useUV {
		m.Layout |= mdl.LayoutUVs
	}

	if !useUV && !useNormal {
		m.Vertices = make([]mdl.Vertex, len(positions))
		for i, p := range positions {
			m.Vertices[i].Position = p
		}
		for _, refs := range faces {
			face := make(mdl.Face, len(refs))
			for k, ref := range refs {
				face[k] = uint32(ref.v)
			}
			m.Faces = append(m.Faces, face)
		}
		return m, nil
	}

	seen := make(map[faceRef]uint32)
	for _, refs := range faces {
		face := make(mdl.Face, len(refs))
		for k, ref := range refs {
			vi, ok := seen[ref]
			if !ok {
				vert := mdl.Vertex{Position: positions[ref.v]}
				if useUV {
					vert.UV = uvs[ref.vt]
				}
				if useNormal {
					vert.Normal = normals[ref.vn]
				}
				vi = uint32(len(m.Vertices))
				m.Vertices = append(m.Vertices, vert)
				seen[ref] = vi
			}
			face[k] = vi
		}
		m.Faces = append(m.Faces, face)
	}
	return m, nil
}

func parseFloats(fields []string, n int) ([]float32, error) {
	if len(fields) < n {
		return nil, fmt.Errorf("want %d values, have %d", n, len(fields))
	}
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return nil, err
		}
		out[i] = float32(v)
	}
	return out, nil
}

// parseRef parses "v", "v/vt", "v//vn" or "v/vt/vn".
func parseRef(tok string, nv, nvt, nvn int) (faceRef, error) {
	parts := strings.Split(tok, "/")
	if len(parts) > 3 {
		return faceRef{}, fmt.Errorf("bad face token %q", tok)
	}
	ref := faceRef{v: -1, vt: -1, vn: -1}
	counts := [3]int{nv, nvt, nvn}
	dst := [3]*int{&ref.v, &ref.vt, &ref.vn}
	for i, p := range parts {
		if p == "" {
			if i == 0 {
				return faceRef{}, fmt.Errorf("bad face token %q", tok)
			}
			continue
		}
		idx, err := resolveIndex(p, counts[i])
		if err != nil {
			return faceRef{}, fmt.Errorf("face token %q: %w", tok, err)
		}
		*dst[i] = idx
	}
	return ref, nil
}

// resolveIndex converts a 1-based or negative relative OBJ index to 0-based.
func resolveIndex(s string, count int) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	switch {
	case n > 0 && n <= count:
		return n - 1, nil
	case n < 0 && -n <= count:
		return count + n, nil
	}
	return 0, fmt.Errorf("index %d out of range (have %d)", n, count)
}
