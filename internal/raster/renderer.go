package raster

import (
	"image"
	"math"

	"mdl2obj/internal/mathutil"
	"mdl2obj/internal/mdl"
)

// Render draws a decoded mesh from the fixed preview camera into a square
// NRGBA image of size*supersample pixels. N-gons are fan-triangulated.
func Render(m *mdl.Mesh, size, supersample int) *image.NRGBA {
	if supersample < 1 {
		supersample = 1
	}
	renderSize := size * supersample
	if len(m.Vertices) == 0 || len(m.Faces) == 0 {
		return image.NewNRGBA(image.Rect(0, 0, renderSize, renderSize))
	}

	R := mathutil.PreviewView

	// Bounding box of all transformed vertices
	allMin := [3]float64{math.Inf(1), math.Inf(1), math.Inf(1)}
	allMax := [3]float64{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for _, v := range m.Vertices {
		tv := R.MulVec3(mathutil.FromFloat32(v.Position))
		for k := 0; k < 3; k++ {
			if tv[k] < allMin[k] {
				allMin[k] = tv[k]
			}
			if tv[k] > allMax[k] {
				allMax[k] = tv[k]
			}
		}
	}

	center := [3]float64{
		(allMin[0] + allMax[0]) / 2,
		(allMin[1] + allMax[1]) / 2,
		(allMin[2] + allMax[2]) / 2,
	}
	span := math.Max(allMax[0]-allMin[0], allMax[1]-allMin[1])
	if span < 0.001 {
		span = 0.001
	}

	margin := 8 * supersample
	if 4*margin > renderSize {
		margin = renderSize / 8
	}
	scale := float64(renderSize-2*margin) / span

	px, py, pz := ProjectVertices(m.Vertices, R, center, scale, renderSize)

	fb := NewFrameBuffer(renderSize, renderSize)
	lc := DefaultLightConfig()
	for _, face := range m.Faces {
		for k := 1; k+1 < len(face); k++ {
			vi := [3]int{int(face[0]), int(face[k]), int(face[k+1])}
			RasterizeTriangle(fb, px, py, pz, vi, DefaultColor, &lc)
		}
	}
	return fb.Image()
}

// ProjectVertices transforms vertices by R and maps them orthographically to
// screen coordinates. Returns screen X, screen Y and depth.
func ProjectVertices(verts []mdl.Vertex, R mathutil.Mat3, center [3]float64, scale float64, renderSize int) ([]float64, []float64, []float64) {
	n := len(verts)
	px := make([]float64, n)
	py := make([]float64, n)
	pz := make([]float64, n)

	half := float64(renderSize) / 2
	for i := range verts {
		t := R.MulVec3(mathutil.FromFloat32(verts[i].Position))
		px[i] = (t[0]-center[0])*scale + half
		py[i] = -(t[1]-center[1])*scale + half
		pz[i] = t[2]
	}
	return px, py, pz
}
