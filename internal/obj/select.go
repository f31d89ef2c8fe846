package obj

import (
	"fmt"

	"mdl2obj/internal/mdl"
)

// Select returns the meshes for the requested LOD indices in request order.
// A nil or empty lods selects every LOD in file order.
func Select(f *mdl.File, lods []int) ([]*mdl.Mesh, error) {
	if len(lods) == 0 {
		meshes := make([]*mdl.Mesh, len(f.LODs))
		for i := range f.LODs {
			meshes[i] = f.LODs[i].Mesh()
		}
		return meshes, nil
	}

	meshes := make([]*mdl.Mesh, 0, len(lods))
	for _, idx := range lods {
		if idx < 0 || idx >= len(f.LODs) {
			return nil, &ExportError{
				Kind: InvalidSelection,
				LOD:  idx,
				Err:  fmt.Errorf("file has %d LODs", len(f.LODs)),
			}
		}
		meshes = append(meshes, f.LODs[idx].Mesh())
	}
	return meshes, nil
}
