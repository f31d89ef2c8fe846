package obj

import (
	"os"

	"mdl2obj/internal/mdl"
)

// Export creates or truncates path and writes m to it as OBJ text.
// The file is closed on every path; a failed close is reported as a
// write failure since buffered data may be lost.
func Export(path string, m *mdl.Mesh, opts Options) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return &ExportError{Kind: WriteFailure, LOD: opts.LOD, Path: path, Err: err}
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = &ExportError{Kind: WriteFailure, LOD: opts.LOD, Path: path, Err: cerr}
		}
	}()

	if err := Write(f, m, opts); err != nil {
		return &ExportError{Kind: WriteFailure, LOD: opts.LOD, Path: path, Err: err}
	}
	return nil
}
