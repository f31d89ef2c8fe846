package preview

import (
	"fmt"
	"image"
	"io"
	"os"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"

	"mdl2obj/internal/mdl"
	"mdl2obj/internal/postprocess"
	"mdl2obj/internal/raster"
)

// Format names an output image encoding.
type Format string

const (
	WebP Format = "webp"
	TGA  Format = "tga"
)

// ParseFormat accepts "webp" or "tga" in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case WebP, TGA:
		return f, nil
	}
	return "", fmt.Errorf("preview: unknown format %q", s)
}

// Ext returns the file extension including the dot.
func (f Format) Ext() string {
	return "." + string(f)
}

// Options controls thumbnail rendering.
type Options struct {
	Size        int
	Supersample int
	Format      Format
}

// Render rasterizes m at Size*Supersample and filters it down to Size.
func Render(m *mdl.Mesh, opts Options) *image.NRGBA {
	img := raster.Render(m, opts.Size, opts.Supersample)
	return postprocess.Downsample(img, opts.Supersample)
}

// Encode writes img in the given format.
func Encode(w io.Writer, img image.Image, f Format) error {
	switch f {
	case WebP:
		return nativewebp.Encode(w, img, nil)
	case TGA:
		return tga.Encode(w, img)
	}
	return fmt.Errorf("preview: unknown format %q", f)
}

// Write renders m and stores the thumbnail at path.
func Write(path string, m *mdl.Mesh, opts Options) (err error) {
	img := Render(m, opts)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("preview: create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("preview: close %s: %w", path, cerr)
		}
	}()

	if err := Encode(f, img, opts.Format); err != nil {
		return fmt.Errorf("preview: encode %s: %w", path, err)
	}
	return nil
}
