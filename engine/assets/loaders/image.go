package loaders

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/spaghettifunk/nya/engine/core"
	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImageData is a decoded image as tightly packed, straight alpha RGBA8 rows.
type ImageData struct {
	Width  uint32
	Height uint32
	Pixels []byte
	// Format is the name the decoder registered with, "png", "jpeg"...
	Format string
}

type ImageLoader struct{}

// Load decodes the image at path. png, jpeg, gif, bmp, tiff and webp are sniffed from their
// magic bytes, not from the extension.
func (il *ImageLoader) Load(path string) (*ImageData, error) {
	f, err := os.Open(path)
	if err != nil {
		err = core.NewEnvironmentError("load image", err)
		core.LogError("%s", err)
		return nil, err
	}
	defer f.Close()

	data, err := il.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return data, nil
}

func (il *ImageLoader) Decode(r io.Reader) (*ImageData, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		err = core.NewEnvironmentError("decode image", fmt.Errorf("%w: %w", core.ErrUnsupportedImage, err))
		core.LogError("%s", err)
		return nil, err
	}
	bounds := img.Bounds()
	if bounds.Empty() {
		err := core.NewEnvironmentError("decode image", fmt.Errorf("%w: %s image has no pixels", core.ErrUnsupportedImage, format))
		core.LogError("%s", err)
		return nil, err
	}

	return &ImageData{
		Width:  uint32(bounds.Dx()),
		Height: uint32(bounds.Dy()),
		Pixels: toNRGBA(img).Pix,
		Format: format,
	}, nil
}

// toNRGBA returns img as a zero based NRGBA image with no row padding, converting when needed.
func toNRGBA(img image.Image) *image.NRGBA {
	bounds := img.Bounds()
	if n, ok := img.(*image.NRGBA); ok && bounds.Min == (image.Point{}) && n.Stride == 4*bounds.Dx() {
		return n
	}
	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)
	return dst
}
