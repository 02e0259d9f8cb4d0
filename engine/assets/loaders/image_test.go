package loaders

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/nya/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func testImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{G: 255, B: 10, A: 128})
	return img
}

func TestDecodePNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage()))

	data, err := (&ImageLoader{}).Decode(&buf)
	require.NoError(t, err)

	assert.Equal(t, "png", data.Format)
	assert.Equal(t, uint32(2), data.Width)
	assert.Equal(t, uint32(1), data.Height)
	assert.Equal(t, []byte{255, 0, 0, 255, 0, 255, 10, 128}, data.Pixels)
}

func TestDecodeBMPConvertsToRGBA8(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	img.Set(2, 1, color.RGBA{R: 1, G: 2, B: 3, A: 255})
	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, img))

	data, err := (&ImageLoader{}).Decode(&buf)
	require.NoError(t, err)

	assert.Equal(t, "bmp", data.Format)
	require.Len(t, data.Pixels, 3*2*4)
	assert.Equal(t, []byte{1, 2, 3, 255}, data.Pixels[len(data.Pixels)-4:])
}

func TestDecodeGarbage(t *testing.T) {
	_, err := (&ImageLoader{}).Decode(bytes.NewReader([]byte("not an image")))
	require.Error(t, err)
	assert.True(t, core.IsEnvironment(err))
	assert.ErrorIs(t, err, core.ErrUnsupportedImage)
}

func TestLoadMissingImage(t *testing.T) {
	_, err := (&ImageLoader{}).Load(filepath.Join(t.TempDir(), "missing.png"))
	assert.True(t, core.IsEnvironment(err))
}
