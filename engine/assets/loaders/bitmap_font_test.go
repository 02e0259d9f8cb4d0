package loaders

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/nya/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFnt = `info face="Test" size=12 bold=0 italic=0 charset="" unicode=1 stretchH=100 smooth=1 aa=1 padding=0,0,0,0 spacing=1,1 outline=0
common lineHeight=14 base=11 scaleW=16 scaleH=16 pages=1 packed=0
page id=0 file="test_0.png"
chars count=1
char id=97   x=0     y=0     width=4     height=8     xoffset=1     yoffset=2     xadvance=5     page=0  chnl=15
kernings count=1
kerning first=97  second=97  amount=-1
`

func writeTestFont(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	page := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	page.SetNRGBA(0, 0, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	f, err := os.Create(filepath.Join(dir, "test_0.png"))
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, page))
	require.NoError(t, f.Close())

	path := filepath.Join(dir, "test.fnt")
	require.NoError(t, os.WriteFile(path, []byte(testFnt), 0o644))
	return path
}

func TestBitmapFontLoader(t *testing.T) {
	font, err := (&BitmapFontLoader{}).Load(writeTestFont(t))
	require.NoError(t, err)

	assert.Equal(t, "Test", font.Face)
	assert.Equal(t, 14, font.LineHeight)
	assert.Equal(t, 11, font.Base)
	require.Len(t, font.Glyphs, 1)
	assert.Equal(t, BitmapGlyph{Rune: 'a', Width: 4, Height: 8, XOffset: 1, YOffset: 2, XAdvance: 5}, font.Glyphs[0])
	assert.Equal(t, map[[2]rune]int{{'a', 'a'}: -1}, font.Kernings)
	require.NotNil(t, font.Page)
	assert.Equal(t, image.Rect(0, 0, 16, 16), font.Page.Bounds())
}

func TestBitmapFontLoaderMissingFile(t *testing.T) {
	_, err := (&BitmapFontLoader{}).Load(filepath.Join(t.TempDir(), "none.fnt"))
	assert.True(t, core.IsEnvironment(err))
}
