package gui

import (
	"image"
	"image/color"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/nya/engine/assets/loaders"
	"github.com/spaghettifunk/nya/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func alphaAt(a *Atlas, x, y int) byte {
	return a.Pixels[(y*a.Width+x)*4+3]
}

func TestBasicAtlas(t *testing.T) {
	a := NewBasicAtlas()

	require.Len(t, a.Pixels, a.Width*a.Height*4)
	assert.Equal(t, float32(13), a.LineHeight)

	white := a.WhiteUV()
	wx, wy := int(white.X()*float32(a.Width)), int(white.Y()*float32(a.Height))
	assert.Equal(t, byte(255), alphaAt(a, wx, wy))

	g := a.Glyph('A')
	x0, y0 := int(g.UVMin.X()*float32(a.Width)+0.5), int(g.UVMin.Y()*float32(a.Height)+0.5)
	covered := 0
	for y := y0; y < y0+int(g.Height); y++ {
		for x := x0; x < x0+int(g.Width); x++ {
			if alphaAt(a, x, y) > 0 {
				covered++
			}
		}
	}
	assert.Positive(t, covered, "glyph A has no coverage")

	assert.True(t, a.HasGlyph('~'))
	assert.False(t, a.HasGlyph('é'))
	assert.Equal(t, a.Glyph('?'), a.Glyph('é'))
}

func TestBasicAtlasMeasureText(t *testing.T) {
	a := NewBasicAtlas()

	assert.Equal(t, mgl32.Vec2{21, 26}, a.MeasureText("ab\ncde"))
	assert.Equal(t, mgl32.Vec2{0, 13}, a.MeasureText(""))
	assert.Equal(t, mgl32.Vec2{28, 13}, a.MeasureText("\t"))
}

func testBitmapFont() *loaders.BitmapFont {
	page := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 8; y++ {
		for x := 0; x < 4; x++ {
			page.Set(x, y, color.White)
		}
	}
	return &loaders.BitmapFont{
		Face:       "test",
		LineHeight: 10,
		Glyphs: []loaders.BitmapGlyph{
			{Rune: 'a', X: 0, Y: 0, Width: 4, Height: 8, XOffset: 1, YOffset: 2, XAdvance: 5},
		},
		Kernings: map[[2]rune]int{{'a', 'a'}: -1},
		Page:     page,
	}
}

func TestBitmapAtlas(t *testing.T) {
	a, err := NewBitmapAtlas(testBitmapFont())
	require.NoError(t, err)

	assert.Equal(t, 16, a.Width)
	assert.Equal(t, 18, a.Height)
	assert.Equal(t, byte(255), alphaAt(a, 0, 16))
	assert.Equal(t, byte(255), alphaAt(a, 15, 17))
	assert.Equal(t, byte(0), alphaAt(a, 8, 8))

	g := a.Glyph('a')
	assert.Equal(t, float32(1), g.XOffset)
	assert.Equal(t, float32(2), g.YOffset)
	assert.Equal(t, mgl32.Vec2{0, 0}, g.UVMin)
	assert.Equal(t, mgl32.Vec2{4.0 / 16, 8.0 / 18}, g.UVMax)

	assert.Equal(t, float32(9), a.MeasureText("aa").X())
	// no '?' glyph: unknown runes advance half a line
	assert.Equal(t, float32(5), a.Glyph('z').Advance)
}

func TestBitmapAtlasRequiresPage(t *testing.T) {
	_, err := NewBitmapAtlas(nil)
	assert.True(t, core.IsPrecondition(err))

	font := testBitmapFont()
	font.Page = nil
	_, err = NewBitmapAtlas(font)
	assert.True(t, core.IsPrecondition(err))
}
