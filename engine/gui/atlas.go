package gui

import (
	"image"
	"image/color"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/nya/engine/assets/loaders"
	"github.com/spaghettifunk/nya/engine/core"
	"golang.org/x/image/draw"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Glyph is a laid out character: its box relative to the pen position on the line top, its
// advance and its atlas coordinates.
type Glyph struct {
	XOffset float32
	YOffset float32
	Width   float32
	Height  float32
	Advance float32
	UVMin   mgl32.Vec2
	UVMax   mgl32.Vec2
}

// Atlas is a straight alpha RGBA8 font texture. Glyph coverage is stored in alpha over
// white, so vertex colors tint the text. A white block is always present for solid fills.
type Atlas struct {
	Width      int
	Height     int
	Pixels     []byte
	LineHeight float32

	glyphs   map[rune]Glyph
	kernings map[[2]rune]float32
	fallback Glyph
	whiteUV  mgl32.Vec2
}

const (
	basicFirstRune = ' '
	basicLastRune  = '~'
	basicColumns   = 16
)

// NewBasicAtlas rasterizes the printable ASCII range of the 7x13 fixed face. Cell 0 is the
// white block.
func NewBasicAtlas() *Atlas {
	face := basicfont.Face7x13
	cellW, cellH := face.Advance+1, face.Height+1

	cells := int(basicLastRune-basicFirstRune) + 2
	rows := (cells + basicColumns - 1) / basicColumns
	img := image.NewNRGBA(image.Rect(0, 0, basicColumns*cellW, rows*cellH))

	atlas := &Atlas{
		Width:      img.Rect.Dx(),
		Height:     img.Rect.Dy(),
		LineHeight: float32(face.Height),
		glyphs:     make(map[rune]Glyph),
		kernings:   make(map[[2]rune]float32),
	}

	draw.Draw(img, image.Rect(0, 0, face.Advance, face.Height), image.White, image.Point{}, draw.Src)
	atlas.whiteUV = atlas.uv(face.Advance/2, face.Height/2)

	for r := basicFirstRune; r <= basicLastRune; r++ {
		cell := int(r-basicFirstRune) + 1
		x, y := (cell%basicColumns)*cellW, (cell/basicColumns)*cellH

		dot := fixed.P(x, y+face.Ascent)
		dr, mask, maskp, _, ok := face.Glyph(dot, r)
		if ok {
			draw.DrawMask(img, dr, image.White, image.Point{}, mask, maskp, draw.Over)
		}
		atlas.glyphs[r] = Glyph{
			Width:   float32(face.Advance),
			Height:  float32(face.Height),
			Advance: float32(face.Advance),
			UVMin:   atlas.uv(x, y),
			UVMax:   atlas.uv(x+face.Advance, y+face.Height),
		}
	}
	atlas.fallback = atlas.glyphs['?']
	atlas.Pixels = img.Pix
	return atlas
}

// NewBitmapAtlas builds an atlas from a single page BMFont. Two white rows are appended
// below the page for solid fills.
func NewBitmapAtlas(font *loaders.BitmapFont) (*Atlas, error) {
	const op = "build bitmap atlas"
	if err := core.Check(font != nil && font.Page != nil, op, "bitmap font has no page image"); err != nil {
		return nil, err
	}
	bounds := font.Page.Bounds()
	if err := core.Check(!bounds.Empty(), op, "bitmap font page is empty"); err != nil {
		return nil, err
	}

	img := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()+2))
	draw.Draw(img, image.Rect(0, 0, bounds.Dx(), bounds.Dy()), font.Page, bounds.Min, draw.Src)
	draw.Draw(img, image.Rect(0, bounds.Dy(), bounds.Dx(), bounds.Dy()+2), &image.Uniform{C: color.White}, image.Point{}, draw.Src)

	atlas := &Atlas{
		Width:      img.Rect.Dx(),
		Height:     img.Rect.Dy(),
		Pixels:     img.Pix,
		LineHeight: float32(font.LineHeight),
		glyphs:     make(map[rune]Glyph, len(font.Glyphs)),
		kernings:   make(map[[2]rune]float32, len(font.Kernings)),
	}
	atlas.whiteUV = atlas.uv(0, bounds.Dy()+1)

	for _, g := range font.Glyphs {
		atlas.glyphs[g.Rune] = Glyph{
			XOffset: float32(g.XOffset),
			YOffset: float32(g.YOffset),
			Width:   float32(g.Width),
			Height:  float32(g.Height),
			Advance: float32(g.XAdvance),
			UVMin:   atlas.uv(g.X, g.Y),
			UVMax:   atlas.uv(g.X+g.Width, g.Y+g.Height),
		}
	}
	for pair, amount := range font.Kernings {
		atlas.kernings[pair] = float32(amount)
	}

	fallback, ok := atlas.glyphs['?']
	if !ok {
		if err := core.Check(len(atlas.glyphs) > 0, op, "bitmap font has no glyphs"); err != nil {
			return nil, err
		}
		core.LogWarn("bitmap font %q has no '?' glyph, unknown runes render as blanks", font.Face)
		fallback = Glyph{Advance: atlas.LineHeight / 2}
	}
	atlas.fallback = fallback
	return atlas, nil
}

// uv maps the top left corner of pixel (x, y) to texture coordinates.
func (a *Atlas) uv(x, y int) mgl32.Vec2 {
	return mgl32.Vec2{float32(x) / float32(a.Width), float32(y) / float32(a.Height)}
}

// Glyph returns the glyph for r, or the '?' glyph when the atlas does not have it.
func (a *Atlas) Glyph(r rune) Glyph {
	if g, ok := a.glyphs[r]; ok {
		return g
	}
	return a.fallback
}

func (a *Atlas) HasGlyph(r rune) bool {
	_, ok := a.glyphs[r]
	return ok
}

func (a *Atlas) Kerning(prev, next rune) float32 {
	if prev < 0 {
		return 0
	}
	return a.kernings[[2]rune{prev, next}]
}

func (a *Atlas) TabAdvance() float32 {
	return a.Glyph(' ').Advance * 4
}

// WhiteUV points inside the white block.
func (a *Atlas) WhiteUV() mgl32.Vec2 {
	return a.whiteUV
}

// MeasureText returns the size of the box text occupies.
func (a *Atlas) MeasureText(text string) mgl32.Vec2 {
	var width, lineWidth float32
	lines := 1
	prev := rune(-1)
	for _, r := range text {
		switch r {
		case '\n':
			lines++
			lineWidth = 0
			prev = -1
			continue
		case '\t':
			lineWidth += a.TabAdvance()
			prev = -1
		default:
			lineWidth += a.Kerning(prev, r) + a.Glyph(r).Advance
			prev = r
		}
		if lineWidth > width {
			width = lineWidth
		}
	}
	return mgl32.Vec2{width, float32(lines) * a.LineHeight}
}
