package loaders

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/fzipp/bmfont"
	"github.com/spaghettifunk/nya/engine/core"
)

type BitmapGlyph struct {
	Rune     rune
	X        int
	Y        int
	Width    int
	Height   int
	XOffset  int
	YOffset  int
	XAdvance int
}

// BitmapFont is an AngelCode BMFont reduced to its first page.
type BitmapFont struct {
	Face       string
	Size       int
	LineHeight int
	Base       int
	Glyphs     []BitmapGlyph
	Kernings   map[[2]rune]int
	Page       image.Image
}

type BitmapFontLoader struct{}

// Load reads a text .fnt descriptor and decodes its page 0 image, resolved next to the
// descriptor. Glyphs on other pages are dropped.
func (fl *BitmapFontLoader) Load(path string) (*BitmapFont, error) {
	const op = "load bitmap font"
	font, err := bmfont.Load(path)
	if err != nil {
		err = core.NewEnvironmentError(op, fmt.Errorf("%s: %w", path, err))
		core.LogError("%s", err)
		return nil, err
	}
	desc := font.Descriptor

	out := &BitmapFont{
		Face:       desc.Info.Face,
		Size:       int(desc.Info.Size),
		LineHeight: int(desc.Common.LineHeight),
		Base:       int(desc.Common.Base),
		Glyphs:     make([]BitmapGlyph, 0, len(desc.Chars)),
		Kernings:   make(map[[2]rune]int, len(desc.Kerning)),
	}

	pageFile := ""
	for _, p := range desc.Pages {
		if int(p.ID) == 0 {
			pageFile = p.File
		}
	}
	if pageFile == "" {
		err := core.NewEnvironmentError(op, fmt.Errorf("%s: font has no page 0", path))
		core.LogError("%s", err)
		return nil, err
	}

	skipped := 0
	for _, g := range desc.Chars {
		if int(g.Page) != 0 {
			skipped++
			continue
		}
		out.Glyphs = append(out.Glyphs, BitmapGlyph{
			Rune:     rune(g.ID),
			X:        int(g.X),
			Y:        int(g.Y),
			Width:    int(g.Width),
			Height:   int(g.Height),
			XOffset:  int(g.XOffset),
			YOffset:  int(g.YOffset),
			XAdvance: int(g.XAdvance),
		})
	}
	if skipped > 0 {
		core.LogWarn("bitmap font %s: %d glyphs on pages other than 0 were dropped", path, skipped)
	}
	for pair, k := range desc.Kerning {
		out.Kernings[[2]rune{rune(pair.First), rune(pair.Second)}] = int(k.Amount)
	}

	f, err := os.Open(filepath.Join(filepath.Dir(path), pageFile))
	if err != nil {
		err = core.NewEnvironmentError(op, err)
		core.LogError("%s", err)
		return nil, err
	}
	defer f.Close()

	out.Page, _, err = image.Decode(f)
	if err != nil {
		err = core.NewEnvironmentError(op, fmt.Errorf("%w: page %s: %w", core.ErrUnsupportedImage, pageFile, err))
		core.LogError("%s", err)
		return nil, err
	}
	core.LogDebug("loaded bitmap font %q: %d glyphs, %d kernings", out.Face, len(out.Glyphs), len(out.Kernings))
	return out, nil
}
