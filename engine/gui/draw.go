package gui

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// DrawVert is the vertex layout consumed by gui.vert: position in pixels, atlas uv and a
// packed RGBA8 color.
type DrawVert struct {
	Pos mgl32.Vec2
	UV  mgl32.Vec2
	Col uint32
}

const (
	DrawVertSize      = uint32(unsafe.Sizeof(DrawVert{}))
	DrawVertPosOffset = uint32(unsafe.Offsetof(DrawVert{}.Pos))
	DrawVertUVOffset  = uint32(unsafe.Offsetof(DrawVert{}.UV))
	DrawVertColOffset = uint32(unsafe.Offsetof(DrawVert{}.Col))
)

// RGBA packs a color with red in the lowest byte, matching an R8G8B8A8 vertex attribute.
func RGBA(r, g, b, a uint8) uint32 {
	return uint32(r) | uint32(g)<<8 | uint32(b)<<16 | uint32(a)<<24
}

// DrawCmd is one indexed draw. Offsets are relative to the owning list.
type DrawCmd struct {
	// ClipRect is (minX, minY, maxX, maxY) in display pixels.
	ClipRect  mgl32.Vec4
	ElemCount uint32
	IdxOffset uint32
	VtxOffset uint32
}

type DrawList struct {
	Cmds     []DrawCmd
	Vertices []DrawVert
	Indices  []uint32
}

// DrawData is everything rendered by the GUI in one frame, in submission order.
type DrawData struct {
	Lists         []*DrawList
	DisplayPos    mgl32.Vec2
	DisplaySize   mgl32.Vec2
	TotalVtxCount int
	TotalIdxCount int
}

// Scale and Translate map display pixels to clip space, as pushed to gui.vert.
func (d *DrawData) Scale() mgl32.Vec2 {
	return mgl32.Vec2{2 / d.DisplaySize.X(), 2 / d.DisplaySize.Y()}
}

func (d *DrawData) Translate() mgl32.Vec2 {
	scale := d.Scale()
	return mgl32.Vec2{-1 - d.DisplayPos.X()*scale.X(), -1 - d.DisplayPos.Y()*scale.Y()}
}

// VertexBytes returns the raw bytes of vertices without copying.
func VertexBytes(vertices []DrawVert) []byte {
	if len(vertices) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), len(vertices)*int(DrawVertSize))
}

func (l *DrawList) reset() {
	l.Cmds = l.Cmds[:0]
	l.Vertices = l.Vertices[:0]
	l.Indices = l.Indices[:0]
}

// pushClip opens a new command clipped to rect.
func (l *DrawList) pushClip(rect mgl32.Vec4) {
	l.Cmds = append(l.Cmds, DrawCmd{
		ClipRect:  rect,
		IdxOffset: uint32(len(l.Indices)),
	})
}

// addQuad appends a textured quad to the last command.
func (l *DrawList) addQuad(min, max, uvMin, uvMax mgl32.Vec2, col uint32) {
	if len(l.Cmds) == 0 {
		l.pushClip(mgl32.Vec4{min.X(), min.Y(), max.X(), max.Y()})
	}
	base := uint32(len(l.Vertices))
	l.Vertices = append(l.Vertices,
		DrawVert{Pos: min, UV: uvMin, Col: col},
		DrawVert{Pos: mgl32.Vec2{max.X(), min.Y()}, UV: mgl32.Vec2{uvMax.X(), uvMin.Y()}, Col: col},
		DrawVert{Pos: max, UV: uvMax, Col: col},
		DrawVert{Pos: mgl32.Vec2{min.X(), max.Y()}, UV: mgl32.Vec2{uvMin.X(), uvMax.Y()}, Col: col},
	)
	l.Indices = append(l.Indices, base, base+1, base+2, base, base+2, base+3)
	l.Cmds[len(l.Cmds)-1].ElemCount += 6
}

// AddRectFilled draws a solid rectangle through the atlas white pixel.
func (l *DrawList) AddRectFilled(atlas *Atlas, min, max mgl32.Vec2, col uint32) {
	white := atlas.WhiteUV()
	l.addQuad(min, max, white, white, col)
}

// AddText lays text out from pos, the top left corner of the first line. Newlines restart at
// pos.X one line lower, tabs advance four spaces.
func (l *DrawList) AddText(atlas *Atlas, pos mgl32.Vec2, col uint32, text string) {
	x, y := pos.X(), pos.Y()
	prev := rune(-1)
	for _, r := range text {
		switch r {
		case '\n':
			x = pos.X()
			y += atlas.LineHeight
			prev = -1
			continue
		case '\t':
			x += atlas.TabAdvance()
			prev = -1
			continue
		}

		g := atlas.Glyph(r)
		x += atlas.Kerning(prev, r)
		if r != ' ' && g.Width > 0 && g.Height > 0 {
			min := mgl32.Vec2{x + g.XOffset, y + g.YOffset}
			max := mgl32.Vec2{min.X() + g.Width, min.Y() + g.Height}
			l.addQuad(min, max, g.UVMin, g.UVMax, col)
		}
		x += g.Advance
		prev = r
	}
}
