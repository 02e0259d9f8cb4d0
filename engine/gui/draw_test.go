package gui

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRGBA(t *testing.T) {
	assert.Equal(t, uint32(0x04030201), RGBA(1, 2, 3, 4))
}

func TestAddTextSkipsBlanks(t *testing.T) {
	a := NewBasicAtlas()
	list := &DrawList{}

	list.AddText(a, mgl32.Vec2{10, 20}, RGBA(255, 0, 0, 255), "a b")

	require.Len(t, list.Cmds, 1)
	assert.Equal(t, uint32(12), list.Cmds[0].ElemCount)
	require.Len(t, list.Vertices, 8)
	assert.Len(t, list.Indices, 12)

	assert.Equal(t, mgl32.Vec2{10, 20}, list.Vertices[0].Pos)
	// 'b' starts two advances later
	assert.Equal(t, mgl32.Vec2{24, 20}, list.Vertices[4].Pos)
	assert.Equal(t, RGBA(255, 0, 0, 255), list.Vertices[7].Col)
	assert.Equal(t, []uint32{4, 5, 6, 4, 6, 7}, list.Indices[6:])
}

func TestAddTextNewline(t *testing.T) {
	a := NewBasicAtlas()
	list := &DrawList{}

	list.AddText(a, mgl32.Vec2{5, 5}, RGBA(255, 255, 255, 255), "x\ny")

	require.Len(t, list.Vertices, 8)
	assert.Equal(t, mgl32.Vec2{5, 18}, list.Vertices[4].Pos)
}

func TestAddRectFilledUsesWhite(t *testing.T) {
	a := NewBasicAtlas()
	list := &DrawList{}

	list.AddRectFilled(a, mgl32.Vec2{0, 0}, mgl32.Vec2{4, 4}, RGBA(1, 1, 1, 1))

	require.Len(t, list.Vertices, 4)
	for _, v := range list.Vertices {
		assert.Equal(t, a.WhiteUV(), v.UV)
	}
	assert.Equal(t, mgl32.Vec4{0, 0, 4, 4}, list.Cmds[0].ClipRect)
}

func TestDrawDataProjection(t *testing.T) {
	d := &DrawData{DisplaySize: mgl32.Vec2{800, 600}}

	scale, translate := d.Scale(), d.Translate()
	// the display corners land on the clip space corners
	assert.InDelta(t, -1, 0*scale.X()+translate.X(), 1e-6)
	assert.InDelta(t, 1, 800*scale.X()+translate.X(), 1e-6)
	assert.InDelta(t, 1, 600*scale.Y()+translate.Y(), 1e-6)
}
