package math

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

const tol = 1e-6

func assertMat4InDelta(t *testing.T, expected, actual mgl32.Mat4) {
	t.Helper()
	for i := range expected {
		assert.InDelta(t, expected[i], actual[i], tol, "element %d", i)
	}
}

func TestTransformIdentity(t *testing.T) {
	assertMat4InDelta(t, mgl32.Ident4(), NewTransform().Matrix())
}

func TestTransformTranslationAndScale(t *testing.T) {
	tr := Transform{
		Translation: mgl32.Vec3{2, 0, 0},
		Scale:       mgl32.Vec3{2, 2, 1},
	}
	m := tr.Matrix()

	assert.Equal(t, mgl32.Vec4{2, 0, 0, 1}, m.Col(3))
	assertMat4InDelta(t, mgl32.Mat4{
		2, 0, 0, 0,
		0, 2, 0, 0,
		0, 0, 1, 0,
		2, 0, 0, 1,
	}, m)
}

func TestTransformMatchesComposedRotations(t *testing.T) {
	tr := Transform{
		Translation: mgl32.Vec3{1, -3, 0.5},
		Rotation:    mgl32.Vec3{0.3, -1.1, 2.4},
		Scale:       mgl32.Vec3{1.5, 0.5, 2},
	}

	expected := mgl32.Translate3D(1, -3, 0.5).
		Mul4(mgl32.HomogRotate3DY(-1.1)).
		Mul4(mgl32.HomogRotate3DX(0.3)).
		Mul4(mgl32.HomogRotate3DZ(2.4)).
		Mul4(mgl32.Scale3D(1.5, 0.5, 2))

	assertMat4InDelta(t, expected, tr.Matrix())
}

func TestTransformRotationOrderMatters(t *testing.T) {
	a := Transform{Rotation: mgl32.Vec3{math.Pi / 2, 0, math.Pi / 2}, Scale: mgl32.Vec3{1, 1, 1}}
	zThenX := mgl32.HomogRotate3DX(math.Pi / 2).Mul4(mgl32.HomogRotate3DZ(math.Pi / 2))
	xThenZ := mgl32.HomogRotate3DZ(math.Pi / 2).Mul4(mgl32.HomogRotate3DX(math.Pi / 2))

	assertMat4InDelta(t, zThenX, a.Matrix())
	assert.False(t, xThenZ.ApproxEqualThreshold(a.Matrix(), tol))
}

func TestSpriteProjection(t *testing.T) {
	p := SpriteProjection()
	ar := float32(16.0 / 9.0)

	assertMat4InDelta(t, mgl32.Ortho(-5, 5, -5/ar, 5/ar, -1, 1), p)

	corner := p.Mul4x1(mgl32.Vec4{5, 5 / ar, 0, 1})
	assert.InDelta(t, 1, corner.X(), tol)
	assert.InDelta(t, 1, corner.Y(), tol)

	center := p.Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	assert.InDelta(t, 0, center.X(), tol)
	assert.InDelta(t, 0, center.Y(), tol)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, uint32(10), Clamp(uint32(4), 10, 20))
	assert.Equal(t, uint32(20), Clamp(uint32(40), 10, 20))
	assert.Equal(t, 1.5, Clamp(1.5, 0, 2))
}
