package math

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Transform is the translation, Euler rotation (radians) and scale of a 2D sprite.
type Transform struct {
	Translation mgl32.Vec3
	Rotation    mgl32.Vec3
	Scale       mgl32.Vec3
}

// NewTransform returns the identity transform.
func NewTransform() Transform {
	return Transform{
		Scale: mgl32.Vec3{1, 1, 1},
	}
}

// Matrix composes translate * Ry * Rx * Rz * scale in closed form. The rotation order
// (Z, then X, then Y) is part of the contract: changing it changes every rendered sprite.
func (t Transform) Matrix() mgl32.Mat4 {
	c3 := cos(t.Rotation.Z())
	s3 := sin(t.Rotation.Z())
	c2 := cos(t.Rotation.X())
	s2 := sin(t.Rotation.X())
	c1 := cos(t.Rotation.Y())
	s1 := sin(t.Rotation.Y())

	sx, sy, sz := t.Scale.X(), t.Scale.Y(), t.Scale.Z()

	return mgl32.Mat4{
		// column 0
		sx * (c1*c3 + s1*s2*s3),
		sx * (c2 * s3),
		sx * (c1*s2*s3 - c3*s1),
		0,
		// column 1
		sy * (c3*s1*s2 - c1*s3),
		sy * (c2 * c3),
		sy * (c1*c3*s2 + s1*s3),
		0,
		// column 2
		sz * (c2 * s1),
		sz * (-s2),
		sz * (c1 * c2),
		0,
		// column 3
		t.Translation.X(), t.Translation.Y(), t.Translation.Z(), 1,
	}
}

func cos(v float32) float32 {
	return float32(math.Cos(float64(v)))
}

func sin(v float32) float32 {
	return float32(math.Sin(float64(v)))
}
