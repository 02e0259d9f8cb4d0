package math

import "github.com/go-gl/mathgl/mgl32"

const (
	// SpriteAspectRatio is the fixed aspect the sprite camera is laid out for.
	SpriteAspectRatio float32 = 16.0 / 9.0
	// SpriteHalfWidth is half the visible width of the sprite camera in world units.
	SpriteHalfWidth float32 = 5.0
)

// SpriteProjection is the orthographic projection used for every sprite:
// x in [-5, 5], y in [-5/ar, 5/ar], z in [-1, 1].
func SpriteProjection() mgl32.Mat4 {
	return Orthographic(SpriteHalfWidth, SpriteAspectRatio)
}

// Orthographic builds a 2D orthographic projection centered on the origin.
func Orthographic(halfWidth, aspectRatio float32) mgl32.Mat4 {
	halfHeight := halfWidth / aspectRatio
	return mgl32.Ortho2D(-halfWidth, halfWidth, -halfHeight, halfHeight)
}
