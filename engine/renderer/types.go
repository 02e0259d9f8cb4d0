package renderer

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// Vertex is the layout consumed by shader.vert: position at location 0, uv at location 1.
type Vertex struct {
	Position mgl32.Vec3
	TexCoord mgl32.Vec2
}

const (
	VertexStride         = uint32(unsafe.Sizeof(Vertex{}))
	VertexPositionOffset = uint32(unsafe.Offsetof(Vertex{}.Position))
	VertexTexCoordOffset = uint32(unsafe.Offsetof(Vertex{}.TexCoord))
)

// UniformObject is the per-object uniform block at binding 0.
type UniformObject struct {
	Model mgl32.Mat4
	View  mgl32.Mat4
	Proj  mgl32.Mat4
}

const UniformObjectSize = uint64(unsafe.Sizeof(UniformObject{}))

func IdentityUniformObject() UniformObject {
	return UniformObject{
		Model: mgl32.Ident4(),
		View:  mgl32.Ident4(),
		Proj:  mgl32.Ident4(),
	}
}

// Bytes is a view of the object's memory, ready to be copied into a mapped buffer.
func (u *UniformObject) Bytes() []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(u)), UniformObjectSize)
}

// PushData is pushed to the vertex stage before each sprite draw.
type PushData struct {
	Transform mgl32.Mat4
}

const PushDataSize = uint32(unsafe.Sizeof(PushData{}))

// QuadVertices returns a unit quad centred on the origin.
func QuadVertices() []Vertex {
	return []Vertex{
		{Position: mgl32.Vec3{0.5, 0.5, 0}, TexCoord: mgl32.Vec2{1, 1}},
		{Position: mgl32.Vec3{0.5, -0.5, 0}, TexCoord: mgl32.Vec2{1, 0}},
		{Position: mgl32.Vec3{-0.5, 0.5, 0}, TexCoord: mgl32.Vec2{0, 1}},
		{Position: mgl32.Vec3{-0.5, -0.5, 0}, TexCoord: mgl32.Vec2{0, 0}},
	}
}

func QuadIndices() []uint32 {
	return []uint32{0, 1, 2, 1, 3, 2}
}

// VertexBytes returns the raw bytes of vertices without copying.
func VertexBytes(vertices []Vertex) []byte {
	if len(vertices) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), len(vertices)*int(VertexStride))
}

// IndexBytes returns the raw bytes of indices without copying.
func IndexBytes(indices []uint32) []byte {
	if len(indices) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&indices[0])), len(indices)*4)
}
