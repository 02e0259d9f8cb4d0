package systems

import (
	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/nya/engine/core"
	emath "github.com/spaghettifunk/nya/engine/math"
	"github.com/spaghettifunk/nya/engine/renderer"
	"github.com/spaghettifunk/nya/engine/renderer/vulkan"
)

// FrameRenderer is the part of the renderer one frame is recorded through. *vulkan.Renderer
// implements it.
type FrameRenderer interface {
	BeginRenderPass() error
	EndRenderPass() error
	WritableSlot() (uint32, error)
	BindPipeline(pipeline *vulkan.Pipeline) error
	PushConstants(pipeline *vulkan.Pipeline, data *renderer.PushData) error
	Draw(pipeline *vulkan.Pipeline, geometry *vulkan.Geometry, set vk.DescriptorSet) error
}

// GeometryUploader moves sprite geometry to the GPU. *vulkan.Renderer implements it.
type GeometryUploader interface {
	UploadGeometry(vertices []renderer.Vertex, indices []uint32) (*vulkan.Geometry, error)
	DestroyGeometry(geometry *vulkan.Geometry)
}

// RenderingSystem records the sprites of a frame with one pipeline.
type RenderingSystem struct {
	uploader GeometryUploader

	View       mgl32.Mat4
	Projection mgl32.Mat4
}

func NewRenderingSystem(uploader GeometryUploader) (*RenderingSystem, error) {
	if err := core.Check(uploader != nil, "create rendering system", "geometry uploader is nil"); err != nil {
		return nil, err
	}
	return &RenderingSystem{
		uploader:   uploader,
		View:       mgl32.Ident4(),
		Projection: emath.SpriteProjection(),
	}, nil
}

// Load uploads the geometry of every sprite that does not have one yet.
func (rs *RenderingSystem) Load(sprites []*vulkan.Sprite) error {
	for _, s := range sprites {
		if s.Geometry != nil {
			continue
		}
		geometry, err := rs.uploader.UploadGeometry(s.Vertices, s.Indices)
		if err != nil {
			return err
		}
		s.Geometry = geometry
	}
	return nil
}

// Render records one frame. The slot's fence has been waited on by BeginRenderPass, so the
// uniform buffers of that slot are written between begin and end. Once the pass has begun,
// it is always ended so the frame is submitted; the first error is returned.
func (rs *RenderingSystem) Render(frame FrameRenderer, pipeline *vulkan.Pipeline, sprites []*vulkan.Sprite) error {
	if err := frame.BeginRenderPass(); err != nil {
		return err
	}
	err := rs.record(frame, pipeline, sprites)
	if endErr := frame.EndRenderPass(); err == nil {
		err = endErr
	}
	return err
}

func (rs *RenderingSystem) record(frame FrameRenderer, pipeline *vulkan.Pipeline, sprites []*vulkan.Sprite) error {
	slot, err := frame.WritableSlot()
	if err != nil {
		return err
	}
	if err := frame.BindPipeline(pipeline); err != nil {
		return err
	}

	for _, s := range sprites {
		model := s.Transform.Matrix()
		ubo := renderer.UniformObject{
			Model: model,
			View:  rs.View,
			Proj:  rs.Projection,
		}
		if err := s.UpdateUniformBuffers(slot, &ubo); err != nil {
			return err
		}

		s.Push.Transform = rs.Projection.Mul4(model)
		if err := frame.PushConstants(pipeline, &s.Push); err != nil {
			return err
		}

		set, err := s.DescriptorSet(slot)
		if err != nil {
			return err
		}
		if err := frame.Draw(pipeline, s.Geometry, set); err != nil {
			return err
		}
	}
	return nil
}

// Destroy releases the geometry uploaded by Load. The device must be idle.
func (rs *RenderingSystem) Destroy(sprites []*vulkan.Sprite) {
	for _, s := range sprites {
		if s.Geometry != nil {
			rs.uploader.DestroyGeometry(s.Geometry)
			s.Geometry = nil
		}
	}
}
