package vulkan

import (
	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/nya/engine/core"
	emath "github.com/spaghettifunk/nya/engine/math"
	"github.com/spaghettifunk/nya/engine/renderer"
)

// DescriptorWriter applies descriptor set writes. VulkanDevice implements it.
type DescriptorWriter interface {
	UpdateDescriptorSets(writes []vk.WriteDescriptorSet)
}

// Sprite owns the per frame slot GPU state of one textured quad: a uniform buffer and a
// descriptor set per slot. Only the sprite itself writes its descriptor sets.
type Sprite struct {
	ID        core.ID
	Transform emath.Transform
	Vertices  []renderer.Vertex
	Indices   []uint32
	Push      renderer.PushData
	// Geometry is uploaded once by the rendering system.
	Geometry *Geometry

	writer   DescriptorWriter
	pool     vk.DescriptorPool
	sets     []vk.DescriptorSet
	uniforms []*Buffer
	textures []*Texture
}

// NewSprite allocates frames descriptor sets of layout from a pool of its own and one
// persistently mapped uniform buffer per set.
func NewSprite(device *VulkanDevice, layout *DescriptorSetLayout, frames uint32) (*Sprite, error) {
	const op = "create sprite"
	if device == nil {
		err := core.NewPreconditionError(op, core.ErrNilDevice)
		core.LogError("%s", err)
		return nil, err
	}
	if err := checkFrames(op, frames); err != nil {
		return nil, err
	}

	pool, err := NewDescriptorPool(device, layout.PoolSizes(frames), frames,
		vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateUpdateAfterBindBit))
	if err != nil {
		return nil, err
	}
	sets, err := AllocateDescriptorSets(device, pool, layout, frames)
	if err != nil {
		DestroyDescriptorPool(device, pool)
		return nil, err
	}

	uniforms := make([]*Buffer, 0, frames)
	for i := uint32(0); i < frames; i++ {
		buffer, err := NewBuffer(device, renderer.UniformObjectSize,
			vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit),
			vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
		if err != nil {
			for _, u := range uniforms {
				u.Destroy(device)
			}
			DestroyDescriptorPool(device, pool)
			return nil, err
		}
		uniforms = append(uniforms, buffer)
	}

	sprite, err := NewSpriteWithResources(device, sets, uniforms)
	if err != nil {
		for _, u := range uniforms {
			u.Destroy(device)
		}
		DestroyDescriptorPool(device, pool)
		return nil, err
	}
	sprite.pool = pool
	return sprite, nil
}

// NewSpriteWithResources builds a sprite over already allocated sets and mapped uniform
// buffers, one of each per frame slot. Every buffer starts with identity matrices and every
// set points its uniform binding at the buffer of the same slot.
func NewSpriteWithResources(writer DescriptorWriter, sets []vk.DescriptorSet, uniforms []*Buffer) (*Sprite, error) {
	const op = "create sprite"
	if err := core.Check(writer != nil, op, "descriptor writer is nil"); err != nil {
		return nil, err
	}
	if err := core.Check(len(sets) == len(uniforms), op, "%d descriptor sets for %d uniform buffers", len(sets), len(uniforms)); err != nil {
		return nil, err
	}
	if err := checkFrames(op, uint32(len(sets))); err != nil {
		return nil, err
	}

	s := &Sprite{
		ID:        core.NewID("sprite"),
		Transform: emath.NewTransform(),
		Vertices:  renderer.QuadVertices(),
		Indices:   renderer.QuadIndices(),
		Push:      renderer.PushData{Transform: mgl32.Ident4()},
		writer:    writer,
		sets:      append([]vk.DescriptorSet(nil), sets...),
		uniforms:  append([]*Buffer(nil), uniforms...),
		textures:  make([]*Texture, len(sets)),
	}

	identity := renderer.IdentityUniformObject()
	for slot := range s.sets {
		if err := s.UpdateUniformBuffers(uint32(slot), &identity); err != nil {
			return nil, err
		}
	}
	core.LogDebug("created %s with %d frame slots", s.ID.Short(), len(s.sets))
	return s, nil
}

func checkFrames(op string, frames uint32) error {
	return core.Check(frames >= 1 && frames <= core.MaxFramesInFlight, op,
		"frames in flight must be in [1, %d], got %d", core.MaxFramesInFlight, frames)
}

func (s *Sprite) checkSlot(op string, slot uint32) error {
	return core.Check(slot < uint32(len(s.sets)), op, "%w: slot %d, have %d", core.ErrSlotOutOfRange, slot, len(s.sets))
}

func (s *Sprite) FramesInFlight() uint32 {
	return uint32(len(s.sets))
}

// UpdateUniformBuffers copies ubo into the uniform buffer of slot and points binding 0 of
// the slot's set at it. The caller must have waited for the slot's fence.
func (s *Sprite) UpdateUniformBuffers(slot uint32, ubo *renderer.UniformObject) error {
	const op = "update sprite uniforms"
	if err := s.checkSlot(op, slot); err != nil {
		return err
	}
	buffer := s.uniforms[slot]
	if err := buffer.Write(ubo.Bytes()); err != nil {
		return err
	}

	s.writer.UpdateDescriptorSets([]vk.WriteDescriptorSet{{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          s.sets[slot],
		DstBinding:      VULKAN_SPRITE_UNIFORM_BINDING,
		DstArrayElement: 0,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeUniformBuffer,
		PBufferInfo: []vk.DescriptorBufferInfo{{
			Buffer: buffer.Handle,
			Offset: 0,
			Range:  vk.DeviceSize(renderer.UniformObjectSize),
		}},
	}})
	return nil
}

// WriteTexture binds texture in the sets of every frame slot at once. Sets of slots still in
// flight are rewritten too, so callers swap textures after the device is idle.
func (s *Sprite) WriteTexture(texture *Texture) error {
	if err := core.Check(texture != nil, "write sprite texture", "texture is nil"); err != nil {
		return err
	}
	writes := make([]vk.WriteDescriptorSet, len(s.sets))
	for slot, set := range s.sets {
		writes[slot] = vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      VULKAN_SPRITE_SAMPLER_BINDING,
			DstArrayElement: 0,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			PImageInfo:      []vk.DescriptorImageInfo{texture.ImageInfo()},
		}
		s.textures[slot] = texture
	}
	s.writer.UpdateDescriptorSets(writes)
	return nil
}

// BoundTexture returns the texture last written to the set of slot, nil if none.
func (s *Sprite) BoundTexture(slot uint32) (*Texture, error) {
	if err := s.checkSlot("sprite bound texture", slot); err != nil {
		return nil, err
	}
	return s.textures[slot], nil
}

func (s *Sprite) DescriptorSet(slot uint32) (vk.DescriptorSet, error) {
	if err := s.checkSlot("sprite descriptor set", slot); err != nil {
		return nil, err
	}
	return s.sets[slot], nil
}

// UniformBuffer returns the buffer of slot.
func (s *Sprite) UniformBuffer(slot uint32) (*Buffer, error) {
	if err := s.checkSlot("sprite uniform buffer", slot); err != nil {
		return nil, err
	}
	return s.uniforms[slot], nil
}

// Destroy frees the uniform buffers, then the pool and with it the sets.
func (s *Sprite) Destroy(device *VulkanDevice) {
	for _, u := range s.uniforms {
		u.Destroy(device)
	}
	s.uniforms = nil
	if s.pool != nil {
		DestroyDescriptorPool(device, s.pool)
		s.pool = nil
	}
	s.sets = nil
	s.textures = nil
	if s.Geometry != nil {
		s.Geometry.Destroy(device)
		s.Geometry = nil
	}
}
