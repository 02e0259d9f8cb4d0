package vulkan

import (
	"testing"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/nya/engine/core"
	"github.com/spaghettifunk/nya/engine/renderer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	writes []vk.WriteDescriptorSet
}

func (w *recordingWriter) UpdateDescriptorSets(writes []vk.WriteDescriptorSet) {
	w.writes = append(w.writes, writes...)
}

func (w *recordingWriter) forBinding(binding uint32) []vk.WriteDescriptorSet {
	var out []vk.WriteDescriptorSet
	for _, write := range w.writes {
		if write.DstBinding == binding {
			out = append(out, write)
		}
	}
	return out
}

// Handles only need to be distinct non nil values; the driver never sees them.
func fakeSet() vk.DescriptorSet { return vk.DescriptorSet(unsafe.Pointer(new([8]byte))) }
func fakeBufferHandle() vk.Buffer { return vk.Buffer(unsafe.Pointer(new([8]byte))) }
func fakeImageView() vk.ImageView { return vk.ImageView(unsafe.Pointer(new([8]byte))) }
func fakeSamplerHandle() vk.Sampler { return vk.Sampler(unsafe.Pointer(new([8]byte))) }

func fakeTexture() *Texture {
	return &Texture{
		ID:      core.NewID("texture"),
		Image:   &VulkanImage{View: fakeImageView()},
		Sampler: fakeSamplerHandle(),
	}
}

func newTestSprite(t *testing.T, frames int) (*Sprite, *recordingWriter) {
	t.Helper()
	writer := &recordingWriter{}
	sets := make([]vk.DescriptorSet, frames)
	uniforms := make([]*Buffer, frames)
	for i := range sets {
		sets[i] = fakeSet()
		uniforms[i] = NewMappedBuffer(fakeBufferHandle(), make([]byte, renderer.UniformObjectSize))
	}
	sprite, err := NewSpriteWithResources(writer, sets, uniforms)
	require.NoError(t, err)
	return sprite, writer
}

func decodeUniform(t *testing.T, b *Buffer) renderer.UniformObject {
	t.Helper()
	mapped := b.Mapped()
	require.Len(t, mapped, int(renderer.UniformObjectSize))
	return *(*renderer.UniformObject)(unsafe.Pointer(&mapped[0]))
}

func TestSpriteStartsWithIdentityUniforms(t *testing.T) {
	sprite, writer := newTestSprite(t, 2)

	assert.Equal(t, uint32(2), sprite.FramesInFlight())
	for slot := uint32(0); slot < 2; slot++ {
		buffer, err := sprite.UniformBuffer(slot)
		require.NoError(t, err)
		assert.Equal(t, renderer.IdentityUniformObject(), decodeUniform(t, buffer))
	}

	uniformWrites := writer.forBinding(VULKAN_SPRITE_UNIFORM_BINDING)
	require.Len(t, uniformWrites, 2)
	for slot, write := range uniformWrites {
		set, err := sprite.DescriptorSet(uint32(slot))
		require.NoError(t, err)
		assert.Equal(t, set, write.DstSet)
		assert.Equal(t, vk.DescriptorTypeUniformBuffer, write.DescriptorType)
		require.Len(t, write.PBufferInfo, 1)
		assert.Equal(t, vk.DeviceSize(renderer.UniformObjectSize), write.PBufferInfo[0].Range)
	}
}

func TestSpriteUpdateUniformBuffersTouchesOneSlot(t *testing.T) {
	sprite, writer := newTestSprite(t, 3)
	writer.writes = nil

	ubo := renderer.IdentityUniformObject()
	ubo.Model = mgl32.Translate3D(2, 0, 0)
	require.NoError(t, sprite.UpdateUniformBuffers(1, &ubo))

	b1, _ := sprite.UniformBuffer(1)
	b0, _ := sprite.UniformBuffer(0)
	assert.Equal(t, ubo, decodeUniform(t, b1))
	assert.Equal(t, renderer.IdentityUniformObject(), decodeUniform(t, b0))

	require.Len(t, writer.writes, 1)
	set1, _ := sprite.DescriptorSet(1)
	assert.Equal(t, set1, writer.writes[0].DstSet)
	assert.Equal(t, b1.Handle, writer.writes[0].PBufferInfo[0].Buffer)
}

func TestSpriteWriteTextureRebindsEverySlot(t *testing.T) {
	for _, frames := range []int{1, 2, 3} {
		sprite, writer := newTestSprite(t, frames)
		writer.writes = nil
		texture := fakeTexture()

		require.NoError(t, sprite.WriteTexture(texture))

		samplerWrites := writer.forBinding(VULKAN_SPRITE_SAMPLER_BINDING)
		require.Len(t, samplerWrites, frames)
		seen := map[vk.DescriptorSet]bool{}
		for _, write := range samplerWrites {
			seen[write.DstSet] = true
			assert.Equal(t, vk.DescriptorTypeCombinedImageSampler, write.DescriptorType)
			require.Len(t, write.PImageInfo, 1)
			assert.Equal(t, texture.View(), write.PImageInfo[0].ImageView)
			assert.Equal(t, texture.Sampler, write.PImageInfo[0].Sampler)
			assert.Equal(t, vk.ImageLayoutShaderReadOnlyOptimal, write.PImageInfo[0].ImageLayout)
		}
		for slot := uint32(0); slot < uint32(frames); slot++ {
			set, _ := sprite.DescriptorSet(slot)
			assert.True(t, seen[set], "slot %d not rebound", slot)
			bound, err := sprite.BoundTexture(slot)
			require.NoError(t, err)
			assert.Same(t, texture, bound)
		}
	}
}

func TestSpriteRejectsOutOfRangeSlot(t *testing.T) {
	sprite, _ := newTestSprite(t, 2)
	ubo := renderer.IdentityUniformObject()

	err := sprite.UpdateUniformBuffers(2, &ubo)
	require.Error(t, err)
	assert.True(t, core.IsPrecondition(err))
	assert.ErrorIs(t, err, core.ErrSlotOutOfRange)

	_, err = sprite.DescriptorSet(5)
	assert.ErrorIs(t, err, core.ErrSlotOutOfRange)
	_, err = sprite.BoundTexture(2)
	assert.ErrorIs(t, err, core.ErrSlotOutOfRange)
}

func TestNewSpriteWithResourcesValidation(t *testing.T) {
	writer := &recordingWriter{}
	_, err := NewSpriteWithResources(writer, []vk.DescriptorSet{fakeSet()}, nil)
	assert.True(t, core.IsPrecondition(err))

	_, err = NewSpriteWithResources(writer, nil, nil)
	assert.True(t, core.IsPrecondition(err))

	_, err = NewSpriteWithResources(nil, []vk.DescriptorSet{fakeSet()},
		[]*Buffer{NewMappedBuffer(fakeBufferHandle(), make([]byte, renderer.UniformObjectSize))})
	assert.True(t, core.IsPrecondition(err))

	// A uniform buffer too small for the block is rejected on the first write.
	_, err = NewSpriteWithResources(writer, []vk.DescriptorSet{fakeSet()},
		[]*Buffer{NewMappedBuffer(fakeBufferHandle(), make([]byte, 16))})
	assert.True(t, core.IsPrecondition(err))
}
