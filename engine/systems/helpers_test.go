package systems

import (
	"testing"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/nya/engine/core"
	"github.com/spaghettifunk/nya/engine/renderer"
	"github.com/spaghettifunk/nya/engine/renderer/vulkan"
	"github.com/stretchr/testify/require"
)

type nopWriter struct {
	writes int
}

func (w *nopWriter) UpdateDescriptorSets(writes []vk.WriteDescriptorSet) {
	w.writes += len(writes)
}

// fakeHandle is a distinct non nil handle that no driver ever sees.
func fakeHandle() unsafe.Pointer {
	return unsafe.Pointer(new([8]byte))
}

func fakeTexture() *vulkan.Texture {
	return &vulkan.Texture{
		ID:      core.NewID("texture"),
		Image:   &vulkan.VulkanImage{View: vk.ImageView(fakeHandle())},
		Sampler: vk.Sampler(fakeHandle()),
	}
}

// newHostSprite builds a sprite whose uniform buffers live in host memory.
func newHostSprite(t *testing.T, frames int) *vulkan.Sprite {
	t.Helper()
	sets := make([]vk.DescriptorSet, frames)
	uniforms := make([]*vulkan.Buffer, frames)
	for i := range sets {
		sets[i] = vk.DescriptorSet(fakeHandle())
		uniforms[i] = vulkan.NewMappedBuffer(vk.Buffer(fakeHandle()), make([]byte, renderer.UniformObjectSize))
	}
	sprite, err := vulkan.NewSpriteWithResources(&nopWriter{}, sets, uniforms)
	require.NoError(t, err)
	return sprite
}

func uniformOf(t *testing.T, s *vulkan.Sprite, slot uint32) renderer.UniformObject {
	t.Helper()
	buffer, err := s.UniformBuffer(slot)
	require.NoError(t, err)
	mapped := buffer.Mapped()
	require.Len(t, mapped, int(renderer.UniformObjectSize))
	return *(*renderer.UniformObject)(unsafe.Pointer(&mapped[0]))
}
