package systems

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/nya/engine/renderer"
	"github.com/spaghettifunk/nya/engine/renderer/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// slotBackend is a renderer.Backend that only records the order of its calls.
type slotBackend struct {
	frames uint32
	calls  []string
}

func (b *slotBackend) FramesInFlight() uint32 { return b.frames }
func (b *slotBackend) WaitForFence(slot uint32) error {
	b.calls = append(b.calls, "wait")
	return nil
}
func (b *slotBackend) ResetFence(slot uint32) error {
	b.calls = append(b.calls, "reset")
	return nil
}
func (b *slotBackend) AcquireNextImage(slot uint32) (uint32, error) {
	b.calls = append(b.calls, "acquire")
	return 0, nil
}
func (b *slotBackend) BeginCommandBuffer(slot uint32) error {
	b.calls = append(b.calls, "begin-cmd")
	return nil
}
func (b *slotBackend) BeginRenderPass(slot, image uint32) error {
	b.calls = append(b.calls, "begin-pass")
	return nil
}
func (b *slotBackend) EndRenderPass(slot uint32) error {
	b.calls = append(b.calls, "end-pass")
	return nil
}
func (b *slotBackend) EndCommandBuffer(slot uint32) error {
	b.calls = append(b.calls, "end-cmd")
	return nil
}
func (b *slotBackend) Submit(slot uint32) error {
	b.calls = append(b.calls, "submit")
	return nil
}
func (b *slotBackend) Present(slot, image uint32) error {
	b.calls = append(b.calls, "present")
	return nil
}

// cycleFrame records draws through a real FrameCycle, so every call is gated by its state.
type cycleFrame struct {
	*renderer.FrameCycle
	backend *slotBackend
	sets    []vk.DescriptorSet
}

func newCycleFrame(t *testing.T, frames uint32) *cycleFrame {
	t.Helper()
	b := &slotBackend{frames: frames}
	cycle, err := renderer.NewFrameCycle(b, nil)
	require.NoError(t, err)
	return &cycleFrame{FrameCycle: cycle, backend: b}
}

func (f *cycleFrame) BindPipeline(pipeline *vulkan.Pipeline) error {
	_, err := f.RecordingSlot()
	f.backend.calls = append(f.backend.calls, "bind")
	return err
}

func (f *cycleFrame) PushConstants(pipeline *vulkan.Pipeline, data *renderer.PushData) error {
	_, err := f.RecordingSlot()
	return err
}

func (f *cycleFrame) Draw(pipeline *vulkan.Pipeline, geometry *vulkan.Geometry, set vk.DescriptorSet) error {
	if _, err := f.RecordingSlot(); err != nil {
		return err
	}
	f.backend.calls = append(f.backend.calls, "draw")
	f.sets = append(f.sets, set)
	return nil
}

// imageWriter keeps the image view last written to binding 1 of each set.
type imageWriter struct {
	views map[vk.DescriptorSet]vk.ImageView
}

func (w *imageWriter) UpdateDescriptorSets(writes []vk.WriteDescriptorSet) {
	for _, write := range writes {
		if write.DstBinding == vulkan.VULKAN_SPRITE_SAMPLER_BINDING && len(write.PImageInfo) == 1 {
			w.views[write.DstSet] = write.PImageInfo[0].ImageView
		}
	}
}

func newWrittenSprite(t *testing.T, w *imageWriter, frames int) *vulkan.Sprite {
	t.Helper()
	sets := make([]vk.DescriptorSet, frames)
	uniforms := make([]*vulkan.Buffer, frames)
	for i := range sets {
		sets[i] = vk.DescriptorSet(fakeHandle())
		uniforms[i] = vulkan.NewMappedBuffer(vk.Buffer(fakeHandle()), make([]byte, renderer.UniformObjectSize))
	}
	sprite, err := vulkan.NewSpriteWithResources(w, sets, uniforms)
	require.NoError(t, err)
	return sprite
}

func TestRenderTwoTexturedSprites(t *testing.T) {
	const frames = 2
	rs, err := NewRenderingSystem(&fakeGPU{})
	require.NoError(t, err)

	writer := &imageWriter{views: map[vk.DescriptorSet]vk.ImageView{}}
	textures := []*vulkan.Texture{fakeTexture(), fakeTexture()}
	sprites := make([]*vulkan.Sprite, 2)
	for i, x := range []float32{2, -2} {
		sprites[i] = newWrittenSprite(t, writer, frames)
		sprites[i].Transform.Translation = mgl32.Vec3{x, 0, 0}
		sprites[i].Transform.Scale = mgl32.Vec3{2, 2, 1}
		require.NoError(t, sprites[i].WriteTexture(textures[i]))
	}
	require.NoError(t, rs.Load(sprites))

	frame := newCycleFrame(t, frames)
	_, err = frame.WritableSlot()
	require.Error(t, err)

	require.NoError(t, rs.Render(frame, &vulkan.Pipeline{}, sprites))

	assert.Equal(t, []string{
		"wait", "reset", "acquire", "begin-cmd", "begin-pass",
		"bind", "draw", "draw",
		"end-pass", "end-cmd", "submit", "present",
	}, frame.backend.calls)
	assert.Equal(t, renderer.FRAME_STATE_IDLE, frame.State())
	assert.Equal(t, uint64(1), frame.FrameCount())
	assert.Equal(t, uint32(1), frame.CurrentFrame())

	ar := float32(16.0 / 9.0)
	proj := mgl32.Ortho2D(-5, 5, -5/ar, 5/ar)
	for i, s := range sprites {
		for slot := uint32(0); slot < frames; slot++ {
			bound, err := s.BoundTexture(slot)
			require.NoError(t, err)
			assert.Same(t, textures[i], bound)

			set, err := s.DescriptorSet(slot)
			require.NoError(t, err)
			assert.Equal(t, textures[i].View(), writer.views[set])
		}

		ubo := uniformOf(t, s, 0)
		assert.True(t, proj.ApproxEqual(ubo.Proj), "sprite %d projection %v", i, ubo.Proj)
		assert.True(t, mgl32.Ident4().ApproxEqual(ubo.View))
		assert.True(t, mgl32.Vec4{s.Transform.Translation.X(), 0, 0, 1}.ApproxEqual(ubo.Model.Col(3)))
		assert.True(t, mgl32.Diag3(mgl32.Vec3{2, 2, 1}).ApproxEqual(ubo.Model.Mat3()))

		// slot 1 was not fenced in this cycle and keeps its initial contents
		assert.Equal(t, renderer.IdentityUniformObject(), uniformOf(t, s, 1))
	}

	set0, err := sprites[0].DescriptorSet(0)
	require.NoError(t, err)
	set1, err := sprites[1].DescriptorSet(0)
	require.NoError(t, err)
	assert.Equal(t, []vk.DescriptorSet{set0, set1}, frame.sets)

	_, err = frame.WritableSlot()
	assert.Error(t, err)
}
