package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/nya/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireConsumed(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, core.IsPrecondition(err))
	assert.ErrorIs(t, err, core.ErrBuilderConsumed)
}

func TestRenderPassConfigLatch(t *testing.T) {
	config := NewRenderPassConfig()
	require.NoError(t, config.AddAttachment(vk.FormatB8g8r8a8Unorm, vk.AttachmentLoadOpClear, vk.AttachmentStoreOpStore,
		vk.ImageLayoutUndefined, vk.ImageLayoutColorAttachmentOptimal))
	require.NoError(t, config.AddSubpass([]uint32{0}, nil, nil))
	require.NoError(t, config.AddDependency(colorOutputDependency()))

	// The first Build consumes the configuration even when it cannot reach a device.
	rp, err := config.Build(nil)
	assert.Nil(t, rp)
	assert.ErrorIs(t, err, core.ErrNilDevice)
	assert.True(t, core.IsPrecondition(err))

	_, err = config.Build(nil)
	requireConsumed(t, err)
	requireConsumed(t, config.AddAttachment(vk.FormatB8g8r8a8Unorm, vk.AttachmentLoadOpLoad, vk.AttachmentStoreOpStore,
		vk.ImageLayoutUndefined, vk.ImageLayoutPresentSrc))
	requireConsumed(t, config.AddSubpass([]uint32{0}, nil, nil))
	requireConsumed(t, config.AddDependency(colorOutputDependency()))
}

func TestRenderPassConfigRejectsUnknownAttachment(t *testing.T) {
	config := NewRenderPassConfig()
	err := config.AddSubpass([]uint32{0}, nil, nil)
	require.Error(t, err)
	assert.True(t, core.IsPrecondition(err))

	depth := uint32(1)
	require.NoError(t, config.AddAttachment(vk.FormatB8g8r8a8Unorm, vk.AttachmentLoadOpClear, vk.AttachmentStoreOpStore,
		vk.ImageLayoutUndefined, vk.ImageLayoutPresentSrc))
	assert.Error(t, config.AddSubpass([]uint32{0}, nil, &depth))
	assert.NoError(t, config.AddSubpass([]uint32{0}, nil, nil))
}

func TestDescriptorSetLayoutConfigLatch(t *testing.T) {
	config := NewDescriptorSetLayoutConfig()
	b0, err := config.AddBinding(vk.DescriptorTypeUniformBuffer, 1, vk.ShaderStageFlags(vk.ShaderStageVertexBit))
	require.NoError(t, err)
	b1, err := config.AddBinding(vk.DescriptorTypeCombinedImageSampler, 1, vk.ShaderStageFlags(vk.ShaderStageFragmentBit))
	require.NoError(t, err)
	assert.Equal(t, VULKAN_SPRITE_UNIFORM_BINDING, b0)
	assert.Equal(t, VULKAN_SPRITE_SAMPLER_BINDING, b1)

	_, err = config.Build(nil)
	assert.ErrorIs(t, err, core.ErrNilDevice)

	_, err = config.Build(nil)
	requireConsumed(t, err)
	_, err = config.AddBinding(vk.DescriptorTypeSampler, 1, vk.ShaderStageFlags(vk.ShaderStageFragmentBit))
	requireConsumed(t, err)
}

func TestDescriptorSetLayoutQueries(t *testing.T) {
	layout := newDescriptorSetLayout(nil, []vk.DescriptorSetLayoutBinding{
		{Binding: 0, DescriptorType: vk.DescriptorTypeUniformBuffer, DescriptorCount: 1},
		{Binding: 1, DescriptorType: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: 2},
	})

	assert.Equal(t, uint32(2), layout.BindingCount())

	sizes := layout.PoolSizes(3)
	require.Len(t, sizes, 2)
	assert.Equal(t, vk.DescriptorTypeUniformBuffer, sizes[0].Type)
	assert.Equal(t, uint32(3), sizes[0].DescriptorCount)
	assert.Equal(t, vk.DescriptorTypeCombinedImageSampler, sizes[1].Type)
	assert.Equal(t, uint32(6), sizes[1].DescriptorCount)

	typ, err := layout.Type(1)
	require.NoError(t, err)
	assert.Equal(t, vk.DescriptorTypeCombinedImageSampler, typ)

	_, err = layout.Type(2)
	require.Error(t, err)
	assert.True(t, core.IsPrecondition(err))
}

func TestPipelineConfigLatch(t *testing.T) {
	config := DefaultPipelineConfig(vk.Extent2D{Width: 1280, Height: 720})
	assert.Equal(t, float32(1280), config.viewport.Width)
	assert.Equal(t, vk.PrimitiveTopologyTriangleList, config.topology)
	assert.Equal(t, vk.BlendFactorSrcAlpha, config.blend.SrcColorBlendFactor)
	assert.Equal(t, vk.BlendFactorOne, config.blend.SrcAlphaBlendFactor)
	assert.Equal(t, vk.BlendFactorZero, config.blend.DstAlphaBlendFactor)

	require.NoError(t, config.SetVertexLayout(20, nil))
	require.NoError(t, config.SetPushConstantSize(64, vk.ShaderStageFlags(vk.ShaderStageVertexBit)))
	require.NoError(t, config.SetDynamicStates(vk.DynamicStateScissor))
	assert.Equal(t, []vk.DynamicState{vk.DynamicStateScissor}, config.dynamicStates)

	_, err := config.Build(nil, nil, nil, nil)
	assert.ErrorIs(t, err, core.ErrNilDevice)

	_, err = config.Build(nil, nil, nil, nil)
	requireConsumed(t, err)
	requireConsumed(t, config.SetVertexLayout(20, nil))
	requireConsumed(t, config.SetPushConstantSize(64, vk.ShaderStageFlags(vk.ShaderStageVertexBit)))
	requireConsumed(t, config.SetViewport(vk.Viewport{Width: 1, Height: 1}, vk.Rect2D{}))
	requireConsumed(t, config.SetTopology(vk.PrimitiveTopologyLineList))
	requireConsumed(t, config.SetRasterization(vk.PolygonModeLine, vk.CullModeBackBit, vk.FrontFaceCounterClockwise, 2))
	requireConsumed(t, config.SetBlend(vk.PipelineColorBlendAttachmentState{}))
	requireConsumed(t, config.SetDynamicStates(vk.DynamicStateViewport))

	// a consumed config keeps the state it was built with
	assert.Equal(t, float32(1280), config.viewport.Width)
	assert.Equal(t, vk.PrimitiveTopologyTriangleList, config.topology)
	assert.Equal(t, []vk.DynamicState{vk.DynamicStateScissor}, config.dynamicStates)
}

func TestPipelineConfigPushConstantLimit(t *testing.T) {
	config := DefaultPipelineConfig(vk.Extent2D{Width: 1, Height: 1})
	assert.Error(t, config.SetPushConstantSize(130, vk.ShaderStageFlags(vk.ShaderStageVertexBit)))
	assert.Error(t, config.SetPushConstantSize(256, vk.ShaderStageFlags(vk.ShaderStageVertexBit)))
	assert.NoError(t, config.SetPushConstantSize(128, vk.ShaderStageFlags(vk.ShaderStageVertexBit)))
}
