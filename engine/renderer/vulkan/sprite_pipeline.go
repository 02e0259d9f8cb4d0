package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/nya/engine/core"
	"github.com/spaghettifunk/nya/engine/renderer"
)

// SpritePipeline is the descriptor set layout and the graphics pipeline every sprite is drawn with.
type SpritePipeline struct {
	Layout   *DescriptorSetLayout
	Pipeline *Pipeline
}

// NewSpriteLayout declares the uniform buffer at binding 0 for the vertex stage and the
// combined image sampler at binding 1 for the fragment stage.
func NewSpriteLayout(device *VulkanDevice) (*DescriptorSetLayout, error) {
	config := NewDescriptorSetLayoutConfig()
	if _, err := config.AddBinding(vk.DescriptorTypeUniformBuffer, 1, vk.ShaderStageFlags(vk.ShaderStageVertexBit)); err != nil {
		return nil, err
	}
	if _, err := config.AddBinding(vk.DescriptorTypeCombinedImageSampler, 1, vk.ShaderStageFlags(vk.ShaderStageFragmentBit)); err != nil {
		return nil, err
	}
	return config.Build(device)
}

func spriteVertexAttributes() []vk.VertexInputAttributeDescription {
	return []vk.VertexInputAttributeDescription{
		{Location: 0, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: renderer.VertexPositionOffset},
		{Location: 1, Binding: 0, Format: vk.FormatR32g32Sfloat, Offset: renderer.VertexTexCoordOffset},
	}
}

// NewSpritePipeline builds the sprite pipeline on the main render pass from SPIR-V words.
func (r *Renderer) NewSpritePipeline(vertex, fragment []uint32) (*SpritePipeline, error) {
	device := r.Device()
	layout, err := NewSpriteLayout(device)
	if err != nil {
		return nil, err
	}
	pipeline, err := r.buildSpritePipeline(layout, vertex, fragment)
	if err != nil {
		layout.Destroy(device)
		return nil, err
	}
	core.LogDebug("sprite pipeline created")
	return &SpritePipeline{Layout: layout, Pipeline: pipeline}, nil
}

// ReloadSpritePipeline swaps the pipeline of sp for one built from new shader modules. The
// layout is kept so descriptor sets allocated from it stay valid. On error sp is unchanged.
func (r *Renderer) ReloadSpritePipeline(sp *SpritePipeline, vertex, fragment []uint32) error {
	if err := r.WaitIdle(); err != nil {
		return err
	}
	pipeline, err := r.buildSpritePipeline(sp.Layout, vertex, fragment)
	if err != nil {
		return err
	}
	sp.Pipeline.Destroy(r.Device())
	sp.Pipeline = pipeline
	core.LogInfo("sprite pipeline reloaded")
	return nil
}

// The shader modules only live for the duration of the build.
func (r *Renderer) buildSpritePipeline(layout *DescriptorSetLayout, vertex, fragment []uint32) (*Pipeline, error) {
	device := r.Device()
	shader, err := NewShader(device, vertex, fragment)
	if err != nil {
		return nil, err
	}
	defer shader.Destroy(device)

	config := DefaultPipelineConfig(r.Extent())
	if err := config.SetVertexLayout(renderer.VertexStride, spriteVertexAttributes()); err != nil {
		return nil, err
	}
	if err := config.SetPushConstantSize(renderer.PushDataSize, vk.ShaderStageFlags(vk.ShaderStageVertexBit)); err != nil {
		return nil, err
	}
	return config.Build(device, shader, layout, r.mainPass)
}

func (sp *SpritePipeline) Destroy(device *VulkanDevice) {
	if sp.Pipeline != nil {
		sp.Pipeline.Destroy(device)
		sp.Pipeline = nil
	}
	if sp.Layout != nil {
		sp.Layout.Destroy(device)
		sp.Layout = nil
	}
}
