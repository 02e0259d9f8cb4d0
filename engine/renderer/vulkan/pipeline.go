package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/nya/engine/core"
)

// PipelineConfig is the fixed function state of a graphics pipeline. Start from
// DefaultPipelineConfig and adjust through the setters before Build.
type PipelineConfig struct {
	latch buildLatch

	viewport    vk.Viewport
	scissor     vk.Rect2D
	topology    vk.PrimitiveTopology
	polygonMode vk.PolygonMode
	cullMode    vk.CullModeFlagBits
	frontFace   vk.FrontFace
	lineWidth   float32
	blend       vk.PipelineColorBlendAttachmentState
	// dynamicStates are set while recording instead of taken from the fields above.
	dynamicStates []vk.DynamicState

	stride     uint32
	attributes []vk.VertexInputAttributeDescription

	pushConstantSize   uint32
	pushConstantStages vk.ShaderStageFlags
}

// DefaultPipelineConfig covers extent with a triangle list, no culling and straight alpha
// blending.
func DefaultPipelineConfig(extent vk.Extent2D) *PipelineConfig {
	return &PipelineConfig{
		viewport: vk.Viewport{
			X:        0,
			Y:        0,
			Width:    float32(extent.Width),
			Height:   float32(extent.Height),
			MinDepth: 0,
			MaxDepth: 1,
		},
		scissor: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: extent,
		},
		topology:    vk.PrimitiveTopologyTriangleList,
		polygonMode: vk.PolygonModeFill,
		cullMode:    vk.CullModeNone,
		frontFace:   vk.FrontFaceClockwise,
		lineWidth:   1.0,
		blend: vk.PipelineColorBlendAttachmentState{
			BlendEnable:         vk.True,
			SrcColorBlendFactor: vk.BlendFactorSrcAlpha,
			DstColorBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
			ColorBlendOp:        vk.BlendOpAdd,
			SrcAlphaBlendFactor: vk.BlendFactorOne,
			DstAlphaBlendFactor: vk.BlendFactorZero,
			AlphaBlendOp:        vk.BlendOpAdd,
			ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit |
				vk.ColorComponentBBit | vk.ColorComponentABit),
		},
	}
}

// SetViewport replaces the static viewport and scissor.
func (c *PipelineConfig) SetViewport(viewport vk.Viewport, scissor vk.Rect2D) error {
	if err := c.latch.check("set pipeline viewport"); err != nil {
		return err
	}
	c.viewport = viewport
	c.scissor = scissor
	return nil
}

func (c *PipelineConfig) SetTopology(topology vk.PrimitiveTopology) error {
	if err := c.latch.check("set pipeline topology"); err != nil {
		return err
	}
	c.topology = topology
	return nil
}

func (c *PipelineConfig) SetRasterization(polygonMode vk.PolygonMode, cullMode vk.CullModeFlagBits, frontFace vk.FrontFace, lineWidth float32) error {
	if err := c.latch.check("set pipeline rasterization"); err != nil {
		return err
	}
	c.polygonMode = polygonMode
	c.cullMode = cullMode
	c.frontFace = frontFace
	c.lineWidth = lineWidth
	return nil
}

func (c *PipelineConfig) SetBlend(blend vk.PipelineColorBlendAttachmentState) error {
	if err := c.latch.check("set pipeline blend"); err != nil {
		return err
	}
	c.blend = blend
	return nil
}

// SetDynamicStates lists the states set while recording instead of baked into the pipeline.
func (c *PipelineConfig) SetDynamicStates(states ...vk.DynamicState) error {
	if err := c.latch.check("set pipeline dynamic states"); err != nil {
		return err
	}
	c.dynamicStates = append([]vk.DynamicState(nil), states...)
	return nil
}

// SetVertexLayout describes binding 0: one vertex of stride bytes with the given attributes.
func (c *PipelineConfig) SetVertexLayout(stride uint32, attributes []vk.VertexInputAttributeDescription) error {
	if err := c.latch.check("set pipeline vertex layout"); err != nil {
		return err
	}
	c.stride = stride
	c.attributes = append([]vk.VertexInputAttributeDescription(nil), attributes...)
	return nil
}

// SetPushConstantSize declares one push constant range at offset 0.
func (c *PipelineConfig) SetPushConstantSize(size uint32, stages vk.ShaderStageFlags) error {
	const op = "set pipeline push constants"
	if err := c.latch.check(op); err != nil {
		return err
	}
	// Only 128 bytes are guaranteed by every implementation.
	if err := core.Check(size%4 == 0 && size <= 128, op, "push constant size %d must be a multiple of 4 up to 128", size); err != nil {
		return err
	}
	c.pushConstantSize = size
	c.pushConstantStages = stages
	return nil
}

// Build consumes the configuration. The layout and the render pass must already be built,
// which their types guarantee.
func (c *PipelineConfig) Build(device *VulkanDevice, shader *Shader, layout *DescriptorSetLayout, renderPass *RenderPass) (*Pipeline, error) {
	const op = "build pipeline"
	if err := c.latch.consume(op); err != nil {
		return nil, err
	}
	if device == nil {
		err := core.NewPreconditionError(op, core.ErrNilDevice)
		core.LogError("%s", err)
		return nil, err
	}
	if err := core.Check(shader != nil && layout != nil && renderPass != nil, op, "shader, layout and render pass are required"); err != nil {
		return nil, err
	}

	pipeline := &Pipeline{}

	layoutCreateInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: 1,
		PSetLayouts:    []vk.DescriptorSetLayout{layout.Handle()},
	}
	if c.pushConstantSize > 0 {
		layoutCreateInfo.PushConstantRangeCount = 1
		layoutCreateInfo.PPushConstantRanges = []vk.PushConstantRange{{
			StageFlags: c.pushConstantStages,
			Offset:     0,
			Size:       c.pushConstantSize,
		}}
	}
	var pipelineLayout vk.PipelineLayout
	if res := vk.CreatePipelineLayout(device.LogicalDevice, &layoutCreateInfo, device.Allocator, &pipelineLayout); res != vk.Success {
		return nil, vulkanError("create pipeline layout", res)
	}
	pipeline.layout = pipelineLayout

	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		PViewports:    []vk.Viewport{c.viewport},
		ScissorCount:  1,
		PScissors:     []vk.Rect2D{c.scissor},
	}

	rasterizer := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             c.polygonMode,
		CullMode:                vk.CullModeFlags(c.cullMode),
		FrontFace:               c.frontFace,
		LineWidth:               c.lineWidth,
		DepthBiasEnable:         vk.False,
	}

	multisampling := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vk.SampleCount1Bit,
		SampleShadingEnable:  vk.False,
		MinSampleShading:     1.0,
	}

	colorBlend := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{c.blend},
	}

	vertexInput := vk.PipelineVertexInputStateCreateInfo{
		SType: vk.StructureTypePipelineVertexInputStateCreateInfo,
	}
	if c.stride > 0 {
		vertexInput.VertexBindingDescriptionCount = 1
		vertexInput.PVertexBindingDescriptions = []vk.VertexInputBindingDescription{{
			Binding:   0,
			Stride:    c.stride,
			InputRate: vk.VertexInputRateVertex,
		}}
		vertexInput.VertexAttributeDescriptionCount = uint32(len(c.attributes))
		vertexInput.PVertexAttributeDescriptions = c.attributes
	}

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               c.topology,
		PrimitiveRestartEnable: vk.False,
	}

	var dynamicState *vk.PipelineDynamicStateCreateInfo
	if len(c.dynamicStates) > 0 {
		dynamicState = &vk.PipelineDynamicStateCreateInfo{
			SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
			DynamicStateCount: uint32(len(c.dynamicStates)),
			PDynamicStates:    c.dynamicStates,
		}
	}

	stages := shader.Stages()
	createInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizer,
		PMultisampleState:   &multisampling,
		PColorBlendState:    &colorBlend,
		PDynamicState:       dynamicState,
		Layout:              pipeline.layout,
		RenderPass:          renderPass.Handle(),
		Subpass:             0,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}

	pipelines := make([]vk.Pipeline, 1)
	if res := vk.CreateGraphicsPipelines(device.LogicalDevice, vk.NullPipelineCache, 1,
		[]vk.GraphicsPipelineCreateInfo{createInfo}, device.Allocator, pipelines); res != vk.Success {
		vk.DestroyPipelineLayout(device.LogicalDevice, pipeline.layout, device.Allocator)
		return nil, vulkanError("create graphics pipeline", res)
	}
	pipeline.handle = pipelines[0]

	core.LogDebug("Graphics pipeline created!")
	return pipeline, nil
}

// Pipeline is a built graphics pipeline with its layout.
type Pipeline struct {
	handle vk.Pipeline
	layout vk.PipelineLayout
}

func (p *Pipeline) Handle() vk.Pipeline {
	return p.handle
}

func (p *Pipeline) Layout() vk.PipelineLayout {
	return p.layout
}

func (p *Pipeline) Bind(commandBuffer *VulkanCommandBuffer) {
	vk.CmdBindPipeline(commandBuffer.Handle, vk.PipelineBindPointGraphics, p.handle)
}

func (p *Pipeline) Destroy(device *VulkanDevice) {
	if p.handle != vk.NullPipeline {
		vk.DestroyPipeline(device.LogicalDevice, p.handle, device.Allocator)
		p.handle = vk.NullPipeline
	}
	if p.layout != vk.NullPipelineLayout {
		vk.DestroyPipelineLayout(device.LogicalDevice, p.layout, device.Allocator)
		p.layout = vk.NullPipelineLayout
	}
}
