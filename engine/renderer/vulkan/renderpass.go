package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/nya/engine/core"
)

// RenderPassConfig collects attachments, subpasses and dependencies. It is consumed by Build,
// which returns the immutable RenderPass.
type RenderPassConfig struct {
	latch        buildLatch
	attachments  []vk.AttachmentDescription
	subpasses    []subpassConfig
	dependencies []vk.SubpassDependency
}

type subpassConfig struct {
	color []vk.AttachmentReference
	input []vk.AttachmentReference
	depth *vk.AttachmentReference
}

func NewRenderPassConfig() *RenderPassConfig {
	return &RenderPassConfig{}
}

// AddAttachment appends an attachment with one sample and no stencil usage. Its index is
// the number of attachments added before it.
func (c *RenderPassConfig) AddAttachment(format vk.Format, load vk.AttachmentLoadOp, store vk.AttachmentStoreOp, initial, final vk.ImageLayout) error {
	if err := c.latch.check("add render pass attachment"); err != nil {
		return err
	}
	c.attachments = append(c.attachments, vk.AttachmentDescription{
		Format:         format,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         load,
		StoreOp:        store,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  initial,
		FinalLayout:    final,
	})
	return nil
}

// AddSubpass appends a graphics subpass. Color, input and depth references are attachment
// indices; depth may be nil.
func (c *RenderPassConfig) AddSubpass(colorRefs, inputRefs []uint32, depthRef *uint32) error {
	const op = "add render pass subpass"
	if err := c.latch.check(op); err != nil {
		return err
	}
	refs := append(append([]uint32{}, colorRefs...), inputRefs...)
	if depthRef != nil {
		refs = append(refs, *depthRef)
	}
	for _, ref := range refs {
		if err := core.Check(int(ref) < len(c.attachments), op, "attachment %d not added, have %d", ref, len(c.attachments)); err != nil {
			return err
		}
	}

	subpass := subpassConfig{}
	for _, ref := range colorRefs {
		subpass.color = append(subpass.color, vk.AttachmentReference{Attachment: ref, Layout: vk.ImageLayoutColorAttachmentOptimal})
	}
	for _, ref := range inputRefs {
		subpass.input = append(subpass.input, vk.AttachmentReference{Attachment: ref, Layout: vk.ImageLayoutShaderReadOnlyOptimal})
	}
	if depthRef != nil {
		subpass.depth = &vk.AttachmentReference{Attachment: *depthRef, Layout: vk.ImageLayoutDepthStencilAttachmentOptimal}
	}
	c.subpasses = append(c.subpasses, subpass)
	return nil
}

func (c *RenderPassConfig) AddDependency(dependency vk.SubpassDependency) error {
	if err := c.latch.check("add render pass dependency"); err != nil {
		return err
	}
	c.dependencies = append(c.dependencies, dependency)
	return nil
}

// Build consumes the configuration and creates the render pass on device.
func (c *RenderPassConfig) Build(device *VulkanDevice) (*RenderPass, error) {
	const op = "build render pass"
	if err := c.latch.consume(op); err != nil {
		return nil, err
	}
	if device == nil {
		err := core.NewPreconditionError(op, core.ErrNilDevice)
		core.LogError("%s", err)
		return nil, err
	}
	if err := core.Check(len(c.subpasses) > 0, op, "render pass needs at least one subpass"); err != nil {
		return nil, err
	}

	subpasses := make([]vk.SubpassDescription, len(c.subpasses))
	for i, s := range c.subpasses {
		subpasses[i] = vk.SubpassDescription{
			PipelineBindPoint:       vk.PipelineBindPointGraphics,
			ColorAttachmentCount:    uint32(len(s.color)),
			PColorAttachments:       s.color,
			InputAttachmentCount:    uint32(len(s.input)),
			PInputAttachments:       s.input,
			PDepthStencilAttachment: s.depth,
		}
	}

	createInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(c.attachments)),
		PAttachments:    c.attachments,
		SubpassCount:    uint32(len(subpasses)),
		PSubpasses:      subpasses,
		DependencyCount: uint32(len(c.dependencies)),
		PDependencies:   c.dependencies,
	}

	var handle vk.RenderPass
	if res := vk.CreateRenderPass(device.LogicalDevice, &createInfo, device.Allocator, &handle); res != vk.Success {
		return nil, vulkanError(op, res)
	}

	clears := 0
	for _, a := range c.attachments {
		if a.LoadOp == vk.AttachmentLoadOpClear {
			clears++
		}
	}
	return &RenderPass{handle: handle, clearValueCount: clears}, nil
}

// RenderPass is a built render pass.
type RenderPass struct {
	handle          vk.RenderPass
	clearValueCount int
}

func (rp *RenderPass) Handle() vk.RenderPass {
	return rp.handle
}

// Begin starts the pass on framebuffer over the whole extent. clearColor is used by every
// attachment that clears on load.
func (rp *RenderPass) Begin(commandBuffer *VulkanCommandBuffer, framebuffer *VulkanFramebuffer, extent vk.Extent2D, clearColor [4]float32) {
	clearValues := make([]vk.ClearValue, rp.clearValueCount)
	for i := range clearValues {
		clearValues[i].SetColor(clearColor[:])
	}

	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  rp.handle,
		Framebuffer: framebuffer.Handle,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: extent,
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}

	vk.CmdBeginRenderPass(commandBuffer.Handle, &beginInfo, vk.SubpassContentsInline)
	commandBuffer.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS
}

func (rp *RenderPass) End(commandBuffer *VulkanCommandBuffer) {
	vk.CmdEndRenderPass(commandBuffer.Handle)
	commandBuffer.State = COMMAND_BUFFER_STATE_RECORDING
}

func (rp *RenderPass) Destroy(device *VulkanDevice) {
	if rp.handle != vk.NullRenderPass {
		vk.DestroyRenderPass(device.LogicalDevice, rp.handle, device.Allocator)
		rp.handle = vk.NullRenderPass
	}
}

// colorOutputDependency orders the first subpass after the presentation engine is done with
// the image.
func colorOutputDependency() vk.SubpassDependency {
	return vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		SrcAccessMask: 0,
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit),
	}
}

// NewMainRenderPass builds the sprite pass: one cleared color attachment in the swapchain
// format, left in ColorAttachmentOptimal for the overlay pass.
func NewMainRenderPass(device *VulkanDevice, format vk.Format) (*RenderPass, error) {
	config := NewRenderPassConfig()
	if err := config.AddAttachment(format, vk.AttachmentLoadOpClear, vk.AttachmentStoreOpStore,
		vk.ImageLayoutUndefined, vk.ImageLayoutColorAttachmentOptimal); err != nil {
		return nil, err
	}
	if err := config.AddSubpass([]uint32{0}, nil, nil); err != nil {
		return nil, err
	}
	if err := config.AddDependency(colorOutputDependency()); err != nil {
		return nil, err
	}
	return config.Build(device)
}

// NewOverlayRenderPass builds the GUI pass: it loads what the main pass drew and hands the
// image to presentation.
func NewOverlayRenderPass(device *VulkanDevice, format vk.Format) (*RenderPass, error) {
	config := NewRenderPassConfig()
	if err := config.AddAttachment(format, vk.AttachmentLoadOpLoad, vk.AttachmentStoreOpStore,
		vk.ImageLayoutColorAttachmentOptimal, vk.ImageLayoutPresentSrc); err != nil {
		return nil, err
	}
	if err := config.AddSubpass([]uint32{0}, nil, nil); err != nil {
		return nil, err
	}
	if err := config.AddDependency(colorOutputDependency()); err != nil {
		return nil, err
	}
	return config.Build(device)
}
