package vulkan

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/nya/engine/core"
	"github.com/spaghettifunk/nya/engine/gui"
	emath "github.com/spaghettifunk/nya/engine/math"
	"github.com/spaghettifunk/nya/engine/renderer"
)

// guiPushData is the scale and translate that map display pixels to clip space.
type guiPushData struct {
	Scale     mgl32.Vec2
	Translate mgl32.Vec2
}

const guiPushDataSize = uint32(unsafe.Sizeof(guiPushData{}))

// guiDescriptorTypes are the types the GUI pool reserves VULKAN_GUI_DESCRIPTOR_COUNT of.
var guiDescriptorTypes = []vk.DescriptorType{
	vk.DescriptorTypeSampler,
	vk.DescriptorTypeCombinedImageSampler,
	vk.DescriptorTypeSampledImage,
	vk.DescriptorTypeStorageImage,
	vk.DescriptorTypeUniformTexelBuffer,
	vk.DescriptorTypeStorageTexelBuffer,
	vk.DescriptorTypeUniformBuffer,
	vk.DescriptorTypeStorageBuffer,
	vk.DescriptorTypeUniformBufferDynamic,
	vk.DescriptorTypeStorageBufferDynamic,
	vk.DescriptorTypeInputAttachment,
}

// GUIDevice draws the debug GUI over the frame in a pass of its own. It implements
// renderer.Overlay.
type GUIDevice struct {
	renderer *Renderer
	context  *gui.Context
	clock    *core.Clock
	lastTime float64

	pool         vk.DescriptorPool
	pass         *RenderPass
	framebuffers []*VulkanFramebuffer
	font         *Texture
	layout       *DescriptorSetLayout
	fontSet      vk.DescriptorSet
	pipeline     *Pipeline

	// per frame slot, grown on demand
	vertexBuffers []*Buffer
	indexBuffers  []*Buffer
}

// NewGUIDevice builds the GUI pass, font texture and pipeline over r and installs itself as
// the overlay of r's frame cycle.
func NewGUIDevice(r *Renderer, atlas *gui.Atlas, vertex, fragment []uint32) (*GUIDevice, error) {
	const op = "create gui device"
	if err := core.Check(r != nil && atlas != nil, op, "renderer and atlas are required"); err != nil {
		return nil, err
	}
	ctx, err := gui.NewContext(atlas)
	if err != nil {
		return nil, err
	}
	extent := r.Extent()
	ctx.SetDisplaySize(float32(extent.Width), float32(extent.Height))

	g := &GUIDevice{
		renderer:      r,
		context:       ctx,
		clock:         core.NewClock(),
		vertexBuffers: make([]*Buffer, r.FramesInFlight()),
		indexBuffers:  make([]*Buffer, r.FramesInFlight()),
	}
	if err := g.create(atlas, vertex, fragment); err != nil {
		g.Destroy()
		return nil, err
	}
	if err := r.SetOverlay(g); err != nil {
		g.Destroy()
		return nil, err
	}
	g.clock.Start()
	core.LogInfo("GUI device initialized.")
	return g, nil
}

func (g *GUIDevice) create(atlas *gui.Atlas, vertex, fragment []uint32) error {
	device := g.renderer.Device()
	var err error

	sizes := make([]vk.DescriptorPoolSize, len(guiDescriptorTypes))
	for i, t := range guiDescriptorTypes {
		sizes[i] = vk.DescriptorPoolSize{Type: t, DescriptorCount: VULKAN_GUI_DESCRIPTOR_COUNT}
	}
	g.pool, err = NewDescriptorPool(device, sizes, VULKAN_GUI_DESCRIPTOR_COUNT*uint32(len(sizes)),
		vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit))
	if err != nil {
		return err
	}

	g.pass, err = NewOverlayRenderPass(device, g.renderer.Swapchain().ImageFormat.Format)
	if err != nil {
		return err
	}
	g.framebuffers, err = g.renderer.Swapchain().CreateFramebuffers(device, g.pass)
	if err != nil {
		return err
	}

	g.font, err = NewTexture(device, atlas.Pixels, uint32(atlas.Width), uint32(atlas.Height))
	if err != nil {
		return err
	}

	layoutConfig := NewDescriptorSetLayoutConfig()
	if _, err := layoutConfig.AddBinding(vk.DescriptorTypeCombinedImageSampler, 1, vk.ShaderStageFlags(vk.ShaderStageFragmentBit)); err != nil {
		return err
	}
	g.layout, err = layoutConfig.Build(device)
	if err != nil {
		return err
	}
	sets, err := AllocateDescriptorSets(device, g.pool, g.layout, 1)
	if err != nil {
		return err
	}
	g.fontSet = sets[0]
	device.UpdateDescriptorSets([]vk.WriteDescriptorSet{{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          g.fontSet,
		DstBinding:      0,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
		PImageInfo:      []vk.DescriptorImageInfo{g.font.ImageInfo()},
	}})

	shader, err := NewShader(device, vertex, fragment)
	if err != nil {
		return err
	}
	defer shader.Destroy(device)

	config := DefaultPipelineConfig(g.renderer.Extent())
	if err := config.SetDynamicStates(vk.DynamicStateScissor); err != nil {
		return err
	}
	if err := config.SetVertexLayout(gui.DrawVertSize, guiVertexAttributes()); err != nil {
		return err
	}
	if err := config.SetPushConstantSize(guiPushDataSize, vk.ShaderStageFlags(vk.ShaderStageVertexBit)); err != nil {
		return err
	}
	g.pipeline, err = config.Build(device, shader, g.layout, g.pass)
	return err
}

func guiVertexAttributes() []vk.VertexInputAttributeDescription {
	return []vk.VertexInputAttributeDescription{
		{Location: 0, Binding: 0, Format: vk.FormatR32g32Sfloat, Offset: gui.DrawVertPosOffset},
		{Location: 1, Binding: 0, Format: vk.FormatR32g32Sfloat, Offset: gui.DrawVertUVOffset},
		{Location: 2, Binding: 0, Format: vk.FormatR8g8b8a8Unorm, Offset: gui.DrawVertColOffset},
	}
}

// Context is the GUI the game may add its own windows to between frames.
func (g *GUIDevice) Context() *gui.Context {
	return g.context
}

// NewFrame starts the GUI frame and declares the debug window.
func (g *GUIDevice) NewFrame() error {
	g.clock.Update()
	now := g.clock.Elapsed()
	dt := now - g.lastTime
	g.lastTime = now

	if err := g.context.NewFrame(dt); err != nil {
		return err
	}
	if err := g.context.Begin("Debug window"); err != nil {
		return err
	}
	fps, ms := g.context.Framerate()
	if err := g.context.Text("Application average %.3f ms/frame (%.1f FPS)", ms, fps); err != nil {
		return err
	}
	return g.context.End()
}

// RecordCommands renders the GUI into the command buffer of slot, on top of image.
func (g *GUIDevice) RecordCommands(slot, image uint32) error {
	const op = "record gui commands"
	if err := core.Check(int(image) < len(g.framebuffers), op, "no framebuffer for image %d", image); err != nil {
		return err
	}
	data, err := g.context.Render()
	if err != nil {
		return err
	}
	if err := g.upload(slot, data); err != nil {
		return err
	}

	cb := g.renderer.commandBuffer(slot)
	extent := g.renderer.Extent()
	g.pass.Begin(cb, g.framebuffers[image], extent, [4]float32{})
	defer g.pass.End(cb)

	if data.TotalIdxCount == 0 {
		return nil
	}
	g.pipeline.Bind(cb)
	vk.CmdBindDescriptorSets(cb.Handle, vk.PipelineBindPointGraphics, g.pipeline.Layout(), 0, 1, []vk.DescriptorSet{g.fontSet}, 0, nil)
	vk.CmdBindVertexBuffers(cb.Handle, 0, 1, []vk.Buffer{g.vertexBuffers[slot].Handle}, []vk.DeviceSize{0})
	vk.CmdBindIndexBuffer(cb.Handle, g.indexBuffers[slot].Handle, 0, vk.IndexTypeUint32)

	push := guiPushData{Scale: data.Scale(), Translate: data.Translate()}
	vk.CmdPushConstants(cb.Handle, g.pipeline.Layout(), vk.ShaderStageFlags(vk.ShaderStageVertexBit),
		0, guiPushDataSize, unsafe.Pointer(&push))

	var vtxOffset, idxOffset uint32
	for _, list := range data.Lists {
		for _, cmd := range list.Cmds {
			scissor, ok := clipScissor(cmd.ClipRect, data.DisplayPos, extent)
			if !ok || cmd.ElemCount == 0 {
				continue
			}
			vk.CmdSetScissor(cb.Handle, 0, 1, []vk.Rect2D{scissor})
			vk.CmdDrawIndexed(cb.Handle, cmd.ElemCount, 1, idxOffset+cmd.IdxOffset, int32(vtxOffset+cmd.VtxOffset), 0)
		}
		vtxOffset += uint32(len(list.Vertices))
		idxOffset += uint32(len(list.Indices))
	}
	return nil
}

// upload packs every list into the vertex and index buffers of slot. The slot's fence has
// been waited on, so its buffers are free to grow or be overwritten.
func (g *GUIDevice) upload(slot uint32, data *gui.DrawData) error {
	if data.TotalIdxCount == 0 {
		return nil
	}
	vertices := make([]byte, 0, data.TotalVtxCount*int(gui.DrawVertSize))
	indices := make([]uint32, 0, data.TotalIdxCount)
	for _, list := range data.Lists {
		vertices = append(vertices, gui.VertexBytes(list.Vertices)...)
		indices = append(indices, list.Indices...)
	}
	indexBytes := renderer.IndexBytes(indices)

	var err error
	g.vertexBuffers[slot], err = g.ensureBuffer(g.vertexBuffers[slot], uint64(len(vertices)), vk.BufferUsageVertexBufferBit)
	if err != nil {
		return err
	}
	g.indexBuffers[slot], err = g.ensureBuffer(g.indexBuffers[slot], uint64(len(indexBytes)), vk.BufferUsageIndexBufferBit)
	if err != nil {
		return err
	}
	if err := g.vertexBuffers[slot].Write(vertices); err != nil {
		return err
	}
	return g.indexBuffers[slot].Write(indexBytes)
}

func (g *GUIDevice) ensureBuffer(buffer *Buffer, size uint64, usage vk.BufferUsageFlagBits) (*Buffer, error) {
	if buffer != nil && buffer.Size >= size {
		return buffer, nil
	}
	device := g.renderer.Device()
	if buffer != nil {
		buffer.Destroy(device)
	}
	return NewBuffer(device, growBufferSize(size), vk.BufferUsageFlags(usage),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
}

// growBufferSize rounds needed up to the next power of two, at least 4KiB.
func growBufferSize(needed uint64) uint64 {
	size := uint64(4096)
	for size < needed {
		size <<= 1
	}
	return size
}

// clipScissor converts a clip rectangle in display pixels into a scissor inside extent. It
// reports false when nothing of the rectangle is visible.
func clipScissor(clip mgl32.Vec4, displayPos mgl32.Vec2, extent vk.Extent2D) (vk.Rect2D, bool) {
	w, h := float32(extent.Width), float32(extent.Height)
	minX := emath.Clamp(clip.X()-displayPos.X(), 0, w)
	minY := emath.Clamp(clip.Y()-displayPos.Y(), 0, h)
	maxX := emath.Clamp(clip.Z()-displayPos.X(), 0, w)
	maxY := emath.Clamp(clip.W()-displayPos.Y(), 0, h)
	if maxX <= minX || maxY <= minY {
		return vk.Rect2D{}, false
	}
	return vk.Rect2D{
		Offset: vk.Offset2D{X: int32(minX), Y: int32(minY)},
		Extent: vk.Extent2D{Width: uint32(maxX - minX), Height: uint32(maxY - minY)},
	}, true
}

// Destroy releases everything the device created. The device must be idle.
func (g *GUIDevice) Destroy() {
	device := g.renderer.Device()
	for i := range g.vertexBuffers {
		if g.vertexBuffers[i] != nil {
			g.vertexBuffers[i].Destroy(device)
			g.vertexBuffers[i] = nil
		}
		if g.indexBuffers[i] != nil {
			g.indexBuffers[i].Destroy(device)
			g.indexBuffers[i] = nil
		}
	}
	if g.pipeline != nil {
		g.pipeline.Destroy(device)
		g.pipeline = nil
	}
	if g.layout != nil {
		g.layout.Destroy(device)
		g.layout = nil
	}
	if g.pool != nil {
		DestroyDescriptorPool(device, g.pool)
		g.pool = nil
	}
	if g.font != nil {
		g.font.Destroy(device)
		g.font = nil
	}
	for _, fb := range g.framebuffers {
		fb.Destroy(device)
	}
	g.framebuffers = nil
	if g.pass != nil {
		g.pass.Destroy(device)
		g.pass = nil
	}
	core.LogInfo("GUI device destroyed.")
}
