package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/nya/engine/core"
	"github.com/spaghettifunk/nya/engine/renderer"
)

type RendererConfig struct {
	AppName        string
	Validation     bool
	FramesInFlight uint32
	ClearColor     [4]float32
}

// frameSlot is what one frame in flight records into and synchronizes on.
type frameSlot struct {
	commandBuffer  *VulkanCommandBuffer
	imageAvailable vk.Semaphore
	renderFinished vk.Semaphore
	inFlight       *VulkanFence
}

// Renderer is the Vulkan side of the frame cycle. It owns the context, the frame slots, the
// main render pass and one framebuffer per swapchain image.
type Renderer struct {
	*renderer.FrameCycle

	context      *VulkanContext
	slots        []frameSlot
	mainPass     *RenderPass
	framebuffers []*VulkanFramebuffer
	clearColor   [4]float32
}

func NewRenderer(window WindowSurface, cfg RendererConfig) (*Renderer, error) {
	const op = "create renderer"
	if err := core.Check(cfg.FramesInFlight >= 1 && cfg.FramesInFlight <= core.MaxFramesInFlight, op,
		"frames in flight must be in [1, %d], got %d", core.MaxFramesInFlight, cfg.FramesInFlight); err != nil {
		return nil, err
	}

	context, err := NewVulkanContext(window, ContextConfig{AppName: cfg.AppName, Validation: cfg.Validation})
	if err != nil {
		return nil, err
	}
	r := &Renderer{
		context:    context,
		clearColor: cfg.ClearColor,
	}

	if err := r.createSlots(cfg.FramesInFlight); err != nil {
		r.Destroy()
		return nil, err
	}

	r.mainPass, err = NewMainRenderPass(context.Device, context.Swapchain.ImageFormat.Format)
	if err != nil {
		r.Destroy()
		return nil, err
	}
	r.framebuffers, err = context.Swapchain.CreateFramebuffers(context.Device, r.mainPass)
	if err != nil {
		r.Destroy()
		return nil, err
	}

	r.FrameCycle, err = renderer.NewFrameCycle(&frameBackend{r: r}, nil)
	if err != nil {
		r.Destroy()
		return nil, err
	}

	core.LogInfo("Vulkan renderer initialized with %d frames in flight.", cfg.FramesInFlight)
	return r, nil
}

func (r *Renderer) createSlots(frames uint32) error {
	device := r.context.Device
	r.slots = make([]frameSlot, 0, frames)
	for i := uint32(0); i < frames; i++ {
		var slot frameSlot
		var err error

		slot.commandBuffer, err = NewVulkanCommandBuffer(device, device.GraphicsCommandPool, true)
		if err != nil {
			return err
		}
		// appended first so Destroy releases whatever part was created
		r.slots = append(r.slots, slot)
		s := &r.slots[len(r.slots)-1]

		if s.imageAvailable, err = createSemaphore(device); err != nil {
			return err
		}
		if s.renderFinished, err = createSemaphore(device); err != nil {
			return err
		}
		// Created signaled so the first wait of each slot returns immediately.
		if s.inFlight, err = NewFence(device, true); err != nil {
			return err
		}
	}
	return nil
}

func createSemaphore(device *VulkanDevice) (vk.Semaphore, error) {
	createInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var semaphore vk.Semaphore
	if res := vk.CreateSemaphore(device.LogicalDevice, &createInfo, device.Allocator, &semaphore); res != vk.Success {
		return vk.NullSemaphore, vulkanError("create semaphore", res)
	}
	return semaphore, nil
}

func (r *Renderer) Device() *VulkanDevice {
	return r.context.Device
}

func (r *Renderer) Swapchain() *VulkanSwapchain {
	return r.context.Swapchain
}

func (r *Renderer) Extent() vk.Extent2D {
	return r.context.Swapchain.Extent
}

// AspectRatio of the swapchain images.
func (r *Renderer) AspectRatio() float32 {
	extent := r.Extent()
	if extent.Height == 0 {
		return 1
	}
	return float32(extent.Width) / float32(extent.Height)
}

func (r *Renderer) MainRenderPass() *RenderPass {
	return r.mainPass
}

// commandBuffer returns the command buffer of slot, used by the overlay to record into the
// same submission.
func (r *Renderer) commandBuffer(slot uint32) *VulkanCommandBuffer {
	return r.slots[slot].commandBuffer
}

// recording returns the command buffer open for the current frame.
func (r *Renderer) recording(op string) (*VulkanCommandBuffer, error) {
	slot, err := r.RecordingSlot()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return r.slots[slot].commandBuffer, nil
}

func (r *Renderer) BindPipeline(pipeline *Pipeline) error {
	cb, err := r.recording("bind pipeline")
	if err != nil {
		return err
	}
	pipeline.Bind(cb)
	return nil
}

// PushConstants pushes data to the vertex stage at offset 0.
func (r *Renderer) PushConstants(pipeline *Pipeline, data *renderer.PushData) error {
	cb, err := r.recording("push constants")
	if err != nil {
		return err
	}
	vk.CmdPushConstants(cb.Handle, pipeline.Layout(), vk.ShaderStageFlags(vk.ShaderStageVertexBit),
		0, renderer.PushDataSize, unsafe.Pointer(data))
	return nil
}

// Draw binds geometry and set 0, then issues one indexed draw of the whole geometry.
func (r *Renderer) Draw(pipeline *Pipeline, geometry *Geometry, set vk.DescriptorSet) error {
	const op = "draw"
	cb, err := r.recording(op)
	if err != nil {
		return err
	}
	if err := core.Check(geometry != nil && geometry.Vertex != nil && geometry.Index != nil, op, "geometry is not uploaded"); err != nil {
		return err
	}
	vk.CmdBindVertexBuffers(cb.Handle, 0, 1, []vk.Buffer{geometry.Vertex.Handle}, []vk.DeviceSize{0})
	vk.CmdBindIndexBuffer(cb.Handle, geometry.Index.Handle, 0, vk.IndexTypeUint32)
	vk.CmdBindDescriptorSets(cb.Handle, vk.PipelineBindPointGraphics, pipeline.Layout(), 0, 1, []vk.DescriptorSet{set}, 0, nil)
	vk.CmdDrawIndexed(cb.Handle, geometry.IndexCount, 1, 0, 0, 0)
	return nil
}

func (r *Renderer) WaitIdle() error {
	return r.context.Device.WaitIdle()
}

func (r *Renderer) CreateTexture(pixels []byte, width, height uint32) (*Texture, error) {
	return NewTexture(r.context.Device, pixels, width, height)
}

func (r *Renderer) UploadGeometry(vertices []renderer.Vertex, indices []uint32) (*Geometry, error) {
	return NewGeometry(r.context.Device, renderer.VertexBytes(vertices), indices)
}

// NewSprite creates a sprite with one descriptor set and uniform buffer per frame slot.
func (r *Renderer) NewSprite(layout *DescriptorSetLayout) (*Sprite, error) {
	return NewSprite(r.context.Device, layout, uint32(len(r.slots)))
}

func (r *Renderer) DestroyTexture(texture *Texture) {
	texture.Destroy(r.context.Device)
}

func (r *Renderer) DestroyGeometry(geometry *Geometry) {
	geometry.Destroy(r.context.Device)
}

func (r *Renderer) DestroySprite(sprite *Sprite) {
	sprite.Destroy(r.context.Device)
}

// Destroy waits for the device, then releases everything in reverse creation order. It is
// safe on a partially created renderer.
func (r *Renderer) Destroy() {
	if r.context == nil {
		return
	}
	device := r.context.Device
	if device != nil {
		if err := device.WaitIdle(); err != nil {
			core.LogWarn("wait idle before destroy: %s", err)
		}
		for _, fb := range r.framebuffers {
			fb.Destroy(device)
		}
		r.framebuffers = nil
		if r.mainPass != nil {
			r.mainPass.Destroy(device)
			r.mainPass = nil
		}
		for _, s := range r.slots {
			if s.inFlight != nil {
				s.inFlight.Destroy(device)
			}
			if s.renderFinished != vk.NullSemaphore {
				vk.DestroySemaphore(device.LogicalDevice, s.renderFinished, device.Allocator)
			}
			if s.imageAvailable != vk.NullSemaphore {
				vk.DestroySemaphore(device.LogicalDevice, s.imageAvailable, device.Allocator)
			}
			if s.commandBuffer != nil {
				s.commandBuffer.Free(device, device.GraphicsCommandPool)
			}
		}
		r.slots = nil
	}
	r.context.Destroy()
	r.context = nil
	core.LogInfo("Vulkan renderer destroyed.")
}

// frameBackend adapts the renderer's slots to renderer.Backend.
type frameBackend struct {
	r *Renderer
}

func (b *frameBackend) FramesInFlight() uint32 {
	return uint32(len(b.r.slots))
}

func (b *frameBackend) WaitForFence(slot uint32) error {
	return b.r.slots[slot].inFlight.Wait(b.r.context.Device, FENCE_WAIT_FOREVER)
}

func (b *frameBackend) ResetFence(slot uint32) error {
	return b.r.slots[slot].inFlight.Reset(b.r.context.Device)
}

func (b *frameBackend) AcquireNextImage(slot uint32) (uint32, error) {
	return b.r.context.Swapchain.AcquireNextImageIndex(b.r.context.Device, FENCE_WAIT_FOREVER, b.r.slots[slot].imageAvailable)
}

func (b *frameBackend) BeginCommandBuffer(slot uint32) error {
	cb := b.r.slots[slot].commandBuffer
	if err := cb.Reset(); err != nil {
		return err
	}
	return cb.Begin(false, false, false)
}

func (b *frameBackend) BeginRenderPass(slot, image uint32) error {
	if err := core.Check(int(image) < len(b.r.framebuffers), "begin main render pass", "no framebuffer for image %d", image); err != nil {
		return err
	}
	b.r.mainPass.Begin(b.r.slots[slot].commandBuffer, b.r.framebuffers[image], b.r.Extent(), b.r.clearColor)
	return nil
}

func (b *frameBackend) EndRenderPass(slot uint32) error {
	b.r.mainPass.End(b.r.slots[slot].commandBuffer)
	return nil
}

func (b *frameBackend) EndCommandBuffer(slot uint32) error {
	return b.r.slots[slot].commandBuffer.End()
}

// Submit waits on image available at the color output stage so only attachment writes are
// held back, and signals render finished plus the slot fence.
func (b *frameBackend) Submit(slot uint32) error {
	s := &b.r.slots[slot]
	device := b.r.context.Device

	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{s.imageAvailable},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{s.commandBuffer.Handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{s.renderFinished},
	}
	err := device.locks.SafeCall(QueueManagement, func() error {
		if res := vk.QueueSubmit(device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, s.inFlight.Handle); res != vk.Success {
			return vulkanError("queue submit", res)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.inFlight.MarkSubmitted()
	s.commandBuffer.UpdateSubmitted()
	return nil
}

func (b *frameBackend) Present(slot, image uint32) error {
	return b.r.context.Swapchain.Present(b.r.context.Device, b.r.slots[slot].renderFinished, image)
}
