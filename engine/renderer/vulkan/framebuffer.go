package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/nya/engine/core"
)

type VulkanFramebuffer struct {
	Handle      vk.Framebuffer
	Attachments []vk.ImageView
	Width       uint32
	Height      uint32
}

func FramebufferCreate(device *VulkanDevice, renderPass *RenderPass, width uint32, height uint32, attachments []vk.ImageView) (*VulkanFramebuffer, error) {
	if err := core.Check(renderPass != nil, "create framebuffer", "render pass is nil"); err != nil {
		return nil, err
	}
	framebuffer := &VulkanFramebuffer{
		Attachments: append([]vk.ImageView(nil), attachments...),
		Width:       width,
		Height:      height,
	}

	createInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      renderPass.Handle(),
		AttachmentCount: uint32(len(framebuffer.Attachments)),
		PAttachments:    framebuffer.Attachments,
		Width:           width,
		Height:          height,
		Layers:          1,
	}

	var handle vk.Framebuffer
	if res := vk.CreateFramebuffer(device.LogicalDevice, &createInfo, device.Allocator, &handle); res != vk.Success {
		return nil, vulkanError("create framebuffer", res)
	}
	framebuffer.Handle = handle
	return framebuffer, nil
}

func (vfb *VulkanFramebuffer) Destroy(device *VulkanDevice) {
	if vfb.Handle != vk.NullFramebuffer {
		vk.DestroyFramebuffer(device.LogicalDevice, vfb.Handle, device.Allocator)
		vfb.Handle = vk.NullFramebuffer
	}
	vfb.Attachments = nil
}
