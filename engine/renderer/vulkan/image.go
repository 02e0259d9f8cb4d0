package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/nya/engine/core"
)

type VulkanImage struct {
	Handle vk.Image
	Memory vk.DeviceMemory
	View   vk.ImageView
	Format vk.Format
	Width  uint32
	Height uint32
}

// NewImage creates a 2D image with one mip level and layer, bound to its own allocation, and
// a view over it.
func NewImage(
	device *VulkanDevice,
	width, height uint32,
	format vk.Format,
	tiling vk.ImageTiling,
	usage vk.ImageUsageFlags,
	memoryFlags vk.MemoryPropertyFlags,
	aspect vk.ImageAspectFlags,
) (*VulkanImage, error) {
	const op = "create image"
	if device == nil {
		err := core.NewPreconditionError(op, core.ErrNilDevice)
		core.LogError("%s", err)
		return nil, err
	}
	img := &VulkanImage{Format: format, Width: width, Height: height}

	createInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Extent: vk.Extent3D{
			Width:  width,
			Height: height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Format:        format,
		Tiling:        tiling,
		InitialLayout: vk.ImageLayoutUndefined,
		Usage:         usage,
		Samples:       vk.SampleCount1Bit,
		SharingMode:   vk.SharingModeExclusive,
	}
	if res := vk.CreateImage(device.LogicalDevice, &createInfo, device.Allocator, &img.Handle); res != vk.Success {
		return nil, vulkanError(op, res)
	}

	var requirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(device.LogicalDevice, img.Handle, &requirements)
	requirements.Deref()

	memoryIndex, err := device.FindMemoryIndex(requirements.MemoryTypeBits, memoryFlags)
	if err != nil {
		img.Destroy(device)
		return nil, err
	}
	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: memoryIndex,
	}
	if res := vk.AllocateMemory(device.LogicalDevice, &allocateInfo, device.Allocator, &img.Memory); res != vk.Success {
		img.Destroy(device)
		return nil, vulkanError("allocate image memory", res)
	}
	if res := vk.BindImageMemory(device.LogicalDevice, img.Handle, img.Memory, 0); res != vk.Success {
		img.Destroy(device)
		return nil, vulkanError("bind image memory", res)
	}

	view, err := createImageView(device, img.Handle, format, aspect)
	if err != nil {
		img.Destroy(device)
		return nil, err
	}
	img.View = view
	return img, nil
}

func createImageView(device *VulkanDevice, image vk.Image, format vk.Format, aspect vk.ImageAspectFlags) (vk.ImageView, error) {
	viewInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	var view vk.ImageView
	if res := vk.CreateImageView(device.LogicalDevice, &viewInfo, device.Allocator, &view); res != vk.Success {
		return vk.NullImageView, vulkanError("create image view", res)
	}
	return view, nil
}

// layoutBarrier returns the access masks and stages for the two transitions a texture upload
// goes through.
func layoutBarrier(oldLayout, newLayout vk.ImageLayout) (srcAccess, dstAccess vk.AccessFlags, srcStage, dstStage vk.PipelineStageFlags, err error) {
	switch {
	case oldLayout == vk.ImageLayoutUndefined && newLayout == vk.ImageLayoutTransferDstOptimal:
		return 0, vk.AccessFlags(vk.AccessTransferWriteBit),
			vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit), vk.PipelineStageFlags(vk.PipelineStageTransferBit), nil
	case oldLayout == vk.ImageLayoutTransferDstOptimal && newLayout == vk.ImageLayoutShaderReadOnlyOptimal:
		return vk.AccessFlags(vk.AccessTransferWriteBit), vk.AccessFlags(vk.AccessShaderReadBit),
			vk.PipelineStageFlags(vk.PipelineStageTransferBit), vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit), nil
	default:
		err = core.Check(false, "image layout transition", "unsupported layout transition %d -> %d", oldLayout, newLayout)
		return 0, 0, 0, 0, err
	}
}

// TransitionLayout records a barrier moving the image from oldLayout to newLayout.
func (img *VulkanImage) TransitionLayout(cb *VulkanCommandBuffer, oldLayout, newLayout vk.ImageLayout) error {
	srcAccess, dstAccess, srcStage, dstStage, err := layoutBarrier(oldLayout, newLayout)
	if err != nil {
		return err
	}
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       srcAccess,
		DstAccessMask:       dstAccess,
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               img.Handle,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	vk.CmdPipelineBarrier(cb.Handle, srcStage, dstStage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
	return nil
}

// CopyFromBuffer records a copy of tightly packed pixels from buffer into the whole image,
// which must be in TransferDstOptimal.
func (img *VulkanImage) CopyFromBuffer(cb *VulkanCommandBuffer, buffer *Buffer) {
	region := vk.BufferImageCopy{
		BufferOffset:      0,
		BufferRowLength:   0,
		BufferImageHeight: 0,
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			MipLevel:       0,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		ImageOffset: vk.Offset3D{},
		ImageExtent: vk.Extent3D{
			Width:  img.Width,
			Height: img.Height,
			Depth:  1,
		},
	}
	vk.CmdCopyBufferToImage(cb.Handle, buffer.Handle, img.Handle, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})
}

func (img *VulkanImage) Destroy(device *VulkanDevice) {
	if img.View != vk.NullImageView {
		vk.DestroyImageView(device.LogicalDevice, img.View, device.Allocator)
		img.View = vk.NullImageView
	}
	if img.Handle != vk.NullImage {
		vk.DestroyImage(device.LogicalDevice, img.Handle, device.Allocator)
		img.Handle = vk.NullImage
	}
	if img.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(device.LogicalDevice, img.Memory, device.Allocator)
		img.Memory = vk.NullDeviceMemory
	}
}
