package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/nya/engine/core"
)

// TEXTURE_FORMAT is the format of every sampled texture. Pixels are uploaded as sRGB RGBA8.
const TEXTURE_FORMAT = vk.FormatR8g8b8a8Srgb

type Texture struct {
	ID      core.ID
	Image   *VulkanImage
	Sampler vk.Sampler
	Width   uint32
	Height  uint32
}

// NewTexture uploads tightly packed RGBA8 pixels into a sampled image with a linear,
// repeating sampler.
func NewTexture(device *VulkanDevice, pixels []byte, width, height uint32) (*Texture, error) {
	const op = "create texture"
	if device == nil {
		err := core.NewPreconditionError(op, core.ErrNilDevice)
		core.LogError("%s", err)
		return nil, err
	}
	if err := core.Check(width > 0 && height > 0, op, "texture size must be non zero, got %dx%d", width, height); err != nil {
		return nil, err
	}
	if err := core.Check(uint64(len(pixels)) == uint64(width)*uint64(height)*4, op,
		"expected %d bytes of RGBA8 pixels, got %d", uint64(width)*uint64(height)*4, len(pixels)); err != nil {
		return nil, err
	}

	staging, err := NewBuffer(device, uint64(len(pixels)),
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, err
	}
	defer staging.Destroy(device)
	if err := staging.Write(pixels); err != nil {
		return nil, err
	}

	img, err := NewImage(device, width, height, TEXTURE_FORMAT, vk.ImageTilingOptimal,
		vk.ImageUsageFlags(vk.ImageUsageTransferDstBit|vk.ImageUsageSampledBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		vk.ImageAspectFlags(vk.ImageAspectColorBit))
	if err != nil {
		return nil, err
	}

	cb, err := device.BeginSingleUse()
	if err != nil {
		img.Destroy(device)
		return nil, err
	}
	if err := img.TransitionLayout(cb, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal); err != nil {
		device.EndSingleUse(cb)
		img.Destroy(device)
		return nil, err
	}
	img.CopyFromBuffer(cb, staging)
	if err := img.TransitionLayout(cb, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal); err != nil {
		device.EndSingleUse(cb)
		img.Destroy(device)
		return nil, err
	}
	if err := device.EndSingleUse(cb); err != nil {
		img.Destroy(device)
		return nil, err
	}

	sampler, err := createSampler(device)
	if err != nil {
		img.Destroy(device)
		return nil, err
	}

	texture := &Texture{
		ID:      core.NewID("texture"),
		Image:   img,
		Sampler: sampler,
		Width:   width,
		Height:  height,
	}
	core.LogDebug("created %s (%dx%d)", texture.ID.Short(), width, height)
	return texture, nil
}

func createSampler(device *VulkanDevice) (vk.Sampler, error) {
	createInfo := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               vk.FilterLinear,
		MinFilter:               vk.FilterLinear,
		AddressModeU:            vk.SamplerAddressModeRepeat,
		AddressModeV:            vk.SamplerAddressModeRepeat,
		AddressModeW:            vk.SamplerAddressModeRepeat,
		AnisotropyEnable:        vk.True,
		MaxAnisotropy:           device.Properties.Limits.MaxSamplerAnisotropy,
		BorderColor:             vk.BorderColorIntOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
		MipmapMode:              vk.SamplerMipmapModeLinear,
		MipLodBias:              0,
		MinLod:                  0,
		MaxLod:                  0,
	}
	var sampler vk.Sampler
	if res := vk.CreateSampler(device.LogicalDevice, &createInfo, device.Allocator, &sampler); res != vk.Success {
		return vk.NullSampler, vulkanError("create sampler", res)
	}
	return sampler, nil
}

// View is the image view sampled by the fragment shader.
func (t *Texture) View() vk.ImageView {
	if t.Image == nil {
		return vk.NullImageView
	}
	return t.Image.View
}

// ImageInfo describes the texture for a combined image sampler write.
func (t *Texture) ImageInfo() vk.DescriptorImageInfo {
	return vk.DescriptorImageInfo{
		Sampler:     t.Sampler,
		ImageView:   t.View(),
		ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
	}
}

// Destroy releases the sampler, then the view, the image and its memory.
func (t *Texture) Destroy(device *VulkanDevice) {
	if t.Sampler != vk.NullSampler {
		vk.DestroySampler(device.LogicalDevice, t.Sampler, device.Allocator)
		t.Sampler = vk.NullSampler
	}
	if t.Image != nil {
		t.Image.Destroy(device)
		t.Image = nil
	}
}
