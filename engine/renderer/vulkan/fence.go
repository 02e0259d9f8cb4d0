package vulkan

import (
	"math"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/nya/engine/core"
)

// FENCE_WAIT_FOREVER is the timeout used by the frame cycle: fence waits are bounded only by
// GPU completion.
const FENCE_WAIT_FOREVER uint64 = math.MaxUint64

type VulkanFence struct {
	Handle     vk.Fence
	IsSignaled bool
}

func NewFence(device *VulkanDevice, createSignaled bool) (*VulkanFence, error) {
	if device == nil {
		return nil, core.NewPreconditionError("create fence", core.ErrNilDevice)
	}
	fence := &VulkanFence{
		IsSignaled: createSignaled,
	}

	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if fence.IsSignaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	var pFence vk.Fence
	if res := vk.CreateFence(device.LogicalDevice, &fenceCreateInfo, device.Allocator, &pFence); res != vk.Success {
		return nil, vulkanError("create fence", res)
	}
	fence.Handle = pFence
	return fence, nil
}

func (vf *VulkanFence) Destroy(device *VulkanDevice) {
	if vf.Handle != vk.NullFence {
		vk.DestroyFence(device.LogicalDevice, vf.Handle, device.Allocator)
		vf.Handle = vk.NullFence
	}
	vf.IsSignaled = false
}

// Wait blocks until the fence is signaled. A fence already known to be signaled returns at once.
func (vf *VulkanFence) Wait(device *VulkanDevice, timeoutNs uint64) error {
	if vf.IsSignaled {
		return nil
	}
	result := vk.WaitForFences(device.LogicalDevice, 1, []vk.Fence{vf.Handle}, vk.True, timeoutNs)
	if result == vk.Success {
		vf.IsSignaled = true
		return nil
	}
	if result == vk.Timeout {
		core.LogWarn("fence wait timed out after %dns", timeoutNs)
	}
	return vulkanError("wait for fence", result)
}

func (vf *VulkanFence) Reset(device *VulkanDevice) error {
	if !vf.IsSignaled {
		return nil
	}
	if res := vk.ResetFences(device.LogicalDevice, 1, []vk.Fence{vf.Handle}); res != vk.Success {
		return vulkanError("reset fence", res)
	}
	vf.IsSignaled = false
	return nil
}

// MarkSubmitted records that the fence was handed to a queue submission and will be
// signaled by the GPU.
func (vf *VulkanFence) MarkSubmitted() {
	vf.IsSignaled = false
}
