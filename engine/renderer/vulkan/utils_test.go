package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/nya/engine/core"
	"github.com/stretchr/testify/assert"
)

func TestVulkanResultString(t *testing.T) {
	assert.Equal(t, "VK_ERROR_OUT_OF_DATE_KHR", VulkanResultString(vk.ErrorOutOfDate))
	assert.Equal(t, "VkResult(-12345)", VulkanResultString(vk.Result(-12345)))
	assert.True(t, VulkanResultIsSuccess(vk.Suboptimal))
	assert.False(t, VulkanResultIsSuccess(vk.ErrorDeviceLost))
}

func TestVulkanError(t *testing.T) {
	err := vulkanError("create fence", vk.ErrorOutOfHostMemory)
	assert.True(t, core.IsEnvironment(err))
	assert.ErrorIs(t, err, core.ErrVulkan)
	assert.Contains(t, err.Error(), "VK_ERROR_OUT_OF_HOST_MEMORY")
}

func TestSafeStrings(t *testing.T) {
	assert.Equal(t, "\x00", VulkanSafeString(""))
	assert.Equal(t, "main\x00", VulkanSafeString("main"))
	assert.Equal(t, "main\x00", VulkanSafeString("main\x00"))

	in := []string{"a", "b\x00"}
	out := VulkanSafeStrings(in)
	assert.Equal(t, []string{"a\x00", "b\x00"}, out)
	assert.Equal(t, "a", in[0])
}

func TestCString(t *testing.T) {
	var name [16]byte
	copy(name[:], "VK_KHR_swapchain")
	assert.Equal(t, "VK_KHR_swapchain", cString(name[:]))

	var layer [32]byte
	copy(layer[:], "VK_LAYER_KHRONOS_validation")
	assert.Equal(t, "VK_LAYER_KHRONOS_validation", cString(layer[:]))
}
