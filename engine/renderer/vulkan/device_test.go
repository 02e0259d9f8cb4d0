package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/nya/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func family(flags vk.QueueFlagBits) vk.QueueFamilyProperties {
	return vk.QueueFamilyProperties{QueueFlags: vk.QueueFlags(flags), QueueCount: 1}
}

func presentOn(indices ...uint32) func(uint32) bool {
	return func(i uint32) bool {
		for _, idx := range indices {
			if idx == i {
				return true
			}
		}
		return false
	}
}

func TestFindQueueFamiliesPrefersSharedFamily(t *testing.T) {
	families := []vk.QueueFamilyProperties{
		family(vk.QueueTransferBit),
		family(vk.QueueGraphicsBit),
		family(vk.QueueGraphicsBit | vk.QueueComputeBit),
	}
	info := findQueueFamilies(families, presentOn(0, 2))
	assert.Equal(t, int32(2), info.GraphicsFamilyIndex)
	assert.Equal(t, int32(2), info.PresentFamilyIndex)
}

func TestFindQueueFamiliesSeparate(t *testing.T) {
	families := []vk.QueueFamilyProperties{
		family(vk.QueueGraphicsBit),
		family(vk.QueueTransferBit),
	}
	info := findQueueFamilies(families, presentOn(1))
	assert.Equal(t, int32(0), info.GraphicsFamilyIndex)
	assert.Equal(t, int32(1), info.PresentFamilyIndex)
}

func TestFindQueueFamiliesIndexZeroIsValid(t *testing.T) {
	info := findQueueFamilies([]vk.QueueFamilyProperties{family(vk.QueueGraphicsBit)}, presentOn(0))
	assert.Equal(t, int32(0), info.GraphicsFamilyIndex)
	assert.Equal(t, int32(0), info.PresentFamilyIndex)
}

func TestFindQueueFamiliesMissing(t *testing.T) {
	info := findQueueFamilies([]vk.QueueFamilyProperties{family(vk.QueueComputeBit)}, presentOn())
	assert.Equal(t, int32(-1), info.GraphicsFamilyIndex)
	assert.Equal(t, int32(-1), info.PresentFamilyIndex)
}

func TestFindMemoryType(t *testing.T) {
	var memory vk.PhysicalDeviceMemoryProperties
	memory.MemoryTypeCount = 3
	memory.MemoryTypes[0].PropertyFlags = vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	memory.MemoryTypes[1].PropertyFlags = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)
	memory.MemoryTypes[2].PropertyFlags = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)

	hostCoherent := vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)

	index, err := findMemoryType(memory, 0b111, hostCoherent)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), index)

	index, err = findMemoryType(memory, 0b111, vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit))
	require.NoError(t, err)
	assert.Equal(t, uint32(1), index)

	// Type 2 is excluded by the filter.
	_, err = findMemoryType(memory, 0b011, hostCoherent)
	require.Error(t, err)
	assert.True(t, core.IsEnvironment(err))
}

func TestMissingNames(t *testing.T) {
	available := []string{vk.KhrSwapchainExtensionName, "VK_KHR_maintenance1"}
	assert.Empty(t, missingNames([]string{vk.KhrSwapchainExtensionName}, available))
	assert.Equal(t, []string{VULKAN_VALIDATION_LAYER}, missingNames([]string{VULKAN_VALIDATION_LAYER, "VK_KHR_maintenance1"}, available))
}
