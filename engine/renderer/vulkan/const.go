package vulkan

const (
	// Binding of the per-sprite uniform buffer.
	VULKAN_SPRITE_UNIFORM_BINDING uint32 = 0
	// Binding of the per-sprite combined image sampler.
	VULKAN_SPRITE_SAMPLER_BINDING uint32 = 1

	// Descriptors of each type reserved by the GUI device pool.
	VULKAN_GUI_DESCRIPTOR_COUNT uint32 = 1000

	VULKAN_VALIDATION_LAYER = "VK_LAYER_KHRONOS_validation"
)
