package vulkan

import (
	"errors"
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/nya/engine/core"
)

type VulkanDevice struct {
	PhysicalDevice     vk.PhysicalDevice
	LogicalDevice      vk.Device
	Allocator          *vk.AllocationCallbacks
	SwapchainSupport   VulkanSwapchainSupportInfo
	GraphicsQueueIndex int32
	PresentQueueIndex  int32

	GraphicsQueue vk.Queue
	PresentQueue  vk.Queue

	GraphicsCommandPool vk.CommandPool

	Properties vk.PhysicalDeviceProperties
	Features   vk.PhysicalDeviceFeatures
	Memory     vk.PhysicalDeviceMemoryProperties

	locks *VulkanLockPool
}

type VulkanPhysicalDeviceRequirements struct {
	Graphics             bool
	Present              bool
	DeviceExtensionNames []string
	SamplerAnisotropy    bool
	FillModeNonSolid     bool
}

// VulkanPhysicalDeviceQueueFamilyInfo holds the selected family indices, -1 when not found.
type VulkanPhysicalDeviceQueueFamilyInfo struct {
	GraphicsFamilyIndex int32
	PresentFamilyIndex  int32
}

var errNoSuitableDevice = errors.New("no physical device meets the requirements")

func defaultDeviceRequirements() VulkanPhysicalDeviceRequirements {
	return VulkanPhysicalDeviceRequirements{
		Graphics:             true,
		Present:              true,
		SamplerAnisotropy:    true,
		FillModeNonSolid:     true,
		DeviceExtensionNames: []string{vk.KhrSwapchainExtensionName},
	}
}

// DeviceCreate selects a physical device for the context surface and creates the logical
// device, its queues and the graphics command pool.
func DeviceCreate(context *VulkanContext) (*VulkanDevice, error) {
	device := &VulkanDevice{
		Allocator:          context.Allocator,
		GraphicsQueueIndex: -1,
		PresentQueueIndex:  -1,
		locks:              NewVulkanLockPool(),
	}
	if err := device.selectPhysicalDevice(context.Instance, context.Surface); err != nil {
		return nil, err
	}

	core.LogInfo("Creating logical device...")

	// Do not create additional queues for shared indices.
	indices := []uint32{uint32(device.GraphicsQueueIndex)}
	if device.PresentQueueIndex != device.GraphicsQueueIndex {
		indices = append(indices, uint32(device.PresentQueueIndex))
	}

	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(indices))
	for i, index := range indices {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: index,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	extensionNames := []string{vk.KhrSwapchainExtensionName}
	available, err := deviceExtensionNames(device.PhysicalDevice)
	if err != nil {
		return nil, err
	}
	if len(missingNames([]string{"VK_KHR_portability_subset"}, available)) == 0 {
		core.LogInfo("Adding required extension 'VK_KHR_portability_subset'.")
		extensionNames = append(extensionNames, "VK_KHR_portability_subset")
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensionNames),
		PEnabledFeatures: []vk.PhysicalDeviceFeatures{{
			SamplerAnisotropy: vk.True,
			FillModeNonSolid:  vk.True,
		}},
		PNext: unsafe.Pointer(&vk.PhysicalDeviceVulkan12Features{
			SType:              vk.StructureTypePhysicalDeviceVulkan12Features,
			DescriptorIndexing: vk.True,
			DescriptorBindingUniformBufferUpdateAfterBind: vk.True,
			DescriptorBindingSampledImageUpdateAfterBind:  vk.True,
		}),
	}

	if res := vk.CreateDevice(device.PhysicalDevice, &deviceCreateInfo, device.Allocator, &device.LogicalDevice); res != vk.Success {
		return nil, vulkanError("create logical device", res)
	}
	core.LogInfo("Logical device created.")

	var graphicsQueue, presentQueue vk.Queue
	vk.GetDeviceQueue(device.LogicalDevice, uint32(device.GraphicsQueueIndex), 0, &graphicsQueue)
	vk.GetDeviceQueue(device.LogicalDevice, uint32(device.PresentQueueIndex), 0, &presentQueue)
	device.GraphicsQueue = graphicsQueue
	device.PresentQueue = presentQueue
	core.LogInfo("Queues obtained.")

	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: uint32(device.GraphicsQueueIndex),
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit | vk.CommandPoolCreateTransientBit),
	}
	var pool vk.CommandPool
	if res := vk.CreateCommandPool(device.LogicalDevice, &poolCreateInfo, device.Allocator, &pool); res != vk.Success {
		vk.DestroyDevice(device.LogicalDevice, device.Allocator)
		return nil, vulkanError("create graphics command pool", res)
	}
	device.GraphicsCommandPool = pool
	core.LogInfo("Graphics command pool created.")

	return device, nil
}

func (d *VulkanDevice) Destroy(context *VulkanContext) {
	d.GraphicsQueue = nil
	d.PresentQueue = nil

	if d.GraphicsCommandPool != vk.NullCommandPool {
		core.LogInfo("Destroying command pools...")
		vk.DestroyCommandPool(d.LogicalDevice, d.GraphicsCommandPool, d.Allocator)
		d.GraphicsCommandPool = vk.NullCommandPool
	}

	if d.LogicalDevice != nil {
		core.LogInfo("Destroying logical device...")
		vk.DestroyDevice(d.LogicalDevice, d.Allocator)
		d.LogicalDevice = nil
	}

	// Physical devices are not destroyed.
	d.PhysicalDevice = nil
	d.SwapchainSupport = VulkanSwapchainSupportInfo{}
	d.GraphicsQueueIndex = -1
	d.PresentQueueIndex = -1
}

func (d *VulkanDevice) selectPhysicalDevice(instance vk.Instance, surface vk.Surface) error {
	var physicalDeviceCount uint32
	if res := vk.EnumeratePhysicalDevices(instance, &physicalDeviceCount, nil); res != vk.Success {
		return vulkanError("enumerate physical devices", res)
	}
	if physicalDeviceCount == 0 {
		err := core.NewEnvironmentError("select physical device", errors.New("no devices which support Vulkan were found"))
		core.LogError("%s", err)
		return err
	}
	physicalDevices := make([]vk.PhysicalDevice, physicalDeviceCount)
	if res := vk.EnumeratePhysicalDevices(instance, &physicalDeviceCount, physicalDevices); res != vk.Success {
		return vulkanError("enumerate physical devices", res)
	}

	requirements := defaultDeviceRequirements()
	for _, physicalDevice := range physicalDevices {
		var properties vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(physicalDevice, &properties)
		properties.Deref()
		properties.Limits.Deref()

		var features vk.PhysicalDeviceFeatures
		vk.GetPhysicalDeviceFeatures(physicalDevice, &features)
		features.Deref()

		var memory vk.PhysicalDeviceMemoryProperties
		vk.GetPhysicalDeviceMemoryProperties(physicalDevice, &memory)
		memory.Deref()
		for i := uint32(0); i < memory.MemoryTypeCount; i++ {
			memory.MemoryTypes[i].Deref()
		}
		for i := uint32(0); i < memory.MemoryHeapCount; i++ {
			memory.MemoryHeaps[i].Deref()
		}

		queueInfo, support, ok := physicalDeviceMeetsRequirements(physicalDevice, surface, &properties, &features, &requirements)
		if !ok {
			continue
		}

		name := cString(properties.DeviceName[:])
		core.LogInfo("Selected device: '%s'.", name)
		switch properties.DeviceType {
		case vk.PhysicalDeviceTypeIntegratedGpu:
			core.LogInfo("GPU type is Integrated.")
		case vk.PhysicalDeviceTypeDiscreteGpu:
			core.LogInfo("GPU type is Discrete.")
		case vk.PhysicalDeviceTypeVirtualGpu:
			core.LogInfo("GPU type is Virtual.")
		case vk.PhysicalDeviceTypeCpu:
			core.LogInfo("GPU type is CPU.")
		default:
			core.LogInfo("GPU type is Unknown.")
		}
		core.LogInfo("GPU Driver version: %d.%d.%d",
			vk.Version(properties.DriverVersion).Major(),
			vk.Version(properties.DriverVersion).Minor(),
			vk.Version(properties.DriverVersion).Patch())
		core.LogInfo("Vulkan API version: %d.%d.%d",
			vk.Version(properties.ApiVersion).Major(),
			vk.Version(properties.ApiVersion).Minor(),
			vk.Version(properties.ApiVersion).Patch())

		for j := uint32(0); j < memory.MemoryHeapCount; j++ {
			heap := memory.MemoryHeaps[j]
			sizeGiB := float64(heap.Size) / 1024.0 / 1024.0 / 1024.0
			if heap.Flags&vk.MemoryHeapFlags(vk.MemoryHeapDeviceLocalBit) != 0 {
				core.LogInfo("Local GPU memory: %.2f GiB", sizeGiB)
			} else {
				core.LogInfo("Shared System memory: %.2f GiB", sizeGiB)
			}
		}

		d.PhysicalDevice = physicalDevice
		d.GraphicsQueueIndex = queueInfo.GraphicsFamilyIndex
		d.PresentQueueIndex = queueInfo.PresentFamilyIndex
		d.SwapchainSupport = support
		d.Properties = properties
		d.Features = features
		d.Memory = memory
		core.LogInfo("Physical device selected.")
		return nil
	}

	err := core.NewEnvironmentError("select physical device", errNoSuitableDevice)
	core.LogError("%s", err)
	return err
}

func physicalDeviceMeetsRequirements(
	device vk.PhysicalDevice,
	surface vk.Surface,
	properties *vk.PhysicalDeviceProperties,
	features *vk.PhysicalDeviceFeatures,
	requirements *VulkanPhysicalDeviceRequirements,
) (VulkanPhysicalDeviceQueueFamilyInfo, VulkanSwapchainSupportInfo, bool) {
	name := cString(properties.DeviceName[:])

	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, nil)
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, queueFamilies)
	for i := range queueFamilies {
		queueFamilies[i].Deref()
	}

	queueInfo := findQueueFamilies(queueFamilies, func(index uint32) bool {
		var supportsPresent vk.Bool32
		if res := vk.GetPhysicalDeviceSurfaceSupport(device, index, surface, &supportsPresent); res != vk.Success {
			return false
		}
		return supportsPresent.B()
	})

	core.LogInfo("Graphics | Present | Name")
	core.LogInfo("%8t | %7t | %s", queueInfo.GraphicsFamilyIndex >= 0, queueInfo.PresentFamilyIndex >= 0, name)

	if requirements.Graphics && queueInfo.GraphicsFamilyIndex < 0 {
		return queueInfo, VulkanSwapchainSupportInfo{}, false
	}
	if requirements.Present && queueInfo.PresentFamilyIndex < 0 {
		return queueInfo, VulkanSwapchainSupportInfo{}, false
	}
	core.LogInfo("Device meets queue requirements.")
	core.LogDebug("Graphics Family Index: %d", queueInfo.GraphicsFamilyIndex)
	core.LogDebug("Present Family Index:  %d", queueInfo.PresentFamilyIndex)

	support, err := DeviceQuerySwapchainSupport(device, surface)
	if err != nil || len(support.Formats) == 0 || len(support.PresentModes) == 0 {
		core.LogInfo("Required swapchain support not present, skipping device.")
		return queueInfo, support, false
	}

	if len(requirements.DeviceExtensionNames) > 0 {
		available, err := deviceExtensionNames(device)
		if err != nil {
			return queueInfo, support, false
		}
		if missing := missingNames(requirements.DeviceExtensionNames, available); len(missing) > 0 {
			core.LogInfo("Required extensions not found: %v, skipping device.", missing)
			return queueInfo, support, false
		}
	}

	if requirements.SamplerAnisotropy && !features.SamplerAnisotropy.B() {
		core.LogInfo("Device does not support samplerAnisotropy, skipping.")
		return queueInfo, support, false
	}
	if requirements.FillModeNonSolid && !features.FillModeNonSolid.B() {
		core.LogInfo("Device does not support fillModeNonSolid, skipping.")
		return queueInfo, support, false
	}

	return queueInfo, support, true
}

// findQueueFamilies picks the graphics and present families. A family that can do both is
// preferred so that the swapchain images can stay exclusive.
func findQueueFamilies(families []vk.QueueFamilyProperties, supportsPresent func(uint32) bool) VulkanPhysicalDeviceQueueFamilyInfo {
	info := VulkanPhysicalDeviceQueueFamilyInfo{
		GraphicsFamilyIndex: -1,
		PresentFamilyIndex:  -1,
	}
	for i, family := range families {
		index := uint32(i)
		graphics := family.QueueCount > 0 && family.QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0
		present := supportsPresent(index)

		if graphics && present {
			info.GraphicsFamilyIndex = int32(index)
			info.PresentFamilyIndex = int32(index)
			return info
		}
		if graphics && info.GraphicsFamilyIndex < 0 {
			info.GraphicsFamilyIndex = int32(index)
		}
		if present && info.PresentFamilyIndex < 0 {
			info.PresentFamilyIndex = int32(index)
		}
	}
	return info
}

func deviceExtensionNames(device vk.PhysicalDevice) ([]string, error) {
	var count uint32
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &count, nil); res != vk.Success {
		return nil, vulkanError("enumerate device extensions", res)
	}
	extensions := make([]vk.ExtensionProperties, count)
	if count > 0 {
		if res := vk.EnumerateDeviceExtensionProperties(device, "", &count, extensions); res != vk.Success {
			return nil, vulkanError("enumerate device extensions", res)
		}
	}
	names := make([]string, 0, count)
	for i := range extensions {
		extensions[i].Deref()
		names = append(names, cString(extensions[i].ExtensionName[:]))
	}
	return names, nil
}

func DeviceQuerySwapchainSupport(physicalDevice vk.PhysicalDevice, surface vk.Surface) (VulkanSwapchainSupportInfo, error) {
	var support VulkanSwapchainSupportInfo

	if res := vk.GetPhysicalDeviceSurfaceCapabilities(physicalDevice, surface, &support.Capabilities); res != vk.Success {
		return support, vulkanError("get surface capabilities", res)
	}
	support.Capabilities.Deref()
	support.Capabilities.CurrentExtent.Deref()
	support.Capabilities.MinImageExtent.Deref()
	support.Capabilities.MaxImageExtent.Deref()

	var formatCount uint32
	if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, nil); res != vk.Success {
		return support, vulkanError("get surface formats", res)
	}
	if formatCount != 0 {
		support.Formats = make([]vk.SurfaceFormat, formatCount)
		if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, support.Formats); res != vk.Success {
			return support, vulkanError("get surface formats", res)
		}
		for i := range support.Formats {
			support.Formats[i].Deref()
		}
	}

	var presentModeCount uint32
	if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &presentModeCount, nil); res != vk.Success {
		return support, vulkanError("get surface present modes", res)
	}
	if presentModeCount != 0 {
		support.PresentModes = make([]vk.PresentMode, presentModeCount)
		if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &presentModeCount, support.PresentModes); res != vk.Success {
			return support, vulkanError("get surface present modes", res)
		}
	}
	return support, nil
}

// FindMemoryIndex returns the first memory type allowed by typeFilter that has all of flags.
func (d *VulkanDevice) FindMemoryIndex(typeFilter uint32, flags vk.MemoryPropertyFlags) (uint32, error) {
	return findMemoryType(d.Memory, typeFilter, flags)
}

func findMemoryType(memory vk.PhysicalDeviceMemoryProperties, typeFilter uint32, flags vk.MemoryPropertyFlags) (uint32, error) {
	for i := uint32(0); i < memory.MemoryTypeCount; i++ {
		if typeFilter&(1<<i) != 0 && memory.MemoryTypes[i].PropertyFlags&flags == flags {
			return i, nil
		}
	}
	err := core.NewEnvironmentError("find memory index", fmt.Errorf("no memory type for filter %#x and flags %#x", typeFilter, uint32(flags)))
	core.LogWarn(err.Error())
	return 0, err
}

// BeginSingleUse allocates a primary command buffer from the graphics pool and begins it
// for one submission.
func (d *VulkanDevice) BeginSingleUse() (*VulkanCommandBuffer, error) {
	cb, err := NewVulkanCommandBuffer(d, d.GraphicsCommandPool, true)
	if err != nil {
		return nil, err
	}
	if err := cb.Begin(true, false, false); err != nil {
		cb.Free(d, d.GraphicsCommandPool)
		return nil, err
	}
	return cb, nil
}

// EndSingleUse ends cb, submits it to the graphics queue, waits for the queue to go idle and
// frees the buffer.
func (d *VulkanDevice) EndSingleUse(cb *VulkanCommandBuffer) error {
	defer cb.Free(d, d.GraphicsCommandPool)

	if err := cb.End(); err != nil {
		return err
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cb.Handle},
	}
	return d.locks.SafeCall(QueueManagement, func() error {
		if res := vk.QueueSubmit(d.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, vk.NullFence); res != vk.Success {
			return vulkanError("submit single use command buffer", res)
		}
		cb.UpdateSubmitted()
		if res := vk.QueueWaitIdle(d.GraphicsQueue); res != vk.Success {
			return vulkanError("wait for graphics queue", res)
		}
		return nil
	})
}

// UpdateDescriptorSets writes descriptor bindings. Descriptor updates are serialized with
// descriptor pool allocation.
func (d *VulkanDevice) UpdateDescriptorSets(writes []vk.WriteDescriptorSet) {
	if len(writes) == 0 {
		return
	}
	d.locks.SafeCall(DescriptorManagement, func() error {
		vk.UpdateDescriptorSets(d.LogicalDevice, uint32(len(writes)), writes, 0, nil)
		return nil
	})
}

// WaitIdle blocks until every queue of the device has drained.
func (d *VulkanDevice) WaitIdle() error {
	return d.locks.SafeCall(QueueManagement, func() error {
		if res := vk.DeviceWaitIdle(d.LogicalDevice); res != vk.Success {
			return vulkanError("wait for device idle", res)
		}
		return nil
	})
}
