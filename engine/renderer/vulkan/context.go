package vulkan

import (
	"errors"
	"fmt"
	"runtime"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/nya/engine/core"
)

// WindowSurface is what the renderer needs from the windowing layer.
type WindowSurface interface {
	GetInstanceProcAddress() unsafe.Pointer
	GetRequiredExtensionNames() []string
	CreateWindowSurface(instance vk.Instance) (vk.Surface, error)
	GetFramebufferSize() (uint32, uint32)
}

type ContextConfig struct {
	AppName    string
	Validation bool
}

// VulkanContext owns the instance, the surface, the device and the swapchain.
type VulkanContext struct {
	// The framebuffer's current width.
	FramebufferWidth uint32
	// The framebuffer's current height.
	FramebufferHeight uint32

	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks
	Surface   vk.Surface

	debugMessenger vk.DebugReportCallback
	validation     bool

	Device    *VulkanDevice
	Swapchain *VulkanSwapchain
}

func NewVulkanContext(window WindowSurface, cfg ContextConfig) (*VulkanContext, error) {
	const op = "create vulkan context"

	procAddr := window.GetInstanceProcAddress()
	if procAddr == nil {
		err := core.NewEnvironmentError(op, errors.New("GetInstanceProcAddress is nil"))
		core.LogError("%s", err)
		return nil, err
	}
	vk.SetGetInstanceProcAddr(procAddr)

	if err := vk.Init(); err != nil {
		err = core.NewEnvironmentError(op, fmt.Errorf("failed to initialize vk: %w", err))
		core.LogError("%s", err)
		return nil, err
	}

	context := &VulkanContext{
		Allocator:  nil,
		validation: cfg.Validation,
	}
	context.FramebufferWidth, context.FramebufferHeight = window.GetFramebufferSize()

	if err := context.createInstance(cfg.AppName, window.GetRequiredExtensionNames()); err != nil {
		return nil, err
	}

	if context.validation {
		if err := context.createDebugCallback(); err != nil {
			context.Destroy()
			return nil, err
		}
	}

	core.LogDebug("Creating Vulkan surface...")
	surface, err := window.CreateWindowSurface(context.Instance)
	if err != nil {
		err = core.NewEnvironmentError(op, fmt.Errorf("failed to create platform surface: %w", err))
		core.LogError("%s", err)
		context.Destroy()
		return nil, err
	}
	context.Surface = surface
	core.LogDebug("Vulkan surface created.")

	device, err := DeviceCreate(context)
	if err != nil {
		context.Destroy()
		return nil, err
	}
	context.Device = device

	sc, err := SwapchainCreate(context, context.FramebufferWidth, context.FramebufferHeight)
	if err != nil {
		context.Destroy()
		return nil, err
	}
	context.Swapchain = sc

	return context, nil
}

func (vc *VulkanContext) createInstance(appName string, windowExtensions []string) error {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 2, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("Nya"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	requiredExtensions := append([]string{}, windowExtensions...)
	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		createInfo.Flags |= 1
	}
	if vc.validation {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
	}
	core.LogDebug("Required extensions: %v", requiredExtensions)

	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)

	var layers []string
	if vc.validation {
		core.LogInfo("Validation layers enabled. Enumerating...")
		layers = []string{VULKAN_VALIDATION_LAYER}

		var count uint32
		if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success {
			return vulkanError("enumerate instance layers", res)
		}
		properties := make([]vk.LayerProperties, count)
		if res := vk.EnumerateInstanceLayerProperties(&count, properties); res != vk.Success {
			return vulkanError("enumerate instance layers", res)
		}
		available := make([]string, 0, count)
		for i := range properties {
			properties[i].Deref()
			available = append(available, cString(properties[i].LayerName[:]))
		}
		if missing := missingNames(layers, available); len(missing) > 0 {
			err := core.NewEnvironmentError("create instance", fmt.Errorf("required validation layers are missing: %v", missing))
			core.LogError("%s", err)
			return err
		}
		core.LogInfo("All required validation layers are present.")
	}
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)

	if res := vk.CreateInstance(&createInfo, vc.Allocator, &vc.Instance); res != vk.Success {
		return vulkanError("create instance", res)
	}
	if err := vk.InitInstance(vc.Instance); err != nil {
		err = core.NewEnvironmentError("create instance", err)
		core.LogError("%s", err)
		return err
	}
	core.LogInfo("Vulkan Instance created.")
	return nil
}

func (vc *VulkanContext) createDebugCallback() error {
	core.LogDebug("Creating Vulkan debugger...")
	debugCreateInfo := vk.DebugReportCallbackCreateInfo{
		SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
		PfnCallback: dbgCallbackFunc,
	}

	var dbg vk.DebugReportCallback
	if res := vk.CreateDebugReportCallback(vc.Instance, &debugCreateInfo, vc.Allocator, &dbg); res != vk.Success {
		return vulkanError("create debug report callback", res)
	}
	vc.debugMessenger = dbg
	core.LogDebug("Vulkan debugger created.")
	return nil
}

// Destroy releases everything in the opposite order of creation. It is safe on a
// partially created context.
func (vc *VulkanContext) Destroy() {
	if vc.Swapchain != nil {
		vc.Swapchain.Destroy(vc)
		vc.Swapchain = nil
	}
	if vc.Device != nil {
		core.LogDebug("Destroying Vulkan device...")
		vc.Device.Destroy(vc)
		vc.Device = nil
	}
	if vc.Surface != vk.NullSurface {
		core.LogDebug("Destroying Vulkan surface...")
		vk.DestroySurface(vc.Instance, vc.Surface, vc.Allocator)
		vc.Surface = vk.NullSurface
	}
	if vc.debugMessenger != vk.NullDebugReportCallback {
		core.LogDebug("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(vc.Instance, vc.debugMessenger, vc.Allocator)
		vc.debugMessenger = vk.NullDebugReportCallback
	}
	if vc.Instance != nil {
		core.LogDebug("Destroying Vulkan instance...")
		vk.DestroyInstance(vc.Instance, vc.Allocator)
		vc.Instance = nil
	}
}

// missingNames returns the entries of required absent from available.
func missingNames(required, available []string) []string {
	set := make(map[string]struct{}, len(available))
	for _, a := range available {
		set[a] = struct{}{}
	}
	var missing []string
	for _, r := range required {
		if _, ok := set[r]; !ok {
			missing = append(missing, r)
		}
	}
	return missing
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportDebugBit) != 0:
		core.LogDebug("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogTrace("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
