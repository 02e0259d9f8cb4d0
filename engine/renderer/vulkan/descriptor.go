package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/nya/engine/core"
)

// DescriptorSetLayoutConfig declares the resource bindings of a shader. Bindings are
// numbered in the order they are added, starting at 0.
type DescriptorSetLayoutConfig struct {
	latch    buildLatch
	bindings []vk.DescriptorSetLayoutBinding
}

func NewDescriptorSetLayoutConfig() *DescriptorSetLayoutConfig {
	return &DescriptorSetLayoutConfig{}
}

// AddBinding appends a binding and returns its number.
func (c *DescriptorSetLayoutConfig) AddBinding(descriptorType vk.DescriptorType, count uint32, stages vk.ShaderStageFlags) (uint32, error) {
	if err := c.latch.check("add descriptor binding"); err != nil {
		return 0, err
	}
	binding := uint32(len(c.bindings))
	c.bindings = append(c.bindings, vk.DescriptorSetLayoutBinding{
		Binding:         binding,
		DescriptorType:  descriptorType,
		DescriptorCount: count,
		StageFlags:      stages,
	})
	return binding, nil
}

// Build consumes the configuration and creates an update-after-bind layout.
func (c *DescriptorSetLayoutConfig) Build(device *VulkanDevice) (*DescriptorSetLayout, error) {
	const op = "build descriptor set layout"
	if err := c.latch.consume(op); err != nil {
		return nil, err
	}
	if device == nil {
		err := core.NewPreconditionError(op, core.ErrNilDevice)
		core.LogError("%s", err)
		return nil, err
	}

	bindingFlags := make([]vk.DescriptorBindingFlags, len(c.bindings))
	for i := range bindingFlags {
		bindingFlags[i] = vk.DescriptorBindingFlags(vk.DescriptorBindingUpdateAfterBindBit)
	}
	flagsInfo := vk.DescriptorSetLayoutBindingFlagsCreateInfo{
		SType:         vk.StructureTypeDescriptorSetLayoutBindingFlagsCreateInfo,
		BindingCount:  uint32(len(bindingFlags)),
		PBindingFlags: bindingFlags,
	}

	createInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		PNext:        unsafe.Pointer(&flagsInfo),
		Flags:        vk.DescriptorSetLayoutCreateFlags(vk.DescriptorSetLayoutCreateUpdateAfterBindPoolBit),
		BindingCount: uint32(len(c.bindings)),
		PBindings:    c.bindings,
	}

	var handle vk.DescriptorSetLayout
	if res := vk.CreateDescriptorSetLayout(device.LogicalDevice, &createInfo, device.Allocator, &handle); res != vk.Success {
		return nil, vulkanError(op, res)
	}
	return newDescriptorSetLayout(handle, c.bindings), nil
}

// DescriptorSetLayout is a built layout. It also knows how large a pool must be to hold
// sets of it.
type DescriptorSetLayout struct {
	handle   vk.DescriptorSetLayout
	bindings []vk.DescriptorSetLayoutBinding
}

func newDescriptorSetLayout(handle vk.DescriptorSetLayout, bindings []vk.DescriptorSetLayoutBinding) *DescriptorSetLayout {
	return &DescriptorSetLayout{
		handle:   handle,
		bindings: append([]vk.DescriptorSetLayoutBinding(nil), bindings...),
	}
}

func (l *DescriptorSetLayout) Handle() vk.DescriptorSetLayout {
	return l.handle
}

func (l *DescriptorSetLayout) BindingCount() uint32 {
	return uint32(len(l.bindings))
}

// Type returns the descriptor type of binding.
func (l *DescriptorSetLayout) Type(binding uint32) (vk.DescriptorType, error) {
	if err := core.Check(binding < uint32(len(l.bindings)), "descriptor binding type", "binding %d out of range, layout has %d", binding, len(l.bindings)); err != nil {
		return 0, err
	}
	return l.bindings[binding].DescriptorType, nil
}

// PoolSizes returns one pool size per binding, large enough for numSets sets.
func (l *DescriptorSetLayout) PoolSizes(numSets uint32) []vk.DescriptorPoolSize {
	sizes := make([]vk.DescriptorPoolSize, len(l.bindings))
	for i, b := range l.bindings {
		sizes[i] = vk.DescriptorPoolSize{
			Type:            b.DescriptorType,
			DescriptorCount: b.DescriptorCount * numSets,
		}
	}
	return sizes
}

func (l *DescriptorSetLayout) Destroy(device *VulkanDevice) {
	if l.handle != nil {
		vk.DestroyDescriptorSetLayout(device.LogicalDevice, l.handle, device.Allocator)
		l.handle = nil
	}
}

// NewDescriptorPool creates a pool. Allocation from a pool is serialized with descriptor
// updates.
func NewDescriptorPool(device *VulkanDevice, sizes []vk.DescriptorPoolSize, maxSets uint32, flags vk.DescriptorPoolCreateFlags) (vk.DescriptorPool, error) {
	createInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		Flags:         flags,
		MaxSets:       maxSets,
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
	}
	var pool vk.DescriptorPool
	err := device.locks.SafeCall(DescriptorManagement, func() error {
		if res := vk.CreateDescriptorPool(device.LogicalDevice, &createInfo, device.Allocator, &pool); res != vk.Success {
			return vulkanError("create descriptor pool", res)
		}
		return nil
	})
	return pool, err
}

// AllocateDescriptorSets allocates count sets of layout from pool.
func AllocateDescriptorSets(device *VulkanDevice, pool vk.DescriptorPool, layout *DescriptorSetLayout, count uint32) ([]vk.DescriptorSet, error) {
	sets := make([]vk.DescriptorSet, count)
	err := device.locks.SafeCall(DescriptorManagement, func() error {
		for i := range sets {
			allocateInfo := vk.DescriptorSetAllocateInfo{
				SType:              vk.StructureTypeDescriptorSetAllocateInfo,
				DescriptorPool:     pool,
				DescriptorSetCount: 1,
				PSetLayouts:        []vk.DescriptorSetLayout{layout.Handle()},
			}
			if res := vk.AllocateDescriptorSets(device.LogicalDevice, &allocateInfo, &sets[i]); res != vk.Success {
				return vulkanError("allocate descriptor set", res)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sets, nil
}

func DestroyDescriptorPool(device *VulkanDevice, pool vk.DescriptorPool) {
	if pool == nil {
		return
	}
	device.locks.SafeCall(DescriptorManagement, func() error {
		vk.DestroyDescriptorPool(device.LogicalDevice, pool, device.Allocator)
		return nil
	})
}
