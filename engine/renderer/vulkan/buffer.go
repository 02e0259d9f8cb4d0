package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/nya/engine/core"
	"github.com/spaghettifunk/nya/engine/renderer"
)

// Buffer is a buffer bound to its own allocation. Host visible buffers stay mapped for their
// whole life.
type Buffer struct {
	Handle vk.Buffer
	Memory vk.DeviceMemory
	Size   uint64
	Usage  vk.BufferUsageFlags

	mapped []byte
}

func NewBuffer(device *VulkanDevice, size uint64, usage vk.BufferUsageFlags, properties vk.MemoryPropertyFlags) (*Buffer, error) {
	const op = "create buffer"
	if device == nil {
		err := core.NewPreconditionError(op, core.ErrNilDevice)
		core.LogError("%s", err)
		return nil, err
	}
	if err := core.Check(size > 0, op, "buffer size must be non zero"); err != nil {
		return nil, err
	}

	buffer := &Buffer{Size: size, Usage: usage}

	createInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}
	if res := vk.CreateBuffer(device.LogicalDevice, &createInfo, device.Allocator, &buffer.Handle); res != vk.Success {
		return nil, vulkanError(op, res)
	}

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(device.LogicalDevice, buffer.Handle, &requirements)
	requirements.Deref()

	memoryIndex, err := device.FindMemoryIndex(requirements.MemoryTypeBits, properties)
	if err != nil {
		buffer.Destroy(device)
		return nil, err
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: memoryIndex,
	}
	if res := vk.AllocateMemory(device.LogicalDevice, &allocateInfo, device.Allocator, &buffer.Memory); res != vk.Success {
		buffer.Destroy(device)
		return nil, vulkanError("allocate buffer memory", res)
	}
	if res := vk.BindBufferMemory(device.LogicalDevice, buffer.Handle, buffer.Memory, 0); res != vk.Success {
		buffer.Destroy(device)
		return nil, vulkanError("bind buffer memory", res)
	}

	if properties&vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) != 0 {
		var data unsafe.Pointer
		if res := vk.MapMemory(device.LogicalDevice, buffer.Memory, 0, vk.DeviceSize(size), 0, &data); res != vk.Success {
			buffer.Destroy(device)
			return nil, vulkanError("map buffer memory", res)
		}
		buffer.mapped = unsafe.Slice((*byte)(data), size)
	}
	return buffer, nil
}

// NewMappedBuffer wraps a handle whose contents live in mapped. It lets code that only
// writes through the mapping run against host memory.
func NewMappedBuffer(handle vk.Buffer, mapped []byte) *Buffer {
	return &Buffer{
		Handle: handle,
		Size:   uint64(len(mapped)),
		mapped: mapped,
	}
}

// Write copies data at the start of the mapped range.
func (b *Buffer) Write(data []byte) error {
	const op = "write buffer"
	if err := core.Check(b.mapped != nil, op, "buffer is not host visible"); err != nil {
		return err
	}
	if err := core.Check(uint64(len(data)) <= b.Size, op, "%d bytes do not fit in a %d byte buffer", len(data), b.Size); err != nil {
		return err
	}
	copy(b.mapped, data)
	return nil
}

// Mapped exposes the persistent mapping, nil for device local buffers.
func (b *Buffer) Mapped() []byte {
	return b.mapped
}

func (b *Buffer) Destroy(device *VulkanDevice) {
	if b.mapped != nil && b.Memory != vk.NullDeviceMemory {
		vk.UnmapMemory(device.LogicalDevice, b.Memory)
	}
	b.mapped = nil
	if b.Handle != vk.NullBuffer {
		vk.DestroyBuffer(device.LogicalDevice, b.Handle, device.Allocator)
		b.Handle = vk.NullBuffer
	}
	if b.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(device.LogicalDevice, b.Memory, device.Allocator)
		b.Memory = vk.NullDeviceMemory
	}
}

// UploadBuffer creates a device local buffer holding data, copied through a staging buffer.
func UploadBuffer(device *VulkanDevice, data []byte, usage vk.BufferUsageFlags) (*Buffer, error) {
	size := uint64(len(data))
	staging, err := NewBuffer(device, size,
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, err
	}
	defer staging.Destroy(device)

	if err := staging.Write(data); err != nil {
		return nil, err
	}

	buffer, err := NewBuffer(device, size,
		usage|vk.BufferUsageFlags(vk.BufferUsageTransferDstBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		return nil, err
	}

	cb, err := device.BeginSingleUse()
	if err != nil {
		buffer.Destroy(device)
		return nil, err
	}
	vk.CmdCopyBuffer(cb.Handle, staging.Handle, buffer.Handle, 1, []vk.BufferCopy{{Size: vk.DeviceSize(size)}})
	if err := device.EndSingleUse(cb); err != nil {
		buffer.Destroy(device)
		return nil, err
	}
	return buffer, nil
}

// Geometry is the immutable vertex and index data of one renderable.
type Geometry struct {
	ID         core.ID
	Vertex     *Buffer
	Index      *Buffer
	IndexCount uint32
}

// NewGeometry uploads vertex bytes and 32-bit indices into device local buffers.
func NewGeometry(device *VulkanDevice, vertices []byte, indices []uint32) (*Geometry, error) {
	const op = "create geometry"
	if err := core.Check(len(vertices) > 0 && len(indices) > 0, op, "geometry needs vertices and indices"); err != nil {
		return nil, err
	}
	vertex, err := UploadBuffer(device, vertices, vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit))
	if err != nil {
		return nil, err
	}
	index, err := UploadBuffer(device, renderer.IndexBytes(indices), vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit))
	if err != nil {
		vertex.Destroy(device)
		return nil, err
	}
	geometry := &Geometry{
		ID:         core.NewID("geometry"),
		Vertex:     vertex,
		Index:      index,
		IndexCount: uint32(len(indices)),
	}
	core.LogDebug("uploaded %s: %d vertex bytes, %d indices", geometry.ID.Short(), len(vertices), len(indices))
	return geometry, nil
}

func (g *Geometry) Destroy(device *VulkanDevice) {
	if g.Vertex != nil {
		g.Vertex.Destroy(device)
	}
	if g.Index != nil {
		g.Index.Destroy(device)
	}
}
