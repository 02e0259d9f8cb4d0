package vulkan

import "sync"

type LockGroup string

const (
	// QueueManagement guards vkQueueSubmit, vkQueuePresent and vkQueueWaitIdle, which
	// need external synchronization on the queue.
	QueueManagement LockGroup = "queue_management"
	// DescriptorManagement guards descriptor pool allocation and descriptor set updates.
	DescriptorManagement LockGroup = "descriptor_management"
	// CommandPoolManagement guards allocation and free of command buffers.
	CommandPoolManagement LockGroup = "command_pool_management"
)

// VulkanLockPool hands out one mutex per group of Vulkan objects that require host
// synchronization.
type VulkanLockPool struct {
	locks map[LockGroup]*sync.Mutex
	mu    sync.Mutex // protects locks
}

func NewVulkanLockPool() *VulkanLockPool {
	return &VulkanLockPool{
		locks: make(map[LockGroup]*sync.Mutex),
	}
}

func (vs *VulkanLockPool) lock(group LockGroup) *sync.Mutex {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	l, exists := vs.locks[group]
	if !exists {
		l = &sync.Mutex{}
		vs.locks[group] = l
	}
	return l
}

// SafeCall runs fn while holding the lock of group.
func (vs *VulkanLockPool) SafeCall(group LockGroup, fn func() error) error {
	l := vs.lock(group)
	l.Lock()
	defer l.Unlock()

	return fn()
}
