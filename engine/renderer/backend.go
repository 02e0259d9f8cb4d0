package renderer

// Backend is the GPU side of the frame cycle. Every method works on one frame slot,
// an index in [0, FramesInFlight()).
type Backend interface {
	FramesInFlight() uint32
	// WaitForFence blocks until the GPU work last submitted from slot has completed.
	WaitForFence(slot uint32) error
	ResetFence(slot uint32) error
	// AcquireNextImage returns the index of the next presentable image and signals the
	// slot's image-available semaphore when it is ready.
	AcquireNextImage(slot uint32) (uint32, error)
	BeginCommandBuffer(slot uint32) error
	BeginRenderPass(slot, image uint32) error
	EndRenderPass(slot uint32) error
	EndCommandBuffer(slot uint32) error
	// Submit sends the slot's command buffer to the graphics queue. It waits on the
	// image-available semaphore and signals render-finished and the slot's fence.
	Submit(slot uint32) error
	// Present queues image for presentation once the slot's render-finished semaphore is signaled.
	Present(slot, image uint32) error
}

// Overlay records a second pass (the debug GUI) into the same command buffer, after the
// main render pass has ended.
type Overlay interface {
	NewFrame() error
	RecordCommands(slot, image uint32) error
}
