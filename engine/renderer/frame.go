package renderer

import (
	"fmt"

	"github.com/spaghettifunk/nya/engine/core"
)

// FrameState is the position of the frame cycle within one frame.
type FrameState uint8

const (
	FRAME_STATE_IDLE FrameState = iota
	FRAME_STATE_ACQUIRED
	FRAME_STATE_RECORDING
	FRAME_STATE_SUBMITTED
	// FRAME_STATE_FAILED is terminal: an image was acquired and never presented.
	FRAME_STATE_FAILED
)

func (s FrameState) String() string {
	switch s {
	case FRAME_STATE_IDLE:
		return "idle"
	case FRAME_STATE_ACQUIRED:
		return "acquired"
	case FRAME_STATE_RECORDING:
		return "recording"
	case FRAME_STATE_SUBMITTED:
		return "submitted"
	case FRAME_STATE_FAILED:
		return "failed"
	}
	return fmt.Sprintf("FrameState(%d)", uint8(s))
}

// FrameCycle drives acquire, record, submit and present over a Backend. It owns the
// current frame slot index and the image index of the frame being recorded.
//
// A slot's per-frame resources (command buffer, uniform buffers) may only be written
// once that slot's fence has been waited on in the current cycle; WritableSlot enforces it.
type FrameCycle struct {
	backend Backend
	overlay Overlay

	state        FrameState
	currentFrame uint32
	imageIndex   uint32
	frameCount   uint64

	// pending is true for a slot whose last submit may still be executing on the GPU.
	pending []bool
}

// NewFrameCycle creates a cycle in the idle state at slot 0. overlay may be nil.
func NewFrameCycle(backend Backend, overlay Overlay) (*FrameCycle, error) {
	if backend == nil {
		return nil, core.NewPreconditionError("new frame cycle", core.ErrNilDevice)
	}
	n := backend.FramesInFlight()
	if err := core.Check(n > 0 && n <= core.MaxFramesInFlight, "new frame cycle", "frames in flight must be in 1..%d, got %d", core.MaxFramesInFlight, n); err != nil {
		return nil, err
	}
	pending := make([]bool, n)
	for i := range pending {
		// fences start signaled, waiting on them is free
		pending[i] = true
	}
	return &FrameCycle{
		backend: backend,
		overlay: overlay,
		pending: pending,
	}, nil
}

// SetOverlay installs the overlay recorded after the main pass. Only allowed between frames.
func (f *FrameCycle) SetOverlay(overlay Overlay) error {
	if f.state != FRAME_STATE_IDLE {
		return f.wrongState("set overlay")
	}
	f.overlay = overlay
	return nil
}

func (f *FrameCycle) State() FrameState {
	return f.state
}

// CurrentFrame is the frame slot used by the frame being recorded (or the next one when idle).
func (f *FrameCycle) CurrentFrame() uint32 {
	return f.currentFrame
}

// ImageIndex is the swapchain image acquired for the current frame.
func (f *FrameCycle) ImageIndex() uint32 {
	return f.imageIndex
}

// FrameCount is the number of frames presented so far.
func (f *FrameCycle) FrameCount() uint64 {
	return f.frameCount
}

func (f *FrameCycle) FramesInFlight() uint32 {
	return uint32(len(f.pending))
}

// WritableSlot returns the current slot if its fence has been waited on in this cycle.
func (f *FrameCycle) WritableSlot() (uint32, error) {
	if f.state != FRAME_STATE_ACQUIRED && f.state != FRAME_STATE_RECORDING {
		return 0, f.wrongState("writable slot")
	}
	return f.currentFrame, nil
}

// RecordingSlot returns the current slot if its command buffer is open for recording.
func (f *FrameCycle) RecordingSlot() (uint32, error) {
	if f.state != FRAME_STATE_RECORDING {
		return 0, f.wrongState("recording slot")
	}
	return f.currentFrame, nil
}

// AcquireImageIndex waits for the current slot's fence, resets it and acquires the next
// swapchain image. Idle -> Acquired.
func (f *FrameCycle) AcquireImageIndex() error {
	const op = "acquire image index"
	if f.state != FRAME_STATE_IDLE {
		return f.wrongState(op)
	}
	slot := f.currentFrame

	if f.pending[slot] {
		if err := f.backend.WaitForFence(slot); err != nil {
			return f.fail(op, err)
		}
	}
	if err := f.backend.ResetFence(slot); err != nil {
		return f.fail(op, err)
	}
	f.pending[slot] = false

	image, err := f.backend.AcquireNextImage(slot)
	if err != nil {
		return f.fail(op, fmt.Errorf("%w: %w", core.ErrAcquireFailed, err))
	}
	f.imageIndex = image
	f.state = FRAME_STATE_ACQUIRED
	return nil
}

// BeginRenderPass acquires the next image when needed, starts a new overlay frame, begins
// the slot's command buffer and the main render pass on the acquired image.
// Idle|Acquired -> Recording.
func (f *FrameCycle) BeginRenderPass() error {
	const op = "begin render pass"
	if f.state == FRAME_STATE_IDLE {
		if err := f.AcquireImageIndex(); err != nil {
			return err
		}
	}
	if f.state != FRAME_STATE_ACQUIRED {
		return f.wrongState(op)
	}
	slot := f.currentFrame

	if f.overlay != nil {
		if err := f.overlay.NewFrame(); err != nil {
			return f.abandon(op, err)
		}
	}
	if err := f.backend.BeginCommandBuffer(slot); err != nil {
		return f.abandon(op, err)
	}
	if err := f.backend.BeginRenderPass(slot, f.imageIndex); err != nil {
		return f.abandon(op, err)
	}
	f.state = FRAME_STATE_RECORDING
	return nil
}

// EndRenderPass ends the main pass, lets the overlay record its own pass, then submits
// and presents the frame before moving to the next slot. Recording -> Submitted -> Idle.
func (f *FrameCycle) EndRenderPass() error {
	const op = "end render pass"
	if f.state != FRAME_STATE_RECORDING {
		return f.wrongState(op)
	}
	slot, image := f.currentFrame, f.imageIndex

	if err := f.backend.EndRenderPass(slot); err != nil {
		return f.abandon(op, err)
	}
	if f.overlay != nil {
		if err := f.overlay.RecordCommands(slot, image); err != nil {
			return f.abandon(op, err)
		}
	}
	if err := f.backend.EndCommandBuffer(slot); err != nil {
		return f.abandon(op, err)
	}
	if err := f.backend.Submit(slot); err != nil {
		return f.abandon(op, err)
	}
	f.pending[slot] = true
	f.state = FRAME_STATE_SUBMITTED

	// A rejected present still consumes render-finished and hands the image back.
	if err := f.backend.Present(slot, image); err != nil {
		f.advance()
		return f.fail(op, err)
	}
	f.advance()
	return nil
}

func (f *FrameCycle) advance() {
	f.currentFrame = (f.currentFrame + 1) % f.FramesInFlight()
	f.frameCount++
	f.state = FRAME_STATE_IDLE
}

func (f *FrameCycle) wrongState(op string) error {
	cause := core.ErrWrongFrameState
	if f.state == FRAME_STATE_FAILED {
		cause = core.ErrFrameCycleFailed
	}
	err := core.NewPreconditionError(op, fmt.Errorf("%w: state is %s", cause, f.state))
	core.LogError("%s", err)
	return err
}

// fail reports a backend failure that left no image acquired. The cycle is idle again
// on the same slot.
func (f *FrameCycle) fail(op string, err error) error {
	f.state = FRAME_STATE_IDLE
	e := core.NewEnvironmentError(op, err)
	core.LogError("%s", e)
	return e
}

// abandon reports a failure after an image was acquired. The slot's image-available
// semaphore stays signaled and the image is never presented, so no later frame can run.
func (f *FrameCycle) abandon(op string, err error) error {
	f.state = FRAME_STATE_FAILED
	e := core.NewEnvironmentError(op, fmt.Errorf("%w: %w", core.ErrFrameCycleFailed, err))
	core.LogError("%s", e)
	return e
}
