package core

import (
	"errors"
	"fmt"
)

// ErrorKind separates contract violations from failures of the world around the engine.
type ErrorKind uint8

const (
	// KindPrecondition means the caller broke a contract (wrong state, bad index, reused builder).
	KindPrecondition ErrorKind = iota + 1
	// KindEnvironment means a driver, OS or file system call failed.
	KindEnvironment
)

func (k ErrorKind) String() string {
	switch k {
	case KindPrecondition:
		return "precondition"
	case KindEnvironment:
		return "environment"
	default:
		return "unknown"
	}
}

var (
	ErrBuilderConsumed  = errors.New("builder already built")
	ErrWrongFrameState  = errors.New("operation not allowed in the current frame state")
	ErrSlotOutOfRange   = errors.New("frame slot out of range")
	ErrNilDevice        = errors.New("device is nil")
	ErrAcquireFailed    = errors.New("failed to acquire swapchain image")
	ErrFrameCycleFailed = errors.New("frame cycle failed after acquiring an image")
	ErrShaderCompile    = errors.New("shader compilation failed")
	ErrUnsupportedImage = errors.New("unsupported image")
	ErrVulkan           = errors.New("vulkan call failed")
	ErrUnknown          = errors.New("unknown")
)

// Error is the typed error returned by every fallible engine operation.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewPreconditionError builds a precondition error for op.
func NewPreconditionError(op string, err error) error {
	return &Error{Kind: KindPrecondition, Op: op, Err: err}
}

// NewEnvironmentError builds an environment error for op.
func NewEnvironmentError(op string, err error) error {
	return &Error{Kind: KindEnvironment, Op: op, Err: err}
}

func kindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func IsPrecondition(err error) bool {
	return kindOf(err) == KindPrecondition
}

func IsEnvironment(err error) bool {
	return kindOf(err) == KindEnvironment
}

// Check is the single assertion primitive of the engine. A false condition is logged and
// returned as a precondition error; it never terminates the process.
func Check(cond bool, op string, format string, args ...interface{}) error {
	if cond {
		return nil
	}
	err := NewPreconditionError(op, fmt.Errorf(format, args...))
	LogError("%s", err)
	return err
}
