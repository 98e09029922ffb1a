package rg

import "errors"

// ErrorKind classifies a render-graph failure, grounded on the sentinel-
// error style of _examples/gviegas-neo3/driver/driver.go (ErrNotInstalled,
// ErrFatal, ...), which maps more directly onto a small closed taxonomy
// than the teacher's ad hoc fmt.Errorf usage.
type ErrorKind int

const (
	// ErrKindGraphNotBuilt indicates Execute/SetupAttachments was called
	// before Build.
	ErrKindGraphNotBuilt ErrorKind = iota
	// ErrKindUnknownBackbufferSource indicates SetBackbufferSource named
	// an image no pass ever declared as a color output.
	ErrKindUnknownBackbufferSource
	// ErrKindUnknownPass indicates PassNamed was called with a name no
	// pass was registered under.
	ErrKindUnknownPass
	// ErrKindSwapchainOutOfDate indicates AcquireNext reported the
	// surface needs to be resized before it can be used again.
	ErrKindSwapchainOutOfDate
	// ErrKindDeviceLost indicates the GPU reported ErrDeviceLost during
	// submission or presentation.
	ErrKindDeviceLost
	// ErrKindFence indicates a fence wait failed.
	ErrKindFence
	// ErrKindCompile indicates pass-cache render pass creation failed.
	ErrKindCompile
	// ErrKindCyclicGraph indicates Build's topological sort could not
	// order the passes because their texture-input producer/consumer
	// edges form a cycle.
	ErrKindCyclicGraph
	// ErrKindInvalidArgument indicates a create/update call was given
	// ill-formed input, such as a descriptor name unknown to the bind
	// group layout.
	ErrKindInvalidArgument
	// ErrKindOutOfDeviceMemory indicates a resource-creation call failed
	// because the device is out of memory.
	ErrKindOutOfDeviceMemory
	// ErrKindInvalidState indicates a command-recording contract
	// violation, such as beginning a render pass with a RenderPass
	// object the active CmdBuffer's backend did not create.
	ErrKindInvalidState
	// ErrKindFatal indicates an unrecoverable backend error.
	ErrKindFatal
)

func (k ErrorKind) String() string {
	switch k {
	case ErrKindGraphNotBuilt:
		return "graph not built"
	case ErrKindUnknownBackbufferSource:
		return "unknown backbuffer source"
	case ErrKindUnknownPass:
		return "unknown pass"
	case ErrKindSwapchainOutOfDate:
		return "swapchain out of date"
	case ErrKindDeviceLost:
		return "device lost"
	case ErrKindFence:
		return "fence wait failed"
	case ErrKindCompile:
		return "pass compile failed"
	case ErrKindCyclicGraph:
		return "cyclic graph"
	case ErrKindInvalidArgument:
		return "invalid argument"
	case ErrKindOutOfDeviceMemory:
		return "out of device memory"
	case ErrKindInvalidState:
		return "invalid state"
	default:
		return "fatal"
	}
}

// Error wraps an underlying cause with the ErrorKind a caller needs to
// decide how to recover (e.g. resize-and-retry for
// ErrKindSwapchainOutOfDate vs. propagate for ErrKindFatal).
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(kind ErrorKind, err error) *Error { return &Error{Kind: kind, Err: err} }

// ErrGraphNotBuilt is returned by SetupAttachments/Execute when Build has
// not been called yet.
var ErrGraphNotBuilt = errors.New("render graph: Build has not been called")
