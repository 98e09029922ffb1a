package driver

import (
	"errors"
)

// Sentinel errors returned by GPU implementations, named after the
// failure taxonomy a rendering backend needs to distinguish: transient
// device loss is recoverable by rebuilding the device, the rest are not.
var (
	ErrNotInstalled   = errors.New("driver: backend not installed")
	ErrNoDevice       = errors.New("driver: no suitable device found")
	ErrDeviceLost     = errors.New("driver: device lost")
	ErrOutOfDate      = errors.New("driver: swapchain out of date")
	ErrFatal          = errors.New("driver: fatal error")
)

// ImageBarrier is the sole mechanism by which the render graph changes
// how a GPU is allowed to access an image. The graph computes these in
// dependency order during Build/Execute; a CmdBuffer implementation is
// only responsible for applying them, never for deciding when one is
// needed.
type ImageBarrier struct {
	Image    Image
	OldState ResourceState
	NewState ResourceState
}

// CmdBuffer records GPU commands for a single submission. Implementations
// are not expected to be safe for concurrent use; the render graph
// records and submits one CmdBuffer per frame slot from a single
// goroutine, matching spec.md's single-threaded cooperative contract.
type CmdBuffer interface {
	Begin() error

	// Barrier applies a batch of resource-state transitions before the
	// commands that follow depend on them.
	Barrier(barriers []ImageBarrier)

	BeginRenderPass(pass RenderPass, clear []ClearValue) error
	EndRenderPass()

	SetPipeline(p Pipeline)
	SetViewport(x, y, width, height float32)
	SetScissor(x, y, width, height uint32)
	BindDescriptorSet(group uint32, set DescriptorSetLayout, resources []any)
	BindVertexBuffer(slot uint32, buf Buffer, offset uint64)
	BindIndexBuffer(buf Buffer, offset uint64)

	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32)
	Dispatch(groupsX, groupsY, groupsZ uint32)

	CopyBufferToImage(src Buffer, dst Image, region Extent3D)

	End() error
}

// GPU is the single backend-abstraction surface the render graph
// compiles and executes against. A concrete implementation owns the
// native device/queue/swapchain and translates every call below into the
// corresponding native API calls for whichever BackendKind it was opened
// with.
type GPU interface {
	Kind() BackendKind

	CreateImage(desc ImageDesc) (Image, error)
	CreateBuffer(desc BufferDesc) (Buffer, error)
	CreateSampler() (Sampler, error)
	CreatePipeline(kind PipelineKind, shaders []ShaderCode, layouts []DescriptorSetLayout, pass RenderPass) (Pipeline, error)
	CreateRenderPass(desc RenderPassDesc) (RenderPass, error)

	CreateFence(signaled bool) (Fence, error)
	CreateSemaphore() (Semaphore, error)

	NewCmdBuffer() (CmdBuffer, error)
	Submit(cb CmdBuffer, wait, signal []Semaphore, fence Fence) error

	// AcquireNext returns the backbuffer Image for the next swapchain
	// slot, signaling ready on acquire completion. ErrOutOfDate is
	// returned when the surface must be resized before it can be used.
	AcquireNext(ready Semaphore) (Image, error)
	// Present submits the currently acquired backbuffer for display,
	// waiting on wait before the presentation engine may read it.
	Present(wait Semaphore) error
	Resize(width, height uint32) error

	WaitIdle() error
	Close() error
}
