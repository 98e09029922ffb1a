package rg

import (
	"fmt"

	"github.com/corvid-gpu/framegraph/driver"
)

// NFrame is the depth of the per-frame resource rotation, matching
// original_source's `#define FRAME_COUNT 2`.
const NFrame = 2

// frameSlot holds the synchronization primitives and command buffer for
// one rotating frame-in-flight slot, the Go equivalent of
// original_source's FrameData (present_semaphore/render_semaphore/
// render_fence/cmd_pool/cmd/cmd_recorded).
type frameSlot struct {
	presentSemaphore driver.Semaphore
	renderSemaphore  driver.Semaphore
	renderFence      driver.Fence
	cmdRecorded      bool
}

// FrameDriver owns the NFrame-deep rotation of fences/semaphores and
// drives one Graph through its per-frame begin/execute/end/present
// lifecycle. Grounded on
// _examples/original_source/examples/render_graph/main.c's
// begin_frame()/end_frame(), and on the teacher's engine/engine.go
// handleRender goroutine for the Begin->draws->End->Present shape at the
// application level.
type FrameDriver struct {
	gpu   driver.GPU
	graph *Graph

	slots      [NFrame]frameSlot
	frameIndex int
}

// NewFrameDriver creates the fence/semaphore rotation for graph, which
// must already have had SetBackbufferSource and SetSwapchainDimensions
// called (Build is called lazily by Step if needed).
func NewFrameDriver(gpu driver.GPU, graph *Graph) (*FrameDriver, error) {
	fd := &FrameDriver{gpu: gpu, graph: graph}
	for i := range fd.slots {
		fence, err := gpu.CreateFence(true)
		if err != nil {
			return nil, newErr(ErrKindFatal, fmt.Errorf("create frame fence %d: %w", i, err))
		}
		present, err := gpu.CreateSemaphore()
		if err != nil {
			return nil, newErr(ErrKindFatal, fmt.Errorf("create present semaphore %d: %w", i, err))
		}
		render, err := gpu.CreateSemaphore()
		if err != nil {
			return nil, newErr(ErrKindFatal, fmt.Errorf("create render semaphore %d: %w", i, err))
		}
		fd.slots[i] = frameSlot{presentSemaphore: present, renderSemaphore: render, renderFence: fence}
	}
	return fd, nil
}

// Step runs exactly one frame: waits for the current slot's previous
// submission to retire, acquires the next backbuffer, rebuilds the
// graph's attachments around it, records and submits the compiled
// schedule, and presents. On ErrKindSwapchainOutOfDate the caller is
// expected to call Resize on the GPU and pass the new size to the next
// Step (or call SetSwapchainDimensions on the Graph), then retry Step.
func (fd *FrameDriver) Step(width, height uint32) error {
	slot := &fd.slots[fd.frameIndex]

	if slot.cmdRecorded {
		if err := slot.renderFence.Wait(); err != nil {
			return newErr(ErrKindFence, err)
		}
		slot.renderFence.Reset()
		slot.cmdRecorded = false
	}

	backbuffer, err := fd.gpu.AcquireNext(slot.presentSemaphore)
	if err != nil {
		return newErr(ErrKindSwapchainOutOfDate, err)
	}

	if width != 0 && height != 0 {
		fd.graph.SetSwapchainDimensions(width, height)
	}
	if !fd.graph.built {
		if err := fd.graph.Build(); err != nil {
			return err
		}
	}
	if err := fd.graph.SetupAttachments(backbuffer); err != nil {
		return err
	}

	cb, err := fd.gpu.NewCmdBuffer()
	if err != nil {
		return newErr(ErrKindFatal, err)
	}
	if err := cb.Begin(); err != nil {
		return newErr(ErrKindFatal, err)
	}
	if err := fd.graph.Execute(cb); err != nil {
		return err
	}
	if err := cb.End(); err != nil {
		return newErr(ErrKindFatal, err)
	}

	if err := fd.gpu.Submit(cb, []driver.Semaphore{slot.presentSemaphore}, []driver.Semaphore{slot.renderSemaphore}, slot.renderFence); err != nil {
		return newErr(ErrKindFatal, err)
	}
	slot.cmdRecorded = true

	if err := fd.gpu.Present(slot.renderSemaphore); err != nil {
		return newErr(ErrKindSwapchainOutOfDate, err)
	}

	fd.frameIndex = (fd.frameIndex + 1) % NFrame
	return nil
}
