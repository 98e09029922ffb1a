package rg

import (
	"testing"

	"github.com/corvid-gpu/framegraph/driver"
)

// TestFrameDriverStepsThroughNFrameRotation covers the fence/semaphore
// rotation contract: after NFrame+1 steps, the driver has
// waited on a previously-signaled fence at least once.
func TestFrameDriverStepsThroughNFrameRotation(t *testing.T) {
	gpu := newFakeGPU()
	g := NewGraph(gpu)
	g.AddPass("main", WithColorOutput("backbuffer", colorDesc()), WithExecuteFunc(func(driver.CmdBuffer) {}))
	g.SetBackbufferSource("backbuffer")
	g.SetSwapchainDimensions(1280, 720)

	fd, err := NewFrameDriver(gpu, g)
	if err != nil {
		t.Fatalf("NewFrameDriver: %v", err)
	}

	for i := 0; i < NFrame+1; i++ {
		if err := fd.Step(1280, 720); err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
	}

	waited := false
	for _, slot := range fd.slots {
		if f, ok := slot.renderFence.(*fakeFence); ok && f.waits > 0 {
			waited = true
		}
	}
	if !waited {
		t.Errorf("expected at least one fence to have been waited on by frame %d", NFrame+1)
	}

	if gpu.acquireAt != NFrame+1 {
		t.Errorf("expected %d AcquireNext calls, got %d", NFrame+1, gpu.acquireAt)
	}
	if len(gpu.submitted) != NFrame+1 {
		t.Errorf("expected %d submissions, got %d", NFrame+1, len(gpu.submitted))
	}
}

func TestFrameDriverBuildsGraphLazily(t *testing.T) {
	gpu := newFakeGPU()
	g := NewGraph(gpu)
	g.AddPass("main", WithColorOutput("backbuffer", colorDesc()))
	g.SetBackbufferSource("backbuffer")

	fd, err := NewFrameDriver(gpu, g)
	if err != nil {
		t.Fatalf("NewFrameDriver: %v", err)
	}

	if g.built {
		t.Fatalf("expected graph to be unbuilt before the first Step")
	}
	if err := fd.Step(640, 480); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if !g.built {
		t.Errorf("expected Step to build the graph lazily")
	}
}
