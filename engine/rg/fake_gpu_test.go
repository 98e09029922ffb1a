package rg

import "github.com/corvid-gpu/framegraph/driver"

// fakeImage/fakeBuffer/fakeFence/fakeCmdBuffer/fakeGPU form a minimal
// software driver.GPU used only to exercise Graph/PassCache/FrameDriver
// logic without a real GPU, the same role gviegas-neo3's software test
// driver plays for its driver package tests.

type fakeImage struct {
	desc  driver.ImageDesc
	state driver.ResourceState
}

func (i *fakeImage) Desc() driver.ImageDesc          { return i.desc }
func (i *fakeImage) State() driver.ResourceState     { return i.state }
func (i *fakeImage) SetState(s driver.ResourceState) { i.state = s }

type fakeRenderPass struct{ desc driver.RenderPassDesc }

func (p *fakeRenderPass) Desc() driver.RenderPassDesc { return p.desc }

type fakeFence struct{ waits int }

func (f *fakeFence) Wait() error { f.waits++; return nil }
func (f *fakeFence) Reset()      {}

type fakeCmdBuffer struct {
	barriers    [][]driver.ImageBarrier
	passesBegun []driver.RenderPass
	ended       bool
}

func (c *fakeCmdBuffer) Begin() error { return nil }
func (c *fakeCmdBuffer) Barrier(b []driver.ImageBarrier) {
	c.barriers = append(c.barriers, b)
	for _, ib := range b {
		ib.Image.SetState(ib.NewState)
	}
}
func (c *fakeCmdBuffer) BeginRenderPass(p driver.RenderPass, clear []driver.ClearValue) error {
	c.passesBegun = append(c.passesBegun, p)
	return nil
}
func (c *fakeCmdBuffer) EndRenderPass()                    {}
func (c *fakeCmdBuffer) SetPipeline(driver.Pipeline)       {}
func (c *fakeCmdBuffer) SetViewport(x, y, w, h float32)    {}
func (c *fakeCmdBuffer) SetScissor(x, y, w, h uint32)      {}
func (c *fakeCmdBuffer) BindDescriptorSet(uint32, driver.DescriptorSetLayout, []any) {}
func (c *fakeCmdBuffer) BindVertexBuffer(uint32, driver.Buffer, uint64)              {}
func (c *fakeCmdBuffer) BindIndexBuffer(driver.Buffer, uint64)                       {}
func (c *fakeCmdBuffer) Draw(vc, ic, fv, fi uint32)                                  {}
func (c *fakeCmdBuffer) DrawIndexed(ic, inst, fi uint32, vo int32, firstInst uint32)  {}
func (c *fakeCmdBuffer) Dispatch(x, y, z uint32)                                     {}
func (c *fakeCmdBuffer) CopyBufferToImage(driver.Buffer, driver.Image, driver.Extent3D) {}
func (c *fakeCmdBuffer) End() error { c.ended = true; return nil }

type fakeGPU struct {
	created   []driver.ImageDesc
	passes    []driver.RenderPassDesc
	submitted []*fakeCmdBuffer
	acquireAt int
}

func newFakeGPU() *fakeGPU { return &fakeGPU{} }

func (g *fakeGPU) Kind() driver.BackendKind { return driver.KindVulkan }

func (g *fakeGPU) CreateImage(desc driver.ImageDesc) (driver.Image, error) {
	g.created = append(g.created, desc)
	return &fakeImage{desc: desc}, nil
}
func (g *fakeGPU) CreateBuffer(driver.BufferDesc) (driver.Buffer, error) { return nil, nil }
func (g *fakeGPU) CreateSampler() (driver.Sampler, error)                { return nil, nil }
func (g *fakeGPU) CreatePipeline(driver.PipelineKind, []driver.ShaderCode, []driver.DescriptorSetLayout, driver.RenderPass) (driver.Pipeline, error) {
	return nil, nil
}
func (g *fakeGPU) CreateRenderPass(desc driver.RenderPassDesc) (driver.RenderPass, error) {
	g.passes = append(g.passes, desc)
	return &fakeRenderPass{desc: desc}, nil
}
func (g *fakeGPU) CreateFence(signaled bool) (driver.Fence, error) { return &fakeFence{}, nil }
func (g *fakeGPU) CreateSemaphore() (driver.Semaphore, error)      { return struct{}{}, nil }
func (g *fakeGPU) NewCmdBuffer() (driver.CmdBuffer, error)         { return &fakeCmdBuffer{}, nil }
func (g *fakeGPU) Submit(cb driver.CmdBuffer, wait, signal []driver.Semaphore, f driver.Fence) error {
	g.submitted = append(g.submitted, cb.(*fakeCmdBuffer))
	return nil
}
func (g *fakeGPU) AcquireNext(ready driver.Semaphore) (driver.Image, error) {
	g.acquireAt++
	return &fakeImage{desc: driver.ImageDesc{Format: driver.FormatBGRA8UnormSRGB}}, nil
}
func (g *fakeGPU) Present(wait driver.Semaphore) error { return nil }
func (g *fakeGPU) Resize(w, h uint32) error             { return nil }
func (g *fakeGPU) WaitIdle() error                      { return nil }
func (g *fakeGPU) Close() error                         { return nil }
