package wgpubackend

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/corvid-gpu/framegraph/driver"
)

// cmdBuffer records commands through a single wgpu.CommandEncoder,
// exactly as the teacher's frameEncoder/framePass pair does in
// wgpu_renderer_backend.go, generalized to an arbitrary sequence of
// render passes instead of one hard-coded main pass.
type cmdBuffer struct {
	g       *GPU
	encoder *wgpu.CommandEncoder
	pass    *wgpu.RenderPassEncoder
	built   *wgpu.CommandBuffer
}

func (g *GPU) NewCmdBuffer() (driver.CmdBuffer, error) {
	return &cmdBuffer{g: g}, nil
}

func (c *cmdBuffer) Begin() error {
	enc, err := c.g.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	c.encoder = enc
	return nil
}

// Barrier is intentionally a bookkeeping no-op on the wgpu path: wgpu has
// no manual image-layout transition API, so the graph's computed barrier
// list is not replayed as GPU commands; it only updates each Image's
// tracked ResourceState.
func (c *cmdBuffer) Barrier(barriers []driver.ImageBarrier) {
	for _, b := range barriers {
		b.Image.SetState(b.NewState)
	}
}

func (c *cmdBuffer) BeginRenderPass(pass driver.RenderPass, clear []driver.ClearValue) error {
	rp, ok := pass.(*renderPass)
	if !ok {
		return fmt.Errorf("wgpubackend: BeginRenderPass requires a RenderPass created via this GPU")
	}

	colorAttachments := make([]wgpu.RenderPassColorAttachment, len(rp.desc.Color))
	for i, att := range rp.desc.Color {
		cv := wgpu.Color{}
		if i < len(clear) {
			cv = wgpu.Color{R: clear[i].Color[0], G: clear[i].Color[1], B: clear[i].Color[2], A: clear[i].Color[3]}
		}
		colorAttachments[i] = wgpu.RenderPassColorAttachment{
			LoadOp:     toWGPULoadOp(att.Load),
			StoreOp:    toWGPUStoreOp(att.Store),
			ClearValue: cv,
		}
	}

	desc := &wgpu.RenderPassDescriptor{ColorAttachments: colorAttachments}
	if rp.desc.HasDepth {
		depthClear := float32(1.0)
		if len(clear) > len(rp.desc.Color) {
			depthClear = clear[len(rp.desc.Color)].Depth
		}
		desc.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			DepthLoadOp:     toWGPULoadOp(rp.desc.Depth.Load),
			DepthStoreOp:    toWGPUStoreOp(rp.desc.Depth.Store),
			DepthClearValue: depthClear,
		}
	}

	c.pass = c.encoder.BeginRenderPass(desc)
	return nil
}

func (c *cmdBuffer) EndRenderPass() {
	if c.pass != nil {
		c.pass.End()
		c.pass = nil
	}
}

func (c *cmdBuffer) SetPipeline(p driver.Pipeline) {
	pp, ok := p.(*pipeline)
	if !ok || c.pass == nil {
		return
	}
	if pp.kind == driver.PipelineGraphics && pp.rp != nil {
		c.pass.SetPipeline(pp.rp)
	}
}

func (c *cmdBuffer) SetViewport(x, y, width, height float32) {
	if c.pass != nil {
		c.pass.SetViewport(x, y, width, height, 0, 1)
	}
}

func (c *cmdBuffer) SetScissor(x, y, width, height uint32) {
	if c.pass != nil {
		c.pass.SetScissorRect(x, y, width, height)
	}
}

// BindDescriptorSet is a no-op placeholder at the driver layer: bind
// group creation and binding is owned by engine/renderer/bind_group_provider,
// which already knows how to translate a DescriptorSetLayout's resources
// into a wgpu.BindGroup. Passes that need it call through that package
// directly inside their execute callback.
func (c *cmdBuffer) BindDescriptorSet(group uint32, set driver.DescriptorSetLayout, resources []any) {}

func (c *cmdBuffer) BindVertexBuffer(slot uint32, buf driver.Buffer, offset uint64) {
	b, ok := buf.(*buffer)
	if !ok || c.pass == nil {
		return
	}
	c.pass.SetVertexBuffer(slot, b.buf, offset, wgpu.WholeSize)
}

func (c *cmdBuffer) BindIndexBuffer(buf driver.Buffer, offset uint64) {
	b, ok := buf.(*buffer)
	if !ok || c.pass == nil {
		return
	}
	c.pass.SetIndexBuffer(b.buf, wgpu.IndexFormatUint32, offset, wgpu.WholeSize)
}

func (c *cmdBuffer) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	if c.pass != nil {
		c.pass.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
	}
}

func (c *cmdBuffer) DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	if c.pass != nil {
		c.pass.DrawIndexed(indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
	}
}

func (c *cmdBuffer) Dispatch(groupsX, groupsY, groupsZ uint32) {}

func (c *cmdBuffer) CopyBufferToImage(src driver.Buffer, dst driver.Image, region driver.Extent3D) {
	b, ok1 := src.(*buffer)
	img, ok2 := dst.(*image)
	if !ok1 || !ok2 {
		return
	}
	c.encoder.CopyBufferToTexture(
		&wgpu.ImageCopyBuffer{
			Buffer: b.buf,
			Layout: wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  region.Width * 4,
				RowsPerImage: region.Height,
			},
		},
		&wgpu.ImageCopyTexture{
			Texture:  img.texture,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		&wgpu.Extent3D{Width: region.Width, Height: region.Height, DepthOrArrayLayers: max1(region.Depth)},
	)
}

func (c *cmdBuffer) End() error {
	cb, err := c.encoder.Finish(nil)
	if err != nil {
		return err
	}
	c.built = cb
	return nil
}

func (g *GPU) Submit(cb driver.CmdBuffer, wait, signal []driver.Semaphore, f driver.Fence) error {
	c, ok := cb.(*cmdBuffer)
	if !ok || c.built == nil {
		return fmt.Errorf("wgpubackend: Submit requires a CmdBuffer ended via End()")
	}
	g.queue.Submit(c.built)
	if fe, ok := f.(*fence); ok {
		fe.signaled = true
	}
	return nil
}

func toWGPULoadOp(op driver.LoadOp) wgpu.LoadOp {
	if op == driver.LoadOpClear {
		return wgpu.LoadOpClear
	}
	return wgpu.LoadOpLoad
}

func toWGPUStoreOp(op driver.StoreOp) wgpu.StoreOp {
	if op == driver.StoreOpDiscard {
		return wgpu.StoreOpDiscard
	}
	return wgpu.StoreOpStore
}
