// Package wgpubackend is the sole concrete driver.GPU implementation,
// backed by github.com/cogentcore/webgpu. Its bring-up sequence
// (instance -> surface -> adapter -> device -> queue) and cached
// render-pass-descriptor idiom mirror the engine/renderer package's
// wgpu_renderer_backend.go.
package wgpubackend

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/corvid-gpu/framegraph/driver"
)

const driverName = "wgpu"

func init() {
	driver.Register(driverName, &wgpuDriver{})
}

type wgpuDriver struct{}

func (wgpuDriver) Name() string { return driverName }

func (wgpuDriver) Open(kind driver.BackendKind, surface any) (driver.GPU, error) {
	desc, ok := surface.(*wgpu.SurfaceDescriptor)
	if !ok {
		return nil, fmt.Errorf("wgpubackend: Open requires a *wgpu.SurfaceDescriptor surface")
	}
	return Open(kind, desc)
}

// backendFilter narrows wgpu's instance-level backend bitmask to the
// subset implied by a driver.BackendKind. wgpu itself still chooses among
// whatever is available on the host at adapter-request time; this only
// constrains which native APIs the instance will consider.
func backendFilter(kind driver.BackendKind) wgpu.InstanceBackend {
	switch kind {
	case driver.KindVulkan:
		return wgpu.InstanceBackendVulkan
	case driver.KindD3D12:
		return wgpu.InstanceBackendDX12
	case driver.KindMetal:
		return wgpu.InstanceBackendMetal
	default:
		return wgpu.InstanceBackendPrimary
	}
}

// GPU is the wgpu-backed driver.GPU implementation.
type GPU struct {
	mu sync.Mutex

	kind driver.BackendKind

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	surface  *wgpu.Surface

	surfaceFormat wgpu.TextureFormat

	acquired *wgpu.Texture // backbuffer held between AcquireNext and Present
}

var _ driver.GPU = (*GPU)(nil)

// Open brings up a wgpu instance/surface/adapter/device restricted to
// kind's native API and returns a ready-to-use GPU.
func Open(kind driver.BackendKind, surfaceDescriptor *wgpu.SurfaceDescriptor) (*GPU, error) {
	runtime.LockOSThread()

	g := &GPU{
		kind:     kind,
		instance: wgpu.CreateInstance(&wgpu.InstanceDescriptor{Backends: backendFilter(kind)}),
	}
	g.surface = g.instance.CreateSurface(surfaceDescriptor)

	adapter, err := g.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: g.surface,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", driver.ErrNoDevice, err)
	}
	g.adapter = adapter

	limits := wgpu.DefaultLimits()
	limits.MaxBindGroups = 8
	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label:          "framegraph device",
		RequiredLimits: &wgpu.RequiredLimits{Limits: limits},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", driver.ErrNoDevice, err)
	}
	g.device = device
	g.queue = device.GetQueue()

	return g, nil
}

// Wrap adapts an already-live wgpu instance/adapter/device/queue/surface
// into a driver.GPU instead of opening a new one. This is the path
// engine/renderer uses: a window surface can only be claimed by one wgpu
// device at a time, so the render graph must share the renderer's
// existing device rather than requesting a second one.
func Wrap(kind driver.BackendKind, instance *wgpu.Instance, adapter *wgpu.Adapter, device *wgpu.Device, queue *wgpu.Queue, surface *wgpu.Surface, format wgpu.TextureFormat) *GPU {
	return &GPU{
		kind:          kind,
		instance:      instance,
		adapter:       adapter,
		device:        device,
		queue:         queue,
		surface:       surface,
		surfaceFormat: format,
	}
}

func (g *GPU) Kind() driver.BackendKind { return g.kind }

func (g *GPU) Resize(width, height uint32) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	caps := g.surface.GetCapabilities(g.adapter)
	g.surfaceFormat = caps.Formats[0]

	g.surface.Configure(g.adapter, g.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      g.surfaceFormat,
		Width:       width,
		Height:      height,
		PresentMode: wgpu.PresentModeImmediate,
		AlphaMode:   caps.AlphaModes[0],
	})
	return nil
}

func (g *GPU) AcquireNext(_ driver.Semaphore) (driver.Image, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	surfaceTexture, err := g.surface.GetCurrentTexture()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", driver.ErrOutOfDate, err)
	}
	g.acquired = surfaceTexture

	return &image{
		desc: driver.ImageDesc{
			Format: fromWGPUFormat(g.surfaceFormat),
		},
		state:   driver.StateUndefined,
		texture: surfaceTexture,
	}, nil
}

func (g *GPU) Present(_ driver.Semaphore) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.acquired == nil {
		return fmt.Errorf("wgpubackend: Present called without a prior AcquireNext")
	}
	g.surface.Present()
	g.acquired.Release()
	g.acquired = nil
	return nil
}

func (g *GPU) WaitIdle() error {
	// wgpu has no explicit idle-wait; polling the device drains callbacks
	// for any in-flight submissions, which is the closest equivalent the
	// teacher's backend relies on implicitly via synchronous queue writes.
	g.device.Poll(true, nil)
	return nil
}

func (g *GPU) Close() error {
	g.device.Release()
	g.adapter.Release()
	g.surface.Release()
	g.instance.Release()
	return nil
}

func fromWGPUFormat(f wgpu.TextureFormat) driver.PixelFormat {
	switch f {
	case wgpu.TextureFormatRGBA8UnormSrgb:
		return driver.FormatRGBA8UnormSRGB
	case wgpu.TextureFormatBGRA8UnormSrgb:
		return driver.FormatBGRA8UnormSRGB
	case wgpu.TextureFormatRGBA16Float:
		return driver.FormatRGBA16Float
	case wgpu.TextureFormatDepth32Float:
		return driver.FormatDepth32Float
	case wgpu.TextureFormatDepth24PlusStencil8:
		return driver.FormatDepth24PlusStencil8
	default:
		return driver.FormatUndefined
	}
}

func toWGPUFormat(f driver.PixelFormat) wgpu.TextureFormat {
	switch f {
	case driver.FormatRGBA8UnormSRGB:
		return wgpu.TextureFormatRGBA8UnormSrgb
	case driver.FormatBGRA8UnormSRGB:
		return wgpu.TextureFormatBGRA8UnormSrgb
	case driver.FormatRGBA16Float:
		return wgpu.TextureFormatRGBA16Float
	case driver.FormatDepth32Float:
		return wgpu.TextureFormatDepth32Float
	case driver.FormatDepth24PlusStencil8:
		return wgpu.TextureFormatDepth24PlusStencil8
	default:
		return wgpu.TextureFormatUndefined
	}
}
