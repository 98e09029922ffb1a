// Package driver defines the backend-independent resource model and
// command recording surface that the render graph compiles against.
// A concrete GPU implementation lives in a sibling package (see
// driver/wgpubackend); this package only declares the vocabulary.
package driver

// BackendKind selects which native graphics API a GPU instance targets.
// Exactly one is chosen at Open time and cannot change for the lifetime
// of the GPU; switching kinds means tearing down the device, swapchain,
// and render graph and building all three again from scratch.
type BackendKind int

const (
	// KindVulkan requests a Vulkan-backed device where the host platform
	// supports it.
	KindVulkan BackendKind = iota
	// KindD3D12 requests a Direct3D 12-backed device (Windows only).
	KindD3D12
	// KindMetal requests a Metal-backed device (Darwin only).
	KindMetal
)

func (k BackendKind) String() string {
	switch k {
	case KindVulkan:
		return "vulkan"
	case KindD3D12:
		return "d3d12"
	case KindMetal:
		return "metal"
	default:
		return "unknown"
	}
}

// ResourceState describes how an image or buffer is currently being used
// by the GPU. It is the unit the render graph reasons about when
// synthesizing barriers; transitioning between states is the only way a
// resource's usage may change.
type ResourceState int

const (
	StateUndefined ResourceState = iota
	StateGeneral
	StateColorAttachment
	StateDepthStencilWrite
	StateDepthStencilReadOnly
	StateShaderReadOnly
	StateTransferSrc
	StateTransferDst
	StatePresent
)

func (s ResourceState) String() string {
	switch s {
	case StateUndefined:
		return "undefined"
	case StateGeneral:
		return "general"
	case StateColorAttachment:
		return "color-attachment"
	case StateDepthStencilWrite:
		return "depth-stencil-write"
	case StateDepthStencilReadOnly:
		return "depth-stencil-read-only"
	case StateShaderReadOnly:
		return "shader-read-only"
	case StateTransferSrc:
		return "transfer-src"
	case StateTransferDst:
		return "transfer-dst"
	case StatePresent:
		return "present"
	default:
		return "unknown"
	}
}

// PixelFormat enumerates the image formats the graph and backends agree
// on. Kept deliberately small; extend as new passes need new formats.
type PixelFormat int

const (
	FormatUndefined PixelFormat = iota
	FormatRGBA8UnormSRGB
	FormatBGRA8UnormSRGB
	FormatRGBA16Float
	FormatDepth32Float
	FormatDepth24PlusStencil8
)

// ImageUsage is a bitmask of how an image may be used over its lifetime.
// A transient graph image's usage set is derived automatically from the
// passes that reference it; an imported image (e.g. the swapchain
// backbuffer) declares its usage explicitly.
type ImageUsage uint32

const (
	ImageUsageColorAttachment ImageUsage = 1 << iota
	ImageUsageDepthStencilAttachment
	ImageUsageShaderRead
	ImageUsageTransferSrc
	ImageUsageTransferDst
)

func (u ImageUsage) Has(bit ImageUsage) bool { return u&bit != 0 }

// Extent3D is a 3-dimensional size in texels.
type Extent3D struct {
	Width, Height, Depth uint32
}

// ImageDesc fully describes an image the graph may allocate or import.
type ImageDesc struct {
	Format  PixelFormat
	Extent  Extent3D
	Samples uint32 // 1 = no MSAA
	Mips    uint32
	Usage   ImageUsage
}

// BufferDesc fully describes a buffer the graph or a client may allocate.
type BufferDesc struct {
	Size  uint64
	Usage ImageUsage
}

// Image is a backend-owned GPU image plus its last-known ResourceState.
// The render graph never mutates GPU state directly; it only issues
// ImageBarrier values and trusts the CmdBuffer implementation to apply
// them.
type Image interface {
	Desc() ImageDesc
	State() ResourceState
	// SetState records the image's new "last known state". CmdBuffer
	// implementations call it from Barrier as they apply each
	// ImageBarrier; the render graph itself only schedules barriers.
	SetState(ResourceState)
}

// Buffer is a backend-owned GPU buffer.
type Buffer interface {
	Desc() BufferDesc
}

// Sampler is an opaque backend-owned sampler handle.
type Sampler interface{}

// ShaderStage identifies which programmable stage a ShaderCode targets.
type ShaderStage int

const (
	StageVertex ShaderStage = iota
	StageFragment
	StageCompute
)

// ShaderCode pairs WGSL source with the stage and entry point it is
// compiled for.
type ShaderCode struct {
	Stage      ShaderStage
	EntryPoint string
	Source     string
}

// DescriptorKind identifies what a single binding slot holds.
type DescriptorKind int

const (
	DescriptorUniformBuffer DescriptorKind = iota
	DescriptorStorageBuffer
	DescriptorSampledImage
	DescriptorSampler
)

// DescriptorBinding is one named slot within a descriptor set layout.
type DescriptorBinding struct {
	Name    string
	Binding uint32
	Kind    DescriptorKind
	Count   uint32
	Stages  ShaderStage
}

// DescriptorSetLayout is the full set of bindings at one group index.
type DescriptorSetLayout struct {
	Group    uint32
	Bindings []DescriptorBinding
}

// Pipeline is an opaque backend-owned graphics or compute pipeline.
type Pipeline interface {
	Kind() PipelineKind
}

// PipelineKind distinguishes a graphics pipeline from a compute pipeline.
type PipelineKind int

const (
	PipelineGraphics PipelineKind = iota
	PipelineCompute
)

// LoadOp controls what happens to an attachment's previous contents at
// the start of a render pass.
type LoadOp int

const (
	LoadOpLoad LoadOp = iota
	LoadOpClear
	LoadOpDontCare
)

// StoreOp controls whether an attachment's contents are preserved after
// a render pass ends.
type StoreOp int

const (
	StoreOpStore StoreOp = iota
	StoreOpDiscard
)

// ClearValue holds the clear color or depth/stencil value for an
// attachment whose LoadOp is LoadOpClear.
type ClearValue struct {
	Color        [4]float64
	Depth        float32
	Stencil      uint32
	IsDepthClear bool
}

// AttachmentDesc describes one color or depth/stencil attachment within
// a RenderPassDesc.
type AttachmentDesc struct {
	Format  PixelFormat
	Samples uint32
	Load    LoadOp
	Store   StoreOp
	Clear   ClearValue
	// FinalState is the ResourceState the attachment must end the pass
	// in; used by the graph to decide whether a trailing barrier is
	// required (e.g. transitioning the backbuffer to StatePresent).
	FinalState ResourceState
}

// RenderPassDesc fully describes a render pass's attachment layout. Two
// passes with structurally equal RenderPassDesc values are considered
// compatible and may share a cached RenderPass object.
type RenderPassDesc struct {
	Color        []AttachmentDesc
	HasDepth     bool
	Depth        AttachmentDesc
	Width        uint32
	Height       uint32
}

// RenderPass is a backend-owned render pass object, the expensive
// counterpart to RenderPassDesc that the pass cache exists to reuse.
type RenderPass interface {
	Desc() RenderPassDesc
}

// Fence is a backend-owned GPU/CPU synchronization primitive signaled
// when a submitted command buffer completes.
type Fence interface {
	Wait() error
	Reset()
}

// Semaphore is a backend-owned GPU/GPU synchronization primitive used to
// order a submission against a swapchain acquire or another submission.
type Semaphore interface{}
