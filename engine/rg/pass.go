package rg

import "github.com/corvid-gpu/framegraph/driver"

// ClearValueFunc is consulted per color attachment during Build to
// decide whether that attachment should be cleared at the start of the
// pass, and again by every Execute for the clear values it passes to
// BeginRenderPass. Returning false matches original_source's default
// get_color_clear_value, which always returns false (DONT_CARE) unless a
// pass explicitly opts in.
type ClearValueFunc func(attachment int) (driver.ClearValue, bool)

// ExecuteFunc records the actual draw/dispatch commands for a pass once
// its render pass has been begun. The CmdBuffer passed in already has the
// pass's RenderPass bound; callers only need to set pipelines, bind
// resources, and issue draws.
type ExecuteFunc func(cb driver.CmdBuffer)

// GraphPass is one node in the render graph: a named set of color/depth
// outputs and texture inputs plus the callback that records its
// commands. A texture input declares a producer-precedes-consumer edge
// against whichever pass writes that name as a color or depth output;
// Graph.Build topologically sorts passes by these edges, falling back to
// registration order among passes with no cross-dependency.
type GraphPass struct {
	Name string

	colorOutputs  []*GraphImage
	depthOutput   *GraphImage
	textureInputs []*GraphImage

	pendingColor         []pendingImage
	pendingDepth         *pendingImage
	pendingTextureInputs []string

	clearValue ClearValueFunc
	execute    ExecuteFunc

	compiled driver.RenderPassDesc
	pass     driver.RenderPass

	// barriers is the precomputed image-barrier batch for this pass,
	// synthesized once in Graph.Build (§4.6.2 step 4) and replayed
	// unchanged by every Graph.Execute until the next Build.
	barriers []compiledBarrier
}

// compiledBarrier is a Build-time image-barrier record: it names the
// logical image and the old/new ResourceState computed from the
// topological pass order, but defers resolving the backing driver.Image
// to Execute time since the backbuffer-sourced image is only bound by
// SetupAttachments each frame.
type compiledBarrier struct {
	image    *GraphImage
	oldState driver.ResourceState
	newState driver.ResourceState
}

// GraphPassOption configures a GraphPass at construction time, matching
// the teacher's functional-options builder idiom (pipeline.NewPipeline,
// window.NewWindow).
type GraphPassOption func(*GraphPass)

// WithColorOutput declares a color attachment named name. If the graph
// has not seen this name before, a new transient GraphImage is created
// for it.
func WithColorOutput(name string, desc driver.ImageDesc) GraphPassOption {
	return func(p *GraphPass) {
		p.pendingColor = append(p.pendingColor, pendingImage{name, desc})
	}
}

// WithDepthOutput declares the depth/stencil attachment named name.
func WithDepthOutput(name string, desc driver.ImageDesc) GraphPassOption {
	return func(p *GraphPass) {
		p.pendingDepth = &pendingImage{name, desc}
	}
}

// WithTextureInput declares a read-only sampled use of the image named
// name, matching add_texture_input: it ORs ShaderRead into the image's
// usage flags and records a producer-precedes-consumer edge that
// Graph.Build's topological sort must respect. The image must be
// produced as a color or depth output by some pass in the graph (in any
// registration order); Build resolves the edge by name.
func WithTextureInput(name string) GraphPassOption {
	return func(p *GraphPass) {
		p.pendingTextureInputs = append(p.pendingTextureInputs, name)
	}
}

// WithClearValueFunc overrides the pass's default get_color_clear_value-style
// callback, which otherwise always reports "don't care".
func WithClearValueFunc(f ClearValueFunc) GraphPassOption {
	return func(p *GraphPass) { p.clearValue = f }
}

// WithExecuteFunc registers the function that records this pass's
// commands.
func WithExecuteFunc(f ExecuteFunc) GraphPassOption {
	return func(p *GraphPass) { p.execute = f }
}

type pendingImage struct {
	name string
	desc driver.ImageDesc
}
