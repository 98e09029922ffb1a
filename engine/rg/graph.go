// Package rg implements the render graph: a declarative DAG of passes
// compiled into a linear schedule of resource transitions, transient
// image allocations, and cached render-pass objects, replayed once per
// frame by a FrameDriver. The compile/execute algorithm is grounded on
// _examples/original_source/sandbox/render_graph.cpp
// (add_pass/get_image/build/setup_attachments/execute).
package rg

import (
	"fmt"
	"sort"

	"github.com/corvid-gpu/framegraph/driver"
)

// Graph owns the set of logical images and passes registered against one
// GPU. Passes declare their dependencies through texture-input uses of
// another pass's color/depth outputs; Build topologically sorts them into
// compiledOrder, which both Build and Execute iterate, falling back to
// stable registration order among passes with no cross-dependency.
type Graph struct {
	gpu   driver.GPU
	cache *PassCache

	images    []*GraphImage
	imageIdx  map[string]int

	passes   []*GraphPass
	passIdx  map[string]int

	// compiledOrder is the topologically sorted pass index order computed
	// by Build; Execute replays passes in this order, not registration
	// order.
	compiledOrder []int

	// finalBarrier transitions the backbuffer-sourced image to
	// StatePresent after the last pass in compiledOrder, computed once in
	// Build alongside every other pass's barriers.
	finalBarrier *compiledBarrier

	backbufferSource string
	swapWidth        uint32
	swapHeight       uint32

	built bool
}

// NewGraph creates an empty Graph bound to gpu. A PassCache is created
// internally; share one across multiple graphs via WithPassCache if
// several graphs compile structurally similar passes.
func NewGraph(gpu driver.GPU, opts ...GraphOption) *Graph {
	g := &Graph{
		gpu:      gpu,
		imageIdx: make(map[string]int),
		passIdx:  make(map[string]int),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.cache == nil {
		g.cache = NewPassCache()
	}
	return g
}

// GraphOption configures a Graph at construction time.
type GraphOption func(*Graph)

// WithPassCache shares an existing PassCache instead of creating a new
// one, useful when several graphs (e.g. a main graph and a shadow graph)
// should reuse compiled render passes with identical attachment layouts.
func WithPassCache(cache *PassCache) GraphOption {
	return func(g *Graph) { g.cache = cache }
}

// image resolves name to its GraphImage, creating a new transient entry
// the first time it is seen — the same lazy name-to-index table as
// RenderGraph::get_image.
func (g *Graph) image(name string, desc driver.ImageDesc) *GraphImage {
	if idx, ok := g.imageIdx[name]; ok {
		return g.images[idx]
	}
	idx := len(g.images)
	img := &GraphImage{Name: name, Index: idx, Desc: desc}
	g.images = append(g.images, img)
	g.imageIdx[name] = idx
	return img
}

// AddPass registers a new pass named name. Like add_pass, it always
// appends a new pass, even when name is already in use: the earlier pass
// stays in the graph and still executes, and PassNamed resolves the name
// to the most recently added pass.
func (g *Graph) AddPass(name string, opts ...GraphPassOption) *GraphPass {
	p := &GraphPass{Name: name}
	for _, opt := range opts {
		opt(p)
	}
	if p.clearValue == nil {
		p.clearValue = func(int) (driver.ClearValue, bool) { return driver.ClearValue{}, false }
	}

	idx := len(g.passes)
	g.passes = append(g.passes, p)
	g.passIdx[name] = idx
	g.built = false
	return p
}

// SetBackbufferSource names the logical image that the swapchain
// backbuffer is swapped into during SetupAttachments each frame.
func (g *Graph) SetBackbufferSource(name string) {
	g.backbufferSource = name
}

// SetSwapchainDimensions records the current swapchain size, used as the
// render-pass width/height for passes outputting to the backbuffer.
func (g *Graph) SetSwapchainDimensions(width, height uint32) {
	g.swapWidth = width
	g.swapHeight = height
	g.built = false
}

// PassNamed returns the pass registered under name, or nil if none was.
func (g *Graph) PassNamed(name string) *GraphPass {
	idx, ok := g.passIdx[name]
	if !ok {
		return nil
	}
	return g.passes[idx]
}

// Build resolves every pass's pending named outputs and texture inputs
// into GraphImage pointers, topologically sorts the passes by their
// producer/consumer edges, allocates backing storage for transient
// (non-backbuffer) images, computes each pass's RenderPassDesc, compiles
// it through the PassCache, and precomputes every pass's image-barrier
// batch. Build must be called again after AddPass, SetSwapchainDimensions,
// or SetBackbufferSource.
func (g *Graph) Build() error {
	for _, p := range g.passes {
		p.colorOutputs = p.colorOutputs[:0]
		for _, pc := range p.pendingColor {
			img := g.image(pc.name, pc.desc)
			img.Desc.Usage |= driver.ImageUsageColorAttachment
			p.colorOutputs = append(p.colorOutputs, img)
		}
		if p.pendingDepth != nil {
			img := g.image(p.pendingDepth.name, p.pendingDepth.desc)
			img.Desc.Usage |= driver.ImageUsageDepthStencilAttachment
			p.depthOutput = img
		}
	}
	for _, p := range g.passes {
		p.textureInputs = p.textureInputs[:0]
		for _, name := range p.pendingTextureInputs {
			img := g.image(name, driver.ImageDesc{})
			img.Desc.Usage |= driver.ImageUsageShaderRead
			p.textureInputs = append(p.textureInputs, img)
		}
	}

	order, err := g.topoSort()
	if err != nil {
		return err
	}

	for _, img := range g.images {
		if img.Name == g.backbufferSource {
			continue // swapped in per-frame by SetupAttachments
		}
		if img.resolved != nil {
			continue
		}
		desc := img.Desc
		if desc.Extent.Width == 0 {
			desc.Extent.Width = g.swapWidth
		}
		if desc.Extent.Height == 0 {
			desc.Extent.Height = g.swapHeight
		}
		allocated, err := g.gpu.CreateImage(desc)
		if err != nil {
			return newErr(ErrKindOutOfDeviceMemory, fmt.Errorf("allocate transient image %q: %w", img.Name, err))
		}
		img.resolved = allocated
	}

	for _, idx := range order {
		p := g.passes[idx]
		desc := driver.RenderPassDesc{Width: g.swapWidth, Height: g.swapHeight}
		for i, img := range p.colorOutputs {
			clear, needClear := p.clearValue(i)
			load := driver.LoadOpDontCare
			if needClear {
				load = driver.LoadOpClear
			}
			desc.Color = append(desc.Color, driver.AttachmentDesc{
				Format:     img.Desc.Format,
				Samples:    samplesOrOne(img.Desc.Samples),
				Load:       load,
				Store:      driver.StoreOpStore,
				Clear:      clear,
				FinalState: driver.StateColorAttachment,
			})
		}
		if p.depthOutput != nil {
			desc.HasDepth = true
			desc.Depth = driver.AttachmentDesc{
				Format:     p.depthOutput.Desc.Format,
				Samples:    samplesOrOne(p.depthOutput.Desc.Samples),
				Load:       driver.LoadOpClear,
				Store:      driver.StoreOpDiscard,
				Clear:      driver.ClearValue{Depth: 1.0, IsDepthClear: true},
				FinalState: driver.StateDepthStencilWrite,
			}
		}
		p.compiled = desc

		pass, err := g.cache.Get(g.gpu, desc)
		if err != nil {
			return newErr(ErrKindCompile, fmt.Errorf("compile pass %q: %w", p.Name, err))
		}
		p.pass = pass
	}

	// Barrier synthesis (§4.6.2 step 4): walk the topological order once,
	// tracking each logical image's last-observed state, so every
	// old_state reflects either its creation (Undefined) or its most
	// recent use by an earlier pass in the compiled schedule.
	lastState := make(map[int]driver.ResourceState, len(g.images))
	for _, idx := range order {
		p := g.passes[idx]
		p.barriers = p.barriers[:0]
		for _, img := range p.colorOutputs {
			p.barriers = append(p.barriers, compiledBarrier{
				image:    img,
				oldState: lastState[img.Index],
				newState: driver.StateColorAttachment,
			})
			lastState[img.Index] = driver.StateColorAttachment
		}
		if p.depthOutput != nil {
			p.barriers = append(p.barriers, compiledBarrier{
				image:    p.depthOutput,
				oldState: lastState[p.depthOutput.Index],
				newState: driver.StateDepthStencilWrite,
			})
			lastState[p.depthOutput.Index] = driver.StateDepthStencilWrite
		}
		for _, img := range p.textureInputs {
			p.barriers = append(p.barriers, compiledBarrier{
				image:    img,
				oldState: lastState[img.Index],
				newState: driver.StateShaderReadOnly,
			})
			lastState[img.Index] = driver.StateShaderReadOnly
		}
	}

	g.finalBarrier = nil
	if idx, ok := g.imageIdx[g.backbufferSource]; ok {
		bb := g.images[idx]
		g.finalBarrier = &compiledBarrier{
			image:    bb,
			oldState: lastState[bb.Index],
			newState: driver.StatePresent,
		}
	}

	g.compiledOrder = order
	g.built = true
	return nil
}

// topoSort orders passes so that every texture-input consumer comes
// after the pass(es) that produce its source image as a color or depth
// output (§4.6.2 step 1). Passes with no cross-dependency keep their
// declaration order — Kahn's algorithm always picks the lowest-index
// ready node, which makes the sort stable. A pass that never becomes
// ready indicates a cycle among the producer/consumer edges.
func (g *Graph) topoSort() ([]int, error) {
	n := len(g.passes)

	producers := make(map[int][]int, n) // image index -> producing pass indices
	for i, p := range g.passes {
		for _, img := range p.colorOutputs {
			producers[img.Index] = append(producers[img.Index], i)
		}
		if p.depthOutput != nil {
			producers[p.depthOutput.Index] = append(producers[p.depthOutput.Index], i)
		}
	}

	adj := make([][]int, n)
	indegree := make([]int, n)
	seenEdge := make(map[[2]int]bool)
	for i, p := range g.passes {
		for _, img := range p.textureInputs {
			for _, producer := range producers[img.Index] {
				if producer == i {
					continue
				}
				key := [2]int{producer, i}
				if seenEdge[key] {
					continue
				}
				seenEdge[key] = true
				adj[producer] = append(adj[producer], i)
				indegree[i]++
			}
		}
	}

	ready := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if indegree[i] == 0 {
			ready = append(ready, i)
		}
	}

	order := make([]int, 0, n)
	for len(ready) > 0 {
		sort.Ints(ready)
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)
		for _, v := range adj[next] {
			indegree[v]--
			if indegree[v] == 0 {
				ready = append(ready, v)
			}
		}
	}

	if len(order) != n {
		return nil, newErr(ErrKindCyclicGraph, fmt.Errorf("render graph: %d of %d passes involved in a dependency cycle", n-len(order), n))
	}
	return order, nil
}

func samplesOrOne(s uint32) uint32 {
	if s == 0 {
		return 1
	}
	return s
}

// SetupAttachments swaps the freshly acquired backbuffer image into every
// pass whose color output is the declared backbuffer source, matching
// RenderGraph::setup_attachments. Must be called once per frame before
// Execute, after Build has run at least once.
func (g *Graph) SetupAttachments(backbuffer driver.Image) error {
	if !g.built {
		return newErr(ErrKindGraphNotBuilt, ErrGraphNotBuilt)
	}
	idx, ok := g.imageIdx[g.backbufferSource]
	if !ok {
		return newErr(ErrKindUnknownBackbufferSource, fmt.Errorf("backbuffer source %q is not an image of any pass", g.backbufferSource))
	}
	target := g.images[idx]
	target.resolved = backbuffer
	return nil
}

// Execute replays the compiled schedule against cb: for each pass in
// compiledOrder, issue its precomputed barrier batch, begin the render
// pass, call the pass's ExecuteFunc to record its commands, then end the
// render pass. After the last
// pass, the backbuffer-source image (if any) is transitioned to
// StatePresent via the precomputed finalBarrier, matching
// RenderGraph::execute's final barrier.
func (g *Graph) Execute(cb driver.CmdBuffer) error {
	if !g.built {
		return newErr(ErrKindGraphNotBuilt, ErrGraphNotBuilt)
	}

	for _, idx := range g.compiledOrder {
		p := g.passes[idx]

		barriers := make([]driver.ImageBarrier, 0, len(p.barriers))
		for _, b := range p.barriers {
			if b.image.resolved == nil {
				return newErr(ErrKindFatal, fmt.Errorf("pass %q: image %q has no backing resource", p.Name, b.image.Name))
			}
			barriers = append(barriers, driver.ImageBarrier{
				Image:    b.image.resolved,
				OldState: b.oldState,
				NewState: b.newState,
			})
		}

		clears := make([]driver.ClearValue, 0, len(p.colorOutputs)+1)
		for i := range p.colorOutputs {
			clear, _ := p.clearValue(i)
			clears = append(clears, clear)
		}
		if p.depthOutput != nil {
			clears = append(clears, driver.ClearValue{Depth: 1.0, IsDepthClear: true})
		}

		cb.Barrier(barriers)
		if err := cb.BeginRenderPass(p.pass, clears); err != nil {
			return newErr(ErrKindInvalidState, err)
		}
		if p.execute != nil {
			p.execute(cb)
		}
		cb.EndRenderPass()
	}

	if g.finalBarrier != nil && g.finalBarrier.image.resolved != nil {
		cb.Barrier([]driver.ImageBarrier{{
			Image:    g.finalBarrier.image.resolved,
			OldState: g.finalBarrier.oldState,
			NewState: g.finalBarrier.newState,
		}})
	}
	return nil
}
