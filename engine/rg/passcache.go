package rg

import (
	"sync"

	"github.com/corvid-gpu/framegraph/driver"
)

// PassCache is a content-addressed cache of driver.RenderPass objects
// keyed by a structural fingerprint of their driver.RenderPassDesc. Two
// passes with identical attachment layouts share the same compiled
// RenderPass, avoiding redundant backend render-pass-object creation.
// The fingerprint algorithm is a direct port of
// _examples/original_source/sandbox/render_graph.hpp's hash_combine /
// PassHash<GraphPass>.
type PassCache struct {
	mu      sync.Mutex
	entries map[uint64][]cacheEntry
}

type cacheEntry struct {
	desc driver.RenderPassDesc
	pass driver.RenderPass
}

// NewPassCache creates an empty PassCache.
func NewPassCache() *PassCache {
	return &PassCache{entries: make(map[uint64][]cacheEntry)}
}

// Get returns a RenderPass compatible with desc, creating one via gpu on
// a cache miss. A hash collision between two structurally different
// RenderPassDesc values is resolved by equality comparison before
// falling back to creating a new entry under the same hash bucket.
func (c *PassCache) Get(gpu driver.GPU, desc driver.RenderPassDesc) (driver.RenderPass, error) {
	key := fingerprint(desc)

	c.mu.Lock()
	for _, e := range c.entries[key] {
		if renderPassDescEqual(e.desc, desc) {
			c.mu.Unlock()
			return e.pass, nil
		}
	}
	c.mu.Unlock()

	pass, err := gpu.CreateRenderPass(desc)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = append(c.entries[key], cacheEntry{desc: desc, pass: pass})
	c.mu.Unlock()

	return pass, nil
}

// hashCombine mixes v into the running hash s using the same
// splitmix-derived constant (0x9e3779b9, boost's golden-ratio constant)
// and shift pattern as hash_combine in render_graph.hpp.
func hashCombine(s uint64, v uint64) uint64 {
	return s ^ (v + 0x9e3779b9 + (s << 6) + (s >> 2))
}

func fingerprint(desc driver.RenderPassDesc) uint64 {
	var h uint64
	h = hashCombine(h, uint64(len(desc.Color)))
	h = hashCombine(h, uint64(desc.Width))
	h = hashCombine(h, uint64(desc.Height))
	for _, att := range desc.Color {
		h = hashCombine(h, uint64(att.Load))
		h = hashCombine(h, uint64(att.FinalState))
		h = hashCombine(h, uint64(att.Format))
		h = hashCombine(h, uint64(att.Samples))
	}
	h = hashCombine(h, boolToUint64(desc.HasDepth))
	if desc.HasDepth {
		h = hashCombine(h, uint64(desc.Depth.Load))
		h = hashCombine(h, uint64(desc.Depth.FinalState))
		h = hashCombine(h, uint64(desc.Depth.Format))
	}
	return h
}

func boolToUint64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func renderPassDescEqual(a, b driver.RenderPassDesc) bool {
	if a.Width != b.Width || a.Height != b.Height || a.HasDepth != b.HasDepth {
		return false
	}
	if len(a.Color) != len(b.Color) {
		return false
	}
	for i := range a.Color {
		if a.Color[i].Format != b.Color[i].Format ||
			a.Color[i].Samples != b.Color[i].Samples ||
			a.Color[i].Load != b.Color[i].Load ||
			a.Color[i].Store != b.Color[i].Store ||
			a.Color[i].FinalState != b.Color[i].FinalState {
			return false
		}
	}
	if a.HasDepth {
		if a.Depth.Format != b.Depth.Format || a.Depth.Samples != b.Depth.Samples || a.Depth.Load != b.Depth.Load || a.Depth.Store != b.Depth.Store || a.Depth.FinalState != b.Depth.FinalState {
			return false
		}
	}
	return true
}
