package rg

import (
	"testing"

	"github.com/corvid-gpu/framegraph/driver"
)

func TestPassCacheReusesStructurallyEqualDesc(t *testing.T) {
	gpu := newFakeGPU()
	cache := NewPassCache()

	desc := driver.RenderPassDesc{
		Width:  1920,
		Height: 1080,
		Color: []driver.AttachmentDesc{
			{Format: driver.FormatBGRA8UnormSRGB, Samples: 1, Load: driver.LoadOpClear, FinalState: driver.StateColorAttachment},
		},
	}

	first, err := cache.Get(gpu, desc)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	second, err := cache.Get(gpu, desc)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	if first != second {
		t.Errorf("expected identical RenderPassDesc to return the same cached RenderPass")
	}
	if len(gpu.passes) != 1 {
		t.Errorf("expected exactly one backend RenderPass to be created, got %d", len(gpu.passes))
	}
}

func TestPassCacheDistinguishesDifferentDesc(t *testing.T) {
	gpu := newFakeGPU()
	cache := NewPassCache()

	a := driver.RenderPassDesc{Width: 1920, Height: 1080, Color: []driver.AttachmentDesc{{Format: driver.FormatBGRA8UnormSRGB}}}
	b := driver.RenderPassDesc{Width: 1280, Height: 720, Color: []driver.AttachmentDesc{{Format: driver.FormatBGRA8UnormSRGB}}}

	pa, _ := cache.Get(gpu, a)
	pb, _ := cache.Get(gpu, b)

	if pa == pb {
		t.Errorf("expected different width/height render passes to be distinct cache entries")
	}
	if len(gpu.passes) != 2 {
		t.Errorf("expected two backend RenderPass objects, got %d", len(gpu.passes))
	}
}

func TestFingerprintStableAcrossCalls(t *testing.T) {
	desc := driver.RenderPassDesc{
		Width: 100, Height: 200,
		Color: []driver.AttachmentDesc{{Format: driver.FormatRGBA16Float, Load: driver.LoadOpClear}},
	}
	if fingerprint(desc) != fingerprint(desc) {
		t.Errorf("expected fingerprint to be deterministic for the same input")
	}
}
