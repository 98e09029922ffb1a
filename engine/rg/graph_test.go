package rg

import (
	"testing"

	"github.com/corvid-gpu/framegraph/driver"
)

func colorDesc() driver.ImageDesc {
	return driver.ImageDesc{Format: driver.FormatBGRA8UnormSRGB, Usage: driver.ImageUsageColorAttachment}
}

// TestSinglePassTriangle covers S1: a one-pass graph that clears and
// draws directly to the backbuffer.
func TestSinglePassTriangle(t *testing.T) {
	gpu := newFakeGPU()
	g := NewGraph(gpu)
	g.SetSwapchainDimensions(1920, 1080)

	drew := false
	g.AddPass("main",
		WithColorOutput("backbuffer", colorDesc()),
		WithClearValueFunc(func(int) (driver.ClearValue, bool) {
			return driver.ClearValue{Color: [4]float64{0.1, 0.1, 0.1, 1}}, true
		}),
		WithExecuteFunc(func(cb driver.CmdBuffer) { drew = true }),
	)
	g.SetBackbufferSource("backbuffer")

	if err := g.Build(); err != nil {
		t.Fatalf("Build: %v", err)
	}

	backbuffer := &fakeImage{desc: colorDesc()}
	if err := g.SetupAttachments(backbuffer); err != nil {
		t.Fatalf("SetupAttachments: %v", err)
	}

	cb := &fakeCmdBuffer{}
	if err := g.Execute(cb); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if !drew {
		t.Errorf("expected pass execute callback to run")
	}
	if len(cb.passesBegun) != 1 {
		t.Fatalf("expected exactly one render pass begun, got %d", len(cb.passesBegun))
	}
	if backbuffer.State() != driver.StatePresent {
		t.Errorf("expected backbuffer final state StatePresent, got %v", backbuffer.State())
	}
}

// TestExecuteBeforeBuildFails covers the "graph not built" edge case.
func TestExecuteBeforeBuildFails(t *testing.T) {
	gpu := newFakeGPU()
	g := NewGraph(gpu)
	g.AddPass("main", WithColorOutput("backbuffer", colorDesc()))
	g.SetBackbufferSource("backbuffer")

	err := g.Execute(&fakeCmdBuffer{})
	if err == nil {
		t.Fatalf("expected error executing an unbuilt graph")
	}
	rgErr, ok := err.(*Error)
	if !ok || rgErr.Kind != ErrKindGraphNotBuilt {
		t.Fatalf("expected ErrKindGraphNotBuilt, got %v", err)
	}
}

// TestTransientImageAllocatedOnce covers S2-adjacent behavior: a
// non-backbuffer transient image shared by two passes is allocated
// exactly once by Build, not once per pass referencing it.
func TestTransientImageAllocatedOnce(t *testing.T) {
	gpu := newFakeGPU()
	g := NewGraph(gpu)
	g.SetSwapchainDimensions(800, 600)

	hdr := driver.ImageDesc{Format: driver.FormatRGBA16Float, Usage: driver.ImageUsageColorAttachment}
	g.AddPass("opaque", WithColorOutput("hdr", hdr))
	g.AddPass("transparent", WithColorOutput("hdr", hdr))
	g.SetBackbufferSource("backbuffer")
	g.AddPass("tonemap",
		WithColorOutput("backbuffer", colorDesc()),
	)

	if err := g.Build(); err != nil {
		t.Fatalf("Build: %v", err)
	}

	count := 0
	for _, d := range gpu.created {
		if d.Format == driver.FormatRGBA16Float {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected the shared hdr image to be allocated exactly once, got %d", count)
	}
}

// TestMultiPassStableOrderWithNoDependency covers two passes with no
// texture-input edge between them: the topological sort must fall back
// to declaration order.
func TestMultiPassStableOrderWithNoDependency(t *testing.T) {
	gpu := newFakeGPU()
	g := NewGraph(gpu)
	g.SetSwapchainDimensions(640, 480)

	var order []string
	g.AddPass("gbuffer", WithColorOutput("albedo", colorDesc()), WithExecuteFunc(func(driver.CmdBuffer) {
		order = append(order, "gbuffer")
	}))
	g.AddPass("lighting", WithColorOutput("backbuffer", colorDesc()), WithExecuteFunc(func(driver.CmdBuffer) {
		order = append(order, "lighting")
	}))
	g.SetBackbufferSource("backbuffer")

	if err := g.Build(); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := g.SetupAttachments(&fakeImage{desc: colorDesc()}); err != nil {
		t.Fatalf("SetupAttachments: %v", err)
	}
	if err := g.Execute(&fakeCmdBuffer{}); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if len(order) != 2 || order[0] != "gbuffer" || order[1] != "lighting" {
		t.Errorf("expected passes with no dependency to execute in declaration order, got %v", order)
	}
}

// TestTextureInputOrdersProducerBeforeConsumer covers S3: a deferred
// G-buffer pass that writes three color outputs consumed by a lighting
// pass through WithTextureInput, registered in the opposite order from
// how they must execute.
func TestTextureInputOrdersProducerBeforeConsumer(t *testing.T) {
	gpu := newFakeGPU()
	g := NewGraph(gpu)
	g.SetSwapchainDimensions(640, 480)

	var order []string
	g.AddPass("lighting",
		WithTextureInput("albedo"),
		WithTextureInput("normal"),
		WithTextureInput("position"),
		WithColorOutput("backbuffer", colorDesc()),
		WithExecuteFunc(func(driver.CmdBuffer) { order = append(order, "lighting") }),
	)
	g.AddPass("gbuffer",
		WithColorOutput("albedo", colorDesc()),
		WithColorOutput("normal", colorDesc()),
		WithColorOutput("position", colorDesc()),
		WithExecuteFunc(func(driver.CmdBuffer) { order = append(order, "gbuffer") }),
	)
	g.SetBackbufferSource("backbuffer")

	if err := g.Build(); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := g.SetupAttachments(&fakeImage{desc: colorDesc()}); err != nil {
		t.Fatalf("SetupAttachments: %v", err)
	}
	if err := g.Execute(&fakeCmdBuffer{}); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if len(order) != 2 || order[0] != "gbuffer" || order[1] != "lighting" {
		t.Errorf("expected gbuffer (producer) before lighting (consumer), got %v", order)
	}

	lighting := g.PassNamed("lighting")
	foundShaderRead := 0
	for _, b := range lighting.barriers {
		if b.newState == driver.StateShaderReadOnly {
			foundShaderRead++
		}
	}
	if foundShaderRead != 3 {
		t.Errorf("expected 3 ShaderReadOnly barriers on the lighting pass, got %d", foundShaderRead)
	}
}

// TestCyclicGraphFailsBuild covers S5: a texture-input cycle across two
// passes must fail Build with ErrKindCyclicGraph rather than silently
// falling back to declaration order.
func TestCyclicGraphFailsBuild(t *testing.T) {
	gpu := newFakeGPU()
	g := NewGraph(gpu)
	g.SetSwapchainDimensions(320, 240)

	g.AddPass("a",
		WithTextureInput("x"),
		WithColorOutput("y", colorDesc()),
	)
	g.AddPass("b",
		WithTextureInput("y"),
		WithColorOutput("x", colorDesc()),
	)

	err := g.Build()
	if err == nil {
		t.Fatalf("expected Build to fail on a cyclic texture-input dependency")
	}
	rgErr, ok := err.(*Error)
	if !ok || rgErr.Kind != ErrKindCyclicGraph {
		t.Fatalf("expected ErrKindCyclicGraph, got %v", err)
	}
}

// TestPassNamedLookup covers pass addressability by name.
func TestPassNamedLookup(t *testing.T) {
	gpu := newFakeGPU()
	g := NewGraph(gpu)
	g.AddPass("shadow", WithDepthOutput("shadowmap", driver.ImageDesc{Format: driver.FormatDepth32Float}))

	if g.PassNamed("shadow") == nil {
		t.Fatalf("expected PassNamed(\"shadow\") to find the registered pass")
	}
	if g.PassNamed("nonexistent") != nil {
		t.Fatalf("expected PassNamed(\"nonexistent\") to return nil")
	}
}

func TestSetupAttachmentsBeforeBuildFails(t *testing.T) {
	gpu := newFakeGPU()
	g := NewGraph(gpu)
	if err := g.SetupAttachments(&fakeImage{}); err == nil {
		t.Fatalf("expected error calling SetupAttachments before Build")
	}
}
