package rg

import "github.com/corvid-gpu/framegraph/driver"

// GraphImage is a named logical image within the graph. Passes reference
// images by pointer, obtained via Graph.image(name); the same name always
// resolves to the same GraphImage, so two passes that write to an image
// with the same name are automatically writing to the same resource —
// matching original_source's lazy name-to-index image table.
type GraphImage struct {
	Name  string
	Index int
	Desc  driver.ImageDesc

	// resolved is set by Graph.SetupAttachments for imported images (the
	// swapchain backbuffer) and by Graph.Build for transient images once
	// the backend has allocated them.
	resolved driver.Image
}

// Image returns the backend Image currently bound to this logical image,
// or nil if the graph has not been built/set up yet.
func (g *GraphImage) Image() driver.Image { return g.resolved }
