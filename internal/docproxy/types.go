// Package docproxy provides read-only access to a rendered document's text
// geometry: per-run text with positions and per-page dimensions. It is the
// sole source of layout truth for highlight geometry resolution.
package docproxy

import "context"

// TextRun is one positioned run of text on a page. Coordinates are in the
// document's device-independent unit with the origin at the lower-left
// corner of the page, as PDF content streams report them.
type TextRun struct {
	Text   string  `json:"text"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Size holds page dimensions in the same unit as TextRun coordinates.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Provider is the document-proxy collaborator consumed by the highlight
// geometry resolver.
type Provider interface {
	// PageCount returns the number of pages in the document.
	PageCount(ctx context.Context) (int, error)
	// PageTextContent returns the ordered text runs of a 1-based page.
	PageTextContent(ctx context.Context, pageNumber int) ([]TextRun, error)
	// PageDimensions returns the dimensions of a 1-based page.
	PageDimensions(ctx context.Context, pageNumber int) (Size, error)
}
