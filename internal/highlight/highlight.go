// Package highlight holds the highlight model and the geometry resolver
// that turns textual matches into page rectangles.
package highlight

import (
	"github.com/google/uuid"

	"github.com/paperdock/paperdock/internal/storage"
)

// Kind separates durable user highlights from ephemeral search results.
type Kind string

const (
	// KindUser marks a highlight created by explicit user labeling. These
	// persist per project.
	KindUser Kind = "user"
	// KindSearch marks a search-derived highlight. These are replaced
	// wholesale on every search and never persisted.
	KindSearch Kind = "search"
)

// Rect is an axis-aligned rectangle in page-pixel space, origin top-left.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Highlight is a labeled rectangular region on one page.
type Highlight struct {
	ID         string  `json:"id"`
	Label      string  `json:"label"`
	Kind       Kind    `json:"kind"`
	PageNumber int     `json:"pageNumber"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
}

// New creates a highlight covering r on the given page.
func New(label string, kind Kind, pageNumber int, r Rect) Highlight {
	return Highlight{
		ID:         uuid.NewString(),
		Label:      label,
		Kind:       kind,
		PageNumber: pageNumber,
		X:          r.X,
		Y:          r.Y,
		Width:      r.Width,
		Height:     r.Height,
	}
}

// Rect returns the highlight's region.
func (h Highlight) Rect() Rect {
	return Rect{X: h.X, Y: h.Y, Width: h.Width, Height: h.Height}
}

// Load reads a project's durable highlights. Missing or corrupt data yields
// an empty list; search-kind entries left behind by a foreign writer are
// dropped.
func Load(st *storage.Store, project string) []Highlight {
	var stored []Highlight
	st.Load(storage.ProjectKey(project, storage.DataHighlights), &stored)

	out := make([]Highlight, 0, len(stored))
	for _, h := range stored {
		if h.Kind == KindUser {
			out = append(out, h)
		}
	}
	return out
}

// Save persists a project's user highlights. Search-kind entries are
// filtered out rather than written.
func Save(st *storage.Store, project string, highlights []Highlight) error {
	durable := make([]Highlight, 0, len(highlights))
	for _, h := range highlights {
		if h.Kind == KindUser {
			durable = append(durable, h)
		}
	}
	return st.Save(storage.ProjectKey(project, storage.DataHighlights), durable)
}
