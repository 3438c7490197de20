package highlight

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/paperdock/paperdock/internal/docproxy"
)

// Mode selects how much of the page a resolved match covers.
type Mode string

const (
	// ModeExactTerm bounds only the matched substring.
	ModeExactTerm Mode = "exactTerm"
	// ModeFullContext bounds the whole text chunk containing the match.
	ModeFullContext Mode = "fullContext"
)

// Granularity is the chunk boundary used by ModeFullContext. The upstream
// behavior is underspecified, so the boundary is a resolver policy:
// GranularityLine bounds the visual line(s) the match sits on,
// GranularityParagraph extends to adjacent lines with normal leading.
type Granularity string

const (
	GranularityLine      Granularity = "line"
	GranularityParagraph Granularity = "paragraph"
)

// Request describes a logical match to resolve into rectangles.
type Request struct {
	PageNumber  int
	MatchedText string
	MatchIndex  int
	Mode        Mode
	AnchorText  string
}

// GeometryError reports an unresolvable geometry request. Callers surface
// it as a non-fatal, feature-local failure.
type GeometryError struct {
	Reason string
	Err    error
}

func (e *GeometryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("geometry: %s: %v", e.Reason, e.Err)
	}
	return "geometry: " + e.Reason
}

func (e *GeometryError) Unwrap() error {
	return e.Err
}

// Resolver maps logical matches to page rectangles using a document proxy
// as the sole source of layout truth.
type Resolver struct {
	provider    docproxy.Provider
	granularity Granularity
}

// NewResolver creates a resolver with line-granular full-context chunks.
func NewResolver(provider docproxy.Provider) *Resolver {
	return &Resolver{provider: provider, granularity: GranularityLine}
}

// SetGranularity changes the full-context chunk boundary policy.
func (r *Resolver) SetGranularity(g Granularity) {
	r.granularity = g
}

// Resolve returns the rectangles bounding the requested match, in page-pixel
// space with a top-left origin. A MatchIndex past the last occurrence
// resolves to an empty list with no error: the caller treats that as "no
// results". Invalid input and proxy failures return *GeometryError.
func (r *Resolver) Resolve(ctx context.Context, req Request) ([]Rect, error) {
	term := req.AnchorText
	if req.Mode != ModeExactTerm || term == "" {
		term = req.MatchedText
	}
	if term == "" {
		return nil, &GeometryError{Reason: "empty match text"}
	}
	if req.MatchIndex < 0 {
		return nil, &GeometryError{Reason: fmt.Sprintf("negative match index %d", req.MatchIndex)}
	}

	runs, err := r.provider.PageTextContent(ctx, req.PageNumber)
	if err != nil {
		return nil, &GeometryError{
			Reason: fmt.Sprintf("page %d text content unavailable", req.PageNumber),
			Err:    err,
		}
	}

	size, err := r.provider.PageDimensions(ctx, req.PageNumber)
	if err != nil {
		return nil, &GeometryError{
			Reason: fmt.Sprintf("page %d dimensions unavailable", req.PageNumber),
			Err:    err,
		}
	}

	layout := layoutRuns(runs)
	start, ok := layout.occurrence(term, req.MatchIndex)
	if !ok {
		return nil, nil
	}
	end := start + len(strings.ToLower(term))

	switch req.Mode {
	case ModeFullContext:
		return layout.contextRects(start, end, size, r.granularity), nil
	default:
		return layout.spanRects(start, end, size), nil
	}
}

// pageLayout indexes a page's runs by their offsets in the concatenated,
// lowercased page text.
type pageLayout struct {
	runs    []docproxy.TextRun
	offsets []int // start offset of each run in lower
	lower   string
}

func layoutRuns(runs []docproxy.TextRun) *pageLayout {
	var b strings.Builder
	offsets := make([]int, len(runs))
	for i, run := range runs {
		offsets[i] = b.Len()
		b.WriteString(strings.ToLower(run.Text))
	}
	return &pageLayout{runs: runs, offsets: offsets, lower: b.String()}
}

// occurrence finds the start offset of the index-th non-overlapping,
// case-insensitive occurrence of term.
func (l *pageLayout) occurrence(term string, index int) (int, bool) {
	needle := strings.ToLower(term)
	from := 0
	for i := 0; ; i++ {
		rel := strings.Index(l.lower[from:], needle)
		if rel < 0 {
			return 0, false
		}
		at := from + rel
		if i == index {
			return at, true
		}
		from = at + len(needle)
	}
}

// runLen returns the length of run i's lowercased text.
func (l *pageLayout) runLen(i int) int {
	if i+1 < len(l.offsets) {
		return l.offsets[i+1] - l.offsets[i]
	}
	return len(l.lower) - l.offsets[i]
}

// spanRects emits one rectangle per run overlapping [start, end), clipped
// horizontally in proportion to the overlapped glyphs, then merges adjacent
// same-line rectangles.
func (l *pageLayout) spanRects(start, end int, size docproxy.Size) []Rect {
	var rects []Rect
	for i, run := range l.runs {
		runStart := l.offsets[i]
		runEnd := runStart + l.runLen(i)
		if runEnd <= start || runStart >= end || runStart == runEnd {
			continue
		}

		overlapStart := max(start, runStart)
		overlapEnd := min(end, runEnd)
		n := float64(runEnd - runStart)
		fracStart := float64(overlapStart-runStart) / n
		fracWidth := float64(overlapEnd-overlapStart) / n

		rects = append(rects, flip(Rect{
			X:      run.X + run.Width*fracStart,
			Y:      run.Y,
			Width:  run.Width * fracWidth,
			Height: run.Height,
		}, size))
	}
	return mergeAdjacent(rects)
}

// contextRects emits one rectangle per chunk line overlapping [start, end),
// each bounding the entire line (or paragraph of lines).
func (l *pageLayout) contextRects(start, end int, size docproxy.Size, g Granularity) []Rect {
	lines := l.splitLines()

	hit := make([]bool, len(lines))
	for li, line := range lines {
		for _, ri := range line {
			runStart := l.offsets[ri]
			runEnd := runStart + l.runLen(ri)
			if runEnd > start && runStart < end {
				hit[li] = true
				break
			}
		}
	}

	if g == GranularityParagraph {
		l.growToParagraphs(lines, hit)
	}

	var rects []Rect
	for li, line := range lines {
		if !hit[li] {
			continue
		}
		rects = append(rects, flip(l.lineBounds(line), size))
	}
	return rects
}

// splitLines groups run indices into visual lines by baseline proximity.
// Runs are assumed to arrive in reading order.
func (l *pageLayout) splitLines() [][]int {
	var lines [][]int
	var current []int
	var baseline float64

	for i, run := range l.runs {
		if len(current) == 0 {
			current = []int{i}
			baseline = run.Y
			continue
		}
		if math.Abs(run.Y-baseline) <= run.Height/2 {
			current = append(current, i)
			continue
		}
		lines = append(lines, current)
		current = []int{i}
		baseline = run.Y
	}
	if len(current) > 0 {
		lines = append(lines, current)
	}
	return lines
}

// growToParagraphs marks the neighbors of hit lines while the baseline gap
// stays within normal leading.
func (l *pageLayout) growToParagraphs(lines [][]int, hit []bool) {
	gapOK := func(a, b []int) bool {
		ya := l.runs[a[0]].Y
		yb := l.runs[b[0]].Y
		lead := math.Max(l.runs[a[0]].Height, l.runs[b[0]].Height) * 2.5
		return math.Abs(ya-yb) <= lead
	}

	changed := true
	for changed {
		changed = false
		for i := range lines {
			if !hit[i] {
				continue
			}
			if i > 0 && !hit[i-1] && gapOK(lines[i-1], lines[i]) {
				hit[i-1] = true
				changed = true
			}
			if i+1 < len(lines) && !hit[i+1] && gapOK(lines[i], lines[i+1]) {
				hit[i+1] = true
				changed = true
			}
		}
	}
}

// lineBounds returns the unflipped bounding rectangle of the runs on a line.
func (l *pageLayout) lineBounds(line []int) Rect {
	first := l.runs[line[0]]
	minX, maxX := first.X, first.X+first.Width
	minY, maxY := first.Y, first.Y+first.Height
	for _, ri := range line[1:] {
		run := l.runs[ri]
		minX = math.Min(minX, run.X)
		maxX = math.Max(maxX, run.X+run.Width)
		minY = math.Min(minY, run.Y)
		maxY = math.Max(maxY, run.Y+run.Height)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// flip converts a rectangle from the proxy's bottom-left origin to the
// top-left origin the rendering layer draws in.
func flip(r Rect, size docproxy.Size) Rect {
	return Rect{
		X:      r.X,
		Y:      size.Height - (r.Y + r.Height),
		Width:  r.Width,
		Height: r.Height,
	}
}

// mergeAdjacent coalesces rectangles that sit on the same line with no
// horizontal gap between them, so a match crossing several runs on one line
// renders as a single box.
func mergeAdjacent(rects []Rect) []Rect {
	if len(rects) < 2 {
		return rects
	}

	const gap = 1.0
	out := []Rect{rects[0]}
	for _, r := range rects[1:] {
		last := &out[len(out)-1]
		sameLine := math.Abs(r.Y-last.Y) <= last.Height/2
		touching := r.X >= last.X && r.X-(last.X+last.Width) <= gap
		if sameLine && touching {
			right := math.Max(last.X+last.Width, r.X+r.Width)
			last.Width = right - last.X
			last.Height = math.Max(last.Height, r.Height)
			continue
		}
		out = append(out, r)
	}
	return out
}
