package highlight

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"unicode/utf8"
)

const excerptRadius = 40

// Match is one search hit, ordered by page then occurrence, suitable for
// "match N of M" navigation.
type Match struct {
	PageNumber int    `json:"pageNumber"`
	MatchIndex int    `json:"matchIndex"` // occurrence index within the page
	Excerpt    string `json:"excerpt"`
}

// Search scans every page for case-insensitive occurrences of term and
// returns them in document order. Pages whose text cannot be read are
// skipped; the search result is best-effort, not transactional.
func (r *Resolver) Search(ctx context.Context, term string) ([]Match, error) {
	if strings.TrimSpace(term) == "" {
		return nil, &GeometryError{Reason: "empty search term"}
	}

	pageCount, err := r.provider.PageCount(ctx)
	if err != nil {
		return nil, &GeometryError{Reason: "page count unavailable", Err: err}
	}

	var matches []Match
	for page := 1; page <= pageCount; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		runs, err := r.provider.PageTextContent(ctx, page)
		if err != nil {
			continue
		}

		layout := layoutRuns(runs)
		for i := 0; ; i++ {
			at, ok := layout.occurrence(term, i)
			if !ok {
				break
			}
			matches = append(matches, Match{
				PageNumber: page,
				MatchIndex: i,
				Excerpt:    excerpt(layout.lower, at, len(strings.ToLower(term))),
			})
		}
	}
	return matches, nil
}

// ResolveAll turns search matches into search-kind highlights, one per
// resolved rectangle. Matches that no longer resolve (page content changed
// underneath) are dropped.
func (r *Resolver) ResolveAll(ctx context.Context, term string, matches []Match) ([]Highlight, error) {
	var out []Highlight
	for _, m := range matches {
		rects, err := r.Resolve(ctx, Request{
			PageNumber:  m.PageNumber,
			MatchedText: term,
			MatchIndex:  m.MatchIndex,
			Mode:        ModeExactTerm,
			AnchorText:  term,
		})
		if err != nil {
			return nil, err
		}
		for _, rect := range rects {
			out = append(out, New(term, KindSearch, m.PageNumber, rect))
		}
	}
	return out, nil
}

func excerpt(text string, at, length int) string {
	// The radius is in bytes; back the cut points up to rune boundaries so
	// a window landing mid-rune cannot emit invalid UTF-8.
	start := max(at-excerptRadius, 0)
	for start > 0 && !utf8.RuneStart(text[start]) {
		start--
	}
	end := min(at+length+excerptRadius, len(text))
	for end < len(text) && !utf8.RuneStart(text[end]) {
		end++
	}

	prefix, suffix := "", ""
	if start > 0 {
		prefix = "…"
	}
	if end < len(text) {
		suffix = "…"
	}
	return prefix + text[start:end] + suffix
}

// Session serializes search result application. Every search takes a
// sequence number before it starts; results applied out of order are
// discarded, so a search racing a page navigation can never publish stale
// rectangles.
type Session struct {
	seq atomic.Int64

	mu      sync.Mutex
	applied int64
	term    string
	matches []Match
	results []Highlight
}

// Begin reserves the next sequence number.
func (s *Session) Begin() int64 {
	return s.seq.Add(1)
}

// Apply publishes a search outcome. It reports false, discarding the
// results, when a later sequence number has already been applied.
func (s *Session) Apply(seq int64, term string, matches []Match, results []Highlight) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq <= s.applied {
		return false
	}
	s.applied = seq
	s.term = term
	s.matches = matches
	s.results = results
	return true
}

// Clear drops the current results, superseding any in-flight search.
func (s *Session) Clear() {
	s.Apply(s.Begin(), "", nil, nil)
}

// Current returns the applied term, matches, and search highlights.
func (s *Session) Current() (string, []Match, []Highlight) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.term, s.matches, s.results
}

// String renders the session state as a match counter.
func (s *Session) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.term == "" {
		return "no active search"
	}
	return fmt.Sprintf("%d match(es) for %q", len(s.matches), s.term)
}
