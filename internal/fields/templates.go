package fields

import "sort"

// Template describes one data-entry field offered on a page.
type Template struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Placeholder string `json:"placeholder,omitempty"`
}

// PageTemplates maps a page number to the ordered field templates shown for
// that page.
type PageTemplates map[int][]Template

// DefaultTemplates seeds the fields a fresh project offers on its first
// three pages, matching where identification, methods and outcome details
// usually sit in a paper.
func DefaultTemplates() PageTemplates {
	return PageTemplates{
		1: {
			{ID: "study_id", Label: "Study ID", Placeholder: "DOI or registry number"},
			{ID: "title", Label: "Title"},
			{ID: "first_author", Label: "First author"},
			{ID: "year", Label: "Publication year"},
		},
		2: {
			{ID: "design", Label: "Study design"},
			{ID: "sample_size", Label: "Sample size"},
			{ID: "population", Label: "Population"},
		},
		3: {
			{ID: "primary_outcome", Label: "Primary outcome"},
			{ID: "effect_size", Label: "Effect size"},
			{ID: "notes", Label: "Notes"},
		},
	}
}

// Add appends a template to a page, replacing any existing template with the
// same id so repeated adds stay idempotent.
func (pt PageTemplates) Add(page int, tpl Template) PageTemplates {
	next := pt.Clone()
	list := next[page]
	for i, existing := range list {
		if existing.ID == tpl.ID {
			list[i] = tpl
			next[page] = list
			return next
		}
	}
	next[page] = append(list, tpl)
	return next
}

// Remove deletes the template with the given id from a page. Removing an
// unknown id is a no-op.
func (pt PageTemplates) Remove(page int, id string) PageTemplates {
	next := pt.Clone()
	list := next[page]
	for i, existing := range list {
		if existing.ID == id {
			next[page] = append(append([]Template{}, list[:i]...), list[i+1:]...)
			if len(next[page]) == 0 {
				delete(next, page)
			}
			return next
		}
	}
	return next
}

// ForPage returns the templates for one page in declaration order.
func (pt PageTemplates) ForPage(page int) []Template {
	return pt[page]
}

// Pages returns the page numbers that carry templates, in ascending order.
func (pt PageTemplates) Pages() []int {
	pages := make([]int, 0, len(pt))
	for page := range pt {
		pages = append(pages, page)
	}
	sort.Ints(pages)
	return pages
}

// Clone returns a deep copy, so callers can hold a snapshot without
// aliasing the source map.
func (pt PageTemplates) Clone() PageTemplates {
	next := make(PageTemplates, len(pt))
	for page, list := range pt {
		next[page] = append([]Template{}, list...)
	}
	return next
}
