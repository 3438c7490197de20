package studio

import (
	"github.com/paperdock/paperdock/internal/fields"
	"github.com/paperdock/paperdock/internal/highlight"
)

// Request Types

// ProjectCreateRequest asks for a new project to be created and activated.
type ProjectCreateRequest struct {
	Name string `json:"name"`
}

// ProjectSwitchRequest activates an existing project.
type ProjectSwitchRequest struct {
	Name string `json:"name"`
}

// ProjectDeleteRequest deletes a project and all of its data.
type ProjectDeleteRequest struct {
	Name string `json:"name"`
}

// FieldSetRequest writes one field value. Exactly one of Page or Section
// selects the key dialect: Page > 0 addresses template data, a non-empty
// Section addresses schema data.
type FieldSetRequest struct {
	Page    int    `json:"page,omitempty"`
	Section string `json:"section,omitempty"`
	FieldID string `json:"field_id"`
	Value   string `json:"value"`
}

// FieldGetRequest reads one field value.
type FieldGetRequest struct {
	Page    int    `json:"page,omitempty"`
	Section string `json:"section,omitempty"`
	FieldID string `json:"field_id"`
}

// TemplateAddRequest adds or replaces a field template on a page.
type TemplateAddRequest struct {
	Page     int             `json:"page"`
	Template fields.Template `json:"template"`
}

// TemplateRemoveRequest removes a field template from a page.
type TemplateRemoveRequest struct {
	Page    int    `json:"page"`
	FieldID string `json:"field_id"`
}

// SchemaLoadRequest parses and activates a schema document.
type SchemaLoadRequest struct {
	Raw []byte `json:"raw"`
}

// HighlightAddRequest creates a durable user highlight.
type HighlightAddRequest struct {
	Label      string         `json:"label"`
	PageNumber int            `json:"page_number"`
	Rect       highlight.Rect `json:"rect"`
}

// HighlightRemoveRequest deletes one user highlight by id.
type HighlightRemoveRequest struct {
	ID string `json:"id"`
}

// SearchRequest runs a document-wide text search and rebuilds the ephemeral
// search highlights.
type SearchRequest struct {
	Term string `json:"term"`
}

// ExportRequest renders the active project's export bundle.
type ExportRequest struct {
	Format string `json:"format"` // "json" or "csv"
}

// Result Types

// ProjectListResult reports the known projects and the active one.
type ProjectListResult struct {
	Projects []string `json:"projects"`
	Current  string   `json:"current"`
}

// FieldSetResult reports the outcome of a field write. A write may be
// stored yet flagged invalid: required-field violations block the write,
// type mismatches are stored and flagged.
type FieldSetResult struct {
	Key    string `json:"key"`
	Stored bool   `json:"stored"`
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// FieldGetResult carries one field value; absent fields read as empty.
type FieldGetResult struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// SchemaLoadResult summarizes an activated schema.
type SchemaLoadResult struct {
	Version    string   `json:"version"`
	FieldPaths []string `json:"field_paths"`
}

// SearchResult carries the ordered matches and the rebuilt search
// highlights. Superseded reports that a newer search finished first and
// these results were discarded.
type SearchResult struct {
	Term       string                `json:"term"`
	Matches    []highlight.Match     `json:"matches"`
	Highlights []highlight.Highlight `json:"highlights"`
	Superseded bool                  `json:"superseded"`
}

// ExportResult is a rendered export file.
type ExportResult struct {
	Filename string `json:"filename"`
	Data     []byte `json:"data"`
}
