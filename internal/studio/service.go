// Package studio wires the extraction core together behind a single
// service: project lifecycle, field maps, templates, schema validation,
// highlights, search, and export for the one active project.
package studio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/paperdock/paperdock/internal/docproxy"
	"github.com/paperdock/paperdock/internal/export"
	"github.com/paperdock/paperdock/internal/fields"
	"github.com/paperdock/paperdock/internal/highlight"
	"github.com/paperdock/paperdock/internal/project"
	"github.com/paperdock/paperdock/internal/schema"
	"github.com/paperdock/paperdock/internal/storage"
)

// Service owns the in-memory state of the active project. All operations
// serialize on one mutex: there is a single user and a single active
// project, and project switches must act as a barrier between the old
// project's writes and the new project's reads.
type Service struct {
	mu       sync.Mutex
	store    *storage.Store
	projects *project.Manager
	parsed   *schema.Parsed
	resolver *highlight.Resolver
	session  highlight.Session
	now      func() time.Time

	// Active-project collections, loaded on switch and written through on
	// every mutation.
	pageForm   fields.Map
	schemaForm fields.Map
	templates  fields.PageTemplates
	highlights []highlight.Highlight
}

// NewService loads the persisted lifecycle state and the active project's
// collections.
func NewService(st *storage.Store) *Service {
	s := &Service{
		store:    st,
		projects: project.NewManager(st),
		now:      time.Now,
	}
	s.loadCollections()
	return s
}

// AttachDocument connects the document proxy used for search and geometry
// resolution. Until a document is attached, search operations fail softly.
func (s *Service) AttachDocument(p docproxy.Provider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolver = highlight.NewResolver(p)
	s.session.Clear()
}

// loadCollections replaces the in-memory caches with the active project's
// persisted state. Corrupt or missing collections come back as safe
// defaults; a fresh project gets the default page templates.
func (s *Service) loadCollections() {
	current := s.projects.Current()

	s.pageForm = fields.Map{}
	s.store.Load(storage.ProjectKey(current, storage.DataPageForm), &s.pageForm)

	s.schemaForm = fields.Map{}
	s.store.Load(storage.ProjectKey(current, storage.DataSchemaForm), &s.schemaForm)

	s.templates = nil
	if !s.store.Load(storage.ProjectKey(current, storage.DataTemplates), &s.templates) || s.templates == nil {
		s.templates = fields.DefaultTemplates()
	}

	s.highlights = highlight.Load(s.store, current)
}

// Project lifecycle

// CurrentProject returns the active project name.
func (s *Service) CurrentProject() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projects.Current()
}

// ListProjects reports every project and the active one.
func (s *Service) ListProjects() *ProjectListResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.projects.State()
	return &ProjectListResult{Projects: state.Projects, Current: state.Current}
}

// CreateProject creates and activates a new project.
func (s *Service) CreateProject(req ProjectCreateRequest) (*ProjectListResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.projects.Create(req.Name); err != nil {
		return nil, err
	}
	s.loadCollections()
	s.session.Clear()

	state := s.projects.State()
	return &ProjectListResult{Projects: state.Projects, Current: state.Current}, nil
}

// SwitchProject activates an existing project. The old project's state is
// already persisted (every mutation writes through), so the switch barrier
// reduces to reloading collections under the same lock.
func (s *Service) SwitchProject(req ProjectSwitchRequest) (*ProjectListResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed, err := s.projects.SwitchTo(req.Name)
	if err != nil {
		return nil, err
	}
	if changed {
		s.loadCollections()
		s.session.Clear()
	}

	state := s.projects.State()
	return &ProjectListResult{Projects: state.Projects, Current: state.Current}, nil
}

// DeleteProject removes a project and its data, falling back to the default
// project when the active one is deleted.
func (s *Service) DeleteProject(req ProjectDeleteRequest) (*ProjectListResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wasCurrent := req.Name == s.projects.Current()
	if err := s.projects.Delete(req.Name); err != nil {
		return nil, err
	}
	if wasCurrent {
		s.loadCollections()
		s.session.Clear()
	}

	state := s.projects.State()
	return &ProjectListResult{Projects: state.Projects, Current: state.Current}, nil
}

// Field values

func (req FieldSetRequest) key() (fields.Key, error) {
	if !fields.ValidID(req.FieldID) {
		return nil, fmt.Errorf("invalid field id %q: must be non-empty and contain no ':' or '.'", req.FieldID)
	}
	switch {
	case req.Page > 0 && req.Section == "":
		return fields.PageKey{Page: req.Page, Field: req.FieldID}, nil
	case req.Page == 0 && req.Section != "":
		if !fields.ValidID(req.Section) {
			return nil, fmt.Errorf("invalid section id %q: must contain no ':' or '.'", req.Section)
		}
		return fields.PathKey{Section: req.Section, Field: req.FieldID}, nil
	default:
		return nil, fmt.Errorf("exactly one of page or section must be set")
	}
}

// SetField writes one field value. Schema-dialect writes are validated
// against the active schema: a required field may not be cleared, while a
// value of the wrong shape is stored and flagged so the user can come back
// to it.
func (s *Service) SetField(req FieldSetRequest) (*FieldSetResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.FieldID == "" {
		return nil, fmt.Errorf("field id cannot be empty")
	}
	key, err := req.key()
	if err != nil {
		return nil, err
	}

	result := &FieldSetResult{Key: key.Encode(), Stored: true, Valid: true}

	if pathKey, ok := key.(fields.PathKey); ok && s.parsed != nil {
		v := s.parsed.Validate(pathKey.Encode(), req.Value)
		if v.Known && !v.OK {
			result.Valid = false
			result.Reason = v.Reason
			if field, _ := s.parsed.FieldByPath(pathKey.Encode()); field.Required && req.Value == "" {
				result.Stored = false
				return result, nil
			}
		}
	}

	switch key.(type) {
	case fields.PathKey:
		s.schemaForm = s.schemaForm.WithValue(key, req.Value)
		err = s.persist(storage.DataSchemaForm, s.schemaForm)
	default:
		s.pageForm = s.pageForm.WithValue(key, req.Value)
		err = s.persist(storage.DataPageForm, s.pageForm)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetField reads one field value; absent fields read as empty.
func (s *Service) GetField(req FieldGetRequest) (*FieldGetResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, err := FieldSetRequest{Page: req.Page, Section: req.Section, FieldID: req.FieldID}.key()
	if err != nil {
		return nil, err
	}

	m := s.pageForm
	if _, ok := key.(fields.PathKey); ok {
		m = s.schemaForm
	}
	return &FieldGetResult{Key: key.Encode(), Value: m.Value(key)}, nil
}

// PageFields returns the template-dialect values stored for one page.
func (s *Service) PageFields(page int) map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pageForm.ForPage(page)
}

// SectionFields returns the schema-dialect values stored for one section.
func (s *Service) SectionFields(sectionID string) map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schemaForm.ForSection(sectionID)
}

// Templates

// AddTemplate adds or replaces a field template on a page.
func (s *Service) AddTemplate(req TemplateAddRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.Page < 1 {
		return fmt.Errorf("page must be positive")
	}
	if req.Template.ID == "" {
		return fmt.Errorf("template id cannot be empty")
	}

	s.templates = s.templates.Add(req.Page, req.Template)
	return s.persist(storage.DataTemplates, s.templates)
}

// RemoveTemplate removes a field template from a page.
func (s *Service) RemoveTemplate(req TemplateRemoveRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.templates = s.templates.Remove(req.Page, req.FieldID)
	return s.persist(storage.DataTemplates, s.templates)
}

// Templates returns a snapshot of the active project's page templates.
func (s *Service) Templates() fields.PageTemplates {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.templates.Clone()
}

// Schema

// LoadSchema parses and activates a schema document. A parse failure leaves
// any previously active schema in place: schema mode degrades alone and
// template-dialect entry keeps working.
func (s *Service) LoadSchema(req SchemaLoadRequest) (*SchemaLoadResult, error) {
	parsed, err := schema.Parse(req.Raw)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.parsed = parsed

	paths := make([]string, 0, len(parsed.Fields()))
	for _, f := range parsed.Fields() {
		paths = append(paths, f.Path())
	}
	return &SchemaLoadResult{Version: parsed.Version, FieldPaths: paths}, nil
}

// Schema returns the active parsed schema, or nil when none is loaded.
func (s *Service) Schema() *schema.Parsed {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.parsed
}

// Highlights

// AddHighlight creates and persists a durable user highlight.
func (s *Service) AddHighlight(req HighlightAddRequest) (*highlight.Highlight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.PageNumber < 1 {
		return nil, fmt.Errorf("page number must be positive")
	}

	h := highlight.New(req.Label, highlight.KindUser, req.PageNumber, req.Rect)
	next := append(append([]highlight.Highlight{}, s.highlights...), h)
	if err := highlight.Save(s.store, s.projects.Current(), next); err != nil {
		return nil, err
	}
	s.highlights = next
	return &h, nil
}

// RemoveHighlight deletes one user highlight. Unknown ids are a no-op.
func (s *Service) RemoveHighlight(req HighlightRemoveRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]highlight.Highlight, 0, len(s.highlights))
	for _, h := range s.highlights {
		if h.ID != req.ID {
			next = append(next, h)
		}
	}
	if len(next) == len(s.highlights) {
		return nil
	}
	if err := highlight.Save(s.store, s.projects.Current(), next); err != nil {
		return err
	}
	s.highlights = next
	return nil
}

// Highlights returns the durable user highlights followed by the current
// search highlights.
func (s *Service) Highlights() []highlight.Highlight {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, _, searchHits := s.session.Current()
	out := make([]highlight.Highlight, 0, len(s.highlights)+len(searchHits))
	out = append(out, s.highlights...)
	out = append(out, searchHits...)
	return out
}

// Search runs a document-wide search and replaces the search highlights
// wholesale. Results from a search that was superseded while running are
// returned for inspection but not applied.
func (s *Service) Search(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	s.mu.Lock()
	resolver := s.resolver
	s.mu.Unlock()

	if resolver == nil {
		return nil, fmt.Errorf("no document attached")
	}

	seq := s.session.Begin()

	matches, err := resolver.Search(ctx, req.Term)
	if err != nil {
		return nil, err
	}
	hits, err := resolver.ResolveAll(ctx, req.Term, matches)
	if err != nil {
		return nil, err
	}

	applied := s.session.Apply(seq, req.Term, matches, hits)
	return &SearchResult{
		Term:       req.Term,
		Matches:    matches,
		Highlights: hits,
		Superseded: !applied,
	}, nil
}

// Export

// Export renders the active project's bundle in the requested format.
func (s *Service) Export(req ExportRequest) (*ExportResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bundle := export.Bundle{
		Project:    s.projects.Current(),
		ExportedAt: s.now(),
		Highlights: append([]highlight.Highlight{}, s.highlights...),
		Templates:  s.templates,
		PageForm:   s.pageForm,
	}
	if len(s.schemaForm) > 0 {
		bundle.SchemaData = s.schemaForm
	}
	if s.parsed != nil {
		bundle.SchemaVersion = s.parsed.Version
	}

	switch req.Format {
	case "json", "":
		data, err := export.ToJSON(bundle)
		if err != nil {
			return nil, err
		}
		return &ExportResult{
			Filename: export.Filename(bundle.Project, "json", bundle.ExportedAt),
			Data:     data,
		}, nil
	case "csv":
		data, err := export.ToCSV(bundle)
		if err != nil {
			return nil, err
		}
		return &ExportResult{
			Filename: export.Filename(bundle.Project, "csv", bundle.ExportedAt),
			Data:     data,
		}, nil
	default:
		return nil, fmt.Errorf("unknown export format %q", req.Format)
	}
}

// persist writes one collection of the active project through to storage.
func (s *Service) persist(dataType string, v any) error {
	return s.store.Save(storage.ProjectKey(s.projects.Current(), dataType), v)
}
