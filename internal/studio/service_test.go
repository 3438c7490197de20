package studio

import (
	"context"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/hack-pad/hackpadfs/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperdock/paperdock/internal/docproxy"
	"github.com/paperdock/paperdock/internal/fields"
	"github.com/paperdock/paperdock/internal/highlight"
	"github.com/paperdock/paperdock/internal/project"
	"github.com/paperdock/paperdock/internal/schema"
	"github.com/paperdock/paperdock/internal/storage"
)

const testSchema = `{
	"version": "1",
	"sections": [{
		"id": "I",
		"label": "Identification",
		"fields": [
			{"id": "studyType", "label": "Study type", "type": "select",
			 "required": true, "options": ["RCT", "Cohort"]},
			{"id": "sampleSize", "label": "Sample size", "type": "number"}
		]
	}]
}`

func newTestService(t *testing.T) *Service {
	t.Helper()
	fsys, err := mem.NewFS()
	require.NoError(t, err)
	st := storage.New(fsys, "data")
	st.Warnf = func(format string, args ...any) { t.Logf("warn: "+format, args...) }
	return NewService(st)
}

func TestService_FieldSurvivesProjectRoundTrip(t *testing.T) {
	s := newTestService(t)

	_, err := s.CreateProject(ProjectCreateRequest{Name: "trial-A"})
	require.NoError(t, err)

	_, err = s.SetField(FieldSetRequest{Page: 1, FieldID: "study_id", Value: "10.1/x"})
	require.NoError(t, err)

	_, err = s.SwitchProject(ProjectSwitchRequest{Name: "default"})
	require.NoError(t, err)

	got, err := s.GetField(FieldGetRequest{Page: 1, FieldID: "study_id"})
	require.NoError(t, err)
	assert.Empty(t, got.Value, "default project must not see trial-A data")

	_, err = s.SwitchProject(ProjectSwitchRequest{Name: "trial-A"})
	require.NoError(t, err)

	got, err = s.GetField(FieldGetRequest{Page: 1, FieldID: "study_id"})
	require.NoError(t, err)
	assert.Equal(t, "10.1/x", got.Value)
}

func TestService_SetFieldRequiresExactlyOneScope(t *testing.T) {
	s := newTestService(t)

	_, err := s.SetField(FieldSetRequest{FieldID: "f", Value: "v"})
	assert.Error(t, err)

	_, err = s.SetField(FieldSetRequest{Page: 1, Section: "I", FieldID: "f", Value: "v"})
	assert.Error(t, err)

	_, err = s.SetField(FieldSetRequest{Page: 1, Value: "v"})
	assert.Error(t, err, "empty field id")
}

func TestService_SetFieldRejectsDelimiterIDs(t *testing.T) {
	s := newTestService(t)

	// Ids carrying a key delimiter would encode to a composite key that
	// decodes into the wrong scope, so they never reach the field map.
	_, err := s.SetField(FieldSetRequest{Section: "a:b", FieldID: "f", Value: "v"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid section id "a:b"`)

	_, err = s.SetField(FieldSetRequest{Section: "I", FieldID: "f.g", Value: "v"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid field id "f.g"`)

	_, err = s.GetField(FieldGetRequest{Page: 1, FieldID: "f:g"})
	assert.Error(t, err)
}

func TestService_SchemaValidationPolicy(t *testing.T) {
	s := newTestService(t)
	_, err := s.LoadSchema(SchemaLoadRequest{Raw: []byte(testSchema)})
	require.NoError(t, err)

	// Valid select value stores cleanly.
	res, err := s.SetField(FieldSetRequest{Section: "I", FieldID: "studyType", Value: "RCT"})
	require.NoError(t, err)
	assert.True(t, res.Stored)
	assert.True(t, res.Valid)

	// Clearing a required field is blocked.
	res, err = s.SetField(FieldSetRequest{Section: "I", FieldID: "studyType", Value: ""})
	require.NoError(t, err)
	assert.False(t, res.Stored)
	assert.False(t, res.Valid)
	assert.Contains(t, res.Reason, "field required")

	got, err := s.GetField(FieldGetRequest{Section: "I", FieldID: "studyType"})
	require.NoError(t, err)
	assert.Equal(t, "RCT", got.Value, "blocked write must not change the stored value")

	// An options mismatch stores the value but flags it.
	res, err = s.SetField(FieldSetRequest{Section: "I", FieldID: "studyType", Value: "Cross-sectional"})
	require.NoError(t, err)
	assert.True(t, res.Stored)
	assert.False(t, res.Valid)
	assert.Contains(t, res.Reason, "not one of the declared options")

	// Unknown paths store without validation so stale keys keep working.
	res, err = s.SetField(FieldSetRequest{Section: "X", FieldID: "anything", Value: "v"})
	require.NoError(t, err)
	assert.True(t, res.Stored)
	assert.True(t, res.Valid)
}

func TestService_SchemaParseFailureLeavesTemplatesUsable(t *testing.T) {
	s := newTestService(t)

	_, err := s.LoadSchema(SchemaLoadRequest{Raw: []byte(`{"sections": []}`)})
	var parseErr *schema.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Nil(t, s.Schema())

	// Template-dialect entry is unaffected.
	res, err := s.SetField(FieldSetRequest{Page: 2, FieldID: "design", Value: "RCT"})
	require.NoError(t, err)
	assert.True(t, res.Stored)
}

func TestService_LifecycleErrorsPropagate(t *testing.T) {
	s := newTestService(t)
	_, err := s.CreateProject(ProjectCreateRequest{Name: "trial-A"})
	require.NoError(t, err)

	_, err = s.CreateProject(ProjectCreateRequest{Name: "trial-A"})
	var dup *project.DuplicateError
	assert.ErrorAs(t, err, &dup)

	_, err = s.DeleteProject(ProjectDeleteRequest{Name: "default"})
	var protected *project.ProtectedError
	assert.ErrorAs(t, err, &protected)
}

func TestService_DeleteCurrentFallsBackToDefault(t *testing.T) {
	s := newTestService(t)
	_, err := s.CreateProject(ProjectCreateRequest{Name: "trial-A"})
	require.NoError(t, err)
	_, err = s.SetField(FieldSetRequest{Page: 1, FieldID: "f", Value: "v"})
	require.NoError(t, err)

	res, err := s.DeleteProject(ProjectDeleteRequest{Name: "trial-A"})
	require.NoError(t, err)
	assert.Equal(t, "default", res.Current)
	assert.Empty(t, s.PageFields(1))
}

func TestService_FreshProjectSeedsDefaultTemplates(t *testing.T) {
	s := newTestService(t)

	for page := 1; page <= 3; page++ {
		assert.NotEmpty(t, s.Templates().ForPage(page))
	}

	require.NoError(t, s.AddTemplate(TemplateAddRequest{
		Page:     7,
		Template: fields.Template{ID: "dose", Label: "Dose"},
	}))
	assert.Len(t, s.Templates().ForPage(7), 1)

	require.NoError(t, s.RemoveTemplate(TemplateRemoveRequest{Page: 7, FieldID: "dose"}))
	assert.Empty(t, s.Templates().ForPage(7))
}

func TestService_TemplatesReturnsSnapshot(t *testing.T) {
	s := newTestService(t)

	snap := s.Templates()
	snap[1] = nil
	delete(snap, 2)
	snap[3][0].Label = "tampered"

	assert.NotEmpty(t, s.Templates().ForPage(1))
	assert.NotEmpty(t, s.Templates().ForPage(2))
	assert.NotEqual(t, "tampered", s.Templates().ForPage(3)[0].Label)
}

func TestService_HighlightLifecycle(t *testing.T) {
	s := newTestService(t)

	h, err := s.AddHighlight(HighlightAddRequest{
		Label:      "key finding",
		PageNumber: 2,
		Rect:       highlight.Rect{X: 10, Y: 20, Width: 30, Height: 8},
	})
	require.NoError(t, err)
	require.Len(t, s.Highlights(), 1)

	require.NoError(t, s.RemoveHighlight(HighlightRemoveRequest{ID: h.ID}))
	assert.Empty(t, s.Highlights())

	// Removing an unknown id is a no-op.
	assert.NoError(t, s.RemoveHighlight(HighlightRemoveRequest{ID: "ghost"}))
}

func TestService_SearchReplacesEphemeralHighlights(t *testing.T) {
	s := newTestService(t)
	s.AttachDocument(&fakeDoc{})

	_, err := s.AddHighlight(HighlightAddRequest{
		Label: "durable", PageNumber: 1, Rect: highlight.Rect{Width: 1, Height: 1},
	})
	require.NoError(t, err)

	res, err := s.Search(context.Background(), SearchRequest{Term: "alpha"})
	require.NoError(t, err)
	assert.False(t, res.Superseded)
	require.Len(t, res.Matches, 2)

	all := s.Highlights()
	var users, searches int
	for _, h := range all {
		switch h.Kind {
		case highlight.KindUser:
			users++
		case highlight.KindSearch:
			searches++
		}
	}
	assert.Equal(t, 1, users)
	assert.Equal(t, 2, searches)

	// A new search replaces the previous search highlights wholesale.
	res, err = s.Search(context.Background(), SearchRequest{Term: "beta"})
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)
	assert.Len(t, s.Highlights(), 2) // 1 user + 1 search
}

func TestService_SearchWithoutDocumentFails(t *testing.T) {
	s := newTestService(t)

	_, err := s.Search(context.Background(), SearchRequest{Term: "x"})
	assert.ErrorContains(t, err, "no document attached")
}

func TestService_ExportScenario(t *testing.T) {
	s := newTestService(t)
	s.now = func() time.Time { return time.Date(2026, 8, 26, 9, 30, 0, 0, time.UTC) }

	for _, label := range []string{"finding one", "finding two"} {
		_, err := s.AddHighlight(HighlightAddRequest{
			Label: label, PageNumber: 2, Rect: highlight.Rect{Width: 5, Height: 5},
		})
		require.NoError(t, err)
	}
	_, err := s.SetField(FieldSetRequest{Page: 1, FieldID: "study_id", Value: "10.1/x"})
	require.NoError(t, err)
	_, err = s.SetField(FieldSetRequest{Page: 2, FieldID: "design", Value: "RCT"})
	require.NoError(t, err)
	_, err = s.SetField(FieldSetRequest{Section: "I", FieldID: "studyType", Value: "Cohort"})
	require.NoError(t, err)

	res, err := s.Export(ExportRequest{Format: "csv"})
	require.NoError(t, err)
	assert.Equal(t, "default_export_20260826T093000Z.csv", res.Filename)

	records, err := csv.NewReader(strings.NewReader(string(res.Data))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 6) // header + 2 highlights + 3 fields

	counts := map[string]int{}
	for _, rec := range records[1:] {
		counts[rec[0]]++
	}
	assert.Equal(t, map[string]int{"highlight": 2, "field": 3}, counts)

	jsonRes, err := s.Export(ExportRequest{Format: "json"})
	require.NoError(t, err)
	assert.Contains(t, string(jsonRes.Data), `"project": "default"`)

	_, err = s.Export(ExportRequest{Format: "xml"})
	assert.Error(t, err)
}

// fakeDoc serves two occurrences of "alpha" on page 1 and one "beta" on
// page 2.
type fakeDoc struct{}

func (f *fakeDoc) PageCount(ctx context.Context) (int, error) { return 2, nil }

func (f *fakeDoc) PageTextContent(ctx context.Context, pageNumber int) ([]docproxy.TextRun, error) {
	switch pageNumber {
	case 1:
		return []docproxy.TextRun{
			{Text: "alpha then alpha again", X: 10, Y: 700, Width: 110, Height: 10},
		}, nil
	case 2:
		return []docproxy.TextRun{
			{Text: "only beta here", X: 10, Y: 700, Width: 70, Height: 10},
		}, nil
	}
	return nil, nil
}

func (f *fakeDoc) PageDimensions(ctx context.Context, pageNumber int) (docproxy.Size, error) {
	return docproxy.Size{Width: 600, Height: 800}, nil
}
