// Package export builds the point-in-time export bundle for a project and
// serializes it to JSON and CSV.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/paperdock/paperdock/internal/fields"
	"github.com/paperdock/paperdock/internal/highlight"
)

// Bundle is the merged snapshot of one project's durable collections. It is
// built on demand and never persisted.
type Bundle struct {
	Project       string                `json:"project"`
	ExportedAt    time.Time             `json:"exportedAt"`
	Highlights    []highlight.Highlight `json:"highlights"`
	Templates     fields.PageTemplates  `json:"templates"`
	PageForm      fields.Map            `json:"pageForm"`
	SchemaData    fields.Map            `json:"schemaData,omitempty"`
	SchemaVersion string                `json:"schemaVersion,omitempty"`
}

// csvHeader is the fixed column layout. Rows carry a leading type
// discriminator so highlight facts and field facts coexist in one table.
var csvHeader = []string{"type", "id", "label", "page", "kind", "scope", "fieldId", "value"}

// ToJSON serializes a bundle. Output is deterministic for unchanged
// collections except for the exportedAt timestamp: maps encode with sorted
// keys and slices keep stored order.
func ToJSON(b Bundle) ([]byte, error) {
	if b.Highlights == nil {
		b.Highlights = []highlight.Highlight{}
	}
	if b.Templates == nil {
		b.Templates = fields.PageTemplates{}
	}
	if b.PageForm == nil {
		b.PageForm = fields.Map{}
	}

	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode export bundle: %w", err)
	}
	return data, nil
}

// ToCSV flattens a bundle into one row per fact: each highlight and each
// field value. Cells that do not apply to a row's type stay empty.
func ToCSV(b Bundle) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, h := range b.Highlights {
		row := []string{
			"highlight", h.ID, h.Label, strconv.Itoa(h.PageNumber), string(h.Kind),
			"", "", "",
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write highlight row: %w", err)
		}
	}

	if err := writeFieldRows(w, b.PageForm); err != nil {
		return nil, err
	}
	if err := writeFieldRows(w, b.SchemaData); err != nil {
		return nil, err
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}
	return buf.Bytes(), nil
}

// writeFieldRows emits field facts sorted by composite key for
// deterministic output. Keys that fail to parse are carried through with
// the raw key as scope so no stored fact silently disappears from an
// export.
func writeFieldRows(w *csv.Writer, m fields.Map) error {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	for _, key := range keys {
		scope, fieldID := key, ""
		if parsed, err := fields.ParseKey(key); err == nil {
			scope, fieldID = parsed.Scope(), parsed.FieldID()
		}
		row := []string{"field", "", "", "", "", scope, fieldID, m[key]}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write field row: %w", err)
		}
	}
	return nil
}

// Filename renders the conventional export file name for a project.
func Filename(project, ext string, at time.Time) string {
	return fmt.Sprintf("%s_export_%s.%s", project, at.UTC().Format("20060102T150405Z"), ext)
}
