// Package schema parses the declarative extraction-field schema and
// validates values against it.
//
// A schema document groups fields into sections; parsing flattens it into a
// path-addressed field list ("sectionId.fieldId") so values round-trip
// through the composite-keyed field map.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paperdock/paperdock/internal/fields"
)

// FieldType enumerates the supported field kinds.
type FieldType string

const (
	TypeText     FieldType = "text"
	TypeNumber   FieldType = "number"
	TypeSelect   FieldType = "select"
	TypeTextarea FieldType = "textarea"
)

func validType(t FieldType) bool {
	switch t {
	case TypeText, TypeNumber, TypeSelect, TypeTextarea:
		return true
	}
	return false
}

// Field is one extraction field. SectionID is filled in during parsing so a
// flattened field carries its fully-qualified path.
type Field struct {
	ID          string    `json:"id"`
	Label       string    `json:"label"`
	Type        FieldType `json:"type"`
	Required    bool      `json:"required,omitempty"`
	Placeholder string    `json:"placeholder,omitempty"`
	Options     []string  `json:"options,omitempty"`
	SectionID   string    `json:"-"`
}

// Path returns the fully-qualified field path used as a field-map key.
func (f Field) Path() string {
	return f.SectionID + "." + f.ID
}

// Section groups fields under one heading.
type Section struct {
	ID     string  `json:"id"`
	Label  string  `json:"label"`
	Fields []Field `json:"fields"`
}

// Parsed is the validated, flattened form of a schema document. Parse is the
// only constructor, so a Parsed value always satisfies the schema
// invariants: unique section ids, unique sibling field ids, options present
// on every select field.
type Parsed struct {
	Version  string
	Sections []Section

	flat   []Field
	byPath map[string]int
}

// ParseError names the schema location that failed to parse.
type ParseError struct {
	Section string
	Field   string
	Reason  string
}

func (e *ParseError) Error() string {
	switch {
	case e.Section == "":
		return "schema: " + e.Reason
	case e.Field == "":
		return fmt.Sprintf("schema section %q: %s", e.Section, e.Reason)
	default:
		return fmt.Sprintf("schema field %q in section %q: %s", e.Field, e.Section, e.Reason)
	}
}

type rawDocument struct {
	Version  json.RawMessage `json:"version"`
	Sections []Section       `json:"sections"`
}

// Parse decodes and validates a schema document. It is pure: the same bytes
// always yield the same flattened field list and path strings.
func Parse(raw []byte) (*Parsed, error) {
	var doc rawDocument
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&doc); err != nil {
		return nil, &ParseError{Reason: "not a valid schema document: " + err.Error()}
	}

	version, ok := decodeVersion(doc.Version)
	if !ok {
		return nil, &ParseError{Reason: "missing version"}
	}

	p := &Parsed{
		Version:  version,
		Sections: doc.Sections,
		byPath:   make(map[string]int),
	}

	seenSections := make(map[string]bool)
	for si := range p.Sections {
		sec := &p.Sections[si]
		if sec.ID == "" {
			return nil, &ParseError{Section: sec.Label, Reason: "section missing id"}
		}
		if !fields.ValidID(sec.ID) {
			return nil, &ParseError{Section: sec.ID, Reason: "section id may not contain ':' or '.'"}
		}
		if seenSections[sec.ID] {
			return nil, &ParseError{Section: sec.ID, Reason: "duplicate section id"}
		}
		seenSections[sec.ID] = true

		seenFields := make(map[string]bool)
		for fi := range sec.Fields {
			f := &sec.Fields[fi]
			f.SectionID = sec.ID

			if f.ID == "" {
				return nil, &ParseError{Section: sec.ID, Field: f.Label, Reason: "field missing id"}
			}
			if !fields.ValidID(f.ID) {
				return nil, &ParseError{Section: sec.ID, Field: f.ID,
					Reason: "field id may not contain ':' or '.'"}
			}
			if f.Type == "" {
				return nil, &ParseError{Section: sec.ID, Field: f.ID, Reason: "field missing type"}
			}
			if !validType(f.Type) {
				return nil, &ParseError{Section: sec.ID, Field: f.ID,
					Reason: fmt.Sprintf("unknown field type %q", f.Type)}
			}
			if seenFields[f.ID] {
				return nil, &ParseError{Section: sec.ID, Field: f.ID, Reason: "duplicate field id"}
			}
			seenFields[f.ID] = true

			if f.Type == TypeSelect && len(f.Options) == 0 {
				return nil, &ParseError{Section: sec.ID, Field: f.ID,
					Reason: "select field declares no options"}
			}

			p.byPath[f.Path()] = len(p.flat)
			p.flat = append(p.flat, *f)
		}
	}

	return p, nil
}

// decodeVersion accepts the version as either a JSON string or a number, and
// normalizes it to its string form.
func decodeVersion(raw json.RawMessage) (string, bool) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return "", false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return "", false
		}
		return s, true
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}
	return "", false
}

// Fields returns the flattened field list in document order.
func (p *Parsed) Fields() []Field {
	return p.flat
}

// FieldByPath looks up a field by its fully-qualified path.
func (p *Parsed) FieldByPath(path string) (Field, bool) {
	i, ok := p.byPath[path]
	if !ok {
		return Field{}, false
	}
	return p.flat[i], true
}

// Result reports the outcome of validating one value.
type Result struct {
	// Known is false when the path does not name a schema field.
	Known bool
	// OK is true when the value passed every rule for its field type.
	OK bool
	// Reason explains a failure in user-facing terms.
	Reason string
}

func pass() Result { return Result{Known: true, OK: true} }

func fail(reason string) Result { return Result{Known: true, Reason: reason} }

// Validate checks value against the field addressed by path. It is pure and
// idempotent; unknown paths report Known=false rather than failing, so
// callers can distinguish "bad value" from "stale key".
func (p *Parsed) Validate(path, value string) Result {
	field, ok := p.FieldByPath(path)
	if !ok {
		return Result{}
	}

	if value == "" {
		if field.Required {
			return fail("field required")
		}
		return pass()
	}

	switch field.Type {
	case TypeNumber:
		n, err := strconv.ParseFloat(value, 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return fail(fmt.Sprintf("%q is not a finite number", value))
		}
	case TypeSelect:
		for _, opt := range field.Options {
			if value == opt {
				return pass()
			}
		}
		return fail(fmt.Sprintf("%q is not one of the declared options %v", value, field.Options))
	case TypeText, TypeTextarea:
		// No constraint beyond required.
	}

	return pass()
}
