// Package fields implements the composite-keyed field value map shared by
// page-template data entry and schema-driven data entry.
//
// Two key dialects address a value: page keys encode as "{page}:{fieldId}"
// and schema path keys encode as "{sectionId}.{fieldId}". The dialects are
// kept as distinct types with an explicit encode/decode pair so the two can
// never collide on a shared delimiter.
package fields

import (
	"fmt"
	"strconv"
	"strings"
)

// Key addresses a single value in a Map.
type Key interface {
	// Encode returns the composite string form used for persistence.
	Encode() string
	// Scope returns the addressing unit without the field id: the page
	// number rendered as decimal, or the section id.
	Scope() string
	// FieldID returns the field identifier within the scope.
	FieldID() string
}

// ValidID reports whether id can appear inside a composite key. The two key
// dialects reserve ':' and '.' as delimiters, so an identifier containing
// either would decode into the wrong scope.
func ValidID(id string) bool {
	return id != "" && !strings.ContainsAny(id, ":.")
}

// PageKey addresses a per-page template field.
type PageKey struct {
	Page  int
	Field string
}

func (k PageKey) Encode() string  { return strconv.Itoa(k.Page) + ":" + k.Field }
func (k PageKey) Scope() string   { return strconv.Itoa(k.Page) }
func (k PageKey) FieldID() string { return k.Field }

// PathKey addresses a schema field by its fully-qualified path.
type PathKey struct {
	Section string
	Field   string
}

func (k PathKey) Encode() string  { return k.Section + "." + k.Field }
func (k PathKey) Scope() string   { return k.Section }
func (k PathKey) FieldID() string { return k.Field }

// ParseKey decodes a composite key string back into its typed form. Dispatch
// is on which delimiter is present: a ':' marks the page dialect, otherwise
// the last '.' splits a schema path. ValidID bars new identifiers from
// carrying either delimiter; splitting on the last '.' keeps legacy keys
// with dotted section ids decoding to the right field.
func ParseKey(s string) (Key, error) {
	if i := strings.IndexByte(s, ':'); i >= 0 {
		page, err := strconv.Atoi(s[:i])
		if err != nil {
			return nil, fmt.Errorf("invalid page key %q: %w", s, err)
		}
		if s[i+1:] == "" {
			return nil, fmt.Errorf("invalid page key %q: empty field id", s)
		}
		return PageKey{Page: page, Field: s[i+1:]}, nil
	}

	if i := strings.LastIndexByte(s, '.'); i > 0 && i < len(s)-1 {
		return PathKey{Section: s[:i], Field: s[i+1:]}, nil
	}

	return nil, fmt.Errorf("invalid composite key %q", s)
}
