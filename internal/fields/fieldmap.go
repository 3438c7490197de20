package fields

import "strings"

// Map holds field values addressed by encoded composite keys. The zero value
// (nil) is a valid empty map; mutating operations return a new Map and leave
// the receiver untouched.
type Map map[string]string

// Value returns the stored value for k, or the empty string when absent.
func (m Map) Value(k Key) string {
	return m[k.Encode()]
}

// WithValue returns a copy of m with k set to value. Setting the empty
// string removes the entry so persisted maps never accumulate blanks.
func (m Map) WithValue(k Key, value string) Map {
	next := make(Map, len(m)+1)
	for key, v := range m {
		next[key] = v
	}
	if value == "" {
		delete(next, k.Encode())
	} else {
		next[k.Encode()] = value
	}
	return next
}

// ForPage returns the fieldId→value pairs stored under the page dialect for
// one page. The prefix test anchors on the ':' delimiter so page 1 never
// picks up page 10's fields.
func (m Map) ForPage(page int) map[string]string {
	return m.forPrefix(PageKey{Page: page}.Scope() + ":")
}

// ForSection returns the fieldId→value pairs stored under the schema dialect
// for one section, keyed by bare field id.
func (m Map) ForSection(sectionID string) map[string]string {
	return m.forPrefix(sectionID + ".")
}

func (m Map) forPrefix(prefix string) map[string]string {
	out := make(map[string]string)
	for key, value := range m {
		if strings.HasPrefix(key, prefix) {
			out[key[len(prefix):]] = value
		}
	}
	return out
}
