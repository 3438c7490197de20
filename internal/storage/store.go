// Package storage implements the project-namespaced key/value store.
//
// Every value is a JSON document held in its own file on a hackpadfs
// filesystem, so the same store runs against an OS directory, an in-memory
// filesystem in tests, or IndexedDB when compiled for the browser.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"reflect"
	"strings"

	"github.com/hack-pad/hackpadfs"
)

// Global (non-namespaced) keys.
const (
	KeyProjects       = "projects"
	KeyCurrentProject = "current-project"
)

// Per-project collection names. Combined with a project name via ProjectKey
// these form the full persisted-state layout.
const (
	DataHighlights = "highlights"
	DataPageForm   = "pageForm"
	DataTemplates  = "templates"
	DataSchemaForm = "schemaForm"
)

// Collections lists every per-project dataType, in cascade-delete order.
func Collections() []string {
	return []string{DataHighlights, DataPageForm, DataTemplates, DataSchemaForm}
}

// ProjectKey builds the namespaced key for one project collection.
func ProjectKey(project, dataType string) string {
	return "proj:" + project + ":" + dataType
}

// Store persists JSON-encoded values under string keys.
type Store struct {
	fs  hackpadfs.FS
	dir string

	// Warnf receives recovered read-path corruption reports. Defaults to
	// log.Printf; tests replace it to assert on warnings.
	Warnf func(format string, args ...any)
}

// New creates a store rooted at dir on fsys. The directory is created lazily
// on first write.
func New(fsys hackpadfs.FS, dir string) *Store {
	return &Store{
		fs:    fsys,
		dir:   strings.Trim(dir, "/"),
		Warnf: log.Printf,
	}
}

// Load reads the value stored under key into the value pointed to by into.
// It returns false, leaving into untouched, when the key is absent or the
// stored bytes are not valid JSON for into's type. Corruption is logged and
// recovered, never returned: a foreign writer must not be able to crash us.
func (s *Store) Load(key string, into any) bool {
	data, err := hackpadfs.ReadFile(s.fs, s.path(key))
	if err != nil {
		if !isNotExist(err) {
			s.Warnf("storage: unreadable key %q: %v", key, err)
		}
		return false
	}

	target := reflect.ValueOf(into)
	if target.Kind() != reflect.Pointer || target.IsNil() {
		s.Warnf("storage: non-pointer target for key %q", key)
		return false
	}

	// Decode into a fresh value first: Unmarshal partially populates its
	// target on shape mismatches (valid JSON, wrong type), and into must
	// stay untouched unless the whole document decodes.
	fresh := reflect.New(target.Type().Elem())
	if err := json.Unmarshal(data, fresh.Interface()); err != nil {
		s.Warnf("storage: corrupt data at key %q, using default: %v", key, err)
		return false
	}
	target.Elem().Set(fresh.Elem())
	return true
}

// Save JSON-encodes v and writes it under key. Failures (quota, unavailable
// filesystem, unencodable value) come back as *StorageError for the caller
// to report.
func (s *Store) Save(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return &StorageError{Op: "encode", Key: key, Err: err}
	}

	if s.dir != "" {
		if err := hackpadfs.MkdirAll(s.fs, s.dir, 0o750); err != nil {
			return &StorageError{Op: "mkdir", Key: key, Err: err}
		}
	}

	if err := hackpadfs.WriteFullFile(s.fs, s.path(key), data, 0o644); err != nil {
		return &StorageError{Op: "write", Key: key, Err: err}
	}
	return nil
}

// Remove deletes the value stored under key. Removing an absent key is not
// an error.
func (s *Store) Remove(key string) error {
	err := hackpadfs.Remove(s.fs, s.path(key))
	if err != nil && !isNotExist(err) {
		return &StorageError{Op: "remove", Key: key, Err: err}
	}
	return nil
}

// Keys returns every stored key with the given prefix. Used for diagnostics
// and to verify cascade deletes; an unreadable directory yields no keys.
func (s *Store) Keys(prefix string) []string {
	dir := s.dir
	if dir == "" {
		dir = "."
	}
	entries, err := hackpadfs.ReadDir(s.fs, dir)
	if err != nil {
		return nil
	}

	var keys []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		key, ok := decodeKey(entry.Name())
		if !ok {
			continue
		}
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys
}

func (s *Store) path(key string) string {
	name := encodeKey(key)
	if s.dir == "" {
		return name
	}
	return s.dir + "/" + name
}

func isNotExist(err error) bool {
	return errors.Is(err, hackpadfs.ErrNotExist)
}

// encodeKey maps a key to a filesystem-safe name. Keys contain ':' which is
// not portable across filesystems, so every byte outside [A-Za-z0-9._-] is
// percent-encoded.
func encodeKey(key string) string {
	var b strings.Builder
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9',
			c == '.', c == '_', c == '-':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String() + ".json"
}

// decodeKey reverses encodeKey. Files that are not valid encodings (foreign
// files in the data directory) report ok=false and are ignored.
func decodeKey(name string) (string, bool) {
	name, found := strings.CutSuffix(name, ".json")
	if !found {
		return "", false
	}
	var b strings.Builder
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c != '%' {
			b.WriteByte(c)
			continue
		}
		if i+2 >= len(name) {
			return "", false
		}
		var v int
		if _, err := fmt.Sscanf(name[i+1:i+3], "%02X", &v); err != nil {
			return "", false
		}
		b.WriteByte(byte(v))
		i += 2
	}
	return b.String(), true
}
