package storage

import "fmt"

// StorageError reports a failed write or delete against the backing
// filesystem. Read failures are never surfaced as errors; see Store.Load.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
