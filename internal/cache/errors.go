package cache

import (
	"errors"
	"fmt"
)

// ErrLocked indicates another process holds the cache lock.
var ErrLocked = errors.New("cache is locked by another classaudio process")

// PersistenceError describes a failed read or write against the Store, or a
// stored value that could not be decoded.
type PersistenceError struct {
	Op  string // "read", "write" or "decode"
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("cache %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("cache %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
