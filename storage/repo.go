package storage

import "errors"

// ErrNotFound is returned by Get when no value is stored under a key.
// Absence of a key is meaningful: the session layer treats a missing
// entry as "no session", not as an empty one.
var ErrNotFound = errors.New("key not found")

// Repo is durable string key/value storage for client-side state. It is
// the Go stand-in for the browser build's localStorage: each entry is
// stored and removed independently, and Delete removes the entry rather
// than writing an empty value.
type Repo interface {
	// Get returns the stored value, or ErrNotFound when the key is absent
	Get(key string) (string, error)

	// Set stores value under key, replacing any previous entry
	Set(key, value string) error

	// Delete removes the entry for key. Deleting an absent key is not an error
	Delete(key string) error
}
