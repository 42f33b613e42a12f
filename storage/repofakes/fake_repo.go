package repofakes

import (
	"sync"

	"github.com/jrsteele09/go-judge-client/storage"
)

var _ storage.Repo = (*FakeRepo)(nil)

// FakeRepo is an in-memory storage.Repo for tests. The error fields,
// when set, are returned from the corresponding operation so callers
// can exercise the degraded-storage paths.
type FakeRepo struct {
	values map[string]string
	lock   sync.RWMutex

	GetErr    error
	SetErr    error
	DeleteErr error
}

func NewFakeRepo() *FakeRepo {
	return &FakeRepo{values: make(map[string]string)}
}

func (r *FakeRepo) Get(key string) (string, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	if r.GetErr != nil {
		return "", r.GetErr
	}
	value, ok := r.values[key]
	if !ok {
		return "", storage.ErrNotFound
	}
	return value, nil
}

func (r *FakeRepo) Set(key, value string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.SetErr != nil {
		return r.SetErr
	}
	r.values[key] = value
	return nil
}

func (r *FakeRepo) Delete(key string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.DeleteErr != nil {
		return r.DeleteErr
	}
	delete(r.values, key)
	return nil
}

// Has reports whether a key is currently stored, for asserting the
// delete-on-clear semantics.
func (r *FakeRepo) Has(key string) bool {
	r.lock.RLock()
	defer r.lock.RUnlock()

	_, ok := r.values[key]
	return ok
}
