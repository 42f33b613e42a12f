package filerepo

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/jrsteele09/go-judge-client/storage"
	"github.com/pkg/errors"
)

const stateFileName = "state.json"

var _ storage.Repo = (*FileRepo)(nil)

// FileRepo persists key/value entries as a single JSON document in the
// data folder. It plays the role localStorage plays in the browser
// build: entries survive restarts and removing an entry deletes the key
// rather than leaving an empty value behind.
type FileRepo struct {
	path   string
	values map[string]string
	lock   sync.Mutex
}

// New opens (or creates) the state file under dataFolder. An unreadable
// or corrupt state file starts the repo empty rather than failing: lost
// persistence degrades to "logged out", it never blocks startup.
func New(dataFolder string) (*FileRepo, error) {
	if err := os.MkdirAll(dataFolder, 0o700); err != nil {
		return nil, errors.Wrap(err, "[filerepo.New] MkdirAll")
	}

	r := &FileRepo{
		path:   filepath.Join(dataFolder, stateFileName),
		values: make(map[string]string),
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		return r, nil
	}
	if err := json.Unmarshal(data, &r.values); err != nil {
		r.values = make(map[string]string)
	}
	return r, nil
}

func (r *FileRepo) Get(key string) (string, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	value, ok := r.values[key]
	if !ok {
		return "", storage.ErrNotFound
	}
	return value, nil
}

func (r *FileRepo) Set(key, value string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.values[key] = value
	return r.flush()
}

func (r *FileRepo) Delete(key string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	delete(r.values, key)
	return r.flush()
}

// flush writes the whole document via a temp file and rename so a crash
// mid-write never leaves a truncated state file. Caller holds the lock.
func (r *FileRepo) flush() error {
	data, err := json.MarshalIndent(r.values, "", "  ")
	if err != nil {
		return errors.Wrap(err, "[FileRepo.flush] Marshal")
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errors.Wrap(err, "[FileRepo.flush] WriteFile")
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return errors.Wrap(err, "[FileRepo.flush] Rename")
	}
	return nil
}
