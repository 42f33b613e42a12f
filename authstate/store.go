// Package authstate persists the anti-forgery state value that binds a
// login attempt to the callback returning from the identity provider.
// At most one value is outstanding: starting a new login overwrites the
// previous one, so only the most recent initiation is ever honoured.
package authstate

import (
	"crypto/rand"
	"encoding/base64"
	"sync"

	"github.com/jrsteele09/go-judge-client/storage"
	"github.com/rs/zerolog/log"
)

const (
	stateKey = "auth-state"

	valueLength = 32
)

// Store holds the single outstanding correlation value.
type Store struct {
	repo storage.Repo

	lock  sync.RWMutex
	value *string
}

func NewStore(repo storage.Repo) *Store {
	s := &Store{repo: repo}
	if value, err := repo.Get(stateKey); err == nil {
		s.value = &value
	}
	return s
}

// Get returns the outstanding value, or nil when no login is in flight.
func (s *Store) Get() *string {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.value
}

// Set stores a new value or, with nil, clears the persisted entry.
// Best-effort persistence, same policy as the session store.
func (s *Store) Set(value *string) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.value = value

	var err error
	if value == nil {
		err = s.repo.Delete(stateKey)
	} else {
		err = s.repo.Set(stateKey, *value)
	}
	if err != nil {
		log.Err(err).Msg("Correlation storage write failed")
	}
}

// NewValue generates an unpredictable correlation value from the
// system's random source.
func NewValue() string {
	bytes := make([]byte, valueLength)
	if _, err := rand.Read(bytes); err != nil {
		// crypto/rand failing means the platform is broken; there is no
		// safe fallback value to mint here
		panic(err)
	}
	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(bytes)
}
