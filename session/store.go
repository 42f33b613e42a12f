package session

import (
	"sync"

	"github.com/jrsteele09/go-judge-client/storage"
	"github.com/rs/zerolog/log"
)

// Store owns the Session. Each field is persisted under its own key;
// setting a field to nil removes the persisted entry entirely, keeping
// "key present" and "value held" equivalent.
//
// Persistence is best-effort. A failed write is logged and the
// in-memory value still updates; on the next boot the lost entry reads
// back as absent, which downstream logic treats as "logged out".
type Store struct {
	repo storage.Repo

	lock    sync.RWMutex
	current Session
}

// NewStore loads the persisted session fields from repo. Read failures
// of any kind leave the field absent.
func NewStore(repo storage.Repo) *Store {
	s := &Store{repo: repo}
	s.current = Session{
		Token:    s.read(tokenKey),
		Provider: s.read(providerKey),
		Subject:  s.read(subjectKey),
	}
	return s
}

// Get returns the current session. The subject is suppressed while no
// token is held: a logically unauthenticated session must never look
// authenticated, whatever storage still contains.
func (s *Store) Get() Session {
	s.lock.RLock()
	defer s.lock.RUnlock()

	current := s.current
	if current.Token == nil && !current.SingleUser {
		current.Subject = nil
	}
	return current
}

// SetToken stores or clears the access token.
func (s *Store) SetToken(value *string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.current.Token = value
	s.write(tokenKey, value)
}

// SetProvider stores or clears the identity provider name.
func (s *Store) SetProvider(value *string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.current.Provider = value
	s.write(providerKey, value)
}

// SetSubject stores or clears the authenticated subject id.
func (s *Store) SetSubject(value *string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.current.Subject = value
	s.write(subjectKey, value)
}

// SetSingleUser records the deployment mode for this boot. Memory only:
// the flag is re-derived from the backend on every boot.
func (s *Store) SetSingleUser(enabled bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.current.SingleUser = enabled
}

func (s *Store) read(key string) *string {
	value, err := s.repo.Get(key)
	if err != nil {
		return nil
	}
	return &value
}

func (s *Store) write(key string, value *string) {
	var err error
	if value == nil {
		err = s.repo.Delete(key)
	} else {
		err = s.repo.Set(key, *value)
	}
	if err != nil {
		log.Err(err).Str("key", key).Msg("Session storage write failed")
	}
}
