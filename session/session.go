package session

// Storage keys match the browser build's localStorage entries, so a
// deployment switching between clients keeps its existing logins.
const (
	tokenKey    = "auth-token"
	providerKey = "provider"
	subjectKey  = "subject"
)

// Single-user deployments bypass the identity providers and pin every
// request to this fixed identity. No real token exists; the credential
// slot is present but empty so downstream code does not mistake the
// session for an anonymous one.
const (
	SingleUserProvider = "localhost"
	SingleUserSubject  = "subject"
)

// Status classifies a Session for consumers that only care whether the
// client is allowed to make authenticated calls.
type Status int

const (
	// StatusAnonymous means no credential is held
	StatusAnonymous Status = iota

	// StatusPartial means a token was stored but subject resolution never
	// completed. Not authenticated: the login flow must be restarted.
	StatusPartial

	// StatusAuthenticated means token, provider and subject are all held
	StatusAuthenticated

	// StatusSingleUser means the deployment runs without multi-user auth
	StatusSingleUser
)

func (s Status) String() string {
	switch s {
	case StatusAnonymous:
		return "anonymous"
	case StatusPartial:
		return "partial"
	case StatusAuthenticated:
		return "authenticated"
	case StatusSingleUser:
		return "single-user"
	}
	return "unknown"
}

// Session is the locally persisted record of the current identity. Nil
// fields mean "absent" — an absent value has no persisted entry at all.
type Session struct {
	Token      *string
	Provider   *string
	Subject    *string
	SingleUser bool // recomputed every boot, never persisted
}

// Status derives the classification, enforcing the invariant that a
// session without a token is never presented as authenticated.
func (s Session) Status() Status {
	if s.SingleUser {
		return StatusSingleUser
	}
	if s.Token == nil {
		return StatusAnonymous
	}
	if s.Subject == nil {
		return StatusPartial
	}
	return StatusAuthenticated
}

// Authenticated reports whether requests may be made on behalf of a
// known principal.
func (s Session) Authenticated() bool {
	status := s.Status()
	return status == StatusAuthenticated || status == StatusSingleUser
}
