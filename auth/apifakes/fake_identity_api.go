package apifakes

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-judge-client/auth"
	"golang.org/x/oauth2"
)

var _ auth.IdentityAPI = (*FakeIdentityAPI)(nil)

// Credential is one recorded SetCredentials call.
type Credential struct {
	Token    string
	Provider string
}

// ExchangeCall is one recorded ExchangeCode call.
type ExchangeCall struct {
	Code     string
	Provider string
}

// SubjectCall is one recorded Subject call.
type SubjectCall struct {
	Token    string
	Provider string
}

// AuthURLCall is one recorded AuthorizationURL call.
type AuthURLCall struct {
	Provider    string
	RedirectURI string
	State       string
}

// FakeIdentityAPI scripts the backend boundary. Set the return fields
// before the cycle under test; every call is recorded for assertions.
type FakeIdentityAPI struct {
	lock sync.Mutex

	SingleUser    bool
	SingleUserErr error
	AuthURL       string
	AuthURLErr    error
	AccessToken   string
	ExchangeErr   error
	SubjectValue  string
	SubjectErr    error
	ValidateErr   error

	SingleUserCalls int
	ValidateCalls   int
	AuthURLCalls    []AuthURLCall
	ExchangeCalls   []ExchangeCall
	SubjectCalls    []SubjectCall
	Credentials     []Credential
	ClearCalls      int
}

func NewFakeIdentityAPI() *FakeIdentityAPI {
	return &FakeIdentityAPI{}
}

func (f *FakeIdentityAPI) SingleUserMode(ctx context.Context) (bool, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.SingleUserCalls++
	if f.SingleUserErr != nil {
		return false, f.SingleUserErr
	}
	return f.SingleUser, nil
}

func (f *FakeIdentityAPI) AuthorizationURL(ctx context.Context, provider, redirectURI, state string) (string, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.AuthURLCalls = append(f.AuthURLCalls, AuthURLCall{Provider: provider, RedirectURI: redirectURI, State: state})
	if f.AuthURLErr != nil {
		return "", f.AuthURLErr
	}
	return f.AuthURL, nil
}

func (f *FakeIdentityAPI) ExchangeCode(ctx context.Context, code, provider string) (*oauth2.Token, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.ExchangeCalls = append(f.ExchangeCalls, ExchangeCall{Code: code, Provider: provider})
	if f.ExchangeErr != nil {
		return nil, f.ExchangeErr
	}
	return &oauth2.Token{AccessToken: f.AccessToken, TokenType: "bearer"}, nil
}

func (f *FakeIdentityAPI) Subject(ctx context.Context, token, provider string) (string, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.SubjectCalls = append(f.SubjectCalls, SubjectCall{Token: token, Provider: provider})
	if f.SubjectErr != nil {
		return "", f.SubjectErr
	}
	return f.SubjectValue, nil
}

func (f *FakeIdentityAPI) ValidateToken(ctx context.Context) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.ValidateCalls++
	return f.ValidateErr
}

func (f *FakeIdentityAPI) SetCredentials(token, provider string) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.Credentials = append(f.Credentials, Credential{Token: token, Provider: provider})
}

func (f *FakeIdentityAPI) ClearCredentials() {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.ClearCalls++
}

// LastCredential returns the most recent SetCredentials call, or a zero
// Credential when none was made.
func (f *FakeIdentityAPI) LastCredential() Credential {
	f.lock.Lock()
	defer f.lock.Unlock()
	if len(f.Credentials) == 0 {
		return Credential{}
	}
	return f.Credentials[len(f.Credentials)-1]
}
