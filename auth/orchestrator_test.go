package auth_test

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/jrsteele09/go-judge-client/auth"
	"github.com/jrsteele09/go-judge-client/auth/apifakes"
	"github.com/jrsteele09/go-judge-client/auth/navfakes"
	"github.com/jrsteele09/go-judge-client/authstate"
	"github.com/jrsteele09/go-judge-client/internal/utils"
	"github.com/jrsteele09/go-judge-client/session"
	"github.com/jrsteele09/go-judge-client/storage/repofakes"
	"github.com/stretchr/testify/require"
)

const (
	testRedirectURI = "http://127.0.0.1:8973/callback"
	testCorrelation = "abc123"
	testProvider    = "github"
	testCode        = "XYZ"
	testToken       = "tok-1"
	testSubject     = "octocat"
)

// testFixture holds all orchestrator dependencies.
type testFixture struct {
	repo         *repofakes.FakeRepo
	sessions     *session.Store
	correlation  *authstate.Store
	api          *apifakes.FakeIdentityAPI
	navigator    *navfakes.FakeNavigator
	orchestrator *auth.Orchestrator
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	repo := repofakes.NewFakeRepo()
	fixture := &testFixture{
		repo:        repo,
		sessions:    session.NewStore(repo),
		correlation: authstate.NewStore(repo),
		api:         apifakes.NewFakeIdentityAPI(),
		navigator:   navfakes.NewFakeNavigator(),
	}

	orchestrator, err := auth.New(auth.Deps{
		Sessions:    fixture.sessions,
		Correlation: fixture.correlation,
		API:         fixture.api,
		Navigator:   fixture.navigator,
	}, testRedirectURI, auth.WithCorrelationSource(func() string { return testCorrelation }))
	require.NoError(t, err)

	fixture.orchestrator = orchestrator
	return fixture
}

// reboot rebuilds the stores and orchestrator over the same durable
// storage, simulating a fresh process over persisted state.
func (f *testFixture) reboot(t *testing.T) {
	t.Helper()

	f.sessions = session.NewStore(f.repo)
	f.correlation = authstate.NewStore(f.repo)
	f.api = apifakes.NewFakeIdentityAPI()
	f.navigator = navfakes.NewFakeNavigator()

	orchestrator, err := auth.New(auth.Deps{
		Sessions:    f.sessions,
		Correlation: f.correlation,
		API:         f.api,
		Navigator:   f.navigator,
	}, testRedirectURI, auth.WithCorrelationSource(func() string { return testCorrelation }))
	require.NoError(t, err)
	f.orchestrator = orchestrator
}

func callbackQuery(code, state, provider string) url.Values {
	query := url.Values{}
	if code != "" {
		query.Set("code", code)
	}
	if state != "" {
		query.Set("state", state)
	}
	if provider != "" {
		query.Set("provider", provider)
	}
	return query
}

func TestNewValidatesDeps(t *testing.T) {
	_, err := auth.New(auth.Deps{}, testRedirectURI)
	require.Error(t, err)

	f := setupTestFixture(t)
	_, err = auth.New(auth.Deps{
		Sessions:    f.sessions,
		Correlation: f.correlation,
		API:         f.api,
		Navigator:   f.navigator,
	}, "")
	require.Error(t, err)
}

func TestPlainBootEndsAtLogin(t *testing.T) {
	f := setupTestFixture(t)

	state, err := f.orchestrator.Cycle(context.Background(), url.Values{})
	require.NoError(t, err)
	require.Equal(t, auth.StateUnauthenticated, state)
	require.Equal(t, 1, f.navigator.LoginCalls)
	require.Empty(t, f.navigator.ProviderURLs)
	require.Empty(t, f.api.ExchangeCalls)
}

func TestSuccessfulCallbackAuthenticates(t *testing.T) {
	f := setupTestFixture(t)
	f.correlation.Set(utils.Ptr(testCorrelation))
	f.sessions.SetProvider(utils.Ptr(testProvider))
	f.api.AccessToken = testToken
	f.api.SubjectValue = testSubject

	state, err := f.orchestrator.Cycle(context.Background(), callbackQuery(testCode, testCorrelation, testProvider))
	require.NoError(t, err)
	require.Equal(t, auth.StateAuthenticated, state)

	current := f.sessions.Get()
	require.Equal(t, testToken, utils.Value(current.Token))
	require.Equal(t, testSubject, utils.Value(current.Subject))
	require.True(t, current.Authenticated())

	require.Equal(t, []apifakes.ExchangeCall{{Code: testCode, Provider: testProvider}}, f.api.ExchangeCalls)
	require.Equal(t, []apifakes.SubjectCall{{Token: testToken, Provider: testProvider}}, f.api.SubjectCalls)
	require.Equal(t, apifakes.Credential{Token: testToken, Provider: testProvider}, f.api.LastCredential())
	require.Zero(t, f.navigator.LoginCalls)
}

func TestProviderFromSessionWhenCallbackOmitsIt(t *testing.T) {
	f := setupTestFixture(t)
	f.correlation.Set(utils.Ptr(testCorrelation))
	f.sessions.SetProvider(utils.Ptr(testProvider))
	f.api.AccessToken = testToken
	f.api.SubjectValue = testSubject

	state, err := f.orchestrator.Cycle(context.Background(), callbackQuery(testCode, testCorrelation, ""))
	require.NoError(t, err)
	require.Equal(t, auth.StateAuthenticated, state)
	require.Equal(t, []apifakes.ExchangeCall{{Code: testCode, Provider: testProvider}}, f.api.ExchangeCalls)
}

// P1: a valid existing session never re-runs the redirect or exchange
// logic, however many cycles run.
func TestIdempotentFastPath(t *testing.T) {
	f := setupTestFixture(t)
	f.sessions.SetToken(utils.Ptr(testToken))
	f.sessions.SetProvider(utils.Ptr(testProvider))
	f.sessions.SetSubject(utils.Ptr(testSubject))

	for i := 0; i < 3; i++ {
		state, err := f.orchestrator.Cycle(context.Background(), url.Values{})
		require.NoError(t, err)
		require.Equal(t, auth.StateAuthenticated, state)
	}

	require.Equal(t, 3, f.api.ValidateCalls)
	require.Empty(t, f.api.ExchangeCalls)
	require.Empty(t, f.api.AuthURLCalls)
	require.Empty(t, f.navigator.ProviderURLs)
	require.Zero(t, f.navigator.LoginCalls)
	require.Equal(t, apifakes.Credential{Token: testToken, Provider: testProvider}, f.api.LastCredential())
}

// P2: the correlation value is single use. Once a callback has consumed
// it, replaying the same state value is a mismatch.
func TestCorrelationSingleUse(t *testing.T) {
	f := setupTestFixture(t)
	f.correlation.Set(utils.Ptr(testCorrelation))
	f.sessions.SetProvider(utils.Ptr(testProvider))
	f.api.AccessToken = testToken
	f.api.SubjectValue = testSubject

	state, err := f.orchestrator.Cycle(context.Background(), callbackQuery(testCode, testCorrelation, testProvider))
	require.NoError(t, err)
	require.Equal(t, auth.StateAuthenticated, state)
	require.Nil(t, f.correlation.Get(), "a consumed correlation value must not remain stored")

	// replay the callback with the same state after the session is gone
	f.orchestrator.Logout()
	state, err = f.orchestrator.Cycle(context.Background(), callbackQuery("other-code", testCorrelation, testProvider))
	require.ErrorIs(t, err, auth.CorrelationMismatchErr)
	require.Equal(t, auth.StateInvalid, state)
	require.Len(t, f.api.ExchangeCalls, 1, "the replayed code must not be exchanged")
}

// P3: a subject-resolution failure after a successful exchange leaves
// token-without-subject, which is not authenticated.
func TestPartialExchangeIsNotAuthenticated(t *testing.T) {
	f := setupTestFixture(t)
	f.correlation.Set(utils.Ptr(testCorrelation))
	f.sessions.SetProvider(utils.Ptr(testProvider))
	f.api.AccessToken = testToken
	f.api.SubjectErr = errors.New("userinfo endpoint down")

	state, err := f.orchestrator.Cycle(context.Background(), callbackQuery(testCode, testCorrelation, testProvider))
	require.Error(t, err)
	require.Equal(t, auth.StateInvalid, state)

	current := f.sessions.Get()
	require.Equal(t, testToken, utils.Value(current.Token))
	require.Nil(t, current.Subject)
	require.False(t, current.Authenticated())
	require.Equal(t, session.StatusPartial, current.Status())
}

// P4: single-user mode never redirects to an identity provider and
// always carries the sentinel identity.
func TestSingleUserBypass(t *testing.T) {
	f := setupTestFixture(t)
	f.api.SingleUser = true

	state, err := f.orchestrator.Cycle(context.Background(), url.Values{})
	require.NoError(t, err)
	require.Equal(t, auth.StateSingleUser, state)

	current := f.sessions.Get()
	require.Equal(t, session.SingleUserProvider, utils.Value(current.Provider))
	require.Equal(t, session.SingleUserSubject, utils.Value(current.Subject))
	require.True(t, current.SingleUser)
	require.True(t, current.Authenticated())

	require.Empty(t, f.navigator.ProviderURLs)
	require.Empty(t, f.api.AuthURLCalls)
	require.Equal(t, apifakes.Credential{Token: "", Provider: session.SingleUserProvider}, f.api.LastCredential())
	require.Equal(t, 1, f.api.ValidateCalls)
}

func TestSingleUserValidationFailureClearsSession(t *testing.T) {
	f := setupTestFixture(t)
	f.api.SingleUser = true
	f.api.ValidateErr = errors.New("503")

	state, err := f.orchestrator.Cycle(context.Background(), url.Values{})
	require.Error(t, err)
	require.Equal(t, auth.StateUnauthenticated, state)
	require.Equal(t, 1, f.navigator.LoginCalls)

	current := f.sessions.Get()
	require.Nil(t, current.Token)
	require.Nil(t, current.Provider)
	require.False(t, current.SingleUser)
}

// P5: logout clears the durable state; a fresh boot over the same
// storage lands on the login surface, not on Authenticated.
func TestLogoutClearsEverything(t *testing.T) {
	f := setupTestFixture(t)
	f.sessions.SetToken(utils.Ptr(testToken))
	f.sessions.SetProvider(utils.Ptr(testProvider))
	f.sessions.SetSubject(utils.Ptr(testSubject))

	f.orchestrator.Logout()
	require.Equal(t, auth.StateUnauthenticated, f.orchestrator.State())
	require.Equal(t, 1, f.api.ClearCalls)
	require.False(t, f.repo.Has("auth-token"))
	require.False(t, f.repo.Has("provider"))

	f.reboot(t)
	state, err := f.orchestrator.Cycle(context.Background(), url.Values{})
	require.NoError(t, err)
	require.Equal(t, auth.StateUnauthenticated, state)
	require.Equal(t, 1, f.navigator.LoginCalls)
	require.Nil(t, f.sessions.Get().Subject)
}

func TestRejectedStoredTokenClearsSession(t *testing.T) {
	f := setupTestFixture(t)
	f.sessions.SetToken(utils.Ptr("expired"))
	f.sessions.SetProvider(utils.Ptr(testProvider))
	f.sessions.SetSubject(utils.Ptr(testSubject))
	f.api.ValidateErr = errors.New("401")

	state, err := f.orchestrator.Cycle(context.Background(), url.Values{})
	require.Error(t, err)
	require.Equal(t, auth.StateUnauthenticated, state)
	require.Equal(t, 1, f.navigator.LoginCalls)

	require.False(t, f.repo.Has("auth-token"))
	require.False(t, f.repo.Has("provider"))
	require.False(t, f.repo.Has("subject"))
	require.Equal(t, 1, f.api.ClearCalls)
}

func TestProviderErrorParamAbortsAttempt(t *testing.T) {
	f := setupTestFixture(t)
	f.correlation.Set(utils.Ptr(testCorrelation))
	f.sessions.SetProvider(utils.Ptr(testProvider))

	query := callbackQuery("", testCorrelation, testProvider)
	query.Set("error", "access_denied")

	state, err := f.orchestrator.Cycle(context.Background(), query)
	require.ErrorIs(t, err, auth.ProviderRejectedErr)
	require.Equal(t, auth.StateInvalid, state)
	require.Equal(t, 1, f.navigator.LoginCalls)

	current := f.sessions.Get()
	require.Nil(t, current.Token)
	require.Nil(t, current.Provider)
	require.Empty(t, f.api.ExchangeCalls)
}

func TestCorrelationMismatchClearsTokenAndValue(t *testing.T) {
	f := setupTestFixture(t)
	f.correlation.Set(utils.Ptr(testCorrelation))
	f.sessions.SetProvider(utils.Ptr(testProvider))

	state, err := f.orchestrator.Cycle(context.Background(), callbackQuery(testCode, "wrong", testProvider))
	require.ErrorIs(t, err, auth.CorrelationMismatchErr)
	require.Equal(t, auth.StateInvalid, state)

	require.Nil(t, f.correlation.Get())
	require.False(t, f.repo.Has("auth-state"))
	require.Nil(t, f.sessions.Get().Token)
	require.Equal(t, 1, f.navigator.LoginCalls)
	require.Empty(t, f.api.ExchangeCalls, "a mismatched callback must never reach the exchange")
}

func TestMatchWithoutCodeStaysAwaiting(t *testing.T) {
	f := setupTestFixture(t)
	f.correlation.Set(utils.Ptr(testCorrelation))

	// no code and no provider selected: mid-handoff navigation
	state, err := f.orchestrator.Cycle(context.Background(), callbackQuery("", testCorrelation, ""))
	require.NoError(t, err)
	require.Equal(t, auth.StateAwaitingCallback, state)
	require.Zero(t, f.navigator.LoginCalls)
	require.Empty(t, f.api.ExchangeCalls)
}

func TestExchangeFailureLeavesAttemptRestartable(t *testing.T) {
	f := setupTestFixture(t)
	f.correlation.Set(utils.Ptr(testCorrelation))
	f.sessions.SetProvider(utils.Ptr(testProvider))
	f.api.ExchangeErr = errors.New("code already redeemed")

	state, err := f.orchestrator.Cycle(context.Background(), callbackQuery(testCode, testCorrelation, testProvider))
	require.Error(t, err)
	require.Equal(t, auth.StateInvalid, state)
	require.Nil(t, f.sessions.Get().Token, "no token may be committed on exchange failure")
	require.Empty(t, f.api.SubjectCalls, "subject resolution must not run after a failed exchange")
}

func TestSingleUserCheckFailureIsSilent(t *testing.T) {
	f := setupTestFixture(t)
	f.sessions.SetToken(utils.Ptr(testToken))
	f.api.SingleUserErr = errors.New("backend unreachable")

	state, err := f.orchestrator.Cycle(context.Background(), url.Values{})
	require.Error(t, err)
	require.Equal(t, auth.StateInvalid, state)

	// no terminal action, no state mutation: next event re-evaluates
	require.Zero(t, f.navigator.LoginCalls)
	require.Equal(t, testToken, utils.Value(f.sessions.Get().Token))
}

func TestBeginLoginHandsOffToProvider(t *testing.T) {
	f := setupTestFixture(t)
	f.api.AuthURL = "https://provider.example/authorize?state=" + testCorrelation

	require.NoError(t, f.orchestrator.BeginLogin(context.Background(), testProvider))
	require.Equal(t, auth.StateAwaitingCallback, f.orchestrator.State())

	require.Equal(t, testCorrelation, utils.Value(f.correlation.Get()))
	require.Equal(t, testProvider, utils.Value(f.sessions.Get().Provider))
	require.Equal(t, []apifakes.AuthURLCall{{
		Provider:    testProvider,
		RedirectURI: testRedirectURI,
		State:       testCorrelation,
	}}, f.api.AuthURLCalls)
	require.Equal(t, []string{f.api.AuthURL}, f.navigator.ProviderURLs)
}

func TestBeginLoginOverwritesOutstandingCorrelation(t *testing.T) {
	f := setupTestFixture(t)
	f.correlation.Set(utils.Ptr("stale-value"))
	f.api.AuthURL = "https://provider.example/authorize"

	require.NoError(t, f.orchestrator.BeginLogin(context.Background(), testProvider))
	require.Equal(t, testCorrelation, utils.Value(f.correlation.Get()))
}

// Full round trip over durable storage: begin login, return via the
// callback, then fast-path on the next boot.
func TestLoginRoundTrip(t *testing.T) {
	f := setupTestFixture(t)
	f.api.AuthURL = "https://provider.example/authorize"
	f.api.AccessToken = testToken
	f.api.SubjectValue = testSubject

	require.NoError(t, f.orchestrator.BeginLogin(context.Background(), testProvider))

	state, err := f.orchestrator.Cycle(context.Background(), callbackQuery(testCode, testCorrelation, testProvider))
	require.NoError(t, err)
	require.Equal(t, auth.StateAuthenticated, state)

	f.reboot(t)
	state, err = f.orchestrator.Cycle(context.Background(), url.Values{})
	require.NoError(t, err)
	require.Equal(t, auth.StateAuthenticated, state)
	require.Equal(t, apifakes.Credential{Token: testToken, Provider: testProvider}, f.api.LastCredential())
}
