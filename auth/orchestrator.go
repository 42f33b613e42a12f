// Package auth decides, once per navigation event, whether the client
// is unauthenticated, mid-redirect, authenticated or running in
// single-user mode, and drives the session and correlation stores
// accordingly. The decision logic is an explicit state machine; each
// cycle runs the transition algorithm once and ends in a terminal
// state.
package auth

import (
	"context"
	"net/url"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-judge-client/authstate"
	"github.com/jrsteele09/go-judge-client/internal/utils"
	"github.com/jrsteele09/go-judge-client/session"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Deps holds all collaborator dependencies for the Orchestrator.
type Deps struct {
	Sessions    *session.Store   // Durable session record
	Correlation *authstate.Store // Outstanding anti-forgery value
	API         IdentityAPI      // Backend identity boundary
	Navigator   Navigator        // Terminal navigation actions
}

// Orchestrator runs the per-navigation transition algorithm. It holds
// no session data of its own; the stores are the single owners and the
// orchestrator re-reads them on every cycle.
type Orchestrator struct {
	deps        Deps
	redirectURI string
	state       State

	newCorrelation func() string // injectable for testing
}

// Option modifies the Orchestrator instance.
type Option func(*Orchestrator)

// WithCorrelationSource sets the correlation value generator (primarily
// for testing).
func WithCorrelationSource(source func() string) Option {
	return func(o *Orchestrator) {
		o.newCorrelation = source
	}
}

// New initializes an Orchestrator. redirectURI is the application's own
// origin, where the identity provider sends the user back.
func New(deps Deps, redirectURI string, options ...Option) (*Orchestrator, error) {
	if deps.Sessions == nil {
		return nil, errors.New("[auth.New] Sessions store is required")
	}
	if deps.Correlation == nil {
		return nil, errors.New("[auth.New] Correlation store is required")
	}
	if deps.API == nil {
		return nil, errors.New("[auth.New] API is required")
	}
	if deps.Navigator == nil {
		return nil, errors.New("[auth.New] Navigator is required")
	}
	if redirectURI == "" {
		return nil, errors.New("[auth.New] redirectURI is required")
	}

	orchestrator := &Orchestrator{
		deps:           deps,
		redirectURI:    redirectURI,
		state:          StateBooting,
		newCorrelation: authstate.NewValue,
	}
	for _, opt := range options {
		opt(orchestrator)
	}
	return orchestrator, nil
}

// State returns the terminal state of the most recent cycle.
func (o *Orchestrator) State() State {
	return o.state
}

// Cycle runs the transition algorithm once for a navigation event.
// query carries the event URL's query parameters (empty on a plain
// boot). The returned error is informational: every failure has already
// been converted into a terminal action before Cycle returns, so
// callers log it and must not branch on it.
func (o *Orchestrator) Cycle(ctx context.Context, query url.Values) (State, error) {
	logger := log.With().Str("cycle", uuid.New().String()).Logger()
	o.state = StateBooting

	enabled, err := o.deps.API.SingleUserMode(ctx)
	if err != nil {
		// Backend unreachable: leave stored state alone, no redirect.
		// The next navigation event re-evaluates from scratch.
		logger.Err(err).Msg("Single-user check failed")
		o.state = StateInvalid
		return o.state, errors.Wrap(err, "[Orchestrator.Cycle] SingleUserMode")
	}
	if enabled {
		return o.singleUser(ctx, logger)
	}
	o.deps.Sessions.SetSingleUser(false)

	if current := o.deps.Sessions.Get(); current.Token != nil {
		return o.existingSession(ctx, logger, current)
	}
	return o.inspectCallback(ctx, logger, query)
}

// singleUser pins the fixed sentinel identity. The credential is empty
// but present, so downstream consumers do not treat the session as
// anonymous.
func (o *Orchestrator) singleUser(ctx context.Context, logger zerolog.Logger) (State, error) {
	o.deps.Sessions.SetToken(utils.Ptr(""))
	o.deps.Sessions.SetProvider(utils.Ptr(session.SingleUserProvider))
	o.deps.Sessions.SetSubject(utils.Ptr(session.SingleUserSubject))
	o.deps.Sessions.SetSingleUser(true)
	o.deps.API.SetCredentials("", session.SingleUserProvider)

	if err := o.deps.API.ValidateToken(ctx); err != nil {
		logger.Err(err).Msg("Single-user validation failed")
		o.deps.Sessions.SetSingleUser(false)
		o.invalidateSession()
		o.state = StateUnauthenticated
		return o.state, errors.Wrap(err, "[Orchestrator.singleUser] ValidateToken")
	}

	logger.Debug().Msg("Running in single-user mode")
	o.state = StateSingleUser
	return o.state, nil
}

// existingSession is the fast path: a stored token is revalidated and,
// if still accepted, the cycle ends without touching the redirect or
// callback logic.
func (o *Orchestrator) existingSession(ctx context.Context, logger zerolog.Logger, current session.Session) (State, error) {
	o.deps.API.SetCredentials(utils.Value(current.Token), utils.Value(current.Provider))

	if err := o.deps.API.ValidateToken(ctx); err != nil {
		logger.Err(err).Msg("Stored token no longer accepted")
		o.invalidateSession()
		o.state = StateUnauthenticated
		return o.state, errors.Wrap(err, "[Orchestrator.existingSession] ValidateToken")
	}

	o.state = StateAuthenticated
	return o.state, nil
}

// inspectCallback evaluates the return URL of a redirect flow. The user
// sees a uniform "back to login" on every failure; which check failed
// is only logged, never surfaced.
func (o *Orchestrator) inspectCallback(ctx context.Context, logger zerolog.Logger, query url.Values) (State, error) {
	if providerError := query.Get("error"); providerError != "" {
		logger.Warn().Str("provider_error", providerError).Msg("Identity provider rejected the attempt")
		o.deps.Sessions.SetProvider(nil)
		o.deps.Sessions.SetToken(nil)
		o.deps.Sessions.SetSubject(nil)
		o.deps.Navigator.ToLogin()
		o.state = StateInvalid
		return o.state, ProviderRejectedErr
	}

	stored := o.deps.Correlation.Get()
	if stored == nil && query.Get("state") == "" {
		// Plain unauthenticated boot: nothing in flight, nothing returned
		o.deps.Navigator.ToLogin()
		o.state = StateUnauthenticated
		return o.state, nil
	}
	if stored == nil || *stored != query.Get("state") {
		logger.Warn().Msg("Correlation mismatch on callback")
		o.deps.Sessions.SetToken(nil)
		o.deps.Correlation.Set(nil)
		o.deps.Navigator.ToLogin()
		o.state = StateInvalid
		return o.state, CorrelationMismatchErr
	}

	// Match: the value is single use, consume it before exchanging
	o.deps.Correlation.Set(nil)
	o.deps.Sessions.SetToken(nil)

	code := query.Get("code")
	provider := query.Get("provider")
	if provider == "" {
		provider = utils.Value(o.deps.Sessions.Get().Provider)
	}
	if code == "" || provider == "" {
		// Sent to the provider, not back yet
		o.state = StateAwaitingCallback
		return o.state, nil
	}
	return o.exchange(ctx, logger, code, provider)
}

// exchange redeems the authorization code and resolves the subject. The
// two calls do not commit atomically: a subject failure leaves the
// token stored with the subject absent, which the session layer reports
// as not authenticated.
func (o *Orchestrator) exchange(ctx context.Context, logger zerolog.Logger, code, provider string) (State, error) {
	token, err := o.deps.API.ExchangeCode(ctx, code, provider)
	if err != nil {
		logger.Err(err).Str("provider", provider).Msg("Code exchange failed")
		o.state = StateInvalid
		return o.state, errors.Wrap(err, "[Orchestrator.exchange] ExchangeCode")
	}
	o.deps.Sessions.SetToken(utils.Ptr(token.AccessToken))

	subject, err := o.deps.API.Subject(ctx, token.AccessToken, provider)
	if err != nil {
		logger.Err(err).Str("provider", provider).Msg("Subject resolution failed")
		o.state = StateInvalid
		return o.state, errors.Wrap(err, "[Orchestrator.exchange] Subject")
	}
	o.deps.Sessions.SetSubject(utils.Ptr(subject))
	o.deps.API.SetCredentials(token.AccessToken, provider)

	logger.Info().Str("provider", provider).Msg("Login complete")
	o.state = StateAuthenticated
	return o.state, nil
}

// BeginLogin starts a redirect flow for the chosen provider: a fresh
// correlation value and the provider choice are persisted, then the
// user is handed off to the provider's authorization URL. One-way:
// control returns via the callback.
func (o *Orchestrator) BeginLogin(ctx context.Context, provider string) error {
	value := o.newCorrelation()
	o.deps.Correlation.Set(utils.Ptr(value))
	o.deps.Sessions.SetProvider(utils.Ptr(provider))

	authURL, err := o.deps.API.AuthorizationURL(ctx, provider, o.redirectURI, value)
	if err != nil {
		return errors.Wrap(err, "[Orchestrator.BeginLogin] AuthorizationURL")
	}

	o.state = StateAwaitingCallback
	o.deps.Navigator.ToProvider(authURL)
	return nil
}

// Logout clears the token and provider together with the ambient
// credentials. The subject entry falls out on the next boot, because an
// absent token suppresses it.
func (o *Orchestrator) Logout() {
	o.deps.Sessions.SetToken(nil)
	o.deps.Sessions.SetProvider(nil)
	o.deps.API.ClearCredentials()
	o.state = StateUnauthenticated
	o.deps.Navigator.ToLogin()
}

// invalidateSession clears the whole durable session and the ambient
// credentials, then requests the login surface.
func (o *Orchestrator) invalidateSession() {
	o.deps.Sessions.SetToken(nil)
	o.deps.Sessions.SetProvider(nil)
	o.deps.Sessions.SetSubject(nil)
	o.deps.API.ClearCredentials()
	o.deps.Navigator.ToLogin()
}
