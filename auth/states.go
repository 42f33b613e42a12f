package auth

// State is the orchestrator's position in the login lifecycle. Every
// cycle ends in exactly one terminal state.
type State int

const (
	// StateBooting is the transient state while a cycle is evaluating
	StateBooting State = iota

	// StateSingleUser means the deployment bypasses multi-user auth
	StateSingleUser

	// StateUnauthenticated means no usable session exists; the login
	// surface has been requested
	StateUnauthenticated

	// StateAwaitingCallback means the user has been handed off to an
	// identity provider and has not returned yet
	StateAwaitingCallback

	// StateAuthenticated means a validated session is in place
	StateAuthenticated

	// StateInvalid means the current attempt failed and the login flow
	// must be restarted
	StateInvalid
)

func (s State) String() string {
	switch s {
	case StateBooting:
		return "booting"
	case StateSingleUser:
		return "single-user"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAwaitingCallback:
		return "awaiting-callback"
	case StateAuthenticated:
		return "authenticated"
	case StateInvalid:
		return "invalid"
	}
	return "unknown"
}
