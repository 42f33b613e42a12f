package auth

import "errors"

var (
	ProviderRejectedErr    = errors.New("identity provider rejected the login attempt")
	CorrelationMismatchErr = errors.New("callback state does not match the stored value")
)
