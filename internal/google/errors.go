package google

import (
	"errors"
	"fmt"
)

var (
	// ErrTokenNotFound is returned by a TokenStore when no token exists for an account.
	ErrTokenNotFound = errors.New("no stored token for account")

	// ErrInvalidAccount is returned when an account name cannot be used as a store key.
	ErrInvalidAccount = errors.New("invalid account name")
)

// ClientIdentityMissingError reports that the OAuth client credentials file
// does not exist. It is recoverable by the user: download the file from the
// Google Cloud console and place it at ExpectedPath.
type ClientIdentityMissingError struct {
	ExpectedPath string
}

func (e *ClientIdentityMissingError) Error() string {
	return fmt.Sprintf("OAuth client credentials not found at %s", e.ExpectedPath)
}

// TransportError wraps a network or API failure during token exchange,
// token refresh or a Gmail API call.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// AuthorizationDeniedError reports that the consent flow did not produce an
// authorization code, either because the user declined or because the
// redirect was malformed.
type AuthorizationDeniedError struct {
	Reason string
}

func (e *AuthorizationDeniedError) Error() string {
	return "authorization denied: " + e.Reason
}
