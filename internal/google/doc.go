// Package google provides OAuth2 authorization and token persistence for the
// Gmail API.
//
// Tokens are stored one file per account under a tokens directory. An
// Authorizer reuses a stored token when it is still usable (refreshing it
// if it has expired) and otherwise runs the installed-app authorization code
// flow against a local callback listener. Refreshed tokens are written back to
// the store by the token source returned from Authorize.
package google
