package google

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/teemow/gmail-inbox-status/internal/instrumentation"
	"github.com/teemow/gmail-inbox-status/internal/logging"
)

const (
	// DefaultCallbackAddr is where the local redirect listener is bound.
	DefaultCallbackAddr = "localhost:8888"

	// CallbackPath is the redirect path registered on the local listener.
	CallbackPath = "/Callback"

	// refreshThreshold treats tokens about to expire as expired.
	refreshThreshold = time.Minute
)

// Authorizer hands out Gmail credentials for an account, reusing stored
// tokens and falling back to the interactive consent flow.
type Authorizer struct {
	// CredentialsPath is the OAuth client JSON downloaded from the Google Cloud console.
	CredentialsPath string

	// Store persists tokens per account.
	Store TokenStore

	// Scopes requested on consent and required of stored tokens.
	// Defaults to RequiredScopes.
	Scopes []string

	// CallbackAddr is the host:port of the redirect listener.
	// Defaults to DefaultCallbackAddr.
	CallbackAddr string

	// Listen binds the redirect listener. Defaults to net.Listen.
	Listen func(network, address string) (net.Listener, error)

	// OpenBrowser is called with the consent URL. Errors are logged and
	// ignored since the URL is always printed to Prompt as well.
	OpenBrowser func(url string) error

	// Prompt receives the instructions for the user. Defaults to os.Stderr.
	Prompt io.Writer

	// HTTPClient is used for token exchange and refresh when set.
	HTTPClient *http.Client

	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
}

// Authorize returns a token source for account. Tokens refreshed through
// the returned source are written back to the store.
func (a *Authorizer) Authorize(ctx context.Context, account string) (oauth2.TokenSource, error) {
	ctx, span := instrumentation.StartSpan(ctx, "google.authorize", instrumentation.AccountAttr(account))
	defer span.End()

	ts, err := a.authorize(ctx, account)
	instrumentation.SetSpanStatus(span, err)
	return ts, err
}

func (a *Authorizer) authorize(ctx context.Context, account string) (oauth2.TokenSource, error) {
	conf, err := a.loadConfig()
	if err != nil {
		return nil, err
	}

	if err := ValidateAccountName(account); err != nil {
		return nil, err
	}

	logger := logging.WithAccount(a.logger(), account)
	if a.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, a.HTTPClient)
	}

	st, err := a.Store.Get(account)
	switch {
	case errors.Is(err, ErrTokenNotFound):
		logger.Info("no stored token, starting authorization")
	case err != nil:
		return nil, fmt.Errorf("failed to load stored token: %w", err)
	default:
		ts, err := a.reuse(ctx, conf, st, logger)
		if err != nil || ts != nil {
			return ts, err
		}
	}

	tok, err := a.authorizeInteractive(ctx, conf, logger)
	if err != nil {
		a.Metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		return nil, err
	}
	a.Metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultSuccess)

	st = &StoredToken{
		Account: account,
		Token:   tok,
		Scopes:  grantedScopes(tok, conf.Scopes),
	}
	if err := a.Store.Put(account, st); err != nil {
		return nil, fmt.Errorf("failed to save token: %w", err)
	}
	logger.Info("saved new token", slog.Time("expiry", tok.Expiry))

	return newPersistingTokenSource(conf.TokenSource(ctx, tok), a.Store, st, a.logger(), a.Metrics), nil
}

// reuse returns a token source built from st, or nil when st cannot be used
// and the interactive flow has to run.
func (a *Authorizer) reuse(ctx context.Context, conf *oauth2.Config, st *StoredToken, logger *slog.Logger) (oauth2.TokenSource, error) {
	if !hasScopes(st.Scopes, conf.Scopes) {
		logger.Info("stored token lacks required scopes, re-authorizing",
			slog.Any("granted", st.Scopes), slog.Any("required", conf.Scopes))
		return nil, nil
	}

	expired := isTokenExpired(st.Token, refreshThreshold)
	if expired && st.Token.RefreshToken == "" {
		logger.Info("stored token expired and has no refresh token, re-authorizing")
		return nil, nil
	}

	ts := newPersistingTokenSource(conf.TokenSource(ctx, st.Token), a.Store, st, a.logger(), a.Metrics)
	if !expired {
		logger.Debug("reusing stored token", slog.Time("expiry", st.Token.Expiry))
		return ts, nil
	}

	// Refresh now so a revoked grant can still fall back to consent.
	if _, err := ts.Token(); err != nil {
		if isInvalidGrant(err) {
			logger.Info("stored refresh token rejected, re-authorizing", logging.Err(err))
			return nil, nil
		}
		return nil, &TransportError{Op: "refresh token", Err: err}
	}
	return ts, nil
}

// loadConfig reads the OAuth client identity and builds the flow config.
func (a *Authorizer) loadConfig() (*oauth2.Config, error) {
	data, err := os.ReadFile(a.CredentialsPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, &ClientIdentityMissingError{ExpectedPath: a.CredentialsPath}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read OAuth client credentials: %w", err)
	}

	scopes := a.Scopes
	if len(scopes) == 0 {
		scopes = RequiredScopes
	}

	conf, err := google.ConfigFromJSON(data, scopes...)
	if err != nil {
		return nil, fmt.Errorf("invalid OAuth client credentials in %s: %w", a.CredentialsPath, err)
	}
	// Pin the client auth style. Left unset, x/oauth2 probes both styles and
	// repeats every failed token request, including code exchanges.
	conf.Endpoint.AuthStyle = oauth2.AuthStyleInParams
	conf.RedirectURL = "http://" + a.callbackAddr() + CallbackPath
	return conf, nil
}

// grantedScopes returns the scopes reported by the token endpoint, falling
// back to the requested ones when the response does not list them.
func grantedScopes(tok *oauth2.Token, requested []string) []string {
	if s, ok := tok.Extra("scope").(string); ok && s != "" {
		return strings.Fields(s)
	}
	return append([]string(nil), requested...)
}

func (a *Authorizer) callbackAddr() string {
	if a.CallbackAddr != "" {
		return a.CallbackAddr
	}
	return DefaultCallbackAddr
}

func (a *Authorizer) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}
