package google

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/teemow/gmail-inbox-status/internal/instrumentation"
	"github.com/teemow/gmail-inbox-status/internal/logging"
)

// persistingTokenSource writes every token it hands out that differs from the
// last one it saw back to the store, so refreshes survive the process.
type persistingTokenSource struct {
	mu      sync.Mutex
	base    oauth2.TokenSource
	store   TokenStore
	account string
	scopes  []string
	last    string
	logger  *slog.Logger
	metrics *instrumentation.Metrics
}

func newPersistingTokenSource(base oauth2.TokenSource, store TokenStore, st *StoredToken, logger *slog.Logger, metrics *instrumentation.Metrics) *persistingTokenSource {
	return &persistingTokenSource{
		base:    base,
		store:   store,
		account: st.Account,
		scopes:  st.Scopes,
		last:    st.Token.AccessToken,
		logger:  logger,
		metrics: metrics,
	}
}

// Token implements oauth2.TokenSource.
func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tok, err := p.base.Token()
	if err != nil {
		p.metrics.RecordOAuthTokenRefresh(context.Background(), instrumentation.OAuthResultFailure)
		return nil, err
	}
	if tok.AccessToken == p.last {
		return tok, nil
	}

	p.metrics.RecordOAuthTokenRefresh(context.Background(), instrumentation.OAuthResultSuccess)
	p.last = tok.AccessToken

	err = p.store.Put(p.account, &StoredToken{
		Account: p.account,
		Token:   tok,
		Scopes:  p.scopes,
	})
	if err != nil {
		// We still hold a usable token for this run.
		p.logger.Warn("failed to save refreshed token", logging.Account(p.account), logging.Err(err))
	} else {
		p.logger.Debug("saved refreshed token",
			logging.Account(p.account),
			slog.String("access_token", logging.SanitizeToken(tok.AccessToken)),
			slog.Time("expiry", tok.Expiry))
	}
	return tok, nil
}

// isTokenExpired checks if a token is expired or will expire within threshold.
func isTokenExpired(token *oauth2.Token, threshold time.Duration) bool {
	if token.Expiry.IsZero() {
		return false
	}
	return time.Now().Add(threshold).After(token.Expiry)
}

// isInvalidGrant reports whether a refresh failed because the grant itself is
// no longer valid (revoked, expired or issued to another client), as opposed
// to a network or server failure.
func isInvalidGrant(err error) bool {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return false
	}
	switch re.ErrorCode {
	case "invalid_grant", "unauthorized_client", "invalid_client":
		return true
	}
	if re.Response != nil {
		return re.Response.StatusCode == http.StatusBadRequest || re.Response.StatusCode == http.StatusUnauthorized
	}
	return false
}
