package google

import (
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// sequenceSource returns the queued tokens in order, repeating the last one.
type sequenceSource struct {
	mu     sync.Mutex
	tokens []*oauth2.Token
	err    error
}

func (s *sequenceSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	tok := s.tokens[0]
	if len(s.tokens) > 1 {
		s.tokens = s.tokens[1:]
	}
	return tok, nil
}

// failingStore accepts reads but never saves.
type failingStore struct{}

func (failingStore) Get(string) (*StoredToken, error) { return nil, ErrTokenNotFound }
func (failingStore) Put(string, *StoredToken) error   { return errors.New("disk full") }

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestPersistingTokenSource_SavesOnlyChangedTokens(t *testing.T) {
	store := NewFileTokenStore(t.TempDir())
	stored := &StoredToken{
		Account: "default",
		Token:   &oauth2.Token{AccessToken: "first", RefreshToken: "r"},
		Scopes:  RequiredScopes,
	}
	base := &sequenceSource{tokens: []*oauth2.Token{
		{AccessToken: "first", RefreshToken: "r"},
		{AccessToken: "second", RefreshToken: "r", Expiry: time.Now().Add(time.Hour)},
	}}

	ts := newPersistingTokenSource(base, store, stored, discardLogger(), nil)

	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "first", tok.AccessToken)
	_, err = store.Get("default")
	assert.ErrorIs(t, err, ErrTokenNotFound, "an unchanged token is not written")

	tok, err = ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "second", tok.AccessToken)

	saved, err := store.Get("default")
	require.NoError(t, err)
	assert.Equal(t, "second", saved.Token.AccessToken)
	assert.Equal(t, RequiredScopes, saved.Scopes)
}

func TestPersistingTokenSource_SaveFailureKeepsToken(t *testing.T) {
	stored := &StoredToken{
		Account: "default",
		Token:   &oauth2.Token{AccessToken: "old"},
	}
	base := &sequenceSource{tokens: []*oauth2.Token{{AccessToken: "new"}}}

	ts := newPersistingTokenSource(base, failingStore{}, stored, discardLogger(), nil)

	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "new", tok.AccessToken)
}

func TestPersistingTokenSource_PropagatesErrors(t *testing.T) {
	stored := &StoredToken{Account: "default", Token: &oauth2.Token{AccessToken: "old"}}
	base := &sequenceSource{err: errors.New("network down")}

	ts := newPersistingTokenSource(base, failingStore{}, stored, discardLogger(), nil)

	_, err := ts.Token()
	assert.EqualError(t, err, "network down")
}

func TestIsTokenExpired(t *testing.T) {
	tests := []struct {
		name   string
		expiry time.Time
		want   bool
	}{
		{"no expiry", time.Time{}, false},
		{"valid for an hour", time.Now().Add(time.Hour), false},
		{"inside threshold", time.Now().Add(30 * time.Second), true},
		{"already expired", time.Now().Add(-time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := &oauth2.Token{AccessToken: "a", Expiry: tt.expiry}
			assert.Equal(t, tt.want, isTokenExpired(tok, time.Minute))
		})
	}
}
