package google

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// StoredToken is the persisted authorization for one account.
type StoredToken struct {
	Account string        `json:"account"`
	Token   *oauth2.Token `json:"token"`
	Scopes  []string      `json:"scopes"`
	Updated time.Time     `json:"updated"`
}

// TokenStore reads and writes stored tokens keyed by account name.
type TokenStore interface {
	// Get returns the token stored for account, or ErrTokenNotFound.
	Get(account string) (*StoredToken, error)

	// Put replaces the token stored for account.
	Put(account string, tok *StoredToken) error
}

// ValidateAccountName checks that account can be used as a file name in the
// token directory. Email addresses and other free-form names are accepted.
func ValidateAccountName(account string) error {
	switch {
	case account == "", account == ".", account == "..":
		return fmt.Errorf("%w %q", ErrInvalidAccount, account)
	case strings.ContainsAny(account, `/\`+"\x00"):
		return fmt.Errorf("%w %q: must not contain path separators", ErrInvalidAccount, account)
	}
	return nil
}

// FileTokenStore keeps one JSON file per account in Dir.
type FileTokenStore struct {
	Dir string
}

// NewFileTokenStore creates a store rooted at dir. The directory is created
// on the first Put.
func NewFileTokenStore(dir string) *FileTokenStore {
	return &FileTokenStore{Dir: dir}
}

// Path returns the file that holds the token for account.
func (s *FileTokenStore) Path(account string) string {
	return filepath.Join(s.Dir, account)
}

// Get reads the token stored for account.
func (s *FileTokenStore) Get(account string) (*StoredToken, error) {
	if err := ValidateAccountName(account); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.Path(account))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var st StoredToken
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("invalid token file %s: %w", s.Path(account), err)
	}
	if st.Token == nil {
		return nil, fmt.Errorf("invalid token file %s: no token", s.Path(account))
	}
	if st.Account != account {
		return nil, fmt.Errorf("token file %s belongs to account %q", s.Path(account), st.Account)
	}
	return &st, nil
}

// Put writes the token for account, replacing any previous file atomically.
func (s *FileTokenStore) Put(account string, tok *StoredToken) error {
	if err := ValidateAccountName(account); err != nil {
		return err
	}
	if tok == nil || tok.Token == nil {
		return fmt.Errorf("refusing to store empty token for account %s", account)
	}

	rec := *tok
	rec.Account = account
	if rec.Updated.IsZero() {
		rec.Updated = time.Now().UTC()
	}

	data, err := json.MarshalIndent(&rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	if err := os.MkdirAll(s.Dir, 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.Dir, "."+account+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create token file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// Only present if something below failed before the rename.
		_ = os.Remove(tmpName)
	}()

	if err := tmp.Chmod(0600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to set token file permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close token file: %w", err)
	}

	if err := os.Rename(tmpName, s.Path(account)); err != nil {
		return fmt.Errorf("failed to replace token file: %w", err)
	}
	return nil
}
