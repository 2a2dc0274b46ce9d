package google

import (
	"slices"

	gmail "google.golang.org/api/gmail/v1"
)

// RequiredScopes are the OAuth scopes requested on consent. A stored token
// that was granted fewer scopes than these is not reused.
var RequiredScopes = []string{
	gmail.GmailReadonlyScope, // Read-only access to messages and threads
}

// hasScopes reports whether granted covers every scope in required.
func hasScopes(granted, required []string) bool {
	for _, s := range required {
		if !slices.Contains(granted, s) {
			return false
		}
	}
	return true
}
