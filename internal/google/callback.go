package google

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"

	"github.com/teemow/gmail-inbox-status/internal/logging"
)

const callbackPage = `<html><body>Authorization complete. You can close this window and return to the terminal.</body></html>`

type callbackResult struct {
	code string
	err  error
}

// authorizeInteractive runs the authorization code flow with PKCE. The
// redirect listener is bound for the duration of this call only.
func (a *Authorizer) authorizeInteractive(ctx context.Context, conf *oauth2.Config, logger *slog.Logger) (*oauth2.Token, error) {
	state, err := randomState()
	if err != nil {
		return nil, err
	}
	verifier := oauth2.GenerateVerifier()

	code, err := a.waitForCode(ctx, state, func() {
		authURL := conf.AuthCodeURL(state,
			oauth2.AccessTypeOffline,
			oauth2.ApprovalForce,
			oauth2.S256ChallengeOption(verifier),
		)
		a.promptUser(authURL, logger)
	})
	if err != nil {
		return nil, err
	}

	tok, err := conf.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, &TransportError{Op: "exchange authorization code", Err: err}
	}
	return tok, nil
}

// waitForCode binds the callback listener, calls start once it is accepting
// connections, and blocks until the redirect arrives or ctx is done.
func (a *Authorizer) waitForCode(ctx context.Context, state string, start func()) (string, error) {
	listen := a.Listen
	if listen == nil {
		listen = net.Listen
	}

	ln, err := listen("tcp", a.callbackAddr())
	if err != nil {
		return "", fmt.Errorf("failed to listen on %s for the OAuth redirect: %w", a.callbackAddr(), err)
	}
	defer func() { _ = ln.Close() }()

	results := make(chan callbackResult, 1)
	mux := http.NewServeMux()
	mux.HandleFunc(CallbackPath, func(w http.ResponseWriter, r *http.Request) {
		res := parseCallback(r, state)
		if res.err != nil {
			http.Error(w, res.err.Error(), http.StatusBadRequest)
		} else {
			_, _ = io.WriteString(w, callbackPage)
		}
		select {
		case results <- res:
		default:
		}
	})

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()
	defer func() { _ = srv.Close() }()

	start()

	select {
	case res := <-results:
		return res.code, res.err
	case err := <-serveErr:
		return "", fmt.Errorf("OAuth redirect listener failed: %w", err)
	case <-ctx.Done():
		return "", fmt.Errorf("waiting for authorization: %w", ctx.Err())
	}
}

func parseCallback(r *http.Request, state string) callbackResult {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		return callbackResult{err: &AuthorizationDeniedError{Reason: e}}
	}
	if q.Get("state") != state {
		return callbackResult{err: &AuthorizationDeniedError{Reason: "state mismatch in redirect"}}
	}
	code := q.Get("code")
	if code == "" {
		return callbackResult{err: &AuthorizationDeniedError{Reason: "no authorization code in redirect"}}
	}
	return callbackResult{code: code}
}

func (a *Authorizer) promptUser(authURL string, logger *slog.Logger) {
	w := a.Prompt
	if w == nil {
		w = os.Stderr
	}
	fmt.Fprintf(w, "Please open the following URL in your browser to authorize access:\n\n  %s\n\n", authURL)

	if a.OpenBrowser == nil {
		return
	}
	if err := a.OpenBrowser(authURL); err != nil {
		logger.Debug("could not open browser", logging.Err(err))
	}
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
