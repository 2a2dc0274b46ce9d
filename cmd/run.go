package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/pkg/browser"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"github.com/teemow/gmail-inbox-status/internal/config"
	"github.com/teemow/gmail-inbox-status/internal/gmail"
	"github.com/teemow/gmail-inbox-status/internal/google"
	"github.com/teemow/gmail-inbox-status/internal/instrumentation"
)

const (
	defaultAccount = "default"

	credentialsConsoleURL = "https://console.cloud.google.com/apis/credentials"
)

type options struct {
	account    string
	unread     bool
	checkEmpty bool
}

type threadCounter interface {
	CountInboxThreads(ctx context.Context, unreadOnly bool) (int64, error)
}

// services are the collaborators of one run.
type services struct {
	authorize  func(ctx context.Context, account string) (oauth2.TokenSource, error)
	newCounter func(ctx context.Context, ts oauth2.TokenSource) (threadCounter, error)
}

type servicesFactory func(cfg *config.Config, logger *slog.Logger, metrics *instrumentation.Metrics) services

// newServices wires the file token store, the OAuth authorizer and the
// Gmail client.
func newServices(cfg *config.Config, logger *slog.Logger, metrics *instrumentation.Metrics) services {
	auth := &google.Authorizer{
		CredentialsPath: cfg.CredentialsFile(),
		Store:           google.NewFileTokenStore(cfg.TokensDir()),
		CallbackAddr:    cfg.CallbackAddr,
		Logger:          logger,
		Metrics:         metrics,
	}
	if cfg.OpenBrowser {
		auth.OpenBrowser = openBrowser
	}

	return services{
		authorize: auth.Authorize,
		newCounter: func(ctx context.Context, ts oauth2.TokenSource) (threadCounter, error) {
			client, err := gmail.NewClient(ctx,
				[]option.ClientOption{option.WithTokenSource(ts)},
				gmail.WithLogger(logger),
				gmail.WithMetrics(metrics),
			)
			if err != nil {
				return nil, err
			}
			return client, nil
		},
	}
}

// openBrowser opens url without letting the launched program write to
// stdout, which carries the command result.
func openBrowser(url string) error {
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
	return browser.OpenURL(url)
}

// run authorizes, queries and reports. It returns the exit code for the
// outcomes the command handles itself; any returned error is fatal.
func run(ctx context.Context, opts options, svc services, stdout, stderr io.Writer) (int, error) {
	ts, err := svc.authorize(ctx, opts.account)
	var missing *google.ClientIdentityMissingError
	if errors.As(err, &missing) {
		printMissingCredentials(stderr, missing.ExpectedPath)
		return 1, nil
	}
	if err != nil {
		return 1, fmt.Errorf("failed to authorize account %s: %w", opts.account, err)
	}

	counter, err := svc.newCounter(ctx, ts)
	if err != nil {
		return 1, err
	}

	count, err := counter.CountInboxThreads(ctx, opts.unread)
	if err != nil {
		return 1, err
	}

	if opts.checkEmpty {
		if count == 0 {
			return 0, nil
		}
		return 1, nil
	}

	fmt.Fprintln(stdout, count)
	return 0, nil
}

func printMissingCredentials(w io.Writer, path string) {
	fmt.Fprintf(w, "Could not find a Google Auth credentials file at %s.\n", path)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Go to %s and create an OAuth client ID.\n", credentialsConsoleURL)
	fmt.Fprintln(w, "Download it as a JSON file and then save it to the above location.")
}
