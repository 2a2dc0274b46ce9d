package gmail

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/teemow/gmail-inbox-status/internal/google"
	"github.com/teemow/gmail-inbox-status/internal/instrumentation"
	"github.com/teemow/gmail-inbox-status/internal/logging"
)

const (
	// userID addresses the authenticated user.
	userID = "me"

	queryInbox       = "in:inbox"
	queryInboxUnread = "in:inbox is:unread"
)

// InboxQuery returns the Gmail search expression for the inbox, optionally
// narrowed to unread threads.
func InboxQuery(unreadOnly bool) string {
	if unreadOnly {
		return queryInboxUnread
	}
	return queryInbox
}

// Client wraps the Gmail Users service.
type Client struct {
	svc     *gmail.UsersService
	logger  *slog.Logger
	metrics *instrumentation.Metrics
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets the logger used by the client.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// WithMetrics sets the metrics recorder used by the client.
func WithMetrics(m *instrumentation.Metrics) ClientOption {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a Gmail client. Authentication comes from opts,
// usually option.WithTokenSource.
func NewClient(ctx context.Context, opts []option.ClientOption, clientOpts ...ClientOption) (*Client, error) {
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	c := &Client{
		svc:    svc.Users,
		logger: slog.Default(),
	}
	for _, o := range clientOpts {
		o(c)
	}
	return c, nil
}

// CountInboxThreads returns Gmail's estimate of the number of inbox threads,
// or of unread inbox threads when unreadOnly is set. Failures are returned
// as *google.TransportError and are not retried.
func (c *Client) CountInboxThreads(ctx context.Context, unreadOnly bool) (int64, error) {
	q := InboxQuery(unreadOnly)

	ctx, span := instrumentation.StartGoogleAPISpan(ctx, "threads.list", instrumentation.QueryAttr(q))
	defer span.End()

	start := time.Now()
	// Default page size; only the estimate field is returned.
	res, err := c.svc.Threads.List(userID).
		Q(q).
		Fields("resultSizeEstimate").
		Context(ctx).
		Do()
	duration := time.Since(start)

	logger := logging.WithOperation(c.logger, "gmail.threads.list")
	if err != nil {
		err = &google.TransportError{Op: "list inbox threads", Err: err}
		c.metrics.RecordGoogleAPIOperation(ctx, "threads.list", instrumentation.StatusError, duration)
		instrumentation.SetSpanStatus(span, err)
		logger.Debug("thread count failed", logging.Status(instrumentation.StatusError), logging.Err(err))
		return 0, err
	}

	c.metrics.RecordGoogleAPIOperation(ctx, "threads.list", instrumentation.StatusSuccess, duration)
	instrumentation.SetSpanStatus(span, nil)
	logger.Debug("thread count",
		logging.Status(instrumentation.StatusSuccess),
		slog.String("query", q),
		slog.Int64("estimate", res.ResultSizeEstimate),
		slog.Duration("duration", duration))

	return res.ResultSizeEstimate, nil
}
