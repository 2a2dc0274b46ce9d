// Package instrumentation provides OpenTelemetry metrics and tracing for
// gmail-inbox-status.
//
// Instrumentation is disabled by default. When enabled, a single invocation
// records:
//
//   - oauth_auth_total: interactive authorizations by result
//   - oauth_token_refresh_total: token refreshes by result
//   - google_api_operations_total: Gmail API calls by operation and status
//   - google_api_operation_duration_seconds: Gmail API call durations
//
// and one span per authorization and per Gmail API call.
//
// Because the process exits right after its single query, exporters are
// push-based: stdout (written to stderr), OTLP over HTTP, or Prometheus
// metrics pushed to a Pushgateway. Provider.Shutdown flushes them.
package instrumentation
