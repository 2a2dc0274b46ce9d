// Package logging provides structured logging helpers built on log/slog.
//
// Logs go to stderr so that stdout carries only the command result. The
// default level is warn, which keeps a successful run silent.
//
//	logger := logging.New(os.Stderr, "info")
//	logging.WithAccount(logger, "work").Info("saved new token")
//
// Tokens are never logged directly; use SanitizeToken.
package logging
