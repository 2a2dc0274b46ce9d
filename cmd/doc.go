// Package cmd implements the command-line interface for gmail-inbox-status.
//
// The root command authorizes the selected account, asks Gmail for the
// number of inbox threads and either prints it or, with --check-empty,
// reports emptiness through the exit code:
//
//	0  count printed, or --check-empty and the inbox is empty
//	1  --check-empty and the inbox is not empty, missing OAuth client
//	   credentials, or any other error
package cmd
