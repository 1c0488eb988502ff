// Package cmd implements the command-line interface for dotion.
//
// This package provides the following commands:
//   - serve: Start the assistant API and metrics servers
//   - chat: Talk to a running dotion server from the terminal
//   - version: Display version information
//
// The serve command is the default command when no subcommand is specified.
package cmd
