package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the dotion application
var rootCmd = &cobra.Command{
	Use:   "dotion",
	Short: "Calendar assistant that talks to your Google Calendar",
	Long: `dotion is a personal calendar assistant. It streams chat
completions from an OpenAI-compatible model, executes the calendar tools the
model calls against Google Calendar, and serves the result as a single
event stream.

It can run as:
  - An HTTP server backing the web UI (default)
  - A terminal chat client against a running server`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "dotion version %s\n" .Version}}`)

	// If no subcommand is provided, run the serve command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newChatCmd())
	rootCmd.AddCommand(newVersionCmd())
}
