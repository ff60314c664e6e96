// Package cli provides the authdesk command line: the TUI by default, and
// one-shot commands that share the TUI's persisted session.
package cli

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// options are the persistent flags shared by every command.
type options struct {
	configFile string
	baseURL    string
	logLevel   string
	output     string
	noColor    bool
	quiet      bool
}

// NewRootCmd builds the authdesk command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "authdesk",
		Short: "authdesk is a terminal client for a cookie-session auth API",
		Long: `A terminal client for an auth API that keeps its session in HTTP-only
cookies and guards requests with a CSRF token. Without a subcommand it starts
the interactive UI.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.noColor {
				color.NoColor = true
			}
			return validateOutput(opts.output)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, opts)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "Config file path (default: search for authdesk.yaml)")
	rootCmd.PersistentFlags().StringVar(&opts.baseURL, "base-url", "", "API base URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVarP(&opts.output, "output", "o", "text", "Output format: text, json, yaml")
	rootCmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&opts.quiet, "quiet", false, "Suppress non-essential output")

	rootCmd.AddCommand(newTUICmd(opts))
	rootCmd.AddCommand(newTokenCmd(opts))
	rootCmd.AddCommand(newLoginCmd(opts))
	rootCmd.AddCommand(newRegisterCmd(opts))
	rootCmd.AddCommand(newCheckCmd(opts))
	rootCmd.AddCommand(newExampleCmd(opts))

	return rootCmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
