// Package cmd implements the urcuisine command line.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	configPath  string
	apiURL      string
	dataDir     string
	logLevel    string
	logFormat   string
	showMetrics bool
}

func rootCmd() *cobra.Command {
	g := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "urcuisine",
		Short: "urcuisine is a client for the urcuisine recipe community",
		Long: `A command line client for urcuisine: sign in, browse recipe posts,
like or dislike them and join the conversation in the comments.

The session survives between runs. A successful login is trusted locally
for three days; within that window each run re-validates it with the API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&g.configPath, "config", "c", "", "Config file path (YAML)")
	flags.StringVar(&g.apiURL, "api-url", "", "Base URL of the recipe API")
	flags.StringVar(&g.dataDir, "data-dir", "", "Directory for the local session database")
	flags.StringVar(&g.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&g.logFormat, "log-format", "", "Log format (text, json)")
	flags.BoolVar(&g.showMetrics, "metrics", false, "Print client metrics to stderr on exit")

	cmd.AddCommand(
		loginCmd(g),
		signupCmd(g),
		logoutCmd(g),
		whoamiCmd(g),
		showCmd(g),
		reactCmd(g, "like"),
		reactCmd(g, "dislike"),
		commentCmd(g),
		configCmd(g),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				printBanner(cmd.OutOrStdout())
			},
		},
	)
	return cmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
