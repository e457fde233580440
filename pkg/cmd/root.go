package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/ssforge/ssforge/config"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ssforge",
	Short: "ssforge installs and manages a shadowsocks proxy server.",
	Long: `ssforge provisions a shadowsocks server on a Linux host: it installs the
system package, renders the JSON configuration, installs a launcher shim and
a systemd unit, starts the service, and opens firewall ports when a firewall
is present.
`,
	DisableAutoGenTag: true,
}

// ExecuteContext executes root command with context.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&config.ConfigFile, "config", "", "Config file (default is /etc/ssforge/config.yaml).")
	rootCmd.PersistentFlags().BoolVar(&config.AlsoLogToStderr, "alsologtostderr", false, "Log to standard error as well as files.")
	rootCmd.PersistentFlags().BoolVarP(&config.Verbose, "verbose", "v", false, "Enable verbose output.")
}
