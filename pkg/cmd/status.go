package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ssforge/ssforge/config"
	"github.com/ssforge/ssforge/pkg/provision"
	"github.com/ssforge/ssforge/pkg/serverconf"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show service state, listening sockets, and recent logs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		return provision.New(cfg, serverconf.Defaults()).Status(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
