package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ssforge/ssforge/config"
	"github.com/ssforge/ssforge/pkg/provision"
	"github.com/ssforge/ssforge/pkg/serverconf"
)

// uninstallCmd represents the uninstall command
var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Stop the service and remove the installed files",
	Long: `Stops and disables the unit, then removes the unit file, the launcher
shim, and the server config. Timestamped backups are left in place; the
system package is not removed.
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		return provision.New(cfg, serverconf.Defaults()).Uninstall(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(uninstallCmd)
}
