package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssforge/ssforge/config"
	"github.com/ssforge/ssforge/pkg/provision"
	"github.com/ssforge/ssforge/pkg/serverconf"
)

// installCmd represents the install command
var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install and start the shadowsocks server",
	Long: `Runs the full provisioning pipeline. Server parameters come from the
PORT, PASS, METHOD, MODE and TIMEOUT environment variables; flags override
the environment. Files that already exist are backed up with a timestamped
suffix before being overwritten.
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		params, err := installParams(cmd)
		if err != nil {
			return err
		}
		if err := params.Validate(); err != nil {
			return err
		}

		return provision.New(cfg, params).Install(cmd.Context())
	},
}

// installParams resolves the server parameters: defaults, then environment,
// then flags.
func installParams(cmd *cobra.Command) (serverconf.Params, error) {
	params, err := serverconf.FromEnv()
	if err != nil {
		return params, err
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		params.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("password") {
		params.Password, _ = flags.GetString("password")
	}
	if flags.Changed("method") {
		params.Method, _ = flags.GetString("method")
	}
	if flags.Changed("mode") {
		params.Mode, _ = flags.GetString("mode")
	}
	if flags.Changed("timeout") {
		params.Timeout, _ = flags.GetInt("timeout")
	}

	if gen, _ := flags.GetBool("generate-password"); gen {
		if flags.Changed("password") {
			return params, fmt.Errorf("--password and --generate-password are mutually exclusive")
		}
		params.Password, err = serverconf.GeneratePassword()
		if err != nil {
			return params, err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Generated password: %s\n", params.Password)
	}
	return params, nil
}

func init() {
	installCmd.Flags().IntP("port", "p", 8388, "Server port")
	installCmd.Flags().String("password", "", "Pre-shared secret")
	installCmd.Flags().StringP("method", "m", "aes-256-gcm", "Cipher method")
	installCmd.Flags().String("mode", serverconf.ModeTCPAndUDP, "Transport mode (tcp_only, udp_only, tcp_and_udp)")
	installCmd.Flags().IntP("timeout", "t", 60, "Idle timeout in seconds")
	installCmd.Flags().Bool("generate-password", false, "Generate a random pre-shared secret")

	rootCmd.AddCommand(installCmd)
}
