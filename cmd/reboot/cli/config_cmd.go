package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/faucetdb/reboot/internal/config"
)

func newConfigCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect reboot configuration",
		Long:  "Display the effective configuration after flags and REBOOT_* environment variables are applied.",
	}

	cmd.AddCommand(newConfigShowCmd(v))

	return cmd
}

// ---------- config show ----------

func newConfigShowCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(v)
			if err != nil {
				return err
			}
			return config.WriteYAML(cmd.OutOrStdout(), settings)
		},
	}
}
