package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
	"source.quilibrium.com/quilibrium/monorepo/timelock/node/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Performs a configuration operation",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Creates the config directory with defaults if missing",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "Config ready in %s (version %s)\n",
			configDirectory,
			config.GetVersionString(),
		)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Prints the vdf configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := yaml.Marshal(NodeConfig.VDF)
		if err != nil {
			return err
		}

		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
