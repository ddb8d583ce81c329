package cmd

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
	"source.quilibrium.com/quilibrium/monorepo/timelock/node/app"
	"source.quilibrium.com/quilibrium/monorepo/timelock/node/keys"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Performs an operation on sealer keys",
}

var keysCreateCmd = &cobra.Command{
	Use:   "create <id>",
	Short: "Creates an ed448 signing key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withNode(cmd, func(node *app.Node) error {
			if _, err := node.KeyManager().CreateSigningKey(
				args[0],
				keys.KeyTypeEd448,
			); err != nil {
				return err
			}

			key, err := node.KeyManager().GetRawKey(args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", key.Id, hex.EncodeToString(key.PublicKey))
			return nil
		})
	},
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists the signing keys",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withNode(cmd, func(node *app.Node) error {
			list, err := node.KeyManager().ListKeys()
			if err != nil {
				return err
			}

			for _, key := range list {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", key.Id, hex.EncodeToString(key.PublicKey))
			}

			return nil
		})
	},
}

func init() {
	keysCmd.AddCommand(keysCreateCmd)
	keysCmd.AddCommand(keysListCmd)
	rootCmd.AddCommand(keysCmd)
}
