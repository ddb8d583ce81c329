package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"source.quilibrium.com/quilibrium/monorepo/timelock/node/app"
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Performs an operation on stored records",
}

var recordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists the stored records",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withNode(cmd, func(node *app.Node) error {
			ids, records, err := node.Service().Records()
			if err != nil {
				return err
			}

			for i, id := range ids {
				fmt.Fprintf(
					cmd.OutOrStdout(),
					"%s\t%s\tt=%d\t%d bytes\n",
					id,
					records[i].Construction,
					records[i].T,
					records[i].MessageLength,
				)
			}

			return nil
		})
	},
}

var recordsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Prints a stored record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withNode(cmd, func(node *app.Node) error {
			record, err := node.Service().GetRecord(args[0])
			if err != nil {
				return err
			}

			return printJSON(cmd, record)
		})
	},
}

var recordsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Deletes a stored record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withNode(cmd, func(node *app.Node) error {
			if err := node.Service().DeleteRecord(args[0]); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "deleted", args[0])
			return nil
		})
	},
}

func init() {
	recordsCmd.AddCommand(recordsListCmd)
	recordsCmd.AddCommand(recordsGetCmd)
	recordsCmd.AddCommand(recordsDeleteCmd)
	rootCmd.AddCommand(recordsCmd)
}
