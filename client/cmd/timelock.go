package cmd

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"source.quilibrium.com/quilibrium/monorepo/timelock/node/app"
	"source.quilibrium.com/quilibrium/monorepo/timelock/node/timelock"
)

var solutionInput string
var solveBits uint32
var solveModulus string

func printJSON(cmd *cobra.Command, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

var encryptCmd = &cobra.Command{
	Use:   "encrypt <json>",
	Short: "Seals original_text so it opens only after t sequential squarings",
	Long: `Seals original_text so it opens only after t sequential squarings.

The input is a JSON object {"x": <seed>, "t": <iterations>, "original_text": "..."},
given inline, as @file, or as - for stdin. The sealed record is printed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(cmd, args[0])
		if err != nil {
			return err
		}

		request, err := timelock.ParseEncryptRequest(data)
		if err != nil {
			return err
		}

		return withNode(cmd, func(node *app.Node) error {
			node.Service().SetProgress(progressPrinter(cmd))
			record, err := node.Service().Encrypt(cmd.Context(), request)
			if err != nil {
				return err
			}

			return printJSON(cmd, record)
		})
	},
}

var decryptCmd = &cobra.Command{
	Use:   "decrypt <json>",
	Short: "Opens a sealed record, paying the delay unless a solution is known",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		record, err := readRecord(cmd, args[0])
		if err != nil {
			return err
		}

		var solution *timelock.Solution
		if solutionInput != "" {
			data, err := readInput(cmd, solutionInput)
			if err != nil {
				return err
			}

			solution = &timelock.Solution{}
			if err := json.Unmarshal(data, solution); err != nil {
				return errors.Wrap(err, "parse solution")
			}
		}

		return withNode(cmd, func(node *app.Node) error {
			node.Service().SetProgress(progressPrinter(cmd))

			var plaintext []byte
			if solution != nil {
				plaintext, err = node.Service().DecryptWithSolution(
					cmd.Context(),
					record,
					solution.Output(),
				)
			} else {
				plaintext, err = node.Service().Decrypt(cmd.Context(), record)
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), string(plaintext))
			return nil
		})
	},
}

var solveCmd = &cobra.Command{
	Use:   "solve <x> <t>",
	Short: "Computes the VDF output and proof for a seed",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		x, ok := new(big.Int).SetString(args[0], 0)
		if !ok {
			return errors.Errorf("invalid seed %q", args[0])
		}

		t, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return errors.Wrapf(err, "invalid iterations %q", args[1])
		}

		request := &timelock.SolveRequest{
			Construction: NodeConfig.VDF.Construction,
			Bits:         solveBits,
			X:            x,
			T:            t,
		}

		if solveModulus != "" {
			modulus := timelock.HexBytes{}
			if err := modulus.UnmarshalText([]byte(solveModulus)); err != nil {
				return errors.Wrap(err, "invalid modulus")
			}

			request.Modulus = new(big.Int).SetBytes(modulus)
		}

		return withNode(cmd, func(node *app.Node) error {
			node.Service().SetProgress(progressPrinter(cmd))
			out, err := node.Service().Solve(cmd.Context(), request)
			if err != nil {
				return err
			}

			return printJSON(cmd, timelock.NewSolution(out))
		})
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify <json>",
	Short: "Checks the signature and proof of a sealed record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		record, err := readRecord(cmd, args[0])
		if err != nil {
			return err
		}

		return withNode(cmd, func(node *app.Node) error {
			node.Service().SetProgress(progressPrinter(cmd))
			ok, err := node.Service().Verify(cmd.Context(), record)
			if err != nil {
				return err
			}

			if !ok {
				return errors.New("record proof invalid")
			}

			fmt.Fprintln(cmd.OutOrStdout(), "record proof valid")
			return nil
		})
	},
}

func readRecord(cmd *cobra.Command, arg string) (*timelock.Record, error) {
	data, err := readInput(cmd, arg)
	if err != nil {
		return nil, err
	}

	return timelock.ParseRecord(data)
}

func init() {
	decryptCmd.Flags().StringVar(
		&solutionInput,
		"solution",
		"",
		"solution JSON {\"y\", \"proof\"} computed elsewhere (inline, @file or -)",
	)
	solveCmd.Flags().Uint32Var(
		&solveBits,
		"bits",
		0,
		"discriminant or modulus bits (default from config)",
	)
	solveCmd.Flags().StringVar(
		&solveModulus,
		"modulus",
		"",
		"hex RSA modulus for rsa-wesolowski",
	)

	rootCmd.AddCommand(encryptCmd)
	rootCmd.AddCommand(decryptCmd)
	rootCmd.AddCommand(solveCmd)
	rootCmd.AddCommand(verifyCmd)
}
