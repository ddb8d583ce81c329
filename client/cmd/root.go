package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"source.quilibrium.com/quilibrium/monorepo/timelock/node/app"
	"source.quilibrium.com/quilibrium/monorepo/timelock/node/config"
)

var configDirectory string
var constructionName string
var NodeConfig *config.Config

var rootCmd = &cobra.Command{
	Use:           "timelock",
	Short:         "Time-lock encryption over verifiable delay functions",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		NodeConfig, err = config.LoadConfig(configDirectory)
		if err != nil {
			return errors.Wrapf(err, "invalid config directory: %s", configDirectory)
		}

		if constructionName != "" {
			NodeConfig.VDF.Construction = constructionName
		}

		return NodeConfig.VDF.Validate()
	},
}

// Execute runs the command line. An interrupt cancels the running delay
// computation.
func Execute() {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

// withNode assembles the node for the loaded config and releases it after fn.
func withNode(cmd *cobra.Command, fn func(node *app.Node) error) error {
	node, cleanup, err := app.NewNode(NodeConfig)
	if err != nil {
		return errors.Wrap(err, "start node")
	}

	defer cleanup()

	node.Start(cmd.Context())
	return fn(node)
}

// readInput returns the argument itself, the contents of the file named by
// an @ prefix, or stdin for "-".
func readInput(cmd *cobra.Command, arg string) ([]byte, error) {
	switch {
	case arg == "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		return data, errors.Wrap(err, "read stdin")
	case strings.HasPrefix(arg, "@"):
		data, err := os.ReadFile(strings.TrimPrefix(arg, "@"))
		return data, errors.Wrap(err, "read input file")
	}

	return []byte(arg), nil
}

// progressPrinter reports whole percentages of a delay computation.
func progressPrinter(cmd *cobra.Command) func(done, total uint64) {
	last := -1
	return func(done, total uint64) {
		percent := 100
		if total != 0 {
			percent = int(done * 100 / total)
		}

		if percent != last {
			last = percent
			fmt.Fprintf(cmd.ErrOrStderr(), "\rsolving: %3d%%", percent)
			if percent == 100 {
				fmt.Fprintln(cmd.ErrOrStderr())
			}
		}
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&configDirectory,
		"config",
		".config/",
		"config directory (default is .config/)",
	)
	rootCmd.PersistentFlags().StringVar(
		&constructionName,
		"construction",
		"",
		"vdf construction for new records (wesolowski or rsa-wesolowski)",
	)
}
