// Command rulectl checks label rules against saved messages without running
// the server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mailtriage/internal/rules"
)

func newRootCmd() *cobra.Command {
	engine := rules.NewEngine()

	rootCmd := &cobra.Command{
		Use:           "rulectl",
		Short:         "Validate and try out label rules",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(
		newValidateCmd(engine),
		newMatchCmd(engine),
		newFunctionsCmd(engine),
	)
	return rootCmd
}

func newFunctionsCmd(engine *rules.Engine) *cobra.Command {
	return &cobra.Command{
		Use:   "functions",
		Short: "List the functions rules may call",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range engine.FunctionNames() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
