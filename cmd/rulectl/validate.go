package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mailtriage/internal/rules"
)

func newValidateCmd(engine *rules.Engine) *cobra.Command {
	return &cobra.Command{
		Use:   "validate RULE",
		Short: "Check that a rule compiles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := engine.Validate(args[0])
			var compileErr *rules.CompileError
			if errors.As(err, &compileErr) {
				fmt.Fprintln(cmd.OutOrStdout(), compileErr.Rule)
				fmt.Fprintf(cmd.OutOrStdout(), "%s^\n", strings.Repeat(" ", compileErr.Pos))
				return err
			}
			if err != nil {
				return err
			}
			if strings.TrimSpace(args[0]) == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "ok (empty rule, manual assignment only)")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
}
