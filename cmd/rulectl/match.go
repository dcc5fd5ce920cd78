package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mailtriage/internal/record"
	"mailtriage/internal/rules"
)

func newMatchCmd(engine *rules.Engine) *cobra.Command {
	var emlPath, jsonPath string
	var showValue bool

	cmd := &cobra.Command{
		Use:   "match RULE",
		Short: "Evaluate a rule against a raw .eml file or a webhook JSON payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (emlPath == "") == (jsonPath == "") {
				return fmt.Errorf("exactly one of --eml or --json is required")
			}

			rec, err := loadRecord(emlPath, jsonPath)
			if err != nil {
				return err
			}

			p, err := engine.Compile(args[0])
			if err != nil {
				return err
			}
			if showValue {
				v, err := p.Value(rec)
				if err != nil {
					return err
				}
				out, _ := json.Marshal(v)
				fmt.Fprintf(cmd.OutOrStdout(), "value: %s\n", out)
			}

			ok, err := p.Evaluate(rec)
			if err != nil {
				return err
			}
			if ok {
				fmt.Fprintln(cmd.OutOrStdout(), "match")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "no match")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&emlPath, "eml", "", "Raw RFC 5322 message file")
	cmd.Flags().StringVar(&jsonPath, "json", "", "Postmark inbound webhook JSON file")
	cmd.Flags().BoolVar(&showValue, "value", false, "Also print the raw value of the rule")
	return cmd
}

func loadRecord(emlPath, jsonPath string) (record.EmailRecord, error) {
	if emlPath != "" {
		f, err := os.Open(emlPath)
		if err != nil {
			return record.EmailRecord{}, err
		}
		defer f.Close()
		return record.FromMIME(f)
	}

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return record.EmailRecord{}, err
	}
	var msg record.InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return record.EmailRecord{}, fmt.Errorf("failed to decode %s: %w", jsonPath, err)
	}
	return record.FromInbound(msg), nil
}
