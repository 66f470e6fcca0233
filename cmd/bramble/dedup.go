package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newDedupCmd() *cobra.Command {
	var recordID string

	cmd := &cobra.Command{
		Use:   "dedup",
		Short: "Deduplicate every record flagged update_needed",
		Long: `Runs one batch over the records flagged update_needed: candidate keys are
refreshed, each record is matched against records of other sources, and dedup
groups are created, extended or dissolved.`,
		Example: `  # One batch over all pending records
  bramble dedup

  # A single record, flagged or not
  bramble dedup --record marc.123`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(appOptions{engine: true})
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			if err := a.start(ctx); err != nil {
				return err
			}

			if recordID != "" {
				outcome, err := a.engine.Process(ctx, recordID)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", recordID, outcome)
				return err
			}

			stats, err := a.processor.RunBatch(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), stats.Fields())
		},
	}

	cmd.Flags().StringVar(&recordID, "record", "", "Deduplicate only this record")

	return cmd
}

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify every live dedup group and repair the ones that break the rules",
		Long: `Walks every live dedup group and removes members that are missing, deleted,
linked to another group or share a source with another member. Groups left with
a single member are dissolved and the member flagged for a new pass.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(appOptions{engine: true})
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			if err := a.start(ctx); err != nil {
				return err
			}

			stats, err := a.processor.CheckGroups(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), stats.Fields())
		},
	}

	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
