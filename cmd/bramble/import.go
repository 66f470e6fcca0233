package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/bramble/pkg/importer"
)

func newImportCmd() *cobra.Command {
	var dedupAfter bool

	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Load harvested records from a JSON-lines file",
		Long: `Reads one record per line, stores it with its candidate keys and flags it
update_needed. Reads standard input when no file is given or the file is "-".`,
		Example: `  bramble import records.jsonl
  zcat harvest.jsonl.gz | bramble import --dedup`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(appOptions{migrate: true, engine: dedupAfter})
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			if err := a.start(ctx); err != nil {
				return err
			}

			var in io.Reader = cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open input: %w", err)
				}
				defer f.Close()
				in = f
			}

			stats, err := importer.New(a.logger, a.store, a.factory).Import(ctx, in)
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), stats); err != nil {
				return err
			}

			if !dedupAfter {
				return nil
			}
			runStats, err := a.processor.RunBatch(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), runStats.Fields())
		},
	}

	cmd.Flags().BoolVar(&dedupAfter, "dedup", false, "Run a dedup batch after the import")

	return cmd
}
