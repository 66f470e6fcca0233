package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the bramble command tree
func NewRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bramble",
		Short: "Bibliographic record deduplication engine",
		Long: `Bramble finds records from different sources that describe the same
publication and links them into dedup groups.

Records are loaded with 'import', deduplicated by 'dedup' or continuously by
'serve', and dedup groups are verified and repaired by 'check'.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
		},
	}

	cmd.AddCommand(
		newServeCmd(version),
		newDedupCmd(),
		newCheckCmd(),
		newImportCmd(),
		newMigrateCmd(),
	)

	return cmd
}
