package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"hindsight/internal/store"
)

var seedCmd = &cobra.Command{
	Use:   "seed [file]",
	Short: "Load known fixes into the knowledge base",
	Long: `seed reads a JSON or YAML list of {command, context_tags, success_score,
provenance, error_pattern} records and upserts them into the knowledge base.
The default file is seed.json in the hindsight home directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.Paths().Seed()
		if len(args) == 1 {
			path = args[0]
		}

		entries, err := store.LoadSeedFile(path)
		if err != nil {
			return err
		}

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.store.Brain().Seed(cmd.Context(), entries)
		if err != nil {
			return err
		}
		total, err := a.store.Brain().Count(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Seeded %d of %d entries from %s (%d fixes in knowledge base)\n", n, len(entries), path, total)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
