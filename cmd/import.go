package cmd

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"hindsight/internal/histfile"
)

var (
	flagImportFormat string
	flagImportDir    string
)

var importCmd = &cobra.Command{
	Use:   "import [history-file]",
	Short: "Import shell history into the command store",
	Long: `import bulk-loads commands into the local history. The default source is
the command log written by the shell hook. Bash and zsh history files are also
understood; the format is guessed from the file name unless --format is set.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.Paths().CommandLog()
		if len(args) == 1 {
			p, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			path = p
		}

		format := histfile.DetectFormat(path)
		if flagImportFormat != "" {
			f, err := histfile.ParseFormat(flagImportFormat)
			if err != nil {
				return err
			}
			format = f
		}

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		fmt.Printf("Importing %s (%s)...\n", path, format)
		start := time.Now()

		// Lines without a timestamp are stamped from the anchor chosen on the
		// first import of this file, so re-imports keep them stable.
		anchorKey := "import_base:" + path
		var base int64
		if v, err := a.store.GetMeta(cmd.Context(), anchorKey); err != nil {
			return err
		} else if v != "" {
			if base, err = strconv.ParseInt(v, 10, 64); err != nil {
				return fmt.Errorf("bad import anchor %q: %w", v, err)
			}
		}

		entries, stats, err := histfile.ReadFile(path, format, flagImportDir, base)
		if err != nil {
			return err
		}
		if base == 0 {
			if err := a.store.SetMeta(cmd.Context(), anchorKey, strconv.FormatInt(stats.Base, 10)); err != nil {
				return err
			}
		}
		inserted, err := a.store.History().InsertBatch(cmd.Context(), entries)
		elapsed := time.Since(start)

		fmt.Printf("\nDone in %s\n", elapsed.Round(time.Millisecond))
		fmt.Printf("  Lines:    %d read, %d parsed, %d skipped\n", stats.Lines, stats.Parsed, stats.Skipped)
		fmt.Printf("  Commands: %d new, %d already known\n", inserted, len(entries)-inserted)
		if err != nil {
			return err
		}

		return a.store.SetMeta(cmd.Context(), "last_import", strconv.FormatInt(time.Now().Unix(), 10))
	},
}

func init() {
	importCmd.Flags().StringVar(&flagImportFormat, "format", "", "history format: log, bash or zsh (default guessed from file name)")
	importCmd.Flags().StringVar(&flagImportDir, "dir", "", "working directory recorded for commands that carry none")
	rootCmd.AddCommand(importCmd)
}
