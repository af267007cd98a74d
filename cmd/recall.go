package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"hindsight/internal/resolve"
)

var (
	flagRecallJSON  bool
	flagRecallLimit int
	flagRecallDir   string
)

var recallCmd = &cobra.Command{
	Use:   "recall <query...>",
	Short: "Search past commands and known fixes",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := workingDir(flagRecallDir)
		if err != nil {
			return err
		}
		if flagRecallLimit > 0 {
			cfg.Recall.Limit = flagRecallLimit
		}

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		res := a.resolver.Recall(cmd.Context(), dir, strings.Join(args, " "))
		if flagRecallJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		printRecall(os.Stdout, res)
		return nil
	},
}

func printRecall(w io.Writer, res resolve.RecallResult) {
	for _, warn := range res.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", warn)
	}
	if len(res.Candidates) == 0 {
		fmt.Fprintf(w, "No commands found for %q\n", res.Query)
		return
	}
	if len(res.Tags) > 0 {
		fmt.Fprintf(w, "Context: %s\n\n", strings.Join(res.Tags, ", "))
	}
	for i, c := range res.Candidates {
		fmt.Fprintf(w, "%2d. %-50s %s\n", i+1, c.Command, recallDetail(c))
	}
}

func recallDetail(c resolve.Candidate) string {
	detail := fmt.Sprintf("%.2f %s", c.Score, c.Source)
	switch c.Source {
	case resolve.SourceHistory:
		if c.Frequency > 1 {
			detail += fmt.Sprintf(", used %dx", c.Frequency)
		}
	case resolve.SourceCommunity:
		detail += fmt.Sprintf(", %.0f%% success", c.SuccessRate)
	}
	if c.Boosted {
		detail += ", context match"
	}
	return "(" + detail + ")"
}

func init() {
	recallCmd.Flags().BoolVar(&flagRecallJSON, "json", false, "print results as JSON")
	recallCmd.Flags().IntVarP(&flagRecallLimit, "limit", "n", 0, "maximum results (default from config)")
	recallCmd.Flags().StringVar(&flagRecallDir, "dir", "", "directory to detect project context in (default current)")
	rootCmd.AddCommand(recallCmd)
}
