package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	flagFeedbackError  string
	flagFeedbackWorked bool
	flagFeedbackDir    string
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback <command...>",
	Short: "Record whether a command fixed an error",
	Long: `feedback records the result of running a fix without the interactive
prompt, for use from scripts and shell hooks. A success adds the command to
the knowledge base; a failure only counts against an existing entry.`,
	Example: `  hindsight feedback --error "npm ERR! missing script: dev" --worked npm run start`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(flagFeedbackError) == "" {
			return errors.New("--error is required")
		}
		dir, err := workingDir(flagFeedbackDir)
		if err != nil {
			return err
		}

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		command := strings.Join(args, " ")
		tags := a.resolver.Context(dir).Tags()
		if err := a.resolver.Record(cmd.Context(), command, flagFeedbackError, tags, flagFeedbackWorked); err != nil {
			return err
		}
		result := "working"
		if !flagFeedbackWorked {
			result = "not working"
		}
		fmt.Fprintf(os.Stdout, "Recorded %q as %s\n", command, result)
		return nil
	},
}

func init() {
	feedbackCmd.Flags().StringVarP(&flagFeedbackError, "error", "e", "", "the error text the command was meant to fix")
	feedbackCmd.Flags().BoolVar(&flagFeedbackWorked, "worked", true, "whether the command fixed the error")
	feedbackCmd.Flags().StringVar(&flagFeedbackDir, "dir", "", "directory to detect project context in (default current)")
	rootCmd.AddCommand(feedbackCmd)
}
