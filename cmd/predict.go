package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var flagPredictDir string

var predictCmd = &cobra.Command{
	Use:   "predict <intent...>",
	Short: "Ask the model for a command that does what you describe",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := workingDir(flagPredictDir)
		if err != nil {
			return err
		}

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if !a.model.Available() {
			fmt.Println("No model configured. Set model.provider in the config file or ANTHROPIC_API_KEY / GEMINI_API_KEY.")
			return nil
		}

		tags := a.resolver.Context(dir).Tags()
		s, err := a.model.Predict(cmd.Context(), strings.Join(args, " "), tags)
		if err != nil {
			return fmt.Errorf("predict: %w", err)
		}
		if s.Command == "" {
			fmt.Fprintln(os.Stderr, "The model did not return a command.")
			if s.Explanation != "" {
				fmt.Println(renderExplanation(s.Explanation))
			}
			return nil
		}
		fmt.Printf("  %s\n", s.Command)
		if s.Explanation != "" {
			fmt.Println(renderExplanation(s.Explanation))
		}
		return nil
	},
}

func init() {
	predictCmd.Flags().StringVar(&flagPredictDir, "dir", "", "directory to detect project context in (default current)")
	rootCmd.AddCommand(predictCmd)
}
