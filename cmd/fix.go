package cmd

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"hindsight/internal/resolve"
)

var (
	flagFixJSON       bool
	flagFixDir        string
	flagFixNoFeedback bool
)

var fixCmd = &cobra.Command{
	Use:   "fix [error text...]",
	Short: "Suggest a fix for an error message",
	Long: `fix tries the built-in rules first, then fixes that worked before in the
knowledge base, then the configured model. With no arguments the error text
is read from stdin.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		errText, err := errorText(args, os.Stdin)
		if err != nil {
			return err
		}
		dir, err := workingDir(flagFixDir)
		if err != nil {
			return err
		}

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		o := a.resolver.Fix(cmd.Context(), dir, errText)
		if flagFixJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(o)
		}
		printOutcome(os.Stdout, o)

		if !o.Found() || flagFixNoFeedback || !isTerminal(os.Stdin) || !isTerminal(os.Stdout) {
			return nil
		}
		worked, ok := promptYesNo(os.Stdin, os.Stdout, "Did it work? [y/n/s] ")
		if !ok {
			return nil
		}
		if err := a.resolver.Feedback(cmd.Context(), o, worked); err != nil {
			return fmt.Errorf("record feedback: %w", err)
		}
		if worked {
			fmt.Println("Recorded. This fix will rank higher next time.")
		} else {
			fmt.Println("Recorded as not working.")
		}
		return nil
	},
}

// errorText joins args, or reads stdin when there are none and it is not a
// terminal.
func errorText(args []string, stdin *os.File) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if isTerminal(stdin) {
		return "", errors.New("pass the error text as arguments or pipe it on stdin")
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", errors.New("empty error text on stdin")
	}
	return text, nil
}

func printOutcome(w io.Writer, o resolve.Outcome) {
	for _, warn := range o.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", warn)
	}

	if !o.Found() {
		fmt.Fprintf(w, "No fix found (tried: %s)\n", stageList(o.Attempted))
		if o.Explanation != "" {
			fmt.Fprintln(w, renderExplanation(o.Explanation))
		}
		return
	}

	switch o.Stage {
	case resolve.StageRule:
		fmt.Fprintf(w, "Rule %s (confidence %.0f%%)\n", o.Rule, o.Confidence*100)
	case resolve.StageCommunity:
		fmt.Fprintf(w, "Community fix (%.0f%% success over %d uses)\n", o.SuccessRate, o.Uses)
	case resolve.StageModel:
		fmt.Fprintf(w, "Model suggestion via %s (unverified)\n", cfg.Model.Provider)
	}
	fmt.Fprintf(w, "\n  %s\n", o.Command)
	if o.Explanation != "" {
		fmt.Fprintln(w, renderExplanation(o.Explanation))
	}
	if len(o.Alternates) > 0 {
		fmt.Fprintln(w, "\nAlternatives:")
		for _, alt := range o.Alternates {
			fmt.Fprintf(w, "  %-40s (%.0f%% success, %d uses)\n", alt.Command, alt.SuccessRate, alt.Uses)
		}
	}
	fmt.Fprintln(w)
}

// renderExplanation renders markdown when stdout is a terminal and returns
// the plain text otherwise.
func renderExplanation(text string) string {
	if !isTerminal(os.Stdout) {
		return "\n" + text
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(80))
	if err != nil {
		return "\n" + text
	}
	out, err := r.Render(text)
	if err != nil {
		return "\n" + text
	}
	return strings.TrimRight(out, "\n")
}

func stageList(stages []resolve.Stage) string {
	if len(stages) == 0 {
		return "nothing"
	}
	s := make([]string, len(stages))
	for i, st := range stages {
		s[i] = string(st)
	}
	return strings.Join(s, ", ")
}

// promptYesNo asks once. ok is false when the user skips.
func promptYesNo(in io.Reader, out io.Writer, prompt string) (worked, ok bool) {
	fmt.Fprint(out, prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false, false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, true
	case "n", "no":
		return false, true
	}
	return false, false
}

func init() {
	fixCmd.Flags().BoolVar(&flagFixJSON, "json", false, "print the outcome as JSON")
	fixCmd.Flags().StringVar(&flagFixDir, "dir", "", "directory to detect project context in (default current)")
	fixCmd.Flags().BoolVar(&flagFixNoFeedback, "no-feedback", false, "do not ask whether the fix worked")
	rootCmd.AddCommand(fixCmd)
}
