package cmd

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"hindsight/internal/config"
	"hindsight/internal/logging"
)

var (
	flagConfig  string
	flagDB      string
	flagVerbose bool
)

var (
	cfg    *config.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "hindsight [query...]",
	Short: "Recall past shell commands and fix failing ones",
	Long: `hindsight searches your command history and a local knowledge base of
known fixes. Run it without arguments on a terminal to open the interactive
browser, or use the recall and fix subcommands from scripts.`,
	Args:         cobra.ArbitraryArgs,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(flagConfig)
		if err != nil {
			return err
		}
		if flagDB != "" {
			c.DBPath = flagDB
		}
		if flagVerbose {
			c.Log.Level = "debug"
		}
		l, err := logging.New(c.Log.Level, c.Log.File)
		if err != nil {
			return err
		}
		cfg, logger = c, l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if !isTerminal(os.Stdin) || !isTerminal(os.Stdout) {
			return cmd.Help()
		}
		return runTUI(cmd, strings.Join(args, " "))
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default ~/.hindsight/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default ~/.hindsight/hindsight.db)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")
}
