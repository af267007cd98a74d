package cmd

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store sizes, paths and model availability",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		history, err := a.store.History().Count(ctx)
		if err != nil {
			return err
		}
		fixes, err := a.store.Brain().Count(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("Home:       %s\n", a.paths.Home)
		fmt.Printf("Database:   %s\n", a.paths.DB())
		fmt.Printf("Rules:      %s (%d loaded%s)\n", a.paths.Rules(), a.rules.Len(), missing(a.paths.Rules()))
		fmt.Printf("History:    %d commands\n", history)
		fmt.Printf("Knowledge:  %d fixes\n", fixes)

		if last, err := a.store.GetMeta(ctx, "last_import"); err == nil && last != "" {
			if secs, err := strconv.ParseInt(last, 10, 64); err == nil {
				fmt.Printf("Imported:   %s\n", time.Unix(secs, 0).Format(time.RFC1123))
			}
		}

		switch ready, err := a.model.Ready(ctx); {
		case !a.model.Available():
			fmt.Println("Model:      not configured")
		case err != nil:
			fmt.Printf("Model:      %s (%s, unreachable: %v)\n", a.model.Provider(), modelName(), err)
		case !ready:
			fmt.Printf("Model:      %s (%s, not installed)\n", a.model.Provider(), modelName())
		default:
			fmt.Printf("Model:      %s (%s)\n", a.model.Provider(), modelName())
		}
		return nil
	},
}

func missing(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return ", built-in defaults"
	}
	return ""
}

func modelName() string {
	if cfg.Model.Name == "" {
		return "default model"
	}
	return cfg.Model.Name
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
