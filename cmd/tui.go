package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"hindsight/internal/tui"
)

func runTUI(cmd *cobra.Command, query string) error {
	dir, err := os.Getwd()
	if err != nil {
		return err
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	chosen, err := tui.Run(tui.Config{
		Dir:      dir,
		Query:    query,
		Tags:     a.resolver.Context(dir).Tags(),
		Resolver: a.resolver,
		Ctx:      cmd.Context(),
	})
	if err != nil {
		return err
	}
	if chosen != "" {
		fmt.Println(chosen)
	}
	return nil
}
