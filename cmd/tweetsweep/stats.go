package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func statsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show how many tweets are checked, deleted and remaining",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, idx, err := a.openStore()
			if err != nil {
				return err
			}
			defer db.Close()
			defer idx.Close()

			stats, err := db.Stats(cmd.Context())
			if err != nil {
				return fmt.Errorf("read stats: %w", err)
			}
			indexed, err := idx.Count()
			if err != nil {
				return fmt.Errorf("count index: %w", err)
			}

			heading("Tweet Statistics")
			fmt.Printf("Accounts:          %d\n", stats.Accounts)
			fmt.Printf("Tweets:            %d\n", stats.Total)
			fmt.Printf("Checked:           %d\n", stats.Checked)
			fmt.Printf("Unchecked:         %s\n", color.New(color.FgYellow).Sprint(stats.Unchecked))
			fmt.Printf("Deleted:           %s\n", color.New(color.FgGreen).Sprint(stats.Deleted))
			fmt.Printf("Remaining:         %d\n", stats.Remaining)
			fmt.Printf("Search documents:  %d\n", indexed)
			return nil
		},
	}
}
