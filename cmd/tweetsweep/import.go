package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/renderinc/tweetsweep/internal/archive"
	"github.com/renderinc/tweetsweep/internal/sync"
)

func importCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <archive-dir>",
		Short: "Import tweets from an unpacked Twitter archive",
		Long: `Import reads data/account.js and data/tweets.js (plus any tweets-partN.js)
from an unpacked archive and stores every tweet. Importing the same archive again
adds nothing, so it is safe to rerun with a newer export.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			arc, err := archive.Load(args[0])
			if err != nil {
				return err
			}

			db, idx, err := a.openStore()
			if err != nil {
				return err
			}
			defer db.Close()
			defer idx.Close()

			// Import never talks to the API
			worker := sync.NewWorker(nil, db, idx, a.logger)
			stats, err := worker.Import(cmd.Context(), arc)
			if err != nil {
				return fmt.Errorf("import: %w", err)
			}

			heading("Import Complete")
			fmt.Printf("Account:   @%s\n", arc.Account.UserName)
			fmt.Printf("Tweets:    %d\n", stats.TotalTweets)
			fmt.Printf("New:       %d\n", stats.NewTweets)
			fmt.Printf("Indexed:   %d\n", stats.Indexed)
			fmt.Printf("Duration:  %v\n", stats.Duration.Round(time.Millisecond))
			return nil
		},
	}
}
