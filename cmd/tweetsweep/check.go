package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func checkCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Look up unchecked tweets and record which are gone",
		Long: `Check sends every unchecked tweet id to statuses/lookup in batches of up to 100.
Tweets still present are marked checked, tweets reported missing are marked deleted.
Rate limits are waited out. Interrupting is safe: finished batches are kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			worker, db, idx, err := a.newWorker()
			if err != nil {
				return err
			}
			defer db.Close()
			defer idx.Close()

			stats, err := worker.Check(cmd.Context())
			if err != nil {
				return err
			}

			heading("Check Complete")
			fmt.Printf("Unchecked:     %d\n", stats.Candidates)
			fmt.Printf("Batches:       %d\n", stats.Batches)
			fmt.Printf("Still there:   %d\n", stats.Present)
			fmt.Printf("Gone:          %d\n", stats.Gone)
			fmt.Printf("No answer:     %d\n", stats.Unreported)
			fmt.Printf("Rate limited:  %d\n", stats.RateLimited)
			fmt.Printf("Duration:      %v\n", stats.Duration.Round(time.Second))
			return nil
		},
	}
}
