package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/renderinc/tweetsweep/internal/storage"
)

func searchCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search over imported tweets",
		Long: `Search the text of imported tweets, e.g. to find ids worth passing to
delete --exclude. Supports the bleve query string syntax: phrases in quotes,
fuzzy terms like deploy~, and field queries like Likes:>100.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, idx, err := a.openStore()
			if err != nil {
				return err
			}
			defer db.Close()
			defer idx.Close()

			results, err := idx.Search(strings.Join(args, " "), limit)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Println("No results found")
				return nil
			}

			fmt.Printf("Found %d results:\n\n", len(results))
			for i, result := range results {
				tweet, err := db.Get(cmd.Context(), result.ID)
				if err != nil {
					return err
				}

				fmt.Printf("%d. %s %s\n", i+1, result.ID, tweetStatus(tweet))
				fmt.Printf("   Date: %s  Likes: %d  Retweets: %d\n",
					result.CreatedAt.Format("2006-01-02"), result.Likes, result.Retweets)
				fmt.Printf("   Score: %.3f\n", result.Score)
				if snippets, ok := result.Fragments["Text"]; ok && len(snippets) > 0 {
					fmt.Printf("   %s\n", snippets[0])
				} else {
					fmt.Printf("   %s\n", result.Text)
				}
				fmt.Println()
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum number of results")
	return cmd
}

func tweetStatus(t *storage.Tweet) string {
	switch {
	case t == nil:
		return color.New(color.FgRed).Sprint("[not in database]")
	case t.Deleted:
		return color.New(color.FgRed).Sprint("[deleted]")
	case t.Checked:
		return color.New(color.FgGreen).Sprint("[live]")
	default:
		return color.New(color.FgYellow).Sprint("[unchecked]")
	}
}
