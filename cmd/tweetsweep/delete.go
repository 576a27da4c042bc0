package main

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/renderinc/tweetsweep/internal/storage"
)

type deleteOptions struct {
	olderThan   string
	exclude     []string
	excludeFile string
	maxLikes    int64
	maxRetweets int64
	dryRun      bool
}

func deleteCmd(a *app) *cobra.Command {
	var opts deleteOptions

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete tweets older than a given age",
		Long: `Delete destroys every tweet not yet known to be deleted that is older than
--older-than and within the like and retweet limits. Excluded ids are never touched.
Each result is recorded as it arrives, so an interrupted run can simply be restarted.`,
		Example: `  tweetsweep delete --older-than 1y
  tweetsweep delete --older-than 6w --max-likes 10 --exclude 20,1234
  tweetsweep delete --older-than 30d --exclude-file keep.txt --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			criteria, age, err := opts.criteria(cmd, time.Now())
			if err != nil {
				return err
			}

			worker, db, idx, err := a.newWorker()
			if err != nil {
				return err
			}
			defer db.Close()
			defer idx.Close()

			if opts.dryRun {
				ids, err := worker.Candidates(cmd.Context(), criteria)
				if err != nil {
					return err
				}
				for _, id := range ids {
					fmt.Println(id)
				}
				fmt.Fprintf(os.Stderr, "%s %d tweets older than %s would be deleted\n",
					color.New(color.FgYellow).Sprint("dry run:"), len(ids), HumanDuration(age))
				return nil
			}

			fmt.Printf("Deleting tweets older than %s...\n", HumanDuration(age))
			stats, err := worker.Delete(cmd.Context(), criteria)
			if err != nil {
				return err
			}

			heading("Delete Complete")
			fmt.Printf("Candidates:    %d\n", stats.Candidates)
			fmt.Printf("Deleted:       %s\n", color.New(color.FgGreen).Sprint(stats.Deleted))
			fmt.Printf("Already gone:  %d\n", stats.AlreadyGone)
			fmt.Printf("Forbidden:     %d\n", stats.Forbidden)
			fmt.Printf("Rate limited:  %d\n", stats.RateLimited)
			fmt.Printf("Duration:      %v\n", stats.Duration.Round(time.Second))
			return nil
		},
	}

	opts.addFlags(cmd)
	_ = cmd.MarkFlagRequired("older-than")

	return cmd
}

func (o *deleteOptions) addFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&o.olderThan, "older-than", "", "minimum age of tweets to delete, e.g. 30d, 6w, 1y or 36h")
	flags.StringSliceVar(&o.exclude, "exclude", nil, "tweet ids to keep (comma separated or repeated)")
	flags.StringVar(&o.excludeFile, "exclude-file", "", "file of tweet ids to keep, one per line")
	flags.Int64Var(&o.maxLikes, "max-likes", 0, "only delete tweets with at most this many likes (default unlimited)")
	flags.Int64Var(&o.maxRetweets, "max-retweets", 0, "only delete tweets with at most this many retweets (default unlimited)")
	flags.BoolVar(&o.dryRun, "dry-run", false, "list matching tweet ids without deleting anything")
}

// criteria turns the flags into storage criteria relative to now
func (o *deleteOptions) criteria(cmd *cobra.Command, now time.Time) (storage.DeleteCriteria, time.Duration, error) {
	age, err := ParseAge(o.olderThan)
	if err != nil {
		return storage.DeleteCriteria{}, 0, err
	}

	criteria := storage.DeleteCriteria{
		Before:      now.Add(-age).Unix(),
		Exclude:     o.exclude,
		MaxLikes:    math.MaxInt64,
		MaxRetweets: math.MaxInt64,
	}
	if cmd.Flags().Changed("max-likes") {
		if o.maxLikes < 0 {
			return storage.DeleteCriteria{}, 0, fmt.Errorf("--max-likes must not be negative")
		}
		criteria.MaxLikes = o.maxLikes
	}
	if cmd.Flags().Changed("max-retweets") {
		if o.maxRetweets < 0 {
			return storage.DeleteCriteria{}, 0, fmt.Errorf("--max-retweets must not be negative")
		}
		criteria.MaxRetweets = o.maxRetweets
	}

	if o.excludeFile != "" {
		ids, err := readIDFile(o.excludeFile)
		if err != nil {
			return storage.DeleteCriteria{}, 0, err
		}
		criteria.Exclude = append(criteria.Exclude, ids...)
	}
	return criteria, age, nil
}

// readIDFile reads one id per line, skipping blanks and # comments
func readIDFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open exclude file: %w", err)
	}
	defer f.Close()

	var ids []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read exclude file: %w", err)
	}
	return ids, nil
}
