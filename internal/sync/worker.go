package sync

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/renderinc/tweetsweep/internal/archive"
	"github.com/renderinc/tweetsweep/internal/search"
	"github.com/renderinc/tweetsweep/internal/storage"
	"github.com/renderinc/tweetsweep/internal/twitter"
)

// Worker coordinates the local store with the Twitter API
type Worker struct {
	client *twitter.Client // nil when only importing
	db     *storage.DB
	index  *search.Index // nil disables text indexing
	logger *zap.Logger
}

// NewWorker creates a new sync worker
func NewWorker(client *twitter.Client, db *storage.DB, index *search.Index, logger *zap.Logger) *Worker {
	return &Worker{
		client: client,
		db:     db,
		index:  index,
		logger: logger,
	}
}

// ImportStats holds import statistics
type ImportStats struct {
	TotalTweets int
	NewTweets   int
	Indexed     int
	Duration    time.Duration
}

// CheckStats holds lookup statistics
type CheckStats struct {
	Candidates  int
	Batches     int
	Present     int // Still on Twitter
	Gone        int // Reported missing, now marked deleted
	Unreported  int // Not in the response map, left unchecked
	RateLimited int
	Duration    time.Duration
}

// DeleteStats holds deletion statistics
type DeleteStats struct {
	Candidates  int
	Deleted     int
	AlreadyGone int // 404: marked deleted without our request succeeding
	Forbidden   int // 403: e.g. retweets, marked checked only
	RateLimited int
	Duration    time.Duration
}

// Import stores the archive's account and tweets, indexing tweet text when an
// index is configured. Importing the same archive twice adds nothing.
func (w *Worker) Import(ctx context.Context, arc *archive.Archive) (*ImportStats, error) {
	startTime := time.Now()
	stats := &ImportStats{TotalTweets: len(arc.Tweets)}

	w.logger.Info("importing archive",
		zap.String("account", arc.Account.UserName),
		zap.Int("tweets", len(arc.Tweets)),
	)

	account := &storage.Account{
		ID:          arc.Account.ID,
		UserName:    arc.Account.UserName,
		DisplayName: arc.Account.DisplayName,
	}
	if err := w.db.AddAccount(ctx, account); err != nil {
		return nil, err
	}

	tweets := make([]*storage.Tweet, len(arc.Tweets))
	for i, t := range arc.Tweets {
		tweets[i] = &storage.Tweet{
			ID:        t.ID,
			Retweets:  t.Retweets,
			Likes:     t.Likes,
			CreatedAt: t.CreatedAt,
			AccountID: account.ID,
		}
	}

	added, err := w.db.AddTweets(ctx, tweets)
	if err != nil {
		return nil, err
	}
	stats.NewTweets = added

	if w.index != nil {
		indexed := make([]*search.IndexedTweet, len(arc.Tweets))
		for i, t := range arc.Tweets {
			indexed[i] = &search.IndexedTweet{
				ID:        t.ID,
				Text:      t.Text,
				CreatedAt: time.Unix(t.CreatedAt, 0).UTC(),
				Likes:     t.Likes,
				Retweets:  t.Retweets,
			}
		}
		if err := w.index.IndexTweets(indexed); err != nil {
			return nil, fmt.Errorf("index tweets: %w", err)
		}
		stats.Indexed = len(indexed)
	}

	stats.Duration = time.Since(startTime)
	w.logger.Info("import complete",
		zap.Int("new", stats.NewTweets),
		zap.Int("total", stats.TotalTweets),
		zap.Duration("duration", stats.Duration),
	)
	return stats, nil
}

// onRateLimit returns a hook that counts rate limit hits and stops waiting
// once ctx is done
func (w *Worker) onRateLimit(counter *int) twitter.RateLimitFunc {
	return func(ctx context.Context, limit twitter.RateLimit, _ *twitter.Response) error {
		*counter++
		if err := ctx.Err(); err != nil {
			return err
		}
		w.logger.Info("rate limit reached",
			zap.Int("limit", limit.Limit),
			zap.Int("remaining", limit.Remaining),
			zap.Bool("reset_known", limit.HasReset),
		)
		return nil
	}
}

// Check looks up every unchecked tweet, marking those still present as checked
// and those reported missing as deleted. Safe to interrupt and rerun.
func (w *Worker) Check(ctx context.Context) (*CheckStats, error) {
	startTime := time.Now()
	stats := &CheckStats{}

	ids, err := w.db.SelectUnchecked(ctx)
	if err != nil {
		return nil, err
	}
	stats.Candidates = len(ids)
	w.logger.Info("checking tweets", zap.Int("unchecked", len(ids)))

	onBatch := func(ctx context.Context, batch []string, resp *twitter.Response) error {
		statuses, err := twitter.ParseLookup(resp.Body)
		if err != nil {
			return err
		}

		var present, gone []string
		for _, id := range batch {
			status, ok := statuses[id]
			switch {
			case !ok:
				stats.Unreported++
			case status == nil:
				gone = append(gone, id)
			default:
				present = append(present, id)
			}
		}

		if _, err := w.db.MarkChecked(ctx, present); err != nil {
			return err
		}
		if _, err := w.db.MarkDeleted(ctx, gone); err != nil {
			return err
		}

		stats.Batches++
		stats.Present += len(present)
		stats.Gone += len(gone)
		w.logger.Info("batch checked",
			zap.Int("batch", stats.Batches),
			zap.Int("present", len(present)),
			zap.Int("gone", len(gone)),
			zap.Int("done", stats.Present+stats.Gone+stats.Unreported),
			zap.Int("total", stats.Candidates),
		)
		return nil
	}

	if err := w.client.Lookup(ctx, slices.Values(ids), w.onRateLimit(&stats.RateLimited), onBatch); err != nil {
		return stats, fmt.Errorf("check tweets: %w", err)
	}

	stats.Duration = time.Since(startTime)
	return stats, nil
}

// Candidates returns the ids Delete would act on, without touching the API
func (w *Worker) Candidates(ctx context.Context, criteria storage.DeleteCriteria) ([]string, error) {
	return w.db.SelectDeletable(ctx, criteria)
}

// Delete destroys every tweet matching criteria, oldest id first, recording
// each outcome as it happens so an interrupted run can resume.
func (w *Worker) Delete(ctx context.Context, criteria storage.DeleteCriteria) (*DeleteStats, error) {
	startTime := time.Now()
	stats := &DeleteStats{}

	ids, err := w.db.SelectDeletable(ctx, criteria)
	if err != nil {
		return nil, err
	}
	stats.Candidates = len(ids)
	w.logger.Info("deleting tweets", zap.Int("candidates", len(ids)))

	onResult := func(ctx context.Context, id string, resp *twitter.Response) error {
		switch resp.StatusCode {
		case http.StatusForbidden:
			if _, err := w.db.MarkChecked(ctx, []string{id}); err != nil {
				return err
			}
			stats.Forbidden++
			w.logger.Warn("not allowed to delete tweet", zap.String("id", id))
		case http.StatusNotFound:
			if _, err := w.db.MarkDeleted(ctx, []string{id}); err != nil {
				return err
			}
			stats.AlreadyGone++
			w.logger.Debug("tweet already gone", zap.String("id", id))
		default:
			if _, err := w.db.MarkDeleted(ctx, []string{id}); err != nil {
				return err
			}
			stats.Deleted++
			w.logger.Debug("tweet deleted", zap.String("id", id))
		}

		if done := stats.Deleted + stats.AlreadyGone + stats.Forbidden; done%100 == 0 {
			w.logger.Info("delete progress", zap.Int("done", done), zap.Int("total", stats.Candidates))
		}
		return nil
	}

	if err := w.client.Delete(ctx, slices.Values(ids), w.onRateLimit(&stats.RateLimited), onResult); err != nil {
		return stats, fmt.Errorf("delete tweets: %w", err)
	}

	stats.Duration = time.Since(startTime)
	return stats, nil
}
