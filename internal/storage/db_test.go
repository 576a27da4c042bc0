package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAccount = "12"

// setupTestDB opens a fresh database with one account seeded
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "tweets.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	err = db.AddAccount(context.Background(), &Account{ID: testAccount, UserName: "jack", DisplayName: "jack"})
	require.NoError(t, err)
	return db
}

func newTweet(id string, createdAt int64) *Tweet {
	return &Tweet{ID: id, CreatedAt: createdAt, AccountID: testAccount}
}

func seedTweets(t *testing.T, db *DB, tweets ...*Tweet) {
	t.Helper()
	_, err := db.AddTweets(context.Background(), tweets)
	require.NoError(t, err)
}

func mustGet(t *testing.T, db *DB, id string) *Tweet {
	t.Helper()
	tweet, err := db.Get(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, tweet, "tweet %s missing", id)
	return tweet
}

func TestAddTweetsIgnoresDuplicates(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	tweets := []*Tweet{newTweet("1", 100), newTweet("2", 200), newTweet("3", 300)}

	added, err := db.AddTweets(ctx, tweets)
	require.NoError(t, err)
	assert.Equal(t, 3, added)

	added, err = db.AddTweets(ctx, tweets)
	require.NoError(t, err)
	assert.Equal(t, 0, added)

	count, err := db.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestAddTweetsRequiresAccount(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.AddTweets(context.Background(), []*Tweet{{ID: "1", AccountID: "nobody"}})
	assert.Error(t, err)
}

func TestAddTweetsIsAtomic(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, err := db.AddTweets(ctx, []*Tweet{newTweet("1", 100), {ID: "2", AccountID: "nobody"}})
	require.Error(t, err)

	count, err := db.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestAddAccountIgnoresDuplicates(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.AddAccount(ctx, &Account{ID: testAccount, UserName: "other", DisplayName: "Other"}))

	stats, err := db.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Accounts)
}

func TestGetMissing(t *testing.T) {
	db := setupTestDB(t)

	tweet, err := db.Get(context.Background(), "404")
	require.NoError(t, err)
	assert.Nil(t, tweet)
}

func TestStats(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	empty, err := db.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &Stats{Accounts: 1}, empty)

	seedTweets(t, db, newTweet("1", 1), newTweet("2", 2), newTweet("3", 3), newTweet("4", 4))
	_, err = db.MarkChecked(ctx, []string{"1", "2"})
	require.NoError(t, err)
	_, err = db.MarkDeleted(ctx, []string{"3"})
	require.NoError(t, err)

	stats, err := db.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &Stats{
		Total:     4,
		Checked:   3,
		Deleted:   1,
		Remaining: 3,
		Unchecked: 1,
		Accounts:  1,
	}, stats)
}

func TestSchemaRejectsDeletedUnchecked(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	// OR IGNORE skips rows that fail the CHECK constraint
	added, err := db.AddTweets(ctx, []*Tweet{{ID: "1", AccountID: testAccount, Deleted: true}})
	require.NoError(t, err)
	assert.Zero(t, added)

	seedTweets(t, db, newTweet("2", 1))
	_, err = db.db.ExecContext(ctx, "UPDATE tweets SET deleted = 1 WHERE id = '2'")
	assert.Error(t, err)
	assert.False(t, mustGet(t, db, "2").Deleted)
}

func TestWithTxRollsBack(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	seedTweets(t, db, newTweet("1", 100))

	boom := errors.New("boom")
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "UPDATE tweets SET checked = 1 WHERE id = ?", "1")
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	assert.False(t, mustGet(t, db, "1").Checked)
}

func TestOpenRejectsInvalidUTF8(t *testing.T) {
	_, err := Open(string([]byte{0xff, 0xfe}) + ".db")
	assert.Error(t, err)
}
