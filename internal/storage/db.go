package storage

import (
	"context"
	"database/sql"
	"fmt"
	"unicode/utf8"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps SQLite database operations
type DB struct {
	db *sql.DB
}

// Open opens or creates a SQLite database
func Open(path string) (*DB, error) {
	if !utf8.ValidString(path) {
		return nil, fmt.Errorf("invalid UTF-8 in database path %q", path)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One owner, one connection: transactions never hop connections
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	storage := &DB{db: db}

	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return storage, nil
}

// Close closes the database
func (d *DB) Close() error {
	return d.db.Close()
}

// initSchema creates tables if they don't exist
func (d *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY NOT NULL,
		user_name TEXT NOT NULL,
		display_name TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tweets (
		id TEXT PRIMARY KEY NOT NULL,
		retweets INTEGER NOT NULL,
		likes INTEGER NOT NULL,
		created_at BIGINT NOT NULL,
		deleted BOOLEAN NOT NULL DEFAULT 0,
		checked BOOLEAN NOT NULL DEFAULT 0,
		account_id TEXT NOT NULL REFERENCES accounts(id),
		CHECK (checked OR NOT deleted)
	);

	CREATE INDEX IF NOT EXISTS idx_tweets_checked ON tweets(checked);
	CREATE INDEX IF NOT EXISTS idx_tweets_deleted_created ON tweets(deleted, created_at);
	`

	_, err := d.db.Exec(schema)
	return err
}

// withTx runs fn in a transaction, rolling back if fn fails
func (d *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// AddAccount inserts an account, ignoring it if it already exists
func (d *DB) AddAccount(ctx context.Context, account *Account) error {
	_, err := d.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO accounts (id, user_name, display_name) VALUES (?, ?, ?)",
		account.ID, account.UserName, account.DisplayName,
	)
	if err != nil {
		return fmt.Errorf("add account: %w", err)
	}
	return nil
}

// AddTweets inserts tweets in one transaction, returning how many were added.
// Tweets whose id already exists are ignored.
func (d *DB) AddTweets(ctx context.Context, tweets []*Tweet) (int, error) {
	added := 0
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO tweets (id, retweets, likes, created_at, deleted, checked, account_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, t := range tweets {
			res, err := stmt.ExecContext(ctx, t.ID, t.Retweets, t.Likes, t.CreatedAt, t.Deleted, t.Checked, t.AccountID)
			if err != nil {
				return fmt.Errorf("insert tweet %s: %w", t.ID, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected: %w", err)
			}
			added += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("add tweets: %w", err)
	}
	return added, nil
}

// Get retrieves a tweet by ID, returning nil if it doesn't exist
func (d *DB) Get(ctx context.Context, id string) (*Tweet, error) {
	t := &Tweet{}
	err := d.db.QueryRowContext(ctx,
		"SELECT id, retweets, likes, created_at, deleted, checked, account_id FROM tweets WHERE id = ?",
		id,
	).Scan(&t.ID, &t.Retweets, &t.Likes, &t.CreatedAt, &t.Deleted, &t.Checked, &t.AccountID)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get tweet: %w", err)
	}
	return t, nil
}

// Count returns the total number of tweets
func (d *DB) Count(ctx context.Context) (int, error) {
	var count int
	err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tweets").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count tweets: %w", err)
	}
	return count, nil
}

// Stats returns counts of tweets by state
func (d *DB) Stats(ctx context.Context) (*Stats, error) {
	s := &Stats{}
	err := d.db.QueryRowContext(ctx, `
	SELECT COUNT(*), COALESCE(SUM(checked), 0), COALESCE(SUM(deleted), 0)
	FROM tweets
	`).Scan(&s.Total, &s.Checked, &s.Deleted)
	if err != nil {
		return nil, fmt.Errorf("tweet stats: %w", err)
	}

	if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM accounts").Scan(&s.Accounts); err != nil {
		return nil, fmt.Errorf("account stats: %w", err)
	}

	s.Remaining = s.Total - s.Deleted
	s.Unchecked = s.Total - s.Checked
	return s, nil
}
