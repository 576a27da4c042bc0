package storage

// Tweet is a previously posted tweet tracked for deletion
type Tweet struct {
	ID        string `db:"id"` // Primary key, sorts lexicographically
	Retweets  int    `db:"retweets"`
	Likes     int    `db:"likes"`
	CreatedAt int64  `db:"created_at"` // UTC unix time
	Deleted   bool   `db:"deleted"`    // Confirmed gone remotely
	Checked   bool   `db:"checked"`    // Looked up at least once
	AccountID string `db:"account_id"`
}

// Account is the owner of imported tweets
type Account struct {
	ID          string `db:"id"`
	UserName    string `db:"user_name"`
	DisplayName string `db:"display_name"`
}

// Stats summarises the tweets table
type Stats struct {
	Total     int
	Checked   int
	Deleted   int
	Remaining int // Not deleted
	Unchecked int
	Accounts  int
}

// DeleteCriteria selects tweets eligible for deletion
type DeleteCriteria struct {
	Before      int64    // Only tweets created strictly before this unix time
	Exclude     []string // Never delete these ids
	MaxLikes    int64
	MaxRetweets int64
}
