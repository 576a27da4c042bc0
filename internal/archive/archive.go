// Package archive reads tweets and account details out of an unzipped
// Twitter data export.
package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// TimeFormat is the layout of created_at in the export, e.g.
// "Wed Oct 10 20:19:24 +0000 2018"
const TimeFormat = time.RubyDate

// ErrInvalidArchive is returned when path does not look like an export
var ErrInvalidArchive = errors.New("invalid archive")

// Account is the owner of the archive
type Account struct {
	ID          string
	UserName    string
	DisplayName string
}

// Tweet is one tweet as it appeared at export time
type Tweet struct {
	ID        string
	Retweets  int
	Likes     int
	CreatedAt int64 // UTC unix time
	Text      string
}

// Archive is the parsed content of an export
type Archive struct {
	Account Account
	Tweets  []Tweet
}

// ParseError locates a record that could not be parsed
type ParseError struct {
	File  string
	Index int // -1 when the whole file is malformed
	Err   error
}

func (e *ParseError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("parse %s: %v", e.File, e.Err)
	}
	return fmt.Sprintf("parse %s: record %d: %v", e.File, e.Index, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

type rawTweet struct {
	Tweet struct {
		IDStr         string `json:"id_str"`
		RetweetCount  string `json:"retweet_count"`
		FavoriteCount string `json:"favorite_count"`
		CreatedAt     string `json:"created_at"`
		FullText      string `json:"full_text"`
	} `json:"tweet"`
}

type rawAccount struct {
	Account struct {
		AccountID          string `json:"accountId"`
		Username           string `json:"username"`
		AccountDisplayName string `json:"accountDisplayName"`
	} `json:"account"`
}

// Load parses the archive rooted at dir, the folder holding "Your archive.html".
// Any malformed record fails the whole load.
func Load(dir string) (*Archive, error) {
	if !utf8.ValidString(dir) {
		return nil, fmt.Errorf("%w: invalid UTF-8 in path %q", ErrInvalidArchive, dir)
	}

	dataDir := filepath.Join(dir, "data")
	if info, err := os.Stat(dataDir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s has no data directory", ErrInvalidArchive, dir)
	}

	account, err := loadAccount(filepath.Join(dataDir, "account.js"))
	if err != nil {
		return nil, err
	}

	files, err := tweetFiles(dataDir)
	if err != nil {
		return nil, err
	}

	arc := &Archive{Account: *account}
	for _, file := range files {
		tweets, err := loadTweets(file)
		if err != nil {
			return nil, err
		}
		arc.Tweets = append(arc.Tweets, tweets...)
	}

	return arc, nil
}

// tweetFiles lists tweets.js, the older tweet.js, and any tweets-partN.js
func tweetFiles(dataDir string) ([]string, error) {
	var files []string
	for _, pattern := range []string{"tweets.js", "tweet.js", "tweets-part*.js", "tweet-part*.js"} {
		matches, err := filepath.Glob(filepath.Join(dataDir, pattern))
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", pattern, err)
		}
		files = append(files, matches...)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no tweets file in %s", ErrInvalidArchive, dataDir)
	}
	slices.Sort(files)
	return files, nil
}

// readJS strips the "window.YTD.<name>.partN = " assignment and decodes the JSON array
func readJS(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	text := string(data)
	if i := strings.IndexByte(text, '='); i >= 0 && strings.HasPrefix(strings.TrimSpace(text), "window.") {
		text = text[i+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), ";")

	if err := json.Unmarshal([]byte(text), v); err != nil {
		return &ParseError{File: filepath.Base(path), Index: -1, Err: err}
	}
	return nil
}

func loadAccount(path string) (*Account, error) {
	var raw []rawAccount
	if err := readJS(path, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 || raw[0].Account.AccountID == "" {
		return nil, &ParseError{File: filepath.Base(path), Index: -1, Err: errors.New("no account")}
	}

	a := raw[0].Account
	return &Account{
		ID:          a.AccountID,
		UserName:    a.Username,
		DisplayName: a.AccountDisplayName,
	}, nil
}

func loadTweets(path string) ([]Tweet, error) {
	var raw []rawTweet
	if err := readJS(path, &raw); err != nil {
		return nil, err
	}

	tweets := make([]Tweet, 0, len(raw))
	for i, r := range raw {
		t, err := convertTweet(r)
		if err != nil {
			return nil, &ParseError{File: filepath.Base(path), Index: i, Err: err}
		}
		tweets = append(tweets, t)
	}
	return tweets, nil
}

func convertTweet(r rawTweet) (Tweet, error) {
	if r.Tweet.IDStr == "" {
		return Tweet{}, errors.New("missing id_str")
	}

	retweets, err := strconv.Atoi(r.Tweet.RetweetCount)
	if err != nil {
		return Tweet{}, fmt.Errorf("retweet_count: %w", err)
	}
	likes, err := strconv.Atoi(r.Tweet.FavoriteCount)
	if err != nil {
		return Tweet{}, fmt.Errorf("favorite_count: %w", err)
	}
	createdAt, err := ParseTime(r.Tweet.CreatedAt)
	if err != nil {
		return Tweet{}, err
	}

	return Tweet{
		ID:        r.Tweet.IDStr,
		Retweets:  retweets,
		Likes:     likes,
		CreatedAt: createdAt,
		Text:      r.Tweet.FullText,
	}, nil
}

// ParseTime converts a created_at string into UTC unix time
func ParseTime(s string) (int64, error) {
	t, err := time.Parse(TimeFormat, s)
	if err != nil {
		return 0, fmt.Errorf("created_at %q: %w", s, err)
	}
	return t.Unix(), nil
}
