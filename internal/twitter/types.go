package twitter

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Credentials holds the OAuth 1.0a consumer and access token pairs
type Credentials struct {
	APIKey       string
	APISecret    string
	AccessToken  string
	AccessSecret string
}

// Param is a single request parameter, unencoded
type Param struct {
	Key   string
	Value string
}

// Response is a fully read HTTP response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// RateLimit is the rate limit state reported by the x-rate-limit-* headers
type RateLimit struct {
	Limit     int
	Remaining int
	Reset     time.Time
	HasReset  bool // false if the reset header was absent or malformed
}

// Status is the subset of a tweet returned by statuses/lookup that we use
type Status struct {
	IDStr         string `json:"id_str"`
	CreatedAt     string `json:"created_at"`
	FavoriteCount int    `json:"favorite_count"`
	RetweetCount  int    `json:"retweet_count"`
}

// APIError is a terminal non-success response
type APIError struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), truncate(string(e.Body), 200))
}

// NotFound reports whether the item no longer exists remotely
func (e *APIError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// Forbidden reports whether the caller may not act on the item, e.g. a retweet
func (e *APIError) Forbidden() bool {
	return e.StatusCode == http.StatusForbidden
}

// Response returns the error as a Response so callbacks can inspect it
func (e *APIError) Response() *Response {
	return &Response{StatusCode: e.StatusCode, Header: e.Header, Body: e.Body}
}

// ParseLookup decodes a statuses/lookup response requested with map=true.
// Requested ids that no longer exist map to a nil *Status.
func ParseLookup(body []byte) (map[string]*Status, error) {
	var payload struct {
		ID map[string]*Status `json:"id"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal lookup: %w", err)
	}
	if payload.ID == nil {
		return nil, fmt.Errorf("unmarshal lookup: missing id map")
	}
	return payload.ID, nil
}

func parseRateLimit(h http.Header) RateLimit {
	var limit RateLimit
	limit.Limit, _ = strconv.Atoi(h.Get("x-rate-limit-limit"))
	limit.Remaining, _ = strconv.Atoi(h.Get("x-rate-limit-remaining"))
	if reset, err := strconv.ParseInt(h.Get("x-rate-limit-reset"), 10, 64); err == nil {
		limit.Reset = time.Unix(reset, 0)
		limit.HasReset = true
	}
	return limit
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
