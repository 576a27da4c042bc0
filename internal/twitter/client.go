package twitter

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultBaseURL is the v1.1 REST API root
	DefaultBaseURL = "https://api.twitter.com/1.1"

	// MaxLookupBatch is the most ids statuses/lookup accepts per request
	MaxLookupBatch = 100

	idDelimiter = ","
)

// Options configures a Client. Zero values take the defaults.
type Options struct {
	BaseURL            string
	Credentials        Credentials
	BatchSize          int
	RateLimitFallback  time.Duration
	ServerErrorBackoff time.Duration
	MaxServerRetries   int
	RequestsPerSecond  float64
	HTTPTimeout        time.Duration
}

// Client is a Twitter API client for batch lookups and deletes
type Client struct {
	baseURL   string
	batchSize int
	signer    *Signer
	sender    *Sender
	logger    *zap.Logger
}

// NewClient creates a new Twitter API client
func NewClient(opts Options, logger *zap.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.BatchSize <= 0 || opts.BatchSize > MaxLookupBatch {
		opts.BatchSize = MaxLookupBatch
	}
	if opts.RateLimitFallback <= 0 {
		opts.RateLimitFallback = 15 * time.Minute
	}
	if opts.ServerErrorBackoff <= 0 {
		opts.ServerErrorBackoff = 60 * time.Second
	}
	if opts.HTTPTimeout <= 0 {
		opts.HTTPTimeout = 30 * time.Second
	}

	httpClient := &http.Client{
		Timeout: opts.HTTPTimeout,
	}

	return &Client{
		baseURL:   strings.TrimSuffix(opts.BaseURL, "/"),
		batchSize: opts.BatchSize,
		signer:    NewSigner(opts.Credentials),
		sender:    NewSender(httpClient, logger, opts.RateLimitFallback, opts.ServerErrorBackoff, opts.MaxServerRetries, opts.RequestsPerSecond),
		logger:    logger,
	}
}

// BatchFunc receives the unparsed response for one lookup batch, along with
// the ids that were requested
type BatchFunc func(ctx context.Context, ids []string, resp *Response) error

// ResultFunc receives the response for one delete. resp is a 2xx, 403 or 404 response.
type ResultFunc func(ctx context.Context, id string, resp *Response) error

// signedRequest returns a RequestFunc that re-signs on every attempt
func (c *Client) signedRequest(method, endpoint string, params []Param) RequestFunc {
	return func(ctx context.Context) (*http.Request, error) {
		target := endpoint
		if len(params) > 0 {
			target += "?" + encodeQuery(params)
		}

		req, err := http.NewRequestWithContext(ctx, method, target, nil)
		if err != nil {
			return nil, err
		}

		req.Header.Set("Authorization", c.signer.Sign(method, endpoint, params))
		return req, nil
	}
}

// Lookup fetches the status of ids in batches, calling onBatch once per batch.
// ids are consumed lazily and sent in the order given.
func (c *Client) Lookup(ctx context.Context, ids iter.Seq[string], onRateLimit RateLimitFunc, onBatch BatchFunc) error {
	batch := make([]string, 0, c.batchSize)
	for id := range ids {
		batch = append(batch, id)
		if len(batch) < c.batchSize {
			continue
		}
		if err := c.lookupBatch(ctx, batch, onRateLimit, onBatch); err != nil {
			return err
		}
		batch = make([]string, 0, c.batchSize)
	}

	if len(batch) > 0 {
		return c.lookupBatch(ctx, batch, onRateLimit, onBatch)
	}
	return nil
}

func (c *Client) lookupBatch(ctx context.Context, ids []string, onRateLimit RateLimitFunc, onBatch BatchFunc) error {
	endpoint := c.baseURL + "/statuses/lookup.json"
	params := []Param{
		{Key: "id", Value: strings.Join(ids, idDelimiter)},
		{Key: "map", Value: "true"},
		{Key: "trim_user", Value: "true"},
		{Key: "include_entities", Value: "false"},
	}

	c.logger.Debug("looking up batch", zap.Int("size", len(ids)), zap.String("first", ids[0]))

	resp, err := c.sender.Send(ctx, c.signedRequest(http.MethodGet, endpoint, params), onRateLimit)
	if err != nil {
		return fmt.Errorf("lookup batch starting at %s: %w", ids[0], err)
	}

	if err := onBatch(ctx, ids, resp); err != nil {
		return fmt.Errorf("handle batch starting at %s: %w", ids[0], err)
	}
	return nil
}

// Delete destroys each status in order, one request per id. Not found and
// forbidden responses are passed to onResult instead of aborting.
func (c *Client) Delete(ctx context.Context, ids iter.Seq[string], onRateLimit RateLimitFunc, onResult ResultFunc) error {
	for id := range ids {
		endpoint := fmt.Sprintf("%s/statuses/destroy/%s.json", c.baseURL, url.PathEscape(id))

		resp, err := c.sender.Send(ctx, c.signedRequest(http.MethodPost, endpoint, nil), onRateLimit)
		if err != nil {
			var apiErr *APIError
			if !errors.As(err, &apiErr) || !(apiErr.NotFound() || apiErr.Forbidden()) {
				return fmt.Errorf("delete %s: %w", id, err)
			}
			resp = apiErr.Response()
		}

		if err := onResult(ctx, id, resp); err != nil {
			return fmt.Errorf("handle delete %s: %w", id, err)
		}
	}
	return nil
}
