package twitter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrRateLimitHook wraps an error returned by a RateLimitFunc
var ErrRateLimitHook = errors.New("rate limit hook failed")

// RequestFunc builds a freshly signed request for a single attempt
type RequestFunc func(ctx context.Context) (*http.Request, error)

// RateLimitFunc is called each time a request is rate limited, before sleeping.
// Returning an error aborts the request without sleeping.
type RateLimitFunc func(ctx context.Context, limit RateLimit, resp *Response) error

// Sender sends requests, waiting out rate limits and retrying server errors.
// It is the only place requests are retried.
type Sender struct {
	httpClient       *http.Client
	limiter          *rate.Limiter
	logger           *zap.Logger
	fallbackWait     time.Duration
	serverBackoff    time.Duration
	maxServerRetries int // 0 = unlimited

	Sleep func(ctx context.Context, d time.Duration) error
	Now   func() time.Time
}

// NewSender creates a sender. requestsPerSecond <= 0 disables client-side pacing.
func NewSender(httpClient *http.Client, logger *zap.Logger, fallbackWait, serverBackoff time.Duration, maxServerRetries int, requestsPerSecond float64) *Sender {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	return &Sender{
		httpClient:       httpClient,
		limiter:          rate.NewLimiter(limit, 1),
		logger:           logger,
		fallbackWait:     fallbackWait,
		serverBackoff:    serverBackoff,
		maxServerRetries: maxServerRetries,
		Sleep:            sleepContext,
		Now:              time.Now,
	}
}

// Send performs the request built by build until it succeeds or fails terminally.
// Any non-2xx status other than 429 and 5xx is returned as an *APIError.
func (s *Sender) Send(ctx context.Context, build RequestFunc, onRateLimit RateLimitFunc) (*Response, error) {
	serverErrors := 0
	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("wait for limiter: %w", err)
		}

		req, err := build(ctx)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}

		resp, err := s.do(req)
		if err != nil {
			return nil, err
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return resp, nil

		case resp.StatusCode == http.StatusTooManyRequests:
			limit := parseRateLimit(resp.Header)
			wait := s.rateLimitWait(limit)
			if onRateLimit != nil {
				if err := onRateLimit(ctx, limit, resp); err != nil {
					return nil, fmt.Errorf("%w: %w", ErrRateLimitHook, err)
				}
			}
			s.logger.Warn("rate limited, waiting",
				zap.String("url", req.URL.Path),
				zap.Duration("wait", wait),
				zap.Time("reset", limit.Reset),
			)
			if err := s.Sleep(ctx, wait); err != nil {
				return nil, err
			}

		case resp.StatusCode >= 500:
			serverErrors++
			if s.maxServerRetries > 0 && serverErrors > s.maxServerRetries {
				return nil, &APIError{StatusCode: resp.StatusCode, Header: resp.Header, Body: resp.Body}
			}
			s.logger.Warn("server error, backing off",
				zap.String("url", req.URL.Path),
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", serverErrors),
				zap.Duration("wait", s.serverBackoff),
			)
			if err := s.Sleep(ctx, s.serverBackoff); err != nil {
				return nil, err
			}

		default:
			return nil, &APIError{StatusCode: resp.StatusCode, Header: resp.Header, Body: resp.Body}
		}
	}
}

func (s *Sender) do(req *http.Request) (*Response, error) {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

// rateLimitWait returns how long to wait before retrying. The fallback is used
// when the reset time is unknown or already past.
func (s *Sender) rateLimitWait(limit RateLimit) time.Duration {
	if !limit.HasReset {
		return s.fallbackWait
	}
	wait := limit.Reset.Sub(s.Now())
	if wait <= 0 {
		return s.fallbackWait
	}
	return wait
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
