// Package lexicon answers whether a word is a recognized dictionary entry.
package lexicon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const DefaultBaseURL = "https://api.dictionaryapi.dev/api/v2/entries/en"

// maxBodyBytes caps how much of a dictionary response is read.
const maxBodyBytes = 1 << 20

var errRateLimited = errors.New("lexicon: rate limited")

type Verdict int

const (
	Unavailable Verdict = iota
	Recognized
	NotRecognized
)

func (v Verdict) String() string {
	switch v {
	case Recognized:
		return "recognized"
	case NotRecognized:
		return "not_recognized"
	default:
		return "unavailable"
	}
}

// Oracle looks up a lowercase word.
type Oracle interface {
	Lookup(ctx context.Context, word string) Verdict
}

// OracleFunc adapts a function to the Oracle interface.
type OracleFunc func(ctx context.Context, word string) Verdict

func (f OracleFunc) Lookup(ctx context.Context, word string) Verdict { return f(ctx, word) }

// Client queries a dictionaryapi.dev compatible HTTP service: GET {base}/{word} answers
// 200 with a JSON array of entries, or 404 when the word is unknown.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxTries   uint
	newBackOff func() backoff.BackOff
	logger     *zap.Logger
	group      singleflight.Group
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient = &http.Client{Timeout: d} }
}

// WithMaxTries bounds the attempts made for one lookup, including the first.
func WithMaxTries(n uint) Option {
	return func(c *Client) { c.maxTries = n }
}

func WithRetryBackOff(f func() backoff.BackOff) Option {
	return func(c *Client) { c.newBackOff = f }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 5 * time.Second},
		maxTries:   3,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxInterval = 2 * time.Second
			return b
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup never returns an error: transport failures, rate limiting and exhausted retries
// all come back as Unavailable. Concurrent lookups of the same word share one request.
//
// The shared request runs detached from any single caller; a caller whose ctx ends stops
// waiting and gets Unavailable while the others still receive the real verdict.
func (c *Client) Lookup(ctx context.Context, word string) Verdict {
	ch := c.group.DoChan(word, func() (any, error) {
		return c.lookup(context.WithoutCancel(ctx), word), nil
	})
	select {
	case res := <-ch:
		return res.Val.(Verdict)
	case <-ctx.Done():
		return Unavailable
	}
}

func (c *Client) lookup(ctx context.Context, word string) Verdict {
	verdict, err := backoff.Retry(ctx, func() (Verdict, error) {
		return c.fetch(ctx, word)
	},
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(c.maxTries),
	)
	if err != nil {
		c.logger.Warn("dictionary lookup failed",
			zap.String("word", word),
			zap.Error(err),
		)
		return Unavailable
	}
	return verdict
}

func (c *Client) fetch(ctx context.Context, word string) (Verdict, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+url.PathEscape(word), nil)
	if err != nil {
		return Unavailable, backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Unavailable, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return Unavailable, err
		}
		if gjson.GetBytes(body, "#").Int() > 0 {
			return Recognized, nil
		}
		return NotRecognized, nil
	case resp.StatusCode == http.StatusNotFound:
		return NotRecognized, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return Unavailable, backoff.Permanent(errRateLimited)
	case resp.StatusCode >= 500:
		return Unavailable, fmt.Errorf("lexicon: status %d", resp.StatusCode)
	default:
		return Unavailable, backoff.Permanent(fmt.Errorf("lexicon: unexpected status %d", resp.StatusCode))
	}
}
