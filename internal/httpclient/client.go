// Package httpclient provides the retrying HTTP client used by the fetchers.
//
// Public data APIs (PeeringDB, alice-lg looking glasses) throttle aggressively,
// so every GET retries on 429 and transient 5xx responses with exponential
// backoff, honoring Retry-After when the server sends one.
package httpclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ipmeta/ipmeta/errors"
	"github.com/ipmeta/ipmeta/logger"
)

// retryStatus lists the response codes that trigger a retry, matching the
// status_forcelist both upstream data sources recommend.
var retryStatus = map[int]bool{
	http.StatusTooManyRequests:    true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// Client wraps http.Client with bounded retries and redirects.
type Client struct {
	*http.Client
	maxRetries   int
	maxRedirects int
	backoff      time.Duration
	userAgent    string
}

// Options configures optional Client behavior.
type Options struct {
	MaxRetries   *int           // default 3
	MaxRedirects *int           // default 10
	Backoff      *time.Duration // base backoff, default 500ms
	UserAgent    string
}

// New creates a Client with the given per-request timeout and defaults.
func New(timeout time.Duration) *Client {
	return NewWithOptions(timeout, Options{})
}

// NewWithOptions creates a Client with custom retry behavior.
func NewWithOptions(timeout time.Duration, opts Options) *Client {
	maxRetries := 3
	if opts.MaxRetries != nil {
		maxRetries = *opts.MaxRetries
	}
	maxRedirects := 10
	if opts.MaxRedirects != nil {
		maxRedirects = *opts.MaxRedirects
	}
	backoff := 500 * time.Millisecond
	if opts.Backoff != nil {
		backoff = *opts.Backoff
	}

	client := &Client{
		Client: &http.Client{
			Timeout: timeout,
		},
		maxRetries:   maxRetries,
		maxRedirects: maxRedirects,
		backoff:      backoff,
		userAgent:    opts.UserAgent,
	}

	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= client.maxRedirects {
			return errors.Newf("stopped after %d redirects", client.maxRedirects)
		}
		return nil
	}

	return client
}

// Get issues a GET request, retrying on transient failures. The caller owns
// the response body of a successful (2xx) response.
func (c *Client) Get(ctx context.Context, rawURL string, params url.Values) (*http.Response, error) {
	reqURL := rawURL
	if len(params) > 0 {
		u, err := url.Parse(rawURL)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing URL %q", rawURL)
		}
		q := u.Query()
		for k, vs := range params {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
		reqURL = u.String()
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.backoffDelay(attempt, lastErr)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, errors.Wrapf(err, "building request for %q", reqURL)
		}
		if c.userAgent != "" {
			req.Header.Set("User-Agent", c.userAgent)
		}

		resp, err := c.Do(req)
		if err != nil {
			lastErr = err
			logger.Debugf("GET %s failed (attempt %d/%d): %v", reqURL, attempt+1, c.maxRetries+1, err)
			continue
		}
		if retryStatus[resp.StatusCode] {
			lastErr = &statusError{url: reqURL, code: resp.StatusCode, retryAfter: parseRetryAfter(resp)}
			resp.Body.Close()
			logger.Debugf("GET %s returned %d (attempt %d/%d)", reqURL, resp.StatusCode, attempt+1, c.maxRetries+1)
			continue
		}
		return resp, nil
	}
	return nil, errors.Wrapf(lastErr, "GET %s: retries exhausted", reqURL)
}

// GetJSON issues a GET request and decodes the response body into out.
// Non-2xx responses are errors.
func (c *Client) GetJSON(ctx context.Context, rawURL string, params url.Values, out any) error {
	resp, err := c.Get(ctx, rawURL, params)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return errors.Newf("GET %s: unexpected status code %d", rawURL, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decoding JSON reply from %s", rawURL)
	}
	return nil
}

// backoffDelay computes the delay before the given retry attempt. A server
// supplied Retry-After takes precedence over exponential backoff.
func (c *Client) backoffDelay(attempt int, lastErr error) time.Duration {
	var se *statusError
	if errors.As(lastErr, &se) && se.retryAfter > 0 {
		return se.retryAfter
	}
	return c.backoff << (attempt - 1)
}

func parseRetryAfter(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

type statusError struct {
	url        string
	code       int
	retryAfter time.Duration
}

func (e *statusError) Error() string {
	return "GET " + e.url + ": status code " + strconv.Itoa(e.code)
}
