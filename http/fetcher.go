// Package http provides an HTTP-based implementation of artpub.Fetcher.
// Pages are fetched as served; JavaScript is never executed.
package http

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/fwojciec/artpub"
)

// DefaultFetchTimeout is the default timeout for HTTP requests.
const DefaultFetchTimeout = 30 * time.Second

// DefaultMaxBodySize caps the bytes read from a single response.
const DefaultMaxBodySize = 32 << 20

// DefaultUserAgent identifies the fetcher to servers.
const DefaultUserAgent = "artpub/1.0 (+https://github.com/fwojciec/artpub)"

// Ensure Fetcher implements artpub.Fetcher at compile time.
var _ artpub.Fetcher = (*Fetcher)(nil)

// Fetcher retrieves pages and images using HTTP GET requests.
type Fetcher struct {
	client      *http.Client
	timeout     time.Duration
	userAgent   string
	maxBodySize int64
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the timeout for HTTP requests.
// Defaults to DefaultFetchTimeout if not specified.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithUserAgent sets the User-Agent header. A session header overrides it.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithMaxBodySize sets the largest response body accepted, in bytes.
func WithMaxBodySize(n int64) Option {
	return func(f *Fetcher) {
		f.maxBodySize = n
	}
}

// NewFetcher creates a new HTTP-based Fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		timeout:     DefaultFetchTimeout,
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(f)
	}

	f.client = &http.Client{
		Timeout: f.timeout,
	}

	return f
}

// Fetch retrieves url. The session cookie and headers are sent verbatim on
// the request and on redirects to the same host. The returned URL is the
// final URL after redirects.
func (f *Fetcher) Fetch(ctx context.Context, url string, session *artpub.Session) (*artpub.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, artpub.Errorf(artpub.EINVALID, "invalid URL %q: %v", url, err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	if session != nil {
		if session.Cookie != "" {
			req.Header.Set("Cookie", session.Cookie)
		}
		for k, v := range session.Headers {
			req.Header.Set(k, v)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, artpub.Errorf(artpub.EFETCH, "GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		e := artpub.Errorf(artpub.EFETCH, "HTTP %d for %s", resp.StatusCode, url)
		e.Status = resp.StatusCode
		return nil, e
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
	if err != nil {
		return nil, artpub.Errorf(artpub.EFETCH, "read %s: %v", url, err)
	}
	if int64(len(body)) > f.maxBodySize {
		return nil, artpub.Errorf(artpub.EFETCH, "response from %s exceeds %d bytes", url, f.maxBodySize)
	}

	return &artpub.Response{
		URL:         resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
