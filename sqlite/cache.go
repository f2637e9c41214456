package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/artpub"
)

// DefaultTTL is how long a cached response is served.
const DefaultTTL = 24 * time.Hour

// Ensure FetchCache implements artpub.Fetcher at compile time.
var _ artpub.Fetcher = (*FetchCache)(nil)

// FetchCache is a Fetcher that serves stored responses and delegates misses
// to another Fetcher. Responses are keyed by URL and session, so pages
// fetched with different credentials are cached separately.
type FetchCache struct {
	db      *DB
	fetcher artpub.Fetcher
	ttl     time.Duration

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// CacheOption configures a FetchCache.
type CacheOption func(*FetchCache)

// WithTTL sets how long responses are served from the cache. A zero or
// negative ttl never expires entries.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *FetchCache) {
		c.ttl = ttl
	}
}

// NewFetchCache creates a FetchCache storing responses in db.
func NewFetchCache(db *DB, fetcher artpub.Fetcher, opts ...CacheOption) *FetchCache {
	c := &FetchCache{
		db:      db,
		fetcher: fetcher,
		ttl:     DefaultTTL,
		Now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch returns the cached response for url and session when it is fresh,
// otherwise fetches it and stores the result. Failed fetches are not cached.
func (c *FetchCache) Fetch(ctx context.Context, url string, session *artpub.Session) (*artpub.Response, error) {
	key := CacheKey(url, session)

	resp, err := c.lookup(ctx, key)
	if err == nil {
		return resp, nil
	}
	if artpub.ErrorCode(err) != artpub.ENOTFOUND {
		return nil, err
	}

	resp, err = c.fetcher.Fetch(ctx, url, session)
	if err != nil {
		return nil, err
	}

	if _, err := c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO responses (key, url, final_url, status_code, content_type, body, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, key, url, resp.URL, resp.StatusCode, resp.ContentType, resp.Body, formatTime(c.Now())); err != nil {
		return nil, fmt.Errorf("failed to store response for %s: %w", url, err)
	}

	return resp, nil
}

// lookup returns the fresh response stored under key, or ENOTFOUND.
func (c *FetchCache) lookup(ctx context.Context, key string) (*artpub.Response, error) {
	var resp artpub.Response
	var fetchedAt string
	err := c.db.QueryRowContext(ctx, `
		SELECT final_url, status_code, content_type, body, fetched_at
		FROM responses
		WHERE key = ?
	`, key).Scan(&resp.URL, &resp.StatusCode, &resp.ContentType, &resp.Body, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, artpub.Errorf(artpub.ENOTFOUND, "no cached response")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query response: %w", err)
	}

	fetched, err := parseTime(fetchedAt, "fetched_at")
	if err != nil {
		return nil, err
	}
	if c.ttl > 0 && c.Now().Sub(fetched) >= c.ttl {
		return nil, artpub.Errorf(artpub.ENOTFOUND, "cached response expired")
	}

	return &resp, nil
}

// Prune deletes responses older than the TTL and returns how many were
// removed.
func (c *FetchCache) Prune(ctx context.Context) (int64, error) {
	if c.ttl <= 0 {
		return 0, nil
	}
	result, err := c.db.ExecContext(ctx, `DELETE FROM responses WHERE fetched_at <= ?`, formatTime(c.Now().Add(-c.ttl)))
	if err != nil {
		return 0, fmt.Errorf("failed to prune responses: %w", err)
	}
	return result.RowsAffected()
}

// CacheKey identifies a response by URL and a hash of the session
// credentials. Requests without credentials share one key per URL.
func CacheKey(url string, session *artpub.Session) string {
	if session == nil || (session.Cookie == "" && len(session.Headers) == 0) {
		return url
	}

	d := xxhash.New()
	_, _ = d.WriteString(session.Cookie)
	keys := make([]string, 0, len(session.Headers))
	for k := range session.Headers {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		_, _ = d.WriteString("\x00" + k + "\x00" + session.Headers[k])
	}
	return fmt.Sprintf("%s#%016x", url, d.Sum64())
}
