package convert

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/fwojciec/artpub"
)

var _ artpub.Fetcher = (*Fetcher)(nil)

// Fetcher decorates a Fetcher with per-host rate limiting and retries.
type Fetcher struct {
	Fetcher     artpub.Fetcher
	Limiter     artpub.DomainLimiter
	RetryDelays []time.Duration
	Logger      *slog.Logger
}

// Fetch waits for the host's rate limit, then fetches url, retrying
// failures after each of RetryDelays.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, session *artpub.Session) (*artpub.Response, error) {
	var resp *artpub.Response
	err := Retry(ctx, f.RetryDelays, func(ctx context.Context) error {
		if f.Limiter != nil {
			if err := f.Limiter.Wait(ctx, host(rawURL)); err != nil {
				return err
			}
		}
		var err error
		resp, err = f.Fetcher.Fetch(ctx, rawURL, session)
		return err
	}, func(attempt int, err error) {
		if f.Logger != nil {
			f.Logger.Info("retrying fetch", "url", rawURL, "attempt", attempt, "err", err)
		}
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func host(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
