package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/artpub"
)

// Ensure LoggingFetcher implements artpub.Fetcher.
var _ artpub.Fetcher = (*LoggingFetcher)(nil)

// LoggingFetcher wraps a Fetcher with logging.
type LoggingFetcher struct {
	next   artpub.Fetcher
	logger *slog.Logger
}

// NewLoggingFetcher creates a new LoggingFetcher.
func NewLoggingFetcher(next artpub.Fetcher, logger *slog.Logger) *LoggingFetcher {
	return &LoggingFetcher{next: next, logger: logger}
}

// Fetch delegates to the wrapped fetcher and logs the operation.
// Session credentials are never logged.
func (f *LoggingFetcher) Fetch(ctx context.Context, url string, session *artpub.Session) (resp *artpub.Response, err error) {
	defer func(begin time.Time) {
		var size, status int
		if resp != nil {
			size, status = len(resp.Body), resp.StatusCode
		}
		f.logger.Log(ctx, levelFor(err), "fetch",
			"url", url,
			"status", status,
			"bytes", size,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return f.next.Fetch(ctx, url, session)
}
