package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/artpub"
)

// Ensure LoggingImageResolver implements artpub.ImageResolver.
var _ artpub.ImageResolver = (*LoggingImageResolver)(nil)

// LoggingImageResolver wraps an ImageResolver with logging. Each failed
// image gets its own warning.
type LoggingImageResolver struct {
	next   artpub.ImageResolver
	logger *slog.Logger
}

// NewLoggingImageResolver creates a new LoggingImageResolver.
func NewLoggingImageResolver(next artpub.ImageResolver, logger *slog.Logger) *LoggingImageResolver {
	return &LoggingImageResolver{next: next, logger: logger}
}

// ResolveAll delegates to the wrapped resolver and logs the operation.
func (r *LoggingImageResolver) ResolveAll(ctx context.Context, refs []string, baseURL string, session *artpub.Session) (images map[string]*artpub.ResolvedImage, failures []artpub.ImageFailure) {
	defer func(begin time.Time) {
		for _, f := range failures {
			r.logger.WarnContext(ctx, "image failed",
				"url", baseURL,
				"ref", f.Ref,
				"code", artpub.ErrorCode(f.Err),
				"err", f.Err,
			)
		}
		r.logger.InfoContext(ctx, "resolve images",
			"url", baseURL,
			"refs", len(refs),
			"resolved", len(images),
			"failed", len(failures),
			"duration", time.Since(begin),
		)
	}(time.Now())
	return r.next.ResolveAll(ctx, refs, baseURL, session)
}
