package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/artpub"
)

// Ensure LoggingExtractor implements artpub.Extractor.
var _ artpub.Extractor = (*LoggingExtractor)(nil)

// LoggingExtractor wraps an Extractor with debug logging.
type LoggingExtractor struct {
	next   artpub.Extractor
	logger *slog.Logger
}

// NewLoggingExtractor creates a new LoggingExtractor.
func NewLoggingExtractor(next artpub.Extractor, logger *slog.Logger) *LoggingExtractor {
	return &LoggingExtractor{next: next, logger: logger}
}

// Extract delegates to the wrapped extractor and logs the operation.
func (e *LoggingExtractor) Extract(rawHTML string, baseURL string) (doc *artpub.ArticleDocument, err error) {
	defer func(begin time.Time) {
		level := slog.LevelDebug
		if err != nil {
			level = slog.LevelWarn
		}
		var title string
		var blocks, images int
		if doc != nil {
			title, blocks, images = doc.Title, len(doc.Blocks), len(doc.ImageRefs())
		}
		e.logger.Log(context.Background(), level, "extract",
			"url", baseURL,
			"bytes", len(rawHTML),
			"title", title,
			"blocks", blocks,
			"images", images,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return e.next.Extract(rawHTML, baseURL)
}
