// Package convert runs the article-to-ebook pipeline: it fetches each
// source page, extracts the article, resolves its images, renders a
// chapter and adds it to a book.
package convert

import (
	"context"
	"log/slog"
	"mime"
	"net/http"

	"github.com/fwojciec/artpub"
)

// Status is the result of converting one source URL.
type Status int

const (
	// StatusOK means a chapter with content was added.
	StatusOK Status = iota
	// StatusEmpty means the page had no extractable content. A chapter
	// holding only the title was still added.
	StatusEmpty
	// StatusFailed means no chapter was added.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusEmpty:
		return "empty"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// Outcome records what happened to one source URL.
type Outcome struct {
	URL    string
	Status Status
	Title  string
	Blocks int
	Images int

	// ImageFailures lists images omitted from the chapter.
	ImageFailures []artpub.ImageFailure

	// Err is set when Status is StatusFailed.
	Err error
}

// Code returns the error code of a failed outcome.
func (o Outcome) Code() string {
	return artpub.ErrorCode(o.Err)
}

// Report summarizes a run. Outcomes are in input order.
type Report struct {
	Outcomes []Outcome
}

// Chapters returns the number of chapters added to the book.
func (r *Report) Chapters() int {
	var n int
	for _, o := range r.Outcomes {
		if o.Status != StatusFailed {
			n++
		}
	}
	return n
}

// Count returns the number of outcomes with status s.
func (r *Report) Count(s Status) int {
	var n int
	for _, o := range r.Outcomes {
		if o.Status == s {
			n++
		}
	}
	return n
}

// ProgressFunc is called after each source URL is processed.
type ProgressFunc func(position, total int, outcome Outcome)

// Converter converts source URLs into chapters of a single book.
type Converter struct {
	Fetcher   artpub.Fetcher
	Extractor artpub.Extractor
	Images    artpub.ImageResolver
	Renderer  artpub.Renderer
	Logger    *slog.Logger
	Progress  ProgressFunc
}

// Convert processes reqs sequentially, in order, adding one chapter per
// successful URL to book. A failing URL is recorded in the report and
// skipped. Convert returns an error only for an empty request list or a
// canceled context; the book is never finalized here.
func (c *Converter) Convert(ctx context.Context, reqs []artpub.SourceRequest, book artpub.Book) (*Report, error) {
	if len(reqs) == 0 {
		return nil, artpub.Errorf(artpub.EINVALID, "no URLs to convert")
	}

	report := &Report{}
	for i, req := range reqs {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		outcome := c.convert(ctx, req, book)
		if outcome.Status == StatusFailed && ctx.Err() != nil {
			return report, ctx.Err()
		}
		report.Outcomes = append(report.Outcomes, outcome)

		if outcome.Status == StatusFailed {
			c.logger().Warn("skipping article", "url", req.URL, "code", outcome.Code(), "err", outcome.Err)
		}
		if c.Progress != nil {
			c.Progress(i+1, len(reqs), outcome)
		}
	}

	return report, nil
}

func (c *Converter) convert(ctx context.Context, req artpub.SourceRequest, book artpub.Book) Outcome {
	outcome := Outcome{URL: req.URL}
	fail := func(err error) Outcome {
		outcome.Status = StatusFailed
		outcome.Err = err
		return outcome
	}

	resp, err := c.Fetcher.Fetch(ctx, req.URL, req.Session)
	if err != nil {
		return fail(err)
	}
	if !isHTML(resp) {
		return fail(artpub.Errorf(artpub.EUNSUPPORTED, "%s is not an HTML page (%s)", req.URL, resp.ContentType))
	}

	baseURL := resp.URL
	if baseURL == "" {
		baseURL = req.URL
	}
	doc, err := c.Extractor.Extract(string(resp.Body), baseURL)
	if err != nil {
		return fail(err)
	}

	var images map[string]*artpub.ResolvedImage
	if refs := doc.ImageRefs(); len(refs) > 0 {
		images, outcome.ImageFailures = c.Images.ResolveAll(ctx, refs, doc.BaseURL, req.Session)
		for _, f := range outcome.ImageFailures {
			c.logger().Warn("omitting image", "url", req.URL, "ref", f.Ref, "code", artpub.ErrorCode(f.Err), "err", f.Err)
		}
	}

	ch, err := c.Renderer.Render(doc, images)
	if err != nil {
		return fail(err)
	}
	if ch.SourceURL == "" {
		ch.SourceURL = req.URL
	}

	byID := make(map[string]*artpub.ResolvedImage, len(images))
	for _, img := range images {
		byID[img.ID] = img
	}
	for _, id := range ch.ImageIDs {
		if img, ok := byID[id]; ok {
			book.AddImage(img)
		}
	}
	book.AddChapter(ch)

	outcome.Title = ch.Title
	outcome.Blocks = len(doc.Blocks)
	outcome.Images = len(ch.ImageIDs)
	if len(doc.Blocks) == 0 {
		outcome.Status = StatusEmpty
	}
	return outcome
}

func (c *Converter) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.Logger
}

// isHTML reports whether resp carries an HTML document. Responses without
// a content type are sniffed.
func isHTML(resp *artpub.Response) bool {
	contentType := resp.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(resp.Body)
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}
