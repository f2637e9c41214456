// Package trafilatura implements artpub.Extractor on top of go-trafilatura.
package trafilatura

import (
	"net/url"
	"strings"
	"time"

	"github.com/fwojciec/artpub"
	"github.com/fwojciec/artpub/goquery"
	"github.com/markusmobius/go-trafilatura"
)

// Ensure Extractor implements artpub.Extractor at compile time.
var _ artpub.Extractor = (*Extractor)(nil)

// Extractor wraps go-trafilatura to extract main content from HTML.
type Extractor struct{}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract processes raw HTML and returns the main content as blocks.
func (e *Extractor) Extract(rawHTML string, baseURL string) (*artpub.ArticleDocument, error) {
	opts := trafilatura.Options{
		EnableFallback: true,
		IncludeImages:  true,
	}
	if u, err := url.Parse(baseURL); err == nil && u.IsAbs() {
		opts.OriginalURL = u
	}

	doc := &artpub.ArticleDocument{BaseURL: baseURL}
	if strings.TrimSpace(rawHTML) == "" {
		doc.Title = artpub.TitleFromURL(baseURL)
		return doc, nil
	}

	result, err := trafilatura.Extract(strings.NewReader(rawHTML), opts)
	if err != nil {
		// Trafilatura reports "no content" as an error.
		doc.Title = artpub.TitleFromURL(baseURL)
		return doc, nil
	}

	doc.Title = artpub.SanitizeTitle(result.Metadata.Title)
	if doc.Title == "" {
		doc.Title = artpub.TitleFromURL(baseURL)
	}
	doc.Byline = artpub.CleanText(result.Metadata.Author)
	doc.Language = result.Metadata.Language
	if !result.Metadata.Date.IsZero() {
		doc.Published = result.Metadata.Date.UTC().Format(time.RFC3339)
	}

	if result.ContentNode != nil {
		doc.Blocks = goquery.Blocks(result.ContentNode)
	}

	return doc, nil
}
