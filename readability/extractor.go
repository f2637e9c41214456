// Package readability implements artpub.Extractor on top of go-readability,
// a port of Mozilla's Readability.
package readability

import (
	"net/url"
	"strings"

	pq "github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/artpub"
	"github.com/fwojciec/artpub/goquery"
	"github.com/go-shiori/go-readability"
)

// Ensure Extractor implements artpub.Extractor at compile time.
var _ artpub.Extractor = (*Extractor)(nil)

// Extractor wraps go-readability to extract the main article from HTML.
type Extractor struct{}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract processes raw HTML and returns the article content blocks.
// Relative image sources are resolved against baseURL by go-readability.
func (e *Extractor) Extract(rawHTML string, baseURL string) (*artpub.ArticleDocument, error) {
	pageURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, artpub.Errorf(artpub.EINVALID, "invalid base URL: %v", err)
	}

	result := &artpub.ArticleDocument{BaseURL: baseURL}
	if strings.TrimSpace(rawHTML) == "" {
		result.Title = artpub.TitleFromURL(baseURL)
		return result, nil
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), pageURL)
	if err != nil {
		// Readability gives up on pages it cannot score; that is an
		// empty article, not a failed one.
		result.Title = artpub.TitleFromURL(baseURL)
		return result, nil
	}

	result.Title = artpub.SanitizeTitle(article.Title)
	if result.Title == "" {
		result.Title = artpub.TitleFromURL(baseURL)
	}
	result.Byline = artpub.CleanText(article.Byline)

	if strings.TrimSpace(article.Content) == "" {
		return result, nil
	}
	doc, err := pq.NewDocumentFromReader(strings.NewReader(article.Content))
	if err != nil {
		return result, nil
	}
	result.Blocks = goquery.Blocks(doc.Nodes...)

	return result, nil
}
