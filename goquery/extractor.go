// Package goquery implements artpub.Extractor with a content-density
// heuristic over a goquery DOM.
package goquery

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/artpub"
)

// Ensure Extractor implements artpub.Extractor at compile time.
var _ artpub.Extractor = (*Extractor)(nil)

// Metadata selectors in order of preference.
var (
	titleMetaSelectors = []string{
		`meta[property="og:title"]`,
		`meta[name="twitter:title"]`,
	}
	bylineMetaSelectors = []string{
		`meta[name="author"]`,
		`meta[property="article:author"]`,
	}
	bylineSelectors = []string{
		`[rel="author"]`,
		`.byline`,
		`.author`,
	}
	publishedMetaSelectors = []string{
		`meta[property="article:published_time"]`,
		`meta[name="date"]`,
		`meta[itemprop="datePublished"]`,
	}
)

// Extractor finds the main article with a content-density heuristic.
type Extractor struct{}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract parses rawHTML and returns the article title, metadata and
// content blocks. Blank or unparseable markup yields a document with zero
// blocks and a title derived from baseURL.
func (e *Extractor) Extract(rawHTML string, baseURL string) (*artpub.ArticleDocument, error) {
	result := &artpub.ArticleDocument{BaseURL: baseURL}
	if strings.TrimSpace(rawHTML) == "" {
		result.Title = artpub.TitleFromURL(baseURL)
		return result, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		result.Title = artpub.TitleFromURL(baseURL)
		return result, nil
	}

	result.Title = extractTitle(doc)
	result.Byline = extractByline(doc)
	result.Published = extractPublished(doc)
	result.Language = strings.TrimSpace(doc.Find("html").AttrOr("lang", ""))

	RemoveNoise(doc)
	content := MainContent(doc)
	blocks := Blocks(content.Nodes...)

	if result.Title == "" {
		result.Title = artpub.TitleFromURL(baseURL)
	}
	result.Blocks = dropTitleHeading(blocks, result.Title)

	return result, nil
}

// extractTitle prefers explicit article title markers over the page <title>,
// which often carries the site name.
func extractTitle(doc *goquery.Document) string {
	for _, sel := range titleMetaSelectors {
		if title := artpub.SanitizeTitle(doc.Find(sel).First().AttrOr("content", "")); title != "" {
			return title
		}
	}
	for _, sel := range []string{"article h1", "h1", "title"} {
		if title := artpub.SanitizeTitle(doc.Find(sel).First().Text()); title != "" {
			return title
		}
	}
	return ""
}

func extractByline(doc *goquery.Document) string {
	for _, sel := range bylineMetaSelectors {
		if byline := artpub.CleanText(doc.Find(sel).First().AttrOr("content", "")); byline != "" {
			return byline
		}
	}
	for _, sel := range bylineSelectors {
		if byline := artpub.CleanText(doc.Find(sel).First().Text()); byline != "" {
			return byline
		}
	}
	return ""
}

func extractPublished(doc *goquery.Document) string {
	for _, sel := range publishedMetaSelectors {
		if date := strings.TrimSpace(doc.Find(sel).First().AttrOr("content", "")); date != "" {
			return date
		}
	}
	return strings.TrimSpace(doc.Find("time[datetime]").First().AttrOr("datetime", ""))
}

// dropTitleHeading removes the first heading that repeats the title, since
// the renderer emits the title itself.
func dropTitleHeading(blocks []artpub.ContentBlock, title string) []artpub.ContentBlock {
	for i, b := range blocks {
		text, ok := b.(artpub.TextBlock)
		if !ok || text.Heading == 0 {
			continue
		}
		if strings.EqualFold(text.Text, title) {
			return append(blocks[:i:i], blocks[i+1:]...)
		}
		return blocks
	}
	return blocks
}
