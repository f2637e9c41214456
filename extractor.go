package artpub

// Extractor extracts the main article from HTML pages, removing boilerplate.
type Extractor interface {
	// Extract processes raw HTML fetched from baseURL and returns the
	// article as an ordered list of content blocks.
	// Malformed HTML degrades to best-effort output; a page without
	// detectable content yields a document with zero blocks.
	Extract(rawHTML string, baseURL string) (*ArticleDocument, error)
}
