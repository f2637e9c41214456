package mock

import "github.com/fwojciec/artpub"

var _ artpub.Extractor = (*Extractor)(nil)

// Extractor is a mock implementation of artpub.Extractor.
type Extractor struct {
	ExtractFn func(rawHTML string, baseURL string) (*artpub.ArticleDocument, error)
}

func (e *Extractor) Extract(rawHTML string, baseURL string) (*artpub.ArticleDocument, error) {
	return e.ExtractFn(rawHTML, baseURL)
}
