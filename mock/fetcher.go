package mock

import (
	"context"

	"github.com/fwojciec/artpub"
)

var _ artpub.Fetcher = (*Fetcher)(nil)

// Fetcher is a mock implementation of artpub.Fetcher.
type Fetcher struct {
	FetchFn func(ctx context.Context, url string, session *artpub.Session) (*artpub.Response, error)
}

func (f *Fetcher) Fetch(ctx context.Context, url string, session *artpub.Session) (*artpub.Response, error) {
	return f.FetchFn(ctx, url, session)
}
