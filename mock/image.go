package mock

import (
	"context"

	"github.com/fwojciec/artpub"
)

var _ artpub.ImageResolver = (*ImageResolver)(nil)

// ImageResolver is a mock implementation of artpub.ImageResolver.
type ImageResolver struct {
	ResolveAllFn func(ctx context.Context, refs []string, baseURL string, session *artpub.Session) (map[string]*artpub.ResolvedImage, []artpub.ImageFailure)
}

func (r *ImageResolver) ResolveAll(ctx context.Context, refs []string, baseURL string, session *artpub.Session) (map[string]*artpub.ResolvedImage, []artpub.ImageFailure) {
	return r.ResolveAllFn(ctx, refs, baseURL, session)
}
