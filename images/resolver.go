// Package images resolves, fetches and registers the images referenced by
// extracted articles.
package images

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/artpub"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of image fetches run in parallel.
const DefaultConcurrency = 4

// acceptedTypes are the raster formats every EPUB reader can display.
var acceptedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Ensure Resolver implements artpub.ImageResolver at compile time.
var _ artpub.ImageResolver = (*Resolver)(nil)

// Resolver fetches images and assigns them ids that are stable for the
// lifetime of the Resolver. A Resolver is meant to serve one run.
type Resolver struct {
	fetcher     artpub.Fetcher
	concurrency int

	mu     sync.Mutex
	byURL  map[string]*entry
	byHash map[uint64][]*artpub.ResolvedImage
	next   int
}

type entry struct {
	image *artpub.ResolvedImage
	err   error
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithConcurrency sets how many images are fetched in parallel.
func WithConcurrency(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// NewResolver creates a Resolver that fetches images with f.
func NewResolver(f artpub.Fetcher, opts ...Option) *Resolver {
	r := &Resolver{
		fetcher:     f,
		concurrency: DefaultConcurrency,
		byURL:       make(map[string]*entry),
		byHash:      make(map[uint64][]*artpub.ResolvedImage),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve resolves a single image reference.
func (r *Resolver) Resolve(ctx context.Context, ref, baseURL string, session *artpub.Session) (*artpub.ResolvedImage, error) {
	images, failures := r.ResolveAll(ctx, []string{ref}, baseURL, session)
	if len(failures) > 0 {
		return nil, failures[0].Err
	}
	return images[ref], nil
}

// ResolveAll resolves refs against baseURL. Distinct URLs not seen before
// are fetched concurrently; ids are then minted in the order the refs are
// given, so they never depend on which fetch finishes first.
func (r *Resolver) ResolveAll(ctx context.Context, refs []string, baseURL string, session *artpub.Session) (map[string]*artpub.ResolvedImage, []artpub.ImageFailure) {
	resolved := make(map[string]*artpub.ResolvedImage)
	var failures []artpub.ImageFailure

	// Resolve refs and collect URLs that still need fetching.
	absURLs := make(map[string]string, len(refs))
	var pending []string
	queued := make(map[string]bool)
	r.mu.Lock()
	for _, ref := range refs {
		if _, ok := absURLs[ref]; ok {
			continue
		}
		u, err := ResolveURL(ref, baseURL)
		if err != nil {
			absURLs[ref] = ""
			failures = append(failures, artpub.ImageFailure{Ref: ref, Err: err})
			continue
		}
		absURLs[ref] = u
		if _, ok := r.byURL[u]; !ok && !queued[u] {
			queued[u] = true
			pending = append(pending, u)
		}
	}
	r.mu.Unlock()

	fetched := r.fetchAll(ctx, pending, session)

	r.mu.Lock()
	defer r.mu.Unlock()

	for i, u := range pending {
		e := r.register(u, fetched[i].resp, fetched[i].err)
		// Failures caused by cancellation are not remembered.
		if e.err != nil && ctx.Err() != nil {
			continue
		}
		r.byURL[u] = e
	}

	reported := make(map[string]bool)
	for _, ref := range refs {
		u := absURLs[ref]
		if u == "" || reported[ref] {
			continue
		}
		reported[ref] = true

		e, ok := r.byURL[u]
		if !ok {
			failures = append(failures, artpub.ImageFailure{Ref: ref, URL: u, Err: artpub.Errorf(artpub.EFETCH, "fetch image %s: %v", u, ctx.Err())})
			continue
		}
		if e.err != nil {
			failures = append(failures, artpub.ImageFailure{Ref: ref, URL: u, Err: e.err})
			continue
		}
		img := *e.image
		img.OriginalRef = ref
		resolved[ref] = &img
	}

	return resolved, failures
}

type fetchResult struct {
	resp *artpub.Response
	err  error
}

// fetchAll fetches urls with at most r.concurrency requests in flight.
// Results are returned in the order of urls.
func (r *Resolver) fetchAll(ctx context.Context, urls []string, session *artpub.Session) []fetchResult {
	results := make([]fetchResult, len(urls))
	if len(urls) == 0 {
		return results
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, u := range urls {
		g.Go(func() error {
			resp, err := r.fetcher.Fetch(gctx, u, session)
			results[i] = fetchResult{resp: resp, err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// register validates a fetched payload and assigns it an id. Identical
// payloads from different URLs share an id. Must be called with r.mu held.
func (r *Resolver) register(u string, resp *artpub.Response, err error) *entry {
	if err != nil {
		if artpub.ErrorCode(err) != artpub.EFETCH {
			err = artpub.Errorf(artpub.EFETCH, "fetch image %s: %v", u, err)
		}
		return &entry{err: err}
	}
	if resp == nil {
		return &entry{err: artpub.Errorf(artpub.EFETCH, "fetch image %s: empty response", u)}
	}

	mediaType, err := Sniff(resp.Body)
	if err != nil {
		return &entry{err: artpub.Errorf(artpub.EUNSUPPORTED, "image %s: %s", u, artpub.ErrorMessage(err))}
	}

	sum := xxhash.Sum64(resp.Body)
	for _, existing := range r.byHash[sum] {
		if bytes.Equal(existing.Data, resp.Body) {
			img := *existing
			img.URL = u
			return &entry{image: &img}
		}
	}

	r.next++
	img := &artpub.ResolvedImage{
		ID:        fmt.Sprintf("img-%04d", r.next),
		MediaType: mediaType,
		Data:      resp.Body,
		URL:       u,
	}
	r.byHash[sum] = append(r.byHash[sum], img)
	return &entry{image: img}
}

// ResolveURL resolves ref against baseURL and drops the fragment. Only
// http and https URLs can be fetched; other schemes are EUNSUPPORTED.
func ResolveURL(ref, baseURL string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", artpub.Errorf(artpub.EINVALID, "empty image reference")
	}
	if scheme, _, ok := strings.Cut(ref, ":"); ok && strings.EqualFold(scheme, "data") {
		return "", artpub.Errorf(artpub.EUNSUPPORTED, "inline data images are not supported")
	}

	u, err := url.Parse(ref)
	if err != nil {
		return "", artpub.Errorf(artpub.EINVALID, "invalid image reference %q", ref)
	}
	if base, err := url.Parse(baseURL); err == nil {
		u = base.ResolveReference(u)
	}
	u.Fragment = ""
	u.RawFragment = ""

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	case "":
		return "", artpub.Errorf(artpub.EINVALID, "cannot resolve relative image reference %q", ref)
	default:
		return "", artpub.Errorf(artpub.EUNSUPPORTED, "unsupported image scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", artpub.Errorf(artpub.EINVALID, "image reference %q has no host", ref)
	}
	return u.String(), nil
}

// Sniff detects the media type of data from its content, ignoring any
// type claimed by the server. Only accepted raster formats pass.
func Sniff(data []byte) (string, error) {
	if len(data) == 0 {
		return "", artpub.Errorf(artpub.EUNSUPPORTED, "empty image payload")
	}
	mediaType, _, err := mime.ParseMediaType(http.DetectContentType(data))
	if err != nil {
		return "", artpub.Errorf(artpub.EUNSUPPORTED, "unrecognized image payload")
	}
	if !acceptedTypes[mediaType] {
		return "", artpub.Errorf(artpub.EUNSUPPORTED, "unsupported image type %s", mediaType)
	}
	return mediaType, nil
}
