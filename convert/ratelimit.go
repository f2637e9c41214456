package convert

import (
	"context"
	"sync"

	"github.com/fwojciec/artpub"
	"golang.org/x/time/rate"
)

var _ artpub.DomainLimiter = (*DomainLimiter)(nil)

// DomainLimiter spaces out requests to each host. Article pages and the
// images they embed go through the same Fetcher, so a page and its images
// share one budget when they are served from the same host, while images
// on a CDN are limited separately from the article site.
//
// A DomainLimiter is safe for concurrent use; the image resolver waits on
// it from several goroutines at once.
type DomainLimiter struct {
	rps float64

	mu    sync.Mutex
	hosts map[string]*rate.Limiter
}

// NewDomainLimiter returns a limiter allowing rps requests per second to
// each host with no bursting. A non-positive rps disables limiting.
func NewDomainLimiter(rps float64) *DomainLimiter {
	return &DomainLimiter{rps: rps, hosts: make(map[string]*rate.Limiter)}
}

// Wait blocks until a request to host is allowed or ctx ends. The first
// request to a host never waits.
func (d *DomainLimiter) Wait(ctx context.Context, host string) error {
	if d.rps <= 0 {
		return ctx.Err()
	}
	return d.limiterFor(host).Wait(ctx)
}

// limiterFor returns the bucket for host, creating it on first use.
func (d *DomainLimiter) limiterFor(host string) *rate.Limiter {
	d.mu.Lock()
	defer d.mu.Unlock()

	l, ok := d.hosts[host]
	if !ok {
		l = rate.NewLimiter(rate.Limit(d.rps), 1)
		d.hosts[host] = l
	}
	return l
}
