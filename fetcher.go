package artpub

import "context"

// Session carries the credentials attached to every request of a run.
// It is passed explicitly to each fetch; there is no shared cookie jar.
type Session struct {
	// Cookie is sent verbatim as the Cookie request header.
	Cookie string

	// Headers are extra request headers, e.g. Authorization.
	Headers map[string]string
}

// SourceRequest is a single input URL with its session.
type SourceRequest struct {
	URL     string
	Session *Session
}

// Response holds the result of fetching a URL.
type Response struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
}

// Fetcher retrieves raw bytes from URLs.
type Fetcher interface {
	// Fetch performs a single request for url. Transport failures and
	// non-success status codes are returned as EFETCH errors.
	// The session may be nil.
	Fetch(ctx context.Context, url string, session *Session) (*Response, error)
}

// DomainLimiter throttles requests per host.
type DomainLimiter interface {
	// Wait blocks until a request to host is allowed or ctx is done.
	Wait(ctx context.Context, host string) error
}
