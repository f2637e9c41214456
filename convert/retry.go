package convert

import (
	"context"
	"net/http"
	"time"

	"github.com/fwojciec/artpub"
)

// RetryDelays returns n backoff delays doubling from one second:
// 1s, 2s, 4s, ...
func RetryDelays(n int) []time.Duration {
	delays := make([]time.Duration, 0, max(n, 0))
	delay := time.Second
	for range n {
		delays = append(delays, delay)
		delay *= 2
	}
	return delays
}

// Retryable reports whether err may succeed on a later attempt. Invalid
// input, unsupported content and client errors other than timeouts and
// throttling fail the same way every time.
func Retryable(err error) bool {
	switch artpub.ErrorCode(err) {
	case artpub.EINVALID, artpub.EUNSUPPORTED:
		return false
	}
	switch status := artpub.ErrorStatus(err); {
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		return true
	case status >= 400 && status < 500:
		return false
	}
	return true
}

// Retry calls fn until it succeeds, returns a non-retryable error, or the
// delays are exhausted. One attempt is made per delay plus the initial one.
// onRetry, if not nil, is called before each retry.
func Retry(ctx context.Context, delays []time.Duration, fn func(ctx context.Context) error, onRetry func(attempt int, err error)) error {
	var lastErr error
	for attempt := 0; attempt <= len(delays); attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt == len(delays) || !Retryable(err) {
			break
		}

		if onRetry != nil {
			onRetry(attempt+2, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delays[attempt]):
		}
	}
	return lastErr
}
