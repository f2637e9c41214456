package convert_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fwojciec/artpub"
	"github.com/fwojciec/artpub/convert"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryDelays(t *testing.T) {
	t.Parallel()

	assert.Empty(t, convert.RetryDelays(0))
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, convert.RetryDelays(3))
}

func TestRetryable(t *testing.T) {
	t.Parallel()

	withStatus := func(status int) error {
		e := artpub.Errorf(artpub.EFETCH, "HTTP %d", status)
		e.Status = status
		return e
	}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "transport failure", err: artpub.Errorf(artpub.EFETCH, "connection reset"), want: true},
		{name: "server error", err: withStatus(503), want: true},
		{name: "request timeout", err: withStatus(408), want: true},
		{name: "throttled", err: withStatus(429), want: true},
		{name: "not found", err: withStatus(404), want: false},
		{name: "gone", err: withStatus(410), want: false},
		{name: "forbidden", err: withStatus(403), want: false},
		{name: "invalid input", err: artpub.Errorf(artpub.EINVALID, "bad URL"), want: false},
		{name: "unsupported content", err: artpub.Errorf(artpub.EUNSUPPORTED, "not HTML"), want: false},
		{name: "foreign error", err: errors.New("boom"), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, convert.Retryable(tt.err))
		})
	}
}

func TestRetry(t *testing.T) {
	t.Parallel()

	delays := []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond}

	t.Run("returns immediately on success", func(t *testing.T) {
		t.Parallel()

		var calls int
		err := convert.Retry(context.Background(), delays, func(context.Context) error {
			calls++
			return nil
		}, nil)

		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("retries until success", func(t *testing.T) {
		t.Parallel()

		var calls int
		var retried []int
		err := convert.Retry(context.Background(), delays, func(context.Context) error {
			calls++
			if calls < 3 {
				return artpub.Errorf(artpub.EFETCH, "temporary")
			}
			return nil
		}, func(attempt int, _ error) {
			retried = append(retried, attempt)
		})

		require.NoError(t, err)
		assert.Equal(t, 3, calls)
		assert.Equal(t, []int{2, 3}, retried)
	})

	t.Run("returns the last error when attempts run out", func(t *testing.T) {
		t.Parallel()

		var calls int
		err := convert.Retry(context.Background(), delays, func(context.Context) error {
			calls++
			return errors.New("still failing")
		}, nil)

		require.EqualError(t, err, "still failing")
		assert.Equal(t, 4, calls)
	})

	t.Run("makes a single attempt without delays", func(t *testing.T) {
		t.Parallel()

		var calls int
		err := convert.Retry(context.Background(), nil, func(context.Context) error {
			calls++
			return errors.New("fail")
		}, nil)

		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("does not retry permanent failures", func(t *testing.T) {
		t.Parallel()

		for _, code := range []string{artpub.EINVALID, artpub.EUNSUPPORTED} {
			var calls int
			err := convert.Retry(context.Background(), delays, func(context.Context) error {
				calls++
				return artpub.Errorf(code, "permanent")
			}, nil)

			require.Error(t, err)
			assert.Equal(t, 1, calls, code)
		}
	})

	t.Run("stops waiting when the context is canceled", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		err := convert.Retry(ctx, []time.Duration{time.Hour}, func(context.Context) error {
			cancel()
			return errors.New("fail")
		}, nil)

		require.ErrorIs(t, err, context.Canceled)
	})
}
