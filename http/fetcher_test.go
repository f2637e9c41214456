package http_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fwojciec/artpub"
	artpubhttp "github.com/fwojciec/artpub/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcher_Fetch(t *testing.T) {
	t.Parallel()

	t.Run("returns body and content type from server", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte("<html><body>Hello World</body></html>"))
		}))
		defer server.Close()

		resp, err := artpubhttp.NewFetcher().Fetch(context.Background(), server.URL, nil)

		require.NoError(t, err)
		assert.Equal(t, "<html><body>Hello World</body></html>", string(resp.Body))
		assert.Equal(t, "text/html; charset=utf-8", resp.ContentType)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, server.URL, resp.URL)
	})

	t.Run("sends session cookie and headers verbatim", func(t *testing.T) {
		t.Parallel()

		var gotCookie, gotAuth, gotUA string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotCookie = r.Header.Get("Cookie")
			gotAuth = r.Header.Get("Authorization")
			gotUA = r.Header.Get("User-Agent")
		}))
		defer server.Close()

		session := &artpub.Session{
			Cookie:  "sid=abc123; theme=dark",
			Headers: map[string]string{"Authorization": "Bearer token"},
		}

		_, err := artpubhttp.NewFetcher(artpubhttp.WithUserAgent("test-agent")).Fetch(context.Background(), server.URL, session)

		require.NoError(t, err)
		assert.Equal(t, "sid=abc123; theme=dark", gotCookie)
		assert.Equal(t, "Bearer token", gotAuth)
		assert.Equal(t, "test-agent", gotUA)
	})

	t.Run("reports the final URL after redirects", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/new", http.StatusMovedPermanently)
		})
		mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("moved"))
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		resp, err := artpubhttp.NewFetcher().Fetch(context.Background(), server.URL+"/old", nil)

		require.NoError(t, err)
		assert.Equal(t, server.URL+"/new", resp.URL)
	})

	t.Run("returns EFETCH for non-success status", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()

		_, err := artpubhttp.NewFetcher().Fetch(context.Background(), server.URL, nil)

		require.Error(t, err)
		assert.Equal(t, artpub.EFETCH, artpub.ErrorCode(err))
		assert.Contains(t, artpub.ErrorMessage(err), "403")
		assert.Equal(t, http.StatusForbidden, artpub.ErrorStatus(err))
	})

	t.Run("rejects bodies over the size limit", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(strings.Repeat("x", 100)))
		}))
		defer server.Close()

		_, err := artpubhttp.NewFetcher(artpubhttp.WithMaxBodySize(64)).Fetch(context.Background(), server.URL, nil)

		require.Error(t, err)
		assert.Equal(t, artpub.EFETCH, artpub.ErrorCode(err))
	})

	t.Run("respects custom timeout option", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(100 * time.Millisecond)
			_, _ = w.Write([]byte("response"))
		}))
		defer server.Close()

		_, err := artpubhttp.NewFetcher(artpubhttp.WithTimeout(10*time.Millisecond)).Fetch(context.Background(), server.URL, nil)

		require.Error(t, err)
		assert.Equal(t, artpub.EFETCH, artpub.ErrorCode(err))
	})

	t.Run("returns context error on cancellation", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(100 * time.Millisecond)
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := artpubhttp.NewFetcher().Fetch(ctx, server.URL, nil)

		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("rejects malformed URLs", func(t *testing.T) {
		t.Parallel()

		_, err := artpubhttp.NewFetcher().Fetch(context.Background(), "http://[::1", nil)

		require.Error(t, err)
		assert.Equal(t, artpub.EINVALID, artpub.ErrorCode(err))
	})

	t.Run("returns error for non-existent host", func(t *testing.T) {
		t.Parallel()

		_, err := artpubhttp.NewFetcher(artpubhttp.WithTimeout(100*time.Millisecond)).Fetch(context.Background(), "http://non-existent-host.invalid/page", nil)

		require.Error(t, err)
		assert.Equal(t, artpub.EFETCH, artpub.ErrorCode(err))
	})
}
