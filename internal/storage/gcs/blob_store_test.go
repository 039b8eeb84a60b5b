package gcs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func newTestStore(t *testing.T, handler http.Handler, cfg Config) (*BlobStore, error) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return Open(context.Background(), cfg, nil, option.WithEndpoint(server.URL), option.WithoutAuthentication())
}

func TestPutObjectUploads(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/upload/storage/v1/b/hq-snapshots/o")
		assert.Equal(t, "snapshots/acme.com/abc.md", r.URL.Query().Get("name"))
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.Contains(t, string(body), "Jane Doe - CEO")
		assert.Contains(t, string(body), "text/markdown")
		fmt.Fprintln(w, `{"name":"snapshots/acme.com/abc.md","bucket":"hq-snapshots"}`)
	})

	store, err := newTestStore(t, handler, Config{Bucket: "hq-snapshots"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	uri, err := store.PutObject(context.Background(), "/snapshots/acme.com/abc.md", "text/markdown", strings.NewReader("Jane Doe - CEO"))
	require.NoError(t, err)
	assert.Equal(t, "gs://hq-snapshots/snapshots/acme.com/abc.md", uri)
}

func TestPutObjectServerError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	store, err := newTestStore(t, handler, Config{Bucket: "hq-snapshots"})
	require.NoError(t, err)

	_, err = store.PutObject(context.Background(), "a.md", "", strings.NewReader("x"))
	assert.Error(t, err)

	_, err = store.PutObject(context.Background(), "  ", "", strings.NewReader("x"))
	assert.Error(t, err)
}

func TestOpenChecksBucket(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	_, err := newTestStore(t, handler, Config{Bucket: "missing", CheckBucket: true})
	assert.Error(t, err)
}

func TestNewValidates(t *testing.T) {
	_, err := New(nil, Config{Bucket: "b"}, nil)
	assert.Error(t, err)
}
