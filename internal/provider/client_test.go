package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type echoRequest struct {
	Query string `json:"query"`
}

type echoResponse struct {
	Query string `json:"query"`
	Key   string `json:"key"`
}

func TestPostJSONRoundTrip(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/echo" {
			http.Error(w, "bad route", http.StatusNotFound)
			return
		}
		if r.Header.Get("Content-Type") != "application/json" || r.Header.Get("User-Agent") != "hq-test" {
			http.Error(w, "bad headers", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"query":"ok","key":%q}`, r.Header.Get("X-Api-Key"))
	}))
	t.Cleanup(srv.Close)

	c := NewClient("echo", Options{BaseURL: srv.URL + "/", UserAgent: "hq-test"}, http.Header{"X-Api-Key": {"secret"}})
	require.Equal(t, "echo", c.Name())

	var out echoResponse
	require.NoError(t, c.PostJSON(context.Background(), "/v1/echo", echoRequest{Query: "q"}, &out))
	require.Equal(t, echoResponse{Query: "ok", Key: "secret"}, out)
}

func TestPostJSONStatusError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	c := NewClient("limited", Options{BaseURL: srv.URL}, nil)
	err := c.PostJSON(context.Background(), "/x", echoRequest{}, nil)
	require.Error(t, err)
	require.Equal(t, http.StatusTooManyRequests, StatusCode(err))
	require.Contains(t, err.Error(), "limited: unexpected status 429: quota exceeded")

	var se *StatusError
	require.True(t, errors.As(err, &se))
	require.Zero(t, StatusCode(errors.New("plain")))
}

func TestPostJSONDecodeError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	t.Cleanup(srv.Close)

	var out echoResponse
	err := NewClient("broken", Options{BaseURL: srv.URL}, nil).PostJSON(context.Background(), "/", echoRequest{}, &out)
	require.ErrorContains(t, err, "broken: decode response")
}

func TestPostJSONCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewClient("canceled", Options{BaseURL: "http://127.0.0.1:1"}, nil).PostJSON(ctx, "/", echoRequest{}, nil)
	require.Error(t, err)
}
