package gcs

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(r *http.Request, status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": {"application/json"}},
		Request:    r,
	}
}

func clientOptions(rt roundTripperFunc) []option.ClientOption {
	return []option.ClientOption{
		option.WithoutAuthentication(),
		option.WithHTTPClient(&http.Client{Transport: rt}),
	}
}

func TestOpenChecksBucket(t *testing.T) {
	t.Parallel()

	var paths []string
	var mu sync.Mutex
	store, err := Open(context.Background(), Config{Bucket: "drug-pages"}, clientOptions(func(r *http.Request) (*http.Response, error) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		return jsonResponse(r, http.StatusOK, `{"name":"drug-pages"}`), nil
	})...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NotEmpty(t, paths)
	assert.Contains(t, paths[0], "/b/drug-pages")
}

func TestOpenMissingBucket(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), Config{Bucket: "nope"}, clientOptions(func(r *http.Request) (*http.Response, error) {
		return jsonResponse(r, http.StatusNotFound, `{"error":{"code":404,"message":"Not Found"}}`), nil
	})...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `get bucket "nope" attributes`)
}

func TestOpenRequiresBucket(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), Config{})
	require.EqualError(t, err, "bucket name is required")
}

func TestNewValidates(t *testing.T) {
	t.Parallel()

	_, err := New(nil, Config{Bucket: "b"})
	require.Error(t, err)

	client, err := storage.NewClient(context.Background(), option.WithoutAuthentication())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	_, err = New(client, Config{})
	require.Error(t, err)
}

func TestPutObjectUploads(t *testing.T) {
	t.Parallel()

	var uploads int
	var mu sync.Mutex
	client, err := storage.NewClient(context.Background(), clientOptions(func(r *http.Request) (*http.Response, error) {
		if r.Body != nil {
			_, _ = io.Copy(io.Discard, r.Body)
		}
		mu.Lock()
		if strings.Contains(r.URL.Path, "/upload/") {
			uploads++
		}
		mu.Unlock()
		return jsonResponse(r, http.StatusOK, `{"bucket":"drug-pages","name":"raw/a1.html"}`), nil
	})...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	store, err := New(client, Config{Bucket: "drug-pages"})
	require.NoError(t, err)

	uri, err := store.PutObject(context.Background(), "raw/a1.html", "text/html", strings.NewReader("<h1>Abacavir</h1>"))
	require.NoError(t, err)
	assert.Equal(t, "gs://drug-pages/raw/a1.html", uri)
	assert.Equal(t, 1, uploads)

	_, err = store.PutObject(context.Background(), " ", "text/html", strings.NewReader(""))
	require.Error(t, err)
	require.NoError(t, store.Close())
}
