package gcs

import (
	"bytes"
	"context"
	"fmt"
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

func fakeClient(t *testing.T, rt roundTripperFunc) *storage.Client {
	t.Helper()
	client, err := storage.NewClient(
		context.Background(),
		option.WithoutAuthentication(),
		option.WithHTTPClient(&http.Client{Transport: rt}),
	)
	require.NoError(t, err)
	return client
}

func TestPutObjectUploadsToBucket(t *testing.T) {
	t.Parallel()

	var (
		mu     sync.Mutex
		bodies []string
		names  []string
	)
	client := fakeClient(t, func(r *http.Request) (*http.Response, error) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, err
		}
		mu.Lock()
		bodies = append(bodies, string(body))
		names = append(names, r.URL.Query().Get("name"))
		mu.Unlock()
		assert.Contains(t, r.URL.Path, "/b/artifacts/o")
		return jsonResponse(r, http.StatusOK, `{"name":"runs/run-1/managers.csv","bucket":"artifacts"}`), nil
	})

	store, err := New(client, Config{Bucket: "artifacts", Metadata: map[string]string{"run_id": "run-1"}})
	require.NoError(t, err)

	uri, err := store.PutObject(context.Background(), "/runs/run-1/managers.csv", "text/csv",
		bytes.NewReader([]byte("season,manager,identifier,club\n")))
	require.NoError(t, err)
	assert.Equal(t, "gs://artifacts/runs/run-1/managers.csv", uri)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, bodies, 1)
	assert.Equal(t, "runs/run-1/managers.csv", names[0])
	assert.Contains(t, bodies[0], "season,manager,identifier,club")
	assert.Contains(t, bodies[0], `"run_id":"run-1"`)
	assert.Contains(t, bodies[0], "text/csv")

	require.NoError(t, store.Close())
}

func TestPutObjectReportsUploadFailure(t *testing.T) {
	t.Parallel()

	client := fakeClient(t, func(r *http.Request) (*http.Response, error) {
		_, _ = io.Copy(io.Discard, r.Body)
		return jsonResponse(r, http.StatusForbidden, `{"error":{"code":403,"message":"denied"}}`), nil
	})
	store, err := New(client, Config{Bucket: "artifacts"})
	require.NoError(t, err)

	_, err = store.PutObject(context.Background(), "x.csv", "text/csv", strings.NewReader("data"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "x.csv")
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	_, err := New(nil, Config{Bucket: "b"})
	require.Error(t, err)

	client := fakeClient(t, func(r *http.Request) (*http.Response, error) {
		return nil, fmt.Errorf("unexpected request %s", r.URL)
	})
	_, err = New(client, Config{})
	require.Error(t, err)

	store, err := New(client, Config{Bucket: "b"})
	require.NoError(t, err)
	_, err = store.PutObject(context.Background(), "  ", "", strings.NewReader(""))
	require.Error(t, err)
}

func TestConnectChecksBucket(t *testing.T) {
	t.Parallel()

	ok := roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		assert.Contains(t, r.URL.Path, "/storage/v1/b/artifacts")
		return jsonResponse(r, http.StatusOK, `{"name":"artifacts"}`), nil
	})
	store, err := Connect(context.Background(), Config{Bucket: "artifacts"},
		option.WithoutAuthentication(), option.WithHTTPClient(&http.Client{Transport: ok}))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	missing := roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		return jsonResponse(r, http.StatusNotFound, `{"error":{"code":404,"message":"no bucket"}}`), nil
	})
	_, err = Connect(context.Background(), Config{Bucket: "artifacts"},
		option.WithoutAuthentication(), option.WithHTTPClient(&http.Client{Transport: missing}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "artifacts")
}
