package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeS3 records requests and answers like a minimal path-style S3 endpoint.
type fakeS3 struct {
	mu       sync.Mutex
	requests []string
	objects  map[string]bool
}

func (f *fakeS3) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if req.Body != nil {
		_, _ = io.Copy(io.Discard, req.Body)
	}
	key := strings.TrimPrefix(req.URL.Path, "/uploads-bucket/")
	f.requests = append(f.requests, req.Method+" "+key)
	status := http.StatusOK
	switch req.Method {
	case http.MethodPut:
		f.objects[key] = true
	case http.MethodDelete:
		delete(f.objects, key)
		status = http.StatusNoContent
	default:
		status = http.StatusNotImplemented
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewReader(nil)),
		Header:     http.Header{"Etag": {"\"etag\""}},
		Request:    req,
	}, nil
}

func newTestS3Store(t *testing.T) (*S3Store, *fakeS3) {
	t.Helper()
	rt := &fakeS3{objects: map[string]bool{}}
	store, err := NewS3Store(context.Background(), S3Options{
		Bucket:          "uploads-bucket",
		Region:          "ap-south-1",
		Endpoint:        "https://s3.mock.local",
		PathStyle:       true,
		AccessKeyID:     "AKIA",
		SecretAccessKey: "SECRET",
		HTTPClient:      &http.Client{Transport: rt},
	})
	require.NoError(t, err)
	return store, rt
}

func TestS3StorePutAndRemove(t *testing.T) {
	store, rt := newTestS3Store(t)

	key, err := store.Put(context.Background(), "resumes/A1/resume.pdf", strings.NewReader("%PDF-1.4"), "application/pdf")
	require.NoError(t, err)
	require.Equal(t, "resumes/A1/resume.pdf", key)
	require.True(t, rt.objects["resumes/A1/resume.pdf"])

	require.NoError(t, store.Remove(context.Background(), key))
	require.False(t, rt.objects["resumes/A1/resume.pdf"])
	require.Equal(t, DriverS3, store.Driver())
}

func TestS3StorePresignedURL(t *testing.T) {
	store, rt := newTestS3Store(t)

	url, err := store.URL(context.Background(), "photos/A1/photo.jpg")
	require.NoError(t, err)
	require.Contains(t, url, "https://s3.mock.local/uploads-bucket/photos/A1/photo.jpg")
	require.Contains(t, url, "X-Amz-Signature=")
	require.Empty(t, rt.requests)
}

func TestNewS3StoreRequiresBucket(t *testing.T) {
	_, err := NewS3Store(context.Background(), S3Options{})
	require.Error(t, err)
}
