package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testMeta() TokenMetadata {
	return TokenMetadata{Name: "Example", Symbol: "EXA", Description: "a token"}
}

func TestUpload_SendsMultipartAndReturnsURI(t *testing.T) {
	var gotMetadata string
	var gotImage []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotMetadata = r.FormValue("metadata")

		file, _, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		buf := make([]byte, 16)
		n, _ := file.Read(buf)
		gotImage = buf[:n]

		w.Write([]byte(`{"uri": "https://cdn.example/meta.json"}`))
	}))
	defer server.Close()

	u := NewUploader(server.URL, server.Client(), zap.NewNop())
	uri, err := u.Upload(context.Background(), []byte{0x89, 0x50}, "logo.png", testMeta())
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example/meta.json", uri)
	assert.Contains(t, gotMetadata, `"symbol":"EXA"`)
	assert.Equal(t, []byte{0x89, 0x50}, gotImage)
}

func TestUpload_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"uri": "https://cdn.example/meta.json"}`))
	}))
	defer server.Close()

	u := NewUploader(server.URL, server.Client(), zap.NewNop())
	uri, err := u.Upload(context.Background(), nil, "", testMeta())
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/meta.json", uri)
	assert.Equal(t, int32(3), calls.Load())
}

func TestUpload_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("image too large"))
	}))
	defer server.Close()

	u := NewUploader(server.URL, server.Client(), zap.NewNop())
	_, err := u.Upload(context.Background(), nil, "", testMeta())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "image too large")
	assert.Equal(t, int32(1), calls.Load(), "4xx responses must not be retried")
}

func TestUpload_MissingURIFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	u := NewUploader(server.URL, server.Client(), zap.NewNop())
	_, err := u.Upload(context.Background(), nil, "", testMeta())
	assert.ErrorContains(t, err, "no uri")
}

func TestUpload_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	u := NewUploader(server.URL, server.Client(), zap.NewNop())
	_, err := u.Upload(ctx, nil, "", testMeta())
	assert.Error(t, err)
}
