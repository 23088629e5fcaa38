package images

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n0000")

func newImageServers(t *testing.T, items string) (*httptest.Server, *http.Request) {
	var searchReq http.Request
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		searchReq = *r
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"items":%s}`, fmt.Sprintf(items, srv.URL))
	})
	mux.HandleFunc("/cat.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngBytes)
	})
	mux.HandleFunc("/cat.bin", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(pngBytes)
	})
	return srv, &searchReq
}

func TestClient_Search(t *testing.T) {
	t.Run("missing credentials", func(t *testing.T) {
		_, err := NewClient(core.ImagesConfig{}, nil).Search(context.Background(), "cats")
		var confErr *core.ConfigError
		require.True(t, errors.As(err, &confErr))
		assert.Equal(t, []string{"GOOGLE_CSE_API_KEY", "GOOGLE_CSE_CX"}, confErr.Missing)
	})

	t.Run("first result is inlined", func(t *testing.T) {
		srv, searchReq := newImageServers(t, `[{"link":"%s/cat.png"},{"link":"http://unused"}]`)
		c := NewClient(core.ImagesConfig{APIKey: "k", EngineID: "cx", Endpoint: srv.URL + "/search"}, nil)

		img, err := c.Search(context.Background(), "cats")
		require.NoError(t, err)

		q := searchReq.URL.Query()
		assert.Equal(t, "k", q.Get("key"))
		assert.Equal(t, "cx", q.Get("cx"))
		assert.Equal(t, "cats", q.Get("q"))
		assert.Equal(t, "image", q.Get("searchType"))

		assert.Equal(t, srv.URL+"/cat.png", img.SourceURL)
		assert.Equal(t, "image/png", img.MimeType)
		assert.Equal(t, "data:image/png;base64,"+base64.StdEncoding.EncodeToString(pngBytes), img.DataURL)
	})

	t.Run("content type is sniffed when not an image", func(t *testing.T) {
		srv, _ := newImageServers(t, `[{"link":"%s/cat.bin"}]`)
		img, err := NewClient(core.ImagesConfig{APIKey: "k", EngineID: "cx", Endpoint: srv.URL + "/search"}, nil).
			Search(context.Background(), "cats")
		require.NoError(t, err)
		assert.Equal(t, "image/png", img.MimeType)
	})

	t.Run("no results", func(t *testing.T) {
		srv, _ := newImageServers(t, `[]%.0s`)
		_, err := NewClient(core.ImagesConfig{APIKey: "k", EngineID: "cx", Endpoint: srv.URL + "/search"}, nil).
			Search(context.Background(), "cats")
		assert.Equal(t, ErrNoResults, err)
	})

	t.Run("search API fails", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			_, _ = io.WriteString(w, `{"error":{}}`)
		}))
		defer srv.Close()

		_, err := NewClient(core.ImagesConfig{APIKey: "k", EngineID: "cx", Endpoint: srv.URL}, nil).Search(context.Background(), "cats")
		var upErr *core.UpstreamError
		require.True(t, errors.As(err, &upErr))
		assert.Equal(t, http.StatusForbidden, upErr.Status)
	})
}
