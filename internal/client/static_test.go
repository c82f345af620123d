package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"producttrends/crawler/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCrawlerConfig() config.CrawlerConfig {
	return config.CrawlerConfig{
		Timeout:   5,
		UserAgent: "crawler-test/1.0",
	}
}

func TestStaticLoader_Load(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "crawler-test/1.0", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><h1>Orange Juice 1L</h1></body></html>`))
	}))
	defer srv.Close()

	loader := NewStaticLoader(testCrawlerConfig())
	page, err := loader.Load(context.Background(), srv.URL+"/p/1")
	require.NoError(t, err)
	defer page.Close()

	assert.Equal(t, srv.URL+"/p/1", page.URL())

	doc, err := page.Document(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Orange Juice 1L", doc.Find("h1").Text())
}

func TestStaticLoader_HTTPErrorIsFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	loader := NewStaticLoader(testCrawlerConfig())
	_, err := loader.Load(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFetch))
}

func TestStaticLoader_SingleRequestPerLoad(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := testCrawlerConfig()
	cfg.MaxRetries = 2
	_, err := NewStaticLoader(cfg).Load(context.Background(), srv.URL)
	require.ErrorIs(t, err, ErrFetch)
	assert.Contains(t, err.Error(), "HTTP 503")
	assert.Equal(t, int32(1), hits.Load())
}

func TestImageDownloader_WritesFile(t *testing.T) {
	payload := []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "nested", "img.jpeg")
	err := NewImageDownloader(testCrawlerConfig()).Download(context.Background(), srv.URL+"/img.jpg", path)
	require.NoError(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestImageDownloader_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "img.jpeg")
	err := NewImageDownloader(testCrawlerConfig()).Download(context.Background(), srv.URL, path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetch)
	assert.NoFileExists(t, path)
}

func TestScrollMetrics_Remaining(t *testing.T) {
	m := ScrollMetrics{Offset: 1000, Viewport: 800, Height: 1805}
	assert.InDelta(t, 5.0, m.Remaining(), 0.0001)
}
