package client

import (
	"context"
	"errors"

	"github.com/PuerkitoBio/goquery"
)

// ErrFetch marks a network, timeout or navigation failure on a single URL.
var ErrFetch = errors.New("fetch failed")

// Page is a loaded document. Callers must Close it once done, even on error paths.
type Page interface {
	URL() string
	Document(ctx context.Context) (*goquery.Document, error)
	Close()
}

// ScrollMetrics is the vertical scroll state of a rendered page, in CSS pixels.
type ScrollMetrics struct {
	Offset   float64 // window.scrollY
	Viewport float64 // window.innerHeight
	Height   float64 // document.documentElement.scrollHeight
}

// Remaining is how far the viewport bottom is from the end of the document.
func (m ScrollMetrics) Remaining() float64 {
	return m.Height - (m.Offset + m.Viewport)
}

// ScrollablePage is a rendered page that can be scrolled to trigger lazy loading.
type ScrollablePage interface {
	Page
	ScrollViewport(ctx context.Context) error
	ScrollBy(ctx context.Context, dy float64) error
	ScrollMetrics(ctx context.Context) (ScrollMetrics, error)
}

// Loader opens pages by URL.
type Loader interface {
	Load(ctx context.Context, url string) (Page, error)
}
