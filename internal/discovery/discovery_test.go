package discovery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"producttrends/crawler/internal/client"
	"producttrends/crawler/internal/config"
	"producttrends/crawler/internal/domain"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePage struct {
	url  string
	html string

	mu       sync.Mutex
	closed   bool
	offset   float64
	viewport float64
	height   float64
	scrolls  []float64
}

func (p *fakePage) URL() string { return p.url }

func (p *fakePage) Document(context.Context) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(p.html))
}

func (p *fakePage) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

func (p *fakePage) ScrollViewport(ctx context.Context) error {
	return p.ScrollBy(ctx, p.viewport)
}

func (p *fakePage) ScrollBy(_ context.Context, dy float64) error {
	p.scrolls = append(p.scrolls, dy)
	p.offset += dy
	if p.offset < 0 {
		p.offset = 0
	}
	if limit := p.height - p.viewport; p.offset > limit {
		p.offset = limit
	}
	return nil
}

func (p *fakePage) ScrollMetrics(context.Context) (client.ScrollMetrics, error) {
	return client.ScrollMetrics{Offset: p.offset, Viewport: p.viewport, Height: p.height}, nil
}

type fakeLoader struct {
	pages  map[string]string
	errs   map[string]error
	opened []*fakePage
	calls  []string
	scroll func(p *fakePage)
}

func (l *fakeLoader) Load(_ context.Context, url string) (client.Page, error) {
	l.calls = append(l.calls, url)
	if err, ok := l.errs[url]; ok {
		return nil, err
	}
	html, ok := l.pages[url]
	if !ok {
		return nil, fmt.Errorf("%w: %s: HTTP 404", client.ErrFetch, url)
	}
	p := &fakePage{url: url, html: html}
	if l.scroll != nil {
		l.scroll(p)
	}
	l.opened = append(l.opened, p)
	return p, nil
}

func listingHTML(hrefs ...string) string {
	var b strings.Builder
	b.WriteString(`<ul class="products">`)
	for _, h := range hrefs {
		fmt.Fprintf(&b, `<li class="item"><div><div><a href="%s">p</a></div></div></li>`, h)
	}
	b.WriteString(`</ul>`)
	return b.String()
}

var paginationSite = domain.DiscoveryConfig{
	Mode:         domain.DiscoveryPagination,
	ItemSelector: "li.item",
	LinkSelector: "div > div > a",
	LinkAttr:     "href",
	PageParam:    "page",
}

func TestPagination_StopsWhenPageAddsNothing(t *testing.T) {
	listing := "https://shop.example.com/c/drinks?sort=name"
	loader := &fakeLoader{pages: map[string]string{
		"https://shop.example.com/c/drinks?sort=name&page=1": listingHTML("/p/1", "/p/2"),
		"https://shop.example.com/c/drinks?sort=name&page=2": listingHTML("/p/3", "/p/4"),
		"https://shop.example.com/c/drinks?sort=name&page=3": listingHTML("/p/3", "/p/4"),
		"https://shop.example.com/c/drinks?sort=name&page=4": listingHTML("/p/5"),
	}}

	d, err := New(paginationSite, config.DiscoveryConfig{MaxPages: 10}, loader, nil)
	require.NoError(t, err)

	res := d.Discover(context.Background(), listing)

	require.NoError(t, res.Err)
	assert.Equal(t, StopConverged, res.Reason)
	assert.Equal(t, 3, res.Pages)
	assert.Len(t, loader.calls, 3)
	assert.Equal(t, []string{
		"https://shop.example.com/p/1",
		"https://shop.example.com/p/2",
		"https://shop.example.com/p/3",
		"https://shop.example.com/p/4",
	}, res.Links.Links())
	for _, p := range loader.opened {
		assert.True(t, p.closed, "page %s left open", p.url)
	}
}

func TestPagination_HitsCap(t *testing.T) {
	pages := map[string]string{}
	for i := 1; i <= 5; i++ {
		pages[fmt.Sprintf("https://s.example.com/l?page=%d", i)] = listingHTML(fmt.Sprintf("/p/%d", i))
	}
	loader := &fakeLoader{pages: pages}

	d, err := New(paginationSite, config.DiscoveryConfig{MaxPages: 3}, loader, nil)
	require.NoError(t, err)

	res := d.Discover(context.Background(), "https://s.example.com/l")
	assert.Equal(t, StopCap, res.Reason)
	assert.Equal(t, 3, res.Pages)
	assert.Equal(t, 3, res.Links.Len())
}

func TestPagination_SiteCapOverridesDefault(t *testing.T) {
	site := paginationSite
	site.MaxPages = 1
	loader := &fakeLoader{pages: map[string]string{
		"https://s.example.com/l?page=1": listingHTML("/p/1"),
	}}
	d, err := New(site, config.DiscoveryConfig{MaxPages: 10}, loader, nil)
	require.NoError(t, err)

	res := d.Discover(context.Background(), "https://s.example.com/l")
	assert.Equal(t, StopCap, res.Reason)
	assert.Equal(t, 1, res.Pages)
}

func TestPagination_ErrorKeepsAccumulatedLinks(t *testing.T) {
	loader := &fakeLoader{
		pages: map[string]string{
			"https://s.example.com/l?page=1": listingHTML("/p/1", "/p/2"),
		},
		errs: map[string]error{
			"https://s.example.com/l?page=2": fmt.Errorf("%w: timeout", client.ErrFetch),
		},
	}
	d, err := New(paginationSite, config.DiscoveryConfig{MaxPages: 10}, loader, nil)
	require.NoError(t, err)

	res := d.Discover(context.Background(), "https://s.example.com/l")
	assert.Equal(t, StopFailed, res.Reason)
	assert.True(t, errors.Is(res.Err, client.ErrFetch))
	assert.Equal(t, 2, res.Links.Len())
}

func TestPagination_EmptyLeadingPagesDoNotConverge(t *testing.T) {
	loader := &fakeLoader{pages: map[string]string{
		"https://s.example.com/l?page=1": listingHTML(),
		"https://s.example.com/l?page=2": listingHTML("/p/1"),
		"https://s.example.com/l?page=3": listingHTML("/p/1"),
	}}
	d, err := New(paginationSite, config.DiscoveryConfig{MaxPages: 10}, loader, nil)
	require.NoError(t, err)

	res := d.Discover(context.Background(), "https://s.example.com/l")
	assert.Equal(t, StopConverged, res.Reason)
	assert.Equal(t, 3, res.Pages)
	assert.Equal(t, 1, res.Links.Len())
}

func TestPagination_GrowthIsMonotonicAndBounded(t *testing.T) {
	pages := map[string]string{}
	for i := 1; i <= 8; i++ {
		var hrefs []string
		for j := 0; j < i%3+1; j++ {
			hrefs = append(hrefs, fmt.Sprintf("/p/%d", (i*7+j)%11))
		}
		pages[fmt.Sprintf("https://s.example.com/l?page=%d", i)] = listingHTML(hrefs...)
	}

	for limit := 1; limit <= 8; limit++ {
		loader := &fakeLoader{pages: pages}
		d, err := New(paginationSite, config.DiscoveryConfig{MaxPages: limit}, loader, nil)
		require.NoError(t, err)

		res := d.Discover(context.Background(), "https://s.example.com/l")
		assert.LessOrEqual(t, res.Pages, limit)
		for i := 1; i < len(res.Growth); i++ {
			assert.GreaterOrEqual(t, res.Growth[i], res.Growth[i-1])
		}
	}
}

func TestNextLink_FollowsUntilExhausted(t *testing.T) {
	site := domain.DiscoveryConfig{
		Mode:         domain.DiscoveryNextLink,
		ItemSelector: ".item.product.product-item",
		LinkSelector: "a",
		LinkAttr:     "href",
		NextSelector: ".action.next",
	}
	page := func(next string, hrefs ...string) string {
		var b strings.Builder
		for _, h := range hrefs {
			fmt.Fprintf(&b, `<li class="item product product-item"><a href="%s">x</a></li>`, h)
		}
		if next != "" {
			fmt.Fprintf(&b, `<a class="action next" href="%s">Next</a>`, next)
		}
		return b.String()
	}
	loader := &fakeLoader{pages: map[string]string{
		"https://m.example.com/food":       page("/food?p=2", "https://m.example.com/a", "https://m.example.com/b"),
		"https://m.example.com/food?p=2":   page("/food?p=3", "https://m.example.com/c"),
		"https://m.example.com/food?p=3":   page("", "https://m.example.com/d"),
		"https://m.example.com/food?p=999": page("", "https://m.example.com/z"),
	}}

	d, err := New(site, config.DiscoveryConfig{MaxPages: 10}, loader, nil)
	require.NoError(t, err)

	res := d.Discover(context.Background(), "https://m.example.com/food")
	require.NoError(t, res.Err)
	assert.Equal(t, StopExhausted, res.Reason)
	assert.Equal(t, 3, res.Pages)
	assert.Equal(t, 4, res.Links.Len())
}

func TestNextLink_SelfLoopTerminates(t *testing.T) {
	site := domain.DiscoveryConfig{
		Mode:         domain.DiscoveryNextLink,
		ItemSelector: "li",
		LinkAttr:     "data-url",
		NextSelector: "a.next",
	}
	loader := &fakeLoader{pages: map[string]string{
		"https://m.example.com/l": `<li data-url="/p/1"></li><a class="next" href="/l">n</a>`,
	}}
	d, err := New(site, config.DiscoveryConfig{MaxPages: 50}, loader, nil)
	require.NoError(t, err)

	res := d.Discover(context.Background(), "https://m.example.com/l")
	assert.Equal(t, StopExhausted, res.Reason)
	assert.Equal(t, 1, res.Pages)
}

func TestScroll_StopsAtBottomAndScrapesOnce(t *testing.T) {
	site := domain.DiscoveryConfig{
		Mode:         domain.DiscoveryScroll,
		ItemSelector: ".product__list--item > div",
		LinkAttr:     "data-url",
		BaseURL:      "https://www.lulu.example.com",
	}
	html := `<div class="product__list--item"><div data-url="/en/p/1"></div></div>
<div class="product__list--item"><div data-url="/en/p/2"></div></div>
<div class="product__list--item"><div data-url="/en/p/1"></div></div>`

	browser := &fakeLoader{
		pages:  map[string]string{"https://www.lulu.example.com/en/c/fruit": html},
		scroll: func(p *fakePage) { p.viewport = 800; p.height = 4000 },
	}

	d, err := New(site, config.DiscoveryConfig{MaxPages: 14, MaxScrolls: 100, ScrollEpsilon: 10, ScrollBack: 500}, nil, browser)
	require.NoError(t, err)

	res := d.Discover(context.Background(), "https://www.lulu.example.com/en/c/fruit")
	require.NoError(t, res.Err)
	assert.Equal(t, StopBottom, res.Reason)
	assert.Equal(t, 4, res.Pages)
	assert.Equal(t, []string{
		"https://www.lulu.example.com/en/p/1",
		"https://www.lulu.example.com/en/p/2",
	}, res.Links.Links())

	require.Len(t, browser.opened, 1)
	p := browser.opened[0]
	assert.Equal(t, -500.0, p.scrolls[len(p.scrolls)-1], "one corrective scroll up at the bottom")
	assert.True(t, p.closed)
}

func TestScroll_CapTerminatesEndlessPage(t *testing.T) {
	site := domain.DiscoveryConfig{Mode: domain.DiscoveryScroll, ItemSelector: "a", LinkAttr: "href"}
	browser := &fakeLoader{
		pages: map[string]string{"https://s.example.com/l": `<a href="/p/1">x</a>`},
		// the document keeps growing, so the bottom is never reached
		scroll: func(p *fakePage) { p.viewport = 800; p.height = 1e12 },
	}

	d, err := New(site, config.DiscoveryConfig{MaxPages: 5, MaxScrolls: 7, ScrollEpsilon: 10}, nil, browser)
	require.NoError(t, err)

	res := d.Discover(context.Background(), "https://s.example.com/l")
	assert.Equal(t, StopCap, res.Reason)
	assert.Equal(t, 7, res.Pages)
	assert.Equal(t, 1, res.Links.Len())
}

func TestScroll_NeedsBrowser(t *testing.T) {
	_, err := New(domain.DiscoveryConfig{Mode: domain.DiscoveryScroll, ItemSelector: "a"}, config.DiscoveryConfig{MaxPages: 1}, &fakeLoader{}, nil)
	assert.Error(t, err)
}

func TestNew_RequiresItemSelector(t *testing.T) {
	_, err := New(domain.DiscoveryConfig{Mode: domain.DiscoveryPagination}, config.DiscoveryConfig{MaxPages: 1}, &fakeLoader{}, nil)
	assert.Error(t, err)
}

func TestPageURL(t *testing.T) {
	u, err := PageURL("https://a.example.com/list?cat=7", "page", 3)
	require.NoError(t, err)
	assert.Equal(t, "https://a.example.com/list?cat=7&page=3", u)

	u, err = PageURL("https://a.example.com/list?z=1&a=%7Eb&page=9&q=x+y", "page", 2)
	require.NoError(t, err)
	assert.Equal(t, "https://a.example.com/list?z=1&a=%7Eb&q=x+y&page=2", u, "order and raw encoding are kept")

	u, err = PageURL("https://a.example.com/list", "p", 1)
	require.NoError(t, err)
	assert.Equal(t, "https://a.example.com/list?p=1", u)
}
