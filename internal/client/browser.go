package client

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"producttrends/crawler/internal/config"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	log "github.com/sirupsen/logrus"
)

// BrowserLoader renders pages in a headless Chrome instance. Every Load opens a new tab
// that lives until the returned page is closed.
type BrowserLoader struct {
	browserCtx      context.Context
	browserCancel   context.CancelFunc
	allocatorCancel context.CancelFunc
	wait            time.Duration
	timeout         time.Duration
	closeOnce       sync.Once
}

func allocatorOptions(crawler config.CrawlerConfig, cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", cfg.DisableGPU),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(crawler.UserAgent),
	)
	// any explicit no-sandbox flag, even false, disables chromedp's automatic one for root
	if cfg.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	return opts
}

func NewBrowserLoader(ctx context.Context, crawler config.CrawlerConfig, cfg config.BrowserConfig) (*BrowserLoader, error) {
	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(ctx, allocatorOptions(crawler, cfg)...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)

	// The first Run starts Chrome and binds its lifetime to the context it is
	// given, so it must not carry a timeout.
	if err := chromedp.Run(browserCtx, chromedp.Navigate("about:blank")); err != nil {
		browserCancel()
		allocatorCancel()
		return nil, fmt.Errorf("browser failed startup test: %w", err)
	}

	log.Info("🌐 Headless browser started")

	return &BrowserLoader{
		browserCtx:      browserCtx,
		browserCancel:   browserCancel,
		allocatorCancel: allocatorCancel,
		wait:            cfg.Wait(),
		timeout:         crawler.RequestTimeout(),
	}, nil
}

// Load navigates a fresh tab to url and waits for the configured settle time.
func (b *BrowserLoader) Load(ctx context.Context, url string) (Page, error) {
	tabCtx, tabCancel := chromedp.NewContext(b.browserCtx)

	// the tab must die with the caller's context too
	stop := context.AfterFunc(ctx, tabCancel)

	// attach the tab on its own context; a timeout here would stop the tab's event loop
	err := chromedp.Run(tabCtx)
	if err == nil {
		navCtx := tabCtx
		navCancel := context.CancelFunc(func() {})
		if b.timeout > 0 {
			navCtx, navCancel = context.WithTimeout(tabCtx, b.timeout+b.wait)
		}
		err = chromedp.Run(navCtx,
			chromedp.Navigate(url),
			chromedp.Sleep(b.wait),
		)
		navCancel()
	}
	if err != nil {
		stop()
		tabCancel()
		return nil, fmt.Errorf("%w: %s: %v", ErrFetch, url, err)
	}

	return &browserPage{url: url, ctx: tabCtx, cancel: func() { stop(); tabCancel() }, timeout: b.timeout}, nil
}

func (b *BrowserLoader) Close() {
	b.closeOnce.Do(func() {
		b.browserCancel()
		b.allocatorCancel()
		log.Info("🌐 Headless browser stopped")
	})
}

type browserPage struct {
	url     string
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration
}

func (p *browserPage) URL() string {
	return p.url
}

func (p *browserPage) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	runCtx := p.ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(p.ctx, p.timeout)
		defer cancel()
	}
	return chromedp.Run(runCtx, actions...)
}

func (p *browserPage) Document(ctx context.Context) (*goquery.Document, error) {
	var html string
	if err := p.run(ctx, chromedp.OuterHTML("html", &html)); err != nil {
		return nil, fmt.Errorf("%w: %s: snapshot: %v", ErrFetch, p.url, err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse rendered HTML of %s: %w", p.url, err)
	}
	return doc, nil
}

func (p *browserPage) ScrollViewport(ctx context.Context) error {
	return p.run(ctx, chromedp.Evaluate(`window.scrollBy(0, window.innerHeight)`, nil))
}

func (p *browserPage) ScrollBy(ctx context.Context, dy float64) error {
	return p.run(ctx, chromedp.Evaluate(fmt.Sprintf(`window.scrollBy(0, %f)`, dy), nil))
}

func (p *browserPage) ScrollMetrics(ctx context.Context) (ScrollMetrics, error) {
	var values []float64
	err := p.run(ctx, chromedp.Evaluate(
		`[window.scrollY, window.innerHeight, document.documentElement.scrollHeight]`, &values))
	if err != nil {
		return ScrollMetrics{}, fmt.Errorf("failed to read scroll metrics: %w", err)
	}
	if len(values) != 3 {
		return ScrollMetrics{}, fmt.Errorf("unexpected scroll metrics %v", values)
	}
	return ScrollMetrics{Offset: values[0], Viewport: values[1], Height: values[2]}, nil
}

func (p *browserPage) Close() {
	p.cancel()
}
