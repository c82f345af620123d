package client

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"producttrends/crawler/internal/config"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
	"resty.dev/v3"
)

// staticLoader fetches server-rendered pages over plain HTTP and parses them with goquery.
type staticLoader struct {
	rl         ratelimit.Limiter
	httpClient *resty.Client
	timeout    time.Duration
}

func newRateLimiter(rps int) ratelimit.Limiter {
	if rps <= 0 {
		return ratelimit.NewUnlimited()
	}
	return ratelimit.New(rps)
}

func newHTTPClient(cfg config.CrawlerConfig) *resty.Client {
	return resty.New().
		SetTimeout(cfg.RequestTimeout()).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8").
		SetHeader("Accept-Language", "en-US,en;q=0.5").
		SetTLSClientConfig(&tls.Config{
			InsecureSkipVerify: true,
		})
}

func NewStaticLoader(cfg config.CrawlerConfig) Loader {
	return &staticLoader{
		rl:         newRateLimiter(cfg.MaxRequestsPerSecond),
		httpClient: newHTTPClient(cfg),
		timeout:    cfg.RequestTimeout(),
	}
}

func (l *staticLoader) Load(ctx context.Context, url string) (Page, error) {
	html, err := l.fetchHTML(ctx, url)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML of %s: %w", url, err)
	}

	log.Debugf("Fetched and parsed %s", url)
	return &staticPage{url: url, doc: doc}, nil
}

func (l *staticLoader) fetchHTML(ctx context.Context, url string) (string, error) {
	l.rl.Take()

	reqCtx := ctx
	if l.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	resp, err := l.httpClient.R().
		SetContext(reqCtx).
		Get(url)

	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("request cancelled: %w", ctx.Err())
		}
		return "", fmt.Errorf("%w: %s: %v", ErrFetch, url, err)
	}

	if resp.IsError() {
		return "", fmt.Errorf("%w: %s: HTTP %d %s", ErrFetch, url, resp.StatusCode(), resp.Status())
	}

	return resp.String(), nil
}

type staticPage struct {
	url string
	doc *goquery.Document
}

func (p *staticPage) URL() string {
	return p.url
}

func (p *staticPage) Document(context.Context) (*goquery.Document, error) {
	return p.doc, nil
}

func (p *staticPage) Close() {}
