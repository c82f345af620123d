package discovery

import (
	"context"
	"fmt"
	"time"

	"producttrends/crawler/internal/client"
	"producttrends/crawler/internal/config"
	"producttrends/crawler/internal/domain"
)

// StopReason says why a listing's discovery loop ended.
type StopReason string

const (
	StopConverged StopReason = "converged" // a page added no new links
	StopBottom    StopReason = "bottom"    // infinite scroll reached the end of the document
	StopExhausted StopReason = "exhausted" // no next page link
	StopCap       StopReason = "cap"       // iteration cap hit
	StopFailed    StopReason = "failed"    // a page errored; links so far are kept
)

// Result is the outcome of discovering one listing.
type Result struct {
	Listing string
	Links   *domain.LinkSet
	Pages   int
	Growth  []int // set size after each iteration
	Reason  StopReason
	Err     error
}

func newResult(listing string) *Result {
	return &Result{Listing: listing, Links: domain.NewLinkSet()}
}

func (r *Result) record() {
	r.Pages++
	r.Growth = append(r.Growth, r.Links.Len())
}

func (r *Result) fail(err error) Result {
	r.Reason = StopFailed
	r.Err = err
	return *r
}

// Discoverer enumerates the product URLs of one listing page.
type Discoverer interface {
	Discover(ctx context.Context, listingURL string) Result
}

// New builds the discoverer configured for a site. browser may be nil unless the
// site uses scroll discovery.
func New(site domain.DiscoveryConfig, limits config.DiscoveryConfig, static, browser client.Loader) (Discoverer, error) {
	if site.ItemSelector == "" {
		return nil, fmt.Errorf("discovery.item_selector is not configured")
	}

	maxPages := site.MaxPages
	if maxPages <= 0 {
		maxPages = limits.MaxPages
	}
	if maxPages <= 0 {
		return nil, fmt.Errorf("discovery needs a positive page cap")
	}

	if site.LinkAttr == "" {
		site.LinkAttr = "href"
	}
	if site.PageParam == "" {
		site.PageParam = "page"
	}
	links := linkCollector{cfg: site}

	switch site.Mode {
	case domain.DiscoveryScroll:
		if browser == nil {
			return nil, fmt.Errorf("scroll discovery needs the browser loader")
		}
		maxScrolls := limits.MaxScrolls
		if maxScrolls <= 0 {
			maxScrolls = maxPages
		}
		return &ScrollDiscoverer{
			loader:     browser,
			links:      links,
			maxScrolls: maxScrolls,
			settle:     limits.Settle(),
			epsilon:    limits.ScrollEpsilon,
			scrollBack: limits.ScrollBack,
		}, nil
	case domain.DiscoveryNextLink:
		return &NextLinkDiscoverer{
			loader:       static,
			links:        links,
			nextSelector: site.NextSelector,
			maxPages:     maxPages,
		}, nil
	case domain.DiscoveryPagination, "":
		return &PaginationDiscoverer{
			loader:    pick(browser, static),
			links:     links,
			pageParam: site.PageParam,
			maxPages:  maxPages,
		}, nil
	default:
		return nil, fmt.Errorf("unknown discovery mode %q", site.Mode)
	}
}

func pick(preferred, fallback client.Loader) client.Loader {
	if preferred != nil {
		return preferred
	}
	return fallback
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
