package discovery

import (
	"context"
	"fmt"

	"producttrends/crawler/internal/client"
	"producttrends/crawler/internal/domain"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"
)

// PaginationDiscoverer walks page=1..maxPages of a listing and stops early once a
// page adds no new links.
type PaginationDiscoverer struct {
	loader    client.Loader
	links     linkCollector
	pageParam string
	maxPages  int
}

func (d *PaginationDiscoverer) Discover(ctx context.Context, listingURL string) Result {
	res := newResult(listingURL)

	for page := 1; page <= d.maxPages; page++ {
		if err := ctx.Err(); err != nil {
			return res.fail(err)
		}

		previous := res.Links.Len()

		pageURL, err := PageURL(listingURL, d.pageParam, page)
		if err != nil {
			return res.fail(fmt.Errorf("failed to build page URL: %w", err))
		}

		log.Debugf("Scraping URL: %s", pageURL)
		if _, err := visit(ctx, d.loader, pageURL, d.links, res.Links); err != nil {
			log.Errorf("❌ Failed to scrape %s: %v", pageURL, err)
			return res.fail(err)
		}
		res.record()

		log.Debugf("Total products found: %d", res.Links.Len())

		if previous > 0 && res.Links.Len() == previous {
			res.Reason = StopConverged
			return *res
		}
	}

	res.Reason = StopCap
	return *res
}

// visit loads one page, adds its links to set and returns the document snapshot.
func visit(ctx context.Context, loader client.Loader, pageURL string, links linkCollector, set *domain.LinkSet) (*goquery.Document, error) {
	page, err := loader.Load(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	defer page.Close()

	doc, err := page.Document(ctx)
	if err != nil {
		return nil, err
	}

	links.collect(doc, page.URL(), set)
	return doc, nil
}
