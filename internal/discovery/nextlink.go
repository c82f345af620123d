package discovery

import (
	"context"
	"strings"

	"producttrends/crawler/internal/client"

	log "github.com/sirupsen/logrus"
)

// NextLinkDiscoverer follows a listing's "next page" link until there is none,
// the link set stops growing, or the page cap is hit.
type NextLinkDiscoverer struct {
	loader       client.Loader
	links        linkCollector
	nextSelector string
	maxPages     int
}

func (d *NextLinkDiscoverer) Discover(ctx context.Context, listingURL string) Result {
	res := newResult(listingURL)
	visited := make(map[string]struct{})
	pageURL := listingURL

	for res.Pages < d.maxPages {
		if err := ctx.Err(); err != nil {
			return res.fail(err)
		}
		visited[pageURL] = struct{}{}

		previous := res.Links.Len()

		doc, err := visit(ctx, d.loader, pageURL, d.links, res.Links)
		if err != nil {
			log.Errorf("❌ Failed to retrieve %s: %v", pageURL, err)
			return res.fail(err)
		}
		res.record()

		if previous > 0 && res.Links.Len() == previous {
			res.Reason = StopConverged
			return *res
		}

		href, ok := doc.Find(d.nextSelector).First().Attr("href")
		next := absoluteURL(pageURL, strings.TrimSpace(href))
		if !ok || next == "" {
			res.Reason = StopExhausted
			return *res
		}
		if _, seen := visited[next]; seen {
			res.Reason = StopExhausted
			return *res
		}

		log.Debugf("Next page: %s", next)
		pageURL = next
	}

	res.Reason = StopCap
	return *res
}
