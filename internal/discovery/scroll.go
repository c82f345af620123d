package discovery

import (
	"context"
	"fmt"
	"time"

	"producttrends/crawler/internal/client"

	log "github.com/sirupsen/logrus"
)

// ScrollDiscoverer drives an infinite-scroll listing to its bottom, then scrapes
// the rendered links once.
type ScrollDiscoverer struct {
	loader     client.Loader
	links      linkCollector
	maxScrolls int
	settle     time.Duration
	epsilon    float64
	scrollBack float64
}

func (d *ScrollDiscoverer) Discover(ctx context.Context, listingURL string) Result {
	res := newResult(listingURL)

	page, err := d.loader.Load(ctx, listingURL)
	if err != nil {
		log.Errorf("❌ Failed to open %s: %v", listingURL, err)
		return res.fail(err)
	}
	defer page.Close()

	scroller, ok := page.(client.ScrollablePage)
	if !ok {
		return res.fail(fmt.Errorf("page of %s cannot scroll", listingURL))
	}

	res.Reason = StopCap
	for i := 0; i < d.maxScrolls; i++ {
		bottom, err := d.step(ctx, scroller)
		if err != nil {
			log.Errorf("❌ Scrolling %s failed: %v", listingURL, err)
			return res.fail(err)
		}
		res.Pages++
		if bottom {
			res.Reason = StopBottom
			break
		}
	}

	doc, err := scroller.Document(ctx)
	if err != nil {
		return res.fail(err)
	}
	d.links.collect(doc, listingURL, res.Links)
	res.Growth = append(res.Growth, res.Links.Len())

	log.Debugf("Total products found: %d", res.Links.Len())
	return *res
}

// step scrolls one viewport and reports whether the bottom was reached. At the
// bottom it scrolls back up a little so lazy loaders near the end fire.
func (d *ScrollDiscoverer) step(ctx context.Context, page client.ScrollablePage) (bool, error) {
	if err := page.ScrollViewport(ctx); err != nil {
		return false, err
	}
	if err := sleep(ctx, d.settle); err != nil {
		return false, err
	}

	m, err := page.ScrollMetrics(ctx)
	if err != nil {
		return false, err
	}
	if m.Remaining() > d.epsilon {
		return false, nil
	}

	if err := page.ScrollBy(ctx, -d.scrollBack); err != nil {
		return false, err
	}
	return true, sleep(ctx, d.settle)
}
