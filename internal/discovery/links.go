package discovery

import (
	"net/url"
	"strconv"
	"strings"

	"producttrends/crawler/internal/domain"

	"github.com/PuerkitoBio/goquery"
)

type linkCollector struct {
	cfg domain.DiscoveryConfig
}

// collect adds every product link found in doc to set and returns how many were new.
func (c linkCollector) collect(doc *goquery.Document, pageURL string, set *domain.LinkSet) int {
	base := pageURL
	if c.cfg.BaseURL != "" {
		base = c.cfg.BaseURL
	}

	added := 0
	doc.Find(c.cfg.ItemSelector).Each(func(_ int, item *goquery.Selection) {
		target := item
		if c.cfg.LinkSelector != "" {
			target = item.Find(c.cfg.LinkSelector).First()
		}
		href, ok := target.Attr(c.cfg.LinkAttr)
		if !ok {
			return
		}
		if abs := absoluteURL(base, href); abs != "" && set.Add(abs) {
			added++
		}
	})
	return added
}

func absoluteURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if ref.IsAbs() {
		return ref.String()
	}
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	return b.ResolveReference(ref).String()
}

// PageURL returns listing with its page query parameter set to page. The rest
// of the query keeps its order and encoding; the page parameter goes last.
func PageURL(listing, param string, page int) (string, error) {
	u, err := url.Parse(listing)
	if err != nil {
		return "", err
	}

	var kept []string
	if u.RawQuery != "" {
		for _, pair := range strings.Split(u.RawQuery, "&") {
			key, _, _ := strings.Cut(pair, "=")
			if key == param {
				continue
			}
			kept = append(kept, pair)
		}
	}
	kept = append(kept, url.QueryEscape(param)+"="+strconv.Itoa(page))
	u.RawQuery = strings.Join(kept, "&")
	return u.String(), nil
}
