package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"

	"producttrends/crawler/internal/domain"
)

// ErrInvalidSiteConfig marks a site configuration that cannot be used. It aborts the run.
var ErrInvalidSiteConfig = errors.New("invalid site config")

// LoadSite reads and validates a site configuration JSON file.
func LoadSite(path string) (*domain.SiteConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %v", ErrInvalidSiteConfig, path, err)
	}
	return ParseSite(data)
}

// ParseSite decodes a site configuration and compiles its regex patterns.
func ParseSite(data []byte) (*domain.SiteConfig, error) {
	var site domain.SiteConfig
	if err := json.Unmarshal(data, &site); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSiteConfig, err)
	}

	if site.OrganizationName == "" {
		return nil, fmt.Errorf("%w: organization_name is empty", ErrInvalidSiteConfig)
	}
	if len(site.Elements) == 0 {
		return nil, fmt.Errorf("%w: no elements configured", ErrInvalidSiteConfig)
	}

	for i := range site.Elements {
		el := &site.Elements[i]
		if el.Name == "" {
			return nil, fmt.Errorf("%w: element %d has no name", ErrInvalidSiteConfig, i)
		}
		if el.Regex == "" {
			continue
		}
		re, err := regexp.Compile(el.Regex)
		if err != nil {
			return nil, fmt.Errorf("%w: element %q regex: %v", ErrInvalidSiteConfig, el.Name, err)
		}
		el.Pattern = re
	}

	d := &site.Discovery
	if d.LinkAttr == "" {
		d.LinkAttr = "href"
	}
	if d.PageParam == "" {
		d.PageParam = "page"
	}
	switch d.Mode {
	case "", domain.DiscoveryScroll, domain.DiscoveryPagination, domain.DiscoveryNextLink:
	default:
		return nil, fmt.Errorf("%w: unknown discovery mode %q", ErrInvalidSiteConfig, d.Mode)
	}
	if d.Mode == domain.DiscoveryNextLink && d.NextSelector == "" {
		return nil, fmt.Errorf("%w: next discovery needs next_selector", ErrInvalidSiteConfig)
	}

	return &site, nil
}
