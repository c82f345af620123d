package domain

import "regexp"

// FieldDescriptor tells the extractor how to locate and read one named field.
type FieldDescriptor struct {
	Name              string  `json:"name"`
	Selector          string  `json:"selector"`
	Attr              *string `json:"attr,omitempty"`
	OuterHTML         bool    `json:"outer_html,omitempty"`
	TextContent       bool    `json:"text_content,omitempty"`
	Regex             string  `json:"regex,omitempty"`
	RemoveComma       bool    `json:"remove_comma,omitempty"`
	ProductIdentifier bool    `json:"product_identifier,omitempty"`

	Pattern *regexp.Regexp `json:"-"`
}

// ExtractionMode is how content is read from a matched element.
type ExtractionMode int

const (
	ModeInnerHTML ExtractionMode = iota
	ModeAttribute
	ModeOuterHTML
	ModeTextContent
)

// Mode resolves the extraction mode; attr wins over outer_html, which wins over text_content.
func (f FieldDescriptor) Mode() ExtractionMode {
	switch {
	case f.Attr != nil:
		return ModeAttribute
	case f.OuterHTML:
		return ModeOuterHTML
	case f.TextContent:
		return ModeTextContent
	default:
		return ModeInnerHTML
	}
}

// DiscoveryMode selects the listing discovery strategy for a site.
type DiscoveryMode string

const (
	DiscoveryScroll     DiscoveryMode = "scroll"
	DiscoveryPagination DiscoveryMode = "pagination"
	DiscoveryNextLink   DiscoveryMode = "next"
)

// DiscoveryConfig describes how product links are found on a site's listing pages.
type DiscoveryConfig struct {
	Mode         DiscoveryMode `json:"mode"`
	ItemSelector string        `json:"item_selector"`
	LinkSelector string        `json:"link_selector,omitempty"`
	LinkAttr     string        `json:"link_attr,omitempty"`
	PageParam    string        `json:"page_param,omitempty"`
	NextSelector string        `json:"next_selector,omitempty"`
	MaxPages     int           `json:"max_pages,omitempty"`
	BaseURL      string        `json:"base_url,omitempty"`
}

// SiteConfig is the per-site JSON configuration file.
type SiteConfig struct {
	OrganizationName string            `json:"organization_name"`
	Elements         []FieldDescriptor `json:"elements"`
	Discovery        DiscoveryConfig   `json:"discovery"`
}
