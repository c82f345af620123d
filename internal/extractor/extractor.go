// Package extractor turns a product page into a domain.Record using the
// field descriptors of a site configuration.
package extractor

import (
	"errors"
	"fmt"
	"strings"

	"producttrends/crawler/internal/domain"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"
)

// ErrMissingIdentifier means a product-identifier field had no content, so the
// page is not a product page.
var ErrMissingIdentifier = errors.New("product identifier missing")

// GateError names the identifier field that failed.
type GateError struct {
	Field string
	URL   string
}

func (e *GateError) Error() string {
	return fmt.Sprintf("product identifier %q not found on %s", e.Field, e.URL)
}

func (e *GateError) Unwrap() error {
	return ErrMissingIdentifier
}

var commaReplacer = strings.NewReplacer(",", "", "<sup>", ".", "</sup>", "")

// Extract applies fields to doc. When an identifier field yields nothing it
// returns a nil record and a *GateError.
func Extract(doc *goquery.Document, fields []domain.FieldDescriptor, sourceURL string) (*domain.Record, error) {
	record := &domain.Record{URL: sourceURL}
	logger := log.WithField("url", sourceURL)

	for _, field := range fields {
		if strings.TrimSpace(field.Selector) == "" {
			logger.WithField("field", field.Name).Debug("Field has no selector, skipping")
			continue
		}

		contents := Contents(doc.Selection, field, sourceURL)

		if len(contents) == 0 {
			if field.ProductIdentifier {
				logger.WithField("field", field.Name).Info("Product identifier not found")
				return nil, &GateError{Field: field.Name, URL: sourceURL}
			}
			logger.WithField("field", field.Name).Debug("Element not found")
			continue
		}

		if field.Name == domain.FieldCategory {
			record.Category = breadcrumb(contents)
			continue
		}
		record.Set(field.Name, contents[0])
	}

	return record, nil
}

// Contents returns the surviving content of every element under root matching field.
func Contents(root *goquery.Selection, field domain.FieldDescriptor, sourceURL string) []string {
	var contents []string

	root.Find(field.Selector).Each(func(_ int, s *goquery.Selection) {
		content, ok := readContent(s, field)
		if ok && content != "" && field.Pattern != nil {
			loc := field.Pattern.FindStringIndex(content)
			if loc == nil {
				ok = false
			} else {
				content = content[loc[0]:loc[1]]
			}
		}
		if !ok {
			log.WithFields(log.Fields{"url": sourceURL, "field": field.Name}).
				Debug("Failed to extract content from element")
			return
		}

		content = strings.TrimSpace(content)
		if field.RemoveComma {
			content = commaReplacer.Replace(content)
		}
		contents = append(contents, content)
	})

	return contents
}

func readContent(s *goquery.Selection, field domain.FieldDescriptor) (string, bool) {
	switch field.Mode() {
	case domain.ModeAttribute:
		return s.Attr(*field.Attr)
	case domain.ModeOuterHTML:
		html, err := goquery.OuterHtml(s)
		return html, err == nil
	case domain.ModeTextContent:
		return s.Text(), true
	default:
		html, err := s.Html()
		return html, err == nil
	}
}

// breadcrumb drops the leading landing element (usually "Home").
func breadcrumb(contents []string) domain.CategoryPath {
	path := make(domain.CategoryPath, 0, len(contents))
	for _, c := range contents[1:] {
		path = append(path, strings.TrimSpace(c))
	}
	return path
}
