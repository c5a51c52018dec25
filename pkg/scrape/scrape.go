// Package scrape holds the shared HTML decoding helpers for the service
// clients. The DSV services render server-side HTML with no stable API, so
// the clients extract data from page structure and fail with a ParseError
// when an expected element is gone.
package scrape

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ParseError reports that an expected element or structure was missing from
// a service page. This usually means the upstream markup changed.
type ParseError struct {
	Page   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %s", e.Page, e.Reason)
}

// Document parses an HTML body into a goquery document.
func Document(page string, body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &ParseError{Page: page, Reason: err.Error()}
	}
	return doc, nil
}

// Text returns the selection's text with surrounding and internal
// whitespace collapsed.
func Text(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}
