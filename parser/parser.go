// Package parser turns raw provider payloads into listings and articles.
// Parsers do no I/O; fetchers decide what a parse failure means.
package parser

import "errors"

var (
	// ErrMissingData means the payload lacks its expected top-level shape
	ErrMissingData = errors.New("expected payload field missing")
	// ErrNoContent means the page is well-formed but carries no article
	ErrNoContent = errors.New("article content missing")
)

// Article is the parsed body of a single news page
type Article struct {
	PublishDate string
	Title       string
	Content     string
}
