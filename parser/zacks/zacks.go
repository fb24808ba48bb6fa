package zacks

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/scipunch/stocknews/parser"
)

const (
	newsPathPrefix     = "/stock/news/"
	contentContainerID = "comtext"
)

var (
	publishDatePattern = regexp.MustCompile(`publish_date['"]?\s*:\s*['"]([^'"]*)['"]`)
	// Holdings are embedded as escaped JSON links, e.g. etf\/AAPL\
	holdingPattern = regexp.MustCompile(`etf\\/(.*?)\\`)
)

// Link is an article reference found on a ticker's news page
type Link struct {
	ID   string
	Slug string
	Href string
}

// ParseListing collects article links in page order.
// Hrefs look like /stock/news/{id}/{title-slug}.
func ParseListing(body []byte) ([]Link, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var links []Link
	seen := make(map[string]bool)
	doc.Find(fmt.Sprintf("[href^='%s']", newsPathPrefix)).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		segments := strings.Split(href, "/")
		if len(segments) < 5 || segments[3] == "" {
			return
		}
		id := segments[3]
		if seen[id] {
			return
		}
		seen[id] = true
		links = append(links, Link{ID: id, Slug: segments[4], Href: href})
	})

	return links, nil
}

// ParseArticle extracts the article body and its publish date.
// A page without the content container or without the dataLayer
// publish date yields parser.ErrNoContent.
func ParseArticle(body []byte, title string) (parser.Article, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return parser.Article{}, fmt.Errorf("parse html: %w", err)
	}

	container := doc.Find("#" + contentContainerID).First()
	if container.Length() == 0 {
		return parser.Article{}, fmt.Errorf("%w: no #%s element", parser.ErrNoContent, contentContainerID)
	}

	publishDate, ok := extractPublishDate(doc)
	if !ok {
		return parser.Article{}, fmt.Errorf("%w: no publish_date in dataLayer", parser.ErrNoContent)
	}

	return parser.Article{
		PublishDate: publishDate,
		Title:       title,
		Content:     strings.ReplaceAll(container.Text(), "\n", ""),
	}, nil
}

func extractPublishDate(doc *goquery.Document) (string, bool) {
	var date string
	var found bool
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		if !strings.Contains(text, "dataLayer") {
			return true
		}
		m := publishDatePattern.FindStringSubmatch(text)
		if m == nil {
			return true
		}
		date, found = m[1], true
		return false
	})
	return date, found
}

// ParseHoldings returns fund holding symbols in page order
func ParseHoldings(body []byte) []string {
	matches := holdingPattern.FindAllSubmatch(body, -1)
	symbols := make([]string, 0, len(matches))
	for _, m := range matches {
		if s := strings.TrimSpace(string(m[1])); s != "" {
			symbols = append(symbols, s)
		}
	}
	return symbols
}
