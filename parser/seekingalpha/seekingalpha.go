package seekingalpha

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/scipunch/stocknews/parser"
)

type listingResponse struct {
	Data *[]struct {
		Links struct {
			Self string `json:"self"`
		} `json:"links"`
	} `json:"data"`
}

type articleResponse struct {
	Data *struct {
		Attributes struct {
			PublishOn string `json:"publishOn"`
			Title     string `json:"title"`
			Content   string `json:"content"`
		} `json:"attributes"`
	} `json:"data"`
}

// ParseListing extracts news ids from a symbol news listing.
// A body without a "data" array yields parser.ErrMissingData.
func ParseListing(body []byte) ([]string, error) {
	var res listingResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("%w: %v", parser.ErrMissingData, err)
	}
	if res.Data == nil {
		return nil, parser.ErrMissingData
	}

	ids := make([]string, 0, len(*res.Data))
	for _, d := range *res.Data {
		if id := IDFromLink(d.Links.Self); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// IDFromLink turns "/news/3912345-some-title" into "3912345"
func IDFromLink(link string) string {
	segments := strings.Split(link, "/")
	if len(segments) < 3 {
		return ""
	}
	id, _, _ := strings.Cut(segments[2], "-")
	return id
}

// ParseArticle decodes a single news item response
func ParseArticle(body []byte) (parser.Article, error) {
	var res articleResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return parser.Article{}, fmt.Errorf("%w: %v", parser.ErrMissingData, err)
	}
	if res.Data == nil {
		return parser.Article{}, parser.ErrMissingData
	}

	attrs := res.Data.Attributes
	return parser.Article{
		PublishDate: attrs.PublishOn,
		Title:       attrs.Title,
		Content:     attrs.Content,
	}, nil
}
