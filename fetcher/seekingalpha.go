package fetcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/scipunch/stocknews/fetcher/types"
	"github.com/scipunch/stocknews/parser/seekingalpha"
)

const (
	SeekingAlphaName    = "SeekingAlpha"
	SeekingAlphaBaseURL = "https://seekingalpha.com"
)

// SeekingAlphaDelays mirror how much the JSON API tolerates
func SeekingAlphaDelays() Delays {
	return Delays{
		Request: 4 * time.Second,
		Listing: 8 * time.Second,
		Ticker:  4 * time.Second,
		Check:   100 * time.Millisecond,
	}
}

// SeekingAlpha lists and fetches news through the site's JSON API.
// Missing "data" in any response is treated the same as a bad status.
type SeekingAlpha struct {
	base
	baseURL string
}

func NewSeekingAlpha(opts Options) *SeekingAlpha {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = SeekingAlphaBaseURL
	}
	return &SeekingAlpha{
		base:    newBase(opts, SeekingAlphaName),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (p *SeekingAlpha) Name() string        { return SeekingAlphaName }
func (p *SeekingAlpha) DisplayName() string { return "Seeking Alpha" }

func (p *SeekingAlpha) ListIDs(ctx context.Context, ticker string) ([]types.Listing, error) {
	url := fmt.Sprintf("%s/api/v3/symbols/%s/news", p.baseURL, strings.ToLower(ticker))
	referer := fmt.Sprintf("%s/symbol/%s", p.baseURL, ticker)

	body, err := p.get(ctx, url, DefaultUserAgent, referer)
	if err != nil {
		return nil, err
	}

	ids, err := seekingalpha.ParseListing(body)
	if err != nil {
		return nil, classify(url, err)
	}
	p.log.Debug("listing parsed", zap.String("ticker", ticker), zap.Int("ids", len(ids)))

	listings := make([]types.Listing, 0, len(ids))
	for _, id := range ids {
		listings = append(listings, types.Listing{ID: id})
	}

	if err := p.sleep(ctx, p.delays.Listing); err != nil {
		return nil, err
	}
	return listings, nil
}

func (p *SeekingAlpha) FetchContent(ctx context.Context, listing types.Listing) (types.NewsItem, error) {
	url := fmt.Sprintf("%s/api/v3/news/%s", p.baseURL, listing.ID)

	body, err := p.get(ctx, url, ArticleUserAgent, "")
	if err != nil {
		return types.NewsItem{}, err
	}

	article, err := seekingalpha.ParseArticle(body)
	if err != nil {
		return types.NewsItem{}, classify(url, err)
	}

	return types.NewsItem{
		ID:          listing.ID,
		PublishDate: article.PublishDate,
		Title:       article.Title,
		Content:     article.Content,
		Source:      SeekingAlphaName,
	}, nil
}
