package fetcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/scipunch/stocknews/fetcher/types"
	"github.com/scipunch/stocknews/parser/zacks"
)

const (
	ZacksName    = "Zacks"
	ZacksBaseURL = "https://www.zacks.com"
)

func ZacksDelays() Delays {
	return Delays{
		Request: 500 * time.Millisecond,
		Ticker:  500 * time.Millisecond,
		Check:   100 * time.Millisecond,
	}
}

// Zacks scrapes the per-ticker "all news" page and article pages.
// An article page without its content container is reported as
// types.ErrContentUnavailable, never as a block.
type Zacks struct {
	base
	baseURL string
}

func NewZacks(opts Options) *Zacks {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = ZacksBaseURL
	}
	return &Zacks{
		base:    newBase(opts, ZacksName),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (p *Zacks) Name() string        { return ZacksName }
func (p *Zacks) DisplayName() string { return ZacksName }

func (p *Zacks) ListIDs(ctx context.Context, ticker string) ([]types.Listing, error) {
	url := fmt.Sprintf("%s/stock/research/%s/all-news/zacks", p.baseURL, ticker)

	body, err := p.get(ctx, url, DefaultUserAgent, "")
	if err != nil {
		return nil, err
	}

	links, err := zacks.ParseListing(body)
	if err != nil {
		return nil, classify(url, err)
	}
	p.log.Debug("listing parsed", zap.String("ticker", ticker), zap.Int("links", len(links)))

	listings := make([]types.Listing, 0, len(links))
	for _, l := range links {
		listings = append(listings, types.Listing{ID: l.ID, Title: l.Slug, Href: l.Href})
	}

	if err := p.sleep(ctx, p.delays.Listing); err != nil {
		return nil, err
	}
	return listings, nil
}

func (p *Zacks) FetchContent(ctx context.Context, listing types.Listing) (types.NewsItem, error) {
	href := listing.Href
	if href == "" {
		href = fmt.Sprintf("/stock/news/%s/%s", listing.ID, listing.Title)
	}
	url := p.baseURL + href

	body, err := p.get(ctx, url, ArticleUserAgent, "")
	if err != nil {
		return types.NewsItem{}, err
	}

	article, err := zacks.ParseArticle(body, listing.Title)
	if err != nil {
		return types.NewsItem{}, classify(url, err)
	}

	return types.NewsItem{
		ID:          listing.ID,
		PublishDate: article.PublishDate,
		Title:       article.Title,
		Content:     article.Content,
		Source:      ZacksName,
	}, nil
}
