package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"github.com/scipunch/stocknews/fetcher/types"
	"github.com/scipunch/stocknews/parser/seekingalpha"
)

const SeekingAlphaRSSName = "SeekingAlphaRSS"

func SeekingAlphaRSSDelays() Delays {
	return Delays{
		Request: 2 * time.Second,
		Ticker:  2 * time.Second,
		Check:   100 * time.Millisecond,
	}
}

// SeekingAlphaRSS reads the per-symbol combined RSS feed. The feed
// already carries each item's text, so FetchContent does no I/O.
type SeekingAlphaRSS struct {
	base
	baseURL string
	parser  *gofeed.Parser
}

func NewSeekingAlphaRSS(opts Options) *SeekingAlphaRSS {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = SeekingAlphaBaseURL
	}
	return &SeekingAlphaRSS{
		base:    newBase(opts, SeekingAlphaRSSName),
		baseURL: strings.TrimRight(baseURL, "/"),
		parser:  gofeed.NewParser(),
	}
}

func (p *SeekingAlphaRSS) Name() string        { return SeekingAlphaRSSName }
func (p *SeekingAlphaRSS) DisplayName() string { return "Seeking Alpha RSS" }

func (p *SeekingAlphaRSS) ListIDs(ctx context.Context, ticker string) ([]types.Listing, error) {
	feedURL := fmt.Sprintf("%s/api/sa/combined/%s.xml", p.baseURL, strings.ToUpper(ticker))

	body, err := p.get(ctx, feedURL, DefaultUserAgent, "")
	if err != nil {
		return nil, err
	}

	// Anything that is not a feed is most likely a bot-check page
	feed, err := p.parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, &types.BlockError{URL: feedURL, Reason: fmt.Sprintf("not a feed: %v", err)}
	}
	p.log.Debug("feed parsed", zap.String("ticker", ticker), zap.Int("items", len(feed.Items)))

	listings := make([]types.Listing, 0, len(feed.Items))
	for _, item := range feed.Items {
		id := rssItemID(item)
		if id == "" {
			continue
		}

		content := item.Content
		if content == "" {
			content = item.Description
		}

		publishDate := item.Published
		if item.PublishedParsed != nil {
			publishDate = item.PublishedParsed.Format(time.RFC3339)
		} else if item.UpdatedParsed != nil {
			publishDate = item.UpdatedParsed.Format(time.RFC3339)
		}

		listings = append(listings, types.Listing{
			ID:          id,
			Title:       item.Title,
			Href:        item.Link,
			PublishDate: publishDate,
			Content:     content,
		})
	}

	return listings, nil
}

func (p *SeekingAlphaRSS) FetchContent(ctx context.Context, listing types.Listing) (types.NewsItem, error) {
	if err := ctx.Err(); err != nil {
		return types.NewsItem{}, err
	}
	if strings.TrimSpace(listing.Content) == "" {
		return types.NewsItem{}, fmt.Errorf("%s: %w: empty description", listing.Href, types.ErrContentUnavailable)
	}

	return types.NewsItem{
		ID:          listing.ID,
		PublishDate: listing.PublishDate,
		Title:       listing.Title,
		Content:     listing.Content,
		Source:      SeekingAlphaRSSName,
	}, nil
}

// rssItemID prefers the numeric id in the article link and falls
// back to the GUID
func rssItemID(item *gofeed.Item) string {
	if u, err := url.Parse(item.Link); err == nil && u.Path != "" {
		if id := seekingalpha.IDFromLink(u.Path); id != "" {
			return id
		}
	}
	return strings.TrimSpace(item.GUID)
}
