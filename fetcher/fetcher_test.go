package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scipunch/stocknews/config"
	"github.com/scipunch/stocknews/fetcher/types"
	"github.com/scipunch/stocknews/pace"
)

// route maps a request path to a status and body
type route struct {
	status int
	body   string
}

type recordedRequest struct {
	path      string
	userAgent string
	referer   string
}

type fakeSite struct {
	mu       sync.Mutex
	routes   map[string]route
	requests []recordedRequest
}

func newFakeSite(t *testing.T, routes map[string]route) (*fakeSite, string) {
	t.Helper()
	site := &fakeSite{routes: routes}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		site.mu.Lock()
		site.requests = append(site.requests, recordedRequest{
			path:      r.URL.Path,
			userAgent: r.UserAgent(),
			referer:   r.Referer(),
		})
		rt, ok := site.routes[r.URL.Path]
		site.mu.Unlock()

		if !ok {
			http.NotFound(w, r)
			return
		}
		if rt.status != 0 {
			w.WriteHeader(rt.status)
		}
		_, _ = w.Write([]byte(rt.body))
	}))
	t.Cleanup(srv.Close)
	return site, srv.URL
}

func testOptions(baseURL string) Options {
	return Options{
		Transport: NewHTTPTransport(5 * time.Second),
		BaseURL:   baseURL,
		Sleep:     pace.NoSleep,
	}
}

const saListing = `{"data":[
  {"id":"4079","links":{"self":"/news/4079-apple-beats"}},
  {"id":"4080","links":{"self":"/news/4080-apple-guides-lower"}}
]}`

const saArticle = `{"data":{"id":"4079","attributes":{
  "publishOn":"2024-02-01T16:30:00-05:00",
  "title":"Apple beats",
  "content":"<p>Revenue rose.</p>"
}}}`

func TestSeekingAlpha_ListAndFetch(t *testing.T) {
	site, baseURL := newFakeSite(t, map[string]route{
		"/api/v3/symbols/aapl/news": {body: saListing},
		"/api/v3/news/4079":         {body: saArticle},
	})
	p := NewSeekingAlpha(testOptions(baseURL))
	ctx := context.Background()

	listings, err := p.ListIDs(ctx, "AAPL")
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, "4079", listings[0].ID)
	assert.Equal(t, "4080", listings[1].ID)

	item, err := p.FetchContent(ctx, listings[0])
	require.NoError(t, err)
	assert.Equal(t, types.NewsItem{
		ID:          "4079",
		PublishDate: "2024-02-01T16:30:00-05:00",
		Title:       "Apple beats",
		Content:     "<p>Revenue rose.</p>",
		Source:      SeekingAlphaName,
	}, item)

	require.Len(t, site.requests, 2)
	assert.Equal(t, DefaultUserAgent, site.requests[0].userAgent)
	assert.Equal(t, baseURL+"/symbol/AAPL", site.requests[0].referer)
	assert.Equal(t, ArticleUserAgent, site.requests[1].userAgent)
	assert.Empty(t, site.requests[1].referer)
}

func TestSeekingAlpha_BlockSignals(t *testing.T) {
	_, baseURL := newFakeSite(t, map[string]route{
		"/api/v3/symbols/aapl/news": {status: http.StatusForbidden, body: "Access denied"},
		"/api/v3/symbols/msft/news": {body: `{"errors":[{"status":"429"}]}`},
		"/api/v3/news/1":            {body: `<html>captcha</html>`},
		"/api/v3/news/2":            {body: `{"meta":{}}`},
	})
	p := NewSeekingAlpha(testOptions(baseURL))
	ctx := context.Background()

	_, err := p.ListIDs(ctx, "AAPL")
	require.ErrorIs(t, err, types.ErrBlocked)
	var blockErr *types.BlockError
	require.ErrorAs(t, err, &blockErr)
	assert.Equal(t, http.StatusForbidden, blockErr.Status)

	_, err = p.ListIDs(ctx, "MSFT")
	require.ErrorIs(t, err, types.ErrBlocked, "missing data counts as a block")

	_, err = p.FetchContent(ctx, types.Listing{ID: "1"})
	require.ErrorIs(t, err, types.ErrBlocked)

	_, err = p.FetchContent(ctx, types.Listing{ID: "2"})
	require.ErrorIs(t, err, types.ErrBlocked)
}

func TestSeekingAlpha_ListingCooldown(t *testing.T) {
	_, baseURL := newFakeSite(t, map[string]route{
		"/api/v3/symbols/aapl/news": {body: `{"data":[]}`},
	})
	var slept []time.Duration
	opts := testOptions(baseURL)
	opts.Delays = Delays{Listing: 8 * time.Second}
	opts.Sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	listings, err := NewSeekingAlpha(opts).ListIDs(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Empty(t, listings)
	assert.Contains(t, slept, 8*time.Second)
}

func TestSeekingAlpha_RequestFloor(t *testing.T) {
	_, baseURL := newFakeSite(t, map[string]route{
		"/api/v3/symbols/aapl/news": {body: `{"data":[]}`},
	})
	opts := testOptions(baseURL)
	opts.Delays = Delays{Request: 50 * time.Millisecond}
	p := NewSeekingAlpha(opts)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := p.ListIDs(ctx, "AAPL")
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond, "first request is free, then one per interval")
}

const zacksListing = `<html><body>
<ul>
  <li><a href="/stock/news/2213501/apple-aapl-earnings-preview">Apple earnings preview</a></li>
  <li><a href="/stock/news/2213377/is-apple-a-buy">Is Apple a buy?</a></li>
  <li><a href="/stock/news/2213501/apple-aapl-earnings-preview">again</a></li>
</ul>
</body></html>`

const zacksArticle = `<html><head><script>
var dataLayer = [{'publish_date': '2024-02-01 09:15:00'}];
</script></head><body>
<div id="comtext">Apple reported
strong results.</div>
</body></html>`

func TestZacks_ListAndFetch(t *testing.T) {
	site, baseURL := newFakeSite(t, map[string]route{
		"/stock/research/AAPL/all-news/zacks":             {body: zacksListing},
		"/stock/news/2213501/apple-aapl-earnings-preview": {body: zacksArticle},
		"/stock/news/2213377/is-apple-a-buy":              {body: `<html><body><div id="premium">Zacks Premium</div></body></html>`},
	})
	p := NewZacks(testOptions(baseURL))
	ctx := context.Background()

	listings, err := p.ListIDs(ctx, "AAPL")
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, types.Listing{
		ID:    "2213501",
		Title: "apple-aapl-earnings-preview",
		Href:  "/stock/news/2213501/apple-aapl-earnings-preview",
	}, listings[0])

	item, err := p.FetchContent(ctx, listings[0])
	require.NoError(t, err)
	assert.Equal(t, "2213501", item.ID)
	assert.Equal(t, "2024-02-01 09:15:00", item.PublishDate)
	assert.Equal(t, "apple-aapl-earnings-preview", item.Title)
	assert.Equal(t, "Apple reportedstrong results.", item.Content)
	assert.Equal(t, ZacksName, item.Source)

	_, err = p.FetchContent(ctx, listings[1])
	require.ErrorIs(t, err, types.ErrContentUnavailable)
	assert.NotErrorIs(t, err, types.ErrBlocked)

	assert.Equal(t, ArticleUserAgent, site.requests[1].userAgent)
}

func TestZacks_BlockedStatus(t *testing.T) {
	_, baseURL := newFakeSite(t, map[string]route{
		"/stock/research/AAPL/all-news/zacks": {status: http.StatusTooManyRequests},
		"/stock/news/1/removed":               {status: http.StatusForbidden},
	})
	p := NewZacks(testOptions(baseURL))

	_, err := p.ListIDs(context.Background(), "AAPL")
	require.ErrorIs(t, err, types.ErrBlocked)

	_, err = p.FetchContent(context.Background(), types.Listing{ID: "1", Title: "removed"})
	require.ErrorIs(t, err, types.ErrBlocked)
}

const saFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Apple Inc. (AAPL) News</title>
  <item>
    <title>Apple beats</title>
    <link>https://seekingalpha.com/news/4079-apple-beats?source=feed</link>
    <guid isPermaLink="false">MarketCurrent:4079</guid>
    <pubDate>Thu, 01 Feb 2024 16:30:00 -0500</pubDate>
    <description>Revenue rose.</description>
  </item>
  <item>
    <title>No body</title>
    <link>https://seekingalpha.com/news/4080-no-body</link>
    <pubDate>Thu, 01 Feb 2024 17:00:00 -0500</pubDate>
  </item>
</channel>
</rss>`

func TestSeekingAlphaRSS(t *testing.T) {
	site, baseURL := newFakeSite(t, map[string]route{
		"/api/sa/combined/AAPL.xml": {body: saFeed},
		"/api/sa/combined/MSFT.xml": {body: `<html><body>Please verify you are a human</body></html>`},
	})
	p := NewSeekingAlphaRSS(testOptions(baseURL))
	ctx := context.Background()

	listings, err := p.ListIDs(ctx, "aapl")
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, "4079", listings[0].ID)
	assert.Equal(t, "2024-02-01T16:30:00-05:00", listings[0].PublishDate)

	item, err := p.FetchContent(ctx, listings[0])
	require.NoError(t, err)
	assert.Equal(t, "Revenue rose.", item.Content)
	assert.Equal(t, SeekingAlphaRSSName, item.Source)

	_, err = p.FetchContent(ctx, listings[1])
	require.ErrorIs(t, err, types.ErrContentUnavailable)

	require.Len(t, site.requests, 1, "content comes from the feed")

	_, err = p.ListIDs(ctx, "MSFT")
	require.ErrorIs(t, err, types.ErrBlocked)
}

func TestHoldingsFetcher(t *testing.T) {
	_, baseURL := newFakeSite(t, map[string]route{
		"/funds/etf/VOO/holding": {body: `var etf_holdings = {"data":[["<a href=\"\/quote\/etf\/AAPL\/\">Apple<\/a>"],["<a href=\"\/quote\/etf\/MSFT\/\">Microsoft<\/a>"]]};`},
		"/funds/etf/XXX/holding": {body: `<html>nothing</html>`},
	})
	f := NewHoldingsFetcher(NewHTTPTransport(time.Second), baseURL)

	symbols, err := f.Holdings(context.Background(), "VOO")
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, symbols)

	_, err = f.Holdings(context.Background(), "XXX")
	require.Error(t, err)

	_, err = f.Holdings(context.Background(), "NOPE")
	require.Error(t, err)
}

func TestHTTPTransport_ReturnsNon2xxAsResponse(t *testing.T) {
	_, baseURL := newFakeSite(t, map[string]route{
		"/denied": {status: http.StatusForbidden, body: "denied"},
	})
	tr := NewHTTPTransport(time.Second)
	defer tr.Close()

	resp, err := tr.Get(context.Background(), baseURL+"/denied", browserHeader(DefaultUserAgent, ""))
	require.NoError(t, err)
	assert.False(t, resp.OK())
	assert.Equal(t, "denied", strings.TrimSpace(string(resp.Body)))
}

func TestGetProvider(t *testing.T) {
	tests := []struct {
		pt   config.ProviderType
		name string
	}{
		{pt: config.SeekingAlpha, name: SeekingAlphaName},
		{pt: config.Zacks, name: ZacksName},
		{pt: config.SeekingAlphaRSS, name: SeekingAlphaRSSName},
	}
	for _, tt := range tests {
		t.Run(tt.pt, func(t *testing.T) {
			p, err := GetProvider(tt.pt, config.Delays{}, testOptions("http://localhost"))
			require.NoError(t, err)
			assert.Equal(t, tt.name, p.Name())
		})
	}

	_, err := GetProvider("reddit", config.Delays{}, Options{})
	require.Error(t, err)
}

func TestGetProvider_DelayOverrides(t *testing.T) {
	overrides := config.Delays{Ticker: config.Duration{Duration: time.Minute}}
	p, err := GetProvider(config.SeekingAlpha, overrides, testOptions("http://localhost"))
	require.NoError(t, err)

	assert.Equal(t, time.Minute, p.TickerDelay())
	assert.Equal(t, 100*time.Millisecond, p.CheckDelay())
}

func TestMergeDelays(t *testing.T) {
	got := mergeDelays(ZacksDelays(), config.Delays{
		Request: config.Duration{Duration: 2 * time.Second},
		Check:   config.Duration{Duration: time.Second},
	})
	assert.Equal(t, Delays{
		Request: 2 * time.Second,
		Ticker:  500 * time.Millisecond,
		Check:   time.Second,
	}, got)
}

func TestGetTransport(t *testing.T) {
	tr, err := GetTransport(config.HTTPTransport, time.Second, nil)
	require.NoError(t, err)
	assert.IsType(t, &HTTPTransport{}, tr)

	_, err = GetTransport("carrier-pigeon", time.Second, nil)
	require.Error(t, err)
}
