package fetcher

import (
	"context"
	"fmt"
	"strings"

	"github.com/scipunch/stocknews/parser/zacks"
)

// HoldingsFetcher resolves the constituents of an ETF from its
// Zacks holdings page
type HoldingsFetcher struct {
	transport Transport
	baseURL   string
}

func NewHoldingsFetcher(t Transport, baseURL string) *HoldingsFetcher {
	if baseURL == "" {
		baseURL = ZacksBaseURL
	}
	return &HoldingsFetcher{transport: t, baseURL: strings.TrimRight(baseURL, "/")}
}

// Holdings returns the fund's ticker symbols in page order
func (f *HoldingsFetcher) Holdings(ctx context.Context, etf string) ([]string, error) {
	url := fmt.Sprintf("%s/funds/etf/%s/holding", f.baseURL, etf)

	resp, err := f.transport.Get(ctx, url, browserHeader(DefaultUserAgent, ""))
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, fmt.Errorf("holdings of %s: unexpected status %d", etf, resp.Status)
	}

	symbols := zacks.ParseHoldings(resp.Body)
	if len(symbols) == 0 {
		return nil, fmt.Errorf("holdings of %s: no symbols found", etf)
	}
	return symbols, nil
}
