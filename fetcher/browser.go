package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"
)

// BrowserTransport loads pages in headless Chromium. Sources that sit
// behind JS challenges serve the real page only to a browser.
type BrowserTransport struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	timeout time.Duration
	log     *zap.Logger
}

// NewBrowserTransport installs the playwright driver if needed and
// launches a browser.
func NewBrowserTransport(timeout time.Duration, log *zap.Logger) (*BrowserTransport, error) {
	if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
		return nil, fmt.Errorf("could not install playwright: %w", err)
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("could not start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("could not launch browser: %w", err)
	}

	log.Info("browser transport ready", zap.String("version", browser.Version()))
	return &BrowserTransport{pw: pw, browser: browser, timeout: timeout, log: log}, nil
}

func (t *BrowserTransport) Get(ctx context.Context, url string, header http.Header) (Response, error) {
	var resp Response

	if err := ctx.Err(); err != nil {
		return resp, err
	}

	opts := playwright.BrowserNewPageOptions{
		ExtraHttpHeaders: map[string]string{},
	}
	for k := range header {
		if strings.EqualFold(k, "User-Agent") {
			opts.UserAgent = playwright.String(header.Get(k))
			continue
		}
		opts.ExtraHttpHeaders[k] = header.Get(k)
	}

	page, err := t.browser.NewPage(opts)
	if err != nil {
		return resp, fmt.Errorf("could not create page: %w", err)
	}
	defer page.Close()

	gotoOpts := playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}
	if t.timeout > 0 {
		gotoOpts.Timeout = playwright.Float(float64(t.timeout.Milliseconds()))
	}

	res, err := page.Goto(url, gotoOpts)
	if err != nil {
		return resp, fmt.Errorf("could not navigate to %s: %w", url, err)
	}
	if res == nil {
		return resp, fmt.Errorf("no response for %s", url)
	}
	resp.Status = res.Status()

	// HTML is taken from the rendered DOM, everything else verbatim
	if strings.Contains(res.Headers()["content-type"], "html") {
		content, err := page.Content()
		if err != nil {
			return resp, fmt.Errorf("could not read page content of %s: %w", url, err)
		}
		resp.Body = []byte(content)
		return resp, nil
	}

	body, err := res.Body()
	if err != nil {
		return resp, fmt.Errorf("could not read body of %s: %w", url, err)
	}
	resp.Body = body
	return resp, nil
}

func (t *BrowserTransport) Close() error {
	if err := t.browser.Close(); err != nil {
		t.log.Warn("failed to close browser", zap.Error(err))
	}
	return t.pw.Stop()
}
