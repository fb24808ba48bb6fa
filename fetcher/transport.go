package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/89.0.4389.114 Safari/537.36"
	// Article pages get a different browser fingerprint than listings
	ArticleUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/96.0.4664.93 Safari/537.36"

	maxBodySize = 16 << 20
)

// Response is a fully read reply from a transport
type Response struct {
	Status int
	Body   []byte
}

// OK reports whether the status is 2xx
func (r Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Transport performs a single GET. Non-2xx replies are returned as a
// Response, not an error; errors are reserved for network failures.
type Transport interface {
	Get(ctx context.Context, url string, header http.Header) (Response, error)
	Close() error
}

// HTTPTransport is a plain net/http transport
type HTTPTransport struct {
	client *http.Client
}

// NewHTTPTransport creates a transport with the given request timeout.
// Zero means no timeout.
func NewHTTPTransport(timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{
		client: &http.Client{Timeout: timeout},
	}
}

func (t *HTTPTransport) Get(ctx context.Context, url string, header http.Header) (Response, error) {
	var resp Response

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return resp, fmt.Errorf("failed to build request for %s: %w", url, err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	// Keep-alive connections make rotated identities easier to correlate
	req.Close = true

	res, err := t.client.Do(req)
	if err != nil {
		return resp, fmt.Errorf("GET %s: %w", url, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodySize))
	if err != nil {
		return resp, fmt.Errorf("failed to read body of %s: %w", url, err)
	}

	resp.Status = res.StatusCode
	resp.Body = body
	return resp, nil
}

func (t *HTTPTransport) Close() error {
	t.client.CloseIdleConnections()
	return nil
}

func browserHeader(userAgent, referer string) http.Header {
	h := http.Header{}
	h.Set("User-Agent", userAgent)
	if referer != "" {
		h.Set("Referer", referer)
	}
	return h
}
