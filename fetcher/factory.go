package fetcher

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/scipunch/stocknews/config"
	"github.com/scipunch/stocknews/fetcher/types"
)

// DefaultDelays returns the pacing constants of a provider type
func DefaultDelays(pt config.ProviderType) (Delays, error) {
	switch pt {
	case config.SeekingAlpha:
		return SeekingAlphaDelays(), nil
	case config.Zacks:
		return ZacksDelays(), nil
	case config.SeekingAlphaRSS:
		return SeekingAlphaRSSDelays(), nil
	default:
		return Delays{}, fmt.Errorf("unknown provider type: %s", pt)
	}
}

// GetProvider creates the provider adapter configured under pt.
// Non-zero delays in overrides replace the provider defaults.
func GetProvider(pt config.ProviderType, overrides config.Delays, opts Options) (types.Provider, error) {
	delays, err := DefaultDelays(pt)
	if err != nil {
		return nil, err
	}
	opts.Delays = mergeDelays(delays, overrides)

	switch pt {
	case config.SeekingAlpha:
		return NewSeekingAlpha(opts), nil
	case config.Zacks:
		return NewZacks(opts), nil
	case config.SeekingAlphaRSS:
		return NewSeekingAlphaRSS(opts), nil
	default:
		return nil, fmt.Errorf("unknown provider type: %s", pt)
	}
}

// GetTransport creates the configured transport
func GetTransport(tt config.TransportType, timeout time.Duration, log *zap.Logger) (Transport, error) {
	switch tt {
	case config.HTTPTransport, "":
		return NewHTTPTransport(timeout), nil
	case config.BrowserTransport:
		return NewBrowserTransport(timeout, log)
	default:
		return nil, fmt.Errorf("unknown transport type: %s", tt)
	}
}

func mergeDelays(d Delays, o config.Delays) Delays {
	if o.Request.Duration > 0 {
		d.Request = o.Request.Duration
	}
	if o.Listing.Duration > 0 {
		d.Listing = o.Listing.Duration
	}
	if o.Ticker.Duration > 0 {
		d.Ticker = o.Ticker.Duration
	}
	if o.Check.Duration > 0 {
		d.Check = o.Check.Duration
	}
	return d
}
