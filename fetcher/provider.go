package fetcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/scipunch/stocknews/fetcher/types"
	"github.com/scipunch/stocknews/pace"
	"github.com/scipunch/stocknews/parser"
)

// Delays are the pacing constants of a single provider
type Delays struct {
	// Request is the minimum interval between two requests
	Request time.Duration
	// Listing is an extra cooldown after a successful listing
	Listing time.Duration
	// Ticker is the pause between two tickers
	Ticker time.Duration
	// Check is the pause after an item already in the store
	Check time.Duration
}

// Options are shared by all provider constructors
type Options struct {
	Transport Transport
	Delays    Delays
	BaseURL   string
	Sleep     pace.SleepFunc
	Logger    *zap.Logger
}

// base carries what every provider needs for paced requests
type base struct {
	transport Transport
	delays    Delays
	limiter   *rate.Limiter
	sleep     pace.SleepFunc
	log       *zap.Logger
}

func newBase(opts Options, name string) base {
	sleep := opts.Sleep
	if sleep == nil {
		sleep = pace.Sleep
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return base{
		transport: opts.Transport,
		delays:    opts.Delays,
		limiter:   pace.NewLimiter(opts.Delays.Request),
		sleep:     sleep,
		log:       log.With(zap.String("provider", name)),
	}
}

func (b base) TickerDelay() time.Duration { return b.delays.Ticker }
func (b base) CheckDelay() time.Duration  { return b.delays.Check }

// get issues a paced GET and turns a non-2xx status into a block signal
func (b base) get(ctx context.Context, url string, userAgent, referer string) ([]byte, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := b.transport.Get(ctx, url, browserHeader(userAgent, referer))
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, &types.BlockError{URL: url, Status: resp.Status}
	}

	b.log.Debug("fetched", zap.String("url", url), zap.Int("status", resp.Status), zap.Int("bytes", len(resp.Body)))
	return resp.Body, nil
}

// classify maps parser errors onto the fetcher error taxonomy
func classify(url string, err error) error {
	switch {
	case errors.Is(err, parser.ErrMissingData):
		return &types.BlockError{URL: url, Reason: err.Error()}
	case errors.Is(err, parser.ErrNoContent):
		return fmt.Errorf("%s: %w: %v", url, types.ErrContentUnavailable, err)
	default:
		return err
	}
}
