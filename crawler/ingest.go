package crawler

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/scipunch/stocknews/fetcher/types"
	"github.com/scipunch/stocknews/pace"
	"github.com/scipunch/stocknews/store"
)

// Ingester runs the per-ticker procedure: list, filter against the
// store, fetch what is new, insert it
type Ingester struct {
	provider types.Provider
	store    store.Store
	sleep    pace.SleepFunc
	log      *zap.Logger
}

func NewIngester(p types.Provider, s store.Store, sleep pace.SleepFunc, log *zap.Logger) *Ingester {
	if sleep == nil {
		sleep = pace.Sleep
	}
	return &Ingester{provider: p, store: s, sleep: sleep, log: log}
}

// Ingest processes one ticker. The returned count is valid even when an
// error is returned, it covers what was inserted before the failure.
func (in *Ingester) Ingest(ctx context.Context, s *Session) (int, error) {
	ns := in.provider.Name()
	log := in.log.With(zap.String("ticker", s.Ticker()), zap.String("provider", ns))

	listings, err := call(ctx, s, "list", func(ctx context.Context) ([]types.Listing, error) {
		return in.provider.ListIDs(ctx, s.Ticker())
	})
	if err != nil {
		return s.inserted, fmt.Errorf("list %s: %w", s.Ticker(), err)
	}
	log.Info("listing fetched", zap.Int("items", len(listings)))

	for _, listing := range listings {
		exists, err := in.store.Exists(ctx, ns, listing.ID)
		if err != nil {
			return s.inserted, err
		}
		if exists {
			log.Debug("already stored", zap.String("news_id", listing.ID))
			if err := in.sleep(ctx, in.provider.CheckDelay()); err != nil {
				return s.inserted, err
			}
			continue
		}

		item, err := call(ctx, s, "fetch", func(ctx context.Context) (types.NewsItem, error) {
			return in.provider.FetchContent(ctx, listing)
		})
		if errors.Is(err, types.ErrContentUnavailable) {
			log.Info("content unavailable, skipping", zap.String("news_id", listing.ID), zap.Error(err))
			continue
		}
		if err != nil {
			return s.inserted, fmt.Errorf("fetch %s/%s: %w", s.Ticker(), listing.ID, err)
		}

		if err := in.store.Insert(ctx, ns, item); err != nil {
			return s.inserted, err
		}
		s.inserted++
		log.Info("news stored", zap.String("news_id", item.ID), zap.String("date", item.PublishDate))
	}

	return s.inserted, nil
}
