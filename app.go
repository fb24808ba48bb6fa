package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/scipunch/stocknews/config"
	"github.com/scipunch/stocknews/crawler"
	"github.com/scipunch/stocknews/fetcher"
	"github.com/scipunch/stocknews/logger"
	"github.com/scipunch/stocknews/notify"
	"github.com/scipunch/stocknews/rotator"
	"github.com/scipunch/stocknews/store"
	"github.com/scipunch/stocknews/store/mongo"
	"github.com/scipunch/stocknews/tickers"
)

const shutdownTimeout = 30 * time.Second

// app wires the components of one command invocation. Components are
// created lazily so that "tickers" never opens the store and "stats"
// never starts a browser.
type app struct {
	conf  config.Config
	creds config.Credentials
	log   *zap.Logger

	transport fetcher.Transport
	st        store.Store
}

func newApp() (*app, error) {
	conf, err := loadConfig()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(conf.Logging)
	if err != nil {
		return nil, err
	}

	creds, err := config.LoadCredentials(config.DefaultCredentialsPath(), envFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}

	log.Debug("config loaded", zap.String("path", cfgPath), zap.String("provider", conf.Provider))
	return &app{conf: conf, creds: creds, log: log}, nil
}

func (a *app) getTransport() (fetcher.Transport, error) {
	if a.transport != nil {
		return a.transport, nil
	}
	t, err := fetcher.GetTransport(a.conf.Crawl.Transport, a.conf.Crawl.RequestTimeout.Duration, a.log)
	if err != nil {
		return nil, err
	}
	a.transport = t
	return t, nil
}

func (a *app) store(ctx context.Context) (store.Store, error) {
	if a.st != nil {
		return a.st, nil
	}
	st, err := newStore(ctx, a.conf.Store)
	if err != nil {
		return nil, err
	}
	a.st = st
	return st, nil
}

func (a *app) tickers(ctx context.Context) ([]string, error) {
	var holdings tickers.HoldingsLister
	if a.conf.Tickers.Source == config.ETFTickers {
		t, err := a.getTransport()
		if err != nil {
			return nil, err
		}
		holdings = fetcher.NewHoldingsFetcher(t, "")
	}

	src, err := tickers.NewSource(a.conf.Tickers, holdings)
	if err != nil {
		return nil, err
	}
	symbols, err := tickers.Resolve(ctx, src, tickers.NewFilter(a.conf.Tickers, a.log))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tickers: %w", err)
	}
	a.log.Info("tickers resolved", zap.String("source", a.conf.Tickers.Source), zap.Int("count", len(symbols)))
	return symbols, nil
}

func (a *app) orchestrator(ctx context.Context) (*crawler.Orchestrator, error) {
	t, err := a.getTransport()
	if err != nil {
		return nil, err
	}

	p, err := fetcher.GetProvider(a.conf.Provider, a.conf.Crawl.Delays, fetcher.Options{
		Transport: t,
		BaseURL:   a.conf.Crawl.BaseURL,
		Logger:    a.log,
	})
	if err != nil {
		return nil, err
	}

	st, err := a.store(ctx)
	if err != nil {
		return nil, err
	}

	n, err := newNotifier(a.conf.Notify, a.creds, configDir(), a.log)
	if err != nil {
		return nil, err
	}

	return crawler.New(crawler.Options{
		Provider:       p,
		Store:          st,
		Rotator:        newRotator(a.conf.Rotator, a.log),
		Notifier:       n,
		BlockThreshold: a.conf.Crawl.BlockThreshold,
		Logger:         a.log,
	}), nil
}

func (a *app) Close() {
	if a.transport != nil {
		if err := a.transport.Close(); err != nil {
			a.log.Warn("failed to close transport", zap.Error(err))
		}
	}
	if a.st != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.st.Close(ctx); err != nil {
			a.log.Warn("failed to close store", zap.Error(err))
		}
	}
	_ = a.log.Sync()
}

func newStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case config.SQLite:
		return store.NewSQLite(ctx, cfg.Path)
	case config.Mongo:
		return mongo.New(ctx, cfg.MongoURI, cfg.Database, cfg.CollectionPrefix)
	default:
		return nil, fmt.Errorf("unknown store driver: %s", cfg.Driver)
	}
}

func newRotator(cfg config.RotatorConfig, log *zap.Logger) rotator.Rotator {
	if !cfg.Enabled {
		log.Info("identity rotation disabled")
		return rotator.Noop{}
	}
	return rotator.NewCommand(rotator.Config{
		StartCommand: cfg.StartCommand,
		StopCommand:  cfg.StopCommand,
		StartSettle:  cfg.StartSettle.Duration,
		StopSettle:   cfg.StopSettle.Duration,
	}, rotator.ExecRunner, nil, log)
}

func newNotifier(cfg config.NotifyConfig, creds config.Credentials, cfgDir string, log *zap.Logger) (notify.Notifier, error) {
	var sinks []notify.Notifier
	var errs []error
	for _, name := range cfg.Sinks {
		switch name {
		case "log":
			sinks = append(sinks, notify.NewLog(log))
		case "webhook":
			if !creds.Webhook.IsValid() {
				errs = append(errs, fmt.Errorf("webhook sink needs a url (set %s)", config.EnvWebhookURL))
				continue
			}
			sinks = append(sinks, notify.NewWebhook(creds.Webhook.URL))
		case "telegram":
			tg, err := notify.NewTelegram(creds.Telegram, cfgDir, log)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			sinks = append(sinks, tg)
		default:
			errs = append(errs, fmt.Errorf("unknown notification sink %q", name))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if len(sinks) == 0 {
		sinks = append(sinks, notify.NewLog(log))
	}
	return notify.NewMulti(log, sinks...), nil
}
