package config

import (
	"errors"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/BurntSushi/toml"
)

type ProviderType = string

var (
	SeekingAlpha    = ProviderType("seekingalpha")
	Zacks           = ProviderType("zacks")
	SeekingAlphaRSS = ProviderType("seekingalpha-rss")
)

type TransportType = string

var (
	HTTPTransport    = TransportType("http")
	BrowserTransport = TransportType("browser")
)

type StoreDriver = string

var (
	SQLite = StoreDriver("sqlite")
	Mongo  = StoreDriver("mongo")
)

type TickerSource = string

var (
	StaticTickers = TickerSource("static")
	FileTickers   = TickerSource("file")
	ETFTickers    = TickerSource("etf")
)

const (
	baseCfgPath = "stocknews/config.toml"

	DefaultBlockThreshold = 10
	DefaultETF            = "VOO"
)

type Config struct {
	Provider ProviderType  `toml:"provider"`
	Crawl    CrawlConfig   `toml:"crawl"`
	Store    StoreConfig   `toml:"store"`
	Tickers  TickersConfig `toml:"tickers"`
	Rotator  RotatorConfig `toml:"rotator"`
	Notify   NotifyConfig  `toml:"notify"`
	Logging  LoggingConfig `toml:"logging"`
}

type CrawlConfig struct {
	BlockThreshold int           `toml:"block_threshold"` // Consecutive blocks tolerated per ticker
	Transport      TransportType `toml:"transport"`       // "http" or "browser"
	RequestTimeout Duration      `toml:"request_timeout"` // 0 = no timeout
	BaseURL        string        `toml:"base_url"`        // Overrides the provider's site, mostly for testing
	Delays         Delays        `toml:"delays"`          // Overrides of the provider pacing, zero keeps defaults
}

type Delays struct {
	Request Duration `toml:"request"`
	Listing Duration `toml:"listing"`
	Ticker  Duration `toml:"ticker"`
	Check   Duration `toml:"check"`
}

type StoreConfig struct {
	Driver           StoreDriver `toml:"driver"`
	Path             string      `toml:"path"` // sqlite database file
	MongoURI         string      `toml:"mongo_uri"`
	Database         string      `toml:"database"`
	CollectionPrefix string      `toml:"collection_prefix"` // Collection is prefix + provider namespace
}

type TickersConfig struct {
	Source  TickerSource `toml:"source"`
	ETF     string       `toml:"etf"`     // Fund whose holdings are crawled
	Symbols []string     `toml:"symbols"` // Used by the static source
	File    string       `toml:"file"`    // One symbol per line
	Exclude []string     `toml:"exclude"` // Regex patterns
	Skip    int          `toml:"skip"`
	Limit   int          `toml:"limit"` // 0 = no limit
}

type RotatorConfig struct {
	Enabled      bool     `toml:"enabled"`
	StartCommand []string `toml:"start_command"`
	StopCommand  []string `toml:"stop_command"`
	StartSettle  Duration `toml:"start_settle"` // Wait after start for the tunnel to come up
	StopSettle   Duration `toml:"stop_settle"`
}

type NotifyConfig struct {
	Sinks []string `toml:"sinks"` // Any of "log", "webhook", "telegram"
}

type LoggingConfig struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

// Duration is a time.Duration written as "15s" in TOML
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func Read(path string) (Config, error) {
	conf := Default()
	dat, err := os.ReadFile(path)
	if err != nil {
		return conf, err
	}
	_, err = toml.Decode(string(dat), &conf)
	if err != nil {
		return conf, fmt.Errorf("failed to decode config at %s with %w", path, err)
	}
	return conf, nil
}

func Write(cfgPath string, cfg Config) error {
	blob, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config with %w", err)
	}
	basePath := path.Dir(cfgPath)
	err = os.MkdirAll(basePath, os.ModePerm)
	if err != nil {
		return fmt.Errorf("failed to create base config directory at '%s' with %w", basePath, err)
	}
	err = os.WriteFile(cfgPath, blob, 0644)
	if err != nil {
		return fmt.Errorf("failed to write into config file at '%s' with %w", cfgPath, err)
	}
	return nil
}

func Default() Config {
	var dbBase = path.Join(os.Getenv("HOME"), ".local/share/stocknews")
	const vpnName = "Surfshark. WireGuard"
	return Config{
		Provider: Zacks,
		Crawl: CrawlConfig{
			BlockThreshold: DefaultBlockThreshold,
			Transport:      HTTPTransport,
			RequestTimeout: Duration{30 * time.Second},
		},
		Store: StoreConfig{
			Driver:           SQLite,
			Path:             path.Join(dbBase, "news.db"),
			Database:         "stock_news",
			CollectionPrefix: "original_",
		},
		Tickers: TickersConfig{
			Source: ETFTickers,
			ETF:    DefaultETF,
		},
		Rotator: RotatorConfig{
			StartCommand: []string{"scutil", "--nc", "start", vpnName},
			StopCommand:  []string{"scutil", "--nc", "stop", vpnName},
			StartSettle:  Duration{15 * time.Second},
			StopSettle:   Duration{10 * time.Second},
		},
		Notify: NotifyConfig{
			Sinks: []string{"log"},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate reports every invalid setting at once
func (c Config) Validate() error {
	var errs []error

	switch c.Provider {
	case SeekingAlpha, Zacks, SeekingAlphaRSS:
	default:
		errs = append(errs, fmt.Errorf("unknown provider %q", c.Provider))
	}

	switch c.Crawl.Transport {
	case HTTPTransport, BrowserTransport:
	default:
		errs = append(errs, fmt.Errorf("unknown transport %q", c.Crawl.Transport))
	}
	if c.Crawl.BlockThreshold <= 0 {
		errs = append(errs, fmt.Errorf("block_threshold must be positive, got %d", c.Crawl.BlockThreshold))
	}

	switch c.Store.Driver {
	case SQLite:
		if c.Store.Path == "" {
			errs = append(errs, errors.New("store.path is required for sqlite"))
		}
	case Mongo:
		if c.Store.MongoURI == "" {
			errs = append(errs, errors.New("store.mongo_uri is required for mongo"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.Store.Driver))
	}

	switch c.Tickers.Source {
	case StaticTickers:
		if len(c.Tickers.Symbols) == 0 {
			errs = append(errs, errors.New("tickers.symbols is empty"))
		}
	case FileTickers:
		if c.Tickers.File == "" {
			errs = append(errs, errors.New("tickers.file is required for the file source"))
		}
	case ETFTickers:
		if c.Tickers.ETF == "" {
			errs = append(errs, errors.New("tickers.etf is required for the etf source"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown ticker source %q", c.Tickers.Source))
	}

	if c.Rotator.Enabled && (len(c.Rotator.StartCommand) == 0 || len(c.Rotator.StopCommand) == 0) {
		errs = append(errs, errors.New("rotator start_command and stop_command are required when enabled"))
	}

	return errors.Join(errs...)
}

func DefaultPath() string {
	var xdgHome = os.Getenv("XDG_CONFIG_HOME")
	if xdgHome != "" {
		return path.Join(xdgHome, baseCfgPath)
	}

	var home = os.Getenv("HOME")
	if home != "" {
		return path.Join(home, ".config", baseCfgPath)
	}

	panic("unclear where to search for the config fie")
}
