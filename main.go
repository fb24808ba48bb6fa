package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scipunch/stocknews/config"
	"github.com/scipunch/stocknews/crawler"
	"github.com/scipunch/stocknews/fetcher"
)

var (
	cfgPath  string
	envFile  string
	provider string
)

func main() {
	root := &cobra.Command{
		Use:           "stocknews",
		Short:         "Crawl per-ticker financial news into a dedup store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", config.DefaultPath(), "path to a TOML config")
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with credential overrides")
	root.PersistentFlags().StringVar(&provider, "provider", "", "override the configured provider")

	root.AddCommand(runCmd(), tickersCmd(), statsCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Crawl news for every configured ticker",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			symbols, err := a.tickers(ctx)
			if err != nil {
				return err
			}
			if len(symbols) == 0 {
				return errors.New("ticker list is empty")
			}

			orch, err := a.orchestrator(ctx)
			if err != nil {
				return err
			}

			state, err := orch.Execute(ctx, symbols)
			if err != nil {
				var runErr *crawler.RunError
				if errors.As(err, &runErr) && errors.Is(err, crawler.ErrBudgetExceeded) {
					a.log.Error("block budget exhausted, identity rotation is not helping",
						zap.String("ticker", runErr.State.CurrentTicker))
				}
				return err
			}

			a.log.Info("done",
				zap.String("run_id", state.RunID),
				zap.Int("tickers", state.ProcessedTickers),
				zap.Int("inserted", state.TotalInserted))
			return nil
		},
	}
}

func tickersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tickers",
		Short: "Print the resolved ticker list",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			symbols, err := a.tickers(cmd.Context())
			if err != nil {
				return err
			}
			for _, s := range symbols {
				fmt.Fprintln(cmd.OutOrStdout(), s)
			}
			return nil
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show how many items each provider namespace holds",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			st, err := a.store(ctx)
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Namespace", "Items"})
			for _, ns := range []string{fetcher.SeekingAlphaName, fetcher.ZacksName, fetcher.SeekingAlphaRSSName} {
				n, err := st.Count(ctx, ns)
				if err != nil {
					return fmt.Errorf("count %s: %w", ns, err)
				}
				t.AppendRow(table.Row{ns, n})
			}
			t.Render()
			return nil
		},
	}
}

// loadConfig reads the config and creates the default one if missing
func loadConfig() (config.Config, error) {
	conf, err := config.Read(cfgPath)
	if errors.Is(err, os.ErrNotExist) && cfgPath == config.DefaultPath() {
		if err := config.Write(cfgPath, conf); err != nil {
			return conf, fmt.Errorf("failed to write default config with %w", err)
		}
	} else if err != nil {
		return conf, fmt.Errorf("failed to read config with %w", err)
	}

	if provider != "" {
		conf.Provider = provider
	}
	if err := conf.Validate(); err != nil {
		return conf, fmt.Errorf("invalid config at %s: %w", cfgPath, err)
	}
	return conf, nil
}

func configDir() string {
	return path.Dir(cfgPath)
}
