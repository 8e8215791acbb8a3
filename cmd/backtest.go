package cmd

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strategy-lab/config"
	"strategy-lab/internal/backtest"
	"strategy-lab/internal/dto"
	"strategy-lab/internal/repository"
	"strategy-lab/internal/service"
	"strategy-lab/pkg/cache"
	"strategy-lab/pkg/common"
	"strategy-lab/pkg/logger"
	"strategy-lab/pkg/metrics"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type backtestFlags struct {
	barsFile  string
	symbol    string
	assetType string
	timeframe string
	capital   float64
	tradesDir string
}

var btFlags backtestFlags

var backtestCmd = &cobra.Command{
	Use:   "backtest RULES.json [RULES.json...]",
	Short: "Run one or more rule documents against a price series without the API",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runBacktestCmd,
}

func init() {
	backtestCmd.Flags().StringVar(&btFlags.barsFile, "bars", "", "CSV file with time,open,high,low,close[,volume] columns")
	backtestCmd.Flags().StringVar(&btFlags.symbol, "symbol", "SPY", "symbol to fetch when --bars is not given")
	backtestCmd.Flags().StringVar(&btFlags.assetType, "asset-type", "stock", "stock or crypto")
	backtestCmd.Flags().StringVar(&btFlags.timeframe, "timeframe", dto.TimeframeDaily, "hourly, daily or weekly")
	backtestCmd.Flags().Float64Var(&btFlags.capital, "capital", service.DefaultInitialCapital, "initial capital")
	backtestCmd.Flags().StringVar(&btFlags.tradesDir, "trades-dir", "", "write <rules>.trades.csv files into this directory")
}

type backtestRun struct {
	name   string
	result *backtest.Result
}

func (f backtestFlags) validate() error {
	if !slices.Contains(common.GetAssetTypes(), f.assetType) {
		return fmt.Errorf("unknown asset type %q, want one of %v", f.assetType, common.GetAssetTypes())
	}
	if !slices.Contains(dto.GetTimeframes(), f.timeframe) {
		return fmt.Errorf("unknown timeframe %q, want one of %v", f.timeframe, dto.GetTimeframes())
	}
	if f.capital <= 0 || math.IsNaN(f.capital) || math.IsInf(f.capital, 0) {
		return fmt.Errorf("capital must be a positive number, got %v", f.capital)
	}
	return nil
}

func runBacktestCmd(cmd *cobra.Command, args []string) error {
	if err := btFlags.validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		return err
	}
	ctx = logger.NewContext(ctx, log)

	bars, err := loadBars(ctx, cfg, log)
	if err != nil {
		return err
	}

	runs := make([]backtestRun, len(args))
	g, gctx := errgroup.WithContext(ctx)
	if cfg.Backtest.MaxConcurrency > 0 {
		g.SetLimit(cfg.Backtest.MaxConcurrency)
	}
	for i, path := range args {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			result, err := simulateFile(path, bars, btFlags.capital, service.SimulationOptions(cfg.Backtest))
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			runs[i] = backtestRun{name: path, result: result}
			return writeTrades(btFlags.tradesDir, path, result.Trades)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	printRuns(cmd.OutOrStdout(), runs)
	return nil
}

func loadBars(ctx context.Context, cfg *config.Config, log *logger.Logger) ([]backtest.Bar, error) {
	if btFlags.barsFile != "" {
		f, err := os.Open(btFlags.barsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open bars file: %w", err)
		}
		defer f.Close()
		return backtest.ReadBarsCSV(f)
	}

	metricsRegistry := metrics.New()
	candleRepo := repository.NewCandleRepository(
		repository.NewAlphaVantageRepository(cfg, log),
		repository.NewYahooFinanceRepository(cfg, log),
		repository.NewCoinGeckoRepository(cfg, log),
		repository.NewBinanceRepository(cfg, log),
	)
	marketData := service.NewMarketDataService(
		cfg,
		log,
		cache.NewCache(cfg.Cache.DefaultExpiration, cfg.Cache.CleanupInterval),
		candleRepo,
		newBreakers(cfg, log, metricsRegistry),
		metricsRegistry,
	)
	return marketData.GetBars(ctx, dto.GetMarketDataParam{
		Symbol:    btFlags.symbol,
		AssetType: btFlags.assetType,
		Timeframe: btFlags.timeframe,
	})
}

func simulateFile(path string, bars []backtest.Bar, capital float64, opts []backtest.Option) (*backtest.Result, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := backtest.ParseRuleDocument(raw)
	if err != nil {
		return nil, err
	}
	return backtest.Simulate(doc, bars, capital, opts...)
}

func writeTrades(dir, rulesPath string, trades []backtest.Trade) error {
	if dir == "" {
		return nil
	}
	name := strings.TrimSuffix(filepath.Base(rulesPath), filepath.Ext(rulesPath)) + ".trades.csv"
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("failed to create trades file: %w", err)
	}
	if err := backtest.WriteTradesCSV(f, trades); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printRuns(w io.Writer, runs []backtestRun) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RULES\tRETURN %\tSHARPE\tMAX DD %\tWIN %\tTRADES\tFINAL")
	for _, run := range runs {
		m := run.result.Metrics
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.2f\t%.1f\t%d\t%.2f\n",
			run.name, m.TotalReturn, m.SharpeRatio, m.MaxDrawdown, m.WinRate, m.TradesCount, m.FinalCapital)
		if run.result.Liquidation != nil {
			fmt.Fprintf(tw, "\topen position closed at end: %+v\t\t\t\t\t\n", *run.result.Liquidation)
		}
	}
	_ = tw.Flush()
}
