package cmd

import (
	"context"
	"errors"
	"log"
	httpNet "net/http"
	"os"
	"os/signal"
	"strategy-lab/internal/delivery/http"
	"strategy-lab/internal/repository"
	"strategy-lab/internal/service"
	"strategy-lab/pkg/logger"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the strategy-lab API server",
	Run:   Start,
}

func Start(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appDep, err := NewAppDependency(ctx)
	if err != nil {
		log.Fatalf("Failed to create app dependency: %v", err)
	}

	repo, err := repository.NewRepository(appDep.cfg, appDep.db.DB, appDep.log)
	if err != nil {
		log.Fatalf("Failed to create repository: %v", err)
	}

	services := service.NewService(
		appDep.cfg,
		appDep.log,
		repo,
		appDep.cache,
		appDep.breakers,
		appDep.metrics,
		appDep.notifier,
	)

	if appDep.cfg.Backtest.SeedStrategy {
		if err := services.StrategyService.Seed(ctx); err != nil {
			appDep.log.Error("Failed to seed example strategy", logger.ErrorField(err))
		}
	}

	if err := services.SchedulerService.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	httpHandler := http.NewHttpAPIHandler(ctx, appDep.echo, appDep.validator, services, appDep.metrics, appDep.log)
	apiServer := NewHTTPServer(ctx, appDep, httpHandler)
	go func() {
		if err := apiServer.Start(); err != nil && !errors.Is(err, httpNet.ErrServerClosed) {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down gracefully...")

	if err := apiServer.Stop(); err != nil {
		appDep.log.Error("Failed to stop HTTP server", logger.ErrorField(err))
	}

	<-services.SchedulerService.Stop().Done()

	drainCtx, cancel := context.WithTimeout(context.Background(), appDep.cfg.Backtest.RunTimeout+5*time.Second)
	defer cancel()
	if err := services.BacktestService.Shutdown(drainCtx); err != nil {
		appDep.log.Warn("Backtests still running at shutdown, the reaper will settle them", logger.ErrorField(err))
	}

	if err := appDep.Close(); err != nil {
		log.Fatalf("Failed to close app dependency: %v", err)
	}
}
