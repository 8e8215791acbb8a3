package cmd

import (
	"context"
	"strategy-lab/config"
	"strategy-lab/internal/service"
	"strategy-lab/pkg/breaker"
	"strategy-lab/pkg/cache"
	"strategy-lab/pkg/logger"
	"strategy-lab/pkg/metrics"
	"strategy-lab/pkg/middleware"
	"strategy-lab/pkg/postgres"
	"strategy-lab/pkg/telegram"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
)

type AppDependency struct {
	db        *postgres.DB
	cfg       *config.Config
	log       *logger.Logger
	validator *goValidator.Validate
	echo      *echo.Echo
	cache     cache.Cache
	metrics   *metrics.Registry
	breakers  *breaker.Manager
	notifier  service.Notifier
}

func NewAppDependency(ctx context.Context) (*AppDependency, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		return nil, err
	}

	db, err := postgres.NewDB(cfg.DB, log)
	if err != nil {
		log.Error("Failed to connect to database", logger.ErrorField(err))
		return nil, err
	}

	notifier, err := newNotifier(cfg, log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	metricsRegistry := metrics.New()

	e := echo.New()
	e.HideBanner = true
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(middleware.WithRequestContext(log, cfg.API.RequestTimeout))
	e.Use(middleware.NewRateLimiterMiddleware(cfg.API.RateLimitPerSecond, cfg.API.RateLimitBurst))

	return &AppDependency{
		cfg:       cfg,
		log:       log,
		validator: goValidator.New(),
		db:        db,
		echo:      e,
		cache:     cache.NewCache(cfg.Cache.DefaultExpiration, cfg.Cache.CleanupInterval),
		metrics:   metricsRegistry,
		breakers:  newBreakers(cfg, log, metricsRegistry),
		notifier:  notifier,
	}, nil
}

func newBreakers(cfg *config.Config, log *logger.Logger, metricsRegistry *metrics.Registry) *breaker.Manager {
	return breaker.NewManager(breaker.Settings{
		ConsecutiveFailures: cfg.Breaker.ConsecutiveFailures,
		OpenTimeout:         cfg.Breaker.OpenTimeout,
		HalfOpenRequests:    cfg.Breaker.HalfOpenRequests,
	}, log, metricsRegistry.OnBreakerStateChange)
}

// newNotifier returns nil when no bot token is configured; backtests then settle silently.
func newNotifier(cfg *config.Config, log *logger.Logger) (service.Notifier, error) {
	if cfg.Telegram.BotToken == "" {
		log.Info("Telegram notifications disabled")
		return nil, nil
	}
	bot, err := telegram.NewBot(cfg.Telegram)
	if err != nil {
		log.Error("Failed to create telegram bot", logger.ErrorField(err))
		return nil, err
	}
	return telegram.NewNotifier(log, bot, cfg.Telegram.ChatID), nil
}

func (d *AppDependency) Close() error {
	d.log.Info("Closing app dependency")
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}
