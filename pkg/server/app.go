package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"NiftyPulse/internal/handler/api"
	icache "NiftyPulse/internal/service/cache"
	"NiftyPulse/internal/usecase"
	pkgch "NiftyPulse/pkg/clickhouse"
	"NiftyPulse/pkg/config"
	xhttp "NiftyPulse/pkg/http"
	pkgkafka "NiftyPulse/pkg/kafka"
	applogger "NiftyPulse/pkg/logger"
	"NiftyPulse/pkg/queue"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	manager    *usecase.Manager
	collector  *usecase.LiveCollector
	handler    *api.BarsEchoHandler
	consumer   *pkgkafka.Consumer
	kh         pkgkafka.MessageHandler
	jobQueue   *queue.RedisQueue
	barCache   *icache.BarCache
	chClient   *pkgch.Client
	log        *applogger.Logger
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies. The collector and
// consumer may be nil when live streaming or Kafka ingest is not configured.
func New(
	cfg *config.Config,
	manager *usecase.Manager,
	collector *usecase.LiveCollector,
	handler *api.BarsEchoHandler,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	jobQueue *queue.RedisQueue,
	barCache *icache.BarCache,
	chClient *pkgch.Client,
	log *applogger.Logger,
) *App {
	return &App{
		cfg:       cfg,
		manager:   manager,
		collector: collector,
		handler:   handler,
		consumer:  consumer,
		kh:        kh,
		jobQueue:  jobQueue,
		barCache:  barCache,
		chClient:  chClient,
		log:       log,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Background sweeper for expired cache entries
	a.barCache.Start()

	if a.collector != nil {
		if err := a.collector.Start(ctx); err != nil {
			a.log.Error("live collector start error", applogger.Error(err))
		} else {
			a.log.Info("live collector started", applogger.Strings("symbols", a.cfg.Kite.Symbols))
		}
	}

	// Start export job queue if configured
	if a.jobQueue != nil {
		if err := a.jobQueue.Start(); err != nil {
			a.log.Error("export queue start error", applogger.Error(err))
		} else {
			a.jobQueue.StartRetryProcessor()
			a.log.Info("export queue started")
		}
	}

	// Start consumer if configured
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.log.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.log.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)
	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	if a.collector != nil {
		if err := a.collector.Shutdown(ctx); err != nil {
			a.log.Warn("live collector stop error", applogger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.jobQueue != nil {
		if err := a.jobQueue.Stop(ctx); err != nil {
			a.log.Warn("export queue stop error", applogger.Error(err))
		}
	}

	a.barCache.Stop()
	a.manager.Close()

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
