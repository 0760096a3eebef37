package di

import (
	"context"
	"fmt"
	"time"

	drepo "NiftyPulse/internal/domain/repository"
	"NiftyPulse/internal/handler/api"
	mid "NiftyPulse/internal/middleware"
	internalrepo "NiftyPulse/internal/repository"
	"NiftyPulse/internal/service/cache"
	"NiftyPulse/internal/service/calendar"
	"NiftyPulse/internal/service/constituents"
	"NiftyPulse/internal/service/export"
	"NiftyPulse/internal/service/kite"
	"NiftyPulse/internal/service/ratelimit"
	"NiftyPulse/internal/service/validation"
	"NiftyPulse/internal/usecase"
	pkgcache "NiftyPulse/pkg/cache"
	pkgch "NiftyPulse/pkg/clickhouse"
	"NiftyPulse/pkg/config"
	xhttp "NiftyPulse/pkg/http"
	pkgkafka "NiftyPulse/pkg/kafka"
	applogger "NiftyPulse/pkg/logger"
	"NiftyPulse/pkg/metrics"
	"NiftyPulse/pkg/queue"
	"NiftyPulse/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	format := "console"
	if cfg.Environment == "production" {
		format = "json"
	}
	return applogger.New(&applogger.Config{Level: "info", Format: format, Output: "stdout"})
}

// ProvideClickHouseClient creates a ClickHouse client and ensures the
// database exists.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + cfg.ClickHouse.Database,
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideBarStorage creates the ClickHouse bar store and its table.
func ProvideBarStorage(chClient *pkgch.Client, cfg *config.Config) (drepo.BarStorage, error) {
	store := internalrepo.NewClickHouseBarStore(chClient.DB(), cfg.ClickHouse.Database+"."+cfg.Store.BarsTable)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("bar store init: %w", err)
	}
	return store, nil
}

// ProvideQualityLog creates the ClickHouse quality log and its table.
func ProvideQualityLog(chClient *pkgch.Client, cfg *config.Config) (drepo.QualityLog, error) {
	qlog := internalrepo.NewClickHouseQualityLog(chClient.DB(), cfg.ClickHouse.Database+"."+cfg.Store.QualityTable)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := qlog.Init(ctx); err != nil {
		return nil, fmt.Errorf("quality log init: %w", err)
	}
	return qlog, nil
}

// ProvideKafkaProducer creates a Kafka producer when Kafka is enabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideKafkaConsumer creates a Kafka consumer for the bar ingest topic.
// Returns nil when Kafka is disabled or no ingest topic is configured.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || cfg.Kafka.IngestTopic == "" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.GroupID),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaBarsHandler registers the handler for the bar ingest topic.
func ProvideKafkaBarsHandler(manager *usecase.Manager, m drepo.Metrics, cfg *config.Config) *usecase.KafkaBarsHandler {
	return usecase.NewKafkaBarsHandler(cfg.Kafka.IngestTopic, manager, m)
}

// ProvideQualityPublisher creates the Kafka quality report publisher. Returns
// nil when Kafka is disabled; the manager skips publishing then.
func ProvideQualityPublisher(producer *pkgkafka.Producer, cfg *config.Config) drepo.QualityPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaQualityPublisher(producer, cfg.Kafka.Topic)
}

// ProvideRedisCache creates the Redis cache client when Redis is enabled.
func ProvideRedisCache(cfg *config.Config) (*pkgcache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(cfg.Redis.Host),
		pkgcache.WithRedisPort(cfg.Redis.Port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideLiveQuoteStore creates the live quote store over a layered
// memory/Redis cache. Returns nil when Redis is disabled.
func ProvideLiveQuoteStore(rc *pkgcache.RedisCache) drepo.LiveQuoteStore {
	if rc == nil {
		return nil
	}
	layered := pkgcache.NewLayeredCache(rc, pkgcache.WithLayeredMemorySize(500))
	return internalrepo.NewRedisLiveQuoteStore(layered)
}

// ProvideExportQueue creates the Redis-backed export job queue. Returns nil
// when Redis is disabled; async exports are rejected then.
func ProvideExportQueue(
	rc *pkgcache.RedisCache,
	manager *usecase.Manager,
	exporter *export.Service,
	log *applogger.Logger,
) *queue.RedisQueue {
	if rc == nil {
		return nil
	}
	q := queue.NewRedisQueue(log, &queue.QueueConfig{
		Workers:    2,
		RetryLimit: 3,
		RetryDelay: 30 * time.Second,
	}, rc.Client(), queue.ModeProducerConsumer)
	q.RegisterJob(usecase.NewExportJob(manager, exporter, log))
	return q
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() drepo.Metrics {
	return metrics.New()
}

// ProvideCalendar creates the trading calendar from the validation config.
func ProvideCalendar(cfg *config.Config) (*calendar.Calendar, error) {
	var holidays drepo.HolidayProvider
	if *cfg.Validation.CheckHolidays {
		holidays = calendar.NewIndiaHolidays()
	}
	return calendar.New(holidays, cfg.Validation.Country, cfg.Validation.TradingStart, cfg.Validation.TradingEnd)
}

// ProvideValidator creates the quality validator.
func ProvideValidator(cal *calendar.Calendar, cfg *config.Config) *validation.Validator {
	rules := validation.DefaultRules()
	rules.PriceMin = cfg.Validation.PriceMin
	rules.PriceMax = cfg.Validation.PriceMax
	rules.VolumeMin = cfg.Validation.VolumeMin
	rules.OHLCLogic = *cfg.Validation.OHLCLogic
	rules.TimeSequence = *cfg.Validation.TimeSequence
	rules.DuplicateCheck = *cfg.Validation.DuplicateCheck
	rules.CheckHolidays = *cfg.Validation.CheckHolidays
	rules.QualityThreshold = cfg.Validation.QualityThreshold
	rules.TradingStart = cfg.Validation.TradingStart
	rules.TradingEnd = cfg.Validation.TradingEnd
	return validation.New(rules, cal)
}

// ProvideBarCache creates the in-memory read cache.
func ProvideBarCache(cfg *config.Config) *cache.BarCache {
	return cache.NewBarCache(
		cache.WithMaxAge(cfg.Cache.MaxAge),
		cache.WithCapacity(cfg.Cache.Capacity),
		cache.WithSweepInterval(cfg.Cache.SweepInterval),
	)
}

// ProvidePersister creates the batch persister wired to invalidate cached
// reads for symbols it writes.
func ProvidePersister(
	storage drepo.BarStorage,
	m drepo.Metrics,
	log *applogger.Logger,
	barCache *cache.BarCache,
	cfg *config.Config,
) *usecase.BatchPersister {
	return usecase.NewBatchPersister(storage, m, log,
		usecase.WithBatchSize(cfg.Store.BatchSize),
		usecase.WithInvalidator(func(symbol string) { barCache.Invalidate(symbol) }),
	)
}

// ProvideKiteClient creates the Kite Connect REST client. Returns nil when
// no API key is configured; historical ingestion is unavailable then.
func ProvideKiteClient(cfg *config.Config, log *applogger.Logger) *kite.Client {
	if cfg.Kite.APIKey == "" {
		return nil
	}
	return kite.New(
		kite.Credentials{APIKey: cfg.Kite.APIKey, AccessToken: cfg.Kite.AccessToken},
		cfg.Kite.BaseURL,
		xhttp.NewClient(xhttp.WithTimeout(30*time.Second)),
		ratelimit.New(),
		log,
	)
}

// ProvideBarSource exposes the Kite client as the historical bar source.
func ProvideBarSource(client *kite.Client) drepo.BarSource {
	if client == nil {
		return nil
	}
	return client
}

// ProvideQuoteStream creates the Kite WebSocket ticker when streaming is
// enabled.
func ProvideQuoteStream(cfg *config.Config, client *kite.Client, log *applogger.Logger) drepo.QuoteStream {
	if !cfg.Kite.StreamEnabled || client == nil {
		return nil
	}
	return kite.NewTicker(
		kite.Credentials{APIKey: cfg.Kite.APIKey, AccessToken: cfg.Kite.AccessToken},
		cfg.Kite.TickerURL,
		cfg.Kite.Symbols,
		client,
		cfg.Kite.ReconnectDelay,
		cfg.Kite.PingInterval,
		log,
	)
}

// ProvideLiveCollector creates the live quote collector when both the stream
// and the quote store are available.
func ProvideLiveCollector(
	stream drepo.QuoteStream,
	store drepo.LiveQuoteStore,
	m drepo.Metrics,
	log *applogger.Logger,
) *usecase.LiveCollector {
	if stream == nil || store == nil {
		return nil
	}
	// Buffered pipeline between WebSocket and Redis
	pipe := mid.NewQuotePipeline(usecase.NewQuoteSink(store), m,
		mid.WithMaxRPS(50),
		mid.WithBufferSize(2000),
	)
	return usecase.NewLiveCollector(stream, store, m, log, pipe)
}

// ProvideConstituents returns the tracked index membership table.
func ProvideConstituents() *constituents.Table {
	return constituents.Nifty50()
}

// ProvideManager creates the bars manager use case.
func ProvideManager(
	validator *validation.Validator,
	persister *usecase.BatchPersister,
	storage drepo.BarStorage,
	barCache *cache.BarCache,
	source drepo.BarSource,
	qlog drepo.QualityLog,
	publisher drepo.QualityPublisher,
	liveStore drepo.LiveQuoteStore,
	table *constituents.Table,
	m drepo.Metrics,
	log *applogger.Logger,
) *usecase.Manager {
	return usecase.NewManager(validator, persister, storage, barCache, source, qlog, publisher, liveStore, table, m, log)
}

// ProvideExportService creates the file export service.
func ProvideExportService(cfg *config.Config, log *applogger.Logger) *export.Service {
	return export.NewService(cfg.Export.Dir, log)
}

// ProvideHandler creates the HTTP API handler.
func ProvideHandler(log *applogger.Logger, manager *usecase.Manager, exporter *export.Service, q *queue.RedisQueue) *api.BarsEchoHandler {
	var jobs queue.QueueService
	if q != nil {
		jobs = q
	}
	return api.NewBarsEchoHandler(log, manager, exporter, jobs)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	manager *usecase.Manager,
	collector *usecase.LiveCollector,
	handler *api.BarsEchoHandler,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaBarsHandler,
	jobQueue *queue.RedisQueue,
	barCache *cache.BarCache,
	chClient *pkgch.Client,
	log *applogger.Logger,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	return server.New(cfg, manager, collector, handler, consumer, kh, jobQueue, barCache, chClient, log)
}
