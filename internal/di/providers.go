package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"QuantSig/internal/domain/repository"
	domsvc "QuantSig/internal/domain/service"
	"QuantSig/internal/handler/api"
	mid "QuantSig/internal/middleware"
	internalrepo "QuantSig/internal/repository"
	icache "QuantSig/internal/service/cache"
	"QuantSig/internal/service/finnhub"
	"QuantSig/internal/services/backtest"
	"QuantSig/internal/services/features"
	"QuantSig/internal/services/model"
	"QuantSig/internal/services/news"
	"QuantSig/internal/services/strategy"
	"QuantSig/internal/usecase"
	pkgcache "QuantSig/pkg/cache"
	pkgch "QuantSig/pkg/clickhouse"
	"QuantSig/pkg/config"
	xhttp "QuantSig/pkg/http"
	pkgkafka "QuantSig/pkg/kafka"
	applogger "QuantSig/pkg/logger"
	"QuantSig/pkg/metrics"
	"QuantSig/pkg/queue"
	"QuantSig/pkg/server"
)

const defaultSignalsTopic = "signals.generated"

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	level, format := "info", "json"
	if cfg.Environment == "development" {
		level, format = "debug", "console"
	}
	l, err := applogger.New(&applogger.Config{Level: level, Format: format, Output: "stdout"})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideClickHouseClient creates a ClickHouse client and bootstraps the
// schema: raw ticks, the 1m bar materialization, signals, backtest results
// and stored news sentiment.
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
		"CREATE DATABASE IF NOT EXISTS quantsig",
		`CREATE TABLE IF NOT EXISTS quantsig.rt_ticks_raw (
            ts DateTime64(3), symbol LowCardinality(String), price Float64, volume Float64,
            source LowCardinality(String), event_id String, seq UInt64, org_id String
        ) ENGINE = MergeTree ORDER BY (symbol, ts)`,
		`CREATE TABLE IF NOT EXISTS quantsig.rt_bars_1m (
            bucket DateTime, symbol LowCardinality(String),
            open Float64, high Float64, low Float64, close Float64, volume Float64
        ) ENGINE = ReplacingMergeTree ORDER BY (symbol, bucket)`,
		`CREATE MATERIALIZED VIEW IF NOT EXISTS quantsig.rt_bars_1m_mv TO quantsig.rt_bars_1m AS
            SELECT toStartOfMinute(ts) AS bucket, symbol,
                   argMin(price, ts) AS open, max(price) AS high,
                   min(price) AS low, argMax(price, ts) AS close,
                   sum(volume) AS volume
            FROM quantsig.rt_ticks_raw GROUP BY bucket, symbol`,
		`CREATE TABLE IF NOT EXISTS quantsig.signals (
            id String, symbol LowCardinality(String), timeframe LowCardinality(String),
            direction LowCardinality(String), confidence Float64,
            entry_price Float64, target_price Float64, stop_price Float64,
            risk_reward Float64, expected_return_pct Float64, rationale String,
            created_at DateTime, expires_at DateTime, status LowCardinality(String),
            quick_win_rate Float64, quick_trades Int32, version UInt64
        ) ENGINE = ReplacingMergeTree(version) ORDER BY (symbol, timeframe, id)`,
		`CREATE TABLE IF NOT EXISTS quantsig.backtest_results (
            id String, symbol LowCardinality(String), strategy LowCardinality(String),
            timeframe LowCardinality(String), start DateTime, end DateTime,
            initial_capital Float64, final_capital Float64, total_trades Int32,
            total_return_pct Float64, sharpe Float64, max_drawdown_pct Float64,
            trades_json String, metrics_json String, created_at DateTime
        ) ENGINE = MergeTree ORDER BY (symbol, created_at)`,
		`CREATE TABLE IF NOT EXISTS quantsig.news_sentiment (
            symbol LowCardinality(String), headline String, sentiment Float64,
            source LowCardinality(String), published_at DateTime
        ) ENGINE = ReplacingMergeTree ORDER BY (symbol, published_at, headline)`,
	}); err != nil {
		_ = client.Close() // cannot log here (DI layer no logger); propagate error
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	return producer, nil
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideTickStorage creates ClickHouse storage for raw ticks.
func ProvideTickStorage(chClient *pkgch.Client, cfg *config.Config) repository.Storage {
	return internalrepo.NewClickHouseStorage(chClient.DB(), cfg.ClickHouse.Database+".rt_ticks_raw")
}

// ProvideTickPublisher creates the Kafka tick publisher.
func ProvideTickPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
}

// ProvideKafkaTicksHandler registers handler for ticks topic.
func ProvideKafkaTicksHandler(store repository.Storage, metrics repository.Metrics, cfg *config.Config) *usecase.KafkaTicksHandler {
	return usecase.NewKafkaTicksHandler(cfg.Kafka.Topic, store, metrics)
}

// ProvideFinnhubStream creates Finnhub WebSocket stream.
func ProvideFinnhubStream(cfg *config.Config, l *applogger.Logger) repository.MarketStream {
	return finnhub.New(
		cfg.Finnhub.APIKey,
		cfg.Finnhub.WebSocketURL,
		cfg.Finnhub.Symbols,
		cfg.Finnhub.ReconnectDelay,
		cfg.Finnhub.PingInterval,
		l,
	)
}

// ProvideTickProcessor creates the tick processor use case.
func ProvideTickProcessor(
	pub repository.Publisher,
	store repository.Storage,
	metrics repository.Metrics,
	cfg *config.Config,
) *usecase.TickProcessor {
	return usecase.NewTickProcessor(
		pub,
		store,
		metrics,
		cfg.Backend.Type,
		cfg.Backend.BatchSize,
		cfg.Backend.BatchTimeout,
	)
}

// ProvideTickCollector creates the tick collector use case.
func ProvideTickCollector(
	stream repository.MarketStream,
	processor *usecase.TickProcessor,
	metrics repository.Metrics,
) *usecase.TickCollector {
	// Build middleware pipeline between WebSocket and Kafka
	pipe := mid.NewRealtimePipeline(processor, metrics,
		mid.WithMaxRPS(50),
		mid.WithBufferSize(2000),
	)
	return usecase.NewTickCollector(stream, processor, metrics, pipe)
}

// ProvideBytesCache picks the cooldown/read cache backend: Redis when
// configured, otherwise in-process TTL.
func ProvideBytesCache(cfg *config.Config) icache.BytesCache {
	if cfg.Redis.Enabled {
		return icache.NewRedisCache(icache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	return icache.NewTTLCache()
}

// ProvideBarStore creates the ClickHouse bar store.
func ProvideBarStore(chClient *pkgch.Client, l *applogger.Logger) repository.BarStore {
	store := internalrepo.NewCHBarStore(chClient)
	store.SetLogger(l)
	return store
}

// ProvideSignalStore fronts the ClickHouse signal store with the byte cache
// for the cooldown hot path.
func ProvideSignalStore(chClient *pkgch.Client, bc icache.BytesCache, cfg *config.Config, l *applogger.Logger) repository.SignalStore {
	store := internalrepo.NewCHSignalStore(chClient)
	store.SetLogger(l)
	ttl := cfg.Engine.CooldownCacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return internalrepo.NewCachedSignalStore(store, bc, ttl)
}

// ProvideBacktestStore creates the ClickHouse backtest-result store.
func ProvideBacktestStore(chClient *pkgch.Client, l *applogger.Logger) repository.BacktestStore {
	store := internalrepo.NewCHBacktestStore(chClient)
	store.SetLogger(l)
	return store
}

// ProvideNewsProvider fronts the news-sentiment service with the ClickHouse
// store so sentiment keeps working through upstream outages.
func ProvideNewsProvider(cfg *config.Config, chClient *pkgch.Client, l *applogger.Logger) repository.NewsProvider {
	source := news.NewHTTPProvider(cfg.News.ServiceURL, cfg.News.Timeout)
	store := internalrepo.NewCHNewsStore(chClient, l)
	return internalrepo.NewStoredNewsProvider(source, store, l)
}

// ProvideIndicatorProvider computes indicator snapshots from stored bars.
// Snapshots memoize in process memory; with Redis enabled the memory
// layer fronts a shared Redis layer so replicas reuse each other's work.
func ProvideIndicatorProvider(bars repository.BarStore, cfg *config.Config, l *applogger.Logger) repository.IndicatorProvider {
	ttl := cfg.Engine.IndicatorTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	var store pkgcache.Service = pkgcache.NewMemoryCache()
	if cfg.Redis.Enabled {
		host, port := splitHostPort(cfg.Redis.Addr)
		rc, err := pkgcache.NewRedisCache(
			pkgcache.WithRedisHost(host),
			pkgcache.WithRedisPort(port),
			pkgcache.WithRedisPassword(cfg.Redis.Password),
			pkgcache.WithRedisDB(cfg.Redis.DB),
		)
		if err != nil {
			l.Warn("indicator cache falling back to memory", applogger.Error(err))
		} else {
			store = pkgcache.NewLayeredCache(rc)
		}
	}
	return features.NewLocalIndicatorProvider(bars, store, ttl)
}

func splitHostPort(addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 6379
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 6379
	}
	return host, port
}

// ProvideModelStore creates the per-symbol predictive model store.
func ProvideModelStore(bars repository.BarStore, cfg *config.Config, l *applogger.Logger) domsvc.ModelStore {
	return model.NewStore(bars, l, model.StoreConfig{HistoryDays: cfg.Model.HistoryDays})
}

// ProvideEvaluators assembles the closed strategy set.
func ProvideEvaluators(ms domsvc.ModelStore) []domsvc.Evaluator {
	return []domsvc.Evaluator{
		strategy.NewTechnical(),
		strategy.NewMomentum(),
		strategy.NewMeanReversion(),
		strategy.NewSentiment(),
		strategy.NewPredictive(ms),
	}
}

// ProvideEnsemble creates the weighted combiner with the configured gate.
func ProvideEnsemble(cfg *config.Config) *strategy.Ensemble {
	return strategy.NewEnsemble(nil, cfg.Engine.MinConfidence)
}

// ProvideSignalPublisher emits generated signals onto the event topic.
func ProvideSignalPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.SignalPublisher {
	topic := cfg.Engine.SignalsTopic
	if topic == "" {
		topic = defaultSignalsTopic
	}
	return internalrepo.NewKafkaSignalPublisher(producer, topic)
}

// ProvideLifecycle creates the signal lifecycle use case.
func ProvideLifecycle(signals repository.SignalStore, bars repository.BarStore, l *applogger.Logger) *usecase.LifecycleUseCase {
	return usecase.NewLifecycleUseCase(signals, bars, l)
}

// ProvideBacktestUseCase builds both simulation modes from config.
func ProvideBacktestUseCase(
	bars repository.BarStore,
	store repository.BacktestStore,
	evaluators []domsvc.Evaluator,
	ensemble *strategy.Ensemble,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.BacktestUseCase {
	base := backtest.Config{
		InitialCapital:     cfg.Backtest.InitialCapital,
		SlippageRate:       cfg.Backtest.SlippageRate,
		CommissionRate:     cfg.Backtest.CommissionRate,
		MaxPositionSizePct: cfg.Backtest.MaxPositionSizePct,
		RiskPerTrade:       cfg.Backtest.RiskPerTrade,
		MaxHolding:         cfg.Backtest.MaxHolding,
		RiskFreeRate:       cfg.Backtest.RiskFreeRate,
	}
	return usecase.NewBacktestUseCase(bars, store, evaluators, ensemble, base, base, l)
}

// ProvideSignalEngine wires the evaluation cycle.
func ProvideSignalEngine(
	bars repository.BarStore,
	indicators repository.IndicatorProvider,
	newsProvider repository.NewsProvider,
	lifecycle *usecase.LifecycleUseCase,
	backtests *usecase.BacktestUseCase,
	pub repository.SignalPublisher,
	evaluators []domsvc.Evaluator,
	ensemble *strategy.Ensemble,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.SignalEngine {
	return usecase.NewSignalEngine(
		bars, indicators, newsProvider, lifecycle, backtests, pub,
		evaluators, ensemble, l, cfg.Engine.EvaluatorTimeout,
	)
}

// ProvideJobQueue creates the Redis retrain queue; nil when Redis is off.
func ProvideJobQueue(cfg *config.Config, l *applogger.Logger) *queue.RedisQueue {
	if !cfg.Redis.Enabled {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return queue.NewRedisQueue(l, &queue.QueueConfig{
		Workers:    cfg.Queue.Workers,
		QueueSize:  cfg.Queue.QueueSize,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
	}, client, queue.ModeProducerConsumer)
}

// ProvideModelUseCase fronts the model store; with Redis off the retrain
// batch trains inline.
func ProvideModelUseCase(ms domsvc.ModelStore, q *queue.RedisQueue, cfg *config.Config, l *applogger.Logger) *usecase.ModelUseCase {
	var jobs queue.QueueService
	if q != nil {
		jobs = q
	}
	return usecase.NewModelUseCase(ms, jobs, cfg.Engine.Universe, l)
}

// ProvideScheduler builds the three-cadence orchestrator.
func ProvideScheduler(
	engine *usecase.SignalEngine,
	lifecycle *usecase.LifecycleUseCase,
	modelsUC *usecase.ModelUseCase,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.Scheduler {
	return usecase.NewScheduler(engine, lifecycle, modelsUC, usecase.SchedulerConfig{
		Universe:           cfg.Engine.Universe,
		RealtimeInterval:   cfg.Scheduler.RealtimeInterval,
		HourlyInterval:     cfg.Scheduler.HourlyInterval,
		DailyInterval:      cfg.Scheduler.DailyInterval,
		RealtimeTimeframes: toTimeframes(cfg.Scheduler.RealtimeTFs),
		HourlyTimeframes:   toTimeframes(cfg.Scheduler.HourlyTFs),
		DailyTimeframes:    toTimeframes(cfg.Scheduler.DailyTFs),
		UnitTimeout:        cfg.Scheduler.UnitTimeout,
		Workers:            cfg.Scheduler.Workers,
	}, l)
}

func toTimeframes(ss []string) []repository.Timeframe {
	out := make([]repository.Timeframe, 0, len(ss))
	for _, s := range ss {
		tf := repository.Timeframe(s)
		if repository.IsValidTimeframe(tf) {
			out = append(out, tf)
		}
	}
	return out
}

// ProvideBarsUseCase serves the read-only bar endpoint.
func ProvideBarsUseCase(bars repository.BarStore) *usecase.BarsUseCase {
	return usecase.NewBarsUseCase(bars)
}

// ProvideHTTPHandler registers the API surface.
func ProvideHTTPHandler(
	l *applogger.Logger,
	engine *usecase.SignalEngine,
	backtests *usecase.BacktestUseCase,
	modelsUC *usecase.ModelUseCase,
	lifecycle *usecase.LifecycleUseCase,
	bars *usecase.BarsUseCase,
	bc icache.BytesCache,
) xhttp.Handler {
	h := api.NewSignalsEchoHandler(l, engine, backtests, modelsUC, lifecycle, bars)
	h.SetCache(bc)
	return h
}

// ProvideApp creates the application server.
// aggregatedLogsTopic receives batched repeated error logs.
const aggregatedLogsTopic = "logs.aggregated"

// kafkaLogPublisher adapts the Kafka producer to the log collector's
// publisher interface.
type kafkaLogPublisher struct {
	p *pkgkafka.Producer
}

func (k kafkaLogPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return k.p.Publish(ctx, topic, nil, payload)
}

func ProvideApp(
	cfg *config.Config,
	collector *usecase.TickCollector,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaTicksHandler,
	chClient *pkgch.Client,
	scheduler *usecase.Scheduler,
	q *queue.RedisQueue,
	modelsUC *usecase.ModelUseCase,
	producer *pkgkafka.Producer,
	handler xhttp.Handler,
	l *applogger.Logger,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	if producer != nil {
		// Repeated error lines are aggregated and shipped to Kafka in
		// batches so a failure loop does not flood the log stream.
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          aggregatedLogsTopic,
			Publisher:      kafkaLogPublisher{p: producer},
		})
	}
	app := server.New(cfg, collector, consumer, kh, chClient)
	app.SetLogger(l)
	app.SetHTTPHandler(handler)
	app.SetScheduler(scheduler)
	if q != nil {
		q.RegisterJob(usecase.NewRetrainJob(modelsUC))
		app.SetJobQueue(q)
	}
	if collector != nil {
		app.TickProc = collector.Processor()
	}
	return app
}
