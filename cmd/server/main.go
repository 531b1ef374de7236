package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"

	"multfilm/searchbot/internal/alert"
	apihttp "multfilm/searchbot/internal/api/http"
	"multfilm/searchbot/internal/app"
	"multfilm/searchbot/internal/bot"
	"multfilm/searchbot/internal/metrics"
	mongorepo "multfilm/searchbot/internal/repository/mongo"
	"multfilm/searchbot/internal/search"
	"multfilm/searchbot/internal/storage/memory"
	"multfilm/searchbot/internal/telegram"
	"multfilm/searchbot/internal/telemetry"
	"multfilm/searchbot/internal/translate"
)

// catalog is everything the bot and the API need from film storage.
type catalog interface {
	search.CatalogStore
	bot.FilmStore
	apihttp.FilmCatalog
}

func main() {
	cfg := app.LoadConfig()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics.Register(prometheus.DefaultRegisterer)

	if cfg.TranslatorConfig != "" {
		chain, err := app.LoadTranslatorChain(cfg.TranslatorConfig)
		if err != nil {
			logger.Error("translator config invalid", slog.String("error", err.Error()))
			os.Exit(1)
		}
		chain.Apply(&cfg)
	}

	shutdownTracer, err := telemetry.Init(context.Background(), telemetry.ServiceName, logger)
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	logger.Info("configuration loaded",
		slog.String("service", telemetry.ServiceName),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("botMode", cfg.BotMode),
		slog.Bool("hasBotToken", cfg.BotToken != ""),
		slog.Bool("hasMongo", cfg.MongoURI != ""),
		slog.Bool("hasRedis", cfg.RedisURL != ""),
		slog.Int64("storageChannelID", cfg.StorageChannelID),
		slog.Int("adminChats", len(cfg.AdminChatIDs)),
		slog.Int("translators", len(cfg.Translators)),
		slog.Bool("translateParallel", cfg.TranslateParallel),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := buildStore(rootCtx, cfg, logger)
	defer store.close()
	films := store.films

	serviceOpts := []search.ServiceOption{
		search.WithLogger(logger),
		search.WithSearchLogger(store.searchLog),
		search.WithResultLimit(cfg.SearchResultLimit),
		search.WithHighRelevance(cfg.SearchHighRelevance),
	}
	var gateway *translate.Gateway
	if providers := buildTranslators(cfg, logger); len(providers) > 0 {
		gatewayOpts := []translate.GatewayOption{
			translate.WithLogger(logger),
			translate.WithTimeout(cfg.TranslateTimeout),
			translate.WithParallel(cfg.TranslateParallel),
		}
		if cfg.TranslateRatePerSec > 0 {
			gatewayOpts = append(gatewayOpts, translate.WithProviderRateLimit(cfg.TranslateRatePerSec, 1))
		}
		gateway = translate.NewGateway(providers, gatewayOpts...)
		serviceOpts = append(serviceOpts, search.WithTranslator(gateway))
		logger.Info("translation providers configured", slog.Any("providers", gateway.Providers()))
	} else {
		logger.Warn("no translation providers configured, translation stage disabled")
	}
	searchService := search.NewService(films, serviceOpts...)

	serverOpts := []apihttp.ServerOption{apihttp.WithLogger(logger), apihttp.WithStories(store.stories)}
	if gateway != nil {
		serverOpts = append(serverOpts, apihttp.WithTranslatorHealth(gateway))
	}

	var poller *telegram.Poller
	if cfg.BotToken != "" {
		tg, err := telegram.NewClient(cfg.BotToken,
			telegram.WithHTTPClient(newTracedClient(70*time.Second)),
			telegram.WithLogger(logger),
		)
		if err != nil {
			logger.Error("telegram client init failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		filmBot := bot.New(tg, searchService, films,
			bot.WithLogger(logger),
			bot.WithAlerts(buildAlerts(tg, cfg, logger)),
			bot.WithThrottle(buildThrottle(rootCtx, cfg, logger)),
			bot.WithStorageChannel(cfg.StorageChannelID),
		)
		serverOpts = append(serverOpts, apihttp.WithTelegram(filmBot, tg, cfg.WebhookURL, cfg.WebhookSecret))

		switch cfg.BotMode {
		case app.BotModePolling:
			poller = telegram.NewPoller(tg, filmBot, telegram.WithPollerLogger(logger))
		default:
			registerWebhook(rootCtx, tg, cfg, logger)
		}
	} else {
		logger.Warn("BOT_TOKEN not set, telegram bot disabled")
	}

	handler := apihttp.NewServer(searchService, films, serverOpts...).Handler()
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Webhook updates are handled inline and may wait on translators.
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	if poller != nil {
		go func() {
			if err := poller.Run(rootCtx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- err
			}
		}()
	}

	logger.Info("film search bot started", slog.String("addr", cfg.HTTPAddr))

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", slog.String("error", err.Error()))
	}
	searchService.Wait(shutdownCtx)
	logger.Info("film search bot stopped")
}

// storage groups the persistence backends of one process.
type storage struct {
	films     catalog
	searchLog search.SearchLogger
	stories   apihttp.StoryCatalog
	close     func()
}

// buildStore connects to MongoDB, or falls back to in-memory stores when
// MONGO_URI is empty.
func buildStore(ctx context.Context, cfg app.Config, logger *slog.Logger) storage {
	if strings.TrimSpace(cfg.MongoURI) == "" {
		logger.Warn("MONGO_URI not set, using in-memory catalog")
		films := memory.NewCatalog()
		return storage{films: films, searchLog: films, stories: memory.NewStoryStore(), close: func() {}}
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongorepo.Connect(connectCtx, cfg.MongoURI, options.Client().SetMonitor(otelmongo.NewMonitor()))
	if err != nil {
		logger.Error("mongo connect failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		logger.Error("mongo ping failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	films := mongorepo.NewFilmRepository(client, cfg.MongoDB)
	searches := mongorepo.NewSearchLogRepository(client, cfg.MongoDB)
	if err := films.EnsureIndexes(connectCtx); err != nil {
		logger.Warn("mongo ensure indexes failed", slog.String("error", err.Error()))
	}
	if err := searches.EnsureIndexes(connectCtx); err != nil {
		logger.Warn("mongo ensure search log indexes failed", slog.String("error", err.Error()))
	}
	stories := mongorepo.NewStoryRepository(client, cfg.MongoDB)
	if err := stories.EnsureIndexes(connectCtx); err != nil {
		logger.Warn("mongo ensure story indexes failed", slog.String("error", err.Error()))
	}
	logger.Info("mongo connected", slog.String("database", cfg.MongoDB))

	return storage{
		films:     films,
		searchLog: searches,
		stories:   stories,
		close: func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(disconnectCtx)
		},
	}
}

// buildThrottle prefers a Redis window shared by all replicas and keeps the
// in-memory limiter as its fallback.
func buildThrottle(ctx context.Context, cfg app.Config, logger *slog.Logger) bot.Throttle {
	local := bot.NewMemoryThrottle(cfg.ChatRatePerMin)
	redisURL := strings.TrimSpace(cfg.RedisURL)
	if redisURL == "" {
		return local
	}
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Warn("invalid redis url, using in-memory throttle", slog.String("error", err.Error()))
		return local
	}
	throttle := bot.NewRedisThrottle(redis.NewClient(redisOpts), cfg.ChatRatePerMin, time.Minute, local, logger)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := throttle.Ping(pingCtx); err != nil {
		logger.Warn("redis not reachable, using in-memory throttle", slog.String("error", err.Error()))
		return local
	}
	logger.Info("redis connected", slog.String("addr", redisOpts.Addr))
	return throttle
}

func buildAlerts(sender alert.Sender, cfg app.Config, logger *slog.Logger) alert.Sink {
	if len(cfg.AdminChatIDs) == 0 {
		return alert.LogSink{Logger: logger}
	}
	return alert.NewTelegramSink(sender, cfg.AdminChatIDs, logger)
}

func registerWebhook(ctx context.Context, tg *telegram.Client, cfg app.Config, logger *slog.Logger) {
	if cfg.WebhookURL == "" {
		logger.Warn("WEBHOOK_URL not set, webhook must be registered via POST /telegram/set-webhook")
		return
	}
	callCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := tg.SetWebhook(callCtx, cfg.WebhookURL, cfg.WebhookSecret); err != nil {
		logger.Warn("set webhook failed", slog.String("error", err.Error()))
		return
	}
	logger.Info("telegram webhook registered", slog.String("url", cfg.WebhookURL))
}

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	level := parseLogLevel(levelRaw)
	handlerOpts := &slog.HandlerOptions{Level: level}
	format := strings.ToLower(strings.TrimSpace(formatRaw))
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, handlerOpts))
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
