package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/crosspair/spreadbot/internal/alert"
	s3blob "github.com/crosspair/spreadbot/internal/blob/s3"
	"github.com/crosspair/spreadbot/internal/cache/redis"
	"github.com/crosspair/spreadbot/internal/config"
	"github.com/crosspair/spreadbot/internal/domain"
	"github.com/crosspair/spreadbot/internal/feed"
	"github.com/crosspair/spreadbot/internal/notify"
	"github.com/crosspair/spreadbot/internal/platform/binance"
	"github.com/crosspair/spreadbot/internal/platform/coingecko"
	"github.com/crosspair/spreadbot/internal/platform/extended"
	"github.com/crosspair/spreadbot/internal/platform/variational"
	"github.com/crosspair/spreadbot/internal/server"
	"github.com/crosspair/spreadbot/internal/server/handler"
	"github.com/crosspair/spreadbot/internal/store/postgres"
	"github.com/crosspair/spreadbot/internal/strategy"
)

// streamSymbols are the Binance trading pairs the push feed subscribes to.
var streamSymbols = []string{"BTCUSDT", "ETHUSDT"}

// Dependencies bundles everything the run loop needs. It is constructed by
// Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Orchestrator *strategy.Orchestrator

	// Server is nil when the HTTP API is disabled.
	Server *server.Server

	// Archiver is nil when the S3 archive is disabled; its Run loop is
	// driven by the app when present.
	Archiver *s3blob.Archiver
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var health []domain.HealthChecker

	// --- Redis (optional): price cache + signal bus ---
	var priceCache domain.PriceCache
	var signalBus domain.SignalBus
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		priceCache = redis.NewPriceCache(redisClient, cfg.Redis.TTL.Duration)
		signalBus = redis.NewSignalBus(redisClient, cfg.Redis.StreamMaxLen)
		health = append(health, redisClient)
	}

	// --- Postgres (optional): audit store ---
	var auditStore domain.AuditStore
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			MaxConns: cfg.Postgres.MaxConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}

		auditStore = postgres.NewAuditStore(pgClient.Pool())
		health = append(health, pgClient)
	}

	// --- S3 (optional): alert archiver ---
	var archiver *s3blob.Archiver
	var archiverHook alert.Archiver
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}

		archiver = s3blob.NewArchiver(
			s3blob.NewWriter(s3Client),
			cfg.S3.FlushInterval.Duration,
			cfg.S3.MaxBufferLines,
			logger,
		)
		archiverHook = archiver
		health = append(health, s3Client)
	}

	// --- Venue clients ---
	var venues []alert.VenueClient
	for _, name := range cfg.Venues.Enabled {
		switch name {
		case "extended":
			c := extended.NewClient(cfg.Venues.ExtendedURL, logger)
			venues = append(venues, c)
			health = append(health, c)
		case "variational":
			c := variational.NewClient(cfg.Venues.VariationalURL, logger)
			venues = append(venues, c)
			health = append(health, c)
		}
	}

	// --- Notification sinks ---
	var senders []notify.Sender
	if cfg.Notify.TelegramEnabled {
		s := notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID)
		senders = append(senders, s)
		health = append(health, s)
	}
	if cfg.Notify.DiscordEnabled {
		s := notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL, cfg.Notify.DiscordRoleID)
		senders = append(senders, s)
		health = append(health, s)
	}

	// --- Feeds ---
	stream := binance.NewStreamClient(
		cfg.Feed.BinanceWSURL,
		streamSymbols,
		cfg.Feed.ReconnectBase.Duration,
		cfg.Feed.ReconnectMax.Duration,
		logger,
	)
	rest := binance.NewRESTClient(cfg.Feed.BinanceRESTURL)
	pushFeed := feed.NewBinanceFeed(stream, rest, logger)

	gecko := coingecko.NewClient(cfg.Feed.CoinGeckoURL)
	pullFeed := feed.NewCoinGeckoFeed(
		gecko,
		cfg.Feed.PollInterval.Duration,
		cfg.Strategy.EntryThresholdPct,
		cfg.Strategy.Debug,
		logger,
	)
	health = append(health, gecko)

	// --- Strategy ---
	tracker := strategy.NewTracker(strategy.TrackerConfig{
		EntryThresholdPct: cfg.Strategy.EntryThresholdPct,
		MaxSpreadPct:      cfg.Strategy.MaxSpreadPct,
		CloseThresholdPct: cfg.Strategy.CloseThresholdPct,
		PositionSizeUSD:   cfg.Strategy.PositionSizeUSD,
		TakeProfitUSD:     cfg.Strategy.TakeProfitUSD,
		Cooldown:          cfg.Strategy.Cooldown.Duration,
	}, logger)

	dispatcher := alert.NewDispatcher(venues, senders, auditStore, signalBus, archiverHook, logger)

	orchestrator := strategy.NewOrchestrator(pushFeed, pullFeed, tracker, dispatcher, priceCache, health, logger)

	deps := &Dependencies{
		Orchestrator: orchestrator,
		Archiver:     archiver,
	}

	// --- HTTP server (optional) ---
	if cfg.Server.Enabled {
		deps.Server = server.NewServer(
			server.Config{
				Listen:      cfg.Server.Listen,
				CORSOrigins: cfg.Server.CORSOrigins,
			},
			server.Handlers{
				Health:   handler.NewHealthHandler(health),
				Status:   handler.NewStatusHandler(orchestrator),
				Position: handler.NewPositionHandler(tracker),
			},
			logger,
		)
	}

	return deps, cleanup, nil
}
