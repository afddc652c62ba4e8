package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"matchpoint/backend/internal/config"
	"matchpoint/backend/internal/directory"
	"matchpoint/backend/internal/events"
	"matchpoint/backend/internal/service/availability"
	"matchpoint/backend/internal/service/waitlist"
	"matchpoint/backend/internal/source"
	"matchpoint/backend/internal/source/external"
	"matchpoint/backend/internal/store/postgres"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With(
		slog.String("service", "matchpoint-server"),
	)
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)})).With(
		slog.String("service", "matchpoint-server"),
	)
	slog.SetDefault(log)

	log.Info("starting", slog.String("log_level", cfg.LogLevel), slog.Duration("slot_unit", cfg.SlotUnit))

	log.Info("connecting to database", databaseLogArgs(cfg.DatabaseURL)...)
	db, err := postgres.Open(cfg.DatabaseURL, postgres.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	})
	if err != nil {
		args := append([]any{slog.Any("err", err)}, databaseLogArgs(cfg.DatabaseURL)...)
		log.Error("database connection failed", args...)
		os.Exit(1)
	}
	defer func() {
		if err := postgres.Close(db); err != nil {
			log.Warn("database close failed", slog.Any("err", err))
		}
	}()

	bookingRepo := postgres.NewBookingRepo(db)
	waitlistRepo := postgres.NewWaitlistRepo(db)
	dir := postgres.NewDirectoryRepo(db)

	local := source.NewLocalSource(bookingRepo)

	var externalSource source.Source = noExternal{}
	if cfg.ExternalBaseURL != "" {
		client := external.NewClient(cfg.ExternalBaseURL, external.StaticCredential(cfg.ExternalToken), cfg.ExternalFetchTimeout)
		externalSource = external.NewAdapter(client, external.AdapterConfig{
			CourtMap:    cfg.ExternalCourtMap,
			PaddingDays: cfg.ExternalPaddingDays,
			CacheTTL:    cfg.ExternalCacheTTL,
		}, log)
		log.Info("external source enabled", slog.String("base_url", cfg.ExternalBaseURL))
	} else {
		log.Info("external source disabled; reconciling against local bookings only")
	}

	engine := availability.NewEngine(local, externalSource, dir, cfg.SlotUnit, log)

	bus := events.NewBus()

	if cfg.AMQPURL != "" {
		publisher, err := events.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.Error("amqp connect failed", slog.Any("err", err))
			os.Exit(1)
		}
		defer func() {
			if err := publisher.Close(); err != nil {
				log.Warn("amqp close failed", slog.Any("err", err))
			}
		}()
		publisher.Attach(bus, log)
		log.Info("amqp publisher attached", slog.String("exchange", cfg.AMQPExchange))
	}

	waitlistSvc := waitlist.NewService(waitlistRepo, bus, log)
	bus.Subscribe(func(ctx context.Context, ev events.Event) {
		if released, ok := ev.(events.Released); ok {
			waitlistSvc.HandleReleased(ctx, released)
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go snapshotLoop(ctx, engine, dir, log)

	log.Info("engine ready")
	<-ctx.Done()
	log.Info("shutdown signal received", slog.Duration("timeout", cfg.ShutdownTimeout))
}

// snapshotLoop periodically reconciles the coming day's availability across
// every known resource. It warms the external cache and surfaces provider
// outages in the logs before a booking attempt runs into them.
func snapshotLoop(ctx context.Context, engine *availability.Engine, dir directory.Directory, log *slog.Logger) {
	ticker := time.NewTicker(15 * time.Minute)
	defer ticker.Stop()

	for {
		resources, err := dir.ListResources(ctx, "")
		if err != nil {
			log.Warn("resource listing failed", slog.Any("err", err))
		} else if len(resources) > 0 {
			ids := make([]uuid.UUID, 0, len(resources))
			for _, r := range resources {
				ids = append(ids, r.ID)
			}
			windowStart := time.Now().UTC().Truncate(24 * time.Hour)
			windowEnd := windowStart.AddDate(0, 0, 1)
			slots, err := engine.ComputeFreeSlots(ctx, ids, windowStart, windowEnd)
			if err != nil {
				log.Warn("availability snapshot failed", slog.Any("err", err))
			} else {
				log.Info("availability snapshot",
					slog.Int("resources_total", len(resources)),
					slog.Int("resources_with_free_slots", len(slots)),
				)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// noExternal stands in when no provider is configured: nothing external
// ever occupies a slot.
type noExternal struct{}

func (noExternal) Occupied(context.Context, uuid.UUID, time.Time, time.Time) ([]source.OccupiedInterval, error) {
	return nil, nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

func databaseLogArgs(databaseURL string) []any {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return []any{slog.String("db_url", "invalid")}
	}
	name := strings.TrimPrefix(u.Path, "/")
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "default"
	}
	if host == "" {
		host = "unknown"
	}
	if name == "" {
		name = "unknown"
	}
	return []any{
		slog.String("db_host", host),
		slog.String("db_port", port),
		slog.String("db_name", name),
	}
}
