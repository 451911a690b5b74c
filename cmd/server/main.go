package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/iliyamo/live-event-sessions/internal/clock"
	"github.com/iliyamo/live-event-sessions/internal/config"
	"github.com/iliyamo/live-event-sessions/internal/database"
	"github.com/iliyamo/live-event-sessions/internal/handler"
	"github.com/iliyamo/live-event-sessions/internal/middleware"
	"github.com/iliyamo/live-event-sessions/internal/queue"
	"github.com/iliyamo/live-event-sessions/internal/repository"
	"github.com/iliyamo/live-event-sessions/internal/roomprovider"
	"github.com/iliyamo/live-event-sessions/internal/router"
	"github.com/iliyamo/live-event-sessions/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("env: .env not loaded: %v", err)
	}
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			log.Fatalf("migrate: %v", err)
		}
	}

	rdb := config.NewRedisClient(config.LoadRedisConfig()) // nil when unreachable
	if rdb != nil {
		defer rdb.Close()
	}

	roomCfg, err := config.LoadRoomProviderConfig()
	if err != nil {
		log.Fatalf("room provider: %v", err)
	}
	rooms := roomprovider.New(roomCfg)

	queueCfg := config.LoadQueueConfig()
	if queueCfg.ConsumerOn {
		go func() {
			if err := queue.StartConsumer(ctx, queueCfg); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("queue: consumer stopped: %v", err)
			}
		}()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	logger := log.New(os.Stderr, "", log.LstdFlags)
	clk := clock.NewSystem()
	opts := []service.Option{
		service.WithClock(clk),
		service.WithLogger(logger),
		service.WithMetrics(service.NewMetrics(reg)),
		service.WithPublisher(queue.NewPublisher(queueCfg)),
		service.WithRoomLimits(roomCfg.EmptyTimeout, roomCfg.MaxParticipants),
	}

	events := repository.NewEventRepo(db)
	sessions := repository.NewSessionRepo(db)
	perms := repository.NewPermissionRepo(db)
	access := service.NewAccessChecker(repository.NewTicketRepo(db))

	manager := service.NewSessionManager(events, sessions, perms, rooms, opts...)
	issuer := service.NewTokenIssuer(events, sessions, perms, access, rooms, opts...)
	cache := middleware.NewResponseCache(config.LoadCacheConfig(), rdb)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			log.Printf("http: %s %s %d %s", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))

	checks := map[string]handler.Check{"mysql": db.PingContext}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	router.RegisterRoutes(e, checks, reg)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewTokenRepo(db), clk), cfg.JWTSecret)
	router.RegisterLive(e, handler.NewSessionHandler(manager, issuer, cache), handler.NewEventHandler(manager), router.LiveDeps{
		JWTSecret: cfg.JWTSecret,
		Cache:     cache,
		RateLimit: config.LoadRateLimitConfig(),
		Redis:     rdb,
	})

	addr := ":" + cfg.Port
	go func() {
		log.Printf("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
