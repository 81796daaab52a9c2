package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"wastelog/backend/libs/db"
	libredis "wastelog/backend/libs/redis"
	"wastelog/backend/services/dashboard-service/internal/auth"
	"wastelog/backend/services/dashboard-service/internal/cache"
	"wastelog/backend/services/dashboard-service/internal/calendar"
	"wastelog/backend/services/dashboard-service/internal/clients"
	"wastelog/backend/services/dashboard-service/internal/config"
	httpserver "wastelog/backend/services/dashboard-service/internal/http"
	"wastelog/backend/services/dashboard-service/internal/http/handlers"
	"wastelog/backend/services/dashboard-service/internal/http/middleware"
	"wastelog/backend/services/dashboard-service/internal/history"
	"wastelog/backend/services/dashboard-service/internal/measure"
	"wastelog/backend/services/dashboard-service/internal/realtime"
	"wastelog/backend/services/dashboard-service/internal/repository"
)

const startupTimeout = 10 * time.Second

// App wires dashboard service dependencies.
type App struct {
	server    *httpserver.Server
	refresher *calendar.Refresher
	upstream  *realtime.Upstream
	logger    *zap.Logger

	sockets context.Context
	stop    context.CancelFunc

	redis *goredis.Client
	db    *sql.DB
}

// New constructs application graph.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	authenticator, err := auth.NewAuthenticator(cfg.Auth.Username, cfg.Auth.PasswordHash)
	if err != nil {
		return nil, err
	}
	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	a := &App{logger: logger}
	a.sockets, a.stop = context.WithCancel(context.Background())

	startCtx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	opts := calendar.Options{
		DeviceID: cfg.Device.ID,
		Interval: cfg.Calendar.RefreshInterval,
	}
	var archive handlers.VisitArchive

	if cfg.Redis.Addr != "" {
		a.redis, err = libredis.NewRedisClient(startCtx, libredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		opts.Cache = cache.NewSnapshotStore(a.redis, cfg.Redis.TTL)
	}

	if cfg.Database.DSN != "" {
		a.db, err = db.NewPostgresDB(startCtx, cfg.Database.DSN, repository.Schema)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		repo := repository.NewVisitRepository(a.db)
		opts.Archive = repo
		archive = repo
	}

	nodeRed := clients.NewNodeRedClient(cfg.NodeRed.BaseURL, clients.NewDefaultHTTPClient(cfg.HTTPTimeout()))

	a.refresher = calendar.NewRefresher(nodeRed, opts, logger.Named("calendar"))

	hub := realtime.NewHub(logger.Named("hub"))
	a.upstream = realtime.NewUpstream(realtime.UpstreamConfig{
		URL:             realtime.WebSocketURL(cfg.RealtimeURL()),
		DeviceID:        cfg.Device.ID,
		InitialInterval: cfg.Realtime.InitialBackoff,
		MaxInterval:     cfg.Realtime.MaxBackoff,
		MaxAttempts:     cfg.Realtime.MaxAttempts,
		Cooldown:        cfg.Realtime.Cooldown,
		ReadTimeout:     cfg.Realtime.ReadTimeout,
		StableAfter:     cfg.Realtime.StableAfter,
	}, nil, hub, logger.Named("upstream"))
	wsServer := realtime.NewServer(a.sockets, hub, cfg.HTTP.AllowedOrigins, cfg.Realtime.WriteTimeout, logger.Named("ws"))

	measurer := measure.NewService(nodeRed, cfg.Device.ID, cfg.Measure.SettleDelay, logger.Named("measure"))
	formatter := history.NewFormatter(cfg.Location())

	router := httpserver.NewRouter(httpserver.RouterDeps{
		AuthHandlers:     handlers.NewAuthHandlers(authenticator, tokens, logger),
		GeofenceHandlers: handlers.NewGeofenceHandlers(nodeRed, a.refresher, logger),
		CalendarHandlers: handlers.NewCalendarHandlers(a.refresher, archive, formatter, cfg.Device.ID, logger),
		LocationHandlers: handlers.NewLocationHandlers(hub, nodeRed, a.upstream, cfg.Device.ID, logger),
		MeasureHandler:   handlers.NewMeasureHandler(measurer, logger),
		HealthHandler:    handlers.NewHealthHandler(),
		LocationSocket:   wsServer.HandleWS,
		StaticDir:        cfg.HTTP.StaticDir,
	}, middleware.AuthMiddleware(tokens))

	a.server = httpserver.NewServer(
		cfg.HTTPAddress(),
		router,
		cfg.Measure.SettleDelay+cfg.HTTPTimeout()*2+5*time.Second,
		logger,
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
	)

	logger.Info("dashboard service configured",
		zap.String("device_id", cfg.Device.ID),
		zap.String("node_red", cfg.NodeRed.BaseURL),
		zap.Bool("redis_cache", a.redis != nil),
		zap.Bool("postgres_archive", a.db != nil),
	)

	return a, nil
}

// Run serves HTTP and runs the background workers until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-gctx.Done()
		a.stop()
		return nil
	})
	g.Go(func() error { return a.refresher.Run(gctx) })
	g.Go(func() error { return a.upstream.Run(gctx) })
	g.Go(func() error { return a.server.Run(gctx) })

	return g.Wait()
}

// Close releases connections.
func (a *App) Close() {
	if a.stop != nil {
		a.stop()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("close redis", zap.Error(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("close postgres", zap.Error(err))
		}
	}
}
