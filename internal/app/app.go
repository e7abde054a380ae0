// Package app assembles the storefront-auth HTTP service: session backend,
// engine, router and metric exporters.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	storeauth "github.com/Arunava9732/Arunava45-sub000"
	"github.com/Arunava9732/Arunava45-sub000/internal/config"
	"github.com/Arunava9732/Arunava45-sub000/session"
	"github.com/Arunava9732/Arunava45-sub000/stores/filestore"
	"github.com/Arunava9732/Arunava45-sub000/stores/pgstore"
	"github.com/Arunava9732/Arunava45-sub000/stores/redisstore"
)

// App owns every long-lived resource of the service.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	engine    *storeauth.Engine
	server    *http.Server
	router    http.Handler
	postgres  *pgxpool.Pool
	redis     *goredis.Client
	telemetry *telemetry
	health    func(context.Context) error
}

type backend struct {
	sessions session.Store
	users    storeauth.UserProvider
	postgres *pgxpool.Pool
	redis    *goredis.Client
	health   func(context.Context) error
}

// New wires the configured backend into an Engine and builds the router.
func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, errors.New("logger is nil")
	}

	be, err := openBackend(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	engine, err := storeauth.New().
		WithConfig(cfg.Engine()).
		WithSessionStore(be.sessions).
		WithUserProvider(be.users).
		WithAuditSink(storeauth.NewZapSink(log.Named("audit"))).
		WithLogger(log).
		Build()
	if err != nil {
		be.close()
		return nil, fmt.Errorf("build engine: %w", err)
	}

	tel, err := newTelemetry(ctx, cfg.OTLPEndpoint, engine)
	if err != nil {
		engine.Close()
		be.close()
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	r := chi.NewRouter()
	applyMiddlewares(r, log)
	RegisterRoutes(r, Dependencies{
		Engine: engine,
		Logger: log,
		Health: be.health,
	})

	return &App{
		cfg:    cfg,
		logger: log,
		engine: engine,
		server: &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		router:    r,
		postgres:  be.postgres,
		redis:     be.redis,
		telemetry: tel,
		health:    be.health,
	}, nil
}

func openBackend(ctx context.Context, cfg config.Config, log *zap.Logger) (*backend, error) {
	switch cfg.SessionBackend {
	case config.BackendPostgres:
		if err := pgstore.Migrate(cfg.DatabaseURL); err != nil {
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		pool, err := pgstore.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		store := pgstore.New(pool)
		log.Info("session backend ready", zap.String("backend", "postgres"))
		return &backend{sessions: store, users: store, postgres: pool, health: store.Ping}, nil

	case config.BackendRedis:
		users, err := filestore.Open(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("open user store: %w", err)
		}
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		store := redisstore.New(client, redisstore.Config{})
		if _, err := store.Ping(ctx); err != nil {
			log.Warn("redis not reachable at startup", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		log.Info("session backend ready", zap.String("backend", "redis"), zap.String("addr", cfg.RedisAddr))
		return &backend{
			sessions: store,
			users:    users,
			redis:    client,
			health: func(ctx context.Context) error {
				_, err := store.Ping(ctx)
				return err
			},
		}, nil

	default:
		store, err := filestore.Open(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("open file store: %w", err)
		}
		log.Info("session backend ready", zap.String("backend", "file"), zap.String("dir", store.Dir()))
		return &backend{
			sessions: store,
			users:    store,
			health:   func(context.Context) error { return nil },
		}, nil
	}
}

func (b *backend) close() {
	if b.postgres != nil {
		b.postgres.Close()
	}
	if b.redis != nil {
		_ = b.redis.Close()
	}
}

// Run starts the janitor and serves HTTP until Shutdown.
func (a *App) Run(ctx context.Context) error {
	if err := a.engine.StartJanitor(ctx); err != nil {
		return fmt.Errorf("start janitor: %w", err)
	}
	a.logger.Info("storefront auth listening", zap.String("addr", a.cfg.HTTPAddr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains HTTP, stops the janitor and audit dispatcher, then closes
// backend connections.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	a.engine.Close()
	if err := a.telemetry.shutdown(ctx); err != nil && shutdownErr == nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}
	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.router
}

func (a *App) Engine() *storeauth.Engine {
	return a.engine
}
