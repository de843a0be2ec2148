package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	handshakehandler "authbroker/internal/handshake/handler"
	handshakemetrics "authbroker/internal/handshake/metrics"
	handshakeservice "authbroker/internal/handshake/service"
	handshakestore "authbroker/internal/handshake/store"
	handshakememory "authbroker/internal/handshake/store/memory"
	handshakeredis "authbroker/internal/handshake/store/redis"
	identityhandler "authbroker/internal/identity/handler"
	identitymetrics "authbroker/internal/identity/metrics"
	identityservice "authbroker/internal/identity/service"
	identitystore "authbroker/internal/identity/store"
	identitymemory "authbroker/internal/identity/store/memory"
	identitypostgres "authbroker/internal/identity/store/postgres"
	jwttoken "authbroker/internal/jwt_token"
	"authbroker/internal/platform/config"
	"authbroker/internal/platform/httpserver"
	"authbroker/internal/platform/logger"
	platformredis "authbroker/internal/platform/redis"
	"authbroker/internal/provider"
	"authbroker/internal/provider/google"
	transporthttp "authbroker/internal/transport/http"
	"authbroker/pkg/platform/middleware/auth"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.FromEnv()
	log := logger.New()

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var hsStore handshakestore.Store
	if redisClient != nil {
		hsStore = handshakeredis.NewRedisHandshakeStore(redisClient.Client, cfg.HandshakeTTL)
		log.Info("using redis handshake store")
	} else {
		hsStore = handshakememory.NewInMemoryHandshakeStore(cfg.HandshakeTTL)
		log.Info("using in-memory handshake store")
	}

	users, closeUsers, err := newUserStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeUsers()

	jwtService := jwttoken.NewService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.TokenTTL)

	identitySvc := identityservice.NewService(users, jwtService, log, identitymetrics.New())

	hsMetrics := handshakemetrics.New()
	hsSvc := handshakeservice.NewService(hsStore, identitySvc, jwtService, cfg.PublicBaseURL, log, hsMetrics)

	var oauthProvider provider.OAuthProvider
	if cfg.Google.Enabled() {
		googleProvider, err := google.New(ctx, cfg.Google, log)
		if err != nil {
			return err
		}
		oauthProvider = googleProvider
	} else {
		log.Warn("google oauth not configured; provider routes will answer 503")
	}

	requireAuth := auth.RequireAuth(jwttoken.NewMiddlewareAdapter(jwtService), log)

	var checkers []transporthttp.HealthChecker
	if redisClient != nil {
		checkers = append(checkers, redisClient)
	}

	router := transporthttp.NewRouter(
		handshakehandler.New(hsSvc, oauthProvider, log),
		identityhandler.New(identitySvc, log),
		requireAuth,
		checkers...,
	)

	server := httpserver.New(cfg.Addr, router)
	sweeper := handshakeservice.NewSweeper(hsStore, cfg.SweepInterval, log, hsMetrics)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("http server listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return sweeper.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newUserStore(ctx context.Context, cfg config.Config, log *slog.Logger) (identitystore.UserStore, func(), error) {
	if cfg.PostgresDSN == "" {
		log.Info("using in-memory user store")
		return identitymemory.New(), func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		return nil, nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}

	store := identitypostgres.New(db)
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}

	log.Info("using postgres user store")
	return store, func() { db.Close() }, nil
}
