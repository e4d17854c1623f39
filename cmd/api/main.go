package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/accounthub/internal/auth"
	"github.com/geocoder89/accounthub/internal/config"
	"github.com/geocoder89/accounthub/internal/db"
	httpx "github.com/geocoder89/accounthub/internal/http"
	"github.com/geocoder89/accounthub/internal/observability"
	"github.com/geocoder89/accounthub/internal/redisclient"
	"github.com/geocoder89/accounthub/internal/repo/postgres"
	"github.com/geocoder89/accounthub/internal/risk"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	start := time.Now()

	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)

	if cfg.UsingDefaultSecret() && cfg.Env != "dev" {
		log.Warn("JWT_SECRET is unset; the default signing secret is for dev only")
	}

	// tracing (optional; only when a collector endpoint is configured)
	tracing := cfg.OTLPEndpoint != ""

	var traceShutdown func(context.Context) error

	if tracing {
		var err error
		traceShutdown, err = observability.InitTracer(context.Background(), "accounthub", cfg.OTLPEndpoint)

		if err != nil {
			log.Error("tracer init failed", "err", err)
			tracing = false
		}
	}

	pool, err := db.NewPool(cfg.DBURL)

	if err != nil {
		log.Error("database connection failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	seedCtx, cancelSeed := config.WithTimeout(5 * time.Second)
	if err := db.EnsureAdminUser(seedCtx, pool, cfg); err != nil {
		log.Error("admin seed failed", "err", err)
	}
	cancelSeed()

	rdb := redisclient.New(redisclient.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()

	pingCtx, cancelPing := config.WithTimeout(2 * time.Second)
	if err := rdb.Ping(pingCtx); err != nil {
		// the engine's fail-open setting decides what happens per request
		log.Warn("redis unreachable at startup", "err", err, "fail_open", cfg.RiskFailOpen)
	}
	cancelPing()

	prom := observability.NewProm(prometheus.DefaultRegisterer)

	engine := risk.NewEngine(log, prom, risk.NewRedisWindow(rdb.Raw()), risk.EngineOptions{
		Policies: risk.PolicyTable{
			Guest: risk.Policy{Max: cfg.GuestLimit, Window: cfg.RiskWindow},
			User:  risk.Policy{Max: cfg.UserLimit, Window: cfg.RiskWindow},
			Admin: risk.Policy{Max: cfg.AdminLimit, Window: cfg.RiskWindow},
		},
		FailOpen: cfg.RiskFailOpen,
	})

	jwtManager := auth.NewManager(cfg.JWTSecret, cfg.JWTTTL)
	usersRepo := postgres.NewUsersRepo(pool, prom)

	router := httpx.NewRouter(log, httpx.Deps{
		Cfg:    cfg,
		Users:  usersRepo,
		JWT:    jwtManager,
		Engine: engine,
		Prom:   prom,
		Start:  start,
		Ping: func(ctx context.Context) error {
			return pool.Ping(ctx)
		},
		Tracing: tracing,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)

		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
			return
		}

		if traceShutdown != nil {
			if err := traceShutdown(ctx); err != nil {
				log.Error("tracer shutdown failed", "err", err)
			}
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
