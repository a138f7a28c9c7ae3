// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jason-s-yu/uno/internal/auth"
	"github.com/jason-s-yu/uno/internal/cache"
	"github.com/jason-s-yu/uno/internal/config"
	"github.com/jason-s-yu/uno/internal/database"
	"github.com/jason-s-yu/uno/internal/handlers"
	"github.com/jason-s-yu/uno/internal/match"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}

	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	logrus.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := auth.Init(cfg.Auth); err != nil {
		logger.Fatalf("auth: %v", err)
	}
	ttl, _ := cfg.Auth.TokenTTL()

	pool, err := database.ConnectDB(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatalf("database: %v", err)
	}
	defer pool.Close()
	if err := database.EnsureSchema(ctx); err != nil {
		logger.Fatalf("database: %v", err)
	}

	rdb, err := cache.Connect(ctx, cfg.Redis)
	if err != nil {
		logger.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	store := match.NewStore(nil)
	srv := handlers.NewMatchServer(logger, store, database.UserStore{})
	srv.Publisher = cache.NewRedisPublisher(rdb, cfg.Historian.QueueName)
	srv.Defaults.TargetScore = cfg.Match.DefaultTargetScore
	srv.Defaults.TurnTimeoutSec = cfg.Match.DefaultTurnTimeoutSec
	srv.OriginPatterns = cfg.AllowedOrigins
	srv.TokenTTL = ttl
	srv.OnMatchEnd = func(res match.Result, settings match.Settings) {
		recordMatch(logger, res.Record(settings.TargetScore))
	}
	srv.OnMatchAbandoned = func(m *match.Match) {
		markAbandoned(logger, m.ID)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(cors.Handler(cors.Options{
		AllowOriginFunc:  srv.AllowOrigin,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Mount("/", srv.Routes())

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("Running on %s", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return store.RunReaper(ctx, cfg.Match.ReaperInterval, cfg.Match.IdleTimeout)
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logger.Fatalf("server exited: %v", err)
	}
	logger.Info("server stopped")
}
