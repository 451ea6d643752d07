package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/ordermgmt/internal/config"
	"github.com/iliyamo/ordermgmt/internal/handler"
	"github.com/iliyamo/ordermgmt/internal/logger"
	"github.com/iliyamo/ordermgmt/internal/queue"
	"github.com/iliyamo/ordermgmt/internal/router"
	"github.com/iliyamo/ordermgmt/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores()
	if err != nil {
		log.Fatal("store unavailable", zap.Error(err))
	}
	defer st.Close()
	log.Info("store ready", zap.String("driver", cfg.DB.Driver))

	var events service.EventPublisher = service.NopPublisher{}
	if cfg.EventsOn {
		pub := service.NewAMQPPublisher(cfg.RabbitURL, logger.WithComponent(log, "events"))
		defer pub.Close()
		events = pub
		go func() {
			if err := queue.StartAuditConsumer(ctx, cfg.RabbitURL, cfg.AuditLogPath, logger.WithComponent(log, "audit")); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("audit consumer stopped", zap.Error(err))
			}
		}()
	}

	svc, signer, err := newAuthService(st, events)
	if err != nil {
		log.Fatal("token signer", zap.Error(err))
	}

	var rdb *redis.Client
	if c, err := config.NewRedisClient(ctx); err == nil {
		rdb = c
		defer rdb.Close()
	} else if !errors.Is(err, config.ErrRedisDisabled) {
		log.Warn("redis unavailable, rate limiting and caching disabled", zap.Error(err))
	}

	httpLog := logger.WithComponent(log, "http")
	e := router.New(router.Deps{
		Auth:      handler.NewAuthHandler(svc, httpLog),
		Inventory: handler.NewInventoryHandler(st.inventory, httpLog),
		Verifier:  signer,
		DB:        st.db,
		Redis:     rdb,
		RateLimit: config.LoadRateLimitConfig(),
		Cache:     config.LoadCacheConfig(),
		Log:       httpLog,
	})

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		errCh <- e.Start(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
