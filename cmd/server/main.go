package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/herocast/herocast/domain"
	"github.com/herocast/herocast/hub"
	"github.com/herocast/herocast/internal/config"
	"github.com/herocast/herocast/internal/eventbus"
	"github.com/herocast/herocast/internal/feed"
	"github.com/herocast/herocast/logging"
	apperrors "github.com/herocast/herocast/pkg/errors"
	"github.com/herocast/herocast/websocket"
)

var configPath = flag.String("config", "", "path to config file (json or yaml)")

func main() {
	flag.Parse()

	cfg, err := config.Load(config.LoadOptions{Path: *configPath})
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := logging.New(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bus := eventbus.NewInMemoryBus(256)
	bus.Start(ctx)
	defer bus.Stop()

	bus.SubscribeAll(func(event *eventbus.Event) {
		logger.Debug("event",
			"event_id", event.ID,
			"type", event.Type,
			"source", event.Source,
		)
	})

	errHandler := apperrors.NewDefaultHandler(logger.Logger)

	h := hub.New(hub.Options{Logger: logger, Bus: bus, Errors: errHandler})
	defer h.Stop()

	if cfg.Feed.Enabled {
		source := feed.NewKafkaSource(cfg.Kafka)
		defer source.Close()

		adapter := feed.NewAdapter(source, h, bus, logger, cfg.Feed.EntityLabel)
		go func() {
			if err := adapter.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error("feed adapter exited", "error", err)
			}
		}()
	}

	wsServer := websocket.NewServer(h, logger, websocket.DefaultConnectionOptions())

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Get("/ws", wsServer.Handle)
	r.Get("/metrics", metricsHandler(h))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
}

func metricsHandler(h domain.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(h.Metrics()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}
