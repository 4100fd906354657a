// main.go
// In main.go we wire everything together: load the config, build the
// registry, the dispatcher and the WebSocket handler, mount them on the HTTP
// server and run until a shutdown signal arrives.

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"realtime-relay/internal/config"
	"realtime-relay/internal/logging"
	"realtime-relay/internal/metrics"
	"realtime-relay/internal/relay"
	"realtime-relay/internal/server"
)

func relayOptions(cfg *config.Config) relay.Options {
	return relay.Options{
		WelcomeMessage: cfg.WelcomeMessage,
		SendTimeout:    cfg.SendTimeout,
		SendBuffer:     cfg.SendBuffer,
		PingInterval:   cfg.PingInterval,
		PongWait:       cfg.PongWait,
		MaxMessageSize: cfg.MaxMessageSize,
		AllowedOrigins: cfg.AllowedOrigins,
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		// The logger depends on the config.
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	reg := metrics.NewRegistry()
	relayMetrics := metrics.NewRelay(reg)

	registry := relay.NewRegistry()
	dispatcher := relay.NewDispatcher(registry, cfg.RelayPrefix, logger, relayMetrics)
	handler := relay.NewHandler(registry, dispatcher, relayOptions(cfg), logger, relayMetrics)

	srv := server.New(cfg, handler, registry, reg, logger)

	go func() {
		if err := srv.Start(); err != nil {
			logger.WithError(err).Fatal("Server failed")
		}
	}()

	waitForShutdown(srv, handler, logger)
}

func waitForShutdown(srv *server.Server, handler *relay.Handler, logger logrus.FieldLogger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutdown signal received, closing connections...")
	handler.CloseAll()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server shutdown error")
	}
	logger.Info("Server stopped")
}
