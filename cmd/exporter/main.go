package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	exporter "github.com/a-tho/sunexporter/internal"
	"github.com/a-tho/sunexporter/internal/config"
	"github.com/a-tho/sunexporter/internal/server"
	"github.com/a-tho/sunexporter/internal/solarman"
	"github.com/a-tho/sunexporter/internal/storage"
	"github.com/a-tho/sunexporter/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		// exits with status 1
		log.Fatal().Err(err).Msg("Exporter stopped")
	}
}

func run() error {
	var cfg config.Config
	if err := cfg.ParseConfig(os.Args[1:]); err != nil {
		return err
	}
	cfg.InitLogger()

	cfg.Log()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var mirror exporter.SampleMirror
	m, err := storage.New(ctx, cfg.DatabaseDSN, cfg.FileStoragePath)
	if err != nil {
		return err
	}
	if m != nil {
		defer m.Close()
		if err := m.PingContext(ctx); err != nil {
			log.Error().Err(err).Msg("Sample mirror is not reachable")
		}
		mirror = m
	}

	client := solarman.New(cfg.Solarman())
	defer client.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.ExporterPort),
		Handler:           server.NewServer(reg),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Metrics endpoint failed")
		}
	}()
	log.Info().Str("addr", srv.Addr).Msg("Serving metrics")

	var obs exporter.Observer = telemetry.NewObserver(client, reg, mirror, cfg.Interval())
	err = obs.Observe(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to shut down metrics endpoint")
	}

	if errors.Is(err, context.Canceled) {
		log.Info().Msg("Exporter shut down")
		return nil
	}
	return err
}
