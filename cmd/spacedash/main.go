package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/adeilh/spacedash/api"
	"github.com/adeilh/spacedash/config"
	"github.com/adeilh/spacedash/fetch"
	"github.com/adeilh/spacedash/httpx"
	"github.com/adeilh/spacedash/iss"
	"github.com/adeilh/spacedash/logger"
	"github.com/adeilh/spacedash/metrics"
	"github.com/adeilh/spacedash/nasa"
	"github.com/adeilh/spacedash/spaceweather"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "spacedash"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "spacedash",
		Level:       cfg.App.LogLevel,
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := openCache(ctx, cfg, logg)
	if err != nil {
		logg.Error(ctx, "failed to open cache backend", err)
		os.Exit(1)
	}
	defer func() {
		if err := backend.close(); err != nil {
			logg.Error(context.Background(), "error closing cache backend", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	fetchMetrics := metrics.NewFetchMetrics(reg)

	newFetcher := func(source, baseURL string, timeout time.Duration) *fetch.Fetcher {
		client := httpx.NewClient(
			httpx.WithBaseURL(baseURL),
			httpx.WithClientTimeout(timeout),
			httpx.WithUserAgent("spacedash/"+cfg.App.Env),
		)
		return fetch.NewFetcher(source, client,
			fetch.WithStore(backend.store),
			fetch.WithLogger(logg),
			fetch.WithMetrics(fetchMetrics),
			fetch.WithFlightTimeout(2*timeout),
		)
	}

	nasaClient := nasa.NewClient(
		newFetcher(nasa.Source, cfg.NASA.BaseURL, cfg.NASA.Timeout),
		nasa.WithAPIKey(cfg.NASA.APIKey),
		nasa.WithTTLs(nasa.TTLs{
			APOD:  cfg.TTL.APOD,
			Mars:  cfg.TTL.Mars,
			NEO:   cfg.TTL.NEO,
			Earth: cfg.TTL.Earth,
			DONKI: cfg.TTL.DONKI,
		}),
	)
	weatherClient := spaceweather.NewClient(
		newFetcher(spaceweather.Source, cfg.SWPC.BaseURL, cfg.SWPC.Timeout),
		spaceweather.WithBaseURL(cfg.SWPC.BaseURL),
		spaceweather.WithLogger(logg),
		spaceweather.WithTTLs(spaceweather.TTLs{
			SolarWind:   cfg.TTL.SolarWind,
			Geomagnetic: cfg.TTL.Geomagnetic,
			Aurora:      cfg.TTL.Aurora,
			Forecast:    cfg.TTL.Forecast,
		}),
	)
	issClient := iss.NewClient(
		newFetcher(iss.PositionSource, cfg.ISS.PositionBaseURL, cfg.ISS.Timeout),
		newFetcher(iss.CrewSource, cfg.ISS.CrewBaseURL, cfg.ISS.Timeout),
		iss.TTLs{Position: cfg.TTL.ISSPosition, Astronauts: cfg.TTL.Astronauts},
	)

	handler := api.NewHandler(api.Deps{
		NASA:         nasaClient,
		SpaceWeather: weatherClient,
		ISS:          issClient,
		Health:       backend.health,
		Gatherer:     reg,
		Logger:       logg,
	})

	srv := httpx.NewServer(
		httpx.WithAddress(cfg.Server.Address),
		httpx.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
		httpx.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		httpx.WithMiddleware(httpx.RequestIDMiddleware(logg), httpx.RequestLoggerMiddleware(logg)),
		httpx.WithErrorHandler(handler.ErrorHandler),
		httpx.WithCORSOrigins(cfg.Server.CORSOrigins...),
	)
	srv.RegisterRoutes(handler.Register)

	logg.Info(logg.WithFields(ctx, map[string]any{
		"addr":          srv.Address(),
		"cache_backend": cfg.Cache.Backend,
		"env":           cfg.App.Env,
	}), "server starting")

	if err := srv.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(context.Background(), "server exited", err)
		os.Exit(1)
	}
	logg.Info(context.Background(), "server stopped")
}
