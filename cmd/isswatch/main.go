// Command isswatch polls the spacedash backend for the ISS position and crew
// and redraws the terminal on every update.
package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/adeilh/spacedash/config"
	"github.com/adeilh/spacedash/httpx"
	"github.com/adeilh/spacedash/logger"
	"github.com/adeilh/spacedash/tracker"
)

const clearScreen = "\033[H\033[2J"

func main() {
	logg := logger.New(logger.Options{ServiceName: "isswatch", Output: os.Stderr})

	if err := godotenv.Load(); err != nil {
		logg.Debug(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "isswatch",
		Level:       cfg.App.LogLevel,
		Format:      cfg.App.LogFormat,
		Output:      os.Stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend := tracker.NewBackendClient(httpx.NewClient(
		httpx.WithBaseURL(cfg.Tracker.BackendURL),
		httpx.WithClientTimeout(cfg.Tracker.Timeout),
		httpx.WithUserAgent("isswatch"),
	))

	poller := tracker.NewPoller(backend,
		tracker.WithInterval(cfg.Tracker.Interval),
		tracker.WithLogger(logg),
		tracker.WithOnUpdate(func(s tracker.State) {
			var buf bytes.Buffer
			buf.WriteString(clearScreen)
			if err := tracker.Render(&buf, s); err != nil {
				logg.Error(ctx, "render failed", err)
				return
			}
			_, _ = os.Stdout.Write(buf.Bytes())
		}),
	)

	if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(context.Background(), "poller exited", err)
		os.Exit(1)
	}
}
