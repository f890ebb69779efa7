package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fenrir/internal/common"
	"fenrir/internal/config"
	"fenrir/internal/engine"
	"fenrir/internal/feed"
	"fenrir/internal/metrics"
	"fenrir/internal/net"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	defaultShutdownGrace = 5 * time.Second
	depthSnapshotLevels  = 10
	depthSnapshotPeriod  = time.Second
)

func main() {
	configPath := flag.String("config", "fenrir.yaml", "path to the server's YAML config file")
	debug := flag.Bool("debug", false, "log at debug level")
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *configPath).Msg("unable to load config")
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	collector := metrics.NewCollector()
	marketFeed := feed.New()

	// Setup the TCP server and the matching engine.
	eng := engine.NewWithConfig(cfg.BookConfig(), common.Equities)
	eng.SetMetrics(collector)
	eng.SetFeed(marketFeed)
	srv := net.New(cfg.ListenAddress, cfg.ListenPort, eng)
	eng.SetReporter(srv)

	metricsSrv := &http.Server{Addr: cfg.MetricsAddress, Handler: metrics.Handler()}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()

	feedMux := http.NewServeMux()
	feedMux.Handle("/ws", marketFeed)
	feedSrv := &http.Server{Addr: cfg.FeedAddress, Handler: feedMux}
	go func() {
		if err := feedSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("feed server failed")
		}
	}()

	go marketFeed.Run(ctx)
	go marketFeed.RunDepthSnapshots(ctx, eng.Registry(), depthSnapshotLevels, depthSnapshotPeriod)

	go srv.Run(ctx)
	// Block on running the server.
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownGrace)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("metrics server shutdown failed")
	}
	if err := feedSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("feed server shutdown failed")
	}
}
