// Riftwatch - Photon protocol sniffer and world event publisher.
//
// Riftwatch decodes game traffic captured from the wire, keeps an in-memory
// model of the observed world, and publishes versioned contracts to a
// message broker.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/riftwatch/riftwatch/internal/api"
	"github.com/riftwatch/riftwatch/internal/capture"
	"github.com/riftwatch/riftwatch/internal/catalog"
	"github.com/riftwatch/riftwatch/internal/cli"
	"github.com/riftwatch/riftwatch/internal/codes"
	"github.com/riftwatch/riftwatch/internal/config"
	"github.com/riftwatch/riftwatch/internal/contracts"
	"github.com/riftwatch/riftwatch/internal/dispatch"
	"github.com/riftwatch/riftwatch/internal/events"
	"github.com/riftwatch/riftwatch/internal/handlers"
	"github.com/riftwatch/riftwatch/internal/protocol"
	"github.com/riftwatch/riftwatch/internal/publish"
	"github.com/riftwatch/riftwatch/internal/scheduler"
	"github.com/riftwatch/riftwatch/internal/transform"
	"github.com/riftwatch/riftwatch/internal/util"
	"github.com/riftwatch/riftwatch/internal/world"
)

const (
	AppName    = "Riftwatch"
	AppVersion = api.Version
)

func main() {
	configDir := flag.String("config", config.DefaultConfigDir, "configuration directory")
	captureFile := flag.String("file", "", "replay a pcap file instead of the configured source")
	noCLI := flag.Bool("no-cli", false, "disable the interactive console")
	flag.Parse()

	// Initialize logger with defaults first (will be reconfigured after config load)
	if err := util.InitLogger(util.DefaultLogConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.Info().
		Str("version", AppVersion).
		Str("platform", runtime.GOOS).
		Str("arch", runtime.GOARCH).
		Int("cpus", runtime.NumCPU()).
		Msg("starting Riftwatch")

	cfg, err := config.Load(*configDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if *captureFile != "" {
		cfg.Capture.Mode = "file"
		cfg.Capture.File = *captureFile
	}

	if err := util.InitLogger(cfg.Logging); err != nil {
		log.Warn().Err(err).Msg("failed to reconfigure logger, using defaults")
	}

	validation := config.Validate(cfg)
	for _, w := range validation.Warnings {
		log.Warn().Str("field", w.Field).Msg(w.Message)
	}
	if !validation.IsValid() {
		for _, e := range validation.Errors {
			log.Error().Str("field", e.Field).Msg(e.Message)
		}
		log.Fatal().Msg("configuration validation failed, please fix the errors above")
	}

	if err := run(cfg, !*noCLI); err != nil {
		log.Fatal().Err(err).Msg("Riftwatch stopped with an error")
	}
	log.Info().Msg("Riftwatch stopped")
}

func run(cfg *config.Config, withCLI bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	table, err := codes.Load(cfg.CodesPath)
	if err != nil {
		return fmt.Errorf("code table: %w", err)
	}

	mobs, err := openCatalog(ctx, cfg.Catalog)
	if err != nil {
		return err
	}
	defer mobs.Close()

	eventBus := events.NewEventBus()
	reg := world.NewRegistry(cfg.Identity.Region)

	parser := protocol.NewEnvelopeParser(table.ParserOptions()...)
	dispatcher := dispatch.New(dispatch.Options{MaxInFlight: cfg.Dispatch.MaxInFlight}, parser, reg, eventBus)
	if err := dispatcher.BindTable(table, handlers.Catalog(mobs)); err != nil {
		return fmt.Errorf("bind handlers: %w", err)
	}

	pubCfg := cfg.GetPublisher()
	codec, err := contracts.NewCodec(pubCfg.Codec)
	if err != nil {
		return err
	}
	publisher, err := publish.New(ctx, pubCfg)
	if err != nil {
		return fmt.Errorf("publisher: %w", err)
	}
	closePublisher := sync.OnceFunc(func() {
		if err := publisher.Close(); err != nil {
			log.Warn().Err(err).Msg("publisher close failed")
		}
	})
	defer closePublisher()

	router := transform.NewRouter(transform.DefaultTransformers(time.Now, contracts.NewEventID)...)
	pipeline := publish.NewPipeline(router, codec, publisher, pubCfg.TopicPrefix,
		time.Duration(pubCfg.PublishTimeout)*time.Second)
	pipeline.Attach(eventBus)

	// The CLI quit command arrives as a shutdown event.
	eventBus.Subscribe(events.EventShutdown, "main", func(_ context.Context, e events.Event) error {
		if e.Source != "main" {
			log.Info().Str("source", e.Source).Msg("shutdown requested")
			cancel()
		}
		return nil
	})

	source, err := newSource(cfg.GetCapture())
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("mode", cfg.Capture.Mode).Msg("starting capture")
		err := dispatcher.Run(gctx, source)
		if err == nil && cfg.Capture.Mode == "file" {
			log.Info().Msg("capture file finished")
			cancel()
		}
		return err
	})

	apiCfg := cfg.GetAPI()
	if apiCfg.Enabled {
		apiServer := api.NewServer(apiCfg, cfg.Logging.Level, api.Deps{
			World:      reg,
			Dispatcher: dispatcher,
			Pipeline:   pipeline,
			Bus:        eventBus,
			Identity:   cfg.Identity,
			LogDir:     cfg.Logging.Directory,
		})
		g.Go(func() error {
			if err := startWithRetry(gctx, "API server", apiServer.Start, 5); err != nil {
				log.Warn().Err(err).Msg("API server failed after retries (non-fatal)")
			}
			return nil
		})
	}

	sched := scheduler.NewScheduler(cfg.GetScheduler(), reg, eventBus)
	g.Go(func() error {
		sched.Start(gctx)
		return nil
	})

	if withCLI {
		console := cli.NewCLI(reg, eventBus, dispatcher, pipeline, os.Stdin, os.Stdout)
		g.Go(func() error {
			console.Start(gctx)
			return nil
		})
	}

	err = g.Wait()

	log.Info().Msg("initiating graceful shutdown...")
	dispatcher.Stop()
	if syncErr := eventBus.EmitSync(context.Background(), events.Event{
		Type:   events.EventShutdown,
		Source: "main",
	}); syncErr != nil {
		log.Warn().Err(syncErr).Msg("shutdown handlers failed")
	}
	// Stop waits for in-flight publishes, so the publisher closes after them.
	eventBus.Stop()
	closePublisher()

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func openCatalog(ctx context.Context, cfg config.CatalogConfig) (*catalog.Catalog, error) {
	mobs, err := catalog.Open(ctx, cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("mob catalog: %w", err)
	}

	n, err := mobs.Count(ctx)
	if err != nil {
		mobs.Close()
		return nil, fmt.Errorf("mob catalog: %w", err)
	}
	if n == 0 && cfg.SeedFile != "" {
		if _, statErr := os.Stat(cfg.SeedFile); statErr == nil {
			if err := mobs.Import(ctx, cfg.SeedFile); err != nil {
				log.Warn().Err(err).Str("file", cfg.SeedFile).Msg("failed to seed mob catalog")
			}
		}
	}
	return mobs, nil
}

func newSource(cfg config.CaptureConfig) (capture.Source, error) {
	switch cfg.Mode {
	case "pcap":
		return capture.NewPcapSource(cfg.Device, "", cfg.Filter), nil
	case "file":
		return capture.NewPcapSource("", cfg.File, cfg.Filter), nil
	case "udp":
		return capture.NewUDPSource(cfg.UDPAddr, cfg.UDPRaw), nil
	}
	return nil, fmt.Errorf("unknown capture mode %q", cfg.Mode)
}

// startWithRetry retries startFn, which typically fails while a port from a
// previous run is still bound.
func startWithRetry(ctx context.Context, name string, startFn func(context.Context) error, maxRetries int) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lastErr = startFn(ctx)
		if lastErr == nil {
			return nil
		}
		if i < maxRetries {
			log.Warn().Err(lastErr).Str("component", name).Int("retry", i+1).Int("max", maxRetries).Msg("bind failed, retrying in 3s...")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(3 * time.Second):
			}
		}
	}
	return lastErr
}
