package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xraph/binder/internal/config"
	"github.com/xraph/binder/internal/inspect"
	"github.com/xraph/binder/internal/logger"
	"github.com/xraph/binder/internal/manifest"
	"github.com/xraph/binder/internal/metrics"
	"github.com/xraph/binder/internal/naming"
	"github.com/xraph/binder/internal/registry"
)

const shutdownTimeout = 10 * time.Second

// runtime is everything a running daemon owns.
type runtime struct {
	cfg      config.Config
	log      logger.Logger
	engine   *naming.Engine
	registry *prometheus.Registry
	redis    *registry.RedisServices
}

func loadConfig() (config.Config, error) {
	if configPath == "" {
		return config.DefaultConfig(), nil
	}
	return config.Load(configPath)
}

// build wires the engine from cfg and deploys the manifest, if any.
func build(ctx context.Context, cfg config.Config, log logger.Logger) (*runtime, error) {
	rt := &runtime{
		cfg:      cfg,
		log:      log,
		registry: prometheus.NewRegistry(),
	}

	opts := []naming.Option{
		naming.WithConfig(cfg),
		naming.WithLogger(log),
	}

	if cfg.Metrics.Enabled {
		rt.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		collector, err := metrics.NewPrometheus(cfg.Metrics.Namespace, rt.registry)
		if err != nil {
			return nil, err
		}
		opts = append(opts, naming.WithMetrics(collector))
	}

	builders := naming.NewBuilders()
	if err := registry.RegisterBuilders(builders, cfg.Factories.Builders); err != nil {
		return nil, err
	}

	var factories registry.Registrar
	if cfg.Factories.Backend == config.FactoryBackendVessel {
		v := registry.NewVesselFactories(nil)
		factories = v
		opts = append(opts, naming.WithFactoryRegistry(v))
	}

	if cfg.Redis.URL != "" {
		services, err := registry.OpenRedisServices(ctx, cfg.Redis, builders, log)
		if err != nil {
			return nil, err
		}
		rt.redis = services
		opts = append(opts, naming.WithServiceRegistry(services))
	}

	engine, err := naming.New(opts...)
	if err != nil {
		rt.close()
		return nil, err
	}
	rt.engine = engine

	if factories == nil {
		factories = engine.Factories()
	}
	if err := registry.RegisterResources(factories, cfg.Factories.Resources, builders); err != nil {
		rt.close()
		return nil, err
	}
	// Startup producers are all registered.
	if builtin := engine.Factories(); builtin != nil {
		builtin.MarkReady()
	}
	log.Info("resource factories registered",
		logger.String("backend", cfg.Factories.Backend),
		logger.Int("resources", len(cfg.Factories.Resources)))

	if manifestPath != "" {
		m, err := manifest.Load(manifestPath)
		if err != nil {
			rt.close()
			return nil, err
		}
		if err := m.Apply(ctx, engine, builders); err != nil {
			rt.close()
			return nil, err
		}
		log.Info("manifest deployed", logger.String("path", manifestPath), logger.Int("units", len(m.Units)))
	}

	return rt, nil
}

func (rt *runtime) close() {
	if rt.engine != nil {
		_ = rt.engine.Close()
	}
	if rt.redis != nil {
		if err := rt.redis.Close(); err != nil {
			rt.log.Warn("closing redis client failed", logger.Error(err))
		}
	}
}

func serve(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.NewLogger(cfg.Logging)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer rt.close()

	h := inspect.NewHandler(rt.engine, log)
	if cfg.Metrics.Enabled {
		h.Router().Handle("/metrics", promhttp.HandlerFor(rt.registry, promhttp.HandlerOpts{}))
	}

	srv := inspect.NewServer(cfg.Inspect.Addr, h, log)
	if err := srv.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

func dump(ctx context.Context, out io.Writer) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	rt, err := build(ctx, cfg, logger.NewNoopLogger())
	if err != nil {
		return err
	}
	defer rt.close()

	return rt.engine.Dump(out, naming.DumpOptions{Color: colored})
}
