package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/skekre98/zamt/actuator"
	"github.com/skekre98/zamt/config"
	"github.com/skekre98/zamt/config/source"
	"github.com/skekre98/zamt/core"
	"github.com/skekre98/zamt/logging"
	"github.com/skekre98/zamt/metrics"
	"github.com/skekre98/zamt/web"
)

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// 1) config: defaults < configs/application[.profile].yaml < ZAMT_* < flags
	var live config.Root
	mgr, err := config.NewManager(&live, config.Options{AutoReload: true},
		source.Static("defaults", config.Defaults()),
		&source.FileSource{BasePath: envOr("ZAMT_CONFIG_DIR", "configs"), Profile: os.Getenv("APP_PROFILE")},
		&source.EnvSource{},
		&source.CLISource{},
	)
	if err != nil {
		return err
	}
	defer mgr.Close()
	// live is written by reloads; read a snapshot instead
	cfg := *mgr.Current().(*config.Root)

	// 2) logging
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	log := logger.With(zap.String("app", cfg.App.Name), zap.String("version", cfg.App.Version))

	events := make(chan config.Event, 4)
	mgr.Subscribe(events)
	go followLogLevel(logger, events)

	// 3) metrics
	reg := metrics.NewRegistry()
	collector, err := metrics.NewCollector(reg)
	if err != nil {
		return err
	}

	// 4) module center
	mc := core.New(
		core.WithLogger(log),
		core.WithObserver(collector),
		core.WithParallelism(cfg.Modules.Parallelism),
		core.WithInitTimeout(cfg.Modules.InitTimeout),
		core.WithStopTimeout(cfg.Modules.StopTimeout),
	)
	if err := multierr.Combine(
		core.Put(mc, cfg),
		core.Put(mc, logger),
		core.Put(mc, reg),
	); err != nil {
		return err
	}

	var mods []core.Module
	if !cfg.Disabled(web.Name) {
		mods = append(mods, web.New(
			web.WithRoutes(func(r web.Router) {
				r.GET("/hello", func(c web.Ctx) {
					c.JSON(200, gin.H{"message": "world"})
				})
			}),
		))
		if !cfg.Disabled(actuator.Name) {
			mods = append(mods, actuator.New())
		}
	}
	if err := mc.Register(mods...); err != nil {
		return err
	}

	// 5) run until SIGINT/SIGTERM
	if err := mc.Run(ctx); err != nil {
		log.Error("module center stopped with errors", zap.Error(err))
		return err
	}
	return nil
}

// followLogLevel applies logging.level changes from config reloads. It
// exits when the process does; the manager never closes the channel.
func followLogLevel(logger *logging.Logger, events <-chan config.Event) {
	for evt := range events {
		if !evt.Changed("logging") {
			continue
		}
		next := evt.NewConfig.(*config.Root).Logging.Level
		if err := logger.SetLevel(next); err != nil {
			logger.Warn("ignoring log level", zap.String("level", next), zap.Error(err))
			continue
		}
		logger.Info("log level changed", zap.String("level", next))
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
