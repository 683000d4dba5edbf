package main

//	@title			ponplan API
//	@version		0.1.0
//	@description	PON splitter topology planning, validation and port allocation.
//	@BasePath		/api/v1

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "github.com/HerbHall/ponplan/api/swagger"
	"github.com/HerbHall/ponplan/internal/config"
	"github.com/HerbHall/ponplan/internal/event"
	"github.com/HerbHall/ponplan/internal/inventory"
	"github.com/HerbHall/ponplan/internal/planner"
	"github.com/HerbHall/ponplan/internal/registry"
	"github.com/HerbHall/ponplan/internal/server"
	"github.com/HerbHall/ponplan/internal/store"
	"github.com/HerbHall/ponplan/internal/version"
	"github.com/HerbHall/ponplan/internal/webhook"
	"github.com/HerbHall/ponplan/pkg/plugin"
)

func main() {
	// Subcommand dispatch (before flag.Parse).
	if len(os.Args) > 1 {
		var err error
		switch os.Args[1] {
		case "version":
			fmt.Println(version.Info())
			return
		case "rules":
			err = runRules(os.Args[2:], os.Stdout)
		case "plan":
			err = runPlan(os.Args[2:], os.Stdout)
		case "seed":
			err = runSeed(os.Args[2:], os.Stdout)
		case "serve":
			os.Args = append(os.Args[:1], os.Args[2:]...)
			serve()
			return
		default:
			serve()
			return
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "ponplan %s: %v\n", os.Args[1], err)
			os.Exit(1)
		}
		return
	}
	serve()
}

func serve() {
	configPath := flag.String("config", "", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	// Load configuration (before logger, so log level/format can be configured).
	viperCfg, err := server.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(viperCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("ponplan server starting", zap.String("version", version.Short()))

	if f := viperCfg.ConfigFileUsed(); f != "" {
		logger.Info("configuration loaded",
			zap.String("component", "config"),
			zap.String("source", f),
		)
	} else {
		logger.Warn("no configuration file found, using defaults",
			zap.String("component", "config"),
		)
	}

	srvCfg, err := server.ServerConfig(viperCfg)
	if err != nil {
		logger.Fatal("invalid server configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbPath := viperCfg.GetString("database.path")
	db, err := store.New(dbPath)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()

	if err := db.CheckVersion(ctx, version.Short()); err != nil {
		logger.Fatal("database version check failed", zap.Error(err))
	}
	logger.Info("database initialized",
		zap.String("component", "database"),
		zap.String("path", dbPath),
	)

	bus := event.NewBus(logger.Named("event"))
	reg := registry.New(logger.Named("registry"))

	// Compile-time composition.
	modules := []plugin.Plugin{
		inventory.New(),
		planner.New(),
		webhook.New(),
	}
	for _, m := range modules {
		if err := reg.Register(m); err != nil {
			logger.Fatal("failed to register plugin", zap.Error(err))
		}
	}
	if err := reg.Validate(); err != nil {
		logger.Fatal("plugin validation failed", zap.Error(err))
	}

	if err := reg.InitAll(ctx, bus, func(name string) plugin.Dependencies {
		return plugin.Dependencies{
			Config:  config.ForPlugin(viperCfg, name),
			Logger:  logger.Named(name),
			Store:   db,
			Bus:     bus,
			Plugins: reg,
		}
	}); err != nil {
		logger.Fatal("failed to initialize plugins", zap.Error(err))
	}
	if err := reg.StartAll(ctx); err != nil {
		logger.Fatal("failed to start plugins", zap.Error(err))
	}

	srv := server.New(srvCfg, reg, logger, db.Ping)

	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	logger.Info("ponplan server ready", zap.String("addr", srvCfg.Addr()))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	reg.StopAll(shutdownCtx)
	bus.Wait()

	logger.Info("ponplan server stopped")
}
