package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/AaronLay10/AvatarLink/internal/api"
	"github.com/AaronLay10/AvatarLink/internal/assets"
	"github.com/AaronLay10/AvatarLink/internal/config"
	"github.com/AaronLay10/AvatarLink/internal/events"
	"github.com/AaronLay10/AvatarLink/internal/hub"
	"github.com/AaronLay10/AvatarLink/internal/mqtt"
	"github.com/AaronLay10/AvatarLink/internal/opconfig"
	"github.com/AaronLay10/AvatarLink/internal/presentation"
	"github.com/AaronLay10/AvatarLink/internal/reconcile"
	"github.com/AaronLay10/AvatarLink/internal/scene"
	"github.com/AaronLay10/AvatarLink/internal/storage/postgres"
	"github.com/AaronLay10/AvatarLink/internal/version"
)

func main() {
	configPath := flag.String("config", "monitor.yaml", "path to monitor.yaml")
	envPath := flag.String("env", ".env", "path to .env file")
	flag.Parse()

	if err := config.LoadEnv(*envPath); err != nil {
		log.Fatalf("failed to load env file: %v", err)
	}

	cfg, err := config.LoadMonitorConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load monitor.yaml: %v", err)
	}

	// An unreadable operating config or scene file at boot is fatal; the
	// operator needs to know before any client connects.
	store := opconfig.NewStore(cfg.Monitor.ConfigPath)
	if err := store.Load(); err != nil {
		log.Fatalf("failed to load operating config %s: %v", cfg.Monitor.ConfigPath, err)
	}
	scenes := scene.NewSelector(cfg.Monitor.ScenePath, cfg.SettleInterval())
	if err := scenes.Load(); err != nil {
		log.Fatalf("failed to load scene file %s: %v", cfg.Monitor.ScenePath, err)
	}

	assetsBase := cfg.Assets.BaseDir
	if assetsBase == "" {
		assetsBase = scenes.AssetsBase()
	}
	catalog := assets.NewCatalog(assetsBase)

	if cfg.Journal.Enabled {
		pg, err := postgres.New(cfg.ServiceID())
		if err != nil {
			log.Printf("journal disabled: %v", err)
			api.SetPostgresConnected(false)
		} else {
			events.SetPostgresClient(pg)
			api.SetPostgresConnected(true)
			defer pg.Close()
		}
	}

	api.InitMetrics()
	api.SetServiceName(cfg.ServiceID())
	api.InitAuth()
	api.InitTLS()

	rendererHub := hub.NewHub(store)
	api.SetHub(rendererHub)

	// The COM automation bridge runs out of process; without one attached
	// the monitor degrades to config and scene reconciliation only.
	var backend presentation.Backend = presentation.Offline{}

	loop := reconcile.New(reconcile.Config{
		Store:    store,
		Scenes:   scenes,
		Backend:  backend,
		Catalog:  catalog,
		Hub:      rendererHub,
		Interval: cfg.PollInterval(),
		Role:     cfg.Assets.Role,
		Hooks: reconcile.Hooks{
			Tick:             api.IncTicks,
			BackendAvailable: api.SetBackendAvailable,
		},
	})
	api.SetStatusFunc(loop.Status)

	bridge := mqtt.NewBridge(mqtt.NewClient(cfg.ServiceID()), store)
	if bridge.Start() {
		api.SetMQTTConnected(true)
		if err := bridge.PublishStatus(loop.Status()); err != nil {
			log.Printf("mqtt status publish failed: %v", err)
		}
	}
	defer bridge.Stop()

	// The operating config's connection parameters win over monitor.yaml,
	// matching what the renderer clients are told to dial.
	port := cfg.APIPort()
	if doc := store.Document(); doc.ServerPort > 0 {
		port = doc.ServerPort
	}
	api.Start(port)

	hostname, _ := os.Hostname()
	events.Emit("info", "system.startup", "monitor starting", map[string]interface{}{
		"service":  cfg.ServiceID(),
		"version":  version.Version,
		"hostname": hostname,
		"pid":      os.Getpid(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loop.AnnounceStartup()
	loop.Run(ctx)

	events.Emit("info", "system.shutdown", "monitor stopping", map[string]interface{}{
		"service": cfg.ServiceID(),
	})
	rendererHub.Shutdown()
}
