package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/aviationwx/aviationwx/internal/airports"
	"github.com/aviationwx/aviationwx/internal/config"
	"github.com/aviationwx/aviationwx/internal/guides"
	"github.com/aviationwx/aviationwx/internal/ratelimit"
	"github.com/aviationwx/aviationwx/internal/status"
	"github.com/aviationwx/aviationwx/internal/storage/sqlite"
	"github.com/aviationwx/aviationwx/internal/weather"
	"github.com/aviationwx/aviationwx/internal/web"
	"github.com/aviationwx/aviationwx/internal/webcam"
	"github.com/aviationwx/aviationwx/internal/websocket"
	"github.com/aviationwx/aviationwx/pkg/logger"
)

var (
	// Version is injected at build time
	Version = "dev"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file (optional - will search in configs/ and root directory)")
	flag.Parse()

	cfg, err := config.LoadWithFallback(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting AviationWX server",
		logger.String("version", Version),
		logger.String("config_path", *configPath),
	)

	// Airport registry. A broken registry file keeps the server up in a
	// degraded mode: airport routes answer 503 and the status page
	// reports the registry component down, so a bad deploy of
	// airports.json is visible instead of a crash loop.
	registry, err := airports.LoadRegistry(cfg.Registry.AirportsPath, log)
	if err != nil {
		log.Error("Failed to load airport registry, continuing degraded",
			logger.String("path", cfg.Registry.AirportsPath),
			logger.Error(err))
		registry = nil
	} else {
		log.Info("Airport registry loaded",
			logger.String("path", cfg.Registry.AirportsPath),
			logger.Int("airports", registry.Count()))
	}

	// SQLite storage
	dbDir := filepath.Dir(cfg.Storage.SQLitePath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		log.Error("Failed to create database directory", logger.Error(err), logger.String("path", dbDir))
		os.Exit(1)
	}

	observations, err := sqlite.NewObservationStorage(cfg.Storage.SQLitePath, log)
	if err != nil {
		log.Error("Failed to create SQLite storage", logger.Error(err))
		os.Exit(1)
	}
	defer observations.Close()
	log.Info("Using SQLite storage", logger.String("path", cfg.Storage.SQLitePath))

	captures := sqlite.NewCaptureStorage(observations.GetDB(), log)
	statusStorage := sqlite.NewStatusStorage(observations.GetDB(), log)

	// WebSocket hub
	wsServer := websocket.NewServer(log)
	go wsServer.Run()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Weather and webcam services only run with a loaded registry;
	// without one there is nothing to fetch.
	var weatherService *weather.Service
	var webcamService *webcam.Service
	if registry != nil {
		weatherService = weather.NewService(cfg.Weather, registry, log)
		weatherService.SetRecorder(observations)
		weatherService.SetNotifier(wsServer)
		if err := weatherService.Start(); err != nil {
			log.Error("Failed to start weather service", logger.Error(err))
			os.Exit(1)
		}

		webcamService = webcam.NewService(cfg.Webcams, registry, captures, log)
		webcamService.SetNotifier(wsServer)
		if err := webcamService.Start(); err != nil {
			log.Error("Failed to start webcam service", logger.Error(err))
			os.Exit(1)
		}
	}

	// Status monitor
	monitor := status.NewMonitor(cfg.Status, statusStorage, log)
	checkers := []status.Checker{
		status.NewRegistryChecker(registry),
		status.NewDatabaseChecker(observations.GetDB()),
	}
	if weatherService != nil {
		checkers = append(checkers,
			status.NewWeatherChecker(weatherService, time.Duration(cfg.Status.WeatherMaxAgeMinutes)*time.Minute),
			status.NewUpstreamChecker(weatherService),
		)
	}
	if webcamService != nil {
		checkers = append(checkers, status.NewWebcamChecker(webcamService))
	}
	monitor.Register(checkers...)
	monitor.SetNotifier(wsServer)
	if err := monitor.Start(); err != nil {
		log.Error("Failed to start status monitor", logger.Error(err))
		os.Exit(1)
	}

	// Retention pruning
	if cfg.Storage.RetentionDays > 0 {
		go runPruner(ctx, cfg.Storage, observations, captures, statusStorage, log)
	}

	guideLibrary := guides.NewLibrary(cfg.Guides.Dir, log)
	limiter := ratelimit.NewLimiter(cfg.RateLimit, log)

	router := web.NewRouter(cfg, registry, weatherService, webcamService,
		guideLibrary, monitor, observations, limiter, wsServer, log)

	// --- Setup for multiple HTTP servers ---
	var servers []*http.Server
	allPorts := []int{cfg.Server.Port}
	if len(cfg.Server.AdditionalPorts) > 0 {
		allPorts = append(allPorts, cfg.Server.AdditionalPorts...)
	}

	log.Info("Configured listener ports", logger.Any("ports", allPorts))

	handler := router.Routes()
	for _, port := range allPorts {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, port)
		server := &http.Server{
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
			WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
			IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSecs) * time.Second,
		}
		servers = append(servers, server)

		go func(s *http.Server) {
			log.Info("Starting HTTP server", logger.String("addr", s.Addr))
			if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("HTTP server error on startup", logger.String("addr", s.Addr), logger.Error(err))
			}
		}(server)
	}

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("Shutting down server...")

	if weatherService != nil {
		log.Info("Stopping weather service...")
		weatherService.Stop()
		log.Info("Weather service stopped.")
	}

	if webcamService != nil {
		log.Info("Stopping webcam service...")
		webcamService.Stop()
		log.Info("Webcam service stopped.")
	}

	log.Info("Stopping status monitor...")
	monitor.Stop()
	log.Info("Status monitor stopped.")

	limiter.Stop()
	wsServer.Stop()

	// Cancel the main context
	cancel()

	// Shutdown all HTTP servers
	log.Info("Shutting down HTTP servers...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	var wg sync.WaitGroup
	for _, s := range servers {
		wg.Add(1)
		go func(srv *http.Server) {
			defer wg.Done()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error("HTTP server shutdown error", logger.String("addr", srv.Addr), logger.Error(err))
			} else {
				log.Info("HTTP server shutdown complete", logger.String("addr", srv.Addr))
			}
		}(s)
	}
	wg.Wait()

	log.Info("Server fully stopped")
}

// runPruner deletes rows older than the retention window on a timer
func runPruner(ctx context.Context, cfg config.StorageConfig, observations *sqlite.ObservationStorage, captures *sqlite.CaptureStorage, statusStorage *sqlite.StatusStorage, log *logger.Logger) {
	interval := time.Duration(cfg.PruneIntervalHours) * time.Hour
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().AddDate(0, 0, -cfg.RetentionDays)
			if _, err := observations.Prune(cutoff); err != nil {
				log.Error("Failed to prune observations", logger.Error(err))
			}
			if _, err := captures.Prune(cutoff); err != nil {
				log.Error("Failed to prune capture log", logger.Error(err))
			}
			if _, err := statusStorage.Prune(cutoff); err != nil {
				log.Error("Failed to prune status samples", logger.Error(err))
			}
		}
	}
}
