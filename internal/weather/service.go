package weather

import (
	"context"
	"sync"
	"time"

	"github.com/aviationwx/aviationwx/internal/airports"
	"github.com/aviationwx/aviationwx/internal/config"
	"github.com/aviationwx/aviationwx/pkg/logger"
)

// Recorder persists decoded observations for trend history
type Recorder interface {
	Insert(obs *Observation) (bool, error)
}

// Notifier is told when an airport's weather actually changed
type Notifier interface {
	WeatherUpdated(snapshot *Snapshot)
}

// Service manages weather data fetching and caching for every airport
// in the registry
type Service struct {
	config   config.WeatherConfig
	registry *airports.Registry
	client   *Client
	cache    *Cache
	recorder Recorder
	notifier Notifier
	logger   *logger.Logger

	// Service lifecycle
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
	mu      sync.RWMutex

	// Initial data readiness
	initialDataReady chan struct{}
	initialDataOnce  sync.Once
}

// NewService creates a new weather service
func NewService(cfg config.WeatherConfig, registry *airports.Registry, log *logger.Logger) *Service {
	ctx, cancel := context.WithCancel(context.Background())

	return &Service{
		config:           cfg,
		registry:         registry,
		client:           NewClient(cfg, log),
		cache:            NewCache(cfg, log),
		logger:           log.Named("weather-service"),
		ctx:              ctx,
		cancel:           cancel,
		initialDataReady: make(chan struct{}),
	}
}

// SetRecorder wires observation history storage. Must be called before
// Start.
func (s *Service) SetRecorder(r Recorder) {
	s.recorder = r
}

// SetNotifier wires change notifications. Must be called before Start.
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// Start begins the weather service background operations
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil // Already started
	}

	s.logger.Info("Starting weather service",
		logger.Int("airports", s.registry.Count()),
		logger.Int("refresh_interval_minutes", s.config.RefreshIntervalMinutes))

	// Perform initial fetch
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.performInitialFetch()
	}()

	// Start background refresh goroutine
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.backgroundRefresh()
	}()

	s.started = true
	return nil
}

// Stop gracefully shuts down the weather service
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil // Already stopped
	}

	s.logger.Info("Stopping weather service")

	// Cancel context to signal goroutines to stop
	s.cancel()

	// Wait for all goroutines to finish
	s.wg.Wait()

	s.started = false
	s.logger.Info("Weather service stopped")
	return nil
}

// GetSnapshot returns the current cached weather for an airport.
// Waits for initial data to be available if the service just started.
// Never returns nil for a known airport; failures surface through the
// snapshot's FetchErrors.
func (s *Service) GetSnapshot(ident string) *Snapshot {
	// Wait for initial data to be ready (with timeout)
	select {
	case <-s.initialDataReady:
		// Initial data is ready, proceed normally
	case <-time.After(30 * time.Second):
		s.logger.Warn("Timeout waiting for initial weather data",
			logger.String("airport", ident))
		return &Snapshot{
			Ident:       ident,
			LastUpdated: time.Now(),
			FetchErrors: []string{"Weather data is still being fetched, please try again in a moment"},
		}
	}

	snap := s.cache.Get(ident)
	if snap == nil {
		// This shouldn't happen after initial data is ready, but handle gracefully
		s.logger.Warn("No weather data available after initial fetch completed",
			logger.String("airport", ident))
		return &Snapshot{
			Ident:       ident,
			LastUpdated: time.Now(),
			FetchErrors: []string{"Weather data temporarily unavailable"},
		}
	}

	return snap
}

// Snapshots returns the latest cached snapshot for every airport
func (s *Service) Snapshots() []*Snapshot {
	return s.cache.Snapshots()
}

// IsStale reports whether the cached weather for an airport is older
// than the given age
func (s *Service) IsStale(ident string, maxAge time.Duration) bool {
	snap := s.cache.Get(ident)
	if snap == nil {
		return true
	}
	return snap.Stale(maxAge)
}

// RefreshNow triggers an immediate refresh of all weather data
func (s *Service) RefreshNow() {
	s.logger.Info("Manual weather refresh triggered")
	go s.refreshAll()
}

// GetCacheStats returns cache statistics
func (s *Service) GetCacheStats() map[string]interface{} {
	return s.cache.GetStats()
}

// BreakerState reports the upstream circuit breaker state
func (s *Service) BreakerState() string {
	return s.client.BreakerState()
}

// IsStarted returns whether the service is currently running
func (s *Service) IsStarted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// performInitialFetch performs the first sweep on service start
func (s *Service) performInitialFetch() {
	s.logger.Info("Performing initial weather data fetch",
		logger.Int("airports", s.registry.Count()))

	s.refreshAll()

	// Signal that initial data is ready
	s.initialDataOnce.Do(func() {
		close(s.initialDataReady)
		s.logger.Info("Initial weather data fetch completed")
	})
}

// backgroundRefresh runs the periodic weather data refresh
func (s *Service) backgroundRefresh() {
	refreshInterval := time.Duration(s.config.RefreshIntervalMinutes) * time.Minute
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	s.logger.Info("Background weather refresh started",
		logger.String("interval", refreshInterval.String()))

	for {
		select {
		case <-s.ctx.Done():
			s.logger.Info("Background weather refresh stopped")
			return
		case <-ticker.C:
			s.logger.Debug("Periodic weather refresh triggered")
			s.refreshAll()
		}
	}
}

// refreshAll sweeps every airport in the registry with a bounded
// number of concurrent fetches
func (s *Service) refreshAll() {
	startTime := time.Now()
	all := s.registry.All()

	sem := make(chan struct{}, s.config.MaxConcurrentFetches)
	var sweep sync.WaitGroup

	for _, apt := range all {
		select {
		case <-s.ctx.Done():
			s.logger.Info("Weather sweep aborted, service stopping")
			return
		case sem <- struct{}{}:
		}

		sweep.Add(1)
		go func(apt *airports.Airport) {
			defer sweep.Done()
			defer func() { <-sem }()
			s.refreshAirport(apt)
		}(apt)
	}

	sweep.Wait()

	s.logger.Info("Weather sweep completed",
		logger.Int("airports", len(all)),
		logger.String("duration", time.Since(startTime).String()))
}

// refreshAirport fetches weather for one airport and updates the cache
func (s *Service) refreshAirport(apt *airports.Airport) {
	s.logger.Debug("Fetching weather data",
		logger.String("airport", apt.Ident))

	results := s.client.FetchForAirport(apt)
	snap, changed := s.cache.Update(apt, results)

	if !changed {
		return
	}

	if s.recorder != nil {
		if obs := ObservationFromSnapshot(snap); obs != nil {
			inserted, err := s.recorder.Insert(obs)
			if err != nil {
				s.logger.Error("Failed to record observation",
					logger.String("airport", apt.Ident),
					logger.Error(err))
			} else if inserted {
				s.logger.Debug("Observation recorded",
					logger.String("airport", apt.Ident),
					logger.Time("obs_time", obs.ObsTime))
			}
		}
	}

	if s.notifier != nil {
		s.notifier.WeatherUpdated(snap)
	}
}
