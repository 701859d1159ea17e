package webcam

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/aviationwx/aviationwx/internal/airports"
	"github.com/aviationwx/aviationwx/internal/config"
	"github.com/aviationwx/aviationwx/internal/storage/sqlite"
	"github.com/aviationwx/aviationwx/pkg/logger"
)

// incomingScanSeconds is how often the push camera drop directory is
// checked for new uploads
const incomingScanSeconds = 30

// Notifier is told when a camera stores a new frame
type Notifier interface {
	WebcamUpdated(ident, camID string)
}

// Service captures frames for pull cameras on a schedule and promotes
// pushed uploads into the frame store
type Service struct {
	config   config.WebcamConfig
	registry *airports.Registry
	store    frameStore
	client   *http.Client
	captures *sqlite.CaptureStorage
	notifier Notifier
	logger   *logger.Logger

	scheduler *gocron.Scheduler

	mu         sync.Mutex
	started    bool
	validators map[string]cacheValidator
}

// NewService creates a new webcam service. The capture log may be nil
// when persistent storage is disabled.
func NewService(cfg config.WebcamConfig, registry *airports.Registry, captures *sqlite.CaptureStorage, log *logger.Logger) *Service {
	return &Service{
		config:   cfg,
		registry: registry,
		store:    frameStore{root: cfg.CacheDir},
		client: &http.Client{
			Timeout: time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
		},
		captures:   captures,
		logger:     log.Named("webcam-service"),
		validators: make(map[string]cacheValidator),
	}
}

// SetNotifier wires new-frame notifications. Must be called before
// Start.
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// Start schedules a capture job per pull camera and the incoming scan
// for push cameras
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.scheduler = gocron.NewScheduler(time.UTC)

	var pullCams, pushCams int
	for _, apt := range s.registry.All() {
		for _, cam := range apt.Webcams {
			switch cam.Mode {
			case airports.ModePush:
				pushCams++
			case airports.ModePull:
				pullCams++

				apt, cam := apt, cam
				interval := cam.IntervalSeconds
				if interval <= 0 {
					interval = s.config.DefaultIntervalSeconds
				}
				if _, err := s.scheduler.Every(interval).Seconds().Do(func() {
					s.captureOne(apt, cam)
				}); err != nil {
					return fmt.Errorf("failed to schedule capture for %s/%s: %w", apt.Ident, cam.ID, err)
				}
			}
		}
	}

	if pushCams > 0 && s.config.IncomingDir != "" {
		if _, err := s.scheduler.Every(incomingScanSeconds).Seconds().Do(s.scanIncoming); err != nil {
			return fmt.Errorf("failed to schedule incoming scan: %w", err)
		}
	}

	s.scheduler.StartAsync()
	s.started = true

	s.logger.Info("Webcam service started",
		logger.Int("pull_cameras", pullCams),
		logger.Int("push_cameras", pushCams))
	return nil
}

// Stop halts all capture jobs
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.scheduler.Stop()
	s.started = false
	s.logger.Info("Webcam service stopped")
	return nil
}

// Latest returns the newest stored frame for a camera
func (s *Service) Latest(ident, camID string) (*Frame, error) {
	return s.store.Latest(ident, camID)
}

// CamStatus is the freshness view of one camera
type CamStatus struct {
	Cam       airports.Webcam
	HasFrame  bool
	FetchedAt time.Time
	Stale     bool
}

// Statuses reports frame freshness for every camera at an airport
func (s *Service) Statuses(apt *airports.Airport) []CamStatus {
	staleAfter := time.Duration(s.config.StaleAfterMinutes) * time.Minute

	var out []CamStatus
	for _, cam := range apt.Webcams {
		cs := CamStatus{Cam: cam, Stale: true}
		if frame, err := s.store.Latest(apt.Ident, cam.ID); err == nil {
			cs.HasFrame = true
			cs.FetchedAt = frame.FetchedAt
			cs.Stale = time.Since(frame.FetchedAt) > staleAfter
		}
		out = append(out, cs)
	}
	return out
}

// StaleCounts returns how many cameras are stale across the whole
// registry, for the status page
func (s *Service) StaleCounts() (stale, total int) {
	for _, apt := range s.registry.All() {
		for _, cs := range s.Statuses(apt) {
			total++
			if cs.Stale {
				stale++
			}
		}
	}
	return stale, total
}
