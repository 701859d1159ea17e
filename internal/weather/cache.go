package weather

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aviationwx/aviationwx/internal/airports"
	"github.com/aviationwx/aviationwx/internal/config"
	"github.com/aviationwx/aviationwx/pkg/logger"
)

type cacheEntry struct {
	snapshot  *Snapshot
	expiresAt time.Time
}

func (e *cacheEntry) expired() bool {
	return time.Now().After(e.expiresAt)
}

// Cache holds the latest weather snapshot per airport with thread-safe
// operations
type Cache struct {
	entries map[string]*cacheEntry
	config  config.WeatherConfig
	logger  *logger.Logger
	mu      sync.RWMutex
}

// NewCache creates a new weather cache manager
func NewCache(config config.WeatherConfig, logger *logger.Logger) *Cache {
	return &Cache{
		entries: make(map[string]*cacheEntry),
		config:  config,
		logger:  logger.Named("weather-cache"),
	}
}

// Get returns the cached snapshot for an airport.
// Returns nil if no data has been fetched yet. Expired snapshots are
// still returned; callers decide how to present stale data.
func (c *Cache) Get(ident string) *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[ident]
	if !ok {
		return nil
	}
	return entry.snapshot
}

// IsExpired checks if the cached data for an airport has expired.
// Missing entries count as expired.
func (c *Cache) IsExpired(ident string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[ident]
	if !ok {
		return true
	}
	return entry.expired()
}

// Update folds new fetch results into the snapshot for an airport.
// Fetch failures keep the previous data and are recorded in
// FetchErrors. The second return value reports whether the METAR or
// TAF actually changed.
func (c *Cache) Update(apt *airports.Airport, results []FetchResult) (*Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ident := apt.Ident
	current := c.entries[ident]

	newSnap := &Snapshot{
		Ident:       ident,
		Station:     apt.Station(),
		LastUpdated: time.Now(),
		FetchErrors: []string{},
	}
	if current != nil {
		newSnap.METAR = current.snapshot.METAR
		newSnap.TAF = current.snapshot.TAF
		newSnap.Decoded = current.snapshot.Decoded
	}

	changed := false
	for _, result := range results {
		switch result.Type {
		case WeatherTypeMETAR:
			if result.Err != nil {
				newSnap.FetchErrors = append(newSnap.FetchErrors, fmt.Sprintf("METAR: %s", result.Err.Error()))
				c.logger.Warn("Failed to fetch METAR data",
					logger.String("airport", ident),
					logger.Error(result.Err))
			} else {
				if metarData, ok := result.Data.(*METARResponse); ok {
					if newSnap.METAR == nil || newSnap.METAR.RawOb != metarData.RawOb {
						changed = true
					}
					newSnap.METAR = metarData
					newSnap.Decoded = Decode(metarData)
					c.logger.Debug("METAR data updated",
						logger.String("airport", ident))
				} else {
					c.logger.Error("Failed to cast METAR data to *METARResponse",
						logger.String("airport", ident))
				}
			}

		case WeatherTypeTAF:
			if result.Err != nil {
				newSnap.FetchErrors = append(newSnap.FetchErrors, fmt.Sprintf("TAF: %s", result.Err.Error()))
				c.logger.Warn("Failed to fetch TAF data",
					logger.String("airport", ident),
					logger.Error(result.Err))
			} else {
				if tafData, ok := result.Data.(*TAFResponse); ok {
					if newSnap.TAF == nil || newSnap.TAF.RawTAF != tafData.RawTAF {
						changed = true
					}
					newSnap.TAF = tafData
					c.logger.Debug("TAF data updated",
						logger.String("airport", ident))
				} else {
					c.logger.Error("Failed to cast TAF data to *TAFResponse",
						logger.String("airport", ident))
				}
			}
		}
	}

	expiryDuration := time.Duration(c.config.CacheExpiryMinutes) * time.Minute
	c.entries[ident] = &cacheEntry{
		snapshot:  newSnap,
		expiresAt: time.Now().Add(expiryDuration),
	}

	successCount := len(results) - len(newSnap.FetchErrors)
	c.logger.Debug("Weather cache updated",
		logger.String("airport", ident),
		logger.Int("successful_fetches", successCount),
		logger.Int("failed_fetches", len(newSnap.FetchErrors)),
		logger.Bool("changed", changed),
		logger.Time("expires_at", time.Now().Add(expiryDuration)))

	return newSnap, changed
}

// Snapshots returns all cached snapshots sorted by airport ident
func (c *Cache) Snapshots() []*Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snaps := make([]*Snapshot, 0, len(c.entries))
	for _, entry := range c.entries {
		snaps = append(snaps, entry.snapshot)
	}
	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].Ident < snaps[j].Ident
	})
	return snaps
}

// Invalidate clears the cached snapshot for one airport
func (c *Cache) Invalidate(ident string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, ident)
	c.logger.Info("Weather cache invalidated",
		logger.String("airport", ident))
}

// GetStats returns cache statistics for the status page
func (c *Cache) GetStats() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := map[string]interface{}{
		"airports":     len(c.entries),
		"expired":      0,
		"error_count":  0,
		"last_updated": time.Time{},
	}

	var expired, errorCount int
	var lastUpdated time.Time
	for _, entry := range c.entries {
		if entry.expired() {
			expired++
		}
		errorCount += len(entry.snapshot.FetchErrors)
		if entry.snapshot.LastUpdated.After(lastUpdated) {
			lastUpdated = entry.snapshot.LastUpdated
		}
	}
	stats["expired"] = expired
	stats["error_count"] = errorCount
	stats["last_updated"] = lastUpdated

	return stats
}
