package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the main application configuration structure
// containing all configuration sections
type Config struct {
	Server    ServerConfig    `toml:"server"`     // HTTP server settings
	Logging   LoggingConfig   `toml:"logging"`    // Application logging settings
	Site      SiteConfig      `toml:"site"`       // Site identity and presentation settings
	Registry  RegistryConfig  `toml:"registry"`   // Airport registry settings
	Weather   WeatherConfig   `toml:"wx"`         // Weather data fetching and caching settings
	Webcams   WebcamConfig    `toml:"webcams"`    // Webcam capture and serving settings
	Storage   StorageConfig   `toml:"storage"`    // Data persistence settings
	RateLimit RateLimitConfig `toml:"rate_limit"` // Per-client request rate limiting
	Guides    GuidesConfig    `toml:"guides"`     // Markdown guide rendering settings
	Status    StatusConfig    `toml:"status"`     // Health aggregation thresholds
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port               int      `toml:"port"`                  // Primary HTTP port for the server
	Host               string   `toml:"host"`                  // Host address to bind to (e.g., 127.0.0.1 for localhost only, 0.0.0.0 for all interfaces)
	AdditionalPorts    []int    `toml:"additional_ports"`      // Additional HTTP ports to listen on (useful for multiple interfaces)
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`  // List of origins allowed for CORS requests on API and embed routes (use ["*"] for all origins)
	ReadTimeoutSecs    int      `toml:"read_timeout_seconds"`  // Maximum duration for reading the entire request (0 = no timeout)
	WriteTimeoutSecs   int      `toml:"write_timeout_seconds"` // Maximum duration for writing the response (0 = no timeout)
	IdleTimeoutSecs    int      `toml:"idle_timeout_seconds"`  // Maximum duration to wait for the next request when keep-alives are enabled
	StaticFilesDir     string   `toml:"static_files_dir"`      // Directory to serve static files from (e.g., "www")
	TemplatesDir       string   `toml:"templates_dir"`         // Directory containing HTML page templates
	BaseURL            string   `toml:"base_url"`              // Public base URL of the site, used for canonical links, sitemap and embed snippets (e.g., "https://aviationwx.org")
}

// LoggingConfig contains application logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`  // Log level: "debug", "info", "warn", or "error"
	Format string `toml:"format"` // Log format: "json" (structured) or "console" (human-readable)
}

// SiteConfig contains site identity settings shared by all rendered pages
type SiteConfig struct {
	Name           string `toml:"name"`            // Site name shown in titles and navigation (e.g., "AviationWX")
	Tagline        string `toml:"tagline"`         // Short tagline used in meta descriptions
	DefaultAirport string `toml:"default_airport"` // Airport ident featured on the home page (must exist in the registry)
	ContactEmail   string `toml:"contact_email"`   // Contact address shown in the footer and on the config generator success page
}

// RegistryConfig contains airport registry settings
type RegistryConfig struct {
	AirportsPath string `toml:"airports_path"` // Path to the airports.json registry file
}

// WeatherConfig contains weather data fetching and caching configuration
type WeatherConfig struct {
	APIBaseURL             string `toml:"api_base_url"`             // Base URL for the aviation weather API (e.g., https://aviationweather.gov/api/data)
	RefreshIntervalMinutes int    `toml:"refresh_interval_minutes"` // Weather data refresh interval in minutes
	RequestTimeoutSeconds  int    `toml:"request_timeout_seconds"`  // HTTP request timeout in seconds
	MaxRetries             int    `toml:"max_retries"`              // Maximum number of retry attempts for failed requests
	FetchTAF               bool   `toml:"fetch_taf"`                // Whether to fetch TAF forecasts in addition to METARs
	CacheExpiryMinutes     int    `toml:"cache_expiry_minutes"`     // How long to keep cached data if refresh fails
	MaxConcurrentFetches   int    `toml:"max_concurrent_fetches"`   // Upper bound on simultaneous upstream requests during a refresh sweep
}

// WebcamConfig contains webcam capture pipeline configuration
type WebcamConfig struct {
	CacheDir               string `toml:"cache_dir"`                // Directory where fetched frames are stored ({cache_dir}/{airport}/{cam}/latest.jpg)
	IncomingDir            string `toml:"incoming_dir"`             // Directory scanned for pushed frames, one subdirectory per camera MAC address
	DefaultIntervalSeconds int    `toml:"default_interval_seconds"` // Capture interval for cameras that do not specify their own
	RequestTimeoutSeconds  int    `toml:"request_timeout_seconds"`  // HTTP timeout for pull camera fetches
	MaxImageBytes          int64  `toml:"max_image_bytes"`          // Reject fetched frames larger than this
	StaleAfterMinutes      int    `toml:"stale_after_minutes"`      // A camera with no new frame for this long is flagged stale
}

// StorageConfig contains data persistence configuration
type StorageConfig struct {
	Type               string `toml:"type"`                 // Storage backend type (currently only "sqlite" is supported)
	SQLitePath         string `toml:"sqlite_path"`          // Path to the SQLite database file
	RetentionDays      int    `toml:"retention_days"`       // Observations and capture log rows older than this are pruned
	PruneIntervalHours int    `toml:"prune_interval_hours"` // How often the retention pruning job runs
}

// RateLimitConfig contains per-client request rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool `toml:"enabled"`             // Enable or disable rate limiting
	RequestsPerMinute int  `toml:"requests_per_minute"` // Sustained request budget per client IP
	Burst             int  `toml:"burst"`               // Burst allowance per client IP
}

// GuidesConfig contains markdown guide rendering configuration
type GuidesConfig struct {
	Dir string `toml:"dir"` // Directory containing guide markdown files (NN-slug.md)
}

// StatusConfig contains health aggregation thresholds
type StatusConfig struct {
	WeatherMaxAgeMinutes  int `toml:"weather_max_age_minutes"` // Weather data older than this degrades the weather component
	SampleIntervalMinutes int `toml:"sample_interval_minutes"` // How often component states are sampled into storage
}

// Load loads the configuration from the specified file path
func Load(path string) (*Config, error) {
	var config Config

	// Check if the file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	// Read the config file
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	return &config, nil
}

// LoadWithFallback loads the configuration by checking multiple locations in order of preference
func LoadWithFallback(preferredPath string) (*Config, error) {
	// List of paths to check in order of preference
	searchPaths := []string{
		preferredPath,         // User-specified path (if provided)
		"configs/config.toml", // Legacy location in configs/ folder
		"config.toml",         // Root directory
	}

	// Remove duplicates while preserving order
	uniquePaths := make([]string, 0, len(searchPaths))
	seen := make(map[string]bool)
	for _, path := range searchPaths {
		if path != "" && !seen[path] {
			uniquePaths = append(uniquePaths, path)
			seen[path] = true
		}
	}

	var lastErr error
	for _, path := range uniquePaths {
		if _, err := os.Stat(path); err == nil {
			// File exists, try to load it
			config, err := Load(path)
			if err != nil {
				lastErr = fmt.Errorf("failed to load config from %s: %w", path, err)
				continue
			}
			return config, nil
		}
		lastErr = fmt.Errorf("config file not found: %s", path)
	}

	return nil, fmt.Errorf("config file not found in any of the expected locations: %v. Last error: %w", uniquePaths, lastErr)
}

// Validate validates the configuration and applies defaults
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	// Validate AdditionalPorts
	portsSeen := make(map[int]bool)
	portsSeen[c.Server.Port] = true
	for _, p := range c.Server.AdditionalPorts {
		if p <= 0 || p > 65535 {
			return fmt.Errorf("invalid additional server port: %d", p)
		}
		if portsSeen[p] {
			return fmt.Errorf("duplicate port configured: %d (primary or additional)", p)
		}
		portsSeen[p] = true
	}

	// Set default static files directory if not specified
	if c.Server.StaticFilesDir == "" {
		c.Server.StaticFilesDir = "www"
	}
	if c.Server.TemplatesDir == "" {
		c.Server.TemplatesDir = "templates"
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = fmt.Sprintf("http://%s:%d", c.Server.Host, c.Server.Port)
	}

	// Validate logging config
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// Valid log level
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "json", "console":
		// Valid log format
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	// Site defaults
	if c.Site.Name == "" {
		c.Site.Name = "AviationWX"
	}

	// Validate registry config
	if c.Registry.AirportsPath == "" {
		return fmt.Errorf("registry airports_path is required")
	}

	// Validate weather config
	if err := c.ValidateWeather(); err != nil {
		return err
	}

	// Validate webcam config
	if err := c.ValidateWebcams(); err != nil {
		return err
	}

	// Validate storage config
	if c.Storage.Type == "" {
		c.Storage.Type = "sqlite"
	}
	if c.Storage.Type != "sqlite" {
		return fmt.Errorf("invalid storage type: %s (only 'sqlite' is supported)", c.Storage.Type)
	}
	if c.Storage.SQLitePath == "" {
		return fmt.Errorf("sqlite_path is required when storage type is sqlite")
	}
	if c.Storage.RetentionDays <= 0 {
		c.Storage.RetentionDays = 7
	}
	if c.Storage.PruneIntervalHours <= 0 {
		c.Storage.PruneIntervalHours = 6
	}

	// Rate limit defaults
	if c.RateLimit.RequestsPerMinute <= 0 {
		c.RateLimit.RequestsPerMinute = 30
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 10
	}

	// Guides default
	if c.Guides.Dir == "" {
		c.Guides.Dir = "guides"
	}

	// Status defaults
	if c.Status.WeatherMaxAgeMinutes <= 0 {
		c.Status.WeatherMaxAgeMinutes = 3 * c.Weather.RefreshIntervalMinutes
	}
	if c.Status.SampleIntervalMinutes <= 0 {
		c.Status.SampleIntervalMinutes = 5
	}

	return nil
}

// ValidateWeather validates the weather configuration
func (c *Config) ValidateWeather() error {
	// Validate refresh interval
	if c.Weather.RefreshIntervalMinutes <= 0 {
		return fmt.Errorf("weather refresh_interval_minutes must be greater than 0: %d", c.Weather.RefreshIntervalMinutes)
	}

	// Validate request timeout
	if c.Weather.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("weather request_timeout_seconds must be greater than 0: %d", c.Weather.RequestTimeoutSeconds)
	}

	// Validate max retries
	if c.Weather.MaxRetries < 0 {
		return fmt.Errorf("weather max_retries must be 0 or greater: %d", c.Weather.MaxRetries)
	}

	// Validate cache expiry
	if c.Weather.CacheExpiryMinutes <= 0 {
		return fmt.Errorf("weather cache_expiry_minutes must be greater than 0: %d", c.Weather.CacheExpiryMinutes)
	}

	// Validate API base URL
	if c.Weather.APIBaseURL == "" {
		return fmt.Errorf("weather api_base_url cannot be empty")
	}

	if c.Weather.MaxConcurrentFetches <= 0 {
		c.Weather.MaxConcurrentFetches = 4
	}

	return nil
}

// ValidateWebcams validates the webcam configuration
func (c *Config) ValidateWebcams() error {
	if c.Webcams.CacheDir == "" {
		return fmt.Errorf("webcams cache_dir is required")
	}
	if c.Webcams.DefaultIntervalSeconds <= 0 {
		c.Webcams.DefaultIntervalSeconds = 300
	}
	if c.Webcams.RequestTimeoutSeconds <= 0 {
		c.Webcams.RequestTimeoutSeconds = 20
	}
	if c.Webcams.MaxImageBytes <= 0 {
		c.Webcams.MaxImageBytes = 8 << 20 // 8 MiB
	}
	if c.Webcams.StaleAfterMinutes <= 0 {
		c.Webcams.StaleAfterMinutes = 30
	}
	return nil
}

// WeatherRefreshInterval returns the refresh interval as a duration
func (c *Config) WeatherRefreshInterval() time.Duration {
	return time.Duration(c.Weather.RefreshIntervalMinutes) * time.Minute
}
