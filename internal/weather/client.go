package weather

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/aviationwx/aviationwx/internal/airports"
	"github.com/aviationwx/aviationwx/internal/config"
	"github.com/aviationwx/aviationwx/internal/observability"
	"github.com/aviationwx/aviationwx/pkg/logger"
)

// maxResponseBytes caps how much of an upstream response is read
const maxResponseBytes = 4 << 20

// Client handles HTTP requests to weather APIs. All upstream calls pass
// through one circuit breaker so a dead upstream fails fast instead of
// stalling every refresh sweep.
type Client struct {
	config     config.WeatherConfig
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *logger.Logger
}

// NewClient creates a new weather API client
func NewClient(cfg config.WeatherConfig, log *logger.Logger) *Client {
	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
		},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "aviationweather",
			MaxRequests: 5,
			Interval:    1 * time.Minute,
			Timeout:     2 * time.Minute,
		}),
		logger: log.Named("weather-client"),
	}
}

// BreakerState reports the circuit breaker state for the status page
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

// FetchMETAR fetches the latest METAR for the specified station
func (c *Client) FetchMETAR(station string) (*METARResponse, error) {
	url := fmt.Sprintf("%s/metar?ids=%s&format=json", c.config.APIBaseURL, station)

	var result []METARResponse // API returns an array
	err := c.fetchWithRetry(url, WeatherTypeMETAR, station, &result)
	if err != nil {
		return nil, err
	}

	if len(result) == 0 {
		return nil, fmt.Errorf("no METAR data found for %s", station)
	}

	// The first element is the latest observation
	return &result[0], nil
}

// FetchTAF fetches the latest TAF for the specified station
func (c *Client) FetchTAF(station string) (*TAFResponse, error) {
	url := fmt.Sprintf("%s/taf?ids=%s&format=json", c.config.APIBaseURL, station)

	var result []TAFResponse
	err := c.fetchWithRetry(url, WeatherTypeTAF, station, &result)
	if err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("no TAF data found for %s", station)
	}
	return &result[0], nil
}

// FetchCustomMETAR fetches a raw METAR string from an arbitrary URL,
// for airports whose AWOS publishes plain text instead of going through
// the NWS feed.
func (c *Client) FetchCustomMETAR(url string) (*METARResponse, error) {
	start := time.Now()

	body, err := c.get(url)
	if err != nil {
		observability.WeatherFetchesTotal.WithLabelValues("custom", "error").Inc()
		observability.WeatherFetchDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		c.logger.Error("Failed to fetch custom METAR",
			logger.String("url", url),
			logger.Error(err))
		return nil, err
	}

	observability.WeatherFetchesTotal.WithLabelValues("custom", "success").Inc()
	observability.WeatherFetchDuration.WithLabelValues("success").Observe(time.Since(start).Seconds())

	raw := strings.TrimSpace(string(body))
	// Some AWOS pages prefix the report with "METAR"
	raw = strings.TrimSpace(strings.TrimPrefix(raw, "METAR"))
	if raw == "" {
		return nil, fmt.Errorf("custom weather source returned an empty body")
	}
	// Only the first line is the report
	if i := strings.IndexByte(raw, '\n'); i > 0 {
		raw = strings.TrimSpace(raw[:i])
	}

	resp := &METARResponse{RawOb: raw}
	if fields := strings.Fields(raw); len(fields) > 0 {
		resp.ICAOId = fields[0]
	}
	if parsed := ParseRawMETAR(raw); parsed != nil && !parsed.ObsTime.IsZero() {
		resp.ObsTime = parsed.ObsTime.Unix()
	}
	return resp, nil
}

// fetchWithRetry performs an HTTP request with retry logic and
// exponential backoff, decoding the JSON response into target
func (c *Client) fetchWithRetry(url string, weatherType WeatherType, station string, target any) error {
	start := time.Now()
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff between retries
			backoffDuration := time.Duration(500*(1<<uint(attempt-1))) * time.Millisecond
			c.logger.Info("Retrying weather data fetch",
				logger.String("type", string(weatherType)),
				logger.String("station", station),
				logger.Int("attempt", attempt),
				logger.String("backoff", backoffDuration.String()))
			time.Sleep(backoffDuration)
		}

		body, err := c.get(url)
		if err != nil {
			// An open breaker will not recover within this retry loop
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				observability.WeatherFetchesTotal.WithLabelValues(string(weatherType), "error").Inc()
				c.logger.Warn("Weather API circuit open, skipping fetch",
					logger.String("type", string(weatherType)),
					logger.String("station", station))
				return fmt.Errorf("weather API unavailable: %w", err)
			}
			lastErr = err
			c.logger.Warn("Weather API request failed, may retry",
				logger.String("type", string(weatherType)),
				logger.String("station", station),
				logger.Error(err),
				logger.Int("attempt", attempt+1),
				logger.Int("max_attempts", c.config.MaxRetries+1))
			continue
		}

		if err := json.Unmarshal(body, target); err != nil {
			lastErr = fmt.Errorf("error decoding weather data: %w", err)
			c.logger.Warn("Failed to decode weather data, may retry",
				logger.String("type", string(weatherType)),
				logger.String("station", station),
				logger.Error(err),
				logger.Int("attempt", attempt+1),
				logger.Int("max_attempts", c.config.MaxRetries+1))
			continue
		}

		// Success
		observability.WeatherFetchesTotal.WithLabelValues(string(weatherType), "success").Inc()
		observability.WeatherFetchDuration.WithLabelValues("success").Observe(time.Since(start).Seconds())
		if attempt > 0 {
			c.logger.Info("Successfully fetched weather data after retries",
				logger.String("type", string(weatherType)),
				logger.String("station", station),
				logger.Int("attempts_needed", attempt+1))
		}
		return nil
	}

	// If we get here, all attempts failed
	observability.WeatherFetchesTotal.WithLabelValues(string(weatherType), "error").Inc()
	observability.WeatherFetchDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
	c.logger.Error("All attempts to fetch weather data failed",
		logger.String("type", string(weatherType)),
		logger.String("station", station),
		logger.Error(lastErr),
		logger.Int("max_attempts", c.config.MaxRetries+1))
	return lastErr
}

// get performs a single request through the circuit breaker and returns
// the response body
func (c *Client) get(url string) ([]byte, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.httpClient.Get(url)
		if err != nil {
			return nil, fmt.Errorf("error making request to weather API: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return nil, fmt.Errorf("error reading weather response: %w", err)
		}
		return body, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

// FetchForAirport fetches all weather data for one airport concurrently
func (c *Client) FetchForAirport(apt *airports.Airport) []FetchResult {
	results := make(chan FetchResult, 2)
	var fetchCount int

	if apt.WeatherSource.Type == airports.SourceCustom {
		fetchCount++
		go func() {
			data, err := c.FetchCustomMETAR(apt.WeatherSource.URL)
			results <- FetchResult{Type: WeatherTypeMETAR, Data: data, Err: err}
		}()
	} else {
		station := apt.Station()

		fetchCount++
		go func() {
			data, err := c.FetchMETAR(station)
			results <- FetchResult{Type: WeatherTypeMETAR, Data: data, Err: err}
		}()

		if c.config.FetchTAF {
			fetchCount++
			go func() {
				data, err := c.FetchTAF(station)
				results <- FetchResult{Type: WeatherTypeTAF, Data: data, Err: err}
			}()
		}
	}

	// Collect results
	var fetchResults []FetchResult
	for i := 0; i < fetchCount; i++ {
		fetchResults = append(fetchResults, <-results)
	}

	return fetchResults
}
