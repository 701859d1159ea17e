package webcam

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aviationwx/aviationwx/internal/airports"
	"github.com/aviationwx/aviationwx/internal/observability"
	"github.com/aviationwx/aviationwx/internal/storage/sqlite"
	"github.com/aviationwx/aviationwx/pkg/logger"
)

// cacheValidator holds the revalidation headers from a camera's last
// 200 response
type cacheValidator struct {
	etag         string
	lastModified string
}

// captureOne fetches the current image from a pull camera and stores it
func (s *Service) captureOne(apt *airports.Airport, cam airports.Webcam) {
	startTime := time.Now()
	key := apt.Ident + "/" + cam.ID

	req, err := http.NewRequest(http.MethodGet, cam.URL, nil)
	if err != nil {
		s.recordCapture(apt.Ident, cam.ID, cam.Mode, startTime, 0, fmt.Errorf("invalid camera URL: %w", err))
		return
	}

	s.mu.Lock()
	val := s.validators[key]
	s.mu.Unlock()
	if val.etag != "" {
		req.Header.Set("If-None-Match", val.etag)
	}
	if val.lastModified != "" {
		req.Header.Set("If-Modified-Since", val.lastModified)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.recordCapture(apt.Ident, cam.ID, cam.Mode, startTime, 0, fmt.Errorf("request failed: %w", err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		// Image unchanged since the last fetch; keep the stored frame
		s.recordCapture(apt.Ident, cam.ID, cam.Mode, startTime, 0, nil)
		return
	}
	if resp.StatusCode != http.StatusOK {
		s.recordCapture(apt.Ident, cam.ID, cam.Mode, startTime, 0, fmt.Errorf("unexpected status code: %d", resp.StatusCode))
		return
	}

	contentType := resp.Header.Get("Content-Type")
	ext, ok := extForContentType(contentType)
	if !ok {
		s.recordCapture(apt.Ident, cam.ID, cam.Mode, startTime, 0, fmt.Errorf("unsupported content type %q", contentType))
		return
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.config.MaxImageBytes+1))
	if err != nil {
		s.recordCapture(apt.Ident, cam.ID, cam.Mode, startTime, 0, fmt.Errorf("failed to read image: %w", err))
		return
	}
	if int64(len(data)) > s.config.MaxImageBytes {
		s.recordCapture(apt.Ident, cam.ID, cam.Mode, startTime, 0, fmt.Errorf("image exceeds %d bytes", s.config.MaxImageBytes))
		return
	}
	if len(data) == 0 {
		s.recordCapture(apt.Ident, cam.ID, cam.Mode, startTime, 0, fmt.Errorf("camera returned an empty body"))
		return
	}

	if _, err := s.store.Write(apt.Ident, cam.ID, ext, data); err != nil {
		s.recordCapture(apt.Ident, cam.ID, cam.Mode, startTime, 0, err)
		return
	}

	s.mu.Lock()
	s.validators[key] = cacheValidator{
		etag:         resp.Header.Get("ETag"),
		lastModified: resp.Header.Get("Last-Modified"),
	}
	s.mu.Unlock()

	s.recordCapture(apt.Ident, cam.ID, cam.Mode, startTime, int64(len(data)), nil)

	if s.notifier != nil {
		s.notifier.WebcamUpdated(apt.Ident, cam.ID)
	}
}

// recordCapture logs a capture attempt and appends it to the capture
// log when storage is enabled
func (s *Service) recordCapture(ident, camID, mode string, startTime time.Time, bytes int64, captureErr error) {
	durationMs := time.Since(startTime).Milliseconds()

	captureStatus := "success"
	if captureErr != nil {
		captureStatus = "error"
	}
	observability.WebcamCapturesTotal.WithLabelValues(mode, captureStatus).Inc()
	if bytes > 0 {
		observability.WebcamBytesTotal.Add(float64(bytes))
	}

	if captureErr != nil {
		s.logger.Warn("Webcam capture failed",
			logger.String("airport", ident),
			logger.String("camera", camID),
			logger.Error(captureErr))
	} else {
		s.logger.Debug("Webcam capture completed",
			logger.String("airport", ident),
			logger.String("camera", camID),
			logger.Int64("bytes", bytes),
			logger.Int64("duration_ms", durationMs))
	}

	if s.captures == nil {
		return
	}

	rec := &sqlite.CaptureRecord{
		Ident:      ident,
		CamID:      camID,
		FetchedAt:  startTime,
		OK:         captureErr == nil,
		Bytes:      bytes,
		DurationMs: durationMs,
	}
	if captureErr != nil {
		rec.ErrMsg = captureErr.Error()
	}
	if err := s.captures.Record(rec); err != nil {
		s.logger.Error("Failed to record capture",
			logger.String("airport", ident),
			logger.String("camera", camID),
			logger.Error(err))
	}
}
