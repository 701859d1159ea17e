package webcam

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aviationwx/aviationwx/internal/airports"
	"github.com/aviationwx/aviationwx/pkg/logger"
)

// scanIncoming promotes pushed uploads into the frame store for every
// push camera
func (s *Service) scanIncoming() {
	for _, apt := range s.registry.All() {
		for _, cam := range apt.Webcams {
			if cam.Mode != airports.ModePush || cam.MAC == "" {
				continue
			}
			s.promotePushed(apt, cam)
		}
	}
}

// promotePushed picks the newest image a camera dropped into its
// incoming directory, stores it as the current frame and clears the
// drop. Anything present in the drop has not been promoted yet, so no
// timestamp comparison is needed.
func (s *Service) promotePushed(apt *airports.Airport, cam airports.Webcam) {
	// Upload directories are named after the colonless MAC, matching
	// the usual camera FTP account convention
	dir := filepath.Join(s.config.IncomingDir, strings.ReplaceAll(cam.MAC, ":", ""))
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) == 0 {
		return // nothing dropped yet
	}

	startTime := time.Now()

	var newestName, newestExt string
	var newestMod time.Time
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext, ok := normalizeExt(entry.Name())
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if newestName == "" || info.ModTime().After(newestMod) {
			newestName = entry.Name()
			newestExt = ext
			newestMod = info.ModTime()
		}
	}
	if newestName == "" {
		s.clearDrop(dir)
		return
	}

	data, err := os.ReadFile(filepath.Join(dir, newestName))
	if err != nil {
		s.recordCapture(apt.Ident, cam.ID, cam.Mode, startTime, 0, fmt.Errorf("failed to read pushed frame: %w", err))
		return
	}
	if int64(len(data)) > s.config.MaxImageBytes {
		s.recordCapture(apt.Ident, cam.ID, cam.Mode, startTime, 0, fmt.Errorf("pushed frame exceeds %d bytes", s.config.MaxImageBytes))
		s.clearDrop(dir)
		return
	}

	if _, err := s.store.Write(apt.Ident, cam.ID, newestExt, data); err != nil {
		s.recordCapture(apt.Ident, cam.ID, cam.Mode, startTime, 0, err)
		return
	}
	s.clearDrop(dir)

	s.recordCapture(apt.Ident, cam.ID, cam.Mode, startTime, int64(len(data)), nil)

	if s.notifier != nil {
		s.notifier.WebcamUpdated(apt.Ident, cam.ID)
	}
}

// clearDrop removes every file from an incoming directory
func (s *Service) clearDrop(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			s.logger.Warn("Failed to clear pushed frame",
				logger.String("path", filepath.Join(dir, entry.Name())),
				logger.Error(err))
		}
	}
}
