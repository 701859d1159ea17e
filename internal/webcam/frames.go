package webcam

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrNoFrame is returned when a camera has no stored image yet
var ErrNoFrame = errors.New("no frame captured yet")

// imageExts maps permitted content types to the extension used on disk
var imageExts = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
}

func extForContentType(ct string) (string, bool) {
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	ext, ok := imageExts[strings.ToLower(strings.TrimSpace(ct))]
	return ext, ok
}

func contentTypeForExt(ext string) string {
	for ct, e := range imageExts {
		if e == ext {
			return ct
		}
	}
	return "application/octet-stream"
}

// normalizeExt maps a file name to its canonical image extension
func normalizeExt(name string) (string, bool) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if ext == "jpeg" {
		ext = "jpg"
	}
	for _, e := range imageExts {
		if e == ext {
			return ext, true
		}
	}
	return "", false
}

// Frame describes the newest stored image for one camera
type Frame struct {
	Path        string
	ContentType string
	FetchedAt   time.Time
	SizeBytes   int64
}

// frameStore reads and writes the {root}/{ident}/{camID}/latest.{ext}
// layout
type frameStore struct {
	root string
}

func (f frameStore) camDir(ident, camID string) string {
	return filepath.Join(f.root, ident, camID)
}

// Latest returns the stored frame for a camera, or ErrNoFrame
func (f frameStore) Latest(ident, camID string) (*Frame, error) {
	dir := f.camDir(ident, camID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoFrame
		}
		return nil, fmt.Errorf("failed to read frame directory: %w", err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "latest.") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		return &Frame{
			Path:        filepath.Join(dir, name),
			ContentType: contentTypeForExt(strings.TrimPrefix(filepath.Ext(name), ".")),
			FetchedAt:   info.ModTime(),
			SizeBytes:   info.Size(),
		}, nil
	}
	return nil, ErrNoFrame
}

// Write atomically replaces the stored frame for a camera
func (f frameStore) Write(ident, camID, ext string, data []byte) (*Frame, error) {
	dir := f.camDir(ident, camID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create frame directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".frame-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp frame: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return nil, fmt.Errorf("failed to write frame: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return nil, fmt.Errorf("failed to close frame: %w", err)
	}

	target := filepath.Join(dir, "latest."+ext)
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return nil, fmt.Errorf("failed to move frame into place: %w", err)
	}

	// Drop a previous frame stored under a different extension
	for _, otherExt := range imageExts {
		if otherExt != ext {
			os.Remove(filepath.Join(dir, "latest."+otherExt))
		}
	}

	return &Frame{
		Path:        target,
		ContentType: contentTypeForExt(ext),
		FetchedAt:   time.Now(),
		SizeBytes:   int64(len(data)),
	}, nil
}
