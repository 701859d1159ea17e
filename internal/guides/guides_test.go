package guides

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aviationwx/aviationwx/pkg/logger"
)

func writeGuide(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write guide fixture: %v", err)
	}
}

func TestListOrdersGuides(t *testing.T) {
	dir := t.TempDir()
	writeGuide(t, dir, "02-hosting-a-webcam.md", "# Hosting a Webcam\n\nPoint a camera at the field.\n")
	writeGuide(t, dir, "01-getting-started.md", "# Getting Started\n\nAdd your airport to the site.\n")
	writeGuide(t, dir, "10-weather-station.md", "# Weather Station\n\nWire up a custom METAR feed.\n")
	writeGuide(t, dir, "README.md", "# Not a guide\n")
	if err := os.Mkdir(filepath.Join(dir, "03-subdir"), 0o755); err != nil {
		t.Fatal(err)
	}

	lib := NewLibrary(dir, logger.NewNop())
	list, err := lib.List()
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 guides, got %d", len(list))
	}

	wantSlugs := []string{"getting-started", "hosting-a-webcam", "weather-station"}
	for i, want := range wantSlugs {
		if list[i].Slug != want {
			t.Errorf("guide %d: slug = %q, want %q", i, list[i].Slug, want)
		}
	}
	if list[0].Title != "Getting Started" {
		t.Errorf("title = %q, want %q", list[0].Title, "Getting Started")
	}
	if list[0].Summary != "Add your airport to the site." {
		t.Errorf("summary = %q", list[0].Summary)
	}
	if list[2].Order != 10 {
		t.Errorf("order = %d, want 10", list[2].Order)
	}
}

func TestListMissingDirectory(t *testing.T) {
	lib := NewLibrary(filepath.Join(t.TempDir(), "missing"), logger.NewNop())
	list, err := lib.List()
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected no guides, got %d", len(list))
	}
}

func TestGetRendersMarkdown(t *testing.T) {
	dir := t.TempDir()
	content := "# Getting Started\n\n" +
		"Add your **airport** to the site.\n\n" +
		"| Field | Meaning |\n|---|---|\n| ident | URL identifier |\n\n" +
		"```toml\n[site]\nname = \"AviationWX\"\n```\n"
	writeGuide(t, dir, "01-getting-started.md", content)

	lib := NewLibrary(dir, logger.NewNop())
	guide, err := lib.Get("getting-started")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}

	html := string(guide.HTML)
	if !strings.Contains(html, `id="getting-started"`) {
		t.Errorf("expected auto heading id in output, got %q", html)
	}
	if !strings.Contains(html, "<strong>airport</strong>") {
		t.Errorf("expected bold rendering, got %q", html)
	}
	if !strings.Contains(html, "<table>") {
		t.Errorf("expected GFM table rendering, got %q", html)
	}
	if !strings.Contains(html, "<pre") {
		t.Errorf("expected highlighted code block, got %q", html)
	}
	if guide.Summary != "Add your airport to the site." {
		t.Errorf("summary = %q, markers should be stripped", guide.Summary)
	}
}

func TestGetUnknownSlug(t *testing.T) {
	dir := t.TempDir()
	writeGuide(t, dir, "01-getting-started.md", "# Getting Started\n")

	lib := NewLibrary(dir, logger.NewNop())
	if _, err := lib.Get("no-such-guide"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetReloadsChangedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "01-getting-started.md")
	writeGuide(t, dir, "01-getting-started.md", "# Old Title\n\nOld body.\n")

	lib := NewLibrary(dir, logger.NewNop())
	guide, err := lib.Get("getting-started")
	if err != nil {
		t.Fatal(err)
	}
	if guide.Title != "Old Title" {
		t.Fatalf("title = %q, want %q", guide.Title, "Old Title")
	}

	writeGuide(t, dir, "01-getting-started.md", "# New Title\n\nNew body.\n")
	if err := os.Chtimes(path, time.Now(), time.Now().Add(time.Second)); err != nil {
		t.Fatal(err)
	}

	guide, err = lib.Get("getting-started")
	if err != nil {
		t.Fatal(err)
	}
	if guide.Title != "New Title" {
		t.Errorf("title = %q, cache should refresh on file change", guide.Title)
	}
}

func TestGetServesFromCache(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "01-getting-started.md")
	writeGuide(t, dir, "01-getting-started.md", "# Title\n\nBody.\n")

	lib := NewLibrary(dir, logger.NewNop())
	first, err := lib.Get("getting-started")
	if err != nil {
		t.Fatal(err)
	}

	// Rewrite without touching the modification time. The stale cached
	// rendering should be returned.
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	writeGuide(t, dir, "01-getting-started.md", "# Changed\n\nBody.\n")
	if err := os.Chtimes(path, info.ModTime(), info.ModTime()); err != nil {
		t.Fatal(err)
	}

	second, err := lib.Get("getting-started")
	if err != nil {
		t.Fatal(err)
	}
	if second.Title != first.Title {
		t.Errorf("title = %q, expected cached %q", second.Title, first.Title)
	}
}

func TestExtractTitleFallback(t *testing.T) {
	if got := extractTitle("no heading here\n", "getting-started"); got != "getting started" {
		t.Errorf("extractTitle fallback = %q", got)
	}
}
