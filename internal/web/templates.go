package web

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aviationwx/aviationwx/pkg/logger"
)

// funcMap holds the formatting helpers available to every page
var funcMap = template.FuncMap{
	"upper":   strings.ToUpper,
	"lower":   strings.ToLower,
	"timeAgo": timeAgo,
	"zulu":    zulu,
}

// timeAgo formats the age of a timestamp as a compact duration
func timeAgo(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := time.Since(t)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	} else if d < 24*time.Hour {
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	return fmt.Sprintf("%dd", int(d.Hours()/24))
}

// zulu formats a timestamp as UTC wall-clock time
func zulu(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("15:04Z")
}

// Engine handles page template loading, caching, and rendering. Pages
// are parsed together with the shared layout; standalone documents
// (the embed widget) skip the layout.
type Engine struct {
	templatesDir  string
	templateCache map[string]*template.Template
	cacheMutex    sync.RWMutex
	logger        *logger.Logger
}

// NewEngine creates a template engine over a directory of page templates
func NewEngine(templatesDir string, log *logger.Logger) *Engine {
	return &Engine{
		templatesDir:  templatesDir,
		templateCache: make(map[string]*template.Template),
		logger:        log.Named("template-engine"),
	}
}

// Render executes a page template inside the shared layout and writes
// the result. The page renders into a buffer first so a template error
// becomes a clean 500 instead of a half-written response.
func (e *Engine) Render(w http.ResponseWriter, status int, page string, data any) {
	tmpl, err := e.getTemplate(page, true)
	if err != nil {
		e.logger.Error("Failed to load page template",
			logger.String("page", page),
			logger.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		e.logger.Error("Failed to render page template",
			logger.String("page", page),
			logger.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		e.logger.Debug("Failed to write rendered page",
			logger.String("page", page),
			logger.Error(err))
	}
}

// RenderBare executes a standalone document template without the site
// layout. Used for the embed widget iframe document.
func (e *Engine) RenderBare(w http.ResponseWriter, status int, page string, data any) {
	tmpl, err := e.getTemplate(page, false)
	if err != nil {
		e.logger.Error("Failed to load standalone template",
			logger.String("page", page),
			logger.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, page, data); err != nil {
		e.logger.Error("Failed to render standalone template",
			logger.String("page", page),
			logger.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		e.logger.Debug("Failed to write rendered document",
			logger.String("page", page),
			logger.Error(err))
	}
}

// getTemplate retrieves a template from cache or loads it from file
func (e *Engine) getTemplate(page string, withLayout bool) (*template.Template, error) {
	cacheKey := page
	if !withLayout {
		cacheKey = page + ":bare"
	}

	// Check cache first (read lock)
	e.cacheMutex.RLock()
	if tmpl, exists := e.templateCache[cacheKey]; exists {
		e.cacheMutex.RUnlock()
		return tmpl, nil
	}
	e.cacheMutex.RUnlock()

	// Template not in cache, load it (write lock)
	e.cacheMutex.Lock()
	defer e.cacheMutex.Unlock()

	// Double-check in case another goroutine loaded it while we were waiting
	if tmpl, exists := e.templateCache[cacheKey]; exists {
		return tmpl, nil
	}

	tmpl, err := e.loadTemplate(page, withLayout)
	if err != nil {
		return nil, err
	}

	e.templateCache[cacheKey] = tmpl
	e.logger.Debug("Template loaded and cached",
		logger.String("page", page),
		logger.Bool("with_layout", withLayout))

	return tmpl, nil
}

// loadTemplate parses a page template, together with the shared layout
// when the page renders inside it
func (e *Engine) loadTemplate(page string, withLayout bool) (*template.Template, error) {
	files := make([]string, 0, 2)
	if withLayout {
		files = append(files, filepath.Join(e.templatesDir, "layout.html"))
	}
	pagePath := filepath.Join(e.templatesDir, page)
	if _, err := os.Stat(pagePath); err != nil {
		return nil, fmt.Errorf("failed to find template file '%s': %w", pagePath, err)
	}
	files = append(files, pagePath)

	tmpl, err := template.New(filepath.Base(files[0])).Funcs(funcMap).ParseFiles(files...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template '%s': %w", page, err)
	}

	return tmpl, nil
}

// ReloadAll drops every cached template so the next render picks up
// edited files. Intended for development.
func (e *Engine) ReloadAll() {
	e.cacheMutex.Lock()
	defer e.cacheMutex.Unlock()

	templateCount := len(e.templateCache)
	e.templateCache = make(map[string]*template.Template)

	e.logger.Info("Template cache cleared",
		logger.Int("cleared_count", templateCount))
}
