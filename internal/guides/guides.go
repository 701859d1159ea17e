package guides

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/aviationwx/aviationwx/pkg/logger"
)

// ErrNotFound is returned for a slug with no matching guide file
var ErrNotFound = errors.New("guide not found")

// Guide file names carry their ordering: NN-slug.md
var guideNamePattern = regexp.MustCompile(`^(\d+)-([a-z0-9-]+)\.md$`)

// Guide is one rendered markdown guide
type Guide struct {
	Slug    string
	Order   int
	Title   string
	Summary string
	HTML    template.HTML
	Updated time.Time
}

type cachedGuide struct {
	guide   *Guide
	modTime time.Time
}

// Library renders the guides directory, caching each rendered guide
// until its source file changes
type Library struct {
	dir    string
	md     goldmark.Markdown
	logger *logger.Logger

	mu    sync.RWMutex
	cache map[string]*cachedGuide
}

// NewLibrary creates a guide library over a directory of markdown files
func NewLibrary(dir string, log *logger.Logger) *Library {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle("github"),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithUnsafe(),
		),
	)

	return &Library{
		dir:    dir,
		md:     md,
		logger: log.Named("guides"),
		cache:  make(map[string]*cachedGuide),
	}
}

// List returns all guides sorted by their file order prefix
func (l *Library) List() ([]*Guide, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read guides directory: %w", err)
	}

	var out []*Guide
	for _, entry := range entries {
		if entry.IsDir() || !guideNamePattern.MatchString(entry.Name()) {
			continue
		}
		guide, err := l.load(entry.Name())
		if err != nil {
			l.logger.Warn("Skipping unreadable guide",
				logger.String("file", entry.Name()),
				logger.Error(err))
			continue
		}
		out = append(out, guide)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].Slug < out[j].Slug
	})
	return out, nil
}

// Get returns the guide with the given slug, or ErrNotFound
func (l *Library) Get(slug string) (*Guide, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read guides directory: %w", err)
	}

	for _, entry := range entries {
		m := guideNamePattern.FindStringSubmatch(entry.Name())
		if m == nil || m[2] != slug {
			continue
		}
		return l.load(entry.Name())
	}
	return nil, ErrNotFound
}

// load renders one guide file, reusing the cached rendering while the
// file is unchanged on disk
func (l *Library) load(filename string) (*Guide, error) {
	path := filepath.Join(l.dir, filename)
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat guide: %w", err)
	}

	l.mu.RLock()
	cached, ok := l.cache[filename]
	l.mu.RUnlock()
	if ok && cached.modTime.Equal(info.ModTime()) {
		return cached.guide, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read guide: %w", err)
	}

	var buf bytes.Buffer
	if err := l.md.Convert(content, &buf); err != nil {
		return nil, fmt.Errorf("failed to render guide: %w", err)
	}

	m := guideNamePattern.FindStringSubmatch(filename)
	order, _ := strconv.Atoi(m[1])

	guide := &Guide{
		Slug:    m[2],
		Order:   order,
		Title:   extractTitle(string(content), m[2]),
		Summary: extractSummary(string(content)),
		HTML:    template.HTML(buf.String()),
		Updated: info.ModTime(),
	}

	l.mu.Lock()
	l.cache[filename] = &cachedGuide{guide: guide, modTime: info.ModTime()}
	l.mu.Unlock()

	l.logger.Debug("Guide rendered",
		logger.String("slug", guide.Slug),
		logger.String("title", guide.Title))
	return guide, nil
}

// extractTitle pulls the first # heading, falling back to the slug
func extractTitle(content, slug string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
	}
	return strings.ReplaceAll(slug, "-", " ")
}

// extractSummary returns the first paragraph line after the title,
// stripped of inline markdown markers
func extractSummary(content string) string {
	sawTitle := false
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			sawTitle = true
			continue
		}
		if !sawTitle {
			continue
		}
		line = strings.NewReplacer("**", "", "*", "", "`", "").Replace(line)
		return line
	}
	return ""
}
