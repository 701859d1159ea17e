package web

import (
	"encoding/xml"
	"fmt"
	"net/http"

	"github.com/aviationwx/aviationwx/pkg/logger"
)

// urlset is the sitemap XML document
type urlset struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
}

// Sitemap lists every page a crawler should index: the fixed pages,
// each published airport dashboard and each guide
func (h *Handler) Sitemap(w http.ResponseWriter, r *http.Request) {
	if h.registry == nil {
		http.Error(w, "registry unavailable", http.StatusServiceUnavailable)
		return
	}

	base := h.config.Server.BaseURL
	doc := urlset{Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	add := func(path, lastmod, freq string) {
		doc.URLs = append(doc.URLs, sitemapURL{Loc: base + path, LastMod: lastmod, ChangeFreq: freq})
	}

	add("/", "", "hourly")
	add("/airports", "", "hourly")
	add("/guides", "", "weekly")
	for _, apt := range h.registry.Published() {
		add("/"+apt.Ident, "", "hourly")
	}
	if list, err := h.guides.List(); err == nil {
		for _, g := range list {
			add("/guides/"+g.Slug, g.Updated.UTC().Format("2006-01-02"), "monthly")
		}
	}
	add("/config-generator", "", "monthly")
	add("/embed-configurator", "", "monthly")

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(xml.Header)); err != nil {
		return
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		h.logger.Error("Failed to encode sitemap", logger.Error(err))
	}
}

// Robots serves robots.txt pointing crawlers at the sitemap
func (h *Handler) Robots(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "User-agent: *\nAllow: /\n\nSitemap: %s/sitemap.xml\n", h.config.Server.BaseURL)
}
