// Package template builds per-request rendering context and registers
// the custom pongo2 filters ReedCMS templates rely on.
package template

import (
	"strings"
	"time"

	"github.com/flosch/pongo2/v6"

	"github.com/vvoss-dev/reedcms/internal/reedbase"
	"github.com/vvoss-dev/reedcms/internal/reedstream"
)

// Globals holds the site-wide values every rendered context carries.
type Globals struct {
	SiteName  string
	SiteURL   string
	Languages []string
	Version   string
}

// BuildContext assembles the pongo2 context for rendering layout with
// language and interactionMode, mirroring the globals/layout-data split
// of the original context builder: core variables first, then site
// globals, then layout-specific text/meta lookups.
func BuildContext(text, meta *reedbase.Cache, globals Globals, layout, language, interactionMode string, now time.Time) pongo2.Context {
	ctx := pongo2.Context{
		"layout":           layout,
		"lang":             language,
		"interaction_mode": interactionMode,
		"site_name":        globals.SiteName,
		"site_url":         globals.SiteURL,
		"languages":        globals.Languages,
		"current_year":     now.Year(),
		"version":          globals.Version,
	}

	if title, ok := LookupText(text, layout+".title", language); ok {
		ctx["layout_title"] = title
	}
	if desc, ok := LookupText(text, layout+".description", language); ok {
		ctx["layout_description"] = desc
	}
	if ttl, ok := LookupMeta(meta, layout+".cache.ttl"); ok {
		ctx["cache_ttl"] = ttl
	}

	return ctx
}

// LookupText resolves key under language from the text cache, used by
// BuildContext's layout-title/description lookups and the `text` filter.
func LookupText(text *reedbase.Cache, key, language string) (string, bool) {
	if text == nil {
		return "", false
	}
	req := reedstream.NewRequest(key)
	req.Language = language
	resp, err := text.Get(req)
	if err != nil {
		return "", false
	}
	return resp.Data, true
}

// LookupMeta resolves a language-independent key from a flat cache
// (meta or config), used by BuildContext's cache-ttl lookup and the
// `meta`/`config` filters.
func LookupMeta(cache *reedbase.Cache, key string) (string, bool) {
	if cache == nil {
		return "", false
	}
	resp, err := cache.Get(reedstream.NewRequest(key))
	if err != nil {
		return "", false
	}
	return resp.Data, true
}

// SplitLanguages parses a comma-separated ReedConfig "languages" value.
func SplitLanguages(csv string) []string {
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
