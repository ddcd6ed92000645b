package routing

import (
	"strings"
	"sync"

	"github.com/vvoss-dev/reedcms/internal/reedbase"
	"github.com/vvoss-dev/reedcms/internal/reedstream"
)

// Router resolves a request path (with its language prefix already
// stripped) to a layout key using the route cache, and the reverse:
// a layout key + language to its URL path segment, for the `route`
// template filter.
type Router struct {
	routes *reedbase.Cache

	mu      sync.RWMutex
	reverse map[string]string // "layout@lang" -> url segment, rebuilt lazily
}

// NewRouter wraps the "route" ReedBase cache.
func NewRouter(routes *reedbase.Cache) *Router {
	return &Router{routes: routes}
}

// ResolveLayout finds the layout key whose route segment for language
// matches urlSegment. An empty urlSegment matches the landing page,
// whose route is stored as an empty value in routes.csv. The reverse
// index must be populated via Register before this is useful; the route
// cache itself only supports forward (layout -> segment) lookups.
func (r *Router) ResolveLayout(urlSegment, language string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	layout, ok := r.reverse[language+"\x00"+urlSegment]
	return layout, ok
}

// RouteFor returns the URL path segment for layout in language,
// resolving "auto" to currentLang. Falls back to the layout key itself
// when no route is configured, matching the original filter's legacy
// fallback behavior.
func (r *Router) RouteFor(layout, language, currentLang string) string {
	resolved := language
	if resolved == "" || resolved == "auto" {
		resolved = currentLang
	}

	req := reedstream.NewRequest(layout)
	req.Language = resolved
	resp, err := r.routes.Get(req)
	if err != nil {
		return layout
	}
	return resp.Data
}

// Register records the route for a layout+language pair in the reverse
// index, keeping ResolveLayout's lookups O(1). Called once per
// layout/language at startup after routes are loaded.
func (r *Router) Register(layout, language, urlSegment string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.reverse == nil {
		r.reverse = make(map[string]string)
	}
	r.reverse[language+"\x00"+urlSegment] = layout
}

// SplitPathSegments trims a leading/trailing slash and splits path on "/".
func SplitPathSegments(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
