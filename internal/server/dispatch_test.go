package server

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvoss-dev/reedcms/internal/ratelimit"
	"github.com/vvoss-dev/reedcms/internal/reedbase"
	"github.com/vvoss-dev/reedcms/internal/reedstream"
	"github.com/vvoss-dev/reedcms/internal/routing"
	"github.com/vvoss-dev/reedcms/internal/template"
)

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	root := t.TempDir()

	layoutDir := filepath.Join(root, "templates", "layout", "home")
	require.NoError(t, os.MkdirAll(layoutDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(layoutDir, "mouse.jinja"), []byte("<h1>{{ layout_title }}</h1>"), 0o644))

	staticDir := filepath.Join(root, "static")
	require.NoError(t, os.MkdirAll(staticDir, 0o755))

	text, err := reedbase.Init("text", filepath.Join(root, "text.csv"))
	require.NoError(t, err)
	meta, err := reedbase.Init("meta", filepath.Join(root, "meta.csv"))
	require.NoError(t, err)
	routes, err := reedbase.Init("route", filepath.Join(root, "route.csv"))
	require.NoError(t, err)
	config, err := reedbase.Init("config", filepath.Join(root, "config.csv"))
	require.NoError(t, err)

	router := routing.NewRouter(routes)
	router.Register("home", "en", "home")

	return &Dispatcher{
		Routes:       router,
		Languages:    routing.NewLanguageResolver([]string{"en", "de"}, "en"),
		Text:         text,
		Meta:         meta,
		Config:       config,
		Renderer:     template.NewRenderer(filepath.Join(root, "templates")),
		Globals:      template.Globals{SiteName: "Test Site"},
		TemplatesDir: filepath.Join(root, "templates"),
		StaticDir:    staticDir,
		RateLimiter:  ratelimit.New(ratelimit.NewInMemoryStore()),
		ProtectedOps: map[string]ratelimit.Limit{},
	}
}

func TestDispatcherRendersKnownLayout(t *testing.T) {
	d := newTestDispatcher(t)

	e := echo.New()
	req := httptest.NewRequest("GET", "/home", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, d.Handle(c))
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "<h1>")
}

func TestDispatcherReturns404ForUnknownLayout(t *testing.T) {
	d := newTestDispatcher(t)

	e := echo.New()
	req := httptest.NewRequest("GET", "/nowhere", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, d.Handle(c))
	assert.Equal(t, 404, rec.Code)
}

func TestDispatcherRejectsUnauthenticatedRequestOnProtectedPrefix(t *testing.T) {
	d := newTestDispatcher(t)
	d.ProtectedOps = map[string]ratelimit.Limit{
		"/admin": {Requests: 0, Period: 0},
	}

	e := echo.New()
	req := httptest.NewRequest("GET", "/admin/panel", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, d.Handle(c))
	assert.Equal(t, 401, rec.Code)
}

func TestDispatcherWiresTextAndConfigFiltersToLiveCaches(t *testing.T) {
	d := newTestDispatcher(t)

	greetingReq := reedstream.NewRequest("home.greeting")
	greetingReq.Language = "en"
	greetingReq.Value = "Hello from ReedBase"
	greetingReq.HasValue = true
	_, err := d.Text.Set(greetingReq)
	require.NoError(t, err)

	portReq := reedstream.NewRequest("server.port")
	portReq.Value = "8333"
	portReq.HasValue = true
	_, err = d.Config.Set(portReq)
	require.NoError(t, err)

	layoutDir := filepath.Join(d.TemplatesDir, "layout", "home")
	require.NoError(t, os.WriteFile(
		filepath.Join(layoutDir, "mouse.jinja"),
		[]byte(`<p>{{ "home.greeting" | text }}</p><p>{{ "port" | config }}</p>`),
		0o644,
	))

	e := echo.New()
	req := httptest.NewRequest("GET", "/home", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, d.Handle(c))
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "Hello from ReedBase")
	assert.Contains(t, rec.Body.String(), "8333")
}

func TestNewBuildsEchoWithDispatchRoute(t *testing.T) {
	d := newTestDispatcher(t)
	e := New(DefaultConfig(), d.Handle)

	req := httptest.NewRequest("GET", "/home", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
}
