package routing

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvoss-dev/reedcms/internal/reedbase"
)

func TestLanguageResolverFromPath(t *testing.T) {
	r := NewLanguageResolver([]string{"de", "en"}, "de")
	req := httptest.NewRequest(http.MethodGet, "/en/knowledge", nil)
	assert.Equal(t, "en", r.Detect(req))
}

func TestLanguageResolverFromAcceptHeader(t *testing.T) {
	r := NewLanguageResolver([]string{"de", "en"}, "de")
	req := httptest.NewRequest(http.MethodGet, "/knowledge", nil)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9,de;q=0.8")
	assert.Equal(t, "en", r.Detect(req))
}

func TestLanguageResolverFallsBackToDefault(t *testing.T) {
	r := NewLanguageResolver([]string{"de", "en"}, "de")
	req := httptest.NewRequest(http.MethodGet, "/knowledge", nil)
	assert.Equal(t, "de", r.Detect(req))
}

func TestStripLanguagePrefix(t *testing.T) {
	assert.Equal(t, "/knowledge", StripLanguagePrefix("/en/knowledge", "en"))
	assert.Equal(t, "/", StripLanguagePrefix("/en", "en"))
}

func TestDetectClientInfoFromScreenInfoCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "screen_info", Value: url.QueryEscape(`{"width":1920,"height":1080,"dpr":2,"viewport_width":1400,"viewport_height":900}`)})

	info := DetectClientInfo(req, "en")
	assert.Equal(t, "desktop", info.DeviceType)
	assert.Equal(t, "wide", info.Breakpoint)
	assert.Equal(t, "mouse", info.InteractionMode)
}

func TestDetectClientInfoReaderWithoutScreenInfo(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	info := DetectClientInfo(req, "en")
	assert.Equal(t, "reader", info.InteractionMode)
}

func TestDetectClientInfoMobileUserAgent(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0 (Linux; Android 10) Mobile Safari")
	info := DetectClientInfo(req, "en")
	assert.Equal(t, "mobile", info.DeviceType)
}

func TestDetectClientInfoBotUserAgent(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("User-Agent", "Googlebot/2.1")
	info := DetectClientInfo(req, "en")
	assert.True(t, info.IsBot)
	assert.Equal(t, "reader", info.InteractionMode)
}

func TestRouterRouteForFallsBackToLayoutKey(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "routes.csv")
	require.NoError(t, os.WriteFile(path, []byte("knowledge@de|wissen|german route\n"), 0o644))
	cache, err := reedbase.Init("route", path)
	require.NoError(t, err)

	router := NewRouter(cache)
	assert.Equal(t, "wissen", router.RouteFor("knowledge", "de", "de"))
	assert.Equal(t, "portfolio", router.RouteFor("portfolio", "de", "de"))
}

func TestRouterResolveLayoutViaRegister(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "routes.csv")
	require.NoError(t, os.WriteFile(path, []byte(""), 0o644))
	cache, err := reedbase.Init("route", path)
	require.NoError(t, err)

	router := NewRouter(cache)
	router.Register("knowledge", "de", "wissen")

	layout, ok := router.ResolveLayout("wissen", "de")
	require.True(t, ok)
	assert.Equal(t, "knowledge", layout)
}
