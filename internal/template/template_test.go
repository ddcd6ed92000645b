package template

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/flosch/pongo2/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvoss-dev/reedcms/internal/reedbase"
)

func TestBuildContextIncludesGlobalsAndLayoutData(t *testing.T) {
	dir := t.TempDir()
	textPath := filepath.Join(dir, "text.csv")
	require.NoError(t, os.WriteFile(textPath, []byte("home.title|Welcome|title text\n"), 0o644))
	text, err := reedbase.Init("text", textPath)
	require.NoError(t, err)

	globals := Globals{SiteName: "ReedCMS", SiteURL: "https://example.com", Languages: []string{"en", "de"}, Version: "0.1.0"}
	ctx := BuildContext(text, nil, globals, "home", "en", "mouse", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	assert.Equal(t, "home", ctx["layout"])
	assert.Equal(t, "en", ctx["lang"])
	assert.Equal(t, "ReedCMS", ctx["site_name"])
	assert.Equal(t, 2026, ctx["current_year"])
	assert.Equal(t, "Welcome", ctx["layout_title"])
}

func TestSplitLanguages(t *testing.T) {
	assert.Equal(t, []string{"en", "de", "fr"}, SplitLanguages("en, de ,fr"))
}

func TestRegisterFiltersIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		RegisterFilters()
		RegisterFilters()
	})
}

func TestTextFilterUsesBoundLookup(t *testing.T) {
	RegisterFilters()
	release := BindLookups(func(key, language string) (string, bool) {
		if key == "home.title" {
			return "Welcome", true
		}
		return "", false
	}, nil, nil, nil)
	defer release()

	tpl, err := pongo2.FromString(`{{ "home.title" | text }}`)
	require.NoError(t, err)
	out, err := tpl.Execute(pongo2.Context{})
	require.NoError(t, err)
	assert.Equal(t, "Welcome", out)
}

func TestTextFilterFallsBackToKeyOnMiss(t *testing.T) {
	RegisterFilters()
	release := BindLookups(func(key, language string) (string, bool) {
		return "", false
	}, nil, nil, nil)
	defer release()

	tpl, err := pongo2.FromString(`{{ "missing.key" | text }}`)
	require.NoError(t, err)
	out, err := tpl.Execute(pongo2.Context{})
	require.NoError(t, err)
	assert.Equal(t, "missing.key", out)
}

func TestTextFilterExplicitLanguageOverridesCurrent(t *testing.T) {
	RegisterFilters()
	release := BindLookups(func(key, language string) (string, bool) {
		if language == "de" {
			return "Willkommen", true
		}
		return "Welcome", true
	}, nil, nil, nil)
	defer release()

	tpl, err := pongo2.FromString(`{{ "home.title" | text:"de" }}`)
	require.NoError(t, err)
	out, err := tpl.Execute(pongo2.Context{})
	require.NoError(t, err)
	assert.Equal(t, "Willkommen", out)
}

func TestMetaFilterRaisesOnMiss(t *testing.T) {
	RegisterFilters()
	release := BindLookups(nil, nil, func(key string) (string, bool) {
		return "", false
	}, nil)
	defer release()

	tpl, err := pongo2.FromString(`{{ "home.cache.ttl" | meta }}`)
	require.NoError(t, err)
	_, err = tpl.Execute(pongo2.Context{})
	require.Error(t, err)
}

func TestConfigFilterTriesProjectThenServer(t *testing.T) {
	RegisterFilters()
	release := BindLookups(nil, nil, nil, func(key string) (string, bool) {
		if key == "server.port" {
			return "8333", true
		}
		return "", false
	})
	defer release()

	tpl, err := pongo2.FromString(`{{ "port" | config }}`)
	require.NoError(t, err)
	out, err := tpl.Execute(pongo2.Context{})
	require.NoError(t, err)
	assert.Equal(t, "8333", out)
}

func TestConfigFilterRaisesWhenNeitherKeyFound(t *testing.T) {
	RegisterFilters()
	release := BindLookups(nil, nil, nil, func(key string) (string, bool) {
		return "", false
	})
	defer release()

	tpl, err := pongo2.FromString(`{{ "missing" | config }}`)
	require.NoError(t, err)
	_, err = tpl.Execute(pongo2.Context{})
	require.Error(t, err)
}

func TestRendererCompilesAndCaches(t *testing.T) {
	dir := t.TempDir()
	tplPath := filepath.Join(dir, "home.jinja")
	require.NoError(t, os.WriteFile(tplPath, []byte("Hello {{ name }}"), 0o644))

	r := NewRenderer(dir)
	out, err := r.Render(tplPath, pongo2.Context{"name": "World"})
	require.NoError(t, err)
	assert.Equal(t, "Hello World", out)

	out2, err := r.Render(tplPath, pongo2.Context{"name": "Again"})
	require.NoError(t, err)
	assert.Equal(t, "Hello Again", out2)
}

func TestRendererInvalidate(t *testing.T) {
	dir := t.TempDir()
	tplPath := filepath.Join(dir, "home.jinja")
	require.NoError(t, os.WriteFile(tplPath, []byte("v1"), 0o644))

	r := NewRenderer(dir)
	out, err := r.Render(tplPath, pongo2.Context{})
	require.NoError(t, err)
	assert.Equal(t, "v1", out)

	require.NoError(t, os.WriteFile(tplPath, []byte("v2"), 0o644))
	r.Invalidate(tplPath)

	out2, err := r.Render(tplPath, pongo2.Context{})
	require.NoError(t, err)
	assert.Equal(t, "v2", out2)
}
