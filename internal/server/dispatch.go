package server

import (
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/flosch/pongo2/v6"
	"github.com/labstack/echo/v4"

	"github.com/vvoss-dev/reedcms/internal/assets"
	"github.com/vvoss-dev/reedcms/internal/authn"
	"github.com/vvoss-dev/reedcms/internal/obs"
	"github.com/vvoss-dev/reedcms/internal/ratelimit"
	"github.com/vvoss-dev/reedcms/internal/reedbase"
	"github.com/vvoss-dev/reedcms/internal/respbuild"
	"github.com/vvoss-dev/reedcms/internal/routing"
	"github.com/vvoss-dev/reedcms/internal/template"
)

// Dispatcher holds everything one request needs: layout resolution,
// rendering, and response shaping. It is the Go counterpart of the
// original's single catch-all handle_request.
type Dispatcher struct {
	Routes       *routing.Router
	Languages    *routing.LanguageResolver
	Text         *reedbase.Cache
	Meta         *reedbase.Cache
	Config       *reedbase.Cache
	Renderer     *template.Renderer
	Globals      template.Globals
	TemplatesDir string
	StaticDir    string
	RateLimiter  *ratelimit.Limiter
	AuthUsers    authn.UserLookup
	ProtectedOps map[string]ratelimit.Limit // url prefix -> limit, empty = unprotected
}

// defaultCacheTTLSeconds is spec.md §4.9's documented default for a
// layout with no configured "{layout}.cache.ttl" meta entry.
const defaultCacheTTLSeconds = 3600

// Handle is the echo.HandlerFunc registered against GET /*.
func (d *Dispatcher) Handle(c echo.Context) error {
	req := c.Request()
	w := c.Response().Writer
	requestPath := req.URL.Path

	if strings.HasPrefix(requestPath, "/static/") {
		return d.serveStatic(w, req, requestPath)
	}

	if limit, protected := d.matchProtected(requestPath); protected {
		if rejected, err := d.enforce(w, req, requestPath, limit); rejected {
			return err
		}
	}

	lang := d.Languages.Detect(req)
	client := routing.DetectClientInfo(req, lang)

	segments := routing.SplitPathSegments(routing.StripLanguagePrefix(requestPath, lang))
	urlSegment := ""
	if len(segments) > 0 && segments[0] != "" {
		urlSegment = segments[0]
	}

	layout, ok := d.Routes.ResolveLayout(urlSegment, lang)
	if !ok {
		return respbuild.WriteError(w, http.StatusNotFound, "layout not found: "+urlSegment)
	}

	ctx := template.BuildContext(d.Text, d.Meta, d.Globals, layout, lang, client.InteractionMode, now())
	templatePath := path.Join(layout, client.InteractionMode+".jinja")

	release := template.BindLookups(d.textLookup(lang), d.routeLookup(lang), d.metaLookup(), d.configLookup())
	defer release()

	body, err := d.Renderer.Render(templatePath, ctx)
	if err != nil {
		obs.Logger.WithFields(map[string]any{
			"component": "server",
			"layout":    layout,
			"error":     err.Error(),
		}).Error("render failed")
		return respbuild.WriteError(w, http.StatusInternalServerError, "render failed")
	}

	return respbuild.Write(w, req.Header.Get("Accept-Encoding"), req.Header.Get("If-None-Match"), respbuild.PageResponse{
		Status:      http.StatusOK,
		ContentType: "text/html; charset=utf-8",
		Body:        body,
		TTLSeconds:  ttlFromContext(ctx),
	})
}

// ttlFromContext reads the cache_ttl value BuildContext populated from
// the layout's meta store entry, falling back to spec.md §4.9's
// documented default of 3600s when the layout has no configured TTL or
// the stored value isn't a parseable integer.
func ttlFromContext(ctx pongo2.Context) int {
	raw, ok := ctx["cache_ttl"]
	if !ok {
		return defaultCacheTTLSeconds
	}
	str, ok := raw.(string)
	if !ok {
		return defaultCacheTTLSeconds
	}
	ttl, err := strconv.Atoi(strings.TrimSpace(str))
	if err != nil {
		return defaultCacheTTLSeconds
	}
	return ttl
}

// textLookup binds the `text` filter to the text cache, resolving an
// explicit per-call language override before falling back to the
// request's detected language.
func (d *Dispatcher) textLookup(currentLang string) func(key, language string) (string, bool) {
	return func(key, language string) (string, bool) {
		if language == "" {
			language = currentLang
		}
		return template.LookupText(d.Text, key, language)
	}
}

// routeLookup binds the `route` filter to the router, resolving "auto"
// (or an omitted argument) to the request's detected language.
func (d *Dispatcher) routeLookup(currentLang string) func(key, language string) (string, bool) {
	return func(key, language string) (string, bool) {
		return d.Routes.RouteFor(key, language, currentLang), true
	}
}

func (d *Dispatcher) metaLookup() func(key string) (string, bool) {
	return func(key string) (string, bool) {
		return template.LookupMeta(d.Meta, key)
	}
}

func (d *Dispatcher) configLookup() func(key string) (string, bool) {
	return func(key string) (string, bool) {
		return template.LookupMeta(d.Config, key)
	}
}

func (d *Dispatcher) serveStatic(w http.ResponseWriter, req *http.Request, requestPath string) error {
	rel := strings.TrimPrefix(requestPath, "/static/")
	res, err := assets.ResolveStatic(d.StaticDir, rel, req.Header.Get("Accept-Encoding"), req.Header.Get("If-None-Match"))
	if err != nil {
		return respbuild.WriteError(w, http.StatusNotFound, "asset not found")
	}
	if assets.ApplyHeaders(w, res) {
		return nil
	}
	http.ServeFile(w, req, res.FilePath)
	return nil
}

func (d *Dispatcher) matchProtected(requestPath string) (ratelimit.Limit, bool) {
	for prefix, limit := range d.ProtectedOps {
		if strings.HasPrefix(requestPath, prefix) {
			return limit, true
		}
	}
	return ratelimit.Limit{}, false
}

func (d *Dispatcher) enforce(w http.ResponseWriter, req *http.Request, operation string, limit ratelimit.Limit) (bool, error) {
	creds, err := authn.ExtractCredentials(req)
	if err != nil {
		return true, respbuild.WriteError(w, http.StatusUnauthorized, "authentication required")
	}
	if creds.Kind == authn.KindBasic {
		if err := authn.VerifyBasic(creds, d.AuthUsers); err != nil {
			return true, respbuild.WriteError(w, http.StatusUnauthorized, "invalid credentials")
		}
	}
	userID := creds.Username
	if userID == "" {
		userID = creds.Token
	}
	if err := d.RateLimiter.Allow(userID, operation, limit); err != nil {
		return true, respbuild.WriteError(w, http.StatusTooManyRequests, "rate limit exceeded")
	}
	return false, nil
}

func now() time.Time {
	return time.Now()
}
