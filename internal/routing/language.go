// Package routing resolves an incoming request to a language, client
// device profile, and interaction mode, following the three-stage
// detection order the rest of ReedCMS assumes: URL path, then
// Accept-Language header, then project default.
package routing

import (
	"net/http"
	"strings"

	"golang.org/x/text/language"
)

// LanguageResolver detects the request language against a fixed set of
// project-configured languages.
type LanguageResolver struct {
	supported []string
	matcher   language.Matcher
	def       string
}

// NewLanguageResolver builds a resolver for the given supported language
// codes (e.g. "de", "en") with def as the fallback when nothing matches.
func NewLanguageResolver(supported []string, def string) *LanguageResolver {
	tags := make([]language.Tag, 0, len(supported))
	for _, s := range supported {
		tags = append(tags, language.Make(s))
	}
	if len(tags) == 0 {
		tags = []language.Tag{language.Make(def)}
	}
	return &LanguageResolver{
		supported: supported,
		matcher:   language.NewMatcher(tags),
		def:       def,
	}
}

// IsSupported reports whether code is one of the project's configured
// languages.
func (r *LanguageResolver) IsSupported(code string) bool {
	for _, s := range r.supported {
		if s == code {
			return true
		}
	}
	return false
}

// Detect resolves the request's language: URL path prefix first ("/en/..."),
// then the Accept-Language header, then the configured default.
func (r *LanguageResolver) Detect(req *http.Request) string {
	if lang, ok := r.fromPath(req.URL.Path); ok {
		return lang
	}
	if lang, ok := r.fromAcceptLanguage(req.Header.Get("Accept-Language")); ok {
		return lang
	}
	return r.def
}

func (r *LanguageResolver) fromPath(path string) (string, bool) {
	trimmed := strings.TrimPrefix(path, "/")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) == 0 || len(parts[0]) != 2 {
		return "", false
	}
	candidate := strings.ToLower(parts[0])
	if r.IsSupported(candidate) {
		return candidate, true
	}
	return "", false
}

func (r *LanguageResolver) fromAcceptLanguage(header string) (string, bool) {
	if header == "" {
		return "", false
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		first := strings.SplitN(header, ",", 2)[0]
		first = strings.SplitN(first, ";", 2)[0]
		first = strings.SplitN(first, "-", 2)[0]
		code := strings.ToLower(strings.TrimSpace(first))
		if r.IsSupported(code) {
			return code, true
		}
		return "", false
	}
	_, index, confidence := r.matcher.Match(tags...)
	if confidence == language.No {
		return "", false
	}
	if index < len(r.supported) {
		return r.supported[index], true
	}
	base, _ := tags[0].Base()
	code := base.String()
	if r.IsSupported(code) {
		return code, true
	}
	return "", false
}

// StripLanguagePrefix removes a leading "/xx" language segment from path,
// returning the remainder (always starting with "/").
func StripLanguagePrefix(path, lang string) string {
	prefix := "/" + lang
	rest := strings.TrimPrefix(path, prefix)
	if rest == "" {
		return "/"
	}
	if !strings.HasPrefix(rest, "/") {
		return path
	}
	return rest
}
