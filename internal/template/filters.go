package template

import (
	"fmt"
	"sync"

	"github.com/flosch/pongo2/v6"
)

var registerOnce sync.Once

// RegisterFilters installs ReedCMS's custom pongo2 filters. Safe to call
// more than once; registration only happens on the first call.
func RegisterFilters() {
	registerOnce.Do(func() {
		pongo2.RegisterFilter("text", filterText)
		pongo2.RegisterFilter("route", filterRoute)
		pongo2.RegisterFilter("meta", filterMeta)
		pongo2.RegisterFilter("config", filterConfig)
	})
}

// langLookup resolves a ReedBase key to a value under the given
// language, falling back to whatever language the caller bound as the
// request's current one when language is "" or "auto". It reports
// whether the key was found so soft-miss (text/route) and hard-miss
// (meta) filters can each apply their own policy.
type langLookup func(key, language string) (value string, found bool)

// flatLookup resolves a single fully-qualified key (no language
// dimension), used by the config filter's project./server. probing.
type flatLookup func(key string) (value string, found bool)

// binding holds the live lookups for exactly one in-flight render. It
// replaces the previous package-level mutable lookupFunc variables:
// those raced across concurrent requests (one request's language could
// leak into another's {{ key|text }} resolution) because pongo2 filters
// are plain global functions with no access to the executing template's
// context. Binding access is serialized by bindingMu for the binding's whole
// lifetime (acquire, render, release), so exactly one render owns the
// filters' view of text/route/meta/config at a time and none of their
// state survives past that render.
type binding struct {
	text, route langLookup
	meta        flatLookup
	config      flatLookup
}

var (
	bindingMu sync.Mutex
	current   *binding
)

// BindLookups locks the filter bindings to text/route/meta/config for
// the duration of one render and returns a release func that must be
// called (typically via defer) once that render completes, whatever the
// outcome, to hand the filters back to the next caller.
func BindLookups(text, route langLookup, meta, config flatLookup) func() {
	bindingMu.Lock()
	current = &binding{text: text, route: route, meta: meta, config: config}
	return func() {
		current = nil
		bindingMu.Unlock()
	}
}

func filterText(in, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	b := current
	if b == nil || b.text == nil {
		return nil, filterErr("text", fmt.Errorf("text filter used before BindLookups"))
	}
	value, found := b.text(in.String(), explicitArg(param))
	if !found {
		return pongo2.AsValue(in.String()), nil
	}
	return pongo2.AsValue(value), nil
}

func filterRoute(in, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	b := current
	if b == nil || b.route == nil {
		return nil, filterErr("route", fmt.Errorf("route filter used before BindLookups"))
	}
	value, found := b.route(in.String(), explicitArg(param))
	if !found {
		return pongo2.AsValue(in.String()), nil
	}
	return pongo2.AsValue(value), nil
}

func filterMeta(in, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	b := current
	if b == nil || b.meta == nil {
		return nil, filterErr("meta", fmt.Errorf("meta filter used before BindLookups"))
	}
	key := in.String()
	value, found := b.meta(key)
	if !found {
		return nil, filterErr("meta", fmt.Errorf("meta key %q not found", key))
	}
	return pongo2.AsValue(value), nil
}

// filterConfig implements `key | config`: it tries "project.{key}" then
// "server.{key}" against the bound config lookup, per spec.md §4.6,
// raising with both tried keys in the error when neither hits.
func filterConfig(in, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	b := current
	if b == nil || b.config == nil {
		return nil, filterErr("config", fmt.Errorf("config filter used before BindLookups"))
	}
	key := in.String()
	tried := []string{"project." + key, "server." + key}
	for _, candidate := range tried {
		if value, found := b.config(candidate); found {
			return pongo2.AsValue(value), nil
		}
	}
	return nil, filterErr("config", fmt.Errorf("config key %q not found (tried %v)", key, tried))
}

// explicitArg returns the filter's argument as a language override, or
// "" when the template omitted it or passed the literal "auto" sentinel
// documented in spec.md §4.6.
func explicitArg(param *pongo2.Value) string {
	if param == nil || param.IsNil() {
		return ""
	}
	arg := param.String()
	if arg == "" || arg == "auto" {
		return ""
	}
	return arg
}

func filterErr(filterName string, err error) *pongo2.Error {
	return &pongo2.Error{Sender: "filter:" + filterName, OrigError: err}
}
