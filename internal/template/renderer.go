package template

import (
	"sync"

	"github.com/flosch/pongo2/v6"

	"github.com/vvoss-dev/reedcms/internal/reedstream"
)

// Renderer compiles and caches pongo2 templates by file path, so a
// layout's component tree is parsed once and reused across requests.
type Renderer struct {
	set *pongo2.TemplateSet

	mu    sync.RWMutex
	cache map[string]*pongo2.Template
}

// NewRenderer builds a Renderer rooted at templatesRoot, which becomes
// the base directory pongo2 resolves `{% include %}` and `{% extends %}`
// paths against.
func NewRenderer(templatesRoot string) *Renderer {
	RegisterFilters()
	loader := pongo2.MustNewLocalFileSystemLoader(templatesRoot)
	return &Renderer{
		set:   pongo2.NewSet("reedcms", loader),
		cache: make(map[string]*pongo2.Template),
	}
}

// Render parses (or reuses a cached parse of) templatePath and executes
// it against ctx.
func (r *Renderer) Render(templatePath string, ctx pongo2.Context) (string, error) {
	tpl, err := r.compile(templatePath)
	if err != nil {
		return "", err
	}
	out, err := tpl.Execute(ctx)
	if err != nil {
		return "", reedstream.TemplateErr(templatePath, err.Error())
	}
	return out, nil
}

func (r *Renderer) compile(templatePath string) (*pongo2.Template, error) {
	r.mu.RLock()
	tpl, ok := r.cache[templatePath]
	r.mu.RUnlock()
	if ok {
		return tpl, nil
	}

	tpl, err := r.set.FromFile(templatePath)
	if err != nil {
		return nil, reedstream.TemplateErr(templatePath, err.Error())
	}

	r.mu.Lock()
	r.cache[templatePath] = tpl
	r.mu.Unlock()
	return tpl, nil
}

// Invalidate drops a cached compiled template, forcing the next Render
// to re-read it from disk. Used after a content edit invalidates a
// layout's compiled form.
func (r *Renderer) Invalidate(templatePath string) {
	r.mu.Lock()
	delete(r.cache, templatePath)
	r.mu.Unlock()
}
