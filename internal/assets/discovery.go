package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/vvoss-dev/reedcms/internal/reedstream"
)

var includePattern = map[string]*regexp.Regexp{
	"organism": regexp.MustCompile(`\{%\s*include\s+organism\("([^"]+)"\)\s*%\}`),
	"molecule": regexp.MustCompile(`\{%\s*include\s+molecule\("([^"]+)"\)\s*%\}`),
	"atom":     regexp.MustCompile(`\{%\s*include\s+atom\("([^"]+)"\)\s*%\}`),
}

func extractIncludes(templateContent, componentType string) []string {
	re := includePattern[componentType]
	matches := re.FindAllStringSubmatch(templateContent, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

// DiscoverLayoutAssets walks layout.jinja and its organism/molecule/atom
// includes, returning the ordered CSS and JS file list for variant. The
// component dependency graph is a DAG; a cycle is rejected with the full
// cycle path rather than silently skipped (spec.md §3 invariant, §8
// testable property — a deliberate generalization of the original's
// visited-set skip, see DESIGN.md).
func DiscoverLayoutAssets(templatesRoot, layout, variant string) (LayoutAssets, error) {
	templatePath := filepath.Join(templatesRoot, "layouts", layout, layout+".jinja")
	content, err := os.ReadFile(templatePath)
	if err != nil {
		return LayoutAssets{}, reedstream.IOError("read", templatePath, err)
	}

	var assets LayoutAssets

	layoutCSS := filepath.Join(templatesRoot, "layouts", layout, fmt.Sprintf("%s.%s.css", layout, variant))
	if fileExists(layoutCSS) {
		assets.CSSFiles = append(assets.CSSFiles, layoutCSS)
	}
	layoutJS := filepath.Join(templatesRoot, "layouts", layout, layout+".js")
	if fileExists(layoutJS) {
		assets.JSFiles = append(assets.JSFiles, layoutJS)
	}

	onStack := map[string]bool{}
	visited := map[string]bool{}
	path := []string{fmt.Sprintf("layouts:%s", layout)}

	for _, organism := range extractIncludes(string(content), "organism") {
		if err := discoverComponent(templatesRoot, KindOrganism, organism, variant, &assets, visited, onStack, path); err != nil {
			return LayoutAssets{}, err
		}
	}
	return assets, nil
}

func discoverComponent(templatesRoot string, kind ComponentKind, name, variant string, assets *LayoutAssets, visited, onStack map[string]bool, path []string) error {
	id := fmt.Sprintf("%s:%s", kind.dirName(), name)
	path = append(path, id)

	if onStack[id] {
		return reedstream.Build("assets", fmt.Sprintf("component dependency cycle: %s", strings.Join(path, " -> ")))
	}
	if visited[id] {
		return nil
	}
	onStack[id] = true
	defer delete(onStack, id)
	visited[id] = true

	dir := filepath.Join(templatesRoot, "components", kind.dirName(), name)

	cssPath := filepath.Join(dir, fmt.Sprintf("%s.%s.css", name, variant))
	if fileExists(cssPath) {
		assets.CSSFiles = append(assets.CSSFiles, cssPath)
	}
	jsPath := filepath.Join(dir, name+".js")
	if fileExists(jsPath) {
		assets.JSFiles = append(assets.JSFiles, jsPath)
	}

	templatePath := filepath.Join(dir, fmt.Sprintf("%s.%s.jinja", name, variant))
	content, err := os.ReadFile(templatePath)
	if err != nil {
		return nil // a component without its own template simply has no further dependencies
	}

	for _, organism := range extractIncludes(string(content), "organism") {
		if err := discoverComponent(templatesRoot, KindOrganism, organism, variant, assets, visited, onStack, path); err != nil {
			return err
		}
	}
	for _, molecule := range extractIncludes(string(content), "molecule") {
		if err := discoverComponent(templatesRoot, KindMolecule, molecule, variant, assets, visited, onStack, path); err != nil {
			return err
		}
	}
	for _, atom := range extractIncludes(string(content), "atom") {
		if err := discoverComponent(templatesRoot, KindAtom, atom, variant, assets, visited, onStack, path); err != nil {
			return err
		}
	}
	return nil
}

// DiscoverLayouts lists layout names under templatesRoot/layouts,
// skipping hidden and underscore-prefixed directories.
func DiscoverLayouts(templatesRoot string) ([]string, error) {
	dir := filepath.Join(templatesRoot, "layouts")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, reedstream.IOError("read_dir", dir, err)
	}
	var layouts []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
			continue
		}
		layouts = append(layouts, name)
	}
	sort.Strings(layouts)
	return layouts, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
