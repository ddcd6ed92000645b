package assets

import "regexp"

var exportDeclPattern = regexp.MustCompile(`(?m)^(export\s+)(?:function|const|class)\s+([A-Za-z_$][A-Za-z0-9_$]*)`)

// TreeShake rewrites top-level `export function|const|class NAME`
// declarations whose NAME is never referenced anywhere else in the
// bundle to plain `function|const|class NAME`, stripping only the
// `export` keyword and leaving the declaration's body intact. This
// mirrors the original's tree_shake.rs, which deliberately stops short
// of deleting the function body: single-scope regex analysis over a
// concatenated bundle cannot see references from outside it (e.g. an
// inline `onclick="foo()"` HTML attribute), so removing the body itself
// risks deleting code that is genuinely still called. Dropping the
// export keyword alone is safe either way — it only changes whether the
// symbol is visible to `import`, which tree-shaking has already
// determined nothing inside the bundle needs.
func TreeShake(js string) string {
	decls := exportDeclPattern.FindAllStringSubmatchIndex(js, -1)
	if len(decls) == 0 {
		return js
	}

	type export struct {
		name         string
		keywordStart int
		keywordEnd   int
	}
	var exports []export
	for _, d := range decls {
		exports = append(exports, export{
			name:         js[d[4]:d[5]],
			keywordStart: d[2],
			keywordEnd:   d[3],
		})
	}

	nameRefPattern := func(name string) *regexp.Regexp {
		return regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`)
	}
	used := map[string]int{}
	for _, e := range exports {
		re := nameRefPattern(e.name)
		used[e.name] = len(re.FindAllStringIndex(js, -1))
	}

	var out []byte
	last := 0
	for _, e := range exports {
		// an export used only by its own declaration (count 1) is dead
		if used[e.name] <= 1 {
			out = append(out, js[last:e.keywordStart]...)
			last = e.keywordEnd
		}
	}
	out = append(out, js[last:]...)
	return string(out)
}
