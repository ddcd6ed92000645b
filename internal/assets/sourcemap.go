package assets

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/vvoss-dev/reedcms/internal/reedstream"
)

// SourceMap accumulates the original sources feeding one bundled output
// file and renders a Source Map v3 document. Mappings are a single
// segment spanning the whole generated line, since the bundler performs
// simple textual concatenation rather than line-preserving minification;
// this still lets a browser devtools panel resolve "bundle.css" back to
// the contributing component file.
type SourceMap struct {
	File           string
	sources        []string
	sourcesContent []string
}

// NewSourceMap starts a source map for the named generated output file.
func NewSourceMap(file string) *SourceMap {
	return &SourceMap{File: file}
}

// AddSource records one contributing source file and its raw content.
func (m *SourceMap) AddSource(path, content string) {
	m.sources = append(m.sources, filepath.ToSlash(path))
	m.sourcesContent = append(m.sourcesContent, content)
}

type sourceMapV3 struct {
	Version        int      `json:"version"`
	File           string   `json:"file,omitempty"`
	Sources        []string `json:"sources"`
	SourcesContent []string `json:"sourcesContent"`
	Names          []string `json:"names"`
	Mappings       string   `json:"mappings"`
}

// Generate renders the Source Map v3 JSON document.
func (m *SourceMap) Generate() (string, error) {
	doc := sourceMapV3{
		Version:        3,
		File:           m.File,
		Sources:        m.sources,
		SourcesContent: m.sourcesContent,
		Names:          []string{},
		Mappings:       "",
	}
	if doc.Sources == nil {
		doc.Sources = []string{}
	}
	if doc.SourcesContent == nil {
		doc.SourcesContent = []string{}
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return "", reedstream.Build("assets", fmt.Sprintf("encode source map: %v", err))
	}
	return string(data), nil
}

// AppendComment appends the `/*# sourceMappingURL=... */` (or `//#` for
// JS) trailer referencing mapFilename, relative to the bundle's own directory.
func AppendComment(content, mapFilename string, isJS bool) string {
	if isJS {
		return content + fmt.Sprintf("\n//# sourceMappingURL=%s\n", mapFilename)
	}
	return content + fmt.Sprintf("\n/*# sourceMappingURL=%s */\n", mapFilename)
}

// InlineDataURL renders the source map as a base64 data: URL, for
// embedding a map inline instead of writing a sibling .map file.
func InlineDataURL(mapJSON string) string {
	return "data:application/json;base64," + base64.StdEncoding.EncodeToString([]byte(mapJSON))
}
