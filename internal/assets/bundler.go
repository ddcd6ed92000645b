package assets

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/vvoss-dev/reedcms/internal/reedstream"
)

// BundleOptions controls one bundling pass.
type BundleOptions struct {
	OutputDir         string
	StripConsoleLog   bool // production builds only
	GenerateSourceMap bool
}

// BundleCSS concatenates, minifies, and writes the CSS files for one
// layout+variant, returning the written bundle's details.
func BundleCSS(layout, variant string, files []string, opts BundleOptions) (BundleResult, error) {
	return bundle(layout, variant, "css", files, opts, func(src string) string {
		return MinifyCSS(src)
	})
}

// BundleJS concatenates, tree-shakes, minifies, and writes the JS files
// for one layout, returning the written bundle's details.
func BundleJS(layout string, files []string, opts BundleOptions) (BundleResult, error) {
	return bundle(layout, "", "js", files, opts, func(src string) string {
		return MinifyJS(TreeShake(src), opts.StripConsoleLog)
	})
}

func bundle(layout, variant, ext string, files []string, opts BundleOptions, transform func(string) string) (BundleResult, error) {
	var combined strings.Builder
	sm := NewSourceMap("")
	originalSize := 0
	for _, f := range files {
		content, err := os.ReadFile(f)
		if err != nil {
			return BundleResult{}, reedstream.IOError("read", f, err)
		}
		originalSize += len(content)
		combined.WriteString(string(content))
		combined.WriteString("\n")
		sm.AddSource(f, string(content))
	}

	minified := transform(combined.String())
	hash := SessionHash(combined.String())

	baseName := layout
	if variant != "" {
		baseName = layout + "." + variant
	}
	filename := HashedFilename(baseName+"."+ext, hash)
	sm.File = filename

	final := minified
	var mapPath string
	if opts.GenerateSourceMap {
		mapFilename := filename + ".map"
		mapJSON, err := sm.Generate()
		if err != nil {
			return BundleResult{}, err
		}
		if _, err := WriteBundleFile(opts.OutputDir, mapFilename, mapJSON); err != nil {
			return BundleResult{}, err
		}
		mapPath = filepath.Join(opts.OutputDir, mapFilename)
		final = AppendComment(minified, mapFilename, ext == "js")
	}

	outPath, err := WriteBundleFile(opts.OutputDir, filename, final)
	if err != nil {
		return BundleResult{}, err
	}

	if _, err := CleanOldBundles(opts.OutputDir, baseName, hash); err != nil {
		return BundleResult{}, err
	}

	return BundleResult{
		OutputPath:       outPath,
		OriginalSize:     originalSize,
		MinifiedSize:     len(final),
		ReductionPercent: CalculateReduction(originalSize, len(final)),
		SourceMapPath:    mapPath,
	}, nil
}

// EnsureBundlesExist builds CSS and JS bundles for every variant of a
// layout under opts.OutputDir, returning the results keyed by
// "css:<variant>" / "js". It does not check for existing output: every
// call rebuilds each bundle, and a bundle whose sources are unchanged is
// rewritten under the same hashed filename.
func EnsureBundlesExist(templatesRoot, layout string, variants []string, opts BundleOptions) (map[string]BundleResult, error) {
	results := map[string]BundleResult{}
	for _, variant := range variants {
		la, err := DiscoverLayoutAssets(templatesRoot, layout, variant)
		if err != nil {
			return nil, err
		}
		if len(la.CSSFiles) > 0 {
			res, err := BundleCSS(layout, variant, la.CSSFiles, opts)
			if err != nil {
				return nil, err
			}
			results["css:"+variant] = res
		}
		if variant == variants[0] && len(la.JSFiles) > 0 {
			res, err := BundleJS(layout, la.JSFiles, opts)
			if err != nil {
				return nil, err
			}
			results["js"] = res
		}
	}
	return results, nil
}
