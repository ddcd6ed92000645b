package assets

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"

	"github.com/vvoss-dev/reedcms/internal/reedstream"
)

// PrecompressOptions controls gzip/brotli sidecar generation.
type PrecompressOptions struct {
	GzipLevel   int // default gzip.DefaultCompression when 0
	BrotliLevel int // default 6 when 0
}

// Precompress writes a .gz and a .br sidecar next to path, skipping a
// sidecar when the compressed form would not be smaller than the
// original or the existing sidecar is already newer than path (SPEC_FULL
// §4.5's "smaller than original and newer than sibling" rule).
func Precompress(path string, opts PrecompressOptions) (gzPath, brPath string, err error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", "", reedstream.IOError("read", path, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", "", reedstream.IOError("stat", path, err)
	}

	gzLevel := opts.GzipLevel
	if gzLevel == 0 {
		gzLevel = gzip.DefaultCompression
	}
	brLevel := opts.BrotliLevel
	if brLevel == 0 {
		brLevel = 6
	}

	gzOut := path + ".gz"
	if shouldWriteSidecar(gzOut, path, info.ModTime()) {
		compressed, err := gzipCompress(content, gzLevel)
		if err != nil {
			return "", "", err
		}
		if len(compressed) < len(content) {
			if err := atomicWriteFile(gzOut, compressed); err != nil {
				return "", "", reedstream.IOError("write", gzOut, err)
			}
			gzPath = gzOut
		}
	} else {
		gzPath = gzOut
	}

	brOut := path + ".br"
	if shouldWriteSidecar(brOut, path, info.ModTime()) {
		compressed := brotliCompress(content, brLevel)
		if len(compressed) < len(content) {
			if err := atomicWriteFile(brOut, compressed); err != nil {
				return "", "", reedstream.IOError("write", brOut, err)
			}
			brPath = brOut
		}
	} else {
		brPath = brOut
	}

	return gzPath, brPath, nil
}

func shouldWriteSidecar(sidecarPath, originalPath string, originalModTime time.Time) bool {
	info, err := os.Stat(sidecarPath)
	if err != nil {
		return true
	}
	return info.ModTime().Before(originalModTime)
}

func gzipCompress(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, reedstream.Compression("gzip encode", err.Error())
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, reedstream.Compression("gzip encode", err.Error())
	}
	if err := w.Close(); err != nil {
		return nil, reedstream.Compression("gzip encode", err.Error())
	}
	return buf.Bytes(), nil
}

func brotliCompress(data []byte, level int) []byte {
	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, level)
	w.Write(data)
	w.Close()
	return buf.Bytes()
}

// PrecompressDir walks dir and pre-compresses every file matching one of
// the given extensions (e.g. ".css", ".js", ".html").
func PrecompressDir(dir string, extensions []string, opts PrecompressOptions) (int, error) {
	extSet := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		extSet[e] = true
	}
	count := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if extSet[filepath.Ext(path)] {
			if _, _, err := Precompress(path, opts); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return count, reedstream.IOError("walk", dir, err)
	}
	return count, nil
}
