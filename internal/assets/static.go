package assets

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vvoss-dev/reedcms/internal/reedstream"
)

// ServeOptions configures static asset serving for one request.
type ServeOptions struct {
	Root         string
	RequestPath  string
	AcceptEncoding string
}

// ServeResult carries everything the HTTP layer needs to write a
// response: the path to actually read from disk (possibly a .gz/.br
// sidecar), the headers to set, and a 304 short-circuit flag.
type ServeResult struct {
	FilePath        string
	ContentType     string
	ContentEncoding string
	ETag            string
	CacheControl    string
	NotModified     bool
}

var cacheControlByExt = map[string]string{
	".css":  "public, max-age=31536000, immutable",
	".js":   "public, max-age=31536000, immutable",
	".png":  "public, max-age=31536000, immutable",
	".jpg":  "public, max-age=31536000, immutable",
	".jpeg": "public, max-age=31536000, immutable",
	".svg":  "public, max-age=31536000, immutable",
	".woff": "public, max-age=31536000, immutable",
	".woff2": "public, max-age=31536000, immutable",
	".ico":  "public, max-age=86400",
	".map":  "public, max-age=31536000",
}

const defaultCacheControl = "public, max-age=3600"

// ResolveStatic validates requestPath against root (rejecting any
// traversal outside root), selects the best pre-compressed sidecar for
// the client's Accept-Encoding (brotli preferred over gzip over
// identity), and computes caching headers. ifNoneMatch, when non-empty,
// is compared against the computed ETag to short-circuit a 304.
func ResolveStatic(root, requestPath, acceptEncoding, ifNoneMatch string) (ServeResult, error) {
	cleanPath := filepath.Clean("/" + requestPath)
	fullPath := filepath.Join(root, cleanPath)

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return ServeResult{}, reedstream.IOError("abs", root, err)
	}
	absFull, err := filepath.Abs(fullPath)
	if err != nil {
		return ServeResult{}, reedstream.IOError("abs", fullPath, err)
	}
	if absFull != absRoot && !strings.HasPrefix(absFull, absRoot+string(filepath.Separator)) {
		return ServeResult{}, reedstream.Security("resolve_static", "path traversal rejected: "+requestPath)
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		return ServeResult{}, reedstream.NotFound(requestPath)
	}
	if info.IsDir() {
		return ServeResult{}, reedstream.NotFound(requestPath)
	}

	etag := computeETag(info.ModTime(), info.Size())
	if ifNoneMatch != "" && ifNoneMatch == etag {
		return ServeResult{ETag: etag, NotModified: true}, nil
	}

	servePath := fullPath
	encoding := ""
	if strings.Contains(acceptEncoding, "br") {
		if _, err := os.Stat(fullPath + ".br"); err == nil {
			servePath = fullPath + ".br"
			encoding = "br"
		}
	}
	if encoding == "" && strings.Contains(acceptEncoding, "gzip") {
		if _, err := os.Stat(fullPath + ".gz"); err == nil {
			servePath = fullPath + ".gz"
			encoding = "gzip"
		}
	}

	ext := filepath.Ext(fullPath)
	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	cc, ok := cacheControlByExt[ext]
	if !ok {
		cc = defaultCacheControl
	}

	return ServeResult{
		FilePath:        servePath,
		ContentType:     contentType,
		ContentEncoding: encoding,
		ETag:            etag,
		CacheControl:    cc,
	}, nil
}

func computeETag(modTime time.Time, size int64) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d-%s", size, modTime.UTC().Format(time.RFC3339Nano))))
	return `"` + hex.EncodeToString(sum[:])[:16] + `"`
}

// ApplyHeaders writes the headers described by res onto w, and returns
// true if the response was a 304 short-circuit (callers must still call
// w.WriteHeader(http.StatusNotModified) and return without writing a
// body).
func ApplyHeaders(w http.ResponseWriter, res ServeResult) bool {
	w.Header().Set("ETag", res.ETag)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if res.NotModified {
		return true
	}
	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Cache-Control", res.CacheControl)
	if res.ContentEncoding != "" {
		w.Header().Set("Content-Encoding", res.ContentEncoding)
		w.Header().Set("Vary", "Accept-Encoding")
	}
	return false
}
