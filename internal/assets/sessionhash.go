package assets

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
)

// SessionHash derives the 8-hex-char cache-busting hash for a bundle from
// the concatenated contents of its source files, per the GLOSSARY's
// "Session hash" definition: a build changes only when its inputs change,
// and the hash is stable across rebuilds that produce byte-identical
// output.
func SessionHash(contents ...string) string {
	h := sha256.New()
	for _, c := range contents {
		h.Write([]byte(c))
	}
	sum := h.Sum(nil)
	return hex.EncodeToString(sum)[:8]
}

// HashedFilename inserts the session hash before the file extension, e.g.
// "layout.mouse.css" + "a1b2c3d4" -> "layout.mouse.a1b2c3d4.css".
func HashedFilename(name, hash string) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	return fmt.Sprintf("%s.%s%s", base, hash, ext)
}
