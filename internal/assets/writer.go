package assets

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/vvoss-dev/reedcms/internal/reedstream"
)

var hashedFilenamePattern = regexp.MustCompile(`\.([0-9a-f]{8})\.(css|js)(\.map)?$`)

// EnsureOutputDir creates dir (and parents) if it does not already exist.
func EnsureOutputDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return reedstream.IOError("mkdir", dir, err)
	}
	return nil
}

// WriteBundleFile atomically writes content to dir/filename.
func WriteBundleFile(dir, filename, content string) (string, error) {
	if err := EnsureOutputDir(dir); err != nil {
		return "", err
	}
	path := filepath.Join(dir, filename)
	if err := atomicWriteFile(path, []byte(content)); err != nil {
		return "", reedstream.IOError("write", path, err)
	}
	return path, nil
}

func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// ExtractHashFromFilename returns the 8-hex-char session hash embedded in
// a bundle filename, and whether one was found.
func ExtractHashFromFilename(filename string) (string, bool) {
	m := hashedFilenamePattern.FindStringSubmatch(filename)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// CleanOldBundles removes every hashed bundle file in dir matching
// baseName (e.g. "layout.mouse") except the one carrying currentHash,
// mirroring the session-hash cache-busting scheme: stale bundles from
// prior builds must not accumulate forever on disk.
func CleanOldBundles(dir, baseName, currentHash string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, reedstream.IOError("read_dir", dir, err)
	}

	removed := 0
	var firstErr error
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		hash, ok := ExtractHashFromFilename(name)
		if !ok || hash == currentHash {
			continue
		}
		prefix := baseName + "."
		if len(name) < len(prefix) || name[:len(prefix)] != prefix {
			continue
		}
		if rest := name[len(prefix):]; len(rest) < len(hash)+1 || rest[:len(hash)+1] != hash+"." {
			continue
		}
		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil {
			if firstErr == nil {
				firstErr = reedstream.IOError("remove", path, err)
			}
			continue
		}
		removed++
	}
	return removed, firstErr
}

// ListBundleHashes returns the distinct session hashes currently present
// for baseName in dir, sorted lexicographically (hashes carry no temporal
// ordering on their own, so the order says nothing about age).
func ListBundleHashes(dir, baseName string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, reedstream.IOError("read_dir", dir, err)
	}
	seen := map[string]bool{}
	var hashes []string
	prefix := baseName + "."
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if len(name) < len(prefix) || name[:len(prefix)] != prefix {
			continue
		}
		hash, ok := ExtractHashFromFilename(name)
		if !ok || seen[hash] {
			continue
		}
		if rest := name[len(prefix):]; len(rest) < len(hash)+1 || rest[:len(hash)+1] != hash+"." {
			continue
		}
		seen[hash] = true
		hashes = append(hashes, hash)
	}
	sort.Strings(hashes)
	return hashes, nil
}
