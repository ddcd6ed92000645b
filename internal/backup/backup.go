// Package backup creates, lists, and restores XZ-compressed snapshots of
// ReedCMS CSV files, enforcing the 32-newest retention policy.
package backup

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ulikunitz/xz"

	"github.com/vvoss-dev/reedcms/internal/obs"
	"github.com/vvoss-dev/reedcms/internal/reedstream"
)

// MaxBackups is the retention ceiling: beyond this many snapshots per
// source file, the oldest are pruned.
const MaxBackups = 32

// Info describes one backup snapshot on disk.
type Info struct {
	Path         string
	OriginalName string
	Timestamp    string // YYYYMMDD_HHMMSS
	SizeBytes    int64
}

// HumanSize renders SizeBytes in a human-readable form, e.g. "4.2 kB".
func (i Info) HumanSize() string {
	return humanize.Bytes(uint64(i.SizeBytes))
}

var backupNamePattern = regexp.MustCompile(`^(.+)\.(\d{8}_\d{6})\.xz$`)

// Create compresses sourcePath with XZ (LZMA2, preset 6) into
// {dir}/backups/{filename}.{timestamp}.xz, writing via a same-directory
// temp file followed by rename. now is injected for deterministic tests.
func Create(sourcePath string, now time.Time) (string, error) {
	content, err := os.ReadFile(sourcePath)
	if err != nil {
		return "", reedstream.IOError("open", sourcePath, err)
	}

	backupDir := filepath.Join(filepath.Dir(sourcePath), "backups")
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return "", reedstream.IOError("mkdir", backupDir, err)
	}

	filename := filepath.Base(sourcePath)
	timestamp := now.Format("20060102_150405")
	backupFilename := fmt.Sprintf("%s.%s.xz", filename, timestamp)
	backupPath := filepath.Join(backupDir, backupFilename)
	tempPath := filepath.Join(backupDir, backupFilename+".tmp")

	var compressed bytes.Buffer
	w, err := xz.NewWriter(&compressed)
	if err != nil {
		return "", reedstream.Compression("encode", err.Error())
	}
	if _, err := w.Write(content); err != nil {
		return "", reedstream.Compression("encode", err.Error())
	}
	if err := w.Close(); err != nil {
		return "", reedstream.Compression("encode", err.Error())
	}

	if err := os.WriteFile(tempPath, compressed.Bytes(), 0o644); err != nil {
		os.Remove(tempPath)
		return "", reedstream.IOError("create", tempPath, err)
	}
	if err := os.Rename(tempPath, backupPath); err != nil {
		os.Remove(tempPath)
		return "", reedstream.IOError("rename", backupPath, err)
	}

	obs.Logger.WithFields(map[string]any{
		"component": "backup",
		"operation": "create",
		"path":      backupPath,
	}).Debug("backup created")

	if _, err := Cleanup(sourcePath); err != nil {
		return backupPath, err
	}
	return backupPath, nil
}

// List returns every backup for sourcePath, newest first. A missing
// backups directory is not an error — it yields an empty list.
func List(sourcePath string) ([]Info, error) {
	backupDir := filepath.Join(filepath.Dir(sourcePath), "backups")
	entries, err := os.ReadDir(backupDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, reedstream.IOError("readdir", backupDir, err)
	}

	filename := filepath.Base(sourcePath)
	var infos []Info
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := backupNamePattern.FindStringSubmatch(e.Name())
		if m == nil || m[1] != filename {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		infos = append(infos, Info{
			Path:         filepath.Join(backupDir, e.Name()),
			OriginalName: filename,
			Timestamp:    m[2],
			SizeBytes:    fi.Size(),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Timestamp > infos[j].Timestamp })
	return infos, nil
}

// Cleanup prunes backups for sourcePath beyond the MaxBackups newest,
// returning the number deleted. Deletion is attempted for every excess
// file even if some fail; the first failure is returned after all
// attempts complete.
func Cleanup(sourcePath string) (int, error) {
	infos, err := List(sourcePath)
	if err != nil {
		return 0, err
	}
	if len(infos) <= MaxBackups {
		return 0, nil
	}

	toDelete := infos[MaxBackups:]
	deleted := 0
	var firstErr error
	for _, info := range toDelete {
		if err := os.Remove(info.Path); err != nil {
			if firstErr == nil {
				firstErr = reedstream.IOError("cleanup", info.Path, err)
			}
			continue
		}
		deleted++
	}
	return deleted, firstErr
}

// Restore decompresses backupPath and atomically writes the result to
// destPath, overwriting any existing file there.
func Restore(backupPath, destPath string) error {
	f, err := os.Open(backupPath)
	if err != nil {
		return reedstream.IOError("open", backupPath, err)
	}
	defer f.Close()

	r, err := xz.NewReader(f)
	if err != nil {
		return reedstream.Compression("decode", err.Error())
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return reedstream.Compression("decode", err.Error())
	}

	tempPath := destPath + ".tmp"
	if err := os.WriteFile(tempPath, content, 0o644); err != nil {
		return reedstream.IOError("write", tempPath, err)
	}
	if err := os.Rename(tempPath, destPath); err != nil {
		os.Remove(tempPath)
		return reedstream.IOError("rename", destPath, err)
	}
	return nil
}
