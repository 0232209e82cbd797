package ocr

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"ticketdesk/internal/fileutil"
	"ticketdesk/internal/textutil"
)

// PageCache owns rendered and preprocessed page images under one directory.
type PageCache struct {
	dir string
}

// CacheStats summarizes the page cache contents.
type CacheStats struct {
	Dir       string  `json:"cache_dir"`
	FileCount int     `json:"file_count"`
	SizeBytes int64   `json:"size_bytes"`
	SizeMB    float64 `json:"total_size_mb"`
}

// NewPageCache returns a cache rooted at dir.
func NewPageCache(dir string) *PageCache {
	return &PageCache{dir: dir}
}

// Dir returns the cache root.
func (c *PageCache) Dir() string {
	return c.dir
}

// Workspace creates a unique per-intake directory named after the source stem.
func (c *PageCache) Workspace(source string) (string, error) {
	stem := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	name := textutil.SanitizeToken(stem) + "_" + uuid.NewString()[:8]
	dir := filepath.Join(c.dir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create page workspace: %w", err)
	}
	return dir, nil
}

// Stats reports file count and size. A missing cache reports zero.
func (c *PageCache) Stats() (CacheStats, error) {
	files, size, err := fileutil.DirUsage(c.dir)
	if err != nil {
		return CacheStats{}, err
	}
	return CacheStats{
		Dir:       c.dir,
		FileCount: files,
		SizeBytes: size,
		SizeMB:    float64(size) / (1024 * 1024),
	}, nil
}

// Clear removes everything under the cache root and returns the number of
// files deleted.
func (c *PageCache) Clear() (int, error) {
	files, _, err := fileutil.DirUsage(c.dir)
	if err != nil {
		return 0, err
	}
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(c.dir, entry.Name())); err != nil {
			return 0, fmt.Errorf("clear page cache: %w", err)
		}
	}
	return files, nil
}
