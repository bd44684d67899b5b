package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ClipCache keeps local copies of exercise clips. Catalog entries reference
// clips by URL; downloading per request would dominate generation time, so
// files are fetched once and reused until the cleanup pass ages them out.
type ClipCache struct {
	dir    string
	client *http.Client

	mu       sync.Mutex
	inFlight map[string]*sync.WaitGroup
}

func NewClipCache(dir string) *ClipCache {
	return &ClipCache{
		dir:      dir,
		client:   &http.Client{Timeout: 2 * time.Minute},
		inFlight: make(map[string]*sync.WaitGroup),
	}
}

// Get returns a local path for the clip at url, downloading it on a miss.
// Plain filesystem paths are passed through untouched. Concurrent requests
// for the same URL share one download.
func (c *ClipCache) Get(url string) (string, error) {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		if _, err := os.Stat(url); err != nil {
			return "", fmt.Errorf("local clip %s: %w", url, err)
		}
		return url, nil
	}

	local := filepath.Join(c.dir, cacheName(url))

	for {
		if _, err := os.Stat(local); err == nil {
			return local, nil
		}

		c.mu.Lock()
		if wg, busy := c.inFlight[url]; busy {
			c.mu.Unlock()
			wg.Wait()
			continue
		}
		wg := &sync.WaitGroup{}
		wg.Add(1)
		c.inFlight[url] = wg
		c.mu.Unlock()

		err := c.download(url, local)
		c.mu.Lock()
		delete(c.inFlight, url)
		c.mu.Unlock()
		wg.Done()

		if err != nil {
			return "", err
		}
		return local, nil
	}
}

func (c *ClipCache) download(url, dest string) error {
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	resp, err := c.client.Get(url)
	if err != nil {
		return fmt.Errorf("fetch clip: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch clip %s: status %d", url, resp.StatusCode)
	}

	// Download to a temp name and rename so readers never see partial files.
	tmp, err := os.CreateTemp(c.dir, ".download-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, resp.Body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("download clip: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return err
	}
	log.Printf("ClipCache: downloaded %s (%d bytes)", path.Base(dest), n)
	return nil
}

// CleanupOld removes cached clips not touched within maxAge. Returns the
// number removed.
func (c *ClipCache) CleanupOld(maxAge time.Duration) int {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0
	}
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, entry.Name())); err == nil {
			removed++
		}
	}
	if removed > 0 {
		log.Printf("ClipCache: removed %d stale clip(s)", removed)
	}
	return removed
}

func cacheName(url string) string {
	sum := sha256.Sum256([]byte(url))
	ext := path.Ext(url)
	if ext == "" || len(ext) > 5 {
		ext = ".mp4"
	}
	return hex.EncodeToString(sum[:8]) + ext
}
