// Package assets resolves per-slide video files for the active deck.
package assets

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

const (
	catalogFile    = "slide_video.json"
	slideKeyPrefix = "slide-"
	idleKey        = "idle"
)

type catalogEntry struct {
	Name   string            `json:"name"`
	Videos map[string]string `json:"videos"`
}

type catalogDoc struct {
	SlideVideos []catalogEntry `json:"slide_videos"`
}

// Catalog caches the slide-to-video mapping for one deck. Reload when the
// active deck changes.
type Catalog struct {
	baseDir string

	mu     sync.Mutex
	deck   string
	videos map[string]string
}

// NewCatalog creates a catalog rooted at the assets base directory.
func NewCatalog(baseDir string) *Catalog {
	return &Catalog{baseDir: baseDir}
}

// Reload reads the catalog document and caches the entry for deckName.
// Entries are matched by filename suffix, so a catalog entry may reference
// the deck by a relative or absolute path whose trailing segment matches.
// A deck with no catalog entry is not an error: lookups simply resolve
// to "".
func (c *Catalog) Reload(deckName string) error {
	path := filepath.Join(c.baseDir, catalogFile)
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var doc catalogDoc
	if err := json.Unmarshal(b, &doc); err != nil {
		return fmt.Errorf("video catalog corrupt: %s: %w", path, err)
	}

	videos := make(map[string]string)
	if deckName != "" {
		for _, entry := range doc.SlideVideos {
			if !strings.HasSuffix(entry.Name, deckName) {
				continue
			}
			for key, rel := range entry.Videos {
				videos[key] = c.resolve(rel)
			}
			break
		}
	}

	c.mu.Lock()
	c.deck = deckName
	c.videos = videos
	c.mu.Unlock()
	return nil
}

// Deck returns the deck name the catalog currently covers.
func (c *Catalog) Deck() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deck
}

// SlideVideo returns the video file for the given slide index, or "" when
// the slide has no video or the file is missing on disk.
func (c *Catalog) SlideVideo(page int) string {
	return c.lookup(slideKeyPrefix + strconv.Itoa(page))
}

// IdleVideo returns the deck's idle loop video, or "".
func (c *Catalog) IdleVideo() string {
	return c.lookup(idleKey)
}

func (c *Catalog) lookup(key string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.videos[key]
}

// resolve joins a catalog-relative path against the asset root and checks
// that the file exists; missing files resolve to "".
func (c *Catalog) resolve(rel string) string {
	if rel == "" {
		return ""
	}
	path := rel
	if !filepath.IsAbs(path) {
		path = filepath.Join(c.baseDir, path)
	}
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return ""
	}
	return abs
}
