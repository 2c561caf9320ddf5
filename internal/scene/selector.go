// Package scene tracks the scene selection document and resolves scene
// assets. Reloads are debounced: a file touched by an external editor is
// not trusted until it has been stable for a settle interval, because the
// presentation backend needs several seconds to open a deck and start a
// slideshow and a premature reload would retrigger mid-startup.
package scene

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DefaultSettleInterval is the minimum age a modified scene file must reach
// before its content is trusted.
const DefaultSettleInterval = 5 * time.Second

// RoleScript binds a role name to its script file within a scene.
type RoleScript struct {
	Role   string `json:"role"`
	Script string `json:"script"`
}

// Entry is one selectable scene in the catalog.
type Entry struct {
	Name  string       `json:"name"`
	File  string       `json:"file"`
	Roles []RoleScript `json:"roles,omitempty"`
}

// Config is the scene selection document.
type Config struct {
	AssetsBase  string  `json:"assets_base"`
	ActiveScene string  `json:"active_scene"`
	SceneList   []Entry `json:"scene_list"`
}

// Selector loads the scene document and reports debounced scene switches.
type Selector struct {
	path   string
	settle time.Duration
	now    func() time.Time

	mu      sync.Mutex
	cfg     Config
	lastMod time.Time
}

// NewSelector creates a selector for the document at path. A non-positive
// settle interval falls back to DefaultSettleInterval.
func NewSelector(path string, settle time.Duration) *Selector {
	if settle <= 0 {
		settle = DefaultSettleInterval
	}
	return &Selector{
		path:   path,
		settle: settle,
		now:    time.Now,
	}
}

func (s *Selector) read() (Config, time.Time, error) {
	var cfg Config

	info, err := os.Stat(s.path)
	if err != nil {
		return cfg, time.Time{}, err
	}
	b, err := os.ReadFile(s.path)
	if err != nil {
		return cfg, time.Time{}, err
	}
	if err := json.Unmarshal(b, &cfg); err != nil {
		return cfg, time.Time{}, fmt.Errorf("scene config corrupt: %s: %w", s.path, err)
	}
	return cfg, info.ModTime(), nil
}

// Load parses the document unconditionally. Used at startup, where a
// malformed document is fatal.
func (s *Selector) Load() error {
	cfg, mod, err := s.read()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.cfg = cfg
	s.lastMod = mod
	s.mu.Unlock()
	return nil
}

// RefreshIfChanged reloads the document when its modification time changed
// AND the change has been stable for at least the settle interval. It
// returns true only when the newly read active scene differs from the
// previously recorded one. A reload whose active scene is unchanged still
// adopts the new catalog content silently.
func (s *Selector) RefreshIfChanged() (bool, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	unchanged := info.ModTime().Equal(s.lastMod)
	prevScene := s.cfg.ActiveScene
	s.mu.Unlock()
	if unchanged {
		return false, nil
	}

	if s.now().Sub(info.ModTime()) < s.settle {
		// Still settling; leave lastMod alone so the next tick retries.
		return false, nil
	}

	cfg, mod, err := s.read()
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	s.cfg = cfg
	s.lastMod = mod
	s.mu.Unlock()

	return cfg.ActiveScene != prevScene, nil
}

// Config returns a copy of the current document.
func (s *Selector) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// ActiveScene returns the currently selected scene name.
func (s *Selector) ActiveScene() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.ActiveScene
}

// AssetsBase returns the asset root, defaulting to the scene file's
// directory when the document does not set one.
func (s *Selector) AssetsBase() string {
	s.mu.Lock()
	base := s.cfg.AssetsBase
	s.mu.Unlock()
	if base == "" {
		base = filepath.Dir(s.path)
	}
	return base
}

// ActiveAssetFile resolves the active scene's deck file against the asset
// root. It returns "" when the scene is not in the catalog or the resolved
// file does not exist; a missing asset is not an error here.
func (s *Selector) ActiveAssetFile() string {
	s.mu.Lock()
	cfg := s.cfg
	s.mu.Unlock()

	entry := findEntry(cfg.SceneList, cfg.ActiveScene)
	if entry == nil || entry.File == "" {
		return ""
	}
	return s.resolve(entry.File)
}

// ScriptForRole resolves the active scene's script for the given role,
// or "" when the scene or role has no script on disk.
func (s *Selector) ScriptForRole(role string) string {
	s.mu.Lock()
	cfg := s.cfg
	s.mu.Unlock()

	entry := findEntry(cfg.SceneList, cfg.ActiveScene)
	if entry == nil {
		return ""
	}
	for _, rs := range entry.Roles {
		if rs.Role == role {
			return s.resolve(rs.Script)
		}
	}
	return ""
}

// NextScene returns the scene after the active one in catalog order,
// wrapping around. Returns "" when the active scene is not in the catalog.
func (s *Selector) NextScene() string {
	s.mu.Lock()
	cfg := s.cfg
	s.mu.Unlock()

	for i, entry := range cfg.SceneList {
		if entry.Name == cfg.ActiveScene {
			return cfg.SceneList[(i+1)%len(cfg.SceneList)].Name
		}
	}
	return ""
}

func (s *Selector) resolve(rel string) string {
	if rel == "" {
		return ""
	}
	path := rel
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.AssetsBase(), path)
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

func findEntry(list []Entry, name string) *Entry {
	for i := range list {
		if list[i].Name == name {
			return &list[i]
		}
	}
	return nil
}
