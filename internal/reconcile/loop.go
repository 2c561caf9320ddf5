// Package reconcile drives the synchronization engine: it polls the
// presentation backend and the on-disk configuration, reconciles them into
// playback tasks, and hands those to the broadcast hub.
package reconcile

import (
	"context"
	"sync"
	"time"

	"github.com/AaronLay10/AvatarLink/internal/assets"
	"github.com/AaronLay10/AvatarLink/internal/events"
	"github.com/AaronLay10/AvatarLink/internal/opconfig"
	"github.com/AaronLay10/AvatarLink/internal/presentation"
	"github.com/AaronLay10/AvatarLink/internal/scene"
	"github.com/AaronLay10/AvatarLink/internal/tasks"
)

// DefaultInterval is the tick cadence.
const DefaultInterval = 500 * time.Millisecond

// Broadcaster fans an encoded task out to the connected renderers.
type Broadcaster interface {
	Broadcast(payload []byte)
}

// Hooks let the composition root observe loop activity. Any field may be
// nil.
type Hooks struct {
	Tick             func()
	BackendAvailable func(bool)
}

// Config wires the loop's collaborators.
type Config struct {
	Store    *opconfig.Store
	Scenes   *scene.Selector
	Backend  presentation.Backend
	Catalog  *assets.Catalog
	Hub      Broadcaster
	Interval time.Duration
	Role     string
	Hooks    Hooks
}

// Loop is the reconciliation engine. Tick is driven from a single
// goroutine; Status may be called concurrently.
type Loop struct {
	store   *opconfig.Store
	scenes  *scene.Selector
	poller  *presentation.Poller
	backend presentation.Backend
	catalog *assets.Catalog
	hub     Broadcaster

	interval time.Duration
	role     string
	hooks    Hooks

	mu        sync.Mutex
	prev      presentation.Snapshot
	prevEvent opconfig.AvatarEvent
	status    AvatarStatus
	page      int
	ticks     uint64
}

// New creates a loop. Store and Scenes must already be loaded.
func New(cfg Config) *Loop {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Loop{
		store:     cfg.Store,
		scenes:    cfg.Scenes,
		poller:    presentation.NewPoller(cfg.Backend),
		backend:   cfg.Backend,
		catalog:   cfg.Catalog,
		hub:       cfg.Hub,
		interval:  interval,
		role:      cfg.Role,
		hooks:     cfg.Hooks,
		prev:      presentation.Unknown(),
		prevEvent: cfg.Store.Document().AvatarEvent,
		status:    StatusUnknown,
		page:      -1,
	}
}

// Run ticks the loop until the context is cancelled.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		l.Tick()
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Tick runs one reconcile pass: scene first, then operator config, then
// the presentation delta. A corrupt config document aborts the rest of the
// pass; the next tick retries.
func (l *Loop) Tick() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.ticks++
	if l.hooks.Tick != nil {
		l.hooks.Tick()
	}

	l.refreshScene()
	if !l.refreshConfig() {
		return
	}
	l.pollPresentation()
}

// refreshScene applies a debounced scene switch: announce it, then point
// the backend at the scene's deck.
func (l *Loop) refreshScene() {
	changed, err := l.scenes.RefreshIfChanged()
	if err != nil {
		events.Emit("error", "scene.error", "scene file reload failed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if !changed {
		return
	}
	l.announceScene()
}

// AnnounceStartup broadcasts the scene active at boot and points the
// backend at its deck. Called once, before the first tick.
func (l *Loop) AnnounceStartup() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.announceScene()
}

func (l *Loop) announceScene() {
	name := l.scenes.ActiveScene()
	l.emit(tasks.Text(name, defaultTextDuration))
	events.Emit("info", "scene.switched", "active scene changed", map[string]interface{}{
		"scene": name,
	})

	asset := l.scenes.ActiveAssetFile()
	if asset == "" {
		events.Emit("warning", "asset.missing", "scene has no resolvable asset file", map[string]interface{}{
			"scene": name,
		})
		return
	}
	if l.backend == nil {
		return
	}
	if err := l.backend.OpenDeck(asset); err != nil {
		events.Emit("error", "backend.error", "failed to open deck", map[string]interface{}{
			"deck":  asset,
			"error": err.Error(),
		})
		return
	}
	if err := l.backend.StartShow(); err != nil {
		events.Emit("error", "backend.error", "failed to start slideshow", map[string]interface{}{
			"deck":  asset,
			"error": err.Error(),
		})
	}
}

// refreshConfig handles operator edits: reported avatar events, work-mode
// changes, and avatar commands, in that order. Returns false when the
// document is unreadable and the tick should stop here.
func (l *Loop) refreshConfig() bool {
	changed, err := l.store.RefreshIfChanged()
	if err != nil {
		events.Emit("error", "config.error", "config reload failed", map[string]interface{}{
			"error": err.Error(),
		})
		return false
	}
	if !changed {
		return true
	}

	doc := l.store.Document()
	events.Emit("info", "config.reloaded", "", nil)

	if doc.AvatarEvent != l.prevEvent {
		l.prevEvent = doc.AvatarEvent
		st := classifyEvent(doc.AvatarEvent, l.catalog.IdleVideo())
		if st != l.status {
			events.Emit("info", "avatar.status", "status reclassified", map[string]interface{}{
				"status": string(st),
				"event":  doc.AvatarEvent.Event,
				"src":    doc.AvatarEvent.Src,
			})
		}
		l.status = st
		if st == StatusIdle && doc.WorkMode == opconfig.ModeAuto {
			l.advancePage()
		}
	}

	if doc.WorkModeResponse.Result != opconfig.ResultSuccess {
		list, advance := modeTasks(doc.WorkMode, l.status, l.catalog.IdleVideo())
		for _, t := range list {
			l.emit(t)
		}
		if advance {
			l.advancePage()
		}
		l.ack(opconfig.FieldWorkModeResponse)
		events.Emit("info", "mode.changed", "", map[string]interface{}{
			"mode": doc.WorkMode,
		})
	}

	if doc.AvatarCommandResponse.Result != opconfig.ResultSuccess {
		slide := l.catalog.SlideVideo(l.page)
		list, st := commandTasks(doc.AvatarCommand, l.status, slide, l.catalog.IdleVideo())
		if len(list) == 0 {
			events.Emit("warning", "asset.missing", "no assets for command fallback", map[string]interface{}{
				"command": doc.AvatarCommand.Command,
				"page":    l.page,
			})
		}
		for _, t := range list {
			l.emit(t)
		}
		l.status = st
		l.ack(opconfig.FieldAvatarCommandResponse)
		events.Emit("info", "operator.command", "command applied", map[string]interface{}{
			"command": doc.AvatarCommand.Command,
		})
	}

	return true
}

// pollPresentation samples the backend and reacts to deck and page
// changes.
func (l *Loop) pollPresentation() {
	cur := l.poller.Sample()

	available := cur != presentation.Unknown()
	if l.hooks.BackendAvailable != nil {
		l.hooks.BackendAvailable(available)
	}
	if !available {
		if l.prev != presentation.Unknown() {
			events.Emit("warning", "backend.unavailable", "presentation backend lost", nil)
		}
		l.prev = cur
		return
	}

	changed, page := presentation.ComputeDelta(l.prev, cur)
	if changed {
		if cur.DeckName != "" && cur.DeckName != l.prev.DeckName {
			if err := l.catalog.Reload(cur.DeckName); err != nil {
				events.Emit("warning", "asset.missing", "video catalog reload failed", map[string]interface{}{
					"deck":  cur.DeckName,
					"error": err.Error(),
				})
			}
			events.Emit("info", "deck.changed", "", map[string]interface{}{
				"deck": cur.DeckName,
			})
		}

		l.page = page
		events.Emit("info", "page.changed", "", map[string]interface{}{
			"page": page,
		})

		if page > 0 && l.store.Document().WorkMode == opconfig.ModeAuto {
			if t, ok := pagePlaylist(l.catalog.SlideVideo(page), l.catalog.IdleVideo()); ok {
				l.emit(t)
			} else {
				events.Emit("warning", "asset.missing", "no videos for page", map[string]interface{}{
					"deck": cur.DeckName,
					"page": page,
				})
			}
		}
	}

	l.prev = cur
}

// emit encodes a task and hands it to the hub.
func (l *Loop) emit(t tasks.Task) {
	data, err := t.Encode()
	if err != nil {
		events.Emit("error", "system.error", "task encode failed", map[string]interface{}{
			"kind":  string(t.Kind),
			"error": err.Error(),
		})
		return
	}
	l.hub.Broadcast(data)
	events.Emit("info", "task.broadcast", "", map[string]interface{}{
		"kind": string(t.Kind),
	})
}

// ack flips an acknowledgement latch to success. Called only after the
// corresponding tasks have gone out.
func (l *Loop) ack(field opconfig.ResponseField) {
	resp := opconfig.Response{Result: opconfig.ResultSuccess}
	if err := l.store.WriteAcknowledgement(field, resp); err != nil {
		events.Emit("error", "config.error", "acknowledgement write failed", map[string]interface{}{
			"field": string(field),
			"error": err.Error(),
		})
		return
	}
	events.Emit("info", "config.acknowledged", "", map[string]interface{}{
		"field": string(field),
	})
}

// advancePage moves the deck forward one slide. The resulting cursor move
// comes back through the next tick's presentation delta.
func (l *Loop) advancePage() {
	if l.backend == nil {
		return
	}
	if err := l.backend.Navigate(1); err != nil {
		events.Emit("error", "backend.error", "failed to advance page", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// Status reports the loop's current view for the operator surface.
func (l *Loop) Status() interface{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	doc := l.store.Document()
	return map[string]interface{}{
		"avatar_status": string(l.status),
		"work_mode":     doc.WorkMode,
		"deck":          l.prev.DeckName,
		"page":          l.page,
		"scene":         l.scenes.ActiveScene(),
		"next_scene":    l.scenes.NextScene(),
		"role_script":   l.scenes.ScriptForRole(l.role),
		"ticks":         l.ticks,
	}
}
