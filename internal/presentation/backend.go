// Package presentation observes and drives the external presentation
// application through a narrow capability interface. The application may be
// closed, minimized, or mid-transition at any time; every failure here is
// non-fatal and surfaces as an unknown snapshot.
package presentation

import "errors"

// ErrUnavailable indicates the presentation application is not reachable.
var ErrUnavailable = errors.New("presentation backend unavailable")

// Snapshot is the observable presentation state at one instant.
// Index fields use -1 for unknown/not applicable; a ShowIndex > 0 means a
// live slideshow is running, while ShowIndex == -1 with EditIndex > 0 means
// editing without presenting.
type Snapshot struct {
	DeckName   string
	EditIndex  int
	ShowIndex  int
	SlideCount int
}

// Unknown returns the snapshot reported when the backend is unreachable.
func Unknown() Snapshot {
	return Snapshot{EditIndex: -1, ShowIndex: -1, SlideCount: -1}
}

// Backend is the capability interface over the presentation application.
type Backend interface {
	// Connect attaches to a running presentation application.
	Connect() error
	// Snapshot reports the current deck name, cursors, and slide count.
	Snapshot() (Snapshot, error)
	// Navigate moves the visible page by delta (+1 next, -1 previous).
	// During a slideshow the show cursor moves, otherwise the edit cursor.
	Navigate(delta int) error
	// GotoPage jumps to a specific 1-based slide.
	GotoPage(page int) error
	// OpenDeck opens the presentation document at path.
	OpenDeck(path string) error
	// StartShow starts a slideshow for the active deck.
	StartShow() error
}

// Offline is a Backend for running without a presentation application
// attached. Every call reports the backend as unavailable.
type Offline struct{}

func (Offline) Connect() error              { return ErrUnavailable }
func (Offline) Snapshot() (Snapshot, error) { return Unknown(), ErrUnavailable }
func (Offline) Navigate(delta int) error    { return ErrUnavailable }
func (Offline) GotoPage(page int) error     { return ErrUnavailable }
func (Offline) OpenDeck(path string) error  { return ErrUnavailable }
func (Offline) StartShow() error            { return ErrUnavailable }
