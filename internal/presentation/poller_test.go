package presentation

import (
	"errors"
	"testing"
)

// fakeBackend returns a scripted snapshot or error.
type fakeBackend struct {
	snap Snapshot
	err  error
}

func (f *fakeBackend) Connect() error              { return f.err }
func (f *fakeBackend) Snapshot() (Snapshot, error) { return f.snap, f.err }
func (f *fakeBackend) Navigate(delta int) error    { return f.err }
func (f *fakeBackend) GotoPage(page int) error     { return f.err }
func (f *fakeBackend) OpenDeck(path string) error  { return f.err }
func (f *fakeBackend) StartShow() error            { return f.err }

func TestSampleDegradesToUnknown(t *testing.T) {
	p := NewPoller(&fakeBackend{err: errors.New("com bridge gone")})
	snap := p.Sample()
	if snap != Unknown() {
		t.Errorf("expected unknown snapshot, got %+v", snap)
	}

	p = NewPoller(nil)
	if snap := p.Sample(); snap != Unknown() {
		t.Errorf("expected unknown snapshot for nil backend, got %+v", snap)
	}
}

func TestSamplePassesThrough(t *testing.T) {
	want := Snapshot{DeckName: "intro.pptx", EditIndex: 2, ShowIndex: -1, SlideCount: 10}
	p := NewPoller(&fakeBackend{snap: want})
	if got := p.Sample(); got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestComputeDelta(t *testing.T) {
	cases := []struct {
		name    string
		prev    Snapshot
		cur     Snapshot
		changed bool
		page    int
	}{
		{
			name:    "deck switch while presenting",
			prev:    Snapshot{DeckName: "a.pptx", EditIndex: 4, ShowIndex: 4},
			cur:     Snapshot{DeckName: "b.pptx", EditIndex: 4, ShowIndex: 4},
			changed: true,
			page:    4,
		},
		{
			name:    "deck switch while editing",
			prev:    Snapshot{DeckName: "a.pptx", EditIndex: 2, ShowIndex: -1},
			cur:     Snapshot{DeckName: "b.pptx", EditIndex: 7, ShowIndex: -1},
			changed: true,
			page:    7,
		},
		{
			name:    "deck switch with both cursors unknown",
			prev:    Snapshot{DeckName: "a.pptx", EditIndex: -1, ShowIndex: -1},
			cur:     Snapshot{DeckName: "b.pptx", EditIndex: -1, ShowIndex: -1},
			changed: true,
			page:    -1,
		},
		{
			name:    "show cursor advances",
			prev:    Snapshot{DeckName: "a.pptx", EditIndex: 1, ShowIndex: 2},
			cur:     Snapshot{DeckName: "a.pptx", EditIndex: 1, ShowIndex: 3},
			changed: true,
			page:    3,
		},
		{
			name:    "slideshow starts",
			prev:    Snapshot{DeckName: "a.pptx", EditIndex: 3, ShowIndex: -1},
			cur:     Snapshot{DeckName: "a.pptx", EditIndex: 3, ShowIndex: 3},
			changed: true,
			page:    3,
		},
		{
			name: "slideshow exit is not a page change",
			// Exiting a live slideshow drops the show cursor to -1 while
			// the edit cursor stays put.
			prev:    Snapshot{DeckName: "a.pptx", EditIndex: 5, ShowIndex: 5},
			cur:     Snapshot{DeckName: "a.pptx", EditIndex: 5, ShowIndex: -1},
			changed: false,
			page:    -1,
		},
		{
			name:    "edit cursor moves outside slideshow",
			prev:    Snapshot{DeckName: "a.pptx", EditIndex: 5, ShowIndex: -1},
			cur:     Snapshot{DeckName: "a.pptx", EditIndex: 6, ShowIndex: -1},
			changed: true,
			page:    6,
		},
		{
			name:    "edit cursor ignored during slideshow",
			prev:    Snapshot{DeckName: "a.pptx", EditIndex: 1, ShowIndex: 4},
			cur:     Snapshot{DeckName: "a.pptx", EditIndex: 2, ShowIndex: 4},
			changed: false,
			page:    -1,
		},
		{
			name:    "nothing moved",
			prev:    Snapshot{DeckName: "a.pptx", EditIndex: 3, ShowIndex: -1},
			cur:     Snapshot{DeckName: "a.pptx", EditIndex: 3, ShowIndex: -1},
			changed: false,
			page:    -1,
		},
		{
			name:    "backend vanished",
			prev:    Snapshot{DeckName: "a.pptx", EditIndex: 3, ShowIndex: 3},
			cur:     Unknown(),
			changed: false,
			page:    -1,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			changed, page := ComputeDelta(tc.prev, tc.cur)
			if changed != tc.changed {
				t.Errorf("changed = %v, want %v", changed, tc.changed)
			}
			if page != tc.page {
				t.Errorf("effectivePage = %d, want %d", page, tc.page)
			}
		})
	}
}
