package presentation

// Poller samples the backend, degrading every failure to an unknown
// snapshot so the reconciliation loop never aborts on backend trouble.
type Poller struct {
	backend Backend
}

// NewPoller wraps a backend.
func NewPoller(b Backend) *Poller {
	return &Poller{backend: b}
}

// Sample returns the current snapshot. A backend failure yields the
// unknown snapshot rather than an error.
func (p *Poller) Sample() Snapshot {
	if p.backend == nil {
		return Unknown()
	}
	snap, err := p.backend.Snapshot()
	if err != nil {
		return Unknown()
	}
	return snap
}

// ComputeDelta reports whether the observable page changed between two
// snapshots and which page is now effective. Precedence, in order:
//
//  1. A deck switch (non-empty current deck differing from the previous
//     one) always counts as a change; the effective page is the show
//     cursor if live, else the edit cursor.
//  2. A running slideshow's cursor movement.
//  3. Outside a slideshow, an edit cursor movement to a valid page. The
//     show cursor dropping to -1 with an unchanged edit cursor is the
//     "exited the slideshow" transition and is deliberately NOT a page
//     change; likewise the backend disappearing (all fields unknown)
//     triggers nothing.
func ComputeDelta(prev, cur Snapshot) (changed bool, effectivePage int) {
	if cur.DeckName != "" && cur.DeckName != prev.DeckName {
		page := cur.ShowIndex
		if page <= 0 {
			page = cur.EditIndex
		}
		return true, page
	}

	if cur.ShowIndex > 0 {
		if cur.ShowIndex != prev.ShowIndex {
			return true, cur.ShowIndex
		}
		return false, -1
	}

	if cur.EditIndex > 0 && cur.EditIndex != prev.EditIndex {
		return true, cur.EditIndex
	}
	return false, -1
}
