package board

// ChangeKind identifies what a Change did to the board.
type ChangeKind string

// Change kinds.
const (
	ChangeLayout  ChangeKind = "layout"  // initial layout or explicit relayout
	ChangePlaced  ChangeKind = "placed"  // new entities placed by slot search
	ChangeMoved   ChangeKind = "moved"   // a card was dragged
	ChangeRemoved ChangeKind = "removed" // stale positions pruned
	ChangeZoom    ChangeKind = "zoom"
)

// Change describes one mutation of the board.
type Change struct {
	Kind ChangeKind `json:"kind"`
	IDs  []string   `json:"ids,omitempty"`
	Zoom float64    `json:"zoom,omitempty"`
}

// Subscribe registers fn to be called after every mutation and returns a
// function that removes the registration.
func (b *Board) Subscribe(fn func(Change)) (unsubscribe func()) {
	b.subMu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.subMu.Unlock()

	return func() {
		b.subMu.Lock()
		delete(b.subs, id)
		b.subMu.Unlock()
	}
}

func (b *Board) notify(changes ...Change) {
	if len(changes) == 0 {
		return
	}
	b.subMu.Lock()
	fns := make([]func(Change), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.subMu.Unlock()

	for _, c := range changes {
		for _, fn := range fns {
			fn(c)
		}
	}
}
