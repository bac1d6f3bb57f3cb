package floorplan

// DefaultHistoryCapacity is the number of snapshots kept before the oldest
// is evicted.
const DefaultHistoryCapacity = 50

// MinHistoryCapacity is the smallest usable stack: undo stores the live
// state next to the entry it returns to.
const MinHistoryCapacity = 2

// Snapshot is a point-in-time copy of the editable collections
type Snapshot struct {
	Rooms     []Room     `json:"rooms"`
	Corridors []Corridor `json:"corridors"`
}

// Clone returns a deep copy of the snapshot
func (s Snapshot) Clone() Snapshot {
	return Snapshot{
		Rooms:     cloneRooms(s.Rooms),
		Corridors: cloneCorridors(s.Corridors),
	}
}

// HistoryStack is a linear undo/redo stack of snapshots.
//
// Snapshots are pushed before an edit. The cursor indexes the entry that
// matches the live collections, or equals len(states) when the live state is
// newer than every stored entry.
type HistoryStack struct {
	states []Snapshot
	cursor int
	max    int
}

// NewHistoryStack creates a stack holding at most max snapshots. Zero or
// less selects the default; other values are raised to MinHistoryCapacity.
func NewHistoryStack(max int) *HistoryStack {
	if max <= 0 {
		max = DefaultHistoryCapacity
	}
	max = max(max, MinHistoryCapacity)
	return &HistoryStack{
		states: make([]Snapshot, 0, max),
		max:    max,
	}
}

// Push records the pre-edit state s. Any redo entries are discarded.
func (h *HistoryStack) Push(s Snapshot) {
	if h.cursor < len(h.states) {
		h.states = h.states[:h.cursor]
	}
	h.states = append(h.states, s.Clone())
	h.evict()
	h.cursor = len(h.states)
}

// CanUndo returns true if we can undo
func (h *HistoryStack) CanUndo() bool {
	return h.cursor > 0
}

// CanRedo returns true if we can redo
func (h *HistoryStack) CanRedo() bool {
	return h.cursor < len(h.states)-1
}

// Undo steps back one entry. live is the current state, stored so a later
// Redo can return to it. ok is false at the bottom of the stack.
func (h *HistoryStack) Undo(live Snapshot) (Snapshot, bool) {
	if !h.CanUndo() {
		return Snapshot{}, false
	}
	if h.cursor == len(h.states) {
		h.states = append(h.states, live.Clone())
		if h.evict() {
			h.cursor--
		}
	}
	if h.cursor == 0 {
		return Snapshot{}, false
	}
	h.cursor--
	return h.states[h.cursor].Clone(), true
}

// Redo steps forward one entry. ok is false at the top of the stack.
func (h *HistoryStack) Redo() (Snapshot, bool) {
	if !h.CanRedo() {
		return Snapshot{}, false
	}
	h.cursor++
	return h.states[h.cursor].Clone(), true
}

// Clear drops all history
func (h *HistoryStack) Clear() {
	h.states = h.states[:0]
	h.cursor = 0
}

// Len returns the number of stored snapshots
func (h *HistoryStack) Len() int {
	return len(h.states)
}

func (h *HistoryStack) evict() bool {
	if len(h.states) <= h.max {
		return false
	}
	h.states = append(h.states[:0:0], h.states[len(h.states)-h.max:]...)
	return true
}
