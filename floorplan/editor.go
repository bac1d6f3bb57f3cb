package floorplan

// ScreenEvent is a pointer position in device pixels
type ScreenEvent struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (ev ScreenEvent) point() Point {
	return Point{X: ev.X, Y: ev.Y}
}

// EditorState is the interaction mode of an Editor. It is one of Idle,
// Dragging, Resizing or DrawingCorridor.
type EditorState interface {
	Kind() string
	editorState()
}

// Idle means no gesture is in progress
type Idle struct{}

// Dragging carries the active drag
type Dragging struct {
	Session DragSession
	changed bool // a snapshot was pushed for this gesture
}

// Resizing carries the active resize and its transient geometry
type Resizing struct {
	Session ResizeSession
}

// DrawingCorridor carries the points accumulated so far
type DrawingCorridor struct {
	Points []Point
}

func (Idle) Kind() string            { return "idle" }
func (Dragging) Kind() string        { return "dragging" }
func (Resizing) Kind() string        { return "resizing" }
func (DrawingCorridor) Kind() string { return "drawing-corridor" }

func (Idle) editorState()            {}
func (Dragging) editorState()        {}
func (Resizing) editorState()        {}
func (DrawingCorridor) editorState() {}

// EditorOptions configures an Editor
type EditorOptions struct {
	Grid            Grid
	MinSize         MinSize
	Rooms           RoomDefaults
	Corridor        CorridorStyle
	HistoryCapacity int
	MinZoom         float64
	MaxZoom         float64
	HandleRadius    float64
}

// DefaultEditorOptions returns the standard grid, sizes and zoom range
func DefaultEditorOptions() EditorOptions {
	return EditorOptions{
		Grid:            DefaultGrid(),
		MinSize:         DefaultMinSize(),
		Rooms:           RoomDefaults{Width: DefaultRoomWidth, Height: DefaultRoomHeight, Color: DefaultRoomColor},
		Corridor:        CorridorStyle{Width: DefaultCorridorWidth, Color: DefaultCorridorColor},
		HistoryCapacity: DefaultHistoryCapacity,
		MinZoom:         DefaultMinZoom,
		MaxZoom:         DefaultMaxZoom,
		HandleRadius:    DefaultHandleRadius,
	}
}

// Editor interprets pointer input for one floor. It is not safe for
// concurrent use; callers serialize events the way a UI loop would.
type Editor struct {
	model    MapModel
	floorID  string
	opts     EditorOptions
	view     View
	history  *HistoryStack
	author   *CorridorAuthor
	state    EditorState
	selected string
}

// NewEditor creates an idle editor for floorID
func NewEditor(model MapModel, floorID string, opts EditorOptions) *Editor {
	if opts.HandleRadius <= 0 {
		opts.HandleRadius = DefaultHandleRadius
	}
	return &Editor{
		model:   model,
		floorID: floorID,
		opts:    opts,
		view:    NewView(opts.MinZoom, opts.MaxZoom),
		history: NewHistoryStack(opts.HistoryCapacity),
		author:  NewCorridorAuthor(opts.Grid),
		state:   Idle{},
	}
}

// FloorID returns the floor this editor works on
func (e *Editor) FloorID() string {
	return e.floorID
}

// State returns the current interaction state
func (e *Editor) State() EditorState {
	if d, ok := e.state.(DrawingCorridor); ok {
		d.Points = e.author.Points()
		return d
	}
	return e.state
}

// View returns the current pan/zoom
func (e *Editor) View() View {
	return e.view
}

// SetView replaces pan and zoom; zoom is clamped. The viewport is kept.
func (e *Editor) SetView(pan Point, zoom float64) {
	e.view.Pan = pan
	e.view.SetZoom(zoom)
}

// SetViewport updates the device -> user-space mapping
func (e *Editor) SetViewport(vp Viewport) {
	e.view.Viewport = vp
}

// ZoomAt zooms about a screen position
func (e *Editor) ZoomAt(ev ScreenEvent, factor float64) {
	e.view.ZoomAt(ev.point(), factor)
}

// ToWorld maps a pointer event to world coordinates
func (e *Editor) ToWorld(ev ScreenEvent) Point {
	return e.view.ToWorld(ev.point())
}

// Select marks a room on this floor as selected. An unknown id clears the
// selection.
func (e *Editor) Select(roomID string) {
	if _, ok := e.room(roomID); ok {
		e.selected = roomID
		return
	}
	e.selected = ""
}

// Selected returns the selected room id, or ""
func (e *Editor) Selected() string {
	return e.selected
}

// ComputeRoute returns the waypoints between two rooms on this floor
func (e *Editor) ComputeRoute(startID, endID string) ([]Point, error) {
	return PlanRoute(e.model.Rooms(), e.model.Corridors(), e.floorID, startID, endID)
}

// BeginCorridor enters corridor drawing mode. Any drag or resize in
// progress is committed first.
func (e *Editor) BeginCorridor() {
	e.Release()
	e.author.Begin()
	e.state = DrawingCorridor{}
}

// AppendCorridorPoint adds the snapped pointer position to the corridor
// being drawn. It reports false outside drawing mode or for a duplicate.
func (e *Editor) AppendCorridorPoint(ev ScreenEvent) (Point, bool) {
	if _, ok := e.state.(DrawingCorridor); !ok {
		return Point{}, false
	}
	return e.author.Append(e.ToWorld(ev))
}

// FinishCorridor leaves drawing mode and, with at least two points, adds
// the corridor to the model.
func (e *Editor) FinishCorridor() (Corridor, bool) {
	if _, ok := e.state.(DrawingCorridor); !ok {
		return Corridor{}, false
	}
	e.state = Idle{}

	seq := len(CorridorsOnFloor(e.model.Corridors(), e.floorID)) + 1
	c, ok := e.author.Finish(e.floorID, seq, e.opts.Corridor)
	if !ok {
		return Corridor{}, false
	}

	e.snapshot()
	e.model.UpdateFloor(e.floorID, func(rooms []Room, corridors []Corridor) ([]Room, []Corridor) {
		return rooms, append(corridors, c)
	})
	return c, true
}

// BeginDrag starts dragging a selected room. Pressing an unselected room
// only selects it and returns false.
func (e *Editor) BeginDrag(roomID string, ev ScreenEvent) bool {
	if !e.pressable(roomID) {
		return false
	}
	room, _ := e.room(roomID)
	e.state = Dragging{Session: NewDragSession(room, e.ToWorld(ev))}
	return true
}

// UpdateDrag moves the dragged room to the snapped pointer position,
// writing to the model immediately when the position changes.
func (e *Editor) UpdateDrag(ev ScreenEvent) {
	d, ok := e.state.(Dragging)
	if !ok {
		return
	}
	target := d.Session.Target(e.ToWorld(ev), e.opts.Grid.Room)

	room, ok := e.room(d.Session.RoomID)
	if !ok || (room.X == target.X && room.Y == target.Y) {
		return
	}

	if !d.changed {
		e.snapshot()
		d.changed = true
		e.state = d
	}
	e.editRoom(room.ID, func(r *Room) {
		r.X, r.Y = target.X, target.Y
	})
}

// EndDrag finishes a drag. Positions were already committed while moving.
func (e *Editor) EndDrag() {
	if _, ok := e.state.(Dragging); ok {
		e.state = Idle{}
	}
}

// BeginResize starts resizing a selected room from handle h
func (e *Editor) BeginResize(roomID string, h Handle, ev ScreenEvent) bool {
	if !e.pressable(roomID) {
		return false
	}
	room, _ := e.room(roomID)
	e.state = Resizing{Session: NewResizeSession(room, h, e.ToWorld(ev), e.opts.MinSize)}
	return true
}

// UpdateResize recomputes the transient size. The model is not written.
func (e *Editor) UpdateResize(ev ScreenEvent) {
	r, ok := e.state.(Resizing)
	if !ok {
		return
	}
	r.Session.Update(e.ToWorld(ev))
	e.state = r
}

// ResizePreview returns the transient rectangle of an active resize
func (e *Editor) ResizePreview() (Rect, bool) {
	r, ok := e.state.(Resizing)
	if !ok {
		return Rect{}, false
	}
	return r.Session.Preview(), true
}

// EndResize snaps the transient size to the grid and commits it in a single
// write. Transient state is cleared even if the room has disappeared.
func (e *Editor) EndResize() {
	r, ok := e.state.(Resizing)
	if !ok {
		return
	}
	e.state = Idle{}

	size := r.Session.Commit(e.opts.Grid.Room)
	room, ok := e.room(r.Session.RoomID)
	if !ok {
		return
	}
	if room.Width != size.Width || room.Height != size.Height {
		e.snapshot()
	}
	e.editRoom(room.ID, func(rm *Room) {
		rm.Width, rm.Height = size.Width, size.Height
	})
}

// Release ends whatever drag or resize is active. Pointer-up and
// pointer-leave both land here. Corridor drawing is unaffected.
func (e *Editor) Release() {
	switch e.state.(type) {
	case Dragging:
		e.EndDrag()
	case Resizing:
		e.EndResize()
	}
}

// PointerDown interprets a press: a corridor point while drawing, else a
// resize handle of the selected room, else a room body, else deselect.
func (e *Editor) PointerDown(ev ScreenEvent) {
	if _, ok := e.state.(DrawingCorridor); ok {
		e.AppendCorridorPoint(ev)
		return
	}
	e.Release()

	rooms := RoomsOnFloor(e.model.Rooms(), e.floorID)
	hit := HitTest(rooms, e.selected, e.ToWorld(ev), e.opts.HandleRadius/e.view.ClampZoom(e.view.Zoom))
	switch {
	case hit.OnHandle:
		e.BeginResize(hit.RoomID, hit.Handle, ev)
	case hit.RoomID != "":
		e.BeginDrag(hit.RoomID, ev)
	default:
		e.selected = ""
	}
}

// PointerMove forwards a move to the active gesture
func (e *Editor) PointerMove(ev ScreenEvent) {
	switch e.state.(type) {
	case Dragging:
		e.UpdateDrag(ev)
	case Resizing:
		e.UpdateResize(ev)
	}
}

// PointerUp ends the active gesture
func (e *Editor) PointerUp() {
	e.Release()
}

// PointerLeave behaves exactly like PointerUp so no transient state is left
// behind when the pointer exits the canvas.
func (e *Editor) PointerLeave() {
	e.Release()
}

// AddRoom creates a default-size room at a pointer position on this floor
func (e *Editor) AddRoom(name string, ev ScreenEvent) Room {
	e.Release()
	r := NewRoom(e.floorID, name, e.ToWorld(ev), e.opts.Rooms, e.opts.MinSize, e.opts.Grid)
	e.snapshot()
	e.model.UpdateFloor(e.floorID, func(rooms []Room, corridors []Corridor) ([]Room, []Corridor) {
		return append(rooms, r), corridors
	})
	e.selected = r.ID
	return r
}

// UpdateRoom applies a property edit to a room on this floor. Values come
// from validated form input and are not snapped.
func (e *Editor) UpdateRoom(room Room) bool {
	if _, ok := e.room(room.ID); !ok {
		return false
	}
	e.Release()
	room.FloorID = e.floorID
	e.snapshot()
	e.editRoom(room.ID, func(r *Room) { *r = room })
	return true
}

// DeleteRoom removes a room from this floor
func (e *Editor) DeleteRoom(roomID string) bool {
	if _, ok := e.room(roomID); !ok {
		return false
	}
	e.Release()
	e.snapshot()
	e.model.UpdateFloor(e.floorID, func(rooms []Room, corridors []Corridor) ([]Room, []Corridor) {
		kept := rooms[:0]
		for _, r := range rooms {
			if r.ID != roomID {
				kept = append(kept, r)
			}
		}
		return kept, corridors
	})
	if e.selected == roomID {
		e.selected = ""
	}
	return true
}

// DeleteCorridor removes a corridor from this floor
func (e *Editor) DeleteCorridor(corridorID string) bool {
	found := false
	for _, c := range CorridorsOnFloor(e.model.Corridors(), e.floorID) {
		if c.ID == corridorID {
			found = true
			break
		}
	}
	if !found {
		return false
	}
	e.snapshot()
	e.model.UpdateFloor(e.floorID, func(rooms []Room, corridors []Corridor) ([]Room, []Corridor) {
		kept := corridors[:0]
		for _, c := range corridors {
			if c.ID != corridorID {
				kept = append(kept, c)
			}
		}
		return rooms, kept
	})
	return true
}

// SyncDeviceRooms creates rooms for node devices that name a missing room
func (e *Editor) SyncDeviceRooms() int {
	current := RoomsOnFloor(e.model.Rooms(), e.floorID)
	rooms, added := SynthesizeDeviceRooms(current, e.model.Devices(), e.floorID, e.opts.Rooms, e.opts.MinSize, e.opts.Grid)
	if added == 0 && equalRooms(rooms, current) {
		return 0
	}
	e.snapshot()
	e.model.UpdateFloor(e.floorID, func(_ []Room, corridors []Corridor) ([]Room, []Corridor) {
		return rooms, corridors
	})
	return added
}

// Undo restores this floor's rooms and corridors to the previous snapshot.
// It is a no-op at the bottom of the stack.
func (e *Editor) Undo() bool {
	e.Release()
	s, ok := e.history.Undo(e.floorSnapshot())
	if ok {
		e.restore(s)
	}
	return ok
}

// Redo re-applies an undone snapshot. It is a no-op at the top of the stack.
func (e *Editor) Redo() bool {
	e.Release()
	s, ok := e.history.Redo()
	if ok {
		e.restore(s)
	}
	return ok
}

// History exposes the undo stack
func (e *Editor) History() *HistoryStack {
	return e.history
}

func (e *Editor) pressable(roomID string) bool {
	if _, ok := e.state.(Idle); !ok {
		return false
	}
	if _, ok := e.room(roomID); !ok {
		return false
	}
	if e.selected != roomID {
		e.selected = roomID
		return false
	}
	return true
}

func (e *Editor) room(id string) (Room, bool) {
	return findRoom(RoomsOnFloor(e.model.Rooms(), e.floorID), id)
}

func (e *Editor) floorSnapshot() Snapshot {
	return Snapshot{
		Rooms:     RoomsOnFloor(e.model.Rooms(), e.floorID),
		Corridors: CorridorsOnFloor(e.model.Corridors(), e.floorID),
	}
}

func (e *Editor) snapshot() {
	e.history.Push(e.floorSnapshot())
}

// editRoom applies fn to one room of this floor in a single write
func (e *Editor) editRoom(roomID string, fn func(r *Room)) {
	e.model.UpdateFloor(e.floorID, func(rooms []Room, corridors []Corridor) ([]Room, []Corridor) {
		rooms, _ = updateRoom(rooms, roomID, fn)
		return rooms, corridors
	})
}

// restore swaps this floor's collections for s, leaving other floors alone
func (e *Editor) restore(s Snapshot) {
	e.model.UpdateFloor(e.floorID, func([]Room, []Corridor) ([]Room, []Corridor) {
		return s.Rooms, s.Corridors
	})

	if _, ok := e.room(e.selected); !ok {
		e.selected = ""
	}
}

func equalRooms(a, b []Room) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
