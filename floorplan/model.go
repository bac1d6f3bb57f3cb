package floorplan

import (
	"errors"
	"sync"
)

var (
	ErrFloorNotFound    = errors.New("floor not found")
	ErrBuildingNotFound = errors.New("building not found")
)

// MapModel is the editor's view of the external store. Writes always
// replace a whole collection.
type MapModel interface {
	Rooms() []Room
	Corridors() []Corridor
	Devices() []Device
	SetRooms(rooms []Room)
	SetCorridors(corridors []Corridor)

	// UpdateFloor replaces the rooms and corridors of one floor with what fn
	// returns, in a single atomic write. fn receives copies and must not
	// call back into the model. It reports false, without calling fn, when
	// the floor does not exist.
	UpdateFloor(floorID string, fn FloorUpdate) bool
}

// FloorUpdate computes a floor's new rooms and corridors from its current ones
type FloorUpdate func(rooms []Room, corridors []Corridor) ([]Room, []Corridor)

// ChangeListener receives a copy of the document after every write. It runs
// on the writer's goroutine, must return quickly and must not write to the
// store.
type ChangeListener func(doc Document)

// MemoryStore holds the map collections in memory and implements MapModel
type MemoryStore struct {
	// writeMu orders writers end to end, so listeners see documents in the
	// order they were written
	writeMu sync.Mutex

	mu        sync.RWMutex
	doc       Document
	listeners []ChangeListener
}

// NewMemoryStore creates a store seeded with doc
func NewMemoryStore(doc Document) *MemoryStore {
	return &MemoryStore{doc: doc.Clone()}
}

// Subscribe registers a change listener
func (s *MemoryStore) Subscribe(fn ChangeListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Document returns a deep copy of the whole document
func (s *MemoryStore) Document() Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Clone()
}

// ReplaceDocument swaps in a new document wholesale (used by import)
func (s *MemoryStore) ReplaceDocument(doc Document) {
	s.write(func(d *Document) bool {
		*d = doc.Clone()
		return true
	})
}

// Rooms returns a copy of all rooms
func (s *MemoryStore) Rooms() []Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneRooms(s.doc.Rooms)
}

// Corridors returns a copy of all corridors
func (s *MemoryStore) Corridors() []Corridor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneCorridors(s.doc.Corridors)
}

// Devices returns a copy of all devices
func (s *MemoryStore) Devices() []Device {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Device(nil), s.doc.Devices...)
}

// Buildings returns a copy of all buildings
func (s *MemoryStore) Buildings() []Building {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Building(nil), s.doc.Buildings...)
}

// Floors returns a copy of all floors
func (s *MemoryStore) Floors() []Floor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Floor(nil), s.doc.Floors...)
}

// HasFloor reports whether a floor with id exists
func (s *MemoryStore) HasFloor(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.doc.FindFloor(id)
	return ok
}

// SetRooms replaces the room collection
func (s *MemoryStore) SetRooms(rooms []Room) {
	s.write(func(d *Document) bool {
		d.Rooms = cloneRooms(rooms)
		return true
	})
}

// UpdateFloor applies fn to floorID's rooms and corridors. Entries on other
// floors keep their place; the floor's entries take the slot of its first
// existing entry, or go last.
func (s *MemoryStore) UpdateFloor(floorID string, fn FloorUpdate) bool {
	updated := false
	s.write(func(d *Document) bool {
		if _, ok := d.FindFloor(floorID); !ok {
			return false
		}
		rooms, corridors := fn(
			cloneRooms(RoomsOnFloor(d.Rooms, floorID)),
			cloneCorridors(CorridorsOnFloor(d.Corridors, floorID)),
		)
		rooms = cloneRooms(rooms)
		for i := range rooms {
			rooms[i].FloorID = floorID
		}
		corridors = cloneCorridors(corridors)
		for i := range corridors {
			corridors[i].FloorID = floorID
		}
		d.Rooms = spliceFloor(d.Rooms, rooms, floorID, func(r Room) string { return r.FloorID })
		d.Corridors = spliceFloor(d.Corridors, corridors, floorID, func(c Corridor) string { return c.FloorID })
		updated = true
		return true
	})
	return updated
}

// spliceFloor swaps the entries of floorID in all for repl
func spliceFloor[T any](all, repl []T, floorID string, floorOf func(T) string) []T {
	out := make([]T, 0, len(all)+len(repl))
	placed := false
	for _, v := range all {
		if floorOf(v) != floorID {
			out = append(out, v)
			continue
		}
		if !placed {
			out = append(out, repl...)
			placed = true
		}
	}
	if !placed {
		out = append(out, repl...)
	}
	return out
}

// SetCorridors replaces the corridor collection
func (s *MemoryStore) SetCorridors(corridors []Corridor) {
	s.write(func(d *Document) bool {
		d.Corridors = cloneCorridors(corridors)
		return true
	})
}

// AddBuilding stores b, generating an id if it has none
func (s *MemoryStore) AddBuilding(b Building) Building {
	if b.ID == "" {
		b.ID = NewID("building")
	}
	s.write(func(d *Document) bool {
		d.Buildings = append(d.Buildings, b)
		return true
	})
	return b
}

// AddFloor stores f under an existing building
func (s *MemoryStore) AddFloor(f Floor) (Floor, error) {
	if f.ID == "" {
		f.ID = NewID("floor")
	}
	var err error
	s.write(func(d *Document) bool {
		for _, b := range d.Buildings {
			if b.ID == f.BuildingID {
				d.Floors = append(d.Floors, f)
				return true
			}
		}
		err = ErrBuildingNotFound
		return false
	})
	return f, err
}

// AddRoom appends r to the room collection. The room's floor must exist.
func (s *MemoryStore) AddRoom(r Room) (Room, error) {
	if r.ID == "" {
		r.ID = NewID("room")
	}
	var err error
	s.write(func(d *Document) bool {
		if _, ok := d.FindFloor(r.FloorID); !ok {
			err = ErrFloorNotFound
			return false
		}
		d.Rooms = append(d.Rooms, r)
		return true
	})
	return r, err
}

// DeleteRoom removes a room by id
func (s *MemoryStore) DeleteRoom(id string) bool {
	removed := false
	s.write(func(d *Document) bool {
		kept := d.Rooms[:0:0]
		for _, r := range d.Rooms {
			if r.ID == id {
				removed = true
				continue
			}
			kept = append(kept, r)
		}
		d.Rooms = kept
		return removed
	})
	return removed
}

// DeleteCorridor removes a corridor by id
func (s *MemoryStore) DeleteCorridor(id string) bool {
	removed := false
	s.write(func(d *Document) bool {
		kept := d.Corridors[:0:0]
		for _, c := range d.Corridors {
			if c.ID == id {
				removed = true
				continue
			}
			kept = append(kept, c)
		}
		d.Corridors = kept
		return removed
	})
	return removed
}

// UpsertDevice inserts or replaces a device by id
func (s *MemoryStore) UpsertDevice(dev Device) {
	s.write(func(d *Document) bool {
		for i := range d.Devices {
			if d.Devices[i].ID == dev.ID {
				d.Devices[i] = dev
				return true
			}
		}
		d.Devices = append(d.Devices, dev)
		return true
	})
}

// DeleteFloor removes a floor and everything on it
func (s *MemoryStore) DeleteFloor(id string) (CascadeResult, error) {
	var res CascadeResult
	var err error
	s.write(func(d *Document) bool {
		var next Document
		next, res, err = DeleteFloorCascade(*d, id)
		if err != nil {
			return false
		}
		*d = next
		return true
	})
	return res, err
}

// DeleteBuilding removes a building with all of its floors
func (s *MemoryStore) DeleteBuilding(id string) (CascadeResult, error) {
	var res CascadeResult
	var err error
	s.write(func(d *Document) bool {
		var next Document
		next, res, err = DeleteBuildingCascade(*d, id)
		if err != nil {
			return false
		}
		*d = next
		return true
	})
	return res, err
}

// write applies fn under the write lock. When fn reports a change,
// listeners are notified with a copy taken before the lock is released.
// Readers are not held up by listeners; the next writer is.
func (s *MemoryStore) write(fn func(d *Document) bool) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if !fn(&s.doc) {
		s.mu.Unlock()
		return
	}
	snapshot := s.doc.Clone()
	listeners := append([]ChangeListener(nil), s.listeners...)
	s.mu.Unlock()

	for _, l := range listeners {
		l(snapshot)
	}
}
