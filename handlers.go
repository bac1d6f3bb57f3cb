package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/kwv/wardmap/floorplan"
)

// maxImportBytes bounds PUT /api/document bodies
const maxImportBytes = 16 << 20

// pointerRequest is the body of every pointer-driven endpoint
type pointerRequest struct {
	RoomID string  `json:"roomId,omitempty"`
	Name   string  `json:"name,omitempty"`
	Handle string  `json:"handle,omitempty"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

func (p pointerRequest) event() floorplan.ScreenEvent {
	return floorplan.ScreenEvent{X: p.X, Y: p.Y}
}

// editorStatus is returned after every editor interaction
type editorStatus struct {
	FloorID  string            `json:"floorId"`
	State    string            `json:"state"`
	Selected string            `json:"selected,omitempty"`
	CanUndo  bool              `json:"canUndo"`
	CanRedo  bool              `json:"canRedo"`
	View     viewBody          `json:"view"`
	Preview  *floorplan.Rect   `json:"preview,omitempty"`
	Points   []floorplan.Point `json:"points,omitempty"`
	Changed  *bool             `json:"changed,omitempty"`
}

type viewBody struct {
	Pan  floorplan.Point `json:"pan"`
	Zoom float64         `json:"zoom"`
}

func statusOf(ed *floorplan.Editor) editorStatus {
	v := ed.View()
	st := editorStatus{
		FloorID:  ed.FloorID(),
		State:    ed.State().Kind(),
		Selected: ed.Selected(),
		CanUndo:  ed.History().CanUndo(),
		CanRedo:  ed.History().CanRedo(),
		View:     viewBody{Pan: v.Pan, Zoom: v.Zoom},
	}
	if r, ok := ed.ResizePreview(); ok {
		st.Preview = &r
	}
	if d, ok := ed.State().(floorplan.DrawingCorridor); ok {
		st.Points = d.Points
	}
	return st
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[HTTP] error encoding response: %v", err)
	}
}

// writeError maps domain errors to status codes
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, floorplan.ErrRoomNotFound),
		errors.Is(err, floorplan.ErrFloorNotFound),
		errors.Is(err, floorplan.ErrBuildingNotFound):
		status = http.StatusNotFound
	case errors.Is(err, floorplan.ErrInvalidDocument):
		status = http.StatusBadRequest
	}
	http.Error(w, err.Error(), status)
}

func decodeBody(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

// newHTTPServer creates an HTTP server with all endpoints
func newHTTPServer(app *App) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[HTTP] /health request from %s", r.RemoteAddr)
		writeJSON(w, http.StatusOK, struct {
			Status        string    `json:"status"`
			Timestamp     time.Time `json:"timestamp"`
			Floors        int       `json:"floors"`
			MQTTConnected bool      `json:"mqttConnected"`
		}{
			Status:        "ok",
			Timestamp:     time.Now(),
			Floors:        len(app.Store.Floors()),
			MQTTConnected: app.MQTTClient != nil && app.MQTTClient.IsConnected(),
		})
	})

	// Whole document export/import
	mux.HandleFunc("GET /api/document", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, app.Store.Document())
	})
	mux.HandleFunc("PUT /api/document", func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		doc, err := app.Import(data)
		if err != nil {
			writeError(w, err)
			return
		}
		log.Printf("[HTTP] imported %d floors, %d rooms", len(doc.Floors), len(doc.Rooms))
		writeJSON(w, http.StatusOK, doc)
	})

	// Buildings and floors
	mux.HandleFunc("GET /api/buildings", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, app.Store.Buildings())
	})
	mux.HandleFunc("POST /api/buildings", func(w http.ResponseWriter, r *http.Request) {
		var b floorplan.Building
		if err := decodeBody(r, &b); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusCreated, app.Store.AddBuilding(b))
	})
	mux.HandleFunc("DELETE /api/buildings/{building}", func(w http.ResponseWriter, r *http.Request) {
		res, err := app.Store.DeleteBuilding(r.PathValue("building"))
		if err != nil {
			writeError(w, err)
			return
		}
		app.dropStaleEditors()
		writeJSON(w, http.StatusOK, res)
	})
	mux.HandleFunc("GET /api/floors", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, app.Store.Floors())
	})
	mux.HandleFunc("POST /api/floors", func(w http.ResponseWriter, r *http.Request) {
		var f floorplan.Floor
		if err := decodeBody(r, &f); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f, err := app.Store.AddFloor(f)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, f)
	})
	mux.HandleFunc("DELETE /api/floors/{floor}", func(w http.ResponseWriter, r *http.Request) {
		res, err := app.Store.DeleteFloor(r.PathValue("floor"))
		if err != nil {
			writeError(w, err)
			return
		}
		app.dropStaleEditors()
		writeJSON(w, http.StatusOK, res)
	})

	// Floor collections
	mux.HandleFunc("GET /api/floors/{floor}/rooms", func(w http.ResponseWriter, r *http.Request) {
		floorID := r.PathValue("floor")
		if !app.Store.HasFloor(floorID) {
			writeError(w, fmt.Errorf("%w: %s", floorplan.ErrFloorNotFound, floorID))
			return
		}
		rooms := floorplan.RoomsOnFloor(app.Store.Rooms(), floorID)
		if rooms == nil {
			rooms = []floorplan.Room{}
		}
		writeJSON(w, http.StatusOK, rooms)
	})
	mux.HandleFunc("GET /api/floors/{floor}/corridors", func(w http.ResponseWriter, r *http.Request) {
		floorID := r.PathValue("floor")
		if !app.Store.HasFloor(floorID) {
			writeError(w, fmt.Errorf("%w: %s", floorplan.ErrFloorNotFound, floorID))
			return
		}
		corridors := floorplan.CorridorsOnFloor(app.Store.Corridors(), floorID)
		if corridors == nil {
			corridors = []floorplan.Corridor{}
		}
		writeJSON(w, http.StatusOK, corridors)
	})

	mux.HandleFunc("GET /api/floors/{floor}/route", func(w http.ResponseWriter, r *http.Request) {
		floorID := r.PathValue("floor")
		from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to")
		route, err := app.Route(floorID, from, to)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Waypoints []floorplan.Point `json:"waypoints"`
			Length    float64           `json:"length"`
		}{route, floorplan.RouteLength(route)})
	})

	// Rendering
	mux.HandleFunc("GET /api/floors/{floor}/map.svg", func(w http.ResponseWriter, r *http.Request) {
		renderer, ok := floorRenderer(app, w, r)
		if !ok {
			return
		}
		w.Header().Set("Content-Type", "image/svg+xml")
		w.Header().Set("Cache-Control", "no-cache")
		if err := renderer.RenderToSVG(w); err != nil {
			log.Printf("[HTTP] error rendering SVG: %v", err)
		}
	})
	mux.HandleFunc("GET /api/floors/{floor}/map.png", func(w http.ResponseWriter, r *http.Request) {
		renderer, ok := floorRenderer(app, w, r)
		if !ok {
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		if err := renderer.RenderToPNG(w); err != nil {
			log.Printf("[HTTP] error rendering PNG: %v", err)
		}
	})
	mux.HandleFunc("GET /api/floors/{floor}/map.geojson", func(w http.ResponseWriter, r *http.Request) {
		floorID := r.PathValue("floor")
		route, ok := overlayRoute(app, w, r)
		if !ok {
			return
		}
		fc := floorplan.FloorToGeoJSON(app.Store.Document(), floorID, floorplan.ExportOptions{Route: route})
		data, err := fc.MarshalJSON()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/geo+json")
		_, _ = w.Write(data)
	})

	registerEditorRoutes(mux, app)

	return mux
}

// overlayRoute resolves optional from/to query parameters. It writes the
// error response itself and reports false when the request must stop.
func overlayRoute(app *App, w http.ResponseWriter, r *http.Request) ([]floorplan.Point, bool) {
	floorID := r.PathValue("floor")
	if !app.Store.HasFloor(floorID) {
		writeError(w, fmt.Errorf("%w: %s", floorplan.ErrFloorNotFound, floorID))
		return nil, false
	}
	from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	if from == "" || to == "" {
		return nil, true
	}
	route, err := app.Route(floorID, from, to)
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return route, true
}

func floorRenderer(app *App, w http.ResponseWriter, r *http.Request) (*floorplan.FloorRenderer, bool) {
	route, ok := overlayRoute(app, w, r)
	if !ok {
		return nil, false
	}
	renderer := floorplan.NewFloorRenderer(app.Store.Document(), r.PathValue("floor"), app.Config.Render, app.Config.Grid)
	renderer.Route = route
	return renderer, true
}

// editorFunc is one editor interaction. changed is reported back to the
// client when non-nil.
type editorFunc func(ed *floorplan.Editor, req pointerRequest) (changed *bool, err error)

// withEditor runs fn with the floor's editor locked and replies with the
// editor status
func withEditor(app *App, fn editorFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fe, err := app.Editor(r.PathValue("floor"))
		if err != nil {
			writeError(w, err)
			return
		}
		var req pointerRequest
		if err := decodeBody(r, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		fe.mu.Lock()
		defer fe.mu.Unlock()
		changed, err := fn(fe.ed, req)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		st := statusOf(fe.ed)
		st.Changed = changed
		writeJSON(w, http.StatusOK, st)
	}
}

func boolPtr(b bool) *bool { return &b }

func registerEditorRoutes(mux *http.ServeMux, app *App) {
	on := func(path string, fn editorFunc) {
		mux.HandleFunc("POST /api/floors/{floor}/"+path, withEditor(app, fn))
	}

	mux.HandleFunc("GET /api/floors/{floor}/state", withEditor(app, func(ed *floorplan.Editor, _ pointerRequest) (*bool, error) {
		return nil, nil
	}))

	on("select", func(ed *floorplan.Editor, req pointerRequest) (*bool, error) {
		ed.Select(req.RoomID)
		return nil, nil
	})

	on("rooms", func(ed *floorplan.Editor, req pointerRequest) (*bool, error) {
		ed.AddRoom(req.Name, req.event())
		return boolPtr(true), nil
	})

	on("drag/begin", func(ed *floorplan.Editor, req pointerRequest) (*bool, error) {
		return boolPtr(ed.BeginDrag(req.RoomID, req.event())), nil
	})
	on("drag/update", func(ed *floorplan.Editor, req pointerRequest) (*bool, error) {
		ed.UpdateDrag(req.event())
		return nil, nil
	})
	on("drag/end", func(ed *floorplan.Editor, _ pointerRequest) (*bool, error) {
		ed.EndDrag()
		return nil, nil
	})

	on("resize/begin", func(ed *floorplan.Editor, req pointerRequest) (*bool, error) {
		h, ok := floorplan.ParseHandle(req.Handle)
		if !ok {
			return nil, fmt.Errorf("unknown handle %q", req.Handle)
		}
		return boolPtr(ed.BeginResize(req.RoomID, h, req.event())), nil
	})
	on("resize/update", func(ed *floorplan.Editor, req pointerRequest) (*bool, error) {
		ed.UpdateResize(req.event())
		return nil, nil
	})
	on("resize/end", func(ed *floorplan.Editor, _ pointerRequest) (*bool, error) {
		ed.EndResize()
		return nil, nil
	})

	on("corridor/begin", func(ed *floorplan.Editor, _ pointerRequest) (*bool, error) {
		ed.BeginCorridor()
		return nil, nil
	})
	on("corridor/point", func(ed *floorplan.Editor, req pointerRequest) (*bool, error) {
		_, ok := ed.AppendCorridorPoint(req.event())
		return boolPtr(ok), nil
	})
	on("corridor/finish", func(ed *floorplan.Editor, _ pointerRequest) (*bool, error) {
		_, ok := ed.FinishCorridor()
		return boolPtr(ok), nil
	})

	on("pointer/down", func(ed *floorplan.Editor, req pointerRequest) (*bool, error) {
		ed.PointerDown(req.event())
		return nil, nil
	})
	on("pointer/move", func(ed *floorplan.Editor, req pointerRequest) (*bool, error) {
		ed.PointerMove(req.event())
		return nil, nil
	})
	on("pointer/up", func(ed *floorplan.Editor, _ pointerRequest) (*bool, error) {
		ed.PointerUp()
		return nil, nil
	})
	on("pointer/leave", func(ed *floorplan.Editor, _ pointerRequest) (*bool, error) {
		ed.PointerLeave()
		return nil, nil
	})

	on("undo", func(ed *floorplan.Editor, _ pointerRequest) (*bool, error) {
		return boolPtr(ed.Undo()), nil
	})
	on("redo", func(ed *floorplan.Editor, _ pointerRequest) (*bool, error) {
		return boolPtr(ed.Redo()), nil
	})

	on("sync-devices", func(ed *floorplan.Editor, _ pointerRequest) (*bool, error) {
		return boolPtr(ed.SyncDeviceRooms() > 0), nil
	})

	mux.HandleFunc("PUT /api/floors/{floor}/view", withViewBody(app, func(ed *floorplan.Editor, v viewRequest) {
		ed.SetView(v.Pan, v.Zoom)
	}))
	mux.HandleFunc("POST /api/floors/{floor}/view/zoom", withViewBody(app, func(ed *floorplan.Editor, v viewRequest) {
		ed.ZoomAt(floorplan.ScreenEvent{X: v.X, Y: v.Y}, v.Factor)
	}))

	mux.HandleFunc("PUT /api/floors/{floor}/rooms/{room}", func(w http.ResponseWriter, r *http.Request) {
		fe, err := app.Editor(r.PathValue("floor"))
		if err != nil {
			writeError(w, err)
			return
		}
		var room floorplan.Room
		if err := decodeBody(r, &room); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		room.ID = r.PathValue("room")
		if room.Width < app.Config.Room.MinSize.Width || room.Height < app.Config.Room.MinSize.Height {
			http.Error(w, "room is below the minimum size", http.StatusBadRequest)
			return
		}
		fe.mu.Lock()
		ok := fe.ed.UpdateRoom(room)
		fe.mu.Unlock()
		if !ok {
			writeError(w, fmt.Errorf("%w: %s", floorplan.ErrRoomNotFound, room.ID))
			return
		}
		writeJSON(w, http.StatusOK, room)
	})
	mux.HandleFunc("DELETE /api/floors/{floor}/rooms/{room}", func(w http.ResponseWriter, r *http.Request) {
		deleteOnFloor(app, w, r, "room", func(ed *floorplan.Editor) bool { return ed.DeleteRoom(r.PathValue("room")) })
	})
	mux.HandleFunc("DELETE /api/floors/{floor}/corridors/{corridor}", func(w http.ResponseWriter, r *http.Request) {
		deleteOnFloor(app, w, r, "corridor", func(ed *floorplan.Editor) bool { return ed.DeleteCorridor(r.PathValue("corridor")) })
	})
}

type viewRequest struct {
	Pan    floorplan.Point `json:"pan"`
	Zoom   float64         `json:"zoom"`
	X      float64         `json:"x"`
	Y      float64         `json:"y"`
	Factor float64         `json:"factor"`
}

func withViewBody(app *App, fn func(ed *floorplan.Editor, v viewRequest)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fe, err := app.Editor(r.PathValue("floor"))
		if err != nil {
			writeError(w, err)
			return
		}
		var v viewRequest
		if err := decodeBody(r, &v); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		fe.mu.Lock()
		defer fe.mu.Unlock()
		fn(fe.ed, v)
		writeJSON(w, http.StatusOK, statusOf(fe.ed))
	}
}

func deleteOnFloor(app *App, w http.ResponseWriter, r *http.Request, kind string, fn func(ed *floorplan.Editor) bool) {
	fe, err := app.Editor(r.PathValue("floor"))
	if err != nil {
		writeError(w, err)
		return
	}
	fe.mu.Lock()
	ok := fn(fe.ed)
	fe.mu.Unlock()
	if !ok {
		http.Error(w, kind+" not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
