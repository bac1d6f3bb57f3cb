package main

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"

	"github.com/kwv/wardmap/floorplan"
)

// floorEditor serializes access to one floor's editor so concurrent HTTP
// requests see the same ordering a single UI loop would.
type floorEditor struct {
	mu sync.Mutex
	ed *floorplan.Editor
}

// App encapsulates the application state and dependencies
type App struct {
	Config     *floorplan.Config
	Store      *floorplan.MemoryStore
	Sink       floorplan.DocumentSink
	Mirror     *floorplan.Mirror
	MQTTClient *floorplan.MQTTClient
	Publisher  *floorplan.ChangePublisher

	closeStorage func() error

	mu      sync.Mutex
	editors map[string]*floorEditor
}

// NewApp creates an App around an in-memory document. Persistence and MQTT
// are attached separately.
func NewApp(cfg *floorplan.Config, doc floorplan.Document) *App {
	if cfg == nil {
		cfg = floorplan.DefaultConfig()
	}
	return &App{
		Config:  cfg,
		Store:   floorplan.NewMemoryStore(doc),
		editors: make(map[string]*floorEditor),
	}
}

// OpenApp loads the configured storage and returns an App seeded with it
func OpenApp(cfg *floorplan.Config) (*App, error) {
	doc, sink, closeFn, err := floorplan.OpenStorage(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open storage %s: %w", cfg.Storage.Path, err)
	}
	a := NewApp(cfg, doc)
	a.Sink = sink
	a.closeStorage = closeFn
	log.Printf("[store] loaded %d rooms, %d corridors from %s (%s)",
		len(doc.Rooms), len(doc.Corridors), cfg.Storage.Path, cfg.Storage.Driver)
	return a, nil
}

// StartMQTT connects to the broker when one is configured. Device reports
// are upserted into the store.
func (a *App) StartMQTT() {
	a.MQTTClient = floorplan.InitMQTT(a.Config.MQTT, a.Store.UpsertDevice)
	if a.MQTTClient == nil {
		return
	}
	a.Publisher = floorplan.NewPublisherForConfig(a.MQTTClient.GetClient(), a.MQTTClient.Config())
}

// StartMirror begins copying store changes to the storage sink and, when
// MQTT is up, to the change publisher.
func (a *App) StartMirror() {
	var sinks []floorplan.DocumentSink
	if a.Sink != nil {
		sinks = append(sinks, a.Sink)
	}
	if a.Publisher != nil {
		sinks = append(sinks, a.Publisher)
	}
	if len(sinks) == 0 {
		return
	}
	a.Mirror = floorplan.NewMirror(sinks...)
	a.Mirror.Attach(a.Store)
}

// Close flushes pending saves and releases connections
func (a *App) Close() error {
	if a.Mirror != nil {
		a.Mirror.Close()
	}
	if a.MQTTClient != nil {
		a.MQTTClient.Disconnect()
	}
	if a.closeStorage != nil {
		return a.closeStorage()
	}
	return nil
}

// Editor returns the editor for floorID, creating it on first use
func (a *App) Editor(floorID string) (*floorEditor, error) {
	if !a.Store.HasFloor(floorID) {
		return nil, fmt.Errorf("%w: %s", floorplan.ErrFloorNotFound, floorID)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	fe, ok := a.editors[floorID]
	if !ok {
		fe = &floorEditor{ed: floorplan.NewEditor(a.Store, floorID, a.Config.EditorOptions())}
		a.editors[floorID] = fe
	}
	return fe, nil
}

// dropStaleEditors forgets editors whose floor no longer exists
func (a *App) dropStaleEditors() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for id := range a.editors {
		if !a.Store.HasFloor(id) {
			delete(a.editors, id)
		}
	}
}

// ResetEditors discards all editors, used after a wholesale import
func (a *App) ResetEditors() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.editors = make(map[string]*floorEditor)
}

// Route computes a route on floorID and publishes it when MQTT is up
func (a *App) Route(floorID, from, to string) ([]floorplan.Point, error) {
	if !a.Store.HasFloor(floorID) {
		return nil, fmt.Errorf("%w: %s", floorplan.ErrFloorNotFound, floorID)
	}
	route, err := floorplan.NewRoutePlanner(a.Store).Route(floorID, from, to)
	if err != nil {
		return nil, err
	}
	if a.Publisher != nil {
		if err := a.Publisher.PublishRoute(floorID, from, to, route); err != nil && !errors.Is(err, floorplan.ErrNotConnected) {
			log.Printf("warning: failed to publish route: %v", err)
		}
	}
	return route, nil
}

// Import validates raw JSON and replaces the whole document
func (a *App) Import(data []byte) (floorplan.Document, error) {
	doc, err := floorplan.ParseDocument(data)
	if err != nil {
		return floorplan.Document{}, err
	}
	a.ReplaceDocument(doc)
	return doc, nil
}

// ReplaceDocument swaps in an already validated document
func (a *App) ReplaceDocument(doc floorplan.Document) {
	a.Store.ReplaceDocument(doc)
	a.ResetEditors()
}

// storageForPath infers the storage driver from a file extension
func storageForPath(path string) floorplan.StorageConfig {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return floorplan.StorageConfig{Driver: floorplan.StorageSQLite, Path: path}
	default:
		return floorplan.StorageConfig{Driver: floorplan.StorageJSON, Path: path}
	}
}
