package floorplan

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// DocumentSink persists a document somewhere durable
type DocumentSink interface {
	Save(doc Document) error
}

// SaveDocument writes a Document to disk as JSON.
func SaveDocument(doc Document, path string) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create document directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace document: %w", err)
	}
	return nil
}

// LoadDocument reads a Document from a JSON file on disk.
func LoadDocument(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("unmarshal document: %w", err)
	}
	return doc.Clone(), nil
}

// JSONFileSink saves documents to a single JSON file
type JSONFileSink struct {
	Path string
}

func (s JSONFileSink) Save(doc Document) error {
	return SaveDocument(doc, s.Path)
}

// Mirror copies store changes to one or more sinks on a background
// goroutine. Bursts of writes collapse into a single save of the newest
// document, so a slow sink never blocks an interaction.
type Mirror struct {
	sinks   []DocumentSink
	pending chan Document
	done    chan struct{}

	mu     sync.Mutex
	closed bool
	errs   int
}

// NewMirror starts the background saver
func NewMirror(sinks ...DocumentSink) *Mirror {
	m := &Mirror{
		sinks:   sinks,
		pending: make(chan Document, 1),
		done:    make(chan struct{}),
	}
	go m.run()
	return m
}

// Attach subscribes the mirror to store changes
func (m *Mirror) Attach(store *MemoryStore) {
	store.Subscribe(m.Submit)
}

// Submit queues doc for saving, replacing any document still waiting
func (m *Mirror) Submit(doc Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	for {
		select {
		case m.pending <- doc:
			return
		default:
		}
		// drop the stale one and retry
		select {
		case <-m.pending:
		default:
		}
	}
}

// Close flushes the last queued document and stops the goroutine
func (m *Mirror) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	close(m.pending)
	m.mu.Unlock()
	<-m.done
}

// Errors returns how many sink saves have failed
func (m *Mirror) Errors() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errs
}

func (m *Mirror) run() {
	defer close(m.done)
	for doc := range m.pending {
		for _, s := range m.sinks {
			if err := s.Save(doc); err != nil {
				log.Printf("[store] save failed: %v", err)
				m.mu.Lock()
				m.errs++
				m.mu.Unlock()
			}
		}
	}
}

// OpenStorage loads the persisted document for cfg and returns the sink that
// keeps it up to date. A missing JSON file or empty database yields an empty
// document. The returned func releases the sink.
func OpenStorage(cfg StorageConfig) (Document, DocumentSink, func() error, error) {
	switch cfg.Driver {
	case StorageSQLite:
		s, err := OpenSQLiteSink(cfg.Path, DefaultDocumentName)
		if err != nil {
			return Document{}, nil, nil, err
		}
		doc, _, err := s.Load()
		if err != nil {
			_ = s.Close()
			return Document{}, nil, nil, err
		}
		return doc, s, s.Close, nil
	case StorageJSON, "":
		doc, err := LoadDocument(cfg.Path)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return Document{}, nil, nil, err
			}
			doc = Document{}.Clone()
		}
		return doc, JSONFileSink{Path: cfg.Path}, func() error { return nil }, nil
	default:
		return Document{}, nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
