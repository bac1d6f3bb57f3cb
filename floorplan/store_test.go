package floorplan

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockSink records saves through testify's mock
type mockSink struct {
	mock.Mock
}

func (m *mockSink) Save(doc Document) error {
	args := m.Called(doc)
	return args.Error(0)
}

// recordingSink keeps every saved document
type recordingSink struct {
	mu    sync.Mutex
	saved []Document
}

func (s *recordingSink) Save(doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, doc)
	return nil
}

func (s *recordingSink) last() (Document, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.saved) == 0 {
		return Document{}, 0
	}
	return s.saved[len(s.saved)-1], len(s.saved)
}

func TestSaveAndLoadDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "map.json")
	doc := sampleDocument()

	require.NoError(t, SaveDocument(doc, path))
	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file removed by rename")

	loaded, err := LoadDocument(path)
	require.NoError(t, err)
	assert.Equal(t, doc.Rooms, loaded.Rooms)
	assert.Equal(t, doc.Corridors, loaded.Corridors)
	assert.Equal(t, doc.Floors, loaded.Floors)
}

func TestLoadDocumentErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadDocument(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
	_, err = LoadDocument(bad)
	assert.Error(t, err)
}

func TestMirrorSavesLatestDocument(t *testing.T) {
	store := NewMemoryStore(sampleDocument())
	sink := &recordingSink{}
	m := NewMirror(sink)
	m.Attach(store)

	for i := 0; i < 20; i++ {
		store.UpsertDevice(Device{ID: "d", Type: DeviceNode, Name: string(rune('a' + i))})
	}
	m.Close()

	last, n := sink.last()
	require.GreaterOrEqual(t, n, 1)
	require.LessOrEqual(t, n, 20)
	require.Len(t, last.Devices, 2)
	assert.Equal(t, "t", last.Devices[1].Name, "last write is always flushed")
}

func TestMirrorSavesFinalDocumentUnderConcurrentWrites(t *testing.T) {
	store := NewMemoryStore(sampleDocument())
	sink := &recordingSink{}
	m := NewMirror(sink)
	m.Attach(store)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				store.UpsertDevice(Device{ID: "d", Type: DeviceNode, Name: string(rune('a'+w)) + string(rune('a'+i))})
				store.UpdateFloor("f1", func(rooms []Room, corridors []Corridor) ([]Room, []Corridor) {
					return append(rooms, Room{ID: NewID("room"), Width: 60, Height: 40}), corridors
				})
			}
		}(w)
	}
	wg.Wait()
	m.Close()

	last, n := sink.last()
	require.GreaterOrEqual(t, n, 1)
	assert.Equal(t, store.Document(), last, "mirror never ends on a stale document")
}

func TestMirrorCountsErrors(t *testing.T) {
	failing := &mockSink{}
	failing.On("Save", mock.Anything).Return(errors.New("disk full"))
	ok := &mockSink{}
	ok.On("Save", mock.Anything).Return(nil)

	m := NewMirror(failing, ok)
	m.Submit(sampleDocument())
	m.Close()

	assert.Equal(t, 1, m.Errors())
	failing.AssertNumberOfCalls(t, "Save", 1)
	ok.AssertNumberOfCalls(t, "Save", 1)
}

func TestMirrorIgnoresSubmitAfterClose(t *testing.T) {
	sink := &mockSink{}
	m := NewMirror(sink)
	m.Close()
	m.Close()
	m.Submit(sampleDocument())
	sink.AssertNotCalled(t, "Save", mock.Anything)
}

func TestOpenStorage(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing json file yields empty document", func(t *testing.T) {
		doc, sink, closeFn, err := OpenStorage(StorageConfig{Driver: StorageJSON, Path: filepath.Join(dir, "new.json")})
		require.NoError(t, err)
		defer closeFn()
		assert.Empty(t, doc.Rooms)
		assert.NotNil(t, doc.Rooms)
		assert.IsType(t, JSONFileSink{}, sink)
	})

	t.Run("json round trip", func(t *testing.T) {
		path := filepath.Join(dir, "map.json")
		_, sink, closeFn, err := OpenStorage(StorageConfig{Driver: StorageJSON, Path: path})
		require.NoError(t, err)
		require.NoError(t, sink.Save(sampleDocument()))
		require.NoError(t, closeFn())

		doc, _, _, err := OpenStorage(StorageConfig{Path: path})
		require.NoError(t, err)
		assert.Len(t, doc.Rooms, 3)
	})

	t.Run("sqlite round trip", func(t *testing.T) {
		path := filepath.Join(dir, "map.db")
		doc, sink, closeFn, err := OpenStorage(StorageConfig{Driver: StorageSQLite, Path: path})
		require.NoError(t, err)
		assert.Empty(t, doc.Rooms)
		require.NoError(t, sink.Save(sampleDocument()))
		require.NoError(t, closeFn())

		doc, _, closeFn, err = OpenStorage(StorageConfig{Driver: StorageSQLite, Path: path})
		require.NoError(t, err)
		defer closeFn()
		assert.Len(t, doc.Rooms, 3)
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, _, _, err := OpenStorage(StorageConfig{Driver: "postgres", Path: "x"})
		assert.Error(t, err)
	})
}
