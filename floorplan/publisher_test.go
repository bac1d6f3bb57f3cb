package floorplan

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connectedPublisher() (*ChangePublisher, *MockClient) {
	mock := NewMockClient()
	mock.SetConnected(true)
	return NewChangePublisher(mock, "site"), mock
}

func TestChangePublisher_Topics(t *testing.T) {
	p := NewChangePublisher(nil, "")
	assert.Equal(t, "wardmap/floors/f1/rooms", p.RoomsTopic("f1"))
	assert.Equal(t, "wardmap/floors/f1/corridors", p.CorridorsTopic("f1"))
	assert.Equal(t, "wardmap/routes", p.RoutesTopic())
}

func TestChangePublisher_NotConnected(t *testing.T) {
	mock := NewMockClient()
	p := NewChangePublisher(mock, "site")

	assert.ErrorIs(t, p.PublishFloor(sampleDocument(), "f1"), ErrNotConnected)
	assert.ErrorIs(t, p.PublishRoute("f1", "a", "b", nil), ErrNotConnected)
	assert.NoError(t, p.Save(sampleDocument()), "save waits for the next connection")
	assert.Empty(t, mock.GetPublishedMessages())

	assert.ErrorIs(t, NewChangePublisher(nil, "x").PublishFloor(Document{}, "f1"), ErrNotConnected)
}

func TestChangePublisher_PublishFloor(t *testing.T) {
	p, mock := connectedPublisher()
	doc := sampleDocument()

	require.NoError(t, p.PublishFloor(doc, "f1"))
	rooms := mock.MessagesOn("site/floors/f1/rooms")
	require.Len(t, rooms, 1)
	assert.True(t, rooms[0].Retain)

	var decoded []Room
	require.NoError(t, json.Unmarshal(rooms[0].Payload, &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "r1", decoded[0].ID)
	require.Len(t, mock.MessagesOn("site/floors/f1/corridors"), 1)

	// unchanged payloads are skipped
	require.NoError(t, p.PublishFloor(doc, "f1"))
	assert.Len(t, mock.GetPublishedMessages(), 2)

	// only the changed collection goes out again
	doc.Rooms[0].X = 40
	require.NoError(t, p.PublishFloor(doc, "f1"))
	assert.Len(t, mock.MessagesOn("site/floors/f1/rooms"), 2)
	assert.Len(t, mock.MessagesOn("site/floors/f1/corridors"), 1)

	// a late subscriber sees the newest rooms
	retained, ok := mock.Retained("site/floors/f1/rooms")
	require.True(t, ok)
	require.NoError(t, json.Unmarshal(retained, &decoded))
	assert.Equal(t, 40.0, decoded[0].X)
}

func TestChangePublisher_EmptyFloorPublishesArrays(t *testing.T) {
	p, mock := connectedPublisher()
	require.NoError(t, p.PublishFloor(Document{}, "empty"))
	assert.Equal(t, "[]", string(mock.MessagesOn("site/floors/empty/rooms")[0].Payload))
	assert.Equal(t, "[]", string(mock.MessagesOn("site/floors/empty/corridors")[0].Payload))
}

func TestChangePublisher_SaveAllFloors(t *testing.T) {
	p, mock := connectedPublisher()
	require.NoError(t, p.Save(sampleDocument()))
	assert.Len(t, mock.GetPublishedMessages(), 6)
}

func TestChangePublisher_PublishRoute(t *testing.T) {
	p, mock := connectedPublisher()
	route := []Point{{X: 0, Y: 0}, {X: 30, Y: 40}}
	require.NoError(t, p.PublishRoute("f1", "a", "b", route))

	msgs := mock.MessagesOn("site/routes")
	require.Len(t, msgs, 1)
	assert.False(t, msgs[0].Retain)
	_, retained := mock.Retained("site/routes")
	assert.False(t, retained)

	var msg RouteMessage
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &msg))
	assert.Equal(t, "f1", msg.FloorID)
	assert.Equal(t, route, msg.Waypoints)
	assert.InDelta(t, 50, msg.Length, 1e-9)
	assert.NotZero(t, msg.Timestamp)
}

func TestChangePublisher_PublishErrorIsRetried(t *testing.T) {
	p, mock := connectedPublisher()
	mock.SetPublishError(errors.New("broker unavailable"))
	err := p.PublishFloor(sampleDocument(), "f1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker unavailable")

	mock.SetPublishError(nil)
	require.NoError(t, p.PublishFloor(sampleDocument(), "f1"))
	assert.Len(t, mock.GetPublishedMessages(), 2, "failed payload is not remembered as sent")
}

func TestChangePublisher_TimeoutIsRetried(t *testing.T) {
	p, mock := connectedPublisher()
	mock.SetPublishStalled(true)
	err := p.PublishFloor(sampleDocument(), "f1")
	require.ErrorIs(t, err, ErrPublishTimeout)
	require.ErrorIs(t, p.PublishRoute("f1", "a", "b", nil), ErrPublishTimeout)

	mock.SetPublishStalled(false)
	require.NoError(t, p.PublishFloor(sampleDocument(), "f1"))
	var rooms []Room
	payload, ok := mock.Retained(p.RoomsTopic("f1"))
	require.True(t, ok, "unacknowledged payload is published again")
	require.NoError(t, json.Unmarshal(payload, &rooms))
	assert.Len(t, rooms, 1)
	_, ok = mock.Retained(p.CorridorsTopic("f1"))
	assert.True(t, ok)
}

func TestChangePublisher_QoS(t *testing.T) {
	p, mock := connectedPublisher()
	p.SetQoS(1)
	p.SetQoS(5) // ignored
	require.NoError(t, p.PublishRoute("f1", "a", "b", nil))
	assert.Equal(t, byte(1), mock.GetPublishedMessages()[0].QoS)
}

func TestNewPublisherForConfig(t *testing.T) {
	mock := NewMockClient()
	mock.SetConnected(true)
	p := NewPublisherForConfig(mock, MQTTConfig{PublishPrefix: "site", QoS: 2})
	require.NoError(t, p.PublishFloor(sampleDocument(), "f1"))
	msgs := mock.GetPublishedMessages()
	require.NotEmpty(t, msgs)
	assert.Equal(t, "site/floors/f1/rooms", msgs[0].Topic)
	assert.Equal(t, byte(2), msgs[0].QoS)
}

func TestChangePublisher_AsMirrorSink(t *testing.T) {
	p, mock := connectedPublisher()
	store := NewMemoryStore(sampleDocument())
	m := NewMirror(p)
	m.Attach(store)

	ed := NewEditor(store, "f1", DefaultEditorOptions())
	ed.AddRoom("Triage", ScreenEvent{X: 400, Y: 0})
	m.Close()

	msgs := mock.MessagesOn("site/floors/f1/rooms")
	require.NotEmpty(t, msgs)
	var rooms []Room
	require.NoError(t, json.Unmarshal(msgs[len(msgs)-1].Payload, &rooms))
	assert.Len(t, rooms, 2)
}
