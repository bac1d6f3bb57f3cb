package floorplan

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// ErrNotConnected is returned when publishing without a broker connection
var ErrNotConnected = errors.New("MQTT client not connected")

// ErrPublishTimeout is returned when the broker does not acknowledge a
// publish in time
var ErrPublishTimeout = errors.New("MQTT publish timed out")

const publishTimeout = 2 * time.Second

// RouteMessage is the payload published for a computed route
type RouteMessage struct {
	FloorID   string  `json:"floorId"`
	From      string  `json:"from"`
	To        string  `json:"to"`
	Waypoints []Point `json:"waypoints"`
	Length    float64 `json:"length"`
	Timestamp int64   `json:"timestamp"`
}

// ChangePublisher mirrors committed floor collections and computed routes to
// MQTT. Floor topics are retained so late subscribers see the current map.
type ChangePublisher struct {
	client mqtt.Client
	prefix string
	qos    byte

	mu   sync.Mutex
	last map[string][]byte // topic -> last payload sent
}

// NewChangePublisher creates a publisher. A nil client disables publishing.
func NewChangePublisher(client mqtt.Client, prefix string) *ChangePublisher {
	if prefix == "" {
		prefix = "wardmap"
	}
	return &ChangePublisher{
		client: client,
		prefix: prefix,
		last:   make(map[string][]byte),
	}
}

// NewPublisherForConfig creates a publisher using cfg's prefix and QoS
func NewPublisherForConfig(client mqtt.Client, cfg MQTTConfig) *ChangePublisher {
	p := NewChangePublisher(client, cfg.PublishPrefix)
	p.SetQoS(cfg.QoS)
	return p
}

// SetQoS sets the Quality of Service level for publishing (0, 1, or 2).
// Other values are ignored.
func (p *ChangePublisher) SetQoS(qos byte) {
	if qos <= 2 {
		p.qos = qos
	}
}

// RoomsTopic returns the retained topic for a floor's rooms
func (p *ChangePublisher) RoomsTopic(floorID string) string {
	return fmt.Sprintf("%s/floors/%s/rooms", p.prefix, floorID)
}

// CorridorsTopic returns the retained topic for a floor's corridors
func (p *ChangePublisher) CorridorsTopic(floorID string) string {
	return fmt.Sprintf("%s/floors/%s/corridors", p.prefix, floorID)
}

// RoutesTopic returns the topic routes are published on
func (p *ChangePublisher) RoutesTopic() string {
	return p.prefix + "/routes"
}

func (p *ChangePublisher) connected() bool {
	return p.client != nil && p.client.IsConnected()
}

// PublishFloor publishes a floor's rooms and corridors. Topics whose
// payload is unchanged since the last publish are skipped.
func (p *ChangePublisher) PublishFloor(doc Document, floorID string) error {
	if !p.connected() {
		return ErrNotConnected
	}
	rooms := RoomsOnFloor(doc.Rooms, floorID)
	if rooms == nil {
		rooms = []Room{}
	}
	corridors := CorridorsOnFloor(doc.Corridors, floorID)
	if corridors == nil {
		corridors = []Corridor{}
	}
	if err := p.publishIfChanged(p.RoomsTopic(floorID), rooms); err != nil {
		return err
	}
	return p.publishIfChanged(p.CorridorsTopic(floorID), corridors)
}

// Save implements DocumentSink by publishing every floor. A missing
// connection is not an error here; the next save catches up.
func (p *ChangePublisher) Save(doc Document) error {
	if !p.connected() {
		return nil
	}
	for _, f := range doc.Floors {
		if err := p.PublishFloor(doc, f.ID); err != nil {
			return err
		}
	}
	return nil
}

// PublishRoute publishes a computed route. Routes are not retained.
func (p *ChangePublisher) PublishRoute(floorID, from, to string, route []Point) error {
	if !p.connected() {
		return ErrNotConnected
	}
	msg := RouteMessage{
		FloorID:   floorID,
		From:      from,
		To:        to,
		Waypoints: route,
		Length:    RouteLength(route),
		Timestamp: time.Now().Unix(),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling route: %w", err)
	}
	return p.publish(p.RoutesTopic(), false, payload)
}

func (p *ChangePublisher) publishIfChanged(topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", topic, err)
	}

	p.mu.Lock()
	same := bytes.Equal(p.last[topic], payload)
	p.mu.Unlock()
	if same {
		return nil
	}

	if err := p.publish(topic, true, payload); err != nil {
		return err
	}
	p.mu.Lock()
	p.last[topic] = payload
	p.mu.Unlock()
	return nil
}

func (p *ChangePublisher) publish(topic string, retain bool, payload []byte) error {
	token := p.client.Publish(topic, p.qos, retain, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publishing to %s: %w", topic, ErrPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}
	log.Printf("[MQTT] published %d bytes to %s", len(payload), topic)
	return nil
}
