package floorplan

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// DeviceHandler receives devices reported on the device feed
type DeviceHandler func(dev Device)

// MQTTClient manages the broker connection and the device feed subscription
type MQTTClient struct {
	client        mqtt.Client
	config        MQTTConfig
	deviceHandler DeviceHandler
	isConnected   bool
	mu            sync.RWMutex
}

// ResolveMQTTConfig applies MQTT_* environment overrides on top of cfg
func ResolveMQTTConfig(cfg MQTTConfig) MQTTConfig {
	if v := os.Getenv("MQTT_BROKER"); v != "" {
		cfg.Broker = v
	}
	if v := os.Getenv("MQTT_CLIENT_ID"); v != "" {
		cfg.ClientID = v
	}
	if v := os.Getenv("MQTT_USERNAME"); v != "" {
		cfg.Username = v
	}
	if v := os.Getenv("MQTT_PASSWORD"); v != "" {
		cfg.Password = v
	}
	if v := os.Getenv("MQTT_PUBLISH_PREFIX"); v != "" {
		cfg.PublishPrefix = v
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "wardmap"
	}
	if cfg.PublishPrefix == "" {
		cfg.PublishPrefix = "wardmap"
	}
	return cfg
}

// InitMQTT connects to the configured broker in the background. It returns
// nil when no broker is configured.
func InitMQTT(cfg MQTTConfig, handler DeviceHandler) *MQTTClient {
	cfg = ResolveMQTTConfig(cfg)
	if cfg.Broker == "" {
		log.Println("[MQTT] disabled: no broker configured")
		return nil
	}

	c := &MQTTClient{config: cfg, deviceHandler: handler}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetCleanSession(false)
	opts.SetOrderMatters(false)

	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(c.onConnectionLost)
	opts.SetReconnectingHandler(func(mqtt.Client, *mqtt.ClientOptions) {
		log.Println("[MQTT] reconnecting...")
	})

	c.client = mqtt.NewClient(opts)
	go c.connectWithRetry()
	return c
}

// newMQTTClientWithMock wraps an existing client, used by tests
func newMQTTClientWithMock(client mqtt.Client, cfg MQTTConfig, handler DeviceHandler) *MQTTClient {
	return &MQTTClient{client: client, config: ResolveMQTTConfig(cfg), deviceHandler: handler}
}

// connectWithRetry attempts to connect to the MQTT broker with exponential backoff
func (c *MQTTClient) connectWithRetry() {
	retryDelay := 1 * time.Second
	maxRetryDelay := 60 * time.Second

	for {
		log.Printf("[MQTT] connecting to %s...", c.config.Broker)
		token := c.client.Connect()
		if token.WaitTimeout(10 * time.Second) {
			if token.Error() == nil {
				log.Println("[MQTT] connected")
				c.setConnected(true)
				return
			}
			log.Printf("[MQTT] connection failed: %v", token.Error())
		} else {
			log.Println("[MQTT] connection timeout")
		}

		log.Printf("[MQTT] retrying in %v", retryDelay)
		time.Sleep(retryDelay)
		retryDelay *= 2
		if retryDelay > maxRetryDelay {
			retryDelay = maxRetryDelay
		}
	}
}

// DeviceTopic is the subscription filter for the device feed
func (c *MQTTClient) DeviceTopic() string {
	return c.config.PublishPrefix + "/devices/+"
}

func (c *MQTTClient) onConnect(client mqtt.Client) {
	c.setConnected(true)
	topic := c.DeviceTopic()
	token := client.Subscribe(topic, 0, c.handleDeviceMessage)
	if token.WaitTimeout(5*time.Second) && token.Error() != nil {
		log.Printf("[MQTT] error subscribing to %s: %v", topic, token.Error())
		return
	}
	log.Printf("[MQTT] subscribed to %s", topic)
}

func (c *MQTTClient) onConnectionLost(client mqtt.Client, err error) {
	log.Printf("[MQTT] connection interrupted (%v), auto-reconnect will retry", err)
	c.setConnected(false)
}

// handleDeviceMessage decodes a device report. The device id defaults to
// the last topic level.
func (c *MQTTClient) handleDeviceMessage(client mqtt.Client, msg mqtt.Message) {
	dev, err := decodeDevice(msg.Topic(), msg.Payload())
	if err != nil {
		log.Printf("[MQTT] ignoring device message on %s: %v", msg.Topic(), err)
		return
	}
	if c.deviceHandler != nil {
		c.deviceHandler(dev)
	}
}

func decodeDevice(topic string, payload []byte) (Device, error) {
	var dev Device
	if err := json.Unmarshal(payload, &dev); err != nil {
		return Device{}, fmt.Errorf("decode device: %w", err)
	}
	if dev.ID == "" {
		parts := strings.Split(topic, "/")
		dev.ID = parts[len(parts)-1]
	}
	if dev.ID == "" {
		return Device{}, fmt.Errorf("device id missing")
	}
	if dev.Type == "" {
		dev.Type = DeviceNode
	}
	return dev, nil
}

// IsConnected returns true if the MQTT client is connected
func (c *MQTTClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isConnected
}

func (c *MQTTClient) setConnected(connected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isConnected = connected
}

// Disconnect gracefully closes the MQTT connection
func (c *MQTTClient) Disconnect() {
	if c.client != nil && c.client.IsConnected() {
		log.Println("[MQTT] disconnecting...")
		c.client.Disconnect(250)
		c.setConnected(false)
	}
}

// GetClient returns the underlying MQTT client for publishing
func (c *MQTTClient) GetClient() mqtt.Client {
	return c.client
}

// Config returns the resolved connection settings
func (c *MQTTClient) Config() MQTTConfig {
	return c.config
}
