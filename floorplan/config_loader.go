package floorplan

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the unified wardmap configuration
type Config struct {
	Grid     Grid          `yaml:"grid" json:"grid"`
	View     ViewConfig    `yaml:"view" json:"view"`
	Room     RoomConfig    `yaml:"room" json:"room"`
	Corridor CorridorStyle `yaml:"corridor" json:"corridor"`
	History  HistoryConfig `yaml:"history" json:"history"`
	Storage  StorageConfig `yaml:"storage" json:"storage"`
	MQTT     MQTTConfig    `yaml:"mqtt" json:"mqtt"`
	HTTP     HTTPConfig    `yaml:"http" json:"http"`
	Render   RenderConfig  `yaml:"render" json:"render"`
}

// ViewConfig bounds the zoom factor
type ViewConfig struct {
	MinZoom float64 `yaml:"minZoom" json:"minZoom"`
	MaxZoom float64 `yaml:"maxZoom" json:"maxZoom"`
}

// RoomConfig holds size limits and defaults for new rooms
type RoomConfig struct {
	MinSize  `yaml:",inline"`
	Defaults RoomDefaults `yaml:",inline" json:"defaults"`
}

// HistoryConfig sizes the undo stack
type HistoryConfig struct {
	Capacity int `yaml:"capacity" json:"capacity"`
}

// Storage drivers
const (
	StorageJSON   = "json"
	StorageSQLite = "sqlite"
)

// StorageConfig selects where the document is persisted
type StorageConfig struct {
	Driver string `yaml:"driver" json:"driver"`
	Path   string `yaml:"path" json:"path"`
}

// MQTTConfig holds MQTT connection settings. An empty broker disables MQTT.
type MQTTConfig struct {
	Broker        string `yaml:"broker" json:"broker"`
	PublishPrefix string `yaml:"publishPrefix" json:"publishPrefix"`
	ClientID      string `yaml:"clientId" json:"clientId"`
	Username      string `yaml:"username,omitempty" json:"username,omitempty"`
	Password      string `yaml:"password,omitempty" json:"password,omitempty"`
	QoS           byte   `yaml:"qos" json:"qos"`
}

// HTTPConfig holds the listen port
type HTTPConfig struct {
	Port int `yaml:"port" json:"port"`
}

// RenderConfig controls SVG/PNG output
type RenderConfig struct {
	Padding   float64 `yaml:"padding" json:"padding"`
	GridLines bool    `yaml:"gridLines" json:"gridLines"`
	DPI       float64 `yaml:"dpi" json:"dpi"`
}

// DefaultConfig returns a configuration with every default filled in
func DefaultConfig() *Config {
	return &Config{
		Grid: DefaultGrid(),
		View: ViewConfig{MinZoom: DefaultMinZoom, MaxZoom: DefaultMaxZoom},
		Room: RoomConfig{
			MinSize: DefaultMinSize(),
			Defaults: RoomDefaults{
				Width:  DefaultRoomWidth,
				Height: DefaultRoomHeight,
				Color:  DefaultRoomColor,
			},
		},
		Corridor: CorridorStyle{Width: DefaultCorridorWidth, Color: DefaultCorridorColor},
		History:  HistoryConfig{Capacity: DefaultHistoryCapacity},
		Storage:  StorageConfig{Driver: StorageJSON, Path: "wardmap.json"},
		MQTT:     MQTTConfig{PublishPrefix: "wardmap", ClientID: "wardmap"},
		HTTP:     HTTPConfig{Port: 8080},
		Render:   RenderConfig{Padding: 40, GridLines: true, DPI: DefaultRenderDPI},
	}
}

// LoadConfig loads the configuration from a YAML file. Keys missing from
// the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if c.Grid.Room <= 0 {
		return fmt.Errorf("grid.room must be > 0")
	}
	if c.Grid.Corridor <= 0 {
		return fmt.Errorf("grid.corridor must be > 0")
	}
	if c.View.MinZoom <= 0 || c.View.MaxZoom < c.View.MinZoom {
		return fmt.Errorf("view zoom range [%g, %g] is invalid", c.View.MinZoom, c.View.MaxZoom)
	}
	if c.Room.MinSize.Width <= 0 || c.Room.MinSize.Height <= 0 {
		return fmt.Errorf("room.minWidth and room.minHeight must be > 0")
	}
	if c.Room.Defaults.Width < c.Room.MinSize.Width || c.Room.Defaults.Height < c.Room.MinSize.Height {
		return fmt.Errorf("room default size must not be below the minimum size")
	}
	if c.History.Capacity < MinHistoryCapacity {
		return fmt.Errorf("history.capacity must be >= %d", MinHistoryCapacity)
	}
	switch c.Storage.Driver {
	case StorageJSON, StorageSQLite:
	default:
		return fmt.Errorf("storage.driver must be %q or %q, got %q", StorageJSON, StorageSQLite, c.Storage.Driver)
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required")
	}
	if c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QoS)
	}
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port %d out of range", c.HTTP.Port)
	}
	return nil
}

// EditorOptions derives editor settings from the configuration
func (c *Config) EditorOptions() EditorOptions {
	return EditorOptions{
		Grid:            c.Grid,
		MinSize:         c.Room.MinSize,
		Rooms:           c.Room.Defaults,
		Corridor:        c.Corridor,
		HistoryCapacity: c.History.Capacity,
		MinZoom:         c.View.MinZoom,
		MaxZoom:         c.View.MaxZoom,
		HandleRadius:    DefaultHandleRadius,
	}
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(path string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
