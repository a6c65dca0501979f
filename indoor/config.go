package indoor

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DatasetConfig says where the floor plan comes from.
type DatasetConfig struct {
	Path        string  `yaml:"path,omitempty" json:"path,omitempty"`
	URL         string  `yaml:"url,omitempty" json:"url,omitempty"`
	ScaleFactor float64 `yaml:"scaleFactor,omitempty" json:"scaleFactor,omitempty"` // Raw units per rendering unit (default 1000)
	Watch       bool    `yaml:"watch,omitempty" json:"watch,omitempty"`             // Reload Path when it changes
}

// ViewportConfig holds the viewport command constants.
type ViewportConfig struct {
	Padding      float64 `yaml:"padding,omitempty" json:"padding,omitempty"`
	MaxZoom      float64 `yaml:"maxZoom,omitempty" json:"maxZoom,omitempty"`
	FocusPadding float64 `yaml:"focusPadding,omitempty" json:"focusPadding,omitempty"`
	LocateZoom   float64 `yaml:"locateZoom,omitempty" json:"locateZoom,omitempty"`
	FitDelayMs   int     `yaml:"fitDelayMs,omitempty" json:"fitDelayMs,omitempty"`
}

// MQTTConfig holds MQTT connection settings
type MQTTConfig struct {
	Broker        string `yaml:"broker,omitempty" json:"broker,omitempty"`
	PublishPrefix string `yaml:"publishPrefix,omitempty" json:"publishPrefix,omitempty"`
	ClientID      string `yaml:"clientId,omitempty" json:"clientId,omitempty"`
	Username      string `yaml:"username,omitempty" json:"username,omitempty"`
	Password      string `yaml:"password,omitempty" json:"password,omitempty"`
	LocatorTopic  string `yaml:"locatorTopic,omitempty" json:"locatorTopic,omitempty"` // Position events from kiosks/beacons
}

// LayerOverride adds or replaces one LayerCatalog entry.
type LayerOverride struct {
	Key   string `yaml:"key" json:"key"`
	Name  string `yaml:"name,omitempty" json:"name,omitempty"`
	Type  string `yaml:"type" json:"type"`
	Color string `yaml:"color,omitempty" json:"color,omitempty"`
}

// StoreConfig locates the recents/favorites file.
type StoreConfig struct {
	Path string `yaml:"path,omitempty" json:"path,omitempty"`
}

// Config represents the full configuration file
type Config struct {
	Dataset  DatasetConfig   `yaml:"dataset" json:"dataset"`
	Viewport ViewportConfig  `yaml:"viewport,omitempty" json:"viewport,omitempty"`
	MQTT     MQTTConfig      `yaml:"mqtt,omitempty" json:"mqtt,omitempty"`
	Layers   []LayerOverride `yaml:"layers,omitempty" json:"layers,omitempty"`
	Store    StoreConfig     `yaml:"store,omitempty" json:"store,omitempty"`
}

// ScaleFactor returns the configured scale or DefaultScaleFactor.
func (c *Config) ScaleFactor() float64 {
	if c.Dataset.ScaleFactor > 0 {
		return c.Dataset.ScaleFactor
	}
	return DefaultScaleFactor
}

// FitOptions returns the load-fit options with defaults applied.
func (c *Config) FitOptions() FitOptions {
	opts := DefaultFitOptions()
	if c.Viewport.Padding > 0 {
		opts.Padding = c.Viewport.Padding
	}
	if c.Viewport.MaxZoom > 0 {
		opts.MaxZoom = c.Viewport.MaxZoom
	}
	if c.Viewport.FitDelayMs > 0 {
		opts.Delay = time.Duration(c.Viewport.FitDelayMs) * time.Millisecond
	}
	return opts
}

// SessionOptions returns focus and locate settings with defaults applied.
func (c *Config) SessionOptions() SessionOptions {
	opts := DefaultSessionOptions()
	opts.Fit = c.FitOptions()
	if c.Viewport.FocusPadding > 0 {
		opts.FocusPadding = c.Viewport.FocusPadding
	}
	if c.Viewport.LocateZoom > 0 {
		opts.LocateZoom = c.Viewport.LocateZoom
	}
	return opts
}

// Catalog returns DefaultLayerCatalog with the configured overrides applied.
func (c *Config) Catalog() *LayerCatalog {
	catalog := DefaultLayerCatalog()
	if len(c.Layers) == 0 {
		return catalog
	}
	overrides := make(map[string]LayerInfo, len(c.Layers))
	for _, l := range c.Layers {
		info := LayerInfo{Name: l.Name, Type: l.Type, Color: l.Color}
		if info.Name == "" {
			info.Name = l.Key
		}
		if info.Color == "" {
			info.Color = DefaultLayerColor
		}
		overrides[l.Key] = info
	}
	return catalog.WithOverrides(overrides)
}

// LoadConfig loads the configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks required fields.
func (c *Config) Validate() error {
	if c.Dataset.Path == "" && c.Dataset.URL == "" {
		return fmt.Errorf("dataset.path or dataset.url is required")
	}
	if c.Dataset.ScaleFactor < 0 {
		return fmt.Errorf("dataset.scaleFactor: %w", ErrInvalidScale)
	}
	if c.Dataset.Watch && c.Dataset.Path == "" {
		return fmt.Errorf("dataset.watch requires dataset.path")
	}
	for i, l := range c.Layers {
		if l.Key == "" {
			return fmt.Errorf("layers[%d].key is required", i)
		}
		if l.Type == "" {
			return fmt.Errorf("layers[%d].type is required for %s", i, l.Key)
		}
	}
	return nil
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
