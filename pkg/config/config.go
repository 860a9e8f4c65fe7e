// pkg/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/segmentio/encoding/json"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// SPACETRAVEL_FIELD_ROWS or SPACETRAVEL_VIEW_TICKRATE.
const EnvPrefix = "SPACETRAVEL"

// ErrInvalidConfig is wrapped by every ConfigurationError.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the root configuration of the simulation and its front ends.
type Config struct {
	Field  FieldConfig  `mapstructure:"field" json:"field"`
	Craft  CraftConfig  `mapstructure:"craft" json:"craft"`
	Index  IndexConfig  `mapstructure:"index" json:"index"`
	View   ViewConfig   `mapstructure:"view" json:"view"`
	Server ServerConfig `mapstructure:"server" json:"server"`
}

// FieldConfig describes the obstacle grid.
type FieldConfig struct {
	Rows            int     `mapstructure:"rows" json:"rows"`
	Columns         int     `mapstructure:"columns" json:"columns"`
	FillProbability int     `mapstructure:"fillProbability" json:"fillProbability"`
	WorldSpacing    float64 `mapstructure:"worldSpacing" json:"worldSpacing"`
	ObstacleRadius  float64 `mapstructure:"obstacleRadius" json:"obstacleRadius"`
	DepthOffset     float64 `mapstructure:"depthOffset" json:"depthOffset"`
	Seed            uint64  `mapstructure:"seed" json:"seed"` // 0 picks a time-based seed
}

// CraftConfig describes the craft's bounding sphere and controls.
type CraftConfig struct {
	BoundingRadius float64 `mapstructure:"boundingRadius" json:"boundingRadius"`
	BoundingOffset float64 `mapstructure:"boundingOffset" json:"boundingOffset"`
	TurnRate       float64 `mapstructure:"turnRate" json:"turnRate"`
	MoveRate       float64 `mapstructure:"moveRate" json:"moveRate"`
}

// IndexConfig tunes the quadtree. With Enabled false every query scans the
// whole field.
type IndexConfig struct {
	Capacity int  `mapstructure:"capacity" json:"capacity"`
	MaxDepth int  `mapstructure:"maxDepth" json:"maxDepth"`
	Enabled  bool `mapstructure:"enabled" json:"enabled"`
}

// ViewConfig sizes the output and the perspective frustum.
type ViewConfig struct {
	Width      int     `mapstructure:"width" json:"width"`
	Height     int     `mapstructure:"height" json:"height"`
	Near       float64 `mapstructure:"near" json:"near"`
	Far        float64 `mapstructure:"far" json:"far"`
	HalfExtent float64 `mapstructure:"halfExtent" json:"halfExtent"`
	Culling    bool    `mapstructure:"culling" json:"culling"`
	TickRate   int     `mapstructure:"tickRate" json:"tickRate"` // frames per second
}

// ServerConfig configures the SSH host.
type ServerConfig struct {
	Address       string `mapstructure:"address" json:"address"`
	HostKeyPath   string `mapstructure:"hostKeyPath" json:"hostKeyPath"`
	HealthAddress string `mapstructure:"healthAddress" json:"healthAddress"`
	MaxSessions   int    `mapstructure:"maxSessions" json:"maxSessions"`
	ConnectRate   int    `mapstructure:"connectRate" json:"connectRate"` // sessions per remote host per minute, 0 disables
}

// ConfigurationError reports the first invalid option found.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidConfig, e.Key, e.Reason)
}

// Unwrap lets errors.Is match ErrInvalidConfig.
func (e *ConfigurationError) Unwrap() error {
	return ErrInvalidConfig
}

// DefaultConfig returns the classic setup: a full 100×100 field, a 1600×800
// window split in two and the original craft constants.
func DefaultConfig() *Config {
	return &Config{
		Field: FieldConfig{
			Rows:            100,
			Columns:         100,
			FillProbability: 100,
			WorldSpacing:    30,
			ObstacleRadius:  3,
			DepthOffset:     40,
		},
		Craft: CraftConfig{
			BoundingRadius: 7.072,
			BoundingOffset: 5,
			TurnRate:       2,
			MoveRate:       1,
		},
		Index: IndexConfig{
			Capacity: 4,
			MaxDepth: 10,
			Enabled:  true,
		},
		View: ViewConfig{
			Width:      1600,
			Height:     800,
			Near:       5,
			Far:        250,
			HalfExtent: 5,
			Culling:    true,
			TickRate:   60,
		},
		Server: ServerConfig{
			Address:       ":2222",
			HealthAddress: ":8080",
			MaxSessions:   32,
			ConnectRate:   10,
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("field.rows", d.Field.Rows)
	v.SetDefault("field.columns", d.Field.Columns)
	v.SetDefault("field.fillProbability", d.Field.FillProbability)
	v.SetDefault("field.worldSpacing", d.Field.WorldSpacing)
	v.SetDefault("field.obstacleRadius", d.Field.ObstacleRadius)
	v.SetDefault("field.depthOffset", d.Field.DepthOffset)
	v.SetDefault("field.seed", d.Field.Seed)

	v.SetDefault("craft.boundingRadius", d.Craft.BoundingRadius)
	v.SetDefault("craft.boundingOffset", d.Craft.BoundingOffset)
	v.SetDefault("craft.turnRate", d.Craft.TurnRate)
	v.SetDefault("craft.moveRate", d.Craft.MoveRate)

	v.SetDefault("index.capacity", d.Index.Capacity)
	v.SetDefault("index.maxDepth", d.Index.MaxDepth)
	v.SetDefault("index.enabled", d.Index.Enabled)

	v.SetDefault("view.width", d.View.Width)
	v.SetDefault("view.height", d.View.Height)
	v.SetDefault("view.near", d.View.Near)
	v.SetDefault("view.far", d.View.Far)
	v.SetDefault("view.halfExtent", d.View.HalfExtent)
	v.SetDefault("view.culling", d.View.Culling)
	v.SetDefault("view.tickRate", d.View.TickRate)

	v.SetDefault("server.address", d.Server.Address)
	v.SetDefault("server.hostKeyPath", d.Server.HostKeyPath)
	v.SetDefault("server.healthAddress", d.Server.HealthAddress)
	v.SetDefault("server.maxSessions", d.Server.MaxSessions)
	v.SetDefault("server.connectRate", d.Server.ConnectRate)
}

// Load reads configuration from defaults, an optional file and the
// environment, in increasing priority. With an empty path a file named
// spacetravel.{json,yaml} is looked up in the working directory and in
// $HOME/.config/spacetravel; not finding one is not an error. The result is
// validated.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("spacetravel")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "spacetravel"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig writes cfg to path as indented JSON.
func SaveConfig(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the options the simulation cannot run without. It
// returns a *ConfigurationError for the first problem found.
func Validate(cfg *Config) error {
	checks := []struct {
		ok     bool
		key    string
		reason string
	}{
		{cfg.Field.Rows > 0, "field.rows", "must be positive"},
		{cfg.Field.Columns > 0, "field.columns", "must be positive"},
		{cfg.Field.FillProbability >= 0 && cfg.Field.FillProbability <= 100, "field.fillProbability", "must be within [0, 100]"},
		{cfg.Field.WorldSpacing > 0, "field.worldSpacing", "must be positive"},
		{cfg.Field.ObstacleRadius > 0, "field.obstacleRadius", "must be positive"},
		{cfg.Craft.BoundingRadius > 0, "craft.boundingRadius", "must be positive"},
		{cfg.Craft.BoundingOffset >= 0, "craft.boundingOffset", "must not be negative"},
		{cfg.Craft.TurnRate > 0, "craft.turnRate", "must be positive"},
		{cfg.Craft.MoveRate > 0, "craft.moveRate", "must be positive"},
		{cfg.Index.Capacity >= 1, "index.capacity", "must be at least 1"},
		{cfg.Index.MaxDepth >= 1, "index.maxDepth", "must be at least 1"},
		{cfg.View.Width > 0 && cfg.View.Height > 0, "view.width", "and view.height must be positive"},
		{cfg.View.Near > 0, "view.near", "must be positive"},
		{cfg.View.Near < cfg.View.Far, "view.near", "must be less than view.far"},
		{cfg.View.HalfExtent > 0, "view.halfExtent", "must be positive"},
		{cfg.View.TickRate > 0, "view.tickRate", "must be positive"},
		{cfg.Server.MaxSessions >= 0, "server.maxSessions", "must not be negative"},
		{cfg.Server.ConnectRate >= 0, "server.connectRate", "must not be negative"},
	}

	for _, c := range checks {
		if !c.ok {
			return &ConfigurationError{Key: c.key, Reason: c.reason}
		}
	}
	return nil
}
