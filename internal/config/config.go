// Package config loads the boardhub server configuration from a YAML
// file, filling unset fields from defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults for unset configuration fields.
const (
	DefaultAddr            = ":8080"
	DefaultReadTimeout     = 60 * time.Second
	DefaultWriteTimeout    = 10 * time.Second
	DefaultPingInterval    = 30 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultSendQueueSize   = 256
	DefaultRoomGracePeriod = 10 * time.Minute
	DefaultSweepInterval   = time.Minute
	DefaultMetricsNS       = "boardhub"
)

// Duration wraps time.Duration so YAML values like "30s" parse.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the complete server configuration.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `yaml:"addr"`

	// StaticDir, if set, is served at / for the client bundle.
	StaticDir string `yaml:"static_dir"`

	// AllowedOrigins restricts websocket upgrades by Origin header.
	// Empty means same-origin only; "*" allows any origin.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// ReadTimeout is the websocket read deadline; a connection silent
	// for longer (no frames, no pongs) is treated as dead.
	ReadTimeout Duration `yaml:"read_timeout"`

	// WriteTimeout bounds each websocket write.
	WriteTimeout Duration `yaml:"write_timeout"`

	// PingInterval is how often the server pings each connection.
	PingInterval Duration `yaml:"ping_interval"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`

	// SendQueueSize is the per-connection outbound queue length. A
	// connection that falls this far behind is dropped.
	SendQueueSize int `yaml:"send_queue_size"`

	// RoomGracePeriod is how long an empty room is kept before expiry.
	RoomGracePeriod Duration `yaml:"room_grace_period"`

	// SweepInterval is how often the idle-room sweeper runs.
	SweepInterval Duration `yaml:"sweep_interval"`

	// Palette overrides the user color palette.
	Palette []string `yaml:"palette"`

	// MetricsNamespace is the Prometheus metrics namespace.
	MetricsNamespace string `yaml:"metrics_namespace"`
}

// Default returns the configuration with every field at its default.
func Default() *Config {
	return &Config{
		Addr:             DefaultAddr,
		ReadTimeout:      Duration(DefaultReadTimeout),
		WriteTimeout:     Duration(DefaultWriteTimeout),
		PingInterval:     Duration(DefaultPingInterval),
		ShutdownTimeout:  Duration(DefaultShutdownTimeout),
		SendQueueSize:    DefaultSendQueueSize,
		RoomGracePeriod:  Duration(DefaultRoomGracePeriod),
		SweepInterval:    Duration(DefaultSweepInterval),
		MetricsNamespace: DefaultMetricsNS,
	}
}

// Load reads the YAML file at path and merges it over the defaults.
// An empty path returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.fillDefaults()
	return cfg, nil
}

// fillDefaults restores defaults for fields the file zeroed or omitted.
func (c *Config) fillDefaults() {
	defaults := Default()
	if c.Addr == "" {
		c.Addr = defaults.Addr
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = defaults.ReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = defaults.WriteTimeout
	}
	if c.PingInterval <= 0 {
		c.PingInterval = defaults.PingInterval
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = defaults.ShutdownTimeout
	}
	if c.SendQueueSize <= 0 {
		c.SendQueueSize = defaults.SendQueueSize
	}
	if c.RoomGracePeriod <= 0 {
		c.RoomGracePeriod = defaults.RoomGracePeriod
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = defaults.SweepInterval
	}
	if c.MetricsNamespace == "" {
		c.MetricsNamespace = defaults.MetricsNamespace
	}
}

// Validate reports configuration errors that prevent startup.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("config: addr must not be empty")
	}
	if c.StaticDir != "" {
		info, err := os.Stat(c.StaticDir)
		if err != nil {
			return fmt.Errorf("config: static_dir: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("config: static_dir %s is not a directory", c.StaticDir)
		}
	}
	return nil
}

// Warnings reports suspicious but non-fatal settings.
func (c *Config) Warnings() []string {
	var warnings []string
	for _, origin := range c.AllowedOrigins {
		if origin == "*" {
			warnings = append(warnings, "allowed_origins contains \"*\": websocket upgrades accepted from any origin")
		}
	}
	if c.PingInterval.Std() >= c.ReadTimeout.Std() {
		warnings = append(warnings, "ping_interval >= read_timeout: idle connections will be dropped between pings")
	}
	if c.RoomGracePeriod.Std() < c.SweepInterval.Std() {
		warnings = append(warnings, "room_grace_period < sweep_interval: empty rooms may outlive the grace period by up to one sweep")
	}
	return warnings
}
