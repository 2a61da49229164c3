// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/peersync/lib/world"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local runs against a relay on localhost.
	Development Environment = "development"
	// Production is for peers meeting through a public relay.
	Production Environment = "production"
)

// Config is the master configuration shared by the peer and the relay.
type Config struct {
	// Environment selects which override section applies.
	Environment Environment `yaml:"environment"`

	Signaling SignalingConfig `yaml:"signaling"`
	ICE       ICEConfig       `yaml:"ice"`
	Session   SessionConfig   `yaml:"session"`
	Capture   CaptureConfig   `yaml:"capture"`
	Log       LogConfig       `yaml:"log"`

	// World is the shared layout. Both peers must load the same one or
	// the manifest handshake fails.
	World world.Layout `yaml:"world"`

	// Per-environment overrides, applied after the base values.
	Development *Overrides `yaml:"development,omitempty"`
	Production  *Overrides `yaml:"production,omitempty"`
}

// Overrides contains the sections that can differ per environment.
type Overrides struct {
	Signaling *SignalingConfig `yaml:"signaling,omitempty"`
	Session   *SessionConfig   `yaml:"session,omitempty"`
	Capture   *CaptureConfig   `yaml:"capture,omitempty"`
	Log       *LogConfig       `yaml:"log,omitempty"`
}

// SignalingConfig locates the pairing relay.
type SignalingConfig struct {
	// URL is the relay a peer dials.
	// Default: ws://localhost:9090
	URL string `yaml:"url"`

	// Listen is the address the relay binary serves on.
	// Default: :9090
	Listen string `yaml:"listen"`
}

// ICEConfig configures connection establishment.
type ICEConfig struct {
	// Servers are STUN or TURN URLs.
	Servers []string `yaml:"servers"`

	// ConnectTimeout bounds signaling plus ICE, as a Go duration.
	// Default: 30s
	ConnectTimeout string `yaml:"connect_timeout"`
}

// SessionConfig tunes the tick loop.
type SessionConfig struct {
	// TickRate is simulation steps per second.
	// Default: 60
	TickRate int `yaml:"tick_rate"`

	// FramesPerUpdate sends state every Nth tick.
	// Default: 1
	FramesPerUpdate int `yaml:"frames_per_update"`

	// Budget is the soft byte budget for one packet.
	// Default: 120
	Budget int `yaml:"budget"`

	// MaxPacket is the hard packet ceiling in bytes.
	// Default: 2000
	MaxPacket int `yaml:"max_packet"`

	Jitter JitterConfig `yaml:"jitter"`
}

// JitterConfig sizes the receive buffer.
type JitterConfig struct {
	Length int `yaml:"length"`
	Delay  int `yaml:"delay"`
	// Pacing is "latest" or "adaptive".
	Pacing string `yaml:"pacing"`
}

// CaptureConfig enables session capture.
type CaptureConfig struct {
	// Path is the capture file. Empty disables capture. Supports
	// ${VAR} and ${VAR:-default} expansion.
	Path string `yaml:"path"`

	// Compression is "zstd", "lz4" or "none".
	// Default: zstd
	Compression string `yaml:"compression"`
}

// LogConfig configures the binaries' slog handler.
type LogConfig struct {
	// Level is debug, info, warn or error.
	// Default: info
	Level string `yaml:"level"`
}

// Default returns the configuration used as the base before a file is
// loaded.
func Default() *Config {
	return &Config{
		Environment: Development,
		Signaling: SignalingConfig{
			URL:    "ws://localhost:9090",
			Listen: ":9090",
		},
		ICE: ICEConfig{
			Servers:        []string{"stun:stun.l.google.com:19302"},
			ConnectTimeout: "30s",
		},
		Session: SessionConfig{
			TickRate:        60,
			FramesPerUpdate: 1,
			Budget:          120,
			MaxPacket:       2000,
			Jitter: JitterConfig{
				Length: 20,
				Delay:  10,
				Pacing: "latest",
			},
		},
		Capture: CaptureConfig{
			Compression: "zstd",
		},
		Log: LogConfig{
			Level: "info",
		},
		World: world.DefaultLayout(),
	}
}

// Load loads configuration from the file named by PEERSYNC_CONFIG.
// There is no search path; if the variable is unset, Load fails.
func Load() (*Config, error) {
	path := os.Getenv("PEERSYNC_CONFIG")
	if path == "" {
		return nil, errors.New("PEERSYNC_CONFIG environment variable not set; " +
			"set it to the path of your peersync.yaml config file, or use --config flag")
	}
	return LoadFile(path)
}

// LoadFile loads configuration from path on top of Default, applies
// the section for the selected environment, and expands variables in
// path fields.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}

// Parse is LoadFile without the file.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *Overrides
	switch c.Environment {
	case Development:
		overrides = c.Development
	case Production:
		overrides = c.Production
		// Production never captures unless the section asks for it.
		if overrides == nil {
			c.Capture.Path = ""
			return
		}
	}
	if overrides == nil {
		return
	}

	if overrides.Signaling != nil {
		override(&c.Signaling.URL, overrides.Signaling.URL)
		override(&c.Signaling.Listen, overrides.Signaling.Listen)
	}
	if session := overrides.Session; session != nil {
		override(&c.Session.TickRate, session.TickRate)
		override(&c.Session.FramesPerUpdate, session.FramesPerUpdate)
		override(&c.Session.Budget, session.Budget)
		override(&c.Session.MaxPacket, session.MaxPacket)
		override(&c.Session.Jitter.Length, session.Jitter.Length)
		override(&c.Session.Jitter.Delay, session.Jitter.Delay)
		override(&c.Session.Jitter.Pacing, session.Jitter.Pacing)
	}
	if overrides.Capture != nil {
		override(&c.Capture.Path, overrides.Capture.Path)
		override(&c.Capture.Compression, overrides.Capture.Compression)
	}
	if overrides.Log != nil {
		override(&c.Log.Level, overrides.Log.Level)
	}
}

// override replaces *field with value unless value is the zero value.
func override[T comparable](field *T, value T) {
	var zero T
	if value != zero {
		*field = value
	}
}

func (c *Config) expandVariables() {
	c.Capture.Path = expandVars(c.Capture.Path)
	c.Signaling.URL = expandVars(c.Signaling.URL)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} from the environment.
func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

// TickInterval is the duration of one simulation step.
func (c *Config) TickInterval() time.Duration {
	return time.Second / time.Duration(c.Session.TickRate)
}

// ConnectTimeout parses ICE.ConnectTimeout.
func (c *Config) ConnectTimeout() (time.Duration, error) {
	timeout, err := time.ParseDuration(c.ICE.ConnectTimeout)
	if err != nil {
		return 0, fmt.Errorf("ice.connect_timeout: %w", err)
	}
	return timeout, nil
}

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}
	if c.Signaling.URL == "" {
		errs = append(errs, errors.New("signaling.url is required"))
	} else if !strings.HasPrefix(c.Signaling.URL, "ws://") && !strings.HasPrefix(c.Signaling.URL, "wss://") {
		errs = append(errs, fmt.Errorf("signaling.url must be a ws:// or wss:// URL, got %q", c.Signaling.URL))
	}

	for i, server := range c.ICE.Servers {
		scheme, _, _ := strings.Cut(server, ":")
		if !slices.Contains([]string{"stun", "stuns", "turn", "turns"}, scheme) {
			errs = append(errs, fmt.Errorf("ice.servers[%d]: unsupported URL %q", i, server))
		}
	}
	if timeout, err := c.ConnectTimeout(); err != nil {
		errs = append(errs, err)
	} else if timeout <= 0 {
		errs = append(errs, errors.New("ice.connect_timeout must be positive"))
	}

	session := c.Session
	if session.TickRate <= 0 || session.TickRate > 1000 {
		errs = append(errs, fmt.Errorf("session.tick_rate must be between 1 and 1000, got %d", session.TickRate))
	}
	if session.FramesPerUpdate < 1 {
		errs = append(errs, fmt.Errorf("session.frames_per_update must be at least 1, got %d", session.FramesPerUpdate))
	}
	if session.Budget <= 0 {
		errs = append(errs, fmt.Errorf("session.budget must be positive, got %d", session.Budget))
	}
	if session.MaxPacket < session.Budget {
		errs = append(errs, fmt.Errorf("session.max_packet (%d) must not be smaller than session.budget (%d)", session.MaxPacket, session.Budget))
	}
	if session.Jitter.Length < 2 {
		errs = append(errs, fmt.Errorf("session.jitter.length must be at least 2, got %d", session.Jitter.Length))
	}
	if session.Jitter.Delay < 1 || session.Jitter.Delay >= session.Jitter.Length {
		errs = append(errs, fmt.Errorf("session.jitter.delay must be between 1 and length-1, got %d", session.Jitter.Delay))
	}
	if !slices.Contains([]string{"latest", "adaptive"}, session.Jitter.Pacing) {
		errs = append(errs, fmt.Errorf("session.jitter.pacing must be latest or adaptive, got %q", session.Jitter.Pacing))
	}

	if !slices.Contains([]string{"zstd", "lz4", "none"}, c.Capture.Compression) {
		errs = append(errs, fmt.Errorf("capture.compression must be zstd, lz4 or none, got %q", c.Capture.Compression))
	}
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level))
	}

	if c.World.Controllers != 2 {
		errs = append(errs, fmt.Errorf("world.controllers must be 2 for a two-peer session, got %d", c.World.Controllers))
	}
	if err := c.World.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("world: %w", err))
	}

	return errors.Join(errs...)
}
