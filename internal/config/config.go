// Package config handles the lull.yaml manifest.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the daemon's file-based configuration. CLI flags override any
// value set here.
type Config struct {
	// Socket is the control socket path. Empty disables the socket unless
	// the --socket flag supplies one.
	Socket string `yaml:"socket,omitempty"`
	// Once exits after the whole timer chain has been invoked one time.
	Once bool `yaml:"once,omitempty"`
	// NotWhenFullscreen suppresses timers while the foreground window is
	// fullscreen.
	NotWhenFullscreen bool `yaml:"not_when_fullscreen,omitempty"`
	// NotWhenAudio suppresses timers while audio is playing.
	NotWhenAudio bool `yaml:"not_when_audio,omitempty"`
	// Interval is the engine's base poll interval.
	Interval Duration `yaml:"interval,omitempty"`
	// Journal is the SQLite event journal path. Empty disables it.
	Journal string `yaml:"journal,omitempty"`
	// Source selects the idle source: auto, x11, or dbus.
	Source string `yaml:"source,omitempty"`
	// Timers is the ordered timer sequence; order is execution order and
	// the index modules and socket commands address timers by.
	Timers []TimerConfig `yaml:"timers,omitempty"`
}

// TimerConfig is one scheduled action. Hook commands are shell strings run
// through /bin/sh -c; an empty string means no command for that hook.
type TimerConfig struct {
	Duration     Duration `yaml:"duration"`
	Activation   string   `yaml:"activation,omitempty"`
	Abortion     string   `yaml:"abortion,omitempty"`
	Deactivation string   `yaml:"deactivation,omitempty"`
	Disabled     bool     `yaml:"disabled,omitempty"`
}

// Duration parses either a Go duration string ("5m30s") or a bare number
// of seconds ("300"), the form the original CLI used.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := ParseDuration(value.Value)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// ParseDuration accepts "300" (seconds) or any time.ParseDuration string.
func ParseDuration(s string) (time.Duration, error) {
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return parsed, nil
}

// Load reads and validates a config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks the config for values the daemon would choke on.
func (c *Config) Validate() error {
	switch c.Source {
	case "", "auto", "x11", "dbus":
	default:
		return fmt.Errorf("unknown idle source %q", c.Source)
	}
	if c.Interval < 0 {
		return fmt.Errorf("interval must not be negative")
	}
	for i, t := range c.Timers {
		if t.Duration < 0 {
			return fmt.Errorf("timer %d: duration must not be negative", i)
		}
	}
	return nil
}
