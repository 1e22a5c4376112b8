package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// Load reads, decodes, and validates the config file at path. Unknown fields
// are rejected so typos fail loudly instead of silently disabling features.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(path, data)
}

// Parse decodes raw config bytes. The path is only used to pick the format by
// extension.
func Parse(path string, data []byte) (*Config, error) {
	j, err := coerceToJSONBytes(path, data)
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg := Default()
	dec := json.NewDecoder(bytes.NewReader(j))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field consistency. Destination credential problems are
// not checked here: a destination that fails to initialize is skipped at
// startup without affecting the others.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.AlertEndpoint) == "" {
		return fmt.Errorf("config: alert_endpoint is required")
	}
	if strings.TrimSpace(c.MQTT.Host) == "" {
		return fmt.Errorf("config: mqtt.host is required")
	}
	if c.MQTT.Port <= 0 || c.MQTT.Port > 65535 {
		return fmt.Errorf("config: mqtt.port %d out of range", c.MQTT.Port)
	}
	if strings.TrimSpace(c.MQTT.Topic) == "" {
		return fmt.Errorf("config: mqtt.topic is required")
	}
	if c.Delivery.QueueSize < 0 {
		return fmt.Errorf("config: delivery.queue_size must be >= 0")
	}
	if c.Delivery.RatePerSec < 0 {
		return fmt.Errorf("config: delivery.rate_per_sec must be >= 0")
	}
	for _, d := range []struct {
		name, val string
	}{
		{"mqtt.keep_alive", c.MQTT.KeepAlive},
		{"delivery.send_timeout", c.Delivery.SendTimeout},
		{"slack.settle_delay", c.Slack.SettleDelay},
	} {
		if _, err := ParseDuration(d.val, 0); err != nil {
			return fmt.Errorf("config: %s: %w", d.name, err)
		}
	}
	if c.History != nil {
		if c.History.Driver != "" && c.History.Driver != "sqlite" {
			return fmt.Errorf("config: history.driver %q unsupported", c.History.Driver)
		}
		if strings.TrimSpace(c.History.Path) == "" {
			return fmt.Errorf("config: history.path is required when history is set")
		}
	}
	return nil
}

// ParseDuration parses a duration string, returning def when s is empty.
func ParseDuration(s string, def time.Duration) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", s)
	}
	return d, nil
}

// DurationOr is ParseDuration for already-validated config values.
func DurationOr(s string, def time.Duration) time.Duration {
	d, err := ParseDuration(s, def)
	if err != nil {
		return def
	}
	return d
}
