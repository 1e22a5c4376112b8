package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

const validConfig = `
alert_endpoint: http://nvr.local:81
mqtt:
  host: broker.local
  port: 1883
  topic: bvr_chirp/alerts
  device_id: chirp-1
`

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func newTestManager(t *testing.T) (*Manager, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, validConfig)
	m, err := NewManager(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m, path
}

func TestManagerReload(t *testing.T) {
	t.Parallel()

	m, path := newTestManager(t)
	sub := m.Subscribe()

	writeConfig(t, path, validConfig+"logging:\n  level: DEBUG\n")
	m.reload()

	if got := m.Current().Logging.Level; got != "DEBUG" {
		t.Fatalf("Logging.Level = %q, want DEBUG", got)
	}
	select {
	case cfg := <-sub:
		if cfg.Logging.Level != "DEBUG" {
			t.Fatalf("subscriber got level %q", cfg.Logging.Level)
		}
	default:
		t.Fatal("subscriber did not receive reloaded config")
	}
}

func TestManagerReloadKeepsPreviousOnInvalidConfig(t *testing.T) {
	t.Parallel()

	m, path := newTestManager(t)
	before := m.Current()

	writeConfig(t, path, "mqtt: [broken\n")
	m.reload()

	if m.Current() != before {
		t.Fatal("invalid reload replaced the active config")
	}
}

func TestManagerReloadSkipsUnchangedContent(t *testing.T) {
	t.Parallel()

	m, path := newTestManager(t)
	sub := m.Subscribe()

	writeConfig(t, path, validConfig)
	m.reload()

	select {
	case <-sub:
		t.Fatal("unchanged content was republished")
	default:
	}
}

func TestManagerSubscriberLagDropsStaleUpdate(t *testing.T) {
	t.Parallel()

	m, path := newTestManager(t)
	sub := m.Subscribe()

	writeConfig(t, path, validConfig+"logging:\n  level: DEBUG\n")
	m.reload()
	writeConfig(t, path, validConfig+"logging:\n  level: ERROR\n")
	m.reload()

	cfg := <-sub
	if cfg.Logging.Level != "ERROR" {
		t.Fatalf("lagging subscriber got level %q, want newest ERROR", cfg.Logging.Level)
	}
	select {
	case cfg := <-sub:
		t.Fatalf("stale update still queued: %q", cfg.Logging.Level)
	default:
	}
}
