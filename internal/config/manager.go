package config

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const debounceWindow = 300 * time.Millisecond

// Manager holds the current config and republishes it when the file changes
// on disk. Reload is best-effort: a broken edit is logged and the last good
// config stays active.
type Manager struct {
	path string
	log  zerolog.Logger

	mu       sync.RWMutex
	current  *Config
	lastHash [32]byte
	subs     []chan *Config
}

func NewManager(path string, log zerolog.Logger) (*Manager, error) {
	m := &Manager{
		path: path,
		log:  log.With().Str("component", "config").Logger(),
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(path, data)
	if err != nil {
		return nil, err
	}
	m.current = cfg
	m.lastHash = sha256.Sum256(data)
	return m, nil
}

// Current returns the active config. Callers must not mutate it.
func (m *Manager) Current() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Subscribe returns a channel receiving each successfully reloaded config.
// The channel is buffered; if a subscriber lags, the stale update is dropped
// in favor of the newest one.
func (m *Manager) Subscribe() <-chan *Config {
	ch := make(chan *Config, 1)
	m.mu.Lock()
	m.subs = append(m.subs, ch)
	m.mu.Unlock()
	return ch
}

// Watch blocks, watching the config file's directory until ctx is canceled.
// Watching the directory instead of the file survives editors that replace
// the file by rename.
func (m *Manager) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watcher: %w", err)
	}
	defer w.Close()

	dir := filepath.Dir(m.path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("config watcher add %q: %w", dir, err)
	}
	m.log.Debug().Str("path", m.path).Msg("watching config")

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return fmt.Errorf("config watcher closed")
			}
			if filepath.Clean(ev.Name) != filepath.Clean(m.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			// Debounce editor write bursts.
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
			} else {
				timer.Reset(debounceWindow)
			}
			timerCh = timer.C
		case err, ok := <-w.Errors:
			if !ok {
				return fmt.Errorf("config watcher closed")
			}
			m.log.Warn().Err(err).Msg("config watcher error")
		case <-timerCh:
			timerCh = nil
			m.reload()
		}
	}
}

func (m *Manager) reload() {
	data, err := os.ReadFile(m.path)
	if err != nil {
		m.log.Error().Err(err).Msg("config reload: read failed, keeping previous config")
		return
	}
	hash := sha256.Sum256(data)

	m.mu.Lock()
	if hash == m.lastHash {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	cfg, err := Parse(m.path, data)
	if err != nil {
		m.log.Error().Err(err).Msg("config reload: invalid config, keeping previous config")
		return
	}

	m.mu.Lock()
	m.current = cfg
	m.lastHash = hash
	subs := make([]chan *Config, len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()

	m.log.Info().Msg("config reloaded")
	for _, ch := range subs {
		select {
		case ch <- cfg:
		default:
			// Drop the stale queued update so the subscriber sees the newest.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- cfg:
			default:
			}
		}
	}
}
