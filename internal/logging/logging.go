package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

const timeFormat = "2006-01-02T15:04:05.000Z07:00"

// Config controls log output. It can be re-applied at runtime.
type Config struct {
	Level   string
	Console bool
	File    FileConfig
}

type FileConfig struct {
	Enabled bool
	Path    string
}

// Service owns the process-wide log sinks. Loggers created from it stay live
// across Apply() calls: Apply swaps the underlying writer and level atomically,
// so a config reload retargets every component logger at once.
type Service struct {
	mu   sync.Mutex
	file *os.File

	out   atomic.Pointer[io.Writer]
	level atomic.Int32 // zerolog.Level
}

// New creates the logging service, applies cfg, and returns the root logger.
func New(cfg Config) (*Service, zerolog.Logger) {
	zerolog.TimeFieldFormat = timeFormat
	zerolog.ErrorFieldName = "err"

	s := &Service{}
	w := newConsoleWriter(os.Stdout)
	s.out.Store(&w)
	s.Apply(cfg)

	root := zerolog.New(writer{s}).With().Timestamp().Logger()
	return s, root
}

// Apply swaps log outputs and level. Safe to call concurrently with logging.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.level.Store(int32(parseLevel(cfg.Level, zerolog.InfoLevel)))

	if s.file != nil {
		_ = s.file.Close()
		s.file = nil
	}

	writers := make([]io.Writer, 0, 2)
	if cfg.Console {
		writers = append(writers, newConsoleWriter(os.Stdout))
	}
	if cfg.File.Enabled {
		path := strings.TrimSpace(cfg.File.Path)
		if path == "" {
			path = "./bvr-chirp.log"
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "logging: failed opening log file %q: %v\n", path, err)
		} else {
			s.file = f
			writers = append(writers, zerolog.SyncWriter(f))
		}
	}
	if len(writers) == 0 {
		writers = append(writers, newConsoleWriter(os.Stdout))
	}

	w := io.Writer(zerolog.MultiLevelWriter(writers...))
	s.out.Store(&w)
}

func (s *Service) Close() error {
	s.mu.Lock()
	f := s.file
	s.file = nil
	s.mu.Unlock()
	if f != nil {
		return f.Close()
	}
	return nil
}

// writer routes log lines through the service so Apply() takes effect without
// rebuilding component loggers.
type writer struct{ svc *Service }

func (w writer) Write(p []byte) (int, error) {
	return w.WriteLevel(zerolog.InfoLevel, p)
}

func (w writer) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < zerolog.Level(w.svc.level.Load()) {
		return len(p), nil
	}
	outp := w.svc.out.Load()
	if outp == nil || *outp == nil {
		return len(p), nil
	}
	out := *outp
	if lw, ok := out.(zerolog.LevelWriter); ok {
		return lw.WriteLevel(level, p)
	}
	return out.Write(p)
}

func newConsoleWriter(w io.Writer) io.Writer {
	return zerolog.ConsoleWriter{Out: w, TimeFormat: timeFormat}
}

func parseLevel(s string, def zerolog.Level) zerolog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO":
		return zerolog.InfoLevel
	case "WARN", "WARNING":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return def
	}
}

// NewConsole creates a standalone console logger for bootstrapping components
// before the full logging service is up.
func NewConsole(level string) zerolog.Logger {
	zerolog.TimeFieldFormat = timeFormat
	zerolog.ErrorFieldName = "err"
	cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: timeFormat}
	return zerolog.New(cw).Level(parseLevel(level, zerolog.InfoLevel)).With().Timestamp().Logger()
}
