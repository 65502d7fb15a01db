// Package logger provides structured logging with file rotation support.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// asyncWriter makes console writes non-blocking. A console whose output is
// paused (Windows Quick Edit selection) would otherwise stall every log call,
// including ones made from the service control handler. Messages that do not
// fit in the buffer are dropped.
type asyncWriter struct {
	ch     chan []byte
	w      io.Writer
	done   chan struct{}
	once   sync.Once
	mu     sync.RWMutex
	closed bool
}

func newAsyncWriter(w io.Writer, bufSize int) *asyncWriter {
	aw := &asyncWriter{
		ch:   make(chan []byte, bufSize),
		w:    w,
		done: make(chan struct{}),
	}
	go aw.drain()
	return aw
}

func (aw *asyncWriter) Write(p []byte) (int, error) {
	aw.mu.RLock()
	defer aw.mu.RUnlock()

	if aw.closed {
		return len(p), nil
	}
	cp := make([]byte, len(p))
	copy(cp, p)
	select {
	case aw.ch <- cp:
	default:
	}
	return len(p), nil
}

func (aw *asyncWriter) drain() {
	defer close(aw.done)
	for p := range aw.ch {
		aw.w.Write(p)
	}
}

// Close flushes buffered messages and stops the drain goroutine.
func (aw *asyncWriter) Close() error {
	aw.once.Do(func() {
		aw.mu.Lock()
		aw.closed = true
		aw.mu.Unlock()
		close(aw.ch)
		<-aw.done
	})
	return nil
}

// Output formats for the log file.
const (
	FormatJSON  = "json"
	FormatFixed = "fixed"
)

// Config holds the logger configuration.
type Config struct {
	Level      string `json:"Level"`
	FilePath   string `json:"FilePath"`
	MaxSizeMB  int    `json:"MaxSizeMB"`
	MaxBackups int    `json:"MaxBackups"`
	MaxAgeDays int    `json:"MaxAgeDays"`
	Compress   bool   `json:"Compress"`
	Console    bool   `json:"Console"`
	Format     string `json:"Format"` // "json" or "fixed"
}

// DefaultConfig returns sensible defaults for logging.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		FilePath:   "log/Meddler/meddler.log",
		MaxSizeMB:  10,
		MaxBackups: 5,
		MaxAgeDays: 30,
		Compress:   true,
		Console:    false,
		Format:     FormatFixed,
	}
}

var (
	mu          sync.Mutex
	serviceMode bool
	closers     []io.Closer

	current atomic.Pointer[zerolog.Logger]
)

func init() {
	nop := zerolog.Nop()
	current.Store(&nop)
}

// SetServiceMode suppresses console output. A service started by the SCM has
// no console, and writes to its invalid stdout handle would fail.
func SetServiceMode(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	serviceMode = enabled
}

// Init (re)initializes the global logger. Writers from a previous Init are
// closed, so Init can be called again on hot reload.
func Init(cfg Config) error {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	mu.Lock()
	defer mu.Unlock()

	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	for _, c := range closers {
		c.Close()
	}
	closers = nil

	var writers []io.Writer

	if cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
			return err
		}

		fileWriter := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		closers = append(closers, fileWriter)

		if strings.EqualFold(cfg.Format, FormatFixed) {
			writers = append(writers, NewFixedFormatWriter(fileWriter))
		} else {
			writers = append(writers, fileWriter)
		}
	}

	if cfg.Console && !serviceMode {
		aw := newAsyncWriter(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}, 1000)
		closers = append(closers, aw)
		writers = append(writers, aw)
	}

	var output io.Writer
	switch len(writers) {
	case 0:
		if serviceMode {
			output = io.Discard
		} else {
			output = os.Stdout
		}
	case 1:
		output = writers[0]
	default:
		output = zerolog.MultiLevelWriter(writers...)
	}

	l := zerolog.New(output).With().Timestamp().Logger()
	current.Store(&l)
	return nil
}

// Close flushes and closes the writers opened by Init.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	for _, c := range closers {
		c.Close()
	}
	closers = nil
	nop := zerolog.Nop()
	current.Store(&nop)
}

// Logger returns the global logger instance.
func Logger() *zerolog.Logger {
	return current.Load()
}

// Info logs an info message.
func Info() *zerolog.Event {
	return current.Load().Info()
}

// Error logs an error message.
func Error() *zerolog.Event {
	return current.Load().Error()
}

// WithComponent returns a logger with component field.
func WithComponent(component string) zerolog.Logger {
	return current.Load().With().Str("component", component).Logger()
}
