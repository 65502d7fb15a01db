package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// blockingWriter blocks every Write until Unblock is called, like a console
// paused by Quick Edit selection.
type blockingWriter struct {
	mu      sync.Mutex
	buf     bytes.Buffer
	blockCh chan struct{}
}

func newBlockingWriter() *blockingWriter {
	return &blockingWriter{blockCh: make(chan struct{})}
}

func (w *blockingWriter) Write(p []byte) (int, error) {
	<-w.blockCh
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

func (w *blockingWriter) Unblock() { close(w.blockCh) }

func (w *blockingWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

func TestAsyncWriter_DoesNotBlockCaller(t *testing.T) {
	bw := newBlockingWriter()
	aw := newAsyncWriter(bw, 100)

	done := make(chan struct{})
	go func() {
		aw.Write([]byte("hello"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Write blocked on a stalled writer")
	}

	bw.Unblock()
	aw.Close()
	if bw.String() != "hello" {
		t.Errorf("expected %q, got %q", "hello", bw.String())
	}
}

func TestAsyncWriter_DropsWhenBufferFull(t *testing.T) {
	bw := newBlockingWriter()
	aw := newAsyncWriter(bw, 2)
	defer func() {
		bw.Unblock()
		aw.Close()
	}()

	// One message held by drain plus two buffered fills it.
	for i := 0; i < 4; i++ {
		aw.Write([]byte("msg"))
	}

	done := make(chan struct{})
	go func() {
		aw.Write([]byte("overflow"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Write blocked on a full buffer")
	}
}

func TestAsyncWriter_CloseFlushesAndDiscardsLaterWrites(t *testing.T) {
	var buf bytes.Buffer
	aw := newAsyncWriter(&buf, 100)

	aw.Write([]byte("a"))
	aw.Write([]byte("b"))
	aw.Close()
	aw.Close()

	n, err := aw.Write([]byte("after-close"))
	if err != nil || n != len("after-close") {
		t.Errorf("Write after Close = (%d, %v)", n, err)
	}
	if buf.String() != "ab" {
		t.Errorf("expected %q, got %q", "ab", buf.String())
	}
}

func TestInit_WritesFixedFormatFile(t *testing.T) {
	defer Close()
	logFile := filepath.Join(t.TempDir(), "meddler.log")

	if err := Init(Config{Level: "info", FilePath: logFile, Format: FormatFixed}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	log := WithComponent("service")
	log.Info().Str("state", "running").Msg("Hook installed")
	Close()

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	line := string(data)
	if !strings.Contains(line, "[INF] [service        ] Hook installed state=running") {
		t.Errorf("unexpected log line: %q", line)
	}
}

func TestInit_JSONFormat(t *testing.T) {
	defer Close()
	logFile := filepath.Join(t.TempDir(), "meddler.log")

	if err := Init(Config{Level: "info", FilePath: logFile, Format: FormatJSON}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	Info().Msg("json line")
	Close()

	data, _ := os.ReadFile(logFile)
	if !strings.Contains(string(data), `"message":"json line"`) {
		t.Errorf("expected JSON output, got %q", string(data))
	}
}

func TestInit_LevelFilters(t *testing.T) {
	defer Close()
	logFile := filepath.Join(t.TempDir(), "meddler.log")

	if err := Init(Config{Level: "error", FilePath: logFile, Format: FormatJSON}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	Info().Msg("hidden")
	Error().Msg("shown")
	Close()

	data, _ := os.ReadFile(logFile)
	content := string(data)
	if strings.Contains(content, "hidden") {
		t.Error("info message written at error level")
	}
	if !strings.Contains(content, "shown") {
		t.Error("error message missing")
	}
}

func TestInit_ReInitKeepsWriting(t *testing.T) {
	defer Close()
	logFile := filepath.Join(t.TempDir(), "meddler.log")
	cfg := Config{Level: "info", FilePath: logFile, Format: FormatJSON}

	if err := Init(cfg); err != nil {
		t.Fatalf("first Init failed: %v", err)
	}
	Info().Msg("first message")

	if err := Init(cfg); err != nil {
		t.Fatalf("second Init failed: %v", err)
	}
	Info().Msg("second message")
	Close()

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "first message") || !strings.Contains(content, "second message") {
		t.Errorf("expected both messages, got %q", content)
	}
}

func TestSetServiceMode_SuppressesConsole(t *testing.T) {
	defer Close()
	defer SetServiceMode(false)

	origStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w
	defer func() { os.Stdout = origStdout }()

	SetServiceMode(true)
	if err := Init(Config{Level: "info", Console: true}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	Info().Msg("should not appear")
	Close()

	w.Close()
	var buf bytes.Buffer
	buf.ReadFrom(r)
	r.Close()
	if buf.Len() != 0 {
		t.Errorf("expected no console output in service mode, got %q", buf.String())
	}
}

func TestWithComponent_BeforeInitIsSafe(t *testing.T) {
	Close()
	log := WithComponent("control")
	log.Info().Msg("dropped")
}
