package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func writeEvent(t *testing.T, fields map[string]interface{}) string {
	t.Helper()
	var buf bytes.Buffer
	w := NewFixedFormatWriter(&buf)

	data, _ := json.Marshal(fields)
	n, err := w.Write(data)
	if err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if n != len(data) {
		t.Errorf("Write returned %d, want %d", n, len(data))
	}
	return buf.String()
}

func TestFixedFormatWriter_BasicMessage(t *testing.T) {
	line := writeEvent(t, map[string]interface{}{
		"level":     "info",
		"time":      "2026-10-18T09:12:03.114+09:00",
		"component": "service",
		"message":   "Hook installed",
		"state":     "running",
	})

	want := "2026-10-18 09:12:03.114 [INF] [service        ] Hook installed state=running\n"
	if line != want {
		t.Errorf("got  %q\nwant %q", line, want)
	}
}

func TestFixedFormatWriter_NoExtraFields(t *testing.T) {
	line := writeEvent(t, map[string]interface{}{
		"level":   "warn",
		"time":    "2026-10-18T09:12:03Z",
		"message": "Received second signal, forcing exit",
	})

	if !strings.HasSuffix(line, "forcing exit\n") {
		t.Errorf("unexpected trailing content: %q", line)
	}
	if !strings.Contains(line, "[WRN]") {
		t.Errorf("level not found: %q", line)
	}
	if !strings.HasPrefix(line, "2026-10-18 09:12:03.000") {
		t.Errorf("milliseconds not padded: %q", line)
	}
}

func TestFixedFormatWriter_LongComponentTruncated(t *testing.T) {
	line := writeEvent(t, map[string]interface{}{
		"level":     "debug",
		"component": "abcdefghijklmnopqrstu",
		"message":   "x",
	})
	if !strings.Contains(line, "[abcdefghijklmno]") || strings.Contains(line, "abcdefghijklmnop") {
		t.Errorf("component not truncated to %d chars: %q", componentWidth, line)
	}
}

func TestFixedFormatWriter_UnknownLevel(t *testing.T) {
	line := writeEvent(t, map[string]interface{}{"level": "loud", "message": "x"})
	if !strings.Contains(line, "[???]") {
		t.Errorf("expected placeholder level: %q", line)
	}
}

func TestFixedFormatWriter_InvalidJSONPassesThrough(t *testing.T) {
	var buf bytes.Buffer
	w := NewFixedFormatWriter(&buf)

	w.Write([]byte("not json\n"))
	if buf.String() != "not json\n" {
		t.Errorf("expected passthrough, got %q", buf.String())
	}
}

func TestFixedFormatWriter_DropsCaller(t *testing.T) {
	line := writeEvent(t, map[string]interface{}{
		"level":   "info",
		"message": "x",
		"caller":  "store.go:42",
	})
	if strings.Contains(line, "caller") {
		t.Errorf("caller should be dropped: %q", line)
	}
}

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2026-10-18T09:12:03+09:00", "2026-10-18 09:12:03.000"},
		{"2026-10-18T09:12:03.1+09:00", "2026-10-18 09:12:03.100"},
		{"2026-10-18T09:12:03.123456789Z", "2026-10-18 09:12:03.123"},
		{"", strings.Repeat(" ", 23)},
		{"garbage", "garbage" + strings.Repeat(" ", 16)},
	}
	for _, tt := range tests {
		if got := formatTimestamp(tt.in); got != tt.want {
			t.Errorf("formatTimestamp(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatExtra(t *testing.T) {
	got := formatExtra(map[string]interface{}{
		"result":  "other(0x2)",
		"control": "interrogate",
		"error":   "lifecycle state unavailable: poisoned",
		"attempt": 2,
	})
	want := `attempt=2 control=interrogate error="lifecycle state unavailable: poisoned" result=other(0x2)`
	if got != want {
		t.Errorf("got  %q\nwant %q", got, want)
	}

	if formatExtra(nil) != "" {
		t.Error("expected empty string for no fields")
	}
}
