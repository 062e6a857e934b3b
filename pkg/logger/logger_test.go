package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewWithWriter_Level(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		wantDebug bool
	}{
		{name: "debug", level: "debug", wantDebug: true},
		{name: "upper case info", level: "INFO", wantDebug: false},
		{name: "unknown falls back to info", level: "chatty", wantDebug: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := NewWithWriter(&buf, tt.level, "text")
			log.Debug("debug line")
			log.Info("info line")

			if got := strings.Contains(buf.String(), "debug line"); got != tt.wantDebug {
				t.Errorf("debug line logged = %v, want %v (output %q)", got, tt.wantDebug, buf.String())
			}
			if !strings.Contains(buf.String(), "info line") {
				t.Errorf("info line missing from output %q", buf.String())
			}
		})
	}
}

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "info", "json")
	log.Info("dispatched", "channel", "planscape-alerts-dev")

	out := buf.String()
	if !strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Fatalf("expected JSON output, got %q", out)
	}
	if !strings.Contains(out, `"channel":"planscape-alerts-dev"`) {
		t.Errorf("expected channel attribute in %q", out)
	}
}
