package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"testing"
)

func TestSetupWritesCanonicalKeys(t *testing.T) {
	var buf bytes.Buffer
	logger, closer := SetupWithOptions("swtd", "test", Options{Output: &buf, Level: slog.LevelDebug})
	defer closer.Close()

	logger.Info("operation executed", slog.String("operation", "wrap"), MaskField("token", "secret"))

	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	for _, key := range []string{"timestamp", "severity", "message", "service", "env"} {
		if _, ok := line[key]; !ok {
			t.Fatalf("missing key %q in %v", key, line)
		}
	}
	if line["severity"] != "INFO" || line["service"] != "swtd" || line["operation"] != "wrap" {
		t.Fatalf("unexpected line %v", line)
	}
	if line["token"] != RedactedValue {
		t.Fatalf("token must be redacted, got %v", line["token"])
	}
}

func TestSetupRotatingFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "swtd.log")
	logger, closer := SetupWithOptions("swtd", "", Options{Output: &buf, File: path})
	logger.Warn("rotating")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatalf("stdout copy missing")
	}
}

func TestMaskField(t *testing.T) {
	if attr := MaskField("passphrase", "hunter2"); attr.Value.String() != RedactedValue {
		t.Fatalf("expected redaction, got %v", attr.Value)
	}
	if attr := MaskField("operation", "wrap"); attr.Value.String() != "wrap" {
		t.Fatalf("allowlisted key must pass through, got %v", attr.Value)
	}
	if attr := MaskField("passphrase", " "); attr.Value.String() != " " {
		t.Fatalf("empty values stay untouched")
	}
	if ParseLevel("WARN") != slog.LevelWarn || ParseLevel("bogus") != slog.LevelInfo {
		t.Fatalf("unexpected level parsing")
	}
}
