package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/diewo77/gst-invoices/internal/config"
)

func TestNewJSONLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput(config.LogConfig{Level: "warn", Format: "json"}, &buf)
	if logger.GetLevel() != logrus.WarnLevel {
		t.Fatalf("level = %s, want warn", logger.GetLevel())
	}
	logger.Info("hidden")
	logger.Warn("shown")
	if strings.Contains(buf.String(), "hidden") {
		t.Fatalf("info should be filtered: %s", buf.String())
	}
	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected json line: %v (%s)", err, buf.String())
	}
	if line["msg"] != "shown" {
		t.Fatalf("msg = %v", line["msg"])
	}
}

func TestNewBadLevelFallsBackToInfo(t *testing.T) {
	logger := NewWithOutput(config.LogConfig{Level: "loud"}, &bytes.Buffer{})
	if logger.GetLevel() != logrus.InfoLevel {
		t.Fatalf("level = %s, want info", logger.GetLevel())
	}
}

func TestLogErrorFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput(config.LogConfig{Level: "debug"}, &buf)
	LogError(WithComponent(logger, "batch"), "Run", "list clients", map[string]int{"n": 1}, errors.New("boom"))

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if line["component"] != "batch" || line["funcName"] != "Run" || line["context"] != "list clients" {
		t.Fatalf("unexpected fields: %v", line)
	}
	if line["msg"] != "boom" || line["level"] != "error" {
		t.Fatalf("unexpected entry: %v", line)
	}
}
