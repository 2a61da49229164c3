// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":      slog.LevelInfo,
		"info":  slog.LevelInfo,
		"DEBUG": slog.LevelDebug,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for input, want := range cases {
		got, err := ParseLevel(input)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v, want %v", input, got, err, want)
		}
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Error("ParseLevel accepted verbose")
	}
}

func TestLoggerFormat(t *testing.T) {
	var piped bytes.Buffer
	logger, err := newLogger(&piped, false, "info")
	if err != nil {
		t.Fatal(err)
	}
	logger.Debug("hidden")
	logger.Info("session running", "tick", 3)

	var record map[string]any
	if err := json.Unmarshal(piped.Bytes(), &record); err != nil {
		t.Fatalf("piped output is not one JSON record: %v\n%s", err, piped.String())
	}
	if record["msg"] != "session running" || record["tick"] != float64(3) {
		t.Errorf("record = %v", record)
	}

	var terminal bytes.Buffer
	logger, err = newLogger(&terminal, true, "debug")
	if err != nil {
		t.Fatal(err)
	}
	logger.Debug("visible")
	if !strings.Contains(terminal.String(), "msg=visible") {
		t.Errorf("terminal output = %q, want text handler", terminal.String())
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	valid := filepath.Join(dir, "valid.yaml")
	if err := os.WriteFile(valid, []byte("session:\n  tick_rate: 30\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	invalid := filepath.Join(dir, "invalid.yaml")
	if err := os.WriteFile(invalid, []byte("session:\n  tick_rate: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(valid)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Session.TickRate != 30 {
		t.Errorf("TickRate = %d, want 30", cfg.Session.TickRate)
	}

	if _, err := LoadConfig(invalid); err == nil || !strings.Contains(err.Error(), "session.tick_rate") {
		t.Errorf("LoadConfig(invalid) err = %v", err)
	}

	t.Setenv("PEERSYNC_CONFIG", valid)
	if _, err := LoadConfig(""); err != nil {
		t.Errorf("LoadConfig from PEERSYNC_CONFIG: %v", err)
	}
}
