package internal

import (
	"os"
	"path/filepath"
	"testing"
)

// TestLoadConfigDefaults tests that the default values are applied correctly when loading a config.
func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.yaml")
	if err := os.WriteFile(path, []byte("{}\n"), 0o600); err != nil {
		t.Fatalf("write app config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.AppConfig.Server.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.AppConfig.Server.Port)
	}
	if cfg.AppConfig.Intake.Path != "/events" {
		t.Fatalf("expected default intake path, got %q", cfg.AppConfig.Intake.Path)
	}
	if cfg.AppConfig.Intake.Topic != "events.raw" {
		t.Fatalf("expected default intake topic, got %q", cfg.AppConfig.Intake.Topic)
	}
	if cfg.AppConfig.Pipeline.Topic != "events.raw" {
		t.Fatalf("expected pipeline topic to follow intake, got %q", cfg.AppConfig.Pipeline.Topic)
	}
	if cfg.AppConfig.Pipeline.Concurrency != 4 {
		t.Fatalf("expected default concurrency 4, got %d", cfg.AppConfig.Pipeline.Concurrency)
	}
	if cfg.AppConfig.Watermill.Driver != "gochannel" {
		t.Fatalf("expected default watermill driver, got %q", cfg.AppConfig.Watermill.Driver)
	}
	if cfg.AppConfig.Watermill.GoChannel.OutputChannelBuffer != 64 {
		t.Fatalf("expected default gochannel output buffer, got %d", cfg.AppConfig.Watermill.GoChannel.OutputChannelBuffer)
	}
	if cfg.AppConfig.Watermill.HTTP.Mode != "topic_url" {
		t.Fatalf("expected default http mode topic_url, got %q", cfg.AppConfig.Watermill.HTTP.Mode)
	}
	if cfg.AppConfig.Storage.Table != "eventpipe_alerts" {
		t.Fatalf("expected default storage table, got %q", cfg.AppConfig.Storage.Table)
	}
}

// TestLoadConfigInvalidRule tests that loading a config with an invalid rule returns an error.
func TestLoadConfigInvalidRule(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.yaml")
	body := "rules:\n  - when: \"\"\n    emit: some.topic\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write app config: %v", err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected error for rule without when")
	}
}

// TestLoadConfigEmitForms tests that emit accepts both a scalar and a list.
func TestLoadConfigEmitForms(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.yaml")
	body := `rules:
  - when: "level > 5"
    emit: alerts.high
  - when: "level > 9"
    emit:
      - alerts.critical
      - alerts.audit
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write app config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if len(cfg.Rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(cfg.Rules))
	}
	if len(cfg.Rules[0].Emit) != 1 || cfg.Rules[0].Emit[0] != "alerts.high" {
		t.Fatalf("unexpected scalar emit: %v", cfg.Rules[0].Emit)
	}
	if len(cfg.Rules[1].Emit) != 2 {
		t.Fatalf("unexpected list emit: %v", cfg.Rules[1].Emit)
	}
}

// TestLoadConfigExpandsEnv tests that environment variables are expanded in the config file.
func TestLoadConfigExpandsEnv(t *testing.T) {
	t.Setenv("EVENTPIPE_TEST_TOPIC", "events.env")

	dir := t.TempDir()
	path := filepath.Join(dir, "app.yaml")
	body := "intake:\n  topic: ${EVENTPIPE_TEST_TOPIC}\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write app config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Intake.Topic != "events.env" {
		t.Fatalf("expected env-expanded topic, got %q", cfg.Intake.Topic)
	}
}
