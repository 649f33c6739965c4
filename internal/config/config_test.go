package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.TTS.URL != "http://127.0.0.1:8880/v1" {
		t.Errorf("unexpected tts url: %s", cfg.TTS.URL)
	}
	if cfg.TTS.VoiceID != "af_bella" {
		t.Errorf("unexpected voice: %s", cfg.TTS.VoiceID)
	}
	if cfg.TTS.Rate != 24000 {
		t.Errorf("unexpected rate: %d", cfg.TTS.Rate)
	}
	if cfg.Speak.SilenceRate != 0 {
		t.Errorf("unexpected silence rate: %d", cfg.Speak.SilenceRate)
	}
	if !cfg.Redis.Enabled {
		t.Error("expected redis enabled by default")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "speakd.yaml")
	data := []byte(`
tts:
  voice_id: am_adam
  rate: 48000
speak:
  silence_rate: 2
redis:
  enabled: false
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.TTS.VoiceID != "am_adam" {
		t.Errorf("expected am_adam, got %s", cfg.TTS.VoiceID)
	}
	if cfg.TTS.Rate != 48000 {
		t.Errorf("expected 48000, got %d", cfg.TTS.Rate)
	}
	if cfg.Speak.SilenceRate != 2 {
		t.Errorf("expected silence_rate 2, got %d", cfg.Speak.SilenceRate)
	}
	if cfg.Redis.Enabled {
		t.Error("expected redis disabled")
	}
	// Untouched keys keep defaults.
	if cfg.TTS.ModelID != "kokoro" {
		t.Errorf("expected default model, got %s", cfg.TTS.ModelID)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/speakd.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty url", func(c *Config) { c.TTS.URL = "" }},
		{"zero rate", func(c *Config) { c.TTS.Rate = 0 }},
		{"negative silence rate", func(c *Config) { c.Speak.SilenceRate = -1 }},
		{"bad web port", func(c *Config) { c.Web.Port = 70000 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			if err != nil {
				t.Fatal(err)
			}
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
