package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model != "base" {
		t.Errorf("default model = %q, want base", cfg.Model)
	}
	if cfg.Hotkeys.Start != defaultHotkeys().Start {
		t.Errorf("default start chord = %q", cfg.Hotkeys.Start)
	}
	if !cfg.AutoPaste {
		t.Error("auto_paste should default on")
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
model: small
provider:
  name: whisper-cpp
hotkeys:
  start: ctrl+shift
audio:
  max_duration_sec: 30
auto_paste: false
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model != "small" {
		t.Errorf("model = %q, want small", cfg.Model)
	}
	if cfg.Provider.Name != "whisper-cpp" {
		t.Errorf("provider = %q", cfg.Provider.Name)
	}
	if cfg.Hotkeys.Start != "ctrl+shift" {
		t.Errorf("start chord = %q", cfg.Hotkeys.Start)
	}
	if cfg.Hotkeys.Stop != defaultHotkeys().Stop {
		t.Errorf("stop chord lost its default: %q", cfg.Hotkeys.Stop)
	}
	if cfg.Audio.MaxDurationSec != 30 {
		t.Errorf("max duration = %d", cfg.Audio.MaxDurationSec)
	}
	if cfg.AutoPaste {
		t.Error("auto_paste should be off")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DIKTA_MODEL", "tiny")
	t.Setenv("DIKTA_PROVIDER", "groq")
	t.Setenv("GROQ_API_KEY", "gsk_test")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model != "tiny" {
		t.Errorf("model = %q, want tiny", cfg.Model)
	}
	if cfg.Provider.APIKey != "gsk_test" {
		t.Errorf("api key not picked up from GROQ_API_KEY")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"unknown model", "model: enormous\n"},
		{"unknown provider", "provider:\n  name: siri\n"},
		{"bad chord", "hotkeys:\n  start: ctrl+bogus\n"},
		{"zero duration", "audio:\n  max_duration_sec: 0\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.body)); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config path")
	}
}

func TestBindings(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	bindings := cfg.Bindings()
	if len(bindings) != 5 {
		t.Fatalf("got %d bindings, want 5", len(bindings))
	}
	for _, b := range bindings {
		if len(b.Chord) == 0 {
			t.Errorf("trigger %v has empty chord", b.Trigger)
		}
	}
}
