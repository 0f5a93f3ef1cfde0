// Package config loads the YAML settings file and applies environment
// overrides. All knobs have working defaults so the app runs with no
// config file at all.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"dikta/hotkey"
	"dikta/model"
)

type HotkeyConfig struct {
	Start       string `yaml:"start"`
	Stop        string `yaml:"stop"`
	AutoSend    string `yaml:"auto_send"`
	Cancel      string `yaml:"cancel"`
	ModelSelect string `yaml:"model_select"`
}

type AudioConfig struct {
	Device         string `yaml:"device"`
	MaxDurationSec int    `yaml:"max_duration_sec"`
	Beeps          bool   `yaml:"beeps"`
}

type ProviderConfig struct {
	Name     string `yaml:"name"` // groq, openai, whisper-cpp
	APIKey   string `yaml:"api_key"`
	APIURL   string `yaml:"api_url"`
	Language string `yaml:"language"`
}

type Config struct {
	Model     string         `yaml:"model"`
	Models    []string       `yaml:"models"` // model-select cycles through these
	Provider  ProviderConfig `yaml:"provider"`
	Hotkeys   HotkeyConfig   `yaml:"hotkeys"`
	Audio     AudioConfig    `yaml:"audio"`
	AutoPaste bool           `yaml:"auto_paste"`
	ModelDir  string         `yaml:"model_dir"`
	LogDir    string         `yaml:"log_dir"`
}

func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		Model:  "base",
		Models: []string{"tiny", "base", "small"},
		Provider: ProviderConfig{
			Name:     "", // empty picks by available API keys
			Language: "auto",
		},
		Hotkeys: defaultHotkeys(),
		Audio: AudioConfig{
			MaxDurationSec: 120,
			Beeps:          true,
		},
		AutoPaste: true,
		ModelDir:  filepath.Join(home, ".dikta", "models"),
		LogDir:    filepath.Join(home, ".dikta", "logs"),
	}
}

// defaultHotkeys picks chords the platform backend can deliver. Raw evdev
// on Linux sees every key, so bare modifiers work as chords. The global
// hotkey API elsewhere registers full combinations only, so each chord
// needs a non-modifier key.
func defaultHotkeys() HotkeyConfig {
	if runtime.GOOS == "linux" {
		return HotkeyConfig{
			Start:       "ctrl+win",
			Stop:        "ctrl",
			AutoSend:    "win",
			Cancel:      "esc",
			ModelSelect: "ctrl+m",
		}
	}
	return HotkeyConfig{
		Start:       "ctrl+shift+space",
		Stop:        "ctrl+shift+s",
		AutoSend:    "ctrl+shift+enter",
		Cancel:      "esc",
		ModelSelect: "ctrl+shift+m",
	}
}

// DefaultPath returns the conventional config file location. The file is
// optional.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".dikta", "config.yaml")
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) && path == DefaultPath() {
				// No config file is fine when we were not pointed at one.
				applyEnvOverrides(&cfg)
				return cfg, validate(&cfg)
			}
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.Model, "DIKTA_MODEL")
	overrideString(&cfg.Provider.Name, "DIKTA_PROVIDER")
	overrideString(&cfg.Provider.APIKey, "DIKTA_API_KEY")
	overrideString(&cfg.Provider.APIURL, "DIKTA_API_URL")
	overrideString(&cfg.Provider.Language, "DIKTA_LANGUAGE")
	overrideString(&cfg.Audio.Device, "DIKTA_DEVICE")
	overrideInt(&cfg.Audio.MaxDurationSec, "DIKTA_MAX_DURATION_SEC")
	overrideBool(&cfg.AutoPaste, "DIKTA_AUTO_PASTE")
	overrideString(&cfg.ModelDir, "DIKTA_MODEL_DIR")
	overrideString(&cfg.LogDir, "DIKTA_LOG_DIR")

	// Provider API keys fall through to the conventional variables.
	if cfg.Provider.APIKey == "" {
		switch cfg.Provider.Name {
		case "groq":
			cfg.Provider.APIKey = os.Getenv("GROQ_API_KEY")
		case "openai":
			cfg.Provider.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func validate(cfg *Config) error {
	if _, ok := model.Lookup(cfg.Model); !ok {
		return fmt.Errorf("unknown model %q (have %v)", cfg.Model, model.IDs())
	}
	for _, id := range cfg.Models {
		if _, ok := model.Lookup(id); !ok {
			return fmt.Errorf("unknown model %q in models list", id)
		}
	}
	switch cfg.Provider.Name {
	case "", "groq", "openai", "whisper-cpp":
	default:
		return fmt.Errorf("provider.name must be one of groq|openai|whisper-cpp, got %q", cfg.Provider.Name)
	}
	if cfg.Audio.MaxDurationSec <= 0 {
		return fmt.Errorf("audio.max_duration_sec must be positive")
	}
	for name, raw := range map[string]string{
		"start":        cfg.Hotkeys.Start,
		"stop":         cfg.Hotkeys.Stop,
		"auto_send":    cfg.Hotkeys.AutoSend,
		"cancel":       cfg.Hotkeys.Cancel,
		"model_select": cfg.Hotkeys.ModelSelect,
	} {
		if raw == "" {
			return fmt.Errorf("hotkeys.%s must not be empty", name)
		}
		if _, err := hotkey.ParseChord(raw); err != nil {
			return fmt.Errorf("hotkeys.%s: %w", name, err)
		}
	}
	return nil
}

// Bindings parses the configured chords into arming-monitor bindings.
// Load has already validated them.
func (c Config) Bindings() []hotkey.Binding {
	parse := func(raw string) hotkey.Chord {
		chord, _ := hotkey.ParseChord(raw)
		return chord
	}
	return []hotkey.Binding{
		{Trigger: hotkey.TriggerStart, Chord: parse(c.Hotkeys.Start)},
		{Trigger: hotkey.TriggerStop, Chord: parse(c.Hotkeys.Stop)},
		{Trigger: hotkey.TriggerAutoSend, Chord: parse(c.Hotkeys.AutoSend)},
		{Trigger: hotkey.TriggerCancel, Chord: parse(c.Hotkeys.Cancel)},
		{Trigger: hotkey.TriggerModelSelect, Chord: parse(c.Hotkeys.ModelSelect)},
	}
}
