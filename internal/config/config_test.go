package config

import (
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Service.BaseURL != "http://127.0.0.1:8023" {
		t.Errorf("unexpected default base URL: %s", cfg.Service.BaseURL)
	}
	if cfg.Service.PollIntervalMs != 400 {
		t.Errorf("unexpected poll interval: %d", cfg.Service.PollIntervalMs)
	}
	if cfg.Editor.ZoomMin != 0.5 || cfg.Editor.ZoomMax != 4 {
		t.Errorf("unexpected zoom bounds: %v-%v", cfg.Editor.ZoomMin, cfg.Editor.ZoomMax)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config must validate: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty base URL", func(c *Config) { c.Service.BaseURL = "" }},
		{"tiny poll interval", func(c *Config) { c.Service.PollIntervalMs = 10 }},
		{"inverted zoom bounds", func(c *Config) { c.Editor.ZoomMin = 3; c.Editor.ZoomMax = 1 }},
		{"zero zoom step", func(c *Config) { c.Editor.ZoomStep = 0 }},
		{"zero min region", func(c *Config) { c.Editor.MinRegionPx = 0 }},
		{"unknown detect backend", func(c *Config) { c.Detect.Backend = "opencv" }},
	}

	for _, tc := range cases {
		cfg := Default()
		tc.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := Default()
	cfg.Editor.ZoomStep = 0.25
	cfg.Service.PollIntervalMs = 250
	if err := cfg.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile: %v", err)
	}

	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if loaded.Editor.ZoomStep != 0.25 {
		t.Errorf("zoom step not preserved: %v", loaded.Editor.ZoomStep)
	}
	if loaded.Service.PollIntervalMs != 250 {
		t.Errorf("poll interval not preserved: %v", loaded.Service.PollIntervalMs)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
