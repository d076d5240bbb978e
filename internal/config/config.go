package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds the application configuration
type Config struct {
	Service ServiceConfig `json:"service"`
	Editor  EditorConfig  `json:"editor"`
	Media   MediaConfig   `json:"media"`
	Detect  DetectConfig  `json:"detect"`
}

// ServiceConfig holds connection settings for the local compute service
type ServiceConfig struct {
	BaseURL        string `json:"base_url"`
	RequestTimeout int    `json:"request_timeout_seconds"`
	PollIntervalMs int    `json:"poll_interval_ms"`
}

// EditorConfig holds tuning constants for the region editor.
// Zoom bounds and step are presentation choices, not protocol requirements,
// so they live here rather than in code.
type EditorConfig struct {
	ZoomMin     float64 `json:"zoom_min"`
	ZoomMax     float64 `json:"zoom_max"`
	ZoomStep    float64 `json:"zoom_step"`
	MinCommitPx float64 `json:"min_commit_px"`
	MinRegionPx float64 `json:"min_region_px"`
	HandlePx    float64 `json:"handle_px"`
}

// MediaConfig holds settings for media probing and thumbnails
type MediaConfig struct {
	ThumbnailSize int    `json:"thumbnail_size"`
	CacheDir      string `json:"cache_dir"`
}

// DetectConfig holds face detection backend settings
type DetectConfig struct {
	Backend     string `json:"backend"`
	OllamaURL   string `json:"ollama_url"`
	OllamaModel string `json:"ollama_model"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Service: ServiceConfig{
			BaseURL:        "http://127.0.0.1:8023",
			RequestTimeout: 300,
			PollIntervalMs: 400,
		},
		Editor: EditorConfig{
			ZoomMin:     0.5,
			ZoomMax:     4,
			ZoomStep:    0.1,
			MinCommitPx: 4,
			MinRegionPx: 8,
			HandlePx:    10,
		},
		Media: MediaConfig{
			ThumbnailSize: 256,
			CacheDir:      defaultCacheDir(),
		},
		Detect: DetectConfig{
			Backend:     "service",
			OllamaURL:   "http://localhost:11434",
			OllamaModel: "openbmb/minicpm-v4.5",
		},
	}
}

// LoadFromFile loads configuration from a JSON file
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Service.BaseURL == "" {
		return fmt.Errorf("service.base_url cannot be empty")
	}

	if c.Service.PollIntervalMs < 50 {
		return fmt.Errorf("service.poll_interval_ms must be at least 50")
	}

	if c.Editor.ZoomMin <= 0 || c.Editor.ZoomMax < c.Editor.ZoomMin {
		return fmt.Errorf("editor zoom bounds must satisfy 0 < zoom_min <= zoom_max")
	}

	if c.Editor.ZoomStep <= 0 {
		return fmt.Errorf("editor.zoom_step must be positive")
	}

	if c.Editor.MinCommitPx < 0 || c.Editor.MinRegionPx <= 0 {
		return fmt.Errorf("editor minimum sizes must be positive")
	}

	if c.Media.ThumbnailSize < 16 {
		return fmt.Errorf("media.thumbnail_size must be at least 16")
	}

	switch c.Detect.Backend {
	case "service", "ollama":
	default:
		return fmt.Errorf("detect.backend must be 'service' or 'ollama'")
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "mirrorkit", "config.json")
}

func defaultCacheDir() string {
	cache, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "mirrorkit")
	}
	return filepath.Join(cache, "mirrorkit")
}
