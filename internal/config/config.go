// Package config loads and saves calo's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Timeouts bounds each external call made by a pipeline run.
type Timeouts struct {
	Transcribe time.Duration `yaml:"transcribe"`
	Extract    time.Duration `yaml:"extract"`
	Lookup     time.Duration `yaml:"lookup"`
	Storage    time.Duration `yaml:"storage"`
}

// Config is the on-disk configuration.
type Config struct {
	APIKey             string   `yaml:"api_key"`
	OpenAIBaseURL      string   `yaml:"openai_base_url"`
	TranscriptionModel string   `yaml:"transcription_model"`
	ExtractionModel    string   `yaml:"extraction_model"`
	FoodDBURL          string   `yaml:"food_db_url"`
	FoodDBPageSize     int      `yaml:"food_db_page_size"`
	DBPath             string   `yaml:"db_path"`
	LogPath            string   `yaml:"log_path"`
	RecordCommand      []string `yaml:"record_command,flow"`
	Timeouts           Timeouts `yaml:"timeouts"`
}

// Default returns the built-in configuration.
func Default() Config {
	dir := Dir()
	return Config{
		OpenAIBaseURL:      "https://api.openai.com/v1",
		TranscriptionModel: "whisper-1",
		ExtractionModel:    "gpt-4o-mini",
		FoodDBURL:          "https://world.openfoodfacts.org",
		FoodDBPageSize:     20,
		DBPath:             filepath.Join(dir, "calo.sqlite"),
		LogPath:            filepath.Join(dir, "calo.log"),
		RecordCommand: []string{
			"ffmpeg", "-hide_banner", "-loglevel", "error",
			"-f", "alsa", "-i", "default",
			"-ac", "1", "-f", "mp3", "-",
		},
		Timeouts: Timeouts{
			Transcribe: 60 * time.Second,
			Extract:    30 * time.Second,
			Lookup:     10 * time.Second,
			Storage:    5 * time.Second,
		},
	}
}

// Dir returns calo's config directory.
func Dir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "calo")
}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Load reads the config at path on top of the defaults. A missing file is
// not an error. Environment variables (optionally from a .env file in the
// working directory) override the file.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	// .env is optional
	_ = godotenv.Load()
	cfg.applyEnv()
	cfg.fillDefaults()
	return cfg, nil
}

// Save writes cfg to path, readable only by the user since it holds the API key.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// SaveAPIKey updates only the api_key of the file at path, keeping every
// other setting as stored. Env overrides are not written back.
func SaveAPIKey(path, key string) error {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.APIKey = key
	return Save(path, cfg)
}

func (c *Config) applyEnv() {
	if v := os.Getenv("CALO_API_KEY"); v != "" {
		c.APIKey = v
	} else if c.APIKey == "" {
		c.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if v := os.Getenv("CALO_DB_PATH"); v != "" {
		c.DBPath = v
	}
}

func (c *Config) fillDefaults() {
	def := Default()
	if c.OpenAIBaseURL == "" {
		c.OpenAIBaseURL = def.OpenAIBaseURL
	}
	if c.TranscriptionModel == "" {
		c.TranscriptionModel = def.TranscriptionModel
	}
	if c.ExtractionModel == "" {
		c.ExtractionModel = def.ExtractionModel
	}
	if c.FoodDBURL == "" {
		c.FoodDBURL = def.FoodDBURL
	}
	if c.FoodDBPageSize <= 0 {
		c.FoodDBPageSize = def.FoodDBPageSize
	}
	if c.DBPath == "" {
		c.DBPath = def.DBPath
	}
	if len(c.RecordCommand) == 0 {
		c.RecordCommand = def.RecordCommand
	}
	if c.Timeouts.Transcribe <= 0 {
		c.Timeouts.Transcribe = def.Timeouts.Transcribe
	}
	if c.Timeouts.Extract <= 0 {
		c.Timeouts.Extract = def.Timeouts.Extract
	}
	if c.Timeouts.Lookup <= 0 {
		c.Timeouts.Lookup = def.Timeouts.Lookup
	}
	if c.Timeouts.Storage <= 0 {
		c.Timeouts.Storage = def.Timeouts.Storage
	}
}
