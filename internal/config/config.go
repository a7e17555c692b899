// Package config loads pad-chat settings from defaults, an optional TOML
// file and PAD_CHAT_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v10"

	"github.com/RichardoC/pad-chat/internal/api"
	"github.com/RichardoC/pad-chat/internal/db"
)

const (
	EnvPrefix = "PAD_CHAT_"

	DefaultBaseURL    = "https://api.mapleai.de/v1"
	DefaultModel      = "gpt-5-chat"
	DefaultTitleModel = "mixtral-8x7b-instruct"
)

type Config struct {
	API    APIConfig    `toml:"api" envPrefix:"API_"`
	Store  StoreConfig  `toml:"store" envPrefix:"STORE_"`
	Upload UploadConfig `toml:"upload" envPrefix:"UPLOAD_"`
	UI     UIConfig     `toml:"ui" envPrefix:"UI_"`
}

type APIConfig struct {
	BaseURL        string        `toml:"base_url" env:"BASE_URL"`
	Model          string        `toml:"model" env:"MODEL"`
	TitleModel     string        `toml:"title_model" env:"TITLE_MODEL"`
	Timeout        time.Duration `toml:"timeout" env:"TIMEOUT"`
	GenerateTitles bool          `toml:"generate_titles" env:"GENERATE_TITLES"`
}

type StoreConfig struct {
	Driver string `toml:"driver" env:"DRIVER"`
	Path   string `toml:"path" env:"PATH"`
}

type UploadConfig struct {
	// URL is where the client posts attachments.
	URL       string `toml:"url" env:"URL"`
	Listen    string `toml:"listen" env:"LISTEN"`
	Dir       string `toml:"dir" env:"DIR"`
	PublicURL string `toml:"public_url" env:"PUBLIC_URL"`
	MaxBytes  int64  `toml:"max_bytes" env:"MAX_BYTES"`
}

type UIConfig struct {
	Width int    `toml:"width" env:"WIDTH"`
	Style string `toml:"style" env:"STYLE"`
}

// Dir returns ~/.pad-chat.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to find home directory: %w", err)
	}
	return filepath.Join(home, ".pad-chat"), nil
}

// Default returns the built-in settings. Paths are rooted at dir.
func Default(dir string) *Config {
	return &Config{
		API: APIConfig{
			BaseURL:        DefaultBaseURL,
			Model:          DefaultModel,
			TitleModel:     DefaultTitleModel,
			Timeout:        30 * time.Second,
			GenerateTitles: true,
		},
		Store: StoreConfig{
			Driver: db.DriverSQLite,
			Path:   filepath.Join(dir, "chats.db"),
		},
		Upload: UploadConfig{
			URL:       "http://localhost:8100/upload",
			Listen:    ":8100",
			Dir:       filepath.Join(dir, "uploads"),
			PublicURL: "http://localhost:8100",
			MaxBytes:  api.DefaultMaxUploadBytes,
		},
		UI: UIConfig{
			Width: 80,
			Style: "auto",
		},
	}
}

// Load builds the configuration. An empty path means dir/config.toml, which
// may be absent; an explicit path must exist.
func Load(path string) (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	cfg := Default(dir)

	explicit := path != ""
	if !explicit {
		path = filepath.Join(dir, "config.toml")
	}
	if err := LoadTOML(cfg, path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	return cfg, cfg.validate()
}

// LoadTOML decodes the file at path over cfg.
func LoadTOML(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

func (c *Config) validate() error {
	c.API.BaseURL = strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")
	if c.API.BaseURL == "" {
		return errors.New("api.base_url is required")
	}
	if strings.TrimSpace(c.API.Model) == "" {
		return errors.New("api.model is required")
	}
	if c.API.TitleModel == "" {
		c.API.TitleModel = c.API.Model
	}
	switch c.Store.Driver {
	case db.DriverSQLite, db.DriverBolt:
	default:
		return fmt.Errorf("store.driver must be %q or %q, got %q", db.DriverSQLite, db.DriverBolt, c.Store.Driver)
	}
	if c.Upload.MaxBytes <= 0 {
		c.Upload.MaxBytes = api.DefaultMaxUploadBytes
	}
	if c.UI.Width <= 0 {
		c.UI.Width = 80
	}
	return nil
}
