// Package config loads the optional YAML defaults file. Values from the file
// sit between built-in defaults and explicit command-line flags.
package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/Marble879/simpletranscribe/internal/model"
	"gopkg.in/yaml.v3"
)

// Config mirrors the keys accepted in config.yaml. Zero values mean "not set".
// The boolean keys are pointers so an explicit false can override a default.
type Config struct {
	Model        string `yaml:"model"`
	ModelDir     string `yaml:"model_dir"`
	Language     string `yaml:"language"`
	Threads      int    `yaml:"threads"`
	Translate    *bool  `yaml:"translate"`
	BaseURL      string `yaml:"base_url"`
	AutoDownload *bool  `yaml:"auto_download"`
}

// Load reads and validates the file at path. A missing file is reported with
// an error wrapping os.ErrNotExist so callers can treat it as optional.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadOptional is Load, except a missing file yields an empty Config.
func LoadOptional(path string) (*Config, error) {
	if path == "" {
		return &Config{}, nil
	}
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Config{}, nil
	}
	return cfg, err
}

func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate returns every problem found in cfg, joined.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Model != "" {
		if _, err := model.ParseID(cfg.Model); err != nil {
			errs = append(errs, fmt.Errorf("model: %w", err))
		}
	}
	if cfg.Threads < 0 {
		errs = append(errs, fmt.Errorf("threads %d must not be negative", cfg.Threads))
	}
	if cfg.BaseURL != "" {
		u, err := url.Parse(cfg.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("base_url %q must be an absolute http(s) URL", cfg.BaseURL))
		}
	}
	if strings.TrimSpace(cfg.Language) != cfg.Language {
		errs = append(errs, fmt.Errorf("language %q has surrounding whitespace", cfg.Language))
	}

	return errors.Join(errs...)
}

// Bool dereferences an optional boolean key, falling back to def.
func Bool(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
