// Package config provides the YAML-based settings shared by the charocr
// commands.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"charocr/internal/classifier"
	"charocr/internal/ocr"
)

const (
	appDir     = "charocr"
	configFile = "config.yaml"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid config")

// Config is the in-memory representation of config.yaml.
type Config struct {
	DatasetFolder    string   `yaml:"dataset_folder"`
	ModelsFolder     string   `yaml:"models_folder"`
	Classifier       string   `yaml:"classifier"`
	TrainRatio       float64  `yaml:"train_ratio"`
	MaxPerClass      int      `yaml:"max_per_class"`
	ErrorsIterations int      `yaml:"errors_iterations"`
	Seed             int64    `yaml:"seed,omitempty"`
	Classes          []string `yaml:"classes,omitempty"`
	SamplePrefix     string   `yaml:"sample_prefix,omitempty"`
}

// Default returns the settings used when no config file exists.
func Default() *Config {
	p := ocr.DefaultParams()
	return &Config{
		DatasetFolder:    "dataset",
		ModelsFolder:     "models",
		Classifier:       classifier.NeuralNet.String(),
		TrainRatio:       p.TrainRatio,
		MaxPerClass:      p.MaxPerClass,
		ErrorsIterations: p.ErrorsIterations,
	}
}

// Path returns the default location, ~/.config/charocr/config.yaml on Linux.
func Path() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, herr := os.UserHomeDir()
		if herr != nil {
			return "", fmt.Errorf("cannot determine config directory: %w", err)
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, appDir, configFile), nil
}

// Load reads the config at path. A missing file yields Default; keys absent
// from the file keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid YAML in %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path, creating its directory.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("cannot write config %s: %w", path, err)
	}
	return nil
}

// Validate checks the classifier name and the training parameter ranges.
func (c *Config) Validate() error {
	if _, err := classifier.ParseType(c.Classifier); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.DatasetFolder == "" || c.ModelsFolder == "" {
		return fmt.Errorf("%w: dataset and models folders must be set", ErrInvalid)
	}
	if err := c.Params().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// Type returns the configured classifier type. Call Validate first.
func (c *Config) Type() classifier.Type {
	t, _ := classifier.ParseType(c.Classifier)
	return t
}

// Params returns the training parameters.
func (c *Config) Params() ocr.Params {
	return ocr.Params{
		TrainRatio:       c.TrainRatio,
		MaxPerClass:      c.MaxPerClass,
		ErrorsIterations: c.ErrorsIterations,
	}
}
