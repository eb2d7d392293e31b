package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"charocr/internal/classifier"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.TrainRatio != 0.5 || cfg.MaxPerClass != 400 || cfg.ErrorsIterations != 0 {
		t.Errorf("params = %+v", cfg.Params())
	}
	if cfg.Type() != classifier.NeuralNet {
		t.Errorf("classifier = %s", cfg.Type())
	}
	if cfg.DatasetFolder != "dataset" || cfg.ModelsFolder != "models" {
		t.Errorf("folders = %q, %q", cfg.DatasetFolder, cfg.ModelsFolder)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Classifier = "svm"
	cfg.TrainRatio = 0.8
	cfg.ErrorsIterations = 3
	cfg.Seed = 42
	cfg.Classes = []string{"a", "b"}
	cfg.SamplePrefix = "user-"
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Type() != classifier.SVM || got.TrainRatio != 0.8 || got.ErrorsIterations != 3 || got.Seed != 42 {
		t.Errorf("loaded = %+v", got)
	}
	if len(got.Classes) != 2 || got.Classes[1] != "b" || got.SamplePrefix != "user-" {
		t.Errorf("classes = %v, prefix = %q", got.Classes, got.SamplePrefix)
	}
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("classifier: knn\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Type() != classifier.KNearest || cfg.MaxPerClass != 400 {
		t.Errorf("loaded = %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown classifier", func(c *Config) { c.Classifier = "tree" }},
		{"negative ratio", func(c *Config) { c.TrainRatio = -0.1 }},
		{"ratio above one", func(c *Config) { c.TrainRatio = 1.5 }},
		{"zero max", func(c *Config) { c.MaxPerClass = 0 }},
		{"max too large", func(c *Config) { c.MaxPerClass = 50001 }},
		{"too many iterations", func(c *Config) { c.ErrorsIterations = 501 }},
		{"no dataset folder", func(c *Config) { c.DatasetFolder = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Fatalf("Validate = %v, want ErrInvalid", err)
			}
		})
	}
	if err := Default().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("train_ratio: 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); !errors.Is(err, ErrInvalid) {
		t.Fatalf("Load = %v, want ErrInvalid", err)
	}
}
