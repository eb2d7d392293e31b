package classifier

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

func writeYAML(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}
	return writeFile(path, data)
}

// readYAML decodes a model file. A missing file yields an error wrapping
// os.ErrNotExist.
func readYAML(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read model: %w", err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse model %s: %w", path, err)
	}
	return nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create model folder: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write model: %w", err)
	}
	return nil
}

func checkHeader(fileType string, want Type, fileClasses, classCount int) error {
	if fileType != want.String() {
		return fmt.Errorf("model file holds a %q classifier, want %q", fileType, want)
	}
	if fileClasses != classCount {
		return fmt.Errorf("model file has %d classes, want %d", fileClasses, classCount)
	}
	return nil
}
