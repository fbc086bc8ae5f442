package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile loads configuration from a YAML file. Keys missing from the file
// keep the built-in defaults.
func LoadFile(path string) (*Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(buf, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
