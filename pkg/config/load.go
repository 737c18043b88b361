package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"site-crawler/pkg/utils"
)

// File is the on-disk YAML layout: app settings plus named task definitions.
type File struct {
	App   AppConfig             `yaml:"app"`
	Tasks map[string]TaskConfig `yaml:"tasks,omitempty"`
}

// Load reads and unmarshals a YAML config file. Validation is left to the
// caller so that CLI flag overrides can be applied first.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading config file '%s': %w", utils.ErrFilesystem, path, err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: parsing config file '%s': %v", utils.ErrConfigValidation, path, err)
	}
	return &f, nil
}
