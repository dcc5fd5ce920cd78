package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultLabel is a label created for every new user.
type DefaultLabel struct {
	Name         string `yaml:"name"`
	Color        string `yaml:"color"`
	Rule         string `yaml:"filter"`
	PromptFilter string `yaml:"prompt_filter"`
}

type defaultLabelsFile struct {
	Labels []DefaultLabel `yaml:"labels"`
}

// LoadDefaultLabels reads the default label set. A missing file means no
// defaults.
func LoadDefaultLabels(path string) ([]DefaultLabel, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var file defaultLabelsFile
	if err := yaml.NewDecoder(f).Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	for i, l := range file.Labels {
		if l.Name == "" || l.Color == "" {
			return nil, fmt.Errorf("%s: label %d needs a name and a color", path, i+1)
		}
	}
	return file.Labels, nil
}
