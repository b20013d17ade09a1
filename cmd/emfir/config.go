package main

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// config holds CLI defaults. Flags override file values.
type config struct {
	Downsample int  `yaml:"downsample"`
	Debug      bool `yaml:"debug"`
}

// loadConfig reads the YAML config at path, or ~/.emfir.yaml when
// path is empty. A missing implicit file just yields defaults; a
// missing explicit one is an error.
func loadConfig(path string) (config, error) {
	cfg := config{Downsample: 10}

	explicit := path != ""
	if !explicit {
		home, err := os.UserHomeDir()
		if err != nil {
			return cfg, nil
		}
		path = filepath.Join(home, ".emfir.yaml")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if explicit {
			return cfg, err
		}
		return cfg, nil
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, err
	}
	if cfg.Downsample < 1 {
		cfg.Downsample = 1
	}
	return cfg, nil
}
