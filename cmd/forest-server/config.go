package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Config specifies the file format of config files.
type Config struct {
	ServerAddr   string `yaml:"addr"`
	MetricsAddr  string `yaml:"metrics-addr"`
	DatabaseFile string `yaml:"database-file"`

	APIConfig *APIConfig `yaml:"api"`
}

type APIConfig struct {
	HomeRedirect string `yaml:"home"`

	// MaxWalkNodes caps the number of nodes a single walk request may
	// visit. Zero means the built-in default.
	MaxWalkNodes int `yaml:"max-walk-nodes"`
}

const defaultMaxWalkNodes = 1 << 20

func ReadConfig(filename string) (*Config, error) {
	// Read from file and parse.
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var parsed Config
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, err
	}

	// Check that all required fields are populated.
	if parsed.ServerAddr == "" {
		return nil, fmt.Errorf("field not provided: addr")
	} else if parsed.MetricsAddr == "" {
		return nil, fmt.Errorf("field not provided: metrics-addr")
	} else if parsed.DatabaseFile == "" {
		return nil, fmt.Errorf("field not provided: database-file")
	}

	if parsed.APIConfig == nil {
		parsed.APIConfig = &APIConfig{}
	}
	if parsed.APIConfig.MaxWalkNodes == 0 {
		parsed.APIConfig.MaxWalkNodes = defaultMaxWalkNodes
	} else if parsed.APIConfig.MaxWalkNodes < 0 {
		return nil, fmt.Errorf("field out of range: api.max-walk-nodes")
	}

	return &parsed, nil
}
