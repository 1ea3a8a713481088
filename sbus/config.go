package sbus

import (
	"os"

	"gopkg.in/yaml.v2"

	"github.com/timotiviert/digimat-saia/transport"
)

// ServerConfig declares one statically known remote PCD (spec.md §3).
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	LID  int    `yaml:"lid"`
}

// Config is the Node's configuration file: local port, map-file search
// path, interactive/debug flags, and the statically declared servers
// (spec.md §3 "Node... configuration (map-file search path, interactive
// flag, debug flag)").
type Config struct {
	Port        int            `yaml:"port"`
	MapPath     string         `yaml:"map_path"`
	Interactive bool           `yaml:"interactive"`
	Debug       bool           `yaml:"debug"`
	ScanEnabled bool           `yaml:"scan_enabled"`
	Servers     []ServerConfig `yaml:"servers"`
}

// DefaultConfig returns a Config with spec.md's documented defaults.
func DefaultConfig() *Config {
	return &Config{Port: transport.DefaultPort}
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if cfg.Port == 0 {
		cfg.Port = transport.DefaultPort
	}
	return cfg, nil
}
