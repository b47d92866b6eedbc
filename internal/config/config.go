package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/net/idna"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Database   DatabaseConfig    `yaml:"database"`
	Server     ServerConfig      `yaml:"server"`
	Keygen     KeygenConfig      `yaml:"keygen"`
	Collectors []CollectorConfig `yaml:"collectors"`
	Publishers []PublisherConfig `yaml:"publishers"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type ServerConfig struct {
	// Address is the host clients dial; it goes into every share link.
	Address    string `yaml:"address"`
	APIPort    int    `yaml:"api_port"`
	LogDir     string `yaml:"log_dir"`
	ConfigPath string `yaml:"config_path"`
}

// KeygenConfig points at a panel endpoint that issues reality key pairs.
// With no endpoint, keys are derived locally.
type KeygenConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Token    string        `yaml:"token"`
	Timeout  time.Duration `yaml:"timeout"`
	Retries  int           `yaml:"retries"`
}

type CollectorConfig struct {
	Name   string                 `yaml:"name"`
	Type   string                 `yaml:"type"`
	Params map[string]interface{} `yaml:"params"`
}

type PublisherConfig struct {
	Name      string                 `yaml:"name"`
	Type      string                 `yaml:"type"`
	Protocols []string               `yaml:"protocols"` // empty means all
	Params    map[string]interface{} `yaml:"params"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse applies defaults, then the YAML document on top of them.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	// Defaults
	cfg.Database.Path = "xinbound.db"
	cfg.Server.APIPort = 10085
	cfg.Server.LogDir = "logs"
	cfg.Server.ConfigPath = "xray.json"
	cfg.Keygen.Timeout = 10 * time.Second
	cfg.Keygen.Retries = 2

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config yaml: %w", err)
	}

	addr, err := NormalizeAddress(cfg.Server.Address)
	if err != nil {
		return nil, err
	}
	cfg.Server.Address = addr

	if cfg.Server.APIPort < 1 || cfg.Server.APIPort > 65535 {
		return nil, fmt.Errorf("server.api_port %d out of range", cfg.Server.APIPort)
	}
	return &cfg, nil
}

// NormalizeAddress converts an internationalized host name to its ASCII
// form. IP literals pass through unchanged.
func NormalizeAddress(addr string) (string, error) {
	if addr == "" || net.ParseIP(addr) != nil {
		return addr, nil
	}
	ascii, err := idna.Lookup.ToASCII(addr)
	if err != nil {
		return "", fmt.Errorf("invalid server address %q: %w", addr, err)
	}
	return ascii, nil
}

func (c *Config) FilterCollectors(names []string) {
	if len(names) == 0 {
		return
	}
	whitelist := make(map[string]bool)
	for _, n := range names {
		whitelist[n] = true
	}
	var filtered []CollectorConfig
	for _, item := range c.Collectors {
		if whitelist[item.Name] {
			filtered = append(filtered, item)
		}
	}
	c.Collectors = filtered
}

func (c *Config) FilterPublishers(names []string) {
	if len(names) == 0 {
		return
	}
	whitelist := make(map[string]bool)
	for _, n := range names {
		whitelist[n] = true
	}
	var filtered []PublisherConfig
	for _, item := range c.Publishers {
		if whitelist[item.Name] {
			filtered = append(filtered, item)
		}
	}
	c.Publishers = filtered
}
