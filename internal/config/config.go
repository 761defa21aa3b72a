package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all bot configuration
type Config struct {
	Nick       string `yaml:"nick"`
	NickPass   string `yaml:"nick_pass"`
	Alternate  string `yaml:"alternate"`
	Server     string `yaml:"server"`
	Port       int    `yaml:"port"`
	UseTLS     bool   `yaml:"use_tls"`
	ServerPass string `yaml:"server_pass"`
	IRCName    string `yaml:"irc_name"`
	Username   string `yaml:"username"`
	DataDir    string `yaml:"data_dir"`

	// Channels to moderate.
	Channels []string `yaml:"channels"`

	// Service nick asked for op; "OP <channel> <nick>" is sent here.
	ChanServ string `yaml:"chanserv"`

	// When true the bot holds on to op instead of dropping it after
	// each privileged request.
	KeepOp bool `yaml:"keep_op"`

	// Services account name -> granted permissions. A trailing ".*"
	// grants everything under that prefix, e.g. "irc.op.*".
	Permissions map[string][]string `yaml:"permissions"`
}

// Load reads and parses a YAML configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Set defaults
	if cfg.DataDir == "" {
		cfg.DataDir = "./data"
	}
	if cfg.ChanServ == "" {
		cfg.ChanServ = "ChanServ"
	}
	if cfg.Port == 0 {
		cfg.Port = 6667
	}
	if cfg.Username == "" {
		cfg.Username = cfg.Nick
	}
	if cfg.IRCName == "" {
		cfg.IRCName = cfg.Nick
	}

	return &cfg, nil
}
