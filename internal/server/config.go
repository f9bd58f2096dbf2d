package server

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Config is the complete server configuration.
type Config struct {
	Server   ServerSettings `hcl:"server,block"`
	Room     RoomSettings   `hcl:"room,block"`
	Database *DatabaseSettings `hcl:"database,block"`
}

// ServerSettings contains server-level configuration.
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// RoomSettings defines the table defaults applied to every room.
type RoomSettings struct {
	SmallBlind           int `hcl:"small_blind,optional"`
	BigBlind             int `hcl:"big_blind,optional"`
	MinPlayers           int `hcl:"min_players,optional"`
	MaxPlayers           int `hcl:"max_players,optional"`
	ActionTimeoutSeconds int `hcl:"action_timeout_seconds,optional"`
}

// DatabaseSettings selects the durable bankroll store. DSN falls back to
// the DATABASE_URL environment variable; with neither set the in-memory
// store is used.
type DatabaseSettings struct {
	DSN string `hcl:"dsn,optional"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerSettings{
			Address:  "localhost",
			Port:     8080,
			LogLevel: "info",
		},
		Room: RoomSettings{
			SmallBlind:           5,
			BigBlind:             10,
			MinPlayers:           2,
			MaxPlayers:           8,
			ActionTimeoutSeconds: 30,
		},
	}
}

// LoadConfig loads configuration from an HCL file, falling back to
// defaults when the file does not exist.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config Config
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	defaults := DefaultConfig()
	if config.Server.Address == "" {
		config.Server.Address = defaults.Server.Address
	}
	if config.Server.Port == 0 {
		config.Server.Port = defaults.Server.Port
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = defaults.Server.LogLevel
	}
	if config.Room.SmallBlind == 0 {
		config.Room.SmallBlind = defaults.Room.SmallBlind
	}
	if config.Room.BigBlind == 0 {
		config.Room.BigBlind = defaults.Room.BigBlind
	}
	if config.Room.MinPlayers == 0 {
		config.Room.MinPlayers = defaults.Room.MinPlayers
	}
	if config.Room.MaxPlayers == 0 {
		config.Room.MaxPlayers = defaults.Room.MaxPlayers
	}
	if config.Room.ActionTimeoutSeconds == 0 {
		config.Room.ActionTimeoutSeconds = defaults.Room.ActionTimeoutSeconds
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Room.SmallBlind <= 0 || c.Room.BigBlind <= 0 {
		return fmt.Errorf("blinds must be positive, got %d/%d", c.Room.SmallBlind, c.Room.BigBlind)
	}
	if c.Room.SmallBlind >= c.Room.BigBlind {
		return fmt.Errorf("small blind %d must be below big blind %d", c.Room.SmallBlind, c.Room.BigBlind)
	}
	if c.Room.MinPlayers < 2 {
		return fmt.Errorf("min_players must be at least 2, got %d", c.Room.MinPlayers)
	}
	if c.Room.MaxPlayers < c.Room.MinPlayers {
		return fmt.Errorf("max_players %d below min_players %d", c.Room.MaxPlayers, c.Room.MinPlayers)
	}
	if c.Room.ActionTimeoutSeconds < 0 {
		return fmt.Errorf("action_timeout_seconds cannot be negative")
	}
	return nil
}

// ListenAddr is the address:port the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// ActionTimeout is the turn clock as a duration.
func (c *Config) ActionTimeout() time.Duration {
	return time.Duration(c.Room.ActionTimeoutSeconds) * time.Second
}

// DatabaseDSN resolves the bankroll DSN, config first then environment.
func (c *Config) DatabaseDSN() string {
	if c.Database != nil && c.Database.DSN != "" {
		return c.Database.DSN
	}
	return os.Getenv("DATABASE_URL")
}
