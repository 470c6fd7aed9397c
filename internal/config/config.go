// Package config loads and normalizes the declarative server description:
// one core plus a list of extensions, lowered into the model.Item values
// the store installs.
package config

import (
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/prisma-mc/prisma/internal/model"
)

// DefaultConfigPath is the file Load reads when no path is given.
const DefaultConfigPath = "prisma.toml"

// Config is the full declarative description of a server instance.
type Config struct {
	Core       CoreConfig        `toml:"core"`
	Extensions []ExtensionConfig `toml:"extensions"`
	Options    CoreOptions       `toml:"options"`
}

// CoreConfig describes the server core to install.
type CoreConfig struct {
	Platform model.Platform `toml:"platform"`
	Version  model.Version  `toml:"version"`
	Options  model.Options  `toml:"options"`
}

// ExtensionConfig describes a single plugin or mod. Platform and the
// version's GameVersion are optional: Normalize fills them in from the
// core when absent.
type ExtensionConfig struct {
	Name     string              `toml:"name"`
	Platform *model.Platform     `toml:"platform,omitempty"`
	Provider model.ExtensionType `toml:"provider"`
	Version  model.Version       `toml:"version"`
	Options  model.Options       `toml:"options"`
}

// CoreOptions carries the server-runtime settings this package passes
// through untouched; nothing in the resolver or store layer inspects them.
type CoreOptions struct {
	Port       uint16           `toml:"port"`
	MinMemory  uint32           `toml:"min_memory"`
	MaxMemory  uint32           `toml:"max_memory"`
	JavaArgs   []string         `toml:"java_args"`
	Properties ServerProperties `toml:"properties"`
}

// ServerProperties mirrors the handful of server.properties fields the
// original configuration format exposes.
type ServerProperties struct {
	MOTD               *string `toml:"motd,omitempty"`
	MaxPlayers         *uint32 `toml:"max_players,omitempty"`
	OnlineMode         *bool   `toml:"online_mode,omitempty"`
	Difficulty         *string `toml:"difficulty,omitempty"`
	Gamemode           *string `toml:"gamemode,omitempty"`
	ViewDistance       *uint32 `toml:"view_distance,omitempty"`
	AllowNether        *bool   `toml:"allow_nether,omitempty"`
	EnableCommandBlock *bool   `toml:"enable_command_block,omitempty"`
}

func DefaultCoreOptions() CoreOptions {
	return CoreOptions{
		Port:      25565,
		MinMemory: 1024,
		MaxMemory: 2048,
		JavaArgs:  []string{"-XX:+UseG1GC"},
	}
}

// Load reads and parses a TOML configuration file. An empty path uses
// DefaultConfigPath.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Normalize propagates the core's game version and platform onto any
// extension that doesn't specify its own, and lowers the whole
// configuration into the flat []model.Item the store consumes. It is
// idempotent: running it twice produces the same result, since it only
// ever fills in fields that are nil.
func (c *Config) Normalize() []model.Item {
	items := make([]model.Item, 0, 1+len(c.Extensions))

	items = append(items, model.Item{
		Provider: model.CoreProvider(c.Core.Platform),
		Version:  c.Core.Version,
		Options:  c.Core.Options,
	})

	for _, ext := range c.Extensions {
		platform := c.Core.Platform
		if ext.Platform != nil {
			platform = *ext.Platform
		}

		version := ext.Version
		if version.GameVersion == nil {
			version.GameVersion = c.Core.Version.GameVersion
		}

		items = append(items, model.Item{
			Provider: model.ExtensionProviderOf(ext.Name, platform, ext.Provider),
			Version:  version,
			Options:  ext.Options,
		})
	}

	return items
}
