// Package config handles daemon and CLI configuration.
//
// Settings come from three layers, later ones winning: built-in defaults,
// the klingscan.conf file in the data directory, and command-line flags.
package config

import (
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"
)

// NetworkType identifies mainnet or testnet. It selects the default Bitcoin
// parameters for encoding and the default RPC port.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Testnet NetworkType = "testnet"
)

// Config holds runtime configuration.
type Config struct {
	// Core
	Network NetworkType `conf:"network"`
	DataDir string      `conf:"datadir"`

	// Address codec defaults
	Codec CodecConfig

	// RPC server
	RPC RPCConfig

	// Network and account registry
	Registry RegistryConfig

	// Logging
	Log LogConfig
}

// CodecConfig holds defaults for encoding addresses and QR frames.
type CodecConfig struct {
	SS58Prefix int `conf:"codec.ss58prefix"` // Prefix used when none is given
	FrameChunk int `conf:"codec.framechunk"` // Payload bytes per generated QR frame
}

// RPCConfig holds RPC server settings.
type RPCConfig struct {
	Enabled     bool          `conf:"rpc.enabled"`
	Addr        string        `conf:"rpc.addr"`
	Port        int           `conf:"rpc.port"`
	AllowedIPs  []string      `conf:"rpc.allowed"`
	CORSOrigins []string      `conf:"rpc.cors"` // Allowed CORS origins ("*" = all).
	MaxSessions int           `conf:"rpc.maxsessions"`
	SessionTTL  time.Duration `conf:"rpc.sessionttl"` // Idle scan sessions older than this may be evicted.
}

// RegistryConfig holds registry storage settings.
type RegistryConfig struct {
	Seed     bool `conf:"registry.seed"`     // Write the default network table on first start
	InMemory bool `conf:"registry.inmemory"` // Keep the registry in memory only
	Reseed   bool // Replace the network table on startup (not persisted in config file).
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.klingscan
//	macOS:   ~/Library/Application Support/Klingscan
//	Windows: %APPDATA%\Klingscan
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".klingscan"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Klingscan")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "Klingscan")
		}
		return filepath.Join(home, "AppData", "Roaming", "Klingscan")
	default:
		return filepath.Join(home, ".klingscan")
	}
}

// NetworkDataDir returns the network-specific data directory.
func (c *Config) NetworkDataDir() string {
	return filepath.Join(c.DataDir, string(c.Network))
}

// RegistryDir returns the registry database directory.
func (c *Config) RegistryDir() string {
	return filepath.Join(c.NetworkDataDir(), "registry")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "klingscan.conf")
}

// RPCEndpoint returns the address the RPC server listens on.
func (c *Config) RPCEndpoint() string {
	return net.JoinHostPort(c.RPC.Addr, strconv.Itoa(c.RPC.Port))
}
