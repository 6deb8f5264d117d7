package config

import (
	"fmt"

	"github.com/Klingon-tech/klingscan/internal/log"
	"github.com/Klingon-tech/klingscan/pkg/address"
	"github.com/Klingon-tech/klingscan/pkg/uos"
)

// Validate checks runtime config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Network != Mainnet && cfg.Network != Testnet {
		return fmt.Errorf("network must be %q or %q", Mainnet, Testnet)
	}
	if cfg.DataDir == "" && !cfg.Registry.InMemory {
		return fmt.Errorf("datadir is required unless registry.inmemory is set")
	}
	if cfg.RPC.Port < 0 || cfg.RPC.Port > 65535 {
		return fmt.Errorf("rpc.port must be in range [0, 65535]")
	}
	if cfg.RPC.MaxSessions < 1 {
		return fmt.Errorf("rpc.maxsessions must be at least 1")
	}
	if cfg.RPC.SessionTTL <= 0 {
		return fmt.Errorf("rpc.sessionttl must be positive")
	}
	p := cfg.Codec.SS58Prefix
	if p < 0 || p > address.MaxSS58Prefix || p == 46 || p == 47 {
		return fmt.Errorf("codec.ss58prefix %d is not a usable SS58 prefix", p)
	}
	if cfg.Codec.FrameChunk < 1 {
		return fmt.Errorf("codec.framechunk must be positive")
	}
	if cfg.Codec.FrameChunk > 0xffff-uos.FrameHeaderLength {
		return fmt.Errorf("codec.framechunk must fit a single QR frame")
	}
	if !log.ValidLevel(cfg.Log.Level) {
		return fmt.Errorf("log.level %q is not one of trace, debug, info, warn, error, off", cfg.Log.Level)
	}
	return nil
}

// BitcoinNetwork maps the configured network to the codec's Bitcoin network.
func (c *Config) BitcoinNetwork() address.Network {
	if c.Network == Testnet {
		return address.NetworkTestnet
	}
	return address.NetworkMainnet
}
