package config

import "time"

// DefaultMainnet returns the default configuration for mainnet.
func DefaultMainnet() *Config {
	return &Config{
		Network: Mainnet,
		DataDir: DefaultDataDir(),
		Codec: CodecConfig{
			SS58Prefix: 42,
			FrameChunk: 256,
		},
		RPC: RPCConfig{
			Enabled:     true,
			Addr:        "127.0.0.1",
			Port:        9545,
			AllowedIPs:  []string{"127.0.0.1"},
			MaxSessions: 64,
			SessionTTL:  10 * time.Minute,
		},
		Registry: RegistryConfig{
			Seed: true,
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}

// DefaultTestnet returns the default configuration for testnet.
func DefaultTestnet() *Config {
	cfg := DefaultMainnet()
	cfg.Network = Testnet
	cfg.RPC.Port = 9645
	return cfg
}

// Default returns the default configuration for the given network.
func Default(network NetworkType) *Config {
	switch network {
	case Testnet:
		return DefaultTestnet()
	default:
		return DefaultMainnet()
	}
}
