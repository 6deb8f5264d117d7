package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Version is reported by --version.
const Version = "0.1.0"

// Flags holds parsed command-line flags.
type Flags struct {
	// Commands
	Help    bool
	Version bool

	// Core
	Network string
	DataDir string
	Config  string

	// Codec
	SS58Prefix int
	FrameChunk int

	// RPC
	RPC         bool
	RPCAddr     string
	RPCPort     int
	RPCAllowed  string
	RPCCORS     string
	MaxSessions int
	SessionTTL  time.Duration

	// Registry
	Seed     bool
	Reseed   bool
	InMemory bool

	// Logging
	LogLevel string
	LogFile  string
	LogJSON  bool

	// Remaining args
	Args []string

	// Explicitly-set flags (for true/false and zero-value overrides).
	SetSS58Prefix bool
	SetRPC        bool
	SetSeed       bool
	SetInMemory   bool
	SetLogJSON    bool
}

// ParseFlags parses os.Args, printing usage and exiting on error.
func ParseFlags() *Flags {
	f, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return f
}

func parseFlags(args []string, errOut io.Writer) (*Flags, error) {
	f := &Flags{}
	fs := flag.NewFlagSet("klingscand", flag.ContinueOnError)
	fs.SetOutput(errOut)

	// Commands
	fs.BoolVar(&f.Help, "help", false, "Show help message")
	fs.BoolVar(&f.Help, "h", false, "Show help message (shorthand)")
	fs.BoolVar(&f.Version, "version", false, "Show version information")
	fs.BoolVar(&f.Version, "v", false, "Show version (shorthand)")

	// Core
	fs.StringVar(&f.Network, "network", "", "Network type (mainnet or testnet)")
	fs.BoolFunc("testnet", "Use testnet (shorthand for --network=testnet)", func(string) error {
		f.Network = string(Testnet)
		return nil
	})
	fs.StringVar(&f.DataDir, "datadir", "", "Data directory path")
	fs.StringVar(&f.Config, "config", "", "Config file path")
	fs.StringVar(&f.Config, "c", "", "Config file path (shorthand)")

	// Codec
	fs.IntVar(&f.SS58Prefix, "ss58-prefix", 0, "Default SS58 prefix for encoding")
	fs.IntVar(&f.FrameChunk, "frame-chunk", 0, "Payload bytes per generated QR frame")

	// RPC
	fs.BoolVar(&f.RPC, "rpc", true, "Enable RPC server")
	fs.StringVar(&f.RPCAddr, "rpc-addr", "", "RPC listen address")
	fs.IntVar(&f.RPCPort, "rpc-port", 0, "RPC listen port")
	fs.StringVar(&f.RPCAllowed, "rpc-allowed", "", "Allowed IPs for RPC")
	fs.StringVar(&f.RPCCORS, "rpc-cors", "", "Allowed CORS origins for RPC (comma-separated)")
	fs.IntVar(&f.MaxSessions, "max-sessions", 0, "Maximum concurrent scan sessions")
	fs.DurationVar(&f.SessionTTL, "session-ttl", 0, "Idle time before a scan session may be evicted")

	// Registry
	fs.BoolVar(&f.Seed, "seed", true, "Write the default network table on first start")
	fs.BoolVar(&f.Reseed, "reseed", false, "Replace the network table with the defaults")
	fs.BoolVar(&f.InMemory, "inmemory", false, "Keep the registry in memory only")

	// Logging
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level (trace, debug, info, warn, error, off)")
	fs.StringVar(&f.LogFile, "log-file", "", "Log file path")
	fs.BoolVar(&f.LogJSON, "log-json", false, "Output logs as JSON")

	fs.Usage = func() {
		printUsage(errOut)
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	f.SetSS58Prefix = isFlagSet(fs, "ss58-prefix")
	f.SetRPC = isFlagSet(fs, "rpc")
	f.SetSeed = isFlagSet(fs, "seed")
	f.SetInMemory = isFlagSet(fs, "inmemory")
	f.SetLogJSON = isFlagSet(fs, "log-json")

	f.Args = fs.Args()

	// A positional argument stops the parser; catch flags left behind it.
	for _, arg := range f.Args {
		if strings.HasPrefix(arg, "-") {
			return nil, fmt.Errorf("flag %q was not parsed (positional argument stopped parsing)", arg)
		}
	}

	return f, nil
}

// ApplyFlags applies command-line flags to a Config struct.
func ApplyFlags(cfg *Config, f *Flags) {
	// Core
	if f.Network != "" {
		cfg.Network = NetworkType(strings.ToLower(f.Network))
	}
	if f.DataDir != "" {
		cfg.DataDir = f.DataDir
	}

	// Codec
	if f.SetSS58Prefix {
		cfg.Codec.SS58Prefix = f.SS58Prefix
	}
	if f.FrameChunk != 0 {
		cfg.Codec.FrameChunk = f.FrameChunk
	}

	// RPC
	if f.SetRPC {
		cfg.RPC.Enabled = f.RPC
	}
	if f.RPCAddr != "" {
		cfg.RPC.Addr = f.RPCAddr
	}
	if f.RPCPort != 0 {
		cfg.RPC.Port = f.RPCPort
	}
	if f.RPCAllowed != "" {
		cfg.RPC.AllowedIPs = parseStringList(f.RPCAllowed)
	}
	if f.RPCCORS != "" {
		cfg.RPC.CORSOrigins = parseStringList(f.RPCCORS)
	}
	if f.MaxSessions != 0 {
		cfg.RPC.MaxSessions = f.MaxSessions
	}
	if f.SessionTTL != 0 {
		cfg.RPC.SessionTTL = f.SessionTTL
	}

	// Registry
	if f.SetSeed {
		cfg.Registry.Seed = f.Seed
	}
	if f.SetInMemory {
		cfg.Registry.InMemory = f.InMemory
	}
	if f.Reseed {
		cfg.Registry.Reseed = true
	}

	// Logging
	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if f.LogFile != "" {
		cfg.Log.File = f.LogFile
	}
	if f.SetLogJSON {
		cfg.Log.JSON = f.LogJSON
	}
}

// isFlagSet checks if a flag was explicitly set.
func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func printUsage(w io.Writer) {
	usage := `Klingscan - multi-chain address codec and UOS signing-request decoder

Usage:
  klingscand [options]
  klingscand --help

Commands:
  --help, -h      Show this help message
  --version, -v   Show version information

Core Options:
  --network       Network type: mainnet (default) or testnet
  --testnet       Shorthand for --network=testnet
  --datadir       Data directory (default: ~/.klingscan)
  --config, -c    Config file path (default: <datadir>/klingscan.conf)

Codec Options:
  --ss58-prefix   Default SS58 prefix for encoding (default: 42)
  --frame-chunk   Payload bytes per generated QR frame (default: 256)

RPC Options:
  --rpc           Enable RPC server (default: true)
  --rpc-addr      RPC listen address (default: 127.0.0.1)
  --rpc-port      RPC port (mainnet: 9545, testnet: 9645)
  --rpc-allowed   Allowed IPs for RPC (comma-separated)
  --rpc-cors      Allowed CORS origins for RPC (comma-separated)
  --max-sessions  Maximum concurrent scan sessions (default: 64)
  --session-ttl   Idle time before a scan session may be evicted (default: 10m)

Registry Options:
  --seed          Write the default network table on first start (default: true)
  --reseed        Replace the network table with the defaults
  --inmemory      Keep the registry in memory only

Logging Options:
  --log-level     Log level: trace, debug, info, warn, error, off (default: info)
  --log-file      Log file path (default: <datadir>/logs/klingscan.log)
  --log-json      Output logs as JSON

Examples:
  # Start the daemon
  klingscand

  # Start on testnet with debug logging
  klingscand --testnet --log-level=debug

  # Throwaway registry for a signing session
  klingscand --inmemory --rpc-port=9999
`
	fmt.Fprint(w, usage)
}

// Load loads configuration with the following precedence:
// 1. Default values
// 2. Auto-create data dirs + default config (idempotent)
// 3. Config file
// 4. Command-line flags
func Load() (*Config, *Flags, error) {
	flags := ParseFlags()

	if flags.Help {
		printUsage(os.Stdout)
		os.Exit(0)
	}
	if flags.Version {
		fmt.Println("klingscand version " + Version)
		os.Exit(0)
	}

	cfg, err := LoadWith(flags)
	if err != nil {
		return nil, nil, err
	}
	return cfg, flags, nil
}

// LoadWith builds a Config from defaults, the config file, and already
// parsed flags.
func LoadWith(flags *Flags) (*Config, error) {
	network := Mainnet
	if strings.ToLower(flags.Network) == string(Testnet) {
		network = Testnet
	}

	cfg := Default(network)
	if flags.DataDir != "" {
		cfg.DataDir = flags.DataDir
	}

	if err := EnsureDataDirs(cfg); err != nil {
		return nil, fmt.Errorf("ensuring data dirs: %w", err)
	}

	configPath := flags.Config
	if configPath == "" {
		configPath = cfg.ConfigFile()
	}

	fileValues, err := LoadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config file: %w", err)
	}
	if err := ApplyFileConfig(cfg, fileValues); err != nil {
		return nil, fmt.Errorf("applying config file: %w", err)
	}

	// Flags have the highest precedence.
	ApplyFlags(cfg, flags)
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// LoadFromFile loads config from defaults + conf file only (no CLI flags).
// Used by the klingscan CLI, which has its own flags.
func LoadFromFile(dataDir string, network NetworkType) (*Config, error) {
	cfg := Default(network)
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if err := EnsureDataDirs(cfg); err != nil {
		return nil, fmt.Errorf("ensuring data dirs: %w", err)
	}
	fileValues, err := LoadFile(cfg.ConfigFile())
	if err != nil {
		return nil, fmt.Errorf("loading config file: %w", err)
	}
	if err := ApplyFileConfig(cfg, fileValues); err != nil {
		return nil, fmt.Errorf("applying config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// EnsureDataDirs creates the data directory structure and a default config
// file if they don't already exist. Safe to call on every startup.
func EnsureDataDirs(cfg *Config) error {
	dirs := []string{
		cfg.DataDir,
		cfg.NetworkDataDir(),
		cfg.RegistryDir(),
		cfg.LogsDir(),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	configPath := cfg.ConfigFile()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := WriteDefaultConfig(configPath, cfg.Network); err != nil {
			return fmt.Errorf("writing config file: %w", err)
		}
	}

	return nil
}
