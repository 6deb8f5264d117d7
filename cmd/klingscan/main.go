// klingscan is a command-line tool for the address codec, the QR signing
// request scanner, and the local network/account registry.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/Klingon-tech/klingscan/config"
	klog "github.com/Klingon-tech/klingscan/internal/log"
	"github.com/Klingon-tech/klingscan/internal/node"
	"github.com/Klingon-tech/klingscan/internal/registry"
)

// globals holds the flags accepted before the subcommand.
type globals struct {
	rpcURL  string
	dataDir string
	network config.NetworkType
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	g := globals{
		dataDir: config.DefaultDataDir(),
		network: config.Mainnet,
	}

	// Scan for --rpc, --datadir, and --network before the subcommand.
	args := os.Args[1:]
	for len(args) > 0 {
		switch {
		case args[0] == "--rpc" && len(args) > 1:
			g.rpcURL = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--rpc="):
			g.rpcURL = args[0][len("--rpc="):]
			args = args[1:]
		case args[0] == "--datadir" && len(args) > 1:
			g.dataDir = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--datadir="):
			g.dataDir = args[0][len("--datadir="):]
			args = args[1:]
		case args[0] == "--network" && len(args) > 1:
			g.network = config.NetworkType(args[1])
			args = args[2:]
		case strings.HasPrefix(args[0], "--network="):
			g.network = config.NetworkType(args[0][len("--network="):])
			args = args[1:]
		case args[0] == "--testnet":
			g.network = config.Testnet
			args = args[1:]
		default:
			goto dispatch
		}
	}

dispatch:
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	// Keep registry and scanner logs off the terminal unless they matter.
	klog.Init("warn", false, "")

	cmd := args[0]
	cmdArgs := args[1:]

	switch cmd {
	case "decode":
		cmdDecode(cmdArgs)
	case "info":
		cmdInfo(cmdArgs)
	case "encode":
		cmdEncode(g, cmdArgs)
	case "reformat":
		cmdReformat(cmdArgs)
	case "frames":
		cmdFrames(g, cmdArgs)
	case "scan":
		cmdScan(g, cmdArgs)
	case "networks":
		cmdNetworks(g, cmdArgs)
	case "accounts":
		cmdAccounts(g, cmdArgs)
	case "remote":
		cmdRemote(g, cmdArgs)
	case "version", "--version":
		fmt.Println("klingscan version " + config.Version)
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: klingscan [global flags] <command> [flags]

Global flags:
  --rpc <url>         Daemon RPC endpoint (default from config, e.g. http://127.0.0.1:9545)
  --datadir <path>    Data directory (default: ~/.klingscan)
  --network <net>     mainnet (default) or testnet
  --testnet           Shorthand for --network testnet

Address codec:
  decode [--json] <address>       Decode an address into its raw bytes
  info <address>                  Show the family, network and type of an address
  encode [flags] <hex>            Encode raw bytes as an address
        --family <f>              ss58 (default), raw, p2pkh, p2wpkh, p2tr, bounceable
        --prefix <n>              SS58 network prefix
        --script-hash             P2SH instead of P2PKH (bitcoin)
        --bounceable              Set the bounce flag (bounceable)
        --test-only               Set the test-only flag (bounceable)
  reformat [--prefix <n>] [--ethereum] <address>
                                  Re-encode an address for another network

Signing requests:
  scan [--remote] [--json]        Read QR frames (one per line) from stdin
  frames [--chunk <n>] <hex>      Split a payload into QR frames

Registry:
  networks list                   List known networks
  networks add --slug <s> --genesis <hex> [--name <n>] [--prefix <n>]
               [--ethereum --chain-id <id>]
                                  Add or replace a network
  networks remove <slug>          Remove a network
  networks reset                  Restore the default network table
  accounts list                   List known accounts
  accounts add [--name <n>] [--external] <address>
                                  Add an account
  accounts add-pubkey [--name <n>] [--external] <hex>
                                  Add an EVM account from a secp256k1 public key
  accounts derive [--count <n>] [--account <a>] [--index <i>] [--name <n>] [--passphrase]
                                  Add EVM accounts derived from a BIP-39 mnemonic
                                  (read from the terminal, never stored)
  accounts remove <address>       Remove an account

Daemon:
  remote <method> [json-params]   Call a klingscand JSON-RPC method
`)
}

// loadConfig reads the data directory's config file without CLI flags.
func loadConfig(g globals) *config.Config {
	cfg, err := config.LoadFromFile(g.dataDir, g.network)
	if err != nil {
		fatal("config: %v", err)
	}
	return cfg
}

// openRegistry opens the local registry, seeding it the way the daemon
// would. The returned func closes the store.
func openRegistry(g globals) (*registry.Registry, func()) {
	cfg := loadConfig(g)
	db, err := node.OpenRegistry(cfg)
	if err != nil {
		fatal("%v", err)
	}
	reg := registry.New(db)
	if cfg.Registry.Seed {
		if err := reg.Seed(false); err != nil {
			db.Close()
			fatal("seed registry: %v", err)
		}
	}
	return reg, func() { db.Close() }
}

// rpcEndpoint returns --rpc, or the endpoint named by the config file.
func rpcEndpoint(g globals) string {
	if g.rpcURL != "" {
		return g.rpcURL
	}
	return "http://" + loadConfig(g).RPCEndpoint()
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fatal("encode output: %v", err)
	}
	fmt.Println(string(data))
}

// ── Error helper ────────────────────────────────────────────────────────

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
