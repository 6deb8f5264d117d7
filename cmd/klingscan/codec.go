package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"strings"

	klog "github.com/Klingon-tech/klingscan/internal/log"
	"github.com/Klingon-tech/klingscan/internal/rpc"
	"github.com/Klingon-tech/klingscan/pkg/address"
	"github.com/Klingon-tech/klingscan/pkg/uos"
)

// ── decode ──────────────────────────────────────────────────────────────

func cmdDecode(args []string) {
	fs := flag.NewFlagSet("decode", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "Print the result as JSON")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fatal("Usage: klingscan decode [--json] <address>")
	}
	s := strings.TrimSpace(fs.Arg(0))

	d, err := address.Match(s)
	if err != nil {
		klog.Codec.Debug().Err(err).Str("address", s).Msg("Decode failed")
		fatal("%v", err)
	}

	if *asJSON {
		printJSON(rpc.NewDecodeResult(s, d))
		return
	}

	fmt.Printf("Family:   %s\n", d.Family)
	fmt.Printf("Network:  %s\n", d.Network)
	fmt.Printf("Type:     %s\n", d.Type)
	fmt.Printf("Bytes:    %x\n", d.Bytes)
	switch d.Family {
	case address.FamilySS58:
		fmt.Printf("Prefix:   %d\n", d.Prefix)
	case address.FamilyBitcoinLegacy:
		fmt.Printf("Version:  0x%02x\n", d.Version)
	}
	fmt.Printf("Keypair:  %s\n", address.KeypairType(s))
}

// ── info ────────────────────────────────────────────────────────────────

func cmdInfo(args []string) {
	if len(args) != 1 {
		fatal("Usage: klingscan info <address>")
	}
	info, err := address.Info(strings.TrimSpace(args[0]))
	if err != nil {
		fatal("%v", err)
	}
	fmt.Printf("Family:   %s\n", info.Family)
	fmt.Printf("Network:  %s\n", info.Network)
	fmt.Printf("Type:     %s\n", info.Type)
}

// ── encode ──────────────────────────────────────────────────────────────

func cmdEncode(g globals, args []string) {
	fs := flag.NewFlagSet("encode", flag.ExitOnError)
	family := fs.String("family", "ss58", "Address family")
	prefix := fs.Int("prefix", -1, "SS58 network prefix (default from config)")
	scriptHash := fs.Bool("script-hash", false, "Encode a P2SH address")
	bounceable := fs.Bool("bounceable", false, "Set the bounce flag")
	testOnly := fs.Bool("test-only", false, "Set the test-only flag")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fatal("Usage: klingscan encode [flags] <hex>")
	}
	raw, err := parseHex(fs.Arg(0))
	if err != nil {
		fatal("bytes: %v", err)
	}

	fam, err := address.ParseFamily(*family)
	if err != nil {
		fatal("%v: %q", err, *family)
	}

	cfg := loadConfig(g)
	p := address.Params{
		Family:     fam,
		SS58Prefix: uint16(cfg.Codec.SS58Prefix),
		Network:    cfg.BitcoinNetwork(),
		ScriptHash: *scriptHash,
		Bounceable: *bounceable,
	}
	if *prefix >= 0 {
		if *prefix > address.MaxSS58Prefix {
			fatal("%v: %d", address.ErrInvalidPrefix, *prefix)
		}
		p.SS58Prefix = uint16(*prefix)
	}
	if fam == address.FamilyBounceable {
		// The bounceable form has no network beyond the test-only flag.
		p.Network = address.NetworkMainnet
		if *testOnly {
			p.Network = address.NetworkTestnet
		}
	}

	out, err := address.Encode(raw, p)
	if err != nil {
		fatal("%v", err)
	}
	fmt.Println(out)
}

// ── reformat ────────────────────────────────────────────────────────────

func cmdReformat(args []string) {
	fs := flag.NewFlagSet("reformat", flag.ExitOnError)
	prefix := fs.Int("prefix", 42, "Target SS58 prefix")
	ethereum := fs.Bool("ethereum", false, "Re-encode as an EVM address")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fatal("Usage: klingscan reformat [--prefix <n>] [--ethereum] <address>")
	}
	fmt.Println(address.Reformat(strings.TrimSpace(fs.Arg(0)), *prefix, *ethereum))
}

// ── frames ──────────────────────────────────────────────────────────────

func cmdFrames(g globals, args []string) {
	fs := flag.NewFlagSet("frames", flag.ExitOnError)
	chunk := fs.Int("chunk", 0, "Payload bytes per frame (default from config)")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fatal("Usage: klingscan frames [--chunk <n>] <hex>")
	}
	payload, err := parseHex(fs.Arg(0))
	if err != nil {
		fatal("payload: %v", err)
	}

	size := *chunk
	if size == 0 {
		size = loadConfig(g).Codec.FrameChunk
	}
	frames, err := uos.EncodeFrames(payload, size)
	if err != nil {
		fatal("%v", err)
	}
	for _, f := range frames {
		fmt.Println(f)
	}
}

// parseHex decodes hex with an optional 0x prefix.
func parseHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if s == "" {
		return nil, fmt.Errorf("empty hex")
	}
	return hex.DecodeString(s)
}
