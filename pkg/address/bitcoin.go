package address

import (
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/btcsuite/btcd/chaincfg"
)

// Hash160Length is the byte length of a Bitcoin pubkey/script hash.
const Hash160Length = 20

// base58CheckLength is version(1) + hash160(20) + checksum(4).
const base58CheckLength = 1 + Hash160Length + 4

// legacyVersion describes what a base58check version byte stands for.
type legacyVersion struct {
	typ     string
	network Network
}

// legacyVersions maps the accepted base58check version bytes.
// Regtest shares the testnet version bytes and decodes as testnet.
var legacyVersions = map[byte]legacyVersion{
	chaincfg.MainNetParams.PubKeyHashAddrID:  {TypeP2PKH, NetworkMainnet},
	chaincfg.MainNetParams.ScriptHashAddrID:  {TypeP2SH, NetworkMainnet},
	chaincfg.TestNet3Params.PubKeyHashAddrID: {TypeP2PKH, NetworkTestnet},
	chaincfg.TestNet3Params.ScriptHashAddrID: {TypeP2SH, NetworkTestnet},
}

// segwitNetworks maps bech32 human-readable parts to networks.
var segwitNetworks = map[string]Network{
	chaincfg.MainNetParams.Bech32HRPSegwit:       NetworkMainnet,
	chaincfg.TestNet3Params.Bech32HRPSegwit:      NetworkTestnet,
	chaincfg.RegressionNetParams.Bech32HRPSegwit: NetworkRegtest,
}

// chainParams returns the btcd parameters for a network.
func chainParams(n Network) (*chaincfg.Params, error) {
	switch n {
	case NetworkMainnet, "":
		return &chaincfg.MainNetParams, nil
	case NetworkTestnet:
		return &chaincfg.TestNet3Params, nil
	case NetworkRegtest:
		return &chaincfg.RegressionNetParams, nil
	default:
		return nil, fmt.Errorf("%w: no bitcoin params for network %q", ErrInvalidPrefix, n)
	}
}

// hasBech32Prefix reports whether s starts with a Bitcoin bech32 HRP.
// "bcrt" is covered by "bc".
func hasBech32Prefix(s string) bool {
	if len(s) < 2 {
		return false
	}
	p := strings.ToLower(s[:2])
	return p == "bc" || p == "tb"
}

// matchBech32 commits on a "bc"/"tb" prefix; every failure after that is a
// hard error.
func matchBech32(s string) (*Decoded, bool, error) {
	if !hasBech32Prefix(s) {
		return nil, false, nil
	}

	hrp, data, version, err := bech32.DecodeGeneric(s)
	if err != nil {
		return nil, true, fmt.Errorf("%w: bech32: %v", ErrInvalidAddress, err)
	}
	network, ok := segwitNetworks[hrp]
	if !ok {
		return nil, true, fmt.Errorf("%w: unknown bech32 prefix %q", ErrInvalidAddress, hrp)
	}
	if len(data) < 1 {
		return nil, true, fmt.Errorf("%w: missing witness version", ErrInvalidAddress)
	}

	witnessVersion := data[0]
	program, err := bech32.ConvertBits(data[1:], 5, 8, false)
	if err != nil {
		return nil, true, fmt.Errorf("%w: witness program: %v", ErrInvalidAddress, err)
	}

	d := &Decoded{Network: network, Bytes: program}
	switch witnessVersion {
	case 0:
		if version != bech32.Version0 {
			return nil, true, fmt.Errorf("%w: witness v0 must use bech32", ErrInvalidAddress)
		}
		switch len(program) {
		case Hash160Length:
			d.Type = TypeP2WPKH
		case 32:
			d.Type = TypeP2WSH
		default:
			return nil, true, fmt.Errorf("%w: witness v0 program is %d bytes", ErrInvalidLength, len(program))
		}
		d.Family = FamilyBitcoinSegwitV0
	case 1:
		if version != bech32.VersionM {
			return nil, true, fmt.Errorf("%w: witness v1 must use bech32m", ErrInvalidAddress)
		}
		if len(program) != 32 {
			return nil, true, fmt.Errorf("%w: taproot program is %d bytes", ErrInvalidLength, len(program))
		}
		d.Family = FamilyBitcoinTaproot
		d.Type = TypeP2TR
	default:
		return nil, true, fmt.Errorf("%w: unsupported witness version %d", ErrInvalidAddress, witnessVersion)
	}
	return d, true, nil
}

// matchBase58Check commits when the input decodes to within one byte of the
// legacy base58check length, so a corrupted leading character still lands
// here. No SS58 length class overlaps that range. A checksum failure reports
// ErrChecksumMismatch and an unrecognized version byte reports
// ErrInvalidAddress.
func matchBase58Check(s string) (*Decoded, bool, error) {
	n := len(base58.Decode(s))
	if n < base58CheckLength-1 || n > base58CheckLength+1 {
		return nil, false, nil
	}

	payload, version, err := base58.CheckDecode(s)
	if err != nil {
		if errors.Is(err, base58.ErrChecksum) {
			return nil, true, ErrChecksumMismatch
		}
		return nil, true, fmt.Errorf("%w: base58check: %v", ErrInvalidAddress, err)
	}
	if n != base58CheckLength {
		return nil, true, fmt.Errorf("%w: base58check payload of %d bytes", ErrInvalidLength, len(payload))
	}

	lv, ok := legacyVersions[version]
	if !ok {
		return nil, true, fmt.Errorf("%w: unknown version byte 0x%02x", ErrInvalidAddress, version)
	}
	return &Decoded{
		Family:  FamilyBitcoinLegacy,
		Network: lv.network,
		Type:    lv.typ,
		Bytes:   payload,
		Version: version,
	}, true, nil
}

// encodeLegacy renders base58check(version || raw).
func encodeLegacy(raw []byte, p Params) (string, error) {
	if len(raw) != Hash160Length {
		return "", fmt.Errorf("%w: legacy address needs %d bytes, got %d", ErrInvalidLength, Hash160Length, len(raw))
	}
	params, err := chainParams(p.Network)
	if err != nil {
		return "", err
	}
	version := params.PubKeyHashAddrID
	if p.ScriptHash {
		version = params.ScriptHashAddrID
	}
	return base58.CheckEncode(raw, version), nil
}

// encodeWitness renders bech32 (v0) or bech32m (v1) over
// witnessVersion || 5-bit(raw).
func encodeWitness(raw []byte, witnessVersion byte, p Params) (string, error) {
	switch witnessVersion {
	case 0:
		if len(raw) != Hash160Length && len(raw) != 32 {
			return "", fmt.Errorf("%w: witness v0 program must be 20 or 32 bytes, got %d", ErrInvalidLength, len(raw))
		}
	case 1:
		if len(raw) != 32 {
			return "", fmt.Errorf("%w: taproot program must be 32 bytes, got %d", ErrInvalidLength, len(raw))
		}
	}
	params, err := chainParams(p.Network)
	if err != nil {
		return "", err
	}

	conv, err := bech32.ConvertBits(raw, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("convert bits: %w", err)
	}
	data := append([]byte{witnessVersion}, conv...)

	if witnessVersion == 0 {
		return bech32.Encode(params.Bech32HRPSegwit, data)
	}
	return bech32.EncodeM(params.Bech32HRPSegwit, data)
}
