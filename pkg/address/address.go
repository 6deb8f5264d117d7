// Package address converts between raw public-key/hash bytes and the
// human-facing address strings of the supported chain families.
//
// Supported families:
//   - SS58: checksummed base-58 with a 1 or 2 byte network prefix
//   - Bitcoin legacy: base58check P2PKH/P2SH
//   - Bitcoin witness: bech32 (v0) and bech32m (v1, taproot)
//   - Bounceable: base64-url workchain+hash with bounce/test flags
//   - Raw: 0x-prefixed hex (EVM addresses, bare public keys)
package address

import (
	"errors"
)

// Codec errors. Messages are shown to the end user verbatim.
var (
	ErrInvalidAddress   = errors.New("invalid address")
	ErrChecksumMismatch = errors.New("invalid decoded address checksum")
	ErrInvalidLength    = errors.New("invalid decoded address length")
	ErrInvalidPrefix    = errors.New("invalid address prefix")
	ErrUnknownFamily    = errors.New("unknown address family")
)

// Family identifies an address encoding scheme.
type Family uint8

// Address families. The zero value is SS58, the default encode path.
const (
	FamilySS58 Family = iota
	FamilyRaw
	FamilyBitcoinLegacy
	FamilyBitcoinSegwitV0
	FamilyBitcoinTaproot
	FamilyBounceable
)

// String returns the family name.
func (f Family) String() string {
	switch f {
	case FamilySS58:
		return "ss58"
	case FamilyRaw:
		return "raw"
	case FamilyBitcoinLegacy:
		return "bitcoin-legacy"
	case FamilyBitcoinSegwitV0:
		return "bitcoin-segwit-v0"
	case FamilyBitcoinTaproot:
		return "bitcoin-taproot"
	case FamilyBounceable:
		return "bounceable"
	default:
		return "unknown"
	}
}

// ParseFamily parses a family name as produced by Family.String.
func ParseFamily(s string) (Family, error) {
	switch s {
	case "ss58", "":
		return FamilySS58, nil
	case "raw", "hex", "ethereum":
		return FamilyRaw, nil
	case "bitcoin-legacy", "p2pkh", "p2sh":
		return FamilyBitcoinLegacy, nil
	case "bitcoin-segwit-v0", "p2wpkh", "p2wsh":
		return FamilyBitcoinSegwitV0, nil
	case "bitcoin-taproot", "p2tr":
		return FamilyBitcoinTaproot, nil
	case "bounceable", "ton":
		return FamilyBounceable, nil
	default:
		return 0, ErrUnknownFamily
	}
}

// MarshalText implements encoding.TextMarshaler.
func (f Family) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Family) UnmarshalText(b []byte) error {
	parsed, err := ParseFamily(string(b))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// Network is the network an address was issued for, when the family encodes it.
type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkTestnet Network = "testnet"
	NetworkRegtest Network = "regtest"
	NetworkUnknown Network = "unknown"
)

// Address sub-kinds reported in Decoded.Type and FormatInfo.Type.
const (
	TypeP2PKH         = "p2pkh"
	TypeP2SH          = "p2sh"
	TypeP2WPKH        = "p2wpkh"
	TypeP2WSH         = "p2wsh"
	TypeP2TR          = "p2tr"
	TypeBounceable    = "bounceable"
	TypeNonBounceable = "non-bounceable"
	TypeSS58          = "ss58"
	TypeEthereum      = "ethereum"
	TypeHex           = "hex"
)

// Decoded is the result of matching an address string.
type Decoded struct {
	Family  Family
	Network Network
	Type    string
	// Bytes holds the public key, hash, or workchain+hash.
	Bytes []byte
	// Prefix is the SS58 network prefix (SS58 only).
	Prefix uint16
	// Version is the base58check version byte (Bitcoin legacy only).
	Version byte
}

// FormatInfo describes an address without exposing its bytes.
type FormatInfo struct {
	Family  Family  `json:"family"`
	Network Network `json:"network"`
	Type    string  `json:"type"`
}

// Info returns the format description of a decoded address.
func (d *Decoded) Info() FormatInfo {
	return FormatInfo{Family: d.Family, Network: d.Network, Type: d.Type}
}

// Params selects the target encoding for Encode.
type Params struct {
	Family Family
	// SS58Prefix is the network prefix for FamilySS58 (0..16383, not 46/47).
	SS58Prefix uint16
	// Network selects Bitcoin params or the bounceable test-only flag.
	Network Network
	// ScriptHash selects the P2SH version byte for FamilyBitcoinLegacy.
	ScriptHash bool
	// Bounceable sets the bounce flag for FamilyBounceable.
	Bounceable bool
}
