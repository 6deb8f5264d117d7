package address

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/Klingon-tech/klingscan/pkg/crypto"
)

// Decode converts an address string of any supported family into its raw
// bytes. Fails with ErrInvalidAddress when no family accepts the input and
// with ErrChecksumMismatch when a base-58 form parses but its checksum does
// not.
func Decode(s string) ([]byte, error) {
	d, err := Match(s)
	if err != nil {
		return nil, err
	}
	return d.Bytes, nil
}

// Info reports the family, network and sub-kind of an address string.
func Info(s string) (FormatInfo, error) {
	d, err := Match(s)
	if err != nil {
		return FormatInfo{}, err
	}
	return d.Info(), nil
}

// Encode renders raw bytes in the family selected by p. The zero Params
// encodes SS58 with prefix 0; use EncodeSS58 for the common default.
//
// Decode(Encode(raw, p)) returns raw for every accepted (raw, p).
func Encode(raw []byte, p Params) (string, error) {
	switch p.Family {
	case FamilySS58:
		return EncodeSS58(raw, p.SS58Prefix)
	case FamilyRaw:
		return encodeRaw(raw)
	case FamilyBitcoinLegacy:
		return encodeLegacy(raw, p)
	case FamilyBitcoinSegwitV0:
		return encodeWitness(raw, 0, p)
	case FamilyBitcoinTaproot:
		return encodeWitness(raw, 1, p)
	case FamilyBounceable:
		return encodeBounceable(raw, p)
	default:
		return "", fmt.Errorf("%w: %d", ErrUnknownFamily, p.Family)
	}
}

// Reformat re-encodes a key-bearing address (SS58 or raw hex) under another
// SS58 prefix, or as an EVM address when ethereum is set. Addresses that
// cannot be re-encoded, EVM addresses, and a negative prefix return the input
// unchanged.
func Reformat(s string, prefix int, ethereum bool) string {
	if IsEthereumAddress(s) {
		return s
	}
	d, err := Match(s)
	if err != nil || (d.Family != FamilySS58 && d.Family != FamilyRaw) {
		return s
	}

	if ethereum {
		switch len(d.Bytes) {
		case EVMAddressLength:
			out, err := encodeRaw(d.Bytes)
			if err != nil {
				return s
			}
			return out
		case 33, 65:
			addr, err := crypto.EVMAddressFromPubKey(d.Bytes)
			if err != nil {
				return s
			}
			return addr.Hex()
		default:
			return s
		}
	}

	if prefix < 0 || prefix > MaxSS58Prefix {
		return s
	}
	out, err := EncodeSS58(d.Bytes, uint16(prefix))
	if err != nil {
		return s
	}
	return out
}

// Canonical returns the normal form used to compare addresses
// case-insensitively: EVM addresses as lower-case hex, SS58 and bare public
// keys as SS58 under the generic prefix, bech32 in lower case, everything
// else as given.
func Canonical(s string) (string, error) {
	d, err := Match(s)
	if err != nil {
		return "", err
	}
	switch d.Family {
	case FamilyRaw:
		if ss58PayloadLengths[len(d.Bytes)] && len(d.Bytes) != EVMAddressLength {
			return EncodeSS58(d.Bytes, DefaultSS58Prefix)
		}
		return "0x" + hex.EncodeToString(d.Bytes), nil
	case FamilySS58:
		return EncodeSS58(d.Bytes, DefaultSS58Prefix)
	case FamilyBitcoinSegwitV0, FamilyBitcoinTaproot:
		return strings.ToLower(strings.TrimSpace(s)), nil
	default:
		return strings.TrimSpace(s), nil
	}
}

// Equal reports whether two address strings name the same account after
// canonicalization. Strings that fail to decode compare case-insensitively.
func Equal(a, b string) bool {
	ca, errA := Canonical(a)
	cb, errB := Canonical(b)
	if errA != nil {
		ca = a
	}
	if errB != nil {
		cb = b
	}
	return strings.EqualFold(ca, cb)
}

// Keypair types guessed from an address.
const (
	KeypairEthereum  = "ethereum"
	KeypairSr25519   = "sr25519"
	KeypairTonNative = "ton-native"
)

// KeypairType guesses the key scheme that produced an address. Bitcoin
// addresses map to their BIP purpose (44 legacy, 84 segwit, 86 taproot) on
// mainnet ("bitcoin-") or test networks ("bittest-"). Anything unrecognized
// is assumed to be sr25519.
func KeypairType(s string) string {
	if IsEthereumAddress(s) {
		return KeypairEthereum
	}

	d, err := Match(s)
	if err != nil {
		return KeypairSr25519
	}

	purpose := ""
	switch d.Type {
	case TypeP2PKH:
		purpose = "44"
	case TypeP2WPKH:
		purpose = "84"
	case TypeP2TR:
		purpose = "86"
	}
	if purpose != "" {
		if d.Network == NetworkMainnet {
			return "bitcoin-" + purpose
		}
		return "bittest-" + purpose
	}

	if d.Family == FamilyBounceable {
		return KeypairTonNative
	}
	return KeypairSr25519
}
