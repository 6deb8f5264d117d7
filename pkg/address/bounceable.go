package address

import (
	"fmt"

	tonaddr "github.com/xssnick/tonutils-go/address"
)

// bounceableHashLength is the account hash length inside a bounceable address.
const bounceableHashLength = 32

// BounceableLength is the raw length for FamilyBounceable: workchain + hash.
const BounceableLength = 1 + bounceableHashLength

// bounceableEncodedLength is the user-friendly base64 form of
// flags(1) + workchain(1) + hash(32) + crc16(2).
const bounceableEncodedLength = 48

// matchBounceable tries the base64-url user-friendly form. It never commits:
// base58 strings may share the alphabet and length, so a failed parse falls
// through to SS58.
func matchBounceable(s string) (*Decoded, bool, error) {
	if len(s) != bounceableEncodedLength {
		return nil, false, nil
	}
	a, err := tonaddr.ParseAddr(s)
	if err != nil {
		return nil, false, nil
	}

	raw := make([]byte, 0, BounceableLength)
	raw = append(raw, byte(int8(a.Workchain())))
	raw = append(raw, a.Data()...)

	d := &Decoded{
		Family:  FamilyBounceable,
		Network: NetworkMainnet,
		Type:    TypeNonBounceable,
		Bytes:   raw,
	}
	if a.IsTestnetOnly() {
		d.Network = NetworkTestnet
	}
	if a.IsBounceable() {
		d.Type = TypeBounceable
	}
	return d, true, nil
}

// encodeBounceable wraps workchain+hash with the bounce and test-only flags.
func encodeBounceable(raw []byte, p Params) (string, error) {
	if len(raw) != BounceableLength {
		return "", fmt.Errorf("%w: bounceable address needs %d bytes, got %d", ErrInvalidLength, BounceableLength, len(raw))
	}
	hash := make([]byte, bounceableHashLength)
	copy(hash, raw[1:])

	a := tonaddr.NewAddress(0, raw[0], hash)
	a.SetBounce(p.Bounceable)
	a.SetTestnetOnly(p.Network == NetworkTestnet)
	return a.String(), nil
}
