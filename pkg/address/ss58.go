package address

import (
	"fmt"

	"github.com/mr-tron/base58"

	"github.com/Klingon-tech/klingscan/pkg/crypto"
)

// SS58 prefix limits.
const (
	// MaxSS58Prefix is the largest prefix a two-byte header can carry.
	MaxSS58Prefix = 16383
	// DefaultSS58Prefix is the generic substrate prefix.
	DefaultSS58Prefix = 42
	// PublicKeyLength is the length of an sr25519/ed25519 public key.
	PublicKeyLength = 32
)

// ss58EncodedLengths are the accepted decoded lengths of a full SS58
// string: prefix(1|2) + payload(1,2,4,8,32,33) + checksum(1|2).
var ss58EncodedLengths = map[int]bool{
	3: true, 4: true, 6: true, 10: true,
	35: true, 36: true, 37: true, 38: true,
}

// ss58PayloadLengths are the accepted raw payload lengths.
var ss58PayloadLengths = map[int]bool{
	1: true, 2: true, 4: true, 8: true, 32: true, 33: true,
}

// reservedSS58Prefix reports prefixes that are never valid on the wire.
func reservedSS58Prefix(p uint16) bool {
	return p == 46 || p == 47
}

// ss58ChecksumLength is 2 for public keys (32/33 bytes), 1 otherwise.
func ss58ChecksumLength(payloadLen int) int {
	if payloadLen == 32 || payloadLen == 33 {
		return 2
	}
	return 1
}

// ss58Header encodes the network prefix as one or two bytes.
func ss58Header(prefix uint16) []byte {
	if prefix < 64 {
		return []byte{byte(prefix)}
	}
	return []byte{
		byte((prefix&0x00fc)>>2) | 0x40,
		byte(prefix>>8) | byte((prefix&0x0003)<<6),
	}
}

// matchSS58 is the final fallback. It commits on any input. Once the length
// class passes, the reserved header and prefix checks fail as checksum
// mismatches.
func matchSS58(s string) (*Decoded, bool, error) {
	decoded, err := base58.Decode(s)
	if err != nil || len(decoded) == 0 {
		return nil, true, ErrInvalidAddress
	}
	if !ss58EncodedLengths[len(decoded)] {
		return nil, true, fmt.Errorf("%w: %d bytes", ErrInvalidLength, len(decoded))
	}
	if decoded[0]&0x80 != 0 {
		return nil, true, fmt.Errorf("%w: reserved header bit set", ErrChecksumMismatch)
	}

	headerLen := 1
	prefix := uint16(decoded[0])
	if decoded[0]&0x40 != 0 {
		headerLen = 2
		prefix = uint16(decoded[0]&0x3f)<<2 | uint16(decoded[1]>>6) | uint16(decoded[1]&0x3f)<<8
	}
	if reservedSS58Prefix(uint16(decoded[0])) {
		return nil, true, fmt.Errorf("%w: reserved prefix %d", ErrChecksumMismatch, decoded[0])
	}

	// 32/33-byte public keys carry two checksum bytes.
	isPublicKey := len(decoded) == 34+headerLen || len(decoded) == 35+headerLen
	checksumLen := 1
	if isPublicKey {
		checksumLen = 2
	}
	body := len(decoded) - checksumLen
	if body <= headerLen {
		return nil, true, fmt.Errorf("%w: %d bytes", ErrInvalidLength, len(decoded))
	}

	sum := crypto.SS58Checksum(decoded[:body])
	for i := 0; i < checksumLen; i++ {
		if decoded[body+i] != sum[i] {
			return nil, true, ErrChecksumMismatch
		}
	}

	payload := make([]byte, body-headerLen)
	copy(payload, decoded[headerLen:body])
	return &Decoded{
		Family:  FamilySS58,
		Network: NetworkUnknown,
		Type:    TypeSS58,
		Bytes:   payload,
		Prefix:  prefix,
	}, true, nil
}

// EncodeSS58 renders base58(prefix || raw || checksum). This is the default
// encode path.
func EncodeSS58(raw []byte, prefix uint16) (string, error) {
	if !ss58PayloadLengths[len(raw)] {
		return "", fmt.Errorf("%w: ss58 payload of %d bytes", ErrInvalidLength, len(raw))
	}
	if prefix > MaxSS58Prefix || reservedSS58Prefix(prefix) {
		return "", fmt.Errorf("%w: %d", ErrInvalidPrefix, prefix)
	}

	header := ss58Header(prefix)
	input := make([]byte, 0, len(header)+len(raw)+2)
	input = append(input, header...)
	input = append(input, raw...)

	sum := crypto.SS58Checksum(input)
	input = append(input, sum[:ss58ChecksumLength(len(raw))]...)
	return base58.Encode(input), nil
}
