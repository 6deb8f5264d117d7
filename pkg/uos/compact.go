package uos

import (
	"fmt"
	"math/big"
)

// SCALE compact integer modes, selected by the two low bits of the first byte.
const (
	compactSingleByte = 0b00
	compactTwoByte    = 0b01
	compactFourByte   = 0b10
	compactBigInteger = 0b11
)

// decodeCompact reads a SCALE compact-encoded unsigned integer from the
// front of b. It returns the number of bytes the prefix occupies and its
// value.
func decodeCompact(b []byte) (int, *big.Int, error) {
	if len(b) == 0 {
		return 0, nil, fmt.Errorf("%w: empty compact prefix", ErrTruncatedPayload)
	}

	switch b[0] & 0b11 {
	case compactSingleByte:
		return 1, big.NewInt(int64(b[0] >> 2)), nil
	case compactTwoByte:
		if len(b) < 2 {
			return 0, nil, fmt.Errorf("%w: two-byte compact prefix", ErrTruncatedPayload)
		}
		v := (uint64(b[0]) | uint64(b[1])<<8) >> 2
		return 2, new(big.Int).SetUint64(v), nil
	case compactFourByte:
		if len(b) < 4 {
			return 0, nil, fmt.Errorf("%w: four-byte compact prefix", ErrTruncatedPayload)
		}
		v := (uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 | uint64(b[3])<<24) >> 2
		return 4, new(big.Int).SetUint64(v), nil
	default:
		n := int(b[0]>>2) + 4
		if len(b) < 1+n {
			return 0, nil, fmt.Errorf("%w: %d-byte compact integer", ErrTruncatedPayload, n)
		}
		// Little-endian magnitude; big.Int wants big-endian.
		be := make([]byte, n)
		for i := 0; i < n; i++ {
			be[n-1-i] = b[1+i]
		}
		return 1 + n, new(big.Int).SetBytes(be), nil
	}
}

// stripCompactPrefix returns b without its leading compact length prefix.
func stripCompactPrefix(b []byte) ([]byte, error) {
	n, _, err := decodeCompact(b)
	if err != nil {
		return nil, err
	}
	return b[n:], nil
}

// encodeCompact renders v in the shortest SCALE compact form.
func encodeCompact(v uint64) []byte {
	switch {
	case v < 1<<6:
		return []byte{byte(v << 2)}
	case v < 1<<14:
		x := v<<2 | compactTwoByte
		return []byte{byte(x), byte(x >> 8)}
	case v < 1<<30:
		x := v<<2 | compactFourByte
		return []byte{byte(x), byte(x >> 8), byte(x >> 16), byte(x >> 24)}
	default:
		var le []byte
		for x := v; x > 0; x >>= 8 {
			le = append(le, byte(x))
		}
		return append([]byte{byte(len(le)-4)<<2 | compactBigInteger}, le...)
	}
}
