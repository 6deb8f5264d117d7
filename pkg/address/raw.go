package address

import (
	"encoding/hex"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// EVMAddressLength is the byte length of an EVM account address.
const EVMAddressLength = common.AddressLength

// matchRaw accepts 0x-prefixed, even-length hex. It never commits: input
// that only looks like hex falls through to the remaining matchers.
func matchRaw(s string) (*Decoded, bool, error) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return nil, false, nil
	}
	body := s[2:]
	if len(body) == 0 || len(body)%2 != 0 {
		return nil, false, nil
	}
	b, err := hex.DecodeString(body)
	if err != nil {
		return nil, false, nil
	}
	typ := TypeHex
	if len(b) == EVMAddressLength {
		typ = TypeEthereum
	}
	return &Decoded{
		Family:  FamilyRaw,
		Network: NetworkUnknown,
		Type:    typ,
		Bytes:   b,
	}, true, nil
}

// encodeRaw renders bytes as 0x-hex, EIP-55 checksummed for 20-byte input.
func encodeRaw(raw []byte) (string, error) {
	if len(raw) == 0 {
		return "", ErrInvalidLength
	}
	if len(raw) == EVMAddressLength {
		return common.BytesToAddress(raw).Hex(), nil
	}
	return "0x" + hex.EncodeToString(raw), nil
}

// IsEthereumAddress reports whether s is a 0x-prefixed 20-byte hex address.
func IsEthereumAddress(s string) bool {
	return (strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")) && common.IsHexAddress(s)
}
