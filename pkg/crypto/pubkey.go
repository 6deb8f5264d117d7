package crypto

import (
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// EVMAddressFromPubKey derives the 20-byte EVM address of a secp256k1
// public key. Both compressed (33-byte) and uncompressed (65-byte) keys are
// accepted.
// Address = Keccak256(uncompressed_pubkey[1:])[12:].
func EVMAddressFromPubKey(pubKey []byte) (common.Address, error) {
	key, err := secp256k1.ParsePubKey(pubKey)
	if err != nil {
		return common.Address{}, fmt.Errorf("parse secp256k1 pubkey: %w", err)
	}
	uncompressed := key.SerializeUncompressed()
	h := ethcrypto.Keccak256(uncompressed[1:])
	return common.BytesToAddress(h[12:]), nil
}
