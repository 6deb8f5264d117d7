// Package crypto provides the hash primitives used by the address codec and
// the UOS decoder.
package crypto

import (
	"golang.org/x/crypto/blake2b"
)

// ss58Context is prepended to every SS58 checksum preimage.
var ss58Context = []byte("SS58PRE")

// Blake2b256 computes a BLAKE2b-256 digest of the input data.
func Blake2b256(data []byte) [32]byte {
	return blake2b.Sum256(data)
}

// Blake2b512 computes a BLAKE2b-512 digest of the input data.
func Blake2b512(data []byte) [64]byte {
	return blake2b.Sum512(data)
}

// SS58Checksum returns the BLAKE2b-512 digest of "SS58PRE" || data.
// Callers keep the first one or two bytes depending on the payload length.
func SS58Checksum(data []byte) [64]byte {
	buf := make([]byte, 0, len(ss58Context)+len(data))
	buf = append(buf, ss58Context...)
	buf = append(buf, data...)
	return Blake2b512(buf)
}
