package uos

import (
	"encoding/hex"
	"fmt"
)

// Resolution is the outcome of matching a request to a network and sender.
type Resolution struct {
	Network *NetworkDescriptor
	Account *ResolvedAccount
	// AddressLength is the candidate length used for the match, in bytes.
	AddressLength int
}

// Resolve finds the network for genesisHash and the local account whose key
// or address is the front of candidate.
//
// Non-EVM networks are tried before EVM ones. The first interpretation that
// yields both a network and an account wins. When a network matches but no
// account does, the first matching network is returned together with
// ErrNoMatchingAccount so the caller can report an unknown sender rather
// than an unknown network.
func Resolve(genesisHash, candidate []byte, networks []NetworkDescriptor, accounts []Account) (*Resolution, error) {
	fragment := hex.EncodeToString(genesisHash)

	var partial *Resolution
	for _, ethereum := range []bool{false, true} {
		network := FindNetworkByGenesis(networks, fragment, ethereum)
		if network == nil {
			continue
		}

		n := network.AddressByteLength()
		res := &Resolution{Network: network, AddressLength: n}
		if partial == nil {
			partial = res
		}
		if len(candidate) < n {
			continue
		}

		key := candidate[:n]
		acc := FindAccount(accounts, "0x"+hex.EncodeToString(key))
		if acc == nil {
			continue
		}
		pub := make([]byte, n)
		copy(pub, key)
		res.Account = &ResolvedAccount{Account: *acc, PublicKey: pub}
		return res, nil
	}

	if partial == nil {
		return nil, fmt.Errorf("%w: 0x%s", ErrNoMatchingNetwork, fragment)
	}
	return partial, fmt.Errorf("%w on %s", ErrNoMatchingAccount, partial.Network.Name)
}
