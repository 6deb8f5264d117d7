package uos

import (
	"strings"

	"github.com/Klingon-tech/klingscan/pkg/address"
)

// Candidate address lengths in bytes.
const (
	SubstrateAddressLength = address.PublicKeyLength
	EVMAddressLength       = address.EVMAddressLength
	GenesisHashLength      = 32
)

// NetworkDescriptor is one entry of the caller's network table.
type NetworkDescriptor struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	GenesisHash string `json:"genesisHash"`
	IsEthereum  bool   `json:"isEthereum"`
	// SS58Prefix is the substrate address prefix, -1 when the network has none.
	SS58Prefix int `json:"ss58Prefix"`
	// ChainID is the EVM chain id, zero for non-EVM networks.
	ChainID uint64 `json:"chainId,omitempty"`
}

// AddressByteLength is the length of the sender address embedded in a
// request for this network.
func (n *NetworkDescriptor) AddressByteLength() int {
	if n.IsEthereum {
		return EVMAddressLength
	}
	return SubstrateAddressLength
}

// MatchesGenesis reports whether the network's genesis hash starts with the
// given hex fragment, ignoring case and a 0x prefix.
func (n *NetworkDescriptor) MatchesGenesis(fragment string) bool {
	want := normalizeHex(fragment)
	have := normalizeHex(n.GenesisHash)
	if want == "" || have == "" {
		return false
	}
	return strings.HasPrefix(have, want)
}

// FindNetworkByGenesis returns the first network whose EVM flag equals
// ethereum and whose genesis hash matches the fragment.
func FindNetworkByGenesis(networks []NetworkDescriptor, fragment string, ethereum bool) *NetworkDescriptor {
	for i := range networks {
		n := &networks[i]
		if n.IsEthereum != ethereum {
			continue
		}
		if n.MatchesGenesis(fragment) {
			return n
		}
	}
	return nil
}

func normalizeHex(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.TrimPrefix(s, "0x")
}
