package uos

import (
	"strings"

	"github.com/Klingon-tech/klingscan/pkg/address"
)

// AccountAll is the sentinel address of the "all accounts" pseudo-account.
const AccountAll = "ALL"

// Account is a locally known account.
type Account struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
	// External accounts are watch-only or held by another signer.
	External bool `json:"external,omitempty"`
}

// IsAll reports whether the account is the all-accounts sentinel.
func (a Account) IsAll() bool {
	return IsAccountAll(a.Address)
}

// ResolvedAccount is the sender a request was matched to.
type ResolvedAccount struct {
	Account
	// PublicKey is the candidate bytes taken from the request.
	PublicKey []byte `json:"publicKey"`
}

// IsAccountAll reports whether s is the all-accounts sentinel.
func IsAccountAll(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), AccountAll)
}

// FindAccount looks up addr in accounts. The all-accounts sentinel is
// matched literally; every other input must decode as an address and is
// compared after canonicalization, ignoring case. Returns nil when nothing
// matches.
func FindAccount(accounts []Account, addr string) *Account {
	if IsAccountAll(addr) {
		for i := range accounts {
			if accounts[i].IsAll() {
				return &accounts[i]
			}
		}
		return nil
	}

	want, err := address.Canonical(addr)
	if err != nil {
		return nil
	}
	for i := range accounts {
		if accounts[i].IsAll() {
			continue
		}
		have, err := address.Canonical(accounts[i].Address)
		if err != nil {
			have = accounts[i].Address
		}
		if strings.EqualFold(have, want) {
			return &accounts[i]
		}
	}
	return nil
}
