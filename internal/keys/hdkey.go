package keys

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tyler-smith/go-bip32"

	"github.com/Klingon-tech/klingscan/pkg/crypto"
)

// BIP-44 derivation path constants.
// Full path: m/44'/60'/account'/change/index
const (
	// PurposeBIP44 is the BIP-44 purpose field (hardened).
	PurposeBIP44 = bip32.FirstHardenedChild + 44

	// CoinTypeEthereum is the SLIP-44 coin type used by EVM wallets (hardened).
	CoinTypeEthereum = bip32.FirstHardenedChild + 60

	// ChangeExternal is the receiving branch.
	ChangeExternal = 0
)

// MaxDerive bounds how many accounts one call may derive.
const MaxDerive = 100

// HDKey represents a hierarchical deterministic key (BIP-32).
type HDKey struct {
	key *bip32.Key
}

// NewMasterKey creates a master HD key from a 64-byte seed.
func NewMasterKey(seed []byte) (*HDKey, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", SeedSize, len(seed))
	}
	master, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("create master key: %w", err)
	}
	return &HDKey{key: master}, nil
}

// DeriveChild derives a child key at the given index.
// For hardened derivation, add bip32.FirstHardenedChild to the index.
func (k *HDKey) DeriveChild(index uint32) (*HDKey, error) {
	child, err := k.key.NewChildKey(index)
	if err != nil {
		return nil, fmt.Errorf("derive child %d: %w", index, err)
	}
	return &HDKey{key: child}, nil
}

// DerivePath derives a key along a sequence of indices.
func (k *HDKey) DerivePath(indices ...uint32) (*HDKey, error) {
	current := k
	for _, idx := range indices {
		child, err := current.DeriveChild(idx)
		if err != nil {
			return nil, err
		}
		current = child
	}
	return current, nil
}

// DeriveEVM derives the key at m/44'/60'/account'/0/index.
func (k *HDKey) DeriveEVM(account, index uint32) (*HDKey, error) {
	return k.DerivePath(
		PurposeBIP44,
		CoinTypeEthereum,
		bip32.FirstHardenedChild+account,
		ChangeExternal,
		index,
	)
}

// PublicKeyBytes returns the compressed 33-byte public key.
func (k *HDKey) PublicKeyBytes() []byte {
	pub := k.key.PublicKey()
	return pub.Key
}

// Address returns the EVM address of the key.
func (k *HDKey) Address() (common.Address, error) {
	return crypto.EVMAddressFromPubKey(k.PublicKeyBytes())
}

// IsPrivate returns true if this key contains a private key.
func (k *HDKey) IsPrivate() bool {
	return k.key.IsPrivate
}

// Depth returns the derivation depth (0 for master).
func (k *HDKey) Depth() uint8 {
	return k.key.Depth
}

// Neuter returns a public-key-only copy.
func (k *HDKey) Neuter() *HDKey {
	return &HDKey{key: k.key.PublicKey()}
}

// Derived is one watch-only account produced by DeriveEVMAccounts.
type Derived struct {
	Path      string
	PublicKey []byte
	Address   common.Address
}

// DeriveEVMAccounts derives count consecutive receiving keys starting at
// index first under the given BIP-44 account. The seed is wiped on return.
func DeriveEVMAccounts(seed []byte, account, first uint32, count int) ([]Derived, error) {
	defer wipe(seed)

	if count < 1 || count > MaxDerive {
		return nil, fmt.Errorf("count must be between 1 and %d, got %d", MaxDerive, count)
	}
	master, err := NewMasterKey(seed)
	if err != nil {
		return nil, err
	}
	branch, err := master.DerivePath(PurposeBIP44, CoinTypeEthereum, bip32.FirstHardenedChild+account, ChangeExternal)
	if err != nil {
		return nil, err
	}

	out := make([]Derived, 0, count)
	for i := 0; i < count; i++ {
		index := first + uint32(i)
		child, err := branch.DeriveChild(index)
		if err != nil {
			return nil, err
		}
		addr, err := child.Address()
		if err != nil {
			return nil, err
		}
		out = append(out, Derived{
			Path:      fmt.Sprintf("m/44'/60'/%d'/0/%d", account, index),
			PublicKey: child.PublicKeyBytes(),
			Address:   addr,
		})
	}
	return out, nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
