// Package registry persists the network table and account list that the
// decoder resolves signing requests against.
package registry

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Klingon-tech/klingscan/internal/log"
	"github.com/Klingon-tech/klingscan/internal/storage"
	"github.com/Klingon-tech/klingscan/pkg/address"
	"github.com/Klingon-tech/klingscan/pkg/crypto"
	"github.com/Klingon-tech/klingscan/pkg/uos"
)

// Registry errors.
var (
	ErrNetworkNotFound = errors.New("network not found")
	ErrAccountNotFound = errors.New("account not found")
	ErrInvalidNetwork  = errors.New("invalid network")
	ErrInvalidAccount  = errors.New("invalid account")
)

// Key namespaces inside the backing store.
var (
	networkPrefix = []byte("net/")
	accountPrefix = []byte("acct/")
	metaPrefix    = []byte("meta/")
	seededKey     = []byte("seeded")
)

// Registry stores networks keyed by slug and accounts keyed by their
// canonical address. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	networks *storage.PrefixDB
	accounts *storage.PrefixDB
	meta     *storage.PrefixDB
}

// New returns a registry over db. The caller owns db and closes it.
func New(db storage.DB) *Registry {
	return &Registry{
		networks: storage.NewPrefixDB(db, networkPrefix),
		accounts: storage.NewPrefixDB(db, accountPrefix),
		meta:     storage.NewPrefixDB(db, metaPrefix),
	}
}

// Seed writes DefaultNetworks the first time it runs against a store. With
// force set the network table is replaced by the defaults.
func (r *Registry) Seed(force bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	seeded, err := r.meta.Has(seededKey)
	if err != nil {
		return fmt.Errorf("check seed marker: %w", err)
	}
	if seeded && !force {
		return nil
	}
	if force {
		if err := r.networks.DeleteAll(); err != nil {
			return fmt.Errorf("clear networks: %w", err)
		}
	}

	batch := r.networks.NewBatch()
	for _, n := range DefaultNetworks() {
		data, err := json.Marshal(n)
		if err != nil {
			return fmt.Errorf("encode network %s: %w", n.Slug, err)
		}
		if err := batch.Put([]byte(n.Slug), data); err != nil {
			return err
		}
	}
	if err := batch.Commit(); err != nil {
		return fmt.Errorf("seed networks: %w", err)
	}
	if err := r.meta.Put(seededKey, []byte{1}); err != nil {
		return fmt.Errorf("write seed marker: %w", err)
	}

	log.Registry.Info().Int("networks", len(DefaultNetworks())).Bool("force", force).Msg("Seeded network table")
	return nil
}

// ValidateNetwork checks a network descriptor before it is stored.
func ValidateNetwork(n uos.NetworkDescriptor) error {
	if strings.TrimSpace(n.Slug) == "" {
		return fmt.Errorf("%w: slug is required", ErrInvalidNetwork)
	}
	g := strings.TrimPrefix(strings.ToLower(n.GenesisHash), "0x")
	b, err := hex.DecodeString(g)
	if err != nil || len(b) != uos.GenesisHashLength {
		return fmt.Errorf("%w: genesis hash must be %d hex bytes", ErrInvalidNetwork, uos.GenesisHashLength)
	}
	if n.SS58Prefix < -1 || n.SS58Prefix > address.MaxSS58Prefix || n.SS58Prefix == 46 || n.SS58Prefix == 47 {
		return fmt.Errorf("%w: ss58 prefix %d", ErrInvalidNetwork, n.SS58Prefix)
	}
	if !n.IsEthereum && n.ChainID != 0 {
		return fmt.Errorf("%w: chain id set on a non-EVM network", ErrInvalidNetwork)
	}
	return nil
}

// AddNetwork inserts or replaces a network.
func (r *Registry) AddNetwork(n uos.NetworkDescriptor) error {
	if err := ValidateNetwork(n); err != nil {
		return err
	}
	n.GenesisHash = "0x" + strings.TrimPrefix(strings.ToLower(n.GenesisHash), "0x")
	if n.Name == "" {
		n.Name = n.Slug
	}

	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode network: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.networks.Put([]byte(n.Slug), data); err != nil {
		return fmt.Errorf("store network: %w", err)
	}
	log.Registry.Info().Str("slug", n.Slug).Bool("evm", n.IsEthereum).Msg("Network added")
	return nil
}

// RemoveNetwork deletes a network by slug.
func (r *Registry) RemoveNetwork(slug string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ok, err := r.networks.Has([]byte(slug))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNetworkNotFound, slug)
	}
	if err := r.networks.Delete([]byte(slug)); err != nil {
		return fmt.Errorf("delete network: %w", err)
	}
	log.Registry.Info().Str("slug", slug).Msg("Network removed")
	return nil
}

// Network returns one network by slug.
func (r *Registry) Network(slug string) (*uos.NetworkDescriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	data, err := r.networks.Get([]byte(slug))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNetworkNotFound, slug)
	}
	if err != nil {
		return nil, err
	}
	var n uos.NetworkDescriptor
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("decode network %s: %w", slug, err)
	}
	return &n, nil
}

// Networks returns every network ordered by slug.
func (r *Registry) Networks() ([]uos.NetworkDescriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []uos.NetworkDescriptor
	err := r.networks.ForEach(nil, func(key, value []byte) error {
		var n uos.NetworkDescriptor
		if err := json.Unmarshal(value, &n); err != nil {
			return fmt.Errorf("decode network %s: %w", key, err)
		}
		out = append(out, n)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// accountKey is the storage key of an account: its canonical address, or the
// all-accounts sentinel.
func accountKey(addr string) ([]byte, error) {
	if uos.IsAccountAll(addr) {
		return []byte(uos.AccountAll), nil
	}
	canon, err := address.Canonical(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAccount, err)
	}
	return []byte(canon), nil
}

// AddAccount inserts or replaces an account. The address must decode under
// one of the supported families.
func (r *Registry) AddAccount(a uos.Account) error {
	a.Address = strings.TrimSpace(a.Address)
	key, err := accountKey(a.Address)
	if err != nil {
		return err
	}
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode account: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.accounts.Put(key, data); err != nil {
		return fmt.Errorf("store account: %w", err)
	}
	log.Registry.Info().
		Str("address", a.Address).
		Str("keypair", address.KeypairType(a.Address)).
		Bool("external", a.External).
		Msg("Account added")
	return nil
}

// AddEVMPublicKey derives the EVM address of a secp256k1 public key (hex,
// compressed or uncompressed) and stores it as an account.
func (r *Registry) AddEVMPublicKey(name, pubKeyHex string, external bool) (uos.Account, error) {
	pub, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(pubKeyHex), "0x"))
	if err != nil {
		return uos.Account{}, fmt.Errorf("%w: public key is not hex", ErrInvalidAccount)
	}
	addr, err := crypto.EVMAddressFromPubKey(pub)
	if err != nil {
		return uos.Account{}, fmt.Errorf("%w: %v", ErrInvalidAccount, err)
	}
	a := uos.Account{Address: addr.Hex(), Name: name, External: external}
	if err := r.AddAccount(a); err != nil {
		return uos.Account{}, err
	}
	return a, nil
}

// RemoveAccount deletes an account by any accepted form of its address.
func (r *Registry) RemoveAccount(addr string) error {
	key, err := accountKey(addr)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	ok, err := r.accounts.Has(key)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, addr)
	}
	if err := r.accounts.Delete(key); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	log.Registry.Info().Str("address", addr).Msg("Account removed")
	return nil
}

// Accounts returns every account ordered by canonical address.
func (r *Registry) Accounts() ([]uos.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []uos.Account
	err := r.accounts.ForEach(nil, func(key, value []byte) error {
		var a uos.Account
		if err := json.Unmarshal(value, &a); err != nil {
			return fmt.Errorf("decode account %s: %w", key, err)
		}
		out = append(out, a)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Snapshot returns the network table and account list together, ready to
// pass to uos.Parse.
func (r *Registry) Snapshot() ([]uos.NetworkDescriptor, []uos.Account, error) {
	networks, err := r.Networks()
	if err != nil {
		return nil, nil, err
	}
	accounts, err := r.Accounts()
	if err != nil {
		return nil, nil, err
	}
	return networks, accounts, nil
}
