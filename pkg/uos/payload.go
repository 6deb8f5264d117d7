// Package uos decodes air-gapped signing requests carried in QR codes using
// the Universal Offline Signatures envelope.
//
// A request arrives as one or more QR frames. Assembler reassembles them,
// Parse classifies the result by chain family and command, extracts the
// payload to be signed, and resolves the sender against the caller's network
// table and account list.
package uos

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Klingon-tech/klingscan/pkg/address"
	"github.com/Klingon-tech/klingscan/pkg/crypto"
)

// Protocol bytes.
const (
	ProtocolSubstrate byte = 0x53
	ProtocolEthereum  byte = 0x45
)

// OversizedThreshold is the largest transaction body signed directly.
// Longer bodies are replaced by their blake2b-256 digest.
const OversizedThreshold = 256

// Chain is the family a request targets.
type Chain uint8

const (
	ChainSubstrate Chain = iota
	ChainEthereum
)

// String returns the chain family name.
func (c Chain) String() string {
	switch c {
	case ChainSubstrate:
		return "substrate"
	case ChainEthereum:
		return "ethereum"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c Chain) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Chain) UnmarshalText(b []byte) error {
	switch string(b) {
	case "substrate":
		*c = ChainSubstrate
	case "ethereum":
		*c = ChainEthereum
	default:
		return fmt.Errorf("unknown chain family %q", b)
	}
	return nil
}

// Action is what the signer is asked to do.
type Action uint8

const (
	ActionSignTransaction Action = iota
	ActionSignData
)

// String returns the action name.
func (a Action) String() string {
	switch a {
	case ActionSignTransaction:
		return "signTransaction"
	case ActionSignData:
		return "signData"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Action) UnmarshalText(b []byte) error {
	switch string(b) {
	case "signTransaction":
		*a = ActionSignTransaction
	case "signData":
		*a = ActionSignData
	default:
		return fmt.Errorf("unknown action %q", b)
	}
	return nil
}

// Crypto is the signature scheme requested.
type Crypto string

const (
	CryptoEd25519  Crypto = "ed25519"
	CryptoSr25519  Crypto = "sr25519"
	CryptoEthereum Crypto = "ethereum"
)

var substrateCrypto = map[byte]Crypto{
	0x00: CryptoEd25519,
	0x01: CryptoSr25519,
}

// Command is the third envelope byte: a substrate command or an Ethereum
// sub-action.
type Command byte

// Substrate commands.
const (
	CommandSignMortal   Command = 0x00
	CommandSignHash     Command = 0x01
	CommandSignImmortal Command = 0x02
	CommandSignMessage  Command = 0x03
)

// Ethereum sub-actions.
const (
	EthereumSignHash        Command = 0x00
	EthereumSignTransaction Command = 0x01
	EthereumSignMessage     Command = 0x02
)

// SigningRequest is a decoded request.
type SigningRequest struct {
	Family  Chain   `json:"family"`
	Action  Action  `json:"action"`
	Crypto  Crypto  `json:"crypto"`
	Command Command `json:"command"`
	// IsHash reports that Payload is a digest rather than the data itself.
	IsHash bool `json:"isHash"`
	// Oversized reports that a substrate transaction body was too long and
	// Payload holds its blake2b-256 digest.
	Oversized bool `json:"oversized"`
	// Payload is the data to sign.
	Payload []byte `json:"payload"`
	// RawPayload is the payload as carried in the envelope.
	RawPayload []byte `json:"rawPayload"`

	Account *ResolvedAccount `json:"account,omitempty"`
	// Sender is the sender address formatted for the network.
	Sender      string             `json:"sender"`
	GenesisHash []byte             `json:"genesisHash,omitempty"`
	Network     *NetworkDescriptor `json:"network,omitempty"`
	Transaction *EVMTransaction    `json:"transaction,omitempty"`
}

// Parse decodes an assembled request.
//
// When the network is known but the sender is not, Parse returns the
// partially filled request together with an error wrapping
// ErrNoMatchingAccount. Every other error returns a nil request.
func Parse(buf []byte, networks []NetworkDescriptor, accounts []Account) (*SigningRequest, error) {
	if len(buf) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrTruncatedPayload)
	}
	switch buf[0] {
	case ProtocolEthereum:
		return parseEthereum(buf, networks, accounts)
	case ProtocolSubstrate:
		return parseSubstrate(buf, networks, accounts)
	default:
		return nil, fmt.Errorf("%w: protocol byte 0x%02x", ErrUnrecognizedProtocol, buf[0])
	}
}

func parseEthereum(buf []byte, networks []NetworkDescriptor, accounts []Account) (*SigningRequest, error) {
	r := newReader(buf)
	if _, err := r.byte(); err != nil {
		return nil, err
	}
	sub, err := r.byte()
	if err != nil {
		return nil, err
	}

	req := &SigningRequest{
		Family:  ChainEthereum,
		Crypto:  CryptoEthereum,
		Command: Command(sub),
	}
	switch req.Command {
	case EthereumSignHash:
		req.Action = ActionSignData
		req.IsHash = true
	case EthereumSignMessage:
		req.Action = ActionSignData
	case EthereumSignTransaction:
		req.Action = ActionSignTransaction
	default:
		return nil, fmt.Errorf("%w: ethereum sub-action 0x%02x", ErrUnknownCommand, sub)
	}

	sender, err := r.bytes(EVMAddressLength)
	if err != nil {
		return nil, err
	}
	payload := clone(r.rest())
	req.Payload = payload
	req.RawPayload = payload
	req.Sender = common.BytesToAddress(sender).Hex()

	if req.Action == ActionSignTransaction {
		tx, err := DecodeEVMTransaction(payload)
		if err != nil {
			return nil, err
		}
		req.Transaction = tx
		if tx.ChainID != nil {
			req.Network = findNetworkByChainID(networks, tx.ChainID.Uint64())
		}
	}

	acc := FindAccount(accounts, req.Sender)
	if acc == nil {
		return req, fmt.Errorf("%w: %s", ErrNoMatchingAccount, req.Sender)
	}
	req.Account = &ResolvedAccount{Account: *acc, PublicKey: clone(sender)}
	return req, nil
}

func parseSubstrate(buf []byte, networks []NetworkDescriptor, accounts []Account) (*SigningRequest, error) {
	r := newReader(buf)
	if _, err := r.byte(); err != nil {
		return nil, err
	}
	cb, err := r.byte()
	if err != nil {
		return nil, err
	}
	cmd, err := r.byte()
	if err != nil {
		return nil, err
	}

	cryptoType, ok := substrateCrypto[cb]
	if !ok {
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownSignAlgorithm, cb)
	}
	req := &SigningRequest{
		Family:  ChainSubstrate,
		Crypto:  cryptoType,
		Command: Command(cmd),
	}
	switch req.Command {
	case CommandSignMortal, CommandSignImmortal:
		req.Action = ActionSignTransaction
	case CommandSignHash, CommandSignMessage:
		req.Action = ActionSignData
	default:
		return nil, fmt.Errorf("%w: substrate command 0x%02x", ErrUnknownCommand, cmd)
	}

	genesis, err := r.tail(GenesisHashLength)
	if err != nil {
		return nil, err
	}
	req.GenesisHash = clone(genesis)

	candidate := r.peek()
	if len(candidate) > SubstrateAddressLength {
		candidate = candidate[:SubstrateAddressLength]
	}

	res, resolveErr := Resolve(genesis, candidate, networks, accounts)
	if res == nil {
		return nil, resolveErr
	}
	req.Network = res.Network

	key, err := r.bytes(res.AddressLength)
	if err != nil {
		return nil, err
	}
	req.Sender = formatSender(key, res.Network)
	if res.Account != nil {
		req.Account = res.Account
	}

	raw := clone(r.rest())
	req.RawPayload = raw
	switch req.Command {
	case CommandSignMortal, CommandSignImmortal:
		body, err := stripCompactPrefix(raw)
		if err != nil {
			return nil, err
		}
		if len(body) > OversizedThreshold {
			digest := crypto.Blake2b256(body)
			req.Payload = digest[:]
			req.Oversized = true
			req.IsHash = true
		} else {
			req.Payload = body
		}
	case CommandSignHash:
		req.Payload = raw
		req.IsHash = true
	case CommandSignMessage:
		req.Payload = raw
	}

	if resolveErr != nil {
		if errors.Is(resolveErr, ErrNoMatchingAccount) {
			return req, resolveErr
		}
		return nil, resolveErr
	}
	return req, nil
}

// formatSender renders the embedded sender key in the network's native form.
func formatSender(key []byte, n *NetworkDescriptor) string {
	hexKey := "0x" + hex.EncodeToString(key)
	if n == nil {
		return hexKey
	}
	if n.IsEthereum {
		return common.BytesToAddress(key).Hex()
	}
	return address.Reformat(hexKey, n.SS58Prefix, false)
}

func findNetworkByChainID(networks []NetworkDescriptor, id uint64) *NetworkDescriptor {
	for i := range networks {
		if networks[i].IsEthereum && networks[i].ChainID == id {
			return &networks[i]
		}
	}
	return nil
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// BuildSubstrateRequest assembles a substrate signing request. Mortal and
// immortal transaction payloads are prefixed with their SCALE compact
// length.
func BuildSubstrateRequest(c Crypto, cmd Command, publicKey, payload, genesisHash []byte) ([]byte, error) {
	var cb byte
	switch c {
	case CryptoEd25519:
		cb = 0x00
	case CryptoSr25519:
		cb = 0x01
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownSignAlgorithm, c)
	}
	if cmd > CommandSignMessage {
		return nil, fmt.Errorf("%w: substrate command 0x%02x", ErrUnknownCommand, byte(cmd))
	}
	if len(genesisHash) != GenesisHashLength {
		return nil, fmt.Errorf("%w: genesis hash must be %d bytes", ErrTruncatedPayload, GenesisHashLength)
	}

	body := payload
	if cmd == CommandSignMortal || cmd == CommandSignImmortal {
		body = append(encodeCompact(uint64(len(payload))), payload...)
	}

	out := make([]byte, 0, 3+len(publicKey)+len(body)+len(genesisHash))
	out = append(out, ProtocolSubstrate, cb, byte(cmd))
	out = append(out, publicKey...)
	out = append(out, body...)
	out = append(out, genesisHash...)
	return out, nil
}

// BuildEthereumRequest assembles an Ethereum signing request.
func BuildEthereumRequest(sub Command, sender common.Address, payload []byte) ([]byte, error) {
	if sub > EthereumSignMessage {
		return nil, fmt.Errorf("%w: ethereum sub-action 0x%02x", ErrUnknownCommand, byte(sub))
	}
	out := make([]byte, 0, 2+EVMAddressLength+len(payload))
	out = append(out, ProtocolEthereum, byte(sub))
	out = append(out, sender.Bytes()...)
	out = append(out, payload...)
	return out, nil
}
