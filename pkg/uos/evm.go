package uos

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
)

// EVMTransaction is the unsigned transaction carried by an Ethereum
// sign-transaction request.
type EVMTransaction struct {
	Type      uint8           `json:"type"`
	ChainID   *big.Int        `json:"chainId,omitempty"`
	Nonce     uint64          `json:"nonce"`
	GasPrice  *big.Int        `json:"gasPrice,omitempty"`
	GasTipCap *big.Int        `json:"maxPriorityFeePerGas,omitempty"`
	GasFeeCap *big.Int        `json:"maxFeePerGas,omitempty"`
	Gas       uint64          `json:"gas"`
	To        *common.Address `json:"to"`
	Value     *big.Int        `json:"value"`
	Data      []byte          `json:"data"`
	// SigningHash is the digest a signer for ChainID would sign.
	SigningHash common.Hash `json:"signingHash"`
}

// Unsigned RLP layouts. Rest absorbs the EIP-155 chain id triple of legacy
// transactions and any signature values.
type legacyTxRLP struct {
	Nonce    uint64
	GasPrice *big.Int
	Gas      uint64
	To       *common.Address `rlp:"nil"`
	Value    *big.Int
	Data     []byte
	Rest     []rlp.RawValue `rlp:"tail"`
}

type accessListTxRLP struct {
	ChainID    *big.Int
	Nonce      uint64
	GasPrice   *big.Int
	Gas        uint64
	To         *common.Address `rlp:"nil"`
	Value      *big.Int
	Data       []byte
	AccessList types.AccessList
	Rest       []rlp.RawValue `rlp:"tail"`
}

type dynamicFeeTxRLP struct {
	ChainID    *big.Int
	Nonce      uint64
	GasTipCap  *big.Int
	GasFeeCap  *big.Int
	Gas        uint64
	To         *common.Address `rlp:"nil"`
	Value      *big.Int
	Data       []byte
	AccessList types.AccessList
	Rest       []rlp.RawValue `rlp:"tail"`
}

var (
	legacyV27 = big.NewInt(27)
	legacyV28 = big.NewInt(28)
	eip155V   = big.NewInt(35)
)

// legacyChainID reads the chain id from the tail of a legacy transaction.
// Unsigned EIP-155 input ends in [chainID, 0, 0]. Signed input ends in
// [v, r, s] with the chain id folded into v, or v of 27/28 before EIP-155.
func legacyChainID(rest []rlp.RawValue) (*big.Int, error) {
	if len(rest) == 0 {
		return nil, nil
	}
	if len(rest) != 3 {
		return nil, fmt.Errorf("%w: legacy tail has %d values", ErrMalformedTransaction, len(rest))
	}

	var vrs [3]*big.Int
	for i, raw := range rest {
		vrs[i] = new(big.Int)
		if err := rlp.DecodeBytes(raw, vrs[i]); err != nil {
			return nil, fmt.Errorf("%w: legacy tail: %v", ErrMalformedTransaction, err)
		}
	}
	v, r, sig := vrs[0], vrs[1], vrs[2]

	if r.Sign() == 0 && sig.Sign() == 0 {
		if v.Sign() == 0 {
			return nil, nil
		}
		return v, nil
	}
	switch {
	case v.Cmp(eip155V) >= 0:
		id := new(big.Int).Sub(v, eip155V)
		return id.Rsh(id, 1), nil
	case v.Cmp(legacyV27) == 0 || v.Cmp(legacyV28) == 0:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: signature v %s", ErrMalformedTransaction, v)
	}
}

// DecodeEVMTransaction decodes a legacy, EIP-2930 or EIP-1559 transaction.
// Legacy input may be unsigned EIP-155, signed EIP-155 or signed pre-EIP-155;
// typed input ignores any trailing signature values.
func DecodeEVMTransaction(b []byte) (*EVMTransaction, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty transaction", ErrMalformedTransaction)
	}

	var (
		out   *EVMTransaction
		inner types.TxData
	)
	switch {
	case b[0] >= 0xc0:
		var tx legacyTxRLP
		if err := rlp.DecodeBytes(b, &tx); err != nil {
			return nil, fmt.Errorf("%w: legacy: %v", ErrMalformedTransaction, err)
		}
		chainID, err := legacyChainID(tx.Rest)
		if err != nil {
			return nil, err
		}
		out = &EVMTransaction{
			Type:     types.LegacyTxType,
			ChainID:  chainID,
			Nonce:    tx.Nonce,
			GasPrice: tx.GasPrice,
			Gas:      tx.Gas,
			To:       tx.To,
			Value:    tx.Value,
			Data:     tx.Data,
		}
		inner = &types.LegacyTx{
			Nonce:    tx.Nonce,
			GasPrice: tx.GasPrice,
			Gas:      tx.Gas,
			To:       tx.To,
			Value:    tx.Value,
			Data:     tx.Data,
		}

	case b[0] == types.AccessListTxType:
		var tx accessListTxRLP
		if err := rlp.DecodeBytes(b[1:], &tx); err != nil {
			return nil, fmt.Errorf("%w: access list: %v", ErrMalformedTransaction, err)
		}
		out = &EVMTransaction{
			Type:     types.AccessListTxType,
			ChainID:  tx.ChainID,
			Nonce:    tx.Nonce,
			GasPrice: tx.GasPrice,
			Gas:      tx.Gas,
			To:       tx.To,
			Value:    tx.Value,
			Data:     tx.Data,
		}
		inner = &types.AccessListTx{
			ChainID:    tx.ChainID,
			Nonce:      tx.Nonce,
			GasPrice:   tx.GasPrice,
			Gas:        tx.Gas,
			To:         tx.To,
			Value:      tx.Value,
			Data:       tx.Data,
			AccessList: tx.AccessList,
		}

	case b[0] == types.DynamicFeeTxType:
		var tx dynamicFeeTxRLP
		if err := rlp.DecodeBytes(b[1:], &tx); err != nil {
			return nil, fmt.Errorf("%w: dynamic fee: %v", ErrMalformedTransaction, err)
		}
		out = &EVMTransaction{
			Type:      types.DynamicFeeTxType,
			ChainID:   tx.ChainID,
			Nonce:     tx.Nonce,
			GasTipCap: tx.GasTipCap,
			GasFeeCap: tx.GasFeeCap,
			Gas:       tx.Gas,
			To:        tx.To,
			Value:     tx.Value,
			Data:      tx.Data,
		}
		inner = &types.DynamicFeeTx{
			ChainID:    tx.ChainID,
			Nonce:      tx.Nonce,
			GasTipCap:  tx.GasTipCap,
			GasFeeCap:  tx.GasFeeCap,
			Gas:        tx.Gas,
			To:         tx.To,
			Value:      tx.Value,
			Data:       tx.Data,
			AccessList: tx.AccessList,
		}

	default:
		return nil, fmt.Errorf("%w: unsupported transaction type 0x%02x", ErrMalformedTransaction, b[0])
	}

	out.SigningHash = types.LatestSignerForChainID(out.ChainID).Hash(types.NewTx(inner))
	return out, nil
}
