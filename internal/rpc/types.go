package rpc

import (
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/Klingon-tech/klingscan/internal/scanner"
	"github.com/Klingon-tech/klingscan/pkg/address"
	"github.com/Klingon-tech/klingscan/pkg/uos"
)

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeNotFound       = -32000
	CodeSessionLimit   = -32001
	CodeScanRejected   = -32002
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      interface{} `json:"id"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ── Param types ─────────────────────────────────────────────────────────

// AddressParam is used by address_decode and address_info.
type AddressParam struct {
	Address string `json:"address"`
}

// EncodeParam is used by address_encode. Family names follow
// address.ParseFamily; an empty family is SS58.
type EncodeParam struct {
	Bytes      string `json:"bytes"`
	Family     string `json:"family,omitempty"`
	SS58Prefix *int   `json:"ss58_prefix,omitempty"`
	Network    string `json:"network,omitempty"`
	ScriptHash bool   `json:"script_hash,omitempty"`
	Bounceable bool   `json:"bounceable,omitempty"`
}

// ReformatParam is used by address_reformat.
type ReformatParam struct {
	Address  string `json:"address"`
	Prefix   int    `json:"prefix"`
	Ethereum bool   `json:"ethereum,omitempty"`
}

// SessionParam is used by scan_close.
type SessionParam struct {
	Session string `json:"session"`
}

// ScanFrameParam is used by scan_frame. Frame is the raw QR content.
type ScanFrameParam struct {
	Session string `json:"session"`
	Frame   string `json:"frame"`
}

// ── Result types ────────────────────────────────────────────────────────

// DecodeResult is returned by address_decode.
type DecodeResult struct {
	Address string          `json:"address"`
	Family  address.Family  `json:"family"`
	Network address.Network `json:"network"`
	Type    string          `json:"type"`
	Bytes   hexutil.Bytes   `json:"bytes"`
	Prefix  *uint16         `json:"ss58_prefix,omitempty"`
	Version *byte           `json:"version,omitempty"`
	Keypair string          `json:"keypair"`
}

// NewDecodeResult converts a decoded address for RPC output.
func NewDecodeResult(s string, d *address.Decoded) *DecodeResult {
	r := &DecodeResult{
		Address: s,
		Family:  d.Family,
		Network: d.Network,
		Type:    d.Type,
		Bytes:   d.Bytes,
		Keypair: address.KeypairType(s),
	}
	switch d.Family {
	case address.FamilySS58:
		p := d.Prefix
		r.Prefix = &p
	case address.FamilyBitcoinLegacy:
		v := d.Version
		r.Version = &v
	}
	return r
}

// AddressResult is returned by address_encode and address_reformat.
type AddressResult struct {
	Address string `json:"address"`
}

// SessionResult is returned by scan_open.
type SessionResult struct {
	Session string `json:"session"`
}

// CloseResult is returned by scan_close.
type CloseResult struct {
	Closed bool `json:"closed"`
}

// ScanResult is returned by scan_frame.
type ScanResult struct {
	Complete bool           `json:"complete"`
	Received int            `json:"received"`
	Expected int            `json:"expected"`
	Missing  []uint16       `json:"missing,omitempty"`
	Request  *RequestResult `json:"request,omitempty"`
}

// NewScanResult converts a scanner result for RPC output.
func NewScanResult(r *scanner.Result) *ScanResult {
	return &ScanResult{
		Complete: r.Complete,
		Received: r.Received,
		Expected: r.Expected,
		Missing:  r.Missing,
		Request:  NewRequestResult(r.Request),
	}
}

// AccountResult is the matched sender of a request.
type AccountResult struct {
	Address   string        `json:"address"`
	Name      string        `json:"name,omitempty"`
	External  bool          `json:"external,omitempty"`
	PublicKey hexutil.Bytes `json:"public_key"`
}

// TransactionResult is a decoded EVM transaction. Amounts are decimal
// strings.
type TransactionResult struct {
	Type        uint8         `json:"type"`
	ChainID     string        `json:"chain_id,omitempty"`
	Nonce       uint64        `json:"nonce"`
	GasPrice    string        `json:"gas_price,omitempty"`
	GasTipCap   string        `json:"max_priority_fee_per_gas,omitempty"`
	GasFeeCap   string        `json:"max_fee_per_gas,omitempty"`
	Gas         uint64        `json:"gas"`
	To          string        `json:"to,omitempty"`
	Value       string        `json:"value"`
	Data        hexutil.Bytes `json:"data"`
	SigningHash string        `json:"signing_hash"`
}

// RequestResult is a decoded signing request with byte fields as 0x hex.
type RequestResult struct {
	Family      uos.Chain              `json:"family"`
	Action      uos.Action             `json:"action"`
	Crypto      uos.Crypto             `json:"crypto"`
	Command     uint8                  `json:"command"`
	IsHash      bool                   `json:"is_hash"`
	Oversized   bool                   `json:"oversized"`
	Payload     hexutil.Bytes          `json:"payload"`
	RawPayload  hexutil.Bytes          `json:"raw_payload"`
	Sender      string                 `json:"sender"`
	Account     *AccountResult         `json:"account,omitempty"`
	GenesisHash hexutil.Bytes          `json:"genesis_hash,omitempty"`
	Network     *uos.NetworkDescriptor `json:"network,omitempty"`
	Transaction *TransactionResult     `json:"transaction,omitempty"`
}

// NewRequestResult converts a signing request for RPC output. A nil request
// yields nil.
func NewRequestResult(req *uos.SigningRequest) *RequestResult {
	if req == nil {
		return nil
	}
	r := &RequestResult{
		Family:      req.Family,
		Action:      req.Action,
		Crypto:      req.Crypto,
		Command:     uint8(req.Command),
		IsHash:      req.IsHash,
		Oversized:   req.Oversized,
		Payload:     req.Payload,
		RawPayload:  req.RawPayload,
		Sender:      req.Sender,
		GenesisHash: req.GenesisHash,
		Network:     req.Network,
	}
	if req.Account != nil {
		r.Account = &AccountResult{
			Address:   req.Account.Address,
			Name:      req.Account.Name,
			External:  req.Account.External,
			PublicKey: req.Account.PublicKey,
		}
	}
	if tx := req.Transaction; tx != nil {
		tr := &TransactionResult{
			Type:        tx.Type,
			Nonce:       tx.Nonce,
			Gas:         tx.Gas,
			Data:        tx.Data,
			Value:       "0",
			SigningHash: tx.SigningHash.Hex(),
		}
		if tx.ChainID != nil {
			tr.ChainID = tx.ChainID.String()
		}
		if tx.GasPrice != nil {
			tr.GasPrice = tx.GasPrice.String()
		}
		if tx.GasTipCap != nil {
			tr.GasTipCap = tx.GasTipCap.String()
		}
		if tx.GasFeeCap != nil {
			tr.GasFeeCap = tx.GasFeeCap.String()
		}
		if tx.To != nil {
			tr.To = tx.To.Hex()
		}
		if tx.Value != nil {
			tr.Value = tx.Value.String()
		}
		r.Transaction = tr
	}
	return r
}

// NetworksResult is returned by network_list.
type NetworksResult struct {
	Networks []uos.NetworkDescriptor `json:"networks"`
}

// AccountsResult is returned by account_list.
type AccountsResult struct {
	Accounts []uos.Account `json:"accounts"`
}
