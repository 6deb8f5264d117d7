package rpc

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	klog "github.com/Klingon-tech/klingscan/internal/log"
	"github.com/Klingon-tech/klingscan/internal/scanner"
	"github.com/Klingon-tech/klingscan/pkg/address"
	"github.com/Klingon-tech/klingscan/pkg/uos"
)

// ── Address endpoints ───────────────────────────────────────────────────

func (s *Server) handleAddressDecode(req *Request) (interface{}, *Error) {
	var params AddressParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.Address == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "address is required"}
	}

	d, err := address.Match(strings.TrimSpace(params.Address))
	if err != nil {
		klog.Codec.Debug().Err(err).Str("address", params.Address).Msg("Address decode rejected")
		return nil, &Error{Code: CodeInvalidParams, Message: err.Error()}
	}
	return NewDecodeResult(strings.TrimSpace(params.Address), d), nil
}

func (s *Server) handleAddressInfo(req *Request) (interface{}, *Error) {
	var params AddressParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.Address == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "address is required"}
	}

	info, err := address.Info(strings.TrimSpace(params.Address))
	if err != nil {
		klog.Codec.Debug().Err(err).Str("address", params.Address).Msg("Address info rejected")
		return nil, &Error{Code: CodeInvalidParams, Message: err.Error()}
	}
	return &info, nil
}

func (s *Server) handleAddressEncode(req *Request) (interface{}, *Error) {
	var params EncodeParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}

	raw, err := hex.DecodeString(strings.TrimPrefix(params.Bytes, "0x"))
	if err != nil || len(raw) == 0 {
		return nil, &Error{Code: CodeInvalidParams, Message: "bytes must be non-empty hex"}
	}
	family, err := address.ParseFamily(params.Family)
	if err != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("%v: %q", err, params.Family)}
	}

	p := address.Params{
		Family:     family,
		SS58Prefix: s.ss58Prefix,
		Network:    s.btcNetwork,
		ScriptHash: params.ScriptHash,
		Bounceable: params.Bounceable,
	}
	if params.SS58Prefix != nil {
		if *params.SS58Prefix < 0 || *params.SS58Prefix > address.MaxSS58Prefix {
			return nil, &Error{Code: CodeInvalidParams, Message: address.ErrInvalidPrefix.Error()}
		}
		p.SS58Prefix = uint16(*params.SS58Prefix)
	}
	if params.Network != "" {
		p.Network = address.Network(strings.ToLower(params.Network))
	}

	out, err := address.Encode(raw, p)
	if err != nil {
		klog.Codec.Debug().Err(err).Str("family", family.String()).Int("bytes", len(raw)).Msg("Address encode rejected")
		return nil, &Error{Code: CodeInvalidParams, Message: err.Error()}
	}
	return &AddressResult{Address: out}, nil
}

func (s *Server) handleAddressReformat(req *Request) (interface{}, *Error) {
	var params ReformatParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.Address == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "address is required"}
	}
	return &AddressResult{Address: address.Reformat(params.Address, params.Prefix, params.Ethereum)}, nil
}

// ── Scan endpoints ──────────────────────────────────────────────────────

func (s *Server) handleScanOpen(_ *Request) (interface{}, *Error) {
	if s.registry == nil {
		return nil, &Error{Code: CodeInternalError, Message: "registry not available"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sessions) >= s.maxSessions {
		s.evictIdleSessions()
	}
	if len(s.sessions) >= s.maxSessions {
		return nil, &Error{Code: CodeSessionLimit, Message: fmt.Sprintf("session limit reached (%d)", s.maxSessions)}
	}

	id := uuid.NewString()
	s.sessions[id] = scanner.NewSession(id, s.registry)
	s.logger.Debug().Str("session", id).Int("open", len(s.sessions)).Msg("Scan session opened")
	return &SessionResult{Session: id}, nil
}

func (s *Server) handleScanFrame(req *Request) (interface{}, *Error) {
	var params ScanFrameParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.Frame == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "frame is required"}
	}

	// Sessions are single-owner; holding the lock serializes frames pushed
	// concurrently to the same session.
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[params.Session]
	if !ok {
		return nil, &Error{Code: CodeNotFound, Message: fmt.Sprintf("session %q not found", params.Session)}
	}

	res, err := sess.Push(params.Frame)
	if err != nil {
		rpcErr := &Error{Code: CodeScanRejected, Message: err.Error()}
		if errors.Is(err, uos.ErrNoMatchingAccount) && res != nil {
			rpcErr.Data = NewScanResult(res)
		}
		return nil, rpcErr
	}
	return NewScanResult(res), nil
}

func (s *Server) handleScanClose(req *Request) (interface{}, *Error) {
	var params SessionParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[params.Session]; !ok {
		return nil, &Error{Code: CodeNotFound, Message: fmt.Sprintf("session %q not found", params.Session)}
	}
	delete(s.sessions, params.Session)
	s.logger.Debug().Str("session", params.Session).Int("open", len(s.sessions)).Msg("Scan session closed")
	return &CloseResult{Closed: true}, nil
}

// SessionCount returns the number of open scan sessions.
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// ── Registry endpoints ──────────────────────────────────────────────────

func (s *Server) handleNetworkList(_ *Request) (interface{}, *Error) {
	if s.registry == nil {
		return nil, &Error{Code: CodeInternalError, Message: "registry not available"}
	}
	networks, err := s.registry.Networks()
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: err.Error()}
	}
	if networks == nil {
		networks = []uos.NetworkDescriptor{}
	}
	return &NetworksResult{Networks: networks}, nil
}

func (s *Server) handleAccountList(_ *Request) (interface{}, *Error) {
	if s.registry == nil {
		return nil, &Error{Code: CodeInternalError, Message: "registry not available"}
	}
	accounts, err := s.registry.Accounts()
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: err.Error()}
	}
	if accounts == nil {
		accounts = []uos.Account{}
	}
	return &AccountsResult{Accounts: accounts}, nil
}
