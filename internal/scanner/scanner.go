// Package scanner drives one QR scanning session: it filters what the camera
// reads, feeds frames to an assembler and parses the completed request.
package scanner

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Klingon-tech/klingscan/internal/log"
	"github.com/Klingon-tech/klingscan/pkg/uos"
)

// Scanner errors.
var (
	ErrQRCodeNotSupported = errors.New("QR code not supported")
	ErrExternalAccount    = errors.New("this account is external and cannot sign here")
)

// addressSchemes are prefixes of QR codes that carry an address rather than a
// signing request.
var addressSchemes = []string{"0x", "ethereum:", "substrate:"}

// Source supplies the network table and account list a session resolves
// requests against.
type Source interface {
	Snapshot() ([]uos.NetworkDescriptor, []uos.Account, error)
}

// StaticSource is a fixed network table and account list.
type StaticSource struct {
	Networks []uos.NetworkDescriptor
	Accounts []uos.Account
}

// Snapshot implements Source.
func (s StaticSource) Snapshot() ([]uos.NetworkDescriptor, []uos.Account, error) {
	return s.Networks, s.Accounts, nil
}

// Result is the outcome of one pushed frame.
type Result struct {
	Complete bool     `json:"complete"`
	Received int      `json:"received"`
	Expected int      `json:"expected"`
	Missing  []uint16 `json:"missing,omitempty"`
	// Request is set once every frame has arrived.
	Request *uos.SigningRequest `json:"request,omitempty"`
}

// Session is a single scanning session. Not safe for concurrent use.
type Session struct {
	id      string
	source  Source
	asm     *uos.Assembler
	created time.Time
	active  time.Time
	logger  zerolog.Logger
}

// NewSession returns an empty session identified by id.
func NewSession(id string, source Source) *Session {
	now := time.Now()
	return &Session{
		id:      id,
		source:  source,
		asm:     uos.NewAssembler(),
		created: now,
		active:  now,
		logger:  log.WithSession(log.Scanner, id),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Created returns the session creation time.
func (s *Session) Created() time.Time { return s.created }

// LastActive returns the time of the last pushed frame, or the creation
// time if none has been pushed.
func (s *Session) LastActive() time.Time { return s.active }

// State returns the assembler state.
func (s *Session) State() uos.State { return s.asm.State() }

// Reset discards collected frames.
func (s *Session) Reset() {
	s.asm.Reset()
	s.logger.Debug().Msg("Session reset")
}

// Push handles one QR read. The session resets itself after a completed
// request and after any error, so the next read starts a new request.
//
// When the network is known but the sender is not, the partial request is
// returned along with an error wrapping uos.ErrNoMatchingAccount.
func (s *Session) Push(raw string) (*Result, error) {
	s.active = time.Now()
	raw = strings.TrimSpace(raw)
	if !Supported(raw) {
		s.asm.Reset()
		return nil, ErrQRCodeNotSupported
	}

	payload, done, err := s.asm.Push(raw)
	if err != nil {
		s.logger.Debug().Err(err).Msg("Frame rejected")
		s.asm.Reset()
		return nil, err
	}
	if !done {
		received, expected := s.asm.Progress()
		s.logger.Debug().Int("received", received).Int("expected", expected).Msg("Frame accepted")
		return &Result{Received: received, Expected: expected, Missing: s.asm.Missing()}, nil
	}

	received, expected := s.asm.Progress()
	if expected == 0 {
		received, expected = 1, 1
	}
	s.asm.Reset()

	req, err := s.parse(payload)
	res := &Result{Complete: true, Received: received, Expected: expected, Request: req}
	if err != nil {
		if req == nil {
			res = nil
		}
		s.logger.Info().Err(err).Msg("Request rejected")
		return res, err
	}

	s.logger.Info().
		Str("family", req.Family.String()).
		Str("action", req.Action.String()).
		Str("sender", req.Sender).
		Bool("oversized", req.Oversized).
		Msg("Request decoded")
	return res, nil
}

func (s *Session) parse(payload []byte) (*uos.SigningRequest, error) {
	networks, accounts, err := s.source.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}
	req, err := uos.Parse(payload, networks, accounts)
	if err != nil {
		return req, err
	}
	if req.Account != nil && req.Account.External {
		return nil, fmt.Errorf("%w: %s", ErrExternalAccount, req.Sender)
	}
	return req, nil
}

// Supported reports whether a QR read can be a signing request frame.
// Address QR codes and JSON documents are not.
func Supported(raw string) bool {
	if raw == "" {
		return false
	}
	for _, p := range addressSchemes {
		if strings.HasPrefix(raw, p) {
			return false
		}
	}
	return !isJSONDocument(raw)
}

// isJSONDocument reports whether s is a JSON object, array or string. Bare
// numbers are excluded since an all-digit frame is also valid hex.
func isJSONDocument(s string) bool {
	switch s[0] {
	case '{', '[', '"':
		return json.Valid([]byte(s))
	}
	return false
}
