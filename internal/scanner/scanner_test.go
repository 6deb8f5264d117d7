package scanner

import (
	"encoding/hex"
	"errors"
	"testing"
	"time"

	klog "github.com/Klingon-tech/klingscan/internal/log"
	"github.com/Klingon-tech/klingscan/pkg/uos"
)

const (
	alicePubHex    = "d43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d"
	aliceGeneric   = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"
	westendGenesis = "0xe143f23803ac50e8f6f8e62695d1ce9e4e1d68aa36c1cd2cfd15340213f3423e"
)

func init() {
	klog.Init("error", false, "")
}

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	if len(s) > 1 && s[:2] == "0x" {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("decode hex %q: %v", s, err)
	}
	return b
}

func testSource(external bool) StaticSource {
	return StaticSource{
		Networks: []uos.NetworkDescriptor{{
			Slug:        "westend",
			Name:        "Westend",
			GenesisHash: westendGenesis,
			SS58Prefix:  42,
		}},
		Accounts: []uos.Account{{Address: aliceGeneric, Name: "Alice", External: external}},
	}
}

// mortalFrames builds a mortal transaction request from Alice on westend,
// split into frames of chunk bytes.
func mortalFrames(t *testing.T, body []byte, chunk int) []string {
	t.Helper()
	req, err := uos.BuildSubstrateRequest(uos.CryptoSr25519, uos.CommandSignMortal,
		mustHex(t, alicePubHex), body, mustHex(t, westendGenesis))
	if err != nil {
		t.Fatalf("BuildSubstrateRequest: %v", err)
	}
	frames, err := uos.EncodeFrames(req, chunk)
	if err != nil {
		t.Fatalf("EncodeFrames: %v", err)
	}
	return frames
}

func TestSession_TwoFrames(t *testing.T) {
	body := []byte{0x05, 0x00, 0xaa, 0xbb, 0xcc}
	frames := mortalFrames(t, body, 40)
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}

	s := NewSession("test", testSource(false))
	res, err := s.Push(frames[1])
	if err != nil {
		t.Fatalf("Push(frame 1): %v", err)
	}
	if res.Complete || res.Received != 1 || res.Expected != 2 {
		t.Errorf("progress = %+v", res)
	}
	if len(res.Missing) != 1 || res.Missing[0] != 0 {
		t.Errorf("Missing = %v, want [0]", res.Missing)
	}

	res, err = s.Push(frames[0])
	if err != nil {
		t.Fatalf("Push(frame 0): %v", err)
	}
	if !res.Complete || res.Request == nil {
		t.Fatalf("result = %+v, want complete request", res)
	}
	req := res.Request
	if req.Action != uos.ActionSignTransaction || req.IsHash {
		t.Errorf("Action = %v, IsHash = %v", req.Action, req.IsHash)
	}
	if req.Sender != aliceGeneric {
		t.Errorf("Sender = %q, want %q", req.Sender, aliceGeneric)
	}
	if hex.EncodeToString(req.Payload) != hex.EncodeToString(body) {
		t.Errorf("Payload = %x, want %x", req.Payload, body)
	}
	if s.State() != uos.StateEmpty {
		t.Errorf("State after completion = %v, want empty", s.State())
	}
}

func TestSession_SingleFrame(t *testing.T) {
	frames := mortalFrames(t, []byte{0x01}, 256)
	s := NewSession("single", testSource(false))
	res, err := s.Push(frames[0])
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if !res.Complete || res.Received != 1 || res.Expected != 1 {
		t.Errorf("result = %+v", res)
	}
}

func TestSession_NotSupported(t *testing.T) {
	s := NewSession("filter", testSource(false))
	for _, raw := range []string{
		"",
		"0x8eaf04151687736326c9fea17e25fc5287613693c912909cb226aa4794f26a48",
		"ethereum:0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf",
		"substrate:" + aliceGeneric,
		`{"genesisHash":"0x00"}`,
		`["a"]`,
	} {
		if _, err := s.Push(raw); !errors.Is(err, ErrQRCodeNotSupported) {
			t.Errorf("Push(%q): err = %v, want ErrQRCodeNotSupported", raw, err)
		}
	}
}

func TestSession_LastActive(t *testing.T) {
	s := NewSession("activity", testSource(false))
	if !s.LastActive().Equal(s.Created()) {
		t.Errorf("LastActive = %v, want creation time %v", s.LastActive(), s.Created())
	}
	time.Sleep(2 * time.Millisecond)
	s.Push("not a frame")
	if !s.LastActive().After(s.Created()) {
		t.Error("rejected read did not refresh LastActive")
	}
}

func TestSupported(t *testing.T) {
	if !Supported("400d0000100000ec11ec") {
		t.Error("hex frame reported unsupported")
	}
	// All-digit input is valid hex and must reach the frame decoder.
	if !Supported("4001000010") {
		t.Error("digit-only frame reported unsupported")
	}
	if !Supported("{not json") {
		t.Error("invalid JSON should not be filtered as JSON")
	}
}

func TestSession_ExternalAccount(t *testing.T) {
	frames := mortalFrames(t, []byte{0x01, 0x02}, 256)
	s := NewSession("external", testSource(true))
	res, err := s.Push(frames[0])
	if !errors.Is(err, ErrExternalAccount) {
		t.Fatalf("err = %v, want ErrExternalAccount", err)
	}
	if res != nil {
		t.Errorf("result = %+v, want nil", res)
	}
}

func TestSession_UnknownSender(t *testing.T) {
	frames := mortalFrames(t, []byte{0x01, 0x02}, 256)
	src := testSource(false)
	src.Accounts = nil
	s := NewSession("unknown", src)

	res, err := s.Push(frames[0])
	if !errors.Is(err, uos.ErrNoMatchingAccount) {
		t.Fatalf("err = %v, want ErrNoMatchingAccount", err)
	}
	if res == nil || res.Request == nil || res.Request.Network == nil {
		t.Fatalf("partial result missing: %+v", res)
	}
	if res.Request.Network.Slug != "westend" {
		t.Errorf("Network = %q, want westend", res.Request.Network.Slug)
	}
}

func TestSession_ResetsAfterError(t *testing.T) {
	frames := mortalFrames(t, []byte{0x01, 0x02}, 256)
	s := NewSession("reset", testSource(false))

	if _, err := s.Push("4zz"); !errors.Is(err, uos.ErrMalformedFrame) {
		t.Fatalf("err = %v, want ErrMalformedFrame", err)
	}
	if _, err := s.Push(frames[0]); err != nil {
		t.Fatalf("Push after malformed frame: %v", err)
	}
}

type failingSource struct{}

func (failingSource) Snapshot() ([]uos.NetworkDescriptor, []uos.Account, error) {
	return nil, nil, errors.New("store closed")
}

func TestSession_SourceError(t *testing.T) {
	frames := mortalFrames(t, []byte{0x01}, 256)
	s := NewSession("broken", failingSource{})
	if _, err := s.Push(frames[0]); err == nil {
		t.Fatal("expected error from failing source")
	}
}
