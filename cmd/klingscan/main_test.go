package main

import (
	"bytes"
	"encoding/hex"
	"errors"
	"io"
	"strings"
	"testing"

	klog "github.com/Klingon-tech/klingscan/internal/log"
	"github.com/Klingon-tech/klingscan/internal/registry"
	"github.com/Klingon-tech/klingscan/internal/rpc"
	"github.com/Klingon-tech/klingscan/internal/scanner"
	"github.com/Klingon-tech/klingscan/pkg/uos"
)

const (
	alicePubHex    = "d43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d"
	aliceGeneric   = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"
	westendGenesis = "e143f23803ac50e8f6f8e62695d1ce9e4e1d68aa36c1cd2cfd15340213f3423e"
)

func init() {
	klog.Init("error", false, "")
}

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("decode hex %q: %v", s, err)
	}
	return b
}

func westendFrames(t *testing.T, body []byte, chunk int) []string {
	t.Helper()
	req, err := uos.BuildSubstrateRequest(uos.CryptoSr25519, uos.CommandSignMessage, mustHex(t, alicePubHex), body, mustHex(t, westendGenesis))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	frames, err := uos.EncodeFrames(req, chunk)
	if err != nil {
		t.Fatalf("encode frames: %v", err)
	}
	return frames
}

// localPusher mirrors the scan command's offline path.
func localPusher(accounts []uos.Account) framePusher {
	src := scanner.StaticSource{Networks: registry.DefaultNetworks(), Accounts: accounts}
	session := scanner.NewSession("test", src)
	return func(raw string) (*rpc.ScanResult, error) {
		res, err := session.Push(raw)
		if res == nil {
			return nil, err
		}
		return rpc.NewScanResult(res), err
	}
}

func TestScanFrames_MultiFrame(t *testing.T) {
	frames := westendFrames(t, bytes.Repeat([]byte("hello "), 20), 32)
	if len(frames) < 3 {
		t.Fatalf("got %d frames, want at least 3", len(frames))
	}
	in := "\n" + strings.Join(frames, "\n\n") + "\n"

	var status bytes.Buffer
	req, err := scanFrames(strings.NewReader(in), &status, true, localPusher([]uos.Account{{Address: aliceGeneric, Name: "Alice"}}))
	if err != nil {
		t.Fatalf("scanFrames: %v", err)
	}
	if req.Action != uos.ActionSignData || req.Sender != aliceGeneric {
		t.Errorf("request = %+v", req)
	}
	if !strings.Contains(status.String(), "frame 2/") {
		t.Errorf("status %q lacks progress prompt", status.String())
	}
}

func TestScanFrames_Truncated(t *testing.T) {
	frames := westendFrames(t, bytes.Repeat([]byte{0x01}, 100), 32)
	_, err := scanFrames(strings.NewReader(frames[0]+"\n"), io.Discard, false, localPusher(nil))
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("err = %v, want ErrUnexpectedEOF", err)
	}
}

func TestScanFrames_UnknownSender(t *testing.T) {
	frames := westendFrames(t, []byte("msg"), 256)
	req, err := scanFrames(strings.NewReader(frames[0]), io.Discard, false, localPusher(nil))
	if !errors.Is(err, uos.ErrNoMatchingAccount) {
		t.Fatalf("err = %v, want ErrNoMatchingAccount", err)
	}
	if req == nil || req.Network == nil || req.Network.Slug != "westend" {
		t.Errorf("partial request = %+v", req)
	}
}

func TestScanFrames_RejectedFrame(t *testing.T) {
	frames := westendFrames(t, []byte("msg"), 256)

	// Non-interactive input stops at the first bad read.
	_, err := scanFrames(strings.NewReader("substrate:"+aliceGeneric+"\n"+frames[0]), io.Discard, false, localPusher(nil))
	if !errors.Is(err, scanner.ErrQRCodeNotSupported) {
		t.Errorf("err = %v, want ErrQRCodeNotSupported", err)
	}

	// The prompt reports it and keeps reading.
	var status bytes.Buffer
	accounts := []uos.Account{{Address: aliceGeneric}}
	req, err := scanFrames(strings.NewReader("substrate:"+aliceGeneric+"\n"+frames[0]), &status, true, localPusher(accounts))
	if err != nil {
		t.Fatalf("scanFrames: %v", err)
	}
	if req == nil || !strings.Contains(status.String(), "rejected") {
		t.Errorf("req = %+v, status = %q", req, status.String())
	}
}

func TestParseHex(t *testing.T) {
	if b, err := parseHex(" 0xdeadbeef "); err != nil || !bytes.Equal(b, []byte{0xde, 0xad, 0xbe, 0xef}) {
		t.Errorf("parseHex = %x, %v", b, err)
	}
	if _, err := parseHex("0x"); err == nil {
		t.Error("empty hex accepted")
	}
	if _, err := parseHex("zz"); err == nil {
		t.Error("bad hex accepted")
	}
}

func TestRemoteParams(t *testing.T) {
	if p, err := remoteParams(nil); p != nil || err != nil {
		t.Errorf("no params = %v, %v", p, err)
	}
	if _, err := remoteParams([]string{`{"address":"x"}`}); err != nil {
		t.Errorf("object: %v", err)
	}
	if _, err := remoteParams([]string{`["x"]`}); err != nil {
		t.Errorf("array: %v", err)
	}
	if _, err := remoteParams([]string{`"x"`}); err == nil {
		t.Error("string params accepted")
	}
	if _, err := remoteParams([]string{`{`}); err == nil {
		t.Error("invalid JSON accepted")
	}
}
