package rpc

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Klingon-tech/klingscan/config"
	klog "github.com/Klingon-tech/klingscan/internal/log"
	"github.com/Klingon-tech/klingscan/internal/registry"
	"github.com/Klingon-tech/klingscan/internal/storage"
	"github.com/Klingon-tech/klingscan/pkg/address"
	"github.com/Klingon-tech/klingscan/pkg/uos"
)

const (
	alicePubHex    = "d43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d"
	aliceGeneric   = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"
	alicePolkadot  = "15oF4uVJwmo4TdGW7VfQxNLavjCXviqxT9S1MgbjMNHr6Sp5"
	westendGenesis = "e143f23803ac50e8f6f8e62695d1ce9e4e1d68aa36c1cd2cfd15340213f3423e"
	generatorEVM   = "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf"
)

// testEnv holds all components for an RPC test.
type testEnv struct {
	server   *Server
	registry *registry.Registry
	url      string
}

func setupTestEnv(t *testing.T, rpcCfg ...config.RPCConfig) *testEnv {
	t.Helper()
	klog.Init("error", false, "")

	reg := registry.New(storage.NewMemory())
	if err := reg.Seed(false); err != nil {
		t.Fatalf("seed registry: %v", err)
	}
	if err := reg.AddAccount(uos.Account{Address: aliceGeneric, Name: "Alice"}); err != nil {
		t.Fatalf("add account: %v", err)
	}
	if err := reg.AddAccount(uos.Account{Address: generatorEVM, Name: "Key one"}); err != nil {
		t.Fatalf("add account: %v", err)
	}

	// Create and start RPC server on random port.
	srv := New("127.0.0.1:0", reg, rpcCfg...)
	if err := srv.Start(); err != nil {
		t.Fatalf("start rpc: %v", err)
	}
	t.Cleanup(func() { srv.Stop() })

	return &testEnv{
		server:   srv,
		registry: reg,
		url:      fmt.Sprintf("http://%s/", srv.Addr()),
	}
}

func rpcCall(t *testing.T, url, method string, params interface{}) Response {
	t.Helper()
	resp, err := postRPC(url, method, params)
	if err != nil {
		t.Fatalf("%s: %v", method, err)
	}
	return resp
}

// postRPC performs one call without a testing.T, for use from goroutines.
func postRPC(url, method string, params interface{}) (Response, error) {
	req := Request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("marshal request: %w", err)
	}

	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()

	var rpcResp Response
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}
	return rpcResp, nil
}

// decodeResult re-marshals a generic result into target.
func decodeResult(t *testing.T, resp Response, target interface{}) {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("unexpected error: %d %s", resp.Error.Code, resp.Error.Message)
	}
	data, err := json.Marshal(resp.Result)
	if err != nil {
		t.Fatalf("marshal result: %v", err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		t.Fatalf("unmarshal result %s: %v", data, err)
	}
}

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("decode hex %q: %v", s, err)
	}
	return b
}

func westendFrames(t *testing.T, cmd uos.Command, body []byte, chunk int) []string {
	t.Helper()
	req, err := uos.BuildSubstrateRequest(uos.CryptoSr25519, cmd, mustHex(t, alicePubHex), body, mustHex(t, westendGenesis))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	frames, err := uos.EncodeFrames(req, chunk)
	if err != nil {
		t.Fatalf("encode frames: %v", err)
	}
	return frames
}

func openSession(t *testing.T, url string) string {
	t.Helper()
	var res SessionResult
	decodeResult(t, rpcCall(t, url, "scan_open", nil), &res)
	if res.Session == "" {
		t.Fatal("empty session id")
	}
	return res.Session
}

// ── Address endpoints ───────────────────────────────────────────────────

func TestRPC_AddressDecode(t *testing.T) {
	env := setupTestEnv(t)

	var res DecodeResult
	decodeResult(t, rpcCall(t, env.url, "address_decode", AddressParam{Address: alicePolkadot}), &res)

	if res.Family != address.FamilySS58 || res.Type != address.TypeSS58 {
		t.Errorf("family/type = %v/%s", res.Family, res.Type)
	}
	if hex.EncodeToString(res.Bytes) != alicePubHex {
		t.Errorf("bytes = %x, want %s", res.Bytes, alicePubHex)
	}
	if res.Prefix == nil || *res.Prefix != 0 {
		t.Errorf("prefix = %v, want 0", res.Prefix)
	}
	if res.Keypair != address.KeypairSr25519 {
		t.Errorf("keypair = %q", res.Keypair)
	}
}

func TestRPC_AddressDecode_Legacy(t *testing.T) {
	env := setupTestEnv(t)

	var res DecodeResult
	decodeResult(t, rpcCall(t, env.url, "address_decode", AddressParam{Address: "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"}), &res)
	if res.Version == nil || *res.Version != 0x00 {
		t.Errorf("version = %v, want 0", res.Version)
	}
	if res.Prefix != nil {
		t.Errorf("prefix set on a bitcoin address: %d", *res.Prefix)
	}
	if res.Network != address.NetworkMainnet {
		t.Errorf("network = %q", res.Network)
	}
}

func TestRPC_AddressDecode_Errors(t *testing.T) {
	env := setupTestEnv(t)

	tests := []struct {
		addr string
		msg  string
	}{
		{"1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNb", address.ErrChecksumMismatch.Error()},
		{"111zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", address.ErrChecksumMismatch.Error()},
		{"EGrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY", address.ErrChecksumMismatch.Error()},
		{"not an address", address.ErrInvalidAddress.Error()},
	}
	for _, tt := range tests {
		resp := rpcCall(t, env.url, "address_decode", AddressParam{Address: tt.addr})
		if resp.Error == nil {
			t.Errorf("%q: expected error", tt.addr)
			continue
		}
		if resp.Error.Code != CodeInvalidParams {
			t.Errorf("%q: code = %d, want %d", tt.addr, resp.Error.Code, CodeInvalidParams)
		}
		if !strings.HasPrefix(resp.Error.Message, tt.msg) {
			t.Errorf("%q: message = %q, want prefix %q", tt.addr, resp.Error.Message, tt.msg)
		}
	}

	resp := rpcCall(t, env.url, "address_decode", AddressParam{})
	if resp.Error == nil || resp.Error.Code != CodeInvalidParams {
		t.Errorf("empty address: %+v", resp.Error)
	}
}

func TestRPC_AddressInfo(t *testing.T) {
	env := setupTestEnv(t)

	var info address.FormatInfo
	decodeResult(t, rpcCall(t, env.url, "address_info", AddressParam{Address: "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4"}), &info)
	if info.Family != address.FamilyBitcoinSegwitV0 || info.Type != address.TypeP2WPKH {
		t.Errorf("info = %+v", info)
	}
}

func TestRPC_AddressEncode(t *testing.T) {
	env := setupTestEnv(t)

	// Server default prefix is 42.
	var res AddressResult
	decodeResult(t, rpcCall(t, env.url, "address_encode", EncodeParam{Bytes: alicePubHex}), &res)
	if res.Address != aliceGeneric {
		t.Errorf("default encode = %q, want %q", res.Address, aliceGeneric)
	}

	zero := 0
	decodeResult(t, rpcCall(t, env.url, "address_encode", EncodeParam{Bytes: "0x" + alicePubHex, SS58Prefix: &zero}), &res)
	if res.Address != alicePolkadot {
		t.Errorf("prefix 0 encode = %q, want %q", res.Address, alicePolkadot)
	}

	decodeResult(t, rpcCall(t, env.url, "address_encode", EncodeParam{
		Bytes:  "62e907b15cbf27d5425399ebf6f0fb50ebb88f18",
		Family: "p2pkh",
	}), &res)
	if res.Address != "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa" {
		t.Errorf("p2pkh encode = %q", res.Address)
	}
}

func TestRPC_AddressEncode_Errors(t *testing.T) {
	env := setupTestEnv(t)

	reserved := 46
	bad := []EncodeParam{
		{Bytes: "zz"},
		{Bytes: alicePubHex, Family: "dogecoin"},
		{Bytes: "0102", Family: "p2pkh"},
		{Bytes: alicePubHex, SS58Prefix: &reserved},
	}
	for i, p := range bad {
		resp := rpcCall(t, env.url, "address_encode", p)
		if resp.Error == nil || resp.Error.Code != CodeInvalidParams {
			t.Errorf("case %d: error = %+v, want invalid params", i, resp.Error)
		}
	}
}

func TestRPC_AddressReformat(t *testing.T) {
	env := setupTestEnv(t)

	var res AddressResult
	decodeResult(t, rpcCall(t, env.url, "address_reformat", ReformatParam{Address: aliceGeneric, Prefix: 0}), &res)
	if res.Address != alicePolkadot {
		t.Errorf("reformat = %q, want %q", res.Address, alicePolkadot)
	}
}

// ── Scan endpoints ──────────────────────────────────────────────────────

func TestRPC_Scan_TwoFrames(t *testing.T) {
	env := setupTestEnv(t)
	id := openSession(t, env.url)

	body := []byte{0x05, 0x00, 0x01, 0x02, 0x03}
	frames := westendFrames(t, uos.CommandSignMortal, body, 40)
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}

	var res ScanResult
	decodeResult(t, rpcCall(t, env.url, "scan_frame", ScanFrameParam{Session: id, Frame: frames[0]}), &res)
	if res.Complete || res.Received != 1 || res.Expected != 2 {
		t.Errorf("progress = %+v", res)
	}

	decodeResult(t, rpcCall(t, env.url, "scan_frame", ScanFrameParam{Session: id, Frame: frames[1]}), &res)
	if !res.Complete || res.Request == nil {
		t.Fatalf("result = %+v, want complete", res)
	}
	req := res.Request
	if req.Family != uos.ChainSubstrate || req.Action != uos.ActionSignTransaction {
		t.Errorf("family/action = %v/%v", req.Family, req.Action)
	}
	if req.Sender != aliceGeneric {
		t.Errorf("sender = %q", req.Sender)
	}
	if req.Account == nil || req.Account.Name != "Alice" {
		t.Errorf("account = %+v", req.Account)
	}
	if !bytes.Equal(req.Payload, body) {
		t.Errorf("payload = %x, want %x", req.Payload, body)
	}
	if req.Network == nil || req.Network.Slug != "westend" {
		t.Errorf("network = %+v", req.Network)
	}
}

func TestRPC_Scan_Ethereum(t *testing.T) {
	env := setupTestEnv(t)
	id := openSession(t, env.url)

	msg := []byte("hello")
	buf, err := uos.BuildEthereumRequest(uos.EthereumSignMessage, common.HexToAddress(generatorEVM), msg)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	frames, err := uos.EncodeFrames(buf, 256)
	if err != nil {
		t.Fatalf("encode frames: %v", err)
	}

	var res ScanResult
	decodeResult(t, rpcCall(t, env.url, "scan_frame", ScanFrameParam{Session: id, Frame: frames[0]}), &res)
	if res.Request == nil || res.Request.Action != uos.ActionSignData || res.Request.Family != uos.ChainEthereum {
		t.Fatalf("request = %+v", res.Request)
	}
	if res.Request.Sender != generatorEVM {
		t.Errorf("sender = %q", res.Request.Sender)
	}
	if string(res.Request.Payload) != "hello" {
		t.Errorf("payload = %q", res.Request.Payload)
	}
}

func TestRPC_Scan_Rejections(t *testing.T) {
	env := setupTestEnv(t)
	id := openSession(t, env.url)

	resp := rpcCall(t, env.url, "scan_frame", ScanFrameParam{Session: id, Frame: "ethereum:" + generatorEVM})
	if resp.Error == nil || resp.Error.Message != "QR code not supported" {
		t.Errorf("address QR: error = %+v", resp.Error)
	}

	resp = rpcCall(t, env.url, "scan_frame", ScanFrameParam{Session: id, Frame: "4zz"})
	if resp.Error == nil || resp.Error.Code != CodeScanRejected {
		t.Errorf("malformed frame: error = %+v", resp.Error)
	}

	// The session recovers after a rejection.
	frames := westendFrames(t, uos.CommandSignMessage, []byte("msg"), 256)
	var res ScanResult
	decodeResult(t, rpcCall(t, env.url, "scan_frame", ScanFrameParam{Session: id, Frame: frames[0]}), &res)
	if !res.Complete {
		t.Errorf("result after rejection = %+v", res)
	}
}

func TestRPC_Scan_UnknownSender(t *testing.T) {
	env := setupTestEnv(t)
	if err := env.registry.RemoveAccount(aliceGeneric); err != nil {
		t.Fatalf("remove account: %v", err)
	}
	id := openSession(t, env.url)

	frames := westendFrames(t, uos.CommandSignImmortal, []byte{0x01}, 256)
	resp := rpcCall(t, env.url, "scan_frame", ScanFrameParam{Session: id, Frame: frames[0]})
	if resp.Error == nil {
		t.Fatal("expected error for unknown sender")
	}
	if !strings.HasPrefix(resp.Error.Message, uos.ErrNoMatchingAccount.Error()) {
		t.Errorf("message = %q", resp.Error.Message)
	}
	if resp.Error.Data == nil {
		t.Error("partial request missing from error data")
	}
}

func TestRPC_Scan_SessionLifecycle(t *testing.T) {
	env := setupTestEnv(t, config.RPCConfig{MaxSessions: 2})

	a := openSession(t, env.url)
	openSession(t, env.url)

	resp := rpcCall(t, env.url, "scan_open", nil)
	if resp.Error == nil || resp.Error.Code != CodeSessionLimit {
		t.Errorf("third session: error = %+v", resp.Error)
	}

	var closed CloseResult
	decodeResult(t, rpcCall(t, env.url, "scan_close", SessionParam{Session: a}), &closed)
	if !closed.Closed {
		t.Error("close reported false")
	}
	if env.server.SessionCount() != 1 {
		t.Errorf("SessionCount = %d, want 1", env.server.SessionCount())
	}

	resp = rpcCall(t, env.url, "scan_close", SessionParam{Session: a})
	if resp.Error == nil || resp.Error.Code != CodeNotFound {
		t.Errorf("double close: error = %+v", resp.Error)
	}
	resp = rpcCall(t, env.url, "scan_frame", ScanFrameParam{Session: a, Frame: "40"})
	if resp.Error == nil || resp.Error.Code != CodeNotFound {
		t.Errorf("frame to closed session: error = %+v", resp.Error)
	}
}

func TestRPC_Scan_IdleSessionsEvicted(t *testing.T) {
	env := setupTestEnv(t, config.RPCConfig{MaxSessions: 2, SessionTTL: time.Minute})

	a := openSession(t, env.url)
	b := openSession(t, env.url)

	// Both sessions are fresh; the limit holds.
	resp := rpcCall(t, env.url, "scan_open", nil)
	if resp.Error == nil || resp.Error.Code != CodeSessionLimit {
		t.Fatalf("third session: error = %+v", resp.Error)
	}

	env.server.mu.Lock()
	env.server.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	env.server.mu.Unlock()

	c := openSession(t, env.url)
	if env.server.SessionCount() != 1 {
		t.Errorf("SessionCount = %d, want 1 after eviction", env.server.SessionCount())
	}
	for _, id := range []string{a, b} {
		resp = rpcCall(t, env.url, "scan_close", SessionParam{Session: id})
		if resp.Error == nil || resp.Error.Code != CodeNotFound {
			t.Errorf("evicted session %s: error = %+v", id, resp.Error)
		}
	}
	var closed CloseResult
	decodeResult(t, rpcCall(t, env.url, "scan_close", SessionParam{Session: c}), &closed)
	if !closed.Closed {
		t.Error("new session not closable")
	}
}

func TestRPC_Scan_ConcurrentSessions(t *testing.T) {
	env := setupTestEnv(t)
	frames := westendFrames(t, uos.CommandSignMortal, bytes.Repeat([]byte{0xab}, 120), 32)

	var wg sync.WaitGroup
	errs := make(chan string, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var open SessionResult
			resp, err := postRPC(env.url, "scan_open", nil)
			if err != nil || resp.Error != nil {
				errs <- fmt.Sprintf("scan_open: %v %+v", err, resp.Error)
				return
			}
			data, _ := json.Marshal(resp.Result)
			json.Unmarshal(data, &open)

			for j := len(frames) - 1; j >= 0; j-- {
				resp, err = postRPC(env.url, "scan_frame", ScanFrameParam{Session: open.Session, Frame: frames[j]})
				if err != nil || resp.Error != nil {
					errs <- fmt.Sprintf("scan_frame %d: %v %+v", j, err, resp.Error)
					return
				}
			}
			var res ScanResult
			data, _ = json.Marshal(resp.Result)
			json.Unmarshal(data, &res)
			if !res.Complete {
				errs <- "session did not complete"
			}
		}()
	}
	wg.Wait()
	close(errs)
	for msg := range errs {
		t.Error(msg)
	}
}

// ── Registry endpoints ──────────────────────────────────────────────────

func TestRPC_NetworkList(t *testing.T) {
	env := setupTestEnv(t)

	var res NetworksResult
	decodeResult(t, rpcCall(t, env.url, "network_list", nil), &res)
	if len(res.Networks) != len(registry.DefaultNetworks()) {
		t.Errorf("got %d networks, want %d", len(res.Networks), len(registry.DefaultNetworks()))
	}
}

func TestRPC_AccountList(t *testing.T) {
	env := setupTestEnv(t)

	var res AccountsResult
	decodeResult(t, rpcCall(t, env.url, "account_list", nil), &res)
	if len(res.Accounts) != 2 {
		t.Errorf("got %d accounts, want 2", len(res.Accounts))
	}
}

// ── Transport ───────────────────────────────────────────────────────────

func TestRPC_MethodNotFound(t *testing.T) {
	env := setupTestEnv(t)

	resp := rpcCall(t, env.url, "chain_getInfo", nil)
	if resp.Error == nil || resp.Error.Code != CodeMethodNotFound {
		t.Errorf("error = %+v, want method not found", resp.Error)
	}
}

func TestRPC_InvalidParams(t *testing.T) {
	env := setupTestEnv(t)

	resp := rpcCall(t, env.url, "address_decode", nil)
	if resp.Error == nil || resp.Error.Code != CodeInvalidParams {
		t.Errorf("error = %+v, want invalid params", resp.Error)
	}
}

func TestRPC_InvalidJSON(t *testing.T) {
	env := setupTestEnv(t)

	resp, err := http.Post(env.url, "application/json", bytes.NewReader([]byte("not json")))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	var rpcResp Response
	json.NewDecoder(resp.Body).Decode(&rpcResp)

	if rpcResp.Error == nil {
		t.Fatal("expected error for invalid JSON")
	}
	if rpcResp.Error.Code != CodeParseError {
		t.Errorf("error code = %d, want %d", rpcResp.Error.Code, CodeParseError)
	}
}

func TestRPC_WrongVersion(t *testing.T) {
	env := setupTestEnv(t)

	body := []byte(`{"jsonrpc":"1.0","method":"network_list","id":1}`)
	resp, err := http.Post(env.url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	var rpcResp Response
	json.NewDecoder(resp.Body).Decode(&rpcResp)
	if rpcResp.Error == nil || rpcResp.Error.Code != CodeInvalidRequest {
		t.Errorf("error = %+v, want invalid request", rpcResp.Error)
	}
}

func TestRPC_GetMethodNotAllowed(t *testing.T) {
	env := setupTestEnv(t)

	resp, err := http.Get(env.url)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	var rpcResp Response
	json.NewDecoder(resp.Body).Decode(&rpcResp)

	if rpcResp.Error == nil {
		t.Fatal("expected error for GET request")
	}
	if rpcResp.Error.Code != CodeInvalidRequest {
		t.Errorf("error code = %d, want %d", rpcResp.Error.Code, CodeInvalidRequest)
	}
}

func TestRPC_BodySizeLimit(t *testing.T) {
	env := setupTestEnv(t)

	bigPayload := bytes.Repeat([]byte{'A'}, (1<<20)+1024)
	resp, err := http.Post(env.url, "application/json", bytes.NewReader(bigPayload))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	var rpcResp Response
	json.NewDecoder(resp.Body).Decode(&rpcResp)

	if rpcResp.Error == nil {
		t.Fatal("expected error for oversized request body")
	}
	if rpcResp.Error.Code != CodeInvalidRequest {
		t.Errorf("error code = %d, want %d", rpcResp.Error.Code, CodeInvalidRequest)
	}
}

func TestRPC_Handler_HTTPTest(t *testing.T) {
	klog.Init("error", false, "")
	srv := New("", registry.New(storage.NewMemory()))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	var res NetworksResult
	decodeResult(t, rpcCall(t, ts.URL, "network_list", nil), &res)
	if len(res.Networks) != 0 {
		t.Errorf("unseeded registry returned %d networks", len(res.Networks))
	}
}

// --- IP Filtering ---

func TestRPC_IPFilter_Allowed(t *testing.T) {
	env := setupTestEnv(t, config.RPCConfig{
		AllowedIPs: []string{"127.0.0.1"},
	})

	resp := rpcCall(t, env.url, "network_list", nil)
	if resp.Error != nil {
		t.Errorf("expected success for 127.0.0.1, got error: %s", resp.Error.Message)
	}
}

func TestRPC_IPFilter_Blocked(t *testing.T) {
	env := setupTestEnv(t, config.RPCConfig{
		AllowedIPs: []string{"10.0.0.0/8"},
	})

	req := Request{JSONRPC: "2.0", Method: "network_list", ID: 1}
	body, _ := json.Marshal(req)
	resp, err := http.Post(env.url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403, got %d", resp.StatusCode)
	}
}

// --- CORS ---

func TestRPC_CORS_SpecificOrigin(t *testing.T) {
	env := setupTestEnv(t, config.RPCConfig{
		CORSOrigins: []string{"http://myapp.com"},
	})

	for _, tt := range []struct {
		origin string
		want   string
	}{
		{"http://myapp.com", "http://myapp.com"},
		{"http://evil.com", ""},
	} {
		body, _ := json.Marshal(Request{JSONRPC: "2.0", Method: "network_list", ID: 1})
		httpReq, _ := http.NewRequest("POST", env.url, bytes.NewReader(body))
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Origin", tt.origin)

		resp, err := http.DefaultClient.Do(httpReq)
		if err != nil {
			t.Fatalf("post: %v", err)
		}
		resp.Body.Close()

		if got := resp.Header.Get("Access-Control-Allow-Origin"); got != tt.want {
			t.Errorf("origin %s: CORS header = %q, want %q", tt.origin, got, tt.want)
		}
	}
}

func TestRPC_CORS_Preflight(t *testing.T) {
	env := setupTestEnv(t, config.RPCConfig{
		CORSOrigins: []string{"*"},
	})

	httpReq, _ := http.NewRequest("OPTIONS", env.url, nil)
	httpReq.Header.Set("Origin", "http://example.com")

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Methods") == "" {
		t.Error("preflight should have Allow-Methods header")
	}
}
