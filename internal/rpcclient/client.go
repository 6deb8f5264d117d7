// Package rpcclient provides a JSON-RPC 2.0 client for klingscand.
package rpcclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Klingon-tech/klingscan/internal/rpc"
	"github.com/Klingon-tech/klingscan/pkg/address"
	"github.com/Klingon-tech/klingscan/pkg/uos"
)

// Client is a JSON-RPC 2.0 HTTP client.
type Client struct {
	endpoint string
	http     *http.Client
}

// New creates a new RPC client targeting the given endpoint URL.
func New(endpoint string) *Client {
	return NewWithTimeout(endpoint, 10*time.Second)
}

// NewWithTimeout creates a new RPC client with a custom HTTP timeout.
func NewWithTimeout(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		http: &http.Client{
			Timeout: timeout,
		},
	}
}

// request is a JSON-RPC 2.0 request.
type request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
	ID      int         `json:"id"`
}

// response is a JSON-RPC 2.0 response.
type response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
	ID      int             `json:"id"`
}

// rpcError is a JSON-RPC 2.0 error.
type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// RPCError is returned when the server responds with an error.
type RPCError struct {
	Code    int
	Message string
	// Data carries the partial scan result of a request whose sender is
	// unknown.
	Data json.RawMessage
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Call invokes a JSON-RPC method and unmarshals the result into the provided pointer.
// If result is nil, the response result is discarded.
func (c *Client) Call(method string, params, result interface{}) error {
	return c.CallContext(context.Background(), method, params, result)
}

// CallContext is Call with a caller-controlled context.
func (c *Client) CallContext(ctx context.Context, method string, params, result interface{}) error {
	req := request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("http request: %s", resp.Status)
	}

	var rpcResp response
	if err := json.Unmarshal(data, &rpcResp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	if rpcResp.Error != nil {
		return &RPCError{
			Code:    rpcResp.Error.Code,
			Message: rpcResp.Error.Message,
			Data:    rpcResp.Error.Data,
		}
	}

	if result != nil && rpcResp.Result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
	}

	return nil
}

// DecodeAddress calls address_decode.
func (c *Client) DecodeAddress(addr string) (*rpc.DecodeResult, error) {
	var res rpc.DecodeResult
	if err := c.Call("address_decode", rpc.AddressParam{Address: addr}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// AddressInfo calls address_info.
func (c *Client) AddressInfo(addr string) (*address.FormatInfo, error) {
	var res address.FormatInfo
	if err := c.Call("address_info", rpc.AddressParam{Address: addr}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// EncodeAddress calls address_encode.
func (c *Client) EncodeAddress(p rpc.EncodeParam) (string, error) {
	var res rpc.AddressResult
	if err := c.Call("address_encode", p, &res); err != nil {
		return "", err
	}
	return res.Address, nil
}

// ReformatAddress calls address_reformat.
func (c *Client) ReformatAddress(addr string, prefix int, ethereum bool) (string, error) {
	var res rpc.AddressResult
	p := rpc.ReformatParam{Address: addr, Prefix: prefix, Ethereum: ethereum}
	if err := c.Call("address_reformat", p, &res); err != nil {
		return "", err
	}
	return res.Address, nil
}

// OpenScan calls scan_open and returns the session id.
func (c *Client) OpenScan() (string, error) {
	var res rpc.SessionResult
	if err := c.Call("scan_open", nil, &res); err != nil {
		return "", err
	}
	return res.Session, nil
}

// PushFrame calls scan_frame. When the request decoded but its sender is
// unknown, the partial result is returned along with the error.
func (c *Client) PushFrame(session, frame string) (*rpc.ScanResult, error) {
	var res rpc.ScanResult
	err := c.Call("scan_frame", rpc.ScanFrameParam{Session: session, Frame: frame}, &res)
	if err == nil {
		return &res, nil
	}
	if rerr, ok := err.(*RPCError); ok && len(rerr.Data) > 0 {
		var partial rpc.ScanResult
		if json.Unmarshal(rerr.Data, &partial) == nil {
			return &partial, err
		}
	}
	return nil, err
}

// CloseScan calls scan_close.
func (c *Client) CloseScan(session string) error {
	return c.Call("scan_close", rpc.SessionParam{Session: session}, nil)
}

// Networks calls network_list.
func (c *Client) Networks() ([]uos.NetworkDescriptor, error) {
	var res rpc.NetworksResult
	if err := c.Call("network_list", nil, &res); err != nil {
		return nil, err
	}
	return res.Networks, nil
}

// Accounts calls account_list.
func (c *Client) Accounts() ([]uos.Account, error) {
	var res rpc.AccountsResult
	if err := c.Call("account_list", nil, &res); err != nil {
		return nil, err
	}
	return res.Accounts, nil
}
