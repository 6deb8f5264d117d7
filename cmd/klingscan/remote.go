package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Klingon-tech/klingscan/internal/rpcclient"
)

// ── remote ──────────────────────────────────────────────────────────────

func cmdRemote(g globals, args []string) {
	if len(args) < 1 || len(args) > 2 {
		fatal("Usage: klingscan remote <method> [json-params]")
	}

	params, err := remoteParams(args[1:])
	if err != nil {
		fatal("params: %v", err)
	}

	client := rpcclient.New(rpcEndpoint(g))
	var raw json.RawMessage
	if err := client.Call(args[0], params, &raw); err != nil {
		if rerr, ok := err.(*rpcclient.RPCError); ok && len(rerr.Data) > 0 {
			fmt.Fprintf(os.Stderr, "%s\n", rerr.Data)
		}
		fatal("%s: %v", args[0], err)
	}
	printJSON(raw)
}

// remoteParams parses the optional JSON params argument. Params must be an
// object or an array.
func remoteParams(args []string) (interface{}, error) {
	if len(args) == 0 {
		return nil, nil
	}
	var v interface{}
	if err := json.Unmarshal([]byte(args[0]), &v); err != nil {
		return nil, err
	}
	switch v.(type) {
	case map[string]interface{}, []interface{}:
		return json.RawMessage(args[0]), nil
	default:
		return nil, fmt.Errorf("expected a JSON object or array")
	}
}
