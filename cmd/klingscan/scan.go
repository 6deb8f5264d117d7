package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/Klingon-tech/klingscan/internal/rpc"
	"github.com/Klingon-tech/klingscan/internal/rpcclient"
	"github.com/Klingon-tech/klingscan/internal/scanner"
	"github.com/Klingon-tech/klingscan/pkg/uos"
)

// maxFrameLine bounds one line of scanner input. A 16-bit frame body is at
// most 2*0xffff hex chars plus the header and filler.
const maxFrameLine = 1 << 18

// framePusher feeds one raw QR read to a local or remote session.
type framePusher func(raw string) (*rpc.ScanResult, error)

// ── scan ────────────────────────────────────────────────────────────────

func cmdScan(g globals, args []string) {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	remote := fs.Bool("remote", false, "Decode on the daemon instead of the local registry")
	asJSON := fs.Bool("json", false, "Print the decoded request as JSON")
	fs.Parse(args)

	var push framePusher
	var cleanup func()
	if *remote {
		client := rpcclient.New(rpcEndpoint(g))
		id, err := client.OpenScan()
		if err != nil {
			fatal("scan_open: %v", err)
		}
		cleanup = func() { client.CloseScan(id) }
		push = func(raw string) (*rpc.ScanResult, error) {
			return client.PushFrame(id, raw)
		}
	} else {
		reg, closeDB := openRegistry(g)
		cleanup = closeDB
		session := scanner.NewSession("cli", reg)
		push = func(raw string) (*rpc.ScanResult, error) {
			res, err := session.Push(raw)
			if res == nil {
				return nil, err
			}
			return rpc.NewScanResult(res), err
		}
	}

	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	req, err := scanFrames(os.Stdin, os.Stderr, interactive, push)
	cleanup()
	if req != nil {
		if *asJSON {
			printJSON(req)
		} else {
			printRequest(req)
		}
	}
	if err != nil {
		fatal("%v", err)
	}
}

// scanFrames reads frames line by line until a request completes. Blank
// lines are skipped. With prompt set, progress is written to status before
// every read. A partial request is returned with its error when the sender
// is unknown.
func scanFrames(in io.Reader, status io.Writer, prompt bool, push framePusher) (*rpc.RequestResult, error) {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 4096), maxFrameLine)

	received, expected := 0, 0
	for {
		if prompt {
			if expected > 0 {
				fmt.Fprintf(status, "frame %d/%d> ", received+1, expected)
			} else {
				fmt.Fprint(status, "frame> ")
			}
		}
		if !sc.Scan() {
			break
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		res, err := push(line)
		if err != nil {
			if res != nil && res.Request != nil {
				return res.Request, err
			}
			if prompt && !errors.Is(err, uos.ErrNoMatchingAccount) {
				// The session resets on error; let the user start over.
				fmt.Fprintf(status, "rejected: %v\n", err)
				received, expected = 0, 0
				continue
			}
			return nil, err
		}
		if res.Complete {
			return res.Request, nil
		}
		received, expected = res.Received, res.Expected
		if prompt && len(res.Missing) > 0 {
			fmt.Fprintf(status, "missing frames: %v\n", res.Missing)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read frames: %w", err)
	}
	if expected > 0 {
		return nil, fmt.Errorf("%w: %d of %d frames received", io.ErrUnexpectedEOF, received, expected)
	}
	return nil, io.ErrUnexpectedEOF
}

// printRequest writes a human-readable summary of a decoded request.
func printRequest(r *rpc.RequestResult) {
	fmt.Printf("Family:      %s\n", r.Family)
	fmt.Printf("Action:      %s\n", r.Action)
	fmt.Printf("Crypto:      %s\n", r.Crypto)
	if r.Network != nil {
		fmt.Printf("Network:     %s (%s)\n", r.Network.Name, r.Network.Slug)
	}
	fmt.Printf("Sender:      %s\n", r.Sender)
	if r.Account != nil && r.Account.Name != "" {
		fmt.Printf("Account:     %s\n", r.Account.Name)
	}
	if r.IsHash {
		fmt.Printf("Hash:        %s\n", r.Payload)
	} else {
		fmt.Printf("Payload:     %s\n", r.Payload)
	}
	if r.Oversized {
		fmt.Println("Oversized:   payload replaced by its blake2b-256 digest")
	}
	if tx := r.Transaction; tx != nil {
		fmt.Printf("Tx type:     %d\n", tx.Type)
		if tx.ChainID != "" {
			fmt.Printf("Chain ID:    %s\n", tx.ChainID)
		}
		fmt.Printf("Nonce:       %d\n", tx.Nonce)
		if tx.To != "" {
			fmt.Printf("To:          %s\n", tx.To)
		} else {
			fmt.Println("To:          (contract creation)")
		}
		fmt.Printf("Value:       %s wei\n", tx.Value)
		fmt.Printf("Gas:         %d\n", tx.Gas)
		fmt.Printf("Signing hash: %s\n", tx.SigningHash)
	}
}
