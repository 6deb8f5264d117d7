package main

import (
	"bufio"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/Klingon-tech/klingscan/internal/keys"
	"github.com/Klingon-tech/klingscan/internal/registry"
	"github.com/Klingon-tech/klingscan/pkg/address"
	"github.com/Klingon-tech/klingscan/pkg/uos"
)

// ── networks ────────────────────────────────────────────────────────────

func cmdNetworks(g globals, args []string) {
	if len(args) < 1 {
		fatal("Usage: klingscan networks <list|add|remove|reset>")
	}

	reg, closeDB := openRegistry(g)
	defer closeDB()

	switch args[0] {
	case "list":
		networks, err := reg.Networks()
		check(closeDB, err)
		printNetworks(networks)

	case "add":
		fs := flag.NewFlagSet("networks add", flag.ExitOnError)
		slug := fs.String("slug", "", "Network slug (required)")
		name := fs.String("name", "", "Display name (default: slug)")
		genesis := fs.String("genesis", "", "Genesis hash, 32 bytes hex (required)")
		prefix := fs.Int("prefix", 42, "SS58 prefix, -1 for none")
		ethereum := fs.Bool("ethereum", false, "EVM network")
		chainID := fs.Uint64("chain-id", 0, "EVM chain id")
		fs.Parse(args[1:])

		n := uos.NetworkDescriptor{
			Slug:        *slug,
			Name:        *name,
			GenesisHash: *genesis,
			IsEthereum:  *ethereum,
			SS58Prefix:  *prefix,
			ChainID:     *chainID,
		}
		check(closeDB, reg.AddNetwork(n))
		fmt.Printf("Network %s added\n", *slug)

	case "remove":
		if len(args) != 2 {
			fatal("Usage: klingscan networks remove <slug>")
		}
		check(closeDB, reg.RemoveNetwork(args[1]))
		fmt.Printf("Network %s removed\n", args[1])

	case "reset":
		check(closeDB, reg.Seed(true))
		fmt.Printf("Restored %d default networks\n", len(registry.DefaultNetworks()))

	default:
		fatal("Unknown networks command: %s", args[0])
	}
}

func printNetworks(networks []uos.NetworkDescriptor) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SLUG\tNAME\tPREFIX\tCHAIN ID\tGENESIS")
	for _, n := range networks {
		prefix := "-"
		if n.SS58Prefix >= 0 {
			prefix = fmt.Sprintf("%d", n.SS58Prefix)
		}
		chainID := "-"
		if n.IsEthereum {
			chainID = fmt.Sprintf("%d", n.ChainID)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", n.Slug, n.Name, prefix, chainID, n.GenesisHash)
	}
	w.Flush()
}

// ── accounts ────────────────────────────────────────────────────────────

func cmdAccounts(g globals, args []string) {
	if len(args) < 1 {
		fatal("Usage: klingscan accounts <list|add|add-pubkey|derive|remove>")
	}

	reg, closeDB := openRegistry(g)
	defer closeDB()

	switch args[0] {
	case "list":
		accounts, err := reg.Accounts()
		check(closeDB, err)
		printAccounts(accounts)

	case "add", "add-pubkey":
		fs := flag.NewFlagSet("accounts "+args[0], flag.ExitOnError)
		name := fs.String("name", "", "Account name")
		external := fs.Bool("external", false, "Watch-only account that cannot sign here")
		fs.Parse(args[1:])
		if fs.NArg() != 1 {
			fatal("Usage: klingscan accounts %s [--name <n>] [--external] <value>", args[0])
		}

		if args[0] == "add-pubkey" {
			a, err := reg.AddEVMPublicKey(*name, fs.Arg(0), *external)
			check(closeDB, err)
			fmt.Printf("Account %s added\n", a.Address)
			return
		}
		check(closeDB, reg.AddAccount(uos.Account{Address: fs.Arg(0), Name: *name, External: *external}))
		fmt.Printf("Account %s added\n", fs.Arg(0))

	case "derive":
		fs := flag.NewFlagSet("accounts derive", flag.ExitOnError)
		name := fs.String("name", "Derived", "Name prefix; the index is appended")
		account := fs.Uint("account", 0, "BIP-44 account")
		first := fs.Uint("index", 0, "First address index")
		count := fs.Int("count", 1, "Number of accounts to derive")
		usePassphrase := fs.Bool("passphrase", false, "Prompt for a BIP-39 passphrase")
		fs.Parse(args[1:])

		mnemonic, err := readSecret("Mnemonic: ")
		check(closeDB, err)
		passphrase := ""
		if *usePassphrase {
			passphrase, err = readSecret("Passphrase: ")
			check(closeDB, err)
		}
		seed, err := keys.SeedFromMnemonic(mnemonic, passphrase)
		check(closeDB, err)
		derived, err := keys.DeriveEVMAccounts(seed, uint32(*account), uint32(*first), *count)
		check(closeDB, err)

		for i, d := range derived {
			label := fmt.Sprintf("%s %d", *name, *first+uint(i))
			a, err := reg.AddEVMPublicKey(label, hex.EncodeToString(d.PublicKey), false)
			check(closeDB, err)
			fmt.Printf("%s  %s  %s\n", d.Path, a.Address, label)
		}

	case "remove":
		if len(args) != 2 {
			fatal("Usage: klingscan accounts remove <address>")
		}
		check(closeDB, reg.RemoveAccount(args[1]))
		fmt.Printf("Account %s removed\n", args[1])

	default:
		fatal("Unknown accounts command: %s", args[0])
	}
}

func printAccounts(accounts []uos.Account) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ADDRESS\tNAME\tKEYPAIR\tEXTERNAL")
	for _, a := range accounts {
		keypair := address.KeypairType(a.Address)
		if a.IsAll() {
			keypair = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%v\n", a.Address, a.Name, keypair, a.External)
	}
	w.Flush()
}

// stdin is shared so piped secrets on consecutive lines are not lost to
// read-ahead buffering.
var stdin = bufio.NewReader(os.Stdin)

// readSecret reads one line without echo from a terminal, or plainly from
// piped stdin.
func readSecret(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, prompt)
		secret, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr) // newline after hidden input
		if err != nil {
			return "", err
		}
		return string(secret), nil
	}
	line, err := stdin.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read %s%w", strings.ToLower(prompt), err)
	}
	return strings.TrimSpace(line), nil
}

// check closes the store and exits on a non-nil error.
func check(closeDB func(), err error) {
	if err != nil {
		closeDB()
		fatal("%v", err)
	}
}
