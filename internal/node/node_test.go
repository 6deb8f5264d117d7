package node

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Klingon-tech/klingscan/config"
	"github.com/Klingon-tech/klingscan/internal/registry"
	"github.com/Klingon-tech/klingscan/internal/rpcclient"
	"github.com/Klingon-tech/klingscan/pkg/uos"
)

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	tests := []struct {
		input, want string
	}{
		{"~/foo/bar", filepath.Join(home, "foo/bar")},
		{"~/.klingscan/logs", filepath.Join(home, ".klingscan/logs")},
		{"/absolute/path", "/absolute/path"},
		{"relative/path", "relative/path"},
		{"", ""},
	}
	for _, tt := range tests {
		got := expandHome(tt.input)
		if got != tt.want {
			t.Errorf("expandHome(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default(config.Testnet)
	cfg.DataDir = t.TempDir()
	cfg.RPC.Port = 0 // Use random port.
	cfg.Log.Level = "error"
	if err := config.EnsureDataDirs(cfg); err != nil {
		t.Fatalf("EnsureDataDirs: %v", err)
	}
	return cfg
}

func TestNodeLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	cfg := testConfig(t)
	n, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := n.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if n.RPCAddr() == "" {
		t.Fatal("RPCAddr should not be empty")
	}

	client := rpcclient.New("http://" + n.RPCAddr())
	networks, err := client.Networks()
	if err != nil {
		t.Fatalf("network_list: %v", err)
	}
	if len(networks) != len(registry.DefaultNetworks()) {
		t.Errorf("got %d networks, want %d seeded", len(networks), len(registry.DefaultNetworks()))
	}

	n.Stop()
	select {
	case <-n.Done():
	default:
		t.Error("Done not closed after Stop")
	}

	// The registry survives a restart.
	if _, err := os.Stat(cfg.RegistryDir()); err != nil {
		t.Errorf("registry dir: %v", err)
	}
}

func TestNode_Persists(t *testing.T) {
	cfg := testConfig(t)
	cfg.RPC.Enabled = false

	n, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := n.Registry().AddAccount(uos.Account{Address: "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY", Name: "Alice"}); err != nil {
		t.Fatalf("AddAccount: %v", err)
	}
	n.Stop()

	n, err = New(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer n.Stop()
	accounts, err := n.Registry().Accounts()
	if err != nil {
		t.Fatalf("Accounts: %v", err)
	}
	if len(accounts) != 1 || accounts[0].Name != "Alice" {
		t.Errorf("accounts = %+v", accounts)
	}
	if n.RPCAddr() != "" {
		t.Errorf("RPCAddr = %q with RPC disabled", n.RPCAddr())
	}
}

func TestNode_InMemory(t *testing.T) {
	cfg := config.Default(config.Mainnet)
	cfg.DataDir = ""
	cfg.RPC.Enabled = false
	cfg.Registry.InMemory = true
	cfg.Log.Level = "error"

	n, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer n.Stop()

	if _, err := n.Registry().Network("polkadot"); err != nil {
		t.Errorf("seeded network missing: %v", err)
	}
}

func TestNode_Reseed(t *testing.T) {
	cfg := testConfig(t)
	cfg.RPC.Enabled = false

	n, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := n.Registry().RemoveNetwork("westend"); err != nil {
		t.Fatalf("RemoveNetwork: %v", err)
	}
	n.Stop()

	cfg.Registry.Reseed = true
	n, err = New(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer n.Stop()
	if _, err := n.Registry().Network("westend"); err != nil {
		t.Errorf("westend not restored: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := config.LoadFromFile(tmpDir, config.Testnet)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.Network != config.Testnet {
		t.Errorf("expected testnet, got %s", cfg.Network)
	}
	if cfg.DataDir != tmpDir {
		t.Errorf("expected datadir %s, got %s", tmpDir, cfg.DataDir)
	}

	// Verify default config file was created.
	confPath := filepath.Join(tmpDir, "klingscan.conf")
	if _, err := os.Stat(confPath); os.IsNotExist(err) {
		t.Error("config file should have been created")
	}
}
